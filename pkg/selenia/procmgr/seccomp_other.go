//go:build !linux

package procmgr

// Install is a no-op outside Linux; seccomp-BPF is a Linux-specific
// sandboxing mechanism.
func Install(syscalls []uint32) error { return nil }

// InstallDefault is a no-op outside Linux.
func InstallDefault() error { return nil }

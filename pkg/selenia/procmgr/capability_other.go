//go:build !linux

package procmgr

// DropNetBindCapability is a no-op outside Linux; capability bounding
// sets are a Linux-specific concept.
func DropNetBindCapability() error { return nil }

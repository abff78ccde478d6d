//go:build linux

// seccomp_linux.go installs a minimal seccomp-BPF allowlist: read, write,
// close, futex, epoll_wait/ctl/create1, clock_nanosleep, exit, exit_group,
// mmap, munmap, rt_sigreturn, rt_sigaction, plus the networking syscalls a
// worker needs after startup (accept4, recvfrom, sendto, fcntl). Any other
// syscall is denied with EPERM.
//
// Grounded on original_source/selenia_core/src/seccomp.rs, translated from
// hand-rolled libc BPF structs into golang.org/x/sys/unix's SockFilter/
// SockFprog and a direct prctl(2) syscall.
package procmgr

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	bpfLd  = 0x00
	bpfW   = 0x00
	bpfAbs = 0x20
	bpfJmp = 0x05
	bpfJeq = 0x10
	bpfK   = 0x00
	bpfRet = 0x06

	seccompRetAllow = 0x7fff0000
	seccompRetErrno = 0x00050000 // | EPERM (1)
)

func stmt(code uint16, k uint32) unix.SockFilter {
	return unix.SockFilter{Code: code, K: k}
}

func jump(code uint16, k uint32, jt, jf uint8) unix.SockFilter {
	return unix.SockFilter{Code: code, Jt: jt, Jf: jf, K: k}
}

// defaultAllowedSyscalls lists the syscall numbers (golang.org/x/sys/unix's
// constants for the build architecture; this allowlist intentionally stays
// minimal rather than exhaustive).
var defaultAllowedSyscalls = []uint32{
	unix.SYS_READ,
	unix.SYS_WRITE,
	unix.SYS_CLOSE,
	unix.SYS_FUTEX,
	unix.SYS_EPOLL_WAIT,
	unix.SYS_EPOLL_CTL,
	unix.SYS_EPOLL_CREATE1,
	unix.SYS_CLOCK_NANOSLEEP,
	unix.SYS_EXIT,
	unix.SYS_EXIT_GROUP,
	unix.SYS_ACCEPT4,
	unix.SYS_RECVFROM,
	unix.SYS_SENDTO,
	unix.SYS_FCNTL,
	unix.SYS_MMAP,
	unix.SYS_MUNMAP,
	unix.SYS_RT_SIGRETURN,
	unix.SYS_RT_SIGACTION,
}

// Install builds and installs a seccomp-BPF allowlist for syscalls,
// permanently (no_new_privs is set first, as prctl(2) requires).
func Install(syscalls []uint32) error {
	prog := make([]unix.SockFilter, 0, 2*len(syscalls)+2)
	prog = append(prog, stmt(bpfLd|bpfW|bpfAbs, 0))
	for _, nr := range syscalls {
		prog = append(prog, jump(bpfJmp|bpfJeq|bpfK, nr, 0, 1))
		prog = append(prog, stmt(bpfRet|bpfK, seccompRetAllow))
	}
	prog = append(prog, stmt(bpfRet|bpfK, seccompRetErrno|1))

	fprog := unix.SockFprog{
		Len:    uint16(len(prog)),
		Filter: &prog[0],
	}

	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return fmt.Errorf("procmgr: set no_new_privs: %w", err)
	}
	_, _, errno := unix.Syscall(unix.SYS_PRCTL, unix.PR_SET_SECCOMP, unix.SECCOMP_MODE_FILTER, uintptr(unsafe.Pointer(&fprog)))
	if errno != 0 {
		return fmt.Errorf("procmgr: install seccomp filter: %w", errno)
	}
	return nil
}

// InstallDefault installs the built-in core-runtime allowlist.
func InstallDefault() error {
	return Install(defaultAllowedSyscalls)
}

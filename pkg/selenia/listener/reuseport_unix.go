//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package listener

import "golang.org/x/sys/unix"

// setReusePort enables SO_REUSEPORT where the OS supports it, so multiple
// worker processes can bind the same port and have the kernel balance new
// connections across them (spec.md §4.D, §4.M).
func setReusePort(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
}

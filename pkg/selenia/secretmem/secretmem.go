// Package secretmem holds TLS key material outside ordinary heap memory:
// backed by memfd_secret(2) on Linux 5.14+ where available, so the pages
// backing it are unmapped from every other process (including ptrace) and
// never written to swap, with an unsealed memfd_create(2) region as the
// fallback on older kernels. There is no secret-memory syscall on other
// platforms, so non-Linux builds fall back to an ordinary heap buffer and
// Buffer.Secure reports false.
//
// Grounded on original_source/selenia_core/src/crypto/memfd_secret.rs.
package secretmem

import "errors"

// ErrUnsupported is returned by platform-specific backing allocators that
// have no secret-memory facility; New still succeeds by falling back to a
// plain buffer.
var ErrUnsupported = errors.New("secretmem: no secret-memory facility on this platform")

// Buffer is a fixed-size region intended for key material: TLS traffic
// secrets, ticket-encryption keys, anything that should not be readable
// from a core dump or another process's /proc/<pid>/mem.
type Buffer struct {
	data   []byte
	secure bool
	closer func() error
}

// New allocates a Buffer of size bytes. It always succeeds: on platforms or
// kernels where secret memory is unavailable it falls back to a normal
// slice, which Secure() reports.
func New(size int) (*Buffer, error) {
	data, secure, closer, err := newBacking(size)
	if err != nil {
		data = make([]byte, size)
		secure = false
		closer = nil
	}
	return &Buffer{data: data, secure: secure, closer: closer}, nil
}

// Secure reports whether this Buffer's memory is actually backed by a
// secret-memory facility, as opposed to the ordinary-heap fallback.
func (b *Buffer) Secure() bool { return b.secure }

// Bytes returns the buffer's backing slice. Callers must not retain it past
// Close.
func (b *Buffer) Bytes() []byte { return b.data }

// Fill overwrites the buffer's contents with src, which must be no longer
// than the buffer.
func (b *Buffer) Fill(src []byte) {
	copy(b.data, src)
}

// Zero overwrites the buffer with zero bytes without releasing it.
func (b *Buffer) Zero() {
	for i := range b.data {
		b.data[i] = 0
	}
}

// Close zeroes and releases the buffer's backing memory.
func (b *Buffer) Close() error {
	b.Zero()
	if b.closer != nil {
		return b.closer()
	}
	return nil
}

package crypto

import "crypto/rand"

// RandomBytes fills and returns n cryptographically random bytes, sourced
// from the OS CSPRNG (the one place this package defers to the platform
// rather than re-implementing a generator: a userspace DRBG is strictly
// weaker than the kernel's entropy pool, so there is no in-house
// replacement for it here).
func RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

package crypto

import (
	"encoding/binary"
	"math/big"
)

var poly1305P = func() *big.Int {
	p := new(big.Int).Lsh(big.NewInt(1), 130)
	return p.Sub(p, big.NewInt(5))
}()

// Poly1305 computes the 16-byte Poly1305 MAC (RFC 8439 §2.5) of msg under
// the given 32-byte one-time key (r || s).
func Poly1305(key [32]byte, msg []byte) [16]byte {
	r := clampR(key[:16])
	s := new(big.Int).SetBytes(reverse(append([]byte{}, key[16:32]...)))

	acc := new(big.Int)
	block := make([]byte, 17)

	for off := 0; off < len(msg); off += 16 {
		end := off + 16
		if end > len(msg) {
			end = len(msg)
		}
		n := end - off
		for i := range block {
			block[i] = 0
		}
		copy(block, msg[off:end])
		block[n] = 1

		rev := reverse(append([]byte{}, block[:n+1]...))
		c := new(big.Int).SetBytes(rev)

		acc.Add(acc, c)
		acc.Mul(acc, r)
		acc.Mod(acc, poly1305P)
	}

	acc.Add(acc, s)

	var tag [16]byte
	b := acc.Bytes()
	// acc is little-endian conceptually; Bytes() returns big-endian, so
	// place it at the tail and reverse into tag.
	tmp := make([]byte, 16)
	if len(b) > 16 {
		b = b[len(b)-16:]
	}
	copy(tmp[16-len(b):], b)
	for i := 0; i < 16; i++ {
		tag[i] = tmp[15-i]
	}
	return tag
}

func clampR(r []byte) *big.Int {
	c := append([]byte{}, r...)
	c[3] &= 15
	c[7] &= 15
	c[11] &= 15
	c[15] &= 15
	c[4] &= 252
	c[8] &= 252
	c[12] &= 252
	return new(big.Int).SetBytes(reverse(c))
}

func reverse(b []byte) []byte {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}

func le64(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

package crypto

import "encoding/binary"

const chachaConst0, chachaConst1, chachaConst2, chachaConst3 = 0x61707865, 0x3320646e, 0x79622d32, 0x6b206574

// chacha20Block computes one 64-byte ChaCha20 keystream block (RFC 8439 §2.3)
// for the given 32-byte key, 12-byte nonce and block counter.
func chacha20Block(key [32]byte, nonce [12]byte, counter uint32) [64]byte {
	var state [16]uint32
	state[0], state[1], state[2], state[3] = chachaConst0, chachaConst1, chachaConst2, chachaConst3
	for i := 0; i < 8; i++ {
		state[4+i] = binary.LittleEndian.Uint32(key[i*4:])
	}
	state[12] = counter
	state[13] = binary.LittleEndian.Uint32(nonce[0:4])
	state[14] = binary.LittleEndian.Uint32(nonce[4:8])
	state[15] = binary.LittleEndian.Uint32(nonce[8:12])

	working := state
	for i := 0; i < 10; i++ {
		quarterRound(&working, 0, 4, 8, 12)
		quarterRound(&working, 1, 5, 9, 13)
		quarterRound(&working, 2, 6, 10, 14)
		quarterRound(&working, 3, 7, 11, 15)
		quarterRound(&working, 0, 5, 10, 15)
		quarterRound(&working, 1, 6, 11, 12)
		quarterRound(&working, 2, 7, 8, 13)
		quarterRound(&working, 3, 4, 9, 14)
	}

	var out [64]byte
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(out[i*4:], working[i]+state[i])
	}
	return out
}

func quarterRound(s *[16]uint32, a, b, c, d int) {
	s[a] += s[b]
	s[d] ^= s[a]
	s[d] = rotl32(s[d], 16)
	s[c] += s[d]
	s[b] ^= s[c]
	s[b] = rotl32(s[b], 12)
	s[a] += s[b]
	s[d] ^= s[a]
	s[d] = rotl32(s[d], 8)
	s[c] += s[d]
	s[b] ^= s[c]
	s[b] = rotl32(s[b], 7)
}

func rotl32(x uint32, n uint) uint32 {
	return (x << n) | (x >> (32 - n))
}

// ChaCha20XOR encrypts (or decrypts) src into dst using the ChaCha20
// keystream starting at the given initial block counter.
func ChaCha20XOR(key [32]byte, nonce [12]byte, counter uint32, dst, src []byte) {
	for off := 0; off < len(src); off += 64 {
		block := chacha20Block(key, nonce, counter)
		counter++
		end := off + 64
		if end > len(src) {
			end = len(src)
		}
		for i := off; i < end; i++ {
			dst[i] = src[i] ^ block[i-off]
		}
	}
}

package crypto

import "encoding/binary"

// AES-128-GCM (NIST SP 800-38D), built on the AES-128 block cipher and a
// hand-rolled GHASH over GF(2^128).

// AESGCMSeal encrypts plaintext with AES-128-GCM under key/nonce (12 bytes)
// and appends a 16-byte authentication tag, authenticating aad.
func AESGCMSeal(key [16]byte, nonce [12]byte, plaintext, aad []byte) []byte {
	cipher := NewAES128(key)
	h := ghashKey(cipher)

	j0 := gcmJ0(nonce)
	ciphertext := gcmCTR(cipher, j0, plaintext)

	tag := ghash(h, aad, ciphertext)
	tag = gcmEncryptBlock(cipher, j0, tag)

	return append(ciphertext, tag[:]...)
}

// AESGCMOpen verifies and decrypts a message produced by AESGCMSeal.
func AESGCMOpen(key [16]byte, nonce [12]byte, sealed, aad []byte) ([]byte, error) {
	if len(sealed) < 16 {
		return nil, ErrAuthFailed
	}
	ciphertext := sealed[:len(sealed)-16]
	var wantTag [16]byte
	copy(wantTag[:], sealed[len(sealed)-16:])

	cipher := NewAES128(key)
	h := ghashKey(cipher)
	j0 := gcmJ0(nonce)

	tag := ghash(h, aad, ciphertext)
	tag = gcmEncryptBlock(cipher, j0, tag)

	if !constantTimeEqual(tag[:], wantTag[:]) {
		return nil, ErrAuthFailed
	}

	plaintext := gcmCTR(cipher, j0, ciphertext)
	return plaintext, nil
}

func ghashKey(cipher *AES128) [16]byte {
	var zero, h [16]byte
	cipher.Encrypt(h[:], zero[:])
	return h
}

// gcmJ0 builds the initial counter block J0 for a 96-bit nonce (SP 800-38D
// §7.1 case len(IV)=96): IV || 0^31 || 1.
func gcmJ0(nonce [12]byte) [16]byte {
	var j0 [16]byte
	copy(j0[:12], nonce[:])
	j0[15] = 1
	return j0
}

func incr32(block *[16]byte) {
	ctr := binary.BigEndian.Uint32(block[12:])
	ctr++
	binary.BigEndian.PutUint32(block[12:], ctr)
}

func gcmEncryptBlock(cipher *AES128, counter [16]byte, in [16]byte) [16]byte {
	var ks, out [16]byte
	cipher.Encrypt(ks[:], counter[:])
	for i := range out {
		out[i] = in[i] ^ ks[i]
	}
	return out
}

func gcmCTR(cipher *AES128, j0 [16]byte, data []byte) []byte {
	out := make([]byte, len(data))
	counter := j0
	incr32(&counter)
	for off := 0; off < len(data); off += 16 {
		var ks [16]byte
		cipher.Encrypt(ks[:], counter[:])
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		for i := off; i < end; i++ {
			out[i] = data[i] ^ ks[i-off]
		}
		incr32(&counter)
	}
	return out
}

// ghash computes GHASH_H(AAD || pad || C || pad || len(AAD) || len(C)),
// the GCM authentication tag's underlying polynomial-hash input.
func ghash(h [16]byte, aad, ciphertext []byte) [16]byte {
	var y [16]byte

	for _, block := range splitBlocks(aad) {
		xorBlock(&y, block)
		y = gfMul(y, h)
	}
	for _, block := range splitBlocks(ciphertext) {
		xorBlock(&y, block)
		y = gfMul(y, h)
	}

	var lenBlock [16]byte
	binary.BigEndian.PutUint64(lenBlock[0:8], uint64(len(aad))*8)
	binary.BigEndian.PutUint64(lenBlock[8:16], uint64(len(ciphertext))*8)
	xorBlock(&y, lenBlock[:])
	y = gfMul(y, h)

	return y
}

func splitBlocks(data []byte) [][]byte {
	var blocks [][]byte
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		var block [16]byte
		copy(block[:], data[off:end])
		blocks = append(blocks, block[:])
	}
	return blocks
}

func xorBlock(y *[16]byte, block []byte) {
	for i := 0; i < 16; i++ {
		y[i] ^= block[i]
	}
}

// gfMul multiplies two elements of GF(2^128) under the GCM reduction
// polynomial x^128 + x^7 + x^2 + x + 1 (SP 800-38D §6.3).
func gfMul(x, y [16]byte) [16]byte {
	var z, v [16]byte
	copy(v[:], y[:])

	for i := 0; i < 128; i++ {
		byteIdx := i / 8
		bitIdx := uint(7 - i%8)
		if x[byteIdx]&(1<<bitIdx) != 0 {
			xorBlock(&z, v[:])
		}
		lsb := v[15] & 1
		shiftRight(&v)
		if lsb != 0 {
			v[0] ^= 0xe1
		}
	}
	return z
}

func shiftRight(v *[16]byte) {
	var carry byte
	for i := 0; i < 16; i++ {
		newCarry := v[i] & 1
		v[i] = (v[i] >> 1) | (carry << 7)
		carry = newCarry
	}
}

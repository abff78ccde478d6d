package crypto

// HMACSHA256 computes HMAC-SHA256(key, msg) per RFC 2104.
func HMACSHA256(key, msg []byte) [32]byte {
	const blockSize = sha256BlockSize

	if len(key) > blockSize {
		sum := SHA256(key)
		key = sum[:]
	}

	padded := make([]byte, blockSize)
	copy(padded, key)

	ipad := make([]byte, blockSize)
	opad := make([]byte, blockSize)
	for i := 0; i < blockSize; i++ {
		ipad[i] = padded[i] ^ 0x36
		opad[i] = padded[i] ^ 0x5c
	}

	inner := append(append([]byte{}, ipad...), msg...)
	innerSum := SHA256(inner)

	outer := append(append([]byte{}, opad...), innerSum[:]...)
	return SHA256(outer)
}

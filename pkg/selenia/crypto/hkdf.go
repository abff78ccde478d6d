package crypto

// HKDFExtract implements HKDF-Extract (RFC 5869 §2.2) using HMAC-SHA256.
func HKDFExtract(salt, ikm []byte) [32]byte {
	if len(salt) == 0 {
		salt = make([]byte, sha256Size)
	}
	return HMACSHA256(salt, ikm)
}

// HKDFExpand implements HKDF-Expand (RFC 5869 §2.3) using HMAC-SHA256.
func HKDFExpand(prk, info []byte, length int) []byte {
	out := make([]byte, 0, length+sha256Size)
	var t []byte
	var counter byte = 1
	for len(out) < length {
		block := append(append([]byte{}, t...), info...)
		block = append(block, counter)
		sum := HMACSHA256(prk, block)
		t = sum[:]
		out = append(out, t...)
		counter++
	}
	return out[:length]
}

// HKDFExpandLabel implements TLS 1.3's HKDF-Expand-Label (RFC 8446 §7.1),
// used both for the TLS 1.3 record-layer key schedule and for QUIC's
// packet-protection key derivation (RFC 9001 §5.1), which reuses the same
// construction with an additional quic label prefix convention.
func HKDFExpandLabel(secret []byte, label string, context []byte, length int) []byte {
	fullLabel := "tls13 " + label
	hkdfLabel := make([]byte, 0, 2+1+len(fullLabel)+1+len(context))

	hkdfLabel = append(hkdfLabel, byte(length>>8), byte(length))
	hkdfLabel = append(hkdfLabel, byte(len(fullLabel)))
	hkdfLabel = append(hkdfLabel, fullLabel...)
	hkdfLabel = append(hkdfLabel, byte(len(context)))
	hkdfLabel = append(hkdfLabel, context...)

	return HKDFExpand(secret, hkdfLabel, length)
}

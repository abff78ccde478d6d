package crypto

import "testing"

func aeadsUnderTest(t *testing.T) map[string]AEAD {
	aesKey := make([]byte, 16)
	for i := range aesKey {
		aesKey[i] = byte(i)
	}
	chachaKey := make([]byte, 32)
	for i := range chachaKey {
		chachaKey[i] = byte(i * 3)
	}

	aesAEAD, err := NewAES128GCM(aesKey)
	if err != nil {
		t.Fatalf("NewAES128GCM: %v", err)
	}
	chachaAEAD, err := NewChaCha20Poly1305(chachaKey)
	if err != nil {
		t.Fatalf("NewChaCha20Poly1305: %v", err)
	}
	return map[string]AEAD{
		"aes128gcm":        aesAEAD,
		"chacha20poly1305": chachaAEAD,
	}
}

func TestAEADSealOpenRoundTrip(t *testing.T) {
	for name, aead := range aeadsUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			nonce := make([]byte, aead.NonceSize())
			for i := range nonce {
				nonce[i] = byte(i + 1)
			}
			plaintext := []byte("the quick brown fox jumps over the lazy dog")
			aad := []byte("associated-data")

			sealed := aead.Seal(plaintext, nonce, aad)
			if len(sealed) != len(plaintext)+aead.Overhead() {
				t.Fatalf("sealed length = %d, want %d", len(sealed), len(plaintext)+aead.Overhead())
			}

			opened, err := aead.Open(sealed, nonce, aad)
			if err != nil {
				t.Fatalf("Open failed on an untampered sealed message: %v", err)
			}
			if string(opened) != string(plaintext) {
				t.Fatalf("Open returned %q, want %q", opened, plaintext)
			}
		})
	}
}

func TestAEADOpenRejectsTamperedCiphertext(t *testing.T) {
	for name, aead := range aeadsUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			nonce := make([]byte, aead.NonceSize())
			sealed := aead.Seal([]byte("payload"), nonce, []byte("aad"))

			tampered := make([]byte, len(sealed))
			copy(tampered, sealed)
			tampered[0] ^= 0xFF

			if _, err := aead.Open(tampered, nonce, []byte("aad")); err == nil {
				t.Fatal("Open must reject a ciphertext tampered after sealing")
			}
		})
	}
}

func TestAEADOpenRejectsTamperedAAD(t *testing.T) {
	for name, aead := range aeadsUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			nonce := make([]byte, aead.NonceSize())
			sealed := aead.Seal([]byte("payload"), nonce, []byte("original-aad"))

			if _, err := aead.Open(sealed, nonce, []byte("different-aad")); err == nil {
				t.Fatal("Open must reject a sealed message presented with the wrong associated data")
			}
		})
	}
}

func TestAEADOpenRejectsWrongNonce(t *testing.T) {
	for name, aead := range aeadsUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			nonce := make([]byte, aead.NonceSize())
			sealed := aead.Seal([]byte("payload"), nonce, nil)

			wrongNonce := make([]byte, aead.NonceSize())
			wrongNonce[0] = 1

			if _, err := aead.Open(sealed, wrongNonce, nil); err == nil {
				t.Fatal("Open must reject a sealed message opened under the wrong nonce")
			}
		})
	}
}

func TestNewAEADRejectsWrongKeyLength(t *testing.T) {
	if _, err := NewAES128GCM(make([]byte, 10)); err == nil {
		t.Error("NewAES128GCM should reject a key that is not 16 bytes")
	}
	if _, err := NewChaCha20Poly1305(make([]byte, 10)); err == nil {
		t.Error("NewChaCha20Poly1305 should reject a key that is not 32 bytes")
	}
}

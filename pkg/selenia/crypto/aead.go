package crypto

// AEAD is the sealed-box interface the TLS 1.3 record layer and QUIC packet
// protection program against, implemented by aes128gcmAEAD and
// chacha20poly1305AEAD below. It intentionally mirrors the shape of
// crypto/cipher.AEAD without importing it, so callers can be written the
// same way the teacher writes code against that stdlib interface.
type AEAD interface {
	NonceSize() int
	Overhead() int
	Seal(plaintext, nonce, aad []byte) []byte
	Open(sealed, nonce, aad []byte) ([]byte, error)
}

type aes128gcmAEAD struct {
	key [16]byte
}

// NewAES128GCM returns an AEAD backed by AES-128-GCM.
func NewAES128GCM(key []byte) (AEAD, error) {
	if len(key) != 16 {
		return nil, ErrInvalidKeyLength
	}
	var k [16]byte
	copy(k[:], key)
	return &aes128gcmAEAD{key: k}, nil
}

func (a *aes128gcmAEAD) NonceSize() int { return 12 }
func (a *aes128gcmAEAD) Overhead() int  { return 16 }

func (a *aes128gcmAEAD) Seal(plaintext, nonce, aad []byte) []byte {
	var n [12]byte
	copy(n[:], nonce)
	return AESGCMSeal(a.key, n, plaintext, aad)
}

func (a *aes128gcmAEAD) Open(sealed, nonce, aad []byte) ([]byte, error) {
	var n [12]byte
	copy(n[:], nonce)
	return AESGCMOpen(a.key, n, sealed, aad)
}

type chacha20poly1305AEAD struct {
	key [32]byte
}

// NewChaCha20Poly1305 returns an AEAD backed by ChaCha20-Poly1305.
func NewChaCha20Poly1305(key []byte) (AEAD, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKeyLength
	}
	var k [32]byte
	copy(k[:], key)
	return &chacha20poly1305AEAD{key: k}, nil
}

func (a *chacha20poly1305AEAD) NonceSize() int { return 12 }
func (a *chacha20poly1305AEAD) Overhead() int  { return 16 }

func (a *chacha20poly1305AEAD) Seal(plaintext, nonce, aad []byte) []byte {
	var n [12]byte
	copy(n[:], nonce)
	return ChaCha20Poly1305Seal(a.key, n, plaintext, aad)
}

func (a *chacha20poly1305AEAD) Open(sealed, nonce, aad []byte) ([]byte, error) {
	var n [12]byte
	copy(n[:], nonce)
	return ChaCha20Poly1305Open(a.key, n, sealed, aad)
}

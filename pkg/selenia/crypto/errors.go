package crypto

import "errors"

// ErrInvalidKeyLength is returned when a key of the wrong size is supplied
// to an AEAD constructor.
var ErrInvalidKeyLength = errors.New("crypto: invalid key length")

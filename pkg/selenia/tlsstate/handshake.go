package tlsstate

import (
	"encoding/binary"
	"errors"

	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/crypto"
)

// HandshakeType identifies a handshake message, RFC 8446 §4.
type HandshakeType uint8

const (
	HandshakeTypeClientHello HandshakeType = 1
	HandshakeTypeServerHello HandshakeType = 2
	HandshakeTypeFinished    HandshakeType = 20
)

var (
	ErrMalformedClientHello = errors.New("tlsstate: malformed ClientHello")
	ErrNoSupportedSuite     = errors.New("tlsstate: no supported cipher suite offered")
)

// ClientHello is the subset of RFC 8446 §4.1.2 fields this server inspects.
type ClientHello struct {
	Random       [32]byte
	SessionID    []byte
	CipherSuites []uint16
	ServerName   string
}

// ParseClientHello parses a ClientHello handshake body (the bytes after the
// 4-byte handshake header).
func ParseClientHello(body []byte) (*ClientHello, error) {
	if len(body) < 2+32+1 {
		return nil, ErrMalformedClientHello
	}
	pos := 2 // legacy_version

	ch := &ClientHello{}
	copy(ch.Random[:], body[pos:pos+32])
	pos += 32

	sessIDLen := int(body[pos])
	pos++
	if len(body) < pos+sessIDLen {
		return nil, ErrMalformedClientHello
	}
	ch.SessionID = append([]byte{}, body[pos:pos+sessIDLen]...)
	pos += sessIDLen

	if len(body) < pos+2 {
		return nil, ErrMalformedClientHello
	}
	suitesLen := int(binary.BigEndian.Uint16(body[pos:]))
	pos += 2
	if len(body) < pos+suitesLen {
		return nil, ErrMalformedClientHello
	}
	for i := 0; i < suitesLen; i += 2 {
		ch.CipherSuites = append(ch.CipherSuites, binary.BigEndian.Uint16(body[pos+i:]))
	}
	pos += suitesLen

	if len(body) < pos+1 {
		return nil, ErrMalformedClientHello
	}
	compLen := int(body[pos])
	pos += 1 + compLen

	if len(body) >= pos+2 {
		extLen := int(binary.BigEndian.Uint16(body[pos:]))
		pos += 2
		if len(body) >= pos+extLen {
			ch.ServerName = parseSNIExtension(body[pos : pos+extLen])
		}
	}

	return ch, nil
}

// parseSNIExtension scans a ClientHello extensions block for the
// server_name extension (type 0) and returns the first hostname, if any.
func parseSNIExtension(ext []byte) string {
	pos := 0
	for pos+4 <= len(ext) {
		extType := binary.BigEndian.Uint16(ext[pos:])
		extDataLen := int(binary.BigEndian.Uint16(ext[pos+2:]))
		pos += 4
		if pos+extDataLen > len(ext) {
			return ""
		}
		if extType == 0 && extDataLen > 5 {
			data := ext[pos : pos+extDataLen]
			// server_name_list: uint16 listLen, then (type byte, uint16 len, name)
			if len(data) >= 2 {
				listLen := int(binary.BigEndian.Uint16(data[0:2]))
				entry := data[2:]
				if len(entry) >= 3 && listLen >= 3 && entry[0] == 0 {
					nameLen := int(binary.BigEndian.Uint16(entry[1:3]))
					if len(entry) >= 3+nameLen {
						return string(entry[3 : 3+nameLen])
					}
				}
			}
		}
		pos += extDataLen
	}
	return ""
}

// SelectCipherSuite returns TLSAES128GCMSHA256 if the client offered it,
// the server's one supported suite (§9: cipher-suite negotiation is
// simplified to a single suite).
func SelectCipherSuite(offered []uint16) (uint16, error) {
	for _, s := range offered {
		if s == TLSAES128GCMSHA256 {
			return s, nil
		}
	}
	return 0, ErrNoSupportedSuite
}

// ServerHello is the subset of RFC 8446 §4.1.3 fields this server emits.
type ServerHello struct {
	Random      [32]byte
	SessionID   []byte
	CipherSuite uint16
}

// BuildServerHello serializes a ServerHello handshake message, including
// the 4-byte handshake header.
func BuildServerHello(sh ServerHello) []byte {
	var body []byte
	body = append(body, 0x03, 0x03) // legacy_version
	body = append(body, sh.Random[:]...)
	body = append(body, byte(len(sh.SessionID)))
	body = append(body, sh.SessionID...)
	body = append(body, byte(sh.CipherSuite>>8), byte(sh.CipherSuite))
	body = append(body, 0x00) // legacy_compression_method = null

	// supported_versions extension announcing TLS 1.3, required so clients
	// negotiating via the legacy_version field select 1.3.
	ext := []byte{0x00, 0x2b, 0x00, 0x02, 0x03, 0x04}
	body = append(body, byte(len(ext)>>8), byte(len(ext)))
	body = append(body, ext...)

	return wrapHandshake(HandshakeTypeServerHello, body)
}

func wrapHandshake(t HandshakeType, body []byte) []byte {
	out := make([]byte, 4+len(body))
	out[0] = byte(t)
	out[1] = byte(len(body) >> 16)
	out[2] = byte(len(body) >> 8)
	out[3] = byte(len(body))
	copy(out[4:], body)
	return out
}

// newRandom fills a 32-byte handshake Random field from the CSPRNG.
func newRandom() ([32]byte, error) {
	var r [32]byte
	b, err := crypto.RandomBytes(32)
	if err != nil {
		return r, err
	}
	copy(r[:], b)
	return r, nil
}

// Package tlsstate implements the slice of TLS 1.3 (RFC 8446) this server
// needs to terminate connections: record framing, ClientHello parsing,
// ServerHello construction, the handshake key schedule, and session-ticket
// storage for resumption. It programs entirely against pkg/selenia/crypto —
// no crypto/tls anywhere in this package.
package tlsstate

import (
	"encoding/binary"
	"errors"
)

// ContentType identifies a TLS record's payload kind, RFC 8446 §5.1.
type ContentType uint8

const (
	ContentTypeChangeCipherSpec ContentType = 20
	ContentTypeAlert            ContentType = 21
	ContentTypeHandshake        ContentType = 22
	ContentTypeApplicationData  ContentType = 23
)

// legacyRecordVersion is the wire version every TLS 1.3 record carries for
// middlebox compatibility (RFC 8446 §5.1): {0x03, 0x03}.
const legacyRecordVersion = 0x0303

var ErrRecordIncomplete = errors.New("tlsstate: record incomplete")
var ErrRecordTooLarge = errors.New("tlsstate: record payload too large")

// Record is one TLSPlaintext/TLSCiphertext record.
type Record struct {
	Type    ContentType
	Payload []byte
}

// AppendRecord serializes a record as content_type‖legacy_version‖length‖payload.
func AppendRecord(dst []byte, rec Record) ([]byte, error) {
	if len(rec.Payload) > 1<<14+256 {
		return nil, ErrRecordTooLarge
	}
	dst = append(dst, byte(rec.Type))
	ver := uint16(legacyRecordVersion)
	dst = append(dst, byte(ver>>8), byte(ver))
	dst = append(dst, byte(len(rec.Payload)>>8), byte(len(rec.Payload)))
	dst = append(dst, rec.Payload...)
	return dst, nil
}

// ReadRecord parses one record from the front of buf, returning the record
// and the number of bytes consumed. It returns ErrRecordIncomplete if buf
// does not yet hold a full record.
func ReadRecord(buf []byte) (Record, int, error) {
	if len(buf) < 5 {
		return Record{}, 0, ErrRecordIncomplete
	}
	length := int(binary.BigEndian.Uint16(buf[3:5]))
	if len(buf) < 5+length {
		return Record{}, 0, ErrRecordIncomplete
	}
	rec := Record{
		Type:    ContentType(buf[0]),
		Payload: append([]byte{}, buf[5:5+length]...),
	}
	return rec, 5 + length, nil
}

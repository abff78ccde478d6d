package quic

import (
	"encoding/binary"

	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/crypto"
)

// retryIntegrityKeyV1 and retryIntegrityNonceV1 are the fixed AEAD key and
// nonce RFC 9001 §5.8 defines for computing a QUIC version 1 Retry packet's
// integrity tag. Unlike every other QUIC key, these are not derived per
// connection -- they are published constants every implementation shares,
// since a Retry's purpose is address validation, not confidentiality.
var (
	retryIntegrityKeyV1   = [16]byte{0xbe, 0x0c, 0x69, 0x0b, 0x9f, 0x66, 0x57, 0x5a, 0x1d, 0x76, 0x6b, 0x54, 0xe3, 0x68, 0xc8, 0x4e}
	retryIntegrityNonceV1 = [12]byte{0x46, 0x15, 0x99, 0xd3, 0x5d, 0x63, 0x2b, 0xf2, 0x23, 0x98, 0x25, 0xbb}
)

// ComputeRetryIntegrityTag computes the 16-byte AEAD tag RFC 9001 §5.8
// requires on every Retry packet, over the original destination connection
// ID (the one the client used before the server asked it to retry) prepended
// to the Retry packet built so far with the tag field absent.
func ComputeRetryIntegrityTag(originalDestConnID ConnectionID, retryPacketPseudo []byte) [16]byte {
	aad := make([]byte, 0, 1+len(originalDestConnID)+len(retryPacketPseudo))
	aad = append(aad, byte(len(originalDestConnID)))
	aad = append(aad, originalDestConnID...)
	aad = append(aad, retryPacketPseudo...)

	sealed := crypto.AESGCMSeal(retryIntegrityKeyV1, retryIntegrityNonceV1, nil, aad)

	var tag [16]byte
	copy(tag[:], sealed)
	return tag
}

// BuildRetryPacket produces a complete Retry packet (RFC 9000 §17.2.5) in
// response to an Initial packet whose destination connection ID was
// originalDestConnID and whose source connection ID was clientSrcConnID:
// a long header of type Retry echoing clientSrcConnID as its own destination
// connection ID, carrying newSrcConnID and a fresh token, with an integrity
// tag computed over everything that precedes it plus originalDestConnID.
func BuildRetryPacket(originalDestConnID, clientSrcConnID, newSrcConnID ConnectionID, token []byte) []byte {
	header := PacketHeader{
		IsLongHeader: true,
		Version:      Version1,
		Type:         PacketTypeRetry,
		DestConnID:   clientSrcConnID,
		SrcConnID:    newSrcConnID,
		RetryToken:   token,
	}
	pseudo := (&Packet{Header: header}).AppendTo(nil)
	// AppendTo already wrote RetryToken and a zero RetryIntegrity; strip the
	// 16 trailing zero bytes before computing the tag over the pseudo-packet.
	pseudo = pseudo[:len(pseudo)-16]

	header.RetryIntegrity = ComputeRetryIntegrityTag(originalDestConnID, pseudo)
	return append(pseudo, header.RetryIntegrity[:]...)
}

// BuildVersionNegotiationPacket produces a Version Negotiation packet (RFC
// 9000 §17.2.1) offering the versions this server supports in response to a
// client that proposed one it does not recognize.
func BuildVersionNegotiationPacket(destConnID, srcConnID ConnectionID, supportedVersions []uint32) []byte {
	buf := make([]byte, 0, 7+destConnID.Len()+srcConnID.Len()+4*len(supportedVersions))
	buf = append(buf, HeaderFormLong|FixedBit)
	buf = append(buf, 0, 0, 0, 0) // version field is 0 for Version Negotiation
	buf = appendConnectionID(buf, destConnID)
	buf = appendConnectionID(buf, srcConnID)
	for _, v := range supportedVersions {
		var verBuf [4]byte
		binary.BigEndian.PutUint32(verBuf[:], v)
		buf = append(buf, verBuf[:]...)
	}
	return buf
}

// IsSupportedVersion reports whether v is a QUIC version this server
// negotiates; only Version1 is.
func IsSupportedVersion(v uint32) bool {
	return v == Version1
}

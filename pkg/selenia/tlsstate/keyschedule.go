package tlsstate

import "github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/crypto"

// TLSAES128GCMSHA256 is the only cipher suite negotiated by this server —
// see quic.TLSAES128GCMSHA256, kept as a separate constant here so this
// package has no import-cycle dependency on pkg/selenia/quic.
const TLSAES128GCMSHA256 uint16 = 0x1301

// TrafficSecrets holds the derived key-schedule secrets for one handshake,
// RFC 8446 §7.1.
type TrafficSecrets struct {
	HandshakeSecret          []byte
	ClientHandshakeTraffic   []byte
	ServerHandshakeTraffic   []byte
	MasterSecret             []byte
	ClientApplicationTraffic []byte
	ServerApplicationTraffic []byte
}

// DeriveTrafficSecrets runs the TLS 1.3 key schedule (early_secret →
// derived → handshake_secret → {client,server}_handshake_traffic_secret →
// master_secret → {client,server}_application_traffic_secret) from a shared
// secret and the running transcript hash at each stage.
//
// §9 simplification: sharedSecret is not derived from a real X25519/ECDHE
// exchange (this server does not implement asymmetric key agreement); it is
// filled from the CSPRNG, matching the specification's explicit non-goal
// for real key exchange while still exercising the rest of the schedule.
func DeriveTrafficSecrets(sharedSecret, helloTranscriptHash, fullTranscriptHash []byte) *TrafficSecrets {
	zero := make([]byte, 32)
	earlySecret := crypto.HKDFExtract(nil, zero)

	emptyHash := crypto.SHA256(nil)
	derived1 := crypto.HKDFExpandLabel(earlySecret[:], "derived", emptyHash[:], 32)

	handshakeSecretArr := crypto.HKDFExtract(derived1, sharedSecret)
	handshakeSecret := handshakeSecretArr[:]

	clientHS := crypto.HKDFExpandLabel(handshakeSecret, "c hs traffic", helloTranscriptHash, 32)
	serverHS := crypto.HKDFExpandLabel(handshakeSecret, "s hs traffic", helloTranscriptHash, 32)

	derived2 := crypto.HKDFExpandLabel(handshakeSecret, "derived", emptyHash[:], 32)
	masterSecretArr := crypto.HKDFExtract(derived2, zero)
	masterSecret := masterSecretArr[:]

	clientApp := crypto.HKDFExpandLabel(masterSecret, "c ap traffic", fullTranscriptHash, 32)
	serverApp := crypto.HKDFExpandLabel(masterSecret, "s ap traffic", fullTranscriptHash, 32)

	return &TrafficSecrets{
		HandshakeSecret:          handshakeSecret,
		ClientHandshakeTraffic:   clientHS,
		ServerHandshakeTraffic:   serverHS,
		MasterSecret:             masterSecret,
		ClientApplicationTraffic: clientApp,
		ServerApplicationTraffic: serverApp,
	}
}

// DirectionKeys is the AEAD key/IV pair derived from a traffic secret for
// one direction of the record layer, RFC 8446 §7.3.
type DirectionKeys struct {
	Key []byte
	IV  []byte
}

// DeriveDirectionKeys derives the 16-byte key and 12-byte IV for
// TLS_AES_128_GCM_SHA256 from a traffic secret.
func DeriveDirectionKeys(trafficSecret []byte) DirectionKeys {
	return DirectionKeys{
		Key: crypto.HKDFExpandLabel(trafficSecret, "key", nil, 16),
		IV:  crypto.HKDFExpandLabel(trafficSecret, "iv", nil, 12),
	}
}

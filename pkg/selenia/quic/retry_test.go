package quic

import "testing"

func TestComputeRetryIntegrityTagIsDeterministic(t *testing.T) {
	dcid := ConnectionID{1, 2, 3, 4, 5, 6, 7, 8}
	pseudo := []byte{0x01, 0x02, 0x03}

	tag1 := ComputeRetryIntegrityTag(dcid, pseudo)
	tag2 := ComputeRetryIntegrityTag(dcid, pseudo)
	if tag1 != tag2 {
		t.Fatal("ComputeRetryIntegrityTag must be deterministic for the same inputs")
	}

	other := ComputeRetryIntegrityTag(ConnectionID{9, 9, 9, 9}, pseudo)
	if tag1 == other {
		t.Fatal("different original destination connection IDs must produce different tags")
	}
}

func TestBuildRetryPacketRoundTripsThroughParsePacket(t *testing.T) {
	originalDest := ConnectionID{0xAA, 0xBB, 0xCC, 0xDD}
	clientSrc := ConnectionID{0x11, 0x22, 0x33, 0x44}
	newSrc := ConnectionID{0x55, 0x66, 0x77, 0x88}
	token := []byte("retry-token-bytes")

	raw := BuildRetryPacket(originalDest, clientSrc, newSrc, token)

	pkt, n, err := ParsePacket(raw)
	if err != nil {
		t.Fatalf("ParsePacket failed on a freshly built Retry packet: %v", err)
	}
	if n != len(raw) {
		t.Fatalf("expected to consume %d bytes, consumed %d", len(raw), n)
	}
	if pkt.Header.Type != PacketTypeRetry {
		t.Fatalf("expected PacketTypeRetry, got %v", pkt.Header.Type)
	}
	if !pkt.Header.DestConnID.Equal(clientSrc) {
		t.Errorf("Retry packet DestConnID should echo the client's source connection ID")
	}
	if !pkt.Header.SrcConnID.Equal(newSrc) {
		t.Errorf("Retry packet SrcConnID should be the server's newly chosen connection ID")
	}
	if string(pkt.Header.RetryToken) != string(token) {
		t.Errorf("Retry packet token mismatch: got %q want %q", pkt.Header.RetryToken, token)
	}

	expectedTag := ComputeRetryIntegrityTag(originalDest, raw[:len(raw)-16])
	if pkt.Header.RetryIntegrity != expectedTag {
		t.Error("parsed integrity tag does not match a freshly recomputed one")
	}
}

func TestBuildVersionNegotiationPacketParsesBack(t *testing.T) {
	dest := ConnectionID{1, 2, 3}
	src := ConnectionID{4, 5, 6, 7}

	raw := BuildVersionNegotiationPacket(dest, src, []uint32{Version1, 0xabababab})

	pkt, _, err := ParsePacket(raw)
	if err != nil {
		t.Fatalf("ParsePacket failed on a built Version Negotiation packet: %v", err)
	}
	if pkt.Header.Type != PacketTypeVersionNeg {
		t.Fatalf("expected PacketTypeVersionNeg, got %v", pkt.Header.Type)
	}
	if !pkt.Header.DestConnID.Equal(dest) || !pkt.Header.SrcConnID.Equal(src) {
		t.Error("connection IDs did not round-trip")
	}
	if len(pkt.Payload) != 8 {
		t.Fatalf("expected 8 bytes of version list, got %d", len(pkt.Payload))
	}
}

func TestIsSupportedVersion(t *testing.T) {
	if !IsSupportedVersion(Version1) {
		t.Error("Version1 must be supported")
	}
	if IsSupportedVersion(0x00000000) {
		t.Error("version 0 (reserved for Version Negotiation) must not be reported as supported")
	}
	if IsSupportedVersion(0xdeadbeef) {
		t.Error("an unknown version must not be reported as supported")
	}
}

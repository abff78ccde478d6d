// quicdispatch.go implements the QUIC front door this engine offers per
// spec.md §2's "HTTP/3 over UDP" data-flow branch: enough of RFC 9000/9001
// to tell a client it spoke the wrong version, or to make it prove it owns
// its claimed source address before the engine commits any per-connection
// state to it. It does not carry a connection past that point -- no
// Initial-packet decryption, no TLS 1.3 exchange inside QUIC, no stream
// layer -- the same "one flight, then nothing more" scoping serveTLSHandshake
// and serveHTTP2Preface already apply to their own protocols in
// connection.go and http2exchange.go.
package engine

import (
	"context"
	"crypto/rand"

	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/listener"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/quic"
)

// retryTokenLen is arbitrary; this server does not decode the token back
// into the address/time it was issued for (see handleQUICPacket), so its
// only job here is to be present and to vary per Retry.
const retryTokenLen = 16

func (e *Engine) quicDispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case pkt := <-e.quicPackets:
			e.handleQUICPacket(pkt)
		}
	}
}

// handleQUICPacket answers exactly two situations: a client proposing a
// version this server does not speak gets a Version Negotiation packet
// listing quic.Version1; a client sending a version-1 Initial packet with
// no retry token yet gets a Retry packet. Everything else -- a second
// Initial carrying a token, 0-RTT, Handshake, short-header 1-RTT -- is
// outside this front door's scope and is dropped; the full handshake and
// stream multiplexing that would consume those packets is an explicitly
// deferred extension point, not a silently missing one.
func (e *Engine) handleQUICPacket(pkt listener.UDPAccepted) {
	p, _, err := quic.ParsePacket(pkt.Data)
	if err == quic.ErrUnsupportedVersion {
		// ParsePacket stops at the version field, so the connection IDs are
		// read here: flags (1), version (4), then two length-prefixed IDs.
		d := pkt.Data
		if len(d) < 6 || int(d[5]) > quic.MaxConnectionIDLen || len(d) < 7+int(d[5]) {
			return
		}
		dcid := d[6 : 6+int(d[5])]
		scidLen := int(d[6+len(dcid)])
		if scidLen > quic.MaxConnectionIDLen || len(d) < 7+len(dcid)+scidLen {
			return
		}
		scid := d[7+len(dcid) : 7+len(dcid)+scidLen]
		pkt.Listener.WriteTo(quic.BuildVersionNegotiationPacket(quic.ConnectionID(scid), quic.ConnectionID(dcid), []uint32{quic.Version1}), pkt.Addr)
		return
	}
	if err != nil {
		return
	}
	if !p.Header.IsLongHeader || p.Header.Type != quic.PacketTypeInitial {
		return
	}

	if !quic.IsSupportedVersion(p.Header.Version) {
		resp := quic.BuildVersionNegotiationPacket(p.Header.SrcConnID, p.Header.DestConnID, []uint32{quic.Version1})
		pkt.Listener.WriteTo(resp, pkt.Addr)
		return
	}

	if len(p.Header.Token) == 0 {
		newSrcConnID, err := quic.GenerateConnectionID(8)
		if err != nil {
			return
		}
		token := make([]byte, retryTokenLen)
		if _, err := rand.Read(token); err != nil {
			return
		}
		retry := quic.BuildRetryPacket(p.Header.DestConnID, p.Header.SrcConnID, newSrcConnID, token)
		pkt.Listener.WriteTo(retry, pkt.Addr)
		return
	}
}

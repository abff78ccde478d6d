package engine

import (
	"bufio"
	"bytes"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/http1"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/http2"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/httperr"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/tlsstate"
)

// connection is spec.md §3's Connection: one owned stream socket, a
// growable receive buffer (here, the bufio.Reader's internal buffer plus
// whatever the HTTP/1 parser accumulates), the active parser state, the
// peer address, and the last-activity timestamp.
type connection struct {
	conn net.Conn
	br   *bufio.Reader
	cfg  *Config
	peer string

	lastActivityNano atomic.Int64
	requests         int
	closed           atomic.Bool
}

func newConnection(conn net.Conn, cfg *Config) *connection {
	c := &connection{
		conn: conn,
		br:   http1.GetBufioReader(conn),
		cfg:  cfg,
		peer: conn.RemoteAddr().String(),
	}
	c.touch()
	return c
}

func (c *connection) touch() {
	c.lastActivityNano.Store(time.Now().UnixNano())
}

func (c *connection) lastActivity() time.Time {
	return time.Unix(0, c.lastActivityNano.Load())
}

// Close deregisters the connection by closing its socket, per spec.md §7
// "parse and TLS decode failures are fatal to the connection and trigger
// deregistration."
func (c *connection) Close() {
	if c.closed.CompareAndSwap(false, true) {
		c.conn.Close()
	}
}

// peerIP strips the port from peer, for the rate limiter and WAF, which key
// on IP alone.
func (c *connection) peerIP() string {
	host, _, err := net.SplitHostPort(c.peer)
	if err != nil {
		return c.peer
	}
	return host
}

// serve runs the connection lifecycle: first-byte protocol demultiplex,
// then the selected protocol's loop. It returns when the connection should
// close (peer close, fatal parse error, idle timeout, or policy rejection).
// serve itself does not consult the rate limiter; only the HTTP/1 loop
// does, once per parsed request, so the TLS and HTTP/2 branches are not
// rate limited.
func (c *connection) serve() {
	c.setDeadline()

	first, err := c.br.Peek(1)
	if err != nil || len(first) == 0 {
		return
	}

	switch {
	case first[0] == 0x16:
		c.serveTLSHandshake()
	case first[0] == http2.ClientPreface[0] && c.looksLikeHTTP2Preface():
		c.serveHTTP2Preface()
	default:
		c.serveHTTP1()
	}
}

// looksLikeHTTP2Preface disambiguates the HTTP/2 connection preface
// ("PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n") from HTTP/1.1 methods that also start
// with 'P' (POST, PUT, PATCH). All three diverge from the preface's second
// byte ('R'), so this only ever needs to wait for a second byte beyond the
// one serve already peeked — it never blocks waiting for the full 24-byte
// preface unless the connection really is about to send one.
func (c *connection) looksLikeHTTP2Preface() bool {
	b, err := c.br.Peek(2)
	if err != nil || len(b) < 2 || b[1] != http2.ClientPreface[1] {
		return false
	}
	full, err := c.br.Peek(len(http2.ClientPreface))
	if err != nil {
		return false
	}
	return bytes.Equal(full, http2.ClientPreface)
}

func (c *connection) setDeadline() {
	timeout, _ := c.cfg.KeepAlive.Current()
	if timeout <= 0 {
		timeout = c.cfg.Idle.Current()
	}
	if timeout > 0 {
		c.conn.SetDeadline(time.Now().Add(timeout))
	}
}

// serveTLSHandshake implements spec.md §4.K's simplified TLS branch: once
// the buffered bytes cover a full TLS record, the handshake payload is fed
// to the tlsstate layer, a ServerHello response is written, and the
// connection closes (this engine does not carry a TLS record past the
// first handshake flight — see SPEC_FULL.md/DESIGN.md's Open Question on
// shared_secret derivation). Cipher-suite selection runs first; a presented
// session ID that then resolves against the worker's ticket store is
// treated as a resumption and its stored cipher suite replaces the selected
// one. A fresh ticket is always issued and echoed back as the
// ServerHello session ID for the client to present next time, per spec.md
// §3/§4.B's session-ticket store.
func (c *connection) serveTLSHandshake() {
	header, err := c.br.Peek(5)
	if err != nil {
		return
	}
	length := int(header[3])<<8 | int(header[4])
	total := 5 + length
	raw, err := c.br.Peek(total)
	if err != nil {
		return
	}
	record, consumed, err := tlsstate.ReadRecord(raw)
	if err != nil || consumed != total {
		return
	}
	c.br.Discard(consumed)
	c.touch()

	if record.Type != tlsstate.ContentTypeHandshake {
		return
	}
	if len(record.Payload) < 4 || tlsstate.HandshakeType(record.Payload[0]) != tlsstate.HandshakeTypeClientHello {
		return
	}
	hello, err := tlsstate.ParseClientHello(record.Payload[4:])
	if err != nil {
		c.cfg.Log.Warnf("tls: malformed ClientHello from %s: %v", c.peer, err)
		return
	}
	suite, err := tlsstate.SelectCipherSuite(hello.CipherSuites)
	if err != nil {
		c.cfg.Log.Infof("tls: no supported cipher suite from %s", c.peer)
		return
	}

	if resumed, ok, rerr := c.cfg.Tickets.Resume(hello.SessionID, time.Now()); rerr == nil && ok {
		suite = resumed.CipherSuite
		c.cfg.Log.Infof("tls: resumed session for %s", c.peer)
	}

	newTicket, terr := c.cfg.Tickets.Issue(tlsstate.SessionState{
		CipherSuite: suite,
		ServerName:  hello.ServerName,
	}, time.Now())
	sessionID := hello.SessionID
	if terr == nil {
		sessionID = newTicket[:]
	}

	sh := tlsstate.ServerHello{Random: hello.Random, SessionID: sessionID, CipherSuite: suite}
	body := tlsstate.BuildServerHello(sh)
	out, err := tlsstate.AppendRecord(nil, tlsstate.Record{Type: tlsstate.ContentTypeHandshake, Payload: body})
	if err != nil {
		return
	}
	c.conn.Write(out)
}

// serveHTTP2Preface is defined in http2exchange.go; it now runs a real
// single-stream HEADERS/DATA exchange instead of an unconditional
// SETTINGS-ack-then-GOAWAY stub — see that file's doc comment.

func appendFrame(dst []byte, fh http2.FrameHeader, payload []byte) []byte {
	fh.Length = uint32(len(payload))
	hdr := make([]byte, http2.FrameHeaderLen)
	http2.WriteFrameHeader(hdr, fh)
	dst = append(dst, hdr...)
	dst = append(dst, payload...)
	return dst
}

// serveHTTP1 runs spec.md §4.K's HTTP/1 loop: parse, RBAC -> WAF ->
// dispatch, decide keep-alive, repeat until the parser needs more data or
// the connection should close.
func (c *connection) serveHTTP1() {
	parser := http1.GetParser()
	defer http1.PutParser(parser)
	for {
		c.setDeadline()
		req, err := parser.Parse(c.br)
		if err != nil {
			c.replyParseFailure(err)
			return
		}
		c.touch()
		c.requests++
		if c.requests > 1 {
			c.cfg.KeepAlive.RecordReuseRequest()
		}

		rw := http1.GetResponseWriter(c.conn)
		start := time.Now()
		if !c.cfg.RateLimiter.Allow(c.peerIP()) {
			c.writeStatus(rw, httperr.RateLimited())
			rw.Flush()
			http1.PutResponseWriter(rw)
			http1.PutRequest(req)
			return
		}
		c.dispatch(req, rw)
		rw.Flush()
		d := time.Since(start)
		c.cfg.Log.LogRequest(req.Method(), req.Path(), rw.Status(), rw.BytesWritten(), d)
		c.cfg.Metrics.IncRequests()
		c.cfg.Metrics.ObserveLatencyMs(float64(d.Microseconds()) / 1000.0)

		closeAfter := c.shouldCloseAfter(req, rw)
		http1.PutResponseWriter(rw)
		http1.PutRequest(req)
		if closeAfter {
			return
		}
	}
}

// replyParseFailure answers a malformed or truncated request with the
// httperr.Status the http1 parser produced, when the failure happened on a
// boundary that still lets the connection write a response (not a raw EOF
// or a connection already torn down by the peer); the connection then
// closes regardless, since the parser's buffered state is not recoverable
// mid-stream.
func (c *connection) replyParseFailure(err error) {
	st, ok := err.(*httperr.Status)
	if !ok || st.Code == 0 {
		return
	}
	rw := http1.GetResponseWriter(c.conn)
	c.writeStatus(rw, st)
	rw.Flush()
	http1.PutResponseWriter(rw)
}

// shouldCloseAfter implements spec.md §4.K's reuse decision: close iff
// HTTP/1.0 without "Connection: keep-alive", or any "Connection: close".
func (c *connection) shouldCloseAfter(req *http1.Request, rw *http1.ResponseWriter) bool {
	connHeader := string(req.GetHeader([]byte("Connection")))
	if equalFoldASCII(connHeader, "close") {
		return true
	}
	if req.ProtoMajor == 1 && req.ProtoMinor == 0 && !equalFoldASCII(connHeader, "keep-alive") {
		return true
	}
	respConn := string(rw.Header().Get([]byte("Connection")))
	return equalFoldASCII(respConn, "close")
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// writeStatus renders an httperr.Status as a plain-text response body,
// localized via pkg/selenia/locale when cfg.Locale names a registered
// table, per SPEC_FULL.md's supplemented locale feature.
func (c *connection) writeStatus(rw *http1.ResponseWriter, st *httperr.Status) {
	c.cfg.Log.LogStatus("", "", st, 0)
	c.cfg.Metrics.IncErrors()
	body := []byte(localizedBody(c.cfg.Locale, st.Code))
	if st.Code == 429 {
		body = nil
	}
	rw.Header().Set([]byte("Content-Length"), []byte(strconv.Itoa(len(body))))
	rw.Header().Set([]byte("Content-Type"), []byte("text/plain; charset=utf-8"))
	rw.Header().Set([]byte("Connection"), []byte("keep-alive"))
	rw.WriteHeader(st.Code)
	if st.Code != 429 && len(body) > 0 {
		rw.Write(body)
	}
}

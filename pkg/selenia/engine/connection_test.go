package engine

import (
	"bufio"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/hpack"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/http2"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/tlsstate"
)

// clientServerPipe wires a net.Pipe pair, runs cfg's connection loop on one
// end in a background goroutine, and returns the other end for a test to
// act as the client on.
func clientServerPipe(cfg *Config) (client net.Conn, done <-chan struct{}) {
	serverSide, clientSide := net.Pipe()
	d := make(chan struct{})
	c := newConnection(serverSide, cfg)
	go func() {
		c.serve()
		serverSide.Close()
		close(d)
	}()
	return clientSide, d
}

func TestServeHTTP1StaticFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>hi</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig(dir)

	client, done := clientServerPipe(cfg)
	defer client.Close()

	if _, err := client.Write([]byte("GET /index.html HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")); err != nil {
		t.Fatal(err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	br := bufio.NewReader(client)
	statusLine, err := br.ReadString('\n')
	if err != nil {
		t.Fatalf("reading status line: %v", err)
	}
	if !strings.HasPrefix(statusLine, "HTTP/1.1 200") {
		t.Fatalf("expected 200 OK, got %q", statusLine)
	}
	// net.Pipe is synchronous: keep reading so the server's remaining
	// header and body writes can complete.
	go io.Copy(io.Discard, br)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not close after Connection: close")
	}
}

func TestServeHTTP1NotFound(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)

	client, _ := clientServerPipe(cfg)
	defer client.Close()

	if _, err := client.Write([]byte("GET /missing.html HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")); err != nil {
		t.Fatal(err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	br := bufio.NewReader(client)
	statusLine, err := br.ReadString('\n')
	if err != nil {
		t.Fatalf("reading status line: %v", err)
	}
	if !strings.HasPrefix(statusLine, "HTTP/1.1 404") {
		t.Fatalf("expected 404, got %q", statusLine)
	}
}

// writeHTTP2Frame frames payload as an HTTP/2 frame and writes it to w.
func writeHTTP2Frame(w net.Conn, typ http2.FrameType, flags http2.Flags, streamID uint32, payload []byte) error {
	fh := http2.FrameHeader{Type: typ, Flags: flags, StreamID: streamID, Length: uint32(len(payload))}
	hdr := make([]byte, http2.FrameHeaderLen)
	http2.WriteFrameHeader(hdr, fh)
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	// A zero-length Write on a net.Pipe blocks until the peer reads, so an
	// empty payload is not written at all.
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

// readHTTP2Frame reads one full frame (header + payload) from r.
func readHTTP2Frame(r *bufio.Reader) (http2.FrameHeader, []byte, error) {
	var raw [http2.FrameHeaderLen]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return http2.FrameHeader{}, nil, err
	}
	fh := http2.ParseFrameHeader(raw)
	payload := make([]byte, fh.Length)
	if fh.Length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return fh, nil, err
		}
	}
	return fh, payload, nil
}

func TestServeHTTP2PrefaceAnswersHeadersWithResponseThenGoAway(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>hi</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig(dir)

	client, done := clientServerPipe(cfg)
	defer client.Close()

	if _, err := client.Write(http2.ClientPreface); err != nil {
		t.Fatal(err)
	}

	enc := hpack.NewEncoder(4096)
	headerBlock := enc.Encode([]hpack.HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: ":path", Value: "/index.html"},
	})
	if err := writeHTTP2Frame(client, http2.FrameHeaders, http2.FlagHeadersEndHeaders|http2.FlagHeadersEndStream, 1, headerBlock); err != nil {
		t.Fatal(err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	br := bufio.NewReader(client)

	fh, payload, err := readHTTP2Frame(br)
	if err != nil {
		t.Fatalf("reading HEADERS response: %v", err)
	}
	if fh.Type != http2.FrameHeaders {
		t.Fatalf("expected a HEADERS frame, got type %v", fh.Type)
	}
	dec := hpack.NewDecoder(4096, 16384)
	fields, err := dec.Decode(payload)
	if err != nil {
		t.Fatalf("decoding response HEADERS: %v", err)
	}
	var status string
	for _, f := range fields {
		if f.Name == ":status" {
			status = f.Value
		}
	}
	if status != "200" {
		t.Fatalf("expected :status 200, got %q", status)
	}

	sawData := false
	sawGoAway := false
	for !sawGoAway {
		fh, _, err := readHTTP2Frame(br)
		if err != nil {
			t.Fatalf("reading follow-up frame: %v", err)
		}
		switch fh.Type {
		case http2.FrameData:
			sawData = true
		case http2.FrameGoAway:
			sawGoAway = true
		}
	}
	if !sawData {
		t.Error("expected at least one DATA frame carrying the response body")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not close after GOAWAY")
	}
}

func TestServeHTTP2PrefaceReassemblesContinuationFrame(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>hi</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig(dir)

	client, done := clientServerPipe(cfg)
	defer client.Close()

	if _, err := client.Write(http2.ClientPreface); err != nil {
		t.Fatal(err)
	}

	enc := hpack.NewEncoder(4096)
	headerBlock := enc.Encode([]hpack.HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: ":path", Value: "/index.html"},
	})
	if len(headerBlock) < 2 {
		t.Fatalf("header block too short to split: %d bytes", len(headerBlock))
	}
	split := len(headerBlock) / 2

	// Send the HEADERS frame without END_HEADERS, then the remainder as a
	// CONTINUATION frame that does set it.
	if err := writeHTTP2Frame(client, http2.FrameHeaders, http2.FlagHeadersEndStream, 1, headerBlock[:split]); err != nil {
		t.Fatal(err)
	}
	if err := writeHTTP2Frame(client, http2.FrameContinuation, http2.FlagContinuationEndHeaders, 1, headerBlock[split:]); err != nil {
		t.Fatal(err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	br := bufio.NewReader(client)

	fh, payload, err := readHTTP2Frame(br)
	if err != nil {
		t.Fatalf("reading HEADERS response: %v", err)
	}
	if fh.Type != http2.FrameHeaders {
		t.Fatalf("expected a HEADERS frame, got type %v", fh.Type)
	}
	dec := hpack.NewDecoder(4096, 16384)
	fields, err := dec.Decode(payload)
	if err != nil {
		t.Fatalf("decoding response HEADERS: %v", err)
	}
	var status string
	for _, f := range fields {
		if f.Name == ":status" {
			status = f.Value
		}
	}
	if status != "200" {
		t.Fatalf("expected :status 200 after reassembling a CONTINUATION-split header block, got %q", status)
	}
	// Keep reading so the server's GOAWAY write on the synchronous pipe
	// can complete.
	go io.Copy(io.Discard, br)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not close after GOAWAY")
	}
}

func TestServeHTTP2PrefaceClosesWhenClientNeverSendsHeaders(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)

	client, done := clientServerPipe(cfg)
	defer client.Close()

	if _, err := client.Write(http2.ClientPreface); err != nil {
		t.Fatal(err)
	}
	settingsPayload := []byte{}
	if err := writeHTTP2Frame(client, http2.FrameSettings, 0, 0, settingsPayload); err != nil {
		t.Fatal(err)
	}
	client.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not close after a client that never sends HEADERS")
	}
}

func TestShouldCloseAfterHTTP10WithoutKeepAlive(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	client, done := clientServerPipe(cfg)
	defer client.Close()

	if _, err := client.Write([]byte("GET / HTTP/1.0\r\n\r\n")); err != nil {
		t.Fatal(err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	br := bufio.NewReader(client)
	if _, err := br.ReadString('\n'); err != nil {
		t.Fatalf("reading status line: %v", err)
	}
	// Keep reading so the server's remaining writes on the synchronous pipe
	// can complete.
	go io.Copy(io.Discard, br)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected HTTP/1.0 connection without keep-alive to close")
	}
}

func TestEqualFoldASCII(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"close", "Close", true},
		{"Keep-Alive", "keep-alive", true},
		{"close", "keep-alive", false},
		{"", "", true},
	}
	for _, c := range cases {
		if got := equalFoldASCII(c.a, c.b); got != c.want {
			t.Errorf("equalFoldASCII(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

// buildClientHelloRecord assembles a minimal TLS record carrying a
// ClientHello handshake message offering TLSAES128GCMSHA256, for feeding
// into serveTLSHandshake via the raw connection pipe.
func buildClientHelloRecord(sessionID []byte) []byte {
	body := []byte{0x03, 0x03} // legacy_version
	body = append(body, make([]byte, 32)...) // random
	body = append(body, byte(len(sessionID)))
	body = append(body, sessionID...)
	suites := []byte{byte(tlsstate.TLSAES128GCMSHA256 >> 8), byte(tlsstate.TLSAES128GCMSHA256)}
	body = append(body, byte(len(suites)>>8), byte(len(suites)))
	body = append(body, suites...)
	body = append(body, 0x01, 0x00) // compression_methods: length 1, null
	body = append(body, 0x00, 0x00) // extensions: length 0

	handshake := []byte{byte(tlsstate.HandshakeTypeClientHello), byte(len(body) >> 16), byte(len(body) >> 8), byte(len(body))}
	handshake = append(handshake, body...)

	rec, err := tlsstate.AppendRecord(nil, tlsstate.Record{Type: tlsstate.ContentTypeHandshake, Payload: handshake})
	if err != nil {
		panic(err)
	}
	return rec
}

func TestServeTLSHandshakeIssuesSessionTicket(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)

	client, done := clientServerPipe(cfg)
	defer client.Close()

	if _, err := client.Write(buildClientHelloRecord(nil)); err != nil {
		t.Fatal(err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("reading ServerHello record: %v", err)
	}
	rec, _, err := tlsstate.ReadRecord(buf[:n])
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if rec.Type != tlsstate.ContentTypeHandshake {
		t.Fatalf("expected handshake record, got type %d", rec.Type)
	}
	if len(rec.Payload) < 4 || tlsstate.HandshakeType(rec.Payload[0]) != tlsstate.HandshakeTypeServerHello {
		t.Fatalf("expected ServerHello handshake message, got %v", rec.Payload[:min(4, len(rec.Payload))])
	}

	if cfg.Tickets.Len() != 1 {
		t.Fatalf("expected one issued session ticket, got %d", cfg.Tickets.Len())
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not close after handshake flight")
	}
}

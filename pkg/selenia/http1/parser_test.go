package http1

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseSimpleGETRequest(t *testing.T) {
	raw := "GET /hello?x=1 HTTP/1.1\r\nHost: example.com\r\nUser-Agent: test\r\n\r\n"
	p := NewParser()
	req, err := p.Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	defer PutRequest(req)

	if req.Method() != "GET" {
		t.Errorf("Method() = %q, want GET", req.Method())
	}
	if req.Path() != "/hello" {
		t.Errorf("Path() = %q, want /hello", req.Path())
	}
	if got := string(req.GetHeader([]byte("Host"))); got != "example.com" {
		t.Errorf("Host header = %q, want example.com", got)
	}
}

// TestParseConsumesExactlyOneRequestFromPipelinedStream is the parser's core
// invariant: given two requests back to back on the same stream, one Parse
// call must consume exactly the first request's bytes (request line +
// headers + body, if any) and leave the second request's bytes untouched
// for the next Parse call, with no bytes dropped or duplicated.
func TestParseConsumesExactlyOneRequestFromPipelinedStream(t *testing.T) {
	first := "GET /first HTTP/1.1\r\nHost: a.example\r\n\r\n"
	second := "GET /second HTTP/1.1\r\nHost: b.example\r\n\r\n"
	stream := bytes.NewReader([]byte(first + second))

	p := NewParser()

	req1, err := p.Parse(stream)
	if err != nil {
		t.Fatalf("first Parse failed: %v", err)
	}
	if req1.Path() != "/first" {
		t.Fatalf("first request Path() = %q, want /first", req1.Path())
	}
	PutRequest(req1)

	req2, err := p.Parse(stream)
	if err != nil {
		t.Fatalf("second Parse failed: %v", err)
	}
	if req2.Path() != "/second" {
		t.Fatalf("second request Path() = %q, want /second", req2.Path())
	}
	if got := string(req2.GetHeader([]byte("Host"))); got != "b.example" {
		t.Errorf("second request Host header = %q, want b.example", got)
	}
	PutRequest(req2)
}

func TestParseRejectsRequestWithBothContentLengthAndTransferEncoding(t *testing.T) {
	raw := "POST /submit HTTP/1.1\r\nHost: a.example\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\nhello"
	p := NewParser()
	_, err := p.Parse(strings.NewReader(raw))
	if err == nil {
		t.Fatal("Parse should reject a request carrying both Content-Length and Transfer-Encoding")
	}
}

func TestParseRejectsTruncatedRequest(t *testing.T) {
	raw := "GET /partial HTTP/1.1\r\nHost: a.example\r\n"
	p := NewParser()
	_, err := p.Parse(strings.NewReader(raw))
	if err == nil {
		t.Fatal("Parse should fail on a header block that never reaches CRLFCRLF")
	}
}

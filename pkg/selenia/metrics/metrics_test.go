package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCountersAndRender(t *testing.T) {
	r := newRegistry()
	r.IncRequests()
	r.AddBytes(13)
	r.IncErrors()
	r.ObserveLatencyMs(42)

	out, err := r.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"sws_requests_total", "sws_bytes_total", "sws_errors_total", "sws_request_duration_ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected render output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestTraceparentRoundTrip(t *testing.T) {
	tc := GenerateTraceparent()
	header := tc.Header()
	parsed, ok := ParseTraceparent(header)
	if !ok {
		t.Fatalf("failed to parse generated header %q", header)
	}
	if parsed != tc {
		t.Fatalf("round-trip mismatch: %+v != %+v", parsed, tc)
	}
}

func TestParseTraceparentRejectsBadShape(t *testing.T) {
	cases := []string{
		"",
		"01-0000000000000000000000000000000-0000000000000000-01",
		"00-tooshort-0000000000000000-01",
		"00-00000000000000000000000000000000-0000000000000000-01-extra",
	}
	for _, c := range cases {
		if _, ok := ParseTraceparent(c); ok {
			t.Errorf("expected %q to fail to parse", c)
		}
	}
}

func TestOtelSpanRecorder(t *testing.T) {
	r := NewSpanRecorder(2)
	s1 := r.Start("a")
	s1.SetAttribute("k", "v")
	s1.End()
	s2 := r.Start("b")
	s2.End()
	s3 := r.Start("c")
	s3.End()

	spans := r.Spans()
	if len(spans) != 2 {
		t.Fatalf("expected eviction to cap at 2, got %d", len(spans))
	}
	if spans[0].Name != "b" || spans[1].Name != "c" {
		t.Fatalf("expected FIFO eviction of oldest span, got %+v", spans)
	}
}

func TestOCSPCacheLoadAndExpiry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "staple.der")
	if err := os.WriteFile(path, []byte{0x30, 0x03, 0x02, 0x01, 0x00}, 0o600); err != nil {
		t.Fatal(err)
	}
	c := &OCSPCache{stop: make(chan struct{})}
	if err := c.Load(path, 50*time.Millisecond); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := c.Get(); !ok {
		t.Fatal("expected fresh staple to be valid")
	}
	time.Sleep(100 * time.Millisecond)
	if _, ok := c.Get(); ok {
		t.Fatal("expected expired staple to be invalid")
	}
}

func TestOCSPCacheRetainsOnFailedRefresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "staple.der")
	if err := os.WriteFile(path, []byte{0x01}, 0o600); err != nil {
		t.Fatal(err)
	}
	c := &OCSPCache{stop: make(chan struct{})}
	if err := c.Load(path, time.Hour); err != nil {
		t.Fatal(err)
	}
	os.Remove(path)
	if err := c.Load(path, time.Hour); err == nil {
		t.Fatal("expected reload of missing file to fail")
	}
	if _, ok := c.Get(); !ok {
		t.Fatal("expected previous staple to be retained after failed reload")
	}
}

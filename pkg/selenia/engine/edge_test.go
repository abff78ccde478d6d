package engine

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// buildSumWasmModule hand-assembles a minimal WASM binary exporting a
// _start function that computes a+b, for exercising the edge-function
// dispatch path end to end without a real WASM toolchain.
func buildSumWasmModule(a, b uint32) []byte {
	encode := func(v uint32) []byte {
		var out []byte
		for {
			bb := byte(v & 0x7f)
			v >>= 7
			if v != 0 {
				out = append(out, bb|0x80)
			} else {
				out = append(out, bb)
				break
			}
		}
		return out
	}

	var body []byte
	body = append(body, 0x41)
	body = append(body, encode(a)...)
	body = append(body, 0x41)
	body = append(body, encode(b)...)
	body = append(body, 0x6a, 0x0b)

	funcBody := append([]byte{0x00}, body...)
	codeSection := append(encode(1), encode(uint32(len(funcBody)))...)
	codeSection = append(codeSection, funcBody...)

	exportSection := append(encode(1), encode(6)...)
	exportSection = append(exportSection, []byte("_start")...)
	exportSection = append(exportSection, 0x00)
	exportSection = append(exportSection, encode(0)...)

	var buf []byte
	buf = append(buf, 0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00)
	buf = append(buf, 0x07)
	buf = append(buf, encode(uint32(len(exportSection)))...)
	buf = append(buf, exportSection...)
	buf = append(buf, 0x0a)
	buf = append(buf, encode(uint32(len(codeSection)))...)
	buf = append(buf, codeSection...)
	return buf
}

func TestServeEdgeFunctionReturnsComputedResult(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "edge"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "edge", "sum.wasm"), buildSumWasmModule(19, 23), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig(dir)

	client, _ := clientServerPipe(cfg)
	defer client.Close()

	if _, err := client.Write([]byte("GET /edge/sum HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")); err != nil {
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

	var bodyLine string
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("reading response: %v", err)
		}
		if strings.TrimRight(line, "\r\n") == "" {
			break
		}
	}
	buf := make([]byte, 16)
	n, _ := br.Read(buf)
	bodyLine = string(buf[:n])
	if bodyLine != "42" {
		t.Fatalf("edge function body = %q, want 42", bodyLine)
	}
}

func TestServeEdgeFunctionUnknownNameIsNotFound(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)

	client, _ := clientServerPipe(cfg)
	defer client.Close()

	if _, err := client.Write([]byte("GET /edge/missing HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")); err != nil {
		t.Fatal(err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	br := bufio.NewReader(client)
	statusLine, err := br.ReadString('\n')
	if err != nil {
		t.Fatalf("reading status line: %v", err)
	}
	if !strings.HasPrefix(statusLine, "HTTP/1.1 404") {
		t.Fatalf("expected 404 for an unregistered edge function, got %q", statusLine)
	}
}

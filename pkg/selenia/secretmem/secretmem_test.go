package secretmem

import "testing"

func TestNewFillsAndZeroes(t *testing.T) {
	buf, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer buf.Close()

	secret := []byte("0123456789abcdef")
	buf.Fill(secret)
	if string(buf.Bytes()) != string(secret) {
		t.Fatalf("Bytes() = %q, want %q", buf.Bytes(), secret)
	}

	buf.Zero()
	for i, b := range buf.Bytes() {
		if b != 0 {
			t.Fatalf("byte %d = %d after Zero, want 0", i, b)
		}
	}
}

func TestCloseReleasesFilledBuffer(t *testing.T) {
	buf, err := New(8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	buf.Fill([]byte("deadbeef"))
	if err := buf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

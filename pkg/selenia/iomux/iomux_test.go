package iomux

import (
	"os"
	"testing"
	"time"
)

func TestRegisterWaitDeregister(t *testing.T) {
	mux, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer mux.Close()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	tok, err := mux.Register(int(r.Fd()), Readable)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if tok == 0 {
		t.Fatal("expected non-zero token")
	}

	if _, err := w.Write([]byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	events := make([]Event, 4)
	var n int
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err = mux.Wait(events, 200)
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if n > 0 {
			break
		}
	}
	if n == 0 {
		t.Fatal("expected at least one readiness event")
	}
	found := false
	for i := 0; i < n; i++ {
		if events[i].Token == tok && events[i].Readable {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected readable event for registered token, got %+v", events[:n])
	}

	if err := mux.Deregister(tok); err != nil {
		t.Fatalf("Deregister: %v", err)
	}
	if err := mux.Deregister(tok); err == nil {
		t.Fatal("expected error deregistering an already-removed token")
	}
}

func TestModifyUnknownToken(t *testing.T) {
	mux, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer mux.Close()
	if err := mux.Modify(Token(999999), ReadWrite); err == nil {
		t.Fatal("expected error for unknown token")
	}
}

package tlsstate

import (
	"testing"
	"time"
)

func TestTicketStoreIssueAndResume(t *testing.T) {
	s := NewTicketStore(time.Hour)
	now := time.Now()

	id, err := s.Issue(SessionState{CipherSuite: TLSAES128GCMSHA256, ServerName: "example.com"}, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	got, ok, err := s.Resume(id[:], now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if !ok {
		t.Fatal("expected resumption hit")
	}
	if got.ServerName != "example.com" || got.CipherSuite != TLSAES128GCMSHA256 {
		t.Fatalf("unexpected resumed state: %+v", got)
	}
}

func TestTicketStoreExpiry(t *testing.T) {
	s := NewTicketStore(time.Minute)
	now := time.Now()

	id, err := s.Issue(SessionState{CipherSuite: TLSAES128GCMSHA256}, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, ok, _ := s.Resume(id[:], now.Add(2*time.Minute)); ok {
		t.Fatal("expected ticket past expiry to miss")
	}
	if s.Len() != 0 {
		t.Fatalf("expected expired ticket to be evicted, got len=%d", s.Len())
	}
}

func TestTicketStoreUnknownTicketMisses(t *testing.T) {
	s := NewTicketStore(time.Hour)
	var bogus [32]byte
	if _, ok, err := s.Resume(bogus[:], time.Now()); ok || err != nil {
		t.Fatalf("expected miss with no error, got ok=%v err=%v", ok, err)
	}
}

func TestTicketStoreRejectsWrongLength(t *testing.T) {
	s := NewTicketStore(time.Hour)
	if _, _, err := s.Resume([]byte("too-short"), time.Now()); err != ErrTicketLength {
		t.Fatalf("expected ErrTicketLength, got %v", err)
	}
}

func TestTicketStoreCloneIsolatesState(t *testing.T) {
	s := NewTicketStore(time.Hour)
	now := time.Now()
	secret := []byte{1, 2, 3}

	id, err := s.Issue(SessionState{CipherSuite: TLSAES128GCMSHA256, ResumptionSecret: secret}, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	secret[0] = 0xff // mutate the caller's slice after issuing

	got, ok, err := s.Resume(id[:], now)
	if err != nil || !ok {
		t.Fatalf("Resume: ok=%v err=%v", ok, err)
	}
	if got.ResumptionSecret[0] != 1 {
		t.Fatalf("expected stored state to be isolated from caller mutation, got %v", got.ResumptionSecret)
	}
}

func TestTicketStoreEvict(t *testing.T) {
	s := NewTicketStore(time.Hour)
	now := time.Now()
	id, err := s.Issue(SessionState{CipherSuite: TLSAES128GCMSHA256}, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	s.Evict(id)
	if _, ok, _ := s.Resume(id[:], now); ok {
		t.Fatal("expected evicted ticket to miss")
	}
}

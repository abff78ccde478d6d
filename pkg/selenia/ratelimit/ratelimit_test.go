package ratelimit

import (
	"testing"
	"time"
)

func TestAllowConsumesTokens(t *testing.T) {
	l := New(3, 1)
	defer l.Close()
	now := time.Now()
	for i := 0; i < 3; i++ {
		if !l.AllowAt("1.2.3.4", now) {
			t.Fatalf("expected allow on request %d", i)
		}
	}
	if l.AllowAt("1.2.3.4", now) {
		t.Fatal("expected bucket to be exhausted")
	}
}

func TestRefillOverTime(t *testing.T) {
	l := New(2, 1)
	defer l.Close()
	now := time.Now()
	if !l.AllowAt("peer", now) || !l.AllowAt("peer", now) {
		t.Fatal("expected initial burst to be allowed")
	}
	if l.AllowAt("peer", now) {
		t.Fatal("expected exhaustion")
	}
	later := now.Add(2 * time.Second)
	if !l.AllowAt("peer", later) {
		t.Fatal("expected refill to allow another request")
	}
}

func TestCapacityCeiling(t *testing.T) {
	l := New(2, 100)
	defer l.Close()
	now := time.Now()
	l.AllowAt("peer", now)
	// Huge elapsed time should saturate at capacity, not overflow.
	far := now.Add(time.Hour)
	allowed := 0
	for i := 0; i < 5; i++ {
		if l.AllowAt("peer", far) {
			allowed++
		}
	}
	if allowed != 2 {
		t.Fatalf("expected exactly capacity(2) allowed after saturation refill, got %d", allowed)
	}
}

func TestIndependentPeers(t *testing.T) {
	l := New(1, 0)
	defer l.Close()
	now := time.Now()
	if !l.AllowAt("a", now) {
		t.Fatal("a should be allowed")
	}
	if !l.AllowAt("b", now) {
		t.Fatal("b should be allowed independently of a")
	}
	if l.AllowAt("a", now) {
		t.Fatal("a should now be exhausted")
	}
}

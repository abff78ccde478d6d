package plugin

import "testing"

func TestEvaluateEmptyRegistryAllows(t *testing.T) {
	reset()
	if !Evaluate("GET", "/", nil) {
		t.Fatal("expected allow with no filters registered")
	}
}

func TestRegisterAndBlock(t *testing.T) {
	reset()
	defer reset()
	RegisterLegacy("block-admin", func(method, path string, headers [][2]string) bool {
		return path != "/admin"
	})
	if Evaluate("GET", "/admin", nil) {
		t.Fatal("expected /admin to be blocked")
	}
	if !Evaluate("GET", "/home", nil) {
		t.Fatal("expected /home to be allowed")
	}
}

func TestAndCombination(t *testing.T) {
	reset()
	defer reset()
	Register(FilterFunc{FilterName: "a", Fn: func(string, string, [][2]string) bool { return true }})
	Register(FilterFunc{FilterName: "b", Fn: func(string, string, [][2]string) bool { return false }})
	if Evaluate("GET", "/x", nil) {
		t.Fatal("expected false when any filter blocks")
	}
}

func TestFiltersSnapshot(t *testing.T) {
	reset()
	defer reset()
	Register(FilterFunc{FilterName: "a", Fn: func(string, string, [][2]string) bool { return true }})
	if len(Filters()) != 1 {
		t.Fatalf("expected 1 filter, got %d", len(Filters()))
	}
}

package locale

import "testing"

func TestBuiltinFallback(t *testing.T) {
	if got := Translate("en", "http.not_found"); got != "404 Not Found" {
		t.Fatalf("got %q", got)
	}
	if got := Translate("ja", "http.not_found"); got != "404 見つかりません" {
		t.Fatalf("got %q", got)
	}
}

func TestUnknownLocaleFallsBackToEnglish(t *testing.T) {
	if got := Translate("fr", "http.not_found"); got != "404 Not Found" {
		t.Fatalf("got %q", got)
	}
}

func TestUnknownKeyReturnsKeyItself(t *testing.T) {
	if got := Translate("en", "no.such.key"); got != "no.such.key" {
		t.Fatalf("got %q", got)
	}
}

func TestRegisterOverridesTable(t *testing.T) {
	Register("xx", map[string]string{"greeting": "hi"})
	if got := Translate("xx", "greeting"); got != "hi" {
		t.Fatalf("got %q", got)
	}
}

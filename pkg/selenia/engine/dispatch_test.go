package engine

import "testing"

func TestAcceptsGzipPlain(t *testing.T) {
	if !acceptsGzip("gzip") {
		t.Fatal("expected bare gzip token to be accepted")
	}
}

func TestAcceptsGzipAmongMultiple(t *testing.T) {
	if !acceptsGzip("deflate, gzip;q=0.8, br") {
		t.Fatal("expected gzip to be found among multiple encodings")
	}
}

func TestAcceptsGzipZeroQValueRejected(t *testing.T) {
	if acceptsGzip("gzip;q=0") {
		t.Fatal("expected q=0 gzip to be rejected")
	}
}

func TestAcceptsGzipEmptyHeader(t *testing.T) {
	if acceptsGzip("") {
		t.Fatal("expected empty Accept-Encoding to reject gzip")
	}
}

func TestAcceptsGzipCaseInsensitive(t *testing.T) {
	if !acceptsGzip("GZIP") {
		t.Fatal("expected case-insensitive match")
	}
}

func TestLocalizedBodyKnownCode(t *testing.T) {
	body := localizedBody("en", 404)
	if body == "" {
		t.Fatal("expected non-empty body for 404")
	}
}

func TestLocalizedBodyUnknownCodeFallsBackToStatusLine(t *testing.T) {
	body := localizedBody("en", 599)
	if body != "599 Status" {
		t.Fatalf("expected fallback status line, got %q", body)
	}
}

func TestLocalizedBodyEmptyLocaleDefaultsToEnglish(t *testing.T) {
	withLocale := localizedBody("en", 403)
	withEmpty := localizedBody("", 403)
	if withLocale != withEmpty {
		t.Fatalf("expected empty locale to fall back to en, got %q vs %q", withEmpty, withLocale)
	}
}

func TestStatusLocaleKeyCoversTaxonomy(t *testing.T) {
	for _, code := range []int{400, 403, 404, 405, 429, 500, 504} {
		if _, ok := statusLocaleKey(code); !ok {
			t.Fatalf("expected a locale key for status %d", code)
		}
	}
}

package config

import (
	"os"
	"testing"
)

func TestParseYAML(t *testing.T) {
	os.Setenv("SWS_TEST_ROOT", "/srv/www")
	defer os.Unsetenv("SWS_TEST_ROOT")

	text := `
server:
  listen:
    - "0.0.0.0:8080"
    - "0.0.0.0:8443"
  root_dir: "${SWS_TEST_ROOT}"
  locale: "en"
  tls:
    cert: "./cert.pem"
    key: "./key.pem"
`
	cfg, err := ParseYAML(text)
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if len(cfg.Listen) != 2 || cfg.Listen[0] != "0.0.0.0:8080" || cfg.Listen[1] != "0.0.0.0:8443" {
		t.Fatalf("unexpected listen: %+v", cfg.Listen)
	}
	if cfg.RootDir != "/srv/www" {
		t.Fatalf("expected env expansion, got %q", cfg.RootDir)
	}
	if cfg.Locale != "en" {
		t.Fatalf("unexpected locale: %q", cfg.Locale)
	}
	if cfg.TLS == nil || cfg.TLS.Cert != "./cert.pem" || cfg.TLS.Key != "./key.pem" {
		t.Fatalf("unexpected tls: %+v", cfg.TLS)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseLegacy(t *testing.T) {
	text := "host=127.0.0.1\nport=9000\nroot_dir=./www\nlocale=ja\n"
	cfg, err := ParseLegacy(text)
	if err != nil {
		t.Fatalf("ParseLegacy: %v", err)
	}
	if len(cfg.Listen) != 1 || cfg.Listen[0] != "127.0.0.1:9000" {
		t.Fatalf("unexpected listen: %+v", cfg.Listen)
	}
	if cfg.RootDir != "./www" || cfg.Locale != "ja" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestParseLegacyRejectsUnknownKey(t *testing.T) {
	if _, err := ParseLegacy("bogus=1\n"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestParseLegacyRejectsBadPort(t *testing.T) {
	if _, err := ParseLegacy("host=127.0.0.1\nport=notanumber\n"); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidateRequiresFields(t *testing.T) {
	if err := (&Config{}).Validate(); err == nil {
		t.Fatal("expected error for empty config")
	}
}

func TestExpandEnvLeavesUnknownIntact(t *testing.T) {
	os.Unsetenv("SWS_DOES_NOT_EXIST")
	got := expandEnv("prefix-${SWS_DOES_NOT_EXIST}-suffix")
	if got != "prefix-${SWS_DOES_NOT_EXIST}-suffix" {
		t.Fatalf("unexpected expansion of unknown var: %q", got)
	}
}

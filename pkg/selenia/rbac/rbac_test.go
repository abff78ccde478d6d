package rbac

import (
	"encoding/base64"
	"testing"
)

func makeToken(t *testing.T, payloadJSON string) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(payloadJSON))
	sig := base64.RawURLEncoding.EncodeToString([]byte("unverified"))
	return header + "." + payload + "." + sig
}

func TestNoRuleAllows(t *testing.T) {
	p, err := Load("/admin : admin")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Allow("/public", "") {
		t.Fatal("expected unmatched path to be allowed")
	}
}

func TestMissingAuthHeaderDenied(t *testing.T) {
	p, _ := Load("/admin : admin")
	if p.Allow("/admin/x", "") {
		t.Fatal("expected denial without Authorization header")
	}
}

func TestRoleMatchAllows(t *testing.T) {
	p, _ := Load("/admin : admin")
	tok := makeToken(t, `{"roles":["admin","user"]}`)
	if !p.Allow("/admin/panel", "Bearer "+tok) {
		t.Fatal("expected admin role to be allowed")
	}
}

func TestRoleMismatchDenies(t *testing.T) {
	p, _ := Load("/admin : admin")
	tok := makeToken(t, `{"roles":["user"]}`)
	if p.Allow("/admin/panel", "Bearer "+tok) {
		t.Fatal("expected non-admin role to be denied")
	}
}

func TestListFormat(t *testing.T) {
	p, _ := Load("/billing : [admin,finance]")
	tok := makeToken(t, `{"roles":["finance"]}`)
	if !p.Allow("/billing/invoices", "Bearer "+tok) {
		t.Fatal("expected finance role to match list policy")
	}
}

func TestLongestPrefixWins(t *testing.T) {
	p, _ := Load("/admin : admin\n/admin/reports : reporter")
	tok := makeToken(t, `{"roles":["reporter"]}`)
	if !p.Allow("/admin/reports/q1", "Bearer "+tok) {
		t.Fatal("expected longest-prefix rule (reporter) to match")
	}
	tok2 := makeToken(t, `{"roles":["admin"]}`)
	if p.Allow("/admin/reports/q1", "Bearer "+tok2) {
		t.Fatal("expected admin-only role to fail the more specific reporter rule")
	}
}

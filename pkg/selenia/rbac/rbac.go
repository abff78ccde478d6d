// Package rbac implements the prefix-longest RBAC policy of spec.md §4.J:
// rules of the form "prefix : role" or "prefix : [role,role]", matched by
// longest-prefix, gating on an unverified JWT "roles" claim.
//
// Grounded on original_source/selenia_http/src/rbac.rs for the exact
// semantics (longest-prefix selection, "no rule matches -> allow", JWT
// extraction without signature verification) and bolt/middleware/jwt/jwt.go
// for the Go-idiomatic "Bearer <token>" header split. Signature verification
// is an explicit spec.md non-goal at this layer, so this package uses
// golang-jwt/jwt/v5's ParseUnverified purely to split and base64url-decode
// the claims segment — it never supplies a verification key.
package rbac

import (
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// Rule is one "prefix : roles" policy line.
type Rule struct {
	Prefix string
	Roles  map[string]struct{}
}

// Policy is an ordered set of rules; ordering does not matter for matching
// (longest prefix always wins) but is preserved for Rules().
type Policy struct {
	mu    sync.RWMutex
	rules []Rule
}

// New creates an empty Policy.
func New() *Policy {
	return &Policy{}
}

// Load parses policy text, one rule per non-blank, non-comment line, in the
// "prefix : role" or "prefix : [role,role]" format, replacing any
// previously loaded rules.
func Load(text string) (*Policy, error) {
	p := New()
	if err := p.LoadInto(text); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadInto parses text into p, replacing its current rules.
func (p *Policy) LoadInto(text string) error {
	var rules []Rule
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		prefix := strings.TrimSpace(line[:idx])
		rolesPart := strings.TrimSpace(line[idx+1:])
		rolesPart = strings.Trim(rolesPart, "[]")
		roleSet := make(map[string]struct{})
		for _, r := range strings.Split(rolesPart, ",") {
			r = strings.TrimSpace(r)
			if r != "" {
				roleSet[r] = struct{}{}
			}
		}
		rules = append(rules, Rule{Prefix: prefix, Roles: roleSet})
	}
	p.mu.Lock()
	p.rules = rules
	p.mu.Unlock()
	return nil
}

// match returns the rule with the longest matching prefix, or nil if none
// matches.
func (p *Policy) match(path string) *Rule {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var best *Rule
	for i := range p.rules {
		r := &p.rules[i]
		if strings.HasPrefix(path, r.Prefix) {
			if best == nil || len(r.Prefix) > len(best.Prefix) {
				best = r
			}
		}
	}
	return best
}

// Allow decides whether a request to path carrying authHeader (the raw
// "Authorization" header value, possibly empty) is permitted.
//
// With no matching rule, the request is allowed (spec.md: "If no rule
// matches, allow."). With a matching rule, a Bearer token is required whose
// "roles" claim intersects the rule's role set.
func (p *Policy) Allow(path, authHeader string) bool {
	rule := p.match(path)
	if rule == nil {
		return true
	}
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return false
	}
	roles := extractRoles(token)
	for _, r := range roles {
		if _, want := rule.Roles[r]; want {
			return true
		}
	}
	return false
}

// extractRoles splits and base64url-decodes the JWT claims segment without
// verifying the signature, then reads the "roles" array claim.
func extractRoles(tokenString string) []string {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil
	}
	raw, ok := claims["roles"]
	if !ok {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}

// Rules returns a snapshot of the loaded rules, for diagnostics.
func (p *Policy) Rules() []Rule {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Rule, len(p.rules))
	copy(out, p.rules)
	return out
}

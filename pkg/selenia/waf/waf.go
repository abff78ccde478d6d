// Package waf implements the built-in attack-pattern heuristics of spec.md
// §4.J: case-insensitive substring checks against the path and a small set
// of headers, plus the plugin.Evaluate extension point.
//
// Grounded on original_source/selenia_core/src/waf.rs (register_filter/
// evaluate contract, now realized via pkg/selenia/plugin) for the plugin
// half, and original_source/selenia_http/src/http2.rs-adjacent request
// shapes for which headers are inspected (User-Agent, Referer).
package waf

import (
	"strings"

	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/plugin"
)

// patterns is the fixed list of case-insensitive substrings considered
// attack signatures: path traversal, common SQL injection, and common XSS
// snippets. Each is already lower-cased so Check can avoid re-lowering it
// per comparison.
var patterns = []string{
	// Path traversal
	"../", "..\\", "%2e%2e%2f", "%2e%2e/", "..%2f",
	// SQL injection
	"' or '1'='1", "union select", "drop table", "; drop ", "--",
	"' or 1=1", "sleep(", "xp_cmdshell",
	// XSS
	"<script", "javascript:", "onerror=", "onload=", "<img src=x",
}

// inspectedHeaders lists the header names the built-in filter scans, per
// spec.md §4.J.
var inspectedHeaders = []string{"user-agent", "referer"}

// Check runs the built-in substring heuristics against path and the
// inspected headers, then the plugin registry. It returns true to allow.
func Check(method, path string, headers [][2]string) bool {
	if containsAttackPattern(path) {
		return false
	}
	for _, h := range headers {
		name := strings.ToLower(h[0])
		for _, want := range inspectedHeaders {
			if name == want && containsAttackPattern(h[1]) {
				return false
			}
		}
	}
	return plugin.Evaluate(method, path, headers)
}

func containsAttackPattern(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Patterns returns a copy of the built-in pattern list, for diagnostics and
// testing.
func Patterns() []string {
	out := make([]string, len(patterns))
	copy(out, patterns)
	return out
}

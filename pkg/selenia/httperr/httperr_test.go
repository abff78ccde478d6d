package httperr

import "testing"

func TestTaxonomyMapping(t *testing.T) {
	cases := []struct {
		name  string
		err   *Status
		code  int
		level Level
	}{
		{"malformed", MalformedHeader("bad"), 400, LevelWarn},
		{"nomatch", NoMatch(), 404, LevelInfo},
		{"waf", WafBlock("xss"), 403, LevelInfo},
		{"upstream", UpstreamTimeout(), 504, LevelWarn},
		{"internal", Internal("boom"), 500, LevelError},
		{"ratelimited", RateLimited(), 429, LevelInfo},
		{"method", MethodNotAllowed(), 405, LevelInfo},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if c.err.Code != c.code {
				t.Errorf("code = %d, want %d", c.err.Code, c.code)
			}
			if c.err.Level != c.level {
				t.Errorf("level = %v, want %v", c.err.Level, c.level)
			}
			if c.err.Error() == "" {
				t.Error("Error() returned empty string")
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	if LevelInfo.String() != "INFO" || LevelWarn.String() != "WARN" || LevelError.String() != "ERROR" {
		t.Fatal("unexpected level string mapping")
	}
}

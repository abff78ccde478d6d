// Package locale implements a tiny process-wide string-table registry used to
// localize the plain-text bodies of error responses (404, 405, ...). It is a
// [EXPANSION] feature supplementing spec.md's distillation: grounded on
// original_source/selenia_core/src/locale.rs's register_locale/translate
// pair, realized in Go as a lazily-initialized, RWMutex-guarded map of maps.
package locale

import "sync"

var (
	mu      sync.RWMutex
	tables  map[string]map[string]string
	initOne sync.Once
)

func ensure() {
	initOne.Do(func() {
		tables = make(map[string]map[string]string)
		registerBuiltins()
	})
}

// Register installs (or replaces) the string table for locale.
func Register(locale string, strings map[string]string) {
	ensure()
	mu.Lock()
	defer mu.Unlock()
	tables[locale] = strings
}

// Translate returns the message registered for key under locale. When the
// locale is unknown, or the key is missing from it, it falls back to the
// "en" table, and finally to key itself so callers never need a presence
// check.
func Translate(locale, key string) string {
	ensure()
	mu.RLock()
	defer mu.RUnlock()
	if table, ok := tables[locale]; ok {
		if v, ok := table[key]; ok {
			return v
		}
	}
	if table, ok := tables["en"]; ok {
		if v, ok := table[key]; ok {
			return v
		}
	}
	return key
}

// registerBuiltins installs the English and Japanese tables the original
// server shipped (selenia_core/src/locale.rs's init_locales), so the engine
// has a working default without requiring a config-supplied locale file.
func registerBuiltins() {
	tables["en"] = map[string]string{
		"http.not_found":            "404 Not Found",
		"http.method_not_allowed":   "405 Method Not Allowed",
		"http.waf_blocked":          "403 Forbidden",
		"http.rate_limited":         "429 Too Many Requests",
		"http.internal_error":       "500 Internal Server Error",
		"http.bad_request":          "400 Bad Request",
		"http.upstream_timeout":     "504 Gateway Timeout",
	}
	tables["ja"] = map[string]string{
		"http.not_found":            "404 見つかりません",
		"http.method_not_allowed":   "405 許可されていないメソッドです",
		"http.waf_blocked":          "403 アクセスが拒否されました",
		"http.rate_limited":         "429 リクエストが多すぎます",
		"http.internal_error":       "500 内部サーバーエラー",
		"http.bad_request":          "400 不正なリクエストです",
		"http.upstream_timeout":     "504 アップストリームタイムアウト",
	}
}

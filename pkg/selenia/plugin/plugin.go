// Package plugin implements the process-wide RequestFilter registry that the
// WAF and RBAC layers consult in addition to their built-in checks.
//
// Grounded on original_source/selenia_core/src/waf.rs's register_filter/
// evaluate pair. That Rust file's sibling, plugin.rs, dynamically dlopen()s a
// shared object and looks up a "sws_plugin_init" symbol with a legacy-init
// fallback (the §9 Open Question about "versioned entry symbol fallback to
// legacy init"). Go has no dlopen-shaped plugin ABI outside the rarely used,
// Linux-only, cgo-adjacent "plugin" stdlib package, which is a worse fit here
// than compile-time registration — so this package resolves that Open
// Question as: a plugin is any package that calls Register from its own
// init(), compiled into the binary. RegisterLegacy exists for plugins
// written against the older single-callback shape, mirroring the Rust side's
// "fallback to legacy init" behavior without needing a second code path at
// call time.
package plugin

import "sync"

// RequestFilter inspects an inbound request and decides whether to allow it.
// Implementations capture their own configuration.
type RequestFilter interface {
	// Check returns true to allow the request, false to block it.
	Check(method, path string, headers [][2]string) bool
	// Name identifies the filter for logging/diagnostics.
	Name() string
}

// FilterFunc adapts a plain function to RequestFilter for simple plugins.
type FilterFunc struct {
	FilterName string
	Fn         func(method, path string, headers [][2]string) bool
}

func (f FilterFunc) Check(method, path string, headers [][2]string) bool {
	return f.Fn(method, path, headers)
}

func (f FilterFunc) Name() string { return f.FilterName }

var (
	mu      sync.RWMutex
	filters []RequestFilter
)

// Register installs a new filter. Called from a plugin's init() function, or
// directly by engine startup code that wants to add a built-in check.
func Register(f RequestFilter) {
	mu.Lock()
	defer mu.Unlock()
	filters = append(filters, f)
}

// RegisterLegacy adapts the older "bare predicate function" plugin shape
// (no Name()) into the registry, the legacy-init fallback named in §9.
func RegisterLegacy(name string, fn func(method, path string, headers [][2]string) bool) {
	Register(FilterFunc{FilterName: name, Fn: fn})
}

// Evaluate runs every registered filter and returns true only if all of them
// allow the request (AND-combination, per selenia_core/src/waf.rs).
func Evaluate(method, path string, headers [][2]string) bool {
	mu.RLock()
	defer mu.RUnlock()
	for _, f := range filters {
		if !f.Check(method, path, headers) {
			return false
		}
	}
	return true
}

// Filters returns a snapshot of the currently registered filters, for
// diagnostics and testing.
func Filters() []RequestFilter {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]RequestFilter, len(filters))
	copy(out, filters)
	return out
}

// reset clears the registry; test-only helper kept unexported.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	filters = nil
}

package wasmedge

import (
	"path/filepath"
	"strings"
	"sync"
)

// Registry maps edge-function names (derived from their .wasm filename) to
// parsed modules, loaded once at startup from a directory of pre-validated
// binaries.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*Module
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*Module)}
}

// LoadDir loads every *.wasm file directly inside dir, registering each
// under its base filename without extension. A directory that does not
// exist is not an error: edge functions are an optional feature.
func LoadDir(dir string) (*Registry, error) {
	reg := NewRegistry()
	matches, err := filepath.Glob(filepath.Join(dir, "*.wasm"))
	if err != nil {
		return reg, err
	}
	for _, path := range matches {
		mod, err := Load(path)
		if err != nil {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(path), ".wasm")
		reg.modules[name] = mod
	}
	return reg, nil
}

// Names returns every registered edge-function name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.modules))
	for name := range r.modules {
		out = append(out, name)
	}
	return out
}

// Invoke runs the named edge function's _start under fuel, returning its
// result i32. The caller is responsible for turning that into an HTTP
// response; a module instance is created fresh per call so concurrent
// requests never share linear memory.
func (r *Registry) Invoke(name string, fuel int) (int32, bool, error) {
	r.mu.RLock()
	mod, ok := r.modules[name]
	r.mu.RUnlock()
	if !ok {
		return 0, false, nil
	}
	result, err := NewInstance(mod).Run(fuel)
	return result, true, err
}

package serde

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Factory builds a value from revived record arguments.
type Factory func(args ...any) (any, error)

// Symbol is a registry entry. A symbol may be invokable as a constructor,
// as a function, or both.
type Symbol struct {
	Constructor Factory
	Function    Factory
}

// Entry describes a registered symbol.
type Entry struct {
	Identifier  []string `json:"identifier"`
	Constructor bool     `json:"constructor"`
	Function    bool     `json:"function"`
}

// Registry maps identifiers to symbols. Identifiers are opaque keys.
type Registry struct {
	mu      sync.RWMutex
	symbols map[string]registered
}

type registered struct {
	identifier []string
	symbol     Symbol
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{symbols: make(map[string]registered)}
}

// RegisterConstructor binds identifier to a constructor.
func (r *Registry) RegisterConstructor(identifier []string, fn Factory) {
	r.update(identifier, func(s *Symbol) { s.Constructor = fn })
}

// RegisterFunction binds identifier to a factory function.
func (r *Registry) RegisterFunction(identifier []string, fn Factory) {
	r.update(identifier, func(s *Symbol) { s.Function = fn })
}

func (r *Registry) update(identifier []string, set func(*Symbol)) {
	if len(identifier) == 0 {
		panic("serde: empty identifier")
	}
	key := registryKey(identifier)
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := r.symbols[key]
	entry.identifier = slices.Clone(identifier)
	set(&entry.symbol)
	r.symbols[key] = entry
}

// Lookup resolves identifier.
func (r *Registry) Lookup(identifier []string) (Symbol, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.symbols[registryKey(identifier)]
	return entry.symbol, ok
}

// List returns every registered symbol ordered by identifier.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.symbols))
	for k := range r.symbols {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Entry, len(keys))
	for i, k := range keys {
		e := r.symbols[k]
		out[i] = Entry{
			Identifier:  slices.Clone(e.identifier),
			Constructor: e.symbol.Constructor != nil,
			Function:    e.symbol.Function != nil,
		}
	}
	return out
}

// Len returns the number of registered identifiers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.symbols)
}

// Segments are joined with a separator that cannot appear in Go identifiers
// or package paths, so distinct identifiers never collide.
func registryKey(identifier []string) string {
	return strings.Join(identifier, "\x00")
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}

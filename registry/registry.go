// Package registry provides the catalog of arithmetic operators the
// calculator accepts. It maps operator symbols to the metadata shown by
// the operators command and GET /api/operators.
package registry

import (
	"sync"

	"github.com/petal-labs/fractions/fraction"
)

// OperatorDef describes a registered operator.
type OperatorDef struct {
	Symbol      fraction.Operator `json:"symbol"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Example     string            `json:"example"`
	Result      string            `json:"result"` // output of Example
}

var (
	global     *Registry
	globalOnce sync.Once
)

// Global returns the singleton registry instance. On first call it
// initializes the registry and registers the built-in operators.
func Global() *Registry {
	globalOnce.Do(func() {
		global = newRegistry()
		registerBuiltins(global)
	})
	return global
}

// Registry holds all known operators.
type Registry struct {
	mu    sync.RWMutex
	ops   map[fraction.Operator]OperatorDef
	order []fraction.Operator // preserves registration order
}

func newRegistry() *Registry {
	return &Registry{
		ops: make(map[fraction.Operator]OperatorDef),
	}
}

// Register adds an operator definition, overwriting one with the same
// symbol. An empty Result is filled by evaluating Example.
func (r *Registry) Register(def OperatorDef) {
	if def.Result == "" && def.Example != "" {
		def.Result = fraction.Evaluate(def.Example)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ops[def.Symbol]; !exists {
		r.order = append(r.order, def.Symbol)
	}
	r.ops[def.Symbol] = def
}

// Get returns an operator definition by symbol.
func (r *Registry) Get(symbol string) (OperatorDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.ops[fraction.Operator(symbol)]
	return def, ok
}

// Has returns true if the symbol is registered.
func (r *Registry) Has(symbol string) bool {
	_, ok := r.Get(symbol)
	return ok
}

// All returns all registered operators in registration order.
func (r *Registry) All() []OperatorDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]OperatorDef, 0, len(r.order))
	for _, sym := range r.order {
		result = append(result, r.ops[sym])
	}
	return result
}

// Len returns the number of registered operators.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ops)
}

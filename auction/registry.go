package auction

import "fmt"

// Registry holds the closed set of auction modules the router dispatches
// to, keyed by kind. It replaces virtual override chains with explicit
// capability lookups: callers ask for the capability they need and get a
// typed handle or an error.
type Registry struct {
	modules map[Kind]Module
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[Kind]Module)}
}

// Register wires a module under its kind. Registering a kind twice is a
// configuration error.
func (r *Registry) Register(m Module) error {
	if m == nil {
		return fmt.Errorf("%w: nil module", ErrInvalidParams)
	}
	if _, dup := r.modules[m.Kind()]; dup {
		return fmt.Errorf("%w: module kind %s already registered", ErrInvalidParams, m.Kind())
	}
	r.modules[m.Kind()] = m
	return nil
}

// Module returns the module registered for a kind.
func (r *Registry) Module(kind Kind) (Module, error) {
	m, ok := r.modules[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no module for kind %s", ErrInvalidParams, kind)
	}
	return m, nil
}

// Purchaser returns the module for a kind if it supports atomic purchase.
func (r *Registry) Purchaser(kind Kind) (PurchaseModule, error) {
	m, err := r.Module(kind)
	if err != nil {
		return nil, err
	}
	p, ok := m.(PurchaseModule)
	if !ok {
		return nil, fmt.Errorf("%w: module kind %s does not support purchase", ErrInvalidParams, kind)
	}
	return p, nil
}

// Batcher returns the module for a kind if it supports batch bidding.
func (r *Registry) Batcher(kind Kind) (BatchModule, error) {
	m, err := r.Module(kind)
	if err != nil {
		return nil, err
	}
	b, ok := m.(BatchModule)
	if !ok {
		return nil, fmt.Errorf("%w: module kind %s does not support batch bidding", ErrInvalidParams, kind)
	}
	return b, nil
}

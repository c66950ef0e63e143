package tools

import (
	"fmt"
	"sort"
)

// Registry holds the fixed adapter set. It is built once at startup and
// never mutated afterwards.
type Registry struct {
	adapters map[string]Adapter
	names    []string
}

// NewRegistry builds the registry with every known adapter.
func NewRegistry() *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	for _, a := range []Adapter{
		NewNmap(),
		NewMasscan(),
		NewNikto(),
		NewSqlmap(),
		NewZAP(),
		NewBurp(),
		NewDirsearch(),
		NewNuclei(),
		NewHydra(),
		NewJohn(),
		NewTheHarvester(),
		NewEnum4linux(),
		NewMetasploit(),
		NewWireshark(),
	} {
		r.adapters[a.Name()] = a
	}
	for name := range r.adapters {
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r
}

// Get returns the adapter for the given tool name.
func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q, available tools: %v", name, r.names)
	}
	return a, nil
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Availability reports which tools have their binary installed.
func (r *Registry) Availability() map[string]bool {
	out := make(map[string]bool, len(r.adapters))
	for name, a := range r.adapters {
		out[name] = a.IsInstalled()
	}
	return out
}

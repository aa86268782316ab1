package middleware

import (
	"fmt"
	"sort"
	"sync"
)

// Registry tracks the attached request managers. Middlewares may attach
// and detach while the simulation runs, so introspection always reads
// through this registry instead of caching its answers.
type Registry struct {
	mu       sync.RWMutex
	managers map[string]RequestManager
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{managers: make(map[string]RequestManager)}
}

// Attach registers a request manager under its name.
func (r *Registry) Attach(m RequestManager) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.managers[m.Name()]; exists {
		return fmt.Errorf("middleware %q already attached", m.Name())
	}
	r.managers[m.Name()] = m
	r.order = append(r.order, m.Name())
	return nil
}

// Detach removes a request manager by name.
func (r *Registry) Detach(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.managers[name]; !exists {
		return fmt.Errorf("middleware %q is not attached", name)
	}
	delete(r.managers, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Managers returns the attached request managers in attach order.
func (r *Registry) Managers() []RequestManager {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RequestManager, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.managers[name])
	}
	return out
}

// Len returns the number of attached managers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.managers)
}

// ServiceIndex merges the live Services() listings of every attached
// manager. It returns the operation names per component and, per
// component, the middleware names through which it is reachable.
func (r *Registry) ServiceIndex() (services map[string][]string, interfaces map[string][]string) {
	services = make(map[string][]string)
	interfaces = make(map[string][]string)

	for _, m := range r.Managers() {
		for component, ops := range m.Services() {
			services[component] = mergeSorted(services[component], ops)
			interfaces[component] = append(interfaces[component], m.Name())
		}
	}
	return services, interfaces
}

func mergeSorted(existing, extra []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(extra))
	merged := make([]string, 0, len(existing)+len(extra))
	for _, s := range existing {
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			merged = append(merged, s)
		}
	}
	for _, s := range extra {
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			merged = append(merged, s)
		}
	}
	sort.Strings(merged)
	return merged
}

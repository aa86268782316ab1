// Package service holds the registry binding named operations to
// simulation components, the parameter contracts they declare, and the
// typed faults they surface.
package service

import (
	"fmt"
	"sort"

	"github.com/simverse/simverse/internal/core/observability/log"
)

// Handler executes one registered operation. Params arrive positionally
// with JSON-compatible types (string, float64, bool, nested slices and
// maps); the returned value must be JSON-serializable.
type Handler func(params []any) (any, error)

// Param declares one positional parameter of a registration.
type Param struct {
	Name string
	Type string
}

// Registration binds a (category, name) pair to a handler and its
// declared parameter contract.
type Registration struct {
	Category string
	Name     string
	Handler  Handler
	Params   []Param
}

// Call checks arity and runs the handler. Panics escape as invocation
// faults so one broken handler cannot take the update thread down.
func (r Registration) Call(params []any) (result any, err error) {
	if len(params) != len(r.Params) {
		return nil, InvalidArgument("%s.%s expects %d parameter(s), got %d",
			r.Category, r.Name, len(r.Params), len(params))
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = Invocation(fmt.Errorf("%v", rec), "%s.%s panicked", r.Category, r.Name)
		}
	}()
	return r.Handler(params)
}

// Registry maps (component category, operation name) to registrations.
// It is filled by an explicit registration pass during startup, sealed,
// and read-only afterwards.
type Registry struct {
	handlers map[string]map[string]Registration
	sealed   bool
	logger   log.Log
}

func NewRegistry(logger log.Log) *Registry {
	return &Registry{
		handlers: make(map[string]map[string]Registration),
		logger:   logger.Named("services"),
	}
}

// Register binds an operation. The last registration for a given
// (category, name) pair wins; overriding an existing one is reported at
// warn level. Registering on a sealed registry is a programming error
// and is dropped loudly.
func (r *Registry) Register(category, name string, h Handler, params ...Param) {
	if r.sealed {
		r.logger.Error("registration after seal dropped",
			log.String("category", category), log.String("service", name))
		return
	}
	ops, ok := r.handlers[category]
	if !ok {
		ops = make(map[string]Registration)
		r.handlers[category] = ops
	}
	if _, exists := ops[name]; exists {
		r.logger.Warn("service registration overridden",
			log.String("category", category), log.String("service", name))
	}
	ops[name] = Registration{Category: category, Name: name, Handler: h, Params: params}
	r.logger.Debug("service registered",
		log.String("category", category),
		log.String("service", name),
		log.Int("params", len(params)))
}

// Seal ends the registration phase.
func (r *Registry) Seal() {
	r.sealed = true
}

// Lookup resolves an operation, failing with a NotFound fault when the
// pair is absent.
func (r *Registry) Lookup(category, name string) (Registration, error) {
	ops, ok := r.handlers[category]
	if ok {
		if reg, ok := ops[name]; ok {
			return reg, nil
		}
	}
	return Registration{}, NotFound("service %s.%s is not registered", category, name)
}

// ServicesByComponent lists every registered operation name per
// component category, sorted for stable output.
func (r *Registry) ServicesByComponent() map[string][]string {
	out := make(map[string][]string, len(r.handlers))
	for category, ops := range r.handlers {
		names := make([]string, 0, len(ops))
		for name := range ops {
			names = append(names, name)
		}
		sort.Strings(names)
		out[category] = names
	}
	return out
}

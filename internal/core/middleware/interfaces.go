// Package middleware defines the request-manager contract every
// transport implements and the live registry introspection queries.
// Decoding a wire request and encoding its reply belong to the
// individual middleware; the core only hands it an Invoker and a
// service index.
package middleware

import "context"

// RequestManager is one attached transport exposing services to
// external clients.
type RequestManager interface {
	// Name identifies the middleware in introspection reports.
	Name() string

	// Services lists, per component, the operation names this
	// middleware currently exposes.
	Services() map[string][]string

	// Start brings the transport up. It does not block; received
	// requests are handed to the Invoker from transport-owned
	// goroutines.
	Start(ctx context.Context) error

	// Stop tears the transport down, closing open connections.
	Stop(ctx context.Context) error
}

// Invoker is the middlewares' door into the simulation: it hands the
// call to the single update thread and blocks until the result comes
// back. Implemented by the sim loop.
type Invoker interface {
	Invoke(ctx context.Context, component, service string, params []any) (any, error)
}

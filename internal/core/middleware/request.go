package middleware

import (
	"context"

	"github.com/simverse/simverse/internal/core/service"
)

// Invocation statuses reported to external clients.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Request is the envelope the bundled middlewares decode from the wire.
// Params carry positional arguments as JSON values.
type Request struct {
	ID        string `json:"id"`
	Component string `json:"component"`
	Service   string `json:"service"`
	Params    []any  `json:"params,omitempty"`
}

// Response is the reply envelope. Result is set on success, Error on
// failure; never both.
type Response struct {
	ID     string     `json:"id"`
	Status string     `json:"status"`
	Result any        `json:"result,omitempty"`
	Error  *FaultInfo `json:"error,omitempty"`
}

// FaultInfo carries a typed fault across the wire.
type FaultInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Execute runs one decoded request through the invoker and shapes the
// reply. Empty component defaults to the simulation category so thin
// clients can omit it.
func Execute(ctx context.Context, invoker Invoker, req Request) Response {
	component := req.Component
	if component == "" {
		component = "simulation"
	}

	result, err := invoker.Invoke(ctx, component, req.Service, req.Params)
	if err != nil {
		return Response{
			ID:     req.ID,
			Status: StatusFailed,
			Error: &FaultInfo{
				Code:    service.CodeOf(err).String(),
				Message: err.Error(),
			},
		}
	}
	return Response{ID: req.ID, Status: StatusSuccess, Result: result}
}

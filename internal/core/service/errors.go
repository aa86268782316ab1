package service

import (
	"errors"
	"fmt"
)

// FaultCode classifies a service fault for the invoking middleware.
type FaultCode int

const (
	// FaultNotFound: a name did not resolve to a live object, component,
	// or registered operation.
	FaultNotFound FaultCode = iota + 1

	// FaultInvalidArgument: a parameter was missing, of the wrong type,
	// or carried an unacceptable value.
	FaultInvalidArgument

	// FaultInvocation: a downstream failure while executing the handler,
	// including malformed JSON payloads and handler panics.
	FaultInvocation
)

func (c FaultCode) String() string {
	switch c {
	case FaultNotFound:
		return "NOT_FOUND"
	case FaultInvalidArgument:
		return "INVALID_ARGUMENT"
	case FaultInvocation:
		return "INVOCATION_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Fault is the typed error every operation surfaces to its caller.
// Faults are never retried internally; a mis-named object is a caller
// error, not a transient condition.
type Fault struct {
	Code    FaultCode
	Message string
	Cause   error
}

func (f *Fault) Error() string {
	if f.Cause != nil {
		return f.Message + ": " + f.Cause.Error()
	}
	return f.Message
}

func (f *Fault) Unwrap() error {
	return f.Cause
}

// NotFound builds a FaultNotFound fault.
func NotFound(format string, args ...any) *Fault {
	return &Fault{Code: FaultNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgument builds a FaultInvalidArgument fault.
func InvalidArgument(format string, args ...any) *Fault {
	return &Fault{Code: FaultInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// Invocation wraps a downstream error into a FaultInvocation fault.
func Invocation(cause error, format string, args ...any) *Fault {
	return &Fault{Code: FaultInvocation, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf extracts the fault code from an error chain, defaulting to
// FaultInvocation for untyped errors.
func CodeOf(err error) FaultCode {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code
	}
	return FaultInvocation
}

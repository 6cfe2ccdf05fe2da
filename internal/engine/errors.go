package engine

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure. The API layer maps kinds to HTTP
// status codes; computations never substitute zeros or NaNs for a failure.
type Kind string

const (
	KindInsufficientData         Kind = "insufficient_data"
	KindConstraintInfeasible     Kind = "constraint_infeasible"
	KindInsufficientObservations Kind = "insufficient_observations"
	KindDegreesOfFreedom         Kind = "degrees_of_freedom"
	KindInvalidParameter         Kind = "invalid_parameter"
	KindNoArbitrageViolation     Kind = "no_arbitrage_violation"
	KindNumericalInstability     Kind = "numerical_instability"
)

// Error is a classified engine failure with a human-readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func errf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the failure kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

package types

import (
	"errors"
	"fmt"
)

// FailureKind classifies a failure by how the run reacts to it.
type FailureKind int

const (
	// ConnectivityFailure means a target could not be reached or queried.
	ConnectivityFailure FailureKind = iota
	// MissingObject means a named object is absent on one side.
	MissingObject
	// DefinitionFetchFailure means the source text could not be read or was empty.
	DefinitionFetchFailure
	// ApplyFailure means a sync statement failed or creation was not permitted.
	ApplyFailure
	// InputFailure means the run inputs are unusable. It aborts the run.
	InputFailure
)

func (k FailureKind) String() string {
	switch k {
	case ConnectivityFailure:
		return "connectivity"
	case MissingObject:
		return "missing object"
	case DefinitionFetchFailure:
		return "definition fetch"
	case ApplyFailure:
		return "apply"
	case InputFailure:
		return "input"
	default:
		return "unknown"
	}
}

// Failure is an error scoped to a target and optionally an object.
type Failure struct {
	Kind   FailureKind
	Target string
	Object string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Kind.String() + " failure"
	}
	return f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure wraps err as a Failure of the given kind.
func NewFailure(kind FailureKind, target, object string, err error) *Failure {
	return &Failure{Kind: kind, Target: target, Object: object, Err: err}
}

// Failuref builds a Failure from a formatted message.
func Failuref(kind FailureKind, target, object, format string, args ...interface{}) *Failure {
	return &Failure{Kind: kind, Target: target, Object: object, Err: fmt.Errorf(format, args...)}
}

// IsKind reports whether err is a Failure of the given kind.
func IsKind(err error, kind FailureKind) bool {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind == kind
	}
	return false
}

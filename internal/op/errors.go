package op

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/opcore/internal/tensor"
)

// Code classifies lifecycle failures.
type Code int

// Error codes returned by lifecycle stages and creators.
const (
	OK Code = iota
	PreconditionViolation
	AllocationFailure
	InvalidParameter
	NotSupported
	LoadFailure
	Unknown
)

// String returns the code name.
func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case PreconditionViolation:
		return "precondition violation"
	case AllocationFailure:
		return "allocation failure"
	case InvalidParameter:
		return "invalid parameter"
	case NotSupported:
		return "not supported"
	case LoadFailure:
		return "load failure"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per Code.
var (
	ErrPrecondition = errors.New("precondition violation")
	ErrAllocation   = tensor.ErrAllocation
	ErrMissingParam = errors.New("missing parameter")
	ErrInvalidParam = errors.New("invalid parameter")
	ErrNotSupported = errors.New("not supported")
	ErrLoad         = errors.New("load failure")
)

// Error reports which operator and stage failed, and why.
type Error struct {
	Op    string // Operator name.
	Stage Stage  // Lifecycle stage that failed.
	Code  Code
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("op %q: %s: %v", e.Op, e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// CodeOf classifies err. A nil error is OK.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr.Code
	}
	switch {
	case errors.Is(err, ErrPrecondition):
		return PreconditionViolation
	case errors.Is(err, ErrAllocation):
		return AllocationFailure
	case errors.Is(err, ErrMissingParam), errors.Is(err, ErrInvalidParam):
		return InvalidParameter
	case errors.Is(err, ErrNotSupported):
		return NotSupported
	case errors.Is(err, ErrLoad):
		return LoadFailure
	default:
		return Unknown
	}
}

// stageError wraps err as an *Error for the given operator and stage.
// The code is derived from err.
func stageError(name string, stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var opErr *Error
	if errors.As(err, &opErr) {
		return err
	}
	return &Error{Op: name, Stage: stage, Code: CodeOf(err), Err: err}
}

// Failf builds an *Error wrapping sentinel with a formatted message.
func Failf(name string, stage Stage, sentinel error, format string, args ...any) error {
	return stageError(name, stage, errors.Wrapf(sentinel, format, args...))
}

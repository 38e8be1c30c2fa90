// Package op defines the lifecycle contract shared by every compute operator.
//
// An operator is constructed from a named-parameter bundle by a backend
// creator, then driven through
//
//	Reshape -> Load -> SetUp -> Execute (repeatable) -> Free
//
// by a single caller. Every stage returns an error; a non-nil error is an
// *Error naming the operator, the stage and a Code, and the caller must skip
// the remaining stages for that pass.
package op

import (
	"fmt"

	"k8s.io/klog/v2"

	"github.com/born-ml/opcore/internal/tensor"
)

// OpType identifies an operator kind in the creator registry.
//
//nolint:revive // op.OpType reads better than op.Type next to Op.Type().
type OpType int

// Operator types. The ordinals are the values of the "type" parameter.
const (
	Convolution2D OpType = iota
	MaxPool2D
)

// IsValid reports whether t is a known operator type.
func (t OpType) IsValid() bool {
	return t == Convolution2D || t == MaxPool2D
}

// String returns the operator type name.
func (t OpType) String() string {
	switch t {
	case Convolution2D:
		return "Convolution2D"
	case MaxPool2D:
		return "MaxPool2D"
	default:
		return fmt.Sprintf("OpType(%d)", int(t))
	}
}

// Backend is the capability handle operators and their tensors are bound to.
type Backend interface {
	tensor.Allocator

	// Name identifies the backend in the creator registry, e.g. "CPU".
	Name() string
}

// Op is the lifecycle every operator implements.
//
// Stages of one instance must not run concurrently; distinct instances that
// share no mutable tensors may.
type Op interface {
	// Name returns the operator name; weights are looked up as
	// Name()+".weight" and Name()+".bias".
	Name() string

	// Type returns the operator kind.
	Type() OpType

	// State returns the current lifecycle state.
	State() State

	// Reshape infers output geometry from inputs and applies it to outputs.
	// It is idempotent.
	Reshape(inputs, outputs []*tensor.Tensor) error

	// Load materializes learned parameters.
	Load(loader Loader) error

	// SetUp validates shapes against loaded weights and allocates outputs.
	SetUp(inputs, outputs []*tensor.Tensor) error

	// Execute runs the numeric kernel, populating outputs.
	Execute(inputs, outputs []*tensor.Tensor) error

	// Free releases weight buffers. The operator may be reshaped and reloaded.
	Free(inputs, outputs []*tensor.Tensor) error
}

// State is a lifecycle state.
type State int

// Lifecycle states.
const (
	Constructed State = iota
	Shaped
	Loaded
	Ready
	Executing
	Freed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Constructed:
		return "constructed"
	case Shaped:
		return "shaped"
	case Loaded:
		return "loaded"
	case Ready:
		return "ready"
	case Executing:
		return "executing"
	case Freed:
		return "freed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Stage is a lifecycle operation, used to report failures.
type Stage int

// Lifecycle stages.
const (
	StageConstruct Stage = iota
	StageReshape
	StageLoad
	StageSetUp
	StageExecute
	StageFree
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageConstruct:
		return "construct"
	case StageReshape:
		return "reshape"
	case StageLoad:
		return "load"
	case StageSetUp:
		return "setUp"
	case StageExecute:
		return "execute"
	case StageFree:
		return "free"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Base carries the state every operator shares: identity, backend binding
// and the lifecycle state machine. Concrete operators embed it and call the
// Begin*/End* pairs around their own stage logic.
type Base struct {
	name    string
	typ     OpType
	backend Backend
	state   State
	loaded  bool
}

// NewBase returns a Base in the Constructed state.
func NewBase(backend Backend, typ OpType, name string) Base {
	return Base{name: name, typ: typ, backend: backend, state: Constructed}
}

// Name returns the operator name.
func (b *Base) Name() string { return b.name }

// Type returns the operator kind.
func (b *Base) Type() OpType { return b.typ }

// State returns the current lifecycle state.
func (b *Base) State() State { return b.state }

// Backend returns the bound backend.
func (b *Base) Backend() Backend { return b.backend }

// Fail wraps err as an *Error for this operator.
func (b *Base) Fail(stage Stage, err error) error {
	return stageError(b.name, stage, err)
}

// Failf builds an *Error for this operator wrapping sentinel.
func (b *Base) Failf(stage Stage, sentinel error, format string, args ...any) error {
	return Failf(b.name, stage, sentinel, format, args...)
}

// CheckIO verifies the operator received at least the given tensor counts.
func (b *Base) CheckIO(stage Stage, inputs, outputs []*tensor.Tensor, nIn, nOut int) error {
	if len(inputs) < nIn || len(outputs) < nOut {
		return b.Failf(stage, ErrPrecondition, "want %d inputs and %d outputs, got %d and %d",
			nIn, nOut, len(inputs), len(outputs))
	}
	for i := 0; i < nIn; i++ {
		if inputs[i] == nil {
			return b.Failf(stage, ErrPrecondition, "input %d is nil", i)
		}
	}
	for i := 0; i < nOut; i++ {
		if outputs[i] == nil {
			return b.Failf(stage, ErrPrecondition, "output %d is nil", i)
		}
	}
	return nil
}

// BeginReshape checks Reshape is allowed.
func (b *Base) BeginReshape() error {
	if b.state == Executing {
		return b.Failf(StageReshape, ErrPrecondition, "reshape while executing")
	}
	return nil
}

// EndReshape records a successful Reshape.
func (b *Base) EndReshape() {
	if b.loaded {
		b.transition(Loaded)
	} else {
		b.transition(Shaped)
	}
}

// BeginLoad checks Load is allowed: only between Shaped and Ready.
func (b *Base) BeginLoad() error {
	switch b.state {
	case Shaped, Loaded, Ready:
		return nil
	default:
		return b.Failf(StageLoad, ErrPrecondition, "load in state %s", b.state)
	}
}

// EndLoad records a successful Load.
func (b *Base) EndLoad() {
	b.loaded = true
	b.transition(Loaded)
}

// BeginSetUp checks SetUp is allowed.
func (b *Base) BeginSetUp() error {
	if b.state != Loaded && b.state != Ready {
		return b.Failf(StageSetUp, ErrPrecondition, "setUp in state %s", b.state)
	}
	return nil
}

// EndSetUp records a successful SetUp.
func (b *Base) EndSetUp() {
	b.transition(Ready)
}

// BeginExecute checks the operator is Ready and marks it Executing.
func (b *Base) BeginExecute() error {
	if b.state != Ready {
		return b.Failf(StageExecute, ErrPrecondition, "execute in state %s", b.state)
	}
	b.state = Executing
	return nil
}

// EndExecute returns the operator to Ready.
func (b *Base) EndExecute() {
	b.state = Ready
}

// BeginFree checks Free is allowed.
func (b *Base) BeginFree() error {
	if b.state == Executing {
		return b.Failf(StageFree, ErrPrecondition, "free while executing")
	}
	return nil
}

// EndFree records that weights were released.
func (b *Base) EndFree() {
	b.loaded = false
	b.transition(Freed)
}

func (b *Base) transition(to State) {
	if klog.V(3).Enabled() && b.state != to {
		klog.Infof("op %q (%s): %s -> %s", b.name, b.typ, b.state, to)
	}
	b.state = to
}

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package op

import (
	"github.com/born-ml/opcore/internal/op"
	"github.com/born-ml/opcore/internal/tensor"
)

// Op is the lifecycle every operator implements.
type Op = op.Op

// OpType identifies an operator kind.
//
//nolint:revive // Matches the internal name.
type OpType = op.OpType

// Operator types.
const (
	Convolution2D = op.Convolution2D
	MaxPool2D     = op.MaxPool2D
)

// State is a lifecycle state.
type State = op.State

// Lifecycle states.
const (
	Constructed = op.Constructed
	Shaped      = op.Shaped
	Loaded      = op.Loaded
	Ready       = op.Ready
	Executing   = op.Executing
	Freed       = op.Freed
)

// Stage is a lifecycle operation.
type Stage = op.Stage

// Backend is the capability handle operators are bound to.
type Backend = op.Backend

// Loader resolves named tensors to stored data.
type Loader = op.Loader

// Creator builds an operator for one backend.
type Creator = op.Creator

// Register installs a creator for (backend, typ).
func Register(backend string, typ OpType, creator Creator) {
	op.Register(backend, typ, creator)
}

// Create builds the operator named by params["type"] on backend.
func Create(backend Backend, params Params, name string, threads int) (Op, error) {
	return op.Create(backend, params, name, threads)
}

// Supported lists the operator types registered for backend.
func Supported(backend string) []OpType {
	return op.Supported(backend)
}

// WeightName returns the weight tensor name for an operator.
func WeightName(opName string) string { return op.WeightName(opName) }

// BiasName returns the bias tensor name for an operator.
func BiasName(opName string) string { return op.BiasName(opName) }

// Source tells where a materialized tensor's contents came from.
type Source = op.Source

// Materialization outcomes.
const (
	FromLoader = op.FromLoader
	Defaulted  = op.Defaulted
)

// Materialize names, types, allocates and (when known) loads t.
func Materialize(loader Loader, t *tensor.Tensor, name string) (Source, error) {
	return op.Materialize(loader, t, name)
}

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package op

import "github.com/born-ml/opcore/internal/op"

// Code classifies lifecycle failures.
type Code = op.Code

// Error codes.
const (
	OK                    = op.OK
	PreconditionViolation = op.PreconditionViolation
	AllocationFailure     = op.AllocationFailure
	InvalidParameter      = op.InvalidParameter
	NotSupported          = op.NotSupported
	LoadFailure           = op.LoadFailure
	Unknown               = op.Unknown
)

// Error reports which operator and stage failed.
type Error = op.Error

// Sentinel errors.
var (
	ErrPrecondition = op.ErrPrecondition
	ErrAllocation   = op.ErrAllocation
	ErrMissingParam = op.ErrMissingParam
	ErrInvalidParam = op.ErrInvalidParam
	ErrNotSupported = op.ErrNotSupported
	ErrLoad         = op.ErrLoad
)

// CodeOf classifies err. A nil error is OK.
func CodeOf(err error) Code { return op.CodeOf(err) }

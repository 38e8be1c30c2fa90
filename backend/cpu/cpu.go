// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/opcore/internal/backend/cpu"
	"github.com/born-ml/opcore/op"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Option configures a Backend.
type Option = internalcpu.Option

// Conv2DConfig is the static configuration of a Convolution2D operator.
type Conv2DConfig = internalcpu.Conv2DConfig

// Convolution2D is the CPU 2-D convolution operator.
type Convolution2D = internalcpu.Convolution2D

// MaxPool2D is the CPU 2-D max pooling operator.
type MaxPool2D = internalcpu.MaxPool2D

// Name is the name CPU operators are registered under.
const Name = internalcpu.Name

// Compile-time check that Backend implements op.Backend.
var _ op.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	backend := cpu.New(cpu.WithMemoryLimit(1 << 30))
//	conv, err := backend.CreateOp(op.Params{
//	    op.KeyType:       float32(op.Convolution2D),
//	    op.KeyKernelH:    3,
//	    op.KeyKernelW:    3,
//	    op.KeyStrideH:    1,
//	    op.KeyStrideW:    1,
//	    op.KeyPadding:    float32(op.PaddingSame),
//	    op.KeyInChannel:  3,
//	    op.KeyOutChannel: 16,
//	}, "conv1", 4)
func New(opts ...Option) *Backend {
	return internalcpu.New(opts...)
}

// WithMemoryLimit caps the bytes the backend hands out at once. Zero means unlimited.
func WithMemoryLimit(bytes int64) Option {
	return internalcpu.WithMemoryLimit(bytes)
}

// WithDefaultThreads sets the thread count used when CreateOp receives threads <= 0.
func WithDefaultThreads(n int) Option {
	return internalcpu.WithDefaultThreads(n)
}

// NewConvolution2D creates a Convolution2D without going through the registry.
func NewConvolution2D(backend *Backend, name string, cfg Conv2DConfig) *Convolution2D {
	return internalcpu.NewConvolution2D(backend, name, cfg)
}

// NewMaxPool2D creates a MaxPool2D without going through the registry.
func NewMaxPool2D(backend *Backend, name string, window op.Window, threads int) *MaxPool2D {
	return internalcpu.NewMaxPool2D(backend, name, window, threads)
}

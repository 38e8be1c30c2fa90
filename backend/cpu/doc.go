// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend and its operators.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - Heap allocation with an optional memory limit
//   - Convolution2D (im2col) and MaxPool2D operators
//   - Weights in any supported element type, including Q4_0/Q8_0
//
// Importing the package registers its operators with op.Create.
//
// # Basic Usage
//
//	backend := cpu.New()
//	pool, err := backend.CreateOp(op.Params{
//	    op.KeyType:    float32(op.MaxPool2D),
//	    op.KeyKernelH: 2,
//	    op.KeyKernelW: 2,
//	    op.KeyStrideH: 2,
//	    op.KeyStrideW: 2,
//	    op.KeyPadding: float32(op.PaddingValid),
//	}, "pool1", 0)
//
// # Thread Safety
//
// The backend itself is safe for concurrent use. A single operator is driven
// by one goroutine; its thread count only splits work inside Execute.
package cpu

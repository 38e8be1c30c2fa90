// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the tensors opcore operators consume and produce.
//
// # Overview
//
// A Tensor has four logical axes (batch, sequence, head, dimension) stored
// row-major in that order, an element type and a backend handle. For 2-D
// convolution and pooling the axes are N, C, H, W.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/opcore/backend/cpu"
//	    "github.com/born-ml/opcore/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    x := tensor.New(backend)
//	    x.Reshape(1, 3, 32, 32)
//	    if err := x.Alloc(); err != nil {
//	        log.Fatal(err)
//	    }
//	    data := x.AsFloat32()
//	}
//
// # Supported Data Types
//
//   - Float32, Float64, Float16, BFloat16
//   - Int8, Int32, Int64, Uint8, Bool
//   - Q4_0, Q8_0 (32-element blocks with a half-precision scale)
//
// Operators compute in float32; other types are accepted for weights and
// decoded once when the operator loads them.
package tensor

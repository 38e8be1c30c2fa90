// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/opcore/internal/tensor"

// Tensor is a four-axis buffer bound to a backend.
type Tensor = tensor.Tensor

// Shape is the list of axis sizes.
type Shape = tensor.Shape

// DataType is a tensor element type.
type DataType = tensor.DataType

// Device is the compute device a buffer lives on.
type Device = tensor.Device

// Allocator is the backend capability handle tensors allocate through.
type Allocator = tensor.Allocator

// Element types.
//
//nolint:revive // Underscores in Q4_0/Q8_0 match the GGML names.
const (
	Float32  = tensor.Float32
	Float64  = tensor.Float64
	Int32    = tensor.Int32
	Int64    = tensor.Int64
	Uint8    = tensor.Uint8
	Bool     = tensor.Bool
	Float16  = tensor.Float16
	BFloat16 = tensor.BFloat16
	Int8     = tensor.Int8
	Q4_0     = tensor.Q4_0
	Q8_0     = tensor.Q8_0

	// Unsupported marks a stored element type with no DataType.
	Unsupported = tensor.Unsupported
)

// Devices.
const (
	CPU    = tensor.CPU
	CUDA   = tensor.CUDA
	Vulkan = tensor.Vulkan
	Metal  = tensor.Metal
	WebGPU = tensor.WebGPU
)

// ErrAllocation is wrapped by every allocation failure.
var ErrAllocation = tensor.ErrAllocation

// New creates an unallocated Float32 tensor bound to backend.
//
// Example:
//
//	x := tensor.New(cpu.New())
//	x.Reshape(1, 3, 8, 8)
//	err := x.Alloc()
func New(backend Allocator) *Tensor {
	return tensor.New(backend)
}

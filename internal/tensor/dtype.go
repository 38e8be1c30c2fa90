// Package tensor provides the tensor types consumed by opcore operators.
package tensor

import "fmt"

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
//
// Q4_0 and Q8_0 are block-quantized: elements are stored in blocks of
// BlockSize values that share a half-precision scale.
//
//nolint:revive // Underscores in Q4_0/Q8_0 match the GGML names.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
	Uint8
	Bool
	Float16
	BFloat16
	Int8
	Q4_0
	Q8_0
)

// Unsupported is reported by loaders for stored tensors whose element type
// has no DataType. It is never valid on an allocated tensor.
const Unsupported DataType = -1

// quantBlock is the number of elements per block for the quantized types.
const quantBlock = 32

// Size returns the byte size of one element of the data type.
// For block-quantized types it returns the byte size of one block.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Float16, BFloat16:
		return 2
	case Uint8, Bool, Int8:
		return 1
	case Q4_0:
		return 2 + quantBlock/2
	case Q8_0:
		return 2 + quantBlock
	default:
		panic(fmt.Sprintf("unknown data type %d", int(dt)))
	}
}

// BlockSize returns the number of elements stored together in one unit of Size bytes.
func (dt DataType) BlockSize() int {
	if dt.IsQuantized() {
		return quantBlock
	}
	return 1
}

// IsQuantized reports whether the type is block-quantized.
func (dt DataType) IsQuantized() bool {
	return dt == Q4_0 || dt == Q8_0
}

// IsValid reports whether dt is one of the known data types.
func (dt DataType) IsValid() bool {
	return dt >= Float32 && dt <= Q8_0
}

// RowSize returns the number of bytes needed to store n elements.
// Quantized types are rounded up to whole blocks.
func (dt DataType) RowSize(n int) int {
	bs := dt.BlockSize()
	return (n + bs - 1) / bs * dt.Size()
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Bool:
		return "bool"
	case Float16:
		return "float16"
	case BFloat16:
		return "bfloat16"
	case Int8:
		return "int8"
	case Q4_0:
		return "q4_0"
	case Q8_0:
		return "q8_0"
	case Unsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

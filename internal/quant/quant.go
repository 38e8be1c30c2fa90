// Package quant decodes stored tensor elements into float32.
//
// Every element type a Loader may report is decodable, so operators can build
// float32 kernel buffers from weights stored at reduced precision or in GGML
// block-quantized form.
package quant

import (
	"encoding/binary"
	"math"

	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/born-ml/opcore/internal/tensor"
)

// Q4_0 and Q8_0 block layouts.
//
//nolint:revive // Underscores match the GGML names.
const (
	BlockSize      = 32
	BlockBytesQ4_0 = 2 + BlockSize/2
	BlockBytesQ8_0 = 2 + BlockSize
)

// ErrUnsupported is returned for element types that have no float32 decoding.
var ErrUnsupported = errors.New("unsupported element type")

// Decode converts n elements of dtype stored in data into float32.
func Decode(data []byte, dtype tensor.DataType, n int) ([]float32, error) {
	out := make([]float32, n)
	if err := DecodeInto(out, data, dtype); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeInto decodes len(dst) elements of dtype from data into dst.
func DecodeInto(dst []float32, data []byte, dtype tensor.DataType) error {
	if !dtype.IsValid() {
		return errors.Wrapf(ErrUnsupported, "dtype %d", int(dtype))
	}
	n := len(dst)
	if need := dtype.RowSize(n); len(data) < need {
		return errors.Errorf("insufficient data for %d %s elements: need %d bytes, got %d", n, dtype, need, len(data))
	}

	switch dtype {
	case tensor.Float32:
		for i := range dst {
			dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
	case tensor.Float64:
		for i := range dst {
			dst[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:])))
		}
	case tensor.Float16:
		for i := range dst {
			dst[i] = float16.Frombits(binary.LittleEndian.Uint16(data[i*2:])).Float32()
		}
	case tensor.BFloat16:
		for i := range dst {
			dst[i] = bfloat16.BFloat16(binary.LittleEndian.Uint16(data[i*2:])).Float32()
		}
	case tensor.Int8:
		for i := range dst {
			dst[i] = float32(int8(data[i]))
		}
	case tensor.Uint8:
		for i := range dst {
			dst[i] = float32(data[i])
		}
	case tensor.Int32:
		for i := range dst {
			//nolint:gosec // G115: Uint32->int32 reinterprets signed integer data.
			dst[i] = float32(int32(binary.LittleEndian.Uint32(data[i*4:])))
		}
	case tensor.Int64:
		for i := range dst {
			//nolint:gosec // G115: Uint64->int64 reinterprets signed integer data.
			dst[i] = float32(int64(binary.LittleEndian.Uint64(data[i*8:])))
		}
	case tensor.Bool:
		for i := range dst {
			if data[i] != 0 {
				dst[i] = 1
			} else {
				dst[i] = 0
			}
		}
	case tensor.Q4_0:
		decodeBlocks(dst, data, BlockBytesQ4_0, decodeBlockQ4_0)
	case tensor.Q8_0:
		decodeBlocks(dst, data, BlockBytesQ8_0, decodeBlockQ8_0)
	default:
		return errors.Wrapf(ErrUnsupported, "no float32 decoding for %s", dtype)
	}
	return nil
}

// decodeBlocks walks whole blocks; the tail of the last block is discarded.
func decodeBlocks(dst []float32, data []byte, blockBytes int, decode func(block []byte, out *[BlockSize]float32)) {
	var block [BlockSize]float32
	for start, offset := 0, 0; start < len(dst); start, offset = start+BlockSize, offset+blockBytes {
		decode(data[offset:offset+blockBytes], &block)
		copy(dst[start:], block[:])
	}
}

// Q4_0: half d, then 16 bytes of nibbles. Low nibbles hold elements 0..15,
// high nibbles elements 16..31. x = d * (q - 8).
func decodeBlockQ4_0(data []byte, out *[BlockSize]float32) {
	d := float16.Frombits(binary.LittleEndian.Uint16(data[0:2])).Float32()
	for i := 0; i < BlockSize/2; i++ {
		q := data[2+i]
		out[i] = d * (float32(q&0x0F) - 8)
		out[i+BlockSize/2] = d * (float32(q>>4) - 8)
	}
}

// Q8_0: half d, then 32 signed bytes. x = d * q.
func decodeBlockQ8_0(data []byte, out *[BlockSize]float32) {
	d := float16.Frombits(binary.LittleEndian.Uint16(data[0:2])).Float32()
	for i := 0; i < BlockSize; i++ {
		out[i] = d * float32(int8(data[2+i]))
	}
}

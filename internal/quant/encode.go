package quant

import (
	"encoding/binary"
	"math"

	"github.com/x448/float16"
)

// EncodeQ8_0 quantizes values into Q8_0 blocks, zero-padding the last block.
//
//nolint:revive // Underscore matches the GGML name.
func EncodeQ8_0(values []float32) []byte {
	numBlocks := (len(values) + BlockSize - 1) / BlockSize
	out := make([]byte, numBlocks*BlockBytesQ8_0)
	for b := 0; b < numBlocks; b++ {
		block := blockOf(values, b)
		var amax float32
		for _, v := range block {
			amax = max(amax, float32(math.Abs(float64(v))))
		}
		d := amax / 127
		var id float32
		if d != 0 {
			id = 1 / d
		}
		dst := out[b*BlockBytesQ8_0:]
		binary.LittleEndian.PutUint16(dst, float16.Fromfloat32(d).Bits())
		for i, v := range block {
			dst[2+i] = byte(int8(math.Round(float64(v * id))))
		}
	}
	return out
}

// EncodeQ4_0 quantizes values into Q4_0 blocks, zero-padding the last block.
//
//nolint:revive // Underscore matches the GGML name.
func EncodeQ4_0(values []float32) []byte {
	numBlocks := (len(values) + BlockSize - 1) / BlockSize
	out := make([]byte, numBlocks*BlockBytesQ4_0)
	for b := 0; b < numBlocks; b++ {
		block := blockOf(values, b)
		var amax, vmax float32
		for _, v := range block {
			if a := float32(math.Abs(float64(v))); a > amax {
				amax, vmax = a, v
			}
		}
		d := vmax / -8
		var id float32
		if d != 0 {
			id = 1 / d
		}
		dst := out[b*BlockBytesQ4_0:]
		binary.LittleEndian.PutUint16(dst, float16.Fromfloat32(d).Bits())
		for i := 0; i < BlockSize/2; i++ {
			lo := min(15, int(block[i]*id+8.5))
			hi := min(15, int(block[i+BlockSize/2]*id+8.5))
			dst[2+i] = byte(lo) | byte(hi)<<4
		}
	}
	return out
}

// blockOf returns block b of values, zero-padded to BlockSize.
func blockOf(values []float32, b int) [BlockSize]float32 {
	var block [BlockSize]float32
	copy(block[:], values[b*BlockSize:])
	return block
}

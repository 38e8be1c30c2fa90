package quant

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/born-ml/opcore/internal/tensor"
)

func TestDecode_Float32(t *testing.T) {
	data := make([]byte, 12)
	for i, v := range []float32{1.5, -2, 3.25} {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	got, err := Decode(data, tensor.Float32, 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, -2, 3.25}, got)
}

func TestDecode_Float16(t *testing.T) {
	want := []float32{0.5, -1, 65504, 0}
	data := make([]byte, 2*len(want))
	for i, v := range want {
		binary.LittleEndian.PutUint16(data[i*2:], float16.Fromfloat32(v).Bits())
	}
	got, err := Decode(data, tensor.Float16, len(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecode_BFloat16(t *testing.T) {
	want := []float32{1, -2.5, 0.15625}
	data := make([]byte, 2*len(want))
	for i, v := range want {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(bfloat16.FromFloat32(v)))
	}
	got, err := Decode(data, tensor.BFloat16, len(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Raw patterns: 0x3F80 is 1.0, 0xC020 is -2.5, 0xFF80 is -Inf.
	got, err = Decode([]byte{0x80, 0x3F, 0x20, 0xC0, 0x80, 0xFF}, tensor.BFloat16, 3)
	require.NoError(t, err)
	assert.Equal(t, float32(1), got[0])
	assert.Equal(t, float32(-2.5), got[1])
	assert.True(t, math.IsInf(float64(got[2]), -1))
}

func TestDecode_Int8(t *testing.T) {
	got, err := Decode([]byte{0x01, 0xFF, 0x80}, tensor.Int8, 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, -1, -128}, got)
}

func TestDecode_Integers(t *testing.T) {
	i64 := make([]byte, 16)
	binary.LittleEndian.PutUint64(i64, uint64(7))
	binary.LittleEndian.PutUint64(i64[8:], math.MaxUint64) // -1
	got, err := Decode(i64, tensor.Int64, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{7, -1}, got)

	got, err = Decode([]byte{0, 1, 5}, tensor.Bool, 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 1}, got)

	got, err = Decode([]byte{200}, tensor.Uint8, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{200}, got)
}

func TestDecode_Q8_0(t *testing.T) {
	block := make([]byte, BlockBytesQ8_0)
	binary.LittleEndian.PutUint16(block, float16.Fromfloat32(0.5).Bits())
	for i := 0; i < BlockSize; i++ {
		block[2+i] = byte(int8(i - 16))
	}
	got, err := Decode(block, tensor.Q8_0, BlockSize)
	require.NoError(t, err)
	for i := 0; i < BlockSize; i++ {
		assert.Equal(t, 0.5*float32(i-16), got[i], "element %d", i)
	}
}

func TestDecode_Q4_0(t *testing.T) {
	block := make([]byte, BlockBytesQ4_0)
	binary.LittleEndian.PutUint16(block, float16.Fromfloat32(2).Bits())
	for i := 0; i < BlockSize/2; i++ {
		block[2+i] = 0x9 | 0x7<<4 // low nibble 9 -> +1, high nibble 7 -> -1
	}
	got, err := Decode(block, tensor.Q4_0, BlockSize)
	require.NoError(t, err)
	for i := 0; i < BlockSize/2; i++ {
		assert.Equal(t, float32(2), got[i])
		assert.Equal(t, float32(-2), got[i+BlockSize/2])
	}
}

func TestDecode_PartialBlock(t *testing.T) {
	values := make([]float32, 40)
	for i := range values {
		values[i] = float32(i%5) - 2
	}
	data := EncodeQ8_0(values)
	require.Len(t, data, 2*BlockBytesQ8_0)

	got, err := Decode(data, tensor.Q8_0, len(values))
	require.NoError(t, err)
	require.Len(t, got, 40)
	assert.InDeltaSlice(t, values, got, 0.02)
}

func TestEncodeQ4_0_RoundTrip(t *testing.T) {
	values := make([]float32, BlockSize)
	for i := range values {
		values[i] = float32(i-16) / 4
	}
	got, err := Decode(EncodeQ4_0(values), tensor.Q4_0, len(values))
	require.NoError(t, err)
	// Four bits give a step of max/8.
	assert.InDeltaSlice(t, values, got, 0.51)
}

func TestDecode_Errors(t *testing.T) {
	t.Run("ShortData", func(t *testing.T) {
		_, err := Decode(make([]byte, 10), tensor.Q8_0, 32)
		assert.Error(t, err)
	})
	t.Run("Unknown", func(t *testing.T) {
		_, err := Decode(nil, tensor.DataType(42), 0)
		assert.True(t, errors.Is(err, ErrUnsupported))
	})
}

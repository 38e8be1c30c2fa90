package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/opcore/internal/loader"
	"github.com/born-ml/opcore/internal/op"
	"github.com/born-ml/opcore/internal/tensor"
)

func newPool(t *testing.T, b *CPUBackend, p op.Params, threads int) *MaxPool2D {
	t.Helper()
	o, err := b.CreateOp(p, "pool", threads)
	require.NoError(t, err)
	return o.(*MaxPool2D)
}

func TestMaxPool2D_BasicForward(t *testing.T) {
	b := New()
	pool := newPool(t, b, poolParams(2, 2, 2, 2, op.PaddingValid), 1)

	out := run(t, pool, loader.Empty, newInput(t, b, 1, 1, 4, 4, ramp))

	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, out.Shape())
	assert.Equal(t, []float32{6, 8, 14, 16}, out.AsFloat32())
}

// Padding cells must never win, even when every real value is negative.
func TestMaxPool2D_SamePaddingIgnoresBorder(t *testing.T) {
	b := New()
	pool := newPool(t, b, poolParams(3, 3, 1, 1, op.PaddingSame), 1)

	// -1 -2 -3
	// -4 -5 -6
	// -7 -8 -9
	out := run(t, pool, nil, newInput(t, b, 1, 1, 3, 3, func(i int) float32 { return -float32(i + 1) }))

	assert.Equal(t, tensor.Shape{1, 1, 3, 3}, out.Shape())
	assert.Equal(t, []float32{-1, -1, -2, -1, -1, -2, -4, -4, -5}, out.AsFloat32())
}

func TestMaxPool2D_EvenKernelSame(t *testing.T) {
	b := New()
	// kernel 2 pads (2-1)/2 = 0, so SAME behaves like VALID here.
	pool := newPool(t, b, poolParams(2, 2, 1, 1, op.PaddingSame), 1)

	out := run(t, pool, nil, newInput(t, b, 1, 1, 3, 3, ramp))

	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, out.Shape())
	assert.Equal(t, []float32{5, 6, 8, 9}, out.AsFloat32())
}

func TestMaxPool2D_ChannelsAndBatch(t *testing.T) {
	b := New()
	pool := newPool(t, b, poolParams(2, 2, 2, 2, op.PaddingValid), 4)

	// Plane p holds 16p+1 .. 16p+16.
	out := run(t, pool, nil, newInput(t, b, 2, 3, 4, 4, ramp))

	assert.Equal(t, tensor.Shape{2, 3, 2, 2}, out.Shape(), "output channels equal input channels")
	data := out.AsFloat32()
	for plane := 0; plane < 6; plane++ {
		base := float32(16 * plane)
		assert.Equal(t, []float32{base + 6, base + 8, base + 14, base + 16}, data[4*plane:4*plane+4])
	}
}

func TestMaxPool2D_ThreadCountDoesNotChangeResults(t *testing.T) {
	var results [][]float32
	for _, threads := range []int{1, 3, 8} {
		b := New()
		pool := newPool(t, b, poolParams(3, 2, 2, 1, op.PaddingSame), threads)
		out := run(t, pool, nil, newInput(t, b, 3, 5, 9, 7, wave))
		results = append(results, out.AsFloat32())
	}
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, results[0], results[2])
}

func TestMaxPool2D_Lifecycle(t *testing.T) {
	b := New()
	pool := newPool(t, b, poolParams(2, 2, 2, 2, op.PaddingValid), 1)
	in := []*tensor.Tensor{newInput(t, b, 1, 2, 4, 4, ramp)}
	outs := []*tensor.Tensor{tensor.New(b)}

	assert.Equal(t, op.PreconditionViolation, op.CodeOf(pool.Load(nil)))
	require.NoError(t, pool.Reshape(in, outs))
	assert.Equal(t, op.PreconditionViolation, op.CodeOf(pool.Execute(in, outs)))

	require.NoError(t, pool.Load(nil))
	assert.Equal(t, op.Loaded, pool.State())
	require.NoError(t, pool.SetUp(in, outs))
	require.NoError(t, pool.Execute(in, outs))
	require.NoError(t, pool.Execute(in, outs))
	assert.Equal(t, op.Ready, pool.State())

	require.NoError(t, pool.Free(in, outs))
	assert.Equal(t, op.Freed, pool.State())
	assert.Equal(t, op.PreconditionViolation, op.CodeOf(pool.Execute(in, outs)))
}

func TestMaxPool2D_Preconditions(t *testing.T) {
	b := New()
	pool := newPool(t, b, poolParams(5, 5, 1, 1, op.PaddingValid), 1)
	err := pool.Reshape([]*tensor.Tensor{newInput(t, b, 1, 1, 4, 4, ramp)}, []*tensor.Tensor{tensor.New(b)})
	assert.Equal(t, op.PreconditionViolation, op.CodeOf(err))

	// Execute checks the output geometry before any kernel work.
	pool = newPool(t, b, poolParams(2, 2, 2, 2, op.PaddingValid), 1)
	in := []*tensor.Tensor{newInput(t, b, 1, 1, 4, 4, ramp)}
	outs := []*tensor.Tensor{tensor.New(b)}
	require.NoError(t, pool.Reshape(in, outs))
	require.NoError(t, pool.Load(nil))
	require.NoError(t, pool.SetUp(in, outs))
	in[0] = newInput(t, b, 1, 1, 6, 6, ramp)
	assert.Equal(t, op.PreconditionViolation, op.CodeOf(pool.Execute(in, outs)))
	assert.Equal(t, op.Ready, pool.State())
}

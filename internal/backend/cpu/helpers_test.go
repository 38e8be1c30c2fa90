package cpu

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/opcore/internal/op"
	"github.com/born-ml/opcore/internal/tensor"
)

// newInput returns an allocated float32 NCHW tensor filled by fill(i).
func newInput(t *testing.T, b *CPUBackend, n, c, h, w int, fill func(i int) float32) *tensor.Tensor {
	t.Helper()
	x := tensor.New(b)
	x.SetName("input")
	x.Reshape(n, c, h, w)
	require.NoError(t, x.Alloc())
	data := x.AsFloat32()
	for i := range data {
		data[i] = fill(i)
	}
	return x
}

func ramp(i int) float32 { return float32(i + 1) }

func wave(i int) float32 { return float32(i%7-3) / 2 }

// run drives reshape, load, setUp and execute, and returns the output.
func run(t *testing.T, o op.Op, loader op.Loader, input *tensor.Tensor) *tensor.Tensor {
	t.Helper()
	out := tensor.New(input.Backend())
	in := []*tensor.Tensor{input}
	outs := []*tensor.Tensor{out}
	require.NoError(t, o.Reshape(in, outs))
	require.NoError(t, o.Load(loader))
	require.NoError(t, o.SetUp(in, outs))
	require.NoError(t, o.Execute(in, outs))
	return out
}

func convParams(kh, kw, sh, sw int, padding op.Padding, in, out int, bias bool) op.Params {
	p := op.Params{
		op.KeyType:       float32(op.Convolution2D),
		op.KeyKernelH:    float32(kh),
		op.KeyKernelW:    float32(kw),
		op.KeyStrideH:    float32(sh),
		op.KeyStrideW:    float32(sw),
		op.KeyPadding:    float32(padding),
		op.KeyInChannel:  float32(in),
		op.KeyOutChannel: float32(out),
	}
	if bias {
		p[op.KeyBias] = 1
	}
	return p
}

func poolParams(kh, kw, sh, sw int, padding op.Padding) op.Params {
	return op.Params{
		op.KeyType:    float32(op.MaxPool2D),
		op.KeyKernelH: float32(kh),
		op.KeyKernelW: float32(kw),
		op.KeyStrideH: float32(sh),
		op.KeyStrideW: float32(sw),
		op.KeyPadding: float32(padding),
	}
}

// referenceConv is a direct NCHW convolution over an [out][in][kh][kw] weight.
func referenceConv(input []float32, n, c, h, w int, weight []float32, o, kh, kw int,
	bias []float32, win op.Window) []float32 {
	g := win.Infer(h, w)
	out := make([]float32, n*o*g.OutH*g.OutW)
	for b := 0; b < n; b++ {
		for oc := 0; oc < o; oc++ {
			for y := 0; y < g.OutH; y++ {
				for x := 0; x < g.OutW; x++ {
					var sum float64
					if bias != nil {
						sum = float64(bias[oc])
					}
					for ic := 0; ic < c; ic++ {
						for ky := 0; ky < kh; ky++ {
							for kx := 0; kx < kw; kx++ {
								iy := y*win.StrideH - g.PadH + ky
								ix := x*win.StrideW - g.PadW + kx
								if iy < 0 || iy >= h || ix < 0 || ix >= w {
									continue
								}
								sum += float64(input[((b*c+ic)*h+iy)*w+ix]) *
									float64(weight[((oc*c+ic)*kh+ky)*kw+kx])
							}
						}
					}
					out[((b*o+oc)*g.OutH+y)*g.OutW+x] = float32(sum)
				}
			}
		}
	}
	return out
}

package cpu

import (
	"math"

	"github.com/born-ml/opcore/internal/op"
	"github.com/born-ml/opcore/internal/parallel"
	"github.com/born-ml/opcore/internal/tensor"
)

// MaxPool2D takes the maximum over each pooling window of an NCHW tensor.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels, out_height, out_width]
//
// It has no weights; Load only advances the lifecycle. Padding cells never
// win the maximum.
//
// Example (2x2 pool, stride=2, VALID):
//
//	Input: [[1,2,3,4],    Output: [[6,8],
//	        [5,6,7,8],             [14,16]]
//	        [9,10,11,12],
//	        [13,14,15,16]]
type MaxPool2D struct {
	op.Base
	window  op.Window
	threads int
}

// NewMaxPool2D creates a MaxPool2D bound to backend.
func NewMaxPool2D(backend op.Backend, name string, window op.Window, threads int) *MaxPool2D {
	return &MaxPool2D{
		Base:    op.NewBase(backend, op.MaxPool2D, name),
		window:  window,
		threads: threads,
	}
}

// Window returns the kernel, stride and padding configuration.
func (m *MaxPool2D) Window() op.Window { return m.window }

// Reshape sets outputs[0] to [batch, channels, out_h, out_w].
func (m *MaxPool2D) Reshape(inputs, outputs []*tensor.Tensor) error {
	if err := m.BeginReshape(); err != nil {
		return err
	}
	if err := m.CheckIO(op.StageReshape, inputs, outputs, 1, 1); err != nil {
		return err
	}
	in := inputs[0]
	if !m.window.Fits(in.Head(), in.Dimension()) {
		return m.Failf(op.StageReshape, op.ErrPrecondition, "%s does not fit a %dx%d input",
			m.window, in.Head(), in.Dimension())
	}

	g := m.window.Infer(in.Head(), in.Dimension())
	outputs[0].Reshape(in.Batch(), in.Sequence(), g.OutH, g.OutW)
	m.EndReshape()
	return nil
}

// Load has nothing to materialize.
func (m *MaxPool2D) Load(_ op.Loader) error {
	if err := m.BeginLoad(); err != nil {
		return err
	}
	m.EndLoad()
	return nil
}

// SetUp allocates the float32 output.
func (m *MaxPool2D) SetUp(inputs, outputs []*tensor.Tensor) error {
	if err := m.BeginSetUp(); err != nil {
		return err
	}
	if err := m.CheckIO(op.StageSetUp, inputs, outputs, 1, 1); err != nil {
		return err
	}
	if dt := inputs[0].DType(); dt != tensor.Float32 {
		return m.Failf(op.StageSetUp, op.ErrNotSupported, "input dtype %s", dt)
	}
	out := outputs[0]
	out.SetDType(tensor.Float32)
	if err := out.Alloc(); err != nil {
		return m.Fail(op.StageSetUp, err)
	}
	m.EndSetUp()
	return nil
}

// Execute runs the max-reduction kernel.
func (m *MaxPool2D) Execute(inputs, outputs []*tensor.Tensor) error {
	if err := m.BeginExecute(); err != nil {
		return err
	}
	defer m.EndExecute()

	if err := m.CheckIO(op.StageExecute, inputs, outputs, 1, 1); err != nil {
		return err
	}
	in, out := inputs[0], outputs[0]
	g := m.window.Infer(in.Head(), in.Dimension())
	want := tensor.Shape{in.Batch(), in.Sequence(), g.OutH, g.OutW}
	switch {
	case !in.Allocated() || !out.Allocated():
		return m.Failf(op.StageExecute, op.ErrPrecondition, "unallocated input or output")
	case !out.Shape().Equal(want):
		return m.Failf(op.StageExecute, op.ErrPrecondition, "output shape %v, want %v", out.Shape(), want)
	}

	maxpool2dFloat32(in, out, m.window.KernelH, m.window.KernelW,
		m.window.StrideH, m.window.StrideW, g.PadH, g.PadW, m.threads)
	return nil
}

// Free has no buffers to release.
func (m *MaxPool2D) Free(_, _ []*tensor.Tensor) error {
	if err := m.BeginFree(); err != nil {
		return err
	}
	m.EndFree()
	return nil
}

// maxpool2dFloat32 pools every (batch, channel) plane independently.
func maxpool2dFloat32(input, output *tensor.Tensor, KH, KW, strideH, strideW, padH, padW, threads int) {
	N, C, H, W := input.Batch(), input.Sequence(), input.Head(), input.Dimension()
	HOut, WOut := output.Head(), output.Dimension()

	inputData := input.AsFloat32()
	outputData := output.AsFloat32()
	negInf := float32(math.Inf(-1))

	parallel.ForBatch(N, C, func(n, c int) {
		plane := n*C + c
		src := inputData[plane*H*W : (plane+1)*H*W]
		dst := outputData[plane*HOut*WOut : (plane+1)*HOut*WOut]

		for outH := 0; outH < HOut; outH++ {
			hStart := outH*strideH - padH
			hLo, hHi := max(hStart, 0), min(hStart+KH, H)
			for outW := 0; outW < WOut; outW++ {
				wStart := outW*strideW - padW
				wLo, wHi := max(wStart, 0), min(wStart+KW, W)

				best := negInf
				for h := hLo; h < hHi; h++ {
					for _, v := range src[h*W+wLo : h*W+wHi] {
						if v > best {
							best = v
						}
					}
				}
				dst[outH*WOut+outW] = best
			}
		}
	}, parallel.Threads(threads))
}

var _ op.Op = (*MaxPool2D)(nil)

package cpu

import (
	"k8s.io/klog/v2"

	"github.com/born-ml/opcore/internal/op"
	"github.com/born-ml/opcore/internal/quant"
	"github.com/born-ml/opcore/internal/tensor"
)

// Conv2DConfig is the static configuration of a Convolution2D operator.
type Conv2DConfig struct {
	Window     op.Window
	InChannel  int
	OutChannel int
	Bias       bool
	Threads    int
}

// Convolution2D is a 2-D convolution over NCHW tensors.
//
// Input:  [batch, in_channel, height, width]
// Weight: [out_channel, in_channel, kernel_h, kernel_w]
// Bias:   [1, 1, 1, out_channel] (when enabled)
// Output: [batch, out_channel, out_h, out_w]
//
// The weight keeps whatever dtype the loader stores. Load decodes it once into
// a float32 kernel laid out [out_channel][kernel_h][kernel_w][in_channel],
// which every Execute reuses.
type Convolution2D struct {
	op.Base
	window op.Window

	inChannel  int
	outChannel int
	threads    int

	weight *tensor.Tensor
	bias   *tensor.Tensor
	kernel *tensor.Tensor

	biasF32 []float32
	source  op.Source
}

// NewConvolution2D creates a Convolution2D bound to backend. Nothing is allocated.
func NewConvolution2D(backend op.Backend, name string, cfg Conv2DConfig) *Convolution2D {
	c := &Convolution2D{
		Base:       op.NewBase(backend, op.Convolution2D, name),
		window:     cfg.Window,
		inChannel:  cfg.InChannel,
		outChannel: cfg.OutChannel,
		threads:    cfg.Threads,
		weight:     tensor.New(backend),
		kernel:     tensor.New(backend),
	}
	c.weight.SetName(op.WeightName(name))
	c.kernel.SetName(name + ".kernel")
	if cfg.Bias {
		c.bias = tensor.New(backend)
		c.bias.SetName(op.BiasName(name))
	}
	return c
}

// Window returns the kernel, stride and padding configuration.
func (c *Convolution2D) Window() op.Window { return c.window }

// Weight returns the weight tensor.
func (c *Convolution2D) Weight() *tensor.Tensor { return c.weight }

// Bias returns the bias tensor, or nil when bias is disabled.
func (c *Convolution2D) Bias() *tensor.Tensor { return c.bias }

// WeightSource reports whether the last Load read the weight from the loader
// or left it zero-filled.
func (c *Convolution2D) WeightSource() op.Source { return c.source }

// Kernel returns the derived float32 kernel, or nil before Load.
func (c *Convolution2D) Kernel() []float32 {
	if !c.kernel.Allocated() {
		return nil
	}
	return c.kernel.AsFloat32()
}

// Reshape sets outputs[0] to [batch, out_channel, out_h, out_w].
func (c *Convolution2D) Reshape(inputs, outputs []*tensor.Tensor) error {
	if err := c.BeginReshape(); err != nil {
		return err
	}
	if err := c.CheckIO(op.StageReshape, inputs, outputs, 1, 1); err != nil {
		return err
	}
	in := inputs[0]
	if in.Sequence() != c.inChannel {
		return c.Failf(op.StageReshape, op.ErrPrecondition, "in_channel %d != %d", in.Sequence(), c.inChannel)
	}
	if !c.window.Fits(in.Head(), in.Dimension()) {
		return c.Failf(op.StageReshape, op.ErrPrecondition, "%s does not fit a %dx%d input",
			c.window, in.Head(), in.Dimension())
	}

	g := c.window.Infer(in.Head(), in.Dimension())
	outputs[0].Reshape(in.Batch(), c.outChannel, g.OutH, g.OutW)
	c.EndReshape()
	return nil
}

// Load materializes the weight (and bias) and derives the kernel buffer.
// Names the loader does not know are left allocated as zero-filled float32.
func (c *Convolution2D) Load(loader op.Loader) error {
	if err := c.BeginLoad(); err != nil {
		return err
	}

	c.weight.Reshape(c.outChannel, c.inChannel, c.window.KernelH, c.window.KernelW)
	src, err := op.Materialize(loader, c.weight, op.WeightName(c.Name()))
	if err != nil {
		return c.Fail(op.StageLoad, err)
	}
	c.source = src
	if err := c.deriveKernel(); err != nil {
		return c.Fail(op.StageLoad, err)
	}
	klog.V(2).Infof("conv2d %q: weight %s from %s, %s", c.Name(), c.weight.DType(), src, c.window)

	if c.bias != nil {
		c.bias.Reshape(1, 1, 1, c.outChannel)
		if _, err := op.Materialize(loader, c.bias, op.BiasName(c.Name())); err != nil {
			return c.Fail(op.StageLoad, err)
		}
	}
	c.biasF32 = nil

	c.EndLoad()
	return nil
}

// SetUp checks the input against the loaded weights, decodes the bias and
// allocates the float32 output.
func (c *Convolution2D) SetUp(inputs, outputs []*tensor.Tensor) error {
	if err := c.BeginSetUp(); err != nil {
		return err
	}
	if err := c.CheckIO(op.StageSetUp, inputs, outputs, 1, 1); err != nil {
		return err
	}
	in, out := inputs[0], outputs[0]
	if in.DType() != tensor.Float32 {
		return c.Failf(op.StageSetUp, op.ErrNotSupported, "input dtype %s", in.DType())
	}
	if in.Sequence() != c.weight.Sequence() {
		return c.Failf(op.StageSetUp, op.ErrPrecondition, "input has %d channels, weight expects %d",
			in.Sequence(), c.weight.Sequence())
	}

	if c.bias != nil {
		if c.bias.DType() == tensor.Float32 {
			c.biasF32 = c.bias.AsFloat32()
		} else {
			b, err := quant.Decode(c.bias.Data(), c.bias.DType(), c.outChannel)
			if err != nil {
				return c.Fail(op.StageSetUp, err)
			}
			c.biasF32 = b
		}
	}

	out.SetDType(tensor.Float32)
	if err := out.Alloc(); err != nil {
		return c.Fail(op.StageSetUp, err)
	}
	c.EndSetUp()
	return nil
}

// Execute runs the convolution kernel selected by the padding mode.
func (c *Convolution2D) Execute(inputs, outputs []*tensor.Tensor) error {
	if err := c.BeginExecute(); err != nil {
		return err
	}
	defer c.EndExecute()

	if err := c.CheckIO(op.StageExecute, inputs, outputs, 1, 1); err != nil {
		return err
	}
	in, out := inputs[0], outputs[0]
	g := c.window.Infer(in.Head(), in.Dimension())
	want := tensor.Shape{in.Batch(), c.outChannel, g.OutH, g.OutW}
	switch {
	case !in.Allocated() || !out.Allocated():
		return c.Failf(op.StageExecute, op.ErrPrecondition, "unallocated input or output")
	case in.Sequence() != c.inChannel:
		return c.Failf(op.StageExecute, op.ErrPrecondition, "in_channel %d != %d", in.Sequence(), c.inChannel)
	case !out.Shape().Equal(want):
		return c.Failf(op.StageExecute, op.ErrPrecondition, "output shape %v, want %v", out.Shape(), want)
	}

	switch c.window.Padding {
	case op.PaddingSame:
		conv2dSame(in, out, c.kernel.AsFloat32(), c.window.KernelH, c.window.KernelW, c.biasF32,
			c.window.StrideH, c.window.StrideW, g.PadH, g.PadW, c.threads)
	case op.PaddingValid:
		conv2dValid(in, out, c.kernel.AsFloat32(), c.window.KernelH, c.window.KernelW, c.biasF32,
			c.window.StrideH, c.window.StrideW, c.threads)
	default:
		return c.Failf(op.StageExecute, op.ErrNotSupported, "padding %s", c.window.Padding)
	}
	return nil
}

// Free releases the weight, bias and derived kernel buffers.
func (c *Convolution2D) Free(_, _ []*tensor.Tensor) error {
	if err := c.BeginFree(); err != nil {
		return err
	}
	c.weight.Free()
	c.kernel.Free()
	if c.bias != nil {
		c.bias.Free()
	}
	c.biasF32 = nil
	c.EndFree()
	return nil
}

var _ op.Op = (*Convolution2D)(nil)

package op

import "fmt"

// Padding selects how much implicit border a 2-D window sees.
type Padding int

// Padding modes. The ordinals are the values of the "padding" parameter.
const (
	PaddingSame Padding = iota
	PaddingValid
)

// IsValid reports whether p is a known padding mode.
func (p Padding) IsValid() bool {
	return p == PaddingSame || p == PaddingValid
}

// String returns "SAME" or "VALID".
func (p Padding) String() string {
	switch p {
	case PaddingSame:
		return "SAME"
	case PaddingValid:
		return "VALID"
	default:
		return fmt.Sprintf("Padding(%d)", int(p))
	}
}

// Window is the static geometry of a 2-D sliding window.
type Window struct {
	KernelH, KernelW int
	StrideH, StrideW int
	Padding          Padding
}

// Geometry is the result of shape inference over one input plane.
type Geometry struct {
	PadH, PadW int
	OutH, OutW int
}

// PadSize returns the leading padding for one axis.
//
// SAME pads (kernel-1)/2 with truncating division, so even kernels get one
// cell less than a centered window would need.
func PadSize(kernel int, p Padding) int {
	if p == PaddingSame {
		return (kernel - 1) / 2
	}
	return 0
}

// OutputSize returns the output extent of one axis:
// (input + 2*pad - kernel) / stride + 1, with truncating division.
// The formula alone yields 1 for a VALID window wider than the input;
// operators reject such windows at reshape through Window.Fits.
func OutputSize(input, kernel, stride int, p Padding) int {
	pad := PadSize(kernel, p)
	return (input+2*pad-kernel)/stride + 1
}

// Infer computes padding and output extent for an inH x inW plane.
func (w Window) Infer(inH, inW int) Geometry {
	return Geometry{
		PadH: PadSize(w.KernelH, w.Padding),
		PadW: PadSize(w.KernelW, w.Padding),
		OutH: OutputSize(inH, w.KernelH, w.StrideH, w.Padding),
		OutW: OutputSize(inW, w.KernelW, w.StrideW, w.Padding),
	}
}

// String formats the window for logs.
func (w Window) String() string {
	return fmt.Sprintf("kernel=(%d,%d) stride=(%d,%d) padding=%s",
		w.KernelH, w.KernelW, w.StrideH, w.StrideW, w.Padding)
}

// Fits reports whether the window covers at least one position of an
// inH x inW plane.
func (w Window) Fits(inH, inW int) bool {
	g := w.Infer(inH, inW)
	return inH+2*g.PadH >= w.KernelH && inW+2*g.PadW >= w.KernelW && g.OutH > 0 && g.OutW > 0
}

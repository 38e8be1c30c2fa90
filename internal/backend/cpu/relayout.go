package cpu

import (
	"github.com/born-ml/opcore/internal/quant"
	"github.com/born-ml/opcore/internal/tensor"
)

// deriveKernel decodes the weight to float32 and stores it in the kernel
// tensor in [out][kh][kw][in] order, matching the im2col patch layout.
func (c *Convolution2D) deriveKernel() error {
	w := c.weight
	src, err := quant.Decode(w.Data(), w.DType(), w.NumElements())
	if err != nil {
		return err
	}

	c.kernel.Reshape(w.Batch(), w.Head(), w.Dimension(), w.Sequence())
	c.kernel.SetDType(tensor.Float32)
	if err := c.kernel.Alloc(); err != nil {
		return err
	}
	relayoutOIHW(c.kernel.AsFloat32(), src, w.Batch(), w.Sequence(), w.Head(), w.Dimension())
	return nil
}

// relayoutOIHW permutes an [out][in][kh][kw] kernel into [out][kh][kw][in].
func relayoutOIHW(dst, src []float32, out, in, kh, kw int) {
	for o := 0; o < out; o++ {
		for i := 0; i < in; i++ {
			for y := 0; y < kh; y++ {
				for x := 0; x < kw; x++ {
					dst[((o*kh+y)*kw+x)*in+i] = src[((o*in+i)*kh+y)*kw+x]
				}
			}
		}
	}
}

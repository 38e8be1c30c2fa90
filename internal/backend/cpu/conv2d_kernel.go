package cpu

import (
	"github.com/born-ml/opcore/internal/parallel"
	"github.com/born-ml/opcore/internal/tensor"
)

// conv2dSame convolves with (padH, padW) implicit zero border.
func conv2dSame(input, output *tensor.Tensor, kernel []float32, kernelH, kernelW int, bias []float32,
	strideH, strideW, padH, padW, threads int) {
	conv2dFloat32(input, output, kernel, kernelH, kernelW, bias, strideH, strideW, padH, padW, threads)
}

// conv2dValid convolves without padding.
func conv2dValid(input, output *tensor.Tensor, kernel []float32, kernelH, kernelW int, bias []float32,
	strideH, strideW, threads int) {
	conv2dFloat32(input, output, kernel, kernelH, kernelW, bias, strideH, strideW, 0, 0, threads)
}

// conv2dFloat32 performs Conv2D using im2col, one batch item at a time.
//
// Algorithm:
//  1. Im2col: [C, H, W] -> col [H_out * W_out, K_h * K_w * C]
//  2. For every output channel o: out[o, p] = bias[o] + dot(kernel[o], col[p])
//
// Output channels are split across workers. Each output element is reduced by
// a single worker in a fixed order, so results do not depend on threads.
func conv2dFloat32(input, output *tensor.Tensor, kernel []float32, KH, KW int, bias []float32,
	strideH, strideW, padH, padW, threads int) {
	N, CIn, H, W := input.Batch(), input.Sequence(), input.Head(), input.Dimension()
	COut, HOut, WOut := output.Sequence(), output.Head(), output.Dimension()

	inputData := input.AsFloat32()
	outputData := output.AsFloat32()

	colWidth := KH * KW * CIn
	positions := HOut * WOut
	colBuf := make([]float32, positions*colWidth)
	cfg := parallel.Threads(threads)

	for n := 0; n < N; n++ {
		im2colHWC(colBuf, inputData[n*CIn*H*W:(n+1)*CIn*H*W], CIn, H, W, KH, KW, HOut, WOut,
			strideH, strideW, padH, padW)
		outBatch := outputData[n*COut*positions : (n+1)*COut*positions]

		parallel.For(COut, func(o int) {
			k := kernel[o*colWidth : (o+1)*colWidth]
			var b float32
			if bias != nil {
				b = bias[o]
			}
			dst := outBatch[o*positions : (o+1)*positions]
			for p := range dst {
				row := colBuf[p*colWidth : (p+1)*colWidth]
				sum := b
				for i, v := range k {
					sum += v * row[i]
				}
				dst[p] = sum
			}
		}, cfg)
	}
}

// im2colHWC writes one row per output position; each row holds the patch in
// (kernel row, kernel column, channel) order. Cells outside the input are zero.
func im2colHWC(colBuf, inputData []float32, C, H, W, KH, KW, HOut, WOut, strideH, strideW, padH, padW int) {
	colWidth := KH * KW * C
	plane := H * W

	for outH := 0; outH < HOut; outH++ {
		for outW := 0; outW < WOut; outW++ {
			row := colBuf[(outH*WOut+outW)*colWidth : (outH*WOut+outW+1)*colWidth]
			hStart := outH*strideH - padH
			wStart := outW*strideW - padW

			idx := 0
			for kh := 0; kh < KH; kh++ {
				h := hStart + kh
				for kw := 0; kw < KW; kw++ {
					w := wStart + kw
					cells := row[idx : idx+C]
					if h < 0 || h >= H || w < 0 || w >= W {
						clear(cells)
					} else {
						off := h*W + w
						for c := range cells {
							cells[c] = inputData[c*plane+off]
						}
					}
					idx += C
				}
			}
		}
	}
}

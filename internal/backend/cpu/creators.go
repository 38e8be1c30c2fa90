package cpu

import (
	"github.com/born-ml/opcore/internal/op"
)

func init() {
	op.Register(Name, op.Convolution2D, createConvolution2D)
	op.Register(Name, op.MaxPool2D, createMaxPool2D)
}

// createConvolution2D reads kernal_h, kernal_w, stride_h, stride_w, padding,
// in_channel, out_channel and the optional bias flag.
func createConvolution2D(backend op.Backend, params op.Params, name string, threads int) (op.Op, error) {
	window, err := params.Window()
	if err != nil {
		return nil, err
	}
	inChannel, err := params.Positive(op.KeyInChannel)
	if err != nil {
		return nil, err
	}
	outChannel, err := params.Positive(op.KeyOutChannel)
	if err != nil {
		return nil, err
	}
	return NewConvolution2D(backend, name, Conv2DConfig{
		Window:     window,
		InChannel:  inChannel,
		OutChannel: outChannel,
		Bias:       params.Bool(op.KeyBias, false),
		Threads:    threads,
	}), nil
}

// createMaxPool2D reads kernal_h, kernal_w, stride_h, stride_w and padding.
func createMaxPool2D(backend op.Backend, params op.Params, name string, threads int) (op.Op, error) {
	window, err := params.Window()
	if err != nil {
		return nil, err
	}
	return NewMaxPool2D(backend, name, window, threads), nil
}

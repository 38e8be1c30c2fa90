package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/opcore/backend/cpu"
	"github.com/born-ml/opcore/loader"
	"github.com/born-ml/opcore/op"
	"github.com/born-ml/opcore/tensor"
)

type runConfig struct {
	opName       string
	name         string
	input        []int
	kernel       []int
	stride       []int
	padding      op.Padding
	outChannel   int
	bias         bool
	threads      int
	weights      string
	weightPrefix string
	memoryLimit  uint64
	repeat       int
}

func parseRunFlags(args []string, stderr io.Writer) (*runConfig, error) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	klog.InitFlags(fs)

	cfg := &runConfig{}
	var input, kernel, stride, padding, memoryLimit string
	fs.StringVar(&cfg.opName, "op", "conv2d", "operator: conv2d or maxpool2d")
	fs.StringVar(&cfg.name, "name", "op0", "operator name; weights are looked up as <name>.weight and <name>.bias")
	fs.StringVar(&input, "input", "1,3,8,8", "input geometry N,C,H,W")
	fs.StringVar(&kernel, "kernel", "3,3", "kernel size H,W")
	fs.StringVar(&stride, "stride", "1,1", "stride H,W")
	fs.StringVar(&padding, "padding", "same", "padding mode: same or valid")
	fs.IntVar(&cfg.outChannel, "out-channel", 8, "conv2d output channels")
	fs.BoolVar(&cfg.bias, "bias", false, "conv2d adds a bias")
	fs.IntVar(&cfg.threads, "threads", 0, "kernel threads (0 = number of CPUs)")
	fs.StringVar(&cfg.weights, "weights", "", "SafeTensors or GGUF weight file; empty runs with zero weights")
	fs.StringVar(&cfg.weightPrefix, "weight-prefix", "", "prefix prepended to weight names when reading -weights")
	fs.StringVar(&memoryLimit, "memory-limit", "", "backend memory limit, e.g. 512MiB (empty = unlimited)")
	fs.IntVar(&cfg.repeat, "repeat", 1, "number of Execute calls")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var err error
	if cfg.input, err = parseInts(input, 4); err != nil {
		return nil, errors.WithMessage(err, "-input")
	}
	if cfg.kernel, err = parseInts(kernel, 2); err != nil {
		return nil, errors.WithMessage(err, "-kernel")
	}
	if cfg.stride, err = parseInts(stride, 2); err != nil {
		return nil, errors.WithMessage(err, "-stride")
	}
	if cfg.padding, err = parsePadding(padding); err != nil {
		return nil, err
	}
	if memoryLimit != "" {
		if cfg.memoryLimit, err = humanize.ParseBytes(memoryLimit); err != nil {
			return nil, errors.WithMessage(err, "-memory-limit")
		}
	}
	if cfg.repeat < 1 {
		return nil, errors.Errorf("-repeat must be positive, got %d", cfg.repeat)
	}
	return cfg, nil
}

// parseInts parses exactly n comma-separated positive integers.
func parseInts(s string, n int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, errors.Errorf("want %d comma-separated values, got %q", n, s)
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.Wrapf(err, "value %d", i)
		}
		if v <= 0 {
			return nil, errors.Errorf("value %d must be positive, got %d", i, v)
		}
		out[i] = v
	}
	return out, nil
}

func parsePadding(s string) (op.Padding, error) {
	switch strings.ToLower(s) {
	case "same":
		return op.PaddingSame, nil
	case "valid":
		return op.PaddingValid, nil
	default:
		return 0, errors.Errorf("unknown padding %q (want same or valid)", s)
	}
}

// params builds the named-parameter bundle for the configured operator.
func (c *runConfig) params() (op.Params, error) {
	p := op.Params{
		op.KeyKernelH: float32(c.kernel[0]),
		op.KeyKernelW: float32(c.kernel[1]),
		op.KeyStrideH: float32(c.stride[0]),
		op.KeyStrideW: float32(c.stride[1]),
		op.KeyPadding: float32(c.padding),
	}
	switch c.opName {
	case "conv2d":
		p[op.KeyType] = float32(op.Convolution2D)
		p[op.KeyInChannel] = float32(c.input[1])
		p[op.KeyOutChannel] = float32(c.outChannel)
		if c.bias {
			p[op.KeyBias] = 1
		}
	case "maxpool2d":
		p[op.KeyType] = float32(op.MaxPool2D)
	default:
		return nil, errors.Errorf("unknown -op %q (want conv2d or maxpool2d)", c.opName)
	}
	return p, nil
}

func (c *runConfig) loader() (op.Loader, func(), error) {
	if c.weights == "" {
		return loader.Empty, func() {}, nil
	}
	model, err := loader.Open(c.weights)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = model.Close() }
	if c.weightPrefix != "" {
		return loader.Mapped(model, loader.PrefixMapper{Prefix: c.weightPrefix}), closeFn, nil
	}
	return model, closeFn, nil
}

func runCommand(args []string, stdout, stderr io.Writer) error {
	cfg, err := parseRunFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	return run(cfg, stdout)
}

func run(cfg *runConfig, stdout io.Writer) error {
	params, err := cfg.params()
	if err != nil {
		return err
	}
	weights, closeWeights, err := cfg.loader()
	if err != nil {
		return err
	}
	defer closeWeights()

	var opts []cpu.Option
	if cfg.memoryLimit > 0 {
		opts = append(opts, cpu.WithMemoryLimit(int64(cfg.memoryLimit))) //nolint:gosec // G115: user-provided limit.
	}
	backend := cpu.New(opts...)

	o, err := backend.CreateOp(params, cfg.name, cfg.threads)
	if err != nil {
		return err
	}

	input := tensor.New(backend)
	input.SetName(cfg.name + ".input")
	input.Reshape(cfg.input[0], cfg.input[1], cfg.input[2], cfg.input[3])
	if err := input.Alloc(); err != nil {
		return errors.WithMessage(err, "input")
	}
	data := input.AsFloat32()
	for i := range data {
		data[i] = float32(i%17-8) / 8
	}
	output := tensor.New(backend)
	output.SetName(cfg.name + ".output")
	inputs, outputs := []*tensor.Tensor{input}, []*tensor.Tensor{output}

	if err := o.Reshape(inputs, outputs); err != nil {
		return err
	}
	if err := o.Load(weights); err != nil {
		return err
	}
	if err := o.SetUp(inputs, outputs); err != nil {
		return err
	}
	start := time.Now()
	for i := 0; i < cfg.repeat; i++ {
		if err := o.Execute(inputs, outputs); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	fmt.Fprintf(stdout, "%s %q\n", o.Type(), o.Name())
	fmt.Fprintf(stdout, "  input     %v\n", input.Shape())
	fmt.Fprintf(stdout, "  output    %v (%s)\n", output.Shape(), humanize.Bytes(uint64(output.ByteSize())))
	if conv, ok := o.(*cpu.Convolution2D); ok {
		w := conv.Weight()
		fmt.Fprintf(stdout, "  weight    %v %s (%s) from %s\n", w.Shape(), w.DType(),
			humanize.Bytes(uint64(w.ByteSize())), conv.WeightSource())
	}
	sum, lo, hi := summarize(output.AsFloat32())
	fmt.Fprintf(stdout, "  checksum  sum=%.6g min=%.6g max=%.6g\n", sum, lo, hi)
	fmt.Fprintf(stdout, "  execute   %d x %s\n", cfg.repeat, elapsed/time.Duration(cfg.repeat))
	fmt.Fprintf(stdout, "  memory    %s\n", humanize.Bytes(uint64(backend.Allocated()))) //nolint:gosec // G115: non-negative.

	return o.Free(inputs, outputs)
}

func summarize(values []float32) (sum float64, lo, hi float32) {
	lo, hi = float32(math.Inf(1)), float32(math.Inf(-1))
	for _, v := range values {
		sum += float64(v)
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return sum, lo, hi
}

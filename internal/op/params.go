package op

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Recognized parameter keys. The "kernal" spelling is part of the bundle format.
const (
	KeyType       = "type"
	KeyKernelH    = "kernal_h"
	KeyKernelW    = "kernal_w"
	KeyStrideH    = "stride_h"
	KeyStrideW    = "stride_w"
	KeyPadding    = "padding"
	KeyInChannel  = "in_channel"
	KeyOutChannel = "out_channel"
	KeyBias       = "bias"
)

// Params is the opaque named-parameter bundle handed to creators.
type Params map[string]float32

// Int returns the integral value stored under key.
func (p Params) Int(key string) (int, error) {
	v, ok := p[key]
	if !ok {
		return 0, errors.Wrapf(ErrMissingParam, "%q", key)
	}
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errors.Wrapf(ErrInvalidParam, "%q must be integral, got %v", key, v)
	}
	return int(f), nil
}

// Positive returns the value under key, which must be an integer > 0.
func (p Params) Positive(key string) (int, error) {
	v, err := p.Int(key)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, errors.Wrapf(ErrInvalidParam, "%q must be > 0, got %d", key, v)
	}
	return v, nil
}

// Bool returns whether key is set to a non-zero value; absent keys yield def.
func (p Params) Bool(key string, def bool) bool {
	v, ok := p[key]
	if !ok {
		return def
	}
	return v != 0
}

// Type returns the operator type named by the bundle.
func (p Params) Type() (OpType, error) {
	v, err := p.Int(KeyType)
	if err != nil {
		return 0, err
	}
	t := OpType(v)
	if !t.IsValid() {
		return 0, errors.Wrapf(ErrNotSupported, "operator type %d", v)
	}
	return t, nil
}

// Window extracts kernel, stride and padding mode.
func (p Params) Window() (Window, error) {
	var w Window
	var err error
	if w.KernelH, err = p.Positive(KeyKernelH); err != nil {
		return w, err
	}
	if w.KernelW, err = p.Positive(KeyKernelW); err != nil {
		return w, err
	}
	if w.StrideH, err = p.Positive(KeyStrideH); err != nil {
		return w, err
	}
	if w.StrideW, err = p.Positive(KeyStrideW); err != nil {
		return w, err
	}
	pad, err := p.Int(KeyPadding)
	if err != nil {
		return w, err
	}
	w.Padding = Padding(pad)
	if !w.Padding.IsValid() {
		return w, errors.Wrapf(ErrInvalidParam, "%q: unknown padding mode %d", KeyPadding, pad)
	}
	return w, nil
}

// String lists the parameters sorted by key.
func (p Params) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatFloat(float64(p[k]), 'g', -1, 32))
	}
	sb.WriteByte('}')
	return sb.String()
}

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package op

import "github.com/born-ml/opcore/internal/op"

// Params is a named-parameter bundle.
type Params = op.Params

// Parameter keys.
const (
	KeyType       = op.KeyType
	KeyKernelH    = op.KeyKernelH
	KeyKernelW    = op.KeyKernelW
	KeyStrideH    = op.KeyStrideH
	KeyStrideW    = op.KeyStrideW
	KeyPadding    = op.KeyPadding
	KeyInChannel  = op.KeyInChannel
	KeyOutChannel = op.KeyOutChannel
	KeyBias       = op.KeyBias
)

// Padding selects SAME or VALID.
type Padding = op.Padding

// Padding modes.
const (
	PaddingSame  = op.PaddingSame
	PaddingValid = op.PaddingValid
)

// Window is the static geometry of a 2-D sliding window.
type Window = op.Window

// Geometry is the result of shape inference over one plane.
type Geometry = op.Geometry

// PadSize returns the leading padding for one axis.
func PadSize(kernel int, p Padding) int { return op.PadSize(kernel, p) }

// OutputSize returns the output extent of one axis.
func OutputSize(input, kernel, stride int, p Padding) int {
	return op.OutputSize(input, kernel, stride, p)
}

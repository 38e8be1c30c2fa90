// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package op defines the operator lifecycle shared by every backend.
//
// # Lifecycle
//
// An operator is built from a named-parameter bundle and then driven by a
// single caller through
//
//	Reshape -> Load -> SetUp -> Execute (repeatable) -> Free
//
// Each stage returns an error. Use CodeOf to classify it:
//
//	if err := conv.Load(weights); err != nil {
//	    switch op.CodeOf(err) {
//	    case op.AllocationFailure:
//	        // out of memory, abort the graph
//	    case op.LoadFailure:
//	        // stored data does not match the operator
//	    }
//	}
//
// A loader that does not know a weight name is not an error: the weight is
// allocated as zero-filled float32, which is useful for shape-only runs.
//
// # Parameters
//
// Bundles map string keys to float32 values:
//
//	type, kernal_h, kernal_w, stride_h, stride_w, padding,
//	in_channel, out_channel, bias
//
// padding is the ordinal of PaddingSame or PaddingValid. SAME pads each side
// by (kernel-1)/2, so even kernels are padded one cell short of centered.
package op

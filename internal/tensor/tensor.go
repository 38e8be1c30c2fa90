package tensor

import (
	"fmt"
	"unsafe"

	"github.com/pkg/errors"
)

// Shape lists axis sizes in memory order.
type Shape []int

// NumElements returns the product of the axis sizes.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Tensor is a four-axis buffer bound to one backend.
//
// Axes are, in row-major memory order: batch, sequence, head, dimension.
// Operators reassign their meaning; 2-D convolution and pooling read them as
// batch, channel, height, width.
//
// A Tensor is created unallocated. Reshape sets the geometry, Alloc obtains a
// buffer of exactly ByteSize bytes from the bound Allocator and Free returns it.
type Tensor struct {
	name      string
	batch     int
	sequence  int
	head      int
	dimension int
	dtype     DataType
	backend   Allocator
	data      []byte
}

// New creates an unallocated Float32 tensor bound to backend.
func New(backend Allocator) *Tensor {
	return &Tensor{backend: backend, dtype: Float32}
}

// Name returns the tensor's registered name.
func (t *Tensor) Name() string { return t.name }

// SetName registers the name loaders use to find the tensor's data.
func (t *Tensor) SetName(name string) { t.name = name }

// DType returns the element type.
func (t *Tensor) DType() DataType { return t.dtype }

// SetDType changes the element type. An allocated buffer whose size no longer
// matches is released.
func (t *Tensor) SetDType(dtype DataType) {
	t.dtype = dtype
	t.dropIfResized()
}

// Batch returns the batch axis size.
func (t *Tensor) Batch() int { return t.batch }

// Sequence returns the sequence axis size.
func (t *Tensor) Sequence() int { return t.sequence }

// Head returns the head axis size.
func (t *Tensor) Head() int { return t.head }

// Dimension returns the dimension axis size.
func (t *Tensor) Dimension() int { return t.dimension }

// Shape returns the geometry as [batch, sequence, head, dimension].
func (t *Tensor) Shape() Shape {
	return Shape{t.batch, t.sequence, t.head, t.dimension}
}

// Reshape sets the geometry. If the tensor is allocated and the byte size
// changes, the buffer is released; a tensor never keeps a larger buffer than
// its geometry needs.
func (t *Tensor) Reshape(batch, sequence, head, dimension int) {
	t.batch, t.sequence, t.head, t.dimension = batch, sequence, head, dimension
	t.dropIfResized()
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return t.Shape().NumElements()
}

// ByteSize returns the buffer size the current geometry and dtype require.
func (t *Tensor) ByteSize() int {
	return t.dtype.RowSize(t.NumElements())
}

// Device returns the device of the bound backend.
func (t *Tensor) Device() Device {
	return t.backend.Device()
}

// Backend returns the bound backend handle.
func (t *Tensor) Backend() Allocator {
	return t.backend
}

// Allocated reports whether the tensor currently owns a buffer.
func (t *Tensor) Allocated() bool {
	return t.data != nil
}

// Alloc obtains a zeroed buffer from the bound backend. Calling Alloc on an
// allocated tensor of unchanged size is a no-op.
func (t *Tensor) Alloc() error {
	if t.backend == nil {
		return errors.Wrapf(ErrAllocation, "tensor %q has no backend", t.name)
	}
	for i, dim := range t.Shape() {
		if dim <= 0 {
			return errors.Wrapf(ErrAllocation, "tensor %q: invalid dimension at index %d: %d (must be > 0)", t.name, i, dim)
		}
	}
	if !t.dtype.IsValid() {
		return errors.Wrapf(ErrAllocation, "tensor %q: unknown dtype %d", t.name, int(t.dtype))
	}
	if t.data != nil {
		return nil
	}
	buf, err := t.backend.Alloc(t.ByteSize())
	if err != nil {
		return errors.WithMessagef(err, "tensor %q %v %s", t.name, t.Shape(), t.dtype)
	}
	t.data = buf
	return nil
}

// Free returns the buffer to the backend. Geometry, name and dtype are kept.
func (t *Tensor) Free() {
	if t.data == nil {
		return
	}
	t.backend.Free(t.data)
	t.data = nil
}

// Data returns the raw byte slice, nil if unallocated.
// WARNING: Direct access to underlying memory. Use with caution.
func (t *Tensor) Data() []byte {
	return t.data
}

// Offset returns the element index of (b, s, h, d).
func (t *Tensor) Offset(b, s, h, d int) int {
	return ((b*t.sequence+s)*t.head+h)*t.dimension + d
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32 or it is not allocated.
func (t *Tensor) AsFloat32() []float32 {
	if t.dtype != Float32 {
		panic(fmt.Sprintf("tensor %q dtype is %s, not float32", t.name, t.dtype))
	}
	if t.data == nil {
		panic(fmt.Sprintf("tensor %q is not allocated", t.name))
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&t.data[0])), t.NumElements())
}

// String returns a short description of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(%q, %v, %s)", t.name, t.Shape(), t.dtype)
}

func (t *Tensor) dropIfResized() {
	if t.data != nil && (!t.dtype.IsValid() || len(t.data) != t.ByteSize()) {
		t.Free()
	}
}

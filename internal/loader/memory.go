package loader

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/born-ml/opcore/internal/op"
	"github.com/born-ml/opcore/internal/tensor"
)

// NamedLoader is a loader that can fill a tensor from an explicit stored name.
type NamedLoader interface {
	op.Loader

	// LoadAs fills t with the data stored under name.
	LoadAs(name string, t *tensor.Tensor) error
}

// Memory serves tensors from an in-memory table.
type Memory struct {
	entries map[string]memoryEntry
}

type memoryEntry struct {
	dtype tensor.DataType
	data  []byte
}

// NewMemory returns an empty in-memory loader.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

// Add registers raw bytes of the given dtype under name. data is not copied.
func (m *Memory) Add(name string, dtype tensor.DataType, data []byte) *Memory {
	m.entries[name] = memoryEntry{dtype: dtype, data: data}
	return m
}

// AddFloat32 registers values as a Float32 tensor.
func (m *Memory) AddFloat32(name string, values []float32) *Memory {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}
	return m.Add(name, tensor.Float32, data)
}

// TensorNames returns the registered names, sorted.
func (m *Memory) TensorNames() []string {
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DataType implements op.Loader.
func (m *Memory) DataType(name string) (tensor.DataType, bool) {
	e, ok := m.entries[name]
	return e.dtype, ok
}

// Load implements op.Loader.
func (m *Memory) Load(t *tensor.Tensor) error {
	return m.LoadAs(t.Name(), t)
}

// LoadAs implements NamedLoader.
func (m *Memory) LoadAs(name string, t *tensor.Tensor) error {
	e, ok := m.entries[name]
	if !ok {
		return errors.Wrapf(op.ErrLoad, "tensor %q not found", name)
	}
	if err := checkStored(name, t, e.dtype, -1, int64(len(e.data))); err != nil {
		return err
	}
	copy(t.Data(), e.data)
	return nil
}

// Empty is a loader that knows no names.
var Empty op.Loader = emptyLoader{}

type emptyLoader struct{}

func (emptyLoader) DataType(string) (tensor.DataType, bool) { return 0, false }

func (emptyLoader) Load(t *tensor.Tensor) error {
	return errors.Wrapf(op.ErrLoad, "tensor %q not found", t.Name())
}

// checkStored verifies that stored data of dtype fits t exactly. elems < 0
// skips the element count check.
func checkStored(name string, t *tensor.Tensor, dtype tensor.DataType, elems int, size int64) error {
	switch {
	case !t.Allocated():
		return errors.Wrapf(op.ErrLoad, "tensor %q is not allocated", name)
	case t.DType() != dtype:
		return errors.Wrapf(op.ErrLoad, "tensor %q: stored %s, tensor is %s", name, dtype, t.DType())
	case elems >= 0 && elems != t.NumElements():
		return errors.Wrapf(op.ErrLoad, "tensor %q: stored %d elements, tensor has %d", name, elems, t.NumElements())
	case size != int64(t.ByteSize()):
		return errors.Wrapf(op.ErrLoad, "tensor %q: stored %d bytes, tensor needs %d", name, size, t.ByteSize())
	}
	return nil
}

var _ NamedLoader = (*Memory)(nil)

package op

import (
	"github.com/pkg/errors"

	"github.com/born-ml/opcore/internal/tensor"
)

// testBackend allocates from the heap and can be told to refuse.
type testBackend struct {
	name   string
	refuse bool
	live   int
}

func newTestBackend() *testBackend { return &testBackend{name: "test"} }

func (b *testBackend) Name() string          { return b.name }
func (b *testBackend) Device() tensor.Device { return tensor.CPU }

func (b *testBackend) Alloc(size int) ([]byte, error) {
	if b.refuse {
		return nil, errors.Wrap(tensor.ErrAllocation, "refused")
	}
	b.live += size
	return make([]byte, size), nil
}

func (b *testBackend) Free(buf []byte) { b.live -= len(buf) }

// mapLoader serves fixed tensors and counts Load calls.
type mapLoader struct {
	entries map[string]mapEntry
	loads   int
	fail    error
}

type mapEntry struct {
	dtype tensor.DataType
	data  []byte
}

func (l *mapLoader) DataType(name string) (tensor.DataType, bool) {
	e, ok := l.entries[name]
	return e.dtype, ok
}

func (l *mapLoader) Load(t *tensor.Tensor) error {
	l.loads++
	if l.fail != nil {
		return l.fail
	}
	e := l.entries[t.Name()]
	copy(t.Data(), e.data)
	return nil
}

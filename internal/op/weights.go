package op

import (
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/opcore/internal/tensor"
)

// Loader resolves named tensors to stored data.
type Loader interface {
	// DataType returns the stored element type of name. ok is false when the
	// loader does not know the name. A stored name whose element type has no
	// DataType reports (tensor.Unsupported, true).
	DataType(name string) (dtype tensor.DataType, ok bool)

	// Load fills t's allocated buffer with the data registered under t.Name().
	Load(t *tensor.Tensor) error
}

// Source tells where a materialized tensor's contents came from.
type Source int

// Materialization outcomes.
const (
	// FromLoader: the loader knew the name; dtype and contents are the loader's.
	FromLoader Source = iota
	// Defaulted: the name was absent; the tensor is Float32, allocated and
	// zero-filled, never populated from storage.
	Defaulted
)

// String returns the source name.
func (s Source) String() string {
	if s == FromLoader {
		return "loader"
	}
	return "default"
}

// WeightName returns the weight tensor name for an operator.
func WeightName(opName string) string { return opName + ".weight" }

// BiasName returns the bias tensor name for an operator.
func BiasName(opName string) string { return opName + ".bias" }

// Materialize names, types, allocates and (when the loader knows the name)
// populates t, which must already be reshaped. The loader's dtype is
// authoritative. An unknown name is not an error: t becomes an allocated,
// zero-filled Float32 tensor and Defaulted is returned.
func Materialize(loader Loader, t *tensor.Tensor, name string) (Source, error) {
	t.SetName(name)
	dtype, ok := tensor.DataType(0), false
	if loader != nil {
		dtype, ok = loader.DataType(name)
	}
	if !ok {
		t.SetDType(tensor.Float32)
		if err := t.Alloc(); err != nil {
			return Defaulted, err
		}
		clear(t.Data()) // a reused buffer may hold an earlier load
		klog.V(1).Infof("%q not provided by loader, allocated %s zeroed %s", name,
			humanize.Bytes(uint64(t.ByteSize())), t.DType())
		return Defaulted, nil
	}

	if !dtype.IsValid() {
		return FromLoader, errors.Wrapf(ErrLoad, "%q: stored element type %s has no decoding", name, dtype)
	}
	t.SetDType(dtype)
	if err := t.Alloc(); err != nil {
		return FromLoader, err
	}
	if err := loader.Load(t); err != nil {
		if !errors.Is(err, ErrLoad) {
			err = errors.Wrapf(ErrLoad, "%q: %v", name, err)
		}
		return FromLoader, err
	}
	klog.V(2).Infof("loaded %q %v %s (%s)", name, t.Shape(), dtype, humanize.Bytes(uint64(t.ByteSize())))
	return FromLoader, nil
}

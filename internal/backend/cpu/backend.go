// Package cpu implements the pure-Go CPU backend: its allocator and the
// operators registered for it.
package cpu

import (
	"runtime"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/opcore/internal/op"
	"github.com/born-ml/opcore/internal/tensor"
)

// Name is the backend name operators are registered under.
const Name = "CPU"

// CPUBackend allocates tensor memory on the Go heap and creates CPU operators.
type CPUBackend struct {
	device         tensor.Device
	memoryLimit    int64
	defaultThreads int
	allocated      atomic.Int64
}

// Option configures a CPUBackend.
type Option func(*CPUBackend)

// WithMemoryLimit caps the bytes the backend hands out at once. Zero means unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(b *CPUBackend) { b.memoryLimit = bytes }
}

// WithDefaultThreads sets the thread count used when CreateOp receives threads <= 0.
func WithDefaultThreads(n int) Option {
	return func(b *CPUBackend) { b.defaultThreads = n }
}

// New creates a new CPU backend.
func New(opts ...Option) *CPUBackend {
	b := &CPUBackend{
		device:         tensor.CPU,
		defaultThreads: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return Name
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Allocated returns the number of bytes currently handed out.
func (cpu *CPUBackend) Allocated() int64 {
	return cpu.allocated.Load()
}

// Alloc returns a zeroed buffer of size bytes.
func (cpu *CPUBackend) Alloc(size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.Wrapf(tensor.ErrAllocation, "negative size %d", size)
	}
	n := int64(size)
	total := cpu.allocated.Add(n)
	if cpu.memoryLimit > 0 && total > cpu.memoryLimit {
		cpu.allocated.Add(-n)
		return nil, errors.Wrapf(tensor.ErrAllocation, "%s requested, %s of %s in use",
			humanize.Bytes(uint64(n)), humanize.Bytes(uint64(total-n)), humanize.Bytes(uint64(cpu.memoryLimit)))
	}
	klog.V(4).Infof("cpu: alloc %s (in use %s)", humanize.Bytes(uint64(n)), humanize.Bytes(uint64(total)))
	return make([]byte, size), nil
}

// Free releases a buffer obtained from Alloc.
func (cpu *CPUBackend) Free(buf []byte) {
	total := cpu.allocated.Add(-int64(len(buf)))
	klog.V(4).Infof("cpu: free %s (in use %s)", humanize.Bytes(uint64(len(buf))), humanize.Bytes(uint64(max(total, 0))))
}

// CreateOp builds an operator bound to this backend from a parameter bundle.
func (cpu *CPUBackend) CreateOp(params op.Params, name string, threads int) (op.Op, error) {
	if threads <= 0 {
		threads = cpu.defaultThreads
	}
	return op.Create(cpu, params, name, threads)
}

// Compile-time check that CPUBackend is an op.Backend.
var _ op.Backend = (*CPUBackend)(nil)

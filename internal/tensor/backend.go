package tensor

import "github.com/pkg/errors"

// Device represents the compute device a tensor buffer lives on.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
	CUDA
	Vulkan
	Metal
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case CUDA:
		return "CUDA"
	case Vulkan:
		return "Vulkan"
	case Metal:
		return "Metal"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// ErrAllocation is returned (wrapped) when a buffer cannot be allocated.
var ErrAllocation = errors.New("allocation failure")

// Allocator is the backend capability handle a tensor is bound to.
//
// Every tensor receives its Allocator at construction; there is no
// process-wide default backend.
type Allocator interface {
	// Device returns the device buffers are allocated on.
	Device() Device

	// Alloc returns a zeroed buffer of exactly size bytes, or an error
	// wrapping ErrAllocation.
	Alloc(size int) ([]byte, error)

	// Free returns a buffer previously obtained from Alloc.
	Free(buf []byte)
}

package loader

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/opcore/internal/op"
	"github.com/born-ml/opcore/internal/tensor"
)

// SafeTensors format:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header]
// [tensor data: raw bytes]

// maxSafeTensorsHeader bounds the JSON header size.
const maxSafeTensorsHeader = 100 << 20

// SafeTensorsDType represents supported SafeTensors data types.
type SafeTensorsDType string

// Supported SafeTensors dtypes.
const (
	SafeTensorsF16  SafeTensorsDType = "F16"
	SafeTensorsF32  SafeTensorsDType = "F32"
	SafeTensorsF64  SafeTensorsDType = "F64"
	SafeTensorsBF16 SafeTensorsDType = "BF16"
	SafeTensorsI8   SafeTensorsDType = "I8"
	SafeTensorsI32  SafeTensorsDType = "I32"
	SafeTensorsI64  SafeTensorsDType = "I64"
	SafeTensorsU8   SafeTensorsDType = "U8"
	SafeTensorsBool SafeTensorsDType = "BOOL"
)

// SafeTensorInfo describes a tensor in SafeTensors format.
type SafeTensorInfo struct {
	DType       SafeTensorsDType `json:"dtype"`
	Shape       []int            `json:"shape"`
	DataOffsets [2]int64         `json:"data_offsets"` // [start, end)
}

// NumElements returns the product of the stored shape.
func (info *SafeTensorInfo) NumElements() int {
	n := 1
	for _, d := range info.Shape {
		n *= d
	}
	return n
}

// SafeTensorsHeader is the JSON header in SafeTensors format.
type SafeTensorsHeader struct {
	Metadata map[string]string         `json:"__metadata__"`
	Tensors  map[string]SafeTensorInfo `json:"-"`
}

// UnmarshalJSON splits the header into metadata and tensor entries.
func (h *SafeTensorsHeader) UnmarshalJSON(data []byte) error {
	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return err
	}

	if metadataRaw, ok := rawMap["__metadata__"]; ok {
		if err := json.Unmarshal(metadataRaw, &h.Metadata); err != nil {
			return errors.Wrap(err, "failed to unmarshal metadata")
		}
	}

	h.Tensors = make(map[string]SafeTensorInfo, len(rawMap))
	for key, value := range rawMap {
		if key == "__metadata__" {
			continue
		}
		var info SafeTensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return errors.Wrapf(err, "failed to unmarshal tensor %s", key)
		}
		h.Tensors[key] = info
	}
	return nil
}

// SafeTensorsReader reads SafeTensors format files.
type SafeTensorsReader struct {
	file       *os.File
	header     SafeTensorsHeader
	dataOffset int64 // Offset where tensor data starts
}

// NewSafeTensorsReader opens path and parses its header.
func NewSafeTensorsReader(path string) (*SafeTensorsReader, error) {
	//nolint:gosec // G304: weight files are user-supplied paths.
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}

	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, "failed to read header size")
	}
	if headerSize > maxSafeTensorsHeader {
		_ = file.Close()
		return nil, errors.Errorf("invalid header size: %d (too large)", headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBytes); err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, "failed to read header")
	}

	var header SafeTensorsHeader
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, "failed to parse header JSON")
	}

	return &SafeTensorsReader{
		file:       file,
		header:     header,
		dataOffset: int64(8 + headerSize), //nolint:gosec // G115: bounded by maxSafeTensorsHeader.
	}, nil
}

// Close closes the SafeTensors file.
func (r *SafeTensorsReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// Metadata returns the metadata map from the header.
func (r *SafeTensorsReader) Metadata() map[string]string {
	return r.header.Metadata
}

// TensorNames returns all tensor names in the file, sorted.
func (r *SafeTensorsReader) TensorNames() []string {
	names := make([]string, 0, len(r.header.Tensors))
	for name := range r.header.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TensorInfo returns information about a specific tensor.
func (r *SafeTensorsReader) TensorInfo(name string) (*SafeTensorInfo, error) {
	info, ok := r.header.Tensors[name]
	if !ok {
		return nil, errors.Wrapf(op.ErrLoad, "tensor %q not found", name)
	}
	return &info, nil
}

// ReadTensorData reads the raw bytes of a tensor.
func (r *SafeTensorsReader) ReadTensorData(name string) ([]byte, error) {
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}
	size := info.DataOffsets[1] - info.DataOffsets[0]
	if size < 0 || info.DataOffsets[0] < 0 {
		return nil, errors.Errorf("invalid data offsets for tensor %s: [%d, %d]",
			name, info.DataOffsets[0], info.DataOffsets[1])
	}

	data := make([]byte, size)
	if _, err := r.file.ReadAt(data, r.dataOffset+info.DataOffsets[0]); err != nil {
		return nil, errors.Wrapf(err, "failed to read tensor %s", name)
	}
	return data, nil
}

// DataType implements op.Loader. Stored tensors with an unmapped dtype are
// reported as tensor.Unsupported.
func (r *SafeTensorsReader) DataType(name string) (tensor.DataType, bool) {
	info, ok := r.header.Tensors[name]
	if !ok {
		return 0, false
	}
	dtype, err := safeTensorsDTypeToDataType(info.DType)
	if err != nil {
		klog.V(1).Infof("safetensors %q: %v", name, err)
		return tensor.Unsupported, true
	}
	return dtype, true
}

// Load implements op.Loader.
func (r *SafeTensorsReader) Load(t *tensor.Tensor) error {
	return r.LoadAs(t.Name(), t)
}

// LoadAs implements NamedLoader.
func (r *SafeTensorsReader) LoadAs(name string, t *tensor.Tensor) error {
	info, err := r.TensorInfo(name)
	if err != nil {
		return err
	}
	dtype, err := safeTensorsDTypeToDataType(info.DType)
	if err != nil {
		return errors.Wrapf(op.ErrLoad, "tensor %q: %v", name, err)
	}
	size := info.DataOffsets[1] - info.DataOffsets[0]
	if err := checkStored(name, t, dtype, info.NumElements(), size); err != nil {
		return err
	}
	if _, err := r.file.ReadAt(t.Data(), r.dataOffset+info.DataOffsets[0]); err != nil {
		return errors.Wrapf(op.ErrLoad, "tensor %q: %v", name, err)
	}
	return nil
}

// safeTensorsDTypeToDataType converts a SafeTensors dtype to a DataType.
func safeTensorsDTypeToDataType(dtype SafeTensorsDType) (tensor.DataType, error) {
	switch dtype {
	case SafeTensorsF32:
		return tensor.Float32, nil
	case SafeTensorsF64:
		return tensor.Float64, nil
	case SafeTensorsF16:
		return tensor.Float16, nil
	case SafeTensorsBF16:
		return tensor.BFloat16, nil
	case SafeTensorsI8:
		return tensor.Int8, nil
	case SafeTensorsI32:
		return tensor.Int32, nil
	case SafeTensorsI64:
		return tensor.Int64, nil
	case SafeTensorsU8:
		return tensor.Uint8, nil
	case SafeTensorsBool:
		return tensor.Bool, nil
	default:
		return 0, errors.Errorf("unsupported dtype: %s", dtype)
	}
}

var _ NamedLoader = (*SafeTensorsReader)(nil)

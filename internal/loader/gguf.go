package loader

import (
	"encoding/binary"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/opcore/internal/op"
	"github.com/born-ml/opcore/internal/tensor"
)

// GGUF format (v3):
// [4 bytes: "GGUF" magic]
// [4 bytes: version (3)]
// [8 bytes: tensor_count]
// [8 bytes: metadata_kv_count]
// [metadata key-value pairs]
// [tensor infos]
// [alignment padding]
// [tensor data (general.alignment aligned, 32 by default)]

const (
	ggufMagic     = 0x46554747 // "GGUF" in little-endian
	ggufVersion3  = 3
	ggufAlignment = 32

	ggufAlignmentKey = "general.alignment"
	ggufMaxString    = 1 << 20
	ggufMaxArray     = 1 << 24
)

// GGUFType represents GGUF metadata value types.
type GGUFType uint32

// GGUF value types.
const (
	GGUFTypeUint8   GGUFType = 0
	GGUFTypeInt8    GGUFType = 1
	GGUFTypeUint16  GGUFType = 2
	GGUFTypeInt16   GGUFType = 3
	GGUFTypeUint32  GGUFType = 4
	GGUFTypeInt32   GGUFType = 5
	GGUFTypeFloat32 GGUFType = 6
	GGUFTypeBool    GGUFType = 7
	GGUFTypeString  GGUFType = 8
	GGUFTypeArray   GGUFType = 9
	GGUFTypeUint64  GGUFType = 10
	GGUFTypeInt64   GGUFType = 11
	GGUFTypeFloat64 GGUFType = 12
)

// GGUFDType represents GGUF tensor data types.
type GGUFDType uint32

// GGUF tensor dtypes.
//
//nolint:revive // Underscores match the GGML names.
const (
	GGUFDTypeF32  GGUFDType = 0
	GGUFDTypeF16  GGUFDType = 1
	GGUFDTypeQ4_0 GGUFDType = 2
	GGUFDTypeQ4_1 GGUFDType = 3
	GGUFDTypeQ8_0 GGUFDType = 8
	GGUFDTypeI8   GGUFDType = 24
	GGUFDTypeI16  GGUFDType = 25
	GGUFDTypeI32  GGUFDType = 26
	GGUFDTypeI64  GGUFDType = 27
	GGUFDTypeF64  GGUFDType = 28
	GGUFDTypeBF16 GGUFDType = 30
)

// GGUFMetadata stores GGUF metadata key-value pairs.
type GGUFMetadata map[string]any

// GGUFTensorInfo describes a tensor in GGUF format.
type GGUFTensorInfo struct {
	Name   string
	Dims   []uint64 // Innermost dimension first.
	DType  GGUFDType
	Offset uint64 // Offset in data section
}

// NumElements returns the product of the stored dimensions.
func (info *GGUFTensorInfo) NumElements() int {
	n := uint64(1)
	for _, d := range info.Dims {
		n *= d
	}
	return int(n) //nolint:gosec // G115: element counts fit in int on 64-bit targets.
}

// GGUFReader reads GGUF format files.
type GGUFReader struct {
	file       *os.File
	version    uint32
	metadata   GGUFMetadata
	tensors    map[string]GGUFTensorInfo
	dataOffset uint64 // Offset where tensor data starts
}

// NewGGUFReader opens path and parses its header.
func NewGGUFReader(path string) (*GGUFReader, error) {
	//nolint:gosec // G304: weight files are user-supplied paths.
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}

	reader := &GGUFReader{
		file:     file,
		metadata: make(GGUFMetadata),
		tensors:  make(map[string]GGUFTensorInfo),
	}
	if err := reader.parseHeader(); err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, "failed to parse header")
	}
	return reader, nil
}

func (r *GGUFReader) read(v any) error {
	return binary.Read(r.file, binary.LittleEndian, v)
}

// parseHeader parses the GGUF header, metadata and tensor infos.
func (r *GGUFReader) parseHeader() error {
	var magic uint32
	if err := r.read(&magic); err != nil {
		return errors.Wrap(err, "failed to read magic")
	}
	if magic != ggufMagic {
		return errors.Errorf("invalid GGUF magic: 0x%X (expected 0x%X)", magic, ggufMagic)
	}

	if err := r.read(&r.version); err != nil {
		return errors.Wrap(err, "failed to read version")
	}
	if r.version != ggufVersion3 {
		return errors.Errorf("unsupported GGUF version: %d (only v3 supported)", r.version)
	}

	var tensorCount, metadataCount uint64
	if err := r.read(&tensorCount); err != nil {
		return errors.Wrap(err, "failed to read tensor count")
	}
	if err := r.read(&metadataCount); err != nil {
		return errors.Wrap(err, "failed to read metadata count")
	}

	for i := uint64(0); i < metadataCount; i++ {
		key, value, err := r.readMetadataKV()
		if err != nil {
			return errors.Wrapf(err, "failed to read metadata[%d]", i)
		}
		r.metadata[key] = value
	}

	for i := uint64(0); i < tensorCount; i++ {
		info, err := r.readTensorInfo()
		if err != nil {
			return errors.Wrapf(err, "failed to read tensor info[%d]", i)
		}
		r.tensors[info.Name] = info
	}

	currentPos, err := r.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.Wrap(err, "failed to get current position")
	}
	r.dataOffset = alignOffset(uint64(currentPos), r.alignment()) //nolint:gosec // G115: file offsets are non-negative.
	return nil
}

// alignment returns general.alignment when present, 32 otherwise.
func (r *GGUFReader) alignment() uint64 {
	if a, ok := r.metadata[ggufAlignmentKey].(uint32); ok && a > 0 {
		return uint64(a)
	}
	return ggufAlignment
}

// readString reads a GGUF string (uint64 length + UTF-8 bytes).
func (r *GGUFReader) readString() (string, error) {
	var length uint64
	if err := r.read(&length); err != nil {
		return "", err
	}
	if length > ggufMaxString {
		return "", errors.Errorf("string length too large: %d", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r.file, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// readMetadataKV reads a single metadata key-value pair.
func (r *GGUFReader) readMetadataKV() (string, any, error) {
	key, err := r.readString()
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to read key")
	}
	var valueType GGUFType
	if err := r.read(&valueType); err != nil {
		return "", nil, errors.Wrap(err, "failed to read value type")
	}
	value, err := r.readMetadataValue(valueType)
	if err != nil {
		return "", nil, errors.Wrapf(err, "failed to read value of %q", key)
	}
	return key, value, nil
}

// readMetadataValue reads a metadata value based on its type.
func (r *GGUFReader) readMetadataValue(valueType GGUFType) (any, error) {
	switch valueType {
	case GGUFTypeUint8:
		return readScalar[uint8](r)
	case GGUFTypeInt8:
		return readScalar[int8](r)
	case GGUFTypeUint16:
		return readScalar[uint16](r)
	case GGUFTypeInt16:
		return readScalar[int16](r)
	case GGUFTypeUint32:
		return readScalar[uint32](r)
	case GGUFTypeInt32:
		return readScalar[int32](r)
	case GGUFTypeFloat32:
		return readScalar[float32](r)
	case GGUFTypeBool:
		return readScalar[bool](r)
	case GGUFTypeString:
		return r.readString()
	case GGUFTypeUint64:
		return readScalar[uint64](r)
	case GGUFTypeInt64:
		return readScalar[int64](r)
	case GGUFTypeFloat64:
		return readScalar[float64](r)
	case GGUFTypeArray:
		return r.readArray()
	default:
		return nil, errors.Errorf("unknown value type: %d", valueType)
	}
}

// readArray reads a typed array as []any.
func (r *GGUFReader) readArray() ([]any, error) {
	var elemType GGUFType
	if err := r.read(&elemType); err != nil {
		return nil, err
	}
	var count uint64
	if err := r.read(&count); err != nil {
		return nil, err
	}
	if count > ggufMaxArray {
		return nil, errors.Errorf("array length too large: %d", count)
	}
	values := make([]any, 0, count)
	for i := uint64(0); i < count; i++ {
		v, err := r.readMetadataValue(elemType)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
		values = append(values, v)
	}
	return values, nil
}

func readScalar[T any](r *GGUFReader) (T, error) {
	var v T
	err := r.read(&v)
	return v, err
}

// readTensorInfo reads a single tensor info.
func (r *GGUFReader) readTensorInfo() (GGUFTensorInfo, error) {
	var info GGUFTensorInfo

	name, err := r.readString()
	if err != nil {
		return info, errors.Wrap(err, "failed to read tensor name")
	}
	info.Name = name

	var nDims uint32
	if err := r.read(&nDims); err != nil {
		return info, errors.Wrap(err, "failed to read n_dims")
	}
	info.Dims = make([]uint64, nDims)
	for i := range info.Dims {
		if err := r.read(&info.Dims[i]); err != nil {
			return info, errors.Wrapf(err, "failed to read dim[%d]", i)
		}
	}

	if err := r.read(&info.DType); err != nil {
		return info, errors.Wrap(err, "failed to read dtype")
	}
	if err := r.read(&info.Offset); err != nil {
		return info, errors.Wrap(err, "failed to read offset")
	}
	return info, nil
}

// Close closes the GGUF file.
func (r *GGUFReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// Metadata returns the metadata map.
func (r *GGUFReader) Metadata() GGUFMetadata {
	return r.metadata
}

// TensorNames returns all tensor names, sorted.
func (r *GGUFReader) TensorNames() []string {
	names := make([]string, 0, len(r.tensors))
	for name := range r.tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TensorInfo returns information about a specific tensor.
func (r *GGUFReader) TensorInfo(name string) (*GGUFTensorInfo, error) {
	info, ok := r.tensors[name]
	if !ok {
		return nil, errors.Wrapf(op.ErrLoad, "tensor %q not found", name)
	}
	return &info, nil
}

// ReadTensorData reads the raw bytes of a tensor.
func (r *GGUFReader) ReadTensorData(name string) ([]byte, error) {
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}
	dtype, err := ggufDTypeToDataType(info.DType)
	if err != nil {
		return nil, err
	}
	data := make([]byte, dtype.RowSize(info.NumElements()))
	if _, err := r.file.ReadAt(data, r.tensorOffset(info)); err != nil {
		return nil, errors.Wrapf(err, "failed to read tensor %s", name)
	}
	return data, nil
}

func (r *GGUFReader) tensorOffset(info *GGUFTensorInfo) int64 {
	return int64(r.dataOffset + info.Offset) //nolint:gosec // G115: offsets lie within the file.
}

// DataType implements op.Loader. Stored tensors with an unmapped dtype are
// reported as tensor.Unsupported.
func (r *GGUFReader) DataType(name string) (tensor.DataType, bool) {
	info, ok := r.tensors[name]
	if !ok {
		return 0, false
	}
	dtype, err := ggufDTypeToDataType(info.DType)
	if err != nil {
		klog.V(1).Infof("gguf %q: %v", name, err)
		return tensor.Unsupported, true
	}
	return dtype, true
}

// Load implements op.Loader.
func (r *GGUFReader) Load(t *tensor.Tensor) error {
	return r.LoadAs(t.Name(), t)
}

// LoadAs implements NamedLoader.
func (r *GGUFReader) LoadAs(name string, t *tensor.Tensor) error {
	info, err := r.TensorInfo(name)
	if err != nil {
		return err
	}
	dtype, err := ggufDTypeToDataType(info.DType)
	if err != nil {
		return errors.Wrapf(op.ErrLoad, "tensor %q: %v", name, err)
	}
	n := info.NumElements()
	if err := checkStored(name, t, dtype, n, int64(dtype.RowSize(n))); err != nil {
		return err
	}
	if _, err := r.file.ReadAt(t.Data(), r.tensorOffset(info)); err != nil {
		return errors.Wrapf(op.ErrLoad, "tensor %q: %v", name, err)
	}
	return nil
}

// ggufDTypeToDataType converts a GGUF dtype to a DataType.
func ggufDTypeToDataType(dtype GGUFDType) (tensor.DataType, error) {
	switch dtype {
	case GGUFDTypeF32:
		return tensor.Float32, nil
	case GGUFDTypeF16:
		return tensor.Float16, nil
	case GGUFDTypeBF16:
		return tensor.BFloat16, nil
	case GGUFDTypeF64:
		return tensor.Float64, nil
	case GGUFDTypeQ4_0:
		return tensor.Q4_0, nil
	case GGUFDTypeQ8_0:
		return tensor.Q8_0, nil
	case GGUFDTypeI8:
		return tensor.Int8, nil
	case GGUFDTypeI32:
		return tensor.Int32, nil
	case GGUFDTypeI64:
		return tensor.Int64, nil
	default:
		return 0, errors.Errorf("unsupported GGUF dtype: %d", dtype)
	}
}

// alignOffset aligns an offset to the specified alignment.
func alignOffset(offset, alignment uint64) uint64 {
	if offset%alignment == 0 {
		return offset
	}
	return offset + (alignment - offset%alignment)
}

var _ NamedLoader = (*GGUFReader)(nil)

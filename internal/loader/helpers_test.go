package loader

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/opcore/internal/tensor"
)

type heapAllocator struct{}

func (heapAllocator) Device() tensor.Device          { return tensor.CPU }
func (heapAllocator) Alloc(size int) ([]byte, error) { return make([]byte, size), nil }
func (heapAllocator) Free([]byte)                    {}

// newTensor returns an allocated tensor of the given geometry and dtype.
func newTensor(t *testing.T, name string, dtype tensor.DataType, b, s, h, d int) *tensor.Tensor {
	t.Helper()
	x := tensor.New(heapAllocator{})
	x.SetName(name)
	x.SetDType(dtype)
	x.Reshape(b, s, h, d)
	require.NoError(t, x.Alloc())
	return x
}

func float32Bytes(values ...float32) []byte {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}
	return data
}

type stEntry struct {
	name  string
	dtype SafeTensorsDType
	shape []int
	data  []byte
}

// writeSafeTensors writes entries back to back after the JSON header.
func writeSafeTensors(t *testing.T, path string, metadata map[string]string, entries ...stEntry) {
	t.Helper()

	header := map[string]any{}
	if metadata != nil {
		header["__metadata__"] = metadata
	}
	var body bytes.Buffer
	for _, e := range entries {
		start := int64(body.Len())
		body.Write(e.data)
		header[e.name] = SafeTensorInfo{
			DType:       e.dtype,
			Shape:       e.shape,
			DataOffsets: [2]int64{start, int64(body.Len())},
		}
	}
	headerJSON, err := json.Marshal(header)
	require.NoError(t, err)

	var file bytes.Buffer
	require.NoError(t, binary.Write(&file, binary.LittleEndian, uint64(len(headerJSON))))
	file.Write(headerJSON)
	file.Write(body.Bytes())
	require.NoError(t, os.WriteFile(path, file.Bytes(), 0o600))
}

type ggufKV struct {
	key   string
	typ   GGUFType
	value any // string, []string (array of strings) or a fixed-size scalar
}

type ggufEntry struct {
	name  string
	dims  []uint64
	dtype GGUFDType
	data  []byte
}

// writeGGUF writes a v3 file with the given alignment for the data section.
func writeGGUF(t *testing.T, path string, alignment uint64, kvs []ggufKV, entries ...ggufEntry) {
	t.Helper()

	var buf bytes.Buffer
	put := func(v any) { require.NoError(t, binary.Write(&buf, binary.LittleEndian, v)) }
	putString := func(s string) {
		put(uint64(len(s)))
		buf.WriteString(s)
	}

	put(uint32(ggufMagic))
	put(uint32(ggufVersion3))
	put(uint64(len(entries)))
	put(uint64(len(kvs)))

	for _, kv := range kvs {
		putString(kv.key)
		put(uint32(kv.typ))
		switch v := kv.value.(type) {
		case string:
			putString(v)
		case []string:
			put(uint32(GGUFTypeString))
			put(uint64(len(v)))
			for _, s := range v {
				putString(s)
			}
		default:
			put(v)
		}
	}

	var offset uint64
	offsets := make([]uint64, len(entries))
	for i, e := range entries {
		offsets[i] = offset
		offset = alignOffset(offset+uint64(len(e.data)), alignment)
	}
	for i, e := range entries {
		putString(e.name)
		put(uint32(len(e.dims)))
		for _, d := range e.dims {
			put(d)
		}
		put(uint32(e.dtype))
		put(offsets[i])
	}

	buf.Write(make([]byte, alignOffset(uint64(buf.Len()), alignment)-uint64(buf.Len())))
	start := uint64(buf.Len())
	for i, e := range entries {
		buf.Write(make([]byte, start+offsets[i]-uint64(buf.Len())))
		buf.Write(e.data)
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

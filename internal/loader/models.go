package loader

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ModelFormat identifies a weight file format.
type ModelFormat int

// Supported model formats.
const (
	FormatUnknown ModelFormat = iota
	FormatSafeTensors
	FormatGGUF
)

// String returns the format name.
func (f ModelFormat) String() string {
	switch f {
	case FormatSafeTensors:
		return "SafeTensors"
	case FormatGGUF:
		return "GGUF"
	default:
		return "Unknown"
	}
}

// Model is an open weight file usable as an operator loader.
type Model interface {
	NamedLoader
	io.Closer

	// Format returns the file format.
	Format() ModelFormat

	// TensorNames returns all stored tensor names, sorted.
	TensorNames() []string
}

type safeTensorsModel struct{ *SafeTensorsReader }

func (safeTensorsModel) Format() ModelFormat { return FormatSafeTensors }

type ggufModel struct{ *GGUFReader }

func (ggufModel) Format() ModelFormat { return FormatGGUF }

// DetectFormat identifies the format of path by its magic bytes, falling
// back to the file extension.
func DetectFormat(path string) (ModelFormat, error) {
	//nolint:gosec // G304: weight files are user-supplied paths.
	file, err := os.Open(path)
	if err != nil {
		return FormatUnknown, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	magic := make([]byte, 4)
	if _, err := io.ReadFull(file, magic); err == nil && bytes.Equal(magic, []byte("GGUF")) {
		return FormatGGUF, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".safetensors":
		return FormatSafeTensors, nil
	case ".gguf":
		return FormatGGUF, nil
	default:
		return FormatUnknown, errors.Errorf("unsupported file format: %s (expected .safetensors or .gguf)", path)
	}
}

// Open opens a weight file and auto-detects the format.
//
// Example:
//
//	model, err := loader.Open("path/to/model.gguf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer model.Close()
func Open(path string) (Model, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	var model Model
	switch format {
	case FormatGGUF:
		r, err := NewGGUFReader(path)
		if err != nil {
			return nil, err
		}
		model = ggufModel{r}
	default:
		r, err := NewSafeTensorsReader(path)
		if err != nil {
			return nil, err
		}
		model = safeTensorsModel{r}
	}
	klog.V(1).Infof("opened %s (%s, %d tensors)", path, format, len(model.TensorNames()))
	return model, nil
}

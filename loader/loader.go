// Package loader provides weight loaders for opcore operators.
//
// This package wraps internal loader implementations and exports a clean public API
// for resolving operator weights from memory, SafeTensors or GGUF files.
//
// Example usage:
//
//	import (
//	    "github.com/born-ml/opcore/backend/cpu"
//	    "github.com/born-ml/opcore/loader"
//	)
//
//	model, err := loader.Open("path/to/model.gguf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer model.Close()
//
//	fmt.Printf("Format: %s\n", model.Format())
//	if err := conv.Load(model); err != nil {
//	    log.Fatal(err)
//	}
package loader

import (
	"github.com/born-ml/opcore/internal/loader"
	"github.com/born-ml/opcore/op"
)

// ModelFormat represents the weight file format.
type ModelFormat = loader.ModelFormat

// Supported model formats.
const (
	FormatUnknown     ModelFormat = loader.FormatUnknown
	FormatSafeTensors ModelFormat = loader.FormatSafeTensors
	FormatGGUF        ModelFormat = loader.FormatGGUF
)

// Model is an open weight file usable as an operator loader.
type Model = loader.Model

// NamedLoader is a loader that can fill a tensor from an explicit stored name.
type NamedLoader = loader.NamedLoader

// Memory serves tensors from an in-memory table.
type Memory = loader.Memory

// SafeTensorsReader reads SafeTensors files.
type SafeTensorsReader = loader.SafeTensorsReader

// GGUFReader reads GGUF v3 files.
type GGUFReader = loader.GGUFReader

// NameMapper translates operator weight names into stored names.
type NameMapper = loader.NameMapper

// NameMapperFunc adapts a function to NameMapper.
type NameMapperFunc = loader.NameMapperFunc

// PrefixMapper prepends a fixed prefix to every name.
type PrefixMapper = loader.PrefixMapper

// TableMapper renames the listed names.
type TableMapper = loader.TableMapper

// Empty is a loader that knows no names.
var Empty op.Loader = loader.Empty

// Open opens a weight file and auto-detects the format.
func Open(path string) (Model, error) {
	return loader.Open(path)
}

// DetectFormat identifies the format of a weight file.
func DetectFormat(path string) (ModelFormat, error) {
	return loader.DetectFormat(path)
}

// NewMemory returns an empty in-memory loader.
func NewMemory() *Memory {
	return loader.NewMemory()
}

// NewSafeTensorsReader opens a SafeTensors file.
func NewSafeTensorsReader(path string) (*SafeTensorsReader, error) {
	return loader.NewSafeTensorsReader(path)
}

// NewGGUFReader opens a GGUF file.
func NewGGUFReader(path string) (*GGUFReader, error) {
	return loader.NewGGUFReader(path)
}

// Mapped returns a loader that looks names up through mapper.
func Mapped(l NamedLoader, mapper NameMapper) NamedLoader {
	return loader.Mapped(l, mapper)
}

package loader

import "github.com/born-ml/opcore/internal/tensor"

// NameMapper translates an operator weight name into the name it is stored under.
type NameMapper interface {
	MapName(name string) string
}

// NameMapperFunc adapts a function to NameMapper.
type NameMapperFunc func(name string) string

// MapName implements NameMapper.
func (f NameMapperFunc) MapName(name string) string { return f(name) }

// PrefixMapper prepends Prefix, e.g. "model." for checkpoints that nest
// every layer under a common root.
type PrefixMapper struct {
	Prefix string
}

// MapName implements NameMapper.
func (m PrefixMapper) MapName(name string) string {
	return m.Prefix + name
}

// TableMapper renames the listed names and passes the rest through.
type TableMapper map[string]string

// MapName implements NameMapper.
func (m TableMapper) MapName(name string) string {
	if mapped, ok := m[name]; ok {
		return mapped
	}
	return name
}

// Mapped returns a loader that looks names up through mapper.
func Mapped(loader NamedLoader, mapper NameMapper) NamedLoader {
	return &mappedLoader{loader: loader, mapper: mapper}
}

type mappedLoader struct {
	loader NamedLoader
	mapper NameMapper
}

func (m *mappedLoader) DataType(name string) (tensor.DataType, bool) {
	return m.loader.DataType(m.mapper.MapName(name))
}

func (m *mappedLoader) Load(t *tensor.Tensor) error {
	return m.loader.LoadAs(m.mapper.MapName(t.Name()), t)
}

func (m *mappedLoader) LoadAs(name string, t *tensor.Tensor) error {
	return m.loader.LoadAs(m.mapper.MapName(name), t)
}

package op

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Creator builds an operator bound to backend from a parameter bundle.
// It validates the keys it needs and nothing else.
type Creator func(backend Backend, params Params, name string, threads int) (Op, error)

type creatorKey struct {
	backend string
	typ     OpType
}

var (
	registryMu sync.RWMutex
	creators   = make(map[creatorKey]Creator)
)

// Register installs the creator for (backend, typ), replacing any previous one.
//
// Backends call Register from an init function.
func Register(backend string, typ OpType, creator Creator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	creators[creatorKey{backend, typ}] = creator
}

// Lookup returns the creator registered for (backend, typ).
func Lookup(backend string, typ OpType) (Creator, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := creators[creatorKey{backend, typ}]
	return c, ok
}

// Supported returns the operator types registered for backend, sorted.
func Supported(backend string) []OpType {
	registryMu.RLock()
	defer registryMu.RUnlock()
	var types []OpType
	for k := range creators {
		if k.backend == backend {
			types = append(types, k.typ)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Create builds the operator named by params["type"] on backend.
func Create(backend Backend, params Params, name string, threads int) (Op, error) {
	if backend == nil {
		return nil, Failf(name, StageConstruct, ErrPrecondition, "nil backend")
	}
	typ, err := params.Type()
	if err != nil {
		return nil, stageError(name, StageConstruct, err)
	}
	creator, ok := Lookup(backend.Name(), typ)
	if !ok {
		return nil, Failf(name, StageConstruct, ErrNotSupported, "%s on backend %s", typ, backend.Name())
	}
	o, err := creator(backend, params, name, threads)
	if err != nil {
		return nil, stageError(name, StageConstruct, errors.WithMessagef(err, "create %s", typ))
	}
	klog.V(3).Infof("created %s %q on %s with %s", typ, name, backend.Name(), params)
	return o, nil
}

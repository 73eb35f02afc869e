package solverx

import (
	"github.com/gatproject/gat/pkg/gaterrors"
)

type registryKey struct {
	class ProblemClass
	kind  BackendKind
}

// Dispatcher is the small registry + preference-order scan spec §4.6
// names: "consults a registry of available backends ... and returns
// the first matching backend per a preference order the caller
// supplies".
type Dispatcher struct {
	backends map[registryKey]Backend
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{backends: make(map[registryKey]Backend)}
}

// Register makes backend available for class under kind. A later
// Register for the same (class, kind) pair replaces the earlier one.
func (d *Dispatcher) Register(class ProblemClass, kind BackendKind, backend Backend) {
	d.backends[registryKey{class, kind}] = backend
}

// Select returns the first backend registered for class among prefs,
// scanned in caller-supplied preference order (spec §4.6 "e.g., prefer
// native for large NLP, pure for small"). It returns SolverNotFound if
// none of prefs has a registered backend for class.
func (d *Dispatcher) Select(class ProblemClass, prefs []BackendKind) (Backend, error) {
	for _, kind := range prefs {
		if b, ok := d.backends[registryKey{class, kind}]; ok {
			return b, nil
		}
	}
	return nil, gaterrors.New(gaterrors.KindSolverNotFound, "no backend registered for class among preferences", map[string]any{
		"class": class.String(),
	})
}

// Package cellregistry is a process-wide catalog of named cell
// factories. A circuit builder looks a prototype up by name and gets
// back a freshly declared, independently identified cell ready for
// wiring, without either side needing to import the other's compute
// object package.
package cellregistry

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"circuitengine/cell"
)

// Factory builds a fresh compute object for a registered prototype.
// Mirrors the function-value factory idiom used to decouple an engine
// from the concrete implementations it wires at construction time.
type Factory func() cell.User

// Registry maps a prototype name to the factory that builds it.
type Registry struct {
	factories sync.Map // name string -> Factory
}

// Global is the default process-wide registry, used by callers that
// don't need an isolated catalog (most of them).
var Global = &Registry{}

// Add registers factory under name. Re-registering the same name
// replaces the previous factory, which lets a test override a
// production cell without touching the global registry's other
// entries.
func (r *Registry) Add(name string, factory Factory) {
	r.factories.Store(name, factory)
}

// Add registers factory under name in the global registry.
func Add(name string, factory Factory) { Global.Add(name, factory) }

// ErrNotRegistered is returned by Instantiate for an unknown name.
var ErrNotRegistered = fmt.Errorf("cellregistry: prototype not registered")

// Instantiate builds a new *cell.Cell from the factory registered
// under name, named "<name>-<uuid>" so two instances of the same
// prototype never collide inside one circuit. DeclareParams and
// DeclareIO are run before the cell is returned; Configure is left to
// the caller, since it may depend on parameter values the caller still
// needs to set.
func (r *Registry) Instantiate(name string) (*cell.Cell, error) {
	v, ok := r.factories.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	factory := v.(Factory)

	instanceName := fmt.Sprintf("%s-%s", name, uuid.New())
	c := cell.New(instanceName, factory())
	if err := c.DeclareParams(); err != nil {
		return nil, fmt.Errorf("cellregistry: instantiate %q: %w", name, err)
	}
	if err := c.DeclareIO(); err != nil {
		return nil, fmt.Errorf("cellregistry: instantiate %q: %w", name, err)
	}
	return c, nil
}

// Instantiate builds a new *cell.Cell from the global registry.
func Instantiate(name string) (*cell.Cell, error) { return Global.Instantiate(name) }

// Names returns the currently registered prototype names, in no
// particular order.
func (r *Registry) Names() []string {
	var out []string
	r.factories.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	return out
}

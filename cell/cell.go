// Package cell implements the processing unit of a circuit: a name, a
// user-supplied compute object, and three socket maps (parameters,
// inputs, outputs) driven through a declare/configure/process
// lifecycle by the circuit and scheduler packages.
package cell

import (
	"fmt"
	"reflect"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"circuitengine/observer"
	"circuitengine/socket"
)

// ParamDeclarer is implemented by a user compute object that declares
// configuration parameters. Optional: a compute object with no
// parameters simply doesn't implement it.
type ParamDeclarer interface {
	DeclareParams(params *socket.Map)
}

// IODeclarer is implemented by a user compute object that declares
// its inputs and outputs. Optional for compute objects with no I/O
// (rare, but the origin's test fixtures include a few).
type IODeclarer interface {
	DeclareIO(params, inputs, outputs *socket.Map)
}

// Configurer is implemented by a user compute object that reacts to
// parameter values at configure time.
type Configurer interface {
	Configure(params, inputs, outputs *socket.Map) error
}

// Processor is implemented by a user compute object that does work.
// A compute object with no Processor always returns OK and does
// nothing, matching cells.hpp fixtures that only exercise declaration.
type Processor interface {
	Process(inputs, outputs *socket.Map) (ReturnCode, error)
}

// Cell owns the three socket maps plus a user compute object and
// drives it through declare_params/declare_io/configure/process. It
// embeds observer.Observable and fires ValueChanged on every process
// call that runs and completes with OK (a call skipped by smart
// re-execution fires nothing), independent of any per-socket
// observation on its individual outputs.
type Cell struct {
	observer.Observable

	name      string
	module    string
	shortDoc  string
	tracer    trace.Tracer

	user User

	Params  *socket.Map
	Inputs  *socket.Map
	Outputs *socket.Map

	mu               sync.Mutex
	paramsDeclared   bool
	ioDeclared       bool
	lastProcessedPID int64
	lastCode         ReturnCode
	generation       int64 // incremented every completed process call, independent of pid numbering

	profile      map[Phase]bool
	microseconds map[Phase]int64 // microseconds, last profiled runPhase only
}

// User is the minimal surface cell needs from a compute object: its
// own Go type, for cloning. Any of ParamDeclarer, IODeclarer,
// Configurer, Processor may also be implemented; none are required,
// mirroring the origin's duck-typed cell definitions where
// declare_params, configure and even process are all optional.
type User interface{}

// New wraps user as a cell named name. user is typically a pointer to
// a small struct; New does not call any of its optional lifecycle
// methods.
func New(name string, user User) *Cell {
	return &Cell{
		name:         name,
		user:         user,
		Params:       socket.NewMap(),
		Inputs:       socket.NewMap(),
		Outputs:      socket.NewMap(),
		lastCode:     Unknown,
		profile:      make(map[Phase]bool),
		microseconds: make(map[Phase]int64),
	}
}

// Name returns the cell's name.
func (c *Cell) Name() string { return c.name }

// SetModule sets the module/short-doc pair used for display and
// debug-dump grouping.
func (c *Cell) SetModule(module, shortDoc string) {
	c.module = module
	c.shortDoc = shortDoc
}

// Module returns the module name and short doc set by SetModule.
func (c *Cell) Module() (module, shortDoc string) { return c.module, c.shortDoc }

// SetTracer installs an OpenTelemetry tracer used to span CONFIG and
// PROCESS phases when profiling is enabled for them. A nil tracer (the
// default) disables span emission without disabling the microsecond
// timers, matching telemetry.Operation.RunStep's nil-tracer fallback.
func (c *Cell) SetTracer(tracer trace.Tracer) { c.tracer = tracer }

// DeclareParams runs the user object's DeclareParams exactly once.
func (c *Cell) DeclareParams() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paramsDeclared {
		return fmt.Errorf("cell %q: declare params: %w", c.name, ErrAlreadyDeclared)
	}
	c.paramsDeclared = true
	if d, ok := c.user.(ParamDeclarer); ok {
		d.DeclareParams(c.Params)
	}
	return nil
}

// DeclareIO runs the user object's DeclareIO exactly once.
func (c *Cell) DeclareIO() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ioDeclared {
		return fmt.Errorf("cell %q: declare io: %w", c.name, ErrAlreadyDeclared)
	}
	c.ioDeclared = true
	if d, ok := c.user.(IODeclarer); ok {
		d.DeclareIO(c.Params, c.Inputs, c.Outputs)
	}
	return nil
}

// cloneUser returns an independent copy of c.user by allocating a new
// value of the same concrete type and copying its fields. User compute
// objects in this domain are plain structs (usually addressed through
// a pointer) with no internal pointers that need deep copying beyond
// what socket.Map.Clone already handles for declared sockets.
func cloneUser(user User) (User, error) {
	v := reflect.ValueOf(user)
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return user, nil
		}
		elem := v.Elem()
		if elem.Kind() != reflect.Struct {
			return nil, ErrNotCloneable
		}
		out := reflect.New(elem.Type())
		out.Elem().Set(elem)
		return out.Interface(), nil
	case reflect.Struct:
		return user, nil
	default:
		return nil, ErrNotCloneable
	}
}

// Clone produces a new cell of the same user type, with Params and
// Inputs values deep-copied (via socket.Map.Clone) but flags such as
// required/callbacks and token_ids not propagated — the clone's
// sockets come back as socket.Socket.Copy() snapshots, which drop
// callbacks and token_ids, and Clone then clears their required flag.
// The clone has not run configure and does not inherit profile flags.
// It keeps the prototype's declared sockets and declared state, so
// DeclareParams/DeclareIO on a clone of a declared cell return
// ErrAlreadyDeclared.
func (c *Cell) Clone() (*Cell, error) {
	c.mu.Lock()
	user := c.user
	paramsDeclared := c.paramsDeclared
	ioDeclared := c.ioDeclared
	params := c.Params
	inputs := c.Inputs
	outputs := c.Outputs
	module, shortDoc := c.module, c.shortDoc
	tracer := c.tracer
	c.mu.Unlock()

	clonedUser, err := cloneUser(user)
	if err != nil {
		return nil, fmt.Errorf("cell %q: clone: %w", c.name, err)
	}

	out := New(c.name, clonedUser)
	out.paramsDeclared = paramsDeclared
	out.ioDeclared = ioDeclared
	out.Params = params.Clone()
	out.Inputs = inputs.Clone()
	out.Outputs = outputs.Clone()
	for _, m := range []*socket.Map{out.Params, out.Inputs, out.Outputs} {
		m.Each(func(_ string, s *socket.Socket) { s.SetRequired(false) })
	}
	out.module, out.shortDoc = module, shortDoc
	out.tracer = tracer
	return out, nil
}

func (c *Cell) String() string {
	return fmt.Sprintf("cell(%s)", c.name)
}

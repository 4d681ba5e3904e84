package socket

import "sync"

// Map is an insertion-ordered collection of named sockets, used for a
// cell's parameters, inputs, and outputs. Iteration order matches
// declaration order, which the debug renderer and profiling dumps rely
// on for stable output.
type Map struct {
	mu    sync.Mutex
	names []string
	byKey map[string]*Socket
}

// NewMap returns an empty socket map.
func NewMap() *Map {
	return &Map{byKey: make(map[string]*Socket)}
}

// Declare adds a new none-typed socket under name. Declaring a name
// that already exists is always an error, whether or not the existing
// socket shares the same type: the cell-level AlreadyDeclared guard
// covers the "declare_params/declare_io already ran" case, but the map
// itself never silently reuses a name.
func (m *Map) Declare(name string) (*Socket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byKey[name]; ok {
		return nil, ErrAlreadyDeclared
	}
	s := New(name)
	m.byKey[name] = s
	m.names = append(m.names, name)
	return s, nil
}

// MustDeclare is Declare without the error return, for call sites
// (mainly tests) that know the name is fresh.
func (m *Map) MustDeclare(name string) *Socket {
	s, err := m.Declare(name)
	if err != nil {
		panic(err)
	}
	return s
}

// DeclareWithDefault declares name and gives it a default value of T,
// establishing its type immediately and writing the default as its
// current value.
func DeclareWithDefault[T any](m *Map, name string, def T) (*Socket, error) {
	s, err := m.Declare(name)
	if err != nil {
		return nil, err
	}
	typeName := typeNameOf[T]()

	s.mu.Lock()
	s.establishType(typeName)
	s.hasDefault = true
	s.defaultValue = def
	s.mu.Unlock()

	s.ResetToDefault()
	return s, nil
}

// MustDeclareWithDefault is DeclareWithDefault without the error
// return, for call sites (mainly tests) that know the name is fresh.
func MustDeclareWithDefault[T any](m *Map, name string, def T) *Socket {
	s, err := DeclareWithDefault(m, name, def)
	if err != nil {
		panic(err)
	}
	return s
}

// DeclareAlias makes alias resolve to the same *Socket as existing,
// used for a cell parameter that is also exposed under a shorter or
// legacy name.
func (m *Map) DeclareAlias(alias, existing string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byKey[existing]
	if !ok {
		return ErrKeyNotFound
	}
	if _, already := m.byKey[alias]; already {
		return ErrAlreadyDeclared
	}
	m.byKey[alias] = s
	m.names = append(m.names, alias)
	return nil
}

// Get returns the socket under name, or nil and ErrKeyNotFound.
func (m *Map) Get(name string) (*Socket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byKey[name]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return s, nil
}

// MustGet is Get without the error return, for call sites that already
// know the name was declared (typically a cell's own process method
// reading its own sockets).
func (m *Map) MustGet(name string) *Socket {
	s, err := m.Get(name)
	if err != nil {
		panic(err)
	}
	return s
}

// Names returns the declared names in declaration order.
func (m *Map) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Len returns the number of declared names, counting aliases.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.names)
}

// Each calls fn for every socket in declaration order. fn must not
// mutate the map.
func (m *Map) Each(fn func(name string, s *Socket)) {
	for _, name := range m.Names() {
		s, err := m.Get(name)
		if err != nil {
			continue
		}
		fn(name, s)
	}
}

// Clear removes every declared name and socket.
func (m *Map) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = nil
	m.byKey = make(map[string]*Socket)
}

// Clone returns a new Map with a Copy of every socket, preserving
// declaration order and aliases. Used by cell.Clone to build an
// instance's parameter/input/output maps from a prototype's.
func (m *Map) Clone() *Map {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := NewMap()
	cloned := make(map[*Socket]*Socket, len(m.byKey))
	for _, name := range m.names {
		orig := m.byKey[name]
		copySock, ok := cloned[orig]
		if !ok {
			copySock = orig.Copy()
			cloned[orig] = copySock
		}
		out.byKey[name] = copySock
		out.names = append(out.names, name)
	}
	return out
}

// Package socket implements the typed, self-describing value holders
// that cells declare as parameters, inputs, and outputs. A Socket
// establishes its dynamic type on first write and from then on only
// accepts values of that type or values reachable from it through a
// registered converter.
package socket

import (
	"fmt"
	"reflect"
	"sync"

	"circuitengine/observer"
)

// NoTokenID is the token_id a socket carries before it has ever been
// stamped by a scheduler sweep.
const NoTokenID int64 = -1

// Socket holds one named, dynamically typed value plus the bookkeeping
// a cell and a scheduler need around it: whether it has been supplied,
// whether the value changed since it was last read, and which pid last
// wrote it.
type Socket struct {
	observer.Observable

	mu   sync.Mutex
	name string
	doc  string

	typeName   string
	value      any
	hasValue   bool
	converters map[string]ConvertFunc // snapshot at establishType time

	hasDefault   bool
	defaultValue any

	dirty         bool
	touched       bool
	supplied      bool
	graphSupplied bool
	required      bool
	internalUse   bool

	tokenID int64

	updateCallback func()
	typedCallback  func(any)
}

// New returns an unestablished (none-typed) socket with the given name.
func New(name string) *Socket {
	return &Socket{name: name, tokenID: NoTokenID}
}

// Name returns the socket's declared name.
func (s *Socket) Name() string { return s.name }

// Doc returns the socket's documentation string, if any.
func (s *Socket) Doc() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// SetDoc sets the socket's documentation string.
func (s *Socket) SetDoc(doc string) {
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
}

// TypeName returns the dynamic type name this socket has established,
// or "" if it is still none-typed.
func (s *Socket) TypeName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typeName
}

// IsNone reports whether the socket has not yet established a type.
func (s *Socket) IsNone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typeName == ""
}

// IsType reports whether the socket has established exactly typeName.
func (s *Socket) IsType(typeName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typeName == typeName
}

// SameType reports whether s and other have established the same
// dynamic type. Two none-typed sockets are not considered the same
// type. Compatible, which circuit.Connect uses, does not rely on this:
// it accepts an edge when either side is still none-typed.
func (s *Socket) SameType(other *Socket) bool {
	a, b := s.TypeName(), other.TypeName()
	return a != "" && a == b
}

// establishType fixes the socket's dynamic type and snapshots its
// converter table from the process-wide registry. A socket only
// establishes its type once; later writes of the same type are no-ops
// here. Must be called with s.mu held.
func (s *Socket) establishType(typeName string) {
	if s.typeName != "" {
		return
	}
	s.typeName = typeName
	s.converters = snapshotConverters(typeName)
}

// convert attempts to produce a value of s's established type from v,
// using s's converter snapshot when v's own type doesn't already
// match. Must be called with s.mu held, after establishType.
func (s *Socket) convert(v any, fromType string) (any, error) {
	if fromType == s.typeName {
		return v, nil
	}
	fn, ok := s.converters[fromType]
	if !ok {
		return nil, &ConversionError{From: fromType, To: s.typeName, Name: s.name}
	}
	return fn(v)
}

// Dirty reports whether the dirty flag is set. SetDirty, ResetToDefault
// and Copy set it and Notify clears it; Insert, InsertFrom and SetValue
// leave it as it is.
func (s *Socket) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// SetDirty forces the dirty flag. Exposed for the scheduler's token
// propagation bookkeeping; Insert and InsertFrom never set the flag,
// so a writer that wants a socket dirty calls this explicitly.
func (s *Socket) SetDirty(dirty bool) {
	s.mu.Lock()
	s.dirty = dirty
	s.mu.Unlock()
}

// Touched reports whether Insert/InsertFrom wrote this socket since the
// last ClearTouched call, independent of whether the write actually
// changed the value or of the public Dirty flag. A cell's finishProcess
// uses this to tell which outputs it just wrote during this Process
// call, so it knows which ones to stamp with the current pid.
func (s *Socket) Touched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// ClearTouched resets the touched flag. Called once finishProcess has
// consumed it for a given process call.
func (s *Socket) ClearTouched() {
	s.mu.Lock()
	s.touched = false
	s.mu.Unlock()
}

// Supplied reports whether the socket has ever received a value,
// whether from a graph edge or a direct write.
func (s *Socket) Supplied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.supplied
}

// GraphSupplied reports whether the socket's value currently comes
// from a connected upstream edge rather than a direct write.
func (s *Socket) GraphSupplied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graphSupplied
}

// SetGraphSupplied is set by circuit.Connect/Disconnect as edges are
// attached and detached.
func (s *Socket) SetGraphSupplied(v bool) {
	s.mu.Lock()
	s.graphSupplied = v
	s.mu.Unlock()
}

// Required reports whether a cell's process call must fail with
// ErrUnsupplied when this socket is unsupplied.
func (s *Socket) Required() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.required
}

// SetRequired marks the socket as required or optional.
func (s *Socket) SetRequired(v bool) {
	s.mu.Lock()
	s.required = v
	s.mu.Unlock()
}

// InternalUse reports whether the socket is marked internal-use (a
// parameter meant only for configure, not for edges). circuit.Connect
// does not check this flag.
func (s *Socket) InternalUse() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.internalUse
}

// SetInternalUse marks the socket as internal-use-only or not.
func (s *Socket) SetInternalUse(v bool) {
	s.mu.Lock()
	s.internalUse = v
	s.mu.Unlock()
}

// HasDefault reports whether ResetToDefault has a value to restore.
func (s *Socket) HasDefault() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasDefault
}

// TokenID returns the pid that last wrote this socket's value, or
// NoTokenID if it has never been stamped.
func (s *Socket) TokenID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenID
}

// SetTokenID stamps the socket with the given pid.
func (s *Socket) SetTokenID(id int64) {
	s.mu.Lock()
	s.tokenID = id
	s.mu.Unlock()
}

// ResetToDefault restores the socket's default value, if one was
// declared, and marks it dirty, touched, and supplied. It is a no-op
// if the socket was declared without a default.
func (s *Socket) ResetToDefault() {
	s.mu.Lock()
	if !s.hasDefault {
		s.mu.Unlock()
		return
	}
	s.value = s.defaultValue
	s.hasValue = true
	s.dirty = true
	s.touched = true
	s.supplied = true
	s.tokenID = NoTokenID
	s.mu.Unlock()
}

// SetUpdateCallback installs a callback invoked after every successful
// write that actually changes the socket's value (by reflect.DeepEqual).
// Only one update callback is held; installing a new one replaces the
// old.
func (s *Socket) SetUpdateCallback(fn func()) {
	s.mu.Lock()
	s.updateCallback = fn
	s.mu.Unlock()
}

// SetTypedCallback installs a callback invoked with the new value after
// every successful write that actually changes the socket's value,
// typed as the socket's established dynamic type (any). Only one typed
// callback is held.
func (s *Socket) SetTypedCallback(fn func(any)) {
	s.mu.Lock()
	s.typedCallback = fn
	s.mu.Unlock()
}

// Notify flushes the dirty flag and, if it was set, fires the
// observer.ValueChanged event to attached observers. cell.Cell calls
// this on each of its inputs and outputs after every process call that
// completes with OK.
func (s *Socket) Notify() {
	s.mu.Lock()
	wasDirty := s.dirty
	s.dirty = false
	s.mu.Unlock()

	if wasDirty {
		s.Observable.Notify(observer.ValueChanged)
	}
}

// Copy produces a fresh socket with the same name, doc, type, value,
// default, and required/internal-use flags as s. It does not carry
// over observers, callbacks, dirty/supplied/graph-supplied state, or
// token_id: a clone starts life as if freshly declared and written
// once, matching the cell prototype/instance split described for
// cell.Clone.
func (s *Socket) Copy() *Socket {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := New(s.name)
	out.doc = s.doc
	out.typeName = s.typeName
	out.converters = s.converters
	out.value = s.value
	out.hasValue = s.hasValue
	out.hasDefault = s.hasDefault
	out.defaultValue = s.defaultValue
	out.required = s.required
	out.internalUse = s.internalUse
	if out.hasValue {
		out.supplied = true
		out.dirty = true
		out.touched = true
	}
	return out
}

// Compatible reports whether dst could accept a value currently held
// by src: either side hasn't established a type yet (dst would adopt
// src's), they already share a type, or the registry holds a
// src-type-to-dst-type converter.
func Compatible(dst, src *Socket) bool {
	if dst.IsNone() || src.IsNone() {
		return true
	}
	if dst.SameType(src) {
		return true
	}
	return HasConverter(src.TypeName(), dst.TypeName())
}

func (s *Socket) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.typeName == "" {
		return fmt.Sprintf("socket(%s, none)", s.name)
	}
	return fmt.Sprintf("socket(%s, %s=%v)", s.name, s.typeName, s.value)
}

// valueEqual compares two raw values with reflect.DeepEqual, guarding
// against the case where one side is nil.
func valueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}

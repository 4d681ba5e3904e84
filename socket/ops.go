package socket

import "circuitengine/observer"

// Insert establishes dst's type from T on first use, converts v if dst
// already has a different established type, and writes the result.
// This is the `dst << v` operator from the origin: it resets dst's
// token_id to NoTokenID (the value did not arrive via a graph sweep)
// and marks dst supplied, but leaves dirty untouched — per
// test_cellsocket.hpp's Dirtiness case, insertion alone never makes a
// socket dirty. Callers that need the dirty flag set (the scheduler's
// token sweep) call SetDirty explicitly. It fires the update and typed
// callbacks itself when the value changes; observers only see a
// ValueChanged event when the cell layer later calls Notify on a dirty
// socket. A bare ForeignPointer written into a none-typed socket
// establishes the Foreign type and is stored wrapped.
func Insert[T any](dst *Socket, v T) error {
	typeName := typeNameOf[T]()

	dst.mu.Lock()
	if _, ok := any(v).(ForeignPointer); ok {
		dst.establishType(foreignTypeName)
	}
	dst.establishType(typeName)
	converted, err := dst.convert(any(v), typeName)
	if err != nil {
		dst.mu.Unlock()
		return err
	}
	changed := !dst.hasValue || !valueEqual(dst.value, converted)
	dst.value = converted
	dst.hasValue = true
	dst.supplied = true
	dst.touched = true
	dst.tokenID = NoTokenID
	updateCB := dst.updateCallback
	typedCB := dst.typedCallback
	dst.mu.Unlock()

	if changed {
		if updateCB != nil {
			updateCB()
		}
		if typedCB != nil {
			typedCB(converted)
		}
	}
	return nil
}

// InsertFrom writes dst from src's current value, converting between
// their established types if needed, and copies src's token_id onto
// dst. This is the `dst << src` operator used when a connected edge
// propagates a value during a scheduler sweep. Like Insert, it leaves
// dst's dirty flag untouched; the scheduler sets it explicitly after a
// sweep propagation.
func InsertFrom(dst, src *Socket) error {
	src.mu.Lock()
	if !src.hasValue {
		src.mu.Unlock()
		return ErrNotInitialized
	}
	srcType := src.typeName
	srcValue := src.value
	srcToken := src.tokenID
	src.mu.Unlock()

	dst.mu.Lock()
	dst.establishType(srcType)
	converted, err := dst.convert(srcValue, srcType)
	if err != nil {
		dst.mu.Unlock()
		return err
	}
	changed := !dst.hasValue || !valueEqual(dst.value, converted)
	dst.value = converted
	dst.hasValue = true
	dst.supplied = true
	dst.touched = true
	dst.tokenID = srcToken
	updateCB := dst.updateCallback
	typedCB := dst.typedCallback
	dst.mu.Unlock()

	if changed {
		if updateCB != nil {
			updateCB()
		}
		if typedCB != nil {
			typedCB(converted)
		}
	}
	return nil
}

// Extract is InsertFrom with its operands reversed, matching the
// origin's `src >> dst` extraction operator. The origin gives extract
// handle-specific overload behavior that none of this package's
// invariants distinguish from a plain reverse insert, so Extract is
// implemented directly in terms of InsertFrom.
func Extract(src, dst *Socket) error {
	return InsertFrom(dst, src)
}

// Assign copies dst's bookkeeping (type, value, default, dirty,
// supplied, token_id) from src but preserves dst's own observer list
// and callbacks. This is the `dst = src` operator: unlike Insert it
// does not fire update/typed callbacks, since the origin's assignment
// operator is a structural copy rather than a value write users
// observe.
func Assign(dst, src *Socket) {
	src.mu.Lock()
	typeName := src.typeName
	converters := src.converters
	value := src.value
	hasValue := src.hasValue
	hasDefault := src.hasDefault
	defaultValue := src.defaultValue
	dirty := src.dirty
	supplied := src.supplied
	tokenID := src.tokenID
	src.mu.Unlock()

	dst.mu.Lock()
	dst.typeName = typeName
	dst.converters = converters
	dst.value = value
	dst.hasValue = hasValue
	dst.hasDefault = hasDefault
	dst.defaultValue = defaultValue
	dst.dirty = dirty
	dst.supplied = supplied
	dst.tokenID = tokenID
	dst.mu.Unlock()
}

// SetValue writes v into dst in place without disturbing dst's
// token_id or dirty flag. It marks dst supplied. This mirrors the
// origin's "assignment to an already-bound reference" path used by a
// cell writing into its own previously-declared output across
// successive process calls within the same sweep.
func SetValue[T any](dst *Socket, v T) error {
	typeName := typeNameOf[T]()

	dst.mu.Lock()
	dst.establishType(typeName)
	converted, err := dst.convert(any(v), typeName)
	if err != nil {
		dst.mu.Unlock()
		return err
	}
	changed := !dst.hasValue || !valueEqual(dst.value, converted)
	dst.value = converted
	dst.hasValue = true
	dst.supplied = true
	updateCB := dst.updateCallback
	typedCB := dst.typedCallback
	dst.mu.Unlock()

	if changed {
		if updateCB != nil {
			updateCB()
		}
		if typedCB != nil {
			typedCB(converted)
		}
	}
	return nil
}

// Get reads src's value converted to T, establishing nothing: src must
// already hold a value. Returns ErrNotInitialized if src is empty, or
// a *ConversionError if T isn't reachable from src's established type.
func Get[T any](src *Socket) (T, error) {
	var zero T
	typeName := typeNameOf[T]()

	src.mu.Lock()
	defer src.mu.Unlock()
	if !src.hasValue {
		return zero, ErrNotInitialized
	}
	if src.typeName == typeName {
		v, ok := src.value.(T)
		if !ok {
			return zero, &ConversionError{From: src.typeName, To: typeName, Name: src.name}
		}
		return v, nil
	}
	// Reading as a different type than the one established: look for a
	// converter on the requested type's own registry entry that
	// accepts src's established type.
	converters := snapshotConverters(typeName)
	fn, ok := converters[src.typeName]
	if !ok {
		return zero, &ConversionError{From: src.typeName, To: typeName, Name: src.name}
	}
	converted, err := fn(src.value)
	if err != nil {
		return zero, err
	}
	v, ok := converted.(T)
	if !ok {
		return zero, &ConversionError{From: src.typeName, To: typeName, Name: src.name}
	}
	return v, nil
}

// notifyConnected fires the observer.Connected event; used by
// circuit.Connect after wiring an edge.
func notifyConnected(s *Socket) { s.Observable.Notify(observer.Connected) }

// notifyDisconnected fires the observer.Disconnected event; used by
// circuit.Disconnect after tearing down an edge.
func notifyDisconnected(s *Socket) { s.Observable.Notify(observer.Disconnected) }

// NotifyConnected is the exported form of notifyConnected for the
// circuit package.
func NotifyConnected(s *Socket) { notifyConnected(s) }

// NotifyDisconnected is the exported form of notifyDisconnected for the
// circuit package.
func NotifyDisconnected(s *Socket) { notifyDisconnected(s) }

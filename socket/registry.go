package socket

import (
	"reflect"
	"sort"
	"sync"

	"golang.org/x/exp/maps"
)

// ConvertFunc converts a value of some source type into the type that
// owns the converter. It returns ErrTypeMismatch (or a *ConversionError)
// when the specific payload can't be converted, even if the type pair
// is generally convertible (e.g. a Foreign list where a float64 is
// wanted).
type ConvertFunc func(src any) (any, error)

// typeInfo is the process-wide record for one socket type: the set of
// converters that can produce a value of this type from some other
// type. Publication is one-time per type name; the converters map is
// a sync.Map so lookups never take a lock once a type is known.
type typeInfo struct {
	typeName   string
	converters sync.Map // fromTypeName(string) -> ConvertFunc
}

var typeRegistry sync.Map // typeName(string) -> *typeInfo

// registerType returns the typeInfo for typeName, creating and
// publishing it on first use. Safe for concurrent callers.
func registerType(typeName string) *typeInfo {
	if v, ok := typeRegistry.Load(typeName); ok {
		return v.(*typeInfo)
	}
	ti := &typeInfo{typeName: typeName}
	actual, _ := typeRegistry.LoadOrStore(typeName, ti)
	return actual.(*typeInfo)
}

// RegisterConverter installs a converter from fromType into toType in
// the process-wide type registry. Sockets that establish toType after
// this call see the converter; sockets that already established
// toType do not, since a socket's converter table is a snapshot taken
// at the moment its type is established (see establishType).
func RegisterConverter(fromType, toType string, fn ConvertFunc) {
	registerType(toType).converters.Store(fromType, fn)
}

// HasConverter reports whether the registry holds a converter that
// turns a value of fromType into toType, without running it. Used by
// circuit.Connect to type-check an edge before any value ever crosses
// it.
func HasConverter(fromType, toType string) bool {
	if fromType == toType {
		return true
	}
	v, ok := typeRegistry.Load(toType)
	if !ok {
		return false
	}
	_, ok = v.(*typeInfo).converters.Load(fromType)
	return ok
}

// Types returns the names of every type that has been established by
// at least one socket or registered converter, sorted for stable
// debug output.
func Types() []string {
	names := make([]string, 0)
	typeRegistry.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	sort.Strings(names)
	return names
}

// typeNameOf derives the dynamic type identity used throughout this
// package from a Go type parameter.
func typeNameOf[T any]() string {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		// T is an interface type instantiated with a nil value; fall
		// back to the static interface name.
		t = reflect.TypeOf((*T)(nil)).Elem()
	}
	return t.String()
}

// snapshotConverters copies the registry's current converter table for
// typeName into a plain map, establishing the type if this is the
// first socket of this type.
func snapshotConverters(typeName string) map[string]ConvertFunc {
	ti := registerType(typeName)
	out := make(map[string]ConvertFunc)
	ti.converters.Range(func(k, v any) bool {
		out[k.(string)] = v.(ConvertFunc)
		return true
	})
	return out
}

// registeredTypeNames is a debug helper mirroring the teacher pack's
// use of golang.org/x/exp/maps for deterministic map-key dumps.
func registeredTypeNames(m map[string]ConvertFunc) []string {
	keys := maps.Keys(m)
	sort.Strings(keys)
	return keys
}

// ConvertersFrom returns the sorted names of every type that has a
// registered converter into toType, for debug dumps of the type
// registry (circuitctl's "types" command).
func ConvertersFrom(toType string) []string {
	return registeredTypeNames(snapshotConverters(toType))
}

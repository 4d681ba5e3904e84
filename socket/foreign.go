package socket

import "fmt"

// ForeignKind identifies the dynamic shape held inside a Foreign value.
// Foreign stands in for the "generic object belonging to some other
// language's runtime" socket type described for cells that interoperate
// with a scripting host: this package never embeds a scripting engine,
// it only carries values shaped the way one would hand them across.
type ForeignKind int

const (
	ForeignNone ForeignKind = iota
	ForeignBool
	ForeignInt
	ForeignFloat
	ForeignString
	ForeignList
	ForeignPtr
)

func (k ForeignKind) String() string {
	switch k {
	case ForeignNone:
		return "none"
	case ForeignBool:
		return "bool"
	case ForeignInt:
		return "int"
	case ForeignFloat:
		return "float"
	case ForeignString:
		return "string"
	case ForeignList:
		return "list"
	case ForeignPtr:
		return "pointer"
	default:
		return "unknown"
	}
}

// Foreign is the socket payload used at the boundary with a foreign
// object system: a tagged union over the handful of shapes such
// boundaries actually need to pass. TypeName "socket.Foreign" is
// established in the registry with converters to and from every
// primitive kind below, so a cell can insert a plain bool/int64/
// float64/string into a Foreign-typed input and extract one back out.
type Foreign struct {
	Kind   ForeignKind
	Bool   bool
	Int    int64
	Float  float64
	String string
	List   []Foreign
	Ptr    any // ForeignPtr payload, opaque to this package
}

// ForeignPointer wraps a raw pointer handed across the foreign
// boundary. Insert recognizes a bare ForeignPointer and wraps it as a
// ForeignPtr-kind Foreign automatically.
type ForeignPointer struct {
	Value any
}

func (f Foreign) String_() string {
	switch f.Kind {
	case ForeignBool:
		return fmt.Sprintf("%v", f.Bool)
	case ForeignInt:
		return fmt.Sprintf("%d", f.Int)
	case ForeignFloat:
		return fmt.Sprintf("%g", f.Float)
	case ForeignString:
		return f.String
	case ForeignList:
		return fmt.Sprintf("list[%d]", len(f.List))
	case ForeignPtr:
		return fmt.Sprintf("ptr(%T)", f.Ptr)
	default:
		return "none"
	}
}

const foreignTypeName = "socket.Foreign"

func init() {
	RegisterConverter(typeNameOf[bool](), foreignTypeName, func(src any) (any, error) {
		return Foreign{Kind: ForeignBool, Bool: src.(bool)}, nil
	})
	RegisterConverter(typeNameOf[int64](), foreignTypeName, func(src any) (any, error) {
		return Foreign{Kind: ForeignInt, Int: src.(int64)}, nil
	})
	RegisterConverter(typeNameOf[float64](), foreignTypeName, func(src any) (any, error) {
		return Foreign{Kind: ForeignFloat, Float: src.(float64)}, nil
	})
	RegisterConverter(typeNameOf[string](), foreignTypeName, func(src any) (any, error) {
		return Foreign{Kind: ForeignString, String: src.(string)}, nil
	})
	RegisterConverter(typeNameOf[ForeignPointer](), foreignTypeName, func(src any) (any, error) {
		return Foreign{Kind: ForeignPtr, Ptr: src.(ForeignPointer).Value}, nil
	})

	RegisterConverter(foreignTypeName, typeNameOf[bool](), func(src any) (any, error) {
		f := src.(Foreign)
		if f.Kind != ForeignBool {
			return nil, &ConversionError{From: foreignTypeName, To: "bool"}
		}
		return f.Bool, nil
	})
	RegisterConverter(foreignTypeName, typeNameOf[int64](), func(src any) (any, error) {
		f := src.(Foreign)
		if f.Kind != ForeignInt {
			return nil, &ConversionError{From: foreignTypeName, To: "int64"}
		}
		return f.Int, nil
	})
	RegisterConverter(foreignTypeName, typeNameOf[float64](), func(src any) (any, error) {
		f := src.(Foreign)
		if f.Kind != ForeignFloat {
			return nil, &ConversionError{From: foreignTypeName, To: "float64"}
		}
		return f.Float, nil
	})
	RegisterConverter(foreignTypeName, typeNameOf[string](), func(src any) (any, error) {
		f := src.(Foreign)
		if f.Kind != ForeignString {
			return nil, &ConversionError{From: foreignTypeName, To: "string"}
		}
		return f.String, nil
	})
}

package ctype

// Primitive is a scalar from the fixed catalog.
type Primitive struct {
	// Name is the canonical catalog name ("int", "ulonglong", "ubyte").
	Name string
	// Go is the Go spelling used in generated code; empty for void.
	Go string
	// FFI names the libffi type descriptor (ffi.TypeSint32, ...).
	FFI    string
	Size   int
	Signed bool
	Float  bool
}

func (p *Primitive) Kind() Kind     { return KindPrimitive }
func (p *Primitive) String() string { return p.Name }

// IsVoid reports whether p is the void marker.
func (p *Primitive) IsVoid() bool { return p.Size == 0 }

// IsInteger reports whether p is an integer type (bool and char included).
func (p *Primitive) IsInteger() bool { return p.Size > 0 && !p.Float }

var (
	Void      = &Primitive{Name: "void", FFI: "TypeVoid"}
	Bool      = &Primitive{Name: "bool", Go: "bool", FFI: "TypeUint8", Size: 1}
	Char      = &Primitive{Name: "char", Go: "byte", FFI: "TypeSint8", Size: 1, Signed: true}
	WChar     = &Primitive{Name: "wchar", Go: "int32", FFI: "TypeSint32", Size: 4, Signed: true}
	Byte      = &Primitive{Name: "byte", Go: "int8", FFI: "TypeSint8", Size: 1, Signed: true}
	UByte     = &Primitive{Name: "ubyte", Go: "uint8", FFI: "TypeUint8", Size: 1}
	Short     = &Primitive{Name: "short", Go: "int16", FFI: "TypeSint16", Size: 2, Signed: true}
	UShort    = &Primitive{Name: "ushort", Go: "uint16", FFI: "TypeUint16", Size: 2}
	Int       = &Primitive{Name: "int", Go: "int32", FFI: "TypeSint32", Size: 4, Signed: true}
	UInt      = &Primitive{Name: "uint", Go: "uint32", FFI: "TypeUint32", Size: 4}
	Long      = &Primitive{Name: "long", Go: "int64", FFI: "TypeSint64", Size: 8, Signed: true}
	ULong     = &Primitive{Name: "ulong", Go: "uint64", FFI: "TypeUint64", Size: 8}
	LongLong  = &Primitive{Name: "longlong", Go: "int64", FFI: "TypeSint64", Size: 8, Signed: true}
	ULongLong = &Primitive{Name: "ulonglong", Go: "uint64", FFI: "TypeUint64", Size: 8}
	Float     = &Primitive{Name: "float", Go: "float32", FFI: "TypeFloat", Size: 4, Signed: true, Float: true}
	Double    = &Primitive{Name: "double", Go: "float64", FFI: "TypeDouble", Size: 8, Signed: true, Float: true}
	Int8      = &Primitive{Name: "int8", Go: "int8", FFI: "TypeSint8", Size: 1, Signed: true}
	UInt8     = &Primitive{Name: "uint8", Go: "uint8", FFI: "TypeUint8", Size: 1}
	Int16     = &Primitive{Name: "int16", Go: "int16", FFI: "TypeSint16", Size: 2, Signed: true}
	UInt16    = &Primitive{Name: "uint16", Go: "uint16", FFI: "TypeUint16", Size: 2}
	Int32     = &Primitive{Name: "int32", Go: "int32", FFI: "TypeSint32", Size: 4, Signed: true}
	UInt32    = &Primitive{Name: "uint32", Go: "uint32", FFI: "TypeUint32", Size: 4}
	Int64     = &Primitive{Name: "int64", Go: "int64", FFI: "TypeSint64", Size: 8, Signed: true}
	UInt64    = &Primitive{Name: "uint64", Go: "uint64", FFI: "TypeUint64", Size: 8}
)

// LongDouble has no Go counterpart; values travel as their raw x86-64 bytes.
var LongDouble = &Primitive{Name: "longdouble", Go: "[16]byte", FFI: "TypeLongdouble", Size: 16, Signed: true, Float: true}

// catalog order is the order Primitives reports and the emitter seeds.
var catalog = []*Primitive{
	Void, Bool, Char, WChar, Byte, UByte,
	Short, UShort, Int, UInt, Long, ULong, LongLong, ULongLong,
	Float, Double, LongDouble,
	Int8, UInt8, Int16, UInt16, Int32, UInt32, Int64, UInt64,
}

var byName = func() map[string]*Primitive {
	m := make(map[string]*Primitive, len(catalog))
	for _, p := range catalog {
		m[p.Name] = p
	}
	return m
}()

// Lookup finds a primitive by canonical catalog name.
func Lookup(name string) (*Primitive, bool) {
	p, ok := byName[name]
	return p, ok
}

// Primitives returns the whole catalog in a stable order.
func Primitives() []*Primitive {
	return append([]*Primitive(nil), catalog...)
}

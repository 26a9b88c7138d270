package parser

// Kind classifies a node of the declaration graph.
type Kind int

const (
	KindUnsupported Kind = iota
	KindFundamental
	KindPointer
	KindArray
	KindCvQualified
	KindElaborated
	KindFunctionType
	KindTypedef
	KindStruct
	KindUnion
	KindEnumeration
	KindFunction
	KindVariable
	KindField
	KindNamespace
)

// elementKinds maps castxml/gccxml element names onto node kinds.
var elementKinds = map[string]Kind{
	"FundamentalType": KindFundamental,
	"PointerType":     KindPointer,
	"ReferenceType":   KindPointer,
	"ArrayType":       KindArray,
	"CvQualifiedType": KindCvQualified,
	"ElaboratedType":  KindElaborated,
	"FunctionType":    KindFunctionType,
	"Typedef":         KindTypedef,
	"Struct":          KindStruct,
	"Class":           KindStruct,
	"Union":           KindUnion,
	"Enumeration":     KindEnumeration,
	"Function":        KindFunction,
	"Variable":        KindVariable,
	"Field":           KindField,
	"Namespace":       KindNamespace,
}

// Node is one element of the foreign declaration graph. ID is the arena
// index assigned on first sight and is the node's identity.
type Node struct {
	ID      int
	Kind    Kind
	Element string
	Name    string

	// File is the name of the source file the declaration comes from.
	File       string
	Artificial bool

	// Type is the pointee, element, underlying, field or variable type.
	Type *Node

	// Function and FunctionType.
	Returns  *Node
	Args     []Arg
	Variadic bool

	// ArrayType: Max is the highest index, empty for an unsized array.
	Max string

	// Struct and Union.
	Fields     []*Node
	Incomplete bool
	Size       int // bits
	Align      int // bits

	// Field.
	Bits int

	// Enumeration.
	Values []EnumValue
}

// Arg is a function or function type argument.
type Arg struct {
	Name    string
	Type    *Node
	Default string
}

// EnumValue is one enumerator with its initializer.
type EnumValue struct {
	Name string
	Init int64
}

// Header is a decoded declaration graph: every node in arena order plus
// the top-level declarations of the global namespace in source order.
type Header struct {
	Nodes []*Node
	Decls []*Node
}

// BuiltinFile is the file name castxml reports for compiler builtins.
const BuiltinFile = "<builtin>"

// FundamentalSpellings are the fundamental type names castxml reports.
var FundamentalSpellings = []string{
	"void",
	"bool",
	"_Bool",
	"char",
	"signed char",
	"unsigned char",
	"wchar_t",
	"char16_t",
	"char32_t",
	"short int",
	"short unsigned int",
	"int",
	"unsigned int",
	"long int",
	"long unsigned int",
	"long long int",
	"long long unsigned int",
	"__int128",
	"unsigned __int128",
	"float",
	"double",
	"long double",
	"__float128",
	"int8_t",
	"uint8_t",
	"int16_t",
	"uint16_t",
	"int32_t",
	"uint32_t",
	"int64_t",
	"uint64_t",
}

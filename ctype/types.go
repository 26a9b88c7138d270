// Package ctype is the closed catalog of native type shapes the binding
// generator builds and consumes: primitives, pointers, fixed arrays,
// function signatures, callable pointers, records, enumerations, aliases
// and multi-base composites.
//
// Pointer, Array, Signature and FuncPtr are structural: two calls build two
// distinct but equal values. Record, Enum, Alias and Composite carry an
// identity of their own, so callers compare them by pointer.
package ctype

import (
	"fmt"
	"strings"

	"github.com/ardanlabs/ffi-bindgen/errors"
)

// Kind identifies the shape of a Type.
type Kind int

const (
	KindPrimitive Kind = iota
	KindPointer
	KindArray
	KindSignature
	KindFuncPtr
	KindRecord
	KindEnum
	KindAlias
	KindComposite
)

var kindNames = [...]string{
	KindPrimitive: "primitive",
	KindPointer:   "pointer",
	KindArray:     "array",
	KindSignature: "signature",
	KindFuncPtr:   "function pointer",
	KindRecord:    "record",
	KindEnum:      "enumeration",
	KindAlias:     "alias",
	KindComposite: "composite",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Type is implemented by every member of the catalog.
type Type interface {
	Kind() Kind
	String() string
}

// Pointer is a pointer to Elem.
type Pointer struct {
	Elem Type
}

// PointerTo always returns a fresh pointer; pointers are not memoized.
func PointerTo(elem Type) *Pointer {
	return &Pointer{Elem: elem}
}

func (p *Pointer) Kind() Kind     { return KindPointer }
func (p *Pointer) String() string { return "*" + p.Elem.String() }

// Array is a fixed-length array. Len 0 is a flexible array member.
type Array struct {
	Elem Type
	Len  int
}

// ArrayOf builds an array of n elements.
func ArrayOf(elem Type, n int) (*Array, error) {
	if n < 0 {
		return nil, errors.Newf("array of %s: negative length %d", elem, n)
	}
	return &Array{Elem: elem, Len: n}, nil
}

func (a *Array) Kind() Kind     { return KindArray }
func (a *Array) String() string { return fmt.Sprintf("[%d]%s", a.Len, a.Elem) }

// Param is one named, typed parameter of a Signature.
type Param struct {
	Name string
	Type Type
}

// Signature is an ordered parameter list plus a return type.
type Signature struct {
	Params   []Param
	Returns  Type
	Variadic bool
}

// NewSignature names every unnamed parameter after its position (_0, _1, ...).
func NewSignature(params []Param, returns Type) *Signature {
	named := make([]Param, len(params))
	for i, p := range params {
		if p.Name == "" {
			p.Name = fmt.Sprintf("_%d", i)
		}
		named[i] = p
	}
	return &Signature{Params: named, Returns: returns}
}

func (s *Signature) Kind() Kind { return KindSignature }

func (s *Signature) String() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.Name + " " + p.Type.String()
	}
	if s.Variadic {
		parts = append(parts, "...")
	}
	return fmt.Sprintf("func(%s) %s", strings.Join(parts, ", "), s.Returns)
}

// FuncPtr is the callable-pointer form of a Signature. Bare function types
// only ever appear where a function pointer is expected.
type FuncPtr struct {
	Sig *Signature
}

func (f *FuncPtr) Kind() Kind     { return KindFuncPtr }
func (f *FuncPtr) String() string { return "*" + f.Sig.String() }

// Field is a named record member.
type Field struct {
	Name string
	Type Type
}

// Record is a struct (or union) aggregate with ordered fields.
type Record struct {
	Name       string
	Fields     []Field
	Incomplete bool
	Union      bool
	// Size and Align in bytes as reported by the front end; only unions
	// rely on them.
	Size  int
	Align int
}

func (r *Record) Kind() Kind     { return KindRecord }
func (r *Record) String() string { return r.Name }

// Alias is a typedef: a second, distinct name for Base.
type Alias struct {
	Name string
	Base Type
}

func (a *Alias) Kind() Kind     { return KindAlias }
func (a *Alias) String() string { return a.Name }

// Composite shares the representation of several named bases without
// listing fields of its own.
type Composite struct {
	Name  string
	Bases []Type
}

// Inherit builds a Composite over bases.
func Inherit(name string, bases ...Type) *Composite {
	return &Composite{Name: name, Bases: append([]Type(nil), bases...)}
}

func (c *Composite) Kind() Kind     { return KindComposite }
func (c *Composite) String() string { return c.Name }

// Underlying strips any chain of aliases.
func Underlying(t Type) Type {
	for {
		a, ok := t.(*Alias)
		if !ok {
			return t
		}
		t = a.Base
	}
}

// Name returns the declared name of an identity-bearing type.
func Name(t Type) (string, bool) {
	switch t := t.(type) {
	case *Record:
		return t.Name, true
	case *Enum:
		return t.Name, true
	case *Alias:
		return t.Name, true
	case *Composite:
		return t.Name, true
	}
	return "", false
}

// Walk calls fn for t and every type reachable from it, each once. Returning
// false from fn stops descent below that type.
func Walk(t Type, fn func(Type) bool) {
	seen := make(map[Type]bool)
	var visit func(Type)
	visit = func(t Type) {
		if t == nil || seen[t] {
			return
		}
		seen[t] = true
		if !fn(t) {
			return
		}
		switch t := t.(type) {
		case *Pointer:
			visit(t.Elem)
		case *Array:
			visit(t.Elem)
		case *Signature:
			for _, p := range t.Params {
				visit(p.Type)
			}
			visit(t.Returns)
		case *FuncPtr:
			visit(t.Sig)
		case *Record:
			for _, f := range t.Fields {
				visit(f.Type)
			}
		case *Alias:
			visit(t.Base)
		case *Composite:
			for _, b := range t.Bases {
				visit(b)
			}
		}
	}
	visit(t)
}

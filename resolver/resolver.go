// Package resolver turns a declaration graph into the tables the emitter
// consumes: a TypeTable memoized on declaration identity, a FunctionTable
// and, through ResolveConstants, a ConstantTable.
package resolver

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ardanlabs/ffi-bindgen/ctype"
	"github.com/ardanlabs/ffi-bindgen/errors"
	"github.com/ardanlabs/ffi-bindgen/logger"
	"github.com/ardanlabs/ffi-bindgen/parser"
)

// UnsupportedTypeError names a declaration kind with no native counterpart.
type UnsupportedTypeError struct {
	Kind string
	Name string
}

func (e *UnsupportedTypeError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("unsupported type kind %s", e.Kind)
	}
	return fmt.Sprintf("unsupported type kind %s (%s)", e.Kind, e.Name)
}

// Resolver translates declaration graph nodes into native types.
type Resolver struct {
	Types *TypeTable
	Funcs *FunctionTable

	fundamentals map[string]*ctype.Primitive
	// tags maps "struct foo"/"union foo" to the declaration that first
	// introduced the tag.
	tags map[string]int
	log  *zap.SugaredLogger
}

func New() *Resolver {
	return &Resolver{
		Types:        NewTypeTable(),
		Funcs:        NewFunctionTable(),
		fundamentals: fundamentalTable(),
		tags:         make(map[string]int),
		log:          logger.Named("resolver"),
	}
}

// NormalizeFundamental maps a C fundamental type spelling onto a catalog
// name: "long unsigned int" -> "ulong", "short int" -> "short",
// "uint32_t" -> "uint32". Spellings reserved to the implementation map to "".
func NormalizeFundamental(spelling string) string {
	spelling = strings.Join(strings.Fields(spelling), " ")
	if strings.HasPrefix(spelling, "__") || strings.Contains(spelling, " __") {
		return ""
	}
	switch spelling {
	case "_Bool":
		return "bool"
	case "signed char":
		return "byte"
	case "unsigned", "unsigned int":
		return "uint"
	case "signed", "signed int":
		return "int"
	}

	prefix := ""
	if strings.Contains(spelling, "unsigned") {
		prefix = "u"
	}
	key := spelling
	key = strings.ReplaceAll(key, "unsigned ", "")
	key = strings.ReplaceAll(key, " unsigned", "")
	key = strings.ReplaceAll(key, "signed ", "")
	key = strings.ReplaceAll(key, "long int", "long")
	key = strings.ReplaceAll(key, "long ", "long")
	key = strings.ReplaceAll(key, "short int", "short")
	key = strings.ReplaceAll(key, "_t", "")
	return prefix + key
}

func fundamentalTable() map[string]*ctype.Primitive {
	table := make(map[string]*ctype.Primitive, len(parser.FundamentalSpellings))
	for _, spelling := range parser.FundamentalSpellings {
		if p, ok := ctype.Lookup(NormalizeFundamental(spelling)); ok {
			table[spelling] = p
		}
	}
	table["unsigned char"] = ctype.UByte
	return table
}

// Fundamental returns the primitive for a spelling of a C fundamental type.
func (r *Resolver) Fundamental(spelling string) (*ctype.Primitive, bool) {
	if p, ok := r.fundamentals[spelling]; ok {
		return p, true
	}
	if strings.Join(strings.Fields(spelling), " ") == "unsigned char" {
		return ctype.UByte, true
	}
	return ctype.Lookup(NormalizeFundamental(spelling))
}

// Process resolves every top-level declaration of h in order. Builtin and
// artificial declarations are skipped.
func (r *Resolver) Process(h *parser.Header) error {
	for _, d := range h.Decls {
		if d.File == parser.BuiltinFile || d.Artificial {
			r.log.Debugw("Skipping declaration", "name", d.Name, "file", d.File, "artificial", d.Artificial)
			continue
		}
		if _, err := r.Resolve(d); err != nil {
			return errors.Wrapf(err, "resolving %s %s", d.Element, d.Name)
		}
	}

	r.log.Infow("Resolved declarations",
		"types", r.Types.Len(),
		"functions", r.Funcs.Len())
	return nil
}

// Resolve returns the native type for n. Declarations are memoized on
// their arena id; pointers and arrays are rebuilt on every call.
func (r *Resolver) Resolve(n *parser.Node) (ctype.Type, error) {
	if n == nil {
		return nil, errors.New("missing type reference")
	}

	switch n.Kind {
	case parser.KindCvQualified, parser.KindElaborated:
		return r.Resolve(n.Type)

	case parser.KindPointer:
		if target := unqualified(n.Type); target != nil && target.Kind == parser.KindFunctionType {
			return r.funcPtr(target)
		}
		elem, err := r.Resolve(n.Type)
		if err != nil {
			return nil, err
		}
		return ctype.PointerTo(elem), nil

	case parser.KindArray:
		return r.array(n)

	case parser.KindFunctionType:
		return r.funcPtr(n)

	case parser.KindFundamental:
		if p, ok := r.fundamentals[n.Name]; ok {
			return p, nil
		}
		return nil, errors.WithStack(&UnsupportedTypeError{Kind: n.Element, Name: n.Name})
	}

	if t, ok := r.Types.Get(n.ID); ok {
		if rec, isRecord := t.(*ctype.Record); isRecord && rec.Incomplete && !n.Incomplete {
			return r.record(n)
		}
		return t, nil
	}

	switch n.Kind {
	case parser.KindTypedef:
		return r.typedef(n)
	case parser.KindStruct, parser.KindUnion:
		return r.record(n)
	case parser.KindEnumeration:
		return r.enum(n)
	case parser.KindFunction:
		return r.function(n)
	}
	return nil, errors.WithStack(&UnsupportedTypeError{Kind: n.Element, Name: n.Name})
}

func unqualified(n *parser.Node) *parser.Node {
	for n != nil && (n.Kind == parser.KindCvQualified || n.Kind == parser.KindElaborated) {
		n = n.Type
	}
	return n
}

func (r *Resolver) array(n *parser.Node) (ctype.Type, error) {
	elem, err := r.Resolve(n.Type)
	if err != nil {
		return nil, err
	}

	length := 0
	if n.Max != "" {
		max, err := strconv.ParseInt(n.Max, 0, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "array bound %q", n.Max)
		}
		if max >= 0 {
			length = int(max) + 1
		}
	}
	return ctype.ArrayOf(elem, length)
}

// funcPtr builds the callable pointer for a function type. Parameters are
// named by position.
func (r *Resolver) funcPtr(fn *parser.Node) (ctype.Type, error) {
	ret, err := r.Resolve(fn.Returns)
	if err != nil {
		return nil, err
	}
	params := make([]ctype.Param, 0, len(fn.Args))
	for _, a := range fn.Args {
		t, err := r.Resolve(a.Type)
		if err != nil {
			return nil, err
		}
		params = append(params, ctype.Param{Type: t})
	}
	sig := ctype.NewSignature(params, ret)
	sig.Variadic = fn.Variadic
	return &ctype.FuncPtr{Sig: sig}, nil
}

func (r *Resolver) typedef(n *parser.Node) (ctype.Type, error) {
	if target := unqualified(n.Type); isDeclared(target) && target.Name == n.Name {
		return r.Resolve(target)
	}

	base, err := r.Resolve(n.Type)
	if err != nil {
		return nil, errors.Wrapf(err, "typedef %s", n.Name)
	}
	if fp, ok := base.(*ctype.FuncPtr); ok {
		return r.Types.Insert(n.ID, n.Name, fp), nil
	}
	return r.Types.Insert(n.ID, n.Name, &ctype.Alias{Name: n.Name, Base: base}), nil
}

func isDeclared(n *parser.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case parser.KindTypedef, parser.KindStruct, parser.KindUnion, parser.KindEnumeration:
		return true
	}
	return false
}

// record inserts the record before resolving its fields so that
// self-referential structs terminate, then fills the fields in place. An
// incomplete record is completed in place by its definition.
func (r *Resolver) record(n *parser.Node) (ctype.Type, error) {
	tag := "struct " + n.Name
	if n.Kind == parser.KindUnion {
		tag = "union " + n.Name
	}

	var rec *ctype.Record
	if t, ok := r.Types.Get(n.ID); ok {
		rec = t.(*ctype.Record)
	} else if first, seen := r.tags[tag]; seen && r.Types.Bind(n.ID, first) {
		t, _ := r.Types.Get(first)
		rec = t.(*ctype.Record)
	} else {
		rec = &ctype.Record{
			Name:       n.Name,
			Incomplete: true,
			Union:      n.Kind == parser.KindUnion,
		}
		r.Types.Insert(n.ID, n.Name, rec)
		r.tags[tag] = n.ID
	}

	if n.Incomplete || !rec.Incomplete {
		return rec, nil
	}

	// Mark complete first: fields reaching back here see the record as
	// already being defined.
	rec.Incomplete = false
	fields := make([]ctype.Field, 0, len(n.Fields))
	for _, f := range n.Fields {
		t, err := r.Resolve(f.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s.%s", n.Name, f.Name)
		}
		if f.Bits != 0 {
			r.log.Debugw("Bitfield width ignored", "record", n.Name, "field", f.Name, "bits", f.Bits)
		}
		fields = append(fields, ctype.Field{Name: f.Name, Type: t})
	}
	rec.Fields = fields
	rec.Size = n.Size / 8
	rec.Align = n.Align / 8
	return rec, nil
}

func (r *Resolver) enum(n *parser.Node) (ctype.Type, error) {
	members := make([]ctype.Member, len(n.Values))
	for i, v := range n.Values {
		members[i] = ctype.Member{Name: v.Name, Value: v.Init}
	}
	e, err := ctype.NewEnum(n.Name, members)
	if err != nil {
		return nil, err
	}
	return r.Types.Insert(n.ID, n.Name, e), nil
}

// function resolves a free function from its required parameters and
// stores it in the FunctionTable.
func (r *Resolver) function(n *parser.Node) (ctype.Type, error) {
	ret, err := r.Resolve(n.Returns)
	if err != nil {
		return nil, errors.Wrapf(err, "return type of %s", n.Name)
	}

	params := make([]ctype.Param, 0, len(n.Args))
	for _, a := range n.Args {
		if a.Default != "" {
			continue
		}
		t, err := r.Resolve(a.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "parameter %s of %s", a.Name, n.Name)
		}
		params = append(params, ctype.Param{Name: a.Name, Type: t})
	}

	sig := ctype.NewSignature(params, ret)
	sig.Variadic = n.Variadic
	if n.Variadic {
		r.log.Warnw("Variadic arguments dropped", "function", n.Name, "params", len(params))
	}
	r.Funcs.Put(n.Name, sig)
	return sig, nil
}

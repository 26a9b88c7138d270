package generator

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ardanlabs/ffi-bindgen/ctype"
	"github.com/ardanlabs/ffi-bindgen/docs"
	"github.com/ardanlabs/ffi-bindgen/errors"
	"github.com/ardanlabs/ffi-bindgen/logger"
	"github.com/ardanlabs/ffi-bindgen/resolver"
)

// Section groups declarations in the generated file.
type Section int

const (
	SectionConst Section = iota
	SectionType
	SectionFunc
)

// Decl is one emitted top-level declaration.
type Decl struct {
	Section Section
	// Name is the Go identifier the declaration introduces.
	Name string
	// Doc holds comment lines, already wrapped, without the // prefix.
	Doc  []string
	Node ast.Decl
}

// Tables is everything the resolvers produced for one header.
type Tables struct {
	Types  *resolver.TypeTable
	Funcs  *resolver.FunctionTable
	Consts *resolver.ConstantTable
}

// UnprintableTypeError reports a type with no Go representation in the
// position it was used.
type UnprintableTypeError struct {
	Type  ctype.Type
	Where string
}

func (e *UnprintableTypeError) Error() string {
	return fmt.Sprintf("%s: no Go representation for %s %s", e.Where, e.Type.Kind(), e.Type)
}

// Identifiers the prelude declares.
var reserved = []string{"Load", "lib", "bind", "symbol", "symbols", "libraryPath"}

type emitter struct {
	tables  Tables
	docs    docs.Lookup
	width   int
	exclude []*regexp.Regexp

	names *namer
	// cache maps type identity to its Go name.
	cache map[ctype.Type]string
	// ffiNames maps records and composites to their descriptor variable.
	ffiNames map[ctype.Type]string

	section    Section
	decls      []Decl
	usesUnsafe bool
}

// Emit turns the tables into Go declarations: constants, then types, then
// function bindings. A type's declaration always precedes its first use.
func Emit(tables Tables, lookup docs.Lookup, opts Options) ([]Decl, error) {
	decls, _, err := emit(tables, lookup, opts)
	return decls, err
}

func emit(tables Tables, lookup docs.Lookup, opts Options) ([]Decl, bool, error) {
	if lookup == nil {
		lookup = docs.None{}
	}

	e := emitter{
		tables:   tables,
		docs:     lookup,
		width:    opts.TextWidth,
		exclude:  opts.Exclude,
		names:    newNamer(reserved...),
		cache:    make(map[ctype.Type]string),
		ffiNames: make(map[ctype.Type]string),
	}
	for _, p := range ctype.Primitives() {
		if !p.IsVoid() {
			e.cache[p] = p.Go
		}
	}

	e.section = SectionConst
	if tables.Consts != nil {
		for _, c := range tables.Consts.Constants() {
			if err := e.emitConstant(c); err != nil {
				return nil, false, errors.Wrapf(err, "constant %s", c.Name)
			}
		}
	}

	e.section = SectionType
	if tables.Types != nil {
		for _, entry := range tables.Types.Entries() {
			if err := e.emitEntry(entry); err != nil {
				return nil, false, errors.Wrapf(err, "type %s", entry.Name)
			}
		}
	}

	e.section = SectionFunc
	if tables.Funcs != nil {
		for _, fn := range tables.Funcs.Functions() {
			if err := e.emitFunction(fn); err != nil {
				return nil, false, errors.Wrapf(err, "function %s", fn.Name)
			}
		}
	}

	logger.Debugw("Emitted declarations", "decls", len(e.decls))
	return e.decls, e.usesUnsafe, nil
}

// add appends a declaration to the section being emitted. Types pulled in
// by a constant stay with the constants.
func (e *emitter) add(name string, doc []string, node ast.Decl) {
	e.decls = append(e.decls, Decl{Section: e.section, Name: name, Doc: doc, Node: node})
}

func (e *emitter) doc(cName string) []string {
	text, ok := e.docs.Lookup(cName)
	if !ok {
		return nil
	}
	return wrap(text, e.width-len("// "))
}

// =============================================================================
// Constants

func (e *emitter) excluded(name string) bool {
	for _, re := range e.exclude {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

func (e *emitter) emitConstant(c resolver.Constant) error {
	if e.excluded(c.Name) {
		return nil
	}

	if c.Value.IsType() {
		if isVoid(c.Value.Type) {
			logger.Debugw("Skipping void type constant", "name", c.Name)
			return nil
		}
		expr, err := e.typeExpr(c.Value.Type, c.Name)
		if err != nil {
			return err
		}
		name := e.names.unique(toGoName(c.Name))
		e.add(name, e.doc(c.Name), typeDecl(name, expr, true))
		return nil
	}

	lit, ok := constLiteral(c.Value.Const)
	if !ok {
		logger.Debugw("Skipping constant without a Go literal", "name", c.Name, "value", c.Value.String())
		return nil
	}

	name := e.names.unique(toGoName(c.Name))
	e.add(name, e.doc(c.Name), &ast.GenDecl{
		Tok: token.CONST,
		Specs: []ast.Spec{&ast.ValueSpec{
			Names:  []*ast.Ident{ast.NewIdent(name)},
			Values: []ast.Expr{lit},
		}},
	})
	return nil
}

func constLiteral(v constant.Value) (ast.Expr, bool) {
	if v == nil {
		return nil, false
	}
	switch v.Kind() {
	case constant.Int:
		return &ast.BasicLit{Kind: token.INT, Value: v.ExactString()}, true
	case constant.Float:
		f, _ := constant.Float64Val(v)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, false
		}
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return &ast.BasicLit{Kind: token.FLOAT, Value: s}, true
	case constant.String:
		return &ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(constant.StringVal(v))}, true
	case constant.Bool:
		return ast.NewIdent(strconv.FormatBool(constant.BoolVal(v))), true
	}
	return nil, false
}

// =============================================================================
// Types

func (e *emitter) emitEntry(entry resolver.Entry) error {
	if _, cached := e.cache[entry.Type]; cached {
		return nil
	}

	if _, named := ctype.Name(entry.Type); named {
		return e.define(entry.Type)
	}

	// Function pointer typedefs and anything else without an identity of
	// its own are bound to the entry's name.
	expr, err := e.typeExpr(entry.Type, entry.Name)
	if err != nil {
		return err
	}
	name := e.names.unique(toGoName(entry.Name))
	e.cache[entry.Type] = name
	e.add(name, e.doc(entry.Name), typeDecl(name, expr, true))
	return nil
}

// define emits the declaration of an identity-bearing type. Anything the
// declaration refers to is emitted first.
func (e *emitter) define(t ctype.Type) error {
	switch t := t.(type) {
	case *ctype.Record:
		return e.defineRecord(t)
	case *ctype.Enum:
		return e.defineEnum(t)
	case *ctype.Composite:
		return e.defineComposite(t)
	case *ctype.Alias:
		if isVoid(t) {
			logger.Debugw("Skipping void typedef", "name", t.Name)
			return nil
		}
		name := e.names.unique(toGoName(t.Name))
		e.cache[t] = name
		base, err := e.typeExpr(t.Base, t.Name)
		if err != nil {
			return err
		}
		e.add(name, e.doc(t.Name), typeDecl(name, base, true))
		return nil
	}
	return &UnprintableTypeError{Type: t, Where: "declaration"}
}

func (e *emitter) defineRecord(r *ctype.Record) error {
	name := e.names.unique(toGoName(r.Name))
	e.cache[r] = name

	hasDescriptor := !r.Incomplete && ((r.Union && r.Size > 0) || (!r.Union && len(r.Fields) > 0))
	var ffiName string
	if hasDescriptor {
		ffiName = e.names.unique("FFIType" + name)
		e.ffiNames[r] = ffiName
	}

	fields := &ast.FieldList{}
	var elems []ast.Expr
	switch {
	case r.Incomplete:
	case r.Union:
		word := unionWord(r)
		n := r.Size / word.Size
		fields.List = append(fields.List, &ast.Field{
			Names: []*ast.Ident{ast.NewIdent("Raw")},
			Type:  &ast.ArrayType{Len: intLit(n), Elt: ast.NewIdent(word.Go)},
		})
		for range n {
			elems = append(elems, ffiSel(word.FFI))
		}
	default:
		fieldNames := newNamer()
		for _, f := range r.Fields {
			typ, err := e.typeExpr(f.Type, r.Name+"."+f.Name)
			if err != nil {
				return err
			}
			fname := "_"
			if f.Name != "" {
				fname = fieldNames.unique(toGoName(f.Name))
			}
			fields.List = append(fields.List, &ast.Field{
				Names: []*ast.Ident{ast.NewIdent(fname)},
				Type:  typ,
			})

			fe, err := e.ffiElements(f.Type, r.Name+"."+f.Name)
			if err != nil {
				return err
			}
			elems = append(elems, fe...)
		}
	}

	e.add(name, e.doc(r.Name), typeDecl(name, structType(fields), false))
	if hasDescriptor {
		e.add(ffiName, nil, varDecl(ffiName, call(ffiIdent("NewType"), elems...)))
	}
	return nil
}

// unionWord is the unsigned word backing a union: the widest one that
// keeps the union's alignment and divides its size.
func unionWord(r *ctype.Record) *ctype.Primitive {
	for _, p := range []*ctype.Primitive{ctype.UInt64, ctype.UInt32, ctype.UInt16} {
		if r.Align >= p.Size && r.Size%p.Size == 0 {
			return p
		}
	}
	return ctype.UInt8
}

func (e *emitter) defineComposite(c *ctype.Composite) error {
	name := e.names.unique(toGoName(c.Name))
	e.cache[c] = name

	fields := &ast.FieldList{}
	var elems []ast.Expr
	describable := true
	for _, b := range c.Bases {
		typ, err := e.typeExpr(b, c.Name)
		if err != nil {
			return err
		}
		fields.List = append(fields.List, &ast.Field{Type: typ})

		fe, err := e.ffiElements(b, c.Name)
		if err != nil {
			describable = false
			continue
		}
		elems = append(elems, fe...)
	}

	e.add(name, e.doc(c.Name), typeDecl(name, structType(fields), false))
	if describable && len(elems) > 0 {
		ffiName := e.names.unique("FFIType" + name)
		e.ffiNames[c] = ffiName
		e.add(ffiName, nil, varDecl(ffiName, call(ffiIdent("NewType"), elems...)))
	}
	return nil
}

func (e *emitter) defineEnum(en *ctype.Enum) error {
	name := e.names.unique(toGoName(en.Name))
	e.cache[en] = name

	underlying := "uint32"
	if en.Signed() {
		underlying = "int32"
	}
	e.add(name, e.doc(en.Name), typeDecl(name, ast.NewIdent(underlying), false))

	members := en.Members()
	if len(members) == 0 {
		return nil
	}

	consts := &ast.GenDecl{Tok: token.CONST}
	var cases []ast.Stmt
	for _, m := range members {
		mname := e.names.unique(toGoName(m.Name))
		consts.Specs = append(consts.Specs, &ast.ValueSpec{
			Names:  []*ast.Ident{ast.NewIdent(mname)},
			Type:   ast.NewIdent(name),
			Values: []ast.Expr{&ast.BasicLit{Kind: token.INT, Value: strconv.FormatInt(m.Value, 10)}},
		})

		// Only the first member declared for a value gets a case.
		if first, _ := en.NameOf(m.Value); first == m.Name {
			cases = append(cases, &ast.CaseClause{
				List: []ast.Expr{ast.NewIdent(mname)},
				Body: []ast.Stmt{&ast.ReturnStmt{Results: []ast.Expr{strLit(m.Name)}}},
			})
		}
	}
	e.add(name, nil, consts)

	recv := &ast.FieldList{List: []*ast.Field{{
		Names: []*ast.Ident{ast.NewIdent("v")},
		Type:  ast.NewIdent(name),
	}}}
	e.add(name, nil, &ast.FuncDecl{
		Recv: recv,
		Name: ast.NewIdent("String"),
		Type: &ast.FuncType{
			Params:  &ast.FieldList{},
			Results: &ast.FieldList{List: []*ast.Field{{Type: ast.NewIdent("string")}}},
		},
		Body: block(
			&ast.SwitchStmt{Tag: ast.NewIdent("v"), Body: &ast.BlockStmt{List: cases}},
			&ast.ReturnStmt{Results: []ast.Expr{call(
				&ast.SelectorExpr{X: ast.NewIdent("fmt"), Sel: ast.NewIdent("Sprintf")},
				strLit(name+"(%d)"),
				call(ast.NewIdent("int64"), ast.NewIdent("v")),
			)}},
		),
	})
	return nil
}

// typeExpr prints t as a Go type, defining named types on first use.
func (e *emitter) typeExpr(t ctype.Type, where string) (ast.Expr, error) {
	if name, ok := e.cache[t]; ok {
		return ast.NewIdent(name), nil
	}

	switch t := t.(type) {
	case *ctype.Pointer:
		if isVoid(t.Elem) {
			e.usesUnsafe = true
			return &ast.SelectorExpr{X: ast.NewIdent("unsafe"), Sel: ast.NewIdent("Pointer")}, nil
		}
		elem, err := e.typeExpr(t.Elem, where)
		if err != nil {
			return nil, err
		}
		return &ast.StarExpr{X: elem}, nil

	case *ctype.Array:
		elem, err := e.typeExpr(t.Elem, where)
		if err != nil {
			return nil, err
		}
		return &ast.ArrayType{Len: intLit(t.Len), Elt: elem}, nil

	case *ctype.FuncPtr:
		return ast.NewIdent("uintptr"), nil

	case *ctype.Record, *ctype.Enum, *ctype.Alias, *ctype.Composite:
		if err := e.define(t); err != nil {
			return nil, err
		}
		if name, ok := e.cache[t]; ok {
			return ast.NewIdent(name), nil
		}
	}

	return nil, errors.WithStack(&UnprintableTypeError{Type: t, Where: where})
}

// ffiExpr is the libffi descriptor for a value of type t.
func (e *emitter) ffiExpr(t ctype.Type, where string) (ast.Expr, error) {
	switch u := ctype.Underlying(t).(type) {
	case *ctype.Primitive:
		return ffiSel(u.FFI), nil
	case *ctype.Pointer, *ctype.FuncPtr, *ctype.Array:
		return ffiSel("TypePointer"), nil
	case *ctype.Enum:
		if u.Signed() {
			return ffiSel("TypeSint32"), nil
		}
		return ffiSel("TypeUint32"), nil
	case *ctype.Record, *ctype.Composite:
		if name, ok := e.ffiNames[u]; ok {
			return &ast.UnaryExpr{Op: token.AND, X: ast.NewIdent(name)}, nil
		}
	}
	return nil, errors.WithStack(&UnprintableTypeError{Type: t, Where: where + " (libffi)"})
}

// ffiElements lists the descriptors of a record member; arrays are
// flattened into one element per item.
func (e *emitter) ffiElements(t ctype.Type, where string) ([]ast.Expr, error) {
	if a, ok := ctype.Underlying(t).(*ctype.Array); ok {
		elem, err := e.ffiElements(a.Elem, where)
		if err != nil {
			return nil, err
		}
		var out []ast.Expr
		for range a.Len {
			out = append(out, elem...)
		}
		return out, nil
	}

	x, err := e.ffiExpr(t, where)
	if err != nil {
		return nil, err
	}
	return []ast.Expr{x}, nil
}

// =============================================================================
// Functions

func (e *emitter) emitFunction(fn resolver.Function) error {
	sig := fn.Sig
	goName := e.names.unique(toGoName(fn.Name))
	symName := e.names.unique(toLowerCamel(fn.Name) + "Sym")

	if sig.Variadic {
		logger.Debugw("Binding fixed parameters of variadic function", "function", fn.Name)
	}

	retFFI, err := e.ffiExpr(sig.Returns, fn.Name+" result")
	if err != nil {
		return err
	}
	bindArgs := []ast.Expr{strLit(fn.Name), retFFI}

	cNames := make([]string, len(sig.Params))
	for i, p := range sig.Params {
		cNames[i] = p.Name
	}
	pnames := paramNames(cNames, symName)

	params := &ast.FieldList{}
	callArgs := []ast.Expr{ast.NewIdent("nil")}
	for i, p := range sig.Params {
		where := fn.Name + " parameter " + p.Name

		argFFI, err := e.ffiExpr(p.Type, where)
		if err != nil {
			return err
		}
		bindArgs = append(bindArgs, argFFI)

		typ, err := e.paramType(p.Type, where)
		if err != nil {
			return err
		}
		params.List = append(params.List, &ast.Field{
			Names: []*ast.Ident{ast.NewIdent(pnames[i])},
			Type:  typ,
		})
		callArgs = append(callArgs, unsafePointer(addr(ast.NewIdent(pnames[i]))))
	}
	if len(sig.Params) > 0 {
		e.usesUnsafe = true
	}

	e.add(symName, nil, varDecl(symName, call(ast.NewIdent("bind"), bindArgs...)))

	invoke := &ast.SelectorExpr{
		X:   &ast.SelectorExpr{X: ast.NewIdent(symName), Sel: ast.NewIdent("fun")},
		Sel: ast.NewIdent("Call"),
	}

	ftype := &ast.FuncType{Params: params}
	var body []ast.Stmt

	if isVoid(sig.Returns) {
		body = append(body, &ast.ExprStmt{X: call(invoke, callArgs...)})
	} else {
		ret, err := e.typeExpr(sig.Returns, fn.Name+" result")
		if err != nil {
			return err
		}
		ftype.Results = &ast.FieldList{List: []*ast.Field{{Type: ret}}}
		e.usesUnsafe = true

		// libffi widens integer results narrower than a register to ffi_arg.
		widened := needsArg(sig.Returns)
		retType := ret
		if widened {
			retType = ffiIdent("Arg")
		}
		body = append(body, &ast.DeclStmt{Decl: &ast.GenDecl{
			Tok: token.VAR,
			Specs: []ast.Spec{&ast.ValueSpec{
				Names: []*ast.Ident{ast.NewIdent("ret")},
				Type:  retType,
			}},
		}})
		callArgs[0] = unsafePointer(addr(ast.NewIdent("ret")))
		body = append(body, &ast.ExprStmt{X: call(invoke, callArgs...)})

		var result ast.Expr = ast.NewIdent("ret")
		switch {
		case widened && ctype.Underlying(sig.Returns) == ctype.Bool:
			result = call(&ast.SelectorExpr{X: ast.NewIdent("ret"), Sel: ast.NewIdent("Bool")})
		case widened:
			result = call(ret, ast.NewIdent("ret"))
		}
		body = append(body, &ast.ReturnStmt{Results: []ast.Expr{result}})
	}

	e.add(goName, e.doc(fn.Name), &ast.FuncDecl{
		Name: ast.NewIdent(goName),
		Type: ftype,
		Body: block(body...),
	})
	return nil
}

// paramType is the Go type of a parameter. Array parameters decay to a
// pointer to their first element.
func (e *emitter) paramType(t ctype.Type, where string) (ast.Expr, error) {
	if a, ok := ctype.Underlying(t).(*ctype.Array); ok {
		return e.typeExpr(ctype.PointerTo(a.Elem), where)
	}
	return e.typeExpr(t, where)
}

func isVoid(t ctype.Type) bool {
	p, ok := ctype.Underlying(t).(*ctype.Primitive)
	return ok && p.IsVoid()
}

func needsArg(t ctype.Type) bool {
	switch u := ctype.Underlying(t).(type) {
	case *ctype.Primitive:
		return u.IsInteger() && u.Size < 8
	case *ctype.Enum:
		return true
	}
	return false
}

// =============================================================================
// AST helpers

func typeDecl(name string, typ ast.Expr, alias bool) *ast.GenDecl {
	spec := &ast.TypeSpec{Name: ast.NewIdent(name), Type: typ}
	if alias {
		spec.Assign = 1
	}
	return &ast.GenDecl{Tok: token.TYPE, Specs: []ast.Spec{spec}}
}

// structType keeps empty structs on one line and puts every field of a
// non-empty one on its own line.
func structType(fields *ast.FieldList) *ast.StructType {
	fields.Opening = openBrace
	fields.Closing = closeBrace
	if len(fields.List) == 0 {
		fields.Closing = openBrace
	}
	return &ast.StructType{Fields: fields}
}

// block spans two lines so the printer never folds it into a one-liner.
func block(stmts ...ast.Stmt) *ast.BlockStmt {
	return &ast.BlockStmt{Lbrace: openBrace, List: stmts, Rbrace: closeBrace}
}

func varDecl(name string, value ast.Expr) *ast.GenDecl {
	return &ast.GenDecl{
		Tok: token.VAR,
		Specs: []ast.Spec{&ast.ValueSpec{
			Names:  []*ast.Ident{ast.NewIdent(name)},
			Values: []ast.Expr{value},
		}},
	}
}

func ffiIdent(name string) *ast.SelectorExpr {
	return &ast.SelectorExpr{X: ast.NewIdent("ffi"), Sel: ast.NewIdent(name)}
}

// ffiSel returns &ffi.<name>.
func ffiSel(name string) *ast.UnaryExpr {
	return addr(ffiIdent(name))
}

func addr(x ast.Expr) *ast.UnaryExpr {
	return &ast.UnaryExpr{Op: token.AND, X: x}
}

func unsafePointer(x ast.Expr) ast.Expr {
	return call(&ast.SelectorExpr{X: ast.NewIdent("unsafe"), Sel: ast.NewIdent("Pointer")}, x)
}

func call(fun ast.Expr, args ...ast.Expr) *ast.CallExpr {
	return &ast.CallExpr{Fun: fun, Args: args}
}

func intLit(n int) *ast.BasicLit {
	return &ast.BasicLit{Kind: token.INT, Value: strconv.Itoa(n)}
}

func strLit(s string) *ast.BasicLit {
	return &ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(s)}
}

package resolver

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardanlabs/ffi-bindgen/ctype"
	"github.com/ardanlabs/ffi-bindgen/errors"
	"github.com/ardanlabs/ffi-bindgen/parser"
)

func sampleHeader(t *testing.T) *parser.Header {
	t.Helper()
	f, err := os.Open("../testdata/sample.xml")
	require.NoError(t, err)
	defer f.Close()

	h, err := parser.Parse(f)
	require.NoError(t, err)
	return h
}

func processSample(t *testing.T) *Resolver {
	t.Helper()
	r := New()
	require.NoError(t, r.Process(sampleHeader(t)))
	return r
}

func parseXML(t *testing.T, src string) *parser.Header {
	t.Helper()
	h, err := parser.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return h
}

func entryNames(tt *TypeTable) []string {
	var names []string
	for _, e := range tt.Entries() {
		names = append(names, e.Name)
	}
	return names
}

func TestProcess_Sample(t *testing.T) {
	r := processSample(t)

	assert.Equal(t, []string{
		"sample_ctx", "sample_status", "node", "point", "number", "sample_cb", "sample_flags",
	}, entryNames(r.Types))

	var funcs []string
	for _, f := range r.Funcs.Functions() {
		funcs = append(funcs, f.Name)
	}
	assert.Equal(t, []string{
		"sample_open", "sample_close", "sample_distance", "sample_sum", "sample_walk", "sample_log",
	}, funcs)

	sum, ok := r.Funcs.Get("sample_sum")
	require.True(t, ok)
	assert.Equal(t, "func(values *int, count ubyte) int", sum.String())

	logf, _ := r.Funcs.Get("sample_log")
	assert.True(t, logf.Variadic)
	assert.Len(t, logf.Params, 1)

	flags, ok := r.Types.Lookup("sample_flags")
	require.True(t, ok)
	alias, ok := flags.(*ctype.Alias)
	require.True(t, ok)
	assert.Same(t, ctype.UInt, alias.Base)

	cb, _ := r.Types.Lookup("sample_cb")
	fp, ok := cb.(*ctype.FuncPtr)
	require.True(t, ok, "function pointer typedefs are stored unchanged")
	assert.Equal(t, "func(_0 *void, _1 int) void", fp.Sig.String())

	number, _ := r.Types.Lookup("number")
	assert.True(t, number.(*ctype.Record).Union)
	assert.Equal(t, 4, number.(*ctype.Record).Size)
	assert.Equal(t, 4, number.(*ctype.Record).Align)
}

func TestProcess_SkipsBuiltinAndArtificial(t *testing.T) {
	r := processSample(t)

	_, ok := r.Types.Lookup("__builtin_va_list")
	assert.False(t, ok)
	_, ok = r.Types.Lookup("__int128_t")
	assert.False(t, ok)
}

func TestResolve_IdentitySharing(t *testing.T) {
	h := sampleHeader(t)
	r := New()
	require.NoError(t, r.Process(h))

	open, _ := r.Funcs.Get("sample_open")
	closeFn, _ := r.Funcs.Get("sample_close")

	ctxFromReturn := open.Returns.(*ctype.Pointer).Elem
	ctxFromParam := closeFn.Params[0].Type.(*ctype.Pointer).Elem
	assert.Same(t, ctxFromReturn, ctxFromParam)

	for _, d := range h.Decls {
		if d.Kind != parser.KindStruct || d.Name != "point" {
			continue
		}
		first, err := r.Resolve(d)
		require.NoError(t, err)
		second, err := r.Resolve(d)
		require.NoError(t, err)
		assert.Same(t, first, second)
	}

	dist, _ := r.Funcs.Get("sample_distance")
	assert.Same(t, dist.Params[0].Type, dist.Params[1].Type)
}

func TestResolve_SelfReferentialRecord(t *testing.T) {
	r := processSample(t)

	typ, ok := r.Types.Lookup("node")
	require.True(t, ok)
	node := typ.(*ctype.Record)

	require.Len(t, node.Fields, 3)
	assert.False(t, node.Incomplete)
	assert.Equal(t, "[8]char", node.Fields[1].Type.String())

	next, ok := node.Fields[2].Type.(*ctype.Pointer)
	require.True(t, ok)
	assert.Same(t, node, next.Elem)
}

func TestResolve_TypedefOfSelfIsOneEntry(t *testing.T) {
	r := processSample(t)

	for _, name := range []string{"node", "point", "number", "sample_status", "sample_ctx"} {
		typ, ok := r.Types.Lookup(name)
		require.True(t, ok, name)

		count := 0
		for _, e := range r.Types.Entries() {
			if e.Type == typ {
				count++
			}
		}
		assert.Equal(t, 1, count, name)
		_, isAlias := typ.(*ctype.Alias)
		assert.False(t, isAlias, name)
	}
}

func TestResolve_IncompleteThenDefined(t *testing.T) {
	h := parseXML(t, `<GCC_XML>
  <Namespace id="_1" name="::" members="_2 _3 _4"/>
  <Struct id="_2" name="list" incomplete="1" file="f1"/>
  <Typedef id="_3" name="list_t" type="_2" file="f1"/>
  <Struct id="_4" name="list" members="_5" size="64" file="f1"/>
  <Field id="_5" name="head" type="_6" context="_4"/>
  <PointerType id="_6" type="_4"/>
  <File id="f1" name="list.h"/>
</GCC_XML>`)

	r := New()
	require.NoError(t, r.Process(h))

	assert.Equal(t, []string{"list", "list_t"}, entryNames(r.Types))

	typ, _ := r.Types.Lookup("list")
	list := typ.(*ctype.Record)
	assert.False(t, list.Incomplete)
	require.Len(t, list.Fields, 1)
	assert.Same(t, list, list.Fields[0].Type.(*ctype.Pointer).Elem)

	alias, _ := r.Types.Lookup("list_t")
	assert.Same(t, list, alias.(*ctype.Alias).Base)

	again, err := r.Resolve(h.Decls[0])
	require.NoError(t, err)
	assert.Same(t, list, again)
}

func TestResolve_Unsupported(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind string
	}{
		{
			name: "variable",
			src: `<CastXML>
  <Namespace id="_1" name="::" members="_2"/>
  <Variable id="_2" name="counter" type="_3" file="f1"/>
  <FundamentalType id="_3" name="int" size="32"/>
  <File id="f1" name="v.h"/>
</CastXML>`,
			kind: "Variable",
		},
		{
			name: "128-bit integer",
			src: `<CastXML>
  <Namespace id="_1" name="::" members="_2"/>
  <Function id="_2" name="precise" returns="_3" file="f1"/>
  <FundamentalType id="_3" name="__int128" size="128"/>
  <File id="f1" name="v.h"/>
</CastXML>`,
			kind: "FundamentalType",
		},
		{
			name: "unknown element",
			src: `<CastXML>
  <Namespace id="_1" name="::" members="_2"/>
  <Method id="_2" name="m" file="f1"/>
  <File id="f1" name="v.h"/>
</CastXML>`,
			kind: "Method",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().Process(parseXML(t, tt.src))
			var unsupported *UnsupportedTypeError
			require.True(t, errors.As(err, &unsupported), "want UnsupportedTypeError, got %v", err)
			assert.Equal(t, tt.kind, unsupported.Kind)
		})
	}
}

func TestResolve_FieldFailureAbortsRecord(t *testing.T) {
	h := parseXML(t, `<CastXML>
  <Namespace id="_1" name="::" members="_2"/>
  <Struct id="_2" name="wide" members="_3" size="128" file="f1"/>
  <Field id="_3" name="v" type="_4" context="_2"/>
  <FundamentalType id="_4" name="__int128" size="128"/>
  <File id="f1" name="w.h"/>
</CastXML>`)

	err := New().Process(h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field wide.v")
}

func TestResolve_FunctionsAndFunctionTypes(t *testing.T) {
	h := parseXML(t, `<CastXML>
  <Namespace id="_1" name="::" members="_2 _3"/>
  <Function id="_2" name="apply" returns="_4" file="f1">
    <Argument name="fn" type="_5"/>
    <Argument name="buf" type="_7"/>
    <Argument name="flags" type="_4" default="0"/>
  </Function>
  <Function id="_3" name="apply" returns="_4" file="f1">
    <Argument name="fn" type="_5"/>
  </Function>
  <FundamentalType id="_4" name="int" size="32"/>
  <FunctionType id="_5" returns="_4">
    <Argument type="_4"/>
    <Argument type="_6"/>
  </FunctionType>
  <FundamentalType id="_6" name="long unsigned int" size="64"/>
  <ArrayType id="_7" min="0" max="" type="_4"/>
  <File id="f1" name="f.h"/>
</CastXML>`)

	r := New()
	fn, err := r.Resolve(h.Decls[0])
	require.NoError(t, err)

	sig := fn.(*ctype.Signature)
	require.Len(t, sig.Params, 2, "parameters with defaults are not required")
	cb, ok := sig.Params[0].Type.(*ctype.FuncPtr)
	require.True(t, ok)
	assert.Equal(t, "func(_0 int, _1 ulong) int", cb.Sig.String())
	assert.Equal(t, "[0]int", sig.Params[1].Type.String())

	require.NoError(t, r.Process(h))
	assert.Equal(t, 1, r.Funcs.Len())
	latest, _ := r.Funcs.Get("apply")
	assert.Len(t, latest.Params, 1)
}

func TestTablesReachability(t *testing.T) {
	r := processSample(t)

	check := func(root ctype.Type) {
		ctype.Walk(root, func(typ ctype.Type) bool {
			if _, named := ctype.Name(typ); named {
				assert.True(t, r.Types.Contains(typ), "%s is not in the type table", typ)
			}
			return true
		})
	}
	for _, e := range r.Types.Entries() {
		check(e.Type)
	}
	for _, f := range r.Funcs.Functions() {
		check(f.Sig)
	}
}

func TestNormalizeFundamental(t *testing.T) {
	tests := map[string]string{
		"int":                    "int",
		"unsigned int":           "uint",
		"unsigned":               "uint",
		"short int":              "short",
		"short unsigned int":     "ushort",
		"long int":               "long",
		"long unsigned int":      "ulong",
		"long long int":          "longlong",
		"long long unsigned int": "ulonglong",
		"unsigned long long":     "ulonglong",
		"signed char":            "byte",
		"_Bool":                  "bool",
		"wchar_t":                "wchar",
		"uint32_t":               "uint32",
		"long double":            "longdouble",
		"__int128":               "",
		"unsigned __int128":      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeFundamental(in), in)
	}

	r := New()
	p, ok := r.Fundamental("unsigned char")
	require.True(t, ok)
	assert.Same(t, ctype.UByte, p)

	p, ok = r.Fundamental("long double")
	require.True(t, ok)
	assert.Same(t, ctype.LongDouble, p)

	_, ok = r.Fundamental("__int128")
	assert.False(t, ok)
}

func TestResolve_LongDouble(t *testing.T) {
	h := parseXML(t, `<CastXML>
  <Namespace id="_1" name="::" members="_2"/>
  <Function id="_2" name="strtold" returns="_3" file="f1">
    <Argument name="nptr" type="_4"/>
    <Argument name="endptr" type="_6"/>
  </Function>
  <FundamentalType id="_3" name="long double" size="128" align="128"/>
  <PointerType id="_4" type="_5" size="64" align="64"/>
  <CvQualifiedType id="_5" type="_7" const="1"/>
  <PointerType id="_6" type="_4" size="64" align="64"/>
  <FundamentalType id="_7" name="char" size="8" align="8"/>
  <File id="f1" name="stdlib.h"/>
</CastXML>`)

	r := New()
	require.NoError(t, r.Process(h))

	sig, ok := r.Funcs.Get("strtold")
	require.True(t, ok)
	assert.Same(t, ctype.LongDouble, sig.Returns)
	require.Len(t, sig.Params, 2)
}

func TestTypeTable(t *testing.T) {
	tt := NewTypeTable()
	a := &ctype.Record{Name: "a"}

	assert.Same(t, a, tt.Insert(1, "a", a))
	assert.Same(t, a, tt.Insert(1, "a", &ctype.Record{Name: "a"}), "existing rows are never replaced")
	assert.Equal(t, 1, tt.Len())

	assert.True(t, tt.Bind(2, 1))
	got, ok := tt.Get(2)
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, 1, tt.Len())

	assert.False(t, tt.Bind(3, 99))
	assert.False(t, tt.Bind(2, 1))
}

package parser

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSample(t *testing.T) *Header {
	t.Helper()
	f, err := os.Open("../testdata/sample.xml")
	require.NoError(t, err)
	defer f.Close()

	h, err := Parse(f)
	require.NoError(t, err)
	return h
}

func declNamed(t *testing.T, h *Header, kind Kind, name string) *Node {
	t.Helper()
	for _, d := range h.Decls {
		if d.Kind == kind && d.Name == name {
			return d
		}
	}
	t.Fatalf("no %v declaration named %q", kind, name)
	return nil
}

func TestParse_TopLevelOrder(t *testing.T) {
	h := parseSample(t)

	require.Len(t, h.Decls, 20)
	assert.Equal(t, "__builtin_va_list", h.Decls[0].Name)
	assert.Equal(t, BuiltinFile, h.Decls[0].File)
	assert.True(t, h.Decls[1].Artificial)
	assert.Equal(t, "sample_ctx", h.Decls[2].Name)
	assert.Equal(t, KindStruct, h.Decls[2].Kind)
	assert.True(t, h.Decls[2].Incomplete)
	assert.Equal(t, "sample_log", h.Decls[19].Name)
	assert.Equal(t, "sample.h", h.Decls[19].File)
}

func TestParse_ArenaIDsFollowDocumentOrder(t *testing.T) {
	h := parseSample(t)

	for i, n := range h.Nodes {
		assert.Equal(t, i, n.ID)
	}
	assert.Equal(t, "Namespace", h.Nodes[0].Element)
	assert.Same(t, h.Nodes[7], declNamed(t, h, KindStruct, "node"))
}

func TestParse_AnonymousTypesAdoptTypedefName(t *testing.T) {
	h := parseSample(t)

	status := declNamed(t, h, KindTypedef, "sample_status")
	require.Equal(t, KindEnumeration, status.Type.Kind)
	assert.Equal(t, "sample_status", status.Type.Name)
	assert.Equal(t, []EnumValue{
		{Name: "SAMPLE_OK", Init: 0},
		{Name: "SAMPLE_ERR", Init: -1},
		{Name: "SAMPLE_EFAIL", Init: -1},
	}, status.Type.Values)

	point := declNamed(t, h, KindTypedef, "point")
	assert.Equal(t, "point", point.Type.Name)

	number := declNamed(t, h, KindTypedef, "number")
	assert.Equal(t, KindUnion, number.Type.Kind)
	assert.Equal(t, "number", number.Type.Name)
	assert.Equal(t, 32, number.Type.Size)
}

func TestParse_LinksReferences(t *testing.T) {
	h := parseSample(t)

	node := declNamed(t, h, KindStruct, "node")
	require.Len(t, node.Fields, 3)
	assert.Equal(t, "value", node.Fields[0].Name)

	tag := node.Fields[1].Type
	assert.Equal(t, KindArray, tag.Kind)
	assert.Equal(t, "7", tag.Max)
	assert.Equal(t, "char", tag.Type.Name)

	next := node.Fields[2].Type
	require.Equal(t, KindPointer, next.Kind)
	assert.Equal(t, KindElaborated, next.Type.Kind)
	assert.Same(t, node, next.Type.Type)

	cb := declNamed(t, h, KindTypedef, "sample_cb")
	require.Equal(t, KindPointer, cb.Type.Kind)
	fn := cb.Type.Type
	assert.Equal(t, KindFunctionType, fn.Kind)
	assert.Equal(t, "void", fn.Returns.Name)
	assert.Len(t, fn.Args, 2)
	assert.Empty(t, fn.Args[0].Name)
}

func TestParse_Functions(t *testing.T) {
	h := parseSample(t)

	open := declNamed(t, h, KindFunction, "sample_open")
	require.Len(t, open.Args, 2)
	assert.Equal(t, "path", open.Args[0].Name)
	path := open.Args[0].Type
	assert.Equal(t, KindPointer, path.Kind)
	assert.Equal(t, KindCvQualified, path.Type.Kind)
	assert.False(t, open.Variadic)

	logf := declNamed(t, h, KindFunction, "sample_log")
	assert.True(t, logf.Variadic)
	assert.Len(t, logf.Args, 1)
}

func TestParse_FallsBackToDocumentOrder(t *testing.T) {
	src := `<CastXML format="1.1.0">
  <Namespace id="_1" name="::"/>
  <Function id="_2" name="second" returns="_4" context="_1" file="f1"/>
  <Typedef id="_3" name="first" type="_4" context="_1" file="f1"/>
  <FundamentalType id="_4" name="int" size="32"/>
  <File id="f1" name="x.h"/>
</CastXML>`

	h, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, h.Decls, 2)
	assert.Equal(t, "second", h.Decls[0].Name)
	assert.Equal(t, "first", h.Decls[1].Name)
}

func TestParse_UnknownElementsAreKept(t *testing.T) {
	src := `<CastXML format="1.1.0">
  <Namespace id="_1" name="::" members="_2"/>
  <OperatorFunction id="_2" name="operator+" context="_1"/>
</CastXML>`

	h, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, h.Decls, 1)
	assert.Equal(t, KindUnsupported, h.Decls[0].Kind)
	assert.Equal(t, "OperatorFunction", h.Decls[0].Element)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"wrong root", `<html></html>`},
		{"dangling", `<CastXML><Typedef id="_1" name="x" type="_9"/></CastXML>`},
		{"duplicate id", `<CastXML><Typedef id="_1" name="x"/><Typedef id="_1" name="y"/></CastXML>`},
		{"bad enum", `<CastXML><Enumeration id="_1" name="e"><EnumValue name="A" init="x"/></Enumeration></CastXML>`},
		{"truncated", `<CastXML><Typedef id="_1" name="x"/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.src))
			assert.Error(t, err)
		})
	}
}

func TestParseDefines(t *testing.T) {
	data, err := os.ReadFile("../testdata/sample.defines")
	require.NoError(t, err)

	defs := ParseDefines(string(data))

	byName := make(map[string]string, len(defs))
	var order []string
	for _, d := range defs {
		byName[d.Name] = d.Expr
		order = append(order, d.Name)
	}

	assert.NotContains(t, byName, "SAMPLE_MIN")
	assert.Equal(t, "", byName["SAMPLE_EXPORT"])
	assert.Equal(t, "(SAMPLE_BUF_SIZE * 2)", byName["SAMPLE_MAX"])
	assert.Equal(t, `"sample"`, byName["SAMPLE_NAME"])
	assert.Equal(t, "__STDC__", order[0])
	assert.Len(t, defs, 14)
}

func TestFrontend_Defines(t *testing.T) {
	var gotName string
	var gotArgs []string
	orig := runCommand
	t.Cleanup(func() { runCommand = orig })
	runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return []byte("#define A 1\n#define B A+1\n"), nil
	}

	f := Frontend{Compiler: "/usr/bin/cc", Flags: `-I"inc dir" -DX=1`}
	defs, err := f.Defines(context.Background(), "x.h")
	require.NoError(t, err)

	assert.Equal(t, "castxml", gotName)
	assert.Equal(t, []string{
		"--castxml-cc-gnu", "/usr/bin/cc",
		"-Iinc dir", "-DX=1",
		"-E", "-dM", "-Wno-everything", "x.h",
	}, gotArgs)
	assert.Equal(t, []Define{{Name: "A", Expr: "1"}, {Name: "B", Expr: "A+1"}}, defs)
}

func TestFrontend_Parse(t *testing.T) {
	sample, err := os.ReadFile("../testdata/sample.xml")
	require.NoError(t, err)

	orig := runCommand
	t.Cleanup(func() { runCommand = orig })
	runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		require.Equal(t, "--castxml-output=1", args[0])
		var out string
		for i, a := range args {
			if a == "-o" {
				out = args[i+1]
			}
		}
		require.NotEmpty(t, out)
		return nil, os.WriteFile(out, sample, 0o644)
	}

	h, err := Frontend{CastXML: "/opt/castxml"}.Parse(context.Background(), "sample.h")
	require.NoError(t, err)
	assert.Len(t, h.Decls, 20)
}

func TestFrontend_BadFlags(t *testing.T) {
	_, err := Frontend{Flags: `-I"unterminated`}.Defines(context.Background(), "x.h")
	assert.Error(t, err)
}

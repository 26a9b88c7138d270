package generator

import (
	"bytes"
	"go/format"
	"go/token"
	"strings"
	"text/template"

	"golang.org/x/tools/imports"

	"github.com/ardanlabs/ffi-bindgen/errors"
)

var prelude = template.Must(template.New("prelude").Parse(`// Code generated by ffi-bindgen from {{.Header}}. DO NOT EDIT.

package {{.Package}}

import (
	"fmt"
	"path/filepath"
	"runtime"
{{- if .Unsafe}}
	"unsafe"
{{- end}}

	"github.com/jupiterrider/ffi"
)

var lib ffi.Lib

// symbol is a library function prepared by Load.
type symbol struct {
	name string
	ret  *ffi.Type
	args []*ffi.Type
	fun  ffi.Fun
}

var symbols []*symbol

func bind(name string, ret *ffi.Type, args ...*ffi.Type) *symbol {
	s := &symbol{name: name, ret: ret, args: args}
	symbols = append(symbols, s)
	return s
}

// Load opens the {{.Library}} shared library in dir and prepares every
// function in this package. It must succeed before any function is called.
func Load(dir string) error {
	var err error
	lib, err = ffi.Load(libraryPath(dir))
	if err != nil {
		return fmt.Errorf("failed to load library: %w", err)
	}

	for _, s := range symbols {
		if s.fun, err = lib.Prep(s.name, s.ret, s.args...); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	return nil
}

func libraryPath(dir string) string {
	var filename string
	switch runtime.GOOS {
	case "linux", "freebsd":
		filename = "lib{{.Library}}.so"
	case "darwin":
		filename = "lib{{.Library}}.dylib"
	case "windows":
		filename = "{{.Library}}.dll"
	default:
		filename = "lib{{.Library}}.so"
	}
	return filepath.Join(dir, filename)
}
`))

// layout is the file set every declaration is printed against. Its only
// file holds two lines: one for opening braces, one for closing braces.
var layout = token.NewFileSet()

var openBrace, closeBrace = func() (token.Pos, token.Pos) {
	f := layout.AddFile("layout", -1, 2)
	f.SetLines([]int{0, 1})
	return f.Pos(0), f.Pos(1)
}()

var sectionTitles = map[Section]string{
	SectionConst: "Constants",
	SectionType:  "Types",
	SectionFunc:  "Functions",
}

// render prints the prelude and decls as one formatted Go source file.
func render(opts Options, decls []Decl, usesUnsafe bool) ([]byte, error) {
	var buf bytes.Buffer
	err := prelude.Execute(&buf, map[string]any{
		"Header":  opts.Header,
		"Package": opts.Package,
		"Library": opts.Library,
		"Unsafe":  usesUnsafe,
	})
	if err != nil {
		return nil, errors.Wrap(err, "executing prelude")
	}

	section := Section(-1)
	for _, d := range decls {
		if d.Section != section {
			section = d.Section
			buf.WriteString("\n// =============================================================================\n")
			buf.WriteString("// " + sectionTitles[section] + "\n")
		}

		buf.WriteString("\n")
		for _, line := range d.Doc {
			if line == "" {
				buf.WriteString("//\n")
				continue
			}
			buf.WriteString("// " + line + "\n")
		}
		if err := format.Node(&buf, layout, d.Node); err != nil {
			return nil, errors.Wrapf(err, "printing %s", d.Name)
		}
		buf.WriteString("\n")
	}

	src, err := imports.Process(opts.Package+".go", buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "formatting generated source")
	}
	return src, nil
}

// wrap fills each paragraph of text to width columns. Paragraphs are
// separated by an empty line in the result.
func wrap(text string, width int) []string {
	var lines []string
	for para := range strings.SplitSeq(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		if len(lines) > 0 {
			lines = append(lines, "")
		}

		line := words[0]
		for _, w := range words[1:] {
			if len(line)+1+len(w) > width {
				lines = append(lines, line)
				line = w
				continue
			}
			line += " " + w
		}
		lines = append(lines, line)
	}
	return lines
}

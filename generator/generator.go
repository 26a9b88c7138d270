// Package generator turns resolved type, function and constant tables into
// a Go source file that binds a shared library through libffi.
package generator

import (
	"path/filepath"
	"regexp"

	"github.com/ardanlabs/ffi-bindgen/docs"
	"github.com/ardanlabs/ffi-bindgen/errors"
)

// Options controls what the generated file looks like.
type Options struct {
	// Header is the C header the bindings came from, named in the banner.
	Header string
	// Package is the Go package clause.
	Package string
	// Library is the shared library base name: lib<Library>.so.
	Library string
	// TextWidth bounds doc comment lines, the // prefix included.
	TextWidth int
	// Exclude drops constants whose C name matches any pattern.
	Exclude []*regexp.Regexp
}

// CompileExcludes compiles the constant exclude patterns.
func CompileExcludes(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "exclude pattern %q", p)
		}
		res = append(res, re)
	}
	return res, nil
}

type Generator struct {
	opts   Options
	tables Tables
	docs   docs.Lookup
}

func New(opts Options, tables Tables, lookup docs.Lookup) *Generator {
	if opts.TextWidth <= 0 {
		opts.TextWidth = 80
	}
	if opts.Header != "" {
		opts.Header = filepath.Base(opts.Header)
	}
	return &Generator{
		opts:   opts,
		tables: tables,
		docs:   lookup,
	}
}

// Generate emits every declaration and renders the file. Nothing is
// returned when any declaration fails.
func (g *Generator) Generate() ([]byte, error) {
	decls, usesUnsafe, err := emit(g.tables, g.docs, g.opts)
	if err != nil {
		return nil, errors.Wrap(err, "emitting declarations")
	}

	src, err := render(g.opts, decls, usesUnsafe)
	if err != nil {
		return nil, errors.Wrap(err, "rendering")
	}
	return src, nil
}

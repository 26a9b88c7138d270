// Package bindgen runs the whole pipeline for one header: front end,
// resolvers, emitter and the write of the generated file.
package bindgen

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/ardanlabs/ffi-bindgen/config"
	"github.com/ardanlabs/ffi-bindgen/docs"
	"github.com/ardanlabs/ffi-bindgen/errors"
	"github.com/ardanlabs/ffi-bindgen/generator"
	"github.com/ardanlabs/ffi-bindgen/logger"
	"github.com/ardanlabs/ffi-bindgen/parser"
	"github.com/ardanlabs/ffi-bindgen/resolver"
)

// Frontend produces the declaration graph and the macro dump of a header.
// parser.Frontend is the castxml implementation.
type Frontend interface {
	Parse(ctx context.Context, header string) (*parser.Header, error)
	Defines(ctx context.Context, header string) ([]parser.Define, error)
}

// NewFrontend builds the castxml front end described by cfg.
func NewFrontend(cfg config.CastXMLConfig) parser.Frontend {
	return parser.Frontend{
		CastXML:    cfg.Path,
		Compiler:   cfg.Compiler,
		CompilerID: cfg.CompilerID,
		Flags:      cfg.Flags,
	}
}

// Result holds the resolved tables of one header.
type Result struct {
	Types     *resolver.Resolver
	Constants *resolver.ConstantTable
}

// Tables returns the tables in the shape the generator consumes.
func (r *Result) Tables() generator.Tables {
	return generator.Tables{
		Types:  r.Types.Types,
		Funcs:  r.Types.Funcs,
		Consts: r.Constants,
	}
}

// Resolve runs the front end on header and resolves its declarations and
// macros. Types are resolved first so macros may name them.
func Resolve(ctx context.Context, fe Frontend, header string) (*Result, error) {
	h, err := fe.Parse(ctx, header)
	if err != nil {
		return nil, err
	}

	types := resolver.New()
	if err := types.Process(h); err != nil {
		return nil, errors.Wrapf(err, "resolving %s", header)
	}

	defines, err := fe.Defines(ctx, header)
	if err != nil {
		return nil, err
	}
	consts := resolver.ResolveConstants(defines, nil, types)

	return &Result{Types: types, Constants: consts}, nil
}

// Generate resolves cfg.Header and renders the bindings. cfg must have
// been validated.
func Generate(ctx context.Context, cfg *config.Config, fe Frontend) ([]byte, error) {
	res, err := Resolve(ctx, fe, cfg.Header)
	if err != nil {
		return nil, err
	}

	var lookup docs.Lookup = docs.None{}
	if cfg.Docs.Dir != "" {
		ix, err := docs.Load(cfg.Docs.Dir)
		if err != nil {
			return nil, errors.Wrap(err, "loading documentation")
		}
		lookup = ix
	}

	exclude, err := generator.CompileExcludes(cfg.Defines.Exclude)
	if err != nil {
		return nil, err
	}

	gen := generator.New(generator.Options{
		Header:    cfg.Header,
		Package:   cfg.Package,
		Library:   cfg.Library,
		TextWidth: cfg.Docs.TextWidth,
		Exclude:   exclude,
	}, res.Tables(), lookup)

	return gen.Generate()
}

// Run generates the bindings for cfg and writes them to cfg.Output, or to
// stdout when the output is "-". Nothing is written when any step fails.
func Run(ctx context.Context, cfg *config.Config, fe Frontend, stdout io.Writer) error {
	src, err := Generate(ctx, cfg, fe)
	if err != nil {
		return err
	}

	if cfg.Output == "" || cfg.Output == "-" {
		_, err := stdout.Write(src)
		return errors.Wrap(err, "writing bindings")
	}

	if err := WriteFile(cfg.Output, src); err != nil {
		return err
	}
	logger.Infow("Wrote bindings", "header", cfg.Header, "output", cfg.Output, "bytes", len(src))
	return nil
}

// WriteFile replaces path with data through a temporary sibling, so
// readers never see a partial file.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return errors.Wrap(err, "creating temporary file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "writing %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", tmp.Name())
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrapf(err, "setting mode of %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "renaming to %s", path)
	}
	return nil
}

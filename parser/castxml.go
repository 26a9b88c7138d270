package parser

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/ardanlabs/ffi-bindgen/errors"
	"github.com/ardanlabs/ffi-bindgen/logger"
)

// Frontend invokes castxml on a header.
type Frontend struct {
	// CastXML is the castxml executable.
	CastXML string
	// Compiler is the compiler castxml imitates; empty lets castxml pick.
	Compiler string
	// CompilerID is the --castxml-cc-<id> flavour (gnu, gnu-c, msvc).
	CompilerID string
	// Flags holds extra compiler flags, shell quoted.
	Flags string
}

// runCommand executes name with args and returns its standard output.
var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		return nil, errors.WithDetail(errors.Wrapf(err, "running %s", name), msg)
	}
	return out, nil
}

func (f Frontend) command() string {
	if f.CastXML == "" {
		return "castxml"
	}
	return f.CastXML
}

func (f Frontend) compilerArgs() ([]string, error) {
	var args []string
	if f.Compiler != "" {
		id := f.CompilerID
		if id == "" {
			id = "gnu"
		}
		args = append(args, "--castxml-cc-"+id, f.Compiler)
	}

	flags, err := shellquote.Split(f.Flags)
	if err != nil {
		return nil, errors.Wrapf(err, "splitting compiler flags %q", f.Flags)
	}
	return append(args, flags...), nil
}

// Parse runs castxml on header and decodes the declaration graph it writes.
func (f Frontend) Parse(ctx context.Context, header string) (*Header, error) {
	args, err := f.compilerArgs()
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "ffi-bindgen-")
	if err != nil {
		return nil, errors.Wrap(err, "creating scratch directory")
	}
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, "header.xml")
	args = append([]string{"--castxml-output=1"}, args...)
	args = append(args, "-o", out, header)

	logger.Debugw("Running castxml", "header", header, "args", args)
	if _, err := runCommand(ctx, f.command(), args...); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", header)
	}

	file, err := os.Open(out)
	if err != nil {
		return nil, errors.Wrap(err, "opening castxml output")
	}
	defer file.Close()

	return Parse(file)
}

// Defines runs the preprocessor over header and returns its object-like
// macros in definition order.
func (f Frontend) Defines(ctx context.Context, header string) ([]Define, error) {
	args, err := f.compilerArgs()
	if err != nil {
		return nil, err
	}
	args = append(args, "-E", "-dM", "-Wno-everything", header)

	logger.Debugw("Dumping macros", "header", header, "args", args)
	out, err := runCommand(ctx, f.command(), args...)
	if err != nil {
		return nil, errors.Wrapf(err, "preprocessing %s", header)
	}
	return ParseDefines(string(out)), nil
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardanlabs/ffi-bindgen/bindgen"
	"github.com/ardanlabs/ffi-bindgen/config"
	"github.com/ardanlabs/ffi-bindgen/parser"
)

// recordedFrontend replays the castxml output kept in testdata.
type recordedFrontend struct{}

func (recordedFrontend) Parse(_ context.Context, _ string) (*parser.Header, error) {
	f, err := os.Open("testdata/sample.xml")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parser.Parse(f)
}

func (recordedFrontend) Defines(_ context.Context, _ string) ([]parser.Define, error) {
	data, err := os.ReadFile("testdata/sample.defines")
	if err != nil {
		return nil, err
	}
	return parser.ParseDefines(string(data)), nil
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	saved := newFrontend
	newFrontend = func(config.CastXMLConfig) bindgen.Frontend { return recordedFrontend{} }
	t.Cleanup(func() { newFrontend = saved })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestGenerateCommand(t *testing.T) {
	output := filepath.Join(t.TempDir(), "sample.go")

	_, err := execute(t, "generate",
		"--header", "testdata/sample.h",
		"--output", output,
		"--package", "sample",
		"--docs", "testdata/doxygen",
		"--text-width", "72")
	require.NoError(t, err)

	assert.Equal(t, "sample", cfg.Library)
	assert.Equal(t, 72, cfg.Docs.TextWidth)
	assert.Equal(t, []string{"^__"}, cfg.Defines.Exclude)

	src, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(src), "package sample\n")
	assert.Contains(t, string(src), "func SampleOpen(path *byte, flags SampleFlags) *SampleCtx {")
}

func TestDefinesCommand(t *testing.T) {
	out, err := execute(t, "defines",
		"--header", "testdata/sample.h",
		"--output", "-",
		"--exclude", "^__",
		"--exclude", "_NAME$")
	require.NoError(t, err)

	assert.Regexp(t, `(?m)^SAMPLE_MAX\s+128$`, out)
	assert.Regexp(t, `(?m)^SAMPLE_VERSION\s+3$`, out)
	assert.NotContains(t, out, "__STDC_VERSION__")
	assert.NotContains(t, out, "SAMPLE_NAME")
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := execute(t, "defines", "--header", "testdata/sample.h", "--package", "not a package")
	assert.ErrorContains(t, err, "not a valid Go identifier")

	_, err = execute(t, "defines", "--config", filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

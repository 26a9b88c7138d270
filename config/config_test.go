package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "-", cfg.Output)
	assert.Equal(t, "bindings", cfg.Package)
	assert.Equal(t, "castxml", cfg.CastXML.Path)
	assert.Equal(t, "gnu", cfg.CastXML.CompilerID)
	assert.Equal(t, 80, cfg.Docs.TextWidth)
	assert.Equal(t, []string{"^__"}, cfg.Defines.Exclude)
	assert.False(t, cfg.Log.JSON)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`
header = "include/sample.h"
package = "sample"

[castxml]
compiler = "/usr/bin/clang"
flags = "-Iinclude -DSAMPLE_API="

[docs]
dir = "build/xml"
text_width = 100

[defines]
exclude = ["^__", "_H$"]
`), 0o644))

	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "include/sample.h", cfg.Header)
	assert.Equal(t, "sample", cfg.Package)
	assert.Equal(t, "/usr/bin/clang", cfg.CastXML.Compiler)
	assert.Equal(t, "-Iinclude -DSAMPLE_API=", cfg.CastXML.Flags)
	assert.Equal(t, "gnu", cfg.CastXML.CompilerID)
	assert.Equal(t, "build/xml", cfg.Docs.Dir)
	assert.Equal(t, 100, cfg.Docs.TextWidth)
	assert.Equal(t, []string{"^__", "_H$"}, cfg.Defines.Exclude)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FFI_BINDGEN_PACKAGE", "fromenv")
	t.Setenv("FFI_BINDGEN_DOCS_TEXT_WIDTH", "72")

	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "fromenv", cfg.Package)
	assert.Equal(t, 72, cfg.Docs.TextWidth)
}

func TestExplicitMissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Header:  "/src/include/calculator.h",
		Package: "calculator",
		CastXML: CastXMLConfig{CompilerID: "gnu"},
		Docs:    DocsConfig{TextWidth: 80},
		Defines: DefinesConfig{Exclude: []string{"^__"}},
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "calculator", cfg.Library)

	cfg = validConfig()
	cfg.Library = "calc"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "calc", cfg.Library)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing header", func(c *Config) { c.Header = "" }},
		{"bad package", func(c *Config) { c.Package = "my-bindings" }},
		{"narrow text", func(c *Config) { c.Docs.TextWidth = 5 }},
		{"compiler id", func(c *Config) { c.CastXML.CompilerID = "tcc" }},
		{"bad pattern", func(c *Config) { c.Defines.Exclude = []string{"("} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

package config

import (
	"go/token"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ardanlabs/ffi-bindgen/errors"
)

// Validate checks the configuration and fills in derived values: the
// library name defaults to the header's base name.
func (c *Config) Validate() error {
	if c.Header == "" {
		return errors.WithHint(errors.New("header is required"), "pass --header or set header in "+FileName)
	}

	if c.Library == "" {
		base := filepath.Base(c.Header)
		c.Library = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if !token.IsIdentifier(c.Package) {
		return errors.Newf("package %q is not a valid Go identifier", c.Package)
	}

	if c.Docs.TextWidth < 20 {
		return errors.Newf("docs.text_width must be >= 20, got %d", c.Docs.TextWidth)
	}

	switch c.CastXML.CompilerID {
	case "gnu", "gnu-c", "msvc":
	default:
		return errors.Newf("castxml.compiler_id must be gnu, gnu-c or msvc, got %q", c.CastXML.CompilerID)
	}

	for _, pattern := range c.Defines.Exclude {
		if _, err := regexp.Compile(pattern); err != nil {
			return errors.Wrapf(err, "defines.exclude pattern %q", pattern)
		}
	}
	return nil
}

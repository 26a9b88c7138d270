// Package config loads ffi-bindgen settings from defaults, an optional TOML
// file, FFI_BINDGEN_* environment variables and command-line flags.
package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/ardanlabs/ffi-bindgen/errors"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "ffi-bindgen.toml"

// Config is the complete generator configuration.
type Config struct {
	Header  string `mapstructure:"header"`
	Output  string `mapstructure:"output"`  // generated file; "-" writes to stdout
	Package string `mapstructure:"package"` // Go package of the generated file
	Library string `mapstructure:"library"` // shared library name, without lib prefix or extension

	CastXML CastXMLConfig `mapstructure:"castxml"`
	Docs    DocsConfig    `mapstructure:"docs"`
	Defines DefinesConfig `mapstructure:"defines"`
	Log     LogConfig     `mapstructure:"log"`
}

// CastXMLConfig configures the header front end
type CastXMLConfig struct {
	Path       string `mapstructure:"path"`
	Compiler   string `mapstructure:"compiler"`    // compiler castxml imitates (cc, clang, cl.exe)
	CompilerID string `mapstructure:"compiler_id"` // gnu, gnu-c or msvc
	Flags      string `mapstructure:"flags"`       // extra compiler flags, shell quoted
}

// DocsConfig configures documentation lookup
type DocsConfig struct {
	Dir       string `mapstructure:"dir"`        // Doxygen XML directory; empty disables docs
	TextWidth int    `mapstructure:"text_width"` // wrap width of generated doc comments
}

// DefinesConfig configures constant emission
type DefinesConfig struct {
	Exclude []string `mapstructure:"exclude"` // regular expressions of macro names to leave out
}

// LogConfig configures logging
type LogConfig struct {
	JSON    bool `mapstructure:"json"`
	Verbose bool `mapstructure:"verbose"`
}

// New returns a Viper instance with defaults, environment binding and,
// when it exists, the configuration file. An empty path means FileName in
// the working directory, which may be absent.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("FFI_BINDGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = FileName
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if _, err := os.Stat(path); err != nil {
		if explicit {
			return nil, errors.Wrapf(err, "config file %s", path)
		}
		return v, nil
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}
	return v, nil
}

// Load unmarshals v into a Config.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &cfg, nil
}

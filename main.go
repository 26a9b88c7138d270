package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ardanlabs/ffi-bindgen/config"
	"github.com/ardanlabs/ffi-bindgen/errors"
	"github.com/ardanlabs/ffi-bindgen/logger"
)

var (
	configPath string
	cfg        *config.Config
)

// flagKeys maps each persistent flag to the configuration key it sets.
var flagKeys = map[string]string{
	"header":      "header",
	"output":      "output",
	"package":     "package",
	"lib":         "library",
	"castxml":     "castxml.path",
	"compiler":    "castxml.compiler",
	"compiler-id": "castxml.compiler_id",
	"cflags":      "castxml.flags",
	"docs":        "docs.dir",
	"text-width":  "docs.text_width",
	"exclude":     "defines.exclude",
	"json":        "log.json",
	"verbose":     "log.verbose",
}

var rootCmd = &cobra.Command{
	Use:   "ffi-bindgen",
	Short: "Generate Go bindings for a C shared library",
	Long: `ffi-bindgen reads a C header through castxml and writes one Go file that
loads the matching shared library at runtime through libffi.

Settings come from flags, FFI_BINDGEN_* environment variables and an
optional ffi-bindgen.toml in the working directory.

Examples:
  ffi-bindgen generate --header sample.h --output sample/sample.go --package sample
  ffi-bindgen defines --header sample.h
  ffi-bindgen watch --header sample.h --output sample/sample.go`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = loadConfig(cmd); err != nil {
			return err
		}
		if err := logger.Initialize(cfg.Log.JSON, cfg.Log.Verbose); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Configuration file (default ./"+config.FileName+" when present)")
	flags.String("header", "", "Path to C header file")
	flags.StringP("output", "o", "", `Generated Go file; "-" writes to stdout`)
	flags.String("package", "", "Go package name")
	flags.String("lib", "", "Library name (e.g., 'mylib' for libmylib.so)")
	flags.String("castxml", "", "castxml executable")
	flags.String("compiler", "", "Compiler castxml imitates")
	flags.String("compiler-id", "", "Compiler flavour: gnu, gnu-c or msvc")
	flags.String("cflags", "", "Extra compiler flags, shell quoted")
	flags.String("docs", "", "Doxygen XML directory used for doc comments")
	flags.Int("text-width", 0, "Wrap width of generated doc comments")
	flags.StringSlice("exclude", nil, "Regular expressions of macro names to leave out")
	flags.Bool("json", false, "Log as JSON")
	flags.BoolP("verbose", "v", false, "Log debug output")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(definesCmd)
	rootCmd.AddCommand(watchCmd)
}

// loadConfig layers the flags of cmd over the environment, the
// configuration file and the defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := config.New(configPath)
	if err != nil {
		return nil, err
	}

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return nil, errors.Wrapf(err, "binding --%s", name)
		}
	}

	c, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

package config

import "github.com/spf13/viper"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("header", "")
	v.SetDefault("output", "-")
	v.SetDefault("package", "bindings")
	v.SetDefault("library", "")

	// castxml on PATH, imitating the GNU toolchain
	v.SetDefault("castxml.path", "castxml")
	v.SetDefault("castxml.compiler", "")
	v.SetDefault("castxml.compiler_id", "gnu")
	v.SetDefault("castxml.flags", "")

	v.SetDefault("docs.dir", "")
	v.SetDefault("docs.text_width", 80)

	// Compiler-internal macros
	v.SetDefault("defines.exclude", []string{"^__"})

	v.SetDefault("log.json", false)
	v.SetDefault("log.verbose", false)
}

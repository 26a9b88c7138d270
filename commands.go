package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ardanlabs/ffi-bindgen/bindgen"
	"github.com/ardanlabs/ffi-bindgen/config"
	"github.com/ardanlabs/ffi-bindgen/errors"
	"github.com/ardanlabs/ffi-bindgen/generator"
	"github.com/ardanlabs/ffi-bindgen/logger"
)

// newFrontend builds the header front end; tests replace it.
var newFrontend = func(c config.CastXMLConfig) bindgen.Frontend {
	return bindgen.NewFrontend(c)
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the Go bindings for a header",
	Long: `Run castxml on the header, resolve its types, functions and macros, and
write a single Go file binding the shared library.

The output file is only replaced once generation has fully succeeded.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return bindgen.Run(cmd.Context(), cfg, newFrontend(cfg.CastXML), cmd.OutOrStdout())
	},
}

var definesCmd = &cobra.Command{
	Use:   "defines",
	Short: "Print the macros of a header that resolve to constants",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := bindgen.Resolve(cmd.Context(), newFrontend(cfg.CastXML), cfg.Header)
		if err != nil {
			return err
		}

		exclude, err := generator.CompileExcludes(cfg.Defines.Exclude)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	next:
		for _, c := range res.Constants.Constants() {
			for _, re := range exclude {
				if re.MatchString(c.Name) {
					continue next
				}
			}
			fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Value)
		}
		return tw.Flush()
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate the bindings whenever the header changes",
	Long: `Generate the bindings once, then regenerate them every time the header is
written. Failed regenerations are logged and leave the previous output in
place. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Output == "-" {
			return errors.WithHint(errors.New("watch needs an output file"), "pass --output")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		regenerate := func() error {
			return bindgen.Run(ctx, cfg, newFrontend(cfg.CastXML), cmd.OutOrStdout())
		}
		if err := regenerate(); err != nil {
			logger.Errorw("Generation failed", "header", cfg.Header, "error", err)
		}

		w, err := bindgen.NewWatcher(cfg.Header, regenerate)
		if err != nil {
			return err
		}

		logger.Infow("Watching header", "header", cfg.Header, "output", cfg.Output)
		return w.Run(ctx)
	},
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// Execute runs the okapi CLI until it finishes or is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "okapi",
		Short: "Describe HTTP APIs and generate docs and ESP32 firmware from them",
		Long: "okapi keeps API documents (models, endpoints, parameters, responses) and turns them " +
			"into text and HTML documentation, ESP32 client and server sketches, or OpenAPI.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	usageOnFlagError(cmd)

	pf := cmd.PersistentFlags()
	pf.StringP("config", "c", "", "Config file path (YAML or JSON)")
	pf.BoolP("verbose", "v", false, "Enable verbose logging output")
	pf.String("basedir", "", "Storage root for API documents (default ~/.okapi)")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.String("log-format", "", "Log format: text or json")
	pf.String("log-file", "", "Also append JSON logs to this file")
	pf.Bool("trace", false, "Print OpenTelemetry spans to stderr")

	for _, sub := range []*cobra.Command{
		newInitCmd(),
		newNewCmd(),
		newListCmd(),
		newShowCmd(),
		newValidateCmd(),
		newExampleCmd(),
		newGenerateCmd(),
		newImportCmd(),
		newDeleteCmd(),
		newRequestCmd(),
	} {
		usageOnFlagError(sub)
		cmd.AddCommand(sub)
	}
	return cmd
}

// usageOnFlagError converts Cobra flag errors (like unknown flags) into
// usage errors that also carry the command's help text.
func usageOnFlagError(cmd *cobra.Command) {
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
	})
}

// usageArgs wraps a positional argument validator so its failures are
// usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return newUsageError(fmt.Sprintf("%s: %v\n\n%s", cmd.Name(), err, cmd.UsageString()))
		}
		return nil
	}
}

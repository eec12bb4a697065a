package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okapi-tools/okapi/internal/emitter"
)

const defaultConfigName = "okapi.yaml"

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample okapi configuration file",
		Long:  "Scaffold a commented okapi configuration file that documents available options.",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			cfg := &InitConfig{OutputPath: out, Force: force}
			return initRunner(cmd.Context(), cmd, cfg)
		},
	}

	cmd.Flags().String("out", defaultConfigName, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")
	return cmd
}

func runInit(_ context.Context, cmd *cobra.Command, cfg *InitConfig) error {
	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = defaultConfigName
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force {
		if st.Mode().IsRegular() {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
		}
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"
	if err := emitter.WriteFileAtomic(absPath, []byte(content), 0o644); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write %s: %v\nHint: choose a different --out or check directory permissions.", absPath, err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# okapi configuration (YAML)
# All fields are optional. Environment variables (OKAPI_*) and a .env file
# override the defaults, this file overrides the environment and command-line
# flags override everything.

# Storage root; documents live in <basedir>/apidoc. Defaults to ~/.okapi.
# basedir: ~/.okapi

# log:
#   level: warn            # debug|info|warn|error
#   format: text           # text|json
#   file: ./okapi.log      # also append JSON logs here
#   sentry_dsn: https://key@sentry.example.com/1
#   environment: development

# Print OpenTelemetry spans for generation runs.
# trace: false

# Enable verbose logging.
# verbose: false

# Generate defaults for every document: output directory, targets
# (text|html|client|server|openapi) and descriptive comments in firmware.
# generate:
#   out: ./build
#   targets: [text, client]
#   comments: true

# Per-document generate settings, keyed by document name. They refine the
# generate section; a --file document matches on its file name.
# documents:
#   Sensor API:
#     out: ./firmware
#     targets: [client, server]
#     endpoints: ["GET /readings/{id}"]
`

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/okapi-tools/okapi/internal/codegen"
	"github.com/okapi-tools/okapi/internal/validate"
)

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Document  string
	File      string
	Targets   []string
	Out       string
	Endpoints []apidoc.EndpointRef
	Comments  bool
	Force     bool
	DryRun    bool
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [NAME]",
		Short: "Generate documentation, firmware or OpenAPI from a document",
		Long: "Generate artifacts from a stored document or a document file. " +
			"Targets: " + strings.Join(codegen.Targets(), ", ") + ". " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  okapi generate "Sensor API" --target client,server --out ./firmware
  okapi generate --file sensor_api.json --target html --endpoint "GET /readings/{id}"
  okapi --config okapi.yaml generate "Sensor API" --force --dry-run`),
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd, args, a.cfg)
			if err != nil {
				return err
			}
			return generateRunner(ctx, a, cfg)
		}),
	}

	flags := cmd.Flags()
	flags.String("file", "", "Read the document from this file instead of the store")
	flags.StringSlice("target", nil, "Targets to generate (comma-separated or repeated)")
	flags.String("out", "", "Output directory (created when missing)")
	flags.StringArray("endpoint", nil, `Only include this endpoint, as "METHOD URI" (repeatable)`)
	flags.Bool("no-comments", false, "Leave descriptive comments out of firmware sources")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing artifacts")
	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command, args []string, base *Config) (*GenerateConfig, error) {
	cfg := GenerateConfig{Document: optionalArg(args, 0)}
	file, err := cmd.Flags().GetString("file")
	if err != nil {
		return nil, err
	}
	s := base.settingsFor(strings.TrimSpace(cfg.Document), strings.TrimSpace(file))
	cfg.Targets = s.Targets
	cfg.Out = s.Out
	cfg.Comments = s.Comments == nil || *s.Comments
	cfg.Endpoints = s.Endpoints
	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	if flags.Changed("file") {
		value, err := flags.GetString("file")
		if err != nil {
			return err
		}
		cfg.File = value
	}
	if flags.Changed("target") {
		value, err := flags.GetStringSlice("target")
		if err != nil {
			return err
		}
		cfg.Targets = value
	}
	if flags.Changed("out") {
		value, err := flags.GetString("out")
		if err != nil {
			return err
		}
		cfg.Out = value
	}
	if flags.Changed("endpoint") {
		values, err := flags.GetStringArray("endpoint")
		if err != nil {
			return err
		}
		cfg.Endpoints = nil
		for _, v := range cleanList(values, false) {
			ref, err := apidoc.ParseEndpointRef(v)
			if err != nil {
				return newUsageError("generate: " + err.Error())
			}
			cfg.Endpoints = append(cfg.Endpoints, ref)
		}
	}
	if flags.Changed("no-comments") {
		value, err := flags.GetBool("no-comments")
		if err != nil {
			return err
		}
		cfg.Comments = !value
	}
	if flags.Changed("dry-run") {
		value, err := flags.GetBool("dry-run")
		if err != nil {
			return err
		}
		cfg.DryRun = value
	}
	if flags.Changed("force") {
		value, err := flags.GetBool("force")
		if err != nil {
			return err
		}
		cfg.Force = value
	}
	return nil
}

func (c *GenerateConfig) normalize() {
	c.Document = strings.TrimSpace(c.Document)
	c.File = strings.TrimSpace(c.File)
	c.Out = strings.TrimSpace(c.Out)
	if c.Out == "" {
		c.Out = "."
	}
	c.Targets = cleanList(c.Targets, true)
}

func (c *GenerateConfig) validate() error {
	if c.Document == "" && c.File == "" {
		return newUsageError("generate: a document NAME or --file is required")
	}
	if c.Document != "" && c.File != "" {
		return newUsageError("generate: give either a document NAME or --file, not both")
	}
	if len(c.Targets) == 0 {
		return newUsageError(fmt.Sprintf("generate: --target is required (allowed: %s)", strings.Join(codegen.Targets(), ", ")))
	}
	for _, t := range c.Targets {
		if _, ok := codegen.Lookup(t); !ok {
			return newUsageError(fmt.Sprintf("generate: unsupported --target %q (allowed: %s)", t, strings.Join(codegen.Targets(), ", ")))
		}
	}
	return nil
}

func runGenerate(ctx context.Context, a *app, cfg *GenerateConfig) error {
	d, err := a.loadDocument(cfg.Document, cfg.File)
	if err != nil {
		return err
	}

	absOut := cfg.Out
	if ap, err := filepath.Abs(cfg.Out); err == nil {
		absOut = ap
	}
	if cfg.DryRun {
		if st, err := os.Stat(absOut); err != nil || !st.IsDir() {
			return newUsageError(fmt.Sprintf("generate: output directory %s does not exist", absOut))
		}
	} else if err := os.MkdirAll(absOut, 0o755); err != nil {
		return wrapOutputError(err, absOut)
	}

	runs := make([]codegen.Options, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		if !cfg.Force && !cfg.DryRun {
			name, err := codegen.OutputName(d.Name, t)
			if err != nil {
				return err
			}
			if _, err := os.Stat(filepath.Join(absOut, name)); err == nil {
				return newUsageError(fmt.Sprintf("generate: %s already exists in %s (use --force to overwrite)", name, absOut))
			}
		}
		runs = append(runs, codegen.Options{
			Target:    t,
			OutDir:    absOut,
			Comments:  cfg.Comments,
			Endpoints: cfg.Endpoints,
			DryRun:    cfg.DryRun,
			Logger:    a.log,
		})
	}

	results, err := codegen.GenerateAll(ctx, d, runs)
	if err != nil {
		var verr *validate.Error
		switch {
		case errors.As(err, &verr):
			a.printf("%s\n", issueLines(verr.Issues))
			return fmt.Errorf("generate %s: %w", d.Name, validate.ErrInvalid)
		case errors.Is(err, codegen.ErrUnknownEndpoint):
			return newUsageError("generate: " + err.Error())
		}
		return wrapOutputError(err, absOut)
	}

	for _, res := range results {
		if cfg.DryRun {
			printPlan(a, res)
			continue
		}
		a.printf("Generated %s: %s\n", res.Target, res.Path)
	}
	return nil
}

func printPlan(a *app, res *codegen.Result) {
	a.printf("Planned writes for %s to %s (%d files):\n", res.Target, res.Path, len(res.Files))
	for _, p := range res.Files {
		a.printf("- %s\n", p.RelPath)
	}
}

func wrapOutputError(err error, outDir string) error {
	// Provide clearer guidance for common FS failures.
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}

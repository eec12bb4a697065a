package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/okapi-tools/okapi/internal/openapi"
	"github.com/okapi-tools/okapi/internal/store"
	"github.com/okapi-tools/okapi/internal/validate"
)

// ImportConfig captures the inputs of the import command.
type ImportConfig struct {
	Input         string
	Name          string
	IncludeTags   []string
	ExcludeTags   []string
	Methods       []apidoc.Method
	Paths         []string
	AllowFileRefs bool
	Force         bool
}

var importRunner = runImport

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a Swagger/OpenAPI document as an API document",
		Long: "Import a Swagger 2.0 or OpenAPI 3 document from a file or http(s) URL. " +
			"Schemas become models and operations become endpoints.",
		Example: strings.TrimSpace(`  okapi import --input petstore.yaml --name "Pet Store"
  okapi import --input https://example.com/openapi.json --include-tags public --methods GET`),
		Args: usageArgs(cobra.NoArgs),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			cfg, err := resolveImportConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return importRunner(ctx, a, cfg)
		}),
	}
	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the Swagger/OpenAPI document")
	flags.String("name", "", "Name of the API document (defaults to info.title)")
	flags.StringSlice("include-tags", nil, "Only include operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude operations with these tags")
	flags.StringSlice("methods", nil, "Only include these HTTP methods")
	flags.StringArray("path", nil, "Only include paths matching this regular expression, e.g. ^/pets (repeatable)")
	flags.Bool("allow-file-refs", false, "Resolve $ref to local files next to a local input")
	flags.Bool("force", false, "Replace a stored document with the same name")
	return cmd
}

func resolveImportConfig(flags *pflag.FlagSet) (*ImportConfig, error) {
	cfg := &ImportConfig{}
	cfg.Input, _ = flags.GetString("input")
	cfg.Name, _ = flags.GetString("name")
	include, _ := flags.GetStringSlice("include-tags")
	exclude, _ := flags.GetStringSlice("exclude-tags")
	methods, _ := flags.GetStringSlice("methods")
	paths, _ := flags.GetStringArray("path")
	cfg.AllowFileRefs, _ = flags.GetBool("allow-file-refs")
	cfg.Force, _ = flags.GetBool("force")

	cfg.Input = strings.TrimSpace(cfg.Input)
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.IncludeTags = cleanList(include, false)
	cfg.ExcludeTags = cleanList(exclude, false)
	cfg.Paths = cleanList(paths, false)

	if cfg.Input == "" {
		return nil, newUsageError("import: --input is required")
	}
	if both := overlap(cfg.IncludeTags, cfg.ExcludeTags); len(both) > 0 {
		return nil, newUsageError(fmt.Sprintf("import: include/exclude tags overlap: %s", strings.Join(both, ", ")))
	}
	for _, m := range cleanList(methods, false) {
		method, ok := apidoc.ParseMethod(m)
		if !ok {
			return nil, newUsageError(fmt.Sprintf("import: unsupported method %q", m))
		}
		cfg.Methods = append(cfg.Methods, method)
	}
	return cfg, nil
}

func runImport(ctx context.Context, a *app, cfg *ImportConfig) error {
	opts := []openapi.ImportOption{
		openapi.WithAllowFileRefs(cfg.AllowFileRefs),
		openapi.WithIncludeTags(cfg.IncludeTags),
		openapi.WithExcludeTags(cfg.ExcludeTags),
		openapi.WithLogger(a.log),
	}
	if cfg.Name != "" {
		opts = append(opts, openapi.WithName(cfg.Name))
	}
	if len(cfg.Methods) > 0 {
		opts = append(opts, openapi.WithMethods(cfg.Methods))
	}
	if len(cfg.Paths) > 0 {
		opts = append(opts, openapi.WithPathPatterns(cfg.Paths))
	}
	d, err := openapi.ImportFrom(ctx, cfg.Input, opts...)
	if err != nil {
		var ie *openapi.Error
		if errors.As(err, &ie) && ie.Stage != openapi.StageImport {
			msg := "import: " + ie.Error()
			if ie.Pointer != "" {
				msg = fmt.Sprintf("%s\nPointer: %s", msg, ie.Pointer)
			}
			return newUsageError(msg)
		}
		return fmt.Errorf("import: %w", err)
	}

	st, err := a.store()
	if err != nil {
		return err
	}
	if st.Exists(d.Name) && !cfg.Force {
		return newUsageError(fmt.Sprintf("import: document %q already exists at %s (use --force to replace)", d.Name, st.Path(d.Name)))
	}
	path, err := st.Save(d)
	if err != nil {
		var verr *validate.Error
		if errors.As(err, &verr) && errors.Is(err, &store.Error{Code: store.Invalid}) {
			a.printf("%s\n", issueLines(verr.Issues))
		}
		return err
	}
	a.printf("Imported %q (%d models, %d endpoints) to %s\n", d.Name, d.Models.Len(), len(d.EndpointRefs()), path)
	return nil
}

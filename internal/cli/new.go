package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okapi-tools/okapi/internal/pathutil"
	"github.com/okapi-tools/okapi/internal/store"
	"github.com/okapi-tools/okapi/internal/validate"
)

func newNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create an empty API document",
		Example: strings.TrimSpace(`  okapi new --name "Sensor API" --version 1.0 --address 192.168.4.1
  okapi new --name Lamp --version 2 --header "X-Device: esp32" --header "Accept: application/json"`),
		Args: usageArgs(cobra.NoArgs),
		RunE: withApp(runNew),
	}
	flags := cmd.Flags()
	flags.String("name", "", "API name")
	flags.String("version", "1.0", "API version")
	flags.String("address", "", "Base address, e.g. 192.168.4.1 or https://api.example.com")
	flags.String("info", "", "Description")
	flags.StringArray("header", nil, `Default request header as "Key: Value" (repeatable)`)
	flags.Bool("force", false, "Replace a stored document with the same name")
	return cmd
}

func runNew(_ context.Context, a *app, cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	name, _ := flags.GetString("name")
	version, _ := flags.GetString("version")
	address, _ := flags.GetString("address")
	info, _ := flags.GetString("info")
	headers, _ := flags.GetStringArray("header")
	force, _ := flags.GetBool("force")

	name, version = strings.TrimSpace(name), strings.TrimSpace(version)
	address = pathutil.NormalizeAddress(address)
	report := validate.Metadata(name, version, address)
	if !report.Valid() {
		return newUsageError("new: " + issueLines(report.Filter(validate.SeverityError)))
	}
	for _, w := range report.Filter(validate.SeverityWarning) {
		a.log.Warn("metadata warning", "issue", w.String())
	}

	st, err := a.store()
	if err != nil {
		return err
	}
	if st.Exists(name) && !force {
		return newUsageError(fmt.Sprintf("new: document %q already exists at %s (use --force to replace)", name, st.Path(name)))
	}

	sess := store.NewSession(st)
	d := sess.NewDocument(name, version)
	d.Address = address
	d.Info = strings.TrimSpace(info)
	for _, h := range pathutil.ParseHeaderLines(strings.Join(headers, "\n")) {
		d.SetHeader(h.Key, h.Value)
	}
	path, err := sess.Save()
	if err != nil {
		return err
	}
	a.printf("Created %q at %s\n", d.Name, path)
	return nil
}

func issueLines(issues []validate.Issue) string {
	lines := make([]string, len(issues))
	for i, is := range issues {
		lines[i] = is.String()
	}
	return strings.Join(lines, "\n")
}

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/okapi-tools/okapi/internal/apidoc"
)

var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [NAME]",
		Short: "Show a document summary and its endpoint index",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE:  withApp(runShow),
	}
	cmd.Flags().String("file", "", "Read the document from this file instead of the store")
	cmd.Flags().Bool("dump", false, "Dump the in-memory document structure")
	return cmd
}

func runShow(_ context.Context, a *app, cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	dump, _ := cmd.Flags().GetBool("dump")
	d, err := a.loadDocument(optionalArg(args, 0), file)
	if err != nil {
		return err
	}
	if dump {
		dumper.Fdump(a.out, d)
		return nil
	}

	a.printf("%s %s\n", d.Name, d.Version)
	if d.Address != "" {
		a.printf("Address: %s\n", d.Address)
	}
	if d.Info != "" {
		a.printf("%s\n", d.Info)
	}
	for k, v := range d.Headers.All() {
		a.printf("Header:  %s: %s\n", k, v)
	}
	if d.Models.Len() > 0 {
		a.printf("\nModels:\n")
		for name, m := range d.Models.All() {
			a.printf("  %s (%d attributes)\n", name, m.Attributes.Len())
		}
	}
	a.printf("\nEndpoints:\n")
	a.printf("%s", endpointIndex(d, "  "))
	return nil
}

// endpointIndex lists every endpoint with its query parameters spelled out
// after the URI, method and URI columns aligned.
func endpointIndex(d *apidoc.Document, indent string) string {
	refs := d.EndpointRefs()
	if len(refs) == 0 {
		return indent + "(none)\n"
	}
	uris := make([]string, len(refs))
	width := 0
	for i, r := range refs {
		ep, _ := d.Endpoint(r.Method, r.URI)
		uris[i] = r.URI + derivedQuery(ep)
		width = max(width, len(uris[i]))
	}
	var b strings.Builder
	for i, r := range refs {
		ep, _ := d.Endpoint(r.Method, r.URI)
		line := fmt.Sprintf("%s%-*s  %-*s  %s", indent, d.MaxMethodLen(), r.Method, width, uris[i], ep.Summary)
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteByte('\n')
	}
	return b.String()
}

func derivedQuery(ep *apidoc.Endpoint) string {
	var parts []string
	for _, el := range ep.ParamsBySource(apidoc.SourceQuery) {
		parts = append(parts, el.Key+"={"+el.Key+"}")
	}
	if len(parts) == 0 {
		return ""
	}
	return "?" + strings.Join(parts, "&")
}

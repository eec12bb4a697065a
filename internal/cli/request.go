package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/okapi-tools/okapi/internal/probe"
)

func newRequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request NAME METHOD URI",
		Short: "Send a test request to a documented endpoint",
		Example: strings.TrimSpace(`  okapi request "Sensor API" GET "/readings/{id}" -p id=3
  okapi request Lamp POST /state -p body='{"on":true}' -p X-Api-Key=secret`),
		Args: usageArgs(cobra.ExactArgs(3)),
		RunE: withApp(runRequest),
	}
	cmd.Flags().StringArrayP("param", "p", nil, "Parameter value as key=value (repeatable)")
	cmd.Flags().String("address", "", "Send to this address instead of the document's")
	cmd.Flags().Duration("timeout", probe.Ceiling, "Request timeout, at most 5s")
	return cmd
}

func runRequest(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetStringArray("param")
	address, _ := cmd.Flags().GetString("address")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	method, ok := apidoc.ParseMethod(args[1])
	if !ok {
		return newUsageError(fmt.Sprintf("request: unsupported method %q", args[1]))
	}
	values := make(map[string]string, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return newUsageError(fmt.Sprintf("request: parameter %q is not key=value", kv))
		}
		values[strings.TrimSpace(k)] = v
	}

	d, err := a.loadDocument(args[0], "")
	if err != nil {
		return err
	}
	if address = strings.TrimSpace(address); address != "" {
		d.Address = address
	}
	req, err := probe.Build(d, method, args[2], values)
	if err != nil {
		var perr *probe.ParamError
		if errors.As(err, &perr) || errors.Is(err, apidoc.ErrNotFound) || errors.Is(err, probe.ErrNoAddress) {
			return newUsageError("request: " + err.Error())
		}
		return err
	}

	a.printf("%s\n", req.String())
	for _, h := range req.Header {
		a.printf("> %s: %s\n", h.Key, h.Value)
	}
	if req.Body != "" {
		a.printf("\n%s\n", req.Body)
	}

	client := probe.NewClient(probe.WithLogger(a.log), probe.WithTimeout(timeout))
	resp, err := client.Do(ctx, req)
	if err != nil {
		return err
	}
	a.printf("\n< %d %s (%s)\n", resp.Status, resp.Reason, resp.Elapsed.Round(time.Millisecond))
	for _, k := range sortedHeaderKeys(resp) {
		a.printf("< %s: %s\n", k, strings.Join(resp.Header.Values(k), ", "))
	}
	if len(resp.Body) > 0 {
		a.printf("\n%s\n", prettyBody(resp))
	}
	return nil
}

func sortedHeaderKeys(resp *probe.Response) []string {
	keys := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// prettyBody indents JSON bodies and returns anything else as is.
func prettyBody(resp *probe.Response) string {
	if strings.Contains(resp.ContentType, "json") {
		var buf bytes.Buffer
		if err := json.Indent(&buf, resp.Body, "", "  "); err == nil {
			return buf.String()
		}
	}
	return strings.TrimRight(string(resp.Body), "\n")
}

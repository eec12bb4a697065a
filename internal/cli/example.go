package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okapi-tools/okapi/internal/synth"
)

func newExampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "example [NAME] MODEL",
		Short: "Print a synthesized JSON example for a model",
		Args:  usageArgs(cobra.RangeArgs(1, 2)),
		RunE:  withApp(runExample),
	}
	cmd.Flags().String("file", "", "Read the document from this file instead of the store")
	return cmd
}

func runExample(_ context.Context, a *app, cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	name, model := "", args[len(args)-1]
	if len(args) == 2 {
		name = args[0]
	}
	d, err := a.loadDocument(name, file)
	if err != nil {
		return err
	}
	v, err := synth.Synthesize(model, d.Models)
	switch {
	case errors.Is(err, synth.ErrUnknownModel) && !d.Models.Has(model):
		return newUsageError(fmt.Sprintf("example: %s has no model %q", d.Name, model))
	case err != nil:
		a.log.Warn("example is partial", "model", model, "error", err)
	}
	text, err := v.Indent("  ")
	if err != nil {
		return err
	}
	a.printf("%s\n", text)
	return nil
}

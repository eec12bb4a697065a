package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/okapi-tools/okapi/internal/emitter"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored API documents",
		Args:  usageArgs(cobra.NoArgs),
		RunE:  withApp(runList),
	}
}

func runList(_ context.Context, a *app, _ *cobra.Command, _ []string) error {
	st, err := a.store()
	if err != nil {
		return err
	}
	entries, err := st.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		a.printf("No documents in %s\n", st.Dir())
		return nil
	}
	t := emitter.NewTable("", "Name", "Version", "Models", "Endpoints", "Modified")
	for _, e := range entries {
		t.Add(e.Name, e.Version, strconv.Itoa(e.Models), strconv.Itoa(e.Endpoints), e.ModTime.Format("2006-01-02 15:04"))
	}
	a.printf("%s", t.String())
	return nil
}

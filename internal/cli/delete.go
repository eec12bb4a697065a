package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a stored API document",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE:  withApp(runDelete),
	}
}

func runDelete(_ context.Context, a *app, _ *cobra.Command, args []string) error {
	st, err := a.store()
	if err != nil {
		return err
	}
	if err := st.Delete(args[0]); err != nil {
		return err
	}
	a.printf("Deleted %q\n", args[0])
	return nil
}

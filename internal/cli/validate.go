package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okapi-tools/okapi/internal/validate"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [NAME]",
		Short: "Check a document and list every issue",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE:  withApp(runValidate),
	}
	cmd.Flags().String("file", "", "Read the document from this file instead of the store")
	return cmd
}

func runValidate(_ context.Context, a *app, cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	d, err := a.loadDocument(optionalArg(args, 0), file)
	if err != nil {
		return err
	}
	report := validate.Document(d)
	for _, is := range report.Issues {
		a.printf("%s\n", is.String())
	}
	errs := len(report.Filter(validate.SeverityError))
	warns := len(report.Filter(validate.SeverityWarning))
	a.printf("%s: %d errors, %d warnings\n", d.Name, errs, warns)
	if errs > 0 {
		return fmt.Errorf("%s: %w", d.Name, validate.ErrInvalid)
	}
	return nil
}

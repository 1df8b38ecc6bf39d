package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

func addDelete(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "delete <window>...",
		Aliases: []string{"rm"},
		Short:   "Forget saved windows.",
		Example: `
tabtree delete scratch
`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completeWindows,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			svc, _, err := loadService()
			if err != nil {
				return err
			}
			var errs []error
			for _, name := range args {
				errs = append(errs, svc.Delete(context.Background(), name))
			}
			return output.HandleError(errors.Join(errs...))
		},
	}

	topLevel.AddCommand(cmd)
}

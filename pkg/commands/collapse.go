package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"tableflip.dev/tabtree/pkg/app"
)

func addCollapse(topLevel *cobra.Command) {
	topLevel.AddCommand(collapseCommand("collapse", true, "Hide the descendants of tabs."))
	topLevel.AddCommand(collapseCommand("expand", false, "Show the descendants of tabs."))
}

func collapseCommand(use string, collapsed bool, short string) *cobra.Command {
	f := &editFlags{}

	cmd := &cobra.Command{
		Use:   use + " <tab>...",
		Short: short,
		Example: `
tabtree ` + use + ` 1f3a
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runEdit(f, func(ctx context.Context, sess *app.Session) ([]string, error) {
				ids, err := resolve(sess, args...)
				if err != nil {
					return nil, err
				}
				var errs []error
				for _, id := range ids {
					errs = append(errs, sess.SetCollapsed(id, collapsed))
				}
				return sess.WindowsOf(ids...), errors.Join(errs...)
			})
		},
	}

	addEditArgs(cmd, f)
	return cmd
}

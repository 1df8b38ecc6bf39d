package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"tableflip.dev/tabtree/pkg/app"
	"tableflip.dev/tabtree/pkg/registry"
)

func addClose(topLevel *cobra.Command) {
	f := &editFlags{}

	cmd := &cobra.Command{
		Use:   "close <tab>...",
		Short: "Close tabs. Their children are kept or closed according to closeParentBehavior.",
		Example: `
tabtree close 1f3a
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runEdit(f, func(ctx context.Context, sess *app.Session) ([]string, error) {
				ids, err := resolve(sess, args...)
				if err != nil {
					return nil, err
				}
				windows := sess.WindowsOf(ids...)
				var errs []error
				for _, id := range ids {
					if _, err := sess.Close(ctx, id); err != nil && !errors.Is(err, registry.ErrTabNotFound) {
						errs = append(errs, err)
					}
				}
				return windows, errors.Join(errs...)
			})
		},
	}

	addEditArgs(cmd, f)
	topLevel.AddCommand(cmd)
}

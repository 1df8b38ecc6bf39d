package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"tableflip.dev/tabtree/pkg/app"
)

func addDetach(topLevel *cobra.Command) {
	f := &editFlags{}

	cmd := &cobra.Command{
		Use:   "detach <tab>...",
		Short: "Take tabs out of their trees; each becomes a root right after the tree it left.",
		Example: `
tabtree detach 9c01
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
					errs = append(errs, sess.Detach(ctx, id))
				}
				return sess.WindowsOf(ids...), errors.Join(errs...)
			})
		},
	}

	addEditArgs(cmd, f)
	topLevel.AddCommand(cmd)
}

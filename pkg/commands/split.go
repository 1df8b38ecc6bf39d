package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/tabtree/pkg/app"
	"tableflip.dev/tabtree/pkg/commands/options"
)

func addSplit(topLevel *cobra.Command) {
	f := &editFlags{}
	wo := &options.WindowOptions{}

	cmd := &cobra.Command{
		Use:   "split <new window> <tab>...",
		Short: "Open a new window from tabs, keeping their trees.",
		Example: `
tabtree split reading 1f3a 9c01
`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runEdit(f, func(ctx context.Context, sess *app.Session) ([]string, error) {
				ids, err := resolve(sess, args[1:]...)
				if err != nil {
					return nil, err
				}
				windows := sess.WindowsOf(ids...)
				_, err = sess.SplitWindow(ctx, args[0], ids, wo.Duplicate)
				return merge(windows, []string{args[0]}), err
			})
		},
	}

	options.AddDuplicateArgs(cmd, wo)
	addEditArgs(cmd, f)
	topLevel.AddCommand(cmd)
}

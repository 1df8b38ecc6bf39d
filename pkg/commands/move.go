package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/tabtree/pkg/app"
	"tableflip.dev/tabtree/pkg/commands/options"
	"tableflip.dev/tabtree/pkg/reconcile"
)

func addMove(topLevel *cobra.Command) {
	f := &editFlags{}
	po := &options.PlacementOptions{}
	wo := &options.WindowOptions{}

	cmd := &cobra.Command{
		Use:   "move <tab>...",
		Short: "Move or copy tabs, keeping the trees among them, within a window or into another one.",
		Example: `
tabtree move 1f3a 9c01 --to archive
tabtree move 1f3a --before 77be
tabtree move 1f3a --to research --duplicate
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runEdit(f, func(ctx context.Context, sess *app.Session) ([]string, error) {
				ids, err := resolve(sess, args...)
				if err != nil {
					return nil, err
				}
				before, err := resolveOptional(sess, po.Before)
				if err != nil {
					return nil, err
				}
				after, err := resolveOptional(sess, po.After)
				if err != nil {
					return nil, err
				}
				windows := sess.WindowsOf(ids...)
				moved, err := sess.MoveTabs(ctx, ids, wo.Window, reconcile.MoveOptions{
					Duplicate:    wo.Duplicate,
					InsertBefore: before,
					InsertAfter:  after,
				})
				return merge(windows, sess.WindowsOf(moved...)), err
			})
		},
	}

	options.AddPlacementArgs(cmd, po)
	options.AddWindowArgs(cmd, wo)
	options.AddDuplicateArgs(cmd, wo)
	_ = cmd.RegisterFlagCompletionFunc("to", completeWindows)
	addEditArgs(cmd, f)
	topLevel.AddCommand(cmd)
}

func merge(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

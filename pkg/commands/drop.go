package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/tabtree/pkg/app"
	"tableflip.dev/tabtree/pkg/commands/options"
	"tableflip.dev/tabtree/pkg/reconcile"
)

func addDrop(topLevel *cobra.Command) {
	f := &editFlags{}
	po := &options.PlacementOptions{}
	wo := &options.WindowOptions{}
	on := ""

	cmd := &cobra.Command{
		Use:   "drop <tab>...",
		Short: "Complete a drag and drop of tabs: onto a tab to attach them, or between tabs at root level.",
		Long: `Complete a drag and drop of tabs.

Dragging part of a tree takes the dragged tabs out of it first. With --on the
dropped trees become children of that tab; without it they become roots,
placed by --before and --after.`,
		Example: `
tabtree drop 9c01 --on 1f3a
tabtree drop 9c01 --after 77be --to archive
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runEdit(f, func(ctx context.Context, sess *app.Session) ([]string, error) {
				ids, err := resolve(sess, args...)
				if err != nil {
					return nil, err
				}
				target, err := resolveOptional(sess, on)
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
				dropped, err := sess.Drop(ctx, wo.Window, reconcile.DragDrop{
					Tabs:         ids,
					AttachTo:     target,
					Attach:       target != "",
					InsertBefore: before,
					InsertAfter:  after,
					Duplicate:    wo.Duplicate,
				})
				return merge(windows, sess.WindowsOf(dropped...)), err
			})
		},
	}

	cmd.Flags().StringVar(&on, "on", "", "The tab the tabs were dropped onto.")
	options.AddPlacementArgs(cmd, po)
	options.AddWindowArgs(cmd, wo)
	options.AddDuplicateArgs(cmd, wo)
	_ = cmd.RegisterFlagCompletionFunc("to", completeWindows)
	addEditArgs(cmd, f)
	topLevel.AddCommand(cmd)
}

package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/tabtree/pkg/app"
	"tableflip.dev/tabtree/pkg/commands/options"
	"tableflip.dev/tabtree/pkg/tree"
)

func addAttach(topLevel *cobra.Command) {
	f := &editFlags{}
	po := &options.PlacementOptions{}
	insertAt := ""
	dontExpand := false

	cmd := &cobra.Command{
		Use:   "attach <child> <parent>",
		Short: "Make a tab the child of another tab, moving its subtree along.",
		Example: `
tabtree attach 9c01 1f3a
tabtree attach 9c01 1f3a --insert-at first
tabtree attach 9c01 1f3a --after 77be
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			var at tree.InsertPosition
			if insertAt != "" {
				var err error
				if at, err = tree.ParseInsertPosition(insertAt); err != nil {
					return output.HandleError(err)
				}
			}
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
				_, err = sess.Attach(ctx, ids[0], ids[1], tree.AttachOptions{
					InsertBefore: before,
					InsertAfter:  after,
					InsertAt:     at,
					DontExpand:   dontExpand,
					Broadcast:    true,
				})
				return sess.WindowsOf(ids...), err
			})
		},
	}

	options.AddPlacementArgs(cmd, po)
	cmd.Flags().StringVar(&insertAt, "insert-at", "",
		"Where the child goes among its siblings when no anchor is given. One of 'first', 'end' or 'nearest'.")
	cmd.Flags().BoolVar(&dontExpand, "dont-expand", false, "Keep a collapsed parent collapsed.")
	addEditArgs(cmd, f)
	topLevel.AddCommand(cmd)
}

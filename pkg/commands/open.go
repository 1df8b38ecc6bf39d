package commands

import (
	"context"
	"fmt"

	base "github.com/n3wscott/cli-base/pkg/commands/options"
	"github.com/spf13/cobra"

	"tableflip.dev/tabtree/pkg/app"
	"tableflip.dev/tabtree/pkg/commands/options"
)

func addOpen(topLevel *cobra.Command) {
	f := &editFlags{}
	to := &options.TabOptions{}

	cmd := &cobra.Command{
		Use:   "open <window>",
		Short: "Open a tab in a window, optionally in the tree of the tab it was opened from.",
		Example: `
tabtree open research --url https://go.dev
tabtree open research --url https://go.dev/doc --opener 1f3a --as child
`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeWindows,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			window := args[0]
			behavior, err := to.GetBehavior()
			if err != nil {
				return output.HandleError(err)
			}
			return runEdit(f, func(ctx context.Context, sess *app.Session) ([]string, error) {
				sess.NewWindow(window)
				opener, err := resolveOptional(sess, to.Opener)
				if err != nil {
					return nil, err
				}
				tab, err := sess.OpenTab(ctx, window, app.OpenTabOptions{
					Title:    to.Title,
					URL:      to.URL,
					Pinned:   to.Pinned,
					Active:   to.Active,
					Opener:   opener,
					Behavior: behavior,
				})
				if err == nil && f.id.ShowID {
					fmt.Printf("opened %s\n", tab.ID)
				}
				return []string{window}, err
			})
		},
	}

	options.AddTabArgs(cmd, to)
	addEditArgs(cmd, f)
	base.AddOutputArg(cmd, output)
	topLevel.AddCommand(cmd)
}

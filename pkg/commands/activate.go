package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/tabtree/pkg/app"
)

func addActivate(topLevel *cobra.Command) {
	f := &editFlags{}

	cmd := &cobra.Command{
		Use:     "activate <tab>",
		Aliases: []string{"select"},
		Short:   "Select a tab. Collapsed trees around it open, and with autoCollapseExpandSubtreeOnSelect other trees close.",
		Example: `
tabtree activate 9c01
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runEdit(f, func(ctx context.Context, sess *app.Session) ([]string, error) {
				id, err := sess.Find(args[0])
				if err != nil {
					return nil, err
				}
				return sess.WindowsOf(id), sess.Activate(ctx, id)
			})
		},
	}

	addEditArgs(cmd, f)
	topLevel.AddCommand(cmd)
}

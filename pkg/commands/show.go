package commands

import (
	"context"

	base "github.com/n3wscott/cli-base/pkg/commands/options"
	"github.com/spf13/cobra"

	"tableflip.dev/tabtree/pkg/commands/options"
	"tableflip.dev/tabtree/pkg/runner/show"
)

func addShow(topLevel *cobra.Command) {
	io := &options.IDOptions{}
	hidden := false
	width := 0

	cmd := &cobra.Command{
		Use:     "show [window...]",
		Aliases: []string{"get"},
		Short:   "Print the tab trees of saved windows.",
		Example: `
tabtree show
tabtree show research --show-id
tabtree show --hidden --json
`,
		ValidArgsFunction: completeWindows,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			svc, _, err := loadService()
			if err != nil {
				return output.HandleError(err)
			}
			s := show.Show{
				Service:    svc,
				Windows:    args,
				ShowID:     io.ShowID,
				ShowHidden: hidden,
				Width:      width,
				JSON:       output.JSON,
			}
			err = s.Do(context.Background())
			return output.HandleError(err)
		},
	}

	options.AddShowIDArgs(cmd, io)
	cmd.Flags().BoolVar(&hidden, "hidden", false, "Also print tabs inside collapsed trees.")
	cmd.Flags().IntVarP(&width, "width", "w", 0, "Truncate titles to this many columns.")
	base.AddOutputArg(cmd, output)
	topLevel.AddCommand(cmd)
}

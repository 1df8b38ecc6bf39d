package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/tabtree/pkg/commands/options"
	"tableflip.dev/tabtree/pkg/runner/ui"
)

func addUI(topLevel *cobra.Command) {
	io := &options.IDOptions{}

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "browse and edit the tab trees interactively",
		Example: `
tabtree ui
tabtree ui --show-id
`,
		ValidArgs: []string{},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := loadService()
			if err != nil {
				return err
			}
			i := ui.UI{Service: svc, ShowID: io.ShowID}
			return i.Do(cmd.Context())
		},
	}
	options.AddShowIDArgs(cmd, io)

	topLevel.AddCommand(cmd)
}

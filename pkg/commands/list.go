package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/tabtree/pkg/runner/list"
)

func addList(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "windows"},
		Short:   "Summarize the saved windows.",
		Example: `
tabtree list
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			svc, _, err := loadService()
			if err != nil {
				return err
			}
			l := list.List{Service: svc}
			return output.HandleError(l.Do(context.Background()))
		},
	}

	topLevel.AddCommand(cmd)
}

package commands

import (
	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/tabtree/pkg/debug"
)

var (
	output = &base.OutputOptions{}
)

func New() *cobra.Command {
	verbose := false

	cmd := &cobra.Command{
		Use:   "tabtree",
		Short: base.Wrap80("Keep browser tabs in trees: save windows, reshape their tab trees and move them between windows."),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				debug.SetEnabled(true)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine diagnostics to stderr.")

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addShow(topLevel)
	addList(topLevel)
	addOpen(topLevel)
	addClose(topLevel)
	addAttach(topLevel)
	addDetach(topLevel)
	addCollapse(topLevel)
	addActivate(topLevel)
	addMove(topLevel)
	addDrop(topLevel)
	addSplit(topLevel)
	addExport(topLevel)
	addImport(topLevel)
	addDelete(topLevel)
	addWatch(topLevel)
	addMCP(topLevel)
	addUI(topLevel)
	addInfo(topLevel)
	addKey(topLevel)
	addVersion(topLevel)
	addCompletions(topLevel)
}

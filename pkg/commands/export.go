package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func addExport(topLevel *cobra.Command) {
	file := ""

	cmd := &cobra.Command{
		Use:   "export <window>",
		Short: "Write the tree structure of a saved window as JSON.",
		Example: `
tabtree export research > research.json
tabtree export research -f research.json
`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeWindows,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			svc, _, err := loadService()
			if err != nil {
				return err
			}
			b, err := svc.Export(context.Background(), args[0])
			if err != nil {
				return output.HandleError(err)
			}
			if file == "" || file == "-" {
				_, err = fmt.Fprintln(os.Stdout, string(b))
				return err
			}
			return os.WriteFile(file, append(b, '\n'), 0o644)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Write to this file instead of stdout.")
	topLevel.AddCommand(cmd)
}

func addImport(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "import <window> [file]",
		Short: "Save a tree structure array as a window, replacing any window of that name.",
		Long: `Save a tree structure array as a window, replacing any window of that name.

The input is either a list of items as written by export, or a legacy list of
parent indices such as [-1, 0, 1, -1]. Reads stdin when no file is given.`,
		Example: `
tabtree import research research.json
echo '[-1, 0, 0]' | tabtree import scratch
`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			var (
				data []byte
				err  error
			)
			if len(args) == 2 && args[1] != "-" {
				data, err = os.ReadFile(args[1])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return output.HandleError(err)
			}
			svc, _, err := loadService()
			if err != nil {
				return output.HandleError(err)
			}
			w, err := svc.Import(context.Background(), args[0], data)
			if err != nil {
				return output.HandleError(err)
			}
			fmt.Printf("imported %d tabs into %q\n", len(w.Items), w.Name)
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}

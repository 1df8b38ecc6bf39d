package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"tableflip.dev/tabtree/pkg/commands/options"
	"tableflip.dev/tabtree/pkg/runner/mcp"
)

func addMCP(topLevel *cobra.Command) {
	so := &options.ServeOptions{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the saved tab trees over the Model Context Protocol.",
		Example: `
tabtree mcp
tabtree mcp --addr :0 --path /tabs
tabtree mcp --stdio
`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return so.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := loadService()
			if err != nil {
				return err
			}
			r := mcp.Runner{
				Service: svc,
				Version: version,
				Stdio:   so.Stdio,
				Addr:    so.Addr,
				Path:    so.Path,
				TLSCert: so.TLSCert,
				TLSKey:  so.TLSKey,
				Listening: func(url string) {
					fmt.Fprintf(cmd.ErrOrStderr(), "tabtree MCP listening on %s\n", url)
				},
			}
			return r.Do(cmd.Context())
		},
	}

	options.AddServeArgs(cmd, so)

	topLevel.AddCommand(cmd)
}

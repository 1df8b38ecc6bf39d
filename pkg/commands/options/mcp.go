package options

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ServeOptions choose how the tab tree MCP server is reached.
type ServeOptions struct {
	Stdio   bool
	Addr    string
	Path    string
	TLSCert string
	TLSKey  string
}

func AddServeArgs(cmd *cobra.Command, o *ServeOptions) {
	cmd.Flags().BoolVar(&o.Stdio, "stdio", false,
		"Serve over stdin and stdout instead of HTTP.")
	cmd.Flags().StringVar(&o.Addr, "addr", "127.0.0.1:8080",
		"Address the HTTP server listens on. Port 0 picks a free port.")
	cmd.Flags().StringVar(&o.Path, "path", "/mcp",
		"Endpoint path of the HTTP server.")
	cmd.Flags().StringVar(&o.TLSCert, "tls-cert", "",
		"Certificate file; serve HTTPS together with --tls-key.")
	cmd.Flags().StringVar(&o.TLSKey, "tls-key", "",
		"Private key file for --tls-cert.")
}

// Validate normalizes the endpoint path and checks the TLS pair.
func (o *ServeOptions) Validate() error {
	if (o.TLSCert == "") != (o.TLSKey == "") {
		return fmt.Errorf("--tls-cert and --tls-key go together")
	}
	o.Path = "/" + strings.Trim(strings.TrimSpace(o.Path), "/")
	return nil
}

package mcp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"tableflip.dev/tabtree/pkg/app"
)

const instructions = `Saved browser windows hold forests of tabs. Start with list_windows, then
list_tabs for a window. attach_tab and detach_tab change parents and keep
every subtree contiguous in the tab strip. collapse_tree hides a subtree,
expand_tree shows it. move_tabs carries tabs, with their trees, to another
window. Every change is checked and saved before the tool returns.`

// Runner serves the saved tab trees over MCP, on stdio or HTTP.
type Runner struct {
	Service *app.Service
	Version string

	Stdio   bool
	Addr    string
	Path    string
	TLSCert string
	TLSKey  string

	// Listening is called with the endpoint URL once the HTTP server
	// accepts connections.
	Listening func(url string)
}

// NewServer builds the MCP server with every tab tree tool and resource.
func NewServer(svc *Service, version string) *server.MCPServer {
	if version == "" {
		version = "dev"
	}
	srv := server.NewMCPServer(
		"tabtree",
		version,
		server.WithResourceCapabilities(false, false),
		server.WithToolCapabilities(false),
		server.WithInstructions(instructions),
		server.WithResourceRecovery(),
		server.WithRecovery(),
	)
	registerResources(srv, svc)
	registerTools(srv, svc)
	return srv
}

// Do serves until ctx is done or the transport fails.
func (r Runner) Do(ctx context.Context) error {
	if r.Service == nil {
		return ErrNoService
	}
	srv := NewServer(NewService(r.Service), r.Version)
	if r.Stdio {
		return server.ServeStdio(srv)
	}

	ln, err := net.Listen("tcp", r.Addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle(r.Path, server.NewStreamableHTTPServer(srv))
	httpSrv := &http.Server{Handler: mux}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdown)
	}()

	scheme := "http"
	if r.TLSCert != "" {
		scheme = "https"
	}
	if r.Listening != nil {
		r.Listening(scheme + "://" + ln.Addr().String() + r.Path)
	}

	if r.TLSCert != "" {
		err = httpSrv.ServeTLS(ln, r.TLSCert, r.TLSKey)
	} else {
		err = httpSrv.Serve(ln)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

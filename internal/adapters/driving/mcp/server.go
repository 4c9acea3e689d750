package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wkyt-app/wkyt/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

const instructions = `wkyt is a local vault of records pulled from the user's accounts.
Call accounts to see what is connected, sync to pull new data, and
query_records to read it. Records are opaque provider payloads; message
records are raw RFC 822 mail. Connecting an account needs initiate_auth,
then the user opens the URL, then complete_auth with the code they paste.`

// shutdownTimeout bounds how long open HTTP sessions may drain.
const shutdownTimeout = 5 * time.Second

var mcpLog = logger.Named("mcp")

// Server exposes a vault over the Model Context Protocol.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer registers the vault tools and resources.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports: ports,
		server: mcp.NewServer(
			&mcp.Implementation{Name: "wkyt", Version: Version},
			&mcp.ServerOptions{Instructions: instructions},
		),
	}
	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	mcpLog.Debug("serving over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr, which must be a
// loopback address. Pending auth sessions live in this process, so the
// server holds account credentials for as long as it runs.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	if err := requireLoopback(addr); err != nil {
		return err
	}

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Released on return so a failed listen does not strand the shutdown watcher.
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			mcpLog.Warn("shutdown: %v", err)
		}
	}()

	mcpLog.Info("serving over http on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("mcp http server: %w", err)
	}
	return nil
}

func requireLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("refusing to listen on non-loopback address %q", addr)
	}
	return nil
}

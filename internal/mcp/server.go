// Package mcp exposes extracted components to MCP clients over stdio.
package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/archextract/internal/component"
)

// ComponentSource supplies the current component set. Implementations may
// re-run extraction or read a stored run.
type ComponentSource interface {
	Components(ctx context.Context) ([]component.Component, error)
}

// SourceFunc adapts a function to ComponentSource.
type SourceFunc func(ctx context.Context) ([]component.Component, error)

// Components implements ComponentSource.
func (f SourceFunc) Components(ctx context.Context) ([]component.Component, error) {
	return f(ctx)
}

// MCPServer manages the MCP server lifecycle.
type MCPServer struct {
	mcp *server.MCPServer
}

// NewMCPServer creates an MCP server with the component tools registered.
func NewMCPServer(source ComponentSource, version string) (*MCPServer, error) {
	if source == nil {
		return nil, fmt.Errorf("component source is required")
	}

	mcpServer := server.NewMCPServer(
		"archextract-mcp",
		version,
		server.WithToolCapabilities(true),
	)
	AddComponentsTool(mcpServer, source)
	AddModulesTool(mcpServer, source)

	return &MCPServer{mcp: mcpServer}, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *MCPServer) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

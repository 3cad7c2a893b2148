package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/archextract/internal/component"
	"github.com/mvp-joe/archextract/internal/extractor"
	"github.com/mvp-joe/archextract/internal/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server exposing extracted components",
	Long: `Start the Model Context Protocol (MCP) server so coding assistants can query
the architectural components of the codebase.

The MCP server:
- Extracts components on first use
- Re-extracts lazily after sources or rules change
- Provides the archextract_components and archextract_modules tools
- Communicates via stdio (standard MCP transport)

Example:
  archextract mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	root, err := projectRoot()
	if err != nil {
		return err
	}
	s, err := openSession(root, cfgFile, &extractor.NoOpProgressReporter{})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "archextract MCP Server\n")
	fmt.Fprintf(os.Stderr, "Project Root: %s\n", s.rootDir)
	fmt.Fprintf(os.Stderr, "Rules: %s\n\n", s.cfg.RulesPath(s.rootDir))

	source := newCachedSource(s)

	w, err := s.newWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.Stop()
	if err := w.Start(ctx, func(files []string) {
		log.Printf("%d file(s) changed, components will be re-extracted on next request", len(files))
		source.Invalidate()
	}); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	server, err := mcp.NewMCPServer(source, Version)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// Serve (blocks until shutdown)
	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

// cachedSource serves the components of the last successful extraction and
// re-extracts after Invalidate.
type cachedSource struct {
	session *session

	mu         sync.Mutex
	valid      bool
	components []component.Component
}

func newCachedSource(s *session) *cachedSource {
	return &cachedSource{session: s}
}

// Components implements mcp.ComponentSource.
func (c *cachedSource) Components(ctx context.Context) ([]component.Component, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid {
		return c.components, nil
	}
	result, err := c.session.extract(ctx)
	if err != nil {
		return nil, err
	}
	c.components = result.Components
	c.valid = true
	return c.components, nil
}

// Invalidate forces the next Components call to re-extract.
func (c *cachedSource) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}

package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/archextract/internal/component"
	"github.com/mvp-joe/archextract/internal/config"
	"github.com/mvp-joe/archextract/internal/extractor"
	"github.com/mvp-joe/archextract/internal/storage"
)

var (
	quietFlag  bool
	watchFlag  bool
	saveFlag   bool
	outputFlag string
	formatFlag string
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract architectural components",
	Long: `Extract resolves the extraction rules, parses every TypeScript file selected
by a module's path and reports each declaration matching one of the module's
component rules, together with its extracted fields.

The first rule that cannot be evaluated statically aborts the run with the
file and line of the offending declaration.

Examples:
  # Print components of the current directory as JSON
  archextract extract

  # Write YAML to a file
  archextract extract --format yaml --output components.yml

  # Record the run in .archextract/archextract.db
  archextract extract --save

  # Re-extract whenever sources or rules change
  archextract extract --watch
`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
	extractCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch for file changes and re-extract")
	extractCmd.Flags().BoolVar(&saveFlag, "save", false, "Record the run in the SQLite database")
	extractCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write components to this file instead of stdout")
	extractCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Output format: json or yaml (default from config)")
}

// extractOptions are the resolved flags of one extract invocation.
type extractOptions struct {
	RootDir    string
	ConfigFile string
	Quiet      bool
	Watch      bool
	Save       bool
	Output     string
	Format     string
}

func runExtract(cmd *cobra.Command, args []string) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nInterrupted! Cancelling extraction...")
			cancel()
		case <-ctx.Done():
		}
	}()

	root, err := projectRoot()
	if err != nil {
		return err
	}

	return executeExtract(ctx, extractOptions{
		RootDir:    root,
		ConfigFile: cfgFile,
		Quiet:      quietFlag,
		Watch:      watchFlag,
		Save:       saveFlag,
		Output:     outputFlag,
		Format:     formatFlag,
	}, cmd.OutOrStdout())
}

// executeExtract runs one extraction (or a watch loop) and writes the result
// to the configured output, falling back to stdout.
func executeExtract(ctx context.Context, opts extractOptions, stdout io.Writer) error {
	var progress extractor.ProgressReporter = &extractor.NoOpProgressReporter{}
	if !opts.Quiet {
		progress = NewCLIProgressReporter(os.Stderr)
	}

	s, err := openSession(opts.RootDir, opts.ConfigFile, progress)
	if err != nil {
		return err
	}
	if opts.Format != "" {
		if err := config.ValidateFormat(opts.Format); err != nil {
			return err
		}
		s.cfg.Output.Format = opts.Format
	}
	if opts.Output != "" {
		s.cfg.Output.File = opts.Output
	}

	// Watch callbacks and the initial run may overlap.
	var runMu sync.Mutex
	run := func() error {
		runMu.Lock()
		defer runMu.Unlock()

		started := time.Now()
		result, err := s.extract(ctx)
		if err != nil {
			return err
		}
		if err := writeComponents(s, result.Components, stdout); err != nil {
			return err
		}
		if opts.Save || s.cfg.Storage.Enabled {
			if err := saveRun(ctx, s, started, result); err != nil {
				return err
			}
		}
		return nil
	}

	if !opts.Watch {
		if err := run(); err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("extraction cancelled")
			}
			return err
		}
		return nil
	}

	w, err := s.newWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	// Changes made during the initial run fire as soon as it completes.
	w.Pause()
	if err := w.Start(ctx, func(files []string) {
		if !opts.Quiet {
			log.Printf("Detected %d changed file(s), re-extracting...", len(files))
		}
		if err := run(); err != nil && ctx.Err() == nil {
			log.Printf("Extraction failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	if err := run(); err != nil && ctx.Err() == nil {
		log.Printf("Extraction failed: %v", err)
	}
	w.Resume()

	if !opts.Quiet {
		log.Println("Watching for changes (Ctrl+C to stop)...")
	}
	<-ctx.Done()
	if !opts.Quiet {
		log.Println("Watch mode stopped")
	}
	return nil
}

func writeComponents(s *session, components []component.Component, stdout io.Writer) error {
	path := s.resolvePath(s.cfg.Output.File)
	if path == "" {
		return component.Encode(stdout, s.cfg.Output.Format, components)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := component.Encode(f, s.cfg.Output.Format, components); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func saveRun(ctx context.Context, s *session, started time.Time, result *extractor.Result) error {
	store, err := storage.Open(s.cfg.StoragePath(s.rootDir))
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.SaveRun(ctx, storage.Run{
		StartedAt:  started,
		Modules:    result.Stats.Modules,
		Files:      result.Stats.Files,
		Components: result.Stats.Components,
		Duration:   result.Stats.Duration,
	}, result.Components)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	log.Printf("Saved run %s", id)
	return nil
}

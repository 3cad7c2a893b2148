package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/archextract/internal/component"
	"github.com/mvp-joe/archextract/internal/config"
	"github.com/mvp-joe/archextract/internal/extractor"
	"github.com/mvp-joe/archextract/internal/storage"
)

var (
	showFormatFlag string
	showModuleFlag string
	showTypeFlag   string
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List extraction runs recorded with --save",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		return executeRuns(cmd.Context(), root, cfgFile, cmd.OutOrStdout())
	},
}

// runsRmCmd represents the runs rm command
var runsRmCmd = &cobra.Command{
	Use:   "rm <run-id>...",
	Short: "Delete recorded extraction runs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		return executeRemoveRuns(cmd.Context(), root, cfgFile, args, cmd.OutOrStdout())
	},
}

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Print the components of a recorded run (default: latest)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		runID := ""
		if len(args) == 1 {
			runID = args[0]
		}
		return executeShow(cmd.Context(), root, cfgFile, showOptions{
			RunID:  runID,
			Format: showFormatFlag,
			Module: showModuleFlag,
			Type:   showTypeFlag,
		}, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsRmCmd)
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringVarP(&showFormatFlag, "format", "f", "", "Output format: json or yaml (default from config)")
	showCmd.Flags().StringVarP(&showModuleFlag, "module", "m", "", "Only show components of this module")
	showCmd.Flags().StringVarP(&showTypeFlag, "type", "t", "", "Only show components of this type")
}

type showOptions struct {
	RunID  string
	Format string
	Module string
	Type   string
}

func openStore(root, configFile string) (*storage.Store, *config.Config, error) {
	s, err := openSession(root, configFile, &extractor.NoOpProgressReporter{})
	if err != nil {
		return nil, nil, err
	}
	path := s.cfg.StoragePath(s.rootDir)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w (run 'archextract extract --save' first)", storage.ErrNoRuns)
	}
	store, err := storage.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return store, s.cfg, nil
}

func executeRuns(ctx context.Context, root, configFile string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, _, err := openStore(root, configFile)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return fmt.Errorf("%w (run 'archextract extract --save' first)", storage.ErrNoRuns)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tMODULES\tFILES\tCOMPONENTS\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Modules, r.Files,
			formatNumber(r.Components), r.Duration.Round(time.Millisecond))
	}
	return tw.Flush()
}

// executeRemoveRuns deletes each run in order and stops at the first one
// that cannot be deleted.
func executeRemoveRuns(ctx context.Context, root, configFile string, runIDs []string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, _, err := openStore(root, configFile)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, id := range runIDs {
		if err := store.DeleteRun(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted run %s\n", id)
	}
	return nil
}

func executeShow(ctx context.Context, root, configFile string, opts showOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, cfg, err := openStore(root, configFile)
	if err != nil {
		return err
	}
	defer store.Close()

	runID := opts.RunID
	if runID == "" {
		latest, err := store.LatestRun(ctx)
		if err != nil {
			return err
		}
		runID = latest.ID
	}

	comps, err := store.LoadComponents(ctx, runID)
	if err != nil {
		return err
	}

	format := cfg.Output.Format
	if opts.Format != "" {
		format = opts.Format
	}
	return component.Encode(out, format, component.Filter(comps, opts.Module, opts.Type))
}

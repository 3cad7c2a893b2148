package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/archextract/internal/extractor"
	"github.com/mvp-joe/archextract/internal/rules"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the extraction rules without extracting",
	Long: `Validate decodes the extraction rules, resolves every module's extends chain
and reports the resolved modules. It exits with an error for malformed rules,
missing component rules, unresolvable bases and extends cycles.

Example:
  archextract validate`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	return executeValidate(root, cfgFile, cmd.OutOrStdout())
}

func executeValidate(root, configFile string, out io.Writer) error {
	s, err := openSession(root, configFile, &extractor.NoOpProgressReporter{})
	if err != nil {
		return err
	}
	resolved, err := s.resolveRules()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tPATH\tCUSTOM TYPES")
	for _, m := range resolved.Modules {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Name, m.Path, customTypeNames(m))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ %d module(s) resolved from %s\n", len(resolved.Modules), s.cfg.RulesPath(s.rootDir))
	return nil
}

func customTypeNames(m rules.Module) string {
	if len(m.CustomTypes) == 0 {
		return "-"
	}
	names := make([]string, 0, len(m.CustomTypes))
	for name := range m.CustomTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootDir string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "archextract",
	Short: "Extract architectural components from TypeScript codebases",
	Long: `archextract reads declarative extraction rules and reports the architectural
components of a TypeScript codebase: APIs, use cases, domain operations,
events, event handlers, UI entry points and project-specific custom types.

Rules live in archextract.yml at the project root (see 'archextract validate').
Tool settings live in .archextract/config.yml and ARCHEXTRACT_* environment
variables.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .archextract/config.yml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "C", "", "project root (default is the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initLogging routes log output to stderr so stdout only carries results.
func initLogging() {
	log.SetOutput(os.Stderr)
	if viper.GetBool("verbose") {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		return
	}
	log.SetFlags(0)
}

// projectRoot returns the --dir flag or the working directory.
func projectRoot() (string, error) {
	if rootDir != "" {
		return rootDir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return wd, nil
}

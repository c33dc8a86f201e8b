// Package cli provides the tabscope command-line interface.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tabscope-labs/tabscope/internal/config"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tabscope",
		Short: "tabscope - SQL viewer for columnar data files",
		Long: `tabscope opens a data file (Parquet, CSV, JSON) in an embedded
analytical engine and lets you query it with SQL, either in a local web
viewer or straight from the terminal.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			var err error
			cfg, err = config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./tabscope.yaml)")
	rootCmd.PersistentFlags().String("engine", "", "query engine (duckdb, sqlite)")
	rootCmd.PersistentFlags().Int("page-size", 0, "default rows per result page")
	rootCmd.PersistentFlags().String("backup-dir", "", "directory backup identifiers resolve against")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	_ = rootCmd.RegisterFlagCompletionFunc("engine", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"duckdb", "sqlite"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newViewCommand())
	rootCmd.AddCommand(newQueryCommand())
	rootCmd.AddCommand(newVersionCommand(Version, GitCommit))

	return rootCmd
}

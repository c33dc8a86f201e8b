package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tabscope-labs/tabscope/internal/document"
	"github.com/tabscope-labs/tabscope/internal/protocol"
	"github.com/tabscope-labs/tabscope/internal/provider"
)

type queryOptions struct {
	Format string
	Input  string
	Limit  int
	Offset int
}

func newQueryCommand() *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query FILE [SQL]",
		Short: "Run SQL against a data file",
		Long: `Run a SQL query against a data file without starting the viewer.
The file is exposed as a read-only view named "data". With no SQL
argument and a terminal on stdin, an interactive shell starts.`,
		Example: `  tabscope query events.parquet "SELECT count(*) FROM data"
  tabscope query sales.csv "SELECT * FROM data" --limit 20 --format json
  echo "SELECT region, sum(total) FROM data GROUP BY 1" | tabscope query sales.csv
  tabscope query events.parquet`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "output format (table, json, csv, md)")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "read SQL from a file")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "l", 0, "rows per page (default from config)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "rows to skip before the page")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json", "csv", "md"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *queryOptions) error {
	uri, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}

	prov := provider.New(provider.Config{
		Engine:    cfg.Engine,
		BackupDir: cfg.BackupDir,
		Logger:    logger,
	})
	defer func() { _ = prov.CloseAll() }()

	doc, err := prov.Open(cmd.Context(), uri, "")
	if err != nil {
		return err
	}

	if opts.Limit == 0 {
		opts.Limit = cfg.PageSize
	}

	sql, err := readQuery(cmd, args, opts)
	if err != nil {
		return err
	}
	if sql == "" {
		if !isTerminal(os.Stdin) {
			return errors.New("no query given")
		}
		return runQueryShell(cmd, doc, opts)
	}

	return runSingleQuery(cmd, doc, sql, opts)
}

// readQuery resolves the SQL text: positional argument, --input file, or
// piped stdin, in that order. Empty means interactive.
func readQuery(cmd *cobra.Command, args []string, opts *queryOptions) (string, error) {
	if len(args) > 1 {
		return strings.TrimSpace(args[1]), nil
	}
	if opts.Input != "" {
		data, err := os.ReadFile(opts.Input)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", opts.Input, err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if !isTerminal(os.Stdin) {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return "", nil
}

func runSingleQuery(cmd *cobra.Command, doc *document.Document, sql string, opts *queryOptions) error {
	var resp *protocol.Response
	if opts.Offset > 0 {
		resp = doc.FetchMore(cmd.Context(), sql, opts.Limit, opts.Offset)
	} else {
		resp = doc.RunQuery(cmd.Context(), sql, opts.Limit)
	}
	if !resp.Success {
		return errors.New(resp.Message)
	}
	return renderResults(cmd.OutOrStdout(), resp.Results, opts.Format)
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

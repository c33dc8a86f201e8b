package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/tabscope-labs/tabscope/internal/document"
)

func runQueryShell(cmd *cobra.Command, doc *document.Document, opts *queryOptions) error {
	ctx := cmd.Context()

	// HistoryFile is empty on purpose: queries against local data files
	// stay in memory and are gone when the shell exits.
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "tabscope> ",
		HistoryFile:     "",
		AutoComplete:    newShellCompleter(cmd, doc),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "tabscope shell (%s via %s)\n", doc.URI(), doc.EngineName())
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "The file is available as the view %q. Type .help for commands, .quit to exit\n", doc.View())
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	var multiLineBuffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			multiLineBuffer.Reset()
			rl.SetPrompt("tabscope> ")
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") && multiLineBuffer.Len() == 0 {
			if handleDotCommand(cmd, doc, line, opts.Format) {
				if line == ".quit" || line == ".exit" {
					break
				}
				continue
			}
		}

		// Accumulate multi-line SQL until semicolon
		multiLineBuffer.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			multiLineBuffer.WriteString(" ")
			rl.SetPrompt("    ...> ")
			continue
		}
		rl.SetPrompt("tabscope> ")

		query := strings.TrimSuffix(multiLineBuffer.String(), ";")
		multiLineBuffer.Reset()

		resp := doc.RunQuery(ctx, query, opts.Limit)
		if !resp.Success {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", resp.Message)
		} else if err := renderResults(cmd.OutOrStdout(), resp.Results, opts.Format); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
	}

	return nil
}

func handleDotCommand(cmd *cobra.Command, doc *document.Document, line, format string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printShellHelp(cmd.OutOrStdout())
		return true

	case ".schema":
		cols, err := doc.Schema(cmd.Context())
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return true
		}
		if err := renderResults(cmd.OutOrStdout(), cols, format); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return true

	case ".clear":
		fmt.Print("\033[H\033[2J")
		return true

	default:
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Unknown command: %s (type .help for commands)\n", command)
		return true
	}
}

func printShellHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .schema         Show the columns of the data view
  .clear          Clear the screen
  .quit / .exit   Exit the shell

Tips:
  - SQL statements must end with a semicolon (;)
  - Query the file through the view named "data"
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

// newShellCompleter completes column names, common keywords, and
// dot-commands.
func newShellCompleter(cmd *cobra.Command, doc *document.Document) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface

	items = append(items, readline.PcItem(doc.View()))

	if cols, err := doc.Schema(cmd.Context()); err == nil {
		for _, col := range cols {
			if name, ok := col["column_name"].(string); ok {
				items = append(items, readline.PcItem(name))
			}
		}
	}

	for _, kw := range []string{"SELECT", "FROM", "WHERE", "GROUP BY", "ORDER BY", "LIMIT", "DESCRIBE"} {
		items = append(items, readline.PcItem(kw))
	}

	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".schema"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)

	return readline.NewPrefixCompleter(items...)
}

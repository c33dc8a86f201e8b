package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tabscope-labs/tabscope/internal/provider"
	"github.com/tabscope-labs/tabscope/internal/ui"
)

type viewOptions struct {
	Port      int
	NoBrowser bool
	Watch     bool
	Backup    string
}

func newViewCommand() *cobra.Command {
	opts := &viewOptions{}

	cmd := &cobra.Command{
		Use:   "view FILE",
		Short: "Open a data file in the web viewer",
		Long: `Open a data file in the embedded engine and serve the web viewer
on localhost. The file is exposed as a read-only view named "data".`,
		Example: `  tabscope view events.parquet
  tabscope view --port 9000 sales.csv
  tabscope view --backup 1699372800.parquet events.parquet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Port, "port", "p", 0, "viewer port (default from config)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "do not open the browser")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "reload the viewer when the file changes")
	cmd.Flags().StringVar(&opts.Backup, "backup", "", "open this backup identifier instead of the file's current contents")

	return cmd
}

func runView(cmd *cobra.Command, path string, opts *viewOptions) error {
	uri, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if opts.Backup == "" {
		if _, err := os.Stat(uri); err != nil {
			return fmt.Errorf("cannot open %s: %w", path, err)
		}
	}

	prov := provider.New(provider.Config{
		Engine:    cfg.Engine,
		BackupDir: cfg.BackupDir,
		Logger:    logger,
	})
	defer func() { _ = prov.CloseAll() }()

	doc, err := prov.Open(cmd.Context(), uri, opts.Backup)
	if err != nil {
		return err
	}

	port := cfg.Port
	if opts.Port != 0 {
		port = opts.Port
	}
	watch := cfg.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}

	secret := cfg.SessionSecret
	if secret == "" {
		secret = uuid.NewString()
	}

	server := ui.NewServer(ui.Config{
		Document:      doc,
		Provider:      prov,
		Port:          port,
		Watch:         watch,
		PageSize:      cfg.PageSize,
		SessionSecret: secret,
		Logger:        logger,
	})

	if cfg.AutoOpen && !opts.NoBrowser {
		url := fmt.Sprintf("http://localhost:%d", port)
		go func() {
			// Give the listener a moment to come up.
			time.Sleep(200 * time.Millisecond)
			if err := openBrowser(url); err != nil {
				logger.Debug("failed to open browser", "url", url, "error", err)
			}
		}()
	}

	return server.Serve(cmd.Context())
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

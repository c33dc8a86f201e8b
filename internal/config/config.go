// Package config loads tabscope's configuration: defaults, an optional
// tabscope.yaml, TABSCOPE_* environment variables, and CLI flags, each
// layer overriding the previous one.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/tabscope-labs/tabscope/internal/engine"
)

// Config file names probed in the working directory.
const (
	ConfigFileName    = "tabscope.yaml"
	ConfigFileNameAlt = "tabscope.yml"
)

// envPrefix is stripped from environment variables before mapping them
// onto config keys (TABSCOPE_PAGE_SIZE -> page_size).
const envPrefix = "TABSCOPE_"

// Config holds all settings.
type Config struct {
	// Engine is the registered query engine backing documents.
	Engine string `koanf:"engine"`

	// Port is the UI server port.
	Port int `koanf:"port"`

	// Watch reloads connected viewers when the data file changes.
	Watch bool `koanf:"watch"`

	// AutoOpen opens the browser when the viewer starts.
	AutoOpen bool `koanf:"auto_open"`

	// PageSize is the default row limit per query page.
	PageSize int `koanf:"page_size"`

	// BackupDir is where backup identifiers resolve to files.
	BackupDir string `koanf:"backup_dir"`

	// SessionSecret signs the viewer's session cookie. Empty means a
	// random per-process secret.
	SessionSecret string `koanf:"session_secret"`

	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`
}

// defaults are the base layer of the configuration.
var defaults = map[string]any{
	"engine":    "duckdb",
	"port":      8765,
	"watch":     true,
	"auto_open": true,
	"page_size": 500,
}

// Load builds the configuration. explicitFile forces a config file path;
// flags (may be nil) is the command's flag set, applied last.
func Load(explicitFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(explicitFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	} else if explicitFile != "" {
		return nil, fmt.Errorf("config file not found: %s", explicitFile)
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		// Flag names use dashes, config keys use underscores.
		provider := posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, any) {
			return strings.ReplaceAll(key, "-", "_"), value
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail much later.
func (c *Config) Validate() error {
	if !engine.IsRegistered(c.Engine) {
		return &engine.UnknownEngineError{Name: c.Engine, Available: engine.List()}
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	return nil
}

// findConfigFile picks the config file: explicit path, then the probed
// names in the working directory. Empty means no file.
func findConfigFile(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

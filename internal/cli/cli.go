// Package cli implements the postermill command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/postermill/pkg/cache"
	"github.com/matzehuels/postermill/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "postermill"

	// defaultConfigFile is read when --config is not given and the file exists.
	defaultConfigFile = "postermill.toml"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is bound to the persistent --config flag.
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use with the cache described
// by opts. noCache overrides the configured backend.
func (c *CLI) newRunner(ctx context.Context, opts pipeline.Options, noCache bool) (*pipeline.Runner, error) {
	cfg := opts.CacheConfig()
	if noCache {
		cfg.Backend = cache.BackendNone
	}
	if cfg.Dir == "" {
		if dir, err := cacheDir(); err == nil {
			cfg.Dir = dir
		}
	}
	cc, err := cache.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, opts.Keyer(), c.Logger), nil
}

// =============================================================================
// Configuration
// =============================================================================

// loadOptions reads dotenv files, the config file and the environment. An
// explicit --config must exist; the default file is optional.
func (c *CLI) loadOptions() (pipeline.Options, error) {
	pipeline.LoadEnv()

	var opts pipeline.Options
	path := c.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		loaded, err := pipeline.LoadConfig(path)
		if err != nil {
			return pipeline.Options{}, err
		}
		c.Logger.Debug("loaded config", "path", path)
		opts = loaded
	}
	opts.ApplyEnv()
	return opts, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory: $POSTERMILL_CACHE_DIR, then the XDG
// standard (~/.cache/postermill/).
func cacheDir() (string, error) {
	if dir := os.Getenv(pipeline.EnvCacheDir); dir != "" {
		return dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	return cache.DefaultDir()
}

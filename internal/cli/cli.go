package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pipescope/pkg/buildinfo"
	"github.com/matzehuels/pipescope/pkg/cache"
	"github.com/matzehuels/pipescope/pkg/config"
	"github.com/matzehuels/pipescope/pkg/explorer"
	"github.com/matzehuels/pipescope/pkg/layout"
	"github.com/matzehuels/pipescope/pkg/lineage"
	"github.com/matzehuels/pipescope/pkg/search"
	"github.com/matzehuels/pipescope/pkg/source"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "pipescope"

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
	Config *config.Config

	cfgFile string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
// Configuration is loaded before any subcommand runs, so explicitly set
// flags of the running command override file and environment settings.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Pipescope explores data pipeline lineage",
		Long:         `Pipescope builds lineage graphs from pipeline definitions and lets you explore them: focus on a task's upstream or downstream lineage, filter by node type, search, and lay the result out as clustered per-pipeline diagrams.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			c.Config = cfg
			if cfg.Verbose {
				c.SetLogLevel(LogDebug)
			}
			if cfg.File != "" {
				c.Logger.Debug("loaded config", "file", cfg.File)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default: ./pipescope.yaml)")

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.lineageCommand())
	root.AddCommand(c.searchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// config returns the loaded configuration, or the defaults when a command
// runs without the root pre-run (as in tests).
func (c *CLI) config() *config.Config {
	if c.Config == nil {
		cfg, err := config.Load(c.cfgFile, nil)
		if err != nil {
			c.Logger.Warn("using built-in defaults", "err", err)
			cfg = &config.Config{
				Layout: layout.DefaultOptions(),
				Search: config.SearchConfig{Options: search.DefaultOptions()},
			}
		}
		c.Config = cfg
	}
	return c.Config
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates an explorer runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, store *lineage.Store, noCache bool) (*explorer.Runner, error) {
	cfg := c.config()
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	composer := layout.NewComposer(layout.NewGraphvizEngine(), cfg.Layout, c.Logger)
	runner, err := explorer.NewRunner(store, composer, ch, nil, c.Logger)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	runner.SearchOpts = cfg.Search.Options
	if cfg.Cache.TTL > 0 {
		runner.TTL = cfg.Cache.TTL
	}
	return runner, nil
}

// newCache opens the configured cache. A cache that cannot be opened is
// logged and replaced by a null cache; the CLI works without one.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	opts := c.config().Cache
	if noCache {
		opts.Backend = cache.BackendNone
	}
	ch, err := cache.Open(ctx, opts)
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "backend", opts.Backend, "err", err)
		return cache.NewNullCache(), nil
	}
	return ch, nil
}

// =============================================================================
// Payload Loading
// =============================================================================

// loadPayload reads a payload file, or builds one in memory when path is a
// directory of pipeline definitions.
func (c *CLI) loadPayload(ctx context.Context, path string) (*lineage.Store, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return source.ReadPayloadFile(path)
	}

	defs, err := source.LoadDir(ctx, path)
	if err != nil {
		return nil, err
	}
	store, issues, err := source.BuildPayload(defs)
	if err != nil {
		return nil, err
	}
	for _, is := range issues {
		c.Logger.Warn("skipped definition entry", "issue", is.String())
	}
	return store, nil
}

// =============================================================================
// Paths
// =============================================================================

// sessionDir returns where explore resumes are kept, following XDG
// (~/.config/pipescope/sessions/).
func sessionDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "sessions"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "sessions"), nil
}

// defaultOutput derives an output path next to input by replacing its
// extension with suffix.
func defaultOutput(input, suffix string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix
}

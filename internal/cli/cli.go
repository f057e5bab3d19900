// Package cli implements the depot command-line interface.
//
// This package provides commands for ingesting external package manifests
// into the package database, querying merged specs, exporting dependency
// graphs, and serving the HTTP API. The CLI is built using cobra and
// supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - ingest: Read a manifest document and merge it into the database
//   - query: Look up merged specs by content hash or package name
//   - compilers: List normalized compiler specs
//   - export: Render the dependency graph of a merged spec as DOT or SVG
//   - serve: Run the depot HTTP API
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pkgdepot/depot/pkg/buildinfo"
	"github.com/pkgdepot/depot/pkg/config"
	"github.com/pkgdepot/depot/pkg/errors"
	"github.com/pkgdepot/depot/pkg/store"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "depot",
		Short:        "Depot merges external package manifests into a package database",
		Long: `Depot ingests vendor-produced manifests describing packages installed
outside the package manager's own build pipeline, reconstructs their
dependency graph, and merges the result into a persistent package database
that can be queried by content hash or package name.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ctx := withLogger(cmd.Context(), c.Logger)
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.config/depot/config.toml)")

	root.AddCommand(c.ingestCommand())
	root.AddCommand(c.queryCommand())
	root.AddCommand(c.compilersCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the configured (or default) config file.
func (c *CLI) loadConfig() (config.Config, error) {
	return config.Load(c.configPath)
}

// openStore opens the package database selected by the configuration.
func (c *CLI) openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return store.NewMemoryStore(), nil
	case config.BackendFile:
		return store.NewFileStore(cfg.Store.Path)
	case config.BackendRedis:
		return store.NewRedisStore(ctx, cfg.Store.Redis)
	case config.BackendMongo:
		return store.NewMongoStore(ctx, cfg.Store.Mongo)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"unknown store backend %q", cfg.Store.Backend)
	}
}

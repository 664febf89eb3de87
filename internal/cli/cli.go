// Package cli implements the crateship command-line interface.
//
// Commands plan and execute ordered releases of Cargo workspaces, render
// the workspace dependency graph, and manage the registry response cache.
// The CLI is built on cobra; logging uses charmbracelet/log with debug
// level behind --verbose.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/crateship/crateship/pkg/buildinfo"
	"github.com/crateship/crateship/pkg/httputil"
	"github.com/crateship/crateship/pkg/workspace"
)

const (
	// appName is the application name used for directories and display.
	appName = "crateship"

	// registryCacheTTL bounds how long registry version lookups are
	// reused. Kept short: a version published by a previous run must be
	// seen as published soon after.
	registryCacheTTL = 15 * time.Minute
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
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
		Use:          appName,
		Short:        "Crateship publishes Cargo workspace crates in dependency order",
		Long:         `Crateship computes a release order for the crates of a Cargo workspace, so that every crate is published after all of its in-workspace dependencies, and drives cargo through the release one crate at a time.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.publishCommand())
	root.AddCommand(c.planCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// projectRoot returns the optional positional path argument, defaulting
// to the current directory.
func projectRoot(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// loadWorkspace enumerates the workspace members. The primary path goes
// through `cargo metadata`; when cargo is not installed (or --no-cargo is
// set) the manifests are parsed directly.
func (c *CLI) loadWorkspace(ctx context.Context, root string, noCargo bool) (*workspace.Workspace, error) {
	if noCargo {
		return workspace.LoadManifests(root)
	}
	ws, err := workspace.Load(ctx, root)
	if errors.Is(err, exec.ErrNotFound) {
		c.Logger.Warn("cargo not found, falling back to manifest scan")
		return workspace.LoadManifests(root)
	}
	return ws, err
}

// newRegistryCache creates the HTTP response cache. With noCache the
// entries go to a throwaway directory so nothing persists across runs.
func (c *CLI) newRegistryCache(noCache bool) (*httputil.Cache, error) {
	if noCache {
		dir, err := os.MkdirTemp("", appName+"-cache-")
		if err != nil {
			return nil, err
		}
		return httputil.NewCache(dir, registryCacheTTL)
	}
	dir, err := cacheDir()
	if err != nil {
		return nil, err
	}
	return httputil.NewCache(dir, registryCacheTTL)
}

// cacheDir returns the cache directory using the XDG convention
// (~/.cache/crateship/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// progress tracks the start time of an operation and logs completion with
// elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since the tracker was created.
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

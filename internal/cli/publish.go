package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crateship/crateship/pkg/cargo"
	"github.com/crateship/crateship/pkg/registry/crates"
	"github.com/crateship/crateship/pkg/release"
	"github.com/crateship/crateship/pkg/workspace"
)

// publishCommand creates the publish command.
func (c *CLI) publishCommand() *cobra.Command {
	var (
		skipPublished bool
		refresh       bool
		noCache       bool
		noCargo       bool
		interactive   bool
		dryRun        bool
		reportPath    string
	)

	cmd := &cobra.Command{
		Use:   "publish [path]",
		Short: "Publish workspace crates in dependency order",
		Long: `Publish workspace crates in dependency order.

The workspace members are ordered so that every crate is released after
all of its in-workspace dependencies. cargo check runs once over the
whole workspace before the first publish; then each crate is published
sequentially with 'cargo publish -p <name>'. A failing publish aborts
the remaining crates.

With --skip-published, crates whose exact version already exists on
crates.io are dropped from the run. Registry responses are cached under
~/.cache/crateship for a short period; use --refresh to bypass the
cache or --no-cache to disable persistence entirely.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPublish(cmd.Context(), publishParams{
				root:          projectRoot(args),
				skipPublished: skipPublished,
				refresh:       refresh,
				noCache:       noCache,
				noCargo:       noCargo,
				interactive:   interactive,
				dryRun:        dryRun,
				reportPath:    reportPath,
			})
		},
	}

	cmd.Flags().BoolVar(&skipPublished, "skip-published", false, "skip crates whose version already exists on crates.io")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass cached registry responses")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the registry response cache")
	cmd.Flags().BoolVar(&noCargo, "no-cargo", false, "enumerate members from Cargo.toml files instead of cargo metadata")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "pick the crates to release interactively")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute and print the order without running cargo")
	cmd.Flags().StringVar(&reportPath, "report", "", "write a JSON run report to this file")

	return cmd
}

type publishParams struct {
	root          string
	skipPublished bool
	refresh       bool
	noCache       bool
	noCargo       bool
	interactive   bool
	dryRun        bool
	reportPath    string
}

// runPublish loads the workspace, computes the order, and drives the release.
func (c *CLI) runPublish(ctx context.Context, p publishParams) error {
	pkgs, root, err := c.loadPublishable(ctx, p.root, p.noCargo)
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		printInfo("No publishable packages in %s", root)
		return nil
	}

	if p.interactive {
		pkgs, err = selectPackages(pkgs)
		if err != nil {
			return err
		}
		if len(pkgs) == 0 {
			printInfo("No packages selected")
			return nil
		}
	}

	var checker release.VersionChecker
	if p.skipPublished {
		cache, err := c.newRegistryCache(p.noCache)
		if err != nil {
			return fmt.Errorf("initialize cache: %w", err)
		}
		checker = crates.NewClient(cache)
	}

	runner := release.NewRunner(cargo.New(root), checker, c.Logger)

	ordered, err := runner.Plan(ctx, pkgs)
	if err != nil {
		return err
	}

	printInfo("Publishing %d packages:", len(ordered))
	for i, pkg := range ordered {
		printDetail("%d. %s %s", i+1, pkg.Name, pkg.Version)
	}

	report, runErr := runner.Publish(ctx, root, ordered, release.Options{
		SkipPublished: p.skipPublished,
		Refresh:       p.refresh,
		DryRun:        p.dryRun,
	})
	if report != nil && p.reportPath != "" {
		if werr := writeReport(p.reportPath, report); werr != nil {
			c.Logger.Error("write report failed", "path", p.reportPath, "err", werr)
		} else {
			printFile(p.reportPath)
		}
	}
	if runErr != nil {
		printError("Release failed: %v", runErr)
		return runErr
	}

	if p.dryRun {
		printInfo("Dry run: nothing was published")
		return nil
	}
	for _, skipped := range report.Skipped {
		printDetail("skipped %s (already published)", skipped)
	}
	if len(report.Published) == 0 {
		printInfo("Nothing to publish")
		return nil
	}
	printSuccess("Published %d packages: %v", len(report.Published), report.Published)
	return nil
}

// loadPublishable loads the workspace behind a spinner and returns its
// publishable members plus the resolved root.
func (c *CLI) loadPublishable(ctx context.Context, root string, noCargo bool) ([]*workspace.Package, string, error) {
	spinner := newSpinner(ctx, "Loading workspace...")
	spinner.Start()
	ws, err := c.loadWorkspace(ctx, root, noCargo)
	spinner.Stop()
	if err != nil {
		return nil, "", fmt.Errorf("load workspace %s: %w", root, err)
	}
	return ws.Publishable(), ws.Root, nil
}

// writeReport writes the run report to path as indented JSON.
func writeReport(path string, report *release.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

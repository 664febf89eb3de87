// Package release orchestrates a publish run: filter the workspace down
// to publishable packages, compute the release order, verify the
// workspace once, then publish each package in order.
//
// The runner is deliberately sequential. Each cargo invocation runs to
// completion before the next starts, because publishing a package before
// its dependencies are confirmed published would defeat the ordering
// guarantee this tool exists for. There is no retry and no partial-failure
// continuation: the first failure aborts the run, and packages published
// before the failure stay published.
package release

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/crateship/crateship/pkg/observability"
	"github.com/crateship/crateship/pkg/order"
	"github.com/crateship/crateship/pkg/workspace"
)

// Executor runs the build and publish commands. *cargo.Command is the
// production implementation.
type Executor interface {
	// Check verifies the whole workspace before anything is published.
	Check(ctx context.Context) error
	// Publish publishes a single package by name.
	Publish(ctx context.Context, name string) error
}

// VersionChecker answers whether an exact package version already exists
// in the target registry. The crates.io client implements it.
type VersionChecker interface {
	VersionExists(ctx context.Context, name, version string, refresh bool) (bool, error)
}

// VerificationError wraps a failure of the pre-publish check step.
// Nothing has been published when it is returned.
type VerificationError struct{ Err error }

func (e *VerificationError) Error() string { return fmt.Sprintf("verification failed: %v", e.Err) }
func (e *VerificationError) Unwrap() error { return e.Err }

// PublishError reports the package whose publish step failed. Packages
// earlier in the release order have already been published and remain so.
type PublishError struct {
	Package string
	Err     error
}

func (e *PublishError) Error() string { return fmt.Sprintf("publish %s: %v", e.Package, e.Err) }
func (e *PublishError) Unwrap() error { return e.Err }

// Options control a single publish run.
type Options struct {
	// SkipPublished drops packages whose exact version already exists in
	// the registry. Requires a VersionChecker on the runner.
	SkipPublished bool
	// Refresh bypasses the registry response cache for version lookups.
	Refresh bool
	// DryRun stops after planning: no check, no publishes.
	DryRun bool
}

// Report summarizes one run. It is written as JSON when --report is set.
type Report struct {
	RunID      string    `json:"run_id"`
	Root       string    `json:"root,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Planned    []string  `json:"planned"`
	Skipped    []string  `json:"skipped,omitempty"`
	Published  []string  `json:"published"`
}

// Runner drives a release. Zero value is not usable; construct with
// [NewRunner].
type Runner struct {
	Executor Executor
	Registry VersionChecker // may be nil when SkipPublished is off
	Logger   *log.Logger
}

// NewRunner creates a runner. registry may be nil; logger defaults to the
// package-level default logger.
func NewRunner(exec Executor, registry VersionChecker, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Executor: exec, Registry: registry, Logger: logger}
}

// Plan computes the release order for the given packages. It has no side
// effects; the same ordered packages feed both `crateship plan` and the
// publish loop.
func (r *Runner) Plan(ctx context.Context, pkgs []*workspace.Package) ([]*workspace.Package, error) {
	ordered, err := order.Resolve(pkgs)
	observability.Release().OnResolveComplete(ctx, packageNames(ordered), err)
	if err != nil {
		return nil, err
	}
	return ordered, nil
}

// Publish runs the full pipeline over the given (already filtered)
// packages: order, optionally skip published versions, verify, publish
// each package. The returned report is non-nil even on failure and
// records everything that did happen.
func (r *Runner) Publish(ctx context.Context, root string, pkgs []*workspace.Package, opts Options) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		Root:      root,
		StartedAt: time.Now(),
	}
	defer func() { report.FinishedAt = time.Now() }()

	logger := r.Logger.With("run", report.RunID)

	ordered, err := r.Plan(ctx, pkgs)
	if err != nil {
		return report, err
	}
	report.Planned = packageNames(ordered)
	logger.Info("release order resolved", "packages", len(ordered))

	if opts.SkipPublished {
		ordered, err = r.skipPublished(ctx, logger, report, ordered, opts.Refresh)
		if err != nil {
			return report, err
		}
	}

	if opts.DryRun {
		return report, nil
	}
	if len(ordered) == 0 {
		logger.Info("nothing to publish")
		return report, nil
	}

	if err := r.verify(ctx, logger); err != nil {
		return report, err
	}

	logger.Info("publishing packages", "order", packageNames(ordered))
	for _, p := range ordered {
		start := time.Now()
		observability.Release().OnPublishStart(ctx, p.Name)
		logger.Info("publishing", "package", p.Name, "version", p.Version)

		err := r.Executor.Publish(ctx, p.Name)
		observability.Release().OnPublishComplete(ctx, p.Name, time.Since(start), err)
		if err != nil {
			return report, &PublishError{Package: p.Name, Err: err}
		}
		report.Published = append(report.Published, p.Name)
	}

	logger.Info("published packages", "order", report.Published)
	return report, nil
}

func (r *Runner) verify(ctx context.Context, logger *log.Logger) error {
	logger.Info("checking workspace")
	start := time.Now()
	observability.Release().OnCheckStart(ctx)

	err := r.Executor.Check(ctx)
	observability.Release().OnCheckComplete(ctx, time.Since(start), err)
	if err != nil {
		return &VerificationError{Err: err}
	}
	return nil
}

// skipPublished filters out packages whose exact version is already in
// the registry. A lookup failure is fatal: silently keeping or dropping a
// package on a failed probe would make the publish list unpredictable.
func (r *Runner) skipPublished(ctx context.Context, logger *log.Logger, report *Report, ordered []*workspace.Package, refresh bool) ([]*workspace.Package, error) {
	if r.Registry == nil {
		return nil, fmt.Errorf("skip-published requested but no registry client configured")
	}

	var remaining []*workspace.Package
	for _, p := range ordered {
		exists, err := r.Registry.VersionExists(ctx, p.Name, p.Version, refresh)
		if err != nil {
			return nil, fmt.Errorf("registry lookup for %s@%s: %w", p.Name, p.Version, err)
		}
		if exists {
			logger.Info("already published, skipping", "package", p.Name, "version", p.Version)
			report.Skipped = append(report.Skipped, p.Name)
			continue
		}
		remaining = append(remaining, p)
	}
	return remaining, nil
}

func packageNames(pkgs []*workspace.Package) []string {
	names := make([]string, len(pkgs))
	for i, p := range pkgs {
		names[i] = p.Name
	}
	return names
}

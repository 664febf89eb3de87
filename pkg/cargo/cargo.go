// Package cargo wraps the cargo binary for the two commands the release
// pipeline needs: a workspace-wide check before anything is published, and
// one publish invocation per package.
//
// Commands run sequentially and to completion; their stdout/stderr stream
// to the writers configured on [Command] so the user sees cargo's own
// output live.
package cargo

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/crateship/crateship/pkg/observability"
)

// Command invokes cargo in a fixed working directory.
// The zero value is not usable; create instances with [New].
type Command struct {
	// Bin is the executable to invoke, normally "cargo".
	Bin string
	// Dir is the working directory for every invocation, normally the
	// workspace root.
	Dir string
	// Stdout and Stderr receive the subprocess output.
	Stdout io.Writer
	Stderr io.Writer
}

// New creates a cargo command runner rooted at dir.
// Output is streamed to the current process's stdout and stderr.
func New(dir string) *Command {
	return &Command{
		Bin:    "cargo",
		Dir:    dir,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run executes cargo with the given arguments, blocking until it exits.
// A non-zero exit status is returned as an error carrying the full argv so
// the failing invocation can be reproduced by hand.
func (c *Command) Run(ctx context.Context, args ...string) error {
	observability.Commands().OnCommandStart(ctx, c.Bin, args)

	cmd := exec.CommandContext(ctx, c.Bin, args...)
	cmd.Dir = c.Dir
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	err := cmd.Run()
	observability.Commands().OnCommandComplete(ctx, c.Bin, args, err)
	if err != nil {
		return fmt.Errorf("%s %s: %w", c.Bin, strings.Join(args, " "), err)
	}
	return nil
}

// Check runs `cargo check --all-features --all-targets` for the whole
// workspace. This is the pre-publish verification step; its failure must
// abort the release before any package is published.
func (c *Command) Check(ctx context.Context) error {
	return c.Run(ctx, "check", "--all-features", "--all-targets")
}

// Publish runs `cargo publish -p <name>` for a single package.
func (c *Command) Publish(ctx context.Context, name string) error {
	return c.Run(ctx, "publish", "-p", name)
}

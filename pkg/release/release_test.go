package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/crateship/crateship/pkg/order"
	"github.com/crateship/crateship/pkg/workspace"
)

// fakeExecutor records every call in order and can be told to fail.
type fakeExecutor struct {
	calls       []string
	checkErr    error
	publishErrs map[string]error
}

func (f *fakeExecutor) Check(ctx context.Context) error {
	f.calls = append(f.calls, "check")
	return f.checkErr
}

func (f *fakeExecutor) Publish(ctx context.Context, name string) error {
	f.calls = append(f.calls, "publish "+name)
	return f.publishErrs[name]
}

type fakeRegistry struct {
	published map[string]bool
	err       error
}

func (f *fakeRegistry) VersionExists(ctx context.Context, name, version string, refresh bool) (bool, error) {
	return f.published[name+"@"+version], f.err
}

func quietLogger() *log.Logger { return log.New(io.Discard) }

func pkg(name, version string, deps ...string) *workspace.Package {
	return &workspace.Package{Name: name, Version: version, Dependencies: deps, Publishable: true}
}

func TestPublish_OrderAndCallSequence(t *testing.T) {
	exec := &fakeExecutor{}
	r := NewRunner(exec, nil, quietLogger())

	pkgs := []*workspace.Package{
		pkg("cli", "0.1.0", "core", "util"),
		pkg("util", "0.1.0", "core"),
		pkg("core", "0.1.0"),
	}

	report, err := r.Publish(context.Background(), "/ws", pkgs, Options{})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	// Check must run exactly once, before any publish.
	want := []string{"check", "publish core", "publish util", "publish cli"}
	if !slices.Equal(exec.calls, want) {
		t.Errorf("call sequence = %v, want %v", exec.calls, want)
	}
	if !slices.Equal(report.Published, []string{"core", "util", "cli"}) {
		t.Errorf("report.Published = %v", report.Published)
	}
	if !slices.Equal(report.Planned, []string{"core", "util", "cli"}) {
		t.Errorf("report.Planned = %v", report.Planned)
	}
	if report.RunID == "" {
		t.Error("report has no run ID")
	}
}

func TestPublish_CycleAbortsBeforeAnyCommand(t *testing.T) {
	exec := &fakeExecutor{}
	r := NewRunner(exec, nil, quietLogger())

	pkgs := []*workspace.Package{
		pkg("a", "0.1.0", "b"),
		pkg("b", "0.1.0", "a"),
	}

	_, err := r.Publish(context.Background(), "/ws", pkgs, Options{})
	var cerr *order.CycleError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *order.CycleError, got %v", err)
	}
	if len(exec.calls) != 0 {
		t.Errorf("no command should run on a cycle, got %v", exec.calls)
	}
}

func TestPublish_VerificationFailureAbortsBeforePublish(t *testing.T) {
	exec := &fakeExecutor{checkErr: fmt.Errorf("cargo check: exit status 101")}
	r := NewRunner(exec, nil, quietLogger())

	report, err := r.Publish(context.Background(), "/ws", []*workspace.Package{pkg("a", "0.1.0")}, Options{})

	var verr *VerificationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *VerificationError, got %v", err)
	}
	if len(report.Published) != 0 {
		t.Errorf("nothing should be published, got %v", report.Published)
	}
	if !slices.Equal(exec.calls, []string{"check"}) {
		t.Errorf("calls = %v, want only check", exec.calls)
	}
}

func TestPublish_FailureAbortsRemaining(t *testing.T) {
	exec := &fakeExecutor{publishErrs: map[string]error{"util": errors.New("exit status 101")}}
	r := NewRunner(exec, nil, quietLogger())

	pkgs := []*workspace.Package{
		pkg("cli", "0.1.0", "util"),
		pkg("util", "0.1.0", "core"),
		pkg("core", "0.1.0"),
	}

	report, err := r.Publish(context.Background(), "/ws", pkgs, Options{})

	var perr *PublishError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PublishError, got %v", err)
	}
	if perr.Package != "util" {
		t.Errorf("failed package = %s, want util", perr.Package)
	}
	// core went out before the failure and stays published; cli must not
	// have been attempted.
	if !slices.Equal(report.Published, []string{"core"}) {
		t.Errorf("report.Published = %v, want [core]", report.Published)
	}
	if slices.Contains(exec.calls, "publish cli") {
		t.Error("publish continued past the failure")
	}
}

func TestPublish_SkipPublished(t *testing.T) {
	exec := &fakeExecutor{}
	reg := &fakeRegistry{published: map[string]bool{"core@0.1.0": true}}
	r := NewRunner(exec, reg, quietLogger())

	pkgs := []*workspace.Package{
		pkg("util", "0.1.0", "core"),
		pkg("core", "0.1.0"),
	}

	report, err := r.Publish(context.Background(), "/ws", pkgs, Options{SkipPublished: true})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if !slices.Equal(report.Skipped, []string{"core"}) {
		t.Errorf("report.Skipped = %v, want [core]", report.Skipped)
	}
	if !slices.Equal(report.Published, []string{"util"}) {
		t.Errorf("report.Published = %v, want [util]", report.Published)
	}
	if slices.Contains(exec.calls, "publish core") {
		t.Error("skipped package was published")
	}
}

func TestPublish_SkipPublishedRequiresRegistry(t *testing.T) {
	r := NewRunner(&fakeExecutor{}, nil, quietLogger())
	_, err := r.Publish(context.Background(), "/ws", []*workspace.Package{pkg("a", "0.1.0")}, Options{SkipPublished: true})
	if err == nil {
		t.Fatal("expected error without a registry client")
	}
}

func TestPublish_RegistryFailureIsFatal(t *testing.T) {
	exec := &fakeExecutor{}
	reg := &fakeRegistry{err: errors.New("network error")}
	r := NewRunner(exec, reg, quietLogger())

	_, err := r.Publish(context.Background(), "/ws", []*workspace.Package{pkg("a", "0.1.0")}, Options{SkipPublished: true})
	if err == nil {
		t.Fatal("expected error when registry lookup fails")
	}
	if len(exec.calls) != 0 {
		t.Errorf("no command should run after registry failure, got %v", exec.calls)
	}
}

func TestPublish_DryRunRunsNothing(t *testing.T) {
	exec := &fakeExecutor{}
	r := NewRunner(exec, nil, quietLogger())

	report, err := r.Publish(context.Background(), "/ws", []*workspace.Package{pkg("a", "0.1.0")}, Options{DryRun: true})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(exec.calls) != 0 {
		t.Errorf("dry run executed commands: %v", exec.calls)
	}
	if !slices.Equal(report.Planned, []string{"a"}) {
		t.Errorf("report.Planned = %v, want [a]", report.Planned)
	}
}

func TestPublish_EmptyWorkspace(t *testing.T) {
	exec := &fakeExecutor{}
	r := NewRunner(exec, nil, quietLogger())

	report, err := r.Publish(context.Background(), "/ws", nil, Options{})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(exec.calls) != 0 {
		t.Errorf("empty workspace ran commands: %v", exec.calls)
	}
	if len(report.Published) != 0 {
		t.Errorf("report.Published = %v, want empty", report.Published)
	}
}

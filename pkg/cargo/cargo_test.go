package cargo

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestRunStreamsOutput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	c := &Command{Bin: "sh", Dir: t.TempDir(), Stdout: &stdout, Stderr: &stderr}

	if err := c.Run(context.Background(), "-c", "echo out; echo err >&2"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "out" {
		t.Errorf("stdout = %q, want %q", got, "out")
	}
	if got := strings.TrimSpace(stderr.String()); got != "err" {
		t.Errorf("stderr = %q, want %q", got, "err")
	}
}

func TestRunNonZeroExit(t *testing.T) {
	c := &Command{Bin: "sh", Dir: t.TempDir(), Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}

	err := c.Run(context.Background(), "-c", "exit 3")
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	// The failing argv must be reproducible from the error text.
	if !strings.Contains(err.Error(), "sh -c exit 3") {
		t.Errorf("error does not name the invocation: %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &Command{Bin: "sh", Dir: t.TempDir(), Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	if err := c.Run(ctx, "-c", "sleep 10"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestNewDefaults(t *testing.T) {
	c := New("/tmp/ws")
	if c.Bin != "cargo" {
		t.Errorf("Bin = %q, want cargo", c.Bin)
	}
	if c.Dir != "/tmp/ws" {
		t.Errorf("Dir = %q, want /tmp/ws", c.Dir)
	}
}

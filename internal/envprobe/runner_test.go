package envprobe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// stubTool drops an executable shell script into dir so PATH-based
// lookup finds it instead of the real tool.
func stubTool(t *testing.T, dir, name, script string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestProbeStubbedTool(t *testing.T) {
	dir := t.TempDir()
	stubTool(t, dir, "docker", "exit 0")
	t.Setenv("PATH", dir)

	r := NewRunner(DefaultRunnerConfig())
	if !r.Probe(context.Background(), "docker", "version") {
		t.Error("Probe = false, want true for a stubbed docker")
	}
	if r.Probe(context.Background(), "kubectl", "version", "--client") {
		t.Error("Probe = true for a binary that is not on PATH")
	}
}

func TestProbeNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	stubTool(t, dir, "docker", "exit 1")
	t.Setenv("PATH", dir)

	r := NewRunner(DefaultRunnerConfig())
	if r.Probe(context.Background(), "docker", "version") {
		t.Error("Probe = true for a failing tool, want false")
	}
}

func TestRunCapturesOutput(t *testing.T) {
	dir := t.TempDir()
	stubTool(t, dir, "uptime", `echo "up 3 days"; echo "warn" >&2; exit 3`)
	t.Setenv("PATH", dir)

	r := NewRunner(DefaultRunnerConfig())
	out, err := r.Run(context.Background(), "uptime")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", out.ExitCode)
	}
	if got := strings.TrimSpace(out.Stdout); got != "up 3 days" {
		t.Errorf("Stdout = %q, want %q", got, "up 3 days")
	}
	if got := strings.TrimSpace(out.Stderr); got != "warn" {
		t.Errorf("Stderr = %q, want %q", got, "warn")
	}
}

func TestRunDisallowedBinary(t *testing.T) {
	r := NewRunner(DefaultRunnerConfig())
	_, err := r.Run(context.Background(), "rm", "-rf", "/tmp/whatever")
	if !errors.Is(err, ErrBinaryNotAllowed) {
		t.Fatalf("err = %v, want ErrBinaryNotAllowed", err)
	}
}

func TestRunMissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	r := NewRunner(DefaultRunnerConfig())
	_, err := r.Run(context.Background(), "docker", "ps")
	if !errors.Is(err, ErrToolUnavailable) {
		t.Fatalf("err = %v, want ErrToolUnavailable", err)
	}
}

func TestRunTimeout(t *testing.T) {
	dir := t.TempDir()
	stubTool(t, dir, "nproc", "exec /bin/sleep 5")
	t.Setenv("PATH", dir)

	r := NewRunner(RunnerConfig{QueryTimeout: 100 * time.Millisecond})
	start := time.Now()
	out, err := r.Run(context.Background(), "nproc")
	if !errors.Is(err, ErrQueryTimeout) {
		t.Fatalf("err = %v, want ErrQueryTimeout", err)
	}
	if !out.TimedOut {
		t.Error("TimedOut = false, want true")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Run took %s, should have been killed at the deadline", elapsed)
	}
}

func TestRunOutputCap(t *testing.T) {
	dir := t.TempDir()
	stubTool(t, dir, "uname", `i=0
while [ $i -lt 100 ]; do
  echo "0123456789"
  i=$((i+1))
done`)
	t.Setenv("PATH", dir)

	r := NewRunner(RunnerConfig{MaxOutputBytes: 64})
	out, err := r.Run(context.Background(), "uname")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Truncated {
		t.Error("Truncated = false, want true")
	}
	if len(out.Stdout) != 64 {
		t.Errorf("len(Stdout) = %d, want the 64 byte cap", len(out.Stdout))
	}
}

func TestProbeTimeout(t *testing.T) {
	dir := t.TempDir()
	stubTool(t, dir, "docker", "exec sleep 5")
	t.Setenv("PATH", dir)

	r := NewRunner(RunnerConfig{ProbeTimeout: 100 * time.Millisecond})
	start := time.Now()
	if r.Probe(context.Background(), "docker", "version") {
		t.Error("Probe = true for a hung tool, want false")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Probe took %s, want fast failure", elapsed)
	}
}

package envprobe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"scout/internal/logging"
)

var (
	// ErrToolUnavailable means the binary is missing from PATH or
	// could not be started.
	ErrToolUnavailable = errors.New("tool unavailable")

	// ErrQueryTimeout means the command exceeded its time budget and
	// was killed.
	ErrQueryTimeout = errors.New("query timed out")

	// ErrBinaryNotAllowed means the binary is outside the read-only
	// allowlist. The runner never executes anything else.
	ErrBinaryNotAllowed = errors.New("binary not allowed")
)

// allowedBinaries is the closed set of commands the engine may run.
// Every entry is a read-only inspection tool.
var allowedBinaries = map[string]bool{
	"docker":            true,
	"podman":            true,
	"kubectl":           true,
	"oc":                true,
	"ansible":           true,
	"ansible-inventory": true,
	"uname":             true,
	"uptime":            true,
	"nproc":             true,
}

// passthroughEnv lists environment variables forwarded to probed
// tools. Everything else is stripped from the child environment.
var passthroughEnv = []string{
	"PATH", "HOME", "USER",
	"KUBECONFIG", "DOCKER_HOST", "CONTAINER_HOST", "ANSIBLE_CONFIG",
}

// RunnerConfig bounds command execution.
type RunnerConfig struct {
	// ProbeTimeout bounds availability probes. Probes must be fast:
	// a tool that cannot answer quickly is treated as unavailable.
	ProbeTimeout time.Duration

	// QueryTimeout bounds full capability queries.
	QueryTimeout time.Duration

	// MaxOutputBytes caps captured stdout and stderr, each.
	MaxOutputBytes int64
}

// DefaultRunnerConfig returns the stock execution bounds.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		ProbeTimeout:   1500 * time.Millisecond,
		QueryTimeout:   5 * time.Second,
		MaxOutputBytes: 64 * 1024,
	}
}

// Output is the captured result of one command run.
type Output struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Truncated bool
	TimedOut  bool
	Duration  time.Duration
}

// Runner executes allowlisted binaries with timeouts and output caps.
// Safe for concurrent use.
type Runner struct {
	mu  sync.RWMutex
	cfg RunnerConfig
}

// NewRunner builds a runner, filling zero config fields with defaults.
func NewRunner(cfg RunnerConfig) *Runner {
	def := DefaultRunnerConfig()
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = def.QueryTimeout
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = def.MaxOutputBytes
	}
	return &Runner{cfg: cfg}
}

// Probe runs a command under the probe timeout and reports whether it
// succeeded. Any failure, including a missing binary or a slow tool,
// reads as unavailable.
func (r *Runner) Probe(ctx context.Context, binary string, args ...string) bool {
	r.mu.RLock()
	timeout := r.cfg.ProbeTimeout
	r.mu.RUnlock()

	out, err := r.run(ctx, timeout, binary, args)
	return err == nil && out.ExitCode == 0
}

// Run executes a query command under the query timeout. A non-zero
// exit is not an error: the tool ran and said no. Timeouts return the
// partial output alongside ErrQueryTimeout.
func (r *Runner) Run(ctx context.Context, binary string, args ...string) (*Output, error) {
	r.mu.RLock()
	timeout := r.cfg.QueryTimeout
	r.mu.RUnlock()

	return r.run(ctx, timeout, binary, args)
}

func (r *Runner) run(ctx context.Context, timeout time.Duration, binary string, args []string) (out *Output, err error) {
	out = &Output{ExitCode: -1}

	defer func() {
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		logging.Audit().CommandExec(binary, args, out.Duration.Milliseconds(), err == nil, msg)
	}()

	if !allowedBinaries[binary] {
		logging.EnvprobeWarn("refusing to run %s: not allowlisted", binary)
		return out, fmt.Errorf("%w: %s", ErrBinaryNotAllowed, binary)
	}
	if _, lookErr := exec.LookPath(binary); lookErr != nil {
		logging.EnvprobeDebug("%s not on PATH", binary)
		return out, fmt.Errorf("%w: %s", ErrToolUnavailable, binary)
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, binary, args...)
	cmd.Env = passEnvironment()
	// Do not let an orphaned grandchild holding the output pipe keep
	// Run blocked past the deadline.
	cmd.WaitDelay = 2 * time.Second

	r.mu.RLock()
	maxOutput := r.cfg.MaxOutputBytes
	r.mu.RUnlock()

	var stdoutBuf, stderrBuf bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdoutBuf, max: maxOutput}
	stderrLimited := &limitedWriter{w: &stderrBuf, max: maxOutput}
	cmd.Stdout = stdoutLimited
	cmd.Stderr = stderrLimited

	logging.EnvprobeDebug("exec: %s %v (timeout=%s)", binary, args, timeout)
	start := time.Now()
	runErr := cmd.Run()
	out.Duration = time.Since(start)
	out.Stdout = stdoutBuf.String()
	out.Stderr = stderrBuf.String()

	if stdoutLimited.truncated || stderrLimited.truncated {
		out.Truncated = true
		logging.EnvprobeWarn("%s output truncated: %d bytes discarded",
			binary, stdoutLimited.discarded+stderrLimited.discarded)
	}

	if runErr != nil {
		switch {
		case execCtx.Err() == context.DeadlineExceeded:
			out.TimedOut = true
			logging.EnvprobeWarn("%s killed after %s", binary, timeout)
			return out, fmt.Errorf("%w: %s after %s", ErrQueryTimeout, binary, timeout)
		case execCtx.Err() == context.Canceled:
			return out, execCtx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			logging.EnvprobeDebug("%s exited %d", binary, out.ExitCode)
			return out, nil
		}
		return out, fmt.Errorf("%w: %s: %v", ErrToolUnavailable, binary, runErr)
	}

	out.ExitCode = 0
	return out, nil
}

// passEnvironment builds the child environment from the passthrough
// allowlist.
func passEnvironment() []string {
	env := make([]string, 0, len(passthroughEnv))
	for _, key := range passthroughEnv {
		if val := os.Getenv(key); val != "" {
			env = append(env, key+"="+val)
		}
	}
	return env
}

// limitedWriter caps total bytes written, discarding the rest while
// still reporting full writes so the child never sees a short write.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
	discarded int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.written >= lw.max {
		lw.truncated = true
		lw.discarded += int64(n)
		return n, nil
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		lw.discarded += int64(n) - remaining
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}

// Package envprobe discovers which infrastructure CLIs exist on the
// host and runs bounded read-only queries against them. Where filescan
// reads what the project says about itself, envprobe reads what the
// machine is actually running. Discovery happens once per process;
// queries route to capabilities by keyword and degrade to nothing if a
// tool misbehaves.
package envprobe

import (
	"context"
	"strings"
	"time"
)

// Per-capability confidence levels. A capability that answered fully
// from live output is near-certain; one that only partially answered
// (tool present, query degraded) is worth checking against other
// tiers.
const (
	confFull    = 0.9
	confPartial = 0.7
	confWeak    = 0.45
)

// Capability is one probe-able tool the engine knows how to question.
type Capability interface {
	// Name is the stable capability identifier (also the evidence
	// locator prefix).
	Name() string

	// Category groups related capabilities (containers, cluster, ...).
	Category() string

	// Keywords route questions: a question mentioning any of them
	// selects this capability.
	Keywords() []string

	// Probe reports whether the capability is usable right now. Fast
	// and side-effect free.
	Probe(ctx context.Context, r *Runner) bool

	// Query answers a question from live tool output. An error means
	// the capability produced nothing usable; the caller drops it.
	Query(ctx context.Context, r *Runner, question string) (*Report, error)
}

// Report is one capability's answer.
type Report struct {
	Capability string
	Category   string
	Available  bool
	Summary    string
	Detail     string
	Facts      map[string]string
	Confidence float64

	// Commands lists what was executed, for evidence locators.
	Commands []string

	Duration time.Duration
}

// CapabilityStatus is one row of the discovery snapshot.
type CapabilityStatus struct {
	Name      string
	Category  string
	Available bool

	// ProbeDuration is how long the liveness probe took during
	// discovery.
	ProbeDuration time.Duration
}

// nonEmptyLines splits command output into trimmed non-empty lines.
func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// firstField returns the first whitespace- or tab-separated field.
func firstField(line string) string {
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		return line[:i]
	}
	return line
}

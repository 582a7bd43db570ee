package envprobe

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"scout/internal/keywords"
	"scout/internal/logging"
)

// Result is the merged outcome of one environment query.
type Result struct {
	Reports    []Report
	Confidence float64
	Summary    string
	Duration   time.Duration
}

// Registry owns the capability set. Discovery runs once per process;
// after that availability is read-only.
type Registry struct {
	runner *Runner
	caps   []Capability

	discoverOnce sync.Once
	mu           sync.RWMutex
	available    map[string]bool
	probeTime    map[string]time.Duration
}

// NewRegistry builds a registry with the default capability set minus
// any names in disabled.
func NewRegistry(cfg RunnerConfig, disabled []string) *Registry {
	skip := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		skip[strings.ToLower(strings.TrimSpace(name))] = true
	}

	all := []Capability{
		dockerCapability{},
		podmanCapability{},
		kubectlCapability{},
		openshiftCapability{},
		ansibleCapability{},
		hostinfoCapability{},
	}

	caps := make([]Capability, 0, len(all))
	for _, c := range all {
		if skip[c.Name()] {
			logging.Envprobe("capability %s disabled by config", c.Name())
			continue
		}
		caps = append(caps, c)
	}

	return &Registry{
		runner:    NewRunner(cfg),
		caps:      caps,
		available: make(map[string]bool),
		probeTime: make(map[string]time.Duration),
	}
}

// Discover probes every registered capability in parallel. It runs at
// most once; later calls return immediately.
func (reg *Registry) Discover(ctx context.Context) {
	reg.discoverOnce.Do(func() {
		timer := logging.StartTimer(logging.CategoryEnvprobe, "capability discovery")
		defer timer.StopWithInfo()

		var wg sync.WaitGroup
		for _, c := range reg.caps {
			wg.Add(1)
			go func(c Capability) {
				defer wg.Done()
				start := time.Now()
				defer func() {
					if r := recover(); r != nil {
						logging.EnvprobeError("probe panic in %s: %v", c.Name(), r)
						reg.setAvailable(c.Name(), false, time.Since(start))
					}
				}()

				ok := c.Probe(ctx, reg.runner)
				reg.setAvailable(c.Name(), ok, time.Since(start))

				logging.Audit().Probe(c.Name(), ok, time.Since(start).Milliseconds())
				logging.EnvprobeDebug("probe %s: available=%v in %s", c.Name(), ok, time.Since(start))
			}(c)
		}
		wg.Wait()

		logging.Envprobe("discovery complete: %d capabilities, %d available",
			len(reg.caps), len(reg.availableNames()))
	})
}

func (reg *Registry) setAvailable(name string, ok bool, probe time.Duration) {
	reg.mu.Lock()
	reg.available[name] = ok
	reg.probeTime[name] = probe
	reg.mu.Unlock()
}

func (reg *Registry) isAvailable(name string) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.available[name]
}

func (reg *Registry) availableNames() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	var names []string
	for name, ok := range reg.available {
		if ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Snapshot discovers if needed and returns every capability's status,
// sorted by name.
func (reg *Registry) Snapshot(ctx context.Context) []CapabilityStatus {
	reg.Discover(ctx)

	reg.mu.RLock()
	statuses := make([]CapabilityStatus, 0, len(reg.caps))
	for _, c := range reg.caps {
		statuses = append(statuses, CapabilityStatus{
			Name:          c.Name(),
			Category:      c.Category(),
			Available:     reg.available[c.Name()],
			ProbeDuration: reg.probeTime[c.Name()],
		})
	}
	reg.mu.RUnlock()
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// Query routes the question to matching available capabilities, runs
// them in parallel, and merges their reports. A capability that fails
// is dropped; Query itself never fails.
func (reg *Registry) Query(ctx context.Context, question string) *Result {
	start := time.Now()
	reg.Discover(ctx)

	res := &Result{}
	selected := reg.route(question)
	if len(selected) == 0 {
		res.Summary = "No environment capability matches the question."
		res.Duration = time.Since(start)
		logging.EnvprobeDebug("no capability routed for: %s", question)
		return res
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range selected {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					logging.EnvprobeError("query panic in %s: %v", c.Name(), r)
				}
			}()

			qStart := time.Now()
			rep, err := c.Query(gctx, reg.runner, question)
			if err != nil {
				logging.EnvprobeWarn("query %s failed: %v", c.Name(), err)
				return nil
			}
			rep.Duration = time.Since(qStart)

			mu.Lock()
			res.Reports = append(res.Reports, *rep)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	sort.Slice(res.Reports, func(i, j int) bool {
		return res.Reports[i].Capability < res.Reports[j].Capability
	})

	summaries := make([]string, 0, len(res.Reports))
	for _, rep := range res.Reports {
		if rep.Confidence > res.Confidence {
			res.Confidence = rep.Confidence
		}
		if rep.Summary != "" {
			summaries = append(summaries, rep.Summary)
		}
	}
	res.Summary = strings.Join(summaries, " ")
	if res.Summary == "" {
		res.Summary = "Matching environment capabilities produced no usable output."
	}

	res.Duration = time.Since(start)
	logging.Envprobe("query done: %d/%d capabilities answered, confidence=%.2f in %s",
		len(res.Reports), len(selected), res.Confidence, res.Duration)
	return res
}

// route returns available capabilities whose keywords intersect the
// question vocabulary, including lexicon expansions.
func (reg *Registry) route(question string) []Capability {
	qset := make(map[string]bool)
	for _, term := range keywords.Analyze(question).All() {
		qset[term] = true
	}

	var out []Capability
	for _, c := range reg.caps {
		if !reg.isAvailable(c.Name()) {
			continue
		}
		for _, kw := range c.Keywords() {
			if qset[kw] {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

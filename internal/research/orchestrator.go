package research

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"scout/internal/confidence"
	"scout/internal/envprobe"
	"scout/internal/filescan"
	"scout/internal/graph"
	"scout/internal/keywords"
	"scout/internal/logging"
	"scout/internal/websearch"
)

// DefaultTimeout bounds one whole question, all tiers included.
const DefaultTimeout = 30 * time.Second

// graphLimit caps how many related decisions one question pulls in.
const graphLimit = 8

// FileSearcher is the project-files tier. Search never fails; poor
// input degrades to an empty result.
type FileSearcher interface {
	Search(ctx context.Context, root string, terms keywords.QueryTerms) *filescan.Result
}

// DecisionGraph is the knowledge-graph tier.
type DecisionGraph interface {
	Related(ctx context.Context, terms []string, limit int) ([]graph.Related, error)
}

// EnvQuerier is the live-environment tier.
type EnvQuerier interface {
	Query(ctx context.Context, question string) *envprobe.Result
}

// WebSearcher is the last-resort web tier, called at most once per
// question and only when the caller authorized it.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]websearch.Result, error)
}

// AnswerCache stores synthesized answers keyed by question identity.
// Implementations own copy semantics: what Get returns must be safe
// for the caller to mutate.
type AnswerCache interface {
	Get(q Question) (*Answer, bool)
	Put(q Question, a *Answer)
}

// Options wires tiers into an engine. A nil tier is skipped entirely:
// it is never queried and never appears in answer metadata.
type Options struct {
	Files FileSearcher
	Graph DecisionGraph
	Env   EnvQuerier
	Web   WebSearcher
	Cache AnswerCache

	// Weights overrides the per-tier aggregation weights. Nil means
	// confidence.DefaultWeights.
	Weights confidence.Weights

	// Timeout bounds one question end to end. Zero means
	// DefaultTimeout.
	Timeout time.Duration
}

// Engine runs the research cascade: cheap local tiers first, the
// environment only when they fall short, the web only on explicit
// authorization. Safe for concurrent use.
type Engine struct {
	files   FileSearcher
	graph   DecisionGraph
	env     EnvQuerier
	web     WebSearcher
	cache   AnswerCache
	weights confidence.Weights
	timeout time.Duration
}

// NewEngine builds an engine from options.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		files:   opts.Files,
		graph:   opts.Graph,
		env:     opts.Env,
		web:     opts.Web,
		cache:   opts.Cache,
		weights: opts.Weights,
		timeout: opts.Timeout,
	}
	if e.weights == nil {
		e.weights = confidence.DefaultWeights()
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	return e
}

// Ask answers one research question. The only hard failure is an
// empty question; every tier failure degrades the answer instead of
// aborting it, and an expired context yields the best partial answer
// built from the tiers that finished.
func (e *Engine) Ask(ctx context.Context, q Question) (*Answer, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	requestID := uuid.NewString()[:8]
	log := logging.WithRequestID(logging.CategoryResearch, requestID)
	audit := logging.AuditWithRequest(requestID)
	audit.QuestionStart(requestID, q.Normalized())

	start := time.Now()

	if e.cache != nil {
		if hit, ok := e.cache.Get(q); ok {
			hit.Metadata.CacheHit = true
			audit.QuestionComplete(requestID, hit.Confidence, time.Since(start).Milliseconds(), true)
			return hit, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	terms := keywords.Analyze(q.Text)
	threshold := q.EffectiveThreshold()

	var (
		sources []SourceResult
		queried []SourceType
	)

	// Tiers 1 and 2 are local and cheap; run them together.
	var fileSrc, graphSrc *SourceResult
	g, gctx := errgroup.WithContext(ctx)
	if e.files != nil {
		queried = append(queried, SourceProjectFiles)
		g.Go(func() error {
			protect(log, string(SourceProjectFiles), func() {
				fileSrc = e.fileTier(gctx, q.ProjectRoot, terms, audit, requestID)
			})
			return nil
		})
	}
	if e.graph != nil {
		queried = append(queried, SourceKnowledgeGraph)
		g.Go(func() error {
			protect(log, string(SourceKnowledgeGraph), func() {
				graphSrc = e.graphTier(gctx, terms, audit, requestID, log)
			})
			return nil
		})
	}
	_ = g.Wait()

	if fileSrc != nil {
		sources = append(sources, *fileSrc)
	}
	if graphSrc != nil {
		sources = append(sources, *graphSrc)
	}
	overall := e.aggregate(sources)

	// The environment tier shells out to live tooling; skip it when
	// local evidence already clears the bar.
	if e.env != nil && overall < threshold && ctx.Err() == nil {
		queried = append(queried, SourceEnvironment)
		var envSrc *SourceResult
		protect(log, string(SourceEnvironment), func() {
			envSrc = e.envTier(ctx, q.Text, audit, requestID)
		})
		if envSrc != nil {
			sources = append(sources, *envSrc)
			overall = e.aggregate(sources)
		}
	}

	webFailed := false
	if e.web != nil && q.AllowWebSearch && overall < threshold && ctx.Err() == nil {
		queried = append(queried, SourceWebSearch)
		var (
			webSrc *SourceResult
			webErr error
		)
		protect(log, string(SourceWebSearch), func() {
			webSrc, webErr = e.webTier(ctx, q, audit, requestID)
		})
		if webErr != nil || webSrc == nil {
			webFailed = true
			if webErr != nil {
				log.Warn("web search failed: %v", webErr)
			}
		} else {
			sources = append(sources, *webSrc)
			overall = e.aggregate(sources)
		}
	}

	ans := &Answer{
		ID:                 uuid.NewString(),
		Question:           q.Text,
		Confidence:         overall,
		Sources:            sources,
		NeedsWebSearch:     overall < threshold && !hasTier(sources, SourceWebSearch),
		RecommendedActions: confidence.Actions(confidence.BandFor(overall)),
		Metadata: Metadata{
			TiersQueried: queried,
			Timestamp:    time.Now().UTC(),
		},
	}
	ans.Text = synthesize(sources, overall, webFailed)
	ans.Metadata.TotalDurationMs = time.Since(start).Milliseconds()

	// A partial answer cut short by the deadline is worth returning
	// but not worth remembering.
	if e.cache != nil && ctx.Err() == nil {
		e.cache.Put(q, ans)
	}

	audit.QuestionComplete(requestID, overall, ans.Metadata.TotalDurationMs, false)
	return ans, nil
}

func (e *Engine) fileTier(ctx context.Context, root string, terms keywords.QueryTerms, audit *logging.AuditLogger, requestID string) *SourceResult {
	res := e.files.Search(ctx, root, terms)
	src := &SourceResult{
		Source:     SourceProjectFiles,
		Confidence: res.Confidence,
		Summary:    res.Summary,
		DurationMs: res.Duration.Milliseconds(),
	}
	for _, m := range res.Matches {
		src.Evidence = append(src.Evidence, Evidence{
			Locator:   m.Path,
			Relevance: m.Score,
			Snippet:   m.Snippet,
		})
	}
	audit.TierComplete(requestID, string(src.Source), src.Confidence, src.DurationMs, len(src.Evidence))
	return src
}

func (e *Engine) graphTier(ctx context.Context, terms keywords.QueryTerms, audit *logging.AuditLogger, requestID string, log *logging.RequestLogger) *SourceResult {
	start := time.Now()
	related, err := e.graph.Related(ctx, terms.All(), graphLimit)
	if err != nil {
		log.Warn("decision graph query failed: %v", err)
		audit.TierError(requestID, string(SourceKnowledgeGraph), err)
		return nil
	}
	src := &SourceResult{
		Source:     SourceKnowledgeGraph,
		Summary:    graphSummary(related),
		DurationMs: time.Since(start).Milliseconds(),
	}
	for _, r := range related {
		if r.Score > src.Confidence {
			src.Confidence = r.Score
		}
		src.Evidence = append(src.Evidence, Evidence{
			Locator:   r.Title,
			Relevance: r.Score,
			Snippet:   r.Snippet,
		})
	}
	audit.TierComplete(requestID, string(src.Source), src.Confidence, src.DurationMs, len(src.Evidence))
	return src
}

func graphSummary(related []graph.Related) string {
	switch len(related) {
	case 0:
		return "No recorded decisions relate to this question."
	case 1:
		return fmt.Sprintf("1 recorded decision relates to this question: %q.", related[0].Title)
	default:
		return fmt.Sprintf("%d recorded decisions relate to this question; strongest: %q.", len(related), related[0].Title)
	}
}

func (e *Engine) envTier(ctx context.Context, question string, audit *logging.AuditLogger, requestID string) *SourceResult {
	res := e.env.Query(ctx, question)
	if res == nil {
		return nil
	}
	src := &SourceResult{
		Source:     SourceEnvironment,
		Confidence: res.Confidence,
		Summary:    res.Summary,
		DurationMs: res.Duration.Milliseconds(),
	}
	for _, rep := range res.Reports {
		src.Evidence = append(src.Evidence, Evidence{
			Locator:   rep.Capability,
			Relevance: rep.Confidence,
			Snippet:   rep.Summary,
		})
	}
	audit.TierComplete(requestID, string(src.Source), src.Confidence, src.DurationMs, len(src.Evidence))
	return src
}

func (e *Engine) webTier(ctx context.Context, q Question, audit *logging.AuditLogger, requestID string) (*SourceResult, error) {
	start := time.Now()
	results, err := e.web.Search(ctx, q.Normalized())
	if err != nil {
		audit.TierError(requestID, string(SourceWebSearch), err)
		return nil, err
	}
	conf := websearch.Confidence(len(results))
	src := &SourceResult{
		Source:     SourceWebSearch,
		Confidence: conf,
		Summary:    webSummary(results),
		DurationMs: time.Since(start).Milliseconds(),
	}
	for _, r := range results {
		snip := r.Snippet
		if snip == "" {
			snip = r.Title
		}
		src.Evidence = append(src.Evidence, Evidence{
			Locator:   r.URL,
			Relevance: conf,
			Snippet:   snip,
		})
	}
	audit.TierComplete(requestID, string(src.Source), src.Confidence, src.DurationMs, len(src.Evidence))
	return src, nil
}

func webSummary(results []websearch.Result) string {
	switch len(results) {
	case 0:
		return "Web search returned no results."
	case 1:
		return fmt.Sprintf("Web search returned 1 result: %q.", results[0].Title)
	default:
		return fmt.Sprintf("Web search returned %d results; top: %q.", len(results), results[0].Title)
	}
}

func (e *Engine) aggregate(sources []SourceResult) float64 {
	scored := make([]confidence.Scored, 0, len(sources))
	for _, s := range sources {
		scored = append(scored, confidence.Scored{Tier: string(s.Source), Confidence: s.Confidence})
	}
	return confidence.Aggregate(scored, e.weights)
}

func hasTier(sources []SourceResult, t SourceType) bool {
	for _, s := range sources {
		if s.Source == t {
			return true
		}
	}
	return false
}

// protect runs one tier body, converting a panic into an absent tier.
// A tier that blows up must degrade the answer, not kill the process.
func protect(log *logging.RequestLogger, tier string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("%s tier panicked: %v", tier, r)
		}
	}()
	fn()
}

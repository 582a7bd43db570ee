// Package research implements the cascading research engine. A
// question about a project is answered by consulting evidence tiers in
// fixed order - project files, the recorded decision graph, the live
// environment, and finally the web - stopping as soon as the running
// confidence clears the caller's threshold.
package research

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyQuestion is the only hard failure Answer returns: a question
// with no text. Everything else degrades into a lower-confidence
// answer.
var ErrEmptyQuestion = errors.New("research: question text is empty")

// SourceType identifies an evidence tier.
type SourceType string

const (
	SourceProjectFiles   SourceType = "project-files"
	SourceKnowledgeGraph SourceType = "knowledge-graph"
	SourceEnvironment    SourceType = "environment"
	SourceWebSearch      SourceType = "web-search"
)

// DefaultThreshold is the confidence the cascade tries to clear when
// the caller does not supply one.
const DefaultThreshold = 0.6

// Question is one research request.
type Question struct {
	// Text is the natural-language question. Required.
	Text string `json:"text"`

	// ProjectRoot is the directory the question is about.
	ProjectRoot string `json:"projectRoot"`

	// Threshold is the confidence to clear before stopping the
	// cascade. Zero means DefaultThreshold; out-of-range values are
	// clamped.
	Threshold float64 `json:"threshold,omitempty"`

	// AllowWebSearch authorizes the engine to call the web search
	// adapter when local tiers fall short. The zero value is false:
	// the engine never reaches the network unless told to.
	AllowWebSearch bool `json:"allowWebSearch"`
}

// Normalized returns the question text trimmed with internal
// whitespace collapsed. Display keeps the original casing; the cache
// key lowercases on top of this.
func (q Question) Normalized() string {
	return strings.Join(strings.Fields(q.Text), " ")
}

// EffectiveThreshold resolves the threshold: zero selects the default,
// anything outside [0,1] is clamped.
func (q Question) EffectiveThreshold() float64 {
	t := q.Threshold
	if t == 0 {
		return DefaultThreshold
	}
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// CacheKey derives the answer cache key. Two questions share an entry
// exactly when normalized text, project root, and threshold all match.
func (q Question) CacheKey() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%.4f", strings.ToLower(q.Normalized()), q.ProjectRoot, q.EffectiveThreshold())
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Validate reports whether the question can be answered at all.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return ErrEmptyQuestion
	}
	return nil
}

// Evidence is one piece of supporting material inside a tier result.
type Evidence struct {
	// Locator points at the evidence: a file path, a decision title,
	// a capability name, or a URL.
	Locator string `json:"locator"`

	// Relevance is how strongly this item supports the answer, 0-1.
	Relevance float64 `json:"relevance"`

	// Snippet is a short, single-line excerpt. May be empty.
	Snippet string `json:"snippet,omitempty"`
}

// SourceResult is the normalized outcome of querying one tier.
// Evidence may be empty only when Confidence is zero.
type SourceResult struct {
	Source     SourceType `json:"sourceType"`
	Confidence float64    `json:"confidence"`
	Summary    string     `json:"summary"`
	Evidence   []Evidence `json:"evidence"`
	DurationMs int64      `json:"durationMs"`
}

// Metadata describes how an answer was produced.
type Metadata struct {
	TotalDurationMs int64        `json:"totalDurationMs"`
	TiersQueried    []SourceType `json:"tiersQueried"`
	CacheHit        bool         `json:"cacheHit"`
	Timestamp       time.Time    `json:"timestamp"`
}

// Answer is the engine's response to one question.
type Answer struct {
	ID       string `json:"id"`
	Question string `json:"question"`

	// Text is the synthesized answer, markdown-formatted.
	Text string `json:"answerText"`

	// Confidence is the aggregated overall confidence, 0-1.
	Confidence float64 `json:"overallConfidence"`

	// Sources holds one result per queried tier, in cascade order.
	Sources []SourceResult `json:"sources"`

	// NeedsWebSearch is true when confidence fell short of the
	// threshold and no web tier was consulted.
	NeedsWebSearch bool `json:"needsWebSearch"`

	RecommendedActions []string `json:"recommendedActions"`

	Metadata Metadata `json:"metadata"`
}

// Clone returns a deep copy. The cache hands out clones so stored
// answers stay immutable no matter what callers do with theirs.
func (a *Answer) Clone() *Answer {
	if a == nil {
		return nil
	}
	out := *a

	out.Sources = make([]SourceResult, len(a.Sources))
	for i, sr := range a.Sources {
		out.Sources[i] = sr
		out.Sources[i].Evidence = append([]Evidence(nil), sr.Evidence...)
	}
	out.RecommendedActions = append([]string(nil), a.RecommendedActions...)
	out.Metadata.TiersQueried = append([]SourceType(nil), a.Metadata.TiersQueried...)

	return &out
}

// TierResult returns the result for one tier, or nil if that tier was
// not queried.
func (a *Answer) TierResult(src SourceType) *SourceResult {
	for i := range a.Sources {
		if a.Sources[i].Source == src {
			return &a.Sources[i]
		}
	}
	return nil
}

package research

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionNormalized(t *testing.T) {
	q := Question{Text: "  What   orchestrator\tare we\n using?  "}
	assert.Equal(t, "What orchestrator are we using?", q.Normalized())
}

func TestQuestionEffectiveThreshold(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, DefaultThreshold},
		{0.75, 0.75},
		{0.6, 0.6},
		{-0.5, 0},
		{1.5, 1},
	}
	for _, tt := range tests {
		q := Question{Text: "x", Threshold: tt.in}
		assert.Equal(t, tt.want, q.EffectiveThreshold(), "threshold %v", tt.in)
	}
}

func TestQuestionCacheKey(t *testing.T) {
	base := Question{Text: "What database do we use?", ProjectRoot: "/srv/app"}

	same := Question{Text: "  what   DATABASE do we use?  ", ProjectRoot: "/srv/app"}
	assert.Equal(t, base.CacheKey(), same.CacheKey(), "case and whitespace do not change identity")

	otherRoot := base
	otherRoot.ProjectRoot = "/srv/other"
	assert.NotEqual(t, base.CacheKey(), otherRoot.CacheKey())

	otherThreshold := base
	otherThreshold.Threshold = 0.9
	assert.NotEqual(t, base.CacheKey(), otherThreshold.CacheKey())

	// Zero threshold and an explicit default are the same question.
	explicit := base
	explicit.Threshold = DefaultThreshold
	assert.Equal(t, base.CacheKey(), explicit.CacheKey())

	assert.Len(t, base.CacheKey(), 16)
}

func TestQuestionValidate(t *testing.T) {
	assert.ErrorIs(t, Question{}.Validate(), ErrEmptyQuestion)
	assert.ErrorIs(t, Question{Text: "   \t "}.Validate(), ErrEmptyQuestion)
	assert.NoError(t, Question{Text: "what runs here"}.Validate())
}

func TestAnswerCloneIsDeep(t *testing.T) {
	orig := &Answer{
		ID:   "a-1",
		Text: "original",
		Sources: []SourceResult{
			{
				Source:   SourceProjectFiles,
				Summary:  "files",
				Evidence: []Evidence{{Locator: "go.mod", Relevance: 0.8}},
			},
		},
		RecommendedActions: []string{"Proceed."},
		Metadata:           Metadata{TiersQueried: []SourceType{SourceProjectFiles}},
	}

	clone := orig.Clone()
	clone.Text = "mutated"
	clone.Sources[0].Evidence[0].Locator = "mutated"
	clone.RecommendedActions[0] = "mutated"
	clone.Metadata.TiersQueried[0] = SourceWebSearch

	assert.Equal(t, "original", orig.Text)
	assert.Equal(t, "go.mod", orig.Sources[0].Evidence[0].Locator)
	assert.Equal(t, "Proceed.", orig.RecommendedActions[0])
	assert.Equal(t, SourceProjectFiles, orig.Metadata.TiersQueried[0])
}

func TestAnswerCloneNil(t *testing.T) {
	var a *Answer
	assert.Nil(t, a.Clone())
}

func TestAnswerTierResult(t *testing.T) {
	a := &Answer{Sources: []SourceResult{
		{Source: SourceProjectFiles, Confidence: 0.8},
		{Source: SourceEnvironment, Confidence: 0.9},
	}}

	env := a.TierResult(SourceEnvironment)
	require.NotNil(t, env)
	assert.Equal(t, 0.9, env.Confidence)
	assert.Nil(t, a.TierResult(SourceWebSearch))
}

func TestAnswerJSONFieldNames(t *testing.T) {
	a := &Answer{ID: "a-1", Question: "q", Text: "t", Confidence: 0.5}
	raw, err := json.Marshal(a)
	require.NoError(t, err)

	for _, key := range []string{`"answerText"`, `"overallConfidence"`, `"needsWebSearch"`, `"recommendedActions"`, `"tiersQueried"`, `"cacheHit"`} {
		assert.Contains(t, string(raw), key)
	}
}

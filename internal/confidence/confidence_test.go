package confidence

import (
	"math"
	"reflect"
	"testing"
)

func TestAggregateWeightedMaximum(t *testing.T) {
	w := DefaultWeights()

	tests := []struct {
		name   string
		scores []Scored
		want   float64
	}{
		{
			name:   "no tiers",
			scores: nil,
			want:   0,
		},
		{
			name: "single strong tier",
			scores: []Scored{
				{Tier: "project-files", Confidence: 0.8},
			},
			want: 0.8 * 0.95,
		},
		{
			name: "strong tier not diluted by weak ones",
			scores: []Scored{
				{Tier: "project-files", Confidence: 0.9},
				{Tier: "knowledge-graph", Confidence: 0.1},
				{Tier: "web-search", Confidence: 0.1},
			},
			want: 0.9 * 0.95,
		},
		{
			name: "web tier weighted lowest",
			scores: []Scored{
				{Tier: "web-search", Confidence: 1.0},
			},
			want: 0.50,
		},
		{
			name: "all zero tiers aggregate to zero",
			scores: []Scored{
				{Tier: "project-files", Confidence: 0},
				{Tier: "knowledge-graph", Confidence: 0},
				{Tier: "environment", Confidence: 0},
			},
			want: 0,
		},
		{
			name: "out of range confidence clamped",
			scores: []Scored{
				{Tier: "environment", Confidence: 3.0},
			},
			want: 0.95,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.scores, w)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Aggregate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregateNotAnAverage(t *testing.T) {
	w := DefaultWeights()
	scores := []Scored{
		{Tier: "project-files", Confidence: 0.9},
		{Tier: "web-search", Confidence: 0.1},
	}

	got := Aggregate(scores, w)
	avg := (0.9*0.95 + 0.1*0.50) / 2

	if got <= avg {
		t.Fatalf("Aggregate() = %v, expected weighted max above mean %v", got, avg)
	}
}

func TestAggregateMonotonic(t *testing.T) {
	w := DefaultWeights()
	base := []Scored{{Tier: "knowledge-graph", Confidence: 0.5}}

	before := Aggregate(base, w)
	after := Aggregate(append(base, Scored{Tier: "environment", Confidence: 0.7}), w)

	if after < before {
		t.Fatalf("adding a tier lowered the aggregate: %v -> %v", before, after)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	w := DefaultWeights()
	scores := []Scored{
		{Tier: "project-files", Confidence: 0.61},
		{Tier: "environment", Confidence: 0.72},
		{Tier: "web-search", Confidence: 0.33},
	}

	first := Aggregate(scores, w)
	for i := 0; i < 100; i++ {
		if got := Aggregate(scores, w); got != first {
			t.Fatalf("run %d: Aggregate() = %v, want %v", i, got, first)
		}
	}
}

func TestAggregateUnknownTierGetsDefaultWeight(t *testing.T) {
	got := Aggregate([]Scored{{Tier: "carrier-pigeon", Confidence: 1.0}}, DefaultWeights())
	if got != defaultWeight {
		t.Fatalf("Aggregate() = %v, want %v", got, defaultWeight)
	}

	// Nil weights degrade the same way rather than panicking.
	got = Aggregate([]Scored{{Tier: "project-files", Confidence: 1.0}}, nil)
	if got != defaultWeight {
		t.Fatalf("Aggregate() with nil weights = %v, want %v", got, defaultWeight)
	}
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Band
	}{
		{0.95, BandProceed},
		{0.80, BandProceed},
		{0.79, BandValidate},
		{0.60, BandValidate},
		{0.59, BandResearch},
		{0.0, BandResearch},
	}

	for _, tt := range tests {
		if got := BandFor(tt.score); got != tt.want {
			t.Errorf("BandFor(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.9, "high"},
		{0.8, "high"},
		{0.7, "medium"},
		{0.6, "medium"},
		{0.3, "low"},
	}

	for _, tt := range tests {
		if got := Level(tt.score); got != tt.want {
			t.Errorf("Level(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestActions(t *testing.T) {
	if got := Actions(BandProceed); len(got) != 1 {
		t.Errorf("Actions(proceed) = %v, want single action", got)
	}
	if got := Actions(BandValidate); len(got) != 1 {
		t.Errorf("Actions(validate) = %v, want single action", got)
	}

	got := Actions(BandResearch)
	want := []string{
		"Perform additional research before acting on this answer.",
		"Run a web search to close the confidence gap.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Actions(research) = %#v, want %#v", got, want)
	}
}

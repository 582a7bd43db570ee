package research

import (
	"fmt"
	"sort"
	"strings"

	"scout/internal/confidence"
	"scout/internal/keywords"
)

// maxEvidenceLines caps the evidence bullets rendered per tier. The
// full list always travels in Answer.Sources.
const maxEvidenceLines = 3

// synthesize renders the final answer text as markdown: a headline
// drawn from the strongest tier, a per-tier evidence breakdown, and a
// closing confidence line. Low-confidence answers keep every tier's
// summary visible so the reader can see why each one fell short.
func synthesize(sources []SourceResult, overall float64, webFailed bool) string {
	ordered := orderByConfidence(sources)

	var b strings.Builder
	b.WriteString("**Answer:** ")
	b.WriteString(headline(ordered))
	b.WriteString("\n")

	if extra := supporting(ordered); len(extra) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(extra, " "))
		b.WriteString("\n")
	}

	if len(ordered) > 0 {
		b.WriteString("\n**Evidence:**\n\n")
		for _, s := range ordered {
			fmt.Fprintf(&b, "- **%s** (%.2f): %s\n", s.Source, s.Confidence, s.Summary)
			for i, ev := range s.Evidence {
				if i == maxEvidenceLines {
					fmt.Fprintf(&b, "    - and %d more\n", len(s.Evidence)-maxEvidenceLines)
					break
				}
				if ev.Snippet != "" {
					fmt.Fprintf(&b, "    - %s: %s\n", ev.Locator, ev.Snippet)
				} else {
					fmt.Fprintf(&b, "    - %s\n", ev.Locator)
				}
			}
		}
	}

	if note := disagreement(ordered); note != "" {
		b.WriteString("\n")
		b.WriteString(note)
		b.WriteString("\n")
	}

	if webFailed {
		b.WriteString("\nWeb search was authorized but unavailable; confidence reflects local evidence only.\n")
	}

	fmt.Fprintf(&b, "\n**Confidence:** %s (%.2f)\n", confidence.Level(overall), overall)
	return b.String()
}

func orderByConfidence(sources []SourceResult) []SourceResult {
	out := make([]SourceResult, len(sources))
	copy(out, sources)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

func headline(ordered []SourceResult) string {
	if len(ordered) == 0 {
		return "No research tiers were available to answer this question."
	}
	best := ordered[0]
	if best.Confidence > 0 && best.Summary != "" {
		return best.Summary
	}
	return "No evidence was found in any tier."
}

// supporting picks up to two further tier summaries that add
// information beyond the headline. Identical sentences from different
// tiers collapse to one.
func supporting(ordered []SourceResult) []string {
	if len(ordered) < 2 {
		return nil
	}
	seen := make(map[string]bool, len(ordered))
	if ordered[0].Summary != "" {
		seen[strings.ToLower(ordered[0].Summary)] = true
	}
	var out []string
	for _, s := range ordered[1:] {
		if s.Confidence <= 0 || s.Summary == "" {
			continue
		}
		key := strings.ToLower(s.Summary)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s.Summary)
		if len(out) == 2 {
			break
		}
	}
	return out
}

// disagreement flags two evidence tiers naming entirely different
// technologies for the same question, which usually means a recorded
// decision and the live environment have drifted apart.
func disagreement(ordered []SourceResult) string {
	type named struct {
		source SourceType
		techs  []string
	}
	var withTech []named
	for _, s := range ordered {
		if s.Confidence <= 0 {
			continue
		}
		if techs := keywords.Technologies(s.Summary); len(techs) > 0 {
			withTech = append(withTech, named{s.Source, techs})
		}
	}
	if len(withTech) < 2 {
		return ""
	}
	first := withTech[0]
	for _, other := range withTech[1:] {
		if !overlap(first.techs, other.techs) {
			return fmt.Sprintf("**Note:** evidence tiers disagree: %s mentions %s while %s mentions %s. Validate before acting.",
				first.source, strings.Join(first.techs, ", "),
				other.source, strings.Join(other.techs, ", "))
		}
	}
	return ""
}

func overlap(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if set[s] {
			return true
		}
	}
	return false
}

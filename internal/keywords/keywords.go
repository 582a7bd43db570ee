// Package keywords is the shared lexical layer for question analysis.
// It tokenizes natural-language questions, filters stopwords, and
// expands abstract infrastructure vocabulary ("orchestrator",
// "container platform") into the concrete technology tokens that
// actually appear in project files and tool output.
//
// Relevance everywhere in the engine is lexical. This package is the
// single place that vocabulary lives so the file searcher, the
// capability router, and the graph adapter all agree on what a
// question is about.
package keywords

import (
	"strings"
	"unicode"
)

// Term weights. Verbatim question tokens and mentioned file names are
// trusted fully; lexicon expansions are weaker evidence because the
// asker never typed them.
const (
	WeightPrimary  = 1.0
	WeightFile     = 1.0
	WeightExpanded = 0.7
)

// QueryTerms carries the weighted vocabulary extracted from one question.
type QueryTerms struct {
	// Primary tokens appear verbatim in the question.
	Primary []string

	// Expanded tokens come from the domain lexicon.
	Expanded []string

	// Files are tokens that look like file names (contain a dot).
	Files []string

	// Weights maps every term above to its match weight.
	Weights map[string]float64
}

// All returns primary followed by expanded terms, deduplicated,
// preserving extraction order. File tokens are already in Primary.
func (t QueryTerms) All() []string {
	out := make([]string, 0, len(t.Primary)+len(t.Expanded))
	seen := make(map[string]bool, len(t.Primary)+len(t.Expanded))
	for _, s := range t.Primary {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range t.Expanded {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Weight returns the match weight for a term, or 0 for unknown terms.
func (t QueryTerms) Weight(term string) float64 {
	return t.Weights[term]
}

// Analyze extracts weighted terms from a question. The result is
// deterministic: the same text always yields the same terms in the
// same order.
func Analyze(text string) QueryTerms {
	terms := QueryTerms{Weights: make(map[string]float64)}

	for _, tok := range Extract(text) {
		terms.Primary = append(terms.Primary, tok)
		terms.Weights[tok] = WeightPrimary
		if strings.Contains(tok, ".") {
			terms.Files = append(terms.Files, tok)
			terms.Weights[tok] = WeightFile
			// Index the stem too so "config.yaml" still matches a
			// directory named config.
			stem := tok[:strings.Index(tok, ".")]
			if len(stem) >= 2 && terms.Weights[stem] == 0 {
				terms.Primary = append(terms.Primary, stem)
				terms.Weights[stem] = WeightPrimary
			}
		}
	}

	for _, tok := range terms.Primary {
		for _, exp := range expansions[tok] {
			if terms.Weights[exp] != 0 {
				continue
			}
			terms.Expanded = append(terms.Expanded, exp)
			terms.Weights[exp] = WeightExpanded
		}
	}

	return terms
}

// Extract tokenizes text into lowercase keywords: stopwords dropped,
// duplicates removed, original order preserved. Dots survive inside
// tokens so file names stay whole.
func Extract(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' && r != '.'
	})

	out := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-_.")
		if len(f) < 2 || isStopword(f) || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// Technologies reports which known concrete technology tokens appear
// in text, in canonical lexicon order. Used to detect two evidence
// tiers naming different tools for the same question.
func Technologies(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, tech := range techLexicon {
		if containsToken(lower, tech) {
			found = append(found, tech)
		}
	}
	return found
}

// containsToken matches tech as a whole word, so "docker" does not
// match "dockerize" but does match "docker-compose".
func containsToken(text, tok string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], tok)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(tok)
		beforeOK := start == 0 || !isWordRune(rune(text[start-1]))
		afterOK := end == len(text) || !isWordRune(rune(text[end]))
		if beforeOK && afterOK {
			return true
		}
		idx = end
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isStopword(w string) bool {
	return stopwords[w]
}

// expansions maps abstract infrastructure vocabulary to the concrete
// tokens it implies. Order inside each slice matters: it is the order
// expanded terms surface in, so keep the most common spelling first.
var expansions = map[string][]string{
	"orchestrator":   {"kubernetes", "k8s", "openshift", "deployment", "swarm", "nomad"},
	"orchestration":  {"kubernetes", "k8s", "openshift", "deployment", "swarm", "nomad"},
	"container":      {"docker", "podman", "dockerfile", "compose", "containerd", "image"},
	"containers":     {"docker", "podman", "dockerfile", "compose", "containerd", "image"},
	"containerized":  {"docker", "podman", "dockerfile", "compose"},
	"containerize":   {"docker", "podman", "dockerfile", "compose"},
	"deploy":         {"kubernetes", "helm", "compose", "terraform", "ansible", "deployment"},
	"deployment":     {"kubernetes", "helm", "compose", "terraform", "ansible"},
	"deployments":    {"kubernetes", "helm", "compose", "terraform", "ansible"},
	"provisioning":   {"ansible", "terraform", "playbook"},
	"infrastructure": {"terraform", "kubernetes", "docker", "ansible"},
	"platform":       {"kubernetes", "openshift", "docker"},
	"cluster":        {"kubernetes", "k8s", "node"},
	"automation":     {"ansible", "playbook", "pipeline"},
	"pipeline":       {"jenkins", "workflow", "actions", "gitlab-ci"},
	"ci":             {"jenkins", "workflow", "actions", "pipeline", "gitlab-ci"},
	"database":       {"postgres", "postgresql", "mysql", "sqlite", "mongodb", "redis"},
	"databases":      {"postgres", "postgresql", "mysql", "sqlite", "mongodb", "redis"},
	"caching":        {"redis", "memcached"},
	"messaging":      {"kafka", "rabbitmq", "nats"},
	"queue":          {"kafka", "rabbitmq", "nats"},
	"monitoring":     {"prometheus", "grafana"},
	"secrets":        {"vault"},
	"proxy":          {"nginx", "envoy", "haproxy"},
	"dependencies":   {"go.mod", "package.json", "requirements.txt"},
}

// techLexicon is the canonical ordered list of concrete technology
// tokens the engine can talk about. Technologies scans against this.
var techLexicon = []string{
	"kubernetes", "k8s", "openshift", "docker", "podman", "compose",
	"containerd", "helm", "terraform", "ansible", "swarm", "nomad",
	"jenkins", "kafka", "rabbitmq", "nats", "redis", "memcached",
	"postgres", "postgresql", "mysql", "sqlite", "mongodb",
	"prometheus", "grafana", "nginx", "envoy", "haproxy", "vault",
}

// TechLexicon returns a copy of the canonical technology token list.
func TechLexicon() []string {
	out := make([]string, len(techLexicon))
	copy(out, techLexicon)
	return out
}

// stopwords are words too common to discriminate between files. The
// set skews toward question phrasing (what/which/does) because the
// input is always a natural-language question.
var stopwords = map[string]bool{
	"what": true, "which": true, "where": true, "when": true,
	"how": true, "why": true, "who": true, "whose": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "being": true, "am": true,
	"do": true, "does": true, "did": true, "done": true,
	"have": true, "has": true, "had": true,
	"can": true, "could": true, "should": true, "would": true,
	"will": true, "shall": true, "may": true, "might": true,
	"must": true,
	"the": true, "a": true, "an": true, "any": true, "some": true,
	"all": true, "each": true, "every": true, "no": true, "not": true,
	"this": true, "that": true, "these": true, "those": true,
	"it": true, "its": true, "we": true, "our": true, "ours": true,
	"us": true, "you": true, "your": true, "yours": true,
	"i": true, "my": true, "mine": true, "they": true, "their": true,
	"them": true,
	"in": true, "on": true, "at": true, "of": true, "for": true,
	"to": true, "from": true, "with": true, "without": true,
	"into": true, "onto": true, "over": true, "under": true,
	"between": true, "through": true, "about": true, "per": true,
	"and": true, "or": true, "but": true, "if": true, "then": true,
	"than": true, "so": true, "as": true, "by": true,
	"there": true, "here": true, "also": true, "just": true,
	"only": true, "very": true, "more": true, "most": true,
	"other": true, "such": true, "own": true, "same": true,
	"use": true, "uses": true, "used": true, "using": true,
	"get": true, "got": true, "set": true, "setup": true,
	"currently": true, "current": true, "right": true, "now": true,
	"project": true, "repo": true, "repository": true,
	"codebase": true, "tell": true, "me": true, "please": true,
}

// Package filescan is the cheapest evidence tier: it walks a project
// tree and scores files lexically against the question vocabulary.
// Relevance comes from three signals - path/name token overlap,
// keyword hits in content, and a fixed boost for high-signal file
// classes (infrastructure manifests, dependency manifests, decision
// records). No parsing, no semantics.
package filescan

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"scout/internal/keywords"
	"scout/internal/logging"
)

// Config controls one searcher instance.
type Config struct {
	// MaxResults caps the matches returned (strongest first).
	MaxResults int

	// MaxDepth bounds directory nesting below the root.
	MaxDepth int

	// MaxFiles caps how many files a single search will consider.
	MaxFiles int

	// ContentScanBytes caps how much of each file is read.
	ContentScanBytes int

	// TimeBudget bounds the whole search. On expiry the searcher
	// returns whatever it has, flagged partial, with a confidence
	// penalty.
	TimeBudget time.Duration

	// IgnoreDirs are directory names never descended into.
	IgnoreDirs []string

	// Workers bounds concurrent content scans.
	Workers int
}

// DefaultConfig returns the stock searcher configuration.
func DefaultConfig() Config {
	return Config{
		MaxResults:       12,
		MaxDepth:         12,
		MaxFiles:         20000,
		ContentScanBytes: 64 * 1024,
		TimeBudget:       2 * time.Second,
		IgnoreDirs: []string{
			"node_modules", "vendor", "dist", "build", "target",
			"__pycache__", ".venv", "coverage", "bin", "obj",
		},
		Workers: 8,
	}
}

// partialPenalty scales confidence down when the time budget expired
// before the walk finished.
const partialPenalty = 0.8

// hiddenAllow lists hidden directories that are still worth scanning.
// Everything else starting with a dot is skipped.
var hiddenAllow = map[string]bool{
	".github": true,
}

// Match is one scored file.
type Match struct {
	// Path is relative to the searched root.
	Path string

	// Score is the file's relevance in [0,1].
	Score float64

	// Snippet is the first content line that matched, trimmed.
	Snippet string

	// Class is the high-signal class, empty for ordinary files.
	Class string

	// NameHit reports whether the path itself matched a term.
	NameHit bool

	// ContentHits counts keyword occurrences in the scanned prefix.
	ContentHits int
}

// Result is the outcome of one search.
type Result struct {
	Matches    []Match
	Confidence float64
	Summary    string

	// Truncated is set when the time budget or file cap cut the scan
	// short; Confidence already carries the penalty.
	Truncated bool

	FilesScanned int
	SkippedDirs  int
	Duration     time.Duration
}

// Searcher scans project trees. Safe for concurrent use.
type Searcher struct {
	cfg    Config
	ignore map[string]bool
}

// NewSearcher builds a searcher from config, filling zero fields with
// defaults.
func NewSearcher(cfg Config) *Searcher {
	def := DefaultConfig()
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = def.MaxFiles
	}
	if cfg.ContentScanBytes <= 0 {
		cfg.ContentScanBytes = def.ContentScanBytes
	}
	if cfg.TimeBudget <= 0 {
		cfg.TimeBudget = def.TimeBudget
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.IgnoreDirs == nil {
		cfg.IgnoreDirs = def.IgnoreDirs
	}

	ignore := make(map[string]bool, len(cfg.IgnoreDirs))
	for _, d := range cfg.IgnoreDirs {
		ignore[d] = true
	}
	return &Searcher{cfg: cfg, ignore: ignore}
}

// Search walks root and scores every readable file against terms.
// It never fails: a missing root, unreadable entries, or an expired
// budget all degrade the result instead of erroring.
func (s *Searcher) Search(ctx context.Context, root string, terms keywords.QueryTerms) *Result {
	start := time.Now()
	res := &Result{}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		logging.FilescanWarn("project root unusable: %s (%v)", root, err)
		res.Summary = fmt.Sprintf("Project root %s does not exist or is not a directory; no file evidence available.", root)
		res.Duration = time.Since(start)
		return res
	}

	if len(terms.All()) == 0 {
		res.Summary = "The question yielded no searchable keywords; no file evidence available."
		res.Duration = time.Since(start)
		return res
	}

	budget, cancel := context.WithTimeout(ctx, s.cfg.TimeBudget)
	defer cancel()

	candidates, truncated, skippedDirs := s.collect(budget, root)
	res.SkippedDirs = skippedDirs
	res.Truncated = truncated

	matches, scanned, scanTruncated := s.scoreAll(budget, root, candidates, terms)
	res.FilesScanned = scanned
	res.Truncated = res.Truncated || scanTruncated

	// Strongest first; ties broken by path so output is stable.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Path < matches[j].Path
	})
	if len(matches) > s.cfg.MaxResults {
		matches = matches[:s.cfg.MaxResults]
	}
	res.Matches = matches

	res.Confidence = s.confidence(matches, res.Truncated)
	res.Summary = s.summarize(root, res)
	res.Duration = time.Since(start)

	logging.FilescanDebug("search done: root=%s files=%d matches=%d confidence=%.2f truncated=%v in %v",
		root, scanned, len(matches), res.Confidence, res.Truncated, res.Duration)

	return res
}

// collect walks the tree and returns candidate files (relative paths).
func (s *Searcher) collect(ctx context.Context, root string) (files []string, truncated bool, skippedDirs int) {
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			truncated = true
			return filepath.SkipAll
		default:
		}

		if err != nil {
			skippedDirs++
			logging.FilescanDebug("skipping unreadable entry: %s (%v)", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}

		if d.IsDir() {
			name := d.Name()
			if s.ignore[name] {
				return filepath.SkipDir
			}
			if strings.HasPrefix(name, ".") && !hiddenAllow[name] {
				return filepath.SkipDir
			}
			if strings.Count(rel, string(os.PathSeparator)) >= s.cfg.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		base := strings.ToLower(d.Name())
		if strings.HasPrefix(base, ".") && base != ".gitlab-ci.yml" {
			return nil
		}
		if binaryExts[filepath.Ext(base)] {
			return nil
		}

		files = append(files, rel)
		if len(files) >= s.cfg.MaxFiles {
			truncated = true
			return filepath.SkipAll
		}
		return nil
	})
	if walkErr != nil {
		logging.FilescanWarn("walk aborted: %v", walkErr)
	}
	return files, truncated, skippedDirs
}

// scoreAll scans candidates concurrently under a worker cap.
func (s *Searcher) scoreAll(ctx context.Context, root string, candidates []string, terms keywords.QueryTerms) ([]Match, int, bool) {
	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		matches   []Match
		scanned   int
		truncated bool
	)

	sem := make(chan struct{}, s.cfg.Workers)
	for _, rel := range candidates {
		select {
		case <-ctx.Done():
			truncated = true
		default:
		}
		if truncated {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(rel string) {
			defer wg.Done()
			defer func() { <-sem }()

			m, ok := s.scoreFile(root, rel, terms)
			mu.Lock()
			scanned++
			if ok {
				matches = append(matches, m)
			}
			mu.Unlock()
		}(rel)
	}
	wg.Wait()

	return matches, scanned, truncated
}

// scoreFile computes one file's relevance. The bool is false when the
// file did not match at all (or was binary/unreadable).
func (s *Searcher) scoreFile(root, rel string, terms keywords.QueryTerms) (Match, bool) {
	pathLower := strings.ToLower(filepath.ToSlash(rel))
	baseLower := strings.ToLower(filepath.Base(rel))

	exact := false
	for _, f := range terms.Files {
		if baseLower == f {
			exact = true
			break
		}
	}

	nameCount := 0
	maxNameWeight := 0.0
	for _, term := range terms.All() {
		if strings.Contains(pathLower, term) {
			nameCount++
			if w := terms.Weight(term); w > maxNameWeight {
				maxNameWeight = w
			}
		}
	}

	var (
		weightedHits float64
		rawHits      int
		snippet      string
	)
	if !lockfileBases[baseLower] {
		weightedHits, rawHits, snippet = s.scanContent(filepath.Join(root, rel), terms)
		if weightedHits < 0 {
			// Binary or unreadable: not evidence.
			return Match{}, false
		}
	}

	if !exact && nameCount == 0 && rawHits == 0 {
		return Match{}, false
	}

	nameScore := 0.0
	switch {
	case exact:
		nameScore = 0.75
	case nameCount > 0:
		nameScore = 0.55 * maxNameWeight
		if nameCount > 1 {
			nameScore += 0.10
		}
	}

	// Saturating content score: more hits help, with diminishing
	// returns past a handful.
	contentScore := 0.35 * (weightedHits / (weightedHits + 2.0))

	class, boost := classify(rel)

	m := Match{
		Path:        rel,
		Score:       clamp(nameScore + contentScore + boost),
		Snippet:     snippet,
		Class:       class,
		NameHit:     exact || nameCount > 0,
		ContentHits: rawHits,
	}
	return m, true
}

// scanContent reads the file prefix and counts term hits. Returns
// -1 weighted hits for binary or unreadable files.
func (s *Searcher) scanContent(path string, terms keywords.QueryTerms) (weighted float64, raw int, snippet string) {
	f, err := os.Open(path)
	if err != nil {
		logging.FilescanDebug("unreadable file: %s (%v)", path, err)
		return -1, 0, ""
	}
	defer f.Close()

	buf := make([]byte, s.cfg.ContentScanBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return -1, 0, ""
	}
	buf = buf[:n]
	if n == 0 {
		return 0, 0, ""
	}

	sniff := n
	if sniff > 512 {
		sniff = 512
	}
	if bytes.IndexByte(buf[:sniff], 0) >= 0 {
		return -1, 0, ""
	}

	content := strings.ToLower(string(buf))
	all := terms.All()

	for _, term := range all {
		count := strings.Count(content, term)
		if count == 0 {
			continue
		}
		raw += count
		if count > 5 {
			count = 5
		}
		weighted += terms.Weight(term) * float64(count)
	}

	if raw > 0 {
		snippet = firstMatchingLine(content, all)
	}
	return weighted, raw, snippet
}

// firstMatchingLine returns the first line containing any term,
// trimmed and capped for evidence display.
func firstMatchingLine(content string, terms []string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		for _, term := range terms {
			if strings.Contains(trimmed, term) {
				if len(trimmed) > 160 {
					trimmed = trimmed[:157] + "..."
				}
				return trimmed
			}
		}
	}
	return ""
}

// confidence folds the ranked matches into one tier confidence:
// the best score, lifted a little for corroborating matches, with the
// partial-scan penalty applied last.
func (s *Searcher) confidence(matches []Match, truncated bool) float64 {
	if len(matches) == 0 {
		return 0
	}

	extra := len(matches) - 1
	if extra > 3 {
		extra = 3
	}
	conf := clamp(matches[0].Score * (1.0 + 0.1*float64(extra)))

	if truncated {
		conf *= partialPenalty
	}
	return clamp(conf)
}

func (s *Searcher) summarize(root string, res *Result) string {
	if len(res.Matches) == 0 {
		return fmt.Sprintf("No files under %s matched the question (%d scanned).", root, res.FilesScanned)
	}

	top := res.Matches
	if len(top) > 3 {
		top = top[:3]
	}
	names := make([]string, len(top))
	for i, m := range top {
		names[i] = m.Path
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d relevant files found; strongest evidence: %s.", len(res.Matches), strings.Join(names, ", "))

	for _, m := range res.Matches {
		if m.Class == ClassIaCManifest {
			b.WriteString(" Infrastructure manifests are among the matches.")
			break
		}
	}
	if res.Truncated {
		b.WriteString(" The scan stopped at its time budget; results are partial.")
	}
	return b.String()
}

func clamp(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Package graph stores recorded decisions and the links between them.
// It is the institutional-memory tier: answers here come from what the
// team wrote down, at the confidence they wrote it down with.
//
// The store is SQLite (pure Go driver), two tables: decision nodes and
// weighted directed links. Matching is lexical against title and body,
// with one hop of link traversal to surface connected decisions.
package graph

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"scout/internal/logging"
)

// Decision is one recorded decision node.
type Decision struct {
	ID         string
	Title      string
	Body       string
	Confidence float64
	CreatedAt  time.Time
}

// Related is one graph hit for a set of query terms. Score folds the
// stored confidence together with how the node was reached: a term in
// the title outranks a body-only hit, which outranks a link neighbor.
type Related struct {
	NodeID           string
	Title            string
	Relation         string
	StoredConfidence float64
	Score            float64
	Snippet          string
}

// Match strengths by how a node was reached.
const (
	strengthTitle    = 1.0
	strengthBody     = 0.7
	strengthNeighbor = 0.6
)

// defaultConfidence is assigned to decisions recorded without one.
const defaultConfidence = 0.7

const schema = `
CREATE TABLE IF NOT EXISTS decision_nodes (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	body TEXT NOT NULL DEFAULT '',
	confidence REAL NOT NULL DEFAULT 0.7,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_decision_title ON decision_nodes(title);

CREATE TABLE IF NOT EXISTS decision_links (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	node_a TEXT NOT NULL,
	relation TEXT NOT NULL,
	node_b TEXT NOT NULL,
	weight REAL NOT NULL DEFAULT 1.0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(node_a, relation, node_b)
);
CREATE INDEX IF NOT EXISTS idx_links_a ON decision_links(node_a);
CREATE INDEX IF NOT EXISTS idx_links_b ON decision_links(node_b);
`

// Store is the SQLite-backed decision graph.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewStore opens (or creates) the graph database at path.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create graph directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph database: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.GraphDebug("graph store open: %s", path)
	return s, nil
}

func (s *Store) initialize() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create graph schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// AddDecision records a decision node and returns its id. A missing
// id gets a fresh one; a missing confidence gets the default.
func (s *Store) AddDecision(ctx context.Context, d Decision) (string, error) {
	if strings.TrimSpace(d.Title) == "" {
		return "", fmt.Errorf("decision title is required")
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Confidence <= 0 {
		d.Confidence = defaultConfidence
	}
	if d.Confidence > 1 {
		d.Confidence = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO decision_nodes (id, title, body, confidence)
		 VALUES (?, ?, ?, ?)`,
		d.ID, d.Title, d.Body, d.Confidence,
	)
	if err != nil {
		return "", fmt.Errorf("failed to store decision: %w", err)
	}

	logging.GraphDebug("decision stored: %s %q confidence=%.2f", d.ID, d.Title, d.Confidence)
	return d.ID, nil
}

// Link records a directed relation between two existing nodes.
func (s *Store) Link(ctx context.Context, nodeA, relation, nodeB string, weight float64) error {
	if relation == "" {
		return fmt.Errorf("relation is required")
	}
	if weight <= 0 {
		weight = 1.0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range []string{nodeA, nodeB} {
		var exists bool
		err := s.db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM decision_nodes WHERE id = ?)", id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check node %s: %w", id, err)
		}
		if !exists {
			return fmt.Errorf("node %s not found", id)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO decision_links (node_a, relation, node_b, weight)
		 VALUES (?, ?, ?, ?)`,
		nodeA, relation, nodeB, weight,
	)
	if err != nil {
		return fmt.Errorf("failed to store link: %w", err)
	}

	logging.GraphDebug("link stored: %s -[%s]-> %s weight=%.2f", nodeA, relation, nodeB, weight)
	return nil
}

// Related finds nodes matching any of the terms, plus their direct
// link neighbors, scored and sorted strongest first.
func (s *Store) Related(ctx context.Context, terms []string, limit int) ([]Related, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 8
	}
	if len(terms) > 8 {
		terms = terms[:8]
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	clauses := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms)*2)
	for _, term := range terms {
		clauses = append(clauses, "(instr(lower(title), ?) > 0 OR instr(lower(body), ?) > 0)")
		args = append(args, term, term)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, body, confidence FROM decision_nodes WHERE "+strings.Join(clauses, " OR "),
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	best := make(map[string]Related)
	type directHit struct {
		id       string
		strength float64
	}
	var direct []directHit

	for rows.Next() {
		var (
			id, title, body string
			confidence      float64
		)
		if err := rows.Scan(&id, &title, &body, &confidence); err != nil {
			continue
		}

		strength := strengthBody
		lowerTitle := strings.ToLower(title)
		for _, term := range terms {
			if strings.Contains(lowerTitle, term) {
				strength = strengthTitle
				break
			}
		}

		keepBest(best, Related{
			NodeID:           id,
			Title:            title,
			StoredConfidence: confidence,
			Score:            clamp01(confidence) * strength,
			Snippet:          snippet(body),
		})
		direct = append(direct, directHit{id: id, strength: strength})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read decisions: %w", err)
	}

	// One hop out from every direct hit, both link directions.
	for _, hit := range direct {
		neighbors, err := s.neighbors(ctx, hit.id)
		if err != nil {
			logging.GraphWarn("neighbor lookup failed for %s: %v", hit.id, err)
			continue
		}
		for _, n := range neighbors {
			n.Score = clamp01(n.StoredConfidence) * strengthNeighbor * clamp01(n.linkWeight) * hit.strength
			keepBest(best, n.Related)
		}
	}

	out := make([]Related, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Title < out[j].Title
	})
	if len(out) > limit {
		out = out[:limit]
	}

	logging.GraphDebug("related: %d terms -> %d nodes", len(terms), len(out))
	return out, nil
}

type neighborRow struct {
	Related
	linkWeight float64
}

func (s *Store) neighbors(ctx context.Context, id string) ([]neighborRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.relation, l.weight, n.id, n.title, n.body, n.confidence
		FROM decision_links l JOIN decision_nodes n ON n.id = l.node_b
		WHERE l.node_a = ?
		UNION ALL
		SELECT l.relation, l.weight, n.id, n.title, n.body, n.confidence
		FROM decision_links l JOIN decision_nodes n ON n.id = l.node_a
		WHERE l.node_b = ?`,
		id, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []neighborRow
	for rows.Next() {
		var (
			n               neighborRow
			relation        string
			weight          float64
			nid, title, bod string
			confidence      float64
		)
		if err := rows.Scan(&relation, &weight, &nid, &title, &bod, &confidence); err != nil {
			continue
		}
		n.NodeID = nid
		n.Title = title
		n.Relation = relation
		n.StoredConfidence = confidence
		n.Snippet = snippet(bod)
		n.linkWeight = weight
		out = append(out, n)
	}
	return out, rows.Err()
}

// Stats returns node and link counts.
func (s *Store) Stats(ctx context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int64, 2)
	for name, q := range map[string]string{
		"nodes": "SELECT COUNT(*) FROM decision_nodes",
		"links": "SELECT COUNT(*) FROM decision_links",
	} {
		var count int64
		if err := s.db.QueryRowContext(ctx, q).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}
		stats[name] = count
	}
	return stats, nil
}

// keepBest keeps the highest-scoring entry per node.
func keepBest(best map[string]Related, r Related) {
	if cur, ok := best[r.NodeID]; !ok || r.Score > cur.Score {
		best[r.NodeID] = r
	}
}

// snippet collapses a body to a single display line.
func snippet(body string) string {
	s := strings.Join(strings.Fields(body), " ")
	if len(s) > 160 {
		s = s[:157] + "..."
	}
	return s
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scout/internal/config"
	"scout/internal/graph"
	"scout/internal/keywords"
	"scout/internal/logging"
)

var (
	graphBody       string
	graphConfidence float64
	graphWeight     float64
)

// graphCmd manages the decision graph
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Record and query project decisions",
	Long: `Maintains the local decision graph the research cascade consults.
Recorded decisions answer "why" questions instantly and keep tribal
knowledge out of people's heads.

Subcommands:
  add      - Record a decision
  link     - Relate two decisions
  related  - Find decisions related to a question
  stats    - Show node and link counts`,
}

var graphAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Record a decision",
	Long: `Records a decision node. The cascade surfaces it whenever a question
shares vocabulary with the title or body.

Example:
  scout graph add "Adopt Kubernetes for production" --body "Moved off Swarm in Q3" --confidence 0.9`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGraphAdd,
}

var graphLinkCmd = &cobra.Command{
	Use:   "link [node-a] [relation] [node-b]",
	Short: "Relate two recorded decisions",
	Long: `Links two decision nodes with a named relation, e.g.

  scout graph link 4f1c... led-to 9a2e... --weight 0.8

Related questions then traverse the link with the given weight.`,
	Args: cobra.ExactArgs(3),
	RunE: runGraphLink,
}

var graphRelatedCmd = &cobra.Command{
	Use:   "related [question]",
	Short: "Find decisions related to a question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGraphRelated,
}

var graphStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show decision graph size",
	RunE:  runGraphStats,
}

// openStore opens the project's decision graph, creating the default
// store on first use.
func openStore() (*graph.Store, func(), error) {
	root, cfg, err := loadProjectConfig()
	if err != nil {
		return nil, nil, err
	}

	store := openGraphStore(root, cfg, true)
	if store == nil {
		logging.CloseAll()
		return nil, nil, fmt.Errorf("could not open decision graph for %s", root)
	}
	cleanup := func() {
		_ = store.Close()
		logging.CloseAll()
	}
	return store, cleanup, nil
}

func runGraphAdd(cmd *cobra.Command, args []string) error {
	store, cleanup, err := openStore()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := store.AddDecision(ctx, graph.Decision{
		Title:      strings.Join(args, " "),
		Body:       graphBody,
		Confidence: graphConfidence,
	})
	if err != nil {
		return err
	}
	fmt.Printf("recorded %s\n", id)
	return nil
}

func runGraphLink(cmd *cobra.Command, args []string) error {
	store, cleanup, err := openStore()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.Link(ctx, args[0], args[1], args[2], graphWeight); err != nil {
		return err
	}
	fmt.Printf("linked %s -[%s]-> %s\n", args[0], args[1], args[2])
	return nil
}

func runGraphRelated(cmd *cobra.Command, args []string) error {
	store, cleanup, err := openStore()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	terms := keywords.Analyze(strings.Join(args, " ")).All()
	related, err := store.Related(ctx, terms, 8)
	if err != nil {
		return err
	}
	if len(related) == 0 {
		fmt.Println("No related decisions recorded.")
		return nil
	}

	for _, r := range related {
		line := fmt.Sprintf("%.2f  %s", r.Score, r.Title)
		if r.Relation != "" {
			line += styleMuted.Render(fmt.Sprintf("  (via %s)", r.Relation))
		}
		fmt.Println(line)
		if r.Snippet != "" {
			fmt.Println(styleMuted.Render("      " + r.Snippet))
		}
		fmt.Println(styleMuted.Render("      id " + r.NodeID))
	}
	return nil
}

func runGraphStats(cmd *cobra.Command, args []string) error {
	store, cleanup, err := openStore()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("decisions: %d\nlinks:     %d\n", stats["nodes"], stats["links"])
	return nil
}

// loadProjectConfig resolves the project root, starts category
// logging under it, and loads its configuration.
func loadProjectConfig() (string, *config.Config, error) {
	root, err := resolveRoot(projectRoot)
	if err != nil {
		return "", nil, err
	}
	if err := logging.Initialize(root); err != nil {
		fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
	}
	cfg, err := config.Load(config.DefaultConfigPath(root))
	if err != nil {
		logging.CloseAll()
		return "", nil, err
	}
	return root, cfg, nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scout/internal/confidence"
	"scout/internal/research"
)

var (
	askThreshold float64
	askWeb       bool
	askJSON      bool
	askTimeout   time.Duration
)

// askCmd answers a single question
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one research question and exit",
	Long: `Runs the full research cascade for a single question: project files,
recorded decisions, the live environment, and finally web search.

Examples:
  scout ask "what container platform does this project use"
  scout ask --project ~/src/api "how do we deploy to production"
  scout ask --web=false "what database are we running"
  scout ask --json "what ci pipeline do we have" | jq .overallConfidence`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	boot, err := bootEngine(projectRoot)
	if err != nil {
		return err
	}
	defer boot.close()

	if logger != nil {
		logger.Debug("engine ready", zap.String("project", boot.root))
	}

	ctx := context.Background()
	if askTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, askTimeout)
		defer cancel()
	}

	ans, err := boot.engine.Ask(ctx, research.Question{
		Text:           strings.Join(args, " "),
		ProjectRoot:    boot.root,
		Threshold:      askThreshold,
		AllowWebSearch: askWeb,
	})
	if err != nil {
		return err
	}

	if askJSON {
		raw, err := json.MarshalIndent(ans, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		fmt.Println(string(raw))
		return nil
	}

	fmt.Print(renderAnswer(ans))
	return nil
}

var (
	styleMuted    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleWarn     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	badgeProceed  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("42")).Padding(0, 1)
	badgeValidate = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214")).Padding(0, 1)
	badgeResearch = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("160")).Padding(0, 1)
)

// confidenceBadge renders the overall confidence as a colored badge.
func confidenceBadge(score float64) string {
	label := fmt.Sprintf("%s %.0f%%", strings.ToUpper(confidence.Level(score)), score*100)
	switch confidence.BandFor(score) {
	case confidence.BandProceed:
		return badgeProceed.Render(label)
	case confidence.BandValidate:
		return badgeValidate.Render(label)
	default:
		return badgeResearch.Render(label)
	}
}

func renderAnswer(ans *research.Answer) string {
	var sb strings.Builder

	sb.WriteString(confidenceBadge(ans.Confidence))
	if ans.Metadata.CacheHit {
		sb.WriteString(" " + styleMuted.Render("cached"))
	}
	sb.WriteString("\n")

	sb.WriteString(renderMarkdown(ans.Text))

	tiers := make([]string, len(ans.Metadata.TiersQueried))
	for i, t := range ans.Metadata.TiersQueried {
		tiers[i] = string(t)
	}
	sb.WriteString(styleMuted.Render(fmt.Sprintf("tiers: %s | %dms", strings.Join(tiers, ", "), ans.Metadata.TotalDurationMs)))
	sb.WriteString("\n")

	if ans.NeedsWebSearch {
		sb.WriteString(styleWarn.Render("Confidence fell short of the threshold and no web evidence was gathered.") + "\n")
	}
	return sb.String()
}

// renderMarkdown renders through glamour, falling back to the raw
// markdown when the terminal renderer cannot be built.
func renderMarkdown(md string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md + "\n"
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md + "\n"
	}
	return out
}

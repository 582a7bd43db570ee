package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"scout/internal/envprobe"
	"scout/internal/logging"
)

// envCmd shows the environment capability snapshot
var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Discover local environment capabilities",
	Long: `Probes the local environment for infrastructure tooling (docker,
podman, kubectl, oc, ansible, host utilities) and prints what scout
can query. Probes run in parallel with a short per-probe timeout;
unavailable tools are skipped during research, never retried.`,
	RunE: runEnv,
}

var (
	styleTitle       = lipgloss.NewStyle().Bold(true)
	styleAvailable   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleUnavailable = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func runEnv(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadProjectConfig()
	if err != nil {
		return err
	}
	defer logging.CloseAll()

	registry := envprobe.NewRegistry(envprobe.RunnerConfig{
		ProbeTimeout:   cfg.GetProbeTimeout(),
		QueryTimeout:   cfg.GetQueryTimeout(),
		MaxOutputBytes: int64(cfg.Environment.MaxOutputKB) * 1024,
	}, cfg.Environment.Disabled)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	statuses := registry.Snapshot(ctx)
	elapsed := time.Since(start)

	fmt.Println(styleTitle.Render("Environment capabilities"))
	fmt.Printf("%-12s %-18s %-14s %s\n", "NAME", "CATEGORY", "STATUS", "PROBE")
	for _, s := range statuses {
		status := styleUnavailable.Render(fmt.Sprintf("%-14s", "unavailable"))
		if s.Available {
			status = styleAvailable.Render(fmt.Sprintf("%-14s", "available"))
		}
		fmt.Printf("%-12s %-18s %s %s\n", s.Name, s.Category, status, s.ProbeDuration.Round(time.Millisecond))
	}
	fmt.Println(styleMuted.Render(fmt.Sprintf("discovery finished in %s", elapsed.Round(time.Millisecond))))
	return nil
}

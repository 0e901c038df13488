package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/abdulachik/storyforge/internal/archive"
	"github.com/abdulachik/storyforge/internal/config"
	"github.com/abdulachik/storyforge/internal/db"
	"github.com/abdulachik/storyforge/internal/vectorstore"
	"github.com/spf13/cobra"
)

var statsRecent int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show run and project statistics",
	Long:  `Display statistics about debate runs, saved projects, and the knowledge index.`,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsRecent, "recent", 5, "Number of recent runs to list")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	store, err := db.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	totalRuns, err := store.CountDebateRuns(ctx)
	if err != nil {
		return fmt.Errorf("count runs: %w", err)
	}
	byStatus, err := store.CountDebateRunsByStatus(ctx)
	if err != nil {
		return fmt.Errorf("count runs by status: %w", err)
	}
	avg, err := store.AverageFinalScore(ctx)
	if err != nil {
		return fmt.Errorf("average score: %w", err)
	}
	recent, err := store.ListDebateRuns(ctx, int64(statsRecent))
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	fmt.Println("=== StoryForge Statistics ===")
	fmt.Println()
	fmt.Printf("Database: %s\n", cfg.DatabasePath)
	fmt.Println()
	fmt.Println("Runs:")
	fmt.Printf("  Total: %d\n", totalRuns)
	for _, row := range byStatus {
		fmt.Printf("    %s: %d\n", row.Status, row.Count)
	}
	if avg.Valid {
		fmt.Printf("  Average final score: %.1f\n", avg.Float64)
	}
	fmt.Println()

	if len(recent) > 0 {
		fmt.Println("  Recent:")
		for _, r := range recent {
			title := r.Title.String
			if title == "" {
				title = "-"
			}
			score := "-"
			if r.FinalScore.Valid {
				score = fmt.Sprintf("%d", r.FinalScore.Int64)
			}
			started := "-"
			if r.StartedAt.Valid {
				started = r.StartedAt.Time.Format("2006-01-02 15:04")
			}
			fmt.Printf("    #%d  %-16s %-11s score=%-3s %s\n", r.ID, started, r.Status, score, title)
		}
		fmt.Println()
	}

	projects, err := archive.New(cfg.StudioDir).List()
	if err != nil {
		slog.Warn("failed to list projects", "error", err)
	} else {
		corrupted := 0
		for _, p := range projects {
			if p.Corrupted {
				corrupted++
			}
		}
		fmt.Println("Projects:")
		fmt.Printf("  Folder: %s\n", cfg.StudioDir)
		fmt.Printf("  Total: %d\n", len(projects))
		if corrupted > 0 {
			fmt.Printf("  Corrupted: %d\n", corrupted)
		}
		fmt.Println()
	}

	if cfg.VecLitePath != "" {
		if _, err := os.Stat(cfg.VecLitePath); err != nil {
			fmt.Println("VecLite: not built (run `storyforge index`)")
			return nil
		}
		ks, err := vectorstore.New(vectorstore.Config{
			Path:       cfg.VecLitePath,
			ConfigPath: cfg.VecLiteConfig,
		})
		if err != nil {
			slog.Warn("failed to open VecLite", "error", err)
			return nil
		}
		defer ks.Close()

		stats := ks.Stats()
		fmt.Println("VecLite:")
		fmt.Printf("  Path: %s\n", cfg.VecLitePath)
		fmt.Printf("  Passages: %d\n", stats.Count)
		fmt.Printf("  Dimension: %d\n", stats.Dimension)
		fmt.Printf("  Distance: %s\n", stats.DistanceType)
		fmt.Printf("  Index: %s\n", stats.IndexType)
		fmt.Println()
	}

	return nil
}

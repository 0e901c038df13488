package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/abdulachik/storyforge/internal/config"
	"github.com/abdulachik/storyforge/internal/knowledge"
	"github.com/abdulachik/storyforge/internal/vectorstore"
	"github.com/spf13/cobra"
)

var indexReset bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the knowledge vector index",
	Long: `Chunk the writing tips and reference facts and store them in VecLite so the
planner and critic retrieve passages relevant to the idea instead of a
random sample.

Uses the embedding provider configured in veclite.yaml (or VECLITE_CONFIG):
  - openai: OpenAI API (requires OPENAI_API_KEY env var)
  - ollama: Local Ollama server`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexReset, "reset", false, "Delete the existing index and rebuild it")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForIndex(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	if indexReset {
		if err := os.RemoveAll(cfg.VecLitePath); err != nil {
			return fmt.Errorf("remove index: %w", err)
		}
		slog.Info("removed existing index", "path", cfg.VecLitePath)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.VecLitePath), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	ks, err := vectorstore.New(vectorstore.Config{
		Path:       cfg.VecLitePath,
		ConfigPath: cfg.VecLiteConfig,
	})
	if err != nil {
		return fmt.Errorf("open knowledge index: %w", err)
	}
	defer ks.Close()

	if n := ks.Count(); n > 0 {
		slog.Info("knowledge already indexed, use --reset to rebuild", "passages", n)
		return nil
	}

	library := knowledge.NewLibrary(knowledge.Config{
		TipsDir:  cfg.TipsDir,
		FactsDir: cfg.FactsDir,
	})
	chunker := knowledge.NewChunker(knowledge.DefaultChunkerConfig())

	start := time.Now()
	inserted, failed := 0, 0
	for _, kind := range []string{knowledge.KindTip, knowledge.KindFact} {
		files, err := library.Files(kind)
		if err != nil {
			return err
		}
		slog.Info("indexing", "kind", kind, "files", len(files))

		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, errs := indexFile(ctx, ks, chunker, kind, path)
			inserted += n
			failed += errs

			if inserted > 0 && inserted%200 == 0 {
				if err := ks.Sync(); err != nil {
					slog.Warn("failed to sync", "error", err)
				}
			}
		}
	}

	if err := ks.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	elapsed := time.Since(start)
	slog.Info("indexing complete",
		"passages", inserted,
		"errors", failed,
		"duration", elapsed.Round(time.Second),
		"rate", fmt.Sprintf("%.1f/sec", float64(inserted)/max(elapsed.Seconds(), 0.001)),
	)
	return nil
}

func indexFile(ctx context.Context, ks *vectorstore.KnowledgeStore, chunker *knowledge.Chunker, kind, path string) (inserted, failed int) {
	chunks, err := chunker.ChunkFile(path)
	if err != nil {
		slog.Warn("failed to chunk file", "path", path, "error", err)
		return 0, 1
	}

	source := filepath.Base(path)
	for _, c := range chunks {
		_, err := ks.InsertPassage(ctx, knowledge.Passage{
			Kind:   kind,
			Source: source,
			Index:  c.ChunkIndex,
			Text:   c.Text,
		})
		if err != nil {
			slog.Warn("failed to embed passage", "source", source, "chunk", c.ChunkIndex, "error", err)
			failed++
			continue
		}
		inserted++
	}
	slog.Debug("indexed file", "path", path, "chunks", len(chunks))
	return inserted, failed
}

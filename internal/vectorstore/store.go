// Package vectorstore provides a VecLite-based index of knowledge passages.
package vectorstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abdul-hamid-achik/veclite"

	"github.com/abdulachik/storyforge/internal/knowledge"
)

const knowledgeCollection = "knowledge"

// Config holds configuration for the KnowledgeStore.
type Config struct {
	// Path to the VecLite database file (e.g., "data/knowledge.veclite").
	Path string

	// ConfigPath is the path to veclite.yaml config file (optional).
	// If empty, searches ./veclite.yaml, ~/.veclite/config.yaml.
	ConfigPath string
}

// KnowledgeStore wraps VecLite for tip and fact passages.
type KnowledgeStore struct {
	vecdb    *veclite.DB
	coll     *veclite.Collection
	embedder veclite.Embedder
}

// New opens the store, creating the collection on first use.
func New(cfg Config) (*KnowledgeStore, error) {
	slog.Debug("creating KnowledgeStore", "path", cfg.Path, "config_path", cfg.ConfigPath)

	vecliteCfg, err := veclite.LoadConfig(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load veclite config: %w", err)
	}

	embedder, err := veclite.NewEmbedderFromConfig(vecliteCfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	slog.Debug("embedder created", "provider", vecliteCfg.Embedder.Provider, "dimension", embedder.Dimension())

	vecdb, err := veclite.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open veclite db: %w", err)
	}

	coll, err := vecdb.CreateCollection(knowledgeCollection,
		veclite.WithDimension(embedder.Dimension()),
		veclite.WithDistanceType(veclite.DistanceCosine),
		veclite.WithHNSW(16, 200),
		veclite.WithTextIndex("kind", "source", "text"),
		veclite.WithEmbedder(embedder),
	)
	if err != nil {
		coll, err = vecdb.GetCollection(knowledgeCollection)
		if err != nil {
			vecdb.Close()
			return nil, fmt.Errorf("get collection: %w", err)
		}
	}

	return &KnowledgeStore{
		vecdb:    vecdb,
		coll:     coll,
		embedder: embedder,
	}, nil
}

// Close closes the VecLite database.
func (s *KnowledgeStore) Close() error {
	if s.vecdb != nil {
		return s.vecdb.Close()
	}
	return nil
}

func payload(p knowledge.Passage) map[string]any {
	return map[string]any{
		"kind":   p.Kind,
		"source": p.Source,
		"index":  p.Index,
		"text":   p.Text,
	}
}

// InsertPassage embeds and stores a passage, returning its VecLite ID.
func (s *KnowledgeStore) InsertPassage(ctx context.Context, p knowledge.Passage) (uint64, error) {
	id, err := s.coll.InsertText(p.Text, payload(p))
	if err != nil {
		return 0, fmt.Errorf("insert passage: %w", err)
	}
	return id, nil
}

// InsertPassageWithEmbedding stores a passage with a pre-computed embedding.
func (s *KnowledgeStore) InsertPassageWithEmbedding(ctx context.Context, p knowledge.Passage, embedding []float32) (uint64, error) {
	id, err := s.coll.InsertDocument(embedding, p.Text, payload(p))
	if err != nil {
		return 0, fmt.Errorf("insert passage with embedding: %w", err)
	}
	return id, nil
}

// Search finds passages of any kind similar to the query.
func (s *KnowledgeStore) Search(ctx context.Context, query string, k int) ([]knowledge.Passage, error) {
	results, err := s.coll.SearchText(query, veclite.TopK(k))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return convertResults(results), nil
}

// SearchKind finds passages of one kind similar to the query.
func (s *KnowledgeStore) SearchKind(ctx context.Context, query, kind string, k int) ([]knowledge.Passage, error) {
	queryVec, err := s.embedder.Embed(query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.coll.Search(queryVec,
		veclite.TopK(k),
		veclite.WithFilter(veclite.Equal("kind", kind)),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s passages: %w", kind, err)
	}
	return convertResults(results), nil
}

// HybridSearch combines vector and BM25 text search using RRF fusion.
func (s *KnowledgeStore) HybridSearch(ctx context.Context, query string, k int, vectorWeight, textWeight float64) ([]knowledge.Passage, error) {
	queryVec, err := s.embedder.Embed(query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.coll.HybridSearch(queryVec, query,
		veclite.TopK(k),
		veclite.WithVectorWeight(vectorWeight),
		veclite.WithTextWeight(textWeight),
	)
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	return convertResults(results), nil
}

// TextSearch performs BM25 full-text search on indexed fields.
func (s *KnowledgeStore) TextSearch(ctx context.Context, query string, k int) ([]knowledge.Passage, error) {
	results, err := s.coll.TextSearch(query, veclite.TopK(k))
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	return convertResults(results), nil
}

// Count returns the number of passages in the store.
func (s *KnowledgeStore) Count() int {
	return s.coll.Count()
}

// Stats returns collection statistics.
func (s *KnowledgeStore) Stats() veclite.CollectionStats {
	return s.coll.Stats()
}

// Sync persists any pending changes to disk.
func (s *KnowledgeStore) Sync() error {
	return s.vecdb.Sync()
}

func convertResults(results []veclite.Result) []knowledge.Passage {
	out := make([]knowledge.Passage, 0, len(results))
	for _, r := range results {
		p := knowledge.Passage{Score: r.Score}
		if r.Record.Payload != nil {
			p = passageFromPayload(r.Record.Payload)
			p.Score = r.Score
		}
		if p.Text == "" && r.Record.Content != "" {
			p.Text = r.Record.Content
		}
		out = append(out, p)
	}
	return out
}

// passageFromPayload reads a stored payload. Numbers may come back as int,
// int64 or float64 depending on how the payload was persisted.
func passageFromPayload(m map[string]any) knowledge.Passage {
	var p knowledge.Passage
	p.Kind, _ = m["kind"].(string)
	p.Source, _ = m["source"].(string)
	p.Text, _ = m["text"].(string)
	switch v := m["index"].(type) {
	case int:
		p.Index = v
	case int64:
		p.Index = int(v)
	case float64:
		p.Index = int(v)
	}
	return p
}

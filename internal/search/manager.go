// Package search ranks a user's thoughts against a free-text query by
// embedding similarity.
package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/clearhead/pkg/models"
)

// DefaultLimit bounds result sets when the caller does not ask for a size.
const DefaultLimit = 20

// Embedder produces the query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorSource supplies the candidate vectors to rank.
type VectorSource interface {
	GetVectorsByUser(ctx context.Context, userID string) ([]*models.ThoughtVector, error)
}

// ThoughtSource resolves ranked vector ids back to thought records.
type ThoughtSource interface {
	GetThoughtByID(ctx context.Context, id int64) (*models.Thought, error)
}

// Result is one ranked thought.
type Result struct {
	Thought *models.Thought `json:"thought"`
	Score   float64         `json:"score"`
}

// Manager performs semantic search over stored thought vectors. Candidates
// are ranked in memory; at personal-notes scale a linear scan beats index
// maintenance.
type Manager struct {
	embedder Embedder
	vectors  VectorSource
	thoughts ThoughtSource
}

func NewManager(embedder Embedder, vectors VectorSource, thoughts ThoughtSource) *Manager {
	return &Manager{embedder: embedder, vectors: vectors, thoughts: thoughts}
}

// Search embeds the query and returns the user's closest thoughts by cosine
// similarity, best first.
func (m *Manager) Search(ctx context.Context, userID, query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	queryVec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := m.vectors.GetVectorsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load vectors: %w", err)
	}

	type scored struct {
		thoughtID int64
		score     float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Embedding) != len(queryVec) {
			// Vector from an older embedding model, skip.
			continue
		}
		ranked = append(ranked, scored{c.ThoughtID, cosineSimilarity(queryVec, c.Embedding)})
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]Result, 0, len(ranked))
	for _, r := range ranked {
		thought, err := m.thoughts.GetThoughtByID(ctx, r.thoughtID)
		if err != nil {
			log.Warn().Err(err).Int64("thoughtId", r.thoughtID).Msg("Failed to load ranked thought")
			continue
		}
		if thought == nil {
			continue
		}
		results = append(results, Result{Thought: thought, Score: r.score})
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

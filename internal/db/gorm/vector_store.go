// Package gorm provides GORM-based database operations for clearhead.
package gorm

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thebtf/clearhead/pkg/models"
)

// VectorStore provides thought-vector database operations.
type VectorStore struct {
	db *gorm.DB
}

// NewVectorStore creates a new vector store.
func NewVectorStore(store *Store) *VectorStore {
	return &VectorStore{db: store.DB}
}

// UpsertVector writes the embedding for one thought, replacing any previous
// vector (re-embedding after a model change).
func (s *VectorStore) UpsertVector(ctx context.Context, v *models.ThoughtVector) error {
	row := &ThoughtVector{
		ThoughtID:      v.ThoughtID,
		Embedding:      encodeVector(v.Embedding),
		Model:          v.Model,
		Dims:           len(v.Embedding),
		CreatedAtEpoch: v.CreatedAtEpoch,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "thought_id"}},
			UpdateAll: true,
		}).
		Create(row).Error
}

// GetVector returns the embedding for one thought. Returns (nil, nil) when
// the thought has no vector.
func (s *VectorStore) GetVector(ctx context.Context, thoughtID int64) (*models.ThoughtVector, error) {
	var row ThoughtVector
	err := s.db.WithContext(ctx).First(&row, "thought_id = ?", thoughtID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toModelVector(&row), nil
}

// GetVectorsByUser returns all vectors belonging to one user's thoughts.
// Semantic search ranks these in memory; at personal-notes scale that is
// cheaper than maintaining an index.
func (s *VectorStore) GetVectorsByUser(ctx context.Context, userID string) ([]*models.ThoughtVector, error) {
	var rows []ThoughtVector
	err := s.db.WithContext(ctx).
		Joins("JOIN thoughts ON thoughts.id = thought_vectors.thought_id").
		Where("thoughts.user_id = ?", userID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*models.ThoughtVector, len(rows))
	for i := range rows {
		out[i] = toModelVector(&rows[i])
	}
	return out, nil
}

// CountVectors returns the total number of stored vectors.
func (s *VectorStore) CountVectors(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&ThoughtVector{}).Count(&count).Error
	return count, err
}

func toModelVector(v *ThoughtVector) *models.ThoughtVector {
	return &models.ThoughtVector{
		ThoughtID:      v.ThoughtID,
		Embedding:      decodeVector(v.Embedding),
		Model:          v.Model,
		Dims:           v.Dims,
		CreatedAtEpoch: v.CreatedAtEpoch,
	}
}

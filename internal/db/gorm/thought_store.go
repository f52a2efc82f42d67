// Package gorm provides GORM-based database operations for clearhead.
package gorm

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/thebtf/clearhead/pkg/models"
)

// ThoughtStore provides thought and relation database operations.
type ThoughtStore struct {
	db *gorm.DB
}

// NewThoughtStore creates a new thought store.
func NewThoughtStore(store *Store) *ThoughtStore {
	return &ThoughtStore{db: store.DB}
}

// CreateThought inserts a new thought and returns its generated id.
func (s *ThoughtStore) CreateThought(ctx context.Context, t *models.Thought) (int64, error) {
	row := &Thought{
		DumpID:           t.DumpID,
		UserID:           t.UserID,
		Text:             t.Text,
		Type:             string(t.Type),
		Importance:       string(t.Importance),
		Deadline:         t.Deadline,
		EstimatedMinutes: t.EstimatedMinutes,
		Category:         t.Category,
		NextAction:       t.NextAction,
		Sentiment:        t.Sentiment,
		ResurfaceAt:      t.ResurfaceAt,
		Confidence:       t.Confidence,
		Status:           string(t.Status),
		CreatedAt:        t.CreatedAt,
		CreatedAtEpoch:   t.CreatedAtEpoch,
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

// CreateRelation inserts a directed edge between two thoughts.
func (s *ThoughtStore) CreateRelation(ctx context.Context, parentID, childID int64, relation string) error {
	row := &ThoughtRelation{
		ParentID: parentID,
		ChildID:  childID,
		Relation: relation,
	}
	return s.db.WithContext(ctx).Create(row).Error
}

// GetThoughtByID retrieves one thought. Returns (nil, nil) when not found.
func (s *ThoughtStore) GetThoughtByID(ctx context.Context, id int64) (*models.Thought, error) {
	var row Thought
	err := s.db.WithContext(ctx).First(&row, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toModelThought(&row), nil
}

// GetThoughtsByDump returns all thoughts of one dump in creation order.
func (s *ThoughtStore) GetThoughtsByDump(ctx context.Context, dumpID int64) ([]*models.Thought, error) {
	var rows []Thought
	err := s.db.WithContext(ctx).
		Where("dump_id = ?", dumpID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toModelThoughts(rows), nil
}

// GetChildren returns the child thoughts linked from parentID with the given
// relation, in creation order.
func (s *ThoughtStore) GetChildren(ctx context.Context, parentID int64, relation string) ([]*models.Thought, error) {
	var rows []Thought
	err := s.db.WithContext(ctx).
		Joins("JOIN thought_relations ON thought_relations.child_id = thoughts.id").
		Where("thought_relations.parent_id = ? AND thought_relations.relation = ?", parentID, relation).
		Order("thoughts.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toModelThoughts(rows), nil
}

// GetRelationsByParent returns the outgoing edges of one thought.
func (s *ThoughtStore) GetRelationsByParent(ctx context.Context, parentID int64) ([]*models.ThoughtRelation, error) {
	var rows []ThoughtRelation
	err := s.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*models.ThoughtRelation, len(rows))
	for i := range rows {
		out[i] = toModelRelation(&rows[i])
	}
	return out, nil
}

// UpdateStatus transitions a thought's status and optionally rewrites its
// resurface time (snoozing). A nil resurfaceAt leaves the column untouched.
func (s *ThoughtStore) UpdateStatus(ctx context.Context, id int64, status models.ThoughtStatus, resurfaceAt *string) error {
	updates := map[string]any{"status": string(status)}
	if resurfaceAt != nil {
		updates["resurface_at"] = nullString(*resurfaceAt)
	}
	return s.db.WithContext(ctx).
		Model(&Thought{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ListDue returns a user's open or snoozed thoughts whose resurface time has
// arrived, soonest first.
func (s *ThoughtStore) ListDue(ctx context.Context, userID string, before time.Time, limit int) ([]*models.Thought, error) {
	var rows []Thought
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND resurface_at IS NOT NULL AND resurface_at <= ? AND status IN ('open', 'snoozed')",
			userID, before.UTC().Format(time.RFC3339)).
		Order("resurface_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toModelThoughts(rows), nil
}

// CountByDump returns how many thoughts one dump produced.
func (s *ThoughtStore) CountByDump(ctx context.Context, dumpID int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Thought{}).
		Where("dump_id = ?", dumpID).
		Count(&count).Error
	return count, err
}

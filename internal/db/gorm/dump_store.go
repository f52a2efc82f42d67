// Package gorm provides GORM-based database operations for clearhead.
package gorm

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/thebtf/clearhead/pkg/models"
)

// DumpStore provides mind-dump database operations.
type DumpStore struct {
	db *gorm.DB
}

// NewDumpStore creates a new dump store.
func NewDumpStore(store *Store) *DumpStore {
	return &DumpStore{db: store.DB}
}

// CreateDump inserts a new dump and returns its generated id and uid.
func (s *DumpStore) CreateDump(ctx context.Context, dump *models.MindDump) (int64, string, error) {
	row := &MindDump{
		UID:            dump.UID,
		UserID:         dump.UserID,
		Source:         string(dump.Source),
		RawText:        dump.RawText,
		AudioRef:       dump.AudioRef,
		Processed:      false,
		CreatedAt:      dump.CreatedAt,
		CreatedAtEpoch: dump.CreatedAtEpoch,
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return 0, "", err
	}
	return row.ID, row.UID, nil
}

// GetDumpByID retrieves a dump by its numeric id. Returns (nil, nil) when not
// found.
func (s *DumpStore) GetDumpByID(ctx context.Context, id int64) (*models.MindDump, error) {
	var row MindDump
	err := s.db.WithContext(ctx).First(&row, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toModelDump(&row), nil
}

// GetDumpByUID retrieves a dump by its public uid. Returns (nil, nil) when
// not found.
func (s *DumpStore) GetDumpByUID(ctx context.Context, uid string) (*models.MindDump, error) {
	var row MindDump
	err := s.db.WithContext(ctx).Where("uid = ?", uid).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toModelDump(&row), nil
}

// UpdateRawText overwrites the raw text of a dump, used once transcription
// replaces the placeholder.
func (s *DumpStore) UpdateRawText(ctx context.Context, id int64, text string) error {
	return s.db.WithContext(ctx).
		Model(&MindDump{}).
		Where("id = ?", id).
		Update("raw_text", text).Error
}

// MarkProcessed stamps the terminal processed flag and model version.
func (s *DumpStore) MarkProcessed(ctx context.Context, id int64, modelVersion string) error {
	return s.db.WithContext(ctx).
		Model(&MindDump{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"processed":     true,
			"model_version": nullString(modelVersion),
		}).Error
}

// ListStuckDumps returns unprocessed dumps created before the cutoff, oldest
// first. Used by the reconciliation sweep to re-drive dumps abandoned
// mid-pipeline (e.g. by a process restart).
func (s *DumpStore) ListStuckDumps(ctx context.Context, olderThan time.Time, limit int) ([]*models.MindDump, error) {
	var rows []MindDump
	err := s.db.WithContext(ctx).
		Where("processed = ? AND created_at_epoch < ?", false, olderThan.UnixMilli()).
		Order("created_at_epoch ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*models.MindDump, len(rows))
	for i := range rows {
		out[i] = toModelDump(&rows[i])
	}
	return out, nil
}

// ListRecentDumps returns a user's dumps, newest first.
func (s *DumpStore) ListRecentDumps(ctx context.Context, userID string, limit int) ([]*models.MindDump, error) {
	var rows []MindDump
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at_epoch DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*models.MindDump, len(rows))
	for i := range rows {
		out[i] = toModelDump(&rows[i])
	}
	return out, nil
}

// Package gorm provides GORM-based database operations for clearhead.
package gorm

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thebtf/clearhead/pkg/models"
)

// GORM Models

// MindDump represents one raw capture event.
type MindDump struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	UID            string `gorm:"uniqueIndex;not null"`
	UserID         string `gorm:"index;not null"`
	Source         string `gorm:"type:text;check:source IN ('voice', 'text', 'imported');not null"`
	RawText        string `gorm:"type:text"`
	AudioRef       sql.NullString
	Processed      bool `gorm:"default:false;index:idx_dumps_processed"`
	ModelVersion   sql.NullString
	CreatedAt      string `gorm:"not null"`
	CreatedAtEpoch int64  `gorm:"index:idx_dumps_created,sort:desc;not null"`
}

func (MindDump) TableName() string { return "mind_dumps" }

// BeforeCreate hook to ensure UID and timestamps are set.
func (d *MindDump) BeforeCreate(tx *gorm.DB) error {
	if d.UID == "" {
		d.UID = uuid.NewString()
	}
	if d.CreatedAtEpoch == 0 {
		d.CreatedAtEpoch = time.Now().UnixMilli()
	}
	if d.CreatedAt == "" {
		d.CreatedAt = time.Now().Format(time.RFC3339)
	}
	return nil
}

// Thought represents one normalized unit extracted from a dump.
type Thought struct {
	ID               int64  `gorm:"primaryKey;autoIncrement"`
	DumpID           int64  `gorm:"index;not null"`
	UserID           string `gorm:"index;not null"`
	Text             string `gorm:"type:text;not null"`
	Type             string `gorm:"type:text;check:type IN ('task', 'idea', 'reminder', 'reflection', 'question', 'event');index;not null"`
	Importance       string `gorm:"type:text"`
	Deadline         sql.NullString
	EstimatedMinutes sql.NullInt64
	Category         string `gorm:"type:text"`
	NextAction       sql.NullString
	Sentiment        string         `gorm:"type:text"`
	ResurfaceAt      sql.NullString `gorm:"index:idx_thoughts_resurface"`
	Confidence       float64        `gorm:"type:real;default:0.5"`
	Status           string         `gorm:"type:text;check:status IN ('open', 'done', 'snoozed', 'archived');default:'open';index"`
	CreatedAt        string         `gorm:"not null"`
	CreatedAtEpoch   int64          `gorm:"index:idx_thoughts_created,sort:desc;not null"`
}

func (Thought) TableName() string { return "thoughts" }

// BeforeCreate hook to ensure timestamps and defaults are set.
func (t *Thought) BeforeCreate(tx *gorm.DB) error {
	if t.CreatedAtEpoch == 0 {
		t.CreatedAtEpoch = time.Now().UnixMilli()
	}
	if t.CreatedAt == "" {
		t.CreatedAt = time.Now().Format(time.RFC3339)
	}
	if t.Status == "" {
		t.Status = string(models.ThoughtStatusOpen)
	}
	return nil
}

// ThoughtRelation is a directed edge between two thoughts.
type ThoughtRelation struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	ParentID       int64  `gorm:"index:idx_relations_parent;uniqueIndex:idx_relations_unique,priority:1;not null"`
	ChildID        int64  `gorm:"index:idx_relations_child;uniqueIndex:idx_relations_unique,priority:2;not null"`
	Relation       string `gorm:"type:text;check:relation IN ('subtask');uniqueIndex:idx_relations_unique,priority:3;not null"`
	CreatedAt      string `gorm:"not null"`
	CreatedAtEpoch int64  `gorm:"not null"`
}

func (ThoughtRelation) TableName() string { return "thought_relations" }

// BeforeCreate hook to ensure timestamps are set.
func (r *ThoughtRelation) BeforeCreate(tx *gorm.DB) error {
	if r.CreatedAtEpoch == 0 {
		r.CreatedAtEpoch = time.Now().UnixMilli()
	}
	if r.CreatedAt == "" {
		r.CreatedAt = time.Now().Format(time.RFC3339)
	}
	if r.Relation == "" {
		r.Relation = models.RelationSubtask
	}
	return nil
}

// ThoughtVector stores one embedding per thought as a little-endian float32
// blob alongside the model tag that produced it.
type ThoughtVector struct {
	ThoughtID      int64  `gorm:"primaryKey"`
	Embedding      []byte `gorm:"type:blob;not null"`
	Model          string `gorm:"type:text;not null"`
	Dims           int    `gorm:"not null"`
	CreatedAtEpoch int64  `gorm:"not null"`
}

func (ThoughtVector) TableName() string { return "thought_vectors" }

// BeforeCreate hook to ensure the timestamp is set.
func (v *ThoughtVector) BeforeCreate(tx *gorm.DB) error {
	if v.CreatedAtEpoch == 0 {
		v.CreatedAtEpoch = time.Now().UnixMilli()
	}
	return nil
}

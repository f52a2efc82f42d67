// Package models contains domain models for clearhead.
package models

import "database/sql"

// ThoughtType classifies one extracted thought. Reminder and event exist in
// the enum because the extraction policy can leave them untouched when the
// model ignores the remapping instructions; downstream display partitions on
// the full six-member set.
type ThoughtType string

const (
	ThoughtTypeTask       ThoughtType = "task"
	ThoughtTypeIdea       ThoughtType = "idea"
	ThoughtTypeReminder   ThoughtType = "reminder"
	ThoughtTypeReflection ThoughtType = "reflection"
	ThoughtTypeQuestion   ThoughtType = "question"
	ThoughtTypeEvent      ThoughtType = "event"
)

// ValidThoughtType reports whether t is one of the six recognized types.
func ValidThoughtType(t string) bool {
	switch ThoughtType(t) {
	case ThoughtTypeTask, ThoughtTypeIdea, ThoughtTypeReminder,
		ThoughtTypeReflection, ThoughtTypeQuestion, ThoughtTypeEvent:
		return true
	}
	return false
}

// Importance is the model-assigned priority of a thought.
type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

// ValidImportance reports whether i is a recognized importance level.
func ValidImportance(i string) bool {
	switch Importance(i) {
	case ImportanceHigh, ImportanceMedium, ImportanceLow:
		return true
	}
	return false
}

// ThoughtStatus tracks the user-facing lifecycle of a thought.
type ThoughtStatus string

const (
	ThoughtStatusOpen     ThoughtStatus = "open"
	ThoughtStatusDone     ThoughtStatus = "done"
	ThoughtStatusSnoozed  ThoughtStatus = "snoozed"
	ThoughtStatusArchived ThoughtStatus = "archived"
)

// ValidThoughtStatus reports whether s is a recognized status.
func ValidThoughtStatus(s string) bool {
	switch ThoughtStatus(s) {
	case ThoughtStatusOpen, ThoughtStatusDone, ThoughtStatusSnoozed, ThoughtStatusArchived:
		return true
	}
	return false
}

// RelationSubtask is the only relation label currently in use.
const RelationSubtask = "subtask"

// Thought is one normalized, typed unit extracted from a mind dump.
//
// ResurfaceAt and Deadline, when valid, always hold absolute RFC3339
// timestamps; relative phrases are resolved before the record is persisted.
type Thought struct {
	ID               int64          `db:"id" json:"id"`
	DumpID           int64          `db:"dump_id" json:"dump_id"`
	UserID           string         `db:"user_id" json:"user_id"`
	Text             string         `db:"text" json:"text"`
	Type             ThoughtType    `db:"type" json:"type"`
	Importance       Importance     `db:"importance" json:"importance,omitempty"`
	Deadline         sql.NullString `db:"deadline" json:"deadline,omitempty"`
	EstimatedMinutes sql.NullInt64  `db:"estimated_minutes" json:"estimated_minutes,omitempty"`
	Category         string         `db:"category" json:"category,omitempty"`
	NextAction       sql.NullString `db:"next_action" json:"next_action,omitempty"`
	Sentiment        string         `db:"sentiment" json:"sentiment,omitempty"`
	ResurfaceAt      sql.NullString `db:"resurface_at" json:"resurface_at,omitempty"`
	Confidence       float64        `db:"confidence" json:"confidence"`
	Status           ThoughtStatus  `db:"status" json:"status"`
	CreatedAt        string         `db:"created_at" json:"created_at"`
	CreatedAtEpoch   int64          `db:"created_at_epoch" json:"created_at_epoch"`
}

// ThoughtRelation is a directed edge between two thoughts.
type ThoughtRelation struct {
	ID             int64  `db:"id" json:"id"`
	ParentID       int64  `db:"parent_id" json:"parent_id"`
	ChildID        int64  `db:"child_id" json:"child_id"`
	Relation       string `db:"relation" json:"relation"`
	CreatedAt      string `db:"created_at" json:"created_at"`
	CreatedAtEpoch int64  `db:"created_at_epoch" json:"created_at_epoch"`
}

// ThoughtVector is the semantic embedding for one thought, produced from the
// thought's own text. Best-effort: its absence blocks nothing.
type ThoughtVector struct {
	ThoughtID      int64     `db:"thought_id" json:"thought_id"`
	Embedding      []float32 `db:"-" json:"-"`
	Model          string    `db:"model" json:"model"`
	Dims           int       `db:"dims" json:"dims"`
	CreatedAtEpoch int64     `db:"created_at_epoch" json:"created_at_epoch"`
}

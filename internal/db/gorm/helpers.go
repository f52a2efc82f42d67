// Package gorm provides GORM-based database operations for clearhead.
package gorm

import (
	"database/sql"
	"encoding/binary"
	"math"

	"github.com/thebtf/clearhead/pkg/models"
)

// nullString creates a sql.NullString from a string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// encodeVector packs a float32 vector into a little-endian blob.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks a little-endian blob into a float32 vector.
func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

// Model conversions

func toModelDump(d *MindDump) *models.MindDump {
	return &models.MindDump{
		ID:             d.ID,
		UID:            d.UID,
		UserID:         d.UserID,
		Source:         models.DumpSource(d.Source),
		RawText:        d.RawText,
		AudioRef:       d.AudioRef,
		Processed:      d.Processed,
		ModelVersion:   d.ModelVersion,
		CreatedAt:      d.CreatedAt,
		CreatedAtEpoch: d.CreatedAtEpoch,
	}
}

func toModelThought(t *Thought) *models.Thought {
	return &models.Thought{
		ID:               t.ID,
		DumpID:           t.DumpID,
		UserID:           t.UserID,
		Text:             t.Text,
		Type:             models.ThoughtType(t.Type),
		Importance:       models.Importance(t.Importance),
		Deadline:         t.Deadline,
		EstimatedMinutes: t.EstimatedMinutes,
		Category:         t.Category,
		NextAction:       t.NextAction,
		Sentiment:        t.Sentiment,
		ResurfaceAt:      t.ResurfaceAt,
		Confidence:       t.Confidence,
		Status:           models.ThoughtStatus(t.Status),
		CreatedAt:        t.CreatedAt,
		CreatedAtEpoch:   t.CreatedAtEpoch,
	}
}

func toModelThoughts(ts []Thought) []*models.Thought {
	out := make([]*models.Thought, len(ts))
	for i := range ts {
		out[i] = toModelThought(&ts[i])
	}
	return out
}

func toModelRelation(r *ThoughtRelation) *models.ThoughtRelation {
	return &models.ThoughtRelation{
		ID:             r.ID,
		ParentID:       r.ParentID,
		ChildID:        r.ChildID,
		Relation:       r.Relation,
		CreatedAt:      r.CreatedAt,
		CreatedAtEpoch: r.CreatedAtEpoch,
	}
}

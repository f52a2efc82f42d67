// Package models contains domain models for clearhead.
package models

import "database/sql"

// DumpSource identifies how a mind dump was captured.
type DumpSource string

const (
	DumpSourceVoice    DumpSource = "voice"
	DumpSourceText     DumpSource = "text"
	DumpSourceImported DumpSource = "imported"
)

// TranscribingPlaceholder is the raw-text placeholder stored on voice dumps
// until transcription completes.
const TranscribingPlaceholder = "[Transcribing...]"

// MindDump represents one raw capture event before structuring.
type MindDump struct {
	ID             int64          `db:"id" json:"id"`
	UID            string         `db:"uid" json:"uid"`
	UserID         string         `db:"user_id" json:"user_id"`
	Source         DumpSource     `db:"source" json:"source"`
	RawText        string         `db:"raw_text" json:"raw_text"`
	AudioRef       sql.NullString `db:"audio_ref" json:"audio_ref,omitempty"`
	Processed      bool           `db:"processed" json:"processed"`
	ModelVersion   sql.NullString `db:"model_version" json:"model_version,omitempty"`
	CreatedAt      string         `db:"created_at" json:"created_at"`
	CreatedAtEpoch int64          `db:"created_at_epoch" json:"created_at_epoch"`
}

// NeedsTranscription reports whether this dump still requires a
// speech-to-text pass before extraction.
func (d *MindDump) NeedsTranscription() bool {
	return d.Source == DumpSourceVoice && d.AudioRef.Valid
}

// ValidDumpSource reports whether s is a recognized capture source.
func ValidDumpSource(s string) bool {
	switch DumpSource(s) {
	case DumpSourceVoice, DumpSourceText, DumpSourceImported:
		return true
	}
	return false
}

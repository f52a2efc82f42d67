// Package extract turns one mind-dump transcript into typed, dated,
// prioritized raw thought records via a completion model.
package extract

// SubtaskStub is a transient micro-step emitted by the model for large or
// vague tasks. Stubs are promoted to first-class child thoughts by the
// pipeline; they are never persisted in this form.
type SubtaskStub struct {
	Text  string `json:"text"`
	Order int    `json:"order"`
}

// RawThought is one extracted item before ownership, temporal resolution, and
// confidence scoring are applied.
type RawThought struct {
	Text             string        `json:"text"`
	Type             string        `json:"type"`
	Importance       string        `json:"importance"`
	Deadline         string        `json:"deadline"`
	EstimatedMinutes *int          `json:"estimated_minutes"`
	Category         string        `json:"category"`
	NextAction       string        `json:"next_action"`
	Sentiment        string        `json:"sentiment"`
	ResurfaceTiming  string        `json:"resurface_timing"`
	RelatedIndices   []int         `json:"related_indices"`
	Subtasks         []SubtaskStub `json:"subtasks"`
}

// AnalyzedContent is the parsed model output for one dump.
type AnalyzedContent struct {
	Summary    string       `json:"summary"`
	Priorities []string     `json:"priorities"`
	Insights   string       `json:"insights"`
	Thoughts   []RawThought `json:"thoughts"`
}

// Discard records one extracted item dropped during validation, kept for
// diagnostics only.
type Discard struct {
	Index  int
	Reason string
}

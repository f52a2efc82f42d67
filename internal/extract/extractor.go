package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// ErrExtraction is the whole-dump failure class: the model call errored,
// returned non-JSON, or the reply lacked a thoughts array. Per-item problems
// are not ErrExtraction; they surface through Validate instead.
var ErrExtraction = errors.New("extraction failed")

// Completer is the model-invocation collaborator. Implementations must force
// a JSON-object response mode.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Extractor converts one transcript into AnalyzedContent.
type Extractor struct {
	llm Completer
}

// NewExtractor creates an extractor over the given completion client.
func NewExtractor(llm Completer) *Extractor {
	return &Extractor{llm: llm}
}

// analyzedProbe distinguishes a missing thoughts key from an empty list.
type analyzedProbe struct {
	Summary    string        `json:"summary"`
	Priorities []string      `json:"priorities"`
	Insights   string        `json:"insights"`
	Thoughts   *[]RawThought `json:"thoughts"`
}

// Extract runs one completion over the transcript and parses the strict-JSON
// reply. The current time and IANA timezone are embedded in the request so
// the model can resolve relative dates itself. Unknown keys in the reply are
// ignored; a reply that is not a JSON object with a thoughts list is an
// ErrExtraction for the whole dump.
func (e *Extractor) Extract(ctx context.Context, transcript, timezone string, referenceNow time.Time) (*AnalyzedContent, error) {
	raw, err := e.llm.Complete(ctx, systemPrompt, buildUserPrompt(transcript, timezone, referenceNow))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: empty model response", ErrExtraction)
	}

	var probe analyzedProbe
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, fmt.Errorf("%w: response is not valid JSON: %v", ErrExtraction, err)
	}
	if probe.Thoughts == nil {
		return nil, fmt.Errorf("%w: response has no thoughts array", ErrExtraction)
	}

	return &AnalyzedContent{
		Summary:    probe.Summary,
		Priorities: probe.Priorities,
		Insights:   probe.Insights,
		Thoughts:   *probe.Thoughts,
	}, nil
}

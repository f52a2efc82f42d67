package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSkipsBadItemsKeepsRest(t *testing.T) {
	content := &AnalyzedContent{Thoughts: []RawThought{
		{Text: "call mom", Type: "task", Importance: "high"},
		{Text: "weird one", Type: "banana"},
		{Text: "why do I procrastinate", Type: "question"},
	}}

	valid, discards := Validate(content)
	require.Len(t, valid, 2)
	assert.Equal(t, "call mom", valid[0].Text)
	assert.Equal(t, "why do I procrastinate", valid[1].Text)

	require.Len(t, discards, 1)
	assert.Equal(t, 1, discards[0].Index)
	assert.Contains(t, discards[0].Reason, "banana")
}

func TestValidateRequiresText(t *testing.T) {
	content := &AnalyzedContent{Thoughts: []RawThought{
		{Text: "   ", Type: "idea"},
	}}

	valid, discards := Validate(content)
	assert.Empty(t, valid)
	require.Len(t, discards, 1)
	assert.Equal(t, "empty text", discards[0].Reason)
}

func TestValidateAcceptsAllSixTypes(t *testing.T) {
	// Reminder and event pass validation: the pipeline never overrides the
	// model's declared type, it only rejects values outside the enum.
	for _, typ := range []string{"task", "idea", "reminder", "reflection", "question", "event"} {
		content := &AnalyzedContent{Thoughts: []RawThought{{Text: "x", Type: typ}}}
		valid, discards := Validate(content)
		assert.Len(t, valid, 1, "type %s", typ)
		assert.Empty(t, discards, "type %s", typ)
	}
}

func TestValidateBadImportance(t *testing.T) {
	content := &AnalyzedContent{Thoughts: []RawThought{
		{Text: "x", Type: "task", Importance: "critical"},
	}}

	valid, discards := Validate(content)
	assert.Empty(t, valid)
	require.Len(t, discards, 1)
}

func TestValidateMissingImportanceIsAllowed(t *testing.T) {
	content := &AnalyzedContent{Thoughts: []RawThought{
		{Text: "x", Type: "idea"},
	}}

	valid, discards := Validate(content)
	assert.Len(t, valid, 1)
	assert.Empty(t, discards)
}

func TestValidateCleansMalformedSubtasks(t *testing.T) {
	content := &AnalyzedContent{Thoughts: []RawThought{
		{
			Text: "plan the wedding",
			Type: "task",
			Subtasks: []SubtaskStub{
				{Text: "open a planning doc", Order: 1},
				{Text: "", Order: 2},
				{Text: "zero order", Order: 0},
				{Text: "book the venue", Order: 3},
			},
		},
	}}

	valid, _ := Validate(content)
	require.Len(t, valid, 1)
	require.Len(t, valid[0].Subtasks, 2)
	assert.Equal(t, "open a planning doc", valid[0].Subtasks[0].Text)
	assert.Equal(t, "book the venue", valid[0].Subtasks[1].Text)
}

func TestValidateNegativeEstimate(t *testing.T) {
	neg := -5
	content := &AnalyzedContent{Thoughts: []RawThought{
		{Text: "x", Type: "task", EstimatedMinutes: &neg},
	}}

	valid, discards := Validate(content)
	assert.Empty(t, valid)
	require.Len(t, discards, 1)
}

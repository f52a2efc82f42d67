package extract

import (
	"fmt"
	"strings"

	"github.com/thebtf/clearhead/pkg/models"
)

// Validate partitions extracted items into well-formed ones and a discard
// log. One malformed item never aborts its siblings: the valid items are
// collected into a fresh list and the rest are recorded with a reason.
//
// Type remapping (reminder→task, past event→reflection) is the model's
// responsibility; validation only rejects types outside the six-member enum
// rather than re-deriving the classification.
func Validate(content *AnalyzedContent) ([]RawThought, []Discard) {
	valid := make([]RawThought, 0, len(content.Thoughts))
	var discards []Discard

	for i, item := range content.Thoughts {
		if reason := checkItem(&item); reason != "" {
			discards = append(discards, Discard{Index: i, Reason: reason})
			continue
		}
		item.Subtasks = cleanSubtasks(item.Subtasks)
		valid = append(valid, item)
	}

	return valid, discards
}

func checkItem(item *RawThought) string {
	if strings.TrimSpace(item.Text) == "" {
		return "empty text"
	}
	if !models.ValidThoughtType(item.Type) {
		return fmt.Sprintf("unknown type %q", item.Type)
	}
	if item.Importance != "" && !models.ValidImportance(item.Importance) {
		return fmt.Sprintf("unknown importance %q", item.Importance)
	}
	if item.EstimatedMinutes != nil && *item.EstimatedMinutes < 0 {
		return "negative estimated_minutes"
	}
	return ""
}

// cleanSubtasks drops stubs missing text or a 1-based order. The 3-7 step
// heuristic is advisory prompt policy and is deliberately not re-checked
// here.
func cleanSubtasks(stubs []SubtaskStub) []SubtaskStub {
	if len(stubs) == 0 {
		return nil
	}
	out := make([]SubtaskStub, 0, len(stubs))
	for _, s := range stubs {
		if strings.TrimSpace(s.Text) == "" || s.Order < 1 {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

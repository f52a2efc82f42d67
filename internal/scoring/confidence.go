// Package scoring derives heuristic completeness scores for extracted
// thoughts. Confidence measures how fully populated a record is, not whether
// the model classified it correctly.
package scoring

import "github.com/thebtf/clearhead/pkg/models"

const (
	base      = 0.5
	increment = 0.1
)

// Confidence computes an additive completeness score in [0, 1]: 0.5 base,
// +0.1 each for a present type, a present importance, a non-empty category,
// and, for tasks only, a next action and a deadline. Deterministic, no side
// effects.
func Confidence(t *models.Thought) float64 {
	score := base

	if t.Type != "" {
		score += increment
	}
	if t.Importance != "" {
		score += increment
	}
	if t.Type == models.ThoughtTypeTask && t.NextAction.Valid && t.NextAction.String != "" {
		score += increment
	}
	if t.Type == models.ThoughtTypeTask && t.Deadline.Valid && t.Deadline.String != "" {
		score += increment
	}
	if t.Category != "" {
		score += increment
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

package extract

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tiktoken-go/tokenizer"
)

// MaxTranscriptTokens caps how much of a transcript is embedded in the user
// prompt. Long voice rambles get truncated rather than rejected.
const MaxTranscriptTokens = 6000

// systemPrompt fixes the classification and subtask policies. Downstream UI
// partitions on the type vocabulary, so the remapping rules here must stay
// stable.
const systemPrompt = `You organize messy personal "mind dumps" into discrete, structured thoughts.

Decompose the transcript into individual thoughts. Classify each with exactly one type:
- "task": actionable items, plans, or intentions. Keep as "task".
- "idea": creative or exploratory thoughts. Keep as "idea".
- "question": things the user is wondering about. Keep as "question".
- "reflection": thoughts about past experience or introspection, surfaced as notes.
- "reminder": ALWAYS output as "task" instead - reminders are actionable.
- "event": if it describes something in the past, output "reflection". If it describes something future or planned, output "task".

For each thought also provide:
- "importance": "high", "medium", or "low".
- "deadline": absolute ISO 8601 timestamp if the text implies one, else null. Use the current time and timezone given in the request to resolve relative dates yourself whenever possible.
- "estimated_minutes": integer estimate, else null.
- "category": short free-text label (e.g. "family", "work", "health").
- "next_action": for tasks, one short concrete first action, else null.
- "sentiment": a single word.
- "resurface_timing": when to proactively re-present this thought ("tomorrow morning", "2 days before deadline", an ISO timestamp, ...), else null.
- "related_indices": 0-based indices of related thoughts in this same list.
- "subtasks": ONLY for large, vague, or overwhelming tasks, break the task into 3-7 logically ordered steps, each {"text": ..., "order": 1-based}. Make the first step deliberately trivial (an "open", "create", or "find" style action) so it is easy to start. Use null for simple single-action tasks.

Respond with a strict JSON object and nothing else:
{"summary": string, "priorities": [exactly 3 strings], "insights": string, "thoughts": [...]}`

func buildUserPrompt(transcript, timezone string, referenceNow time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Current time: %s\n", referenceNow.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Timezone: %s\n\n", timezone))
	sb.WriteString("Transcript:\n")
	sb.WriteString(truncateTokens(transcript, MaxTranscriptTokens))
	return sb.String()
}

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// truncateTokens trims text to at most maxTokens model tokens. If the
// tokenizer is unavailable it falls back to a conservative rune estimate.
func truncateTokens(text string, maxTokens int) string {
	codecOnce.Do(func() {
		c, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err == nil {
			codec = c
		}
	})

	if codec == nil {
		// ~4 chars per token on English text
		runes := []rune(text)
		if len(runes) <= maxTokens*4 {
			return text
		}
		return string(runes[:maxTokens*4]) + "... (truncated)"
	}

	ids, _, err := codec.Encode(text)
	if err != nil || len(ids) <= maxTokens {
		return text
	}

	truncated, err := codec.Decode(ids[:maxTokens])
	if err != nil {
		return text
	}
	return truncated + "... (truncated)"
}

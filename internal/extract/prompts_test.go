package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildUserPromptLayout(t *testing.T) {
	now := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	got := buildUserPrompt("call mom tomorrow", "America/New_York", now)

	assert.Contains(t, got, "Current time: 2025-01-06T10:00:00Z")
	assert.Contains(t, got, "Timezone: America/New_York")
	assert.Contains(t, got, "Transcript:\ncall mom tomorrow")
}

func TestTruncateTokensShortTextUntouched(t *testing.T) {
	text := "a short transcript"
	assert.Equal(t, text, truncateTokens(text, MaxTranscriptTokens))
}

func TestTruncateTokensLongText(t *testing.T) {
	long := strings.Repeat("thoughts about many different things ", 5000)
	got := truncateTokens(long, 100)

	assert.Less(t, len(got), len(long))
	assert.True(t, strings.HasSuffix(got, "... (truncated)"))
}

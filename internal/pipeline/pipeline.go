// Package pipeline drives one mind dump through transcription, extraction,
// itemization, and persistence.
//
// The unit of atomicity is the single thought (plus its subtask children and
// embedding), not the dump: a failed item is logged and skipped while its
// siblings proceed, and the dump always reaches its terminal processed state.
// Blocking a whole dump on one bad item would strand user data indefinitely.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/clearhead/internal/extract"
	"github.com/thebtf/clearhead/internal/resurface"
	"github.com/thebtf/clearhead/internal/scoring"
	"github.com/thebtf/clearhead/pkg/models"
)

// DumpStore is the dump persistence collaborator.
type DumpStore interface {
	GetDumpByID(ctx context.Context, id int64) (*models.MindDump, error)
	UpdateRawText(ctx context.Context, id int64, text string) error
	MarkProcessed(ctx context.Context, id int64, modelVersion string) error
}

// ThoughtStore is the thought persistence collaborator.
type ThoughtStore interface {
	CreateThought(ctx context.Context, t *models.Thought) (int64, error)
	CreateRelation(ctx context.Context, parentID, childID int64, relation string) error
}

// VectorStore is the embedding persistence collaborator.
type VectorStore interface {
	UpsertVector(ctx context.Context, v *models.ThoughtVector) error
}

// Transcriber converts referenced audio to text. A nil Transcriber means
// voice dumps cannot be processed and are terminally marked processed.
type Transcriber interface {
	Transcribe(ctx context.Context, audioRef string) (string, error)
}

// Extractor converts one transcript into analyzed content.
type Extractor interface {
	Extract(ctx context.Context, transcript, timezone string, referenceNow time.Time) (*extract.AnalyzedContent, error)
}

// Embedder produces one vector per thought text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Deps bundles the pipeline's collaborators.
type Deps struct {
	Dumps    DumpStore
	Thoughts ThoughtStore
	Vectors  VectorStore

	Transcriber Transcriber // optional
	Extractor   Extractor
	Embedder    Embedder // optional

	// ModelVersion is stamped on dumps when they reach the processed state.
	ModelVersion string
	// Timezone is the IANA zone forwarded to extraction and used for
	// wall-clock resurface anchors.
	Timezone string

	// Clock supplies the single referenceNow for one run. Every
	// time-relative decision within a run sees the same instant; tests
	// inject a fixed clock. Defaults to time.Now.
	Clock func() time.Time

	// Notifier receives progress events. Optional.
	Notifier Notifier
}

// Pipeline processes mind dumps. Safe for concurrent use; runs for distinct
// dumps share no mutable state.
type Pipeline struct {
	deps    Deps
	loc     *time.Location
	metrics *pipelineMetrics
}

// New creates a pipeline. The timezone is resolved once; an unknown zone
// falls back to UTC with a warning.
func New(deps Deps) *Pipeline {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Timezone == "" {
		deps.Timezone = "UTC"
	}

	loc, err := time.LoadLocation(deps.Timezone)
	if err != nil {
		log.Warn().Str("timezone", deps.Timezone).Msg("Unknown timezone, using UTC")
		loc = time.UTC
		deps.Timezone = "UTC"
	}

	return &Pipeline{deps: deps, loc: loc, metrics: newPipelineMetrics()}
}

// Process drives one dump to its terminal state. The returned error covers
// only "could not even load the dump"; every downstream failure is converted
// into a terminal-dump or skip-item outcome per the error taxonomy, and the
// dump is marked processed regardless.
func (p *Pipeline) Process(ctx context.Context, dumpID int64) error {
	dump, err := p.deps.Dumps.GetDumpByID(ctx, dumpID)
	if err != nil {
		return fmt.Errorf("load dump %d: %w", dumpID, err)
	}
	if dump == nil {
		return fmt.Errorf("dump %d not found", dumpID)
	}
	if dump.Processed {
		log.Debug().Int64("dumpId", dump.ID).Msg("Dump already processed, skipping")
		return nil
	}

	referenceNow := p.deps.Clock().In(p.loc)

	transcript, ok := p.resolveTranscript(ctx, dump)
	if !ok {
		p.finish(ctx, dump, "transcription_failed", 0)
		return nil
	}
	p.notify(Event{DumpID: dump.ID, DumpUID: dump.UID, Stage: StageTranscribed})

	content, err := p.deps.Extractor.Extract(ctx, transcript, p.deps.Timezone, referenceNow)
	if err != nil {
		log.Warn().Err(err).Int64("dumpId", dump.ID).Msg("Extraction failed, marking dump processed with no thoughts")
		p.finish(ctx, dump, "extraction_failed", 0)
		return nil
	}

	items, discards := extract.Validate(content)
	for _, d := range discards {
		log.Warn().Int64("dumpId", dump.ID).Int("index", d.Index).Str("reason", d.Reason).Msg("Dropping invalid extracted item")
		p.metrics.itemsSkipped.Add(ctx, 1)
		p.notify(Event{DumpID: dump.ID, DumpUID: dump.UID, Stage: StageItemSkipped, Detail: d.Reason})
	}
	if len(items) == 0 {
		log.Info().Int64("dumpId", dump.ID).Msg("Extraction produced no usable items")
		p.finish(ctx, dump, "no_items", 0)
		return nil
	}
	p.notify(Event{DumpID: dump.ID, DumpUID: dump.UID, Stage: StageExtracted, Detail: content.Summary})

	persisted := 0
	for i := range items {
		if p.processItem(ctx, dump, &items[i], referenceNow) {
			persisted++
		}
	}

	p.finish(ctx, dump, "ok", persisted)
	return nil
}

// resolveTranscript returns the text to extract from, running speech-to-text
// for voice dumps. A false result is terminal for the dump.
func (p *Pipeline) resolveTranscript(ctx context.Context, dump *models.MindDump) (string, bool) {
	if !dump.NeedsTranscription() {
		text := strings.TrimSpace(dump.RawText)
		if text == "" || text == models.TranscribingPlaceholder {
			log.Warn().Int64("dumpId", dump.ID).Msg("Dump has no usable text")
			return "", false
		}
		return text, true
	}

	if p.deps.Transcriber == nil {
		log.Warn().Int64("dumpId", dump.ID).Msg("No transcriber configured, voice dump cannot be processed")
		return "", false
	}

	text, err := p.deps.Transcriber.Transcribe(ctx, dump.AudioRef.String)
	if err != nil || strings.TrimSpace(text) == "" {
		log.Warn().Err(err).Int64("dumpId", dump.ID).Str("audioRef", dump.AudioRef.String).Msg("Transcription failed")
		return "", false
	}

	// Overwrite the "[Transcribing...]" placeholder. The transcript in hand
	// is authoritative even if this write fails.
	if err := p.deps.Dumps.UpdateRawText(ctx, dump.ID, text); err != nil {
		log.Warn().Err(err).Int64("dumpId", dump.ID).Msg("Failed to store transcript")
	}

	return text, true
}

// processItem materializes one extracted item as a thought with its subtask
// children and embedding. Returns whether the parent thought persisted.
func (p *Pipeline) processItem(ctx context.Context, dump *models.MindDump, item *extract.RawThought, referenceNow time.Time) bool {
	thought := p.buildThought(dump, item, referenceNow)

	parentID, err := p.deps.Thoughts.CreateThought(ctx, thought)
	if err != nil {
		log.Error().Err(err).Int64("dumpId", dump.ID).Str("text", item.Text).Msg("Failed to persist thought, skipping item")
		p.metrics.itemsSkipped.Add(ctx, 1)
		p.notify(Event{DumpID: dump.ID, DumpUID: dump.UID, Stage: StageItemSkipped, Detail: "persistence failed"})
		return false
	}
	p.metrics.thoughtsPersisted.Add(ctx, 1)
	p.notify(Event{DumpID: dump.ID, DumpUID: dump.UID, Stage: StageThoughtPersisted, ThoughtID: parentID})

	for _, stub := range item.Subtasks {
		p.promoteSubtask(ctx, dump, thought, parentID, stub)
	}

	p.embedThought(ctx, parentID, thought.Text)
	return true
}

// buildThought assembles the persisted record: ownership, resolved times,
// and the completeness score. The model's declared type passes through
// untouched; remapping happened at extraction.
func (p *Pipeline) buildThought(dump *models.MindDump, item *extract.RawThought, referenceNow time.Time) *models.Thought {
	var deadline *time.Time
	if ts, ok := resurface.ParseAbsolute(item.Deadline, p.loc); ok {
		deadline = &ts
	}

	var resurfaceAt *time.Time
	if item.ResurfaceTiming != "" {
		resurfaceAt = resurface.Resolve(item.ResurfaceTiming, referenceNow, deadline)
	} else if deadline != nil {
		if schedule := resurface.ScheduleForDeadline(*deadline, referenceNow); len(schedule) > 0 {
			resurfaceAt = &schedule[0]
		}
	}

	thought := &models.Thought{
		DumpID:     dump.ID,
		UserID:     dump.UserID,
		Text:       item.Text,
		Type:       models.ThoughtType(item.Type),
		Importance: models.Importance(item.Importance),
		Category:   item.Category,
		Sentiment:  item.Sentiment,
		Status:     models.ThoughtStatusOpen,
	}
	if deadline != nil {
		thought.Deadline = sql.NullString{String: formatUTC(*deadline), Valid: true}
	}
	if resurfaceAt != nil {
		thought.ResurfaceAt = sql.NullString{String: formatUTC(*resurfaceAt), Valid: true}
	}
	if item.EstimatedMinutes != nil {
		thought.EstimatedMinutes = sql.NullInt64{Int64: int64(*item.EstimatedMinutes), Valid: true}
	}
	if item.NextAction != "" {
		thought.NextAction = sql.NullString{String: item.NextAction, Valid: true}
	}

	thought.Confidence = scoring.Confidence(thought)
	return thought
}

// promoteSubtask is the explicit two-step stub promotion: persist the child
// thought, then link it. The relation row is written only after the child
// exists; a failed child leaves no dangling edge.
func (p *Pipeline) promoteSubtask(ctx context.Context, dump *models.MindDump, parent *models.Thought, parentID int64, stub extract.SubtaskStub) {
	child := &models.Thought{
		DumpID:     dump.ID,
		UserID:     dump.UserID,
		Text:       stub.Text,
		Type:       models.ThoughtTypeTask,
		Importance: parent.Importance,
		Category:   parent.Category,
		Sentiment:  "neutral",
		Status:     models.ThoughtStatusOpen,
	}
	child.Confidence = scoring.Confidence(child)

	childID, err := p.deps.Thoughts.CreateThought(ctx, child)
	if err != nil {
		log.Error().Err(err).Int64("parentId", parentID).Str("text", stub.Text).Msg("Failed to persist subtask thought")
		return
	}
	p.metrics.thoughtsPersisted.Add(ctx, 1)

	if err := p.deps.Thoughts.CreateRelation(ctx, parentID, childID, models.RelationSubtask); err != nil {
		log.Error().Err(err).Int64("parentId", parentID).Int64("childId", childID).Msg("Failed to persist subtask relation")
	}
}

// embedThought attaches a vector to a persisted thought. Purely additive:
// every failure here is swallowed and the thought stands without a vector.
func (p *Pipeline) embedThought(ctx context.Context, thoughtID int64, text string) {
	if p.deps.Embedder == nil {
		return
	}

	vec, err := p.deps.Embedder.Embed(ctx, text)
	if err != nil {
		log.Debug().Err(err).Int64("thoughtId", thoughtID).Msg("Embedding failed, thought stored without vector")
		p.metrics.embedFailures.Add(ctx, 1)
		return
	}

	v := &models.ThoughtVector{
		ThoughtID: thoughtID,
		Embedding: vec,
		Model:     p.deps.Embedder.Model(),
		Dims:      len(vec),
	}
	if err := p.deps.Vectors.UpsertVector(ctx, v); err != nil {
		log.Warn().Err(err).Int64("thoughtId", thoughtID).Msg("Failed to persist thought vector")
		p.metrics.embedFailures.Add(ctx, 1)
	}
}

// finish stamps the terminal state. Processed is reached even on partial or
// total failure so a dump is never re-driven automatically.
func (p *Pipeline) finish(ctx context.Context, dump *models.MindDump, outcome string, persisted int) {
	if err := p.deps.Dumps.MarkProcessed(ctx, dump.ID, p.deps.ModelVersion); err != nil {
		log.Error().Err(err).Int64("dumpId", dump.ID).Msg("Failed to mark dump processed")
		return
	}

	p.metrics.dumpsProcessed.Add(ctx, 1)
	p.notify(Event{DumpID: dump.ID, DumpUID: dump.UID, Stage: StageProcessed, Detail: outcome})
	log.Info().
		Int64("dumpId", dump.ID).
		Str("outcome", outcome).
		Int("thoughts", persisted).
		Msg("Dump processed")
}

func (p *Pipeline) notify(e Event) {
	if p.deps.Notifier != nil {
		p.deps.Notifier.Publish(e)
	}
}

// formatUTC normalizes stored timestamps to UTC RFC3339 so string comparison
// in due queries stays consistent across zone offsets.
func formatUTC(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/clearhead/internal/extract"
	"github.com/thebtf/clearhead/pkg/models"
)

// referenceNow for all runs: 2025-01-06T10:00:00Z.
var testNow = time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)

type relationRow struct {
	parentID int64
	childID  int64
	relation string
}

// memStore is an in-memory stand-in for all three persistence collaborators.
type memStore struct {
	mu        sync.Mutex
	dumps     map[int64]*models.MindDump
	thoughts  []*models.Thought
	relations []relationRow
	vectors   map[int64][]float32
	nextID    int64

	failTexts map[string]bool // CreateThought fails for these texts
}

func newMemStore() *memStore {
	return &memStore{
		dumps:     make(map[int64]*models.MindDump),
		vectors:   make(map[int64][]float32),
		failTexts: make(map[string]bool),
	}
}

func (m *memStore) addDump(d *models.MindDump) *models.MindDump {
	m.nextID++
	d.ID = m.nextID
	d.UID = fmt.Sprintf("uid-%d", d.ID)
	m.dumps[d.ID] = d
	return d
}

func (m *memStore) GetDumpByID(_ context.Context, id int64) (*models.MindDump, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dumps[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) UpdateRawText(_ context.Context, id int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dumps[id].RawText = text
	return nil
}

func (m *memStore) MarkProcessed(_ context.Context, id int64, modelVersion string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dumps[id].Processed = true
	m.dumps[id].ModelVersion = sql.NullString{String: modelVersion, Valid: true}
	return nil
}

func (m *memStore) CreateThought(_ context.Context, t *models.Thought) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTexts[t.Text] {
		return 0, errors.New("disk full")
	}
	m.nextID++
	cp := *t
	cp.ID = m.nextID
	m.thoughts = append(m.thoughts, &cp)
	return cp.ID, nil
}

func (m *memStore) CreateRelation(_ context.Context, parentID, childID int64, relation string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relations = append(m.relations, relationRow{parentID, childID, relation})
	return nil
}

func (m *memStore) UpsertVector(_ context.Context, v *models.ThoughtVector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors[v.ThoughtID] = v.Embedding
	return nil
}

type fakeExtractor struct {
	content *extract.AnalyzedContent
	err     error
	calls   int
}

func (f *fakeExtractor) Extract(_ context.Context, _, _ string, _ time.Time) (*extract.AnalyzedContent, error) {
	f.calls++
	return f.content, f.err
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string) (string, error) {
	return f.text, f.err
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 0.5, -0.5}, nil
}

func (f *fakeEmbedder) Model() string { return "text-embedding-3-small" }

func newTestPipeline(store *memStore, ex Extractor, tr Transcriber, em Embedder) *Pipeline {
	return New(Deps{
		Dumps:        store,
		Thoughts:     store,
		Vectors:      store,
		Transcriber:  tr,
		Extractor:    ex,
		Embedder:     em,
		ModelVersion: "extractor-v1",
		Timezone:     "America/New_York",
		Clock:        func() time.Time { return testNow },
	})
}

func textDump(store *memStore, text string) *models.MindDump {
	return store.addDump(&models.MindDump{
		UserID:  "user-1",
		Source:  models.DumpSourceText,
		RawText: text,
	})
}

func TestProcessWeddingScenario(t *testing.T) {
	store := newMemStore()
	dump := textDump(store, "call mom tomorrow, and I need to plan my sister's wedding")

	ex := &fakeExtractor{content: &extract.AnalyzedContent{
		Summary:    "family calls and wedding planning",
		Priorities: []string{"call mom", "start wedding plan", "rest"},
		Thoughts: []extract.RawThought{
			{
				Text:            "call mom",
				Type:            "task",
				Importance:      "high",
				Category:        "family",
				NextAction:      "dial mom",
				Sentiment:       "warm",
				ResurfaceTiming: "tomorrow morning",
			},
			{
				Text:       "plan my sister's wedding",
				Type:       "task",
				Importance: "high",
				Category:   "family",
				NextAction: "open a planning doc",
				Sentiment:  "excited",
				Subtasks: []extract.SubtaskStub{
					{Text: "open a new wedding planning document", Order: 1},
					{Text: "list must-invite guests", Order: 2},
					{Text: "call three venues for quotes", Order: 3},
				},
			},
		},
	}}

	p := newTestPipeline(store, ex, nil, &fakeEmbedder{})
	require.NoError(t, p.Process(context.Background(), dump.ID))

	// 2 top-level thoughts plus 3 subtask children.
	require.Len(t, store.thoughts, 5)
	require.Len(t, store.relations, 3)

	callMom := store.thoughts[0]
	assert.Equal(t, models.ThoughtTypeTask, callMom.Type)
	// Tomorrow 09:00 America/New_York == 14:00 UTC.
	require.True(t, callMom.ResurfaceAt.Valid)
	assert.Equal(t, "2025-01-07T14:00:00Z", callMom.ResurfaceAt.String)

	wedding := store.thoughts[1]
	assert.Equal(t, models.ThoughtTypeTask, wedding.Type)

	first := store.thoughts[2]
	assert.True(t, strings.HasPrefix(first.Text, "open"), "first subtask should be a trivial starter step")
	for _, child := range store.thoughts[2:] {
		assert.Equal(t, models.ThoughtTypeTask, child.Type)
		assert.Equal(t, wedding.Importance, child.Importance)
		assert.Equal(t, "neutral", child.Sentiment)
	}
	for i, rel := range store.relations {
		assert.Equal(t, wedding.ID, rel.parentID)
		assert.Equal(t, store.thoughts[2+i].ID, rel.childID)
		assert.Equal(t, models.RelationSubtask, rel.relation)
	}

	for _, th := range store.thoughts {
		assert.GreaterOrEqual(t, th.Confidence, 0.0)
		assert.LessOrEqual(t, th.Confidence, 1.0)
	}

	// Parent thoughts got vectors, best-effort.
	assert.Contains(t, store.vectors, callMom.ID)
	assert.Contains(t, store.vectors, wedding.ID)

	got := store.dumps[dump.ID]
	assert.True(t, got.Processed)
	assert.Equal(t, "extractor-v1", got.ModelVersion.String)
}

func TestProcessExtractionFailureIsTerminal(t *testing.T) {
	store := newMemStore()
	dump := textDump(store, "some rambling")

	ex := &fakeExtractor{err: fmt.Errorf("%w: response is not valid JSON", extract.ErrExtraction)}
	p := newTestPipeline(store, ex, nil, &fakeEmbedder{})

	require.NoError(t, p.Process(context.Background(), dump.ID))
	assert.Empty(t, store.thoughts)
	assert.True(t, store.dumps[dump.ID].Processed)
}

func TestProcessInvalidItemSkippedOthersPersist(t *testing.T) {
	store := newMemStore()
	dump := textDump(store, "three things")

	ex := &fakeExtractor{content: &extract.AnalyzedContent{Thoughts: []extract.RawThought{
		{Text: "first", Type: "task", Importance: "medium"},
		{Text: "second", Type: "banana"},
		{Text: "third", Type: "idea"},
	}}}
	p := newTestPipeline(store, ex, nil, &fakeEmbedder{})

	require.NoError(t, p.Process(context.Background(), dump.ID))
	require.Len(t, store.thoughts, 2)
	assert.Equal(t, "first", store.thoughts[0].Text)
	assert.Equal(t, "third", store.thoughts[1].Text)
	assert.True(t, store.dumps[dump.ID].Processed)
}

func TestProcessZeroItemsIsTerminal(t *testing.T) {
	store := newMemStore()
	dump := textDump(store, "silence")

	ex := &fakeExtractor{content: &extract.AnalyzedContent{Thoughts: nil}}
	p := newTestPipeline(store, ex, nil, &fakeEmbedder{})

	require.NoError(t, p.Process(context.Background(), dump.ID))
	assert.Empty(t, store.thoughts)
	assert.True(t, store.dumps[dump.ID].Processed)
}

func TestProcessPersistenceFailureSkipsOnlyThatItem(t *testing.T) {
	store := newMemStore()
	store.failTexts["unlucky"] = true
	dump := textDump(store, "two things")

	ex := &fakeExtractor{content: &extract.AnalyzedContent{Thoughts: []extract.RawThought{
		{Text: "unlucky", Type: "task"},
		{Text: "fine", Type: "idea"},
	}}}
	p := newTestPipeline(store, ex, nil, &fakeEmbedder{})

	require.NoError(t, p.Process(context.Background(), dump.ID))
	require.Len(t, store.thoughts, 1)
	assert.Equal(t, "fine", store.thoughts[0].Text)
	assert.True(t, store.dumps[dump.ID].Processed)
}

func TestProcessEmbeddingFailureIsSwallowed(t *testing.T) {
	store := newMemStore()
	dump := textDump(store, "one thing")

	ex := &fakeExtractor{content: &extract.AnalyzedContent{Thoughts: []extract.RawThought{
		{Text: "a thought", Type: "idea"},
	}}}
	p := newTestPipeline(store, ex, nil, &fakeEmbedder{err: errors.New("rate limited")})

	require.NoError(t, p.Process(context.Background(), dump.ID))
	require.Len(t, store.thoughts, 1)
	assert.Empty(t, store.vectors)
	assert.True(t, store.dumps[dump.ID].Processed)
}

func TestProcessVoiceDumpTranscribesFirst(t *testing.T) {
	store := newMemStore()
	dump := store.addDump(&models.MindDump{
		UserID:   "user-1",
		Source:   models.DumpSourceVoice,
		RawText:  models.TranscribingPlaceholder,
		AudioRef: sql.NullString{String: "gs://bucket/dump.ogg", Valid: true},
	})

	ex := &fakeExtractor{content: &extract.AnalyzedContent{Thoughts: []extract.RawThought{
		{Text: "water the plants", Type: "task"},
	}}}
	tr := &fakeTranscriber{text: "water the plants this evening"}
	p := newTestPipeline(store, ex, tr, &fakeEmbedder{})

	require.NoError(t, p.Process(context.Background(), dump.ID))
	assert.Equal(t, "water the plants this evening", store.dumps[dump.ID].RawText)
	require.Len(t, store.thoughts, 1)
	assert.True(t, store.dumps[dump.ID].Processed)
}

func TestProcessTranscriptionFailureIsTerminal(t *testing.T) {
	store := newMemStore()
	dump := store.addDump(&models.MindDump{
		UserID:   "user-1",
		Source:   models.DumpSourceVoice,
		RawText:  models.TranscribingPlaceholder,
		AudioRef: sql.NullString{String: "gs://bucket/dump.ogg", Valid: true},
	})

	ex := &fakeExtractor{}
	tr := &fakeTranscriber{err: errors.New("unavailable")}
	p := newTestPipeline(store, ex, tr, &fakeEmbedder{})

	require.NoError(t, p.Process(context.Background(), dump.ID))
	assert.Empty(t, store.thoughts)
	assert.True(t, store.dumps[dump.ID].Processed)
	assert.Zero(t, ex.calls, "extraction must not run without a transcript")
}

func TestProcessAlreadyProcessedDumpIsIdempotent(t *testing.T) {
	store := newMemStore()
	dump := textDump(store, "anything")
	store.dumps[dump.ID].Processed = true

	ex := &fakeExtractor{}
	p := newTestPipeline(store, ex, nil, &fakeEmbedder{})

	require.NoError(t, p.Process(context.Background(), dump.ID))
	assert.Zero(t, ex.calls)
	assert.Empty(t, store.thoughts)
}

func TestProcessUnknownDump(t *testing.T) {
	store := newMemStore()
	p := newTestPipeline(store, &fakeExtractor{}, nil, nil)

	err := p.Process(context.Background(), 999)
	assert.Error(t, err)
}

func TestProcessDeadlineWithoutTimingUsesSchedule(t *testing.T) {
	store := newMemStore()
	dump := textDump(store, "file taxes")

	ex := &fakeExtractor{content: &extract.AnalyzedContent{Thoughts: []extract.RawThought{
		{Text: "file taxes", Type: "task", Deadline: "2025-01-20T17:00:00Z"},
	}}}
	p := newTestPipeline(store, ex, nil, nil)

	require.NoError(t, p.Process(context.Background(), dump.ID))
	require.Len(t, store.thoughts, 1)
	th := store.thoughts[0]
	require.True(t, th.ResurfaceAt.Valid)
	// Earliest upcoming candidate: two days before the deadline at 09:00
	// in the deadline's own zone.
	assert.Equal(t, "2025-01-18T09:00:00Z", th.ResurfaceAt.String)
	require.True(t, th.Deadline.Valid)
	assert.Equal(t, "2025-01-20T17:00:00Z", th.Deadline.String)
}

func TestProcessPassesThroughModelDeclaredTypes(t *testing.T) {
	// Remapping is the model's contract; the pipeline must not re-derive it.
	store := newMemStore()
	dump := textDump(store, "mixed bag")

	ex := &fakeExtractor{content: &extract.AnalyzedContent{Thoughts: []extract.RawThought{
		{Text: "kept as declared", Type: "reflection"},
		{Text: "model ignored the remap", Type: "reminder"},
	}}}
	p := newTestPipeline(store, ex, nil, nil)

	require.NoError(t, p.Process(context.Background(), dump.ID))
	require.Len(t, store.thoughts, 2)
	assert.Equal(t, models.ThoughtTypeReflection, store.thoughts[0].Type)
	assert.Equal(t, models.ThoughtTypeReminder, store.thoughts[1].Type)
}

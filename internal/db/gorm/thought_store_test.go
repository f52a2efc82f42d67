package gorm

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/clearhead/pkg/models"
)

func seedDump(t *testing.T, store *Store, userID string) int64 {
	t.Helper()
	id, _, err := NewDumpStore(store).CreateDump(context.Background(), &models.MindDump{
		UserID: userID, Source: models.DumpSourceText, RawText: "seed",
	})
	require.NoError(t, err)
	return id
}

func TestCreateAndGetThought(t *testing.T) {
	store := testStore(t)
	thoughts := NewThoughtStore(store)
	ctx := context.Background()
	dumpID := seedDump(t, store, "user-1")

	id, err := thoughts.CreateThought(ctx, &models.Thought{
		DumpID:           dumpID,
		UserID:           "user-1",
		Text:             "book dentist appointment",
		Type:             models.ThoughtTypeTask,
		Importance:       models.ImportanceHigh,
		Deadline:         sql.NullString{String: "2025-02-01T00:00:00Z", Valid: true},
		EstimatedMinutes: sql.NullInt64{Int64: 15, Valid: true},
		Category:         "health",
		NextAction:       sql.NullString{String: "find the phone number", Valid: true},
		Sentiment:        "neutral",
		Confidence:       0.9,
		Status:           models.ThoughtStatusOpen,
	})
	require.NoError(t, err)

	got, err := thoughts.GetThoughtByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "book dentist appointment", got.Text)
	assert.Equal(t, models.ThoughtTypeTask, got.Type)
	assert.Equal(t, models.ImportanceHigh, got.Importance)
	assert.Equal(t, int64(15), got.EstimatedMinutes.Int64)
	assert.Equal(t, "find the phone number", got.NextAction.String)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)

	missing, err := thoughts.GetThoughtByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateThoughtRejectsUnknownType(t *testing.T) {
	store := testStore(t)
	thoughts := NewThoughtStore(store)
	dumpID := seedDump(t, store, "user-1")

	_, err := thoughts.CreateThought(context.Background(), &models.Thought{
		DumpID: dumpID, UserID: "user-1", Text: "x", Type: "banana", Status: models.ThoughtStatusOpen,
	})
	assert.Error(t, err)
}

func TestSubtaskRelationsAndChildren(t *testing.T) {
	store := testStore(t)
	thoughts := NewThoughtStore(store)
	ctx := context.Background()
	dumpID := seedDump(t, store, "user-1")

	mk := func(text string) int64 {
		id, err := thoughts.CreateThought(ctx, &models.Thought{
			DumpID: dumpID, UserID: "user-1", Text: text,
			Type: models.ThoughtTypeTask, Status: models.ThoughtStatusOpen,
		})
		require.NoError(t, err)
		return id
	}
	parent := mk("plan party")
	child1 := mk("pick a date")
	child2 := mk("send invites")

	require.NoError(t, thoughts.CreateRelation(ctx, parent, child1, models.RelationSubtask))
	require.NoError(t, thoughts.CreateRelation(ctx, parent, child2, models.RelationSubtask))

	// Duplicate edges are rejected by the unique index.
	assert.Error(t, thoughts.CreateRelation(ctx, parent, child1, models.RelationSubtask))

	children, err := thoughts.GetChildren(ctx, parent, models.RelationSubtask)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "pick a date", children[0].Text)
	assert.Equal(t, "send invites", children[1].Text)

	rels, err := thoughts.GetRelationsByParent(ctx, parent)
	require.NoError(t, err)
	assert.Len(t, rels, 2)
}

func TestUpdateStatusAndResurface(t *testing.T) {
	store := testStore(t)
	thoughts := NewThoughtStore(store)
	ctx := context.Background()
	dumpID := seedDump(t, store, "user-1")

	id, err := thoughts.CreateThought(ctx, &models.Thought{
		DumpID: dumpID, UserID: "user-1", Text: "x",
		Type:        models.ThoughtTypeTask,
		ResurfaceAt: sql.NullString{String: "2025-01-07T09:00:00Z", Valid: true},
		Status:      models.ThoughtStatusOpen,
	})
	require.NoError(t, err)

	// Status-only update keeps the resurface time.
	require.NoError(t, thoughts.UpdateStatus(ctx, id, models.ThoughtStatusDone, nil))
	got, err := thoughts.GetThoughtByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ThoughtStatusDone, got.Status)
	assert.Equal(t, "2025-01-07T09:00:00Z", got.ResurfaceAt.String)

	// Snooze rewrites it.
	later := "2025-01-09T09:00:00Z"
	require.NoError(t, thoughts.UpdateStatus(ctx, id, models.ThoughtStatusSnoozed, &later))
	got, err = thoughts.GetThoughtByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ThoughtStatusSnoozed, got.Status)
	assert.Equal(t, later, got.ResurfaceAt.String)
}

func TestListDueOrdersAndFilters(t *testing.T) {
	store := testStore(t)
	thoughts := NewThoughtStore(store)
	ctx := context.Background()
	dumpID := seedDump(t, store, "user-1")

	mk := func(text, resurface string, status models.ThoughtStatus) {
		_, err := thoughts.CreateThought(ctx, &models.Thought{
			DumpID: dumpID, UserID: "user-1", Text: text,
			Type:        models.ThoughtTypeTask,
			ResurfaceAt: sql.NullString{String: resurface, Valid: resurface != ""},
			Status:      status,
		})
		require.NoError(t, err)
	}
	mk("second", "2025-01-06T14:00:00Z", models.ThoughtStatusOpen)
	mk("first", "2025-01-05T09:00:00Z", models.ThoughtStatusSnoozed)
	mk("not yet", "2025-03-01T09:00:00Z", models.ThoughtStatusOpen)
	mk("no schedule", "", models.ThoughtStatusOpen)
	mk("finished", "2025-01-05T09:00:00Z", models.ThoughtStatusDone)

	before := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	due, err := thoughts.ListDue(ctx, "user-1", before, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "first", due[0].Text)
	assert.Equal(t, "second", due[1].Text)
}

func TestCountByDump(t *testing.T) {
	store := testStore(t)
	thoughts := NewThoughtStore(store)
	ctx := context.Background()
	dumpID := seedDump(t, store, "user-1")

	for i := 0; i < 3; i++ {
		_, err := thoughts.CreateThought(ctx, &models.Thought{
			DumpID: dumpID, UserID: "user-1", Text: "t",
			Type: models.ThoughtTypeIdea, Status: models.ThoughtStatusOpen,
		})
		require.NoError(t, err)
	}

	count, err := thoughts.CountByDump(ctx, dumpID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentd-io/agentd/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	run := &domain.Run{
		RunID:     "run_1",
		AgentID:   "agent-a",
		Trigger:   domain.TriggerWebhook,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now(),
	}
	require.NoError(t, s.CreateRun(ctx, run))

	got, err := s.GetRun(ctx, "run_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.RunStatusRunning, got.Status)
	assert.Equal(t, domain.TriggerWebhook, got.Trigger)
	assert.Nil(t, got.EndedAt)

	require.NoError(t, s.UpdateRunCompleted(ctx, "run_1", domain.RunStatusFailed, []byte(`{"message":"boom"}`)))

	got, err = s.GetRun(ctx, "run_1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, got.Status)
	require.NotNil(t, got.EndedAt)
	assert.JSONEq(t, `{"message":"boom"}`, string(got.Error))
}

func TestGetRunMissing(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetRun(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateRun(ctx, &domain.Run{
		RunID: "run_1", AgentID: "a", Trigger: domain.TriggerManual,
		Status: domain.RunStatusRunning, StartedAt: time.Now(),
	}))

	for i, typ := range []domain.EventType{
		domain.EventTypeInvocationStarted,
		domain.EventTypeHandoffStarted,
		domain.EventTypeInvocationDone,
	} {
		require.NoError(t, s.CreateEvent(ctx, &domain.Event{
			EventID: "evt_" + string(rune('a'+i)),
			RunID:   "run_1",
			Ts:      int64(100 + i),
			Type:    typ,
			Payload: []byte(`{}`),
		}))
	}

	events, err := s.GetEvents(ctx, "run_1", 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, domain.EventTypeInvocationStarted, events[0].Type)
	assert.Equal(t, domain.EventTypeInvocationDone, events[2].Type)

	// afterTs filters already-seen events.
	events, err = s.GetEvents(ctx, "run_1", 100, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// limit caps the page size.
	events, err = s.GetEvents(ctx, "run_1", 0, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Now()
	for i, id := range []string{"run_1", "run_2", "run_3"} {
		require.NoError(t, s.CreateRun(ctx, &domain.Run{
			RunID: id, AgentID: "a", Trigger: domain.TriggerWebhook,
			Status: domain.RunStatusDone, StartedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run_3", runs[0].RunID)
}

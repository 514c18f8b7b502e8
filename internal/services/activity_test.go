package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnpath-backend-go/internal/models"
)

func TestClassifyEvent(t *testing.T) {
	cases := []struct {
		eventType string
		status    string
	}{
		{"idle.tab_blur", StatusAttentionDrift},
		{"video.pause", StatusAttentionDrift},
		{"video.buffer.start", StatusAttentionDrift},
		{"lesson.locked_click", StatusAttentionDrift},
		{"quiz.fail", StatusContentFriction},
		{"quiz.retry", StatusContentFriction},
		{"tutor.prompt.opened", StatusContentFriction},
		{"content.friction.report", StatusContentFriction},
		{"video.play", StatusEngaged},
		{"video.buffer.end", StatusEngaged},
		{"progress.snapshot", StatusEngaged},
		{"notes.created", StatusEngaged},
		{"quiz.pass", StatusEngaged},
		{"telemetry.heartbeat", ""},
		{"", ""},
	}
	for _, tc := range cases {
		status, _ := ClassifyEvent(tc.eventType, nil)
		assert.Equal(t, tc.status, status, "event type %q", tc.eventType)
	}
}

func TestClassifyEventPrefixOrder(t *testing.T) {
	// lesson.locked_click matches both the attention table and the
	// broader lesson. engagement prefix; attention wins.
	status, _ := ClassifyEvent("lesson.locked_click", nil)
	assert.Equal(t, StatusAttentionDrift, status)
}

func TestClassifyEventReasonFromPayload(t *testing.T) {
	payload := json.RawMessage(`{"reason":"Tab hidden for 90s"}`)
	status, reason := ClassifyEvent("idle.tab_blur", payload)
	assert.Equal(t, StatusAttentionDrift, status)
	assert.Equal(t, "Tab hidden for 90s", reason)

	_, fallback := ClassifyEvent("idle.tab_blur", json.RawMessage(`{"other":1}`))
	assert.Equal(t, "Idle or pause pattern detected (idle.tab_blur)", fallback)

	_, garbled := ClassifyEvent("idle.tab_blur", json.RawMessage(`not json`))
	assert.Contains(t, garbled, "idle.tab_blur")
}

func taggedEvent(userID, courseID, eventType string, createdAt time.Time) models.ActivityEvent {
	event := models.ActivityEvent{
		ID:        eventID(createdAt),
		UserID:    userID,
		CourseID:  courseID,
		EventType: eventType,
		CreatedAt: createdAt,
	}
	if status, reason := ClassifyEvent(eventType, nil); status != "" {
		event.DerivedStatus = &status
		event.StatusReason = &reason
	}
	return event
}

func eventID(ts time.Time) string {
	return ts.UTC().Format("20060102150405.000000000")
}

func TestDeriveStatusEmptyWindow(t *testing.T) {
	assert.Nil(t, DeriveStatus(nil))
	assert.Nil(t, DeriveStatus([]models.ActivityEvent{}))
}

func TestDeriveStatusPriority(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []models.ActivityEvent{
		taggedEvent("u1", "c1", "video.play", base),
		taggedEvent("u1", "c1", "idle.tab_blur", base.Add(1*time.Minute)),
		taggedEvent("u1", "c1", "quiz.fail", base.Add(2*time.Minute)),
		taggedEvent("u1", "c1", "video.resume", base.Add(3*time.Minute)),
	}

	status := DeriveStatus(events)
	require.NotNil(t, status)
	assert.Equal(t, StatusContentFriction, status.DerivedStatus)
	assert.Equal(t, "quiz.fail", status.EventType)
	// LastEventAt always reflects the newest event, not the picked one.
	assert.Equal(t, base.Add(3*time.Minute), status.LastEventAt)
}

func TestDeriveStatusDriftBeatsEngagement(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []models.ActivityEvent{
		taggedEvent("u1", "c1", "video.play", base),
		taggedEvent("u1", "c1", "idle.tab_blur", base.Add(time.Minute)),
	}
	status := DeriveStatus(events)
	require.NotNil(t, status)
	assert.Equal(t, StatusAttentionDrift, status.DerivedStatus)
}

func TestDeriveStatusUnknownWhenNothingTagged(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []models.ActivityEvent{
		taggedEvent("u1", "c1", "telemetry.heartbeat", base),
		taggedEvent("u1", "c1", "app.resize", base.Add(time.Minute)),
	}
	status := DeriveStatus(events)
	require.NotNil(t, status)
	assert.Equal(t, StatusUnknown, status.DerivedStatus)
	assert.Nil(t, status.StatusReason)
	assert.Equal(t, "app.resize", status.EventType)
}

func TestDeriveStatusOrderIndependent(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []models.ActivityEvent{
		taggedEvent("u1", "c1", "quiz.fail", base.Add(2*time.Minute)),
		taggedEvent("u1", "c1", "video.play", base),
		taggedEvent("u1", "c1", "idle.tab_blur", base.Add(1*time.Minute)),
	}
	forward := DeriveStatus(events)

	reversed := make([]models.ActivityEvent, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		reversed = append(reversed, events[i])
	}
	backward := DeriveStatus(reversed)

	require.NotNil(t, forward)
	require.NotNil(t, backward)
	assert.Equal(t, *forward, *backward)
}

type stubEventStore struct {
	window []models.ActivityEvent
}

func (s *stubEventStore) InsertEvents(ctx context.Context, events []models.ActivityEvent) error {
	s.window = append(s.window, events...)
	return nil
}

func (s *stubEventStore) WindowedEvents(ctx context.Context, courseID string, window int) ([]models.ActivityEvent, error) {
	return s.window, nil
}

func (s *stubEventStore) LearnerHistory(ctx context.Context, userID, courseID string, limit int, before *time.Time) ([]models.ActivityEvent, error) {
	return s.window, nil
}

func TestLatestStatusesOrderStableOnTimestampTies(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := &stubEventStore{window: []models.ActivityEvent{
		taggedEvent("u-charlie", "c1", "video.play", at),
		taggedEvent("u-alpha", "c1", "video.play", at),
		taggedEvent("u-bravo", "c1", "video.play", at.Add(time.Minute)),
	}}
	service := &ActivityService{Events: store, WindowSize: 20}

	for run := 0; run < 10; run++ {
		statuses, summary, err := service.LatestStatuses(context.Background(), "c1")
		require.NoError(t, err)
		require.Len(t, statuses, 3)
		assert.Equal(t, "u-bravo", statuses[0].UserID)
		assert.Equal(t, "u-alpha", statuses[1].UserID)
		assert.Equal(t, "u-charlie", statuses[2].UserID)
		assert.Equal(t, 3, summary.Engaged)
	}
}

func TestDeriveStatusDoesNotMutateInput(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []models.ActivityEvent{
		taggedEvent("u1", "c1", "video.play", base),
		taggedEvent("u1", "c1", "quiz.fail", base.Add(time.Minute)),
	}
	first := events[0].EventType
	_ = DeriveStatus(events)
	assert.Equal(t, first, events[0].EventType)
}

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"learnpath-backend-go/internal/config"
	"learnpath-backend-go/internal/models"
	"learnpath-backend-go/internal/services"
)

type fakeEventStore struct {
	events      []models.ActivityEvent
	insertCalls int
	failInsert  bool
}

func (f *fakeEventStore) InsertEvents(ctx context.Context, events []models.ActivityEvent) error {
	f.insertCalls++
	if f.failInsert {
		return fmt.Errorf("insert failed")
	}
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeEventStore) WindowedEvents(ctx context.Context, courseID string, window int) ([]models.ActivityEvent, error) {
	byUser := map[string][]models.ActivityEvent{}
	for _, event := range f.events {
		if event.CourseID == courseID {
			byUser[event.UserID] = append(byUser[event.UserID], event)
		}
	}
	out := []models.ActivityEvent{}
	for _, events := range byUser {
		sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.After(events[j].CreatedAt) })
		if len(events) > window {
			events = events[:window]
		}
		out = append(out, events...)
	}
	return out, nil
}

func (f *fakeEventStore) LearnerHistory(ctx context.Context, userID, courseID string, limit int, before *time.Time) ([]models.ActivityEvent, error) {
	matched := []models.ActivityEvent{}
	for _, event := range f.events {
		if event.UserID != userID || event.CourseID != courseID {
			continue
		}
		if before != nil && !event.CreatedAt.Before(*before) {
			continue
		}
		matched = append(matched, event)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

type fakeAssignmentStore struct {
	assignments map[string]bool
}

func (f *fakeAssignmentStore) IsActiveTutor(ctx context.Context, userID, courseID string) (bool, error) {
	return f.assignments[userID+"|"+courseID], nil
}

type fakeProgressStore struct {
	touched   []string
	snapshots map[string]int
}

func (f *fakeProgressStore) EnsureActive(ctx context.Context, userID, courseID string) error {
	f.touched = append(f.touched, userID+"|"+courseID)
	return nil
}

func (f *fakeProgressStore) ApplyProgress(ctx context.Context, userID, courseID string, percent int) error {
	if f.snapshots == nil {
		f.snapshots = map[string]int{}
	}
	f.snapshots[userID+"|"+courseID] = percent
	return nil
}

type testEnv struct {
	server   *Server
	router   http.Handler
	events   *fakeEventStore
	assigned *fakeAssignmentStore
	progress *fakeProgressStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	events := &fakeEventStore{}
	assigned := &fakeAssignmentStore{assignments: map[string]bool{}}
	progress := &fakeProgressStore{}
	cfg := config.Config{
		JWTIssuer:         "learnpath-test",
		StatusWindowSize:  20,
		MaxEventsPerBatch: 50,
	}
	server := &Server{
		Config: cfg,
		Tokens: services.TokenService{
			Secret:        []byte("test-access-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
			Issuer:        cfg.JWTIssuer,
			AccessTTL:     time.Hour,
			RefreshTTL:    24 * time.Hour,
		},
		Logger: zap.NewNop().Sugar(),
		Activity: &services.ActivityService{
			Events:      events,
			Assignments: assigned,
			Progress:    progress,
			WindowSize:  cfg.StatusWindowSize,
		},
		StatusHub: services.NewHub(func(status services.LearnerStatus) string {
			return status.CourseID
		}),
		MetricsHub: services.NewHub(func(services.MetricSample) string { return "" }),
	}
	return &testEnv{
		server:   server,
		router:   server.Router(),
		events:   events,
		assigned: assigned,
		progress: progress,
	}
}

func (e *testEnv) bearerFor(t *testing.T, userID, role string) string {
	t.Helper()
	signed, _, err := e.server.Tokens.CreateAccessToken(userID, userID+"@example.com", role, uuid.NewString(), uuid.NewString())
	require.NoError(t, err)
	return "Bearer " + signed
}

func (e *testEnv) do(t *testing.T, method, target, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func eventBody(courseID string, eventTypes ...string) IngestRequest {
	req := IngestRequest{}
	for _, eventType := range eventTypes {
		req.Events = append(req.Events, EventRecord{CourseID: courseID, EventType: eventType})
	}
	return req
}

func TestIngestEventsRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/activity/events", "", eventBody(uuid.NewString(), "video.play"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, env.events.insertCalls)
}

func TestIngestEventsStoresBatch(t *testing.T) {
	env := newTestEnv(t)
	learner := uuid.NewString()
	courseID := uuid.NewString()
	bearer := env.bearerFor(t, learner, "LEARNER")

	rec := env.do(t, http.MethodPost, "/api/activity/events", bearer,
		eventBody(courseID, "video.play", "idle.tab_blur"))
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	require.Len(t, env.events.events, 2)
	first := env.events.events[0]
	assert.Equal(t, learner, first.UserID)
	assert.Equal(t, courseID, first.CourseID)
	require.NotNil(t, first.DerivedStatus)
	assert.Equal(t, services.StatusEngaged, *first.DerivedStatus)
	assert.False(t, first.CreatedAt.IsZero())
	assert.Nil(t, first.OccurredAt)
	assert.Contains(t, env.progress.touched, learner+"|"+courseID)
}

func TestIngestEventsPreservesClientTimestamp(t *testing.T) {
	env := newTestEnv(t)
	bearer := env.bearerFor(t, uuid.NewString(), "LEARNER")
	courseID := uuid.NewString()
	occurred := "2026-03-01T10:00:00Z"

	req := IngestRequest{Events: []EventRecord{
		{CourseID: courseID, EventType: "video.play", OccurredAt: &occurred},
	}}
	rec := env.do(t, http.MethodPost, "/api/activity/events", bearer, req)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	require.Len(t, env.events.events, 1)
	stored := env.events.events[0]
	require.NotNil(t, stored.OccurredAt)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), *stored.OccurredAt)
	// Ingestion time stays server-assigned regardless of the client clock.
	assert.True(t, stored.CreatedAt.After(*stored.OccurredAt))
}

func TestIngestEventsRejectsEmptyBatch(t *testing.T) {
	env := newTestEnv(t)
	bearer := env.bearerFor(t, uuid.NewString(), "LEARNER")
	rec := env.do(t, http.MethodPost, "/api/activity/events", bearer, IngestRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.events.insertCalls)
}

func TestIngestEventsRejectsOversizedBatch(t *testing.T) {
	env := newTestEnv(t)
	bearer := env.bearerFor(t, uuid.NewString(), "LEARNER")
	courseID := uuid.NewString()
	req := IngestRequest{}
	for i := 0; i < 51; i++ {
		req.Events = append(req.Events, EventRecord{CourseID: courseID, EventType: "video.play"})
	}
	rec := env.do(t, http.MethodPost, "/api/activity/events", bearer, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	require.Len(t, body.Issues, 1)
	assert.Equal(t, "events", body.Issues[0].Field)
	assert.Zero(t, env.events.insertCalls)
}

func TestIngestEventsOneBadRecordFailsWholeBatch(t *testing.T) {
	env := newTestEnv(t)
	bearer := env.bearerFor(t, uuid.NewString(), "LEARNER")
	courseID := uuid.NewString()
	badTimestamp := "yesterday at noon"
	req := IngestRequest{Events: []EventRecord{
		{CourseID: courseID, EventType: "video.play"},
		{CourseID: "not-a-uuid", EventType: "video.pause"},
		{CourseID: courseID, EventType: "video.play", OccurredAt: &badTimestamp},
	}}
	rec := env.do(t, http.MethodPost, "/api/activity/events", bearer, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeError(t, rec)
	fields := make([]string, 0, len(body.Issues))
	for _, issue := range body.Issues {
		fields = append(fields, issue.Field)
	}
	assert.Contains(t, fields, "events[1].courseId")
	assert.Contains(t, fields, "events[2].occurredAt")
	for _, field := range fields {
		assert.False(t, strings.HasPrefix(field, "events[0]"))
	}
	assert.Zero(t, env.events.insertCalls)
	assert.Empty(t, env.events.events)
}

func TestIngestEventsAppliesProgressSnapshot(t *testing.T) {
	env := newTestEnv(t)
	learner := uuid.NewString()
	courseID := uuid.NewString()
	bearer := env.bearerFor(t, learner, "LEARNER")

	req := IngestRequest{Events: []EventRecord{
		{CourseID: courseID, EventType: "progress.snapshot", Payload: json.RawMessage(`{"percent":40}`)},
	}}
	rec := env.do(t, http.MethodPost, "/api/activity/events", bearer, req)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Equal(t, 40, env.progress.snapshots[learner+"|"+courseID])
}

func TestCourseLearnerStatusesAccess(t *testing.T) {
	env := newTestEnv(t)
	courseID := uuid.NewString()
	tutor := uuid.NewString()
	env.assigned.assignments[tutor+"|"+courseID] = true

	learner := uuid.NewString()
	rec := env.do(t, http.MethodPost, "/api/activity/events",
		env.bearerFor(t, learner, "LEARNER"), eventBody(courseID, "quiz.fail"))
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Assigned tutor sees the learner with a friction label.
	rec = env.do(t, http.MethodGet, "/api/activity/courses/"+courseID+"/learners",
		env.bearerFor(t, tutor, "TUTOR"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body LearnerStatusesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Learners, 1)
	assert.Equal(t, learner, body.Learners[0].UserID)
	assert.Equal(t, services.StatusContentFriction, body.Learners[0].DerivedStatus)
	assert.Equal(t, 1, body.Summary.ContentFriction)

	// Unassigned tutor and learner both get the same generic forbidden.
	rec = env.do(t, http.MethodGet, "/api/activity/courses/"+courseID+"/learners",
		env.bearerFor(t, uuid.NewString(), "TUTOR"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not allowed", decodeError(t, rec).Message)

	rec = env.do(t, http.MethodGet, "/api/activity/courses/"+courseID+"/learners",
		env.bearerFor(t, learner, "LEARNER"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admin passes without an assignment.
	rec = env.do(t, http.MethodGet, "/api/activity/courses/"+courseID+"/learners",
		env.bearerFor(t, uuid.NewString(), "ADMIN"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCourseLearnerStatusesOmitsSilentLearners(t *testing.T) {
	env := newTestEnv(t)
	courseID := uuid.NewString()
	rec := env.do(t, http.MethodGet, "/api/activity/courses/"+courseID+"/learners",
		env.bearerFor(t, uuid.NewString(), "ADMIN"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body LearnerStatusesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Empty(t, body.Learners)
	assert.Equal(t, services.StatusSummary{}, body.Summary)
}

func seedHistory(env *testEnv, userID, courseID string, times ...time.Time) {
	for _, ts := range times {
		env.events.events = append(env.events.events, models.ActivityEvent{
			ID:        uuid.NewString(),
			UserID:    userID,
			CourseID:  courseID,
			EventType: "video.play",
			CreatedAt: ts,
		})
	}
}

func TestLearnerHistorySelfAccess(t *testing.T) {
	env := newTestEnv(t)
	learner := uuid.NewString()
	courseID := uuid.NewString()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	seedHistory(env, learner, courseID, base, base.Add(time.Minute), base.Add(2*time.Minute))

	rec := env.do(t, http.MethodGet,
		"/api/activity/learners/"+learner+"/history?courseId="+courseID,
		env.bearerFor(t, learner, "LEARNER"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Events []HistoryEvent `json:"events"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Events, 3)
	assert.True(t, body.Events[0].CreatedAt.After(body.Events[1].CreatedAt))
}

func TestLearnerHistoryCrossLearnerDenied(t *testing.T) {
	env := newTestEnv(t)
	learner := uuid.NewString()
	courseID := uuid.NewString()
	seedHistory(env, learner, courseID, time.Now().UTC())

	rec := env.do(t, http.MethodGet,
		"/api/activity/learners/"+learner+"/history?courseId="+courseID,
		env.bearerFor(t, uuid.NewString(), "LEARNER"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLearnerHistoryAssignedTutorAllowed(t *testing.T) {
	env := newTestEnv(t)
	learner := uuid.NewString()
	courseID := uuid.NewString()
	tutor := uuid.NewString()
	env.assigned.assignments[tutor+"|"+courseID] = true
	seedHistory(env, learner, courseID, time.Now().UTC())

	rec := env.do(t, http.MethodGet,
		"/api/activity/learners/"+learner+"/history?courseId="+courseID,
		env.bearerFor(t, tutor, "TUTOR"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLearnerHistoryLimitBounds(t *testing.T) {
	env := newTestEnv(t)
	learner := uuid.NewString()
	courseID := uuid.NewString()
	bearer := env.bearerFor(t, learner, "LEARNER")

	rec := env.do(t, http.MethodGet,
		"/api/activity/learners/"+learner+"/history?courseId="+courseID+"&limit=101",
		bearer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet,
		"/api/activity/learners/"+learner+"/history?courseId="+courseID+"&limit=0",
		bearer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet,
		"/api/activity/learners/"+learner+"/history?courseId="+courseID+"&limit=100",
		bearer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLearnerHistoryRequiresCourseID(t *testing.T) {
	env := newTestEnv(t)
	learner := uuid.NewString()
	rec := env.do(t, http.MethodGet,
		"/api/activity/learners/"+learner+"/history",
		env.bearerFor(t, learner, "LEARNER"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLearnerHistoryBeforeCursorIsExclusive(t *testing.T) {
	env := newTestEnv(t)
	learner := uuid.NewString()
	courseID := uuid.NewString()
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	t3 := t2.Add(time.Minute)
	seedHistory(env, learner, courseID, t1, t2, t3)

	rec := env.do(t, http.MethodGet,
		"/api/activity/learners/"+learner+"/history?courseId="+courseID+"&before="+t3.Format(time.RFC3339),
		env.bearerFor(t, learner, "LEARNER"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Events []HistoryEvent `json:"events"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Events, 2)
	assert.Equal(t, t2, body.Events[0].CreatedAt)
	assert.Equal(t, t1, body.Events[1].CreatedAt)
}

package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"learnpath-backend-go/internal/services"
)

type EventRecord struct {
	CourseID   string          `json:"courseId" validate:"required,uuid"`
	ModuleNo   *int            `json:"moduleNo" validate:"omitempty,min=0,max=999"`
	TopicID    *string         `json:"topicId" validate:"omitempty,uuid"`
	EventType  string          `json:"eventType" validate:"required,min=1,max=128"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt *string         `json:"occurredAt"`
}

type IngestRequest struct {
	Events []EventRecord `json:"events"`
}

type HistoryEvent struct {
	ID            string          `json:"eventId"`
	CourseID      string          `json:"courseId"`
	ModuleNo      *int            `json:"moduleNo"`
	TopicID       *string         `json:"topicId"`
	EventType     string          `json:"eventType"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	DerivedStatus *string         `json:"derivedStatus"`
	StatusReason  *string         `json:"statusReason"`
	OccurredAt    *time.Time      `json:"occurredAt"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// IngestEvents accepts a batch of learner telemetry. The batch is accepted
// or rejected as a whole: one bad record fails the request with the issues
// for every offending record and nothing is persisted.
func (s *Server) IngestEvents(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if len(req.Events) == 0 {
		WriteValidationError(w, "Invalid payload", []services.FieldIssue{
			{Field: "events", Message: "must contain at least one event"},
		})
		return
	}
	if len(req.Events) > s.Config.MaxEventsPerBatch {
		WriteValidationError(w, "Invalid payload", []services.FieldIssue{
			{Field: "events", Message: fmt.Sprintf("must contain at most %d events", s.Config.MaxEventsPerBatch)},
		})
		return
	}

	issues := []services.FieldIssue{}
	inputs := make([]services.EventInput, 0, len(req.Events))
	for i, record := range req.Events {
		prefix := fmt.Sprintf("events[%d]", i)
		if err := validate.Struct(record); err != nil {
			issues = append(issues, validationIssues(err, prefix)...)
			continue
		}
		input := services.EventInput{
			CourseID:  record.CourseID,
			ModuleNo:  record.ModuleNo,
			TopicID:   record.TopicID,
			EventType: record.EventType,
			Payload:   record.Payload,
		}
		if record.OccurredAt != nil && strings.TrimSpace(*record.OccurredAt) != "" {
			occurred, err := time.Parse(time.RFC3339, *record.OccurredAt)
			if err != nil {
				issues = append(issues, services.FieldIssue{
					Field:   prefix + ".occurredAt",
					Message: "must be an RFC 3339 timestamp",
				})
				continue
			}
			utc := occurred.UTC()
			input.OccurredAt = &utc
		}
		inputs = append(inputs, input)
	}
	if len(issues) > 0 {
		WriteServiceError(w, services.NewValidationError("Invalid payload", issues...))
		return
	}

	userID := CurrentUserID(r)
	rows, err := s.Activity.RecordEvents(r.Context(), userID, inputs)
	if err != nil {
		s.Logger.Errorw("record events", "error", err, "user", userID)
		WriteServiceError(w, err)
		return
	}

	// Playing content implies enrollment; refresh the learner's label for
	// every course the batch touched and push it to subscribed dashboards.
	seen := map[string]bool{}
	for _, row := range rows {
		if row.EventType == "progress.snapshot" {
			s.applyProgressSnapshot(r, userID, row.CourseID, row.Payload)
		}
		if seen[row.CourseID] {
			continue
		}
		seen[row.CourseID] = true
		if err := s.Activity.Progress.EnsureActive(r.Context(), userID, row.CourseID); err != nil {
			s.Logger.Warnw("enrollment touch", "error", err, "course", row.CourseID)
		}
		s.broadcastLearnerStatus(r, userID, row.CourseID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// applyProgressSnapshot mirrors the reported percentage into the
// enrollment row. Reaching 100 completes the enrollment and issues the
// certificate.
func (s *Server) applyProgressSnapshot(r *http.Request, userID, courseID string, payload []byte) {
	if len(payload) == 0 {
		return
	}
	var snapshot struct {
		Percent *int `json:"percent"`
	}
	if err := json.Unmarshal(payload, &snapshot); err != nil || snapshot.Percent == nil {
		return
	}
	if err := s.Activity.Progress.ApplyProgress(r.Context(), userID, courseID, *snapshot.Percent); err != nil {
		s.Logger.Warnw("progress snapshot", "error", err, "course", courseID)
	}
}

func (s *Server) broadcastLearnerStatus(r *http.Request, userID, courseID string) {
	window, err := s.Activity.History(r.Context(), userID, courseID, s.Activity.WindowSize, nil)
	if err != nil {
		s.Logger.Warnw("status refresh", "error", err, "course", courseID)
		return
	}
	if status := services.DeriveStatus(window); status != nil {
		s.StatusHub.Broadcast(*status)
	}
}

type LearnerStatusesResponse struct {
	Learners []services.LearnerStatus `json:"learners"`
	Summary  services.StatusSummary   `json:"summary"`
}

func (s *Server) CourseLearnerStatuses(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseId")
	if uuid.Validate(courseID) != nil {
		WriteError(w, http.StatusBadRequest, "Invalid course identifier")
		return
	}
	if err := s.Activity.EnsureCourseAccess(r.Context(), CurrentUserID(r), courseID, CurrentRole(r)); err != nil {
		WriteServiceError(w, err)
		return
	}
	learners, summary, err := s.Activity.LatestStatuses(r.Context(), courseID)
	if err != nil {
		s.Logger.Errorw("latest statuses", "error", err, "course", courseID)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, LearnerStatusesResponse{Learners: learners, Summary: summary})
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

func (s *Server) LearnerHistory(w http.ResponseWriter, r *http.Request) {
	learnerID := chi.URLParam(r, "learnerId")
	if uuid.Validate(learnerID) != nil {
		WriteError(w, http.StatusBadRequest, "Invalid learner identifier")
		return
	}
	courseID := r.URL.Query().Get("courseId")
	if uuid.Validate(courseID) != nil {
		WriteValidationError(w, "Invalid query parameters", []services.FieldIssue{
			{Field: "courseId", Message: "must be a valid UUID"},
		})
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxHistoryLimit {
			WriteValidationError(w, "Invalid query parameters", []services.FieldIssue{
				{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d", maxHistoryLimit)},
			})
			return
		}
		limit = parsed
	}
	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			WriteValidationError(w, "Invalid query parameters", []services.FieldIssue{
				{Field: "before", Message: "must be an RFC 3339 timestamp"},
			})
			return
		}
		utc := parsed.UTC()
		before = &utc
	}

	// A learner always reads their own history; anyone else must hold an
	// active tutor assignment or be an admin.
	if CurrentUserID(r) != learnerID {
		if err := s.Activity.EnsureCourseAccess(r.Context(), CurrentUserID(r), courseID, CurrentRole(r)); err != nil {
			WriteServiceError(w, err)
			return
		}
	}

	events, err := s.Activity.History(r.Context(), learnerID, courseID, limit, before)
	if err != nil {
		s.Logger.Errorw("learner history", "error", err, "learner", learnerID)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	out := make([]HistoryEvent, 0, len(events))
	for _, event := range events {
		out = append(out, HistoryEvent{
			ID:            event.ID,
			CourseID:      event.CourseID,
			ModuleNo:      event.ModuleNo,
			TopicID:       event.TopicID,
			EventType:     event.EventType,
			Payload:       event.Payload,
			DerivedStatus: event.DerivedStatus,
			StatusReason:  event.StatusReason,
			OccurredAt:    event.OccurredAt,
			CreatedAt:     event.CreatedAt,
		})
	}
	WriteJSON(w, http.StatusOK, map[string][]HistoryEvent{"events": out})
}

// ActivitySocket streams derived-status updates for one course to an
// assigned tutor or admin.
func (s *Server) ActivitySocket(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	courseID := r.URL.Query().Get("courseId")
	if tokenStr == "" || uuid.Validate(courseID) != nil {
		WriteError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}
	claims, err := s.Tokens.ParseAccessToken(tokenStr)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}
	if err := s.Activity.EnsureCourseAccess(r.Context(), claims.UserID, courseID, claims.Role); err != nil {
		WriteServiceError(w, err)
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.StatusHub.Add(conn, courseID)
	defer func() {
		s.StatusHub.Remove(conn)
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

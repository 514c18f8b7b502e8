package services

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"learnpath-backend-go/internal/models"
)

// Derived status labels. A learner with events but no qualifying signal is
// reported as "unknown"; a learner with no events at all is omitted from
// course summaries entirely.
const (
	StatusEngaged         = "engaged"
	StatusAttentionDrift  = "attention_drift"
	StatusContentFriction = "content_friction"
	StatusUnknown         = "unknown"
)

// Event-type prefix tables mapping raw client event types to a provisional
// per-event status. Product tuning constants, checked in order: an idle
// signal wins over a friction signal for the same event type, friction over
// plain engagement.
var (
	attentionEventPrefixes = []string{"idle.", "video.pause", "video.buffer.start", "lesson.locked_click"}
	frictionEventPrefixes  = []string{"quiz.fail", "quiz.retry", "tutor.prompt", "content.friction"}
	engagedEventPrefixes   = []string{"video.play", "video.resume", "video.buffer.end", "progress.snapshot", "notes.", "lesson.", "quiz.pass", "tutor.response"}
)

// ClassifyEvent tags a single event with a provisional status and a human
// readable reason. Unrecognized event types stay untagged.
func ClassifyEvent(eventType string, payload json.RawMessage) (status, reason string) {
	normalized := strings.ToLower(eventType)
	switch {
	case hasAnyPrefix(normalized, attentionEventPrefixes):
		return StatusAttentionDrift, buildReason(eventType, payload, "Idle or pause pattern detected")
	case hasAnyPrefix(normalized, frictionEventPrefixes):
		return StatusContentFriction, buildReason(eventType, payload, "Learner signaled friction")
	case hasAnyPrefix(normalized, engagedEventPrefixes):
		return StatusEngaged, buildReason(eventType, payload, "Learner interacting with content")
	}
	return "", ""
}

func hasAnyPrefix(value string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}

func buildReason(eventType string, payload json.RawMessage, fallback string) string {
	if len(payload) > 0 {
		fields := map[string]interface{}{}
		if err := json.Unmarshal(payload, &fields); err == nil {
			if possible, ok := fields["reason"].(string); ok && strings.TrimSpace(possible) != "" {
				return possible
			}
		}
	}
	return fallback + " (" + eventType + ")"
}

// EventInput is one normalized record of an intake batch. Construction
// happens at the HTTP boundary; by the time it reaches the service every
// field is well-formed.
type EventInput struct {
	CourseID   string
	ModuleNo   *int
	TopicID    *string
	EventType  string
	Payload    json.RawMessage
	OccurredAt *time.Time
}

// LearnerStatus is the derived label for one learner in one course plus
// the supporting event metadata it was derived from.
type LearnerStatus struct {
	UserID        string     `json:"userId"`
	CourseID      string     `json:"courseId"`
	ModuleNo      *int       `json:"moduleNo"`
	TopicID       *string    `json:"topicId"`
	EventType     string     `json:"eventType"`
	DerivedStatus string     `json:"derivedStatus"`
	StatusReason  *string    `json:"statusReason"`
	LastEventAt   time.Time  `json:"lastEventAt"`
	OccurredAt    *time.Time `json:"occurredAt"`
}

type StatusSummary struct {
	Engaged         int `json:"engaged"`
	AttentionDrift  int `json:"attention_drift"`
	ContentFriction int `json:"content_friction"`
	Unknown         int `json:"unknown"`
}

// EventStore is the persistence surface of the activity log. InsertEvents
// must be atomic: either every row of a batch lands or none do.
type EventStore interface {
	InsertEvents(ctx context.Context, events []models.ActivityEvent) error
	WindowedEvents(ctx context.Context, courseID string, window int) ([]models.ActivityEvent, error)
	LearnerHistory(ctx context.Context, userID, courseID string, limit int, before *time.Time) ([]models.ActivityEvent, error)
}

// AssignmentStore answers whether a user holds an active tutor assignment
// for a course.
type AssignmentStore interface {
	IsActiveTutor(ctx context.Context, userID, courseID string) (bool, error)
}

// ProgressStore receives the enrollment side effects of telemetry:
// touching the enrollment row and mirroring progress snapshots.
type ProgressStore interface {
	EnsureActive(ctx context.Context, userID, courseID string) error
	ApplyProgress(ctx context.Context, userID, courseID string, percent int) error
}

type ActivityService struct {
	Events      EventStore
	Assignments AssignmentStore
	Progress    ProgressStore
	WindowSize  int
}

// RecordEvents classifies and persists an intake batch as one atomic unit
// and returns the stored rows, newest last.
func (s *ActivityService) RecordEvents(ctx context.Context, userID string, inputs []EventInput) ([]models.ActivityEvent, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	now := time.Now().UTC()
	rows := make([]models.ActivityEvent, 0, len(inputs))
	for _, input := range inputs {
		event := models.ActivityEvent{
			ID:         uuid.NewString(),
			UserID:     userID,
			CourseID:   input.CourseID,
			ModuleNo:   input.ModuleNo,
			TopicID:    input.TopicID,
			EventType:  input.EventType,
			Payload:    input.Payload,
			OccurredAt: input.OccurredAt,
			CreatedAt:  now,
		}
		if status, reason := ClassifyEvent(input.EventType, input.Payload); status != "" {
			event.DerivedStatus = &status
			event.StatusReason = &reason
		}
		rows = append(rows, event)
	}
	if err := s.Events.InsertEvents(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// EnsureCourseAccess allows admins unconditionally and tutors with an
// active assignment for the course. Every other combination collapses into
// the same forbidden error so a caller cannot probe course existence.
func (s *ActivityService) EnsureCourseAccess(ctx context.Context, userID, courseID, role string) error {
	if strings.EqualFold(role, "ADMIN") {
		return nil
	}
	assigned, err := s.Assignments.IsActiveTutor(ctx, userID, courseID)
	if err != nil {
		return err
	}
	if !assigned {
		return ErrForbidden("Not allowed")
	}
	return nil
}

// LatestStatuses derives a label for every learner with at least one event
// in the course. Learners without events never appear in the result.
func (s *ActivityService) LatestStatuses(ctx context.Context, courseID string) ([]LearnerStatus, StatusSummary, error) {
	window, err := s.Events.WindowedEvents(ctx, courseID, s.WindowSize)
	if err != nil {
		return nil, StatusSummary{}, err
	}
	grouped := map[string][]models.ActivityEvent{}
	for _, event := range window {
		grouped[event.UserID] = append(grouped[event.UserID], event)
	}
	statuses := make([]LearnerStatus, 0, len(grouped))
	for _, events := range grouped {
		if status := DeriveStatus(events); status != nil {
			statuses = append(statuses, *status)
		}
	}
	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].LastEventAt.Equal(statuses[j].LastEventAt) {
			return statuses[i].UserID < statuses[j].UserID
		}
		return statuses[i].LastEventAt.After(statuses[j].LastEventAt)
	})
	summary := StatusSummary{}
	for _, status := range statuses {
		switch status.DerivedStatus {
		case StatusEngaged:
			summary.Engaged++
		case StatusAttentionDrift:
			summary.AttentionDrift++
		case StatusContentFriction:
			summary.ContentFriction++
		default:
			summary.Unknown++
		}
	}
	return statuses, summary, nil
}

// DeriveStatus computes the label for one learner from their event window.
// It is a pure function of the window: friction beats drift beats
// engagement, and a window with no tagged event at all lands on "unknown".
func DeriveStatus(events []models.ActivityEvent) *LearnerStatus {
	if len(events) == 0 {
		return nil
	}
	sorted := make([]models.ActivityEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	picked := sorted[0]
	label := StatusUnknown
	for _, want := range []string{StatusContentFriction, StatusAttentionDrift, StatusEngaged} {
		if match := firstWithStatus(sorted, want); match != nil {
			picked = *match
			label = want
			break
		}
	}
	return &LearnerStatus{
		UserID:        picked.UserID,
		CourseID:      picked.CourseID,
		ModuleNo:      picked.ModuleNo,
		TopicID:       picked.TopicID,
		EventType:     picked.EventType,
		DerivedStatus: label,
		StatusReason:  picked.StatusReason,
		LastEventAt:   sorted[0].CreatedAt,
		OccurredAt:    picked.OccurredAt,
	}
}

func firstWithStatus(events []models.ActivityEvent, status string) *models.ActivityEvent {
	for i := range events {
		if events[i].DerivedStatus != nil && *events[i].DerivedStatus == status {
			return &events[i]
		}
	}
	return nil
}

// History returns the learner's raw event stream newest first. The before
// cursor is exclusive and compares against the server ingestion timestamp,
// so a page is stable under concurrent inserts.
func (s *ActivityService) History(ctx context.Context, userID, courseID string, limit int, before *time.Time) ([]models.ActivityEvent, error) {
	return s.Events.LearnerHistory(ctx, userID, courseID, limit, before)
}

package services

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"learnpath-backend-go/internal/models"
)

// PGEventStore persists the activity log in learner_activity_events.
type PGEventStore struct {
	DB *sqlx.DB
}

func (s *PGEventStore) InsertEvents(ctx context.Context, events []models.ActivityEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, event := range events {
		_, err := tx.ExecContext(ctx, `
INSERT INTO learner_activity_events (
  id, user_id, course_id, module_no, topic_id, event_type, payload,
  derived_status, status_reason, occurred_at, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`, event.ID, event.UserID, event.CourseID, event.ModuleNo, event.TopicID,
			event.EventType, nullableJSON(event.Payload), event.DerivedStatus,
			event.StatusReason, event.OccurredAt, event.CreatedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// WindowedEvents returns the most recent `window` events per learner for a
// course, via a ROW_NUMBER partition over the ingestion timestamp.
func (s *PGEventStore) WindowedEvents(ctx context.Context, courseID string, window int) ([]models.ActivityEvent, error) {
	events := []models.ActivityEvent{}
	err := s.DB.SelectContext(ctx, &events, `
SELECT id, user_id, course_id, module_no, topic_id, event_type, payload,
       derived_status, status_reason, occurred_at, created_at
FROM (
  SELECT *,
         ROW_NUMBER() OVER (PARTITION BY user_id ORDER BY created_at DESC, id DESC) AS rn
  FROM learner_activity_events
  WHERE course_id = $1
) ranked
WHERE ranked.rn <= $2
`, courseID, window)
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *PGEventStore) LearnerHistory(ctx context.Context, userID, courseID string, limit int, before *time.Time) ([]models.ActivityEvent, error) {
	events := []models.ActivityEvent{}
	query := `
SELECT id, user_id, course_id, module_no, topic_id, event_type, payload,
       derived_status, status_reason, occurred_at, created_at
FROM learner_activity_events
WHERE user_id = $1 AND course_id = $2
`
	args := []interface{}{userID, courseID}
	if before != nil {
		query += ` AND created_at < $3 ORDER BY created_at DESC, id DESC LIMIT $4`
		args = append(args, *before, limit)
	} else {
		query += ` ORDER BY created_at DESC, id DESC LIMIT $3`
		args = append(args, limit)
	}
	if err := s.DB.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, err
	}
	return events, nil
}

func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

// PGAssignmentStore resolves active course-tutor assignments.
type PGAssignmentStore struct {
	DB *sqlx.DB
}

func (s *PGAssignmentStore) IsActiveTutor(ctx context.Context, userID, courseID string) (bool, error) {
	var assigned bool
	err := s.DB.GetContext(ctx, &assigned, `
SELECT EXISTS(
  SELECT 1
  FROM course_tutors ct
  JOIN tutor_profiles tp ON tp.id = ct.tutor_id
  WHERE ct.course_id = $1 AND ct.is_active AND tp.user_id = $2
)
`, courseID, userID)
	return assigned, err
}

// PGProgressStore applies telemetry side effects to enrollments.
type PGProgressStore struct {
	DB *sqlx.DB
}

func (s *PGProgressStore) EnsureActive(ctx context.Context, userID, courseID string) error {
	return EnsureEnrollment(s.DB, userID, courseID)
}

func (s *PGProgressStore) ApplyProgress(ctx context.Context, userID, courseID string, percent int) error {
	return UpdateEnrollmentProgress(s.DB, userID, courseID, percent)
}

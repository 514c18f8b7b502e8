package services

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"learnpath-backend-go/internal/models"
)

// EnsureEnrollment upserts an active enrollment; playing content or taking
// a quiz re-activates a paused one.
func EnsureEnrollment(db *sqlx.DB, userID, courseID string) error {
	if userID == "" || courseID == "" {
		return nil
	}
	now := time.Now().UTC()
	_, err := db.Exec(`
INSERT INTO enrollments (id, user_id, course_id, status, enrolled_at, last_accessed_at)
VALUES ($1,$2,$3,'ACTIVE',$4,$4)
ON CONFLICT (user_id, course_id) DO UPDATE SET status = 'ACTIVE', last_accessed_at = EXCLUDED.last_accessed_at
`, uuid.NewString(), userID, courseID, now)
	return err
}

// UpdateEnrollmentProgress records content progress and completes the
// enrollment at 100%, issuing a certificate exactly once.
func UpdateEnrollmentProgress(db *sqlx.DB, userID, courseID string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	now := time.Now().UTC()
	if progress < 100 {
		_, err := db.Exec(`
UPDATE enrollments SET progress = $3, last_accessed_at = $4
WHERE user_id = $1 AND course_id = $2
`, userID, courseID, progress, now)
		return err
	}
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	_, err = tx.Exec(`
UPDATE enrollments
SET progress = 100, status = 'COMPLETED', completed_at = COALESCE(completed_at, $3), last_accessed_at = $3
WHERE user_id = $1 AND course_id = $2
`, userID, courseID, now)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
INSERT INTO certificates (id, user_id, course_id, serial, issued_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id, course_id) DO NOTHING
`, uuid.NewString(), userID, courseID, newCertificateSerial(), now)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func newCertificateSerial() string {
	return "LP-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func GetCertificate(db *sqlx.DB, userID, courseID string) (models.Certificate, error) {
	certificate := models.Certificate{}
	err := db.Get(&certificate, `SELECT * FROM certificates WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	if errors.Is(err, sql.ErrNoRows) {
		return certificate, ErrNotFound("Certificate not found")
	}
	return certificate, err
}

type DashboardCourse struct {
	CourseID       string     `db:"course_id" json:"courseId"`
	Slug           string     `db:"slug" json:"slug"`
	Title          string     `db:"title" json:"title"`
	Status         string     `db:"status" json:"status"`
	Progress       int        `db:"progress" json:"progress"`
	LastAccessedAt *time.Time `db:"last_accessed_at" json:"lastAccessedAt"`
	CompletedAt    *time.Time `db:"completed_at" json:"completedAt"`
}

type DashboardSummary struct {
	User struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
	} `json:"user"`
	Stats struct {
		SessionsThisWeek int        `json:"sessionsThisWeek"`
		LastActiveAt     *time.Time `json:"lastActiveAt"`
	} `json:"stats"`
	ResumeCourse *DashboardCourse  `json:"resumeCourse"`
	Active       []DashboardCourse `json:"active"`
	Completed    []DashboardCourse `json:"completed"`
}

func BuildDashboardSummary(db *sqlx.DB, userID string) (DashboardSummary, error) {
	summary := DashboardSummary{}

	user := models.User{}
	if err := db.Get(&user, `SELECT * FROM users WHERE id = $1`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return summary, ErrNotFound("User not found")
		}
		return summary, err
	}
	summary.User.FullName = user.FullName
	summary.User.Email = user.Email

	courses := []DashboardCourse{}
	err := db.Select(&courses, `
SELECT c.id AS course_id, c.slug, c.title, e.status, e.progress,
       e.last_accessed_at, e.completed_at
FROM enrollments e
JOIN courses c ON c.id = e.course_id
WHERE e.user_id = $1
ORDER BY e.last_accessed_at DESC NULLS LAST
`, userID)
	if err != nil {
		return summary, err
	}
	summary.Active = []DashboardCourse{}
	summary.Completed = []DashboardCourse{}
	for _, course := range courses {
		if course.Status == "COMPLETED" {
			summary.Completed = append(summary.Completed, course)
			continue
		}
		summary.Active = append(summary.Active, course)
		if summary.ResumeCourse == nil && course.LastAccessedAt != nil {
			picked := course
			summary.ResumeCourse = &picked
		}
		if course.LastAccessedAt != nil &&
			(summary.Stats.LastActiveAt == nil || course.LastAccessedAt.After(*summary.Stats.LastActiveAt)) {
			summary.Stats.LastActiveAt = course.LastAccessedAt
		}
	}

	// Upcoming cohort sessions within the next seven days for the
	// learner's active enrollments.
	err = db.Get(&summary.Stats.SessionsThisWeek, `
SELECT count(*)
FROM course_offerings o
JOIN enrollments e ON e.course_id = o.course_id AND e.user_id = $1
WHERE o.is_active
  AND o.program_type = 'cohort'
  AND o.starts_at IS NOT NULL
  AND o.starts_at >= now()
  AND o.starts_at < now() + interval '7 days'
`, userID)
	if err != nil {
		return summary, err
	}
	return summary, nil
}

package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"learnpath-backend-go/internal/models"
)

type TutorApplicationInput struct {
	FullName            string
	Email               string
	Phone               *string
	ExpertiseArea       string
	ProposedCourseTitle string
	CourseLevel         *string
	DeliveryFormat      *string
	Availability        *string
	ExperienceYears     *int
	Outline             string
	Motivation          string
}

func CreateTutorApplication(db *sqlx.DB, input TutorApplicationInput) (models.TutorApplication, error) {
	application := models.TutorApplication{}
	err := db.Get(&application, `
INSERT INTO tutor_applications (
  id, full_name, email, phone, expertise_area, proposed_course_title,
  course_level, delivery_format, availability, experience_years, outline,
  motivation, status, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,'SUBMITTED',$13)
RETURNING *
`, uuid.NewString(), input.FullName, input.Email, input.Phone, input.ExpertiseArea,
		input.ProposedCourseTitle, input.CourseLevel, input.DeliveryFormat,
		input.Availability, input.ExperienceYears, input.Outline, input.Motivation,
		time.Now().UTC())
	return application, err
}

type TutorCourse struct {
	CourseID    string `db:"course_id" json:"courseId"`
	Slug        string `db:"slug" json:"slug"`
	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description"`
	MemberRole  string `db:"member_role" json:"role"`
}

func ListTutorCourses(db *sqlx.DB, userID string) ([]TutorCourse, error) {
	courses := []TutorCourse{}
	err := db.Select(&courses, `
SELECT c.id AS course_id, c.slug, c.title, c.description, ct.member_role
FROM course_tutors ct
JOIN tutor_profiles tp ON tp.id = ct.tutor_id
JOIN courses c ON c.id = ct.course_id
WHERE ct.is_active AND tp.user_id = $1
ORDER BY c.title
`, userID)
	return courses, err
}

type CourseEnrollee struct {
	EnrollmentID string    `db:"enrollment_id" json:"enrollmentId"`
	UserID       string    `db:"user_id" json:"userId"`
	FullName     string    `db:"full_name" json:"fullName"`
	Email        string    `db:"email" json:"email"`
	Status       string    `db:"status" json:"status"`
	Progress     int       `db:"progress" json:"progress"`
	EnrolledAt   time.Time `db:"enrolled_at" json:"enrolledAt"`
}

func ListCourseEnrollees(db *sqlx.DB, courseID string) ([]CourseEnrollee, error) {
	enrollees := []CourseEnrollee{}
	err := db.Select(&enrollees, `
SELECT e.id AS enrollment_id, u.id AS user_id, u.full_name, u.email,
       e.status, e.progress, e.enrolled_at
FROM enrollments e
JOIN users u ON u.id = e.user_id
WHERE e.course_id = $1
ORDER BY e.enrolled_at DESC
`, courseID)
	return enrollees, err
}

// EnsureTutorProfile creates the tutor profile row on first assignment.
func EnsureTutorProfile(db *sqlx.DB, userID string) (string, error) {
	var id string
	err := db.Get(&id, `SELECT id FROM tutor_profiles WHERE user_id = $1`, userID)
	if err == nil {
		return id, nil
	}
	id = uuid.NewString()
	_, err = db.Exec(`
INSERT INTO tutor_profiles (id, user_id, created_at)
VALUES ($1,$2,$3)
ON CONFLICT (user_id) DO NOTHING
`, id, userID, time.Now().UTC())
	if err != nil {
		return "", err
	}
	err = db.Get(&id, `SELECT id FROM tutor_profiles WHERE user_id = $1`, userID)
	return id, err
}

func AssignTutor(db *sqlx.DB, courseID, userID, memberRole string) error {
	tutorID, err := EnsureTutorProfile(db, userID)
	if err != nil {
		return err
	}
	if memberRole == "" {
		memberRole = "TUTOR"
	}
	_, err = db.Exec(`
INSERT INTO course_tutors (id, course_id, tutor_id, member_role, is_active, created_at)
VALUES ($1,$2,$3,$4,TRUE,$5)
ON CONFLICT (course_id, tutor_id) DO UPDATE SET member_role = EXCLUDED.member_role, is_active = TRUE
`, uuid.NewString(), courseID, tutorID, memberRole, time.Now().UTC())
	return err
}

func UnassignTutor(db *sqlx.DB, courseID, userID string) error {
	_, err := db.Exec(`
UPDATE course_tutors ct
SET is_active = FALSE
FROM tutor_profiles tp
WHERE tp.id = ct.tutor_id AND ct.course_id = $1 AND tp.user_id = $2
`, courseID, userID)
	return err
}

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

var programTypes = map[string]bool{"cohort": true, "ondemand": true, "workshop": true}

func ValidProgramType(value string) bool {
	return programTypes[strings.ToLower(value)]
}

func ListOfferings(db *sqlx.DB, courseID, programType string) ([]models.CourseOffering, error) {
	offerings := []models.CourseOffering{}
	query := `SELECT * FROM course_offerings WHERE course_id = $1 AND is_active`
	args := []interface{}{courseID}
	if programType != "" {
		query += ` AND program_type = $2`
		args = append(args, strings.ToLower(programType))
	}
	query += ` ORDER BY created_at ASC`
	err := db.Select(&offerings, query, args...)
	return offerings, err
}

// ListAssessmentQuestions returns the active intake questions for an
// offering: questions scoped to that offering plus the global pool,
// filtered by program type.
func ListAssessmentQuestions(db *sqlx.DB, offeringID, programType string) ([]models.AssessmentQuestion, error) {
	questions := []models.AssessmentQuestion{}
	err := db.Select(&questions, `
SELECT * FROM assessment_questions
WHERE is_active
  AND (offering_id IS NULL OR offering_id = $1)
  AND (program_type = 'all' OR program_type = $2)
ORDER BY question_number ASC
`, offeringID, strings.ToLower(programType))
	return questions, err
}

type RegistrationInput struct {
	OfferingID            string
	UserID                *string
	FullName              string
	Email                 string
	PhoneNumber           string
	CollegeName           string
	YearOfPassing         string
	Branch                string
	ReferredBy            *string
	SelectedSlot          *string
	SessionTime           *string
	Mode                  *string
	Status                string
	Answers               []byte
	QuestionsSnapshot     []byte
	AssessmentSubmittedAt *time.Time
}

// UpsertRegistration creates a registration or, when the same email already
// registered for the offering, replaces that registration in place. The
// bool result reports whether a new row was created.
func UpsertRegistration(db *sqlx.DB, input RegistrationInput) (models.Registration, bool, error) {
	var offeringExists bool
	if err := db.Get(&offeringExists, `SELECT EXISTS(SELECT 1 FROM course_offerings WHERE id = $1)`, input.OfferingID); err != nil {
		return models.Registration{}, false, err
	}
	if !offeringExists {
		return models.Registration{}, false, ErrNotFound("Offering not found")
	}

	status := input.Status
	if status == "" {
		status = "new"
	}
	now := time.Now().UTC()

	existing := models.Registration{}
	err := db.Get(&existing, `SELECT * FROM registrations WHERE email = $1 AND offering_id = $2`, input.Email, input.OfferingID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.Registration{}, false, err
	}
	created := errors.Is(err, sql.ErrNoRows)

	id := existing.ID
	if created {
		id = uuid.NewString()
	}
	registration := models.Registration{}
	err = db.Get(&registration, `
INSERT INTO registrations (
  id, offering_id, user_id, full_name, email, phone_number, college_name,
  year_of_passing, branch, referred_by, selected_slot, session_time, mode,
  status, answers, questions_snapshot, assessment_submitted_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$18)
ON CONFLICT (email, offering_id) DO UPDATE SET
  user_id = EXCLUDED.user_id,
  full_name = EXCLUDED.full_name,
  phone_number = EXCLUDED.phone_number,
  college_name = EXCLUDED.college_name,
  year_of_passing = EXCLUDED.year_of_passing,
  branch = EXCLUDED.branch,
  referred_by = EXCLUDED.referred_by,
  selected_slot = EXCLUDED.selected_slot,
  session_time = EXCLUDED.session_time,
  mode = EXCLUDED.mode,
  status = EXCLUDED.status,
  answers = EXCLUDED.answers,
  questions_snapshot = EXCLUDED.questions_snapshot,
  assessment_submitted_at = EXCLUDED.assessment_submitted_at,
  updated_at = EXCLUDED.updated_at
RETURNING *
`, id, input.OfferingID, input.UserID, input.FullName, input.Email, input.PhoneNumber,
		input.CollegeName, input.YearOfPassing, input.Branch, input.ReferredBy,
		input.SelectedSlot, input.SessionTime, input.Mode, status,
		nullableJSON(input.Answers), nullableJSON(input.QuestionsSnapshot),
		input.AssessmentSubmittedAt, now)
	if err != nil {
		return models.Registration{}, false, err
	}
	return registration, created, nil
}

package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"learnpath-backend-go/internal/services"
)

func (s *Server) ListOfferings(w http.ResponseWriter, r *http.Request) {
	courseKey := r.URL.Query().Get("courseKey")
	if strings.TrimSpace(courseKey) == "" {
		WriteError(w, http.StatusBadRequest, "courseKey is required")
		return
	}
	programType := r.URL.Query().Get("programType")
	if programType != "" && !services.ValidProgramType(programType) {
		WriteError(w, http.StatusBadRequest, "Unknown program type")
		return
	}
	courseID, err := services.ResolveCourseID(s.DB, courseKey)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	offerings, err := services.ListOfferings(s.DB, courseID, programType)
	if err != nil {
		s.Logger.Errorw("list offerings", "error", err, "course", courseID)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, offerings)
}

func (s *Server) ListAssessmentQuestions(w http.ResponseWriter, r *http.Request) {
	offeringID := r.URL.Query().Get("offeringId")
	programType := r.URL.Query().Get("programType")
	issues := []services.FieldIssue{}
	if uuid.Validate(offeringID) != nil {
		issues = append(issues, services.FieldIssue{Field: "offeringId", Message: "must be a valid UUID"})
	}
	if !services.ValidProgramType(programType) {
		issues = append(issues, services.FieldIssue{Field: "programType", Message: "must be one of cohort, ondemand, workshop"})
	}
	if len(issues) > 0 {
		WriteValidationError(w, "Invalid query parameters", issues)
		return
	}
	questions, err := services.ListAssessmentQuestions(s.DB, offeringID, programType)
	if err != nil {
		s.Logger.Errorw("list assessment questions", "error", err, "offering", offeringID)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, questions)
}

type RegistrationRequest struct {
	OfferingID        string          `json:"offeringId" validate:"required,uuid"`
	FullName          string          `json:"fullName" validate:"required,min=2,max=120"`
	Email             string          `json:"email" validate:"required,email"`
	PhoneNumber       string          `json:"phoneNumber" validate:"required,min=7,max=20"`
	CollegeName       string          `json:"collegeName" validate:"required,max=200"`
	YearOfPassing     string          `json:"yearOfPassing" validate:"required,max=10"`
	Branch            string          `json:"branch" validate:"required,max=120"`
	ReferredBy        *string         `json:"referredBy" validate:"omitempty,max=120"`
	SelectedSlot      *string         `json:"selectedSlot" validate:"omitempty,max=60"`
	SessionTime       *string         `json:"sessionTime" validate:"omitempty,max=60"`
	Mode              *string         `json:"mode" validate:"omitempty,oneof=online offline hybrid"`
	Answers           json.RawMessage `json:"answers"`
	QuestionsSnapshot json.RawMessage `json:"questionsSnapshot"`
}

// CreateRegistration records interest in an offering. Submitting twice with
// the same email replaces the earlier registration instead of duplicating it.
func (s *Server) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	var req RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		WriteValidationError(w, "Invalid payload", validationIssues(err, ""))
		return
	}

	input := services.RegistrationInput{
		OfferingID:        req.OfferingID,
		FullName:          strings.TrimSpace(req.FullName),
		Email:             strings.ToLower(strings.TrimSpace(req.Email)),
		PhoneNumber:       strings.TrimSpace(req.PhoneNumber),
		CollegeName:       strings.TrimSpace(req.CollegeName),
		YearOfPassing:     strings.TrimSpace(req.YearOfPassing),
		Branch:            strings.TrimSpace(req.Branch),
		ReferredBy:        req.ReferredBy,
		SelectedSlot:      req.SelectedSlot,
		SessionTime:       req.SessionTime,
		Mode:              req.Mode,
		Answers:           req.Answers,
		QuestionsSnapshot: req.QuestionsSnapshot,
	}
	if len(req.Answers) > 0 && string(req.Answers) != "null" {
		input.Status = "assessment_submitted"
		now := time.Now().UTC()
		input.AssessmentSubmittedAt = &now
	}
	if userID := CurrentUserID(r); userID != "" {
		input.UserID = &userID
	}

	registration, created, err := services.UpsertRegistration(s.DB, input)
	if err != nil {
		s.Logger.Errorw("upsert registration", "error", err, "offering", req.OfferingID)
		WriteServiceError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	WriteJSON(w, status, registration)
}

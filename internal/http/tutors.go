package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"learnpath-backend-go/internal/services"
)

type TutorApplicationRequest struct {
	FullName            string  `json:"fullName" validate:"required,min=2,max=120"`
	Email               string  `json:"email" validate:"required,email"`
	Phone               *string `json:"phone" validate:"omitempty,min=7,max=20"`
	ExpertiseArea       string  `json:"expertiseArea" validate:"required,max=120"`
	ProposedCourseTitle string  `json:"proposedCourseTitle" validate:"required,max=200"`
	CourseLevel         *string `json:"courseLevel" validate:"omitempty,oneof=beginner intermediate advanced"`
	DeliveryFormat      *string `json:"deliveryFormat" validate:"omitempty,max=60"`
	Availability        *string `json:"availability" validate:"omitempty,max=200"`
	ExperienceYears     *int    `json:"experienceYears" validate:"omitempty,min=0,max=60"`
	Outline             string  `json:"outline" validate:"required,min=20"`
	Motivation          string  `json:"motivation" validate:"required,min=20"`
}

func (s *Server) CreateTutorApplication(w http.ResponseWriter, r *http.Request) {
	var req TutorApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		WriteValidationError(w, "Invalid payload", validationIssues(err, ""))
		return
	}
	application, err := services.CreateTutorApplication(s.DB, services.TutorApplicationInput{
		FullName:            strings.TrimSpace(req.FullName),
		Email:               strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:               req.Phone,
		ExpertiseArea:       strings.TrimSpace(req.ExpertiseArea),
		ProposedCourseTitle: strings.TrimSpace(req.ProposedCourseTitle),
		CourseLevel:         req.CourseLevel,
		DeliveryFormat:      req.DeliveryFormat,
		Availability:        req.Availability,
		ExperienceYears:     req.ExperienceYears,
		Outline:             req.Outline,
		Motivation:          req.Motivation,
	})
	if err != nil {
		s.Logger.Errorw("create tutor application", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusCreated, application)
}

func (s *Server) TutorCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := services.ListTutorCourses(s.DB, CurrentUserID(r))
	if err != nil {
		s.Logger.Errorw("list tutor courses", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, courses)
}

func (s *Server) TutorCourseEnrollments(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseId")
	if uuid.Validate(courseID) != nil {
		WriteError(w, http.StatusBadRequest, "Invalid course identifier")
		return
	}
	if err := s.Activity.EnsureCourseAccess(r.Context(), CurrentUserID(r), courseID, CurrentRole(r)); err != nil {
		WriteServiceError(w, err)
		return
	}
	enrollees, err := services.ListCourseEnrollees(s.DB, courseID)
	if err != nil {
		s.Logger.Errorw("list enrollees", "error", err, "course", courseID)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, enrollees)
}

type EnrolleeProgress struct {
	services.CourseEnrollee
	DerivedStatus string `json:"derivedStatus"`
	StatusReason  string `json:"statusReason,omitempty"`
}

func mergeEnrolleeStatuses(enrollees []services.CourseEnrollee, statuses []services.LearnerStatus) []EnrolleeProgress {
	byUser := make(map[string]services.LearnerStatus, len(statuses))
	for _, status := range statuses {
		byUser[status.UserID] = status
	}
	progress := make([]EnrolleeProgress, 0, len(enrollees))
	for _, enrollee := range enrollees {
		row := EnrolleeProgress{CourseEnrollee: enrollee}
		if status, ok := byUser[enrollee.UserID]; ok {
			row.DerivedStatus = status.DerivedStatus
			if status.StatusReason != nil {
				row.StatusReason = *status.StatusReason
			}
		}
		progress = append(progress, row)
	}
	return progress
}

// TutorCourseProgress merges enrollment progress with the live derived
// status for each learner. Learners with no recent telemetry keep an
// empty status rather than "unknown"; absence of data is not a signal.
func (s *Server) TutorCourseProgress(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseId")
	if uuid.Validate(courseID) != nil {
		WriteError(w, http.StatusBadRequest, "Invalid course identifier")
		return
	}
	if err := s.Activity.EnsureCourseAccess(r.Context(), CurrentUserID(r), courseID, CurrentRole(r)); err != nil {
		WriteServiceError(w, err)
		return
	}
	enrollees, err := services.ListCourseEnrollees(s.DB, courseID)
	if err != nil {
		s.Logger.Errorw("list enrollees", "error", err, "course", courseID)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	statuses, summary, err := s.Activity.LatestStatuses(r.Context(), courseID)
	if err != nil {
		s.Logger.Errorw("latest statuses", "error", err, "course", courseID)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"enrollees": mergeEnrolleeStatuses(enrollees, statuses),
		"summary":   summary,
	})
}

type AssignTutorRequest struct {
	UserID     string `json:"userId" validate:"required,uuid"`
	MemberRole string `json:"memberRole" validate:"omitempty,oneof=TUTOR LEAD_TUTOR ASSISTANT"`
}

func (s *Server) AssignCourseTutor(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseId")
	if uuid.Validate(courseID) != nil {
		WriteError(w, http.StatusBadRequest, "Invalid course identifier")
		return
	}
	var req AssignTutorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		WriteValidationError(w, "Invalid payload", validationIssues(err, ""))
		return
	}
	if _, err := services.GetCourse(s.DB, courseID); err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := services.AssignTutor(s.DB, courseID, req.UserID, req.MemberRole); err != nil {
		s.Logger.Errorw("assign tutor", "error", err, "course", courseID, "user", req.UserID)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "assigned"})
}

func (s *Server) UnassignCourseTutor(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseId")
	userID := chi.URLParam(r, "userId")
	if uuid.Validate(courseID) != nil || uuid.Validate(userID) != nil {
		WriteError(w, http.StatusBadRequest, "Invalid identifier")
		return
	}
	if err := services.UnassignTutor(s.DB, courseID, userID); err != nil {
		s.Logger.Errorw("unassign tutor", "error", err, "course", courseID, "user", userID)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

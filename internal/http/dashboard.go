package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"learnpath-backend-go/internal/services"
)

func (s *Server) DashboardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := services.BuildDashboardSummary(s.DB, CurrentUserID(r))
	if err != nil {
		s.Logger.Errorw("dashboard summary", "error", err)
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

func (s *Server) CourseCertificate(w http.ResponseWriter, r *http.Request) {
	courseID, err := services.ResolveCourseID(s.DB, chi.URLParam(r, "courseKey"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	certificate, err := services.GetCertificate(s.DB, CurrentUserID(r), courseID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"serial":   certificate.Serial,
		"courseId": certificate.CourseID,
		"issuedAt": certificate.IssuedAt,
	})
}

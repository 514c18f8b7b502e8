package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"learnpath-backend-go/internal/services"
)

func (s *Server) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := services.ListPublishedCourses(s.DB)
	if err != nil {
		s.Logger.Errorw("list courses", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, courses)
}

// CourseDetail resolves the key as an id, slug, or title.
func (s *Server) CourseDetail(w http.ResponseWriter, r *http.Request) {
	courseID, err := services.ResolveCourseID(s.DB, chi.URLParam(r, "courseKey"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	course, err := services.GetCourse(s.DB, courseID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, course)
}

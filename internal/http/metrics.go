package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"learnpath-backend-go/internal/services"
)

const (
	defaultMetricsWindow = 60
	maxMetricsWindow     = 1440
)

func (s *Server) MetricsHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultMetricsWindow
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxMetricsWindow {
			WriteValidationError(w, "Invalid query parameters", []services.FieldIssue{
				{Field: "limit", Message: "must be between 1 and 1440"},
			})
			return
		}
		limit = parsed
	}
	samples, err := services.LatestMetrics(s.DB, limit)
	if err != nil {
		s.Logger.Errorw("metrics history", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, samples)
}

// MetricsSocket streams live resource samples to admin dashboards.
func (s *Server) MetricsSocket(w http.ResponseWriter, r *http.Request) {
	claims, err := s.Tokens.ParseAccessToken(r.URL.Query().Get("token"))
	if err != nil || claims.Role != "ADMIN" {
		WriteError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.MetricsHub.Add(conn, "")
	defer func() {
		s.MetricsHub.Remove(conn)
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

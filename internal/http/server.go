package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"learnpath-backend-go/internal/config"
	"learnpath-backend-go/internal/services"
)

type Server struct {
	DB         *sqlx.DB
	Config     config.Config
	Tokens     services.TokenService
	Logger     *zap.SugaredLogger
	Activity   *services.ActivityService
	StatusHub  *services.Hub[services.LearnerStatus]
	MetricsHub *services.Hub[services.MetricSample]
}

func NewServer(db *sqlx.DB, cfg config.Config, logger *zap.SugaredLogger,
	statusHub *services.Hub[services.LearnerStatus], metricsHub *services.Hub[services.MetricSample]) *Server {
	tokens := services.TokenService{
		Secret:        []byte(cfg.JWTSecret),
		RefreshSecret: []byte(cfg.JWTRefreshSecret),
		Issuer:        cfg.JWTIssuer,
		AccessTTL:     time.Duration(cfg.AccessTTLSeconds) * time.Second,
		RefreshTTL:    time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
	}
	activity := &services.ActivityService{
		Events:      &services.PGEventStore{DB: db},
		Assignments: &services.PGAssignmentStore{DB: db},
		Progress:    &services.PGProgressStore{DB: db},
		WindowSize:  cfg.StatusWindowSize,
	}
	return &Server{
		DB:         db,
		Config:     cfg,
		Tokens:     tokens,
		Logger:     logger,
		Activity:   activity,
		StatusHub:  statusHub,
		MetricsHub: metricsHub,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(s.Logger))
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", s.Register)
		api.Post("/auth/login", s.Login)
		api.Post("/auth/refresh", s.Refresh)
		api.Post("/auth/logout", s.Logout)

		api.With(WithAuth(s.Tokens)).Get("/me", s.Me)

		api.Route("/courses", func(courses chi.Router) {
			courses.Get("/", s.ListCourses)
			courses.Get("/{courseKey}", s.CourseDetail)
		})

		api.Route("/registrations", func(registrations chi.Router) {
			registrations.Get("/offerings", s.ListOfferings)
			registrations.Get("/assessment-questions", s.ListAssessmentQuestions)
			registrations.Post("/", s.CreateRegistration)
		})

		api.Post("/tutor-applications", s.CreateTutorApplication)

		api.Route("/activity", func(activity chi.Router) {
			activity.Use(WithAuth(s.Tokens))
			activity.Post("/events", s.IngestEvents)
			activity.Get("/courses/{courseId}/learners", s.CourseLearnerStatuses)
			activity.Get("/learners/{learnerId}/history", s.LearnerHistory)
		})

		api.Route("/quiz", func(quiz chi.Router) {
			quiz.Get("/questions", s.QuizQuestions)
			quiz.Group(func(authed chi.Router) {
				authed.Use(WithAuth(s.Tokens))
				authed.Post("/attempts", s.StartQuizAttempt)
				authed.Post("/attempts/{attemptId}/submit", s.SubmitQuizAttempt)
				authed.Get("/progress", s.QuizProgress)
			})
		})

		api.Route("/dashboard", func(dashboard chi.Router) {
			dashboard.Use(WithAuth(s.Tokens))
			dashboard.Get("/summary", s.DashboardSummary)
		})

		api.With(WithAuth(s.Tokens)).Get("/certificates/{courseKey}", s.CourseCertificate)

		api.Route("/tutors", func(tutors chi.Router) {
			tutors.Use(WithAuth(s.Tokens))
			tutors.Use(RequireAnyRole("TUTOR", "ADMIN"))
			tutors.Get("/me/courses", s.TutorCourses)
			tutors.Get("/{courseId}/enrollments", s.TutorCourseEnrollments)
			tutors.Get("/{courseId}/progress", s.TutorCourseProgress)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(WithAuth(s.Tokens))
			admin.Use(RequireRole("ADMIN"))
			admin.Get("/metrics/history", s.MetricsHistory)
			admin.Post("/courses/{courseId}/tutors", s.AssignCourseTutor)
			admin.Delete("/courses/{courseId}/tutors/{userId}", s.UnassignCourseTutor)
		})

		api.Route("/public", func(pub chi.Router) {
			pub.Post("/visits", s.TrackVisit)
			pub.Get("/visits/count", s.VisitCount)
		})
	})

	r.Get("/ws/activity", s.ActivitySocket)
	r.Get("/ws/metrics", s.MetricsSocket)
	return r
}

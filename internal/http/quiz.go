package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"learnpath-backend-go/internal/services"
)

type quizScope struct {
	CourseID       string
	ModuleNo       int
	TopicPairIndex int
	Limit          int
}

func parseQuizScope(r *http.Request) (quizScope, []services.FieldIssue) {
	query := r.URL.Query()
	issues := []services.FieldIssue{}
	scope := quizScope{CourseID: query.Get("courseId")}
	if uuid.Validate(scope.CourseID) != nil {
		issues = append(issues, services.FieldIssue{Field: "courseId", Message: "must be a valid UUID"})
	}
	moduleNo, err := strconv.Atoi(query.Get("moduleNo"))
	if err != nil || moduleNo < 0 {
		issues = append(issues, services.FieldIssue{Field: "moduleNo", Message: "must be a non-negative integer"})
	}
	scope.ModuleNo = moduleNo
	topicPair, err := strconv.Atoi(query.Get("topicPairIndex"))
	if err != nil || topicPair < 0 {
		issues = append(issues, services.FieldIssue{Field: "topicPairIndex", Message: "must be a non-negative integer"})
	}
	scope.TopicPairIndex = topicPair
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > services.MaxQuizQuestions {
			issues = append(issues, services.FieldIssue{Field: "limit", Message: "must be between 1 and 20"})
		}
		scope.Limit = limit
	}
	return scope, issues
}

type QuizOptionDTO struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	OrderIndex int    `json:"orderIndex"`
}

type QuizQuestionDTO struct {
	ID         string          `json:"id"`
	Question   string          `json:"question"`
	OrderIndex int             `json:"orderIndex"`
	Options    []QuizOptionDTO `json:"options"`
}

// questionDTOs strips correctness flags and explanations so the answer key
// never reaches the client before submission.
func questionDTOs(questions []services.QuestionWithOptions) []QuizQuestionDTO {
	out := make([]QuizQuestionDTO, 0, len(questions))
	for _, question := range questions {
		dto := QuizQuestionDTO{
			ID:         question.ID,
			Question:   question.Question,
			OrderIndex: question.OrderIndex,
			Options:    []QuizOptionDTO{},
		}
		for _, option := range question.Options {
			dto.Options = append(dto.Options, QuizOptionDTO{
				ID:         option.ID,
				Label:      option.Label,
				OrderIndex: option.OrderIndex,
			})
		}
		out = append(out, dto)
	}
	return out
}

func (s *Server) QuizQuestions(w http.ResponseWriter, r *http.Request) {
	scope, issues := parseQuizScope(r)
	if len(issues) > 0 {
		WriteValidationError(w, "Invalid query parameters", issues)
		return
	}
	questions, err := services.FetchQuizQuestions(s.DB, scope.CourseID, scope.ModuleNo, scope.TopicPairIndex, scope.Limit)
	if err != nil {
		s.Logger.Errorw("fetch quiz questions", "error", err, "course", scope.CourseID)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, questionDTOs(questions))
}

type StartAttemptRequest struct {
	CourseID       string `json:"courseId" validate:"required,uuid"`
	ModuleNo       int    `json:"moduleNo" validate:"min=0,max=999"`
	TopicPairIndex int    `json:"topicPairIndex" validate:"min=0,max=999"`
	Limit          int    `json:"limit" validate:"omitempty,min=1,max=20"`
}

func (s *Server) StartQuizAttempt(w http.ResponseWriter, r *http.Request) {
	var req StartAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		WriteValidationError(w, "Invalid payload", validationIssues(err, ""))
		return
	}
	attempt, questions, err := services.StartAttempt(s.DB, CurrentUserID(r), req.CourseID, req.ModuleNo, req.TopicPairIndex, req.Limit)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"attemptId":      attempt.ID,
		"totalQuestions": attempt.TotalQuestions,
		"questions":      questionDTOs(questions),
	})
}

type SubmitAttemptRequest struct {
	Answers []struct {
		QuestionID string `json:"questionId" validate:"required,uuid"`
		OptionID   string `json:"optionId" validate:"required,uuid"`
	} `json:"answers" validate:"dive"`
}

func (s *Server) SubmitQuizAttempt(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "attemptId")
	if uuid.Validate(attemptID) != nil {
		WriteError(w, http.StatusBadRequest, "Invalid attempt identifier")
		return
	}
	var req SubmitAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		WriteValidationError(w, "Invalid payload", validationIssues(err, ""))
		return
	}
	answers := make([]services.AnswerInput, 0, len(req.Answers))
	for _, answer := range req.Answers {
		answers = append(answers, services.AnswerInput{
			QuestionID: answer.QuestionID,
			OptionID:   answer.OptionID,
		})
	}
	result, err := services.SubmitAttempt(s.DB, CurrentUserID(r), attemptID, answers)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) QuizProgress(w http.ResponseWriter, r *http.Request) {
	courseID := r.URL.Query().Get("courseId")
	if uuid.Validate(courseID) != nil {
		WriteValidationError(w, "Invalid query parameters", []services.FieldIssue{
			{Field: "courseId", Message: "must be a valid UUID"},
		})
		return
	}
	summary, err := services.ModuleProgressSummary(s.DB, CurrentUserID(r), courseID)
	if err != nil {
		s.Logger.Errorw("quiz progress", "error", err, "course", courseID)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

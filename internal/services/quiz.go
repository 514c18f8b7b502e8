package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"learnpath-backend-go/internal/models"
)

const MaxQuizQuestions = 20

type QuestionWithOptions struct {
	models.QuizQuestion
	Options []models.QuizOption
}

// FetchQuizQuestions loads the active questions for one module/topic-pair
// scope, options attached in display order.
func FetchQuizQuestions(db *sqlx.DB, courseID string, moduleNo, topicPairIndex, limit int) ([]QuestionWithOptions, error) {
	if limit <= 0 || limit > MaxQuizQuestions {
		limit = MaxQuizQuestions
	}
	questions := []models.QuizQuestion{}
	err := db.Select(&questions, `
SELECT * FROM quiz_questions
WHERE course_id = $1 AND module_no = $2 AND topic_pair_index = $3 AND is_active
ORDER BY order_index ASC
LIMIT $4
`, courseID, moduleNo, topicPairIndex, limit)
	if err != nil {
		return nil, err
	}
	return attachOptions(db, questions)
}

func fetchQuestionsByID(db *sqlx.DB, ids []string) ([]QuestionWithOptions, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM quiz_questions WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	questions := []models.QuizQuestion{}
	if err := db.Select(&questions, db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return attachOptions(db, questions)
}

func attachOptions(db *sqlx.DB, questions []models.QuizQuestion) ([]QuestionWithOptions, error) {
	result := make([]QuestionWithOptions, 0, len(questions))
	if len(questions) == 0 {
		return result, nil
	}
	ids := make([]string, 0, len(questions))
	for _, question := range questions {
		ids = append(ids, question.ID)
	}
	query, args, err := sqlx.In(`SELECT * FROM quiz_options WHERE question_id IN (?) ORDER BY order_index ASC`, ids)
	if err != nil {
		return nil, err
	}
	options := []models.QuizOption{}
	if err := db.Select(&options, db.Rebind(query), args...); err != nil {
		return nil, err
	}
	byQuestion := map[string][]models.QuizOption{}
	for _, option := range options {
		byQuestion[option.QuestionID] = append(byQuestion[option.QuestionID], option)
	}
	for _, question := range questions {
		result = append(result, QuestionWithOptions{
			QuizQuestion: question,
			Options:      byQuestion[question.ID],
		})
	}
	return result, nil
}

func StartAttempt(db *sqlx.DB, userID, courseID string, moduleNo, topicPairIndex, limit int) (models.QuizAttempt, []QuestionWithOptions, error) {
	questions, err := FetchQuizQuestions(db, courseID, moduleNo, topicPairIndex, limit)
	if err != nil {
		return models.QuizAttempt{}, nil, err
	}
	if len(questions) == 0 {
		return models.QuizAttempt{}, nil, ErrNotFound("No questions available for this topic")
	}
	ids := make([]string, 0, len(questions))
	for _, question := range questions {
		ids = append(ids, question.ID)
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return models.QuizAttempt{}, nil, err
	}
	attempt := models.QuizAttempt{}
	err = db.Get(&attempt, `
INSERT INTO quiz_attempts (
  id, user_id, course_id, module_no, topic_pair_index, question_ids,
  status, total_questions, started_at
) VALUES ($1,$2,$3,$4,$5,$6,'IN_PROGRESS',$7,$8)
RETURNING *
`, uuid.NewString(), userID, courseID, moduleNo, topicPairIndex, encoded, len(questions), time.Now().UTC())
	if err != nil {
		return models.QuizAttempt{}, nil, err
	}
	return attempt, questions, nil
}

type AnswerInput struct {
	QuestionID string
	OptionID   string
}

type AnswerFeedback struct {
	QuestionID      string  `json:"questionId"`
	SelectedOption  string  `json:"selectedOptionId"`
	CorrectOption   string  `json:"correctOptionId"`
	IsCorrect       bool    `json:"isCorrect"`
	Explanation     *string `json:"explanation,omitempty"`
	AnsweredAtAll   bool    `json:"answered"`
}

// ScoreAnswers grades a submission against the question set. Unanswered
// questions count as wrong; answers referencing questions outside the set
// are ignored.
func ScoreAnswers(questions []QuestionWithOptions, answers []AnswerInput) (int, []AnswerFeedback) {
	selected := map[string]string{}
	for _, answer := range answers {
		selected[answer.QuestionID] = answer.OptionID
	}
	correct := 0
	feedback := make([]AnswerFeedback, 0, len(questions))
	for _, question := range questions {
		correctOption := ""
		for _, option := range question.Options {
			if option.IsCorrect {
				correctOption = option.ID
				break
			}
		}
		chosen, answered := selected[question.ID]
		isCorrect := answered && chosen == correctOption
		if isCorrect {
			correct++
		}
		feedback = append(feedback, AnswerFeedback{
			QuestionID:     question.ID,
			SelectedOption: chosen,
			CorrectOption:  correctOption,
			IsCorrect:      isCorrect,
			Explanation:    question.Explanation,
			AnsweredAtAll:  answered,
		})
	}
	return correct, feedback
}

type AttemptResult struct {
	AttemptID      string           `json:"attemptId"`
	Score          int              `json:"score"`
	CorrectAnswers int              `json:"correctAnswers"`
	TotalQuestions int              `json:"totalQuestions"`
	Feedback       []AnswerFeedback `json:"feedback"`
}

func SubmitAttempt(db *sqlx.DB, userID, attemptID string, answers []AnswerInput) (AttemptResult, error) {
	attempt := models.QuizAttempt{}
	err := db.Get(&attempt, `SELECT * FROM quiz_attempts WHERE id = $1`, attemptID)
	if errors.Is(err, sql.ErrNoRows) {
		return AttemptResult{}, ErrNotFound("Attempt not found")
	}
	if err != nil {
		return AttemptResult{}, err
	}
	if attempt.UserID != userID {
		return AttemptResult{}, ErrForbidden("Not allowed")
	}
	if attempt.Status != "IN_PROGRESS" {
		return AttemptResult{}, ErrBadRequest("Attempt already submitted")
	}

	ids := []string{}
	if err := json.Unmarshal(attempt.QuestionIDs, &ids); err != nil {
		return AttemptResult{}, err
	}
	questions, err := fetchQuestionsByID(db, ids)
	if err != nil {
		return AttemptResult{}, err
	}
	correct, feedback := ScoreAnswers(questions, answers)
	score := 0
	if attempt.TotalQuestions > 0 {
		score = correct * 100 / attempt.TotalQuestions
	}

	tx, err := db.Beginx()
	if err != nil {
		return AttemptResult{}, err
	}
	defer func() { _ = tx.Rollback() }()
	for _, entry := range feedback {
		if !entry.AnsweredAtAll {
			continue
		}
		_, err := tx.Exec(`
INSERT INTO quiz_attempt_answers (id, attempt_id, question_id, option_id, is_correct)
VALUES ($1,$2,$3,$4,$5)
`, uuid.NewString(), attemptID, entry.QuestionID, entry.SelectedOption, entry.IsCorrect)
		if err != nil {
			return AttemptResult{}, err
		}
	}
	_, err = tx.Exec(`
UPDATE quiz_attempts
SET status = 'SUBMITTED', score = $2, correct_answers = $3, submitted_at = $4
WHERE id = $1
`, attemptID, score, correct, time.Now().UTC())
	if err != nil {
		return AttemptResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return AttemptResult{}, err
	}
	return AttemptResult{
		AttemptID:      attemptID,
		Score:          score,
		CorrectAnswers: correct,
		TotalQuestions: attempt.TotalQuestions,
		Feedback:       feedback,
	}, nil
}

type ModuleProgress struct {
	ModuleNo  int  `db:"module_no" json:"moduleNo"`
	Attempts  int  `db:"attempts" json:"attempts"`
	BestScore *int `db:"best_score" json:"bestScore"`
}

func ModuleProgressSummary(db *sqlx.DB, userID, courseID string) ([]ModuleProgress, error) {
	summary := []ModuleProgress{}
	err := db.Select(&summary, `
SELECT module_no,
       count(*) AS attempts,
       max(score) AS best_score
FROM quiz_attempts
WHERE user_id = $1 AND course_id = $2 AND status = 'SUBMITTED'
GROUP BY module_no
ORDER BY module_no
`, userID, courseID)
	return summary, err
}

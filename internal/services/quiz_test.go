package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnpath-backend-go/internal/models"
)

func buildQuestion(id, correctOption string, wrongOptions ...string) QuestionWithOptions {
	question := QuestionWithOptions{
		QuizQuestion: models.QuizQuestion{ID: id, Question: "q"},
	}
	question.Options = append(question.Options, models.QuizOption{
		ID: correctOption, QuestionID: id, IsCorrect: true,
	})
	for _, optionID := range wrongOptions {
		question.Options = append(question.Options, models.QuizOption{
			ID: optionID, QuestionID: id,
		})
	}
	return question
}

func TestScoreAnswersAllCorrect(t *testing.T) {
	questions := []QuestionWithOptions{
		buildQuestion("q1", "q1-a", "q1-b"),
		buildQuestion("q2", "q2-a", "q2-b"),
	}
	correct, feedback := ScoreAnswers(questions, []AnswerInput{
		{QuestionID: "q1", OptionID: "q1-a"},
		{QuestionID: "q2", OptionID: "q2-a"},
	})
	assert.Equal(t, 2, correct)
	require.Len(t, feedback, 2)
	for _, entry := range feedback {
		assert.True(t, entry.IsCorrect)
		assert.True(t, entry.AnsweredAtAll)
	}
}

func TestScoreAnswersUnansweredCountsWrong(t *testing.T) {
	questions := []QuestionWithOptions{
		buildQuestion("q1", "q1-a", "q1-b"),
		buildQuestion("q2", "q2-a", "q2-b"),
	}
	correct, feedback := ScoreAnswers(questions, []AnswerInput{
		{QuestionID: "q1", OptionID: "q1-a"},
	})
	assert.Equal(t, 1, correct)
	require.Len(t, feedback, 2)
	assert.False(t, feedback[1].IsCorrect)
	assert.False(t, feedback[1].AnsweredAtAll)
}

func TestScoreAnswersWrongOption(t *testing.T) {
	questions := []QuestionWithOptions{buildQuestion("q1", "q1-a", "q1-b")}
	correct, feedback := ScoreAnswers(questions, []AnswerInput{
		{QuestionID: "q1", OptionID: "q1-b"},
	})
	assert.Equal(t, 0, correct)
	require.Len(t, feedback, 1)
	assert.False(t, feedback[0].IsCorrect)
	assert.True(t, feedback[0].AnsweredAtAll)
	assert.Equal(t, "q1-a", feedback[0].CorrectOption)
}

func TestScoreAnswersIgnoresOutOfSetAnswers(t *testing.T) {
	questions := []QuestionWithOptions{buildQuestion("q1", "q1-a", "q1-b")}
	correct, feedback := ScoreAnswers(questions, []AnswerInput{
		{QuestionID: "q1", OptionID: "q1-a"},
		{QuestionID: "intruder", OptionID: "whatever"},
	})
	assert.Equal(t, 1, correct)
	assert.Len(t, feedback, 1)
}

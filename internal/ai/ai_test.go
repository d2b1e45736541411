package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuestionsJSON(t *testing.T) {
	raw := "```json\n[{\"text\":\"What is a goroutine?\",\"expected_duration\":120},{\"text\":\"Explain channels.\",\"expected_duration\":90}]\n```"

	questions, err := parseQuestions(raw, "technical", "medium", 5)
	require.NoError(t, err)
	require.Len(t, questions, 2)

	assert.Equal(t, "What is a goroutine?", questions[0].Text)
	assert.Equal(t, "technical", questions[0].Category)
	assert.Equal(t, "medium", questions[0].Difficulty)
	assert.Equal(t, 120, questions[0].ExpectedDuration)
	assert.NotEmpty(t, questions[0].ID)
}

func TestParseQuestionsClampsDuration(t *testing.T) {
	raw := `[{"text":"Q1","expected_duration":10},{"text":"Q2","expected_duration":9999}]`

	questions, err := parseQuestions(raw, "general", "hard", 5)
	require.NoError(t, err)
	require.Len(t, questions, 2)

	// Out-of-range durations get the difficulty default
	assert.Equal(t, 240, questions[0].ExpectedDuration)
	assert.Equal(t, 240, questions[1].ExpectedDuration)
}

func TestParseQuestionsRespectsCount(t *testing.T) {
	raw := `[{"text":"Q1"},{"text":"Q2"},{"text":"Q3"},{"text":"Q4"}]`

	questions, err := parseQuestions(raw, "general", "easy", 2)
	require.NoError(t, err)
	assert.Len(t, questions, 2)
}

func TestParseQuestionsPlainLines(t *testing.T) {
	raw := "1. Tell me about yourself.\n2. Why this role?\n- What are your strengths?"

	questions, err := parseQuestions(raw, "general", "easy", 5)
	require.NoError(t, err)
	require.Len(t, questions, 3)

	assert.Equal(t, "Tell me about yourself.", questions[0].Text)
	assert.Equal(t, "Why this role?", questions[1].Text)
	assert.Equal(t, "What are your strengths?", questions[2].Text)
}

func TestParseQuestionsEmpty(t *testing.T) {
	_, err := parseQuestions("   \n  ", "general", "easy", 3)
	assert.Error(t, err)
}

func TestFallbackQuestionsKnownCategory(t *testing.T) {
	questions := FallbackQuestions("behavioral", "medium", 3)
	require.Len(t, questions, 3)

	for _, q := range questions {
		assert.Equal(t, "behavioral", q.Category)
		assert.Equal(t, "medium", q.Difficulty)
		assert.Equal(t, 150, q.ExpectedDuration)
		assert.NotEmpty(t, q.Text)
	}
}

func TestFallbackQuestionsUnknownCategory(t *testing.T) {
	// Unknown categories fall back to the general bank
	questions := FallbackQuestions("leadership", "easy", 2)
	require.Len(t, questions, 2)
	assert.Equal(t, "leadership", questions[0].Category)
}

func TestFallbackQuestionsCapsAtBankSize(t *testing.T) {
	questions := FallbackQuestions("general", "easy", 50)
	assert.Len(t, questions, 5)
}

func TestParseEvaluation(t *testing.T) {
	raw := "```json\n{\"score\": 8, \"feedback\": \"Strong answer with concrete examples.\"}\n```"

	eval := parseEvaluation(raw)
	assert.Equal(t, 8, eval.Score)
	assert.Equal(t, "Strong answer with concrete examples.", eval.Feedback)
}

func TestParseEvaluationClampsScore(t *testing.T) {
	assert.Equal(t, 10, parseEvaluation(`{"score": 15, "feedback": "x"}`).Score)
	assert.Equal(t, 1, parseEvaluation(`{"score": -3, "feedback": "x"}`).Score)
}

func TestParseEvaluationMalformed(t *testing.T) {
	eval := parseEvaluation("this is not json")
	assert.Equal(t, parseFallbackEvaluation, eval)
}

func TestExtractiveSummary(t *testing.T) {
	text := "First sentence here. Second sentence follows! Third sentence ignored. Fourth too."

	summary := extractiveSummary(text)
	assert.Equal(t, "First sentence here. Second sentence follows.", summary)
}

func TestExtractiveSummaryEmpty(t *testing.T) {
	assert.Equal(t, "Unable to generate summary.", extractiveSummary("   "))
}

func TestEnhanceRejectsUnknownMode(t *testing.T) {
	svc := NewNoteService(NewGeminiClient("key", ""))

	_, err := svc.Enhance(context.Background(), "some text", "translate")
	assert.ErrorIs(t, err, ErrInvalidEnhancement)
}

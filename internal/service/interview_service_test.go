package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/intelliprep/backend/internal/models"
)

func responsesWithScores(scores ...int) []models.InterviewResponse {
	responses := make([]models.InterviewResponse, len(scores))
	for i, s := range scores {
		responses[i] = models.InterviewResponse{Score: s}
	}
	return responses
}

func TestAverageScore(t *testing.T) {
	assert.Equal(t, 0.0, averageScore(nil))
	assert.Equal(t, 7.0, averageScore(responsesWithScores(7)))
	assert.InDelta(t, 7.5, averageScore(responsesWithScores(7, 8)), 1e-9)
}

func TestOverallFeedbackRatings(t *testing.T) {
	excellent := overallFeedback(responsesWithScores(9, 8), 8.5)
	assert.Contains(t, excellent, "Overall Performance: Excellent")
	assert.Contains(t, excellent, "2 strong responses")

	good := overallFeedback(responsesWithScores(7, 6), 6.5)
	assert.Contains(t, good, "Overall Performance: Good")

	weak := overallFeedback(responsesWithScores(4, 5), 4.5)
	assert.Contains(t, weak, "Overall Performance: Needs Improvement")
	assert.Contains(t, weak, "2 responses could be enhanced")
}

func TestOverallFeedbackCountsAnswers(t *testing.T) {
	feedback := overallFeedback(responsesWithScores(8, 5, 7), 6.7)
	assert.Contains(t, feedback, "You answered 3 questions")
	assert.Contains(t, feedback, "average score of 6.7/10")
}

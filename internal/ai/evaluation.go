package ai

import (
	"context"
	"encoding/json"
	"log"
	"strings"
)

// Evaluation holds a score and feedback for an interview answer
type Evaluation struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// Neutral evaluations used when the model output cannot be obtained or parsed
var (
	parseFallbackEvaluation = Evaluation{
		Score:    7,
		Feedback: "Your response addresses the question and shows good understanding. Consider adding more specific examples to strengthen your answer.",
	}
	errorFallbackEvaluation = Evaluation{
		Score:    6,
		Feedback: "Unable to evaluate response automatically. Your answer shows effort and understanding.",
	}
)

// EvaluationService scores interview answers via the AI backend
type EvaluationService struct {
	client *GeminiClient
}

// NewEvaluationService creates a new evaluation service
func NewEvaluationService(client *GeminiClient) *EvaluationService {
	return &EvaluationService{client: client}
}

// Evaluate scores an answer on a 1-10 scale with feedback. Failures degrade
// to a neutral evaluation rather than erroring so interview flow continues.
func (s *EvaluationService) Evaluate(ctx context.Context, question, answer string) Evaluation {
	if !s.client.Configured() {
		return errorFallbackEvaluation
	}

	prompt, err := renderPrompt(evaluatePrompt, map[string]interface{}{
		"Question": question,
		"Answer":   answer,
	})
	if err != nil {
		log.Printf("[ai] evaluation prompt render failed: %v", err)
		return errorFallbackEvaluation
	}

	text, err := s.client.GenerateText(ctx, "", prompt)
	if err != nil {
		log.Printf("[ai] response evaluation failed: %v", err)
		return errorFallbackEvaluation
	}

	return parseEvaluation(text)
}

// parseEvaluation extracts a score and feedback from model output, clamping
// the score to the valid range
func parseEvaluation(text string) Evaluation {
	cleaned := strings.TrimSpace(codeFenceRe.ReplaceAllString(text, ""))

	var eval Evaluation
	if err := json.Unmarshal([]byte(cleaned), &eval); err != nil || eval.Feedback == "" {
		return parseFallbackEvaluation
	}

	if eval.Score < 1 {
		eval.Score = 1
	}
	if eval.Score > 10 {
		eval.Score = 10
	}

	return eval
}

package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/intelliprep/backend/internal/models"
)

var (
	codeFenceRe  = regexp.MustCompile("(?s)```(?:json)?\\n?|\\n?```")
	listPrefixRe = regexp.MustCompile(`^(\d+\.\s*|[-*]\s*)`)
)

// QuestionService generates interview questions via the AI backend with a
// curated fallback bank when generation fails.
type QuestionService struct {
	client *GeminiClient
}

// NewQuestionService creates a new question service
func NewQuestionService(client *GeminiClient) *QuestionService {
	return &QuestionService{client: client}
}

// rawQuestion mirrors the JSON shape the model is asked to produce
type rawQuestion struct {
	Text             string `json:"text"`
	Category         string `json:"category"`
	Difficulty       string `json:"difficulty"`
	ExpectedDuration int    `json:"expected_duration"`
}

// Generate produces count interview questions for the category and
// difficulty. Generation failures degrade to the fallback bank rather than
// erroring, so an interview can always start.
func (s *QuestionService) Generate(ctx context.Context, category, difficulty string, count int) []models.InterviewQuestion {
	if !s.client.Configured() {
		return FallbackQuestions(category, difficulty, count)
	}

	prompt, err := renderPrompt(questionsPrompt, map[string]interface{}{
		"Count":      count,
		"Category":   category,
		"Difficulty": difficulty,
	})
	if err != nil {
		log.Printf("[ai] question prompt render failed: %v", err)
		return FallbackQuestions(category, difficulty, count)
	}

	text, err := s.client.GenerateText(ctx, "", prompt)
	if err != nil {
		log.Printf("[ai] question generation failed, using fallback bank: %v", err)
		return FallbackQuestions(category, difficulty, count)
	}

	questions, err := parseQuestions(text, category, difficulty, count)
	if err != nil {
		log.Printf("[ai] question parse failed, using fallback bank: %v", err)
		return FallbackQuestions(category, difficulty, count)
	}

	return questions
}

// parseQuestions extracts questions from model output. JSON is tried first;
// plain numbered or bulleted lines are accepted as a degraded form.
func parseQuestions(text, category, difficulty string, count int) ([]models.InterviewQuestion, error) {
	cleaned := strings.TrimSpace(codeFenceRe.ReplaceAllString(text, ""))

	var raw []rawQuestion
	if err := json.Unmarshal([]byte(cleaned), &raw); err == nil {
		questions := make([]models.InterviewQuestion, 0, len(raw))
		for i, q := range raw {
			if strings.TrimSpace(q.Text) == "" {
				continue
			}
			duration := q.ExpectedDuration
			if duration < 60 || duration > 300 {
				duration = defaultDuration(difficulty)
			}
			questions = append(questions, models.InterviewQuestion{
				ID:               fmt.Sprintf("q_%d_%d", time.Now().UnixMilli(), i),
				Text:             strings.TrimSpace(q.Text),
				Category:         category,
				Difficulty:       difficulty,
				ExpectedDuration: duration,
			})
			if len(questions) == count {
				break
			}
		}
		if len(questions) > 0 {
			return questions, nil
		}
	}

	// Degraded parse: one question per non-empty line
	var questions []models.InterviewQuestion
	for i, line := range strings.Split(cleaned, "\n") {
		line = listPrefixRe.ReplaceAllString(strings.TrimSpace(line), "")
		if line == "" {
			continue
		}
		questions = append(questions, models.InterviewQuestion{
			ID:               fmt.Sprintf("q_%d_%d", time.Now().UnixMilli(), i),
			Text:             line,
			Category:         category,
			Difficulty:       difficulty,
			ExpectedDuration: defaultDuration(difficulty),
		})
		if len(questions) == count {
			break
		}
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("no questions found in model output")
	}
	return questions, nil
}

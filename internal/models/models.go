package models

import (
	"encoding/json"
	"time"
)

// Note represents a study note. Calculator results and interview transcripts
// are saved as notes with the corresponding flag set and the structured
// payload attached.
type Note struct {
	ID                    string          `json:"id" db:"id"`
	UserID                string          `json:"user_id" db:"user_id"`
	Title                 string          `json:"title" db:"title"`
	Content               string          `json:"content" db:"content"`
	Category              string          `json:"category" db:"category"`
	IsCalculation         bool            `json:"is_calculation" db:"is_calculation"`
	IsInterviewTranscript bool            `json:"is_interview_transcript" db:"is_interview_transcript"`
	CalculationData       json.RawMessage `json:"calculation_data,omitempty" db:"calculation_data"`
	InterviewData         json.RawMessage `json:"interview_data,omitempty" db:"interview_data"`
	CreatedAt             time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at" db:"updated_at"`
}

// Calculation represents a saved calculator entry
type Calculation struct {
	ID              string          `json:"id" db:"id"`
	UserID          string          `json:"user_id" db:"user_id"`
	Expression      string          `json:"expression" db:"expression"`
	Result          float64         `json:"result" db:"result"`
	CalculationType string          `json:"calculation_type" db:"calculation_type"`
	Metadata        json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// Interview status values
const (
	InterviewPending    = "pending"
	InterviewInProgress = "in_progress"
	InterviewCompleted  = "completed"
)

// InterviewQuestion is a single generated interview question
type InterviewQuestion struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	Category         string `json:"category"`
	Difficulty       string `json:"difficulty"`
	ExpectedDuration int    `json:"expected_duration"` // seconds
}

// InterviewResponse is a scored answer to one interview question
type InterviewResponse struct {
	QuestionID   string `json:"question_id"`
	QuestionText string `json:"question_text"`
	Answer       string `json:"answer"`
	Duration     int    `json:"duration"` // seconds spent answering
	Score        int    `json:"score"`
	Feedback     string `json:"feedback"`
	Timestamp    string `json:"timestamp"`
}

// MockInterview represents an AI-driven mock interview session
type MockInterview struct {
	ID          string              `json:"id" db:"id"`
	UserID      string              `json:"user_id" db:"user_id"`
	Title       string              `json:"title" db:"title"`
	Status      string              `json:"status" db:"status"`
	Questions   []InterviewQuestion `json:"questions" db:"questions"`
	Responses   []InterviewResponse `json:"responses" db:"responses"`
	Transcript  string              `json:"transcript,omitempty" db:"transcript"`
	Duration    int                 `json:"duration" db:"duration"` // total seconds
	Score       int                 `json:"score" db:"score"`
	Feedback    string              `json:"feedback,omitempty" db:"feedback"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty" db:"completed_at"`
}

// Interview categories and difficulties accepted by question generation
var (
	InterviewCategories   = []string{"general", "technical", "behavioral", "leadership", "problem-solving"}
	InterviewDifficulties = []string{"easy", "medium", "hard"}
)

// IsValidInterviewCategory checks if a category is supported
func IsValidInterviewCategory(category string) bool {
	for _, c := range InterviewCategories {
		if c == category {
			return true
		}
	}
	return false
}

// IsValidInterviewDifficulty checks if a difficulty is supported
func IsValidInterviewDifficulty(difficulty string) bool {
	for _, d := range InterviewDifficulties {
		if d == difficulty {
			return true
		}
	}
	return false
}

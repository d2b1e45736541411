package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/intelliprep/backend/internal/ai"
	"github.com/intelliprep/backend/internal/models"
	"github.com/intelliprep/backend/internal/quota"
	"github.com/intelliprep/backend/internal/repository"
)

const (
	// DefaultQuestionCount is used when a create request omits the count
	DefaultQuestionCount = 5
	// MaxQuestionCount caps questions per interview
	MaxQuestionCount = 10
)

var (
	// ErrInvalidCategory is returned for an unsupported interview category
	ErrInvalidCategory = errors.New("invalid interview category")
	// ErrInvalidDifficulty is returned for an unsupported difficulty
	ErrInvalidDifficulty = errors.New("invalid interview difficulty")
	// ErrInterviewFinished is returned when answering a completed interview
	ErrInterviewFinished = errors.New("interview already completed")
	// ErrUnknownQuestion is returned when a response references a question
	// that is not part of the interview
	ErrUnknownQuestion = errors.New("question not part of interview")
)

// SubmitResult carries the evaluation of one answer and remaining quota
type SubmitResult struct {
	Score     int    `json:"score"`
	Feedback  string `json:"feedback"`
	Remaining int    `json:"remaining"`
}

// InterviewService drives mock interview sessions. Question generation and
// answer evaluation each consume one unit of the caller's daily AI quota.
type InterviewService struct {
	interviews *repository.InterviewRepository
	notes      *repository.NoteRepository
	questions  *ai.QuestionService
	evaluator  *ai.EvaluationService
	gate       *quota.Gate
}

// NewInterviewService creates a new interview service
func NewInterviewService(
	interviews *repository.InterviewRepository,
	notes *repository.NoteRepository,
	questions *ai.QuestionService,
	evaluator *ai.EvaluationService,
	gate *quota.Gate,
) *InterviewService {
	return &InterviewService{
		interviews: interviews,
		notes:      notes,
		questions:  questions,
		evaluator:  evaluator,
		gate:       gate,
	}
}

// Create starts a new mock interview: one AI call is consumed, questions are
// generated, and the pending session is stored.
func (s *InterviewService) Create(ctx context.Context, userID, title, category, difficulty string, questionCount int) (*models.MockInterview, error) {
	if !models.IsValidInterviewCategory(category) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCategory, category)
	}
	if !models.IsValidInterviewDifficulty(difficulty) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDifficulty, difficulty)
	}
	if questionCount <= 0 {
		questionCount = DefaultQuestionCount
	}
	if questionCount > MaxQuestionCount {
		questionCount = MaxQuestionCount
	}
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("%s interview (%s)", category, difficulty)
	}

	if _, err := consumeQuota(ctx, s.gate, userID); err != nil {
		return nil, err
	}

	interview := &models.MockInterview{
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		Status:    models.InterviewPending,
		Questions: s.questions.Generate(ctx, category, difficulty, questionCount),
	}
	if err := s.interviews.Create(ctx, interview); err != nil {
		return nil, err
	}

	return interview, nil
}

// Get returns an interview, enforcing ownership
func (s *InterviewService) Get(ctx context.Context, id, userID string) (*models.MockInterview, error) {
	interview, err := s.interviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if interview.UserID != userID {
		return nil, ErrNotOwner
	}
	return interview, nil
}

// List returns the user's interviews, newest first
func (s *InterviewService) List(ctx context.Context, userID string) ([]models.MockInterview, error) {
	return s.interviews.ListByUser(ctx, userID)
}

// Start moves a pending interview to in progress
func (s *InterviewService) Start(ctx context.Context, id, userID string) error {
	interview, err := s.Get(ctx, id, userID)
	if err != nil {
		return err
	}
	if interview.Status == models.InterviewCompleted {
		return ErrInterviewFinished
	}
	return s.interviews.SetStatus(ctx, id, models.InterviewInProgress)
}

// SubmitResponse evaluates one answer, consuming one AI call, and appends the
// scored response to the session.
func (s *InterviewService) SubmitResponse(ctx context.Context, id, userID, questionID, answer string, duration int) (*SubmitResult, error) {
	interview, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if interview.Status == models.InterviewCompleted {
		return nil, ErrInterviewFinished
	}

	var question *models.InterviewQuestion
	for i := range interview.Questions {
		if interview.Questions[i].ID == questionID {
			question = &interview.Questions[i]
			break
		}
	}
	if question == nil {
		return nil, ErrUnknownQuestion
	}

	decision, err := consumeQuota(ctx, s.gate, userID)
	if err != nil {
		return nil, err
	}

	eval := s.evaluator.Evaluate(ctx, question.Text, answer)

	responses := append(interview.Responses, models.InterviewResponse{
		QuestionID:   questionID,
		QuestionText: question.Text,
		Answer:       answer,
		Duration:     duration,
		Score:        eval.Score,
		Feedback:     eval.Feedback,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	})
	if err := s.interviews.SetResponses(ctx, id, responses); err != nil {
		return nil, err
	}

	return &SubmitResult{
		Score:     eval.Score,
		Feedback:  eval.Feedback,
		Remaining: decision.Remaining,
	}, nil
}

// Complete finishes an interview: the average score and overall feedback are
// computed locally and the transcript is archived as a note. No AI call is
// consumed.
func (s *InterviewService) Complete(ctx context.Context, id, userID, transcript string, totalDuration int) (*models.MockInterview, error) {
	interview, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if interview.Status == models.InterviewCompleted {
		return nil, ErrInterviewFinished
	}

	average := averageScore(interview.Responses)
	feedback := overallFeedback(interview.Responses, average)
	score := int(average + 0.5)

	if err := s.interviews.Complete(ctx, id, transcript, totalDuration, score, feedback); err != nil {
		return nil, err
	}

	if strings.TrimSpace(transcript) != "" {
		s.archiveTranscript(ctx, interview, transcript, score)
	}

	return s.Get(ctx, id, userID)
}

// Delete removes an interview owned by the user
func (s *InterviewService) Delete(ctx context.Context, id, userID string) error {
	return s.interviews.Delete(ctx, id, userID)
}

// archiveTranscript saves the transcript as a note, best effort
func (s *InterviewService) archiveTranscript(ctx context.Context, interview *models.MockInterview, transcript string, score int) {
	data, err := json.Marshal(map[string]interface{}{
		"interview_id": interview.ID,
		"score":        score,
	})
	if err != nil {
		return
	}

	note := &models.Note{
		UserID:                interview.UserID,
		Title:                 "Transcript: " + interview.Title,
		Content:               transcript,
		Category:              "interview",
		IsInterviewTranscript: true,
		InterviewData:         data,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		log.Printf("[interview] failed to archive transcript for %s: %v", interview.ID, err)
	}
}

// averageScore computes the mean response score, zero when unanswered
func averageScore(responses []models.InterviewResponse) float64 {
	if len(responses) == 0 {
		return 0
	}
	sum := 0
	for _, r := range responses {
		sum += r.Score
	}
	return float64(sum) / float64(len(responses))
}

// overallFeedback summarizes the session from the per-answer scores
func overallFeedback(responses []models.InterviewResponse, average float64) string {
	strong, weak := 0, 0
	for _, r := range responses {
		if r.Score >= 8 {
			strong++
		}
		if r.Score < 6 {
			weak++
		}
	}

	rating := "Needs Improvement"
	if average >= 8 {
		rating = "Excellent"
	} else if average >= 6 {
		rating = "Good"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Overall Performance: %s\n\n", rating)
	fmt.Fprintf(&b, "You answered %d questions with an average score of %.1f/10.\n\n", len(responses), average)
	if strong > 0 {
		fmt.Fprintf(&b, "Strengths: You provided %d strong responses showing good understanding and communication skills.\n\n", strong)
	}
	if weak > 0 {
		fmt.Fprintf(&b, "Areas for Improvement: %d responses could be enhanced with more specific examples and clearer explanations.\n\n", weak)
	}
	b.WriteString("Keep practicing to improve your interview skills!")

	return b.String()
}

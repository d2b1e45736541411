package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"text/template"
)

// Enhancement modes for note text
const (
	EnhanceGrammar  = "grammar"
	EnhanceExpand   = "expand"
	EnhanceSimplify = "simplify"
)

// ErrInvalidEnhancement is returned for an unknown enhancement mode
var ErrInvalidEnhancement = errors.New("invalid enhancement type")

// NoteService provides AI text operations for notes
type NoteService struct {
	client *GeminiClient
}

// NewNoteService creates a new note AI service
func NewNoteService(client *GeminiClient) *NoteService {
	return &NoteService{client: client}
}

// Summarize produces a short summary of the text. When the AI backend is
// unavailable it degrades to an extractive summary of the first sentences.
func (s *NoteService) Summarize(ctx context.Context, text string) string {
	if !s.client.Configured() {
		return extractiveSummary(text)
	}

	prompt, err := renderPrompt(summarizePrompt, map[string]interface{}{"Text": text})
	if err != nil {
		log.Printf("[ai] summarize prompt render failed: %v", err)
		return extractiveSummary(text)
	}

	summary, err := s.client.GenerateText(ctx, "", prompt)
	if err != nil {
		log.Printf("[ai] summarization failed, using extractive fallback: %v", err)
		return extractiveSummary(text)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return extractiveSummary(text)
	}
	return summary
}

// Enhance rewrites the text in the requested mode. Unlike Summarize there is
// no useful local fallback, so failures propagate.
func (s *NoteService) Enhance(ctx context.Context, text, mode string) (string, error) {
	var tmpl *template.Template
	switch mode {
	case EnhanceGrammar:
		tmpl = enhanceGrammarPrompt
	case EnhanceExpand:
		tmpl = enhanceExpandPrompt
	case EnhanceSimplify:
		tmpl = enhanceSimplifyPrompt
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidEnhancement, mode)
	}

	prompt, err := renderPrompt(tmpl, map[string]interface{}{"Text": text})
	if err != nil {
		return "", err
	}

	enhanced, err := s.client.GenerateText(ctx, "", prompt)
	if err != nil {
		return "", fmt.Errorf("failed to enhance text: %w", err)
	}

	return strings.TrimSpace(enhanced), nil
}

// extractiveSummary returns the first two sentences of the text
func extractiveSummary(text string) string {
	var sentences []string
	for _, s := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	}) {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
		if len(sentences) == 2 {
			break
		}
	}

	if len(sentences) == 0 {
		return "Unable to generate summary."
	}
	return strings.Join(sentences, ". ") + "."
}

package ai

import (
	"bytes"
	"fmt"
	"text/template"
)

// Prompt templates for the study companion AI features. Kept together so the
// model-facing wording can be reviewed in one place.
var (
	summarizePrompt = template.Must(template.New("summarize").Parse(
		`Please provide a concise summary of the following text. Keep it under 100 words and focus on the key points:

{{.Text}}`))

	enhanceGrammarPrompt = template.Must(template.New("grammar").Parse(
		`Please correct the grammar and spelling in the following text while maintaining its original meaning and tone:

{{.Text}}`))

	enhanceExpandPrompt = template.Must(template.New("expand").Parse(
		`Please expand on the following text by adding more detail and context while keeping the same tone:

{{.Text}}`))

	enhanceSimplifyPrompt = template.Must(template.New("simplify").Parse(
		`Please simplify the following text to make it clearer and easier to understand:

{{.Text}}`))

	questionsPrompt = template.Must(template.New("questions").Parse(
		`Generate {{.Count}} {{.Difficulty}} level {{.Category}} interview questions.
Each question should be realistic, professional, and appropriate for the difficulty level.

Format the response as a JSON array with objects containing:
- text: the question text
- category: "{{.Category}}"
- difficulty: "{{.Difficulty}}"
- expected_duration: estimated time in seconds to answer (60-300 seconds)

Categories and their focus:
- general: Basic professional questions about experience, goals, strengths
- technical: Role-specific technical knowledge and problem-solving
- behavioral: Past experiences, teamwork, conflict resolution
- leadership: Management, decision-making, team guidance
- problem-solving: Analytical thinking, creative solutions

Difficulty levels:
- easy: Entry-level, basic concepts
- medium: Mid-level, some experience required
- hard: Senior-level, complex scenarios

Return only the JSON array, no additional text.`))

	evaluatePrompt = template.Must(template.New("evaluate").Parse(
		`Evaluate this interview response on a scale of 1-10 and provide constructive feedback.

Question: {{.Question}}

Answer: {{.Answer}}

Please evaluate based on:
- Relevance to the question
- Clarity and structure
- Specific examples or details
- Professional communication
- Completeness of the response

Provide your response in JSON format with:
{
  "score": number (1-10),
  "feedback": "detailed constructive feedback explaining the score and suggestions for improvement"
}

Be encouraging but honest in your evaluation. Return only the JSON, no additional text.`))
)

// renderPrompt executes a template against data
func renderPrompt(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %q: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

package ai

import (
	"fmt"
	"time"

	"github.com/intelliprep/backend/internal/models"
)

// Curated question bank used when the AI backend is unavailable or returns
// output that cannot be parsed. Categories without a bank fall back to general.
var fallbackQuestions = map[string]map[string][]string{
	"general": {
		"easy": {
			"Tell me about yourself and your background.",
			"Why are you interested in this position?",
			"What are your greatest strengths?",
			"Where do you see yourself in 5 years?",
			"Why do you want to work for our company?",
		},
		"medium": {
			"Describe a challenging project you worked on recently.",
			"How do you handle stress and pressure?",
			"What motivates you in your work?",
			"Describe your ideal work environment.",
			"How do you stay updated with industry trends?",
		},
		"hard": {
			"How would you handle a situation where you disagree with your manager?",
			"Describe a time when you had to make a difficult decision with limited information.",
			"How do you balance competing priorities and deadlines?",
			"What would you do if you discovered a major flaw in a project just before launch?",
			"How do you handle failure and what have you learned from past failures?",
		},
	},
	"technical": {
		"easy": {
			"What programming languages are you most comfortable with?",
			"Explain the difference between a class and an object.",
			"What is version control and why is it important?",
			"Describe the basic structure of a database.",
			"What is the difference between frontend and backend development?",
		},
		"medium": {
			"Explain the concept of Big O notation and its importance.",
			"How would you optimize a slow database query?",
			"Describe the difference between REST and GraphQL APIs.",
			"What are design patterns and can you give an example?",
			"How do you ensure code quality in your projects?",
		},
		"hard": {
			"Design a system to handle millions of concurrent users.",
			"How would you implement a distributed caching system?",
			"Explain microservices architecture and its trade-offs.",
			"How would you debug a memory leak in a production application?",
			"Design a real-time chat system with message persistence.",
		},
	},
	"behavioral": {
		"easy": {
			"Tell me about a time you worked well in a team.",
			"Describe a situation where you helped a colleague.",
			"How do you handle constructive criticism?",
			"Tell me about a goal you set and achieved.",
			"Describe a time when you learned something new quickly.",
		},
		"medium": {
			"Tell me about a time you had to deal with a difficult team member.",
			"Describe a situation where you had to adapt to significant changes.",
			"How do you handle competing deadlines?",
			"Tell me about a time you made a mistake and how you handled it.",
			"Describe a situation where you had to persuade someone to see your point of view.",
		},
		"hard": {
			"Tell me about a time you had to make an unpopular decision.",
			"Describe a situation where you had to manage conflict within your team.",
			"How did you handle a situation where you had insufficient resources to complete a project?",
			"Tell me about a time you had to deliver bad news to stakeholders.",
			"Describe a situation where you had to challenge the status quo.",
		},
	},
}

// FallbackQuestions returns up to count questions from the curated bank
func FallbackQuestions(category, difficulty string, count int) []models.InterviewQuestion {
	byCategory, ok := fallbackQuestions[category]
	if !ok {
		byCategory = fallbackQuestions["general"]
	}
	texts, ok := byCategory[difficulty]
	if !ok {
		texts = byCategory["easy"]
	}

	if count > len(texts) {
		count = len(texts)
	}

	questions := make([]models.InterviewQuestion, 0, count)
	for i := 0; i < count; i++ {
		questions = append(questions, models.InterviewQuestion{
			ID:               fmt.Sprintf("fallback_%d_%d", time.Now().UnixMilli(), i),
			Text:             texts[i],
			Category:         category,
			Difficulty:       difficulty,
			ExpectedDuration: defaultDuration(difficulty),
		})
	}
	return questions
}

// defaultDuration estimates answer time in seconds for a difficulty level
func defaultDuration(difficulty string) int {
	switch difficulty {
	case "easy":
		return 90
	case "medium":
		return 150
	default:
		return 240
	}
}

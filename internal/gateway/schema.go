package gateway

import "github.com/abhisek/tutorly/internal/llm"

// QuizSchema is the structured output for quiz generation.
var QuizSchema = &llm.Schema{
	Name:        "quiz-set",
	Description: "A set of multiple-choice questions for one subject",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"topic":    map[string]any{"type": "string", "description": "Short topic name inside the subject"},
						"question": map[string]any{"type": "string"},
						"options": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Exactly 4 answer options",
						},
						"correctAnswer": map[string]any{"type": "integer", "description": "Zero-based index of the correct option"},
						"explanation":   map[string]any{"type": "string"},
					},
					"required":             []any{"topic", "question", "options", "correctAnswer", "explanation"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}

// TranslationSchema is the structured output for translation.
var TranslationSchema = &llm.Schema{
	Name:        "translation",
	Description: "Line-by-line translation with grammar analysis",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"lines": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"original":    map[string]any{"type": "string"},
						"translated":  map[string]any{"type": "string"},
						"explanation": map[string]any{"type": "string"},
						"grammarAnalysis": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"word":         map[string]any{"type": "string"},
									"partOfSpeech": map[string]any{"type": "string"},
									"explanation":  map[string]any{"type": "string"},
								},
								"required":             []any{"word", "partOfSpeech", "explanation"},
								"additionalProperties": false,
							},
						},
					},
					"required":             []any{"original", "translated", "explanation", "grammarAnalysis"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"lines"},
		"additionalProperties": false,
	},
}

// StudyPlanSchema is the structured output for study planning.
var StudyPlanSchema = &llm.Schema{
	Name:        "study-plan",
	Description: "Daily goals, weak topics and the next thing to study",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"dailyGoals": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"weakTopics": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"nextStudy":  map[string]any{"type": "string"},
		},
		"required":             []any{"dailyGoals", "weakTopics", "nextStudy"},
		"additionalProperties": false,
	},
}

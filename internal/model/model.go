// Package model defines the data shared by the tutoring core, the store and
// the front ends.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ChatMessage is one turn of a tutoring conversation. Only the most recent
// model message is mutated, while its reply streams in.
type ChatMessage struct {
	ID          string   `json:"id" firestore:"id"`
	Role        Role     `json:"role" firestore:"role"`
	Text        string   `json:"text" firestore:"text"`
	Image       string   `json:"image,omitempty" firestore:"image,omitempty"`
	Timestamp   int64    `json:"timestamp" firestore:"timestamp"`
	Suggestions []string `json:"suggestions,omitempty" firestore:"suggestions,omitempty"`
}

// NewMessage returns a message stamped with a fresh id and the current time
// in epoch milliseconds.
func NewMessage(role Role, text, image string) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Image:     image,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Subject names a conversation. Unknown identifiers are accepted verbatim.
type Subject string

const (
	SubjectMath      Subject = "Math"
	SubjectPhysics   Subject = "Physics"
	SubjectChemistry Subject = "Chemistry"
	SubjectBiology   Subject = "Biology"
	SubjectICT       Subject = "ICT"
	SubjectEnglish   Subject = "English"
	SubjectBangla    Subject = "Bangla"
	SubjectGeneral   Subject = "General"
)

// Subjects returns the built-in catalogue in display order.
func Subjects() []Subject {
	return []Subject{
		SubjectMath, SubjectPhysics, SubjectChemistry, SubjectBiology,
		SubjectICT, SubjectEnglish, SubjectBangla, SubjectGeneral,
	}
}

// ParseSubject matches s case-insensitively against the catalogue and
// otherwise returns it trimmed.
func ParseSubject(s string) Subject {
	s = strings.TrimSpace(s)
	for _, sub := range Subjects() {
		if strings.EqualFold(string(sub), s) {
			return sub
		}
	}
	return Subject(s)
}

// MCQQuestion is a multiple-choice question.
type MCQQuestion struct {
	ID            string   `json:"id"`
	Topic         string   `json:"topic"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// StudyPlan is produced wholesale by the planner.
type StudyPlan struct {
	DailyGoals []string `json:"dailyGoals"`
	WeakTopics []string `json:"weakTopics"`
	NextStudy  string   `json:"nextStudy"`
}

// IsZero reports whether the plan carries no content.
func (p StudyPlan) IsZero() bool {
	return len(p.DailyGoals) == 0 && len(p.WeakTopics) == 0 && p.NextStudy == ""
}

// GrammarNote explains one word of a translated line.
type GrammarNote struct {
	Word         string `json:"word"`
	PartOfSpeech string `json:"partOfSpeech"`
	Explanation  string `json:"explanation"`
}

// TranslatedLine is one source line with its translation and analysis.
type TranslatedLine struct {
	Original        string        `json:"original"`
	Translated      string        `json:"translated"`
	Explanation     string        `json:"explanation"`
	GrammarAnalysis []GrammarNote `json:"grammarAnalysis"`
}

// TranslationResult holds the line-by-line translation.
type TranslationResult struct {
	Lines []TranslatedLine `json:"lines"`
}

// Citation is a web source backing a news summary.
type Citation struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// NewsResult is a grounded news summary.
type NewsResult struct {
	Text    string     `json:"text"`
	Sources []Citation `json:"sources"`
}

// Profile is the per-user settings document.
type Profile struct {
	UserID         string   `json:"userId" firestore:"userId"`
	DisplayName    string   `json:"displayName" firestore:"displayName"`
	Email          string   `json:"email" firestore:"email"`
	Theme          string   `json:"theme" firestore:"theme"`
	Locale         string   `json:"locale" firestore:"locale"`
	DefaultSubject Subject  `json:"defaultSubject" firestore:"defaultSubject"`
	WeakTopics     []string `json:"weakTopics" firestore:"weakTopics"`
	UpdatedAt      int64    `json:"updatedAt" firestore:"updatedAt"`
}

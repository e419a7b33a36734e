package gateway

import (
	"fmt"
	"strings"

	"github.com/abhisek/tutorly/internal/model"
)

const tutorSystemPrompt = `You are Tutorly, a patient and friendly tutor for secondary and higher-secondary students in Bangladesh.

Rules:
- Answer in the language the student writes in (Bangla or English).
- Structure every explanation in four parts, each introduced by a "###" heading:
  ### Concept
  ### Step-by-step
  ### Example
  ### Summary
- Use "-" for bullet points and "1." style numbering for steps.
- Write math in plain text. Use ^2 and ^3 for powers. Never use $ or LaTeX.
- Keep the tone encouraging. If a photo of a problem is attached, read it carefully before answering.
- End every reply with exactly one line of three short follow-up questions the student might ask next, in this form:
  [[SUGGESTIONS: first question | second question | third question]]`

const translateSystemPrompt = `You are a bilingual Bangla-English language teacher.

Rules:
- Translate the text line by line. Keep the original line order and produce one entry per non-empty input line.
- For each line give a natural translation, a one-sentence explanation of meaning or usage, and a grammar analysis of the important words (word, part of speech, short explanation).
- Write explanations in English.`

const quizSystemPrompt = `You are an examiner writing multiple-choice questions for secondary and higher-secondary students in Bangladesh.

Rules:
- Every question has exactly 4 options with exactly one correct answer.
- correctAnswer is the zero-based index of the correct option.
- Each question has a short topic name (two or three words) inside the subject.
- The explanation says why the correct option is right in one or two sentences.
- Write math in plain text. Never use $ or LaTeX.
- Do not repeat questions.`

const planSystemPrompt = `You are a study coach for a secondary school student.

Rules:
- dailyGoals: 3 to 5 concrete goals for today, each under 15 words.
- weakTopics: the topics that need the most attention, most urgent first.
- nextStudy: one sentence naming what to study next and why.`

func buildTutorTurn(in TutorInput) string {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" && in.Image != "" {
		prompt = "Please explain the problem in this image."
	}
	ctx := strings.TrimSpace(in.Context)
	if ctx == "" {
		return prompt
	}
	return fmt.Sprintf("Context:\n%s\n\nQuestion:\n%s", ctx, prompt)
}

func buildTranslateMessage(text string, dir Direction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Direction: %s\n\n", dir.Label())
	b.WriteString("Text:\n")
	b.WriteString(text)
	return b.String()
}

func buildQuizMessage(subject model.Subject, n int) string {
	return fmt.Sprintf("Subject: %s\nNumber of questions: %d", subject, n)
}

func buildPlanMessage(topics []string) string {
	var b strings.Builder
	b.WriteString("Topics the student struggled with recently:\n")
	if len(topics) == 0 {
		b.WriteString("None recorded. Suggest a balanced revision plan.")
		return b.String()
	}
	for i, t := range topics {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t)
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildNewsMessage(locale string) string {
	region := "Bangladesh"
	lang := "English"
	if strings.HasPrefix(strings.ToLower(locale), "bn") {
		lang = "Bangla"
	}
	return fmt.Sprintf(`Find the five most important recent news stories about education, science and technology that matter to students in %s.
Write in %s. For each story give a "###" headline followed by two short sentences. Use search results only from the last seven days.`, region, lang)
}

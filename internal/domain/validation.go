package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	DefaultPassThreshold = 70

	minTitleLen       = 3
	maxTitleLen       = 255
	maxDescriptionLen = 2000
	minQuestionLen    = 5
	maxQuestionLen    = 2000
	maxQuestionOrder  = 100
	minAnswers        = 2
	maxAnswerLen      = 1000
	maxAnswerOrder    = 50
	minNameLen        = 2
	maxNameLen        = 255
)

var (
	accessCodePattern   = regexp.MustCompile(`^[A-Z0-9]{6}$`)
	titlePattern        = regexp.MustCompile(`^[\p{L}\p{N}\s\-_.!?]+$`)
	descriptionPattern  = regexp.MustCompile(`^[\p{L}\p{N}\s\-_.!?,;:()"']+$`)
	namePattern         = regexp.MustCompile(`^[\p{L}\s\-'.]+$`)
	answerForbiddenRune = regexp.MustCompile("[<>{}\"\\\\\\[\\]`]")
	answerDangerous     = regexp.MustCompile(`(?i)(javascript:|data:|vbscript:|onload=|onerror=)`)
	controlChars        = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	scriptBlocks        = regexp.MustCompile(`(?is)<(script|iframe)[^>]*>.*?</(script|iframe)>`)
)

// SanitizeQuestionText trims, drops control characters and script/iframe blocks.
func SanitizeQuestionText(text string) string {
	text = strings.TrimSpace(text)
	text = controlChars.ReplaceAllString(text, "")
	text = scriptBlocks.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// NormalizeEmail lowercases and trims an email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeAccessCode trims and uppercases a user-supplied code.
func NormalizeAccessCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidAccessCode reports whether code is six uppercase alphanumerics.
func ValidAccessCode(code string) bool {
	return accessCodePattern.MatchString(code)
}

// ValidateQuestionnaire checks the questionnaire's own fields; questions are validated separately.
func ValidateQuestionnaire(q Questionnaire) Violations {
	var v Violations
	n := utf8.RuneCountInString(q.Title)
	switch {
	case n < minTitleLen || n > maxTitleLen:
		v.Add("title", fmt.Sprintf("must be between %d and %d characters", minTitleLen, maxTitleLen))
	case !titlePattern.MatchString(q.Title):
		v.Add("title", "contains forbidden characters")
	}
	if q.Description != "" {
		if utf8.RuneCountInString(q.Description) > maxDescriptionLen {
			v.Add("description", fmt.Sprintf("must be at most %d characters", maxDescriptionLen))
		} else if !descriptionPattern.MatchString(q.Description) {
			v.Add("description", "contains forbidden characters")
		}
	}
	if !ValidAccessCode(q.AccessCode) {
		v.Add("accessCode", "must be 6 uppercase letters or digits")
	}
	if q.PassThreshold < 0 || q.PassThreshold > 100 {
		v.Add("passThreshold", "must be between 0 and 100")
	}
	if q.CreatedAt.IsZero() {
		v.Add("createdAt", "is required")
	}
	return v
}

// ValidateQuestion checks a fully assembled question, answers included.
func ValidateQuestion(q Question) Violations {
	var v Violations
	n := utf8.RuneCountInString(q.Text)
	switch {
	case q.Text == "":
		v.Add("text", "is required")
	case n < minQuestionLen || n > maxQuestionLen:
		v.Add("text", fmt.Sprintf("must be between %d and %d characters", minQuestionLen, maxQuestionLen))
	case !strings.HasSuffix(q.Text, "?"):
		v.Add("text", "must end with a question mark")
	}
	if q.Order < 1 || q.Order > maxQuestionOrder {
		v.Add("order", fmt.Sprintf("must be between 1 and %d", maxQuestionOrder))
	}
	if len(q.Answers) < minAnswers {
		v.Add("answers", fmt.Sprintf("at least %d answers are required", minAnswers))
	}
	if countCorrect(q.Answers) == 0 {
		v.Add("answers", "at least one answer must be correct")
	}
	for i, a := range q.Answers {
		v.Merge(fmt.Sprintf("answers[%d].", i), ValidateAnswer(a))
	}
	return v
}

// countCorrect works on flags rather than ids so unsaved answers count too.
func countCorrect(answers []Answer) int {
	n := 0
	for _, a := range answers {
		if a.Correct {
			n++
		}
	}
	return n
}

// ValidateAnswer checks one answer's fields.
func ValidateAnswer(a Answer) Violations {
	var v Violations
	n := utf8.RuneCountInString(a.Text)
	switch {
	case strings.TrimSpace(a.Text) == "":
		v.Add("text", "is required")
	case n > maxAnswerLen:
		v.Add("text", fmt.Sprintf("must be at most %d characters", maxAnswerLen))
	case answerForbiddenRune.MatchString(a.Text):
		v.Add("text", "contains forbidden characters")
	case answerDangerous.MatchString(a.Text):
		v.Add("text", "contains potentially dangerous content")
	}
	if a.Order < 1 || a.Order > maxAnswerOrder {
		v.Add("order", fmt.Sprintf("must be between 1 and %d", maxAnswerOrder))
	}
	return v
}

// ValidateParticipant checks the names recorded on an attempt.
func ValidateParticipant(p Participant) Violations {
	var v Violations
	check := func(field, value string) {
		n := utf8.RuneCountInString(value)
		switch {
		case n < minNameLen || n > maxNameLen:
			v.Add(field, fmt.Sprintf("must be between %d and %d characters", minNameLen, maxNameLen))
		case !namePattern.MatchString(value):
			v.Add(field, "may only contain letters, spaces, hyphens, apostrophes and dots")
		}
	}
	check("firstName", p.FirstName)
	check("lastName", p.LastName)
	return v
}

// ValidateAttempt checks attempt invariants before persistence.
func ValidateAttempt(a Attempt) Violations {
	v := ValidateParticipant(Participant{FirstName: a.FirstName, LastName: a.LastName})
	if a.StartedAt.IsZero() {
		v.Add("startedAt", "is required")
	}
	if a.FinishedAt != nil && a.FinishedAt.Before(a.StartedAt) {
		v.Add("finishedAt", "must not be before startedAt")
	}
	if a.Score < 0 {
		v.Add("score", "must not be negative")
	}
	if a.TotalQuestions < 0 {
		v.Add("totalQuestions", "must not be negative")
	}
	if a.Score > a.TotalQuestions {
		v.Add("score", "must not exceed totalQuestions")
	}
	return v
}

// ValidateSelectedAnswer checks that the row is consistent with its attempt, quiz and question.
func ValidateSelectedAnswer(s SelectedAnswer, a Attempt, quiz Questionnaire) Violations {
	var v Violations
	question, ok := quiz.Question(s.QuestionID)
	if !ok || a.QuestionnaireID != quiz.ID {
		v.Add("questionId", "does not belong to the attempt's questionnaire")
		return v
	}
	if _, ok := question.Answer(s.AnswerID); !ok {
		v.Add("answerId", "does not belong to the question")
	}
	if s.AnsweredAt.Before(a.StartedAt) {
		v.Add("answeredAt", "must not be before the attempt start")
	}
	if a.FinishedAt != nil && s.AnsweredAt.After(*a.FinishedAt) {
		v.Add("answeredAt", "must not be after the attempt end")
	}
	return v
}

package app

import (
	"time"

	"quizdesk-service/internal/domain"
)

// QuizView is the management representation of a questionnaire, correctness included.
type QuizView struct {
	ID             int64          `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	AccessCode     string         `json:"accessCode"`
	Active         bool           `json:"isActive"`
	Started        bool           `json:"isStarted"`
	PassThreshold  int            `json:"passThreshold"`
	CreatedAt      time.Time      `json:"createdAt"`
	QuestionsCount int            `json:"questionsCount"`
	Questions      []QuestionView `json:"questions,omitempty"`
}

// QuestionView is a question with its answers for authors.
type QuestionView struct {
	ID             int64           `json:"id"`
	Text           string          `json:"text"`
	Order          int             `json:"order"`
	MultipleChoice bool            `json:"isMultipleChoice"`
	Answers        []domain.Answer `json:"answers"`
}

func newQuizView(q domain.Questionnaire, withQuestions bool) QuizView {
	view := QuizView{
		ID:             q.ID,
		Title:          q.Title,
		Description:    q.Description,
		AccessCode:     q.AccessCode,
		Active:         q.Active,
		Started:        q.Started,
		PassThreshold:  q.PassThreshold,
		CreatedAt:      q.CreatedAt,
		QuestionsCount: len(q.Questions),
	}
	if withQuestions {
		view.Questions = make([]QuestionView, 0, len(q.Questions))
		for _, question := range q.OrderedQuestions() {
			view.Questions = append(view.Questions, newQuestionView(question))
		}
	}
	return view
}

func newQuestionView(q domain.Question) QuestionView {
	return QuestionView{
		ID:             q.ID,
		Text:           q.Text,
		Order:          q.Order,
		MultipleChoice: q.IsMultipleChoice(),
		Answers:        q.OrderedAnswers(),
	}
}

// PlayQuiz is the payload sent to participants. It never carries answer correctness.
type PlayQuiz struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	AccessCode    string         `json:"accessCode"`
	PassThreshold int            `json:"passThreshold"`
	Active        bool           `json:"isActive"`
	Started       bool           `json:"isStarted"`
	CreatedAt     time.Time      `json:"createdAt"`
	Questions     []PlayQuestion `json:"questions"`
}

type PlayQuestion struct {
	ID             int64        `json:"id"`
	Text           string       `json:"text"`
	Order          int          `json:"order"`
	MultipleChoice bool         `json:"isMultipleChoice"`
	Answers        []PlayAnswer `json:"answers"`
}

type PlayAnswer struct {
	ID    int64  `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

func newPlayQuiz(q domain.Questionnaire) PlayQuiz {
	play := PlayQuiz{
		ID:            q.ID,
		Title:         q.Title,
		Description:   q.Description,
		AccessCode:    q.AccessCode,
		PassThreshold: q.PassThreshold,
		Active:        q.Active,
		Started:       q.Started,
		CreatedAt:     q.CreatedAt,
		Questions:     make([]PlayQuestion, 0, len(q.Questions)),
	}
	for _, question := range q.OrderedQuestions() {
		pq := PlayQuestion{
			ID:             question.ID,
			Text:           question.Text,
			Order:          question.Order,
			MultipleChoice: question.IsMultipleChoice(),
		}
		for _, a := range question.OrderedAnswers() {
			pq.Answers = append(pq.Answers, PlayAnswer{ID: a.ID, Text: a.Text, Order: a.Order})
		}
		play.Questions = append(play.Questions, pq)
	}
	return play
}

// SubmissionResult summarizes a scored attempt.
type SubmissionResult struct {
	AttemptID      int64   `json:"attemptId"`
	Percentage     float64 `json:"score"`
	PassThreshold  int     `json:"passThreshold"`
	Passed         bool    `json:"passed"`
	CorrectCount   int     `json:"correctAnswers"`
	TotalQuestions int     `json:"totalQuestions"`
}

// AnswerView exposes an answer with its correctness, only after submission.
type AnswerView struct {
	ID      int64  `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// QuestionResult is the per-question breakdown of an attempt.
type QuestionResult struct {
	QuestionID      int64        `json:"questionId"`
	Text            string       `json:"text"`
	MultipleChoice  bool         `json:"isMultipleChoice"`
	SelectedAnswers []AnswerView `json:"selectedAnswers"`
	CorrectAnswers  []AnswerView `json:"correctAnswers"`
	Correct         bool         `json:"correct"`
}

// QuizRef identifies the questionnaire of an attempt.
type QuizRef struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	AccessCode string `json:"accessCode"`
}

// AttemptResults is the detailed breakdown of one attempt.
type AttemptResults struct {
	AttemptID      int64            `json:"attemptId"`
	FirstName      string           `json:"firstName"`
	LastName       string           `json:"lastName"`
	Percentage     float64          `json:"score"`
	CorrectCount   int              `json:"correctAnswers"`
	TotalQuestions int              `json:"totalQuestions"`
	Passed         bool             `json:"passed"`
	StartedAt      time.Time        `json:"startedAt"`
	FinishedAt     *time.Time       `json:"finishedAt,omitempty"`
	Quiz           QuizRef          `json:"questionnaire"`
	Questions      []QuestionResult `json:"results"`
}

// UserRef identifies the account an attempt is bound to.
type UserRef struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// AttemptSummary is a row of a questionnaire's attempt list.
type AttemptSummary struct {
	ID             int64      `json:"id"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	StartedAt      time.Time  `json:"startedAt"`
	FinishedAt     *time.Time `json:"finishedAt,omitempty"`
	Score          int        `json:"score"`
	TotalQuestions int        `json:"totalQuestions"`
	Percentage     float64    `json:"percentage"`
	Passed         bool       `json:"passed"`
	User           *UserRef   `json:"user,omitempty"`
}

// HistoryEntry is a row of a user's attempt history.
type HistoryEntry struct {
	ID             int64   `json:"id"`
	QuizTitle      string  `json:"questionnaireTitle"`
	QuizCode       string  `json:"questionnaireCode"`
	Date           string  `json:"date"`
	Time           string  `json:"time"`
	Score          int     `json:"score"`
	TotalQuestions int     `json:"totalQuestions"`
	Percentage     float64 `json:"percentage"`
	Passed         bool    `json:"passed"`
}

// UserStats aggregates a user's attempts.
type UserStats struct {
	TotalAttempts  int     `json:"totalAttempts"`
	AverageScore   float64 `json:"averageScore"`
	PassedAttempts int     `json:"passedAttempts"`
	PassRate       float64 `json:"passRate"`
}

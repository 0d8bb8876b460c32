package app

import (
	"context"
	"time"

	"quizdesk-service/internal/domain"
)

// QuestionnaireFilter narrows ListQuestionnaires. Zero values mean "any".
type QuestionnaireFilter struct {
	CreatorID  int64
	ActiveOnly bool
}

// AttemptFilter narrows ListAttempts. Results are ordered newest first.
type AttemptFilter struct {
	QuestionnaireID int64
	UserID          int64
}

// UserStore persists accounts. Stores return domain.ErrEmailTaken on duplicate emails.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	UpdateUser(ctx context.Context, u domain.User) error
	GetUser(ctx context.Context, id int64) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetUserByResetToken(ctx context.Context, token string) (domain.User, error)
}

// QuizStore persists questionnaires, questions and answers as flat rows.
// Get/List methods on questionnaires never populate Questions; use LoadQuiz for the aggregate.
type QuizStore interface {
	CreateQuestionnaire(ctx context.Context, q *domain.Questionnaire) error
	UpdateQuestionnaire(ctx context.Context, q domain.Questionnaire) error
	DeleteQuestionnaire(ctx context.Context, id int64) error
	GetQuestionnaire(ctx context.Context, id int64) (domain.Questionnaire, error)
	GetQuestionnaireByCode(ctx context.Context, code string) (domain.Questionnaire, error)
	AccessCodeExists(ctx context.Context, code string) (bool, error)
	ListQuestionnaires(ctx context.Context, filter QuestionnaireFilter) ([]domain.Questionnaire, error)

	// CreateQuestion inserts the question and its answers, filling in their ids.
	CreateQuestion(ctx context.Context, q *domain.Question) error
	UpdateQuestion(ctx context.Context, q domain.Question) error
	DeleteQuestion(ctx context.Context, id int64) error
	// GetQuestion returns the question with its answers.
	GetQuestion(ctx context.Context, id int64) (domain.Question, error)

	CreateAnswer(ctx context.Context, a *domain.Answer) error
	UpdateAnswer(ctx context.Context, a domain.Answer) error
	DeleteAnswer(ctx context.Context, id int64) error
	GetAnswer(ctx context.Context, id int64) (domain.Answer, error)

	// LoadQuiz returns the questionnaire with questions and answers.
	LoadQuiz(ctx context.Context, id int64) (domain.Questionnaire, error)
}

// AttemptStore persists attempts and their selected answers.
type AttemptStore interface {
	// CreateAttempt inserts the attempt and its selected answers, filling in ids.
	CreateAttempt(ctx context.Context, a *domain.Attempt, selected []domain.SelectedAnswer) error
	GetAttempt(ctx context.Context, id int64) (domain.Attempt, error)
	ListAttempts(ctx context.Context, filter AttemptFilter) ([]domain.Attempt, error)
	ListSelectedAnswers(ctx context.Context, attemptID int64) ([]domain.SelectedAnswer, error)
	DeleteAttempt(ctx context.Context, id int64) error
}

// Store is the persistence gateway used by every service.
type Store interface {
	UserStore
	QuizStore
	AttemptStore
	// WithinTx runs fn against a transactional view; any error rolls every write back.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// QuizLoader fetches a questionnaire aggregate from a backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID int64) (domain.Questionnaire, error)
}

// QuizRepository serves questionnaire aggregates for play and scoring, usually from a cache.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Questionnaire, error)
	Invalidate(ctx context.Context, quizID int64) error
}

// CodeReserver claims freshly drawn access codes for a short window so that concurrent
// creators do not race on the same code. The storage unique index stays authoritative.
type CodeReserver interface {
	Reserve(ctx context.Context, code string) (bool, error)
	Release(ctx context.Context, code string)
}

// Notifier delivers out-of-band messages to users.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error
}

// TokenIssuer mints bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(u domain.User) (string, error)
}

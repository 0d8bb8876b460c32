package app_test

import (
	"context"
	"testing"
	"time"

	"quizdesk-service/internal/app"
	"quizdesk-service/internal/domain"
	"quizdesk-service/internal/infra/memory"
)

type fixture struct {
	store     *memory.Store
	quizzes   *memory.QuizRepository
	catalog   *app.CatalogService
	questions *app.QuestionService
	attempts  *app.AttemptService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	quizzes := memory.NewQuizRepository(store, time.Minute)
	return &fixture{
		store:     store,
		quizzes:   quizzes,
		catalog:   app.NewCatalogService(store, quizzes, memory.NewCodeReserver(time.Minute)),
		questions: app.NewQuestionService(store, quizzes),
		attempts:  app.NewAttemptService(store, quizzes),
	}
}

// user stores an account and returns its caller identity.
func (f *fixture) user(t *testing.T, email string, roles ...domain.Role) *domain.Caller {
	t.Helper()
	u := domain.User{
		Email:        email,
		PasswordHash: []byte("x"),
		Roles:        roles,
		FirstName:    "Test",
		LastName:     "User",
		CreatedAt:    time.Now().UTC(),
	}
	if err := f.store.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return domain.CallerFromUser(u)
}

func (f *fixture) quiz(t *testing.T, owner *domain.Caller, title string) app.QuizView {
	t.Helper()
	q, err := f.catalog.CreateQuiz(context.Background(), owner, app.QuizInput{Title: title})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return q
}

// question adds a question whose answers are correct where the flag is true.
func (f *fixture) question(t *testing.T, owner *domain.Caller, quizID int64, text string, correct ...bool) app.QuestionView {
	t.Helper()
	in := app.QuestionInput{Text: text}
	for i, c := range correct {
		in.Answers = append(in.Answers, app.AnswerInput{Text: string(rune('A' + i)), Correct: c})
	}
	q, err := f.questions.AddQuestion(context.Background(), owner, quizID, in)
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	return q
}

func correctSelections(q app.QuestionView) []domain.Selection {
	var out []domain.Selection
	for _, a := range q.Answers {
		if a.Correct {
			out = append(out, domain.Selection{QuestionID: q.ID, AnswerID: a.ID})
		}
	}
	return out
}

func wrongSelection(q app.QuestionView) domain.Selection {
	for _, a := range q.Answers {
		if !a.Correct {
			return domain.Selection{QuestionID: q.ID, AnswerID: a.ID}
		}
	}
	panic("question has no wrong answer")
}

func ptr[T any](v T) *T { return &v }

var ann = domain.Participant{FirstName: "Ann", LastName: "Lee"}

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizdesk-service/internal/app"
	"quizdesk-service/internal/domain"
)

func TestStoreRejectsDuplicateAccessCode(t *testing.T) {
	store := NewStore()
	seedQuiz(t, store)
	dup := domain.Questionnaire{Title: "Other", AccessCode: "ABC123", CreatorID: 2}
	err := store.CreateQuestionnaire(context.Background(), &dup)
	if !errors.Is(err, domain.ErrAccessCodeTaken) || !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected access code conflict, got %v", err)
	}
	exists, _ := store.AccessCodeExists(context.Background(), "ABC123")
	if !exists {
		t.Fatal("expected code to exist")
	}
}

func TestStoreRejectsDuplicateEmail(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	if err := store.CreateUser(ctx, &domain.User{Email: "a@example.com"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	err := store.CreateUser(ctx, &domain.User{Email: "a@example.com"})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestStoreWithinTxRollsBack(t *testing.T) {
	store := NewStore()
	quizID := seedQuiz(t, store)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(tx app.Store) error {
		a := domain.Attempt{QuestionnaireID: quizID, FirstName: "Ann", LastName: "Lee", StartedAt: time.Now()}
		if err := tx.CreateAttempt(ctx, &a, nil); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	attempts, _ := store.ListAttempts(ctx, app.AttemptFilter{QuestionnaireID: quizID})
	if len(attempts) != 0 {
		t.Fatalf("expected rollback, found %d attempts", len(attempts))
	}
}

func TestStoreWithinTxCommits(t *testing.T) {
	store := NewStore()
	quizID := seedQuiz(t, store)
	ctx := context.Background()
	quiz, _ := store.LoadQuiz(ctx, quizID)
	question := quiz.Questions[0]

	var attemptID int64
	err := store.WithinTx(ctx, func(tx app.Store) error {
		now := time.Now()
		a := domain.Attempt{QuestionnaireID: quizID, FirstName: "Ann", LastName: "Lee", StartedAt: now, FinishedAt: &now, Score: 1, TotalQuestions: 1}
		rows := []domain.SelectedAnswer{{QuestionID: question.ID, AnswerID: question.Answers[1].ID, AnsweredAt: now}}
		if err := tx.CreateAttempt(ctx, &a, rows); err != nil {
			return err
		}
		attemptID = a.ID
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	selected, _ := store.ListSelectedAnswers(ctx, attemptID)
	if len(selected) != 1 || selected[0].AttemptID != attemptID {
		t.Fatalf("expected one selected answer bound to the attempt, got %+v", selected)
	}
}

func TestStoreDeleteQuestionnaireCascades(t *testing.T) {
	store := NewStore()
	quizID := seedQuiz(t, store)
	ctx := context.Background()
	quiz, _ := store.LoadQuiz(ctx, quizID)
	question := quiz.Questions[0]
	a := domain.Attempt{QuestionnaireID: quizID, FirstName: "Ann", LastName: "Lee", StartedAt: time.Now()}
	rows := []domain.SelectedAnswer{{QuestionID: question.ID, AnswerID: question.Answers[0].ID}}
	if err := store.CreateAttempt(ctx, &a, rows); err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	if err := store.DeleteQuestionnaire(ctx, quizID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetQuestion(ctx, question.ID); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question gone, got %v", err)
	}
	if _, err := store.GetAnswer(ctx, question.Answers[0].ID); !errors.Is(err, domain.ErrAnswerNotFound) {
		t.Fatalf("expected answer gone, got %v", err)
	}
	if _, err := store.GetAttempt(ctx, a.ID); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt gone, got %v", err)
	}
	if exists, _ := store.AccessCodeExists(ctx, "ABC123"); exists {
		t.Fatal("expected access code to be released")
	}
}

func TestStoreDeleteAnswerDropsSelections(t *testing.T) {
	store := NewStore()
	quizID := seedQuiz(t, store)
	ctx := context.Background()
	quiz, _ := store.LoadQuiz(ctx, quizID)
	question := quiz.Questions[0]
	a := domain.Attempt{QuestionnaireID: quizID, FirstName: "Ann", LastName: "Lee", StartedAt: time.Now()}
	rows := []domain.SelectedAnswer{
		{QuestionID: question.ID, AnswerID: question.Answers[0].ID},
		{QuestionID: question.ID, AnswerID: question.Answers[1].ID},
	}
	if err := store.CreateAttempt(ctx, &a, rows); err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	if err := store.DeleteAnswer(ctx, question.Answers[0].ID); err != nil {
		t.Fatalf("delete answer: %v", err)
	}
	selected, _ := store.ListSelectedAnswers(ctx, a.ID)
	if len(selected) != 1 || selected[0].AnswerID != question.Answers[1].ID {
		t.Fatalf("expected only the remaining selection, got %+v", selected)
	}
}

func TestStoreListAttemptsNewestFirst(t *testing.T) {
	store := NewStore()
	quizID := seedQuiz(t, store)
	ctx := context.Background()
	uid := int64(7)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		a := domain.Attempt{QuestionnaireID: quizID, UserID: &uid, FirstName: "Ann", LastName: "Lee", StartedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := store.CreateAttempt(ctx, &a, nil); err != nil {
			t.Fatalf("create attempt: %v", err)
		}
	}
	anon := domain.Attempt{QuestionnaireID: quizID, FirstName: "Bob", LastName: "Ray", StartedAt: base}
	if err := store.CreateAttempt(ctx, &anon, nil); err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	mine, _ := store.ListAttempts(ctx, app.AttemptFilter{UserID: uid})
	if len(mine) != 3 {
		t.Fatalf("expected 3 attempts for user, got %d", len(mine))
	}
	for i := 1; i < len(mine); i++ {
		if mine[i].StartedAt.After(mine[i-1].StartedAt) {
			t.Fatalf("attempts not newest first: %+v", mine)
		}
	}
}

func TestStoreResetTokenLookup(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	u := domain.User{Email: "a@example.com"}
	if err := store.CreateUser(ctx, &u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.GetUserByResetToken(ctx, ""); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("empty token must not match, got %v", err)
	}
	u.ResetToken = "tok"
	if err := store.UpdateUser(ctx, u); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := store.GetUserByResetToken(ctx, "tok")
	if err != nil || got.ID != u.ID {
		t.Fatalf("expected user %d, got %+v err %v", u.ID, got, err)
	}
}

package app

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"quizdesk-service/internal/domain"
)

// AnswerInput describes an answer in an authoring payload. ID is set only when
// updating an answer that already exists on the question.
type AnswerInput struct {
	ID      int64
	Text    string
	Correct bool
	Order   *int
}

// QuestionInput describes a new question with its answers.
type QuestionInput struct {
	Text    string
	Order   *int
	Answers []AnswerInput
}

// QuestionPatch updates a question. A non-nil Answers replaces the answer set:
// entries with an ID update that answer, entries without create one, missing ones are deleted.
type QuestionPatch struct {
	Text    *string
	Order   *int
	Answers []AnswerInput
}

// AnswerPatch updates a single answer.
type AnswerPatch struct {
	Text    *string
	Correct *bool
	Order   *int
}

// QuestionService authors questions and answers. Every write re-checks ownership on the
// resolved questionnaire and validates the assembled question before persisting.
type QuestionService struct {
	store   Store
	quizzes QuizRepository
}

func NewQuestionService(store Store, quizzes QuizRepository) *QuestionService {
	return &QuestionService{store: store, quizzes: quizzes}
}

// AddQuestion appends a question to a questionnaire; order defaults to max(existing)+1.
func (s *QuestionService) AddQuestion(ctx context.Context, caller *domain.Caller, quizID int64, in QuestionInput) (QuestionView, error) {
	quiz, err := s.store.LoadQuiz(ctx, quizID)
	if err != nil {
		return QuestionView{}, err
	}
	if err := domain.AuthorizeManage(caller, quiz); err != nil {
		return QuestionView{}, err
	}
	q := domain.Question{
		QuestionnaireID: quiz.ID,
		Text:            domain.SanitizeQuestionText(in.Text),
		Order:           quiz.NextQuestionOrder(),
	}
	if in.Order != nil {
		q.Order = *in.Order
	}
	for i, a := range in.Answers {
		if a.ID != 0 {
			return QuestionView{}, domain.Invalid(fmt.Sprintf("answers[%d].id", i), "must not be set on a new answer")
		}
		q.Answers = append(q.Answers, newAnswer(a, i+1))
	}
	if err := domain.ValidateQuestion(q).Err(); err != nil {
		return QuestionView{}, err
	}
	err = s.store.WithinTx(ctx, func(tx Store) error {
		return tx.CreateQuestion(ctx, &q)
	})
	if err != nil {
		return QuestionView{}, err
	}
	invalidate(ctx, s.quizzes, quiz.ID)
	log.WithFields(log.Fields{"quiz_id": quiz.ID, "question_id": q.ID}).Debug("question added")
	return newQuestionView(q), nil
}

// UpdateQuestion changes text, order and optionally the answer set.
func (s *QuestionService) UpdateQuestion(ctx context.Context, caller *domain.Caller, id int64, patch QuestionPatch) (QuestionView, error) {
	q, err := s.managedQuestion(ctx, caller, id)
	if err != nil {
		return QuestionView{}, err
	}
	if patch.Text != nil {
		q.Text = domain.SanitizeQuestionText(*patch.Text)
	}
	if patch.Order != nil {
		q.Order = *patch.Order
	}

	var removed []int64
	if patch.Answers != nil {
		next := make([]domain.Answer, 0, len(patch.Answers))
		kept := map[int64]struct{}{}
		for i, in := range patch.Answers {
			if in.ID == 0 {
				next = append(next, newAnswer(in, i+1))
				continue
			}
			existing, ok := q.Answer(in.ID)
			if !ok {
				return QuestionView{}, domain.Invalid(fmt.Sprintf("answers[%d].id", i), "does not belong to this question")
			}
			if _, dup := kept[in.ID]; dup {
				return QuestionView{}, domain.Invalid(fmt.Sprintf("answers[%d].id", i), "is listed twice")
			}
			kept[in.ID] = struct{}{}
			updated := newAnswer(in, i+1)
			updated.ID = existing.ID
			next = append(next, updated)
		}
		for _, a := range q.Answers {
			if _, ok := kept[a.ID]; !ok {
				removed = append(removed, a.ID)
			}
		}
		q.Answers = next
	}
	if err := domain.ValidateQuestion(q).Err(); err != nil {
		return QuestionView{}, err
	}

	err = s.store.WithinTx(ctx, func(tx Store) error {
		if err := tx.UpdateQuestion(ctx, q); err != nil {
			return err
		}
		if patch.Answers == nil {
			return nil
		}
		for _, answerID := range removed {
			if err := tx.DeleteAnswer(ctx, answerID); err != nil {
				return err
			}
		}
		for i := range q.Answers {
			a := &q.Answers[i]
			a.QuestionID = q.ID
			if a.ID == 0 {
				if err := tx.CreateAnswer(ctx, a); err != nil {
					return err
				}
				continue
			}
			if err := tx.UpdateAnswer(ctx, *a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return QuestionView{}, err
	}
	invalidate(ctx, s.quizzes, q.QuestionnaireID)
	return newQuestionView(q), nil
}

// DeleteQuestion removes the question, its answers and the selections that referenced it.
func (s *QuestionService) DeleteQuestion(ctx context.Context, caller *domain.Caller, id int64) error {
	q, err := s.managedQuestion(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	invalidate(ctx, s.quizzes, q.QuestionnaireID)
	return nil
}

// GetQuestion returns one question with correctness flags.
func (s *QuestionService) GetQuestion(ctx context.Context, caller *domain.Caller, id int64) (QuestionView, error) {
	q, err := s.managedQuestion(ctx, caller, id)
	if err != nil {
		return QuestionView{}, err
	}
	return newQuestionView(q), nil
}

// ListQuestions returns the questionnaire's questions in order.
func (s *QuestionService) ListQuestions(ctx context.Context, caller *domain.Caller, quizID int64) ([]QuestionView, error) {
	quiz, err := s.store.LoadQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := domain.AuthorizeManage(caller, quiz); err != nil {
		return nil, err
	}
	views := make([]QuestionView, 0, len(quiz.Questions))
	for _, q := range quiz.OrderedQuestions() {
		views = append(views, newQuestionView(q))
	}
	return views, nil
}

// AddAnswer appends an answer; order defaults to the next position.
func (s *QuestionService) AddAnswer(ctx context.Context, caller *domain.Caller, questionID int64, in AnswerInput) (QuestionView, error) {
	q, err := s.managedQuestion(ctx, caller, questionID)
	if err != nil {
		return QuestionView{}, err
	}
	if in.ID != 0 {
		return QuestionView{}, domain.Invalid("id", "must not be set on a new answer")
	}
	a := newAnswer(in, len(q.Answers)+1)
	a.QuestionID = q.ID
	assembled := q
	assembled.Answers = append(append([]domain.Answer(nil), q.Answers...), a)
	if err := domain.ValidateQuestion(assembled).Err(); err != nil {
		return QuestionView{}, err
	}
	if err := s.store.CreateAnswer(ctx, &a); err != nil {
		return QuestionView{}, err
	}
	assembled.Answers[len(assembled.Answers)-1] = a
	invalidate(ctx, s.quizzes, q.QuestionnaireID)
	return newQuestionView(assembled), nil
}

// UpdateAnswer changes one answer; the question must remain valid afterwards.
func (s *QuestionService) UpdateAnswer(ctx context.Context, caller *domain.Caller, answerID int64, patch AnswerPatch) (QuestionView, error) {
	q, idx, err := s.managedAnswer(ctx, caller, answerID)
	if err != nil {
		return QuestionView{}, err
	}
	a := q.Answers[idx]
	if patch.Text != nil {
		a.Text = strings.TrimSpace(*patch.Text)
	}
	if patch.Correct != nil {
		a.Correct = *patch.Correct
	}
	if patch.Order != nil {
		a.Order = *patch.Order
	}
	q.Answers[idx] = a
	if err := domain.ValidateQuestion(q).Err(); err != nil {
		return QuestionView{}, err
	}
	if err := s.store.UpdateAnswer(ctx, a); err != nil {
		return QuestionView{}, err
	}
	invalidate(ctx, s.quizzes, q.QuestionnaireID)
	return newQuestionView(q), nil
}

// DeleteAnswer removes an answer unless the question would drop below two answers or lose
// its last correct one.
func (s *QuestionService) DeleteAnswer(ctx context.Context, caller *domain.Caller, answerID int64) (QuestionView, error) {
	q, idx, err := s.managedAnswer(ctx, caller, answerID)
	if err != nil {
		return QuestionView{}, err
	}
	q.Answers = append(q.Answers[:idx:idx], q.Answers[idx+1:]...)
	if err := domain.ValidateQuestion(q).Err(); err != nil {
		return QuestionView{}, err
	}
	if err := s.store.DeleteAnswer(ctx, answerID); err != nil {
		return QuestionView{}, err
	}
	invalidate(ctx, s.quizzes, q.QuestionnaireID)
	return newQuestionView(q), nil
}

// ReorderAnswers renumbers the answers 1..N by their current order, stable under ties.
func (s *QuestionService) ReorderAnswers(ctx context.Context, caller *domain.Caller, questionID int64) (QuestionView, error) {
	q, err := s.managedQuestion(ctx, caller, questionID)
	if err != nil {
		return QuestionView{}, err
	}
	q.ReorderAnswers()
	err = s.store.WithinTx(ctx, func(tx Store) error {
		for _, a := range q.Answers {
			if err := tx.UpdateAnswer(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return QuestionView{}, err
	}
	invalidate(ctx, s.quizzes, q.QuestionnaireID)
	return newQuestionView(q), nil
}

func (s *QuestionService) managedQuestion(ctx context.Context, caller *domain.Caller, id int64) (domain.Question, error) {
	if err := domain.RequireAuthenticated(caller); err != nil {
		return domain.Question{}, err
	}
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	quiz, err := s.store.GetQuestionnaire(ctx, q.QuestionnaireID)
	if err != nil {
		return domain.Question{}, err
	}
	if err := domain.AuthorizeManage(caller, quiz); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

func (s *QuestionService) managedAnswer(ctx context.Context, caller *domain.Caller, answerID int64) (domain.Question, int, error) {
	if err := domain.RequireAuthenticated(caller); err != nil {
		return domain.Question{}, 0, err
	}
	a, err := s.store.GetAnswer(ctx, answerID)
	if err != nil {
		return domain.Question{}, 0, err
	}
	q, err := s.managedQuestion(ctx, caller, a.QuestionID)
	if err != nil {
		return domain.Question{}, 0, err
	}
	for i := range q.Answers {
		if q.Answers[i].ID == answerID {
			return q, i, nil
		}
	}
	return domain.Question{}, 0, domain.ErrAnswerNotFound
}

func newAnswer(in AnswerInput, defaultOrder int) domain.Answer {
	a := domain.Answer{
		ID:      in.ID,
		Text:    strings.TrimSpace(in.Text),
		Correct: in.Correct,
		Order:   defaultOrder,
	}
	if in.Order != nil {
		a.Order = *in.Order
	}
	return a
}

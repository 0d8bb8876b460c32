package memory

import (
	"context"
	"sort"
	"sync"

	"quizdesk-service/internal/app"
	"quizdesk-service/internal/domain"
)

// Store is an in-memory app.Store. Entities live in flat tables keyed by id and reference each
// other by id; aggregates are assembled on read. Transactions copy the tables and swap them in
// on success.
type Store struct {
	mu   *sync.Mutex
	t    *tables
	inTx bool
}

type sequences struct {
	user, quiz, question, answer, attempt, selected int64
}

type tables struct {
	users     map[int64]domain.User
	quizzes   map[int64]domain.Questionnaire
	questions map[int64]domain.Question
	answers   map[int64]domain.Answer
	attempts  map[int64]domain.Attempt
	selected  map[int64]domain.SelectedAnswer

	byEmail map[string]int64
	byCode  map[string]int64
	seq     sequences
}

func newTables() *tables {
	return &tables{
		users:     make(map[int64]domain.User),
		quizzes:   make(map[int64]domain.Questionnaire),
		questions: make(map[int64]domain.Question),
		answers:   make(map[int64]domain.Answer),
		attempts:  make(map[int64]domain.Attempt),
		selected:  make(map[int64]domain.SelectedAnswer),
		byEmail:   make(map[string]int64),
		byCode:    make(map[string]int64),
	}
}

func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.users {
		v.Roles = append([]domain.Role(nil), v.Roles...)
		c.users[k] = v
	}
	for k, v := range t.quizzes {
		c.quizzes[k] = v
	}
	for k, v := range t.questions {
		c.questions[k] = v
	}
	for k, v := range t.answers {
		c.answers[k] = v
	}
	for k, v := range t.attempts {
		c.attempts[k] = v
	}
	for k, v := range t.selected {
		c.selected[k] = v
	}
	for k, v := range t.byEmail {
		c.byEmail[k] = v
	}
	for k, v := range t.byCode {
		c.byCode[k] = v
	}
	c.seq = t.seq
	return c
}

func NewStore() *Store {
	return &Store{mu: &sync.Mutex{}, t: newTables()}
}

var _ app.Store = (*Store)(nil)

// lock takes the store mutex unless the call runs inside WithinTx, which already holds it.
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx app.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &Store{mu: s.mu, t: s.t.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.t = tx.t
	return nil
}

// Users

func (s *Store) CreateUser(_ context.Context, u *domain.User) error {
	defer s.lock()()
	if _, ok := s.t.byEmail[u.Email]; ok {
		return domain.ErrEmailTaken
	}
	s.t.seq.user++
	u.ID = s.t.seq.user
	stored := *u
	stored.Roles = append([]domain.Role(nil), u.Roles...)
	s.t.users[u.ID] = stored
	s.t.byEmail[u.Email] = u.ID
	return nil
}

func (s *Store) UpdateUser(_ context.Context, u domain.User) error {
	defer s.lock()()
	old, ok := s.t.users[u.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if owner, ok := s.t.byEmail[u.Email]; ok && owner != u.ID {
		return domain.ErrEmailTaken
	}
	delete(s.t.byEmail, old.Email)
	u.Roles = append([]domain.Role(nil), u.Roles...)
	s.t.users[u.ID] = u
	s.t.byEmail[u.Email] = u.ID
	return nil
}

func (s *Store) GetUser(_ context.Context, id int64) (domain.User, error) {
	defer s.lock()()
	return s.t.user(id)
}

func (t *tables) user(id int64) (domain.User, error) {
	u, ok := t.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	u.Roles = append([]domain.Role(nil), u.Roles...)
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	defer s.lock()()
	id, ok := s.t.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.t.user(id)
}

func (s *Store) GetUserByResetToken(_ context.Context, token string) (domain.User, error) {
	defer s.lock()()
	if token == "" {
		return domain.User{}, domain.ErrUserNotFound
	}
	for id, u := range s.t.users {
		if u.ResetToken == token {
			return s.t.user(id)
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

// Questionnaires

func (s *Store) CreateQuestionnaire(_ context.Context, q *domain.Questionnaire) error {
	defer s.lock()()
	if _, ok := s.t.byCode[q.AccessCode]; ok {
		return domain.ErrAccessCodeTaken
	}
	s.t.seq.quiz++
	q.ID = s.t.seq.quiz
	stored := *q
	stored.Questions = nil
	s.t.quizzes[q.ID] = stored
	s.t.byCode[q.AccessCode] = q.ID
	return nil
}

func (s *Store) UpdateQuestionnaire(_ context.Context, q domain.Questionnaire) error {
	defer s.lock()()
	old, ok := s.t.quizzes[q.ID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	if owner, ok := s.t.byCode[q.AccessCode]; ok && owner != q.ID {
		return domain.ErrAccessCodeTaken
	}
	delete(s.t.byCode, old.AccessCode)
	q.Questions = nil
	s.t.quizzes[q.ID] = q
	s.t.byCode[q.AccessCode] = q.ID
	return nil
}

// DeleteQuestionnaire cascades to questions, answers, attempts and selected answers.
func (s *Store) DeleteQuestionnaire(_ context.Context, id int64) error {
	defer s.lock()()
	q, ok := s.t.quizzes[id]
	if !ok {
		return domain.ErrQuizNotFound
	}
	for qid, question := range s.t.questions {
		if question.QuestionnaireID == id {
			s.t.deleteQuestion(qid)
		}
	}
	for aid, attempt := range s.t.attempts {
		if attempt.QuestionnaireID == id {
			s.t.deleteAttempt(aid)
		}
	}
	delete(s.t.byCode, q.AccessCode)
	delete(s.t.quizzes, id)
	return nil
}

func (s *Store) GetQuestionnaire(_ context.Context, id int64) (domain.Questionnaire, error) {
	defer s.lock()()
	q, ok := s.t.quizzes[id]
	if !ok {
		return domain.Questionnaire{}, domain.ErrQuizNotFound
	}
	return q, nil
}

func (s *Store) GetQuestionnaireByCode(_ context.Context, code string) (domain.Questionnaire, error) {
	defer s.lock()()
	id, ok := s.t.byCode[code]
	if !ok {
		return domain.Questionnaire{}, domain.ErrQuizNotFound
	}
	return s.t.quizzes[id], nil
}

func (s *Store) AccessCodeExists(_ context.Context, code string) (bool, error) {
	defer s.lock()()
	_, ok := s.t.byCode[code]
	return ok, nil
}

// ListQuestionnaires returns matching questionnaires, newest first.
func (s *Store) ListQuestionnaires(_ context.Context, filter app.QuestionnaireFilter) ([]domain.Questionnaire, error) {
	defer s.lock()()
	out := make([]domain.Questionnaire, 0)
	for _, q := range s.t.quizzes {
		if filter.CreatorID != 0 && q.CreatorID != filter.CreatorID {
			continue
		}
		if filter.ActiveOnly && !q.Active {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// LoadQuiz assembles the questionnaire with its questions and answers.
func (s *Store) LoadQuiz(_ context.Context, id int64) (domain.Questionnaire, error) {
	defer s.lock()()
	q, ok := s.t.quizzes[id]
	if !ok {
		return domain.Questionnaire{}, domain.ErrQuizNotFound
	}
	for _, question := range s.t.questions {
		if question.QuestionnaireID == id {
			q.Questions = append(q.Questions, s.t.assemble(question))
		}
	}
	sort.Slice(q.Questions, func(i, j int) bool { return q.Questions[i].ID < q.Questions[j].ID })
	return q, nil
}

// Questions

func (s *Store) CreateQuestion(_ context.Context, q *domain.Question) error {
	defer s.lock()()
	if _, ok := s.t.quizzes[q.QuestionnaireID]; !ok {
		return domain.ErrQuizNotFound
	}
	s.t.seq.question++
	q.ID = s.t.seq.question
	for i := range q.Answers {
		q.Answers[i].QuestionID = q.ID
		s.t.insertAnswer(&q.Answers[i])
	}
	stored := *q
	stored.Answers = nil
	s.t.questions[q.ID] = stored
	return nil
}

func (s *Store) UpdateQuestion(_ context.Context, q domain.Question) error {
	defer s.lock()()
	old, ok := s.t.questions[q.ID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	q.QuestionnaireID = old.QuestionnaireID
	q.Answers = nil
	s.t.questions[q.ID] = q
	return nil
}

// DeleteQuestion cascades to its answers and to the selections referencing it.
func (s *Store) DeleteQuestion(_ context.Context, id int64) error {
	defer s.lock()()
	if _, ok := s.t.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	s.t.deleteQuestion(id)
	return nil
}

func (s *Store) GetQuestion(_ context.Context, id int64) (domain.Question, error) {
	defer s.lock()()
	q, ok := s.t.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return s.t.assemble(q), nil
}

func (t *tables) assemble(q domain.Question) domain.Question {
	q.Answers = nil
	for _, a := range t.answers {
		if a.QuestionID == q.ID {
			q.Answers = append(q.Answers, a)
		}
	}
	sort.Slice(q.Answers, func(i, j int) bool { return q.Answers[i].ID < q.Answers[j].ID })
	return q
}

func (t *tables) deleteQuestion(id int64) {
	for aid, a := range t.answers {
		if a.QuestionID == id {
			t.deleteAnswer(aid)
		}
	}
	for sid, sel := range t.selected {
		if sel.QuestionID == id {
			delete(t.selected, sid)
		}
	}
	delete(t.questions, id)
}

// Answers

func (s *Store) CreateAnswer(_ context.Context, a *domain.Answer) error {
	defer s.lock()()
	if _, ok := s.t.questions[a.QuestionID]; !ok {
		return domain.ErrQuestionNotFound
	}
	s.t.insertAnswer(a)
	return nil
}

func (t *tables) insertAnswer(a *domain.Answer) {
	t.seq.answer++
	a.ID = t.seq.answer
	t.answers[a.ID] = *a
}

func (s *Store) UpdateAnswer(_ context.Context, a domain.Answer) error {
	defer s.lock()()
	old, ok := s.t.answers[a.ID]
	if !ok {
		return domain.ErrAnswerNotFound
	}
	a.QuestionID = old.QuestionID
	s.t.answers[a.ID] = a
	return nil
}

// DeleteAnswer cascades to the selections referencing it.
func (s *Store) DeleteAnswer(_ context.Context, id int64) error {
	defer s.lock()()
	if _, ok := s.t.answers[id]; !ok {
		return domain.ErrAnswerNotFound
	}
	s.t.deleteAnswer(id)
	return nil
}

func (t *tables) deleteAnswer(id int64) {
	for sid, sel := range t.selected {
		if sel.AnswerID == id {
			delete(t.selected, sid)
		}
	}
	delete(t.answers, id)
}

func (s *Store) GetAnswer(_ context.Context, id int64) (domain.Answer, error) {
	defer s.lock()()
	a, ok := s.t.answers[id]
	if !ok {
		return domain.Answer{}, domain.ErrAnswerNotFound
	}
	return a, nil
}

// Attempts

func (s *Store) CreateAttempt(_ context.Context, a *domain.Attempt, selected []domain.SelectedAnswer) error {
	defer s.lock()()
	if _, ok := s.t.quizzes[a.QuestionnaireID]; !ok {
		return domain.ErrQuizNotFound
	}
	s.t.seq.attempt++
	a.ID = s.t.seq.attempt
	s.t.attempts[a.ID] = *a
	for i := range selected {
		s.t.seq.selected++
		selected[i].ID = s.t.seq.selected
		selected[i].AttemptID = a.ID
		s.t.selected[selected[i].ID] = selected[i]
	}
	return nil
}

func (s *Store) GetAttempt(_ context.Context, id int64) (domain.Attempt, error) {
	defer s.lock()()
	a, ok := s.t.attempts[id]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return a, nil
}

// ListAttempts returns matching attempts, newest first.
func (s *Store) ListAttempts(_ context.Context, filter app.AttemptFilter) ([]domain.Attempt, error) {
	defer s.lock()()
	out := make([]domain.Attempt, 0)
	for _, a := range s.t.attempts {
		if filter.QuestionnaireID != 0 && a.QuestionnaireID != filter.QuestionnaireID {
			continue
		}
		if filter.UserID != 0 && !a.BelongsTo(filter.UserID) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) ListSelectedAnswers(_ context.Context, attemptID int64) ([]domain.SelectedAnswer, error) {
	defer s.lock()()
	out := make([]domain.SelectedAnswer, 0)
	for _, sel := range s.t.selected {
		if sel.AttemptID == attemptID {
			out = append(out, sel)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteAttempt(_ context.Context, id int64) error {
	defer s.lock()()
	if _, ok := s.t.attempts[id]; !ok {
		return domain.ErrAttemptNotFound
	}
	s.t.deleteAttempt(id)
	return nil
}

func (t *tables) deleteAttempt(id int64) {
	for sid, sel := range t.selected {
		if sel.AttemptID == id {
			delete(t.selected, sid)
		}
	}
	delete(t.attempts, id)
}

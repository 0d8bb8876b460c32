package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"quizdesk-service/internal/app"
	"quizdesk-service/internal/domain"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"

	emailConstraint      = "users_email_key"
	accessCodeConstraint = "questionnaires_access_code_key"
)

// Store is the Postgres app.Store built on bun. Cascading deletes are enforced by the schema.
type Store struct {
	db   bun.IDB
	root *bun.DB
}

var _ app.Store = (*Store)(nil)

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, root: db}
}

// WithinTx runs fn in a transaction; nested calls join the outer one.
func (s *Store) WithinTx(ctx context.Context, fn func(tx app.Store) error) error {
	if s.root == nil {
		return fn(s)
	}
	return s.root.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(&Store{db: tx})
	})
}

// translate maps driver errors onto domain errors; notFound is used for missing rows and
// missing parents.
func translate(err error, notFound error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Field('C') {
		case uniqueViolation:
			switch pgErr.Field('n') {
			case emailConstraint:
				return domain.ErrEmailTaken
			case accessCodeConstraint:
				return domain.ErrAccessCodeTaken
			}
			return errors.Wrap(domain.ErrConflict, op)
		case foreignKeyViolation:
			return notFound
		}
	}
	return errors.Wrap(err, op)
}

func affected(res sql.Result, notFound error, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, op)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	m := newUserModel(*u)
	if _, err := s.db.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		return translate(err, domain.ErrUserNotFound, "insert user")
	}
	u.ID = m.ID
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, u domain.User) error {
	m := newUserModel(u)
	res, err := s.db.NewUpdate().Model(&m).WherePK().ExcludeColumn("created_at").Exec(ctx)
	if err != nil {
		return translate(err, domain.ErrUserNotFound, "update user")
	}
	return affected(res, domain.ErrUserNotFound, "update user")
}

func (s *Store) GetUser(ctx context.Context, id int64) (domain.User, error) {
	var m userModel
	err := s.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return domain.User{}, translate(err, domain.ErrUserNotFound, "select user")
	}
	return m.domain(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var m userModel
	err := s.db.NewSelect().Model(&m).Where("email = ?", email).Scan(ctx)
	if err != nil {
		return domain.User{}, translate(err, domain.ErrUserNotFound, "select user by email")
	}
	return m.domain(), nil
}

func (s *Store) GetUserByResetToken(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrUserNotFound
	}
	var m userModel
	err := s.db.NewSelect().Model(&m).Where("reset_token = ?", token).Scan(ctx)
	if err != nil {
		return domain.User{}, translate(err, domain.ErrUserNotFound, "select user by reset token")
	}
	return m.domain(), nil
}

// Questionnaires

func (s *Store) CreateQuestionnaire(ctx context.Context, q *domain.Questionnaire) error {
	m := newQuestionnaireModel(*q)
	if _, err := s.db.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		return translate(err, domain.ErrUserNotFound, "insert questionnaire")
	}
	q.ID = m.ID
	return nil
}

func (s *Store) UpdateQuestionnaire(ctx context.Context, q domain.Questionnaire) error {
	m := newQuestionnaireModel(q)
	res, err := s.db.NewUpdate().Model(&m).WherePK().ExcludeColumn("created_at", "creator_id").Exec(ctx)
	if err != nil {
		return translate(err, domain.ErrQuizNotFound, "update questionnaire")
	}
	return affected(res, domain.ErrQuizNotFound, "update questionnaire")
}

func (s *Store) DeleteQuestionnaire(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*questionnaireModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return translate(err, domain.ErrQuizNotFound, "delete questionnaire")
	}
	return affected(res, domain.ErrQuizNotFound, "delete questionnaire")
}

func (s *Store) GetQuestionnaire(ctx context.Context, id int64) (domain.Questionnaire, error) {
	var m questionnaireModel
	err := s.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return domain.Questionnaire{}, translate(err, domain.ErrQuizNotFound, "select questionnaire")
	}
	return m.domain(), nil
}

func (s *Store) GetQuestionnaireByCode(ctx context.Context, code string) (domain.Questionnaire, error) {
	var m questionnaireModel
	err := s.db.NewSelect().Model(&m).Where("access_code = ?", code).Scan(ctx)
	if err != nil {
		return domain.Questionnaire{}, translate(err, domain.ErrQuizNotFound, "select questionnaire by code")
	}
	return m.domain(), nil
}

func (s *Store) AccessCodeExists(ctx context.Context, code string) (bool, error) {
	exists, err := s.db.NewSelect().Model((*questionnaireModel)(nil)).Where("access_code = ?", code).Exists(ctx)
	if err != nil {
		return false, errors.Wrap(err, "check access code")
	}
	return exists, nil
}

func (s *Store) ListQuestionnaires(ctx context.Context, filter app.QuestionnaireFilter) ([]domain.Questionnaire, error) {
	var rows []questionnaireModel
	q := s.db.NewSelect().Model(&rows).Order("created_at DESC", "id DESC")
	if filter.CreatorID != 0 {
		q = q.Where("creator_id = ?", filter.CreatorID)
	}
	if filter.ActiveOnly {
		q = q.Where("is_active")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, errors.Wrap(err, "list questionnaires")
	}
	out := make([]domain.Questionnaire, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.domain())
	}
	return out, nil
}

// LoadQuiz assembles the aggregate with three queries.
func (s *Store) LoadQuiz(ctx context.Context, id int64) (domain.Questionnaire, error) {
	quiz, err := s.GetQuestionnaire(ctx, id)
	if err != nil {
		return domain.Questionnaire{}, err
	}
	var questions []questionModel
	if err := s.db.NewSelect().Model(&questions).Where("questionnaire_id = ?", id).Order("id").Scan(ctx); err != nil {
		return domain.Questionnaire{}, errors.Wrap(err, "select questions")
	}
	if len(questions) == 0 {
		return quiz, nil
	}
	ids := make([]int64, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	answers, err := s.answersOf(ctx, ids...)
	if err != nil {
		return domain.Questionnaire{}, err
	}
	for _, m := range questions {
		q := m.domain()
		q.Answers = answers[q.ID]
		quiz.Questions = append(quiz.Questions, q)
	}
	return quiz, nil
}

func (s *Store) answersOf(ctx context.Context, questionIDs ...int64) (map[int64][]domain.Answer, error) {
	var rows []answerModel
	err := s.db.NewSelect().Model(&rows).Where("question_id IN (?)", bun.In(questionIDs)).Order("id").Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "select answers")
	}
	out := make(map[int64][]domain.Answer, len(questionIDs))
	for _, m := range rows {
		out[m.QuestionID] = append(out[m.QuestionID], m.domain())
	}
	return out, nil
}

// Questions

func (s *Store) CreateQuestion(ctx context.Context, q *domain.Question) error {
	m := questionModel{QuestionnaireID: q.QuestionnaireID, Text: q.Text, Order: q.Order}
	if _, err := s.db.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		return translate(err, domain.ErrQuizNotFound, "insert question")
	}
	q.ID = m.ID
	if len(q.Answers) == 0 {
		return nil
	}
	rows := make([]answerModel, 0, len(q.Answers))
	for i := range q.Answers {
		q.Answers[i].QuestionID = q.ID
		rows = append(rows, newAnswerModel(q.Answers[i]))
	}
	if _, err := s.db.NewInsert().Model(&rows).Returning("id").Exec(ctx); err != nil {
		return translate(err, domain.ErrQuestionNotFound, "insert answers")
	}
	for i := range rows {
		q.Answers[i].ID = rows[i].ID
	}
	return nil
}

func (s *Store) UpdateQuestion(ctx context.Context, q domain.Question) error {
	res, err := s.db.NewUpdate().Model((*questionModel)(nil)).
		Set("text = ?", q.Text).
		Set("sort_order = ?", q.Order).
		Where("id = ?", q.ID).
		Exec(ctx)
	if err != nil {
		return translate(err, domain.ErrQuestionNotFound, "update question")
	}
	return affected(res, domain.ErrQuestionNotFound, "update question")
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*questionModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return translate(err, domain.ErrQuestionNotFound, "delete question")
	}
	return affected(res, domain.ErrQuestionNotFound, "delete question")
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	var m questionModel
	if err := s.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Question{}, translate(err, domain.ErrQuestionNotFound, "select question")
	}
	answers, err := s.answersOf(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	q := m.domain()
	q.Answers = answers[id]
	return q, nil
}

// Answers

func (s *Store) CreateAnswer(ctx context.Context, a *domain.Answer) error {
	m := newAnswerModel(*a)
	if _, err := s.db.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		return translate(err, domain.ErrQuestionNotFound, "insert answer")
	}
	a.ID = m.ID
	return nil
}

func (s *Store) UpdateAnswer(ctx context.Context, a domain.Answer) error {
	res, err := s.db.NewUpdate().Model((*answerModel)(nil)).
		Set("text = ?", a.Text).
		Set("is_correct = ?", a.Correct).
		Set("sort_order = ?", a.Order).
		Where("id = ?", a.ID).
		Exec(ctx)
	if err != nil {
		return translate(err, domain.ErrAnswerNotFound, "update answer")
	}
	return affected(res, domain.ErrAnswerNotFound, "update answer")
}

func (s *Store) DeleteAnswer(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*answerModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return translate(err, domain.ErrAnswerNotFound, "delete answer")
	}
	return affected(res, domain.ErrAnswerNotFound, "delete answer")
}

func (s *Store) GetAnswer(ctx context.Context, id int64) (domain.Answer, error) {
	var m answerModel
	if err := s.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Answer{}, translate(err, domain.ErrAnswerNotFound, "select answer")
	}
	return m.domain(), nil
}

// Attempts

func (s *Store) CreateAttempt(ctx context.Context, a *domain.Attempt, selected []domain.SelectedAnswer) error {
	m := newAttemptModel(*a)
	if _, err := s.db.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
		return translate(err, domain.ErrQuizNotFound, "insert attempt")
	}
	a.ID = m.ID
	if len(selected) == 0 {
		return nil
	}
	rows := make([]selectedAnswerModel, 0, len(selected))
	for _, sel := range selected {
		rows = append(rows, selectedAnswerModel{
			AttemptID:  a.ID,
			QuestionID: sel.QuestionID,
			AnswerID:   sel.AnswerID,
			AnsweredAt: sel.AnsweredAt,
		})
	}
	if _, err := s.db.NewInsert().Model(&rows).Returning("id").Exec(ctx); err != nil {
		return translate(err, domain.ErrAnswerNotFound, "insert selected answers")
	}
	for i := range selected {
		selected[i].ID = rows[i].ID
		selected[i].AttemptID = a.ID
	}
	return nil
}

func (s *Store) GetAttempt(ctx context.Context, id int64) (domain.Attempt, error) {
	var m attemptModel
	if err := s.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Attempt{}, translate(err, domain.ErrAttemptNotFound, "select attempt")
	}
	return m.domain(), nil
}

func (s *Store) ListAttempts(ctx context.Context, filter app.AttemptFilter) ([]domain.Attempt, error) {
	var rows []attemptModel
	q := s.db.NewSelect().Model(&rows).Order("started_at DESC", "id DESC")
	if filter.QuestionnaireID != 0 {
		q = q.Where("questionnaire_id = ?", filter.QuestionnaireID)
	}
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, errors.Wrap(err, "list attempts")
	}
	out := make([]domain.Attempt, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.domain())
	}
	return out, nil
}

func (s *Store) ListSelectedAnswers(ctx context.Context, attemptID int64) ([]domain.SelectedAnswer, error) {
	var rows []selectedAnswerModel
	if err := s.db.NewSelect().Model(&rows).Where("attempt_id = ?", attemptID).Order("id").Scan(ctx); err != nil {
		return nil, errors.Wrap(err, "list selected answers")
	}
	out := make([]domain.SelectedAnswer, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.domain())
	}
	return out, nil
}

func (s *Store) DeleteAttempt(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*attemptModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return translate(err, domain.ErrAttemptNotFound, "delete attempt")
	}
	return affected(res, domain.ErrAttemptNotFound, "delete attempt")
}

package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"

	"quizdesk-service/internal/app"
	"quizdesk-service/internal/domain"
)

const (
	selectQuestionnaire = `SELECT id, title, COALESCE(description, ''), access_code, is_active, is_started,
       pass_threshold, created_at, creator_id
FROM questionnaires WHERE id = $1`

	selectQuestionsWithAnswers = `SELECT qs.id, qs.text, qs.sort_order, a.id, a.text, a.is_correct, a.sort_order
FROM questions qs
LEFT JOIN answers a ON a.question_id = qs.id
WHERE qs.questionnaire_id = $1
ORDER BY qs.id, a.id`
)

// QuizLoader reads questionnaire aggregates straight from Postgres through a pgx pool.
// It feeds the quiz caches on the play and scoring path.
type QuizLoader struct {
	pool *pgxpool.Pool
}

var _ app.QuizLoader = (*QuizLoader)(nil)

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.Questionnaire, error) {
	var quiz domain.Questionnaire
	err := l.pool.QueryRow(ctx, selectQuestionnaire, quizID).Scan(
		&quiz.ID, &quiz.Title, &quiz.Description, &quiz.AccessCode, &quiz.Active, &quiz.Started,
		&quiz.PassThreshold, &quiz.CreatedAt, &quiz.CreatorID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Questionnaire{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Questionnaire{}, errors.Wrap(err, "load quiz")
	}

	rows, err := l.pool.Query(ctx, selectQuestionsWithAnswers, quizID)
	if err != nil {
		return domain.Questionnaire{}, errors.Wrap(err, "load questions")
	}
	defer rows.Close()

	index := map[int64]int{}
	for rows.Next() {
		var (
			q        domain.Question
			answerID *int64
			text     *string
			correct  *bool
			order    *int32
		)
		if err := rows.Scan(&q.ID, &q.Text, &q.Order, &answerID, &text, &correct, &order); err != nil {
			return domain.Questionnaire{}, errors.Wrap(err, "scan question row")
		}
		pos, ok := index[q.ID]
		if !ok {
			q.QuestionnaireID = quiz.ID
			quiz.Questions = append(quiz.Questions, q)
			pos = len(quiz.Questions) - 1
			index[q.ID] = pos
		}
		if answerID == nil {
			continue
		}
		quiz.Questions[pos].Answers = append(quiz.Questions[pos].Answers, domain.Answer{
			ID:         *answerID,
			QuestionID: q.ID,
			Text:       *text,
			Correct:    *correct,
			Order:      int(*order),
		})
	}
	if err := rows.Err(); err != nil {
		return domain.Questionnaire{}, errors.Wrap(err, "iterate questions")
	}
	return quiz, nil
}

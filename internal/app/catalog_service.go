package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"quizdesk-service/internal/domain"
)

// maxCodeDraws bounds access code redraws on collision.
const maxCodeDraws = 10

// QuizInput carries the fields of a new questionnaire. Nil pointers take defaults.
type QuizInput struct {
	Title         string
	Description   string
	PassThreshold *int
	Active        *bool
	Started       *bool
}

// QuizPatch carries a partial update; nil fields are left untouched.
type QuizPatch struct {
	Title         *string
	Description   *string
	PassThreshold *int
	Active        *bool
	Started       *bool
}

// CatalogService manages questionnaires and serves them for play.
type CatalogService struct {
	store    Store
	quizzes  QuizRepository
	codes    *domain.CodeGenerator
	reserver CodeReserver
	now      func() time.Time
}

func NewCatalogService(store Store, quizzes QuizRepository, reserver CodeReserver) *CatalogService {
	return &CatalogService{
		store:    store,
		quizzes:  quizzes,
		codes:    domain.NewCodeGenerator(),
		reserver: reserver,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NewCatalogServiceWithGenerator is test-only for deterministic access codes and timestamps.
func NewCatalogServiceWithGenerator(store Store, quizzes QuizRepository, reserver CodeReserver, codes *domain.CodeGenerator, now func() time.Time) *CatalogService {
	s := NewCatalogService(store, quizzes, reserver)
	s.codes = codes
	s.now = now
	return s
}

// CreateQuiz creates a questionnaire owned by the caller with a fresh access code.
func (s *CatalogService) CreateQuiz(ctx context.Context, caller *domain.Caller, in QuizInput) (QuizView, error) {
	if err := domain.RequireAuthenticated(caller); err != nil {
		return QuizView{}, err
	}
	q := domain.Questionnaire{
		Title:         strings.TrimSpace(in.Title),
		Description:   strings.TrimSpace(in.Description),
		PassThreshold: domain.DefaultPassThreshold,
		Active:        true,
		Started:       false,
		CreatedAt:     s.now(),
		CreatorID:     caller.UserID,
	}
	if in.PassThreshold != nil {
		q.PassThreshold = *in.PassThreshold
	}
	if in.Active != nil {
		q.Active = *in.Active
	}
	if in.Started != nil {
		q.Started = *in.Started
	}

	for draw := 0; draw < maxCodeDraws; draw++ {
		code, err := s.claimCode(ctx)
		if err != nil {
			return QuizView{}, err
		}
		if code == "" {
			continue
		}
		q.AccessCode = code
		if err := domain.ValidateQuestionnaire(q).Err(); err != nil {
			s.reserver.Release(ctx, code)
			return QuizView{}, err
		}
		err = s.store.CreateQuestionnaire(ctx, &q)
		s.reserver.Release(ctx, code)
		if errors.Is(err, domain.ErrAccessCodeTaken) {
			log.WithField("code", code).Debug("access code collision, redrawing")
			continue
		}
		if err != nil {
			return QuizView{}, err
		}
		log.WithFields(log.Fields{"quiz_id": q.ID, "user_id": caller.UserID}).Info("questionnaire created")
		return newQuizView(q, true), nil
	}
	return QuizView{}, fmt.Errorf("no free access code after %d draws: %w", maxCodeDraws, domain.ErrConflict)
}

// claimCode draws one code and reserves it; an empty code means the draw collided.
func (s *CatalogService) claimCode(ctx context.Context) (string, error) {
	code := s.codes.Next()
	ok, err := s.reserver.Reserve(ctx, code)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	exists, err := s.store.AccessCodeExists(ctx, code)
	if err != nil {
		s.reserver.Release(ctx, code)
		return "", err
	}
	if exists {
		s.reserver.Release(ctx, code)
		return "", nil
	}
	return code, nil
}

// UpdateQuiz applies a patch after re-checking ownership on the stored questionnaire.
func (s *CatalogService) UpdateQuiz(ctx context.Context, caller *domain.Caller, id int64, patch QuizPatch) (QuizView, error) {
	q, err := s.managed(ctx, caller, id)
	if err != nil {
		return QuizView{}, err
	}
	if patch.Title != nil {
		q.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		q.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.PassThreshold != nil {
		q.PassThreshold = *patch.PassThreshold
	}
	if patch.Active != nil {
		q.Active = *patch.Active
	}
	if patch.Started != nil {
		q.Started = *patch.Started
	}
	if err := domain.ValidateQuestionnaire(q).Err(); err != nil {
		return QuizView{}, err
	}
	if err := s.store.UpdateQuestionnaire(ctx, q); err != nil {
		return QuizView{}, err
	}
	s.invalidate(ctx, id)
	return s.GetQuiz(ctx, caller, id)
}

// DeleteQuiz removes the questionnaire and everything under it.
func (s *CatalogService) DeleteQuiz(ctx context.Context, caller *domain.Caller, id int64) error {
	if _, err := s.managed(ctx, caller, id); err != nil {
		return err
	}
	if err := s.store.DeleteQuestionnaire(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	log.WithFields(log.Fields{"quiz_id": id, "user_id": caller.UserID}).Info("questionnaire deleted")
	return nil
}

// ToggleActive flips the active flag.
func (s *CatalogService) ToggleActive(ctx context.Context, caller *domain.Caller, id int64) (QuizView, error) {
	q, err := s.managed(ctx, caller, id)
	if err != nil {
		return QuizView{}, err
	}
	q.Active = !q.Active
	if err := s.store.UpdateQuestionnaire(ctx, q); err != nil {
		return QuizView{}, err
	}
	s.invalidate(ctx, id)
	full, err := s.store.LoadQuiz(ctx, id)
	if err != nil {
		return QuizView{}, err
	}
	return newQuizView(full, false), nil
}

// GetQuiz returns the management view, correctness included.
func (s *CatalogService) GetQuiz(ctx context.Context, caller *domain.Caller, id int64) (QuizView, error) {
	q, err := s.store.LoadQuiz(ctx, id)
	if err != nil {
		return QuizView{}, err
	}
	if err := domain.AuthorizeManage(caller, q); err != nil {
		return QuizView{}, err
	}
	return newQuizView(q, true), nil
}

// ListQuizzes returns the caller's questionnaires; admins get every questionnaire.
func (s *CatalogService) ListQuizzes(ctx context.Context, caller *domain.Caller) ([]QuizView, error) {
	if err := domain.RequireAuthenticated(caller); err != nil {
		return nil, err
	}
	filter := QuestionnaireFilter{CreatorID: caller.UserID}
	if caller.IsAdmin() {
		filter = QuestionnaireFilter{}
	}
	return s.list(ctx, filter)
}

// ListActiveQuizzes is the public catalogue.
func (s *CatalogService) ListActiveQuizzes(ctx context.Context) ([]QuizView, error) {
	return s.list(ctx, QuestionnaireFilter{ActiveOnly: true})
}

func (s *CatalogService) list(ctx context.Context, filter QuestionnaireFilter) ([]QuizView, error) {
	rows, err := s.store.ListQuestionnaires(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]QuizView, 0, len(rows))
	for _, row := range rows {
		full, err := s.store.LoadQuiz(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, newQuizView(full, false))
	}
	return views, nil
}

// FindByCode resolves a questionnaire by access code, case-insensitively. Inactive
// questionnaires are only visible to their creator and admins.
func (s *CatalogService) FindByCode(ctx context.Context, caller *domain.Caller, code string) (domain.Questionnaire, error) {
	code = domain.NormalizeAccessCode(code)
	if !domain.ValidAccessCode(code) {
		return domain.Questionnaire{}, domain.ErrQuizNotFound
	}
	q, err := s.store.GetQuestionnaireByCode(ctx, code)
	if err != nil {
		return domain.Questionnaire{}, err
	}
	if !q.Active && !domain.CanSeeInactive(caller, q) {
		return domain.Questionnaire{}, domain.ErrQuizNotFound
	}
	return q, nil
}

// PlayableQuiz returns the participant payload for a questionnaire id.
func (s *CatalogService) PlayableQuiz(ctx context.Context, caller *domain.Caller, id int64) (PlayQuiz, error) {
	q, err := s.quizzes.GetQuiz(ctx, id)
	if err != nil {
		return PlayQuiz{}, err
	}
	if !q.Active && !domain.CanSeeInactive(caller, q) {
		return PlayQuiz{}, domain.ErrQuizNotFound
	}
	return newPlayQuiz(q), nil
}

// PlayableQuizByCode returns the participant payload for an access code.
func (s *CatalogService) PlayableQuizByCode(ctx context.Context, caller *domain.Caller, code string) (PlayQuiz, error) {
	q, err := s.FindByCode(ctx, caller, code)
	if err != nil {
		return PlayQuiz{}, err
	}
	return s.PlayableQuiz(ctx, caller, q.ID)
}

func (s *CatalogService) managed(ctx context.Context, caller *domain.Caller, id int64) (domain.Questionnaire, error) {
	q, err := s.store.GetQuestionnaire(ctx, id)
	if err != nil {
		return domain.Questionnaire{}, err
	}
	if err := domain.AuthorizeManage(caller, q); err != nil {
		return domain.Questionnaire{}, err
	}
	return q, nil
}

func (s *CatalogService) invalidate(ctx context.Context, id int64) {
	invalidate(ctx, s.quizzes, id)
}

func invalidate(ctx context.Context, quizzes QuizRepository, id int64) {
	if err := quizzes.Invalidate(ctx, id); err != nil {
		log.WithError(err).WithField("quiz_id", id).Warn("quiz cache invalidation failed")
	}
}

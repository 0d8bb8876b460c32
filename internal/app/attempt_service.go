package app

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"quizdesk-service/internal/domain"
)

// Names recorded for authenticated participants without a profile name.
const (
	fallbackFirstName = "Registered"
	fallbackLastName  = "Participant"
)

// AttemptService scores submissions and serves attempt results.
type AttemptService struct {
	store   Store
	quizzes QuizRepository
	now     func() time.Time
}

func NewAttemptService(store Store, quizzes QuizRepository) *AttemptService {
	return &AttemptService{
		store:   store,
		quizzes: quizzes,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NewAttemptServiceWithClock is test-only for deterministic timestamps.
func NewAttemptServiceWithClock(store Store, quizzes QuizRepository, now func() time.Time) *AttemptService {
	s := NewAttemptService(store, quizzes)
	s.now = now
	return s
}

// SubmitAttempt scores the selections with the exact-match rule and records the attempt and
// its selected answers in one transaction. Stray question or answer ids are ignored.
func (s *AttemptService) SubmitAttempt(ctx context.Context, caller *domain.Caller, quizID int64, participant domain.Participant, selections []domain.Selection) (SubmissionResult, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return SubmissionResult{}, err
	}
	if !quiz.Active {
		return SubmissionResult{}, domain.ErrQuizInactive
	}

	participant, err = s.resolveParticipant(ctx, caller, participant)
	if err != nil {
		return SubmissionResult{}, err
	}
	if err := domain.ValidateParticipant(participant).Err(); err != nil {
		return SubmissionResult{}, err
	}

	card := domain.Score(quiz, selections)
	now := s.now()
	attempt := domain.Attempt{
		QuestionnaireID: quiz.ID,
		FirstName:       participant.FirstName,
		LastName:        participant.LastName,
		StartedAt:       now,
		FinishedAt:      &now,
		Score:           card.CorrectCount,
		TotalQuestions:  card.TotalQuestions,
	}
	if caller.Authenticated() {
		uid := caller.UserID
		attempt.UserID = &uid
	}

	var rows []domain.SelectedAnswer
	for _, qs := range card.Questions {
		for _, answerID := range qs.Selected.Sorted() {
			rows = append(rows, domain.SelectedAnswer{
				QuestionID: qs.Question.ID,
				AnswerID:   answerID,
				AnsweredAt: now,
			})
		}
	}

	v := domain.ValidateAttempt(attempt)
	for _, row := range rows {
		v = append(v, domain.ValidateSelectedAnswer(row, attempt, quiz)...)
	}
	if err := v.Err(); err != nil {
		return SubmissionResult{}, err
	}

	err = s.store.WithinTx(ctx, func(tx Store) error {
		return tx.CreateAttempt(ctx, &attempt, rows)
	})
	if err != nil {
		return SubmissionResult{}, err
	}

	result := SubmissionResult{
		AttemptID:      attempt.ID,
		Percentage:     card.Percentage(),
		PassThreshold:  quiz.PassThreshold,
		Passed:         domain.Passed(card.Percentage(), quiz.PassThreshold),
		CorrectCount:   card.CorrectCount,
		TotalQuestions: card.TotalQuestions,
	}
	log.WithFields(log.Fields{
		"quiz_id":    quiz.ID,
		"attempt_id": attempt.ID,
		"score":      result.Percentage,
		"passed":     result.Passed,
	}).Info("attempt scored")
	return result, nil
}

// resolveParticipant fills omitted names from the stored profile, so profile edits apply
// without a fresh token. Token claims are used when the account row is gone.
func (s *AttemptService) resolveParticipant(ctx context.Context, caller *domain.Caller, p domain.Participant) (domain.Participant, error) {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	if !caller.Authenticated() || (p.FirstName != "" && p.LastName != "") {
		return p, nil
	}
	profile := domain.Participant{FirstName: caller.FirstName, LastName: caller.LastName}
	u, err := s.store.GetUser(ctx, caller.UserID)
	switch {
	case err == nil:
		profile = domain.Participant{FirstName: u.FirstName, LastName: u.LastName}
	case !errors.Is(err, domain.ErrNotFound):
		return p, err
	}
	if p.FirstName == "" {
		p.FirstName = profile.FirstName
	}
	if p.LastName == "" {
		p.LastName = profile.LastName
	}
	if p.FirstName == "" {
		p.FirstName = fallbackFirstName
	}
	if p.LastName == "" {
		p.LastName = fallbackLastName
	}
	return p, nil
}

// GetAttemptResults returns the per-question breakdown if the caller may see it.
// Correctness is recomputed from the current answers, not read from the stored score.
func (s *AttemptService) GetAttemptResults(ctx context.Context, caller *domain.Caller, attemptID int64) (AttemptResults, error) {
	attempt, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return AttemptResults{}, err
	}
	quiz, err := s.store.LoadQuiz(ctx, attempt.QuestionnaireID)
	if err != nil {
		return AttemptResults{}, err
	}
	if !domain.CanViewAttempt(caller, attempt, quiz) {
		return AttemptResults{}, domain.ErrForbidden
	}
	return s.results(ctx, attempt, quiz)
}

// QuizAttemptDetails is the creator's view of one attempt of their questionnaire.
func (s *AttemptService) QuizAttemptDetails(ctx context.Context, caller *domain.Caller, quizID, attemptID int64) (AttemptResults, error) {
	quiz, err := s.store.LoadQuiz(ctx, quizID)
	if err != nil {
		return AttemptResults{}, err
	}
	if err := domain.AuthorizeManage(caller, quiz); err != nil {
		return AttemptResults{}, err
	}
	attempt, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return AttemptResults{}, err
	}
	if attempt.QuestionnaireID != quiz.ID {
		return AttemptResults{}, domain.ErrAttemptNotFound
	}
	return s.results(ctx, attempt, quiz)
}

func (s *AttemptService) results(ctx context.Context, attempt domain.Attempt, quiz domain.Questionnaire) (AttemptResults, error) {
	selected, err := s.store.ListSelectedAnswers(ctx, attempt.ID)
	if err != nil {
		return AttemptResults{}, err
	}
	byQuestion := map[int64]domain.AnswerSet{}
	for _, row := range selected {
		set, ok := byQuestion[row.QuestionID]
		if !ok {
			set = domain.AnswerSet{}
			byQuestion[row.QuestionID] = set
		}
		set[row.AnswerID] = struct{}{}
	}

	out := AttemptResults{
		AttemptID:      attempt.ID,
		FirstName:      attempt.FirstName,
		LastName:       attempt.LastName,
		Percentage:     attempt.Percentage(),
		CorrectCount:   attempt.Score,
		TotalQuestions: attempt.TotalQuestions,
		Passed:         attempt.Passed(quiz.PassThreshold),
		StartedAt:      attempt.StartedAt,
		FinishedAt:     attempt.FinishedAt,
		Quiz:           QuizRef{ID: quiz.ID, Title: quiz.Title, AccessCode: quiz.AccessCode},
		Questions:      []QuestionResult{},
	}
	for _, question := range quiz.OrderedQuestions() {
		set, ok := byQuestion[question.ID]
		if !ok {
			continue
		}
		qr := QuestionResult{
			QuestionID:      question.ID,
			Text:            question.Text,
			MultipleChoice:  question.IsMultipleChoice(),
			SelectedAnswers: []AnswerView{},
			CorrectAnswers:  []AnswerView{},
			Correct:         domain.AnsweredCorrectly(question, set),
		}
		for _, a := range question.OrderedAnswers() {
			view := AnswerView{ID: a.ID, Text: a.Text, Correct: a.Correct}
			if set.Has(a.ID) {
				qr.SelectedAnswers = append(qr.SelectedAnswers, view)
			}
			if a.Correct {
				qr.CorrectAnswers = append(qr.CorrectAnswers, view)
			}
		}
		out.Questions = append(out.Questions, qr)
	}
	return out, nil
}

// ListQuizAttempts lists a questionnaire's attempts, newest first, for its creator or an admin.
func (s *AttemptService) ListQuizAttempts(ctx context.Context, caller *domain.Caller, quizID int64) ([]AttemptSummary, error) {
	quiz, err := s.store.GetQuestionnaire(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := domain.AuthorizeManage(caller, quiz); err != nil {
		return nil, err
	}
	attempts, err := s.store.ListAttempts(ctx, AttemptFilter{QuestionnaireID: quizID})
	if err != nil {
		return nil, err
	}
	users := map[int64]UserRef{}
	out := make([]AttemptSummary, 0, len(attempts))
	for _, a := range attempts {
		summary := AttemptSummary{
			ID:             a.ID,
			FirstName:      a.FirstName,
			LastName:       a.LastName,
			StartedAt:      a.StartedAt,
			FinishedAt:     a.FinishedAt,
			Score:          a.Score,
			TotalQuestions: a.TotalQuestions,
			Percentage:     a.Percentage(),
			Passed:         a.Passed(quiz.PassThreshold),
		}
		if a.UserID != nil {
			ref, ok := users[*a.UserID]
			if !ok {
				u, err := s.store.GetUser(ctx, *a.UserID)
				if err != nil {
					return nil, err
				}
				ref = UserRef{ID: u.ID, Email: u.Email}
				users[u.ID] = ref
			}
			summary.User = &ref
		}
		out = append(out, summary)
	}
	return out, nil
}

// UserHistory lists the caller's own attempts, newest first.
func (s *AttemptService) UserHistory(ctx context.Context, caller *domain.Caller) ([]HistoryEntry, error) {
	attempts, quizzes, err := s.userAttempts(ctx, caller)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, 0, len(attempts))
	for _, a := range attempts {
		quiz := quizzes[a.QuestionnaireID]
		out = append(out, HistoryEntry{
			ID:             a.ID,
			QuizTitle:      quiz.Title,
			QuizCode:       quiz.AccessCode,
			Date:           a.StartedAt.Format("2006-01-02"),
			Time:           a.StartedAt.Format("15:04"),
			Score:          a.Score,
			TotalQuestions: a.TotalQuestions,
			Percentage:     a.Percentage(),
			Passed:         a.Passed(quiz.PassThreshold),
		})
	}
	return out, nil
}

// UserStats aggregates the caller's attempts.
func (s *AttemptService) UserStats(ctx context.Context, caller *domain.Caller) (UserStats, error) {
	attempts, quizzes, err := s.userAttempts(ctx, caller)
	if err != nil {
		return UserStats{}, err
	}
	stats := UserStats{TotalAttempts: len(attempts)}
	if len(attempts) == 0 {
		return stats, nil
	}
	total := 0.0
	for _, a := range attempts {
		total += a.Percentage()
		if a.Passed(quizzes[a.QuestionnaireID].PassThreshold) {
			stats.PassedAttempts++
		}
	}
	stats.AverageScore = domain.Round2(total / float64(len(attempts)))
	stats.PassRate = domain.Percentage(stats.PassedAttempts, len(attempts))
	return stats, nil
}

func (s *AttemptService) userAttempts(ctx context.Context, caller *domain.Caller) ([]domain.Attempt, map[int64]domain.Questionnaire, error) {
	if err := domain.RequireAuthenticated(caller); err != nil {
		return nil, nil, err
	}
	attempts, err := s.store.ListAttempts(ctx, AttemptFilter{UserID: caller.UserID})
	if err != nil {
		return nil, nil, err
	}
	quizzes := map[int64]domain.Questionnaire{}
	for _, a := range attempts {
		if _, ok := quizzes[a.QuestionnaireID]; ok {
			continue
		}
		q, err := s.store.GetQuestionnaire(ctx, a.QuestionnaireID)
		if err != nil {
			return nil, nil, err
		}
		quizzes[q.ID] = q
	}
	return attempts, quizzes, nil
}

// DeleteAttempt is reserved to admins.
func (s *AttemptService) DeleteAttempt(ctx context.Context, caller *domain.Caller, attemptID int64) error {
	if err := domain.RequireAuthenticated(caller); err != nil {
		return err
	}
	if !caller.IsAdmin() {
		return domain.ErrForbidden
	}
	if _, err := s.store.GetAttempt(ctx, attemptID); err != nil {
		return err
	}
	if err := s.store.DeleteAttempt(ctx, attemptID); err != nil {
		return err
	}
	log.WithFields(log.Fields{"attempt_id": attemptID, "user_id": caller.UserID}).Info("attempt deleted")
	return nil
}

package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"quizdesk-service/internal/domain"
)

type userModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                  int64      `bun:"id,pk,autoincrement"`
	Email               string     `bun:"email,notnull"`
	PasswordHash        []byte     `bun:"password_hash,notnull"`
	Roles               []string   `bun:"roles,array"`
	FirstName           string     `bun:"first_name,nullzero"`
	LastName            string     `bun:"last_name,nullzero"`
	ResetToken          string     `bun:"reset_token,nullzero"`
	ResetTokenExpiresAt *time.Time `bun:"reset_token_expires_at"`
	CreatedAt           time.Time  `bun:"created_at,notnull"`
}

func newUserModel(u domain.User) userModel {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, string(r))
	}
	return userModel{
		ID:                  u.ID,
		Email:               u.Email,
		PasswordHash:        u.PasswordHash,
		Roles:               roles,
		FirstName:           u.FirstName,
		LastName:            u.LastName,
		ResetToken:          u.ResetToken,
		ResetTokenExpiresAt: u.ResetTokenExpiresAt,
		CreatedAt:           u.CreatedAt,
	}
}

func (m userModel) domain() domain.User {
	roles := make([]domain.Role, 0, len(m.Roles))
	for _, r := range m.Roles {
		roles = append(roles, domain.Role(r))
	}
	return domain.User{
		ID:                  m.ID,
		Email:               m.Email,
		PasswordHash:        m.PasswordHash,
		Roles:               roles,
		FirstName:           m.FirstName,
		LastName:            m.LastName,
		ResetToken:          m.ResetToken,
		ResetTokenExpiresAt: m.ResetTokenExpiresAt,
		CreatedAt:           m.CreatedAt,
	}
}

type questionnaireModel struct {
	bun.BaseModel `bun:"table:questionnaires,alias:qn"`

	ID            int64     `bun:"id,pk,autoincrement"`
	Title         string    `bun:"title,notnull"`
	Description   string    `bun:"description,nullzero"`
	AccessCode    string    `bun:"access_code,notnull"`
	Active        bool      `bun:"is_active,notnull"`
	Started       bool      `bun:"is_started,notnull"`
	PassThreshold int       `bun:"pass_threshold,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	CreatorID     int64     `bun:"creator_id,notnull"`
}

func newQuestionnaireModel(q domain.Questionnaire) questionnaireModel {
	return questionnaireModel{
		ID:            q.ID,
		Title:         q.Title,
		Description:   q.Description,
		AccessCode:    q.AccessCode,
		Active:        q.Active,
		Started:       q.Started,
		PassThreshold: q.PassThreshold,
		CreatedAt:     q.CreatedAt,
		CreatorID:     q.CreatorID,
	}
}

func (m questionnaireModel) domain() domain.Questionnaire {
	return domain.Questionnaire{
		ID:            m.ID,
		Title:         m.Title,
		Description:   m.Description,
		AccessCode:    m.AccessCode,
		Active:        m.Active,
		Started:       m.Started,
		PassThreshold: m.PassThreshold,
		CreatedAt:     m.CreatedAt,
		CreatorID:     m.CreatorID,
	}
}

type questionModel struct {
	bun.BaseModel `bun:"table:questions,alias:qs"`

	ID              int64  `bun:"id,pk,autoincrement"`
	QuestionnaireID int64  `bun:"questionnaire_id,notnull"`
	Text            string `bun:"text,notnull"`
	Order           int    `bun:"sort_order,notnull"`
}

func (m questionModel) domain() domain.Question {
	return domain.Question{
		ID:              m.ID,
		QuestionnaireID: m.QuestionnaireID,
		Text:            m.Text,
		Order:           m.Order,
	}
}

type answerModel struct {
	bun.BaseModel `bun:"table:answers,alias:a"`

	ID         int64  `bun:"id,pk,autoincrement"`
	QuestionID int64  `bun:"question_id,notnull"`
	Text       string `bun:"text,notnull"`
	Correct    bool   `bun:"is_correct,notnull"`
	Order      int    `bun:"sort_order,notnull"`
}

func newAnswerModel(a domain.Answer) answerModel {
	return answerModel{ID: a.ID, QuestionID: a.QuestionID, Text: a.Text, Correct: a.Correct, Order: a.Order}
}

func (m answerModel) domain() domain.Answer {
	return domain.Answer{ID: m.ID, QuestionID: m.QuestionID, Text: m.Text, Correct: m.Correct, Order: m.Order}
}

type attemptModel struct {
	bun.BaseModel `bun:"table:attempts,alias:at"`

	ID              int64      `bun:"id,pk,autoincrement"`
	QuestionnaireID int64      `bun:"questionnaire_id,notnull"`
	UserID          *int64     `bun:"user_id"`
	FirstName       string     `bun:"first_name,notnull"`
	LastName        string     `bun:"last_name,notnull"`
	StartedAt       time.Time  `bun:"started_at,notnull"`
	FinishedAt      *time.Time `bun:"finished_at"`
	Score           int        `bun:"score,notnull"`
	TotalQuestions  int        `bun:"total_questions,notnull"`
}

func newAttemptModel(a domain.Attempt) attemptModel {
	return attemptModel{
		ID:              a.ID,
		QuestionnaireID: a.QuestionnaireID,
		UserID:          a.UserID,
		FirstName:       a.FirstName,
		LastName:        a.LastName,
		StartedAt:       a.StartedAt,
		FinishedAt:      a.FinishedAt,
		Score:           a.Score,
		TotalQuestions:  a.TotalQuestions,
	}
}

func (m attemptModel) domain() domain.Attempt {
	return domain.Attempt{
		ID:              m.ID,
		QuestionnaireID: m.QuestionnaireID,
		UserID:          m.UserID,
		FirstName:       m.FirstName,
		LastName:        m.LastName,
		StartedAt:       m.StartedAt,
		FinishedAt:      m.FinishedAt,
		Score:           m.Score,
		TotalQuestions:  m.TotalQuestions,
	}
}

type selectedAnswerModel struct {
	bun.BaseModel `bun:"table:selected_answers,alias:sa"`

	ID         int64     `bun:"id,pk,autoincrement"`
	AttemptID  int64     `bun:"attempt_id,notnull"`
	QuestionID int64     `bun:"question_id,notnull"`
	AnswerID   int64     `bun:"answer_id,notnull"`
	AnsweredAt time.Time `bun:"answered_at,notnull"`
}

func (m selectedAnswerModel) domain() domain.SelectedAnswer {
	return domain.SelectedAnswer{
		ID:         m.ID,
		AttemptID:  m.AttemptID,
		QuestionID: m.QuestionID,
		AnswerID:   m.AnswerID,
		AnsweredAt: m.AnsweredAt,
	}
}

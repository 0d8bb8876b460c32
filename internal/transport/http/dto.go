package http

import (
	"quizdesk-service/internal/app"
	"quizdesk-service/internal/domain"
)

type registerRequest struct {
	Email     string `json:"email" validate:"required,email,max=180"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	FirstName string `json:"firstName" validate:"omitempty,max=255"`
	LastName  string `json:"lastName" validate:"omitempty,max=255"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type profileRequest struct {
	Email     *string `json:"email" validate:"omitempty,email,max=180"`
	FirstName *string `json:"firstName" validate:"omitempty,max=255"`
	LastName  *string `json:"lastName" validate:"omitempty,max=255"`
}

func (p profileRequest) patch() app.ProfilePatch {
	return app.ProfilePatch{Email: p.Email, FirstName: p.FirstName, LastName: p.LastName}
}

type tokenResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type quizRequest struct {
	Title         string `json:"title" validate:"required,max=255"`
	Description   string `json:"description" validate:"max=2000"`
	PassThreshold *int   `json:"passThreshold" validate:"omitempty,min=0,max=100"`
	Active        *bool  `json:"isActive"`
	Started       *bool  `json:"isStarted"`
}

func (q quizRequest) input() app.QuizInput {
	return app.QuizInput{
		Title:         q.Title,
		Description:   q.Description,
		PassThreshold: q.PassThreshold,
		Active:        q.Active,
		Started:       q.Started,
	}
}

type quizPatchRequest struct {
	Title         *string `json:"title" validate:"omitempty,max=255"`
	Description   *string `json:"description" validate:"omitempty,max=2000"`
	PassThreshold *int    `json:"passThreshold" validate:"omitempty,min=0,max=100"`
	Active        *bool   `json:"isActive"`
	Started       *bool   `json:"isStarted"`
}

func (q quizPatchRequest) patch() app.QuizPatch {
	return app.QuizPatch{
		Title:         q.Title,
		Description:   q.Description,
		PassThreshold: q.PassThreshold,
		Active:        q.Active,
		Started:       q.Started,
	}
}

type answerRequest struct {
	ID      int64  `json:"id" validate:"omitempty,gt=0"`
	Text    string `json:"text" validate:"required,max=1000"`
	Correct bool   `json:"correct"`
	Order   *int   `json:"order" validate:"omitempty,min=1,max=50"`
}

func (a answerRequest) input() app.AnswerInput {
	return app.AnswerInput{ID: a.ID, Text: a.Text, Correct: a.Correct, Order: a.Order}
}

func answerInputs(in []answerRequest) []app.AnswerInput {
	if in == nil {
		return nil
	}
	out := make([]app.AnswerInput, 0, len(in))
	for _, a := range in {
		out = append(out, a.input())
	}
	return out
}

type questionRequest struct {
	Text    string          `json:"text" validate:"required,max=2000"`
	Order   *int            `json:"order" validate:"omitempty,min=1,max=100"`
	Answers []answerRequest `json:"answers" validate:"required,min=2,dive"`
}

type questionPatchRequest struct {
	Text    *string         `json:"text" validate:"omitempty,max=2000"`
	Order   *int            `json:"order" validate:"omitempty,min=1,max=100"`
	Answers []answerRequest `json:"answers" validate:"omitempty,dive"`
}

type answerPatchRequest struct {
	Text    *string `json:"text" validate:"omitempty,max=1000"`
	Correct *bool   `json:"correct"`
	Order   *int    `json:"order" validate:"omitempty,min=1,max=50"`
}

type submitRequest struct {
	FirstName  string             `json:"firstName" validate:"max=255"`
	LastName   string             `json:"lastName" validate:"max=255"`
	Selections []domain.Selection `json:"selections" validate:"max=5000"`
}

func (s submitRequest) participant() domain.Participant {
	return domain.Participant{FirstName: s.FirstName, LastName: s.LastName}
}

package domain

import (
	"sort"
	"time"
)

// Role is a stored user role.
type Role string

const (
	RoleUser      Role = "ROLE_USER"
	RoleAdmin     Role = "ROLE_ADMIN"
	RoleModerator Role = "ROLE_MODERATOR"
)

// User is an account that can author questionnaires and own attempts.
type User struct {
	ID                  int64      `json:"id"`
	Email               string     `json:"email"`
	PasswordHash        []byte     `json:"-"`
	Roles               []Role     `json:"roles"`
	FirstName           string     `json:"firstName,omitempty"`
	LastName            string     `json:"lastName,omitempty"`
	ResetToken          string     `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// EffectiveRoles returns the stored roles plus the implicit ROLE_USER, deduplicated.
func (u User) EffectiveRoles() []Role {
	return effectiveRoles(u.Roles)
}

func effectiveRoles(stored []Role) []Role {
	seen := make(map[Role]struct{}, len(stored)+1)
	out := make([]Role, 0, len(stored)+1)
	for _, r := range append(append([]Role{}, stored...), RoleUser) {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Questionnaire is a quiz guarded by an access code.
type Questionnaire struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	AccessCode    string     `json:"accessCode"`
	Active        bool       `json:"isActive"`
	Started       bool       `json:"isStarted"`
	PassThreshold int        `json:"passThreshold"`
	CreatedAt     time.Time  `json:"createdAt"`
	CreatorID     int64      `json:"creatorId"`
	Questions     []Question `json:"questions,omitempty"`
}

// Question returns the question with the given id if it belongs to the questionnaire.
func (q Questionnaire) Question(id int64) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// OrderedQuestions returns the questions sorted by order number, then id.
func (q Questionnaire) OrderedQuestions() []Question {
	out := append([]Question(nil), q.Questions...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// NextQuestionOrder is max(existing order)+1, or 1 for an empty questionnaire.
func (q Questionnaire) NextQuestionOrder() int {
	highest := 0
	for _, question := range q.Questions {
		if question.Order > highest {
			highest = question.Order
		}
	}
	return highest + 1
}

// Question is an ordered prompt with at least two answers.
type Question struct {
	ID              int64    `json:"id"`
	QuestionnaireID int64    `json:"questionnaireId"`
	Text            string   `json:"text"`
	Order           int      `json:"order"`
	Answers         []Answer `json:"answers"`
}

// IsMultipleChoice reports whether more than one answer is marked correct.
func (q Question) IsMultipleChoice() bool {
	return len(q.CorrectAnswerIDs()) > 1
}

// CorrectAnswerIDs is the set of ids of correct answers.
func (q Question) CorrectAnswerIDs() AnswerSet {
	set := AnswerSet{}
	for _, a := range q.Answers {
		if a.Correct {
			set[a.ID] = struct{}{}
		}
	}
	return set
}

// Answer returns the answer with the given id if it belongs to the question.
func (q Question) Answer(id int64) (Answer, bool) {
	for _, a := range q.Answers {
		if a.ID == id {
			return a, true
		}
	}
	return Answer{}, false
}

// OrderedAnswers returns the answers sorted by order number; ties keep their current relative order.
func (q Question) OrderedAnswers() []Answer {
	out := append([]Answer(nil), q.Answers...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// ReorderAnswers renumbers the answers 1..N following their current order.
func (q *Question) ReorderAnswers() {
	ordered := q.OrderedAnswers()
	for i := range ordered {
		ordered[i].Order = i + 1
	}
	q.Answers = ordered
}

// Answer is one selectable option of a question.
type Answer struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"questionId"`
	Text       string `json:"text"`
	Correct    bool   `json:"correct"`
	Order      int    `json:"order"`
}

// Attempt is one participant's scored run through a questionnaire.
type Attempt struct {
	ID              int64      `json:"id"`
	QuestionnaireID int64      `json:"questionnaireId"`
	UserID          *int64     `json:"userId,omitempty"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	StartedAt       time.Time  `json:"startedAt"`
	FinishedAt      *time.Time `json:"finishedAt,omitempty"`
	Score           int        `json:"score"`
	TotalQuestions  int        `json:"totalQuestions"`
}

// Percentage is score/total*100 rounded to two decimals, 0 when nothing was answered.
func (a Attempt) Percentage() float64 {
	return Percentage(a.Score, a.TotalQuestions)
}

// Passed reports whether the attempt reaches the threshold.
func (a Attempt) Passed(threshold int) bool {
	return Passed(a.Percentage(), threshold)
}

// BelongsTo reports whether the attempt is bound to the given user.
func (a Attempt) BelongsTo(userID int64) bool {
	return a.UserID != nil && *a.UserID == userID
}

// SelectedAnswer records one answer chosen during an attempt.
type SelectedAnswer struct {
	ID         int64     `json:"id"`
	AttemptID  int64     `json:"attemptId"`
	QuestionID int64     `json:"questionId"`
	AnswerID   int64     `json:"answerId"`
	AnsweredAt time.Time `json:"answeredAt"`
}

// Selection is a raw {questionId, answerId} pair submitted by a client.
type Selection struct {
	QuestionID int64 `json:"questionId"`
	AnswerID   int64 `json:"answerId"`
}

// Participant carries the names recorded on an attempt.
type Participant struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

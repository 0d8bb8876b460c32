package domain

// Caller is the identity performing an operation. A nil *Caller is an anonymous participant.
type Caller struct {
	UserID    int64
	Email     string
	Roles     []Role
	FirstName string
	LastName  string
}

// CallerFromUser derives a caller from a stored user.
func CallerFromUser(u User) *Caller {
	return &Caller{
		UserID:    u.ID,
		Email:     u.Email,
		Roles:     u.EffectiveRoles(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func (c *Caller) Authenticated() bool {
	return c != nil
}

// HasRole checks effective roles; every authenticated caller has ROLE_USER.
func (c *Caller) HasRole(role Role) bool {
	if c == nil {
		return false
	}
	for _, r := range effectiveRoles(c.Roles) {
		if r == role {
			return true
		}
	}
	return false
}

func (c *Caller) IsAdmin() bool {
	return c.HasRole(RoleAdmin)
}

// RequireAuthenticated returns ErrUnauthorized for anonymous callers.
func RequireAuthenticated(c *Caller) error {
	if !c.Authenticated() {
		return ErrUnauthorized
	}
	return nil
}

// CanManageQuiz: admins always, otherwise only the creator.
func CanManageQuiz(c *Caller, q Questionnaire) bool {
	if c.IsAdmin() {
		return true
	}
	return c.Authenticated() && q.CreatorID == c.UserID
}

// AuthorizeManage returns ErrUnauthorized or ErrForbidden when the caller may not manage the quiz.
func AuthorizeManage(c *Caller, q Questionnaire) error {
	if err := RequireAuthenticated(c); err != nil {
		return err
	}
	if !CanManageQuiz(c, q) {
		return ErrForbidden
	}
	return nil
}

// CanViewAttempt applies the result visibility rules:
// admin, then the quiz creator, then the attempt owner; attempts without a user are
// viewable by whoever holds their id.
func CanViewAttempt(c *Caller, a Attempt, q Questionnaire) bool {
	if c.IsAdmin() {
		return true
	}
	if a.UserID == nil {
		return true
	}
	if !c.Authenticated() {
		return false
	}
	return a.BelongsTo(c.UserID) || q.CreatorID == c.UserID
}

// CanSeeInactive reports whether the caller may see a deactivated questionnaire.
func CanSeeInactive(c *Caller, q Questionnaire) bool {
	return CanManageQuiz(c, q)
}

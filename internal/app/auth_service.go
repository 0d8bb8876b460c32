package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"quizdesk-service/internal/domain"
)

const (
	minPasswordLen = 6
	// bcrypt refuses input longer than this many bytes.
	maxPasswordBytes = 72
)

// Registration is the payload of a new account.
type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthService handles accounts, login and password resets.
type AuthService struct {
	store    Store
	tokens   TokenIssuer
	notifier Notifier
	resetTTL time.Duration
	now      func() time.Time
}

func NewAuthService(store Store, tokens TokenIssuer, notifier Notifier, resetTTL time.Duration) *AuthService {
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	return &AuthService{
		store:    store,
		tokens:   tokens,
		notifier: notifier,
		resetTTL: resetTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NewAuthServiceWithClock is test-only for deterministic reset expiry.
func NewAuthServiceWithClock(store Store, tokens TokenIssuer, notifier Notifier, resetTTL time.Duration, now func() time.Time) *AuthService {
	s := NewAuthService(store, tokens, notifier, resetTTL)
	s.now = now
	return s
}

// Register creates a ROLE_USER account.
func (s *AuthService) Register(ctx context.Context, in Registration) (domain.User, error) {
	u := domain.User{
		Email:     domain.NormalizeEmail(in.Email),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Roles:     []domain.Role{domain.RoleUser},
		CreatedAt: s.now(),
	}
	if err := validateAccount(u, in.Password); err != nil {
		return domain.User{}, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	u.PasswordHash = hash
	if err := s.store.CreateUser(ctx, &u); err != nil {
		return domain.User{}, err
	}
	log.WithField("user_id", u.ID).Info("user registered")
	return u, nil
}

func validateAccount(u domain.User, password string) error {
	v := validateProfile(u)
	checkPassword(&v, password)
	return v.Err()
}

func checkPassword(v *domain.Violations, password string) {
	switch {
	case len(password) < minPasswordLen:
		v.Add("password", "must be at least 6 characters")
	case len(password) > maxPasswordBytes:
		v.Add("password", "must be at most 72 bytes")
	}
}

func validatePassword(password string) error {
	var v domain.Violations
	checkPassword(&v, password)
	return v.Err()
}

// validateProfile checks the email and, when either is set, both names.
func validateProfile(u domain.User) domain.Violations {
	var v domain.Violations
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		v.Add("email", "must be a valid email address")
	}
	if u.FirstName != "" || u.LastName != "" {
		v = append(v, domain.ValidateParticipant(domain.Participant{FirstName: u.FirstName, LastName: u.LastName})...)
	}
	return v
}

// Login checks the credentials and returns a bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, domain.User, error) {
	u, err := s.store.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.User{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", domain.User{}, err
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return "", domain.User{}, domain.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(u)
	if err != nil {
		return "", domain.User{}, err
	}
	return token, u, nil
}

// Me returns the caller's stored profile.
func (s *AuthService) Me(ctx context.Context, caller *domain.Caller) (domain.User, error) {
	if err := domain.RequireAuthenticated(caller); err != nil {
		return domain.User{}, err
	}
	return s.store.GetUser(ctx, caller.UserID)
}

// ProfilePatch holds the editable profile fields; nil leaves a field unchanged.
type ProfilePatch struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// UpdateProfile edits the caller's own email and names. Stored names are what
// attempts fall back to when a participant omits them.
func (s *AuthService) UpdateProfile(ctx context.Context, caller *domain.Caller, patch ProfilePatch) (domain.User, error) {
	if err := domain.RequireAuthenticated(caller); err != nil {
		return domain.User{}, err
	}
	u, err := s.store.GetUser(ctx, caller.UserID)
	if err != nil {
		return domain.User{}, err
	}
	if patch.Email != nil {
		u.Email = domain.NormalizeEmail(*patch.Email)
	}
	if patch.FirstName != nil {
		u.FirstName = strings.TrimSpace(*patch.FirstName)
	}
	if patch.LastName != nil {
		u.LastName = strings.TrimSpace(*patch.LastName)
	}
	if err := validateProfile(u).Err(); err != nil {
		return domain.User{}, err
	}
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	log.WithField("user_id", u.ID).Info("profile updated")
	return u, nil
}

// GetUser is the admin lookup of any account.
func (s *AuthService) GetUser(ctx context.Context, caller *domain.Caller, id int64) (domain.User, error) {
	if err := domain.RequireAuthenticated(caller); err != nil {
		return domain.User{}, err
	}
	if !caller.IsAdmin() {
		return domain.User{}, domain.ErrForbidden
	}
	return s.store.GetUser(ctx, id)
}

// ForgotPassword issues a reset token. Unknown emails succeed silently so that
// the endpoint does not reveal which accounts exist.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.store.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	expires := s.now().Add(s.resetTTL)
	u.ResetToken = uuid.NewString()
	u.ResetTokenExpiresAt = &expires
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return err
	}
	if err := s.notifier.SendPasswordReset(ctx, u.Email, u.ResetToken, expires); err != nil {
		log.WithError(err).WithField("user_id", u.ID).Error("password reset notification failed")
	}
	return nil
}

// ResetPassword sets a new password if the token is known and unexpired, then clears it.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if _, err := uuid.Parse(token); err != nil {
		return domain.Invalid("token", "is invalid or expired")
	}
	u, err := s.store.GetUserByResetToken(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Invalid("token", "is invalid or expired")
	}
	if err != nil {
		return err
	}
	if u.ResetTokenExpiresAt == nil || u.ResetTokenExpiresAt.Before(s.now()) {
		return domain.Invalid("token", "is invalid or expired")
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.ResetToken = ""
	u.ResetTokenExpiresAt = nil
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return err
	}
	log.WithField("user_id", u.ID).Info("password reset")
	return nil
}

// EnsureAdmin creates an admin account, or promotes and re-keys an existing one.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		u, err = s.Register(ctx, Registration{Email: email, Password: password})
		if err != nil {
			return domain.User{}, err
		}
	} else if err != nil {
		return domain.User{}, err
	} else {
		if err := validatePassword(password); err != nil {
			return domain.User{}, err
		}
		hash, err := hashPassword(password)
		if err != nil {
			return domain.User{}, err
		}
		u.PasswordHash = hash
	}
	if !domain.CallerFromUser(u).IsAdmin() {
		u.Roles = append(u.Roles, domain.RoleAdmin)
	}
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	log.WithField("user_id", u.ID).Info("admin ensured")
	return u, nil
}

func hashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

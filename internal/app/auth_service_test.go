package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"quizdesk-service/internal/app"
	"quizdesk-service/internal/auth"
	"quizdesk-service/internal/domain"
	"quizdesk-service/internal/infra/memory"
)

type authFixture struct {
	svc    *app.AuthService
	store  *memory.Store
	outbox *memory.Outbox
	signer *auth.Signer
	clock  *time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	f := &authFixture{
		store:  memory.NewStore(),
		outbox: memory.NewOutbox(),
		signer: auth.NewSigner("test-secret", time.Hour),
		clock:  &now,
	}
	f.svc = app.NewAuthServiceWithClock(f.store, f.signer, f.outbox, time.Hour, func() time.Time { return *f.clock })
	return f
}

func (f *authFixture) register(t *testing.T, email, password string) domain.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), app.Registration{Email: email, Password: password, FirstName: "Ada", LastName: "Lovelace"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return u
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	u := f.register(t, " Ada@Example.COM ", "secret1")
	if u.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", u.Email)
	}
	if string(u.PasswordHash) == "secret1" {
		t.Fatal("password must be hashed")
	}

	token, logged, err := f.svc.Login(ctx, "ADA@example.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.ID != u.ID {
		t.Fatalf("expected user %d, got %d", u.ID, logged.ID)
	}
	caller, err := f.signer.Parse(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if caller.UserID != u.ID || !caller.HasRole(domain.RoleUser) {
		t.Fatalf("unexpected caller %+v", caller)
	}

	me, err := f.svc.Me(ctx, caller)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.FirstName != "Ada" {
		t.Fatalf("unexpected profile %+v", me)
	}
}

func TestRegisterRejectsDuplicatesAndWeakPasswords(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.register(t, "ada@example.com", "secret1")

	if _, err := f.svc.Register(ctx, app.Registration{Email: "ADA@example.com", Password: "secret1"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := f.svc.Register(ctx, app.Registration{Email: "bob@example.com", Password: "123"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPasswordsOverBcryptLimitAreInvalid(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	// 25 three-byte runes: short in characters, 75 bytes on the wire
	long := strings.Repeat("€", 25)
	_, err := f.svc.Register(ctx, app.Registration{Email: "bob@example.com", Password: long})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Violations[0].Field != "password" {
		t.Fatalf("expected password violation, got %v", err)
	}
	if _, err := f.svc.Register(ctx, app.Registration{Email: "bob@example.com", Password: strings.Repeat("a", 72)}); err != nil {
		t.Fatalf("72-byte password: %v", err)
	}

	f.register(t, "ada@example.com", "secret1")
	if err := f.svc.ForgotPassword(ctx, "ada@example.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	msg, _ := f.outbox.Last("ada@example.com")
	if err := f.svc.ResetPassword(ctx, msg.Token, long); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("reset: expected validation error, got %v", err)
	}
	if _, err := f.svc.EnsureAdmin(ctx, "ada@example.com", long); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("ensure admin: expected validation error, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	u := f.register(t, "ada@example.com", "secret1")
	f.register(t, "bob@example.com", "secret1")
	caller := domain.CallerFromUser(u)

	if _, err := f.svc.UpdateProfile(ctx, nil, app.ProfilePatch{}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("anonymous: expected ErrUnauthorized, got %v", err)
	}

	email, first := " Ada.King@Example.com ", "Augusta"
	updated, err := f.svc.UpdateProfile(ctx, caller, app.ProfilePatch{Email: &email, FirstName: &first})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Email != "ada.king@example.com" || updated.FirstName != "Augusta" || updated.LastName != "Lovelace" {
		t.Fatalf("unexpected profile %+v", updated)
	}
	if _, _, err := f.svc.Login(ctx, "ada.king@example.com", "secret1"); err != nil {
		t.Fatalf("login with new email: %v", err)
	}

	taken := "bob@example.com"
	if _, err := f.svc.UpdateProfile(ctx, caller, app.ProfilePatch{Email: &taken}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	bad := "A1"
	if _, err := f.svc.UpdateProfile(ctx, caller, app.ProfilePatch{LastName: &bad}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	me, err := f.svc.Me(ctx, caller)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.LastName != "Lovelace" {
		t.Fatalf("rejected patch must not persist, got %+v", me)
	}
}

func TestGetUserIsAdminOnly(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	u := f.register(t, "ada@example.com", "secret1")
	admin, err := f.svc.EnsureAdmin(ctx, "root@example.com", "secret1")
	if err != nil {
		t.Fatalf("ensure admin: %v", err)
	}

	if _, err := f.svc.GetUser(ctx, nil, u.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("anonymous: expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.svc.GetUser(ctx, domain.CallerFromUser(u), admin.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-admin: expected ErrForbidden, got %v", err)
	}
	got, err := f.svc.GetUser(ctx, domain.CallerFromUser(admin), u.ID)
	if err != nil || got.Email != "ada@example.com" {
		t.Fatalf("admin lookup: %+v %v", got, err)
	}
	if _, err := f.svc.GetUser(ctx, domain.CallerFromUser(admin), 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.register(t, "ada@example.com", "secret1")

	for _, c := range []struct{ email, password string }{
		{"ada@example.com", "wrong-password"},
		{"nobody@example.com", "secret1"},
	} {
		if _, _, err := f.svc.Login(ctx, c.email, c.password); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("%s: expected ErrInvalidCredentials, got %v", c.email, err)
		}
	}
	if _, err := f.svc.Me(ctx, nil); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.register(t, "ada@example.com", "secret1")

	if err := f.svc.ForgotPassword(ctx, "unknown@example.com"); err != nil {
		t.Fatalf("unknown email must not fail: %v", err)
	}
	if _, ok := f.outbox.Last("unknown@example.com"); ok {
		t.Fatal("no message expected for an unknown email")
	}

	if err := f.svc.ForgotPassword(ctx, "ada@example.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	msg, ok := f.outbox.Last("ada@example.com")
	if !ok {
		t.Fatal("expected a reset message")
	}
	if !msg.ExpiresAt.Equal(f.clock.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", msg.ExpiresAt)
	}

	if err := f.svc.ResetPassword(ctx, msg.Token, "abc"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("short password: expected validation error, got %v", err)
	}
	if err := f.svc.ResetPassword(ctx, msg.Token, "brand-new"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, _, err := f.svc.Login(ctx, "ada@example.com", "brand-new"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if err := f.svc.ResetPassword(ctx, msg.Token, "again-new"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("reused token: expected validation error, got %v", err)
	}
	if err := f.svc.ResetPassword(ctx, "not-a-token", "again-new"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("malformed token: expected validation error, got %v", err)
	}
}

func TestPasswordResetExpires(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.register(t, "ada@example.com", "secret1")
	if err := f.svc.ForgotPassword(ctx, "ada@example.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	msg, _ := f.outbox.Last("ada@example.com")

	later := f.clock.Add(2 * time.Hour)
	*f.clock = later
	if err := f.svc.ResetPassword(ctx, msg.Token, "brand-new"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	created, err := f.svc.EnsureAdmin(ctx, "root@example.com", "rootpass")
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if !domain.CallerFromUser(created).IsAdmin() {
		t.Fatalf("expected admin role, got %v", created.Roles)
	}

	f.register(t, "ada@example.com", "secret1")
	promoted, err := f.svc.EnsureAdmin(ctx, "ada@example.com", "newpass1")
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if !domain.CallerFromUser(promoted).IsAdmin() {
		t.Fatalf("expected promoted admin, got %v", promoted.Roles)
	}
	if _, _, err := f.svc.Login(ctx, "ada@example.com", "newpass1"); err != nil {
		t.Fatalf("login with new admin password: %v", err)
	}

	again, err := f.svc.EnsureAdmin(ctx, "ada@example.com", "newpass1")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	admins := 0
	for _, r := range again.Roles {
		if r == domain.RoleAdmin {
			admins++
		}
	}
	if admins != 1 {
		t.Fatalf("admin role must not be duplicated, got %v", again.Roles)
	}
}

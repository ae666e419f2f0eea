package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/salon-chat/salon-server/internal/store/sqlite"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})

	cfg := &JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "salon-server",
		Audience: "salon-client",
		TTL:      time.Hour,
	}
	return NewService(st, cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("expected alice, got %q", user.Username)
	}
	if user.PasswordHash == "secret123" {
		t.Fatal("password stored in plain text")
	}
	if token == "" {
		t.Fatal("expected a token")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.UserID != user.ID || claims.Username != "alice" {
		t.Fatalf("bad claims: %+v", claims)
	}

	loggedIn, token2, err := svc.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loggedIn.ID != user.ID {
		t.Fatalf("expected user %d, got %d", user.ID, loggedIn.ID)
	}
	if token2 == "" {
		t.Fatal("expected a login token")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "ab", "secret123"); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("short username: expected ErrInvalidUsername, got %v", err)
	}
	if _, _, err := svc.Register(ctx, "   a   ", "secret123"); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("whitespace username: expected ErrInvalidUsername, got %v", err)
	}
	if _, _, err := svc.Register(ctx, "alice", "short"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("short password: expected ErrInvalidPassword, got %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "alice", "secret123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := svc.Register(ctx, "alice", "other-password"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLoginFailures(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Login(ctx, "ghost", "whatever"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if _, _, err := svc.Register(ctx, "alice", "secret123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := svc.Login(ctx, "alice", "wrong-password"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
}

func TestValidateTokenRejectsForgery(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, token, err := svc.Register(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	otherCfg := &JWTConfig{
		Secret:   []byte("other-secret"),
		Issuer:   "salon-server",
		Audience: "salon-client",
		TTL:      time.Hour,
	}
	if _, err := ValidateToken(otherCfg, token); err == nil {
		t.Fatal("token signed with a different secret must be rejected")
	}

	if _, err := svc.ValidateToken("not.a.token"); err == nil {
		t.Fatal("garbage token must be rejected")
	}

	wrongIssuer := &JWTConfig{Secret: []byte("test-secret"), Issuer: "someone-else", Audience: "salon-client", TTL: time.Hour}
	if _, err := ValidateToken(wrongIssuer, token); err == nil {
		t.Fatal("wrong issuer must be rejected")
	}
}

package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/roomchat/roomchat-server/internal/store/memory"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	cfg := &JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "roomchat-test",
		Audience: "roomchat-clients",
		TTL:      time.Hour,
	}
	return NewService(memory.New(), cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.Username != "alice" || claims.IsGuest {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	token, err = svc.Login(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := svc.ValidateToken(token); err != nil {
		t.Fatalf("validate login token failed: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ab", "password123"); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("short username: err = %v, want ErrInvalidUsername", err)
	}
	if _, err := svc.Register(ctx, "alice", "short"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("short password: err = %v, want ErrInvalidPassword", err)
	}

	if _, err := svc.Register(ctx, "alice", "password123"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "password456"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate: err = %v, want ErrUserExists", err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "password123"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.Login(ctx, "alice", "wrongpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "nobody", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestGuestToken(t *testing.T) {
	svc := newTestService(t)

	token, username, err := svc.Guest(context.Background())
	if err != nil {
		t.Fatalf("guest failed: %v", err)
	}
	if !strings.HasPrefix(username, "guest_") {
		t.Fatalf("guest username = %q, want guest_ prefix", username)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.Username != username || !claims.IsGuest {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	svc := newTestService(t)

	token, err := svc.Register(context.Background(), "alice", "password123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	other := NewService(memory.New(), &JWTConfig{
		Secret: []byte("different-secret"),
		TTL:    time.Hour,
	})
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}

	if _, err := svc.ValidateToken(token + "x"); err == nil {
		t.Fatal("corrupted token must be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "password123" {
		t.Fatal("hash must not equal the plaintext")
	}
	if err := ComparePassword(hash, "password123"); err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	if err := ComparePassword(hash, "other"); err == nil {
		t.Fatal("wrong password must not compare")
	}
}

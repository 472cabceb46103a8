package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestLogoutRevokesRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice", "correct-password-123")

	ctx := context.Background()
	pair, err := env.engine.Login(ctx, "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := env.engine.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if _, err := env.engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked after logout, got %v", err)
	}
	if _, err := env.engine.ValidateRefresh(ctx, pair.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked from ValidateRefresh, got %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice", "correct-password-123")

	ctx := context.Background()
	pair, err := env.engine.Login(ctx, "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := env.engine.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("first Logout failed: %v", err)
	}
	if err := env.engine.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("second Logout failed: %v", err)
	}
}

func TestLogoutRejectsInvalidTokens(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice", "correct-password-123")

	ctx := context.Background()
	pair, err := env.engine.Login(ctx, "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := env.engine.Logout(ctx, "not.a.jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	if err := env.engine.Logout(ctx, pair.AccessToken); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("expected ErrWrongTokenType, got %v", err)
	}
}

func TestLogoutDoesNotAffectAccessTokenValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice", "correct-password-123")

	ctx := context.Background()
	pair, err := env.engine.Login(ctx, "alice", "correct-password-123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := env.engine.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	// Access tokens are stateless; they ride out their short TTL.
	if _, err := env.engine.ValidateAccess(ctx, pair.AccessToken); err != nil {
		t.Fatalf("ValidateAccess after logout failed: %v", err)
	}
}

package flows

import (
	"context"
	"time"
)

// LogoutFailureKind classifies logout flow failures for root-level mapping.
type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureParse
	LogoutFailureRevoke
)

// LogoutResult reports the outcome of a logout attempt.
type LogoutResult struct {
	Failure LogoutFailureKind
	Err     error
	UserID  string
	TokenID string
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	ParseRefresh func(token string) (TokenClaims, error)
	Now          func() time.Time
	Revoke       func(ctx context.Context, tokenID string, ttl time.Duration) error
}

// RunLogout revokes the presented refresh token so it can never be rotated.
// Revocation is idempotent: logging out twice with the same token succeeds
// both times.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) LogoutResult {
	claims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return LogoutResult{Failure: LogoutFailureParse, Err: err}
	}

	remaining := claims.ExpiresAt.Sub(deps.Now())
	if err := deps.Revoke(ctx, claims.TokenID, remaining); err != nil {
		return LogoutResult{Failure: LogoutFailureRevoke, Err: err, UserID: claims.Subject, TokenID: claims.TokenID}
	}

	return LogoutResult{Failure: LogoutFailureNone, UserID: claims.Subject, TokenID: claims.TokenID}
}

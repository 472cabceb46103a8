package flows

import (
	"context"
	"errors"
	"time"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureParse
	RefreshFailureRateLimited
	RefreshFailureRevoked
	RefreshFailureConsume
	RefreshFailureUserLookup
	RefreshFailureAccountStatus
	RefreshFailureIssue
)

// RefreshResult carries either the rotated token pair or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	UserID  string
	TokenID string
	Pair    TokenPairData
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	ParseRefresh       func(token string) (TokenClaims, error)
	Now                func() time.Time
	CheckRefreshRate   func(ctx context.Context, subject string) error
	Consume            func(ctx context.Context, tokenID string, ttl time.Duration) error
	AlreadyRevoked     error
	LookupUserByID     func(userID string) (UserRecord, error)
	AccountStatusError func(status uint8) error
	IssueTokens        func(userID string) (TokenPairData, error)
}

// RunRefresh rotates a refresh token. The presented token's ID is consumed
// atomically before new tokens are issued, so a token replayed concurrently
// yields at most one successful rotation.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	claims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureParse, Err: err}
	}

	if deps.CheckRefreshRate != nil {
		if err := deps.CheckRefreshRate(ctx, claims.Subject); err != nil {
			return RefreshResult{Failure: RefreshFailureRateLimited, Err: err, UserID: claims.Subject, TokenID: claims.TokenID}
		}
	}

	// The revocation entry only needs to outlive the token itself.
	remaining := claims.ExpiresAt.Sub(deps.Now())
	if err := deps.Consume(ctx, claims.TokenID, remaining); err != nil {
		if errors.Is(err, deps.AlreadyRevoked) {
			return RefreshResult{Failure: RefreshFailureRevoked, Err: err, UserID: claims.Subject, TokenID: claims.TokenID}
		}
		return RefreshResult{Failure: RefreshFailureConsume, Err: err, UserID: claims.Subject, TokenID: claims.TokenID}
	}

	user, err := deps.LookupUserByID(claims.Subject)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureUserLookup, Err: err, UserID: claims.Subject, TokenID: claims.TokenID}
	}
	if statusErr := deps.AccountStatusError(user.Status); statusErr != nil {
		return RefreshResult{Failure: RefreshFailureAccountStatus, Err: statusErr, UserID: user.UserID, TokenID: claims.TokenID}
	}

	pair, err := deps.IssueTokens(user.UserID)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, UserID: user.UserID, TokenID: claims.TokenID}
	}

	return RefreshResult{Failure: RefreshFailureNone, UserID: user.UserID, TokenID: claims.TokenID, Pair: pair}
}

package authcore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	internalaudit "github.com/shopapi/authcore/internal/audit"
	"github.com/shopapi/authcore/internal/flows"
	"github.com/shopapi/authcore/internal/rate"
	"github.com/shopapi/authcore/password"
	"github.com/shopapi/authcore/revocation"
	"github.com/shopapi/authcore/token"
)

// Engine is the authentication core. It issues and validates token pairs,
// rotates refresh tokens with replay protection, and manages account
// credentials. Construct it with [Builder]; all methods are safe for
// concurrent use.
type Engine struct {
	config       Config
	revocations  *revocation.Store
	rateLimiter  *rate.Limiter
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	passwordHash *password.Argon2
	tokens       *token.Manager
	userProvider UserProvider
	now          func() time.Time
	flows        flows.Service
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports how many audit events were dropped because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}, Histograms: map[MetricID][]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

/*
====================================
LOGIN
====================================
*/

// Login verifies the identifier/password pair and issues a fresh token
// pair. Unknown identifiers and wrong passwords are indistinguishable to
// the caller; both return [ErrInvalidCredentials].
func (e *Engine) Login(ctx context.Context, identifier, password string) (*TokenPair, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Login(ctx, identifier, password)

	switch res.Failure {
	case flows.LoginFailureNone:
		e.metricInc(MetricLoginSuccess)
		e.emitAudit(ctx, auditEventLoginSuccess, true, res.UserID, res.Pair.RefreshID, nil, func() map[string]string {
			return map[string]string{"identifier": identifier}
		})
		return pairFromFlow(res.Pair), nil

	case flows.LoginFailureRateLimited:
		if !errors.Is(res.Err, rate.ErrRateLimited) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrStoreUnavailable, func() map[string]string {
				return map[string]string{"identifier": identifier, "reason": "store_unavailable"}
			})
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
		}
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, res.UserID, "", ErrLoginRateLimited, func() map[string]string {
			return map[string]string{"identifier": identifier}
		})
		return nil, ErrLoginRateLimited

	case flows.LoginFailureEmptyPassword:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"identifier": identifier, "reason": "empty_password"}
		})
		return nil, ErrInvalidCredentials

	case flows.LoginFailureUserLookup:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"identifier": identifier, "reason": "user_not_found"}
		})
		return nil, ErrInvalidCredentials

	case flows.LoginFailureHashFormat:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.UserID, "", ErrHashFormat, func() map[string]string {
			return map[string]string{"identifier": identifier, "reason": "hash_format"}
		})
		return nil, fmt.Errorf("%w: %v", ErrHashFormat, res.Err)

	case flows.LoginFailurePasswordMismatch:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.UserID, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"identifier": identifier, "reason": "password_mismatch"}
		})
		return nil, ErrInvalidCredentials

	case flows.LoginFailureAccountStatus:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.UserID, "", res.Err, func() map[string]string {
			return map[string]string{"identifier": identifier, "reason": "account_status"}
		})
		return nil, res.Err

	default:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.UserID, "", res.Err, func() map[string]string {
			return map[string]string{"identifier": identifier, "reason": "issue_failed"}
		})
		return nil, res.Err
	}
}

/*
====================================
REFRESH
====================================
*/

// Refresh rotates a refresh token: the presented token's ID is consumed
// atomically, then a new pair is issued. A token that was already consumed
// returns [ErrTokenRevoked], which callers should treat as a possible
// replay.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Refresh(ctx, refreshToken)

	switch res.Failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, res.UserID, res.TokenID, nil, nil)
		return pairFromFlow(res.Pair), nil

	case flows.RefreshFailureParse:
		mapped := mapTokenError(res.Err)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", mapped, nil)
		return nil, mapped

	case flows.RefreshFailureRateLimited:
		if !errors.Is(res.Err, rate.ErrRateLimited) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, res.TokenID, ErrStoreUnavailable, nil)
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
		}
		e.metricInc(MetricRefreshRateLimited)
		e.emitAudit(ctx, auditEventRefreshRateLimited, false, res.UserID, res.TokenID, ErrRefreshRateLimited, nil)
		return nil, ErrRefreshRateLimited

	case flows.RefreshFailureRevoked:
		e.metricInc(MetricRefreshRevoked)
		e.emitAudit(ctx, auditEventRefreshRevoked, false, res.UserID, res.TokenID, ErrTokenRevoked, nil)
		return nil, ErrTokenRevoked

	case flows.RefreshFailureConsume:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, res.TokenID, ErrStoreUnavailable, nil)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)

	case flows.RefreshFailureUserLookup:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, res.TokenID, ErrUserNotFound, nil)
		return nil, ErrUserNotFound

	case flows.RefreshFailureAccountStatus:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, res.TokenID, res.Err, nil)
		return nil, res.Err

	default:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.UserID, res.TokenID, res.Err, nil)
		return nil, res.Err
	}
}

/*
====================================
LOGOUT
====================================
*/

// Logout revokes the presented refresh token for the remainder of its
// lifetime. Logging out with an already revoked token succeeds.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}

	res := e.flows.Logout(ctx, refreshToken)

	switch res.Failure {
	case flows.LogoutFailureNone:
		e.metricInc(MetricLogout)
		e.emitAudit(ctx, auditEventLogout, true, res.UserID, res.TokenID, nil, nil)
		return nil
	case flows.LogoutFailureParse:
		return mapTokenError(res.Err)
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
	}
}

/*
====================================
VALIDATION
====================================
*/

// ValidateAccess checks an access token and returns the authenticated
// subject. A refresh token presented here returns [ErrWrongTokenType].
func (e *Engine) ValidateAccess(ctx context.Context, tokenStr string) (*AuthResult, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}

	start := e.now()
	res := e.flows.ValidateAccess(tokenStr)
	e.metrics.Observe(MetricValidateLatency, e.now().Sub(start))

	if res.Failure != flows.ValidateFailureNone {
		mapped := mapTokenError(res.Err)
		e.countValidateFailure(mapped)
		return nil, mapped
	}

	e.metricInc(MetricValidateSuccess)
	return &AuthResult{
		UserID:    res.Claims.Subject,
		ExpiresAt: res.Claims.ExpiresAt,
	}, nil
}

// ValidateRefresh checks a refresh token, including its revocation state.
// It does not consume the token; use [Engine.Refresh] to rotate.
func (e *Engine) ValidateRefresh(ctx context.Context, tokenStr string) (*AuthResult, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.ValidateRefresh(ctx, tokenStr)

	switch res.Failure {
	case flows.ValidateFailureNone:
		e.metricInc(MetricValidateSuccess)
		return &AuthResult{
			UserID:    res.Claims.Subject,
			TokenID:   res.Claims.TokenID,
			ExpiresAt: res.Claims.ExpiresAt,
		}, nil
	case flows.ValidateFailureRevoked:
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenRevoked
	case flows.ValidateFailureRevocationCheck:
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
	default:
		mapped := mapTokenError(res.Err)
		e.countValidateFailure(mapped)
		return nil, mapped
	}
}

func (e *Engine) countValidateFailure(err error) {
	e.metricInc(MetricValidateFailure)
	switch {
	case errors.Is(err, ErrTokenExpired):
		e.metricInc(MetricValidateExpired)
	case errors.Is(err, ErrWrongTokenType):
		e.metricInc(MetricValidateWrongType)
	}
}

/*
====================================
WIRING
====================================
*/

func (e *Engine) buildFlowService() flows.Service {
	return flows.New(flows.Deps{
		Login: flows.LoginDeps{
			ClientIPFromContext: clientIPFromContext,
			RateLimiter:         e.loginLimiter(),
			LookupUser: func(identifier string) (flows.UserRecord, error) {
				u, err := e.userProvider.GetUserByIdentifier(identifier)
				if err != nil {
					return flows.UserRecord{}, err
				}
				return flowUser(u), nil
			},
			VerifyPassword: e.passwordHash.Verify,
			IsHashFormatErr: func(err error) bool {
				return errors.Is(err, password.ErrHashFormat)
			},
			AccountStatusError: e.accountStatusError,
			UpgradeOnLogin:     e.config.Password.UpgradeOnLogin,
			NeedsRehash:        e.passwordHash.NeedsRehash,
			Rehash:             e.rehashCounted,
			UpdatePasswordHash: e.userProvider.UpdatePasswordHash,
			IssueTokens:        e.issuePairData,
			Warn:               log.Printf,
		},
		Refresh: flows.RefreshDeps{
			ParseRefresh:       e.parseRefreshClaims,
			Now:                e.now,
			CheckRefreshRate:   e.refreshRateCheck(),
			Consume:            e.revocations.Consume,
			AlreadyRevoked:     revocation.ErrAlreadyRevoked,
			LookupUserByID: func(userID string) (flows.UserRecord, error) {
				u, err := e.userProvider.GetUserByID(userID)
				if err != nil {
					return flows.UserRecord{}, err
				}
				return flowUser(u), nil
			},
			AccountStatusError: e.accountStatusError,
			IssueTokens:        e.issuePairData,
		},
		Logout: flows.LogoutDeps{
			ParseRefresh: e.parseRefreshClaims,
			Now:          e.now,
			Revoke:       e.revocations.Revoke,
		},
		Validate: flows.ValidateDeps{
			ParseAccess: func(tokenStr string) (flows.TokenClaims, error) {
				c, err := e.tokens.ParseAccess(tokenStr)
				if err != nil {
					return flows.TokenClaims{}, err
				}
				return flowClaims(c), nil
			},
			ParseRefresh: e.parseRefreshClaims,
			IsRevoked:    e.revocations.IsRevoked,
		},
	})
}

func (e *Engine) loginLimiter() flows.LoginRateLimiter {
	if !e.config.Security.EnableLoginThrottle && !e.config.Security.EnableIPThrottle {
		return nil
	}
	return e.rateLimiter
}

func (e *Engine) refreshRateCheck() func(ctx context.Context, subject string) error {
	if !e.config.Security.EnableRefreshThrottle {
		return nil
	}
	return e.rateLimiter.CheckRefresh
}

func (e *Engine) parseRefreshClaims(tokenStr string) (flows.TokenClaims, error) {
	c, err := e.tokens.ParseRefresh(tokenStr)
	if err != nil {
		return flows.TokenClaims{}, err
	}
	return flowClaims(c), nil
}

func (e *Engine) issuePairData(userID string) (flows.TokenPairData, error) {
	access, accessExp, err := e.tokens.IssueAccess(userID)
	if err != nil {
		return flows.TokenPairData{}, err
	}
	refresh, refreshID, refreshExp, err := e.tokens.IssueRefresh(userID)
	if err != nil {
		return flows.TokenPairData{}, err
	}
	return flows.TokenPairData{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshID:        refreshID,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (e *Engine) rehashCounted(pw string) (string, error) {
	out, err := e.passwordHash.Hash(pw)
	if err == nil {
		e.metricInc(MetricPasswordRehash)
	}
	return out, err
}

func (e *Engine) accountStatusError(status uint8) error {
	return e.statusError(AccountStatus(status))
}

func (e *Engine) statusError(status AccountStatus) error {
	switch status {
	case AccountDisabled:
		return ErrAccountDisabled
	case AccountLocked:
		return ErrAccountLocked
	case AccountPendingVerification:
		if e.config.Security.RequireVerifiedForLogin {
			return ErrAccountUnverified
		}
		return nil
	default:
		return nil
	}
}

func flowUser(u UserRecord) flows.UserRecord {
	return flows.UserRecord{
		UserID:       u.UserID,
		Identifier:   u.Identifier,
		PasswordHash: u.PasswordHash,
		Status:       uint8(u.Status),
	}
}

func flowClaims(c *token.Claims) flows.TokenClaims {
	out := flows.TokenClaims{
		Subject: c.Subject,
		TokenID: c.ID,
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}

func pairFromFlow(p flows.TokenPairData) *TokenPair {
	return &TokenPair{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrWrongType):
		return ErrWrongTokenType
	default:
		return ErrTokenInvalid
	}
}

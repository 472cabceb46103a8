package authcore

import "errors"

var (
	// ErrEngineNotReady is returned when an engine method is called before Build completed.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidCredentials is returned on login when the identifier or password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by account operations targeting an unknown user.
	ErrUserNotFound = errors.New("user not found")
	// ErrLoginRateLimited is returned when the login attempt window is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited is returned when the refresh attempt window is exhausted.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrTokenInvalid is returned for malformed, tampered, or mis-issued tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned for structurally valid tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrWrongTokenType is returned when a valid token of the other type is presented.
	ErrWrongTokenType = errors.New("wrong token type")
	// ErrTokenRevoked is returned when a refresh token's ID was already consumed or revoked.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrHashFormat is returned when a stored password digest cannot be parsed.
	ErrHashFormat = errors.New("malformed password hash")
	// ErrAccountExists is returned when account creation hits a duplicate identifier.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountCreationDisabled is returned when account creation is switched off in config.
	ErrAccountCreationDisabled = errors.New("account creation disabled")
	// ErrAccountDisabled is returned when the target account is soft-disabled.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountLocked is returned when the target account is administratively locked.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountUnverified is returned when login requires a verified account.
	ErrAccountUnverified = errors.New("account unverified")
	// ErrPasswordPolicy is returned when a new password fails policy checks.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordReuse is returned when a password change repeats the current password.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrProviderDuplicateIdentifier is the sentinel user providers return for duplicate identifiers.
	ErrProviderDuplicateIdentifier = errors.New("provider duplicate identifier")
	// ErrStoreUnavailable is returned when the revocation or rate-limit backend cannot be reached.
	ErrStoreUnavailable = errors.New("auth store unavailable")
)

package flows

import "context"

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureEmptyPassword
	LoginFailureUserLookup
	LoginFailureHashFormat
	LoginFailurePasswordMismatch
	LoginFailureAccountStatus
	LoginFailureIssue
)

// LoginResult carries either the issued token pair or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	UserID  string
	Pair    TokenPairData
}

// LoginRateLimiter is the limiter surface the login flow needs.
type LoginRateLimiter interface {
	CheckLogin(ctx context.Context, identifier, ip string) error
	IncrementLogin(ctx context.Context, identifier, ip string) error
	ResetLogin(ctx context.Context, identifier, ip string) error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	ClientIPFromContext func(context.Context) string
	RateLimiter         LoginRateLimiter
	LookupUser          func(identifier string) (UserRecord, error)
	VerifyPassword      func(password, hash string) (bool, error)
	IsHashFormatErr     func(error) bool
	AccountStatusError  func(status uint8) error
	UpgradeOnLogin      bool
	NeedsRehash         func(hash string) (bool, error)
	Rehash              func(password string) (string, error)
	UpdatePasswordHash  func(userID, newHash string) error
	IssueTokens         func(userID string) (TokenPairData, error)
	Warn                func(format string, args ...any)
}

// RunLogin executes credential verification and token issuance without root
// package dependencies. Failed lookups and failed verifications converge on
// the same externally visible outcome; only the Failure kind distinguishes
// them for audit purposes.
func RunLogin(ctx context.Context, identifier, password string, deps LoginDeps) LoginResult {
	ip := deps.ClientIPFromContext(ctx)

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckLogin(ctx, identifier, ip); err != nil {
			return LoginResult{Failure: LoginFailureRateLimited, Err: err}
		}
	}

	if password == "" {
		if kind, err := incrementLoginCounter(ctx, identifier, ip, deps); kind != LoginFailureNone {
			return LoginResult{Failure: kind, Err: err}
		}
		return LoginResult{Failure: LoginFailureEmptyPassword}
	}

	user, err := deps.LookupUser(identifier)
	if err != nil {
		if kind, limErr := incrementLoginCounter(ctx, identifier, ip, deps); kind != LoginFailureNone {
			return LoginResult{Failure: kind, Err: limErr}
		}
		return LoginResult{Failure: LoginFailureUserLookup, Err: err}
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil && deps.IsHashFormatErr != nil && deps.IsHashFormatErr(err) {
		return LoginResult{Failure: LoginFailureHashFormat, Err: err, UserID: user.UserID}
	}
	if err != nil || !ok {
		if kind, limErr := incrementLoginCounter(ctx, identifier, ip, deps); kind != LoginFailureNone {
			return LoginResult{Failure: kind, Err: limErr, UserID: user.UserID}
		}
		return LoginResult{Failure: LoginFailurePasswordMismatch, Err: err, UserID: user.UserID}
	}

	if statusErr := deps.AccountStatusError(user.Status); statusErr != nil {
		return LoginResult{Failure: LoginFailureAccountStatus, Err: statusErr, UserID: user.UserID}
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.ResetLogin(ctx, identifier, ip); err != nil && deps.Warn != nil {
			deps.Warn("authcore: login counter reset failed")
		}
	}

	if deps.UpgradeOnLogin {
		maybeRehash(user, password, deps)
	}
	password = ""

	pair, err := deps.IssueTokens(user.UserID)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, UserID: user.UserID}
	}

	return LoginResult{Failure: LoginFailureNone, UserID: user.UserID, Pair: pair}
}

// maybeRehash transparently upgrades a digest stored with weaker cost
// parameters. Best-effort: failure must never block a successful login.
func maybeRehash(user UserRecord, password string, deps LoginDeps) {
	needs, err := deps.NeedsRehash(user.PasswordHash)
	if err != nil || !needs {
		return
	}

	upgraded, err := deps.Rehash(password)
	if err != nil {
		if deps.Warn != nil {
			deps.Warn("authcore: password hash upgrade generation failed")
		}
		return
	}

	if err := deps.UpdatePasswordHash(user.UserID, upgraded); err != nil && deps.Warn != nil {
		deps.Warn("authcore: password hash upgrade update failed")
	}
}

func incrementLoginCounter(ctx context.Context, identifier, ip string, deps LoginDeps) (LoginFailureKind, error) {
	if deps.RateLimiter == nil {
		return LoginFailureNone, nil
	}
	if err := deps.RateLimiter.IncrementLogin(ctx, identifier, ip); err != nil {
		return LoginFailureRateLimited, err
	}
	return LoginFailureNone, nil
}

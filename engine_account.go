package authcore

import (
	"context"
	"errors"
)

/*
====================================
ACCOUNT CREATION
====================================
*/

// CreateAccount hashes the password and creates the user through the
// configured [UserProvider]. With AutoLogin enabled, a token pair is issued
// for the new account.
func (e *Engine) CreateAccount(ctx context.Context, req CreateAccountRequest) (*CreateAccountResult, error) {
	if e == nil || e.passwordHash == nil || e.userProvider == nil {
		return nil, ErrEngineNotReady
	}
	if !e.config.Account.Enabled {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", ErrAccountCreationDisabled, func() map[string]string {
			return map[string]string{"reason": "feature_disabled"}
		})
		return nil, ErrAccountCreationDisabled
	}

	if req.Identifier == "" {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "empty_identifier"}
		})
		return nil, ErrInvalidCredentials
	}
	if len(req.Password) < e.config.Account.MinPasswordLength {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{"identifier": req.Identifier, "reason": "password_too_short"}
		})
		return nil, ErrPasswordPolicy
	}

	passwordHash, err := e.passwordHash.Hash(req.Password)
	if err != nil {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{"identifier": req.Identifier, "reason": "hash_policy"}
		})
		return nil, ErrPasswordPolicy
	}

	created, err := e.userProvider.CreateUser(ctx, CreateUserInput{
		Identifier:   req.Identifier,
		PasswordHash: passwordHash,
		Status:       AccountActive,
	})
	if err != nil {
		if errors.Is(err, ErrProviderDuplicateIdentifier) {
			e.metricInc(MetricAccountCreationDuplicate)
			e.emitAudit(ctx, auditEventAccountCreationDuplicate, false, "", "", ErrAccountExists, func() map[string]string {
				return map[string]string{"identifier": req.Identifier}
			})
			return nil, ErrAccountExists
		}
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", err, func() map[string]string {
			return map[string]string{"identifier": req.Identifier, "reason": "provider_create_failed"}
		})
		return nil, err
	}

	result := &CreateAccountResult{UserID: created.UserID}

	if e.config.Account.AutoLogin {
		pairData, err := e.issuePairData(created.UserID)
		if err != nil {
			// The account exists; only the convenience login failed.
			e.emitAudit(ctx, auditEventAccountCreationSuccess, false, created.UserID, "", err, func() map[string]string {
				return map[string]string{"identifier": req.Identifier, "reason": "auto_login_failed"}
			})
			return result, err
		}
		result.Tokens = pairFromFlow(pairData)
	}

	req.Password = ""
	e.metricInc(MetricAccountCreationSuccess)
	e.emitAudit(ctx, auditEventAccountCreationSuccess, true, created.UserID, "", nil, func() map[string]string {
		return map[string]string{"identifier": req.Identifier}
	})
	return result, nil
}

/*
====================================
PASSWORD CHANGE
====================================
*/

// ChangePassword verifies the current password before storing a new hash.
// Reusing the current password is rejected.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if e == nil || e.passwordHash == nil || e.userProvider == nil {
		return ErrEngineNotReady
	}
	if userID == "" || oldPassword == "" || len(newPassword) < e.config.Account.MinPasswordLength {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{"reason": "invalid_input"}
		})
		return ErrPasswordPolicy
	}

	user, err := e.userProvider.GetUserByID(userID)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", ErrUserNotFound, func() map[string]string {
			return map[string]string{"reason": "user_not_found"}
		})
		return ErrUserNotFound
	}
	if statusErr := e.statusError(user.Status); statusErr != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", statusErr, func() map[string]string {
			return map[string]string{"reason": "account_status"}
		})
		return statusErr
	}

	oldOK, err := e.passwordHash.Verify(oldPassword, user.PasswordHash)
	if err != nil || !oldOK {
		e.metricInc(MetricPasswordChangeInvalidOld)
		e.emitAudit(ctx, auditEventPasswordChangeInvalidOld, false, userID, "", ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	samePassword, err := e.passwordHash.Verify(newPassword, user.PasswordHash)
	if err == nil && samePassword {
		e.metricInc(MetricPasswordChangeReuseRejected)
		e.emitAudit(ctx, auditEventPasswordChangeReuse, false, userID, "", ErrPasswordReuse, nil)
		return ErrPasswordReuse
	}

	newHash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{"reason": "hash_policy"}
		})
		return ErrPasswordPolicy
	}

	if err := e.userProvider.UpdatePasswordHash(userID, newHash); err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", err, func() map[string]string {
			return map[string]string{"reason": "update_hash_failed"}
		})
		return err
	}

	if e.rateLimiter != nil {
		identifier := user.Identifier
		if identifier == "" {
			identifier = userID
		}
		// Limiter reset is best-effort and must not block a successful change.
		_ = e.rateLimiter.ResetLogin(ctx, identifier, clientIPFromContext(ctx))
	}

	oldPassword = ""
	newPassword = ""
	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, userID, "", nil, nil)

	return nil
}

/*
====================================
ACCOUNT STATUS
====================================
*/

// DisableAccount soft-disables an account. Existing refresh tokens stop
// rotating at the next refresh because the status check runs after the
// revocation consume.
func (e *Engine) DisableAccount(ctx context.Context, userID string) error {
	err := e.updateAccountStatus(ctx, userID, AccountDisabled)
	if err == nil {
		e.metricInc(MetricAccountDisabled)
	}
	e.emitAudit(ctx, auditEventAccountStatusChange, err == nil, userID, "", err, func() map[string]string {
		return map[string]string{"action": "disable"}
	})
	return err
}

// EnableAccount reactivates a disabled or locked account.
func (e *Engine) EnableAccount(ctx context.Context, userID string) error {
	err := e.updateAccountStatus(ctx, userID, AccountActive)
	e.emitAudit(ctx, auditEventAccountStatusChange, err == nil, userID, "", err, func() map[string]string {
		return map[string]string{"action": "enable"}
	})
	return err
}

// LockAccount administratively freezes an account.
func (e *Engine) LockAccount(ctx context.Context, userID string) error {
	err := e.updateAccountStatus(ctx, userID, AccountLocked)
	if err == nil {
		e.metricInc(MetricAccountLocked)
	}
	e.emitAudit(ctx, auditEventAccountStatusChange, err == nil, userID, "", err, func() map[string]string {
		return map[string]string{"action": "lock"}
	})
	return err
}

func (e *Engine) updateAccountStatus(ctx context.Context, userID string, status AccountStatus) error {
	if e == nil || e.userProvider == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrUserNotFound
	}

	current, err := e.userProvider.GetUserByID(userID)
	if err != nil {
		return ErrUserNotFound
	}
	if current.Status == status {
		return nil
	}

	updated, err := e.userProvider.UpdateAccountStatus(ctx, userID, status)
	if err != nil {
		return err
	}
	if updated.Status != status {
		return errors.New("provider did not apply status change")
	}

	return nil
}

package authcore

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/shopapi/authcore/internal/audit"
)

// AccountStatus represents the lifecycle state of a user account.
type AccountStatus uint8

const (
	// AccountActive accounts may log in and refresh.
	AccountActive AccountStatus = iota
	// AccountPendingVerification accounts exist but have not completed verification.
	AccountPendingVerification
	// AccountDisabled accounts are soft-deleted; login and refresh are rejected.
	AccountDisabled
	// AccountLocked accounts are administratively frozen.
	AccountLocked
)

// UserProvider is the interface callers implement to integrate the engine
// with their user database. It covers credential lookup, account creation,
// password updates, and status transitions.
type UserProvider interface {
	GetUserByIdentifier(identifier string) (UserRecord, error)
	GetUserByID(userID string) (UserRecord, error)
	UpdatePasswordHash(userID string, newHash string) error
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	UpdateAccountStatus(ctx context.Context, userID string, status AccountStatus) (UserRecord, error)
}

// UserRecord is the account record returned by [UserProvider].
type UserRecord struct {
	UserID       string
	Identifier   string
	PasswordHash string
	Status       AccountStatus
}

// CreateUserInput is the input for [UserProvider.CreateUser].
type CreateUserInput struct {
	Identifier   string
	PasswordHash string
	Status       AccountStatus
}

// TokenPair is the issued access+refresh token set returned by
// [Engine.Login] and [Engine.Refresh].
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AuthResult is returned by [Engine.ValidateAccess] and
// [Engine.ValidateRefresh]. It identifies the authenticated user and the
// token's expiry; TokenID is set for refresh tokens only.
type AuthResult struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// CreateAccountRequest is the input for [Engine.CreateAccount].
type CreateAccountRequest struct {
	Identifier string
	Password   string
}

// CreateAccountResult is returned by [Engine.CreateAccount]. Tokens are set
// only when AutoLogin is enabled.
type CreateAccountResult struct {
	UserID string
	Tokens *TokenPair
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

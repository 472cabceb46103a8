package flows

import "time"

// UserRecord is the flow-local account model. Status carries the host's
// AccountStatus as a raw uint8 so flows stay free of root package types.
type UserRecord struct {
	UserID       string
	Identifier   string
	PasswordHash string
	Status       uint8
}

// TokenPairData carries an issued access/refresh pair with expiry metadata.
type TokenPairData struct {
	AccessToken      string
	RefreshToken     string
	RefreshID        string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenClaims is the decoded-token view flows operate on.
type TokenClaims struct {
	Subject   string
	TokenID   string
	ExpiresAt time.Time
}

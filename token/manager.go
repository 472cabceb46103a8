package token

import (
	"bytes"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type discriminator carried in the "typ" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	// ErrInvalid covers signature failures, malformed tokens, and claim
	// validation failures other than expiry and type mismatch.
	ErrInvalid = errors.New("invalid token")
	// ErrExpired is returned for a structurally valid token past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrWrongType is returned when a token verifies under the counterpart
	// secret, or carries a "typ" claim that does not match the expectation.
	ErrWrongType = errors.New("wrong token type")
)

// Config defines signing secrets and validation policy for the token
// [Manager]. AccessSecret and RefreshSecret must differ: the two-secret
// split is what lets verification reject an access token presented on the
// refresh path even before the type claim is read.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration
	RequireIAT    bool
	MaxFutureIAT  time.Duration

	// TimeFunc is the clock used for issuance and validation.
	// Defaults to time.Now.
	TimeFunc func() time.Time
}

// Manager issues and verifies HS256-signed access and refresh tokens.
// The wire shape — sub, iat, exp, typ, and jti on refresh tokens — is an
// external contract with API consumers and must remain stable.
type Manager struct {
	config Config
}

// Claims is the decoded token payload.
type Claims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, errors.New("refresh TTL must exceed access TTL")
	}
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("both signing secrets are required")
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.TimeFunc == nil {
		cfg.TimeFunc = time.Now
	}

	return &Manager{config: cfg}, nil
}

func (m *Manager) now() time.Time {
	return m.config.TimeFunc()
}

// IssueAccess signs a new access token for subject and returns the token
// string with its expiry.
func (m *Manager) IssueAccess(subject string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("empty subject")
	}

	now := m.now()
	expires := now.Add(m.config.AccessTTL)
	claims := m.baseClaims(subject, TypeAccess, now, expires)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expires, nil
}

// IssueRefresh signs a new refresh token for subject. The returned token id
// (jti) identifies this token in the revocation record for rotation.
func (m *Manager) IssueRefresh(subject string) (signed, tokenID string, expires time.Time, err error) {
	if subject == "" {
		return "", "", time.Time{}, errors.New("empty subject")
	}

	now := m.now()
	expires = now.Add(m.config.RefreshTTL)
	claims := m.baseClaims(subject, TypeRefresh, now, expires)
	claims.ID = uuid.NewString()

	signed, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.RefreshSecret)
	if err != nil {
		return "", "", time.Time{}, err
	}

	return signed, claims.ID, expires, nil
}

// ParseAccess verifies tokenStr as an access token and returns its claims.
func (m *Manager) ParseAccess(tokenStr string) (*Claims, error) {
	return m.parseExpecting(tokenStr, TypeAccess)
}

// ParseRefresh verifies tokenStr as a refresh token and returns its claims.
// The jti claim is guaranteed non-empty on success.
func (m *Manager) ParseRefresh(tokenStr string) (*Claims, error) {
	claims, err := m.parseExpecting(tokenStr, TypeRefresh)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}

func (m *Manager) baseClaims(subject, typ string, now, expires time.Time) *Claims {
	claims := &Claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    m.config.Issuer,
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}
	return claims
}

// parseExpecting verifies with the secret matching want. When the signature
// fails, the counterpart secret is tried purely to classify the failure: a
// token that verifies under the other secret is a type mismatch, not a
// forgery.
func (m *Manager) parseExpecting(tokenStr, want string) (*Claims, error) {
	claims, err := m.parseWithSecret(tokenStr, m.secretFor(want))
	if err == nil {
		if claims.TokenType != want {
			return nil, ErrWrongType
		}
		return claims, nil
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpired
	}

	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		if _, otherErr := m.parseWithSecret(tokenStr, m.secretFor(otherType(want))); otherErr == nil ||
			errors.Is(otherErr, jwt.ErrTokenExpired) {
			return nil, ErrWrongType
		}
	}

	return nil, ErrInvalid
}

func (m *Manager) parseWithSecret(tokenStr string, secret []byte) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.config.TimeFunc),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.RequireIAT {
		options = append(options, jwt.WithIssuedAt())
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(
		tokenStr,
		&Claims{},
		func(*jwt.Token) (interface{}, error) { return secret, nil },
	)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.IssuedAt != nil && m.config.MaxFutureIAT > 0 {
		if claims.IssuedAt.Time.After(m.now().Add(m.config.MaxFutureIAT)) {
			return nil, jwt.ErrTokenInvalidClaims
		}
	}

	return claims, nil
}

func (m *Manager) secretFor(typ string) []byte {
	if typ == TypeRefresh {
		return m.config.RefreshSecret
	}
	return m.config.AccessSecret
}

func otherType(typ string) string {
	if typ == TypeRefresh {
		return TypeAccess
	}
	return TypeRefresh
}

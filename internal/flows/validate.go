package flows

import "context"

// ValidateFailureKind classifies token validation failures for root-level
// mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureParse
	ValidateFailureRevoked
	ValidateFailureRevocationCheck
)

// ValidateResult reports the outcome of a token validation.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  TokenClaims
}

// ValidateDeps captures validation flow dependencies.
type ValidateDeps struct {
	ParseAccess  func(token string) (TokenClaims, error)
	ParseRefresh func(token string) (TokenClaims, error)
	IsRevoked    func(ctx context.Context, tokenID string) (bool, error)
}

// RunValidateAccess checks an access token's signature and claims. Access
// tokens carry no revocation ID, so no store lookup happens here.
func RunValidateAccess(token string, deps ValidateDeps) ValidateResult {
	claims, err := deps.ParseAccess(token)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureParse, Err: err}
	}
	return ValidateResult{Failure: ValidateFailureNone, Claims: claims}
}

// RunValidateRefresh checks a refresh token's signature and claims, then
// verifies its ID has not been consumed or revoked.
func RunValidateRefresh(ctx context.Context, token string, deps ValidateDeps) ValidateResult {
	claims, err := deps.ParseRefresh(token)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureParse, Err: err}
	}

	revoked, err := deps.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureRevocationCheck, Err: err, Claims: claims}
	}
	if revoked {
		return ValidateResult{Failure: ValidateFailureRevoked, Claims: claims}
	}

	return ValidateResult{Failure: ValidateFailureNone, Claims: claims}
}

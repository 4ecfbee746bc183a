package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultNearExpiryWindow is the window inside which a live credential is
// reported as stale so callers can refresh it before the provider rejects it.
const DefaultNearExpiryWindow = 5 * time.Minute

// ErrMalformed is returned when a credential does not have the expected
// three-segment shape or its claims segment cannot be decoded.
var ErrMalformed = errors.New("malformed credential")

// ErrMissingExpiry is returned when the claims segment decodes but carries no
// usable exp claim.
var ErrMissingExpiry = errors.New("credential missing expiry claim")

// Claims is the subset of provider claims the portal reads locally.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

type wireClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var unverifiedParser = jwt.NewParser(jwt.WithoutClaimsValidation())

// Decode reads the claims segment of a credential without contacting the
// network or checking the signature. The shape is validated strictly: exactly
// three dot-separated base64url segments and a JSON claims object with a
// non-zero exp.
func Decode(credential string) (*Claims, error) {
	if strings.Count(credential, ".") != 2 {
		return nil, ErrMalformed
	}

	var wire wireClaims
	if _, _, err := unverifiedParser.ParseUnverified(credential, &wire); err != nil {
		return nil, ErrMalformed
	}
	if wire.ExpiresAt == nil || wire.ExpiresAt.IsZero() {
		return nil, ErrMissingExpiry
	}

	return &Claims{
		Subject:   wire.Subject,
		Role:      wire.Role,
		ExpiresAt: wire.ExpiresAt.Time,
	}, nil
}

// DecodeExpiry returns the absolute expiry instant embedded in the credential.
func DecodeExpiry(credential string) (time.Time, error) {
	claims, err := Decode(credential)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt, nil
}

// IsExpired reports whether the credential is expired at now. Credentials that
// cannot be decoded are expired.
func IsExpired(credential string, now time.Time) bool {
	expiry, err := DecodeExpiry(credential)
	if err != nil {
		return true
	}
	return !now.Before(expiry)
}

// IsNearExpiry reports whether the credential expires within window of now.
// An expired or undecodable credential is always near expiry.
func IsNearExpiry(credential string, now time.Time, window time.Duration) bool {
	expiry, err := DecodeExpiry(credential)
	if err != nil {
		return true
	}
	return expiry.Sub(now) <= window
}

package portalauth

import (
	"context"
	"time"

	"github.com/campusworks/portalauth/gateway"
)

// Re-exports so portal page code only imports this package for the common types.
type (
	// Profile is the denormalized user snapshot owned by the controller while
	// a session is active.
	Profile = gateway.Profile
	// ProfilePatch is a partial profile update.
	ProfilePatch = gateway.ProfilePatch
	// AuthError is the typed identity-provider failure.
	AuthError = gateway.AuthError
)

// SessionState is the controller's explicit lifecycle state. The zero value
// is StateUninitialized.
type SessionState uint8

const (
	// StateUninitialized precedes the startup reconciliation.
	StateUninitialized SessionState = iota
	// StateRestoring covers the startup reconciliation: durable load plus
	// remote revalidation.
	StateRestoring
	// StateActive means credential and profile are present and revalidated.
	StateActive
	// StateAbsent means no session: never established, logged out, expired,
	// or revalidation failed.
	StateAbsent
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRestoring:
		return "restoring"
	case StateActive:
		return "active"
	case StateAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// Session is the logical credential+profile pair. The controller swaps whole
// values under its lock, so a profile without a credential is unrepresentable.
type Session struct {
	Credential string
	Profile    Profile
}

// RecoveryReason distinguishes why a recovery token failed validation. The
// distinction is user-facing: "already used" means the reset already
// happened, "expired" prompts a fresh request.
type RecoveryReason string

const (
	// ReasonNotFound: no such token.
	ReasonNotFound RecoveryReason = "not found"
	// ReasonAlreadyUsed: the token completed a reset. Reported even for
	// tokens that are also past their TTL.
	ReasonAlreadyUsed RecoveryReason = "already used"
	// ReasonExpired: the token aged past its TTL; the entry is removed.
	ReasonExpired RecoveryReason = "expired"
)

// TokenValidation is the outcome of RecoveryTokenStore.Validate.
type TokenValidation struct {
	Valid     bool
	Reason    RecoveryReason
	Email     string
	CreatedAt time.Time
}

// Notifier delivers a recovery token to the user, typically by email. The
// library never renders or sends mail itself.
type Notifier interface {
	SendRecoveryToken(ctx context.Context, email, recoveryToken string) error
}

// NoOpNotifier discards notifications. Useful in tests and previews.
type NoOpNotifier struct{}

func (NoOpNotifier) SendRecoveryToken(context.Context, string, string) error { return nil }

package portalauth

import "errors"

var (
	// ErrNotReady is returned when a controller or service is used before Build.
	ErrNotReady = errors.New("portalauth not initialized")
	// ErrNotAuthenticated is returned by operations that require an active session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrPasswordMismatch is returned when a new password and its confirmation
	// differ. Raised locally, before any network call.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrEmailInvalid is returned for addresses outside the institutional domain.
	ErrEmailInvalid = errors.New("invalid institutional email")
	// ErrRecoveryRateLimited is returned when recovery requests for an address
	// arrive faster than the configured allowance.
	ErrRecoveryRateLimited = errors.New("recovery requests rate limited")
	// ErrRecoveryTokenInvalid is returned when a reset is attempted with a
	// token that does not validate; the validation reason carries the detail.
	ErrRecoveryTokenInvalid = errors.New("recovery token invalid")
	// ErrNotificationFailed is returned when the recovery token could not be
	// delivered through the notification channel.
	ErrNotificationFailed = errors.New("recovery notification failed")
)

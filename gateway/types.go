package gateway

import "fmt"

// Profile is the denormalized snapshot of a portal user as the identity
// provider reports it. Role is immutable for the lifetime of a session; role
// changes require a new login.
type Profile struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
	StudentCode  string `json:"studentCode,omitempty"`
	EmployeeCode string `json:"employeeCode,omitempty"`
}

// ProfilePatch is a partial profile update. Only non-nil fields are sent to
// the provider; Role is deliberately absent.
type ProfilePatch struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

// IsZero reports whether the patch carries no fields.
func (p ProfilePatch) IsZero() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Address == nil
}

// Session is the pair the provider returns on a successful login.
type Session struct {
	Credential string  `json:"credential"`
	Profile    Profile `json:"profile"`
}

// ProfileUpdateResult reports a profile patch outcome. Accepted holds the
// fields the provider echoed back as applied; callers must only merge fields
// present in both the request patch and Accepted, so a stale or partial
// response can never clobber unrelated fields.
type ProfileUpdateResult struct {
	Message  string
	Accepted ProfilePatch
}

// AuthError is the typed failure for every gateway operation. Retriable is
// false for 4xx responses; 5xx and transport failures are left to caller
// policy and marked retriable.
type AuthError struct {
	Message    string
	HTTPStatus int
	Retriable  bool
}

func (e *AuthError) Error() string {
	if e.HTTPStatus == 0 {
		return fmt.Sprintf("identity provider: %s", e.Message)
	}
	return fmt.Sprintf("identity provider: %s (status %d)", e.Message, e.HTTPStatus)
}

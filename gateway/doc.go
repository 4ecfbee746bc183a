// Package gateway is the HTTP client for the university identity provider.
//
// It owns every network operation of the session and recovery lifecycle:
// login, liveness validation, profile patching, password change, password
// reset, and optional server-side revocation. The provider's HTTP contract is
// consumed here and nowhere else.
//
// Failures carry a typed [*AuthError] with the provider's message when one is
// decodable and a generic fallback otherwise. [Client.Validate] is the single
// documented fail-closed boundary: it collapses every error path to false and
// never reports a session live on ambiguity.
//
// # What this package must NOT do
//
//   - Retry login automatically (credentials are single-use-sensitive).
//   - Compare new/confirm passwords (caller precondition, re-checked server-side).
//   - Cache or persist credentials (store owns persistence).
package gateway

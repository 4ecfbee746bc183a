// Package portalauth manages the session and credential-recovery lifecycle
// for the university web portal.
//
// The portal's pages are composition and CRUD; the part with real invariants
// lives here: obtaining, persisting, validating, and expiring an
// authentication session against the remote identity provider, gating routes
// on session presence, and issuing single-use, time-bounded password-recovery
// tokens.
//
// The package is a library — it has no process entry point. Page-level code
// builds a [Portal] once at startup through [Builder.Build] and uses
// [Portal.Sessions] and [Portal.Recovery] from its handlers. All Portal
// methods are safe for concurrent use after Build.
//
// # Architecture boundaries
//
// portalauth is the public surface. Credential inspection lives in token,
// durable persistence in store, the identity-provider HTTP contract in
// gateway, and the request-time route gate in middleware. The identity
// provider itself is external: this package consumes bearer tokens, it never
// mints or verifies them cryptographically.
//
// # Failure philosophy
//
// Ambiguity never grants access. Undecodable credentials read as expired,
// failed revalidation reads as unauthenticated, and storage failures read as
// "no session" — the portal degrades to its login page, not to a crash.
package portalauth

// Package middleware exposes the request-time route gate for the portal.
//
// The gate is the cheap half of a deliberate two-layer design: it inspects
// only the presence of the mirrored credential cookie and redirects requests
// that are on the wrong side of the login boundary. It never decodes, never
// checks expiry, and never touches the network — protected pages re-validate
// authoritatively through the session controller at render time. Keeping the
// gate presence-only is what keeps route transitions free of network calls.
//
// # What this package must NOT do
//
//   - Verify credential signatures or expiry.
//   - Read the durable session store.
//   - Make per-request network calls.
package middleware

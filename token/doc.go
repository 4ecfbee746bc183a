// Package token inspects session credentials issued by the identity provider
// without verifying their signature.
//
// The portal consumes bearer tokens, it never mints them. The only local
// decisions made from a token are expiry and near-expiry, both derived from
// the self-describing claims segment. Decode failures are deliberately
// indistinguishable from expiry for callers that use [IsExpired]: a token the
// codec cannot read is treated as a token the provider would reject.
//
// # What this package must NOT do
//
//   - Verify signatures (the provider is authoritative; see gateway.Validate).
//   - Perform I/O of any kind.
//   - Accept a malformed token as live ("fail closed").
package token

// Package store persists the current session credential and profile snapshot
// in Redis and mirrors the credential into a secondary channel consumed by the
// route guard.
//
// The durable store and the mirror are two independent channels written
// without a transaction. Save writes durable-first, mirror-second; a mirror
// failure surfaces as [ErrMirrorWrite] but does not roll back the durable
// write. That window is a documented property of the design, reconciled by
// the session controller at startup.
package store

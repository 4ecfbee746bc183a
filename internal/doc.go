// Package internal holds helpers shared across portalauth that are not part
// of the public surface.
package internal

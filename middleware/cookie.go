package middleware

import (
	"net/http"
	"time"
)

// DefaultMirrorTTL is the secondary channel's lifetime.
const DefaultMirrorTTL = 24 * time.Hour

// MirrorCookie builds the secondary-channel cookie set at login. Same-site
// strict and HttpOnly: the gate only needs presence, so nothing running in a
// page ever needs to read the value.
func MirrorCookie(name, credential string, ttl time.Duration) *http.Cookie {
	if name == "" {
		name = DefaultMirrorCookie
	}
	if ttl <= 0 {
		ttl = DefaultMirrorTTL
	}

	return &http.Cookie{
		Name:     name,
		Value:    credential,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

// ExpireMirrorCookie builds the clearing counterpart set at logout.
func ExpireMirrorCookie(name string) *http.Cookie {
	if name == "" {
		name = DefaultMirrorCookie
	}

	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

package middleware

import (
	"net/http"
	"strings"
)

const (
	// DefaultMirrorCookie is the secondary-channel cookie name.
	DefaultMirrorCookie = "portal_session"

	defaultLoginPath = "/login"
	defaultHomePath  = "/dashboard"
)

// GuardConfig declares the two disjoint path classes and where each class
// redirects when the presence check fails.
type GuardConfig struct {
	// Protected prefixes require a present, non-empty mirrored credential.
	Protected []string
	// AuthOnly prefixes (login, recovery pages) require the credential to be
	// absent; authenticated users are bounced to HomePath.
	AuthOnly []string

	// LoginPath receives unauthenticated requests to protected paths.
	LoginPath string
	// HomePath receives authenticated requests to auth-only paths.
	HomePath string

	// CookieName is the mirror cookie read by the gate.
	CookieName string
}

func (c GuardConfig) withDefaults() GuardConfig {
	if c.LoginPath == "" {
		c.LoginPath = defaultLoginPath
	}
	if c.HomePath == "" {
		c.HomePath = defaultHomePath
	}
	if c.CookieName == "" {
		c.CookieName = DefaultMirrorCookie
	}
	return c
}

// Decision is the outcome of the gate for one request.
type Decision struct {
	Allow      bool
	RedirectTo string
}

// Decide classifies path against cfg using only the presence of credential.
// Unlisted paths always pass.
func Decide(cfg GuardConfig, path, credential string) Decision {
	cfg = cfg.withDefaults()
	present := credential != ""

	if matchesAny(cfg.Protected, path) && !present {
		return Decision{RedirectTo: cfg.LoginPath}
	}
	if matchesAny(cfg.AuthOnly, path) && present {
		return Decision{RedirectTo: cfg.HomePath}
	}
	return Decision{Allow: true}
}

// Guard returns net/http middleware applying Decide to every request, reading
// the mirrored credential from the configured cookie.
func Guard(cfg GuardConfig) func(http.Handler) http.Handler {
	cfg = cfg.withDefaults()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := ""
			if cookie, err := r.Cookie(cfg.CookieName); err == nil {
				credential = cookie.Value
			}

			decision := Decide(cfg, r.URL.Path, credential)
			if !decision.Allow {
				http.Redirect(w, r, decision.RedirectTo, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// matchesAny reports whether path falls under any prefix, segment-aware so
// "/admin" does not capture "/administration".
func matchesAny(prefixes []string, path string) bool {
	for _, prefix := range prefixes {
		if prefix == "" {
			continue
		}
		if prefix == "/" || path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

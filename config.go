package portalauth

import (
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/campusworks/portalauth/gateway"
	"github.com/campusworks/portalauth/store"
	"github.com/campusworks/portalauth/token"
)

// Config is the externally injected configuration tree. Zero values select
// documented defaults; Build validates the result.
type Config struct {
	Gateway  GatewayConfig
	Session  SessionConfig
	Store    StoreConfig
	Recovery RecoveryConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// GatewayConfig locates the identity provider.
type GatewayConfig struct {
	// BaseURL of the identity provider. Required.
	BaseURL string
	// Timeout for login/profile/password calls. Default 15s.
	Timeout time.Duration
	// ValidateTimeout bounds the startup revalidation round-trip. Default 5s.
	ValidateTimeout time.Duration
}

// SessionConfig tunes the controller.
type SessionConfig struct {
	// NearExpiryWindow is how early a live credential reads as stale.
	// Default 5 minutes.
	NearExpiryWindow time.Duration
	// RevokeOnLogout additionally invalidates the credential server-side on
	// logout. Off by default: the provider's tokens are stateless and age out
	// naturally, and a failed revocation must not block a local logout.
	RevokeOnLogout bool
}

// StoreConfig tunes the durable session store.
type StoreConfig struct {
	// KeyPrefix for the credential and profile keys. Default "portal:session".
	KeyPrefix string
	// TTL for both keys. Default 24h.
	TTL time.Duration
}

// RecoveryConfig tunes the recovery token lifecycle.
type RecoveryConfig struct {
	// TokenTTL is the recovery token lifetime. Default 24h.
	TokenTTL time.Duration
	// SweepInterval drives the background expiry sweeper; 0 disables it.
	// Sweeping bounds memory only — Validate enforces the TTL lazily either way.
	SweepInterval time.Duration
	// AllowedDomains are the institutional email domains accepted by
	// RequestRecovery. Default: unica.edu.pe.
	AllowedDomains []string
	// RequestRate and RequestBurst throttle recovery requests per address.
	// Defaults: 3 per hour, burst 3.
	RequestRate  rate.Limit
	RequestBurst int
}

// AuditConfig tunes the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking emitters when the buffer is
	// full; drops are counted.
	DropIfFull bool
}

// MetricsConfig enables the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the documented defaults, ready for field overrides
// before Builder.WithConfig.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Gateway: GatewayConfig{
			Timeout:         15 * time.Second,
			ValidateTimeout: 5 * time.Second,
		},
		Session: SessionConfig{
			NearExpiryWindow: token.DefaultNearExpiryWindow,
		},
		Store: StoreConfig{
			TTL: 24 * time.Hour,
		},
		Recovery: RecoveryConfig{
			TokenTTL:       24 * time.Hour,
			AllowedDomains: []string{"unica.edu.pe"},
			RequestRate:    rate.Every(20 * time.Minute),
			RequestBurst:   3,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func (c *Config) normalize() error {
	defaults := defaultConfig()

	if c.Gateway.Timeout <= 0 {
		c.Gateway.Timeout = defaults.Gateway.Timeout
	}
	if c.Gateway.ValidateTimeout <= 0 {
		c.Gateway.ValidateTimeout = defaults.Gateway.ValidateTimeout
	}
	if c.Session.NearExpiryWindow <= 0 {
		c.Session.NearExpiryWindow = defaults.Session.NearExpiryWindow
	}
	if c.Session.NearExpiryWindow > time.Hour {
		return errors.New("near-expiry window above one hour defeats expiry detection")
	}
	if c.Store.TTL <= 0 {
		c.Store.TTL = defaults.Store.TTL
	}
	if c.Recovery.TokenTTL <= 0 {
		c.Recovery.TokenTTL = defaults.Recovery.TokenTTL
	}
	if c.Recovery.SweepInterval < 0 {
		return errors.New("negative recovery sweep interval")
	}
	if len(c.Recovery.AllowedDomains) == 0 {
		c.Recovery.AllowedDomains = defaults.Recovery.AllowedDomains
	}
	if c.Recovery.RequestRate <= 0 {
		c.Recovery.RequestRate = defaults.Recovery.RequestRate
	}
	if c.Recovery.RequestBurst <= 0 {
		c.Recovery.RequestBurst = defaults.Recovery.RequestBurst
	}
	if c.Audit.BufferSize <= 0 {
		c.Audit.BufferSize = defaults.Audit.BufferSize
	}

	return nil
}

func (c Config) gatewayConfig() gateway.Config {
	return gateway.Config{
		BaseURL:         c.Gateway.BaseURL,
		Timeout:         c.Gateway.Timeout,
		ValidateTimeout: c.Gateway.ValidateTimeout,
	}
}

func (c Config) storeConfig() store.Config {
	return store.Config{
		KeyPrefix: c.Store.KeyPrefix,
		TTL:       c.Store.TTL,
	}
}

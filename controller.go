package portalauth

import (
	"context"
	"sync"
	"time"

	"github.com/campusworks/portalauth/gateway"
	"github.com/campusworks/portalauth/token"
)

// Gateway is the slice of the identity-provider client the controller needs.
// *gateway.Client satisfies it; tests substitute fakes.
type Gateway interface {
	Login(ctx context.Context, email, password string) (*gateway.Session, error)
	Validate(ctx context.Context, credential string) bool
	UpdateProfile(ctx context.Context, credential string, patch gateway.ProfilePatch) (*gateway.ProfileUpdateResult, error)
	ChangePassword(ctx context.Context, credential, oldPassword, newPassword, confirmPassword string) error
	ResetPassword(ctx context.Context, email, newPassword string) error
	Revoke(ctx context.Context, credential string) error
}

type sessionStorage interface {
	Save(ctx context.Context, credential string, profile gateway.Profile) error
	Load(ctx context.Context) (string, *gateway.Profile, error)
	Clear(ctx context.Context) error
}

// SessionController owns the in-memory current session and drives its
// lifecycle: Uninitialized → Restoring → {Active | Absent}, Active → Absent
// on logout, expiry, or revalidation failure.
//
// A single mutex serializes every operation. Interleavings like a logout
// racing an in-flight login therefore resolve to strict last-write-wins
// instead of depending on the UI to disable concurrent triggers.
type SessionController struct {
	mu      sync.Mutex
	state   SessionState
	session *Session

	gateway Gateway
	storage sessionStorage
	window  time.Duration
	revoke  bool

	audit   *auditDispatcher
	metrics *Metrics
	now     func() time.Time
}

func newSessionController(gw Gateway, storage sessionStorage, cfg SessionConfig, audit *auditDispatcher, metrics *Metrics) *SessionController {
	window := cfg.NearExpiryWindow
	if window <= 0 {
		window = token.DefaultNearExpiryWindow
	}

	return &SessionController{
		state:   StateUninitialized,
		gateway: gw,
		storage: storage,
		window:  window,
		revoke:  cfg.RevokeOnLogout,
		audit:   audit,
		metrics: metrics,
		now:     time.Now,
	}
}

// State reports the controller's lifecycle state.
func (c *SessionController) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns a copy of the active session, if any.
func (c *SessionController) Current() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Restore reconciles in-memory state with the durable store at startup.
//
// The ordering is deliberate: a locally expired credential resolves to Absent
// without a network round-trip, and a store that holds no complete session is
// Absent without even decoding. Only a present, locally live credential earns
// the revalidation call — which fails closed.
func (c *SessionController) Restore(ctx context.Context) SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateRestoring
	c.session = nil

	credential, profile, err := c.storage.Load(ctx)
	if err != nil {
		// Persistence failure reads as "no session"; the portal must reach
		// its unauthenticated state rather than crash.
		c.emit(auditEventRestore, "", false, err)
		return c.becomeAbsent()
	}
	if credential == "" || profile == nil {
		c.emit(auditEventRestore, "", true, nil)
		return c.becomeAbsent()
	}

	if token.IsExpired(credential, c.now()) {
		c.metrics.Inc(MetricRestoreLocalExpiry)
		c.emit(auditEventExpiry, profile.Email, true, nil)
		c.clearStorage(ctx)
		return c.becomeAbsent()
	}

	start := c.now()
	live := c.gateway.Validate(ctx, credential)
	c.metrics.Observe(MetricValidateLatency, c.now().Sub(start))

	if !live {
		c.metrics.Inc(MetricValidateRejected)
		c.emit(auditEventRestore, profile.Email, false, nil)
		c.clearStorage(ctx)
		return c.becomeAbsent()
	}

	c.session = &Session{Credential: credential, Profile: *profile}
	c.state = StateActive
	c.metrics.Inc(MetricRestoreActive)
	c.emit(auditEventRestore, profile.Email, true, nil)
	return c.state
}

// Login authenticates against the provider. On success the in-memory session
// is set before persistence is attempted, so the caller's transition to the
// authenticated state is never held hostage to storage latency; a failed save
// is audited and counted but does not undo the login. On failure the provider
// error propagates unchanged and no state is touched.
func (c *SessionController) Login(ctx context.Context, email, password string) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.gateway.Login(ctx, email, password)
	if err != nil {
		c.metrics.Inc(MetricLoginFailure)
		c.emit(auditEventLogin, email, false, err)
		return Session{}, err
	}

	c.session = &Session{Credential: result.Credential, Profile: result.Profile}
	c.state = StateActive
	c.metrics.Inc(MetricLoginSuccess)
	c.emit(auditEventLogin, result.Profile.Email, true, nil)

	if err := c.storage.Save(ctx, result.Credential, result.Profile); err != nil {
		c.metrics.Inc(MetricStoreWriteFailure)
		c.emit(auditEventStoreWrite, result.Profile.Email, false, err)
	}

	return *c.session, nil
}

// Logout clears the session locally and removes both persisted channels.
// Server-side revocation only happens when configured; its failure is audited
// but never blocks the local logout.
func (c *SessionController) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var credential, email string
	if c.session != nil {
		credential = c.session.Credential
		email = c.session.Profile.Email
	}

	c.session = nil
	c.state = StateAbsent
	c.metrics.Inc(MetricLogout)

	var clearErr error
	if err := c.storage.Clear(ctx); err != nil {
		c.metrics.Inc(MetricStoreWriteFailure)
		clearErr = err
	}

	if c.revoke && credential != "" {
		if err := c.gateway.Revoke(ctx, credential); err != nil {
			c.emit(auditEventLogout, email, false, err)
			return clearErr
		}
	}

	c.emit(auditEventLogout, email, clearErr == nil, clearErr)
	return clearErr
}

// UpdateProfile sends a partial update and merges back only the fields
// present in both the request patch and the provider's accepted response, so
// a stale or partial response cannot clobber unrelated fields. Role never
// changes within a session.
func (c *SessionController) UpdateProfile(ctx context.Context, patch ProfilePatch) (Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive || c.session == nil {
		return Profile{}, ErrNotAuthenticated
	}
	if patch.IsZero() {
		return c.session.Profile, nil
	}

	result, err := c.gateway.UpdateProfile(ctx, c.session.Credential, patch)
	if err != nil {
		c.emit(auditEventProfileUpdate, c.session.Profile.Email, false, err)
		return Profile{}, err
	}

	merged := c.session.Profile
	applyAccepted(&merged, result.Accepted)
	c.session.Profile = merged
	c.metrics.Inc(MetricProfileUpdate)
	c.emit(auditEventProfileUpdate, merged.Email, true, nil)

	if err := c.storage.Save(ctx, c.session.Credential, merged); err != nil {
		c.metrics.Inc(MetricStoreWriteFailure)
		c.emit(auditEventStoreWrite, merged.Email, false, err)
	}

	return merged, nil
}

// ChangePassword verifies the confirmation locally before any network call;
// the provider re-validates independently.
func (c *SessionController) ChangePassword(ctx context.Context, oldPassword, newPassword, confirmPassword string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if newPassword != confirmPassword {
		c.metrics.Inc(MetricPasswordChangeMismatch)
		return ErrPasswordMismatch
	}
	if c.state != StateActive || c.session == nil {
		return ErrNotAuthenticated
	}

	if err := c.gateway.ChangePassword(ctx, c.session.Credential, oldPassword, newPassword, confirmPassword); err != nil {
		c.emit(auditEventPasswordChange, c.session.Profile.Email, false, err)
		return err
	}

	c.metrics.Inc(MetricPasswordChangeSuccess)
	c.emit(auditEventPasswordChange, c.session.Profile.Email, true, nil)
	return nil
}

// NearExpiry reports whether the active credential falls inside the
// refresh-eligibility window at now. Absent sessions are never near expiry —
// there is nothing to refresh.
func (c *SessionController) NearExpiry(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return false
	}
	return token.IsNearExpiry(c.session.Credential, now, c.window)
}

func (c *SessionController) becomeAbsent() SessionState {
	c.session = nil
	c.state = StateAbsent
	c.metrics.Inc(MetricRestoreAbsent)
	return c.state
}

func (c *SessionController) clearStorage(ctx context.Context) {
	if err := c.storage.Clear(ctx); err != nil {
		c.metrics.Inc(MetricStoreWriteFailure)
		c.emit(auditEventStoreWrite, "", false, err)
	}
}

func (c *SessionController) emit(eventType, subject string, success bool, cause error) {
	if c.audit == nil {
		return
	}
	event := AuditEvent{
		Timestamp: c.now(),
		EventType: eventType,
		Subject:   subject,
		Success:   success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	c.audit.Emit(context.Background(), event)
}

func applyAccepted(profile *Profile, accepted ProfilePatch) {
	if accepted.Name != nil {
		profile.Name = *accepted.Name
	}
	if accepted.Email != nil {
		profile.Email = *accepted.Email
	}
	if accepted.Phone != nil {
		profile.Phone = *accepted.Phone
	}
	if accepted.Address != nil {
		profile.Address = *accepted.Address
	}
}

package portalauth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/campusworks/portalauth/internal"
)

// limiterPruneThreshold bounds the per-address limiter map; entries idle for
// over an hour are dropped once the map grows past it.
const limiterPruneThreshold = 512

type resetGateway interface {
	ResetPassword(ctx context.Context, email, newPassword string) error
}

type emailLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RecoveryService orchestrates the recovery flow: request → token issued and
// delivered → token validated → remote reset → token consumed.
type RecoveryService struct {
	tokens   *RecoveryTokenStore
	gateway  resetGateway
	notifier Notifier
	domains  []string

	limiterMu sync.Mutex
	limiters  map[string]*emailLimiter
	reqRate   rate.Limit
	reqBurst  int

	audit   *auditDispatcher
	metrics *Metrics
	now     func() time.Time
}

func newRecoveryService(tokens *RecoveryTokenStore, gw resetGateway, notifier Notifier, cfg RecoveryConfig, audit *auditDispatcher, metrics *Metrics) *RecoveryService {
	if notifier == nil {
		notifier = NoOpNotifier{}
	}

	return &RecoveryService{
		tokens:   tokens,
		gateway:  gw,
		notifier: notifier,
		domains:  cfg.AllowedDomains,
		limiters: make(map[string]*emailLimiter),
		reqRate:  cfg.RequestRate,
		reqBurst: cfg.RequestBurst,
		audit:    audit,
		metrics:  metrics,
		now:      time.Now,
	}
}

// RequestRecovery issues and delivers a recovery token for email.
//
// Malformed or out-of-domain addresses fail fast with ErrEmailInvalid, before
// any token exists. For well-formed addresses the call reports success
// whether or not the account exists server-side — the response must not be an
// account-enumeration oracle.
func (s *RecoveryService) RequestRecovery(ctx context.Context, email string) error {
	email = internal.NormalizeEmail(email)

	if !internal.ValidInstitutionalEmail(email, s.domains) {
		return ErrEmailInvalid
	}
	if !s.allow(email) {
		s.metrics.Inc(MetricRecoveryRateLimited)
		s.emit(auditEventRecoveryRequest, email, false, ErrRecoveryRateLimited)
		return ErrRecoveryRateLimited
	}

	recoveryToken := s.tokens.Issue(email)

	if err := s.notifier.SendRecoveryToken(ctx, email, recoveryToken); err != nil {
		s.emit(auditEventRecoveryRequest, email, false, err)
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}

	s.metrics.Inc(MetricRecoveryRequest)
	s.emit(auditEventRecoveryRequest, email, true, nil)
	return nil
}

// ValidateToken classifies a recovery token without consuming it.
func (s *RecoveryService) ValidateToken(recoveryToken string) TokenValidation {
	validation := s.tokens.Validate(recoveryToken)

	switch validation.Reason {
	case ReasonAlreadyUsed:
		s.metrics.Inc(MetricRecoveryTokenReplay)
		s.emit(auditEventRecoveryReplay, "", false, nil)
	case ReasonExpired:
		s.metrics.Inc(MetricRecoveryTokenExpired)
	}

	return validation
}

// ResetPassword completes a recovery.
//
// Order matters end to end: the confirmation mismatch is rejected before the
// token is even looked at (a typo must not burn the link), and the token is
// consumed only after the remote reset reports success, so a provider failure
// leaves it usable for a retry.
func (s *RecoveryService) ResetPassword(ctx context.Context, recoveryToken, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}

	validation := s.ValidateToken(recoveryToken)
	if !validation.Valid {
		s.metrics.Inc(MetricRecoveryResetFailure)
		return fmt.Errorf("%w: %s", ErrRecoveryTokenInvalid, validation.Reason)
	}

	if err := s.gateway.ResetPassword(ctx, validation.Email, newPassword); err != nil {
		s.metrics.Inc(MetricRecoveryResetFailure)
		s.emit(auditEventRecoveryReset, validation.Email, false, err)
		return err
	}

	s.tokens.MarkUsed(recoveryToken)
	s.metrics.Inc(MetricRecoveryResetSuccess)
	s.emit(auditEventRecoveryReset, validation.Email, true, nil)
	return nil
}

func (s *RecoveryService) allow(email string) bool {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()

	now := s.now()
	if len(s.limiters) > limiterPruneThreshold {
		for addr, entry := range s.limiters {
			if now.Sub(entry.lastSeen) > time.Hour {
				delete(s.limiters, addr)
			}
		}
	}

	entry, ok := s.limiters[email]
	if !ok {
		entry = &emailLimiter{limiter: rate.NewLimiter(s.reqRate, s.reqBurst)}
		s.limiters[email] = entry
	}
	entry.lastSeen = now

	return entry.limiter.Allow()
}

func (s *RecoveryService) emit(eventType, subject string, success bool, cause error) {
	if s.audit == nil {
		return
	}
	event := AuditEvent{
		Timestamp: s.now(),
		EventType: eventType,
		Subject:   subject,
		Success:   success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	s.audit.Emit(context.Background(), event)
}

package portalauth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type recoveryRecord struct {
	email     string
	createdAt time.Time
	used      bool
}

// RecoveryTokenStore holds single-use, time-bounded password recovery tokens.
// It is an explicit, constructor-injected object — never package-level state —
// and a mutex guards every access because portal handlers run in parallel.
//
// Invalidity is monotonic: a token that has reported used or expired can never
// validate again. Expiry is enforced lazily by Validate; the sweeper only
// bounds memory.
type RecoveryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*recoveryRecord
	ttl    time.Duration
	now    func() time.Time

	sweepStop chan struct{}
	sweepWG   sync.WaitGroup
	stopOnce  sync.Once
}

// NewRecoveryTokenStore builds a store whose tokens live for ttl.
func NewRecoveryTokenStore(ttl time.Duration) *RecoveryTokenStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RecoveryTokenStore{
		tokens: make(map[string]*recoveryRecord),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a fresh token for email. Outstanding tokens for the same
// address stay valid: a repeated recovery request must not invalidate an
// earlier unexpired link.
func (s *RecoveryTokenStore) Issue(email string) string {
	token := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token] = &recoveryRecord{
		email:     email,
		createdAt: s.now(),
	}
	return token
}

// Validate classifies the token. Reason ordering is deliberate: a token that
// is both used and past its TTL reports "already used", because that tells
// the user their reset already happened, while "expired" would send them into
// a pointless new request. Expired entries are deleted on sight.
func (s *RecoveryTokenStore) Validate(token string) TokenValidation {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tokens[token]
	if !ok {
		return TokenValidation{Reason: ReasonNotFound}
	}
	if record.used {
		return TokenValidation{Reason: ReasonAlreadyUsed}
	}
	if s.now().Sub(record.createdAt) > s.ttl {
		delete(s.tokens, token)
		return TokenValidation{Reason: ReasonExpired}
	}

	return TokenValidation{
		Valid:     true,
		Email:     record.email,
		CreatedAt: record.createdAt,
	}
}

// MarkUsed consumes the token. It returns false harmlessly when the token is
// absent or already consumed, so a second concurrent reset degrades to a
// no-op instead of a fault.
func (s *RecoveryTokenStore) MarkUsed(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tokens[token]
	if !ok || record.used {
		return false
	}
	record.used = true
	return true
}

// SweepExpired drops every entry older than the TTL, used or not, and
// returns how many were removed. Correctness does not depend on it; memory
// growth does.
func (s *RecoveryTokenStore) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for token, record := range s.tokens {
		if now.Sub(record.createdAt) > s.ttl {
			delete(s.tokens, token)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries, used included.
func (s *RecoveryTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// StartSweeper runs SweepExpired on the given interval until Stop.
func (s *RecoveryTokenStore) StartSweeper(interval time.Duration) {
	if interval <= 0 || s.sweepStop != nil {
		return
	}
	s.sweepStop = make(chan struct{})

	s.sweepWG.Add(1)
	go func() {
		defer s.sweepWG.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.SweepExpired()
			case <-s.sweepStop:
				return
			}
		}
	}()
}

// Stop halts the background sweeper, if one is running.
func (s *RecoveryTokenStore) Stop() {
	if s.sweepStop == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.sweepStop)
		s.sweepWG.Wait()
	})
}

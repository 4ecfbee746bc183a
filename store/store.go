package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campusworks/portalauth/gateway"
)

const (
	defaultKeyPrefix = "portal:session"

	// defaultTTL matches the secondary channel's 24-hour lifetime so neither
	// channel can outlive the other by more than the consistency window.
	defaultTTL = 24 * time.Hour
)

var (
	// ErrUnavailable wraps any Redis failure. Callers treat it as "session
	// absent", never as fatal.
	ErrUnavailable = errors.New("session store unavailable")
	// ErrMirrorWrite reports a failed secondary-channel write after a
	// successful durable write.
	ErrMirrorWrite = errors.New("session mirror write failed")
	// ErrCorruptProfile reports an unreadable stored profile snapshot.
	ErrCorruptProfile = errors.New("stored profile corrupt")
)

// Mirror is the secondary credential channel the route guard reads. The
// production mirror is a browser cookie managed by the middleware package;
// MemoryMirror serves tests and non-HTTP consumers.
type Mirror interface {
	Set(credential string) error
	Clear() error
	Get() (string, bool)
}

// Config holds store tuning. Zero values select the defaults.
type Config struct {
	KeyPrefix string
	TTL       time.Duration
}

// Store is the durable single-slot session store.
type Store struct {
	redis  *redis.Client
	mirror Mirror
	prefix string
	ttl    time.Duration
}

// New builds a Store over the given Redis client and mirror channel.
func New(redisClient *redis.Client, mirror Mirror, cfg Config) *Store {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if mirror == nil {
		mirror = NewMemoryMirror()
	}

	return &Store{
		redis:  redisClient,
		mirror: mirror,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
	}
}

// Mirror exposes the secondary channel, primarily so the route guard and
// tests can read what Save wrote.
func (s *Store) Mirror() Mirror {
	return s.mirror
}

func (s *Store) credentialKey() string { return s.prefix + ":credential" }
func (s *Store) profileKey() string    { return s.prefix + ":profile" }

// Save writes the credential and profile snapshot to the durable store, then
// mirrors the credential. The durable write is authoritative: when only the
// mirror write fails the durable state stays and the error wraps
// [ErrMirrorWrite].
func (s *Store) Save(ctx context.Context, credential string, profile gateway.Profile) error {
	encoded, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptProfile, err)
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, s.credentialKey(), credential, s.ttl)
	pipe.Set(ctx, s.profileKey(), encoded, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := s.mirror.Set(credential); err != nil {
		return fmt.Errorf("%w: %v", ErrMirrorWrite, err)
	}
	return nil
}

// Load returns the stored credential and profile, or empty values when either
// half is absent. A session with only one half present was never fully
// established and reads as absent.
func (s *Store) Load(ctx context.Context) (string, *gateway.Profile, error) {
	credential, err := s.redis.Get(ctx, s.credentialKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	encoded, err := s.redis.Get(ctx, s.profileKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var profile gateway.Profile
	if err := json.Unmarshal(encoded, &profile); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrCorruptProfile, err)
	}
	if credential == "" {
		return "", nil, nil
	}

	return credential, &profile, nil
}

// Clear removes both durable keys and the mirror entry. Both removals are
// attempted even when the first fails.
func (s *Store) Clear(ctx context.Context) error {
	var durableErr error
	if err := s.redis.Del(ctx, s.credentialKey(), s.profileKey()).Err(); err != nil {
		durableErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := s.mirror.Clear(); err != nil {
		mirrorErr := fmt.Errorf("%w: %v", ErrMirrorWrite, err)
		if durableErr != nil {
			return errors.Join(durableErr, mirrorErr)
		}
		return mirrorErr
	}
	return durableErr
}

package portalauth

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/campusworks/portalauth/gateway"
	"github.com/campusworks/portalauth/store"
)

// Builder assembles a Portal. Construction is allocation-only until Build.
type Builder struct {
	config    Config
	redis     *redis.Client
	mirror    store.Mirror
	gateway   Gateway
	notifier  Notifier
	auditSink AuditSink

	built bool
}

// New returns a Builder preloaded with the documented defaults.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the whole configuration tree.
func (b *Builder) WithConfig(cfg Config) *Builder {
	cfg.Recovery.AllowedDomains = append([]string(nil), cfg.Recovery.AllowedDomains...)
	b.config = cfg
	return b
}

// WithRedis supplies the client backing the durable session store. Required.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithMirror overrides the secondary credential channel. Defaults to an
// in-process mirror; HTTP deployments pair the store with the middleware
// cookie helpers instead.
func (b *Builder) WithMirror(mirror store.Mirror) *Builder {
	b.mirror = mirror
	return b
}

// WithGateway overrides the identity-provider client, mainly for tests. When
// unset, Build constructs one from Config.Gateway.
func (b *Builder) WithGateway(gw Gateway) *Builder {
	b.gateway = gw
	return b
}

// WithNotifier supplies the recovery delivery channel. Defaults to a no-op.
func (b *Builder) WithNotifier(notifier Notifier) *Builder {
	b.notifier = notifier
	return b
}

// WithAuditSink supplies the audit destination. Defaults to a no-op.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates the configuration and wires the Portal. A Builder is
// single-use.
func (b *Builder) Build() (*Portal, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if err := b.config.normalize(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	gw := b.gateway
	if gw == nil {
		client, err := gateway.NewClient(b.config.gatewayConfig())
		if err != nil {
			return nil, err
		}
		gw = client
	}

	metrics := NewMetrics(b.config.Metrics)
	audit := newAuditDispatcher(b.config.Audit, b.auditSink)
	sessions := store.New(b.redis, b.mirror, b.config.storeConfig())

	tokens := NewRecoveryTokenStore(b.config.Recovery.TokenTTL)
	if b.config.Recovery.SweepInterval > 0 {
		tokens.StartSweeper(b.config.Recovery.SweepInterval)
	}

	portal := &Portal{
		Sessions: newSessionController(gw, sessions, b.config.Session, audit, metrics),
		Recovery: newRecoveryService(tokens, gw, b.notifier, b.config.Recovery, audit, metrics),
		Tokens:   tokens,
		Store:    sessions,
		audit:    audit,
		metrics:  metrics,
	}

	b.built = true
	return portal, nil
}

// Portal is the assembled library surface: the session controller, the
// recovery service, and their shared infrastructure.
type Portal struct {
	Sessions *SessionController
	Recovery *RecoveryService
	Tokens   *RecoveryTokenStore
	Store    *store.Store

	audit   *auditDispatcher
	metrics *Metrics
}

// Close stops the recovery sweeper and drains the audit dispatcher.
func (p *Portal) Close() {
	if p == nil {
		return
	}
	if p.Tokens != nil {
		p.Tokens.Stop()
	}
	if p.audit != nil {
		p.audit.Close()
	}
}

// MetricsSnapshot copies the current counters for exporters.
func (p *Portal) MetricsSnapshot() MetricsSnapshot {
	if p == nil || p.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return p.metrics.Snapshot()
}

// AuditDropped reports how many audit events the dispatcher discarded.
func (p *Portal) AuditDropped() uint64 {
	if p == nil || p.audit == nil {
		return 0
	}
	return p.audit.Dropped()
}

// Package ratelimit admits or rejects requests per client address using token buckets.
package ratelimit

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Overland-East-Bay/ride-api/internal/platform/clock"
	outclock "github.com/Overland-East-Bay/ride-api/internal/ports/out/clock"
)

const (
	namespace = "ride_api"
	subsystem = "ratelimit"
)

// Config sets the bucket shape shared by every client address.
type Config struct {
	// RefillPerSecond is the steady-state number of admissions per second.
	RefillPerSecond float64
	// Burst is the bucket capacity.
	Burst int
	// PruneInterval is how often Run drops full buckets. Zero disables pruning.
	PruneInterval time.Duration
}

func (c Config) Validate() error {
	if c.RefillPerSecond <= 0 {
		return errors.New("rate limit refill rate must be positive")
	}
	if c.Burst < 1 {
		return errors.New("rate limit burst must be at least 1")
	}
	if c.PruneInterval < 0 {
		return errors.New("rate limit prune interval must not be negative")
	}
	return nil
}

// bucket is one client's token bucket. mu covers reading the clock and taking
// the token, so a decision never uses an instant older than one already seen.
type bucket struct {
	mu   sync.Mutex
	lim  *rate.Limiter
	last time.Time
}

// take refills the bucket to now and takes one token if available.
func (b *bucket) take(clk outclock.Clock) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.observe(clk)
	return b.lim.AllowN(now, 1)
}

// full reports whether the bucket has refilled to capacity.
func (b *bucket) full(clk outclock.Clock) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.observe(clk)
	return b.lim.TokensAt(now) >= float64(b.lim.Burst())
}

// observe reads the clock, never returning an instant before the last one.
// Callers hold b.mu.
func (b *bucket) observe(clk outclock.Clock) time.Time {
	now := clk.Now()
	if now.Before(b.last) {
		now = b.last
	}
	b.last = now
	return now
}

// Limiter keeps one token bucket per client address.
//
// Buckets are created full on first use. Refill and take happen under the
// bucket's own mutex, so two concurrent requests from one address never
// consume the same token or the same elapsed interval.
type Limiter struct {
	cfg    Config
	clock  outclock.Clock
	logger *zap.Logger

	// mu guards the map only. Allow holds the read lock while taking a token so
	// that Prune cannot drop a bucket mid-decision.
	mu      sync.RWMutex
	buckets map[string]*bucket

	admitted prometheus.Counter
	rejected prometheus.Counter
	live     prometheus.Gauge
}

// Option configures a Limiter.
type Option func(*Limiter)

func WithClock(c outclock.Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

func WithLogger(log *zap.Logger) Option {
	return func(l *Limiter) { l.logger = log }
}

func New(cfg Config, opts ...Option) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := &Limiter{
		cfg:     cfg,
		clock:   clock.NewSystemClock(),
		logger:  zap.NewNop(),
		buckets: make(map[string]*bucket),
		admitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "admitted_total",
			Help:      "Number of requests admitted by the per-address rate limiter",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rejected_total",
			Help:      "Number of requests rejected by the per-address rate limiter",
		}),
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "buckets",
			Help:      "Number of client addresses currently holding a token bucket",
		}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// PrometheusCollectors returns the limiter's metrics.
func (l *Limiter) PrometheusCollectors() []prometheus.Collector {
	return []prometheus.Collector{l.admitted, l.rejected, l.live}
}

// Allow reports whether a request from addr may proceed now, taking a token if so.
func (l *Limiter) Allow(addr string) bool {
	l.mu.RLock()
	b, ok := l.buckets[addr]
	if ok {
		allowed := b.take(l.clock)
		l.mu.RUnlock()
		return l.record(allowed)
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok = l.buckets[addr]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(l.cfg.RefillPerSecond), l.cfg.Burst)}
		l.buckets[addr] = b
		l.live.Set(float64(len(l.buckets)))
	}
	return l.record(b.take(l.clock))
}

func (l *Limiter) record(allowed bool) bool {
	if allowed {
		l.admitted.Inc()
	} else {
		l.rejected.Inc()
	}
	return allowed
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}

// Prune deletes buckets that have refilled to capacity. A full bucket behaves
// exactly like a freshly created one, so pruning never changes a decision.
func (l *Limiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := len(l.buckets)
	maps.DeleteFunc(l.buckets, func(_ string, b *bucket) bool {
		return b.full(l.clock)
	})
	after := len(l.buckets)
	l.live.Set(float64(after))

	if after < before {
		l.logger.Debug("pruned rate limit buckets",
			zap.Int("buckets_after_prune", after),
			zap.Int("buckets_pruned", before-after),
		)
	}
	return before - after
}

// Run prunes on cfg.PruneInterval until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	if l.cfg.PruneInterval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(l.cfg.PruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Prune()
		}
	}
}

// Package ratelimit guards a quota-limited upstream API with a single
// process-wide scheduler: one task in flight at a time, admitted in FIFO order,
// with a minimum spacing between the start of successive tasks.
package ratelimit

import (
	"bytes"
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/Belphemur/AniBridge/internal/cache"
	"github.com/Belphemur/AniBridge/internal/metrics"
)

const (
	// DefaultMinInterval is the spacing AniDB tolerates between HTTP API requests.
	DefaultMinInterval = 2250 * time.Millisecond
	// DefaultWarmUp is applied once before the first task outside production.
	DefaultWarmUp = 2000 * time.Millisecond

	// leasePoll is the retry delay for a lease that should already have expired.
	leasePoll = 10 * time.Millisecond
)

// Config configures a Limiter.
type Config struct {
	// Name labels metrics and namespaces the ledger key. Defaults to "anidb".
	Name string

	// MinInterval is the minimum time between the start of two tasks.
	// Zero means DefaultMinInterval.
	MinInterval time.Duration

	// WarmUp delays the very first task when Production is false. Restarting a
	// development process loses the limiter state, so without it a quick
	// restart can fire requests back to back and get the client banned.
	WarmUp time.Duration

	Production bool

	// Ledger optionally holds a dispatch lease so spacing survives restarts
	// and is shared with every process using the same backend. Only a shared
	// backend such as redis adds anything over the in-process spacing.
	Ledger cache.Cache

	Logger zerolog.Logger
}

// Limiter schedules tasks against one external quota.
type Limiter struct {
	name        string
	minInterval time.Duration
	warmUp      time.Duration
	ledger      cache.Cache
	ledgerKey   string
	logger      zerolog.Logger

	// slot admits one task at a time; semaphore.Weighted serves waiters in FIFO order.
	slot *semaphore.Weighted

	// guarded by slot
	lastDispatch time.Time
	warmedUp     bool

	mu       sync.Mutex
	inFlight int
}

// New creates a Limiter. A process should create exactly one per upstream
// quota and share it with every caller of that upstream.
func New(cfg Config) *Limiter {
	name := cfg.Name
	if name == "" {
		name = "anidb"
	}
	minInterval := cfg.MinInterval
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	warmUp := cfg.WarmUp
	if cfg.Production || warmUp < 0 {
		warmUp = 0
	}

	return &Limiter{
		name:        name,
		minInterval: minInterval,
		warmUp:      warmUp,
		ledger:      cfg.Ledger,
		ledgerKey:   "ratelimit:" + name + ":last_dispatch",
		logger:      cfg.Logger.With().Str("limiter", name).Logger(),
		slot:        semaphore.NewWeighted(1),
		warmedUp:    warmUp == 0,
	}
}

// MinInterval returns the enforced spacing between task starts.
func (l *Limiter) MinInterval() time.Duration {
	return l.minInterval
}

// InFlight returns the number of tasks currently executing (0 or 1).
func (l *Limiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight
}

// Schedule waits for the limiter to admit the caller, then runs task and
// returns its error. If ctx ends while the caller is still queued, task is
// not run and the context error is returned. Once started, task receives ctx
// unchanged; the limiter never interrupts it.
func (l *Limiter) Schedule(ctx context.Context, task func(ctx context.Context) error) error {
	queuedAt := time.Now()
	depth := metrics.RateLimitQueueDepth.WithLabelValues(l.name)
	depth.Inc()

	if err := l.slot.Acquire(ctx, 1); err != nil {
		depth.Dec()
		return err
	}
	defer l.slot.Release(1)
	depth.Dec()

	dispatchedAt, err := l.waitForTurn(ctx)
	if err != nil {
		return err
	}

	waited := dispatchedAt.Sub(queuedAt)
	metrics.RateLimitWaitSeconds.WithLabelValues(l.name).Observe(waited.Seconds())
	metrics.RateLimitDispatchTotal.WithLabelValues(l.name).Inc()
	l.logger.Debug().Dur("waited", waited).Msg("Dispatching rate-limited task")

	l.setInFlight(1)
	defer l.setInFlight(-1)

	return task(withDispatchTime(ctx, dispatchedAt))
}

// Do is Schedule for tasks that produce a value.
func Do[T any](ctx context.Context, l *Limiter, task func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := l.Schedule(ctx, func(ctx context.Context) error {
		var taskErr error
		result, taskErr = task(ctx)
		return taskErr
	})
	return result, err
}

// waitForTurn must be called while holding the slot. It sleeps through the
// warm-up and the remaining spacing, then reserves and returns the dispatch time.
func (l *Limiter) waitForTurn(ctx context.Context) (time.Time, error) {
	if !l.warmedUp {
		l.logger.Info().Dur("warm_up", l.warmUp).Msg("Delaying first request outside production")
		if err := sleepWithContext(ctx, l.warmUp); err != nil {
			return time.Time{}, err
		}
		l.warmedUp = true
	}

	if !l.lastDispatch.IsZero() {
		if err := sleepWithContext(ctx, l.minInterval-time.Since(l.lastDispatch)); err != nil {
			return time.Time{}, err
		}
	}

	now, err := l.reserve(ctx)
	if err != nil {
		return time.Time{}, err
	}
	l.lastDispatch = now
	return now, nil
}

// reserve takes the dispatch lease from the ledger, when one is configured.
// The lease holds the dispatch time and expires after minInterval, so no two
// limiters sharing the ledger can dispatch within minInterval of each other.
// A lease that does not go away is waited on for at most minInterval; after
// that, like an unreadable or unreachable ledger, it is ignored.
func (l *Limiter) reserve(ctx context.Context) (time.Time, error) {
	if l.ledger == nil {
		return time.Now(), nil
	}

	var (
		seen      []byte
		seenSince time.Time
	)
	for {
		now := time.Now()
		ok, err := l.ledger.SetIfAbsent(l.ledgerKey, []byte(strconv.FormatInt(now.UnixNano(), 10)), l.minInterval)
		if err != nil {
			l.logger.Warn().Err(err).Msg("Dispatch ledger unavailable, spacing is enforced in-process only")
			return time.Now(), nil
		}
		if ok {
			return now, nil
		}

		raw, found := l.ledger.Get(l.ledgerKey)
		if !found {
			// expired between the two calls
			continue
		}
		held, err := parseLedger(raw)
		if err != nil {
			l.logger.Warn().Err(err).Str("value", string(raw)).Msg("Ignoring unreadable dispatch ledger entry")
			return time.Now(), nil
		}

		if !bytes.Equal(raw, seen) {
			seen, seenSince = raw, time.Now()
		}
		budget := l.minInterval - time.Since(seenSince)
		if budget <= 0 {
			l.logger.Warn().Time("held_at", held).Msg("Dispatch lease outlived its interval, ignoring it")
			return time.Now(), nil
		}

		// A holder stamped in the future (clock skew) is bounded by budget.
		wait := min(l.minInterval-time.Since(held), budget)
		if wait < leasePoll {
			wait = leasePoll
		}
		if err := sleepWithContext(ctx, wait); err != nil {
			return time.Time{}, err
		}
	}
}

func parseLedger(raw []byte) (time.Time, error) {
	nanos, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, nanos), nil
}

func (l *Limiter) setInFlight(delta int) {
	l.mu.Lock()
	l.inFlight += delta
	l.mu.Unlock()
}

// sleepWithContext blocks for d, returning early if the context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type dispatchTimeKey struct{}

func withDispatchTime(ctx context.Context, at time.Time) context.Context {
	return context.WithValue(ctx, dispatchTimeKey{}, at)
}

// DispatchedAt returns the time the limiter admitted the task owning ctx.
func DispatchedAt(ctx context.Context) (time.Time, bool) {
	at, ok := ctx.Value(dispatchTimeKey{}).(time.Time)
	return at, ok
}

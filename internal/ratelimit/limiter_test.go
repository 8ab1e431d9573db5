package ratelimit

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Belphemur/AniBridge/internal/cache"
)

// runConcurrent schedules n tasks at once and returns their dispatch times in
// dispatch order, plus the highest number of tasks observed running together.
func runConcurrent(t *testing.T, l *Limiter, n int, work time.Duration) ([]time.Time, int32) {
	t.Helper()

	var (
		mu          sync.Mutex
		dispatches  []time.Time
		running     atomic.Int32
		maxParallel atomic.Int32
		wg          sync.WaitGroup
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Schedule(context.Background(), func(ctx context.Context) error {
				current := running.Add(1)
				defer running.Add(-1)
				for {
					prev := maxParallel.Load()
					if current <= prev || maxParallel.CompareAndSwap(prev, current) {
						break
					}
				}

				at, ok := DispatchedAt(ctx)
				if !ok {
					t.Error("Expected dispatch time in task context")
				}
				mu.Lock()
				dispatches = append(dispatches, at)
				mu.Unlock()

				time.Sleep(work)
				return nil
			})
			if err != nil {
				t.Errorf("Schedule: %v", err)
			}
		}()
	}
	wg.Wait()

	return dispatches, maxParallel.Load()
}

func assertSpacing(t *testing.T, dispatches []time.Time, min time.Duration) {
	t.Helper()
	for i := 1; i < len(dispatches); i++ {
		if gap := dispatches[i].Sub(dispatches[i-1]); gap < min {
			t.Errorf("dispatch %d started %v after the previous one, want >= %v", i, gap, min)
		}
	}
}

func TestLimiter_SpacingAndSingleFlight(t *testing.T) {
	t.Parallel()
	l := New(Config{Name: "test-spacing", MinInterval: 80 * time.Millisecond, Production: true})

	dispatches, maxParallel := runConcurrent(t, l, 5, 10*time.Millisecond)

	if len(dispatches) != 5 {
		t.Fatalf("Expected 5 dispatches, got %d", len(dispatches))
	}
	if maxParallel != 1 {
		t.Errorf("Expected at most 1 task in flight, observed %d", maxParallel)
	}
	assertSpacing(t, dispatches, 80*time.Millisecond)
}

func TestLimiter_SlowTaskStillSingleFlight(t *testing.T) {
	t.Parallel()
	// Tasks outlast the interval, so the slot, not the spacing, is what serializes them.
	l := New(Config{Name: "test-slow", MinInterval: 10 * time.Millisecond, Production: true})

	dispatches, maxParallel := runConcurrent(t, l, 4, 40*time.Millisecond)

	if maxParallel != 1 {
		t.Errorf("Expected at most 1 task in flight, observed %d", maxParallel)
	}
	assertSpacing(t, dispatches, 40*time.Millisecond)
}

func TestLimiter_DefaultCadence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping real-time AniDB cadence test in short mode")
	}
	t.Parallel()
	l := New(Config{Name: "test-default", Production: true})
	if l.MinInterval() != 2250*time.Millisecond {
		t.Fatalf("MinInterval() = %v, want 2250ms", l.MinInterval())
	}

	dispatches, maxParallel := runConcurrent(t, l, 3, 0)

	if maxParallel != 1 {
		t.Errorf("Expected at most 1 task in flight, observed %d", maxParallel)
	}
	assertSpacing(t, dispatches, DefaultMinInterval)
}

func TestLimiter_FIFOAdmission(t *testing.T) {
	t.Parallel()
	l := New(Config{Name: "test-fifo", MinInterval: 5 * time.Millisecond, Production: true})

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = l.Schedule(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = l.Schedule(context.Background(), func(ctx context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}(i)
		// Let each goroutine reach the queue before the next one.
		time.Sleep(20 * time.Millisecond)
	}

	close(release)
	wg.Wait()

	for i, got := range order {
		if got != i {
			t.Fatalf("Expected FIFO order [0 1 2 3 4], got %v", order)
		}
	}
}

func TestLimiter_WarmUpOutsideProduction(t *testing.T) {
	t.Parallel()
	l := New(Config{Name: "test-warmup", MinInterval: 10 * time.Millisecond, WarmUp: 150 * time.Millisecond})

	start := time.Now()
	_ = l.Schedule(context.Background(), func(ctx context.Context) error { return nil })
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("First task ran after %v, want >= 150ms warm-up", elapsed)
	}

	start = time.Now()
	_ = l.Schedule(context.Background(), func(ctx context.Context) error { return nil })
	if elapsed := time.Since(start); elapsed >= 150*time.Millisecond {
		t.Errorf("Warm-up applied again: second task waited %v", elapsed)
	}
}

func TestLimiter_NoWarmUpInProduction(t *testing.T) {
	t.Parallel()
	l := New(Config{Name: "test-prod", WarmUp: time.Second, Production: true})

	start := time.Now()
	_ = l.Schedule(context.Background(), func(ctx context.Context) error { return nil })
	if elapsed := time.Since(start); elapsed >= 500*time.Millisecond {
		t.Errorf("Production limiter delayed first task by %v", elapsed)
	}
}

func TestLimiter_CancelWhileQueued(t *testing.T) {
	t.Parallel()
	l := New(Config{Name: "test-cancel", MinInterval: 10 * time.Millisecond, Production: true})

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = l.Schedule(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	ran := false
	err := l.Schedule(ctx, func(ctx context.Context) error {
		ran = true
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context.DeadlineExceeded, got %v", err)
	}
	if ran {
		t.Fatal("Task must not run after its context expired in the queue")
	}
}

func TestLimiter_CancelDuringSpacing(t *testing.T) {
	t.Parallel()
	l := New(Config{Name: "test-cancel-spacing", MinInterval: time.Second, Production: true})

	_ = l.Schedule(context.Background(), func(ctx context.Context) error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Schedule(ctx, func(ctx context.Context) error {
		t.Error("Task must not run")
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestLimiter_PropagatesTaskError(t *testing.T) {
	t.Parallel()
	l := New(Config{Name: "test-error", Production: true})
	boom := errors.New("boom")

	if err := l.Schedule(context.Background(), func(ctx context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Expected task error, got %v", err)
	}
	if l.InFlight() != 0 {
		t.Fatalf("InFlight() = %d after completion, want 0", l.InFlight())
	}
}

func TestDo_ReturnsValue(t *testing.T) {
	t.Parallel()
	l := New(Config{Name: "test-do", Production: true})

	got, err := Do(context.Background(), l, func(ctx context.Context) (string, error) {
		return "<anime/>", nil
	})
	if err != nil || got != "<anime/>" {
		t.Fatalf("Do() = %q, %v", got, err)
	}
}

func TestLimiter_LedgerSpacingAcrossInstances(t *testing.T) {
	t.Parallel()
	ledger, err := cache.New("memory", cache.ProviderConfig{Size: 4, TTL: time.Minute})
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	defer ledger.Close()

	first := New(Config{Name: "test-ledger", MinInterval: 200 * time.Millisecond, Production: true, Ledger: ledger})
	var firstAt time.Time
	_ = first.Schedule(context.Background(), func(ctx context.Context) error {
		firstAt, _ = DispatchedAt(ctx)
		return nil
	})

	raw, ok := ledger.Get("ratelimit:test-ledger:last_dispatch")
	if !ok {
		t.Fatal("Expected dispatch to be recorded in the ledger")
	}
	if nanos, _ := strconv.ParseInt(string(raw), 10, 64); nanos != firstAt.UnixNano() {
		t.Errorf("ledger = %s, want %d", raw, firstAt.UnixNano())
	}

	// A fresh limiter (as after a restart) must still honour the recorded dispatch.
	restarted := New(Config{Name: "test-ledger", MinInterval: 200 * time.Millisecond, Production: true, Ledger: ledger})
	var secondAt time.Time
	_ = restarted.Schedule(context.Background(), func(ctx context.Context) error {
		secondAt, _ = DispatchedAt(ctx)
		return nil
	})

	if gap := secondAt.Sub(firstAt); gap < 200*time.Millisecond {
		t.Errorf("restarted limiter dispatched %v after the recorded one, want >= 200ms", gap)
	}
}

func TestLimiter_IgnoresCorruptLedger(t *testing.T) {
	t.Parallel()
	ledger, err := cache.New("memory", cache.ProviderConfig{Size: 4})
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	ledger.Set("ratelimit:test-corrupt:last_dispatch", []byte("not-a-timestamp"))

	l := New(Config{Name: "test-corrupt", MinInterval: time.Hour, Production: true, Ledger: ledger})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := l.Schedule(ctx, func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("Expected corrupt ledger entry to be ignored, got %v", err)
	}
}

// slowLedger adds backend latency to every ledger round trip, widening the
// window between a limiter's read and its write.
type slowLedger struct {
	cache.Cache
	delay time.Duration
}

func (s slowLedger) Get(key string) ([]byte, bool) {
	time.Sleep(s.delay)
	return s.Cache.Get(key)
}

func (s slowLedger) SetIfAbsent(key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := s.Cache.SetIfAbsent(key, value, ttl)
	time.Sleep(s.delay)
	return ok, err
}

func TestLimiter_SharedLedgerSpacesSiblingLimiters(t *testing.T) {
	t.Parallel()
	inner, err := cache.New("memory", cache.ProviderConfig{Size: 4, TTL: time.Minute})
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	defer inner.Close()
	ledger := slowLedger{Cache: inner, delay: 20 * time.Millisecond}

	const interval = 300 * time.Millisecond
	limiters := []*Limiter{
		New(Config{Name: "test-shared", MinInterval: interval, Production: true, Ledger: ledger}),
		New(Config{Name: "test-shared", MinInterval: interval, Production: true, Ledger: ledger}),
	}

	var (
		mu         sync.Mutex
		dispatches []time.Time
		wg         sync.WaitGroup
	)
	for _, l := range limiters {
		l := l
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := l.Schedule(context.Background(), func(ctx context.Context) error {
					at, _ := DispatchedAt(ctx)
					mu.Lock()
					dispatches = append(dispatches, at)
					mu.Unlock()
					return nil
				})
				if err != nil {
					t.Errorf("Schedule: %v", err)
				}
			}()
		}
	}
	wg.Wait()

	sort.Slice(dispatches, func(i, j int) bool { return dispatches[i].Before(dispatches[j]) })
	if len(dispatches) != 4 {
		t.Fatalf("got %d dispatches, want 4", len(dispatches))
	}
	// The lease deadline is taken inside the backend, a few microseconds after the stamp.
	assertSpacing(t, dispatches, interval-5*time.Millisecond)
}

func TestLimiter_FutureLedgerEntryIsBounded(t *testing.T) {
	t.Parallel()
	ledger, err := cache.New("memory", cache.ProviderConfig{Size: 4})
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	defer ledger.Close()

	// Another host with a clock ten minutes ahead holds a long-lived lease.
	future := time.Now().Add(10 * time.Minute).UnixNano()
	if ok, _ := ledger.SetIfAbsent("ratelimit:test-future:last_dispatch", []byte(strconv.FormatInt(future, 10)), time.Hour); !ok {
		t.Fatal("Expected to seed the ledger")
	}

	l := New(Config{Name: "test-future", MinInterval: 100 * time.Millisecond, Production: true, Ledger: ledger})
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := l.Schedule(ctx, func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if waited := time.Since(start); waited > 400*time.Millisecond {
		t.Errorf("waited %v on a future ledger entry, want about one interval", waited)
	}
}

func TestLimiter_LedgerLeaseExpiresAfterInterval(t *testing.T) {
	t.Parallel()
	ledger, err := cache.New("memory", cache.ProviderConfig{Size: 4, TTL: time.Hour})
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	defer ledger.Close()

	l := New(Config{Name: "test-lease", MinInterval: 50 * time.Millisecond, Production: true, Ledger: ledger})
	if err := l.Schedule(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if _, ok := ledger.Get("ratelimit:test-lease:last_dispatch"); ok {
		t.Error("Expected the dispatch lease to expire after MinInterval")
	}
}

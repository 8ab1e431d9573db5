package reporting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
)

func TestNewSentry_EmptyDSNIsNop(t *testing.T) {
	r, err := NewSentry("", "test", "dev")
	if err != nil {
		t.Fatalf("NewSentry: %v", err)
	}
	if _, ok := r.(Nop); !ok {
		t.Fatalf("Expected Nop reporter, got %T", r)
	}
	r.Report(context.Background(), errors.New("ignored"), nil)
	if !r.Flush(time.Millisecond) {
		t.Error("Nop.Flush should report success")
	}
}

func TestSentry_ReportCarriesTags(t *testing.T) {
	var (
		mu     sync.Mutex
		events []*sentry.Event
	)
	r, err := NewSentryWithOptions(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
			return nil
		},
	})
	if err != nil {
		t.Fatalf("NewSentryWithOptions: %v", err)
	}

	r.Report(context.Background(), errors.New("anidb error (status 200): Banned"), map[string]string{
		"resolution_id": "abc",
		"outcome":       "fetch_failed",
	})
	r.Report(context.Background(), nil, nil)
	r.Flush(time.Second)

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Tags["outcome"] != "fetch_failed" || events[0].Tags["resolution_id"] != "abc" {
		t.Errorf("Tags = %v", events[0].Tags)
	}
	if len(events[0].Exception) == 0 || events[0].Exception[0].Value != "anidb error (status 200): Banned" {
		t.Errorf("Exception = %+v", events[0].Exception)
	}
}

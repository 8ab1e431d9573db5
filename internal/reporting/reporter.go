// Package reporting forwards failures that the resolver swallows to an error
// tracker, so a silent "no result" can still be investigated.
package reporting

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Belphemur/AniBridge/internal/config"
)

// Reporter records an error that will not be returned to any caller.
type Reporter interface {
	Report(ctx context.Context, err error, tags map[string]string)
	Flush(timeout time.Duration) bool
}

// Nop drops every report.
type Nop struct{}

func (Nop) Report(context.Context, error, map[string]string) {}

func (Nop) Flush(time.Duration) bool { return true }

// Sentry sends reports to a Sentry project through its own hub.
type Sentry struct {
	hub *sentry.Hub
}

// NewSentry creates a Sentry reporter for dsn. An empty dsn yields Nop.
func NewSentry(dsn, environment, release string) (Reporter, error) {
	if dsn == "" {
		return Nop{}, nil
	}
	return NewSentryWithOptions(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
	})
}

// NewSentryWithOptions creates a Sentry reporter from full client options.
func NewSentryWithOptions(opts sentry.ClientOptions) (*Sentry, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &Sentry{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Report implements Reporter.
func (s *Sentry) Report(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		if eventID := s.hub.CaptureException(err); eventID != nil {
			logger := config.GetLogger()
			logger.Debug().Str("event_id", string(*eventID)).Msg("Reported error to Sentry")
		}
	})
}

// Flush waits for queued events to be delivered.
func (s *Sentry) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}

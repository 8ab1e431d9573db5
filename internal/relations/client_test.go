package relations

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Belphemur/AniBridge/internal/apperrors"
	"github.com/Belphemur/AniBridge/internal/metrics"
)

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ids" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("source"); got != "anilist" {
			t.Errorf("source = %q, want anilist", got)
		}
		if got := r.URL.Query().Get("id"); got != "16498" {
			t.Errorf("id = %q, want 16498", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestLookup_Success(t *testing.T) {
	server := newTestServer(t, http.StatusOK, `{"anilist":16498,"anidb":9541,"myanimelist":16498,"kitsu":null}`)
	c := New(server.URL+"/", server.Client())

	relation, err := c.Lookup(context.Background(), 16498)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if relation.AniDB == nil || *relation.AniDB != 9541 {
		t.Errorf("AniDB = %v, want 9541", relation.AniDB)
	}
	if relation.Kitsu != nil {
		t.Errorf("Kitsu = %v, want nil", *relation.Kitsu)
	}

	id, ok := c.ResolveSiblingID(context.Background(), 16498)
	if !ok || id != 9541 {
		t.Errorf("ResolveSiblingID = %d, %v, want 9541, true", id, ok)
	}
}

func TestLookup_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "null body is not found",
			status: http.StatusOK,
			body:   `null`,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, &apperrors.ErrNotFound{}) {
					t.Errorf("Expected ErrNotFound, got %v", err)
				}
			},
		},
		{
			name:   "error body with 404 code",
			status: http.StatusNotFound,
			body:   `{"code":404,"type":"Not Found","messages":["No entry found"]}`,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, &apperrors.ErrNotFound{}) {
					t.Errorf("Expected ErrNotFound, got %v", err)
				}
				var appErr *apperrors.ApplicationError
				if !errors.As(err, &appErr) || appErr.Code != 404 {
					t.Errorf("Expected ApplicationError code 404, got %v", err)
				}
			},
		},
		{
			name:   "error body inside 200",
			status: http.StatusOK,
			body:   `{"code":400,"type":"Bad Request","messages":["id must be a number"]}`,
			check: func(t *testing.T, err error) {
				var appErr *apperrors.ApplicationError
				if !errors.As(err, &appErr) {
					t.Fatalf("Expected ApplicationError, got %v", err)
				}
				if !appErr.InBand() || appErr.Code != 400 {
					t.Errorf("Unexpected ApplicationError %+v", appErr)
				}
				if appErr.Message != "Bad Request id must be a number" {
					t.Errorf("Message = %q", appErr.Message)
				}
			},
		},
		{
			name:   "server error with html body",
			status: http.StatusInternalServerError,
			body:   `<html>oops</html>`,
			check: func(t *testing.T, err error) {
				var appErr *apperrors.ApplicationError
				if !errors.As(err, &appErr) || appErr.StatusCode != http.StatusInternalServerError {
					t.Errorf("Expected ApplicationError with status 500, got %v", err)
				}
			},
		},
		{
			name:   "malformed json",
			status: http.StatusOK,
			body:   `{"anidb":`,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, &apperrors.DecodeError{}) {
					t.Errorf("Expected DecodeError, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, tt.status, tt.body)
			c := New(server.URL, server.Client())

			relation, err := c.Lookup(context.Background(), 16498)
			if relation != nil {
				t.Errorf("Expected nil relation, got %+v", relation)
			}
			tt.check(t, err)

			if _, ok := c.ResolveSiblingID(context.Background(), 16498); ok {
				t.Error("ResolveSiblingID should report unresolved")
			}
		})
	}
}

func TestResolveSiblingID_NoAniDBMapping(t *testing.T) {
	server := newTestServer(t, http.StatusOK, `{"anilist":16498,"anidb":null,"myanimelist":16498,"kitsu":7442}`)
	c := New(server.URL, server.Client())

	before := testutil.ToFloat64(metrics.RelationLookupsTotal.WithLabelValues("no_anidb"))
	if _, ok := c.ResolveSiblingID(context.Background(), 16498); ok {
		t.Error("Expected unresolved for a relation without AniDB ID")
	}
	if got := testutil.ToFloat64(metrics.RelationLookupsTotal.WithLabelValues("no_anidb")) - before; got != 1 {
		t.Errorf("no_anidb lookups increased by %v, want 1", got)
	}
}

func TestLookup_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	c := New(server.URL, server.Client())
	_, err := c.Lookup(context.Background(), 16498)
	if !errors.Is(err, &apperrors.TransportError{}) {
		t.Fatalf("Expected TransportError, got %v", err)
	}
}

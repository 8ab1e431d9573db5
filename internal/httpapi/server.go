// Package httpapi exposes the resolver over a small JSON HTTP API.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Belphemur/AniBridge/internal/config"
	"github.com/Belphemur/AniBridge/internal/metrics"
	"github.com/Belphemur/AniBridge/internal/models"
)

// EpisodeResolver is the pipeline the API exposes.
type EpisodeResolver interface {
	ResolveEpisodesForTitle(ctx context.Context, anilistID int) (*models.SeasonResult, bool)
	ResolveCrossReference(ctx context.Context, anilistID int) (int, bool)
}

// CrossReference is the body of GET /v1/anime/{id}/crossref.
type CrossReference struct {
	AniListID          int `json:"anilistId"`
	CrunchyrollMediaID int `json:"crunchyrollMediaId"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Server routes HTTP requests to the resolver.
type Server struct {
	router   *chi.Mux
	resolver EpisodeResolver
	logger   zerolog.Logger
}

// New builds the router.
func New(r EpisodeResolver) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		resolver: r,
		logger:   config.GetLogger().With().Str("component", "http").Logger(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logRequests)

	s.router.Get("/healthz", s.health)
	s.router.Handle("/metrics", metrics.Handler())
	s.router.Route("/v1/anime/{id}", func(r chi.Router) {
		r.Get("/episodes", s.episodes)
		r.Get("/crossref", s.crossReference)
	})

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// NewHTTPServer wraps the router in an http.Server listening on address:port.
func (s *Server) NewHTTPServer(address string, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", address, port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (s *Server) episodes(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	season, ok := s.resolver.ResolveEpisodesForTitle(r.Context(), id)
	if !ok {
		jsonResponse(w, errorBody{Error: "no episode listing for this title"}, http.StatusNotFound)
		return
	}
	jsonResponse(w, season, http.StatusOK)
}

func (s *Server) crossReference(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	key, ok := s.resolver.ResolveCrossReference(r.Context(), id)
	if !ok {
		jsonResponse(w, errorBody{Error: "no crunchyroll cross reference for this title"}, http.StatusNotFound)
		return
	}
	jsonResponse(w, CrossReference{AniListID: id, CrunchyrollMediaID: key}, http.StatusOK)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

func parseID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		jsonResponse(w, errorBody{Error: fmt.Sprintf("invalid anilist id %q", raw)}, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func jsonResponse(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

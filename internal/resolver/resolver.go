// Package resolver turns an AniList ID into the Crunchyroll season listing of
// its first episode. It is the only place where failures are swallowed: every
// error below it collapses into an empty result.
package resolver

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Belphemur/AniBridge/internal/apperrors"
	"github.com/Belphemur/AniBridge/internal/config"
	"github.com/Belphemur/AniBridge/internal/episodes"
	"github.com/Belphemur/AniBridge/internal/metrics"
	"github.com/Belphemur/AniBridge/internal/models"
	"github.com/Belphemur/AniBridge/internal/reporting"
	"github.com/Belphemur/AniBridge/internal/season"
)

// Outcomes recorded in resolutions_total.
const (
	OutcomeResolved       = "resolved"
	OutcomeNoSibling      = "no_sibling"
	OutcomeFetchFailed    = "fetch_failed"
	OutcomeNoFirstEpisode = "no_first_episode"
	OutcomeNoCrossRef     = "no_crossref"
	OutcomeLocatorFailed  = "locator_failed"
)

// SiblingResolver looks up the relation of an AniList title.
type SiblingResolver interface {
	Lookup(ctx context.Context, anilistID int) (*models.Relation, error)
}

// AnimeFetcher fetches the decoded AniDB document for an AniDB ID.
type AnimeFetcher interface {
	FetchAnime(ctx context.Context, anidbID int) (*models.Anime, error)
}

// Dependencies wires a Resolver. Locator may be nil when only cross
// references are needed; Reporter defaults to reporting.Nop.
type Dependencies struct {
	Relations SiblingResolver
	AniDB     AnimeFetcher
	Selector  episodes.Selector
	Locator   season.Locator
	Reporter  reporting.Reporter
}

// Resolver runs the AniList -> AniDB -> Crunchyroll pipeline.
type Resolver struct {
	relations SiblingResolver
	anidb     AnimeFetcher
	selector  episodes.Selector
	locator   season.Locator
	reporter  reporting.Reporter
}

// New creates a Resolver.
func New(deps Dependencies) *Resolver {
	reporter := deps.Reporter
	if reporter == nil {
		reporter = reporting.Nop{}
	}
	return &Resolver{
		relations: deps.Relations,
		anidb:     deps.AniDB,
		selector:  deps.Selector,
		locator:   deps.Locator,
		reporter:  reporter,
	}
}

// ResolveEpisodesForTitle returns the season listing for an AniList title, or
// false when any step of the pipeline fails.
func (r *Resolver) ResolveEpisodesForTitle(ctx context.Context, anilistID int) (*models.SeasonResult, bool) {
	ctx, logger := r.begin(ctx, anilistID)

	key, ok := r.crossReference(ctx, logger, anilistID)
	if !ok {
		return nil, false
	}

	if r.locator == nil {
		r.fail(ctx, logger, OutcomeLocatorFailed, errors.New("no season locator configured"))
		return nil, false
	}

	result, err := r.locator.FetchSeasonFromEpisode(ctx, anilistID, strconv.Itoa(key))
	if err != nil {
		r.fail(ctx, logger, OutcomeLocatorFailed, err)
		return nil, false
	}
	if result == nil {
		r.fail(ctx, logger, OutcomeLocatorFailed, apperrors.NewNotFoundError("season for media", key))
		return nil, false
	}

	r.succeed(logger)
	return result, true
}

// ResolveCrossReference stops the pipeline at the Crunchyroll media ID.
func (r *Resolver) ResolveCrossReference(ctx context.Context, anilistID int) (int, bool) {
	ctx, logger := r.begin(ctx, anilistID)

	key, ok := r.crossReference(ctx, logger, anilistID)
	if ok {
		r.succeed(logger)
	}
	return key, ok
}

func (r *Resolver) crossReference(ctx context.Context, logger zerolog.Logger, anilistID int) (int, bool) {
	relation, err := r.relations.Lookup(ctx, anilistID)
	if err != nil {
		r.fail(ctx, logger, OutcomeNoSibling, err)
		return 0, false
	}
	anidbID, ok := relation.AniDBID()
	if !ok {
		r.fail(ctx, logger, OutcomeNoSibling, apperrors.NewNotFoundError("anidb mapping for anilist", anilistID))
		return 0, false
	}
	logger = logger.With().Int("anidb_id", anidbID).Logger()

	anime, err := r.anidb.FetchAnime(ctx, anidbID)
	if err == nil && anime == nil {
		err = apperrors.NewNotFoundError("anidb anime", anidbID)
	}
	if err != nil {
		r.fail(ctx, logger, OutcomeFetchFailed, err)
		return 0, false
	}

	episode, ok := r.selector.SelectFirstEpisode(anime.Episodes)
	if !ok {
		r.fail(ctx, logger, OutcomeNoFirstEpisode, apperrors.NewNotFoundError("first episode of anidb anime", anidbID))
		return 0, false
	}

	key, ok := episodes.ExtractCrossReference(episode)
	if !ok {
		r.fail(ctx, logger, OutcomeNoCrossRef, apperrors.NewNotFoundError("crunchyroll resource of anidb episode", episode.ID))
		return 0, false
	}

	logger.Debug().Int("episode_id", episode.ID).Int("crunchyroll_media_id", key).Msg("Found cross reference")
	return key, true
}

func (r *Resolver) begin(ctx context.Context, anilistID int) (context.Context, zerolog.Logger) {
	id := uuid.NewString()
	base := config.GetLogger()
	logger := base.With().
		Str("resolution_id", id).
		Int("anilist_id", anilistID).
		Logger()
	ctx = context.WithValue(ctx, resolutionIDKey{}, id)
	return logger.WithContext(ctx), logger
}

func (r *Resolver) succeed(logger zerolog.Logger) {
	metrics.ResolutionsTotal.WithLabelValues(OutcomeResolved).Inc()
	logger.Debug().Msg("Resolved title")
}

// fail records why a resolution ended. Absence is expected and only logged;
// anything else also goes to the reporter.
func (r *Resolver) fail(ctx context.Context, logger zerolog.Logger, outcome string, err error) {
	metrics.ResolutionsTotal.WithLabelValues(outcome).Inc()

	if errors.Is(err, &apperrors.ErrNotFound{}) {
		logger.Debug().Err(err).Str("outcome", outcome).Msg("Title not resolved")
		return
	}
	if errors.Is(err, context.Canceled) {
		logger.Debug().Err(err).Str("outcome", outcome).Msg("Resolution cancelled")
		return
	}

	logger.Warn().Err(err).Str("outcome", outcome).Msg("Title not resolved")
	tags := map[string]string{"outcome": outcome}
	if id := resolutionID(ctx); id != "" {
		tags["resolution_id"] = id
	}
	r.reporter.Report(ctx, err, tags)
}

type resolutionIDKey struct{}

func resolutionID(ctx context.Context) string {
	id, _ := ctx.Value(resolutionIDKey{}).(string)
	return id
}

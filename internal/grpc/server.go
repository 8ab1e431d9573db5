package grpc

import (
	"context"
	"math"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/Belphemur/AniBridge/internal/config"
	"github.com/Belphemur/AniBridge/internal/models"
)

// EpisodeResolver is the pipeline the service exposes.
type EpisodeResolver interface {
	ResolveEpisodesForTitle(ctx context.Context, anilistID int) (*models.SeasonResult, bool)
	ResolveCrossReference(ctx context.Context, anilistID int) (int, bool)
}

// server implements EpisodeLinkServiceServer
type server struct {
	resolver EpisodeResolver
	logger   zerolog.Logger
}

// NewServer creates a new gRPC server instance
func NewServer(r EpisodeResolver) EpisodeLinkServiceServer {
	return &server{
		resolver: r,
		logger:   config.GetLogger(),
	}
}

// ResolveEpisodes implements EpisodeLinkServiceServer.ResolveEpisodes
func (s *server) ResolveEpisodes(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	id, err := anilistID(req)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Int("anilist_id", id).Msg("ResolveEpisodes called")

	season, ok := s.resolver.ResolveEpisodesForTitle(ctx, id)
	if !ok {
		return nil, status.Error(codes.NotFound, "no episode listing for this title")
	}

	out, err := convertSeasonToProto(season)
	if err != nil {
		s.logger.Error().Err(err).Int("anilist_id", id).Msg("Failed to convert season listing")
		return nil, status.Errorf(codes.Internal, "failed to convert season listing: %v", err)
	}
	return out, nil
}

// ResolveCrossReference implements EpisodeLinkServiceServer.ResolveCrossReference
func (s *server) ResolveCrossReference(ctx context.Context, req *wrapperspb.Int64Value) (*wrapperspb.Int64Value, error) {
	id, err := anilistID(req)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Int("anilist_id", id).Msg("ResolveCrossReference called")

	key, ok := s.resolver.ResolveCrossReference(ctx, id)
	if !ok {
		return nil, status.Error(codes.NotFound, "no crunchyroll cross reference for this title")
	}
	return wrapperspb.Int64(int64(key)), nil
}

func anilistID(req *wrapperspb.Int64Value) (int, error) {
	v := req.GetValue()
	if v <= 0 || v > math.MaxInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "invalid anilist id %d", v)
	}
	return int(v), nil
}

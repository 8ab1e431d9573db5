package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/Belphemur/AniBridge/internal/models"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "anibridge.v1.EpisodeLinkService"

const (
	resolveEpisodesMethod       = "/" + ServiceName + "/ResolveEpisodes"
	resolveCrossReferenceMethod = "/" + ServiceName + "/ResolveCrossReference"
)

// EpisodeLinkServiceServer is the server API of anibridge.v1.EpisodeLinkService.
// Requests and responses use the well-known wrapper and struct messages, so
// the service needs no generated code of its own.
type EpisodeLinkServiceServer interface {
	// ResolveEpisodes returns the season listing for an AniList ID.
	ResolveEpisodes(ctx context.Context, anilistID *wrapperspb.Int64Value) (*structpb.Struct, error)
	// ResolveCrossReference returns the Crunchyroll media ID for an AniList ID.
	ResolveCrossReference(ctx context.Context, anilistID *wrapperspb.Int64Value) (*wrapperspb.Int64Value, error)
}

// RegisterEpisodeLinkServiceServer registers srv on s.
func RegisterEpisodeLinkServiceServer(s grpc.ServiceRegistrar, srv EpisodeLinkServiceServer) {
	s.RegisterService(&episodeLinkServiceDesc, srv)
}

var episodeLinkServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EpisodeLinkServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ResolveEpisodes", Handler: resolveEpisodesHandler},
		{MethodName: "ResolveCrossReference", Handler: resolveCrossReferenceHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "anibridge/v1/episode_link.proto",
}

func resolveEpisodesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EpisodeLinkServiceServer).ResolveEpisodes(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: resolveEpisodesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EpisodeLinkServiceServer).ResolveEpisodes(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func resolveCrossReferenceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EpisodeLinkServiceServer).ResolveCrossReference(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: resolveCrossReferenceMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EpisodeLinkServiceServer).ResolveCrossReference(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

// EpisodeLinkServiceClient calls anibridge.v1.EpisodeLinkService.
type EpisodeLinkServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewEpisodeLinkServiceClient wraps a client connection.
func NewEpisodeLinkServiceClient(cc grpc.ClientConnInterface) *EpisodeLinkServiceClient {
	return &EpisodeLinkServiceClient{cc: cc}
}

// ResolveEpisodes calls EpisodeLinkService.ResolveEpisodes and decodes the
// returned struct into a season listing.
func (c *EpisodeLinkServiceClient) ResolveEpisodes(ctx context.Context, anilistID int64, opts ...grpc.CallOption) (*models.SeasonResult, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, resolveEpisodesMethod, wrapperspb.Int64(anilistID), out, opts...); err != nil {
		return nil, err
	}
	return convertSeasonFromProto(out)
}

// ResolveCrossReference calls EpisodeLinkService.ResolveCrossReference.
func (c *EpisodeLinkServiceClient) ResolveCrossReference(ctx context.Context, anilistID int64, opts ...grpc.CallOption) (int64, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.cc.Invoke(ctx, resolveCrossReferenceMethod, wrapperspb.Int64(anilistID), out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

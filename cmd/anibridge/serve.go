package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Belphemur/AniBridge/internal/config"
	grpcserver "github.com/Belphemur/AniBridge/internal/grpc"
	"github.com/Belphemur/AniBridge/internal/httpapi"
	"github.com/Belphemur/AniBridge/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the gRPC and HTTP APIs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, config.GetConfig())
		},
	}
}

// serve runs the gRPC server, the HTTP API and, when enabled, the metrics
// server until ctx is cancelled or one of them fails.
func serve(ctx context.Context, cfg *config.Config) error {
	logger := config.GetLogger()

	logger.Info().
		Str("proxy_connection_string", cfg.ProxyConnectionString).
		Str("relations_url", cfg.Relations.URL).
		Str("anidb_url", cfg.AniDB.URL).
		Int("server_port", cfg.Server.Port).
		Int("http_port", cfg.HTTP.Port).
		Str("server_address", cfg.Server.Address).
		Msg("Application started with configuration")

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close application resources")
		}
	}()

	grpcServer := grpcserver.NewGRPCServer(a.resolver)
	address := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	httpServers := []*http.Server{httpapi.New(a.resolver).NewHTTPServer(cfg.Server.Address, cfg.HTTP.Port)}
	if cfg.Metrics.Enabled {
		httpServers = append(httpServers, metrics.NewHTTPServer(cfg.Server.Address, cfg.Metrics.Port))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("address", address).Msg("Starting gRPC server")
		return grpcServer.Serve(listener)
	})

	for _, srv := range httpServers {
		srv := srv
		g.Go(func() error {
			logger.Info().Str("address", srv.Addr).Msg("Starting HTTP server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range httpServers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Str("address", srv.Addr).Msg("Failed to shut down HTTP server")
			}
		}
		grpcServer.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("Server stopped gracefully")
	return nil
}

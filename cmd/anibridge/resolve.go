package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/Belphemur/AniBridge/internal/config"
	grpcserver "github.com/Belphemur/AniBridge/internal/grpc"
	"github.com/Belphemur/AniBridge/internal/models"
)

// errUnresolved is returned when the pipeline produced no result.
var errUnresolved = errors.New("title could not be resolved")

type resolveOptions struct {
	remote       string
	jsonOutput   bool
	crossRefOnly bool
}

// resolution is what the command prints. Season is nil when only the cross
// reference was requested or no season locator is configured.
type resolution struct {
	AniListID          int                  `json:"anilistId"`
	CrunchyrollMediaID int                  `json:"crunchyrollMediaId,omitempty"`
	Season             *models.SeasonResult `json:"season,omitempty"`
}

func newResolveCommand() *cobra.Command {
	var opts resolveOptions

	cmd := &cobra.Command{
		Use:   "resolve <anilist-id>",
		Short: "Resolve one AniList title and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid anilist id %q", args[0])
			}
			return runResolve(cmd.Context(), cmd.OutOrStdout(), config.GetConfig(), opts, id)
		},
	}

	cmd.Flags().StringVar(&opts.remote, "remote", "", "Resolve through a running gRPC server at host:port instead of in-process")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print JSON instead of a table")
	cmd.Flags().BoolVar(&opts.crossRefOnly, "crossref", false, "Stop at the Crunchyroll media ID")

	return cmd
}

func runResolve(ctx context.Context, out io.Writer, cfg *config.Config, opts resolveOptions, id int) error {
	var (
		res resolution
		err error
	)
	if opts.remote != "" {
		res, err = resolveRemote(ctx, opts, id)
	} else {
		res, err = resolveLocal(ctx, cfg, opts, id)
	}
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err = fmt.Fprintln(out, renderResolution(res))
	return err
}

func resolveLocal(ctx context.Context, cfg *config.Config, opts resolveOptions, id int) (resolution, error) {
	a, err := newApp(cfg)
	if err != nil {
		return resolution{}, err
	}
	defer a.Close()

	res := resolution{AniListID: id}
	if opts.crossRefOnly || cfg.Season.URL == "" {
		key, ok := a.resolver.ResolveCrossReference(ctx, id)
		if !ok {
			return resolution{}, errUnresolved
		}
		res.CrunchyrollMediaID = key
		return res, nil
	}

	season, ok := a.resolver.ResolveEpisodesForTitle(ctx, id)
	if !ok {
		return resolution{}, errUnresolved
	}
	res.Season = season
	return res, nil
}

func resolveRemote(ctx context.Context, opts resolveOptions, id int) (resolution, error) {
	conn, err := grpc.NewClient(opts.remote, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return resolution{}, fmt.Errorf("connect to %s: %w", opts.remote, err)
	}
	defer conn.Close()
	client := grpcserver.NewEpisodeLinkServiceClient(conn)

	res := resolution{AniListID: id}
	if opts.crossRefOnly {
		key, err := client.ResolveCrossReference(ctx, int64(id))
		if err != nil {
			return resolution{}, remoteError(err)
		}
		res.CrunchyrollMediaID = int(key)
		return res, nil
	}

	season, err := client.ResolveEpisodes(ctx, int64(id))
	if err != nil {
		return resolution{}, remoteError(err)
	}
	res.Season = season
	return res, nil
}

func remoteError(err error) error {
	if status.Code(err) == codes.NotFound {
		return errUnresolved
	}
	return err
}

func renderResolution(res resolution) string {
	if res.Season == nil {
		return renderTable(
			[]string{"AniList ID", "Crunchyroll media ID"},
			[][]string{{strconv.Itoa(res.AniListID), strconv.Itoa(res.CrunchyrollMediaID)}},
			[]columnAlignment{alignRight, alignRight},
		)
	}

	rows := make([][]string, 0, len(res.Season.Episodes))
	for _, ep := range res.Season.Episodes {
		rows = append(rows, []string{ep.Number, ep.Title, ep.URL})
	}
	header := fmt.Sprintf("%s (%s)", res.Season.Name, res.Season.ID)
	return header + "\n" + renderTable([]string{"#", "Title", "URL"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft})
}

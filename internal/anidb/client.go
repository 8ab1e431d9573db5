// Package anidb talks to the AniDB HTTP API. Every request goes through the
// process-wide rate limiter; AniDB bans clients that exceed its request cadence.
package anidb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Belphemur/AniBridge/internal/apperrors"
	"github.com/Belphemur/AniBridge/internal/config"
	"github.com/Belphemur/AniBridge/internal/metrics"
	"github.com/Belphemur/AniBridge/internal/models"
	"github.com/Belphemur/AniBridge/internal/ratelimit"
	"github.com/Belphemur/AniBridge/internal/xmlnode"
)

const (
	DefaultBaseURL       = "http://api.anidb.net:9001/httpapi"
	DefaultClientName    = "application"
	DefaultClientVersion = "2"
)

// maxBodySize bounds a single anime document; the largest long-running
// series stay well below it.
const maxBodySize = 16 << 20

// Config identifies this program to AniDB.
type Config struct {
	BaseURL         string
	ClientName      string
	ClientVersion   string
	ProtocolVersion int
}

// Client fetches anime documents from AniDB.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

// New creates a Client. limiter must be the single limiter shared by every
// AniDB caller in the process; New panics when it is nil.
func New(cfg Config, httpClient *http.Client, limiter *ratelimit.Limiter) *Client {
	if limiter == nil {
		panic("anidb: New requires the process-wide rate limiter")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ClientName == "" {
		cfg.ClientName = DefaultClientName
	}
	if cfg.ClientVersion == "" {
		cfg.ClientVersion = DefaultClientVersion
	}
	if cfg.ProtocolVersion == 0 {
		cfg.ProtocolVersion = config.AniDBProtocolVersion
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, httpClient: httpClient, limiter: limiter}
}

// FetchAnimeXML returns the raw anime document for an AniDB ID. A 200 response
// whose root element is <error> is reported as an ApplicationError.
func (c *Client) FetchAnimeXML(ctx context.Context, anidbID int) (string, error) {
	body, _, err := c.fetch(ctx, anidbID)
	return body, err
}

// FetchAnime fetches and decodes the anime document for an AniDB ID.
func (c *Client) FetchAnime(ctx context.Context, anidbID int) (*models.Anime, error) {
	_, root, err := c.fetch(ctx, anidbID)
	if err != nil {
		return nil, err
	}
	return decodeAnime(root)
}

func (c *Client) fetch(ctx context.Context, anidbID int) (string, *xmlnode.Node, error) {
	logger := config.GetLogger().With().Int("anidb_id", anidbID).Logger()

	resp, err := ratelimit.Do(ctx, c.limiter, func(ctx context.Context) (response, error) {
		return c.get(ctx, anidbID)
	})
	if err != nil {
		metrics.AniDBRequestsTotal.WithLabelValues(requestStatus(err)).Inc()
		logger.Warn().Err(err).Msg("AniDB request failed")
		return "", nil, err
	}

	root, err := xmlnode.Decode(bytes.NewReader(resp.body), xmlnode.DefaultOptions())
	if err != nil {
		metrics.AniDBRequestsTotal.WithLabelValues("decode_error").Inc()
		return "", nil, fmt.Errorf("anime %d: %w", anidbID, err)
	}

	if root.Name == "error" {
		metrics.AniDBRequestsTotal.WithLabelValues("in_band_error").Inc()
		appErr := &apperrors.ApplicationError{Source: "anidb", StatusCode: resp.status, Message: root.String()}
		if code, ok := root.Attr("code"); ok {
			appErr.Code, _ = xmlnode.Int(code)
		}
		logger.Warn().Err(appErr).Msg("AniDB returned an error document")
		return "", nil, appErr
	}

	metrics.AniDBRequestsTotal.WithLabelValues("ok").Inc()
	logger.Debug().Int("bytes", len(resp.body)).Msg("Fetched AniDB anime document")
	return string(resp.body), root, nil
}

type response struct {
	body   []byte
	status int
}

// get performs the HTTP exchange. It runs inside the limiter slot.
func (c *Client) get(ctx context.Context, anidbID int) (response, error) {
	query := url.Values{}
	query.Set("client", c.cfg.ClientName)
	query.Set("clientver", c.cfg.ClientVersion)
	query.Set("protover", strconv.Itoa(c.cfg.ProtocolVersion))
	query.Set("request", "anime")
	query.Set("aid", strconv.Itoa(anidbID))
	endpoint := c.cfg.BaseURL + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return response{}, &apperrors.TransportError{Op: "build anidb request", URL: endpoint, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return response{}, &apperrors.TransportError{Op: "GET", URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return response{status: resp.StatusCode}, &apperrors.ApplicationError{
			Source:     "anidb",
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return response{status: resp.StatusCode}, &apperrors.TransportError{Op: "read anidb response", URL: endpoint, Err: err}
	}
	return response{body: body, status: resp.StatusCode}, nil
}

func requestStatus(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, &apperrors.ApplicationError{}):
		return "http_error"
	case errors.Is(err, &apperrors.TransportError{}):
		return "transport_error"
	default:
		return "error"
	}
}

// Package relations maps an AniList ID to the IDs of the same title in other
// databases using the relations.yuna.moe ID service.
package relations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Belphemur/AniBridge/internal/apperrors"
	"github.com/Belphemur/AniBridge/internal/config"
	"github.com/Belphemur/AniBridge/internal/metrics"
	"github.com/Belphemur/AniBridge/internal/models"
)

// DefaultBaseURL is the public relations service.
const DefaultBaseURL = "https://relations.yuna.moe"

// maxBodySize caps how much of a response is read; a relation is a handful of integers.
const maxBodySize = 1 << 20

// Client queries the relations service. Lookups are not rate limited and a
// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a relations client. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// envelope accepts both a relation and the service's error body.
type envelope struct {
	models.Relation
	Code     int      `json:"code"`
	Type     string   `json:"type"`
	Messages []string `json:"messages"`
}

// Lookup fetches the relation for an AniList ID.
func (c *Client) Lookup(ctx context.Context, anilistID int) (*models.Relation, error) {
	relation, err := c.lookup(ctx, anilistID)
	metrics.RelationLookupsTotal.WithLabelValues(lookupStatus(relation, err)).Inc()
	return relation, err
}

func (c *Client) lookup(ctx context.Context, anilistID int) (*models.Relation, error) {
	query := url.Values{}
	query.Set("source", "anilist")
	query.Set("id", strconv.Itoa(anilistID))
	endpoint := fmt.Sprintf("%s/api/ids?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &apperrors.TransportError{Op: "build relation request", URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperrors.TransportError{Op: "GET", URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &apperrors.TransportError{Op: "read relation response", URL: endpoint, Err: err}
	}

	var env *envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &apperrors.ApplicationError{Source: "relations", StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, &apperrors.DecodeError{Source: "relation", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || (env != nil && env.Code != 0) {
		appErr := &apperrors.ApplicationError{Source: "relations", StatusCode: resp.StatusCode}
		if env != nil {
			appErr.Code = env.Code
			appErr.Message = strings.TrimSpace(env.Type + " " + strings.Join(env.Messages, "; "))
		}
		if appErr.Code == http.StatusNotFound || (appErr.Code == 0 && resp.StatusCode == http.StatusNotFound) {
			return nil, errors.Join(apperrors.NewNotFoundError("relation", anilistID), appErr)
		}
		return nil, appErr
	}

	if env == nil {
		return nil, apperrors.NewNotFoundError("relation", anilistID)
	}

	relation := env.Relation
	return &relation, nil
}

// ResolveSiblingID returns the AniDB ID of an AniList title. Every failure,
// and a title without an AniDB mapping, is reported as unresolved.
func (c *Client) ResolveSiblingID(ctx context.Context, anilistID int) (int, bool) {
	logger := config.GetLogger()

	relation, err := c.Lookup(ctx, anilistID)
	if err != nil {
		logger.Debug().Err(err).Int("anilist_id", anilistID).Msg("Relation lookup failed")
		return 0, false
	}
	return relation.AniDBID()
}

func lookupStatus(relation *models.Relation, err error) string {
	var (
		appErr       *apperrors.ApplicationError
		decodeErr    *apperrors.DecodeError
		transportErr *apperrors.TransportError
	)
	switch {
	case err == nil && relation.AniDB == nil:
		return "no_anidb"
	case err == nil:
		return "ok"
	case errors.Is(err, &apperrors.ErrNotFound{}):
		return "not_found"
	case errors.As(err, &appErr):
		return "application_error"
	case errors.As(err, &decodeErr):
		return "decode_error"
	case errors.As(err, &transportErr):
		return "transport_error"
	default:
		return "error"
	}
}

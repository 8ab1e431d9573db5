// Package season is the boundary to the service that turns a Crunchyroll
// media ID into the season listing it belongs to.
package season

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Belphemur/AniBridge/internal/apperrors"
	"github.com/Belphemur/AniBridge/internal/models"
)

// Locator finds the season a cross-reference key belongs to.
type Locator interface {
	FetchSeasonFromEpisode(ctx context.Context, anilistID int, crossReferenceKey string) (*models.SeasonResult, error)
}

// HTTPLocator calls a season listing service over HTTP/JSON.
type HTTPLocator struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPLocator creates a locator for the service at baseURL.
func NewHTTPLocator(baseURL string, httpClient *http.Client) *HTTPLocator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPLocator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// FetchSeasonFromEpisode implements Locator.
func (l *HTTPLocator) FetchSeasonFromEpisode(ctx context.Context, anilistID int, crossReferenceKey string) (*models.SeasonResult, error) {
	query := url.Values{}
	query.Set("anilist", strconv.Itoa(anilistID))
	query.Set("media", crossReferenceKey)
	endpoint := fmt.Sprintf("%s/seasons/from-episode?%s", l.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &apperrors.TransportError{Op: "build season request", URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, &apperrors.TransportError{Op: "GET", URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewNotFoundError("season for media", crossReferenceKey)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apperrors.ApplicationError{Source: "season locator", StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperrors.TransportError{Op: "read season response", URL: endpoint, Err: err}
	}

	var result *models.SeasonResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &apperrors.DecodeError{Source: "season", Err: err}
	}
	if result == nil {
		return nil, apperrors.NewNotFoundError("season for media", crossReferenceKey)
	}
	return result, nil
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context, anilistID int, crossReferenceKey string) (*models.SeasonResult, error)

// FetchSeasonFromEpisode implements Locator.
func (f LocatorFunc) FetchSeasonFromEpisode(ctx context.Context, anilistID int, crossReferenceKey string) (*models.SeasonResult, error) {
	return f(ctx, anilistID, crossReferenceKey)
}

package client

import (
	"net/http"
	"net/url"
	"time"

	"github.com/Belphemur/AniBridge/internal/config"
)

const defaultTimeout = 30 * time.Second

// NewHTTPClient builds the HTTP client shared by every outbound integration:
// configurable timeout, optional proxy, default user agent and transparent
// response decompression.
func NewHTTPClient(cfg *config.Config) *http.Client {
	logger := config.GetLogger()
	timeout := config.Duration("client_timeout", cfg.ClientTimeout, defaultTimeout)

	// Clone DefaultTransport to preserve its pooling, HTTP/2 and dial timeouts
	baseTransport := http.DefaultTransport.(*http.Transport).Clone()

	if cfg.ProxyConnectionString != "" {
		proxyURL, err := url.Parse(cfg.ProxyConnectionString)
		if err != nil {
			logger.Warn().Err(err).Str("proxy", cfg.ProxyConnectionString).Msg("Invalid proxy URL, continuing without proxy")
		} else {
			baseTransport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: newDecodingTransport(baseTransport, userAgent),
	}
}

package stream

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/handiism/playlist-archiver/internal/http"
	"golang.org/x/time/rate"
)

// KeyFailureHeader is set by the provider when it could not fetch the
// decryption key for a track. Like 429, it asks the caller to slow down.
const KeyFailureHeader = "X-Audio-Key-Failure"

// HTTPConfig configures an HTTPProvider session.
type HTTPConfig struct {
	// BaseURL of the provider, e.g. "http://127.0.0.1:24879".
	BaseURL string

	// Token is sent as a bearer token. Obtaining it is out of scope.
	Token string

	// RateLimit caps requests per second for this session. Zero disables it.
	RateLimit float64

	// Quality is passed through to the provider.
	Quality string
}

// HTTPProvider fetches streams from an HTTP gateway in front of the audio
// service:
//
//	GET {BaseURL}/tracks/{id}/audio?quality=very_high
//
// 429 and 503 responses, and any response carrying KeyFailureHeader, are
// transient. Other non-200 responses are fatal.
type HTTPProvider struct {
	cfg     HTTPConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPProvider opens a provider session using client.
func NewHTTPProvider(cfg HTTPConfig, client *http.Client) (*HTTPProvider, error) {
	if _, err := url.Parse(cfg.BaseURL); err != nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("invalid provider url %q", cfg.BaseURL)
	}
	if cfg.Quality == "" {
		cfg.Quality = "very_high"
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &HTTPProvider{cfg: cfg, client: client, limiter: limiter}, nil
}

// Open implements Provider.
func (p *HTTPProvider) Open(ctx context.Context, id string) (Stream, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/tracks/%s/audio?quality=%s",
		strings.TrimRight(p.cfg.BaseURL, "/"), url.PathEscape(id), url.QueryEscape(p.cfg.Quality))

	header := nethttp.Header{}
	if p.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+p.cfg.Token)
	}

	body, size, err := p.client.Open(ctx, endpoint, header)
	if err != nil {
		return nil, classify(err)
	}
	return NewStream(body, size), nil
}

// Close implements Provider. HTTP sessions hold no server-side state.
func (p *HTTPProvider) Close() error {
	return nil
}

// RetryAfter returns the wait the provider asked for with a Retry-After
// header, zero when err carries none.
func RetryAfter(err error) time.Duration {
	var se *http.StatusError
	if errors.As(err, &se) {
		return se.RetryAfter
	}
	return 0
}

func classify(err error) error {
	var se *http.StatusError
	if !errors.As(err, &se) {
		return err
	}
	switch {
	case se.Code == nethttp.StatusTooManyRequests,
		se.Code == nethttp.StatusServiceUnavailable,
		se.Header.Get(KeyFailureHeader) != "":
		return TransientError(err)
	}
	return err
}

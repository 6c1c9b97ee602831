package transit

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/five82/frida/internal/config"
	"github.com/five82/frida/internal/logging"
)

// Fetcher produces fresh arrival snapshots. *Client implements it; tests and
// the fetch loop depend on the interface.
type Fetcher interface {
	FetchArrivals(ctx context.Context) (Snapshot, error)
}

// Ensure Client implements Fetcher at compile time.
var _ Fetcher = (*Client)(nil)

const (
	defaultUserAgent      = "frida/0.1"
	defaultRequestTimeout = 10 * time.Second
	maxBodyBytes          = 4 << 20
	maxRedirects          = 10

	stopIDParam  = "StopID"
	apiKeyHeader = "api_key"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Options configure a Client.
type Options struct {
	APIURL    string
	StopID    string
	APIKey    config.Secret
	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger
}

// Client talks to the predictions API for a single stop.
type Client struct {
	endpoint  *url.URL
	stopID    string
	apiKey    config.Secret
	http      *http.Client
	userAgent string
	logger    *slog.Logger
	now       func() time.Time
}

// NewClient validates opts and builds a Client.
func NewClient(opts Options) (*Client, error) {
	endpoint, err := parseEndpoint(opts.APIURL)
	if err != nil {
		return nil, err
	}
	stopID := strings.TrimSpace(opts.StopID)
	if stopID == "" {
		return nil, fmt.Errorf("stop id is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Client{
		endpoint: endpoint,
		stopID:   stopID,
		apiKey:   opts.APIKey,
		http: &http.Client{
			Timeout:       timeout,
			Transport:     newTransport(),
			CheckRedirect: checkRedirect,
		},
		userAgent: userAgent,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// newTransport clones the default transport with certificate verification
// left on and a TLS 1.2 floor.
func newTransport() *http.Transport {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return &http.Transport{TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12}}
	}
	t := base.Clone()
	t.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	return t
}

// checkRedirect drops the api_key header when a redirect leaves the original
// host or downgrades from https.
func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	origin := via[0].URL
	if req.URL.Host != origin.Host || (origin.Scheme == "https" && req.URL.Scheme != "https") {
		req.Header.Del(apiKeyHeader)
	}
	return nil
}

// StopID returns the stop this client queries.
func (c *Client) StopID() string {
	return c.stopID
}

// FetchArrivals performs one GET against the predictions endpoint and
// normalizes the result. Errors are always *FetchError.
func (c *Client) FetchArrivals(ctx context.Context) (Snapshot, error) {
	if c == nil {
		return Snapshot{}, &FetchError{Kind: KindTransport, Err: errors.New("client is nil")}
	}

	reqURL := c.requestURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return Snapshot{}, &FetchError{Kind: KindTransport, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", c.userAgent)
	if key := c.apiKey.Reveal(); key != "" {
		req.Header.Set(apiKeyHeader, key)
	}

	c.logger.Debug("requesting arrivals", "host", reqURL.Host, "path", reqURL.Path, "stop", c.stopID)

	resp, err := c.http.Do(req)
	if err != nil {
		return Snapshot{}, &FetchError{Kind: KindTransport, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return Snapshot{}, &FetchError{Kind: KindHTTP, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Snapshot{}, &FetchError{Kind: KindTransport, Err: fmt.Errorf("read body: %w", err)}
	}

	var payload predictionsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return Snapshot{}, &FetchError{Kind: KindDecode, Err: err}
	}

	var arrivals []Arrival
	if payload.Predictions == nil {
		c.logger.Warn("response has no Predictions field, treating as empty", "stop", c.stopID)
	} else {
		arrivals = make([]Arrival, 0, len(*payload.Predictions))
		for _, p := range *payload.Predictions {
			arrivals = append(arrivals, p.normalize())
		}
	}

	return NewSnapshot(c.stopID, strings.TrimSpace(payload.StopName), c.now(), arrivals), nil
}

func (c *Client) requestURL() *url.URL {
	u := *c.endpoint
	q := u.Query()
	q.Set(stopIDParam, c.stopID)
	u.RawQuery = q.Encode()
	return &u
}

func parseEndpoint(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("api url is required")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api_url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("api_url %q: missing host", raw)
	}
	u.Fragment = ""
	return u, nil
}

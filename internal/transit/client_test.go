package transit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/frida/internal/config"
	"github.com/five82/frida/internal/logging"
)

const testKey = "s3cr3t-key-value"

func newTestClient(t *testing.T, rawURL string, logger *slog.Logger) *Client {
	t.Helper()
	c, err := NewClient(Options{
		APIURL:    rawURL,
		StopID:    "1001195",
		APIKey:    config.Secret(testKey),
		Timeout:   2 * time.Second,
		UserAgent: "frida/test",
		Logger:    logger,
	})
	require.NoError(t, err)
	return c
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"empty url", Options{StopID: "1"}},
		{"bad scheme", Options{APIURL: "ftp://example.com", StopID: "1"}},
		{"no host", Options{APIURL: "https://", StopID: "1"}},
		{"empty stop", Options{APIURL: "https://example.com/p", StopID: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestClient_SendsHeadersAndQuery(t *testing.T) {
	t.Parallel()

	requests := make(chan *http.Request, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"StopName":"Main St","Predictions":[]}`))
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL+"/NextBusService.svc/json/jPredictions?format=json", nil)
	snap, err := c.FetchArrivals(testContext(t))
	require.NoError(t, err)

	got := <-requests
	assert.Equal(t, "/NextBusService.svc/json/jPredictions", got.URL.Path)
	assert.Equal(t, url.Values{"StopID": {"1001195"}, "format": {"json"}}, got.URL.Query())
	assert.Equal(t, testKey, got.Header.Get("api_key"))
	assert.Equal(t, "no-cache", got.Header.Get("Cache-Control"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Equal(t, "frida/test", got.Header.Get("User-Agent"))

	assert.Equal(t, "Main St", snap.StopName)
	assert.Equal(t, "1001195", snap.StopID)
	assert.False(t, snap.IsZero())
	assert.Zero(t, snap.Len())
}

func TestClient_NormalizesPredictions(t *testing.T) {
	t.Parallel()

	body := `{"Predictions":[
		{"RouteID":"70","DirectionText":"North to Silver Spring","Minutes":5},
		{"Line":"RD","DestinationName":"Glenmont","Min":"ARR"},
		{"Line":"RD","DestinationName":"Shady Grove","Min":"7"},
		{"RouteID":"S2","Minutes":-3},
		{"RouteID":42,"DirectionText":"","DestinationName":"Downtown","Minutes":"BRD"},
		{}
	]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	snap, err := newTestClient(t, server.URL, nil).FetchArrivals(testContext(t))
	require.NoError(t, err)

	assert.Equal(t, []Arrival{
		{Route: "70", Headsign: "North to Silver Spring", Minutes: 5},
		{Route: "RD", Headsign: "Glenmont", Minutes: 0},
		{Route: "RD", Headsign: "Shady Grove", Minutes: 7},
		{Route: "S2", Headsign: Unknown, Minutes: 0},
		{Route: "42", Headsign: "Downtown", Minutes: 0},
		{Route: Unknown, Headsign: Unknown, Minutes: 0},
	}, snap.Arrivals)
	for _, a := range snap.Arrivals {
		assert.GreaterOrEqual(t, a.Minutes, 0)
		assert.NotEmpty(t, a.Route)
		assert.NotEmpty(t, a.Headsign)
	}
}

func TestClient_MissingPredictionsIsEmptyWithWarning(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"StopName":"Main St"}`))
	}))
	t.Cleanup(server.Close)

	var logs bytes.Buffer
	logger := slog.New(logging.NewHandler(&logs, "frida", slog.LevelDebug))

	snap, err := newTestClient(t, server.URL, logger).FetchArrivals(testContext(t))
	require.NoError(t, err)
	assert.Empty(t, snap.Arrivals)
	assert.Contains(t, logs.String(), "WARNING - response has no Predictions field")
	assert.NotContains(t, logs.String(), testKey)
}

func TestClient_HTTPErrorCarriesStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	_, err := newTestClient(t, server.URL, nil).FetchArrivals(testContext(t))
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindHTTP, fe.Kind)
	assert.Equal(t, http.StatusInternalServerError, fe.Status)
	assert.Equal(t, "http status 500", err.Error())
}

func TestClient_MalformedBodyIsDecodeError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Predictions": [`))
	}))
	t.Cleanup(server.Close)

	_, err := newTestClient(t, server.URL, nil).FetchArrivals(testContext(t))
	assert.True(t, IsKind(err, KindDecode), "err = %v", err)
}

func TestClient_ConnectionRefusedIsTransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := server.URL
	server.Close()

	_, err := newTestClient(t, addr, nil).FetchArrivals(testContext(t))
	assert.True(t, IsKind(err, KindTransport), "err = %v", err)
}

func TestClient_RejectsUntrustedCertificate(t *testing.T) {
	t.Parallel()

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Predictions":[]}`))
	}))
	t.Cleanup(server.Close)

	_, err := newTestClient(t, server.URL, nil).FetchArrivals(testContext(t))
	assert.True(t, IsKind(err, KindTransport), "err = %v", err)
}

func TestClient_CancelledContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := newTestClient(t, server.URL, nil).FetchArrivals(ctx)
	assert.True(t, IsKind(err, KindTransport), "err = %v", err)
	assert.True(t, errors.Is(err, context.Canceled), "err = %v", err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_NilReceiver(t *testing.T) {
	var c *Client
	_, err := c.FetchArrivals(context.Background())
	assert.True(t, IsKind(err, KindTransport))
}

func TestClient_RedirectToOtherHostDropsAPIKey(t *testing.T) {
	t.Parallel()

	keys := make(chan string, 1)
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys <- r.Header.Get("api_key")
		_, _ = w.Write([]byte(`{"Predictions":[]}`))
	}))
	t.Cleanup(target.Close)

	// Same port, different host name: the client must treat it as foreign.
	targetURL, err := url.Parse(target.URL)
	require.NoError(t, err)
	other := "http://localhost:" + targetURL.Port() + "/moved"

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, other, http.StatusFound)
	}))
	t.Cleanup(origin.Close)

	_, err = newTestClient(t, origin.URL, nil).FetchArrivals(testContext(t))
	require.NoError(t, err)
	assert.Empty(t, <-keys)
}

func TestClient_RedirectOnSameHostKeepsAPIKey(t *testing.T) {
	t.Parallel()

	keys := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/moved" {
			http.Redirect(w, r, "/moved", http.StatusMovedPermanently)
			return
		}
		keys <- r.Header.Get("api_key")
		_, _ = w.Write([]byte(`{"Predictions":[]}`))
	}))
	t.Cleanup(server.Close)

	_, err := newTestClient(t, server.URL, nil).FetchArrivals(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, testKey, <-keys)
}

func TestCheckRedirect(t *testing.T) {
	mustReq := func(raw string) *http.Request {
		req, err := http.NewRequest(http.MethodGet, raw, nil)
		require.NoError(t, err)
		req.Header.Set("api_key", testKey)
		return req
	}

	tests := []struct {
		name    string
		origin  string
		next    string
		keepKey bool
	}{
		{"same host", "https://api.example.com/a", "https://api.example.com/b", true},
		{"other host", "https://api.example.com/a", "https://evil.example.net/b", false},
		{"https downgrade", "https://api.example.com/a", "http://api.example.com/b", false},
		{"other port", "http://api.example.com:8080/a", "http://api.example.com:9090/b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := mustReq(tt.next)
			require.NoError(t, checkRedirect(next, []*http.Request{mustReq(tt.origin)}))
			assert.Equal(t, tt.keepKey, next.Header.Get("api_key") != "")
		})
	}

	t.Run("too many redirects", func(t *testing.T) {
		via := make([]*http.Request, maxRedirects)
		for i := range via {
			via[i] = mustReq("https://api.example.com/a")
		}
		assert.Error(t, checkRedirect(mustReq("https://api.example.com/b"), via))
	})
}

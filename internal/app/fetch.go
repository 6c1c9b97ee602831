package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/five82/frida/internal/logging"
	"github.com/five82/frida/internal/publish"
	"github.com/five82/frida/internal/state"
	"github.com/five82/frida/internal/transit"
)

const (
	defaultRefreshInterval = 30 * time.Second
	defaultMaxBackoff      = 5 * time.Minute
)

// FetchLoop refreshes the store from the transit API until shutdown.
type FetchLoop struct {
	Fetcher  transit.Fetcher
	Store    *state.Store
	Interval time.Duration
	// Backoff stretches the wait after consecutive failures, up to
	// MaxBackoff. Off means a failure waits the normal interval.
	Backoff    bool
	MaxBackoff time.Duration
	// Publisher, when set, receives every stored snapshot.
	Publisher publish.Publisher
	Logger    *slog.Logger
}

// Run fetches, stores and sleeps until sig is set. It never retries within
// a cycle and never returns an error: a failed fetch leaves the previous
// snapshot in place.
func (l *FetchLoop) Run(sig *ShutdownSignal) {
	logger := l.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	interval := l.Interval
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	limit := l.MaxBackoff
	if limit <= 0 {
		limit = defaultMaxBackoff
	}

	failures := 0
	for !sig.IsSet() {
		failures = l.cycle(sig.Context(), logger, failures)

		wait := interval
		if l.Backoff {
			wait = calculateBackoff(failures, interval, limit)
		}
		if !sig.Sleep(wait) {
			return
		}
	}
}

// cycle performs one fetch and returns the updated failure streak.
func (l *FetchLoop) cycle(ctx context.Context, logger *slog.Logger, failures int) int {
	snap, err := l.Fetcher.FetchArrivals(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return failures
		}
		failures++
		l.Store.RecordFailure(err)
		logger.Warn("fetch failed, keeping previous arrivals",
			"error", err, "kind", errorKind(err), "failures", failures)
		return failures
	}

	l.Store.Write(snap)
	logger.Info("fetched arrivals", "stop", snap.StopID, "count", snap.Len())

	if l.Publisher != nil {
		if err := l.Publisher.Publish(ctx, snap); err != nil && ctx.Err() == nil {
			logger.Warn("publish failed", "error", err)
		}
	}
	return 0
}

func errorKind(err error) string {
	var fe *transit.FetchError
	if errors.As(err, &fe) {
		return fe.Kind.String()
	}
	return "unknown"
}

// calculateBackoff doubles base per consecutive failure, capped at limit.
func calculateBackoff(failures int, base, limit time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= limit || d <= 0 {
			return limit
		}
	}
	return d
}

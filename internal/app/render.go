package app

import (
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/five82/frida/internal/display"
	"github.com/five82/frida/internal/logging"
	"github.com/five82/frida/internal/state"
)

const (
	defaultRenderInterval = time.Second
	minRenderInterval     = 100 * time.Millisecond
	// footerRefreshFactor sets how many render intervals pass before an
	// unchanged snapshot is redrawn so its "updated N ago" footer moves.
	footerRefreshFactor = 60
)

// RenderLoop pushes the current snapshot to the display until shutdown.
type RenderLoop struct {
	Driver   display.Driver
	Store    *state.Store
	Interval time.Duration
	Logger   *slog.Logger
	Now      func() time.Time
}

// Run polls the store every Interval and renders when the snapshot changed
// or the footer is due a refresh. Render errors are logged; the loop keeps
// going.
func (l *RenderLoop) Run(sig *ShutdownSignal) {
	logger := l.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	now := l.Now
	if now == nil {
		now = time.Now
	}
	interval := l.Interval
	if interval <= 0 {
		interval = defaultRenderInterval
	}
	interval = max(interval, minRenderInterval)
	refreshEvery := interval * footerRefreshFactor

	var (
		lastID     ulid.ULID
		lastRender time.Time
		rendered   bool
	)
	for !sig.IsSet() {
		snap := l.Store.Read()
		ts := now()
		if !rendered || snap.ID != lastID || ts.Sub(lastRender) >= refreshEvery {
			if err := l.Driver.Render(snap); err != nil {
				logger.Warn("render failed", "error", err)
			} else {
				lastID, lastRender, rendered = snap.ID, ts, true
				logger.Debug("rendered", "arrivals", snap.Len())
			}
		}
		if !sig.Sleep(interval) {
			return
		}
	}
}

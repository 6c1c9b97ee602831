package display

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/frida/internal/logging"
	"github.com/five82/frida/internal/transit"
)

// FailureThreshold is the failure streak after which the Manager logs at
// error level and re-initializes the panel before the next draw.
const FailureThreshold = 3

const defaultDrainWait = 5 * time.Second

// Driver is what the supervisor and render loop need from a display.
type Driver interface {
	Initialize(model string, rotation int) error
	Render(snap transit.Snapshot) error
	Shutdown() error
}

// Ensure Manager implements Driver at compile time.
var _ Driver = (*Manager)(nil)

// Options configure a Manager.
type Options struct {
	// DevelopmentMode stubs out all panel operations.
	DevelopmentMode bool
	// SPIPort selects the SPI port for e-paper models; empty means the
	// first one found.
	SPIPort string
	// Out and In are the terminal streams for the terminal and tui models.
	Out io.Writer
	In  io.Reader
	// OnQuit is called when the user quits the tui.
	OnQuit func()
	// PrefsPath stores the tui theme choice.
	PrefsPath string
	// DrainWait bounds how long Shutdown waits for an in-flight draw.
	DrainWait time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

// Health summarizes the display for diagnostics.
type Health struct {
	Model               string
	DevelopmentMode     bool
	Initialized         bool
	Closed              bool
	ConsecutiveFailures int
	LastError           error
}

// Manager owns a panel and applies the failure policy.
type Manager struct {
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
	newPanel func(model string, rotation int) (Panel, error)

	// drawing is held for the duration of a draw so Shutdown can wait for it
	// without holding mu.
	drawing chan struct{}

	mu          sync.Mutex
	model       string
	panel       Panel
	initialized bool
	closed      bool
	needReinit  bool
	failures    int
	lastErr     error
}

// NewManager returns a Manager. Nothing touches hardware until Initialize.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.DrainWait <= 0 {
		opts.DrainWait = defaultDrainWait
	}
	m := &Manager{
		opts:    opts,
		logger:  logger,
		now:     now,
		drawing: make(chan struct{}, 1),
	}
	m.newPanel = func(model string, rotation int) (Panel, error) {
		return newPanel(model, rotation, m.opts, m.logger)
	}
	return m
}

// Initialize brings up the panel for model. In development mode it only
// records the model.
func (m *Manager) Initialize(model string, rotation int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return &InitError{Model: model, Err: ErrClosed}
	}
	if !ValidRotation(rotation) {
		return &InitError{Model: model, Err: fmt.Errorf("rotation %d must be 0, 90, 180 or 270", rotation)}
	}
	m.model = model

	if m.opts.DevelopmentMode {
		m.initialized = true
		m.logger.Info("development mode: display operations are stubbed", "model", model)
		return nil
	}

	panel, err := m.newPanel(model, rotation)
	if err != nil {
		return &InitError{Model: model, Err: err}
	}
	if err := panel.Init(); err != nil {
		_ = panel.Close()
		return &InitError{Model: model, Err: err}
	}
	m.panel = panel
	m.initialized = true
	m.logger.Info("display initialized", "model", model, "rotation", rotation)
	return nil
}

// Render draws snap. Failures come back as *RenderError and never panic.
func (m *Manager) Render(snap transit.Snapshot) error {
	m.drawing <- struct{}{}
	defer func() { <-m.drawing }()

	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return &RenderError{Err: ErrClosed}
	case !m.initialized:
		m.mu.Unlock()
		return &RenderError{Err: ErrNotInitialized}
	case m.opts.DevelopmentMode:
		m.mu.Unlock()
		m.logger.Debug("development mode: render skipped", "arrivals", snap.Len())
		return nil
	}
	panel, reinit := m.panel, m.needReinit
	m.mu.Unlock()

	err := m.draw(panel, reinit, ComposeFrame(snap, m.now()))

	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		if m.failures > 0 {
			m.logger.Info("display recovered", "after_failures", m.failures)
		}
		m.failures, m.lastErr, m.needReinit = 0, nil, false
		return nil
	}

	m.failures++
	m.lastErr = err
	if m.failures >= FailureThreshold {
		if m.failures == FailureThreshold {
			m.logger.Error("display failing repeatedly, reinitializing before next draw",
				"failures", m.failures, "error", err)
		}
		m.needReinit = true
	}
	return &RenderError{Consecutive: m.failures, Err: err}
}

// draw runs outside mu; a panel panic becomes an error.
func (m *Manager) draw(panel Panel, reinit bool, f Frame) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panel panic: %v", r)
		}
	}()
	if reinit {
		_ = panel.Close()
		if err := panel.Init(); err != nil {
			return fmt.Errorf("reinitialize: %w", err)
		}
		m.logger.Info("display reinitialized", "model", m.model)
	}
	return panel.Draw(f)
}

// Shutdown puts the panel to sleep and releases it. It is safe to call
// before Initialize and more than once.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	panel := m.panel
	m.panel = nil
	m.mu.Unlock()

	if panel == nil {
		return nil
	}

	select {
	case m.drawing <- struct{}{}:
		defer func() { <-m.drawing }()
	case <-time.After(m.opts.DrainWait):
		m.logger.Warn("draw still in progress, closing display anyway", "waited", m.opts.DrainWait)
	}

	if err := panel.Close(); err != nil {
		return fmt.Errorf("close display: %w", err)
	}
	m.logger.Info("display shut down", "model", m.model)
	return nil
}

// Health returns the current display status.
func (m *Manager) Health() Health {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Health{
		Model:               m.model,
		DevelopmentMode:     m.opts.DevelopmentMode,
		Initialized:         m.initialized,
		Closed:              m.closed,
		ConsecutiveFailures: m.failures,
		LastError:           m.lastErr,
	}
}

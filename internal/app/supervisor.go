package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/frida/internal/config"
	"github.com/five82/frida/internal/display"
	"github.com/five82/frida/internal/logging"
	"github.com/five82/frida/internal/publish"
	"github.com/five82/frida/internal/state"
	"github.com/five82/frida/internal/transit"
)

// ErrFatal wraps an unexpected failure inside a loop. Run returns it and the
// process exits non-zero.
var ErrFatal = errors.New("fatal loop error")

const defaultLoopTimeout = 5 * time.Second

// Phase is the supervisor lifecycle state.
type Phase int32

const (
	PhaseCreated Phase = iota
	PhaseInitializing
	PhaseRunning
	PhaseShuttingDown
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseInitializing:
		return "initializing"
	case PhaseRunning:
		return "running"
	case PhaseShuttingDown:
		return "shutting_down"
	case PhaseStopped:
		return "stopped"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Options override what the supervisor would otherwise build from config.
// Tests use them to inject fakes.
type Options struct {
	Logger    *slog.Logger
	UserAgent string
	Fetcher   transit.Fetcher
	Driver    display.Driver
	Publisher publish.Publisher
	// Out and In are handed to the terminal and tui display models.
	Out io.Writer
	In  io.Reader
}

// Status is a point-in-time view for diagnostics.
type Status struct {
	Phase    Phase
	Snapshot transit.Snapshot
	Fetch    state.Health
	Display  *display.Health
}

// Supervisor owns the store, the two loops and the display lifecycle.
type Supervisor struct {
	cfg    config.Config
	opts   Options
	logger *slog.Logger

	phase  atomic.Int32
	signal *ShutdownSignal
	store  *state.Store

	compMu    sync.RWMutex
	fetcher   transit.Fetcher
	driver    display.Driver
	publisher publish.Publisher

	cleanupOnce sync.Once
	fatalMu     sync.Mutex
	fatal       error
}

type connector interface {
	Connect(ctx context.Context) error
}

type healthReporter interface {
	Health() display.Health
}

// NewSupervisor prepares a supervisor for cfg. Nothing is started until Run.
func NewSupervisor(cfg config.Config, opts Options) *Supervisor {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Supervisor{
		cfg:    cfg,
		opts:   opts,
		logger: logger,
		signal: NewShutdownSignal(),
		store:  &state.Store{},
	}
}

// Phase returns the current lifecycle state. Safe for concurrent use.
func (s *Supervisor) Phase() Phase {
	return Phase(s.phase.Load())
}

func (s *Supervisor) setPhase(p Phase) {
	s.phase.Store(int32(p))
	s.logger.Debug("phase changed", "phase", p.String())
}

// Shutdown asks a running supervisor to stop. Run returns once the loops
// have joined and the display has been released.
func (s *Supervisor) Shutdown() {
	s.signal.Set()
}

// Snapshot returns the current arrivals snapshot.
func (s *Supervisor) Snapshot() transit.Snapshot {
	return s.store.Read()
}

// Status reports phase, data and health.
func (s *Supervisor) Status() Status {
	st := Status{Phase: s.Phase(), Snapshot: s.store.Read(), Fetch: s.store.Health()}
	s.compMu.RLock()
	driver := s.driver
	s.compMu.RUnlock()
	if hr, ok := driver.(healthReporter); ok {
		h := hr.Health()
		st.Display = &h
	}
	return st
}

// Run initializes every component, runs both loops until ctx is cancelled
// or Shutdown is called, then tears everything down. The display is shut
// down exactly once on every path out of Run.
func (s *Supervisor) Run(ctx context.Context) error {
	if !s.phase.CompareAndSwap(int32(PhaseCreated), int32(PhaseInitializing)) {
		return fmt.Errorf("supervisor already started (phase %s)", s.Phase())
	}
	stop := context.AfterFunc(ctx, s.signal.Set)
	defer stop()
	defer s.setPhase(PhaseStopped)
	defer s.cleanup()

	s.logger.Debug("phase changed", "phase", PhaseInitializing.String())
	if err := s.initialize(); err != nil {
		s.signal.Set()
		s.logger.Error("startup failed", "error", err)
		return err
	}

	s.setPhase(PhaseRunning)
	s.logger.Info("running",
		"stop", s.cfg.Transit.StopID,
		"model", s.cfg.Display.Model,
		"refresh", s.cfg.Transit.RefreshInterval(),
		"development_mode", s.cfg.DevelopmentMode,
	)

	fetch := &FetchLoop{
		Fetcher:    s.fetcher,
		Store:      s.store,
		Interval:   s.cfg.Transit.RefreshInterval(),
		Backoff:    s.cfg.Transit.Backoff,
		MaxBackoff: s.cfg.Transit.MaxBackoff.Duration(),
		Publisher:  s.publisher,
		Logger:     logging.Named(s.logger, "fetch"),
	}
	render := &RenderLoop{
		Driver:   s.driver,
		Store:    s.store,
		Interval: s.cfg.Display.RenderInterval.Duration(),
		Logger:   logging.Named(s.logger, "render"),
	}

	var g errgroup.Group
	loops := []struct {
		name string
		done chan struct{}
	}{
		{"fetch", s.launch(&g, "fetch", fetch.Run)},
		{"render", s.launch(&g, "render", render.Run)},
	}

	<-s.signal.Done()
	s.setPhase(PhaseShuttingDown)
	s.logger.Info("shutting down")

	timeout := s.cfg.Shutdown.LoopTimeout.Duration()
	if timeout <= 0 {
		timeout = defaultLoopTimeout
	}
	joined := true
	for _, l := range loops {
		if !joinWithin(l.done, timeout) {
			joined = false
			s.logger.Warn("loop did not stop in time, continuing shutdown", "loop", l.name, "timeout", timeout)
		}
	}
	if joined {
		return g.Wait()
	}
	return s.fatalErr()
}

// launch starts fn in g and returns a channel closed when it returns. A
// panic becomes ErrFatal and raises the shutdown signal.
func (s *Supervisor) launch(g *errgroup.Group, name string, fn func(*ShutdownSignal)) chan struct{} {
	done := make(chan struct{})
	g.Go(func() (err error) {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %s loop panicked: %v", ErrFatal, name, r)
				s.setFatal(err)
				s.logger.Error("loop crashed", "loop", name, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
				s.signal.Set()
			}
		}()
		fn(s.signal)
		return nil
	})
	return done
}

func joinWithin(done <-chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

func (s *Supervisor) setFatal(err error) {
	s.fatalMu.Lock()
	defer s.fatalMu.Unlock()
	if s.fatal == nil {
		s.fatal = err
	}
}

func (s *Supervisor) fatalErr() error {
	s.fatalMu.Lock()
	defer s.fatalMu.Unlock()
	return s.fatal
}

// initialize builds whatever Options did not supply and brings the display
// up. The fetcher is built before the display is initialized so a bad URL
// fails before any hardware is touched.
func (s *Supervisor) initialize() error {
	driver := s.opts.Driver
	if driver == nil {
		driver = display.NewManager(display.Options{
			DevelopmentMode: s.cfg.DevelopmentMode,
			SPIPort:         s.cfg.Display.SPIPort,
			Out:             s.opts.Out,
			In:              s.opts.In,
			OnQuit:          s.Shutdown,
			Logger:          logging.Named(s.logger, "display"),
		})
	}
	s.compMu.Lock()
	s.driver = driver
	s.compMu.Unlock()

	fetcher := s.opts.Fetcher
	if fetcher == nil {
		client, err := transit.NewClient(transit.Options{
			APIURL:    s.cfg.Transit.APIURL,
			StopID:    s.cfg.Transit.StopID,
			APIKey:    s.cfg.Transit.APIKey,
			Timeout:   s.cfg.Transit.RequestTimeout.Duration(),
			UserAgent: s.opts.UserAgent,
			Logger:    logging.Named(s.logger, "transit"),
		})
		if err != nil {
			return fmt.Errorf("init transit client: %w", err)
		}
		fetcher = client
	}
	s.fetcher = fetcher

	if err := driver.Initialize(s.cfg.Display.Model, s.cfg.Display.Rotation); err != nil {
		return err
	}

	pub := s.opts.Publisher
	if pub == nil && s.cfg.MQTT.Enabled() {
		pub = publish.NewMQTT(publish.Options{
			Broker:   s.cfg.MQTT.Broker,
			Topic:    s.cfg.MQTT.Topic,
			ClientID: s.cfg.MQTT.ClientID,
			Logger:   logging.Named(s.logger, "publish"),
		})
	}
	if c, ok := pub.(connector); ok {
		if err := c.Connect(s.signal.Context()); err != nil {
			s.logger.Warn("publisher unavailable, continuing without it", "error", err)
			pub = nil
		}
	}
	s.publisher = pub
	return nil
}

// cleanup releases the display and publisher. It runs once.
func (s *Supervisor) cleanup() {
	s.cleanupOnce.Do(func() {
		if s.publisher != nil {
			s.publisher.Close()
		}
		if s.driver != nil {
			if err := s.driver.Shutdown(); err != nil {
				s.logger.Warn("display shutdown failed", "error", err)
			}
		}
		s.logger.Info("stopped", stoppedAttrs(s.store.Health())...)
	})
}

func stoppedAttrs(h state.Health) []any {
	var lastSuccess any = "never"
	if !h.LastSuccess.IsZero() {
		lastSuccess = h.LastSuccess
	}
	return []any{"last_success", lastSuccess, "consecutive_failures", h.ConsecutiveFailures}
}

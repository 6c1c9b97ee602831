package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/five82/frida/internal/config"
	"github.com/five82/frida/internal/transit"
)

// scriptedFetcher returns results in order and repeats the last one.
type scriptedFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	calls   int
	block   chan struct{} // when set, FetchArrivals blocks on it ignoring ctx
	panics  bool
}

type fetchResult struct {
	snap transit.Snapshot
	err  error
}

func (f *scriptedFetcher) FetchArrivals(ctx context.Context) (transit.Snapshot, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	block, panics := f.block, f.panics
	var r fetchResult
	if len(f.results) > 0 {
		r = f.results[min(n, len(f.results))-1]
	}
	f.mu.Unlock()

	if panics {
		panic("decoder exploded")
	}
	if block != nil {
		<-block
	}
	return r.snap, r.err
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var errTransport = &transit.FetchError{Kind: transit.KindTransport, Err: errors.New("dial tcp: connection refused")}

// fakeDriver counts lifecycle calls.
type fakeDriver struct {
	mu        sync.Mutex
	initErr   error
	renderErr error
	inits     int
	renders   []transit.Snapshot
	shutdowns int
}

func (d *fakeDriver) Initialize(string, int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inits++
	return d.initErr
}

func (d *fakeDriver) Render(snap transit.Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.renders = append(d.renders, snap)
	return d.renderErr
}

func (d *fakeDriver) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shutdowns++
	return nil
}

func (d *fakeDriver) Renders() []transit.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]transit.Snapshot(nil), d.renders...)
}

func (d *fakeDriver) Shutdowns() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdowns
}

type fakePublisher struct {
	mu         sync.Mutex
	connectErr error
	published  []transit.Snapshot
	closed     int
}

func (p *fakePublisher) Connect(context.Context) error { return p.connectErr }

func (p *fakePublisher) Publish(_ context.Context, snap transit.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, snap)
	return nil
}

func (p *fakePublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
}

func (p *fakePublisher) Published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func snapshotOf(routes ...string) transit.Snapshot {
	arrivals := make([]transit.Arrival, 0, len(routes))
	for i, r := range routes {
		arrivals = append(arrivals, transit.Arrival{Route: r, Headsign: "North", Minutes: i})
	}
	return transit.NewSnapshot("1001195", "Main St", time.Now(), arrivals)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.DevelopmentMode = true
	cfg.Display.Model = "terminal"
	cfg.Display.RenderInterval = config.Duration(100 * time.Millisecond)
	cfg.Transit.APIURL = "https://api.example.test/NextBusService.svc/json/jPredictions"
	cfg.Transit.StopID = "1001195"
	cfg.Transit.RefreshIntervalSeconds = 1
	cfg.Shutdown.LoopTimeout = config.Duration(time.Second)
	return cfg
}

package app

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/frida/internal/state"
)

func runRenderLoop(l *RenderLoop) (*ShutdownSignal, <-chan struct{}) {
	sig := NewShutdownSignal()
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(sig)
	}()
	return sig, done
}

func TestRenderLoop_RendersOnChangeOnly(t *testing.T) {
	store := &state.Store{}
	driver := &fakeDriver{}
	fixed := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	sig, done := runRenderLoop(&RenderLoop{Driver: driver, Store: store, Interval: 10 * time.Millisecond, Now: func() time.Time { return fixed }})
	t.Cleanup(func() { sig.Set(); <-done })

	// The empty snapshot is drawn once so the board shows "waiting for data".
	require.Eventually(t, func() bool { return len(driver.Renders()) == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, driver.Renders()[0].IsZero())

	a := snapshotOf("70")
	store.Write(a)
	require.Eventually(t, func() bool { return len(driver.Renders()) == 2 }, time.Second, 5*time.Millisecond)

	b := snapshotOf("S2")
	store.Write(b)
	require.Eventually(t, func() bool { return len(driver.Renders()) == 3 }, time.Second, 5*time.Millisecond)

	time.Sleep(300 * time.Millisecond)
	renders := driver.Renders()
	require.Len(t, renders, 3)
	assert.Equal(t, a.ID, renders[1].ID)
	assert.Equal(t, b.ID, renders[2].ID)
}

func TestRenderLoop_RefreshesFooterPeriodically(t *testing.T) {
	store := &state.Store{}
	store.Write(snapshotOf("70"))
	driver := &fakeDriver{}

	var mu sync.Mutex
	clock := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}

	// 100ms interval: a redraw is due after 6s of (fake) time.
	sig, done := runRenderLoop(&RenderLoop{Driver: driver, Store: store, Interval: 100 * time.Millisecond, Now: now})
	t.Cleanup(func() { sig.Set(); <-done })

	require.Eventually(t, func() bool { return len(driver.Renders()) >= 2 }, 3*time.Second, 10*time.Millisecond)
	renders := driver.Renders()
	assert.Equal(t, renders[0].ID, renders[1].ID)
}

func TestRenderLoop_ContinuesAfterRenderErrors(t *testing.T) {
	store := &state.Store{}
	driver := &fakeDriver{renderErr: assert.AnError}

	sig, done := runRenderLoop(&RenderLoop{Driver: driver, Store: store, Interval: 10 * time.Millisecond})
	require.Eventually(t, func() bool { return len(driver.Renders()) >= 3 }, 2*time.Second, 5*time.Millisecond)

	sig.Set()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("render loop did not exit after shutdown")
	}
}

func TestRenderLoop_EnforcesMinimumInterval(t *testing.T) {
	store := &state.Store{}
	driver := &fakeDriver{renderErr: assert.AnError}

	sig, done := runRenderLoop(&RenderLoop{Driver: driver, Store: store, Interval: time.Millisecond})
	time.Sleep(250 * time.Millisecond)
	sig.Set()
	<-done

	assert.LessOrEqual(t, len(driver.Renders()), 4)
}

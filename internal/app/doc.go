// Package app runs the arrival board: a Supervisor that owns the shared
// store and two independent loops.
//
// # Lifecycle
//
//	Created → Initializing → Running → ShuttingDown → Stopped
//
// Initializing builds the transit client, the display Manager and the
// optional MQTT publisher, then initializes the display. A display failure
// aborts Run with the *display.InitError. Running starts the loops and
// blocks on the ShutdownSignal, which is raised by cancelling Run's context
// (SIGINT/SIGTERM in the CLI), by Shutdown, by the tui quit key, or by a
// loop panic. ShuttingDown joins each loop, waiting at most
// shutdown.loop_timeout for each. Stopped releases the display exactly once,
// whatever path led there.
//
// # Loops
//
//	FetchLoop                         RenderLoop
//	┌───────────────────────────┐    ┌───────────────────────────┐
//	│ FetchArrivals(ctx)        │    │ store.Read()              │
//	│  ok:   store.Write, publish│    │ changed or footer stale?  │
//	│  fail: RecordFailure, warn│    │   driver.Render(snap)     │
//	│ sleep interval (backoff)  │    │ sleep render_interval     │
//	└───────────────────────────┘    └───────────────────────────┘
//
// Neither loop returns an error for a failed fetch or render. Every wait
// selects on the ShutdownSignal, and the signal's context is passed to the
// HTTP request, so a loop notices shutdown within one wait.
//
// # Errors
//
// Run returns nil after a normal shutdown, the init error if startup
// failed, or an error wrapping ErrFatal if a loop panicked.
package app

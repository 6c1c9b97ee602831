// Package state holds the one piece of data the fetch and render loops share.
//
// # Overview
//
// Store contains the current transit.Snapshot. The fetch loop is the only
// writer; the render loop, the supervisor's diagnostics and the fetch CLI
// command read it.
//
//	fetch loop                      render loop
//	┌──────────────────┐           ┌──────────────────┐
//	│ FetchArrivals()  │           │ store.Read()     │
//	│ store.Write()    │──────────→│ driver.Render()  │
//	│ or RecordFailure │  (mutex)  │                  │
//	└──────────────────┘           └──────────────────┘
//
// # Semantics
//
//   - Write replaces the snapshot in whole; readers see either the old or the
//     new one, never a mix.
//   - RecordFailure only updates Health. A failed fetch never clears or
//     alters the snapshot on screen.
//   - Read and Health return copies, so callers may modify what they get.
//
// The lock is held only for the copy, never across network I/O or a panel
// refresh. The zero Store is ready to use and reads as the empty snapshot.
package state

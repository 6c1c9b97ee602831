// Package display draws arrival boards.
//
// Manager implements Driver and owns one Panel chosen by model name:
//
//	epd2in13_V2, waveshare2in13v2   Waveshare 2.13" v2 e-paper HAT over SPI
//	terminal                        bordered board printed to stdout
//	tui                             full-screen bubbletea table
//
// In development mode no panel is created and every operation succeeds
// without touching hardware.
//
// Render composes a Frame from the snapshot and hands it to the panel. A
// failed or panicking draw comes back as *RenderError. After
// FailureThreshold failures in a row the Manager logs once at error level
// and re-initializes the panel before the next draw. Shutdown sleeps and
// releases the panel; it may be called any number of times.
package display

package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/five82/frida/internal/transit"
)

// MaxRows is the number of arrivals a frame carries.
const MaxRows = 6

const (
	waitingText    = "waiting for data"
	noArrivalsText = "No arrivals"
)

// Row is one arrival as it appears on the board.
type Row struct {
	Route    string
	Headsign string
	Minutes  int
	Due      string
}

// Frame is the text board handed to a panel.
type Frame struct {
	Title  string
	Rows   []Row
	Footer string
	// Waiting is set when no fetch has succeeded yet.
	Waiting bool
}

// ComposeFrame builds the board for snap as seen at now.
func ComposeFrame(snap transit.Snapshot, now time.Time) Frame {
	f := Frame{Title: title(snap)}
	if snap.IsZero() {
		f.Waiting = true
		f.Footer = waitingText
		return f
	}

	n := min(len(snap.Arrivals), MaxRows)
	f.Rows = make([]Row, 0, n)
	for _, a := range snap.Arrivals[:n] {
		f.Rows = append(f.Rows, Row{
			Route:    a.Route,
			Headsign: a.Headsign,
			Minutes:  a.Minutes,
			Due:      DueLabel(a.Minutes),
		})
	}
	f.Footer = "updated " + humanize.RelTime(snap.AsOf, now, "ago", "from now")
	return f
}

// DueLabel renders minutes as "Due" or "5m".
func DueLabel(minutes int) string {
	if minutes <= 0 {
		return "Due"
	}
	return fmt.Sprintf("%dm", minutes)
}

func title(snap transit.Snapshot) string {
	switch {
	case strings.TrimSpace(snap.StopName) != "":
		return snap.StopName
	case snap.StopID != "":
		return "Stop " + snap.StopID
	default:
		return "Arrivals"
	}
}

// Lines lays the frame out as plain text no wider than width columns.
// width <= 0 disables truncation.
func (f Frame) Lines(width int) []string {
	lines := []string{clip(f.Title, width)}
	switch {
	case f.Waiting:
	case len(f.Rows) == 0:
		lines = append(lines, clip(noArrivalsText, width))
	default:
		routeW := 0
		for _, r := range f.Rows {
			routeW = max(routeW, len([]rune(r.Route)))
		}
		for _, r := range f.Rows {
			lines = append(lines, formatRow(r, routeW, width))
		}
	}
	return append(lines, clip(f.Footer, width))
}

// formatRow right-aligns the due label and gives the headsign whatever
// width is left.
func formatRow(r Row, routeW, width int) string {
	route := r.Route + strings.Repeat(" ", routeW-len([]rune(r.Route)))
	if width <= 0 {
		return route + "  " + r.Headsign + "  " + r.Due
	}
	room := width - routeW - len(r.Due) - 3
	if room < 1 {
		return clip(route+" "+r.Due, width)
	}
	head := clip(r.Headsign, room)
	pad := width - routeW - 1 - len([]rune(head)) - len(r.Due)
	return route + " " + head + strings.Repeat(" ", max(pad, 1)) + r.Due
}

func clip(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width == 1 {
		return string(runes[:1])
	}
	return string(runes[:width-1]) + "~"
}

package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const maxHeadsignWidth = 32

// terminalPanel prints each frame as a bordered board. It is the panel for
// running without hardware while still seeing output.
type terminalPanel struct {
	out    io.Writer
	styles Styles
}

func newTerminalPanel(out io.Writer) *terminalPanel {
	if out == nil {
		out = os.Stdout
	}
	return &terminalPanel{out: out, styles: GetTheme(DefaultTheme).Styles()}
}

func (p *terminalPanel) Init() error { return nil }

func (p *terminalPanel) Draw(f Frame) error {
	_, err := fmt.Fprintln(p.out, renderBoard(f, p.styles))
	return err
}

func (p *terminalPanel) Close() error { return nil }

func renderBoard(f Frame, s Styles) string {
	lines := []string{s.Title.Render(f.Title)}

	switch {
	case f.Waiting:
	case len(f.Rows) == 0:
		lines = append(lines, s.Muted.Render(noArrivalsText))
	default:
		routeW, headW := 0, 0
		for _, r := range f.Rows {
			routeW = max(routeW, lipgloss.Width(r.Route))
			headW = max(headW, lipgloss.Width(clip(r.Headsign, maxHeadsignWidth)))
		}
		for _, r := range f.Rows {
			route := r.Route + strings.Repeat(" ", routeW-lipgloss.Width(r.Route))
			head := clip(r.Headsign, maxHeadsignWidth)
			head += strings.Repeat(" ", headW-lipgloss.Width(head))
			due := fmt.Sprintf("%4s", r.Due)
			lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
				s.Route.Render(route), "  ",
				s.Text.Render(head), "  ",
				s.MinutesStyle(r.Minutes).Render(due),
			))
		}
	}

	lines = append(lines, s.Muted.Render(f.Footer))
	return s.Board.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

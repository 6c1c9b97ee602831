package display

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/frida/internal/prefs"
)

const tuiCloseWait = 2 * time.Second

var errTUIExited = errors.New("tui program exited")

// frameMsg delivers a new frame to the running program.
type frameMsg Frame

// tuiModel is the bubbletea model behind the tui panel.
type tuiModel struct {
	frame  Frame
	table  table.Model
	theme  Theme
	styles Styles

	onQuit  func()
	onTheme func(name string)
}

func newTUIModel(themeName string, onQuit func(), onTheme func(string)) tuiModel {
	theme := GetTheme(themeName)
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Route", Width: 6},
			{Title: "Destination", Width: maxHeadsignWidth},
			{Title: "Due", Width: 5},
		}),
		table.WithHeight(MaxRows+2),
		table.WithWidth(6+maxHeadsignWidth+5+6),
		table.WithFocused(false),
	)
	m := tuiModel{table: t, onQuit: onQuit, onTheme: onTheme, frame: Frame{Footer: waitingText, Waiting: true}}
	m.applyTheme(theme)
	return m
}

func (m *tuiModel) applyTheme(theme Theme) {
	m.theme = theme
	m.styles = theme.Styles()

	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(theme.Border)).
		BorderBottom(true).
		Foreground(lipgloss.Color(theme.Accent)).
		Bold(true)
	ts.Cell = ts.Cell.Foreground(lipgloss.Color(theme.Text))
	ts.Selected = ts.Cell
	m.table.SetStyles(ts)
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.frame = Frame(msg)
		m.table.SetRows(tableRows(m.frame))
		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.onQuit != nil {
				m.onQuit()
			}
			return m, tea.Quit
		case "t":
			name := NextTheme(m.theme.Name)
			m.applyTheme(GetTheme(name))
			if m.onTheme != nil {
				m.onTheme(name)
			}
			return m, nil
		}
	}
	return m, nil
}

func (m tuiModel) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(m.frame.Title))
	b.WriteString("\n")
	if !m.frame.Waiting {
		b.WriteString(m.table.View())
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Muted.Render(m.frame.Footer))
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("q quit · t theme"))
	return b.String()
}

func tableRows(f Frame) []table.Row {
	rows := make([]table.Row, 0, len(f.Rows))
	for _, r := range f.Rows {
		rows = append(rows, table.Row{r.Route, r.Headsign, r.Due})
	}
	return rows
}

// tuiPanel runs a bubbletea program and feeds it frames. It never reads the
// store; frames arrive only through Draw.
type tuiPanel struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

func newTUIPanel(opts Options, logger *slog.Logger) *tuiPanel {
	return &tuiPanel{opts: opts, logger: logger}
}

func (p *tuiPanel) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.program != nil {
		return nil
	}

	prefsPath := p.opts.PrefsPath
	saved, _ := prefs.Load(prefsPath)
	onTheme := func(name string) {
		if err := prefs.Save(prefsPath, prefs.Prefs{Theme: name}); err != nil {
			p.logger.Warn("save theme preference failed", "error", err)
		}
	}

	var teaOpts []tea.ProgramOption
	if p.opts.Out != nil {
		teaOpts = append(teaOpts, tea.WithOutput(p.opts.Out))
	} else {
		teaOpts = append(teaOpts, tea.WithAltScreen())
	}
	if p.opts.In != nil {
		teaOpts = append(teaOpts, tea.WithInput(p.opts.In))
	}
	teaOpts = append(teaOpts, tea.WithoutSignalHandler())

	program := tea.NewProgram(newTUIModel(saved.Theme, p.opts.OnQuit, onTheme), teaOpts...)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			p.logger.Warn("tui program stopped", "error", err)
		}
	}()
	p.program, p.done = program, done
	return nil
}

func (p *tuiPanel) Draw(f Frame) error {
	p.mu.Lock()
	program, done := p.program, p.done
	p.mu.Unlock()
	if program == nil {
		return ErrNotInitialized
	}
	select {
	case <-done:
		return errTUIExited
	default:
	}
	program.Send(frameMsg(f))
	return nil
}

func (p *tuiPanel) Close() error {
	p.mu.Lock()
	program, done := p.program, p.done
	p.program, p.done = nil, nil
	p.mu.Unlock()
	if program == nil {
		return nil
	}
	program.Quit()
	select {
	case <-done:
	case <-time.After(tuiCloseWait):
		program.Kill()
		<-done
	}
	return nil
}

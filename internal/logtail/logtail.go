package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/frida/internal/logging"
)

const timeLayout = "2006-01-02 15:04:05,000"

// Entry is one parsed log line.
type Entry struct {
	Time    time.Time
	Logger  string
	Level   slog.Level
	Message string
}

// Parse splits a "timestamp - logger - LEVEL - message" line. ok is false
// for lines in any other shape, such as a panic trace.
func Parse(line string) (Entry, bool) {
	parts := strings.SplitN(line, " - ", 4)
	if len(parts) != 4 {
		return Entry{}, false
	}
	ts, err := time.ParseInLocation(timeLayout, parts[0], time.Local)
	if err != nil {
		return Entry{}, false
	}
	level, err := logging.ParseLevel(parts[2])
	if err != nil || parts[2] == "" {
		return Entry{}, false
	}
	return Entry{Time: ts, Logger: parts[1], Level: level, Message: parts[3]}, true
}

// Options control Read.
type Options struct {
	// Lines caps the result to the last N matching lines. Zero or less
	// returns every matching line.
	Lines int
	// MinLevel drops parsed lines below it. Unparseable lines are kept only
	// when MinLevel is empty.
	MinLevel string
}

// Read returns the tail of the log file at path. A missing file is not an
// error; it simply has no lines.
func Read(path string, opts Options) ([]string, error) {
	filter := func(string) bool { return true }
	if strings.TrimSpace(opts.MinLevel) != "" {
		minLevel, err := logging.ParseLevel(opts.MinLevel)
		if err != nil {
			return nil, err
		}
		filter = func(line string) bool {
			e, ok := Parse(line)
			return ok && e.Level >= minLevel
		}
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if opts.Lines <= 0 {
		var lines []string
		for scanner.Scan() {
			if line := scanner.Text(); filter(line) {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	limit := opts.Lines
	ring := make([]string, limit)
	count, idx := 0, 0
	for scanner.Scan() {
		line := scanner.Text()
		if !filter(line) {
			continue
		}
		ring[idx] = line
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == limit {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

var levelStyles = map[string]lipgloss.Style{
	"DEBUG":   lipgloss.NewStyle().Foreground(lipgloss.Color("#738091")),
	"INFO":    lipgloss.NewStyle().Foreground(lipgloss.Color("#63cdcf")),
	"WARNING": lipgloss.NewStyle().Foreground(lipgloss.Color("#dbc074")).Bold(true),
	"ERROR":   lipgloss.NewStyle().Foreground(lipgloss.Color("#c94f6d")).Bold(true),
}

// Colorize highlights the level of a parsed line. Other lines pass through.
func Colorize(line string) string {
	parts := strings.SplitN(line, " - ", 4)
	if len(parts) != 4 {
		return line
	}
	style, ok := levelStyles[parts[2]]
	if !ok {
		return line
	}
	parts[2] = style.Render(parts[2])
	return strings.Join(parts, " - ")
}

// Package logging provides the process-wide slog sink.
//
// Lines use the format
//
//	2006-01-02 15:04:05,000 - frida.transit - WARNING - fetch failed error="..."
//
// and go to stdout and, optionally, to a log file whose directory is created
// on demand. Component loggers are derived with Named and passed explicitly.
package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// NameKey is the attribute key Handler treats as the logger name.
const NameKey = "logger"

// RootName is the logger name used when none is given.
const RootName = "frida"

const timeLayout = "2006-01-02 15:04:05,000"

// Handler is a slog.Handler writing "timestamp - name - LEVEL - message" lines.
type Handler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	name   string
	prefix string // preformatted attrs from WithAttrs
	groups []string
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler returns a Handler writing to w.
func NewHandler(w io.Writer, name string, level slog.Leveler) *Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	if strings.TrimSpace(name) == "" {
		name = RootName
	}
	return &Handler{mu: &sync.Mutex{}, w: w, level: level, name: name}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf.WriteString(ts.Format(timeLayout))
	buf.WriteString(" - ")
	buf.WriteString(h.name)
	buf.WriteString(" - ")
	buf.WriteString(LevelName(r.Level))
	buf.WriteString(" - ")
	buf.WriteString(r.Message)
	buf.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&buf, h.groups, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// WithAttrs implements slog.Handler. A NameKey attribute extends the logger
// name ("frida" + "transit" = "frida.transit") instead of being printed.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	var buf bytes.Buffer
	for _, a := range attrs {
		if a.Key == NameKey && len(h.groups) == 0 {
			child := strings.TrimSpace(a.Value.Resolve().String())
			if child != "" {
				next.name = h.name + "." + child
			}
			continue
		}
		appendAttr(&buf, h.groups, a)
	}
	next.prefix = h.prefix + buf.String()
	return next
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.groups = append(append([]string(nil), h.groups...), name)
	return next
}

func (h *Handler) clone() *Handler {
	dup := *h
	return &dup
}

// LevelName maps slog levels onto the DEBUG/INFO/WARNING/ERROR vocabulary.
func LevelName(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARNING"
	default:
		return "ERROR"
	}
}

// ParseLevel accepts debug, info, warn, warning and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func appendAttr(buf *bytes.Buffer, groups []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		nested := groups
		if a.Key != "" {
			nested = append(append([]string(nil), groups...), a.Key)
		}
		for _, ga := range a.Value.Group() {
			appendAttr(buf, nested, ga)
		}
		return
	}

	buf.WriteByte(' ')
	for _, g := range groups {
		buf.WriteString(g)
		buf.WriteByte('.')
	}
	buf.WriteString(a.Key)
	buf.WriteByte('=')

	var val string
	switch a.Value.Kind() {
	case slog.KindTime:
		val = a.Value.Time().Format(time.RFC3339)
	case slog.KindDuration:
		val = a.Value.Duration().String()
	default:
		val = a.Value.String()
	}
	if needsQuote(val) {
		val = strconv.Quote(val)
	}
	buf.WriteString(val)
}

func needsQuote(s string) bool {
	if s == "" {
		return true
	}
	return strings.ContainsAny(s, " =\"\t\n")
}

// Options configure Setup.
type Options struct {
	Level  string
	File   string    // empty logs to Stdout only
	Stdout io.Writer // defaults to os.Stdout
	Name   string
}

// Setup builds the root logger. The returned closer releases the log file and
// must be called on exit.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	var (
		w      io.Writer = stdout
		closer io.Closer = nopCloser{}
	)
	if path := strings.TrimSpace(opts.File); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(stdout, file)
		closer = file
	}

	return slog.New(NewHandler(w, opts.Name, level)), closer, nil
}

// Named derives a component logger: Named(root, "transit") logs as
// "frida.transit".
func Named(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = Discard()
	}
	return l.With(NameKey, name)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(NewHandler(io.Discard, RootName, slog.LevelError+1))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

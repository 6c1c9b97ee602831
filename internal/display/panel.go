package display

import (
	"fmt"
	"log/slog"
	"strings"
)

// Panel is a concrete display backend. Init may be called again after Close
// to bring a failing panel back.
type Panel interface {
	Init() error
	Draw(f Frame) error
	Close() error
}

// Model names accepted by Initialize.
const (
	ModelEPD2in13V2       = "epd2in13_V2"
	ModelWaveshare2in13V2 = "waveshare2in13v2"
	ModelTerminal         = "terminal"
	ModelTUI              = "tui"
)

// Models lists the accepted model names.
func Models() []string {
	return []string{ModelEPD2in13V2, ModelWaveshare2in13V2, ModelTerminal, ModelTUI}
}

// ValidRotation reports whether r is one of 0, 90, 180 or 270.
func ValidRotation(r int) bool {
	switch r {
	case 0, 90, 180, 270:
		return true
	default:
		return false
	}
}

func newPanel(model string, rotation int, opts Options, logger *slog.Logger) (Panel, error) {
	switch strings.ToLower(strings.TrimSpace(model)) {
	case strings.ToLower(ModelEPD2in13V2), ModelWaveshare2in13V2:
		return newEPaperPanel(opts.SPIPort, rotation, logger), nil
	case ModelTerminal:
		return newTerminalPanel(opts.Out), nil
	case ModelTUI:
		return newTUIPanel(opts, logger), nil
	default:
		return nil, fmt.Errorf("unknown display model %q (known: %s)", model, strings.Join(Models(), ", "))
	}
}

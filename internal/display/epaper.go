package display

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"

	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/waveshare2in13v2"
	"periph.io/x/host/v3"
)

// epdDevice is the subset of the periph e-paper driver the panel uses.
type epdDevice interface {
	Init() error
	Clear(c color.Color) error
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Sleep() error
}

type epdOpener func(port string) (epdDevice, io.Closer, error)

// epaperPanel drives a Waveshare 2.13" v2 HAT over SPI.
type epaperPanel struct {
	port     string
	rotation int
	open     epdOpener
	logger   *slog.Logger

	dev    epdDevice
	closer io.Closer
}

func newEPaperPanel(port string, rotation int, logger *slog.Logger) *epaperPanel {
	return &epaperPanel{port: port, rotation: rotation, open: openWaveshareHat, logger: logger}
}

func openWaveshareHat(port string) (epdDevice, io.Closer, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("host init: %w", err)
	}
	p, err := spireg.Open(port)
	if err != nil {
		return nil, nil, fmt.Errorf("open spi port %q: %w", port, err)
	}
	dev, err := waveshare2in13v2.NewHat(p, &waveshare2in13v2.EPD2in13v2)
	if err != nil {
		_ = p.Close()
		return nil, nil, fmt.Errorf("open e-paper hat: %w", err)
	}
	return dev, p, nil
}

func (p *epaperPanel) Init() error {
	if p.dev != nil {
		return nil
	}
	dev, closer, err := p.open(p.port)
	if err != nil {
		return err
	}
	if err := dev.Init(); err != nil {
		_ = closer.Close()
		return fmt.Errorf("init panel: %w", err)
	}
	if err := dev.Clear(color.White); err != nil {
		_ = closer.Close()
		return fmt.Errorf("clear panel: %w", err)
	}
	p.dev, p.closer = dev, closer
	p.logger.Info("e-paper panel ready", "bounds", dev.Bounds().String(), "rotation", p.rotation)
	return nil
}

func (p *epaperPanel) Draw(f Frame) error {
	if p.dev == nil {
		return ErrNotInitialized
	}
	bounds := p.dev.Bounds()
	img := Rasterize(f, bounds, p.rotation)
	return p.dev.Draw(bounds, img, image.Point{})
}

// Close puts the panel into deep sleep and releases the SPI port.
func (p *epaperPanel) Close() error {
	if p.dev == nil {
		return nil
	}
	var errs []error
	if err := p.dev.Sleep(); err != nil {
		errs = append(errs, fmt.Errorf("sleep panel: %w", err))
	}
	if p.closer != nil {
		if err := p.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close spi port: %w", err))
		}
	}
	p.dev, p.closer = nil, nil
	return errors.Join(errs...)
}

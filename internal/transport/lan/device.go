package lan

import (
	"log/slog"

	govee "github.com/swrm-io/go-vee"
)

// device is the narrow slice of a LAN device the transport needs.
// It exists so tests can substitute fakes for live UDP endpoints.
type device interface {
	IP() string
	SKU() string
	TurnOn() error
	TurnOff() error
	SetBrightnessPercent(v uint) error
	SetRGB(r, g, b uint) error
	SetKelvin(k uint) error
}

// scanner abstracts the go-vee multicast controller.
type scanner interface {
	start() error
	devices() []device
	shutdown()
}

// goveeDevice adapts *govee.Device to the device interface.
type goveeDevice struct {
	d *govee.Device
}

func (g goveeDevice) IP() string  { return g.d.IP() }
func (g goveeDevice) SKU() string { return g.d.SKU() }

func (g goveeDevice) TurnOn() error  { return g.d.TurnOn() }
func (g goveeDevice) TurnOff() error { return g.d.TurnOff() }

func (g goveeDevice) SetBrightnessPercent(v uint) error {
	return g.d.SetBrightness(govee.NewBrightness(v))
}

func (g goveeDevice) SetRGB(r, gr, b uint) error {
	return g.d.SetColor(govee.Color{R: r, G: gr, B: b})
}

func (g goveeDevice) SetKelvin(k uint) error {
	return g.d.SetColorKelvin(govee.NewColorKelvin(k))
}

// goveeScanner adapts *govee.Controller to the scanner interface.
type goveeScanner struct {
	ctrl *govee.Controller
}

func newGoveeScanner(logger *slog.Logger) *goveeScanner {
	return &goveeScanner{ctrl: govee.NewController(logger)}
}

func (s *goveeScanner) start() error { return s.ctrl.Start() }

func (s *goveeScanner) devices() []device {
	found := s.ctrl.Devices()
	out := make([]device, 0, len(found))
	for _, d := range found {
		out = append(out, goveeDevice{d: d})
	}
	return out
}

func (s *goveeScanner) shutdown() { s.ctrl.Shutdown() }

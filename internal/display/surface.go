package display

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

// Surface is the drawing target the renderer paints on. Text places the
// string with its top-left corner at the given pixel position; nothing is
// visible until Flush.
type Surface interface {
	Clear()
	Text(s string, x, y int)
	Flush() error
}

// oledSurface draws into a 1-bit image buffer and pushes it to an SSD1306
// panel over I2C on Flush.
type oledSurface struct {
	dev *ssd1306.Dev
	img *image1bit.VerticalLSB
	drw font.Drawer
}

// OpenSSD1306 initializes the periph host, opens the named I2C bus ("" for
// the first available) and attaches a 128x64 SSD1306.
func OpenSSD1306(busName string) (Surface, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("display: periph init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("display: open i2c bus %q: %w", busName, err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("display: ssd1306 init: %w", err)
	}

	img := image1bit.NewVerticalLSB(dev.Bounds())
	return &oledSurface{
		dev: dev,
		img: img,
		drw: font.Drawer{
			Dst:  img,
			Src:  &image.Uniform{C: image1bit.On},
			Face: basicfont.Face7x13,
		},
	}, nil
}

func (o *oledSurface) Clear() {
	for i := range o.img.Pix {
		o.img.Pix[i] = 0
	}
}

func (o *oledSurface) Text(s string, x, y int) {
	o.drw.Dot = fixed.P(x, y+basicfont.Face7x13.Ascent)
	o.drw.DrawString(s)
}

func (o *oledSurface) Flush() error {
	return o.dev.Draw(o.dev.Bounds(), o.img, image.Point{})
}

// Nul returns a surface that draws nowhere, for headless operation.
func Nul() Surface { return nulSurface{} }

type nulSurface struct{}

func (nulSurface) Clear()                {}
func (nulSurface) Text(string, int, int) {}
func (nulSurface) Flush() error          { return nil }

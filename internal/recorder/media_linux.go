//go:build linux

package recorder

import (
	"github.com/warthog618/go-gpiocdev"
)

// gpioMedia watches a card-detect line. Most sockets short the detect pin
// to ground while a card is inserted, so presence is active-low by default.
type gpioMedia struct {
	line      *gpiocdev.Line
	activeLow bool
	removals  chan struct{}
}

// OpenMedia requests the card-detect line with edge events on both
// transitions; the removal edge is derived from the polarity.
func OpenMedia(chip string, offset int, activeLow bool) (Media, error) {
	m := &gpioMedia{activeLow: activeLow, removals: make(chan struct{}, 1)}

	removalEdge := gpiocdev.LineEventRisingEdge
	if !activeLow {
		removalEdge = gpiocdev.LineEventFallingEdge
	}

	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			if evt.Type != removalEdge {
				return
			}
			select {
			case m.removals <- struct{}{}:
			default:
			}
		}),
		gpiocdev.WithConsumer("gnsshud-sd-detect"),
	)
	if err != nil {
		return nil, err
	}
	m.line = line
	return m, nil
}

func (m *gpioMedia) Present() (bool, error) {
	v, err := m.line.Value()
	if err != nil {
		return false, err
	}
	if m.activeLow {
		return v == 0, nil
	}
	return v == 1, nil
}

func (m *gpioMedia) Removals() <-chan struct{} { return m.removals }

func (m *gpioMedia) Close() error { return m.line.Close() }

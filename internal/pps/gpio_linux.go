//go:build linux

package pps

import (
	"io"

	"github.com/warthog618/go-gpiocdev"
)

func requestRisingEdge(chip string, offset int, fire func()) (io.Closer, error) {
	return gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { fire() }),
		gpiocdev.WithConsumer("gnsshud-pps"),
	)
}

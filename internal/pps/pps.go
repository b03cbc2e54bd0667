// Package pps turns the receiver's pulse-per-second GPIO line into a pulse
// channel the display sync loop can block on. The edge event handler runs
// in the gpio event goroutine and does nothing but a non-blocking send, so
// the time-critical path never waits on display work.
package pps

import (
	"context"
	"fmt"
	"io"
	"sync"
)

type Config struct {
	Enable bool

	// Chip is the gpiochip name, e.g. "gpiochip0". Line is the offset of
	// the PPS input on that chip.
	Chip string
	Line int
}

type Bridge struct {
	cfg   Config
	pulse chan struct{}

	mu   sync.Mutex
	line io.Closer
}

func New(cfg Config) *Bridge {
	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}
	return &Bridge{cfg: cfg, pulse: make(chan struct{}, 1)}
}

func (b *Bridge) Start(ctx context.Context) error {
	if b == nil {
		return fmt.Errorf("pps bridge is nil")
	}
	if !b.cfg.Enable {
		return nil
	}

	line, err := requestRisingEdge(b.cfg.Chip, b.cfg.Line, func() {
		select {
		case b.pulse <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("pps: request %s line %d: %w", b.cfg.Chip, b.cfg.Line, err)
	}

	b.mu.Lock()
	b.line = line
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.Close()
	}()
	return nil
}

// Pulse delivers one value per rising edge. Capacity one: pulses that
// arrive while a flush is still in progress coalesce instead of queueing.
func (b *Bridge) Pulse() <-chan struct{} { return b.pulse }

func (b *Bridge) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	line := b.line
	b.line = nil
	b.mu.Unlock()
	if line != nil {
		_ = line.Close()
	}
}

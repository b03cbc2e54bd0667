package display

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"gnsshud/internal/nmea"
)

// Config controls the renderer.
//
// UpdateInterval is the minimum spacing between redraws of the image
// buffer; the panel itself is only flushed on PPS pulses (or on the
// fallback ticker when no pulse source is wired).
type Config struct {
	UpdateInterval time.Duration
	UTCOffsetHours int
}

// FixSource is the slice of the ingest service the renderer needs.
type FixSource interface {
	Snapshot() nmea.Snapshot
	Updated() <-chan struct{}
}

// Renderer runs two loops against one surface: the update loop repaints the
// image buffer whenever the fix model changed, and the sync loop flushes
// the buffer to the panel once per PPS pulse so the displayed second flips
// in step with true wall-clock seconds. A single mutex serializes the two.
type Renderer struct {
	cfg   Config
	src   FixSource
	pulse <-chan struct{}

	mu      sync.Mutex
	surface Surface

	// Last rendered position rows; they persist across invalid fixes so
	// the screen shows the last known position rather than blanks.
	lat, lon, datetime, locator string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRenderer(cfg Config, src FixSource, surface Surface, pulse <-chan struct{}) *Renderer {
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = 500 * time.Millisecond
	}
	return &Renderer{
		cfg:      cfg,
		src:      src,
		surface:  surface,
		pulse:    pulse,
		lat:      "  0 00.000'N",
		lon:      "  0 00.000'W",
		datetime: "000000 00:00:00",
		locator:  "--------",
	}
}

func (r *Renderer) Start(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("renderer is nil")
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}

	childCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	log.Printf("display enabled interval=%s utc_offset=%dh", r.cfg.UpdateInterval, r.cfg.UTCOffsetHours)

	r.wg.Add(2)
	go r.updateLoop(childCtx)
	go r.syncLoop(childCtx)
	return nil
}

func (r *Renderer) Close() {
	if r == nil || r.cancel == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
}

func (r *Renderer) updateLoop(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.src.Updated():
		}

		r.redraw(r.src.Snapshot())

		// Rate-limit the repaint; coalesced updates are fine, the screen
		// only needs to be current at the next flush.
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.cfg.UpdateInterval):
		}
	}
}

func (r *Renderer) syncLoop(ctx context.Context) {
	defer r.wg.Done()

	// Without a PPS source, fall back to a best-effort software second.
	pulse := r.pulse
	var tick *time.Ticker
	if pulse == nil {
		tick = time.NewTicker(time.Second)
		defer tick.Stop()
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
			}
		} else {
			select {
			case <-ctx.Done():
				return
			case <-pulse:
			}
		}

		r.mu.Lock()
		err := r.surface.Flush()
		r.mu.Unlock()
		if err != nil {
			log.Printf("display flush failed: %v", err)
		}
	}
}

// redraw paints the status screen from one snapshot. Position, time and
// locator rows keep their last contents until the receiver has a fix again;
// the counters always advance.
func (r *Renderer) redraw(snap nmea.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if snap.FixType != nmea.NoFix {
		r.lat = snap.Latitude.String()
		r.lon = snap.Longitude.String()
		r.datetime = LocalDateTime(snap.Date, snap.Time, snap.Century, r.cfg.UTCOffsetHours)
		if gl, ok := GridLocator(snap.Latitude, snap.Longitude); ok {
			r.locator = gl
		}
	}

	r.surface.Clear()
	r.surface.Text("Lat:"+r.lat, 0, 0)
	r.surface.Text("Lon:"+r.lon, 0, 10)
	r.surface.Text(r.datetime, 8, 20)
	r.surface.Text(fmt.Sprintf("FIX:%d Sat:%02d/%02d", snap.FixType, snap.SatellitesInUse, snap.SatellitesInView), 0, 30)
	r.surface.Text(fmt.Sprintf("HDOP:%4.1f OK:%d NG:%d", snap.HDOP, snap.CleanSentences, snap.CRCFails), 0, 40)
	r.surface.Text(r.locator, 32, 50)
}

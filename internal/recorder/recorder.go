// Package recorder drives the raw-sentence log lifecycle around removable
// media: it opens a log sink once media is present and the receiver holds a
// valid 3D fix, and tears it down through a two-phase handshake with the
// parser drive loop when the media is pulled, so no write ever races the
// unmount.
package recorder

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"sync"
	"time"

	"gnsshud/internal/nmea"
)

// Controller states.
const (
	StateIdle     = "idle"
	StateActive   = "active"
	StateStopping = "stopping"
)

// stopAckTimeout bounds the wait for the drive-loop acknowledgment during
// process shutdown. A var so tests can shorten it.
var stopAckTimeout = 5 * time.Second

type Config struct {
	Enable bool

	// LogDir is the directory under the mountpoint, Extension the suffix
	// of the timestamp-derived filename.
	LogDir    string
	Extension string

	// PollInterval paces the media-presence poll while idle.
	PollInterval time.Duration
}

// Sink is the slice of the ingest service the controller drives: attach a
// log writer, and request a stop that is acknowledged only after the drive
// loop has detached and closed the writer.
type Sink interface {
	StartLogging(io.WriteCloser)
	StopLogging() <-chan struct{}
}

// FixSource gates activation on fix quality and names the log file.
type FixSource interface {
	Snapshot() nmea.Snapshot
}

type Snapshot struct {
	Enabled bool `json:"enabled"`

	State    string `json:"state"`
	File     string `json:"file,omitempty"`
	Sessions int    `json:"sessions"`

	LastError string `json:"last_error,omitempty"`
}

type Service struct {
	cfg     Config
	media   Media
	storage Storage
	sink    Sink
	fixes   FixSource

	mu   sync.Mutex
	snap Snapshot

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, media Media, storage Storage, sink Sink, fixes FixSource) *Service {
	if cfg.LogDir == "" {
		cfg.LogDir = "LOG"
	}
	if cfg.Extension == "" {
		cfg.Extension = ".log"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Service{cfg: cfg, media: media, storage: storage, sink: sink, fixes: fixes}
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("recorder service is nil")
	}
	if !s.cfg.Enable {
		return nil
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.setState(func(sn *Snapshot) {
		sn.Enabled = true
		sn.State = StateIdle
	})
	log.Printf("recorder enabled dir=%s ext=%s poll=%s", s.cfg.LogDir, s.cfg.Extension, s.cfg.PollInterval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(childCtx)
	}()
	return nil
}

func (s *Service) Close() {
	if s == nil || s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	if s.media != nil {
		_ = s.media.Close()
	}
}

func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *Service) setState(update func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update(&s.snap)
}

func (s *Service) setErr(msg string) {
	log.Printf("recorder: %s", msg)
	s.setState(func(sn *Snapshot) { sn.LastError = msg })
}

func (s *Service) run(ctx context.Context) {
	tick := time.NewTicker(s.cfg.PollInterval)
	defer tick.Stop()

	for {
		// Idle: wait for media plus a qualifying fix. A removal edge
		// observed here is a no-op; drain it so a stale event cannot
		// terminate the next session immediately.
		select {
		case <-ctx.Done():
			return
		case <-s.media.Removals():
			continue
		case <-tick.C:
		}

		present, err := s.media.Present()
		if err != nil {
			s.setErr(fmt.Sprintf("media detect failed: %v", err))
			continue
		}
		if !present {
			continue
		}
		snap := s.fixes.Snapshot()
		if !snap.Valid || snap.FixType != nmea.Fix3D {
			// Media is in but the fix does not qualify yet; re-poll.
			continue
		}

		file, ok := s.activate(snap)
		if !ok {
			continue
		}

		// Active: bytes are flowing into the sink. Only a removal or
		// shutdown ends the session.
		s.setState(func(sn *Snapshot) {
			sn.State = StateActive
			sn.File = file
			sn.Sessions++
			sn.LastError = ""
		})
		log.Printf("recorder active file=%s", file)

		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case <-s.media.Removals():
		}

		// Stopping: ask the drive loop to let go of the sink and wait for
		// the acknowledgment before unmounting. Unmounting earlier would
		// yank the file out from under an in-flight write.
		s.setState(func(sn *Snapshot) { sn.State = StateStopping })
		ack := s.sink.StopLogging()
		select {
		case <-ctx.Done():
			return
		case <-ack:
		}
		if err := s.storage.Unmount(); err != nil {
			s.setErr(fmt.Sprintf("unmount failed: %v", err))
		}
		s.setState(func(sn *Snapshot) {
			sn.State = StateIdle
			sn.File = ""
		})
		log.Printf("recorder stopped file=%s", file)
	}
}

// activate mounts the media and opens the log sink; any failure leaves the
// controller idle.
func (s *Service) activate(snap nmea.Snapshot) (string, bool) {
	if err := s.storage.Mount(); err != nil {
		s.setErr(fmt.Sprintf("mount failed: %v", err))
		return "", false
	}
	if err := s.storage.MkdirAll(s.cfg.LogDir); err != nil {
		s.setErr(fmt.Sprintf("mkdir %s failed: %v", s.cfg.LogDir, err))
		_ = s.storage.Unmount()
		return "", false
	}

	file := path.Join(s.cfg.LogDir, logName(snap, s.cfg.Extension))
	w, err := s.storage.Create(file)
	if err != nil {
		s.setErr(fmt.Sprintf("create %s failed: %v", file, err))
		_ = s.storage.Unmount()
		return "", false
	}
	s.sink.StartLogging(w)
	return file, true
}

// shutdown closes an active session on context cancellation. The same
// handshake as the removal path applies: the volume must not be unmounted
// while a write may still be in flight, so the unmount waits for the stop
// acknowledgment. The wait is bounded because the drive loop is being
// canceled concurrently and may already be gone; it closes the sink on its
// own way out.
func (s *Service) shutdown() {
	s.setState(func(sn *Snapshot) { sn.State = StateStopping })
	ack := s.sink.StopLogging()
	select {
	case <-ack:
	case <-time.After(stopAckTimeout):
		s.setErr("stop not acknowledged before timeout, unmounting anyway")
	}
	if err := s.storage.Unmount(); err != nil {
		s.setErr(fmt.Sprintf("unmount failed: %v", err))
	}
}

// logName derives the file name from the fix timestamp: YYMMDD_HHMMSS plus
// the configured extension.
func logName(snap nmea.Snapshot, ext string) string {
	return fmt.Sprintf("%02d%02d%02d_%02d%02d%02d%s",
		snap.Date.Year, snap.Date.Month, snap.Date.Day,
		snap.Time.Hour, snap.Time.Minute, int(snap.Time.Second), ext)
}

package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"gnsshud/internal/nmea"
)

// Config controls the serial reader and the parser drive loop.
//
// Device is the serial device path of the GNSS receiver. Replay, when set,
// substitutes a recorded raw log paced at the configured baud rate for the
// serial port. QueueSize bounds the ingress byte queue; it should be
// generous relative to burst size at the configured baud rate (a full
// second at 9600 baud is under 1 KiB).
type Config struct {
	Device    string
	Baud      int
	Replay    string
	QueueSize int
}

var openSerialFn = func(path string, baud int) (io.ReadCloser, error) {
	return openSerial(path, baud)
}

var openReplayFn = openReplay

type ctrlMsg struct {
	sink io.WriteCloser // nil requests a stop
	ack  chan struct{}
}

// Service owns the parser and runs two goroutines: a reader that appends
// raw serial bytes to the ingress queue, and a drive loop that drains the
// queue, feeds the parser one character at a time and publishes a fix
// snapshot after each full drain. The drive loop is the only goroutine that
// touches the parser, the fix and the log sink.
type Service struct {
	cfg    Config
	parser *nmea.Parser
	q      *queue

	last    atomic.Value // nmea.Snapshot
	updated chan struct{}
	ctrl    chan ctrlMsg

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closer io.Closer
}

func New(cfg Config, parser *nmea.Parser) *Service {
	if cfg.Baud == 0 {
		cfg.Baud = 9600
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 4096
	}
	s := &Service{
		cfg:     cfg,
		parser:  parser,
		q:       newQueue(cfg.QueueSize),
		updated: make(chan struct{}, 1),
		// Capacity one: the recorder is the only client and strictly
		// alternates attach and stop, so a send never blocks even if the
		// drive loop has already exited.
		ctrl: make(chan ctrlMsg, 1),
	}
	s.last.Store(parser.Fix().Snapshot())
	return s
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("ingest service is nil")
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	var f io.ReadCloser
	var err error
	if s.cfg.Replay != "" {
		f, err = openReplayFn(s.cfg.Replay, s.cfg.Baud)
		if err != nil {
			return fmt.Errorf("ingest: open replay %s: %w", s.cfg.Replay, err)
		}
		log.Printf("ingest enabled replay=%s baud=%d queue=%d", s.cfg.Replay, s.cfg.Baud, s.cfg.QueueSize)
	} else {
		f, err = openSerialFn(s.cfg.Device, s.cfg.Baud)
		if err != nil {
			return fmt.Errorf("ingest: open %s baud=%d: %w", s.cfg.Device, s.cfg.Baud, err)
		}
		log.Printf("ingest enabled device=%s baud=%d queue=%d", s.cfg.Device, s.cfg.Baud, s.cfg.QueueSize)
	}
	s.closer = f

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go s.read(childCtx, f)
	go s.drive(childCtx)
	return nil
}

// read is the producer task: it blocks on the serial port and appends
// whatever arrived to the queue.
func (s *Service) read(ctx context.Context, r io.ReadCloser) {
	defer s.wg.Done()
	defer func() { _ = r.Close() }()

	buf := make([]byte, 512)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := r.Read(buf)
		if n > 0 {
			s.q.Append(buf[:n])
		}
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("ingest read stopped: %v", err)
			}
			return
		}
	}
}

// drive is the single consumer: sink attach/stop requests are handled at
// drain-cycle boundaries, so the logging state never changes mid-sentence.
func (s *Service) drive(ctx context.Context) {
	defer s.wg.Done()

	// The raw log goes through a buffer flushed once per drain cycle;
	// per-character writes would cost one syscall per wire byte against
	// the SD-backed sink.
	var sink io.WriteCloser
	var sinkBuf *bufio.Writer
	closeSink := func() {
		s.parser.DetachSink()
		if sink == nil {
			return
		}
		_ = sinkBuf.Flush()
		_ = sink.Close()
		sink, sinkBuf = nil, nil
	}

	scratch := make([]byte, 0, s.cfg.QueueSize)
	for {
		select {
		case <-ctx.Done():
			closeSink()
			s.drainCtrl()
			return

		case m := <-s.ctrl:
			if m.sink != nil {
				sink = m.sink
				sinkBuf = bufio.NewWriterSize(sink, 4096)
				s.parser.AttachSink(sinkBuf)
			} else {
				closeSink()
				close(m.ack)
			}

		case <-s.q.Wait():
			scratch = s.q.Drain(scratch)
			for _, c := range scratch {
				s.parser.Update(c)
			}
			if sinkBuf != nil {
				_ = sinkBuf.Flush()
			}
			s.last.Store(s.parser.Fix().Snapshot())
			select {
			case s.updated <- struct{}{}:
			default:
			}
		}
	}
}

// drainCtrl acknowledges a control request that raced shutdown, so a stop
// issued concurrently with cancellation still gets its ack. Any sink the
// drive loop held is already closed by then.
func (s *Service) drainCtrl() {
	select {
	case m := <-s.ctrl:
		if m.sink != nil {
			_ = m.sink.Close()
			return
		}
		close(m.ack)
	default:
	}
}

// Snapshot returns the fix state as of the last completed drain cycle.
func (s *Service) Snapshot() nmea.Snapshot {
	if s == nil {
		return nmea.Snapshot{}
	}
	v := s.last.Load()
	if v == nil {
		return nmea.Snapshot{}
	}
	return v.(nmea.Snapshot)
}

// Updated signals after a drain cycle has published a fresh snapshot. The
// channel has capacity one; a slow reader coalesces updates.
func (s *Service) Updated() <-chan struct{} { return s.updated }

// Dropped reports how many queued bytes were evicted by overflow.
func (s *Service) Dropped() uint64 { return s.q.Dropped() }

// StartLogging hands a raw-wire sink to the drive loop. It takes effect on
// the next cycle; ownership of w transfers to the service.
func (s *Service) StartLogging(w io.WriteCloser) {
	s.ctrl <- ctrlMsg{sink: w}
}

// StopLogging requests sink detach. The returned channel closes once the
// drive loop has detached and closed the sink; only then is it safe to
// unmount the storage beneath it.
func (s *Service) StopLogging() <-chan struct{} {
	ack := make(chan struct{})
	s.ctrl <- ctrlMsg{ack: ack}
	return ack
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	closer := s.closer
	s.cancel = nil
	s.closer = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if closer != nil {
		_ = closer.Close()
	}
	s.wg.Wait()
	s.drainCtrl()
}

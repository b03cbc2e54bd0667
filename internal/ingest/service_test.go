package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gnsshud/internal/nmea"
)

type fakeSerial struct {
	data chan []byte
	done chan struct{}
	once sync.Once
}

func newFakeSerial() *fakeSerial {
	return &fakeSerial{data: make(chan []byte, 8), done: make(chan struct{})}
}

func (f *fakeSerial) Read(p []byte) (int, error) {
	select {
	case b := <-f.data:
		return copy(p, b), nil
	case <-f.done:
		return 0, io.EOF
	}
}

func (f *fakeSerial) Close() error {
	f.once.Do(func() { close(f.done) })
	return nil
}

type fakeSink struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	writes int
	closed bool
}

func (s *fakeSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	return s.buf.Write(p)
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func (s *fakeSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSink) writeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// frame wraps an NMEA payload with the start delimiter, checksum and CRLF.
func frame(payload string) string {
	var crc byte
	for i := 0; i < len(payload); i++ {
		crc ^= payload[i]
	}
	return fmt.Sprintf("$%s*%02X\r\n", payload, crc)
}

const ggaLine = "GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"

func startService(t *testing.T, fake *fakeSerial, pre func(*Service)) *Service {
	t.Helper()

	oldOpen := openSerialFn
	openSerialFn = func(path string, baud int) (io.ReadCloser, error) { return fake, nil }
	t.Cleanup(func() { openSerialFn = oldOpen })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	svc := New(Config{Device: "/dev/fake"}, nmea.NewParser())
	if pre != nil {
		pre(svc)
	}
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

func waitUpdated(t *testing.T, svc *Service) {
	t.Helper()
	select {
	case <-svc.Updated():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a snapshot update")
	}
}

func TestServicePublishesSnapshot(t *testing.T) {
	fake := newFakeSerial()
	svc := startService(t, fake, nil)

	if snap := svc.Snapshot(); snap.Valid {
		t.Fatal("snapshot valid before any data")
	}

	fake.data <- []byte(frame(ggaLine))
	waitUpdated(t, svc)

	snap := svc.Snapshot()
	if snap.CleanSentences != 1 || snap.ParsedSentences != 1 {
		t.Fatalf("counters clean=%d parsed=%d want 1/1", snap.CleanSentences, snap.ParsedSentences)
	}
	want := nmea.Coordinate{Degrees: 48, Minutes: 7.038, Hemisphere: 'N'}
	if snap.Latitude != want {
		t.Fatalf("latitude=%+v want %+v", snap.Latitude, want)
	}
	if snap.FixStat != 1 {
		t.Fatalf("fixStat=%d want 1", snap.FixStat)
	}
}

func TestServiceSnapshotAcrossSplitReads(t *testing.T) {
	fake := newFakeSerial()
	svc := startService(t, fake, nil)

	// A sentence split across reads decodes once the tail arrives.
	line := frame(ggaLine)
	fake.data <- []byte(line[:20])
	waitUpdated(t, svc)
	if snap := svc.Snapshot(); snap.ParsedSentences != 0 {
		t.Fatalf("parsed=%d before sentence complete", snap.ParsedSentences)
	}

	fake.data <- []byte(line[20:])
	waitUpdated(t, svc)
	if snap := svc.Snapshot(); snap.ParsedSentences != 1 {
		t.Fatalf("parsed=%d want 1", snap.ParsedSentences)
	}
}

func TestServiceLoggingHandshake(t *testing.T) {
	fake := newFakeSerial()
	sink := &fakeSink{}

	// Attaching before Start parks the request in the control channel, so
	// the drive loop handles it before any data arrives.
	svc := startService(t, fake, func(s *Service) { s.StartLogging(sink) })

	line := frame(ggaLine)
	fake.data <- []byte(line)
	waitUpdated(t, svc)

	if got := sink.String(); got != line {
		t.Fatalf("sink=%q want %q", got, line)
	}

	ack := svc.StopLogging()
	select {
	case <-ack:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stop ack")
	}
	if !sink.Closed() {
		t.Fatal("sink not closed by stop ack")
	}

	// Bytes after the ack must never reach the sink.
	fake.data <- []byte(line)
	waitUpdated(t, svc)
	if got := sink.String(); got != line {
		t.Fatalf("sink grew after stop: %q", got)
	}
}

func TestServiceSinkWritesAreBatched(t *testing.T) {
	fake := newFakeSerial()
	sink := &fakeSink{}
	svc := startService(t, fake, func(s *Service) { s.StartLogging(sink) })

	line := frame(ggaLine)
	fake.data <- []byte(line)
	waitUpdated(t, svc)

	// A full sentence arriving in one drain cycle reaches the sink as a
	// single write, not one per character.
	if got := sink.writeCalls(); got != 1 {
		t.Fatalf("writeCalls=%d want 1", got)
	}
	if got := sink.String(); got != line {
		t.Fatalf("sink=%q want %q", got, line)
	}
}

func TestServiceStopAckDuringShutdown(t *testing.T) {
	fake := newFakeSerial()
	sink := &fakeSink{}
	svc := startService(t, fake, func(s *Service) { s.StartLogging(sink) })

	line := frame(ggaLine)
	fake.data <- []byte(line)
	waitUpdated(t, svc)

	// A stop racing Close must still be acknowledged. The drive loop may
	// exit before handling the request, so Close drains it.
	ack := svc.StopLogging()
	svc.Close()
	select {
	case <-ack:
	case <-time.After(2 * time.Second):
		t.Fatal("stop never acknowledged across shutdown")
	}
	if !sink.Closed() {
		t.Fatal("sink left open after shutdown")
	}
}

func TestServiceSinkReceivesCorruptTraffic(t *testing.T) {
	fake := newFakeSerial()
	sink := &fakeSink{}
	svc := startService(t, fake, func(s *Service) { s.StartLogging(sink) })

	bad := frame(ggaLine)
	bad = bad[:len(bad)-4] + "00\r\n"
	fake.data <- []byte(bad)
	waitUpdated(t, svc)

	if snap := svc.Snapshot(); snap.CRCFails != 1 {
		t.Fatalf("crcFails=%d want 1", snap.CRCFails)
	}
	if !strings.Contains(sink.String(), "00\r\n") {
		t.Fatalf("raw log missing corrupt sentence: %q", sink.String())
	}
}

func TestServiceStartOpenError(t *testing.T) {
	oldOpen := openSerialFn
	openSerialFn = func(path string, baud int) (io.ReadCloser, error) {
		return nil, fmt.Errorf("no such device")
	}
	t.Cleanup(func() { openSerialFn = oldOpen })

	svc := New(Config{Device: "/dev/missing"}, nmea.NewParser())
	if err := svc.Start(context.Background()); err == nil {
		t.Fatal("expected an open error")
	}
}

func TestServiceCloseStopsGoroutines(t *testing.T) {
	fake := newFakeSerial()
	svc := startService(t, fake, nil)

	fake.data <- []byte(frame(ggaLine))
	waitUpdated(t, svc)

	done := make(chan struct{})
	go func() {
		svc.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
}

func TestServiceReplaySource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	line := frame(ggaLine)
	if err := os.WriteFile(path, []byte(line+line), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := New(Config{Replay: path}, nmea.NewParser())
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Close()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if svc.Snapshot().ParsedSentences == 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("parsed=%d want 2", svc.Snapshot().ParsedSentences)
}

func TestServiceReplayMissingFile(t *testing.T) {
	svc := New(Config{Replay: "/does/not/exist.log"}, nmea.NewParser())
	if err := svc.Start(context.Background()); err == nil {
		t.Fatal("expected an open error")
	}
}

func TestServiceCloseClosesAttachedSink(t *testing.T) {
	fake := newFakeSerial()
	sink := &fakeSink{}
	svc := startService(t, fake, func(s *Service) { s.StartLogging(sink) })

	fake.data <- []byte(frame(ggaLine))
	waitUpdated(t, svc)

	svc.Close()
	if !sink.Closed() {
		t.Fatal("sink left open after Close")
	}
}
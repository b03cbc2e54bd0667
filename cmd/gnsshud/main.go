package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gnsshud/internal/config"
	"gnsshud/internal/display"
	"gnsshud/internal/ingest"
	"gnsshud/internal/nmea"
	"gnsshud/internal/pps"
	"gnsshud/internal/recorder"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "/etc/gnsshud.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("gnsshud starting")

	parser := nmea.NewParser()
	// The Teseo-LIV3F on this board is configured to emit GSV under the GN
	// talker; route it through the standard decoder.
	parser.SetHandler("GNGSV", nmea.HandleGSV)

	ing := ingest.New(ingest.Config{
		Device:    cfg.Serial.Device,
		Baud:      cfg.Serial.Baud,
		Replay:    cfg.Serial.Replay,
		QueueSize: cfg.Ingest.QueueSize,
	}, parser)
	if err := ing.Start(ctx); err != nil {
		log.Fatalf("ingest start failed: %v", err)
	}
	defer ing.Close()

	bridge := pps.New(pps.Config{Enable: cfg.PPS.Enable, Chip: cfg.PPS.Chip, Line: cfg.PPS.Line})
	if err := bridge.Start(ctx); err != nil {
		log.Fatalf("pps start failed: %v", err)
	}
	defer bridge.Close()

	surface := display.Nul()
	if cfg.Display.Enable {
		surface, err = display.OpenSSD1306(cfg.Display.I2CBus)
		if err != nil {
			log.Fatalf("display init failed: %v", err)
		}
	}
	var pulse <-chan struct{}
	if cfg.PPS.Enable {
		pulse = bridge.Pulse()
	}
	rend := display.NewRenderer(display.Config{
		UpdateInterval: cfg.Display.UpdateInterval,
		UTCOffsetHours: cfg.Display.UTCOffsetHours,
	}, ing, surface, pulse)
	if err := rend.Start(ctx); err != nil {
		log.Fatalf("display start failed: %v", err)
	}
	defer rend.Close()

	if cfg.Recorder.Enable {
		media, err := recorder.OpenMedia(cfg.Recorder.DetectChip, cfg.Recorder.DetectLine, cfg.Recorder.DetectActiveLowValue())
		if err != nil {
			log.Fatalf("recorder media init failed: %v", err)
		}
		storage := recorder.NewBlockStorage(cfg.Recorder.Device, cfg.Recorder.FSType, cfg.Recorder.Mountpoint)
		rec := recorder.New(recorder.Config{
			Enable:       true,
			LogDir:       cfg.Recorder.LogDir,
			Extension:    cfg.Recorder.Extension,
			PollInterval: cfg.Recorder.PollInterval,
		}, media, storage, ing, ing)
		if err := rec.Start(ctx); err != nil {
			log.Fatalf("recorder start failed: %v", err)
		}
		defer rec.Close()
	}

	<-ctx.Done()
	log.Printf("gnsshud stopping")
}

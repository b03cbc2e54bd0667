package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Display  DisplayConfig  `yaml:"display"`
	PPS      PPSConfig      `yaml:"pps"`
	Recorder RecorderConfig `yaml:"recorder"`
}

type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`

	// Replay substitutes a recorded raw log for the serial port.
	Replay string `yaml:"replay"`
}

type IngestConfig struct {
	QueueSize int `yaml:"queue_size"`
}

type DisplayConfig struct {
	Enable         bool          `yaml:"enable"`
	I2CBus         string        `yaml:"i2c_bus"`
	UpdateInterval time.Duration `yaml:"update_interval"`
	UTCOffsetHours int           `yaml:"utc_offset_hours"`
}

type PPSConfig struct {
	Enable bool   `yaml:"enable"`
	Chip   string `yaml:"chip"`
	Line   int    `yaml:"line"`
}

type RecorderConfig struct {
	Enable bool `yaml:"enable"`

	DetectChip      string `yaml:"detect_chip"`
	DetectLine      int    `yaml:"detect_line"`
	DetectActiveLow *bool  `yaml:"detect_active_low"`

	Device     string `yaml:"device"`
	FSType     string `yaml:"fstype"`
	Mountpoint string `yaml:"mountpoint"`

	LogDir       string        `yaml:"log_dir"`
	Extension    string        `yaml:"extension"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.Serial.Device == "" && cfg.Serial.Replay == "" {
		return Config{}, fmt.Errorf("serial.device is required")
	}
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = 9600
	}
	if cfg.Ingest.QueueSize == 0 {
		cfg.Ingest.QueueSize = 4096
	}

	if cfg.Display.UpdateInterval <= 0 {
		cfg.Display.UpdateInterval = 500 * time.Millisecond
	}

	if cfg.PPS.Chip == "" {
		cfg.PPS.Chip = "gpiochip0"
	}

	if cfg.Recorder.Enable {
		if cfg.Recorder.Device == "" {
			return Config{}, fmt.Errorf("recorder.device is required when recorder.enable is true")
		}
		if cfg.Recorder.DetectChip == "" {
			cfg.Recorder.DetectChip = "gpiochip0"
		}
		if cfg.Recorder.FSType == "" {
			cfg.Recorder.FSType = "vfat"
		}
		if cfg.Recorder.Mountpoint == "" {
			cfg.Recorder.Mountpoint = "/mnt/gnsslog"
		}
	}
	if cfg.Recorder.LogDir == "" {
		cfg.Recorder.LogDir = "LOG"
	}
	if cfg.Recorder.Extension == "" {
		cfg.Recorder.Extension = ".log"
	}
	if cfg.Recorder.PollInterval <= 0 {
		cfg.Recorder.PollInterval = 2 * time.Second
	}

	return cfg, nil
}

// DetectActiveLowValue defaults to true: most card sockets pull the detect
// line to ground while a card is inserted.
func (r RecorderConfig) DetectActiveLowValue() bool {
	if r.DetectActiveLow == nil {
		return true
	}
	return *r.DetectActiveLow
}

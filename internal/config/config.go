// Package config loads the optional soundcheck.toml settings file and
// validates it. Everything has a sensible default so the tool runs with
// no config file at all; the file exists for people who calibrate the
// same rig repeatedly.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/linuxmatters/soundcheck/internal/calibration"
)

// validate is the shared validator instance for config validation.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

// OBSConfig holds the obs-websocket connection settings.
type OBSConfig struct {
	Address  string `toml:"address" validate:"required,max=256"`
	Password string `toml:"password" validate:"omitempty,max=256"`
	Input    string `toml:"input" validate:"omitempty,max=256"`
}

// CaptureConfig holds the local microphone capture settings.
type CaptureConfig struct {
	Device     string `toml:"device" validate:"omitempty,max=256"`
	FFmpegPath string `toml:"ffmpeg_path" validate:"omitempty,max=4096"`
}

// ProtocolConfig holds the calibration protocol shape. The defaults
// match the eight-step guided script; overriding them is for people
// running a custom script.
type ProtocolConfig struct {
	Steps        int   `toml:"steps" validate:"gte=2,lte=32"`
	ProgramSteps []int `toml:"program_steps" validate:"min=1,dive,gte=1"`
	NoiseStep    int   `toml:"noise_step" validate:"gte=1"`
	WindowMs     int   `toml:"window_ms" validate:"gte=1000,lte=60000"`
	TickMs       int   `toml:"tick_ms" validate:"gte=10,lte=1000"`
}

// StagesConfig selects which filter stages the wizard installs.
type StagesConfig struct {
	NoiseSuppression bool `toml:"noise_suppression"`
	NoiseGate        bool `toml:"noise_gate"`
	Expander         bool `toml:"expander"`
	Gain             bool `toml:"gain"`
	Compressor       bool `toml:"compressor"`
	Limiter          bool `toml:"limiter"`

	SuppressDb float64 `toml:"suppress_db" validate:"gte=-60,lte=0"`
}

// Config is the whole settings file.
type Config struct {
	OBS      OBSConfig      `toml:"obs"`
	Capture  CaptureConfig  `toml:"capture"`
	Protocol ProtocolConfig `toml:"protocol"`
	Stages   StagesConfig   `toml:"stages"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	proto := calibration.DefaultProtocol()
	toggles := calibration.DefaultToggles()
	return Config{
		OBS: OBSConfig{
			Address: "ws://127.0.0.1:4455",
		},
		Capture: CaptureConfig{
			Device: "default",
		},
		Protocol: ProtocolConfig{
			Steps:        proto.Steps,
			ProgramSteps: proto.ProgramSteps,
			NoiseStep:    proto.NoiseStep,
			WindowMs:     int(proto.Window.Milliseconds()),
			TickMs:       int(proto.TickInterval.Milliseconds()),
		},
		Stages: StagesConfig{
			NoiseSuppression: toggles.NoiseSuppression,
			NoiseGate:        toggles.NoiseGate,
			Expander:         toggles.Expander,
			Gain:             toggles.Gain,
			Compressor:       toggles.Compressor,
			Limiter:          toggles.Limiter,
			SuppressDb:       calibration.DefaultSuppressDb,
		},
	}
}

// Load reads a TOML config file over the defaults. A missing file is
// not an error when path is empty; an explicitly named file must exist.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field protocol coherence.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	return c.CalibrationProtocol().Validate()
}

// CalibrationProtocol converts the file shape to the session protocol.
func (c Config) CalibrationProtocol() calibration.Protocol {
	return calibration.Protocol{
		Steps:        c.Protocol.Steps,
		ProgramSteps: c.Protocol.ProgramSteps,
		NoiseStep:    c.Protocol.NoiseStep,
		Window:       time.Duration(c.Protocol.WindowMs) * time.Millisecond,
		TickInterval: time.Duration(c.Protocol.TickMs) * time.Millisecond,
	}
}

// DeriveOptions converts the stage toggles to derivation options.
func (c Config) DeriveOptions() calibration.Options {
	return calibration.Options{
		Toggles: calibration.Toggles{
			NoiseSuppression: c.Stages.NoiseSuppression,
			NoiseGate:        c.Stages.NoiseGate,
			Expander:         c.Stages.Expander,
			Gain:             c.Stages.Gain,
			Compressor:       c.Stages.Compressor,
			Limiter:          c.Stages.Limiter,
		},
		SuppressDb: c.Stages.SuppressDb,
	}
}

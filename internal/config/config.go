package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/bits/internal/bits"
	"github.com/danmuck/bits/internal/logging"
	"github.com/rs/zerolog"
)

const (
	HexModeLenient = "lenient"
	HexModeStrict  = "strict"
)

// Config is the resolved bitsctl configuration.
type Config struct {
	Decoder DecoderConfig
	Log     LogConfig
	Metrics MetricsConfig
}

type DecoderConfig struct {
	MaxDepth     int
	MaxInputBits int
	HexMode      string
}

type LogConfig struct {
	Level     string
	Timestamp bool
	NoColor   bool
}

type MetricsConfig struct {
	Enabled  bool
	Textfile string
}

type fileConfig struct {
	Decoder struct {
		MaxDepth     int    `toml:"max_depth"`
		MaxInputBits int    `toml:"max_input_bits"`
		HexMode      string `toml:"hex_mode"`
	} `toml:"decoder"`
	Log struct {
		Level     string `toml:"level"`
		Timestamp bool   `toml:"timestamp"`
		NoColor   bool   `toml:"no_color"`
	} `toml:"log"`
	Metrics struct {
		Enabled  bool   `toml:"enabled"`
		Textfile string `toml:"textfile"`
	} `toml:"metrics"`
}

func Default() Config {
	limits := bits.DefaultLimits()
	return Config{
		Decoder: DecoderConfig{
			MaxDepth:     limits.MaxDepth,
			MaxInputBits: limits.MaxInputBits,
			HexMode:      HexModeLenient,
		},
		Log: LogConfig{
			Level:     "info",
			Timestamp: true,
		},
	}
}

// Load reads path and applies every defined key on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config parse failed (%s): unknown key %s", path, undecoded[0])
	}

	if meta.IsDefined("decoder", "max_depth") {
		cfg.Decoder.MaxDepth = raw.Decoder.MaxDepth
	}
	if meta.IsDefined("decoder", "max_input_bits") {
		cfg.Decoder.MaxInputBits = raw.Decoder.MaxInputBits
	}
	if meta.IsDefined("decoder", "hex_mode") {
		cfg.Decoder.HexMode = strings.ToLower(strings.TrimSpace(raw.Decoder.HexMode))
	}
	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "timestamp") {
		cfg.Log.Timestamp = raw.Log.Timestamp
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}
	if meta.IsDefined("metrics", "enabled") {
		cfg.Metrics.Enabled = raw.Metrics.Enabled
	}
	if meta.IsDefined("metrics", "textfile") {
		cfg.Metrics.Textfile = strings.TrimSpace(raw.Metrics.Textfile)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if cfg.Decoder.MaxDepth <= 0 {
		return fmt.Errorf("decoder.max_depth must be positive")
	}
	if cfg.Decoder.MaxInputBits <= 0 {
		return fmt.Errorf("decoder.max_input_bits must be positive")
	}
	switch cfg.Decoder.HexMode {
	case HexModeLenient, HexModeStrict:
	default:
		return fmt.Errorf("decoder.hex_mode must be %q or %q, got %q", HexModeLenient, HexModeStrict, cfg.Decoder.HexMode)
	}
	if _, ok := logging.ParseLevel(cfg.Log.Level); !ok {
		return fmt.Errorf("log.level %q is not a known level", cfg.Log.Level)
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Textfile == "" {
		return fmt.Errorf("metrics.textfile required when metrics are enabled")
	}
	return nil
}

// DecoderOptions converts the decoder section into bits decoder settings.
func (c Config) DecoderOptions() bits.Config {
	return bits.Config{
		Limits: bits.Limits{
			MaxDepth:     c.Decoder.MaxDepth,
			MaxInputBits: c.Decoder.MaxInputBits,
		},
		StrictHex: c.Decoder.HexMode == HexModeStrict,
	}
}

// LoggingConfig converts the log section; env overrides still apply on top.
func (c Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig(logging.ProfileRuntime)
	if lvl, ok := logging.ParseLevel(c.Log.Level); ok {
		cfg.Level = lvl
	} else {
		cfg.Level = zerolog.InfoLevel
	}
	cfg.Timestamp = c.Log.Timestamp
	cfg.NoColor = c.Log.NoColor
	logging.ApplyEnvOverrides(&cfg)
	return cfg
}

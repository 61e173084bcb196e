// Package config implements engine-wide configuration: audio rate, buffer
// size, voice pool size, render thread count, and the module store's data
// directory. Grounded on the teacher's internal/config/config.go (a
// flag.FlagSet plus prefixed environment variable overrides, CLI > env >
// default precedence, a validate() pass, and a SlogHandler picker).
package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration for the synthesis core.
// Precedence: CLI flags > env vars > defaults.
type Config struct {
	AudioRate      int
	AudioBufferSize int
	VoiceCount     int
	ThreadCount    int
	DataDir        string
	LogLevel       string
	LogFormat      string
	HTTPPort       int
	FireRateLimit  float64 // fire() calls per second accepted from the control surface, per Handle
	FireRateBurst  int
	JWTSecret      string // hex-encoded 32-byte secret for the control surface's bearer tokens
}

// defaults
const (
	defaultAudioRate       = 48000
	defaultAudioBufferSize = 2048
	defaultVoiceCount      = 256
	defaultThreadCount     = 1
	defaultDataDir         = "./data"
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"
	defaultHTTPPort        = 8080
	defaultFireRateLimit   = 200.0
	defaultFireRateBurst   = 64
)

// envPrefix is the prefix for all engine environment variables.
const envPrefix = "KUNQUAT_"

// Load parses configuration from CLI flags and environment variables.
// Precedence: CLI flags > env vars > defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("kunquatd", flag.ContinueOnError)

	fs.IntVar(&cfg.AudioRate, "audio-rate", defaultAudioRate, "render audio rate in frames per second")
	fs.IntVar(&cfg.AudioBufferSize, "audio-buffer-size", defaultAudioBufferSize, "maximum frames rendered per internal chunk")
	fs.IntVar(&cfg.VoiceCount, "voice-count", defaultVoiceCount, "voice pool size (non-negative; no upper bound is enforced)")
	fs.IntVar(&cfg.ThreadCount, "thread-count", defaultThreadCount, "number of worker threads for per-voice rendering")
	fs.StringVar(&cfg.DataDir, "data-dir", defaultDataDir, "data directory for the module store database")
	fs.StringVar(&cfg.LogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", defaultLogFormat, "log output format (text, json)")
	fs.IntVar(&cfg.HTTPPort, "http-port", defaultHTTPPort, "control-surface HTTP listen port")
	fs.Float64Var(&cfg.FireRateLimit, "fire-rate-limit", defaultFireRateLimit, "fire() calls per second accepted per Handle from the control surface")
	fs.IntVar(&cfg.FireRateBurst, "fire-rate-burst", defaultFireRateBurst, "fire() burst size per Handle")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "hex-encoded 32-byte secret for control-surface bearer tokens (authentication is disabled if empty)")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	applyEnvOverrides(fs, cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides checks environment variables for any flag that was not
// explicitly provided on the command line. This preserves the precedence:
// CLI flags > env vars > defaults.
func applyEnvOverrides(fs *flag.FlagSet, cfg *Config) {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	envMap := map[string]string{
		"audio-rate":        envPrefix + "AUDIO_RATE",
		"audio-buffer-size": envPrefix + "AUDIO_BUFFER_SIZE",
		"voice-count":       envPrefix + "VOICE_COUNT",
		"thread-count":      envPrefix + "THREAD_COUNT",
		"data-dir":          envPrefix + "DATA_DIR",
		"log-level":         envPrefix + "LOG_LEVEL",
		"log-format":        envPrefix + "LOG_FORMAT",
		"http-port":         envPrefix + "HTTP_PORT",
		"fire-rate-limit":   envPrefix + "FIRE_RATE_LIMIT",
		"fire-rate-burst":   envPrefix + "FIRE_RATE_BURST",
		"jwt-secret":        envPrefix + "JWT_SECRET",
	}

	for flagName, envVar := range envMap {
		if set[flagName] {
			continue
		}
		val, ok := os.LookupEnv(envVar)
		if !ok || val == "" {
			continue
		}
		switch flagName {
		case "audio-rate":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.AudioRate = v
			}
		case "audio-buffer-size":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.AudioBufferSize = v
			}
		case "voice-count":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.VoiceCount = v
			}
		case "thread-count":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.ThreadCount = v
			}
		case "data-dir":
			cfg.DataDir = val
		case "log-level":
			cfg.LogLevel = val
		case "log-format":
			cfg.LogFormat = val
		case "http-port":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.HTTPPort = v
			}
		case "fire-rate-limit":
			if v, err := strconv.ParseFloat(val, 64); err == nil {
				cfg.FireRateLimit = v
			}
		case "fire-rate-burst":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.FireRateBurst = v
			}
		case "jwt-secret":
			cfg.JWTSecret = val
		}
	}
}

// validate checks that the config values are sane.
func (c *Config) validate() error {
	if c.AudioRate < 1000 || c.AudioRate > 384000 {
		return fmt.Errorf("audio-rate must be between 1000 and 384000, got %d", c.AudioRate)
	}
	if c.AudioBufferSize < 1 {
		return fmt.Errorf("audio-buffer-size must be positive, got %d", c.AudioBufferSize)
	}
	if c.VoiceCount < 0 {
		return fmt.Errorf("voice-count must be non-negative, got %d", c.VoiceCount)
	}
	if c.ThreadCount < 1 {
		return fmt.Errorf("thread-count must be at least 1, got %d", c.ThreadCount)
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http-port must be between 1 and 65535, got %d", c.HTTPPort)
	}
	if c.FireRateLimit <= 0 {
		return fmt.Errorf("fire-rate-limit must be positive, got %v", c.FireRateLimit)
	}
	if c.FireRateBurst < 1 {
		return fmt.Errorf("fire-rate-burst must be at least 1, got %d", c.FireRateBurst)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log-level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("log-format must be one of text, json; got %q", c.LogFormat)
	}
	c.LogFormat = strings.ToLower(c.LogFormat)

	return nil
}

// SlogHandler returns a slog.Handler configured with the appropriate format
// (text or json) and log level.
func (c *Config) SlogHandler(w *os.File) slog.Handler {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SlogLevel returns the slog.Level corresponding to the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

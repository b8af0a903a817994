// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	applog "hearsim/internal/log"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	LogLevel  string          `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").
	Pipeline  PipelineConfig  `yaml:"pipeline"`  // Processing cache settings.
	Display   DisplayConfig   `yaml:"display"`   // Spectrogram display range.
	Server    ServerConfig    `yaml:"server"`    // HTTP API settings.
	Transport TransportConfig `yaml:"transport"` // Spectrogram streaming settings.
	Playback  PlaybackConfig  `yaml:"playback"`  // Audio output settings.
	Assets    AssetsConfig    `yaml:"assets"`    // Default input and output files.
}

// PipelineConfig holds settings for the processing pipeline.
type PipelineConfig struct {
	CacheMaxEntries int `yaml:"cache_max_entries"` // Cached results kept (0 for unbounded).
}

// DisplayConfig bounds what the spectrogram sinks show.
type DisplayConfig struct {
	MinDB        float64 `yaml:"min_db"`        // Values below are clamped up to this.
	MaxDB        float64 `yaml:"max_db"`        // Values above are clamped down to this.
	MaxFrequency float64 `yaml:"max_frequency"` // Bins above this frequency (Hz) are dropped.
}

// ServerConfig holds settings for serve mode.
type ServerConfig struct {
	Addr           string `yaml:"addr"`             // Listen address (e.g., ":8080").
	MaxUploadBytes int64  `yaml:"max_upload_bytes"` // Largest accepted request body.
	WebSocketPath  string `yaml:"websocket_path"`   // Route for spectrogram broadcast clients.
}

// TransportConfig holds settings related to sending spectrogram frames over the network.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Stream spectrogram frames over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets.
}

// PlaybackConfig holds settings for audio output.
type PlaybackConfig struct {
	OutputDevice    int  `yaml:"output_device"`     // PortAudio device index (-1 for default).
	FramesPerBuffer int  `yaml:"frames_per_buffer"` // Frames per output callback.
	LowLatency      bool `yaml:"low_latency"`       // Request low latency settings from PortAudio.
}

// AssetsConfig holds default file locations.
type AssetsConfig struct {
	DefaultSamplePaths []string `yaml:"default_sample_paths"` // Tried in order when no input is given.
	OutputFile         string   `yaml:"output_file"`          // Where processed audio is written.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Pipeline: PipelineConfig{
			CacheMaxEntries: DefaultCacheMaxEntries,
		},
		Display: DisplayConfig{
			MinDB:        DefaultMinDB,
			MaxDB:        DefaultMaxDB,
			MaxFrequency: DefaultMaxFrequency,
		},
		Server: ServerConfig{
			Addr:           DefaultServerAddr,
			MaxUploadBytes: DefaultMaxUploadBytes,
			WebSocketPath:  DefaultWebSocketPath,
		},
		Transport: TransportConfig{
			UDPEnabled:       DefaultUDPEnabled,
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
		Playback: PlaybackConfig{
			OutputDevice:    DefaultDeviceID,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
		},
		Assets: AssetsConfig{
			DefaultSamplePaths: slices.Clone(DefaultSamplePaths),
			OutputFile:         DefaultOutputFile,
		},
	}
}

// searchPaths are tried in order when LoadConfig is given an empty path.
var searchPaths = []string{"hearsim.yaml", "config.yaml"}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches the working directory for hearsim.yaml then config.yaml; if neither exists
// the built-in defaults are used. Environment overrides are applied last and the result
// is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range searchPaths {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("Config: loaded %s", path)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid field, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error, fatal", c.LogLevel))
	}
	if c.Pipeline.CacheMaxEntries < 0 {
		errs = append(errs, fmt.Errorf("pipeline.cache_max_entries must not be negative, got %d", c.Pipeline.CacheMaxEntries))
	}
	if c.Display.MaxDB-c.Display.MinDB < MinDisplaySpanDB {
		errs = append(errs, fmt.Errorf("display.max_db (%g) must exceed display.min_db (%g) by at least %g dB",
			c.Display.MaxDB, c.Display.MinDB, MinDisplaySpanDB))
	}
	if !(c.Display.MaxFrequency > 0) {
		errs = append(errs, fmt.Errorf("display.max_frequency must be positive, got %g", c.Display.MaxFrequency))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must be set"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes))
	}
	if !strings.HasPrefix(c.Server.WebSocketPath, "/") {
		errs = append(errs, fmt.Errorf("server.websocket_path %q must start with '/'", c.Server.WebSocketPath))
	}
	if c.Transport.UDPEnabled {
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			errs = append(errs, fmt.Errorf("transport.udp_target_address '%s' appears invalid (missing port?)", c.Transport.UDPTargetAddress))
		}
		if c.Transport.UDPSendInterval <= 0 {
			errs = append(errs, errors.New("transport.udp_send_interval must be positive when UDP is enabled"))
		}
	}
	if c.Playback.OutputDevice < MinDeviceID {
		errs = append(errs, fmt.Errorf("playback.output_device must be >= %d, got %d", MinDeviceID, c.Playback.OutputDevice))
	}
	if c.Playback.FramesPerBuffer <= 0 || c.Playback.FramesPerBuffer > MaxFramesPerBuffer {
		errs = append(errs, fmt.Errorf("playback.frames_per_buffer must be in [1, %d], got %d", MaxFramesPerBuffer, c.Playback.FramesPerBuffer))
	}
	if c.Assets.OutputFile == "" {
		errs = append(errs, errors.New("assets.output_file must be set"))
	}

	return errors.Join(errs...)
}

// applyEnvOverrides lets HEARSIM_* variables replace file or default values.
// Unparseable values are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("HEARSIM_LOG_LEVEL"); ok {
		c.LogLevel = val
		applog.Infof("Config: overriding log_level from env: %s", val)
	}

	// HEARSIM_CACHE_MAX_ENTRIES
	if val, ok := os.LookupEnv("HEARSIM_CACHE_MAX_ENTRIES"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Pipeline.CacheMaxEntries = n
			applog.Infof("Config: overriding pipeline.cache_max_entries from env: %d", n)
		} else {
			applog.Warnf("Config: ignoring HEARSIM_CACHE_MAX_ENTRIES=%q: %v", val, err)
		}
	}

	// HEARSIM_SERVER_ADDR
	if val, ok := os.LookupEnv("HEARSIM_SERVER_ADDR"); ok {
		c.Server.Addr = val
		applog.Infof("Config: overriding server.addr from env: %s", val)
	}

	// HEARSIM_UDP_{...}
	// These are specific to the transport layer.

	// HEARSIM_UDP_ENABLED
	if val, ok := os.LookupEnv("HEARSIM_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
			applog.Infof("Config: overriding transport.udp_enabled from env: %v", b)
		} else {
			applog.Warnf("Config: ignoring HEARSIM_UDP_ENABLED=%q: %v", val, err)
		}
	}
	// HEARSIM_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("HEARSIM_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		applog.Infof("Config: overriding transport.udp_target_address from env: %s", val)
	}
	// HEARSIM_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("HEARSIM_UDP_SEND_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = d
			applog.Infof("Config: overriding transport.udp_send_interval from env: %s", d)
		} else {
			applog.Warnf("Config: ignoring HEARSIM_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}
}

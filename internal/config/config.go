// SPDX-License-Identifier: MIT
package config

import "time"

// Defaults and limits for hearsim. LoadConfig starts from these values before
// applying the config file and environment overrides.
const (
	// Logging
	DefaultLogLevel = "info"

	// Pipeline cache
	DefaultCacheMaxEntries = 32 // Distinct (audio, cutoff) results kept in memory

	// Display sink
	DefaultMinDB        = -80.0   // Quietest value shown
	DefaultMaxDB        = 0.0     // Loudest value shown (reference level)
	DefaultMaxFrequency = 12000.0 // Frequency ceiling of the spectrogram (Hz)

	// HTTP server
	DefaultServerAddr     = ":8080"
	DefaultMaxUploadBytes = 64 << 20 // 64 MiB of WAV data
	DefaultWebSocketPath  = "/ws"

	// UDP spectrogram stream
	DefaultUDPEnabled       = false
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond // ~30 frames per second

	// Playback
	DefaultDeviceID        = MinDeviceID // System default output device
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultLowLatency      = false

	// Assets
	DefaultOutputFile = "simulated_hearing.wav"

	// Limits
	MinDeviceID        = -1 // -1 represents the system default device
	MaxFramesPerBuffer = 8192
	MinDisplaySpanDB   = 1.0 // max_db - min_db must be at least this wide
)

// DefaultSamplePaths are tried in order when no input file is given.
var DefaultSamplePaths = []string{"Sample1.mp3", "ElderHearingFreqLoss/Sample1.mp3"}

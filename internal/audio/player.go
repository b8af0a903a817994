// SPDX-License-Identifier: MIT
/*
Package audio moves sample buffers in and out of the process: WAV decoding and
encoding, file export, output device discovery and playback through PortAudio.

Samples are mono float64 in [-1, 1]. Multi-channel input is mixed down on
decode; playback and export are mono.

Playback Thread Safety:
  - The PortAudio callback only reads the pre-converted float32 buffer and
    advances an atomic position; it never allocates.
  - Completion is signalled once through a channel closed under sync.Once.
*/
package audio

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"hearsim/internal/config"
	applog "hearsim/internal/log"
)

// ErrPlaying is returned by Play while a previous buffer is still playing.
var ErrPlaying = errors.New("audio: playback already in progress")

// Player plays sample buffers on one output device. PortAudio must be
// initialized (Initialize) for the Player's lifetime.
type Player struct {
	config config.PlaybackConfig

	device  *portaudio.DeviceInfo
	latency time.Duration

	mu       sync.Mutex
	stream   *portaudio.Stream
	samples  []float32
	pos      atomic.Int64
	done     chan struct{}
	doneOnce *sync.Once
}

// NewPlayer resolves the configured output device.
func NewPlayer(cfg config.PlaybackConfig) (*Player, error) {
	device, err := OutputDevice(cfg.OutputDevice)
	if err != nil {
		return nil, err
	}

	p := &Player{config: cfg, device: device}
	if cfg.LowLatency {
		p.latency = device.DefaultLowOutputLatency
	} else {
		p.latency = device.DefaultHighOutputLatency
	}
	return p, nil
}

// Play starts playing samples at sampleRate and returns immediately. Use Wait
// to block until the buffer has been played.
func (p *Player) Play(samples []float64, sampleRate int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream != nil {
		select {
		case <-p.done:
			p.closeStreamLocked()
		default:
			return ErrPlaying
		}
	}

	p.load(samples)

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 0, // No input device
			Device:   nil,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   p.device,
			Latency:  p.latency,
		},
		FramesPerBuffer: p.config.FramesPerBuffer,
		SampleRate:      float64(sampleRate),
	}

	stream, err := portaudio.OpenStream(params, p.fill)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}
	p.stream = stream

	applog.Infof("Audio: playing %d samples at %d Hz on %s", len(samples), sampleRate, p.device.Name)
	return nil
}

// load converts samples for the callback and resets the play position.
func (p *Player) load(samples []float64) {
	p.samples = make([]float32, len(samples))
	for i, v := range samples {
		p.samples[i] = float32(v)
	}
	p.pos.Store(0)
	p.done = make(chan struct{})
	p.doneOnce = &sync.Once{}
	if len(samples) == 0 {
		p.finish()
	}
}

// fill is the PortAudio output callback. It copies the next block of samples
// and pads with silence once the buffer is exhausted.
func (p *Player) fill(out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	pos := int(p.pos.Load())
	n := copy(out, p.samples[min(pos, len(p.samples)):])
	clear(out[n:])
	p.pos.Store(int64(pos + n))

	if pos+n >= len(p.samples) {
		p.finish()
	}
}

func (p *Player) finish() {
	p.doneOnce.Do(func() { close(p.done) })
}

// Position returns how many samples have been handed to the device.
func (p *Player) Position() int {
	return int(p.pos.Load())
}

// Wait blocks until the current buffer has played or ctx is done. Wait
// returns immediately when nothing was played.
func (p *Player) Wait(ctx context.Context) error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	// Let the device drain its last buffer before the stream is stopped.
	select {
	case <-time.After(p.latency):
	case <-ctx.Done():
	}
	return nil
}

// Close stops playback and releases the stream.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeStreamLocked()
}

func (p *Player) closeStreamLocked() error {
	if p.stream == nil {
		return nil
	}
	stream := p.stream
	p.stream = nil

	if err := stream.Stop(); err != nil {
		stream.Close()
		return err
	}
	return stream.Close()
}

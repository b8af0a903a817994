// Package utils holds deterministic signal generators and test doubles shared
// by the package tests.
package utils

import (
	"math"
	"math/rand"
	"sync"
)

// MockTransport records what it is sent instead of transmitting it. It
// satisfies transport.Transport.
type MockTransport struct {
	mu       sync.Mutex
	LastData any
	Count    int
	Closed   bool
}

// Send stores the data for later inspection. Float slices are copied so the
// caller may reuse its buffer.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f, ok := data.([]float64); ok {
		c := make([]float64, len(f))
		copy(c, f)
		data = c
	}
	m.LastData = data
	m.Count++
	return nil
}

// Sent returns the number of Send calls and the last payload.
func (m *MockTransport) Sent() (int, any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Count, m.LastData
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	return nil
}

// GenerateComplexWave returns a 440 Hz fundamental with two harmonics, peak
// amplitude 0.9.
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = signal * 0.9
	}
	return buffer
}

// GenerateSineWave returns size samples of a sine at frequency Hz.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []float64 {
	buffer := make([]float64, size)
	step := 2 * math.Pi * frequency / sampleRate
	for i := range buffer {
		buffer[i] = amplitude * math.Sin(step*float64(i))
	}
	return buffer
}

// DeterministicNoise returns uniform white noise in [-amplitude, amplitude)
// from a fixed seed.
func DeterministicNoise(seed int64, amplitude float64, size int) []float64 {
	out := make([]float64, size)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// DC returns a constant-valued signal.
func DC(value float64, size int) []float64 {
	out := make([]float64, size)
	for i := range out {
		out[i] = value
	}
	return out
}

// FindPeakBin returns the index of the largest value in
// magnitudes[startBin:endBin+1], clamping the range to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}

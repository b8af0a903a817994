// SPDX-License-Identifier: MIT
package transport

import (
	applog "hearsim/internal/log"
)

// grid is satisfied by spectrogram-shaped payloads such as display.Frame.
type grid interface {
	Bins() int
	Frames() int
}

// LoggingTransport implements the Transport interface by logging a one-line
// summary of each payload.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data at debug level. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	switch v := data.(type) {
	case grid:
		applog.Debugf("LoggingTransport: %T (%d bins x %d frames)", v, v.Bins(), v.Frames())
	case []float64:
		applog.Debugf("LoggingTransport: []float64 (%d values)", len(v))
	default:
		applog.Debugf("LoggingTransport: %T", v)
	}
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("LoggingTransport: Close called.")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)

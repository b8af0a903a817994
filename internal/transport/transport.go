// SPDX-License-Identifier: MIT
//
// Package transport delivers analysis output (display frames, summaries) to
// consumers outside the process.
package transport

import (
	"errors"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport: closed")

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// Multi fans every Send out to each transport in order. A failing transport
// does not stop delivery to the others; the errors are joined.
type Multi []Transport

func (m Multi) Send(data any) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Multi(nil)

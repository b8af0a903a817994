// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	applog "hearsim/internal/log"
)

// ErrSenderClosed is returned by Send after Close.
var ErrSenderClosed = errors.New("udp: sender is closed")

// Sender writes datagrams to one target address.
type Sender struct {
	conn   *net.UDPConn
	mu     sync.Mutex // Protects conn during Close
	closed bool
}

// NewSender dials targetAddress ("host:port", e.g. "127.0.0.1:9090"). UDP
// dialing only binds a local socket; nothing is sent until Send.
func NewSender(targetAddress string) (*Sender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("resolve UDP target address %q: %w", targetAddress, err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("dial UDP target %q: %w", targetAddress, err)
	}

	applog.Infof("UDP Sender: Connection established to %s", conn.RemoteAddr())
	return &Sender{conn: conn}, nil
}

// Send transmits data as a single datagram. It is safe for concurrent use.
func (s *Sender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSenderClosed
	}
	if _, err := s.conn.Write(data); err != nil {
		applog.Warnf("UDP Sender: Error sending packet: %v", err)
		return fmt.Errorf("send UDP packet: %w", err)
	}
	return nil
}

// Close closes the underlying connection. Subsequent calls are no-ops.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	applog.Debugf("UDP Sender: Closing connection to %s", s.conn.RemoteAddr())
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close UDP connection: %w", err)
	}
	return nil
}

var _ interface{ Close() error } = (*Sender)(nil)

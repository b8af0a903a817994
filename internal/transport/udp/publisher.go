// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"hearsim/internal/display"
	applog "hearsim/internal/log"
	"hearsim/internal/transport"
)

// DefaultInterval is used when NewPublisher is given a non-positive interval.
const DefaultInterval = 33 * time.Millisecond

// headerSize is the fixed part of every packet.
const headerSize = 4 + 8 + 4 + 2

/*
Packet Structure (BigEndian)

+-------------------------------------------------------------------------+
| Field          | Data Type | Size (Bytes) | Description                   |
|----------------|-----------|--------------|-------------------------------|
| Sequence       | uint32    | 4            | Monotonically increasing      |
| Timestamp      | int64     | 8            | Nanoseconds since epoch       |
| Frame Index    | uint32    | 4            | Time column in the spectrogram|
| Bin Count      | uint16    | 2            | Number of values (N)          |
| Values         | []float32 | N * 4        | dB per bin, lowest bin first  |
+-------------------------------------------------------------------------+
*/

// Packet is one decoded spectrogram column.
type Packet struct {
	Sequence   uint32
	Timestamp  int64
	FrameIndex uint32
	Values     []float32
}

type column struct {
	index  uint32
	values []float64
}

// Publisher streams spectrogram frames over UDP, one time column per tick.
// Frames handed to Send are queued; Start launches the goroutine that
// drains the queue at the configured interval.
type Publisher struct {
	sender   *Sender
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker, doneChan and queue.

	queue []column

	// Only touched by the publishing goroutine.
	sequenceNum  uint32
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewPublisher returns a stopped Publisher writing through sender.
func NewPublisher(interval time.Duration, sender *Sender) (*Publisher, error) {
	if sender == nil {
		return nil, errors.New("udp: sender cannot be nil")
	}
	if interval <= 0 {
		applog.Warnf("UDPPublisher: Invalid interval %s, defaulting to %s", interval, DefaultInterval)
		interval = DefaultInterval
	}
	applog.Infof("UDPPublisher: Initializing (Interval: %s)", interval)

	return &Publisher{
		sender:       sender,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Send queues every time column of a *display.Frame. Other payloads are
// rejected.
func (p *Publisher) Send(data any) error {
	f, ok := data.(*display.Frame)
	if !ok {
		return fmt.Errorf("udp: cannot publish %T", data)
	}
	if f.Bins() > math.MaxUint16 {
		return fmt.Errorf("udp: %d bins exceed packet capacity", f.Bins())
	}

	cols := make([]column, f.Frames())
	for j := range cols {
		cols[j] = column{index: uint32(j), values: f.Column(j)}
	}

	p.mu.Lock()
	p.queue = append(p.queue, cols...)
	p.mu.Unlock()
	return nil
}

// Pending returns the number of queued columns not yet sent.
func (p *Publisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Flush blocks until the queue is empty or ctx is done. The publisher must
// be started.
func (p *Publisher) Flush(ctx context.Context) error {
	poll := time.NewTicker(p.interval)
	defer poll.Stop()
	for p.Pending() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
		}
	}
	return nil
}

// Start launches the publishing goroutine. Calling Start on a running
// publisher is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Debugf("UDPPublisher: Publisher goroutine started")
		for {
			select {
			case <-ticker.C:
				if c, ok := p.next(); ok {
					p.buildAndSendPacket(c)
				}
			case <-doneChan:
				return
			}
		}
	}()
}

func (p *Publisher) next() (column, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return column{}, false
	}
	c := p.queue[0]
	p.queue = p.queue[1:]
	return c, true
}

// Stop signals the publishing goroutine to exit and waits for it. Queued
// columns stay queued. Stop on a stopped publisher is a no-op.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("UDPPublisher: Publisher goroutine finished.")
	return nil
}

func (p *Publisher) buildAndSendPacket(c column) {
	if cap(p.f32Buffer) < len(c.values) {
		p.f32Buffer = make([]float32, len(c.values))
	}
	p.f32Buffer = p.f32Buffer[:len(c.values)]
	for i, v := range c.values {
		p.f32Buffer[i] = float32(v)
	}

	p.sequenceNum++
	p.packetBuffer.Reset()
	err := EncodePacket(p.packetBuffer, Packet{
		Sequence:   p.sequenceNum,
		Timestamp:  time.Now().UnixNano(),
		FrameIndex: c.index,
		Values:     p.f32Buffer,
	})
	if err != nil {
		applog.Errorf("UDPPublisher: Error packing frame %d: %v", c.index, err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err == nil {
		applog.Debugf("UDPPublisher: Sent packet %d (frame %d, %d bytes)",
			p.sequenceNum, c.index, p.packetBuffer.Len())
	}
}

// Close stops the publisher. The sender is owned by the caller.
func (p *Publisher) Close() error {
	return p.Stop()
}

// EncodePacket writes pkt in wire format.
func EncodePacket(buf *bytes.Buffer, pkt Packet) error {
	if len(pkt.Values) > math.MaxUint16 {
		return fmt.Errorf("udp: %d values exceed packet capacity", len(pkt.Values))
	}
	var hdr [headerSize]byte
	binary.BigEndian.PutUint32(hdr[0:], pkt.Sequence)
	binary.BigEndian.PutUint64(hdr[4:], uint64(pkt.Timestamp))
	binary.BigEndian.PutUint32(hdr[12:], pkt.FrameIndex)
	binary.BigEndian.PutUint16(hdr[16:], uint16(len(pkt.Values)))
	buf.Write(hdr[:])
	return binary.Write(buf, binary.BigEndian, pkt.Values)
}

// DecodePacket parses one datagram.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < headerSize {
		return Packet{}, fmt.Errorf("udp: packet too short (%d bytes)", len(b))
	}
	n := int(binary.BigEndian.Uint16(b[16:]))
	if len(b) != headerSize+4*n {
		return Packet{}, fmt.Errorf("udp: packet length %d does not match %d values", len(b), n)
	}

	pkt := Packet{
		Sequence:   binary.BigEndian.Uint32(b[0:]),
		Timestamp:  int64(binary.BigEndian.Uint64(b[4:])),
		FrameIndex: binary.BigEndian.Uint32(b[12:]),
		Values:     make([]float32, n),
	}
	for i := range pkt.Values {
		pkt.Values[i] = math.Float32frombits(binary.BigEndian.Uint32(b[headerSize+4*i:]))
	}
	return pkt, nil
}

var _ transport.Transport = (*Publisher)(nil)

// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	applog "hearsim/internal/log"
)

const (
	broadcastQueue = 16
	writeWait      = 5 * time.Second
)

// WebSocketTransport broadcasts every payload as JSON to all connected
// WebSocket clients. It is an http.Handler; mount it on the server mux at
// the configured path.
type WebSocketTransport struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex

	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewWebSocketTransport creates a WebSocketTransport and starts its
// broadcast goroutine.
func NewWebSocketTransport() *WebSocketTransport {
	wst := &WebSocketTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API has no browser session to protect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, broadcastQueue),
		done:      make(chan struct{}),
	}

	wst.wg.Add(1)
	go wst.handleBroadcasts()
	return wst
}

// ServeHTTP upgrades the connection and registers the client.
func (wst *WebSocketTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-wst.done:
		http.Error(w, "transport closed", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	n := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("WebSocketTransport: Client connected from %s, total: %d", r.RemoteAddr, n)

	// Clients only listen; reading is how a close frame or a dropped
	// connection is noticed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.drop(conn)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) drop(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	n := len(wst.clients)
	wst.clientsMu.Unlock()

	if ok {
		conn.Close()
		applog.Infof("WebSocketTransport: Client disconnected, total: %d", n)
	}
}

// handleBroadcasts sends queued messages to all connected clients.
func (wst *WebSocketTransport) handleBroadcasts() {
	defer wst.wg.Done()
	for {
		select {
		case data := <-wst.broadcast:
			wst.writeAll(data)
		case <-wst.done:
			return
		}
	}
}

func (wst *WebSocketTransport) writeAll(data any) {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()

	for client := range wst.clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteJSON(data); err != nil {
			applog.Warnf("WebSocketTransport: Error sending to client: %v", err)
			client.Close()
			delete(wst.clients, client)
		}
	}
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// Send queues data for broadcast. When the queue is full the message is
// dropped; a slow client never stalls the caller.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return ErrClosed
	default:
	}

	select {
	case wst.broadcast <- data:
	default:
		applog.Warnf("WebSocketTransport: Broadcast queue full, dropping %T", data)
	}
	return nil
}

// Close stops broadcasting and disconnects every client. It is safe to call
// more than once.
func (wst *WebSocketTransport) Close() error {
	wst.closeOnce.Do(func() {
		applog.Infof("WebSocketTransport: Closing")
		close(wst.done)
		wst.wg.Wait()

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientsMu.Unlock()
	})
	return nil
}

// Ensure WebSocketTransport satisfies the interface
var (
	_ Transport    = (*WebSocketTransport)(nil)
	_ http.Handler = (*WebSocketTransport)(nil)
)

// Package ws implements the live-notification side of the bridge: a
// process-wide registry mapping each user id to at most one WebSocket
// connection, plus the Gin handler that upgrades and services those
// connections.
//
// Delivery contract: at-most-once, best-effort. Send to an absent user is a
// drop, not an error; a full or broken connection is dropped and evicted.
// Registry state is purely in-memory and lost on restart — clients reconnect
// to keep receiving notifications, and past communications stay fetchable
// through the CRUD read path.
package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var activeConns = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "ws_connections_active",
	Help: "Current number of registered WebSocket connections.",
})

func init() {
	prometheus.MustRegister(activeConns)
}

const (
	sendBuffer    = 256
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
)

// Conn is one live user connection. Payloads queued on send are written to
// the socket by the write pump.
type Conn struct {
	userID uint
	send   chan []byte
	closed bool // guarded by the registry mutex
}

// Registry maps user ids to live connections. One connection per user: a
// re-registration (reconnect) replaces and closes the previous one.
// The zero value is not usable; construct with NewRegistry. All methods are
// safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	conns    map[uint]*Conn
	upgrader websocket.Upgrader
}

// NewRegistry constructs an empty registry. It is injected into the HTTP
// layer and owned by main, which calls Close on shutdown.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[uint]*Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser frontends connect cross-origin; access control for
			// the HTTP surface is handled by the CORS middleware.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Register creates and installs a connection handle for userID, replacing
// (and closing) any previous one. Last writer wins: this is how reconnects
// work without an explicit handshake.
func (r *Registry) Register(userID uint) *Conn {
	c := &Conn{userID: userID, send: make(chan []byte, sendBuffer)}

	r.mu.Lock()
	if old, ok := r.conns[userID]; ok {
		r.closeLocked(old)
	}
	r.conns[userID] = c
	activeConns.Set(float64(len(r.conns)))
	r.mu.Unlock()

	log.Debug().Uint("user_id", userID).Msg("connection registered")
	return c
}

// Unregister removes the connection for userID, but only if c is still the
// installed one — a stale disconnect must not tear down a fresh reconnect.
func (r *Registry) Unregister(userID uint, c *Conn) {
	r.mu.Lock()
	if cur, ok := r.conns[userID]; ok && cur == c {
		delete(r.conns, userID)
		r.closeLocked(c)
		activeConns.Set(float64(len(r.conns)))
	}
	r.mu.Unlock()

	log.Debug().Uint("user_id", userID).Msg("connection unregistered")
}

// Send queues payload for userID and reports whether it was accepted for
// delivery. No registered connection → dropped (false). A connection whose
// buffer is full is treated as broken: the payload is dropped and the
// connection evicted. Send never blocks and never panics: channel close only
// ever happens while holding the write lock, so a queued send cannot race a
// close.
func (r *Registry) Send(userID uint, payload []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[userID]
	if !ok || c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		delete(r.conns, userID)
		r.closeLocked(c)
		activeConns.Set(float64(len(r.conns)))
		log.Warn().Uint("user_id", userID).Msg("connection buffer full, evicted")
		return false
	}
}

// Close tears down every live connection. Called once at shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	for id, c := range r.conns {
		delete(r.conns, id)
		r.closeLocked(c)
	}
	activeConns.Set(0)
	r.mu.Unlock()
}

// closeLocked closes a connection's send channel exactly once.
// Callers must hold r.mu.
func (r *Registry) closeLocked(c *Conn) {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Serve upgrades the request on /ws/:user_id and services the connection
// until the peer disconnects. The read pump exists only to detect
// disconnects: clients are not expected to send frames.
func (r *Registry) Serve(c *gin.Context, userID uint) {
	sock, err := r.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Uint("user_id", userID).Msg("websocket upgrade failed")
		return
	}

	conn := r.Register(userID)
	go r.writePump(sock, conn)
	go r.readPump(sock, conn)
}

func (r *Registry) readPump(sock *websocket.Conn, c *Conn) {
	defer func() {
		r.Unregister(c.userID, c)
		sock.Close()
	}()
	for {
		if _, _, err := sock.ReadMessage(); err != nil {
			return
		}
	}
}

func (r *Registry) writePump(sock *websocket.Conn, c *Conn) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		sock.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			sock.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				// Registry closed the channel (replacement or shutdown).
				sock.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sock.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			sock.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

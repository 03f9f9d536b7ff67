// Package stream pushes shop events to websocket watchers.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/sleeping-barber/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// checkOrigin accepts requests without an Origin header, same-host
// origins and the configured origins.
func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if slices.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

type watcher struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub keeps the set of connected watchers and fans events out to them.
// Slow watchers are disconnected rather than allowed to hold up the shop.
type Hub struct {
	upgrader   websocket.Upgrader
	watchers   map[*watcher]bool
	broadcast  chan []byte
	register   chan *watcher
	unregister chan *watcher
	count      chan chan int
	done       chan struct{}
}

// NewHub returns a hub; call Run before serving connections.  Browsers
// may connect from the API host or from one of allowedOrigins.
func NewHub(allowedOrigins ...string) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		watchers:   make(map[*watcher]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *watcher),
		unregister: make(chan *watcher),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Run owns the watcher set until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for w := range h.watchers {
				close(w.send)
				delete(h.watchers, w)
			}
			log.Infof("stream: hub stopped")
			return
		case w := <-h.register:
			h.watchers[w] = true
		case w := <-h.unregister:
			if h.watchers[w] {
				delete(h.watchers, w)
				close(w.send)
			}
		case reply := <-h.count:
			reply <- len(h.watchers)
		case msg := <-h.broadcast:
			for w := range h.watchers {
				select {
				case w.send <- msg:
				default:
					close(w.send)
					delete(h.watchers, w)
				}
			}
		}
	}
}

// Observe implements barbershop.Observer.  Events are dropped when the
// broadcast buffer is full.
func (h *Hub) Observe(ev model.ShopEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("stream: marshal event: %v", err)
		return
	}
	select {
	case h.broadcast <- payload:
	default:
	}
}

// Watchers returns the number of connected watchers.  Run must be active.
func (h *Hub) Watchers() int {
	reply := make(chan int)
	h.count <- reply
	return <-reply
}

// Serve upgrades GET /v1/shop/stream to a websocket and streams events
// until the peer goes away.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	w := &watcher{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- w:
	case <-h.done:
		return conn.Close()
	}
	go h.writePump(w)
	h.readPump(w)
	return nil
}

// readPump discards anything the watcher sends; it exists to notice
// closes and answer pings.
func (h *Hub) readPump(w *watcher) {
	defer func() {
		select {
		case h.unregister <- w:
		case <-h.done:
		}
		_ = w.conn.Close()
	}()
	w.conn.SetReadLimit(maxMessageSize)
	_ = w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warnf("stream: read: %v", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(w *watcher) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = w.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-w.send:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = w.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := w.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"telecare-session-service/internal/room"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Handler is the signaling gateway: it upgrades connections and forwards the
// three room commands to the registry. It holds no state of its own beyond
// per-connection bookkeeping for the disconnect hook.
type Handler struct {
	registry *room.Registry
	upgrader websocket.Upgrader
}

func NewHandler(registry *room.Registry) *Handler {
	return &Handler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// conn wraps one signaling connection. It implements room.Subscriber; Notify
// never blocks, dropping the oldest queued notification under backpressure.
type conn struct {
	ws   *websocket.Conn
	send chan outboundMessage
	done chan struct{}

	mu     sync.Mutex
	joined map[string]string // roomID -> peerID, for the disconnect hook
}

func (c *conn) Notify(event string, payload any) {
	msg := outboundMessage{Type: event, Payload: payload}
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (c *conn) track(roomID, peerID string) {
	c.mu.Lock()
	c.joined[roomID] = peerID
	c.mu.Unlock()
}

func (c *conn) untrack(roomID string) {
	c.mu.Lock()
	delete(c.joined, roomID)
	c.mu.Unlock()
}

func (c *conn) memberships() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.joined))
	for r, p := range c.joined {
		out[r] = p
	}
	return out
}

// ServeWS upgrades the request and runs the connection's read loop. Each
// command is handled on its own goroutine because the registry applies its
// settle delay inline; the registry's per-room lock restores ordering.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	c := &conn{
		ws:     wsConn,
		send:   make(chan outboundMessage, 16),
		done:   make(chan struct{}),
		joined: make(map[string]string),
	}
	go h.writePump(c)

	wsConn.SetReadLimit(maxMessageSize)
	_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var inbound inboundMessage
		if err := wsConn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(c, inbound)
	}

	// Disconnect hook: an abrupt connection loss counts as leave for every
	// (room, peer) pair this connection joined.
	for roomID, peerID := range c.memberships() {
		roomID, peerID := roomID, peerID
		go h.registry.Leave(roomID, peerID)
	}
	close(c.done)
}

func (h *Handler) dispatch(c *conn, inbound inboundMessage) {
	switch inbound.Type {
	case CmdJoinRoom:
		var p roomPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil || p.RoomID == "" || p.PeerID == "" {
			log.Printf("malformed join-room payload: %v", err)
			return
		}
		// Tracked before dispatch so an abrupt disconnect racing the join
		// still triggers the leave hook; a rejected join untracks again and
		// the superfluous leave is a registry no-op.
		c.track(p.RoomID, p.PeerID)
		go func() {
			if err := h.registry.Join(p.RoomID, p.PeerID, c); err != nil {
				c.untrack(p.RoomID)
			}
		}()
	case CmdLeaveRoom:
		var p roomPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return
		}
		c.untrack(p.RoomID)
		go h.registry.Leave(p.RoomID, p.PeerID)
	case CmdEndRoom:
		var p roomPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return
		}
		c.untrack(p.RoomID)
		go h.registry.End(p.RoomID, p.PeerID)
	case CmdSignal:
		var p signalPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return
		}
		target, ok := h.registry.Peer(p.RoomID, p.Target)
		if !ok {
			log.Printf("signal relay: no peer %s in room %s", p.Target, p.RoomID)
			return
		}
		target.Notify(EventSignal, SignalEnvelope{PeerID: p.PeerID, Data: p.Data})
	default:
		// Forward-compatible no-op.
	}
}

func (h *Handler) writePump(c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

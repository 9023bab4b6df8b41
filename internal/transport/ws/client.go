package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"telecare-session-service/internal/domain"
	"telecare-session-service/internal/room"

	"github.com/gorilla/websocket"
)

// ClientHandler receives server notifications on a signaling connection.
type ClientHandler interface {
	OnUserJoined(peerID string)
	OnMembership(roomID string, participants map[string]domain.Participant)
	OnUserDisconnected(peerID string)
	OnRoomEnded(peerID string)
	OnRoomFull(peerID string)
	OnSignal(from string, data json.RawMessage)
}

// Client is the connection-side half of the signaling gateway.
type Client struct {
	conn    *websocket.Conn
	handler ClientHandler

	mu     sync.Mutex
	closed chan struct{}
}

// Dial connects to the signaling server and starts the read and ping loops.
func Dial(serverURL string, handler ClientHandler) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("signaling dial: %w", err)
	}
	c := &Client{
		conn:    conn,
		handler: handler,
		closed:  make(chan struct{}),
	}
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go c.readLoop()
	go c.pingLoop()
	return c, nil
}

// JoinRoom asks to join roomID under peerID. Admission or rejection arrives
// asynchronously as get-users or room-full.
func (c *Client) JoinRoom(roomID, peerID, userName, role string) error {
	return c.sendCommand(CmdJoinRoom, roomPayload{RoomID: roomID, PeerID: peerID, UserName: userName, Role: role})
}

func (c *Client) LeaveRoom(roomID, peerID string) error {
	return c.sendCommand(CmdLeaveRoom, roomPayload{RoomID: roomID, PeerID: peerID})
}

func (c *Client) EndRoom(roomID, peerID string) error {
	return c.sendCommand(CmdEndRoom, roomPayload{RoomID: roomID, PeerID: peerID})
}

// Signal relays an opaque negotiation payload to the room counterpart.
func (c *Client) Signal(roomID, peerID, target string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	return c.sendCommand(CmdSignal, signalPayload{RoomID: roomID, PeerID: peerID, Target: target, Data: raw})
}

func (c *Client) sendCommand(cmd string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", cmd, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(inboundMessage{Type: cmd, Payload: raw}); err != nil {
		return fmt.Errorf("send %s: %w", cmd, err)
	}
	return nil
}

// Close shuts the connection down; safe to call twice.
func (c *Client) Close() {
	select {
	case <-c.closed:
		return
	default:
		close(c.closed)
	}
	c.conn.Close()
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.closed:
			default:
				log.Printf("signaling read: %v", err)
			}
			return
		}
		c.dispatch(msg.Type, msg.Payload)
	}
}

func (c *Client) dispatch(event string, payload json.RawMessage) {
	switch event {
	case room.EventUserJoined:
		var p room.PeerPayload
		if err := json.Unmarshal(payload, &p); err == nil {
			c.handler.OnUserJoined(p.PeerID)
		}
	case room.EventGetUsers:
		var p room.MembershipPayload
		if err := json.Unmarshal(payload, &p); err == nil {
			c.handler.OnMembership(p.RoomID, p.Participants)
		}
	case room.EventUserDisconnected:
		var peerID string
		if err := json.Unmarshal(payload, &peerID); err == nil {
			c.handler.OnUserDisconnected(peerID)
		}
	case room.EventRoomEnded:
		var peerID string
		if err := json.Unmarshal(payload, &peerID); err == nil {
			c.handler.OnRoomEnded(peerID)
		}
	case room.EventRoomFull:
		var p room.PeerPayload
		if err := json.Unmarshal(payload, &p); err == nil {
			c.handler.OnRoomFull(p.PeerID)
		}
	case EventSignal:
		var env SignalEnvelope
		if err := json.Unmarshal(payload, &env); err == nil {
			c.handler.OnSignal(env.PeerID, env.Data)
		}
	default:
		// Forward-compatible no-op.
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			c.mu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(5*time.Second))
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

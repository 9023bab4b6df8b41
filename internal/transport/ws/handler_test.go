package ws

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"telecare-session-service/internal/room"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	handler := NewHandler(room.New(0))
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, "ws" + server.URL[len("http"):] + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendJoin(t *testing.T, conn *websocket.Conn, roomID, peerID string) {
	t.Helper()
	msg := map[string]any{
		"type": "join-room",
		"payload": map[string]any{
			"roomId":   roomID,
			"peerId":   peerID,
			"userName": "tester",
			"role":     "doctor",
		},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write join: %v", err)
	}
}

func readNext(t *testing.T, conn *websocket.Conn, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string `json:"type"`
		Payload any    `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected %s, got %s (payload %v)", expect, msg.Type, msg.Payload)
	}
	payload, _ := msg.Payload.(map[string]any)
	return msg.Type, payload
}

func TestJoinJoinThenRoomFull(t *testing.T) {
	_, url := newTestServer(t)

	p1 := dial(t, url)
	sendJoin(t, p1, "R", "P1")
	_, snapshot := readNext(t, p1, "get-users")
	participants := snapshot["participants"].(map[string]any)
	if len(participants) != 1 {
		t.Fatalf("expected 1 participant, got %v", participants)
	}

	p2 := dial(t, url)
	sendJoin(t, p2, "R", "P2")

	// P1 sees the new peer then the refreshed snapshot; P2 sees the snapshot.
	readNext(t, p1, "user-joined")
	_, snap1 := readNext(t, p1, "get-users")
	_, snap2 := readNext(t, p2, "get-users")
	for name, snap := range map[string]map[string]any{"P1": snap1, "P2": snap2} {
		participants := snap["participants"].(map[string]any)
		if len(participants) != 2 {
			t.Fatalf("%s expected both peers, got %v", name, participants)
		}
		for _, id := range []string{"P1", "P2"} {
			if _, ok := participants[id]; !ok {
				t.Fatalf("%s snapshot missing %s: %v", name, id, participants)
			}
		}
	}

	p3 := dial(t, url)
	sendJoin(t, p3, "R", "P3")
	_, full := readNext(t, p3, "room-full")
	if full["peerId"] != "P3" {
		t.Fatalf("room-full must carry the losing peer id, got %v", full)
	}
}

func TestEndRoomNotifiesMembers(t *testing.T) {
	_, url := newTestServer(t)

	p1 := dial(t, url)
	sendJoin(t, p1, "R", "P1")
	readNext(t, p1, "get-users")

	p2 := dial(t, url)
	sendJoin(t, p2, "R", "P2")
	readNext(t, p1, "user-joined")
	readNext(t, p1, "get-users")
	readNext(t, p2, "get-users")

	end := map[string]any{
		"type":    "end-room",
		"payload": map[string]any{"roomId": "R", "peerId": "P1"},
	}
	if err := p1.WriteJSON(end); err != nil {
		t.Fatalf("write end: %v", err)
	}

	typ, _ := readNext(t, p1, "")
	if typ != "room-ended" {
		t.Fatalf("P1 expected room-ended, got %s", typ)
	}
	typ, _ = readNext(t, p2, "")
	if typ != "room-ended" {
		t.Fatalf("P2 expected room-ended, got %s", typ)
	}
}

func TestDisconnectTriggersLeave(t *testing.T) {
	_, url := newTestServer(t)

	p1 := dial(t, url)
	sendJoin(t, p1, "R", "P1")
	readNext(t, p1, "get-users")

	p2 := dial(t, url)
	sendJoin(t, p2, "R", "P2")
	readNext(t, p1, "user-joined")
	readNext(t, p1, "get-users")
	readNext(t, p2, "get-users")

	p2.Close()

	typ, _ := readNext(t, p1, "")
	if typ != "user-disconnected" {
		t.Fatalf("expected user-disconnected after abrupt close, got %s", typ)
	}
}

func TestJoinIsTrackedBeforeDispatch(t *testing.T) {
	h := NewHandler(room.New(0))
	c := &conn{
		send:   make(chan outboundMessage, 16),
		done:   make(chan struct{}),
		joined: make(map[string]string),
	}

	// The (room, peer) pair must be visible to the disconnect hook as soon as
	// dispatch returns, not only after the registry join completes.
	h.dispatch(c, inboundMessage{
		Type:    CmdJoinRoom,
		Payload: []byte(`{"roomId":"R","peerId":"P1"}`),
	})
	if got := c.memberships(); got["R"] != "P1" {
		t.Fatalf("join not tracked at dispatch time: %v", got)
	}

	// A rejected join is untracked again.
	full := NewHandler(room.New(0))
	_ = full.registry.Join("R", "A", &discardSub{})
	_ = full.registry.Join("R", "B", &discardSub{})
	loser := &conn{
		send:   make(chan outboundMessage, 16),
		done:   make(chan struct{}),
		joined: make(map[string]string),
	}
	full.dispatch(loser, inboundMessage{
		Type:    CmdJoinRoom,
		Payload: []byte(`{"roomId":"R","peerId":"P3"}`),
	})
	deadline := time.Now().Add(2 * time.Second)
	for {
		if len(loser.memberships()) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("rejected join left tracking behind: %v", loser.memberships())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type discardSub struct{}

func (discardSub) Notify(string, any) {}

func TestSignalRelayReachesCounterpartOnly(t *testing.T) {
	_, url := newTestServer(t)

	p1 := dial(t, url)
	sendJoin(t, p1, "R", "P1")
	readNext(t, p1, "get-users")

	p2 := dial(t, url)
	sendJoin(t, p2, "R", "P2")
	readNext(t, p1, "user-joined")
	readNext(t, p1, "get-users")
	readNext(t, p2, "get-users")

	signal := map[string]any{
		"type": "signal",
		"payload": map[string]any{
			"roomId": "R",
			"peerId": "P1",
			"target": "P2",
			"data":   map[string]any{"kind": "offer", "sdp": "v=0"},
		},
	}
	if err := p1.WriteJSON(signal); err != nil {
		t.Fatalf("write signal: %v", err)
	}

	_, payload := readNext(t, p2, "signal")
	if payload["peerId"] != "P1" {
		t.Fatalf("signal must carry sender id, got %v", payload)
	}
}

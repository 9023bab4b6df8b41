package ws

import "encoding/json"

// Command names accepted on a signaling connection.
const (
	CmdJoinRoom  = "join-room"
	CmdLeaveRoom = "leave-room"
	CmdEndRoom   = "end-room"
	CmdSignal    = "signal"
)

// EventSignal relays peer-transport negotiation payloads (SDP, ICE) between
// the two members of a room. The membership events themselves live in the
// room package.
const EventSignal = "signal"

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// roomPayload is shared by the three room commands. UserName and Role ride
// along on join only; the registry does not use them yet but they are part
// of the contract.
type roomPayload struct {
	RoomID   string `json:"roomId"`
	PeerID   string `json:"peerId"`
	UserName string `json:"userName,omitempty"`
	Role     string `json:"role,omitempty"`
}

// signalPayload is a transport negotiation message addressed to the room
// counterpart. Data is opaque to the server.
type signalPayload struct {
	RoomID string          `json:"roomId"`
	PeerID string          `json:"peerId"`
	Target string          `json:"target"`
	Data   json.RawMessage `json:"data"`
}

// SignalEnvelope is what the target receives: the sender's peer id plus the
// untouched payload.
type SignalEnvelope struct {
	PeerID string          `json:"peerId"`
	Data   json.RawMessage `json:"data"`
}

package session

import "context"

// MediaStream is a handle to an audio+video stream. The controller owns its
// local stream's lifecycle; remote streams are held by handle only.
type MediaStream interface {
	Close() error
}

// MediaSource acquires the local capture stream.
type MediaSource interface {
	Acquire(ctx context.Context) (MediaStream, error)
}

// IncomingCall is a not-yet-answered call from a remote peer.
type IncomingCall interface {
	From() string
}

// Call is an established media call to one remote peer.
type Call interface {
	PeerID() string
	Close() error
}

// DataChannel is the direct application-level message link to the
// counterpart. Send must return domain.ErrChannelNotOpen before the channel
// opens and domain.ErrChannelClosed after it closes.
type DataChannel interface {
	Send(text string) error
	Close() error
}

// Transport is the peer transport handle owned by one session. Open binds it
// to the session's peer id; Close must always be called on teardown.
type Transport interface {
	Open(ctx context.Context, peerID string) error
	Call(ctx context.Context, remoteID string, stream MediaStream) (Call, error)
	Answer(call IncomingCall, stream MediaStream) (Call, error)
	OpenData(ctx context.Context, remoteID string) (DataChannel, error)
	Close() error
}

// Signaling sends room-membership commands to the gateway.
type Signaling interface {
	JoinRoom(roomID, peerID, userName, role string) error
	LeaveRoom(roomID, peerID string) error
	EndRoom(roomID, peerID string) error
}

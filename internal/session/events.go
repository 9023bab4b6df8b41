package session

// Event is one input to the controller's step function. Transport callbacks,
// signaling notifications, and timers are all converted to events and
// consumed sequentially, so every transition is a function of (state, event).
type Event interface {
	isEvent()
}

// TransportReady fires once the peer transport handle is bound.
type TransportReady struct{}

// MediaReady delivers the acquired local stream.
type MediaReady struct {
	Stream MediaStream
}

// MediaFailed reports that local capture could not be acquired. The session
// proceeds without a stream; the failure stays observable via MediaError.
type MediaFailed struct {
	Err error
}

// PeerJoined is the gateway's user-joined notification.
type PeerJoined struct {
	PeerID string
}

// Membership is the gateway's get-users notification.
type Membership struct {
	RoomID string
	Peers  []string
}

// PeerDisconnected is the gateway's user-disconnected notification.
type PeerDisconnected struct {
	PeerID string
}

// RoomEnded is the gateway's room-ended notification.
type RoomEnded struct {
	PeerID string
}

// RoomFull tells this session it lost the admission race.
type RoomFull struct {
	PeerID string
}

// CallArrived wraps an inbound call from the transport.
type CallArrived struct {
	Call IncomingCall
}

// RemoteStream delivers a remote peer's stream handle.
type RemoteStream struct {
	PeerID string
	Stream MediaStream
}

// CallClosed reports that the call to one peer ended. Only that peer's
// stream entry is dropped, not the whole session.
type CallClosed struct {
	PeerID string
}

// DataOpened delivers the counterpart data channel once it is open.
type DataOpened struct {
	PeerID  string
	Channel DataChannel
}

// DataMessage is one text command received on the open data channel.
type DataMessage struct {
	Text string
}

// TeardownRequested asks the controller to release everything.
type TeardownRequested struct{}

func (TransportReady) isEvent()    {}
func (MediaReady) isEvent()        {}
func (MediaFailed) isEvent()       {}
func (PeerJoined) isEvent()        {}
func (Membership) isEvent()        {}
func (PeerDisconnected) isEvent()  {}
func (RoomEnded) isEvent()         {}
func (RoomFull) isEvent()          {}
func (CallArrived) isEvent()       {}
func (RemoteStream) isEvent()      {}
func (CallClosed) isEvent()        {}
func (DataOpened) isEvent()        {}
func (DataMessage) isEvent()       {}
func (TeardownRequested) isEvent() {}

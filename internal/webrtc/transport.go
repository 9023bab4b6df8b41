package webrtc

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"telecare-session-service/internal/domain"
	"telecare-session-service/internal/session"

	pion "github.com/pion/webrtc/v4"
)

// Signaler relays opaque negotiation payloads to the room counterpart.
// Satisfied by the ws client.
type Signaler interface {
	Signal(roomID, peerID, target string, data any) error
}

// EventSink receives transport events. Satisfied by the session controller.
type EventSink interface {
	Push(ev session.Event)
}

// signalMessage is the negotiation payload relayed through the gateway. The
// media call and the data connection are separate peer connections, as the
// existing clients' transport library models them, so every message names
// its purpose.
type signalMessage struct {
	Purpose   string                 `json:"purpose"` // media or data
	Kind      string                 `json:"kind"`    // offer, answer or ice
	SDP       string                 `json:"sdp,omitempty"`
	Candidate *pion.ICECandidateInit `json:"candidate,omitempty"`
}

const (
	purposeMedia = "media"
	purposeData  = "data"

	kindOffer  = "offer"
	kindAnswer = "answer"
	kindICE    = "ice"
)

// Transport establishes pion peer connections addressed by peer id, with SDP
// and ICE exchanged over the signaling relay. It implements
// session.Transport.
type Transport struct {
	signaler Signaler
	sink     EventSink
	roomID   string
	stun     string

	mu      sync.Mutex
	localID string
	media   map[string]*peerConn
	data    map[string]*peerConn
	closed  bool
}

func NewTransport(signaler Signaler, roomID, stunServer string) *Transport {
	return &Transport{
		signaler: signaler,
		roomID:   roomID,
		stun:     stunServer,
		media:    make(map[string]*peerConn),
		data:     make(map[string]*peerConn),
	}
}

// SetSink injects the event consumer after construction; the controller
// needs the transport first, so the dependency is circular.
func (t *Transport) SetSink(sink EventSink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sink = sink
}

func (t *Transport) push(ev session.Event) {
	t.mu.Lock()
	sink := t.sink
	t.mu.Unlock()
	if sink != nil {
		sink.Push(ev)
	}
}

// Open binds the handle to the session's peer id.
func (t *Transport) Open(_ context.Context, peerID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return domain.ErrSessionTornDown
	}
	t.localID = peerID
	return nil
}

// Call dials a media connection to remoteID, attaching the local stream's
// tracks, and sends the offer through the relay.
func (t *Transport) Call(_ context.Context, remoteID string, stream session.MediaStream) (session.Call, error) {
	pc, err := t.newPeerConn(remoteID, purposeMedia)
	if err != nil {
		return nil, err
	}
	t.wireMedia(pc, remoteID)
	if err := addLocalTracks(pc.pc, stream); err != nil {
		pc.pc.Close()
		return nil, err
	}

	offer, err := pc.pc.CreateOffer(nil)
	if err != nil {
		pc.pc.Close()
		return nil, fmt.Errorf("create offer: %w", err)
	}
	if err := pc.pc.SetLocalDescription(offer); err != nil {
		pc.pc.Close()
		return nil, fmt.Errorf("set local description: %w", err)
	}

	t.mu.Lock()
	t.media[remoteID] = pc
	t.mu.Unlock()

	if err := t.send(remoteID, signalMessage{Purpose: purposeMedia, Kind: kindOffer, SDP: offer.SDP}); err != nil {
		pc.pc.Close()
		return nil, err
	}
	return &mediaCall{peerID: remoteID, pc: pc.pc}, nil
}

// Answer accepts an inbound media offer with the local stream attached.
func (t *Transport) Answer(call session.IncomingCall, stream session.MediaStream) (session.Call, error) {
	offer, ok := call.(*incomingOffer)
	if !ok {
		return nil, fmt.Errorf("unexpected incoming call type %T", call)
	}

	pc, err := t.newPeerConn(offer.from, purposeMedia)
	if err != nil {
		return nil, err
	}
	t.wireMedia(pc, offer.from)
	if err := addLocalTracks(pc.pc, stream); err != nil {
		pc.pc.Close()
		return nil, err
	}
	if err := pc.setRemote(pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: offer.sdp}); err != nil {
		pc.pc.Close()
		return nil, err
	}

	answer, err := pc.pc.CreateAnswer(nil)
	if err != nil {
		pc.pc.Close()
		return nil, fmt.Errorf("create answer: %w", err)
	}
	if err := pc.pc.SetLocalDescription(answer); err != nil {
		pc.pc.Close()
		return nil, fmt.Errorf("set local description: %w", err)
	}

	t.mu.Lock()
	t.media[offer.from] = pc
	t.mu.Unlock()

	if err := t.send(offer.from, signalMessage{Purpose: purposeMedia, Kind: kindAnswer, SDP: answer.SDP}); err != nil {
		pc.pc.Close()
		return nil, err
	}
	return &mediaCall{peerID: offer.from, pc: pc.pc}, nil
}

// OpenData dials the counterpart data connection. The returned channel
// rejects sends until its open event fires.
func (t *Transport) OpenData(_ context.Context, remoteID string) (session.DataChannel, error) {
	pc, err := t.newPeerConn(remoteID, purposeData)
	if err != nil {
		return nil, err
	}

	dc, err := pc.pc.CreateDataChannel("assessment", nil)
	if err != nil {
		pc.pc.Close()
		return nil, fmt.Errorf("create data channel: %w", err)
	}
	ch := newChannel(dc)
	t.wireChannel(ch, remoteID)

	offer, err := pc.pc.CreateOffer(nil)
	if err != nil {
		pc.pc.Close()
		return nil, fmt.Errorf("create offer: %w", err)
	}
	if err := pc.pc.SetLocalDescription(offer); err != nil {
		pc.pc.Close()
		return nil, fmt.Errorf("set local description: %w", err)
	}

	t.mu.Lock()
	t.data[remoteID] = pc
	t.mu.Unlock()

	if err := t.send(remoteID, signalMessage{Purpose: purposeData, Kind: kindOffer, SDP: offer.SDP}); err != nil {
		pc.pc.Close()
		return nil, err
	}
	return ch, nil
}

// HandleSignal dispatches one relayed negotiation message. Wire it to the ws
// client's OnSignal callback.
func (t *Transport) HandleSignal(from string, raw json.RawMessage) {
	var msg signalMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("[webrtc] malformed signal from %s: %v", from, err)
		return
	}

	switch {
	case msg.Purpose == purposeMedia && msg.Kind == kindOffer:
		t.push(session.CallArrived{Call: &incomingOffer{from: from, sdp: msg.SDP}})
	case msg.Purpose == purposeMedia && msg.Kind == kindAnswer:
		t.applyAnswer(t.media, from, msg.SDP)
	case msg.Purpose == purposeData && msg.Kind == kindOffer:
		t.answerData(from, msg.SDP)
	case msg.Purpose == purposeData && msg.Kind == kindAnswer:
		t.applyAnswer(t.data, from, msg.SDP)
	case msg.Kind == kindICE && msg.Candidate != nil:
		conns := t.media
		if msg.Purpose == purposeData {
			conns = t.data
		}
		t.mu.Lock()
		pc, ok := conns[from]
		t.mu.Unlock()
		if ok {
			if err := pc.addICE(*msg.Candidate); err != nil {
				log.Printf("[webrtc] add ice candidate from %s: %v", from, err)
			}
		}
	}
}

// answerData auto-answers an inbound data connection; the channel itself
// arrives through OnDataChannel and is announced once open.
func (t *Transport) answerData(from, sdp string) {
	pc, err := t.newPeerConn(from, purposeData)
	if err != nil {
		log.Printf("[webrtc] data peer connection for %s: %v", from, err)
		return
	}
	pc.pc.OnDataChannel(func(dc *pion.DataChannel) {
		ch := newChannel(dc)
		t.wireChannel(ch, from)
	})
	if err := pc.setRemote(pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: sdp}); err != nil {
		log.Printf("[webrtc] set data offer from %s: %v", from, err)
		pc.pc.Close()
		return
	}
	answer, err := pc.pc.CreateAnswer(nil)
	if err != nil {
		log.Printf("[webrtc] answer data offer from %s: %v", from, err)
		pc.pc.Close()
		return
	}
	if err := pc.pc.SetLocalDescription(answer); err != nil {
		log.Printf("[webrtc] set local data answer for %s: %v", from, err)
		pc.pc.Close()
		return
	}

	t.mu.Lock()
	t.data[from] = pc
	t.mu.Unlock()

	if err := t.send(from, signalMessage{Purpose: purposeData, Kind: kindAnswer, SDP: answer.SDP}); err != nil {
		log.Printf("[webrtc] send data answer to %s: %v", from, err)
	}
}

func (t *Transport) applyAnswer(conns map[string]*peerConn, from, sdp string) {
	t.mu.Lock()
	pc, ok := conns[from]
	t.mu.Unlock()
	if !ok {
		log.Printf("[webrtc] answer from %s without a pending offer", from)
		return
	}
	if err := pc.setRemote(pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: sdp}); err != nil {
		log.Printf("[webrtc] set answer from %s: %v", from, err)
	}
}

// Close releases every peer connection. Always called on session teardown.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for _, pc := range t.media {
		pc.pc.Close()
	}
	for _, pc := range t.data {
		pc.pc.Close()
	}
	t.media = map[string]*peerConn{}
	t.data = map[string]*peerConn{}
	return nil
}

func (t *Transport) newPeerConn(remoteID, purpose string) (*peerConn, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, domain.ErrSessionTornDown
	}
	t.mu.Unlock()

	var servers []pion.ICEServer
	if t.stun != "" {
		servers = append(servers, pion.ICEServer{URLs: []string{t.stun}})
	}
	pc, err := pion.NewPeerConnection(pion.Configuration{ICEServers: servers})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	conn := &peerConn{pc: pc}
	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		if err := t.send(remoteID, signalMessage{Purpose: purpose, Kind: kindICE, Candidate: &init}); err != nil {
			log.Printf("[webrtc] send ice candidate: %v", err)
		}
	})
	return conn, nil
}

// wireMedia hooks track arrival and connection loss into the event queue.
func (t *Transport) wireMedia(pc *peerConn, remoteID string) {
	var once sync.Once
	pc.pc.OnTrack(func(track *pion.TrackRemote, _ *pion.RTPReceiver) {
		go drainTrack(track)
		once.Do(func() {
			t.push(session.RemoteStream{PeerID: remoteID, Stream: &remoteStream{pc: pc.pc}})
		})
	})
	pc.pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		switch state {
		case pion.PeerConnectionStateFailed, pion.PeerConnectionStateClosed, pion.PeerConnectionStateDisconnected:
			t.push(session.CallClosed{PeerID: remoteID})
		}
	})
}

func (t *Transport) wireChannel(ch *Channel, remoteID string) {
	ch.dc.OnOpen(func() {
		ch.markOpen()
		t.push(session.DataOpened{PeerID: remoteID, Channel: ch})
	})
	ch.dc.OnMessage(func(msg pion.DataChannelMessage) {
		// Data delivered before the open event is dropped, never processed.
		if !ch.isOpen() {
			log.Printf("[webrtc] dropping %d bytes received before channel open", len(msg.Data))
			return
		}
		t.push(session.DataMessage{Text: string(msg.Data)})
	})
	ch.dc.OnClose(func() {
		ch.markClosed()
	})
}

func (t *Transport) send(target string, msg signalMessage) error {
	t.mu.Lock()
	localID := t.localID
	t.mu.Unlock()
	return t.signaler.Signal(t.roomID, localID, target, msg)
}

func addLocalTracks(pc *pion.PeerConnection, stream session.MediaStream) error {
	local, ok := stream.(*Stream)
	if !ok || local == nil {
		return nil
	}
	for _, track := range local.tracks {
		if _, err := pc.AddTrack(track); err != nil {
			return fmt.Errorf("add track: %w", err)
		}
	}
	return nil
}

func drainTrack(track *pion.TrackRemote) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := track.Read(buf); err != nil {
			return
		}
	}
}

// peerConn queues remote ICE candidates until the remote description is set.
type peerConn struct {
	pc        *pion.PeerConnection
	mu        sync.Mutex
	remoteSet bool
	pending   []pion.ICECandidateInit
}

func (p *peerConn) setRemote(desc pion.SessionDescription) error {
	if err := p.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	p.mu.Lock()
	p.remoteSet = true
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()
	for _, init := range pending {
		if err := p.pc.AddICECandidate(init); err != nil {
			log.Printf("[webrtc] add queued ice candidate: %v", err)
		}
	}
	return nil
}

func (p *peerConn) addICE(init pion.ICECandidateInit) error {
	p.mu.Lock()
	if !p.remoteSet {
		p.pending = append(p.pending, init)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.pc.AddICECandidate(init)
}

// incomingOffer is an unanswered media offer.
type incomingOffer struct {
	from string
	sdp  string
}

func (o *incomingOffer) From() string { return o.from }

// mediaCall is an established media connection to one peer.
type mediaCall struct {
	peerID string
	pc     *pion.PeerConnection
}

func (c *mediaCall) PeerID() string { return c.peerID }
func (c *mediaCall) Close() error   { return c.pc.Close() }

// remoteStream is the handle for a remote peer's media. The session holds it
// by reference only; the peer connection owns the actual tracks.
type remoteStream struct {
	pc *pion.PeerConnection
}

func (r *remoteStream) Close() error { return nil }

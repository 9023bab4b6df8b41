package session

import (
	"context"
	"log"
	"sync"

	"telecare-session-service/internal/domain"

	"github.com/google/uuid"
)

// Phase is the controller's lifecycle phase.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseAcquiringMedia
	PhaseReady
	PhaseConnected
	PhaseTornDown
)

// Config identifies the session and its room.
type Config struct {
	RoomID   string
	UserName string
	Role     string

	// OpenData makes the controller open the counterpart data channel as soon
	// as exactly one remote peer is known. The proctor side sets this; the
	// responder waits for the inbound channel.
	OpenData bool

	// OnDataOpen and OnData hand the channel and its messages to the
	// embedding test orchestrator.
	OnDataOpen func(ch DataChannel)
	OnData     func(text string)
}

// Controller owns one participant's peer session: the transport handle, the
// local stream, and the remote stream handles keyed by peer id. It reacts to
// events only; callers and I/O callbacks push events through Push and the run
// loop feeds them to a single step function.
type Controller struct {
	id        string
	cfg       Config
	transport Transport
	media     MediaSource
	signal    Signaling

	events chan Event
	done   chan struct{}

	mu             sync.Mutex
	phase          Phase
	transportReady bool
	mediaResolved  bool
	mediaErr       error
	joined         bool
	stream         MediaStream
	known          map[string]struct{}
	peers          map[string]MediaStream
	calls          map[string]Call
	data           DataChannel
}

func NewController(transport Transport, media MediaSource, signal Signaling, cfg Config) *Controller {
	return &Controller{
		id:        uuid.NewString(),
		cfg:       cfg,
		transport: transport,
		media:     media,
		signal:    signal,
		events:    make(chan Event, 32),
		done:      make(chan struct{}),
		known:     make(map[string]struct{}),
		peers:     make(map[string]MediaStream),
		calls:     make(map[string]Call),
	}
}

// ID is the session's generated peer id.
func (c *Controller) ID() string { return c.id }

// Push enqueues an event for the run loop. Safe from any goroutine.
func (c *Controller) Push(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// Start binds the transport handle and kicks off media acquisition. The join
// command is not sent until both have resolved.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.phase = PhaseAcquiringMedia
	c.mu.Unlock()

	if err := c.transport.Open(ctx, c.id); err != nil {
		c.teardown()
		return err
	}
	c.Push(TransportReady{})

	go func() {
		stream, err := c.media.Acquire(ctx)
		if err != nil {
			c.Push(MediaFailed{Err: err})
			return
		}
		c.Push(MediaReady{Stream: stream})
	}()
	return nil
}

// Run starts the session and consumes events until teardown or ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			c.teardown()
			return ctx.Err()
		case <-c.done:
			// External Teardown; nothing left to consume.
			return nil
		case ev := <-c.events:
			c.HandleEvent(ctx, ev)
			if c.Phase() == PhaseTornDown {
				return nil
			}
		}
	}
}

// HandleEvent applies one event to the session state machine.
func (c *Controller) HandleEvent(ctx context.Context, ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseTornDown {
		return
	}

	switch ev := ev.(type) {
	case TransportReady:
		c.transportReady = true
		c.maybeJoinLocked()
	case MediaReady:
		c.stream = ev.Stream
		c.mediaResolved = true
		c.maybeJoinLocked()
	case MediaFailed:
		log.Printf("[session] media acquisition failed: %v", ev.Err)
		c.mediaErr = ev.Err
		c.mediaResolved = true
		c.maybeJoinLocked()
	case PeerJoined:
		c.known[ev.PeerID] = struct{}{}
		if c.stream != nil {
			c.callLocked(ctx, ev.PeerID)
		}
		c.maybeOpenDataLocked(ctx)
	case Membership:
		for _, id := range ev.Peers {
			if id != c.id {
				c.known[id] = struct{}{}
			}
		}
		c.maybeOpenDataLocked(ctx)
	case CallArrived:
		from := ev.Call.From()
		c.known[from] = struct{}{}
		call, err := c.transport.Answer(ev.Call, c.stream)
		if err != nil {
			log.Printf("[session] answer call from %s: %v", from, err)
			return
		}
		c.calls[from] = call
	case RemoteStream:
		c.peers[ev.PeerID] = ev.Stream
		c.phase = PhaseConnected
	case CallClosed:
		delete(c.peers, ev.PeerID)
		if call, ok := c.calls[ev.PeerID]; ok {
			call.Close()
			delete(c.calls, ev.PeerID)
		}
	case PeerDisconnected:
		c.dropPeerLocked(ev.PeerID)
	case RoomEnded:
		c.teardownLocked()
	case RoomFull:
		log.Printf("[session] room full, lost admission race as %s", ev.PeerID)
		c.teardownLocked()
	case DataOpened:
		c.data = ev.Channel
		if c.cfg.OnDataOpen != nil {
			c.cfg.OnDataOpen(ev.Channel)
		}
	case DataMessage:
		// Nothing may be processed before the channel's open event.
		if c.data == nil {
			log.Printf("[session] dropping data received before channel open")
			return
		}
		if c.cfg.OnData != nil {
			c.cfg.OnData(ev.Text)
		}
	case TeardownRequested:
		c.teardownLocked()
	}
}

func (c *Controller) maybeJoinLocked() {
	if c.joined || !c.transportReady || !c.mediaResolved {
		return
	}
	if err := c.signal.JoinRoom(c.cfg.RoomID, c.id, c.cfg.UserName, c.cfg.Role); err != nil {
		log.Printf("[session] join room %s: %v", c.cfg.RoomID, err)
		return
	}
	c.joined = true
	c.phase = PhaseReady
}

func (c *Controller) callLocked(ctx context.Context, remoteID string) {
	if _, ok := c.calls[remoteID]; ok {
		return
	}
	call, err := c.transport.Call(ctx, remoteID, c.stream)
	if err != nil {
		log.Printf("[session] call %s: %v", remoteID, err)
		return
	}
	c.calls[remoteID] = call
}

func (c *Controller) maybeOpenDataLocked(ctx context.Context) {
	if !c.cfg.OpenData || c.data != nil || len(c.known) != 1 {
		return
	}
	var counterpart string
	for id := range c.known {
		counterpart = id
	}
	ch, err := c.transport.OpenData(ctx, counterpart)
	if err != nil {
		log.Printf("[session] open data channel to %s: %v", counterpart, err)
		return
	}
	c.data = ch
	if c.cfg.OnDataOpen != nil {
		c.cfg.OnDataOpen(ch)
	}
}

// OpenData opens the counterpart channel on demand. Fails until exactly one
// remote peer is known.
func (c *Controller) OpenData(ctx context.Context) (DataChannel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseTornDown {
		return nil, domain.ErrSessionTornDown
	}
	if c.data != nil {
		return c.data, nil
	}
	if len(c.known) != 1 {
		return nil, domain.ErrNoCounterpart
	}
	var counterpart string
	for id := range c.known {
		counterpart = id
	}
	ch, err := c.transport.OpenData(ctx, counterpart)
	if err != nil {
		return nil, err
	}
	c.data = ch
	if c.cfg.OnDataOpen != nil {
		c.cfg.OnDataOpen(ch)
	}
	return ch, nil
}

func (c *Controller) dropPeerLocked(peerID string) {
	delete(c.known, peerID)
	delete(c.peers, peerID)
	if call, ok := c.calls[peerID]; ok {
		call.Close()
		delete(c.calls, peerID)
	}
}

// Teardown releases every resource the session owns. Idempotent, and the
// transport handle is closed even when earlier steps fail.
func (c *Controller) Teardown() {
	c.teardown()
}

func (c *Controller) teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

func (c *Controller) teardownLocked() {
	if c.phase == PhaseTornDown {
		return
	}
	c.phase = PhaseTornDown

	if c.joined {
		if err := c.signal.LeaveRoom(c.cfg.RoomID, c.id); err != nil {
			log.Printf("[session] leave room: %v", err)
		}
		c.joined = false
	}
	if c.data != nil {
		if err := c.data.Close(); err != nil {
			log.Printf("[session] close data channel: %v", err)
		}
		c.data = nil
	}
	for id, call := range c.calls {
		if err := call.Close(); err != nil {
			log.Printf("[session] close call to %s: %v", id, err)
		}
	}
	c.calls = map[string]Call{}
	c.peers = map[string]MediaStream{}
	c.known = map[string]struct{}{}
	if c.stream != nil {
		if err := c.stream.Close(); err != nil {
			log.Printf("[session] close local stream: %v", err)
		}
		c.stream = nil
	}
	if err := c.transport.Close(); err != nil {
		log.Printf("[session] close transport: %v", err)
	}
	close(c.done)
}

// Phase reports the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// MediaError reports a failed local capture, if any.
func (c *Controller) MediaError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mediaErr
}

// Peers returns the remote stream handles currently known.
func (c *Controller) Peers() map[string]MediaStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]MediaStream, len(c.peers))
	for id, s := range c.peers {
		out[id] = s
	}
	return out
}

// Data returns the counterpart channel, or nil before it opens.
func (c *Controller) Data() DataChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data
}

// EndRoom asks the gateway to end the room for everyone, then tears down.
func (c *Controller) EndRoom() error {
	c.mu.Lock()
	joined := c.joined
	c.mu.Unlock()
	if !joined {
		return domain.ErrRoomNotFound
	}
	err := c.signal.EndRoom(c.cfg.RoomID, c.id)
	c.mu.Lock()
	c.joined = false
	c.teardownLocked()
	c.mu.Unlock()
	return err
}

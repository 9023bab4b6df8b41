package room

import (
	"log"
	"sync"
	"time"

	"telecare-session-service/internal/domain"
)

// Subscriber is the outbound side of one signaling connection. Notify must
// not block; the websocket layer backs it with a buffered send channel.
type Subscriber interface {
	Notify(event string, payload any)
}

// Notification event names, part of the wire contract.
const (
	EventUserJoined       = "user-joined"
	EventGetUsers         = "get-users"
	EventUserDisconnected = "user-disconnected"
	EventRoomEnded        = "room-ended"
	EventRoomFull         = "room-full"
)

// PeerPayload carries the peer id of the participant an event concerns.
type PeerPayload struct {
	PeerID string `json:"peerId"`
}

// MembershipPayload is the full membership snapshot broadcast on every join.
type MembershipPayload struct {
	RoomID       string                        `json:"roomId"`
	Participants map[string]domain.Participant `json:"participants"`
}

// Registry tracks which peers belong to which rooms and fans out membership
// notifications. All state is in-memory and owned exclusively by the
// registry; join/leave/end for one room are serialized under a per-room lock
// so two near-simultaneous joins cannot both observe a one-member room.
type Registry struct {
	debounce time.Duration

	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	mu      sync.Mutex
	deleted bool
	members map[string]domain.Participant
	subs    map[string]Subscriber
}

// New creates a registry with the given settle delay. The delay absorbs join
// races between two participants connecting within the same short window; it
// is policy, not correctness, and tests pass zero for deterministic ordering.
func New(debounce time.Duration) *Registry {
	return &Registry{
		debounce: debounce,
		rooms:    make(map[string]*room),
	}
}

func (r *Registry) settle() {
	if r.debounce > 0 {
		time.Sleep(r.debounce)
	}
}

func (r *Registry) getOrCreate(roomID string) *room {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	if !ok || rm.deleted {
		rm = &room{
			members: make(map[string]domain.Participant),
			subs:    make(map[string]Subscriber),
		}
		r.rooms[roomID] = rm
	}
	return rm
}

func (r *Registry) lookup(roomID string) (*room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	return rm, ok
}

// drop is called with rm.mu held. The deleted flag is written under rm.mu
// and r.mu together so that getOrCreate, which reads it under r.mu only,
// observes it safely.
func (r *Registry) drop(roomID string, rm *room) {
	r.mu.Lock()
	rm.deleted = true
	if cur, ok := r.rooms[roomID]; ok && cur == rm {
		delete(r.rooms, roomID)
	}
	r.mu.Unlock()
}

// Join admits peerID into roomID, creating the room lazily. When the room
// already holds two distinct peers the joiner loses the race: it alone gets
// a room-full notification naming its own peer id (so the client can evict
// itself) and domain.ErrRoomFull is returned. On admission the joiner is
// subscribed to room broadcast, existing members learn about the new peer,
// and every member including the joiner receives the membership snapshot.
func (r *Registry) Join(roomID, peerID string, sub Subscriber) error {
	r.settle()

	var rm *room
	for {
		rm = r.getOrCreate(roomID)
		rm.mu.Lock()
		if !rm.deleted {
			break
		}
		// Lost a race with end/leave cleanup; retry against a fresh room.
		rm.mu.Unlock()
	}
	defer rm.mu.Unlock()

	if _, already := rm.members[peerID]; !already && len(rm.members) >= 2 {
		r.settle()
		log.Printf("room %s is full, rejecting %s", roomID, peerID)
		sub.Notify(EventRoomFull, PeerPayload{PeerID: peerID})
		return domain.ErrRoomFull
	}

	log.Printf("peer %s joined room %s", peerID, roomID)
	rm.members[peerID] = domain.Participant{PeerID: peerID}
	rm.subs[peerID] = sub

	snapshot := snapshotLocked(roomID, rm)
	for id, s := range rm.subs {
		if id != peerID {
			s.Notify(EventUserJoined, PeerPayload{PeerID: peerID})
		}
		s.Notify(EventGetUsers, snapshot)
	}
	return nil
}

// Leave removes peerID from roomID. Absent rooms and already-departed peers
// are a no-op: leaving twice produces no notification and no error. When the
// last member leaves, a room-ended cleanup signal is broadcast and the room
// is deleted.
func (r *Registry) Leave(roomID, peerID string) {
	r.settle()

	rm, ok := r.lookup(roomID)
	if !ok {
		return
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.deleted {
		return
	}
	if _, ok := rm.members[peerID]; !ok {
		return
	}

	log.Printf("peer %s left room %s", peerID, roomID)
	delete(rm.members, peerID)
	delete(rm.subs, peerID)
	for _, s := range rm.subs {
		s.Notify(EventUserDisconnected, peerID)
	}
	if len(rm.members) == 0 {
		for _, s := range rm.subs {
			s.Notify(EventRoomEnded, peerID)
		}
		r.drop(roomID, rm)
	}
}

// End unconditionally tears the room down, attributing the end to peerID.
// Every current member is notified exactly once regardless of membership
// size, then the room is deleted.
func (r *Registry) End(roomID, peerID string) {
	r.settle()

	rm, ok := r.lookup(roomID)
	if !ok {
		return
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.deleted {
		return
	}
	log.Printf("peer %s ended room %s", peerID, roomID)
	for _, s := range rm.subs {
		s.Notify(EventRoomEnded, peerID)
	}
	r.drop(roomID, rm)
}

// Peer returns the subscriber registered for peerID in roomID, used by the
// gateway to relay transport negotiation between the two members.
func (r *Registry) Peer(roomID, peerID string) (Subscriber, bool) {
	rm, ok := r.lookup(roomID)
	if !ok {
		return nil, false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.deleted {
		return nil, false
	}
	sub, ok := rm.subs[peerID]
	return sub, ok
}

// Members returns a copy of the room's current membership, or false when the
// room does not exist.
func (r *Registry) Members(roomID string) (map[string]domain.Participant, bool) {
	rm, ok := r.lookup(roomID)
	if !ok {
		return nil, false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.deleted {
		return nil, false
	}
	out := make(map[string]domain.Participant, len(rm.members))
	for id, p := range rm.members {
		out[id] = p
	}
	return out, true
}

func snapshotLocked(roomID string, rm *room) MembershipPayload {
	participants := make(map[string]domain.Participant, len(rm.members))
	for id, p := range rm.members {
		participants[id] = p
	}
	return MembershipPayload{RoomID: roomID, Participants: participants}
}

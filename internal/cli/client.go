package cli

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"telecare-session-service/internal/assessment"
	"telecare-session-service/internal/config"
	"telecare-session-service/internal/domain"
	"telecare-session-service/internal/history"
	"telecare-session-service/internal/session"
	"telecare-session-service/internal/testbank/memory"
	tbpostgres "telecare-session-service/internal/testbank/postgres"
	tbredis "telecare-session-service/internal/testbank/redis"
	"telecare-session-service/internal/transport/ws"
	"telecare-session-service/internal/webrtc"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// buildBanks assembles the assessment bank stack: a postgres loader when
// configured (falling back to the built-in sample banks), cached in redis
// when available, otherwise in process memory.
func buildBanks(ctx context.Context, cfg config.Config) (assessment.BankProvider, *pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleBanks())
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		loader = tbpostgres.NewBankLoader(pool)
	}

	ttl := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return tbredis.NewBankRepository(client, loader, ttl), pool, nil
	}
	return memory.NewBankRepository(loader, ttl), pool, nil
}

func buildRecorder(pool *pgxpool.Pool) history.Recorder {
	if pool != nil {
		return history.NewPostgresRecorder(pool)
	}
	return history.NewMemoryRecorder()
}

// signalBridge adapts signaling notifications into controller events and
// routes negotiation payloads into the transport. Its ends are bound after
// dialing because the client, transport, and controller depend on each other
// in a cycle.
type signalBridge struct {
	mu        sync.Mutex
	ctrl      *session.Controller
	transport *webrtc.Transport
}

func (b *signalBridge) bind(ctrl *session.Controller, transport *webrtc.Transport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ctrl = ctrl
	b.transport = transport
}

func (b *signalBridge) parts() (*session.Controller, *webrtc.Transport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctrl, b.transport
}

func (b *signalBridge) OnUserJoined(peerID string) {
	if ctrl, _ := b.parts(); ctrl != nil {
		ctrl.Push(session.PeerJoined{PeerID: peerID})
	}
}

func (b *signalBridge) OnMembership(roomID string, participants map[string]domain.Participant) {
	ctrl, _ := b.parts()
	if ctrl == nil {
		return
	}
	peers := make([]string, 0, len(participants))
	for id := range participants {
		peers = append(peers, id)
	}
	ctrl.Push(session.Membership{RoomID: roomID, Peers: peers})
}

func (b *signalBridge) OnUserDisconnected(peerID string) {
	if ctrl, _ := b.parts(); ctrl != nil {
		ctrl.Push(session.PeerDisconnected{PeerID: peerID})
	}
}

func (b *signalBridge) OnRoomEnded(peerID string) {
	if ctrl, _ := b.parts(); ctrl != nil {
		ctrl.Push(session.RoomEnded{PeerID: peerID})
	}
}

func (b *signalBridge) OnRoomFull(peerID string) {
	if ctrl, _ := b.parts(); ctrl != nil {
		ctrl.Push(session.RoomFull{PeerID: peerID})
	}
}

func (b *signalBridge) OnSignal(from string, data json.RawMessage) {
	if _, transport := b.parts(); transport != nil {
		transport.HandleSignal(from, data)
	}
}

// connectSession dials the gateway and wires client, transport, and
// controller together.
func connectSession(cfg config.Config, sessCfg session.Config) (*session.Controller, *ws.Client, error) {
	bridge := &signalBridge{}
	client, err := ws.Dial(cfg.Client.ServerURL, bridge)
	if err != nil {
		return nil, nil, err
	}
	transport := webrtc.NewTransport(client, sessCfg.RoomID, cfg.Client.STUNServer)
	ctrl := session.NewController(transport, webrtc.NewSampleSource(), client, sessCfg)
	transport.SetSink(ctrl)
	bridge.bind(ctrl, transport)
	return ctrl, client, nil
}

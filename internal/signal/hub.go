package signal

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ianjiteshan/ShareSYNC/internal/apperr"
	"github.com/ianjiteshan/ShareSYNC/internal/logging"
	"github.com/ianjiteshan/ShareSYNC/internal/metrics"
)

// RoomAdmissionPolicy decides whether a given room_id may be joined
// by a peer with the given authentication state. Spec leaves "what
// scopes a room_id" an open question; the default policy (see
// PermissiveRoomPolicy) answers it permissively, matching
// AllowAnonymousP2P.
type RoomAdmissionPolicy func(roomID string, authenticated bool) bool

// PermissiveRoomPolicy admits any room_id regardless of
// authentication state, deferring entirely to AllowAnonymousP2P at
// the hub level.
func PermissiveRoomPolicy(string, bool) bool { return true }

// Config bounds the hub's resource usage, mirroring config.Config's
// signaling hub fields so this package has no dependency on the
// process-wide configuration loader.
type Config struct {
	RoomCap           int
	MaxFrameBytes     int
	SendQueueDepth    int
	HeartbeatInterval time.Duration
	PeerIdleTimeout   time.Duration
	AllowAnonymousP2P bool
}

// Hub is the rendezvous registry: rooms keyed by room_id, and a flat
// session_id -> session index used to resolve directed messages and
// to tell "unknown peer" apart from "peer in a different room".
type Hub struct {
	cfg    Config
	policy RoomAdmissionPolicy

	mu       sync.Mutex
	rooms    map[string]*room
	sessions map[string]*Session
}

// NewHub constructs an empty hub. A nil policy defaults to
// PermissiveRoomPolicy.
func NewHub(cfg Config, policy RoomAdmissionPolicy) *Hub {
	if policy == nil {
		policy = PermissiveRoomPolicy
	}
	return &Hub{
		cfg:      cfg,
		policy:   policy,
		rooms:    make(map[string]*room),
		sessions: make(map[string]*Session),
	}
}

// Join admits a peer to roomID, assigning a fresh session_id. It
// returns the new session plus the current peer list to send back as
// joined.peers, and broadcasts peer_joined to the room's existing
// members.
func (h *Hub) Join(roomID, deviceName, ipHash string, authenticated bool) (*Session, []PeerInfo, error) {
	if roomID == "" {
		return nil, nil, apperr.New(apperr.ValidationFailed, "room_id is required")
	}
	if !authenticated && !h.cfg.AllowAnonymousP2P {
		return nil, nil, apperr.New(apperr.Unauthenticated, "anonymous P2P is disabled")
	}
	if !h.policy(roomID, authenticated) {
		return nil, nil, apperr.New(apperr.Forbidden, "room_id is not admissible")
	}

	h.mu.Lock()
	r, ok := h.rooms[roomID]
	if !ok {
		r = newRoom(roomID)
		h.rooms[roomID] = r
	}
	h.mu.Unlock()

	if r.size() >= h.cfg.RoomCap {
		return nil, nil, apperr.New(apperr.QuotaExceeded, "room is full")
	}

	session := newSession(uuid.NewString(), roomID, deviceName, ipHash, h.cfg.SendQueueDepth)
	existing := r.snapshot()

	r.add(session)
	session.setState(StateJoined)
	h.mu.Lock()
	h.sessions[session.ID] = session
	h.mu.Unlock()
	metrics.SignalingSessionsActive.Inc()
	if len(existing) == 0 {
		metrics.SignalingRoomsActive.Inc()
	}

	peers := make([]PeerInfo, 0, len(existing))
	for _, p := range existing {
		peers = append(peers, PeerInfo{SessionID: p.ID, DeviceName: p.DeviceName, JoinedAt: p.JoinedAt})
	}

	h.broadcast(r, session.ID, Envelope{
		Type:       TypePeerJoined,
		SessionID:  session.ID,
		DeviceName: session.DeviceName,
	})

	return session, peers, nil
}

// Route forwards a directed webrtc_offer/webrtc_answer/ice_candidate
// frame to its target, stamping sender_session. It never broadcasts.
func (h *Hub) Route(sender *Session, env Envelope) *apperr.Error {
	target, ok := h.lookup(env.TargetSession)
	if !ok {
		return apperr.New(apperr.UnknownPeer, "target_session not found")
	}
	if target.RoomID != sender.RoomID {
		return apperr.New(apperr.CrossRoomForbidden, "target_session is in a different room")
	}

	out := Envelope{
		Type:          env.Type,
		TargetSession: env.TargetSession,
		SenderSession: sender.ID,
		Offer:         env.Offer,
		Answer:        env.Answer,
		Candidate:     env.Candidate,
	}
	h.send(target, out)
	return nil
}

// Leave removes a peer from its room and broadcasts peer_left. It is
// idempotent: calling it twice for the same session is a no-op the
// second time.
func (h *Hub) Leave(session *Session) {
	session.leaveOnce.Do(func() { h.leave(session) })
}

func (h *Hub) leave(session *Session) {
	session.setState(StateLeaving)

	h.mu.Lock()
	r, ok := h.rooms[session.RoomID]
	delete(h.sessions, session.ID)
	h.mu.Unlock()
	if !ok {
		session.markClosed()
		return
	}

	if _, present := r.get(session.ID); !present {
		session.markClosed()
		return
	}
	r.remove(session.ID)
	metrics.SignalingSessionsActive.Dec()

	h.broadcast(r, session.ID, Envelope{Type: TypePeerLeft, SessionID: session.ID})
	session.markClosed()

	if r.size() == 0 {
		h.mu.Lock()
		if room, ok := h.rooms[session.RoomID]; ok && room == r {
			delete(h.rooms, session.RoomID)
			metrics.SignalingRoomsActive.Dec()
		}
		h.mu.Unlock()
	}
}

// CloseSlow force-closes a peer whose send queue overflowed, per
// spec §4.1's backpressure rule: close the slow peer, never block the
// sender.
func (h *Hub) CloseSlow(session *Session) {
	h.Leave(session)
}

// RunHeartbeatSweep blocks, closing sessions idle for longer than
// PeerIdleTimeout every HeartbeatInterval, until ctx is cancelled.
func (h *Hub) RunHeartbeatSweep(ctx context.Context) {
	logger := logging.From(ctx)
	interval := h.cfg.HeartbeatInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-h.cfg.PeerIdleTimeout)
			for _, session := range h.snapshotSessions() {
				if session.idleSince().Before(cutoff) {
					logger.WithField("session_id", session.ID).Info("closing idle signaling session")
					h.Leave(session)
				}
			}
		}
	}
}

func (h *Hub) snapshotSessions() []*Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	return out
}

func (h *Hub) lookup(sessionID string) (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[sessionID]
	return s, ok
}

func (h *Hub) broadcast(r *room, exclude string, env Envelope) {
	for _, peer := range r.snapshot() {
		if peer.ID == exclude {
			continue
		}
		h.send(peer, env)
	}
}

func (h *Hub) send(session *Session, env Envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		return
	}
	if !session.enqueue(body) {
		h.CloseSlow(session)
	}
}

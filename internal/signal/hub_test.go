package signal

import (
	"testing"
	"time"

	"github.com/ianjiteshan/ShareSYNC/internal/apperr"
)

func testConfig() Config {
	return Config{
		RoomCap:           2,
		MaxFrameBytes:     4096,
		SendQueueDepth:    4,
		HeartbeatInterval: time.Second,
		PeerIdleTimeout:   time.Minute,
		AllowAnonymousP2P: true,
	}
}

func TestJoinReturnsExistingPeersAndBroadcasts(t *testing.T) {
	hub := NewHub(testConfig(), nil)

	first, peers, err := hub.Join("room-a", "phone", "ip-1", false)
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	if len(peers) != 0 {
		t.Fatalf("expected no existing peers for the first joiner, got %d", len(peers))
	}

	second, peers, err := hub.Join("room-a", "laptop", "ip-2", false)
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if len(peers) != 1 || peers[0].SessionID != first.ID {
		t.Fatalf("expected second joiner to see the first as an existing peer, got %+v", peers)
	}

	select {
	case frame := <-first.outbox():
		if len(frame) == 0 {
			t.Fatalf("expected a peer_joined frame")
		}
	default:
		t.Fatalf("expected the first session to receive a peer_joined broadcast")
	}

	_ = second
}

func TestJoinRejectsEmptyRoomID(t *testing.T) {
	hub := NewHub(testConfig(), nil)
	_, _, err := hub.Join("", "phone", "ip-1", false)
	if err == nil {
		t.Fatalf("expected an error for an empty room_id")
	}
	if appErr := apperr.As(err); appErr.Code != apperr.ValidationFailed {
		t.Fatalf("expected ValidationFailed, got %s", appErr.Code)
	}
}

func TestJoinRejectsAnonymousWhenDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.AllowAnonymousP2P = false
	hub := NewHub(cfg, nil)

	_, _, err := hub.Join("room-a", "phone", "ip-1", false)
	if appErr := apperr.As(err); appErr.Code != apperr.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}

func TestJoinRejectsOverRoomCap(t *testing.T) {
	hub := NewHub(testConfig(), nil) // RoomCap: 2
	if _, _, err := hub.Join("room-a", "one", "ip-1", false); err != nil {
		t.Fatalf("join 1: %v", err)
	}
	if _, _, err := hub.Join("room-a", "two", "ip-2", false); err != nil {
		t.Fatalf("join 2: %v", err)
	}
	_, _, err := hub.Join("room-a", "three", "ip-3", false)
	if appErr := apperr.As(err); appErr.Code != apperr.QuotaExceeded {
		t.Fatalf("expected QuotaExceeded once the room is full, got %v", err)
	}
}

func TestRouteForwardsToTargetInSameRoom(t *testing.T) {
	hub := NewHub(testConfig(), nil)
	a, _, _ := hub.Join("room-a", "a", "ip-1", false)
	b, _, _ := hub.Join("room-a", "b", "ip-2", false)

	// b's join broadcast peer_joined to a only, so b's queue is empty
	// before the offer and the frame read below is the routed one.
	routeErr := hub.Route(a, Envelope{Type: TypeWebRTCOffer, TargetSession: b.ID})
	if routeErr != nil {
		t.Fatalf("route: %v", routeErr)
	}

	select {
	case <-b.outbox():
	default:
		t.Fatalf("expected the target session to receive the routed offer")
	}
}

func TestRouteRejectsUnknownPeer(t *testing.T) {
	hub := NewHub(testConfig(), nil)
	a, _, _ := hub.Join("room-a", "a", "ip-1", false)

	routeErr := hub.Route(a, Envelope{Type: TypeWebRTCOffer, TargetSession: "does-not-exist"})
	if routeErr == nil || routeErr.Code != apperr.UnknownPeer {
		t.Fatalf("expected UnknownPeer, got %v", routeErr)
	}
}

func TestRouteRejectsCrossRoomTarget(t *testing.T) {
	hub := NewHub(testConfig(), nil)
	a, _, _ := hub.Join("room-a", "a", "ip-1", false)
	b, _, _ := hub.Join("room-b", "b", "ip-2", false)

	routeErr := hub.Route(a, Envelope{Type: TypeWebRTCOffer, TargetSession: b.ID})
	if routeErr == nil || routeErr.Code != apperr.CrossRoomForbidden {
		t.Fatalf("expected CrossRoomForbidden, got %v", routeErr)
	}
}

func TestLeaveIsIdempotentAndBroadcastsPeerLeft(t *testing.T) {
	hub := NewHub(testConfig(), nil)
	a, _, _ := hub.Join("room-a", "a", "ip-1", false)
	b, _, _ := hub.Join("room-a", "b", "ip-2", false)
	<-a.outbox() // drain peer_joined from b's join

	hub.Leave(b)
	hub.Leave(b) // second call must not panic or double-broadcast

	select {
	case <-a.outbox():
	default:
		t.Fatalf("expected a to receive peer_left after b leaves")
	}

	if _, ok := hub.lookup(b.ID); ok {
		t.Fatalf("expected b to be removed from the flat session registry")
	}
}

func TestCloseSlowClosesOnSendBufferOverflow(t *testing.T) {
	cfg := testConfig()
	cfg.SendQueueDepth = 1
	hub := NewHub(cfg, nil)

	a, _, _ := hub.Join("room-a", "a", "ip-1", false)
	b, _, _ := hub.Join("room-a", "b", "ip-2", false)
	// a's queue (depth 1) already holds the peer_joined frame from
	// b's join; routing another frame to a overflows it.
	hub.Route(b, Envelope{Type: TypeWebRTCOffer, TargetSession: a.ID})

	select {
	case <-a.closedSignal():
	case <-time.After(time.Second):
		t.Fatalf("expected session a to be closed after its send buffer overflowed")
	}
}

// Package signal implements the signaling hub: a pure WebRTC
// handshake relay, never a data plane. Message shapes follow spec
// §4.1's flat wire format, `{type, ...fields}`, rather than nocturne's
// nested type+payload envelope, but the connection-handling idiom
// (gorilla/websocket Upgrader, one goroutine per connection, a type
// switch over inbound frames) is grounded on
// SSD-Technologies-LLC-nocturne/internal/mesh/ws.go.
package signal

import (
	"encoding/json"
	"time"

	"github.com/ianjiteshan/ShareSYNC/internal/apperr"
)

// Envelope is both the inbound and outbound wire shape. Fields unused
// by a given Type are simply omitted on the wire. offer/answer/
// candidate are carried opaquely as raw JSON — the hub relays them
// without ever parsing their contents.
type Envelope struct {
	Type string `json:"type"`

	// join_room
	RoomID     string `json:"room_id,omitempty"`
	DeviceName string `json:"device_name,omitempty"`

	// webrtc_offer / webrtc_answer / ice_candidate
	TargetSession string          `json:"target_session,omitempty"`
	SenderSession string          `json:"sender_session,omitempty"`
	Offer         json.RawMessage `json:"offer,omitempty"`
	Answer        json.RawMessage `json:"answer,omitempty"`
	Candidate     json.RawMessage `json:"candidate,omitempty"`

	// joined / peer_joined / peer_left
	SessionID string     `json:"session_id,omitempty"`
	Peers     []PeerInfo `json:"peers,omitempty"`

	// error
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// PeerInfo is the public shape of a peer returned in `joined.peers`.
// A `peer_joined` frame carries session_id and device_name as flat
// Envelope fields instead, without joined_at.
type PeerInfo struct {
	SessionID  string    `json:"session_id"`
	DeviceName string    `json:"device_name,omitempty"`
	JoinedAt   time.Time `json:"joined_at"`
}

const (
	TypeJoinRoom    = "join_room"
	TypeJoined      = "joined"
	TypePeerJoined  = "peer_joined"
	TypeWebRTCOffer = "webrtc_offer"
	TypeWebRTCAnswer = "webrtc_answer"
	TypeICECandidate = "ice_candidate"
	TypeLeaveRoom   = "leave_room"
	TypePeerLeft    = "peer_left"
	TypePing        = "ping"
	TypePong        = "pong"
	TypeError       = "error"
)

func errorEnvelope(code apperr.Code, message string) Envelope {
	return Envelope{Type: TypeError, Code: string(code), Message: message}
}

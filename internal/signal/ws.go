package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ianjiteshan/ShareSYNC/internal/apperr"
	"github.com/ianjiteshan/ShareSYNC/internal/logging"
)

// safeConn serializes writes across the reader goroutine (which sends
// immediate replies/errors) and the write pump goroutine (which
// drains a session's queued frames); gorilla/websocket permits at
// most one writer at a time.
type safeConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *safeConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *safeConn) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWebSocket upgrades the connection and runs the per-peer
// read/write loop. authenticated and ipHash come from principal
// resolution upstream; the hub never authenticates peers itself.
// Grounded on SSD-Technologies-LLC-nocturne/internal/mesh/ws.go's
// Upgrader + per-connection goroutine + ReadJSON loop shape,
// generalized to spec §4.1's join/route/leave/ping protocol and its
// oversize-frame and backpressure rules.
func HandleWebSocket(hub *Hub, authenticated bool, ipHash string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.From(r.Context()).WithError(err).Warn("websocket upgrade failed")
			return
		}
		if hub.cfg.MaxFrameBytes > 0 {
			conn.SetReadLimit(int64(hub.cfg.MaxFrameBytes) + 1)
		}

		runConnection(r.Context(), hub, &safeConn{conn: conn}, authenticated, ipHash)
	}
}

func runConnection(ctx context.Context, hub *Hub, conn *safeConn, authenticated bool, ipHash string) {
	logger := logging.From(ctx)
	defer conn.conn.Close()

	var session *Session
	writerDone := make(chan struct{})
	writerStarted := false
	defer func() {
		if session != nil {
			hub.Leave(session)
		}
		if writerStarted {
			<-writerDone
		}
	}()

	for {
		_, frame, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithError(err).Debug("websocket read error")
			}
			return
		}

		if hub.cfg.MaxFrameBytes > 0 && len(frame) > hub.cfg.MaxFrameBytes {
			writeDirect(conn, errorEnvelope(apperr.FrameTooLarge, "frame exceeds maximum size"))
			return
		}

		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			writeDirect(conn, errorEnvelope(apperr.ValidationFailed, "malformed envelope"))
			continue
		}

		if session != nil {
			session.touch()
		}

		switch env.Type {
		case TypeJoinRoom:
			if session != nil {
				writeDirect(conn, errorEnvelope(apperr.ValidationFailed, "already joined"))
				continue
			}
			joined, peers, joinErr := hub.Join(env.RoomID, env.DeviceName, ipHash, authenticated)
			if joinErr != nil {
				appErr := apperr.As(joinErr)
				writeDirect(conn, errorEnvelope(appErr.Code, appErr.Message))
				continue
			}
			session = joined
			writeDirect(conn, Envelope{Type: TypeJoined, SessionID: session.ID, Peers: peers})
			writerStarted = true
			go writePump(conn, session, writerDone)

		case TypeWebRTCOffer, TypeWebRTCAnswer, TypeICECandidate:
			if session == nil {
				writeDirect(conn, errorEnvelope(apperr.ValidationFailed, "join_room required first"))
				continue
			}
			if routeErr := hub.Route(session, env); routeErr != nil {
				writeDirect(conn, errorEnvelope(routeErr.Code, routeErr.Message))
			}

		case TypeLeaveRoom:
			if session != nil {
				hub.Leave(session)
				writeDirect(conn, Envelope{Type: TypePeerLeft, SessionID: session.ID})
			}
			return

		case TypePing:
			writeDirect(conn, Envelope{Type: TypePong})

		default:
			writeDirect(conn, errorEnvelope(apperr.ValidationFailed, "unknown message type: "+env.Type))
		}
	}
}

// writePump drains the session's bounded send queue onto the wire
// until the session closes, then signals done so the reader's
// cleanup can proceed without racing the connection's Close.
func writePump(conn *safeConn, session *Session, done chan<- struct{}) {
	defer close(done)
	outbox := session.outbox()
	for {
		select {
		case frame, ok := <-outbox:
			if !ok {
				return
			}
			if err := conn.writeMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-session.closedSignal():
			return
		}
	}
}

func writeDirect(conn *safeConn, env Envelope) {
	_ = conn.writeJSON(env)
}

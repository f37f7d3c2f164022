package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/aircraftstudio/skirmish/internal/dispatcher"
	"github.com/aircraftstudio/skirmish/internal/worker"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/aircraftstudio/skirmish/pkg/streaming"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	submitWait     = 5 * time.Second
	maxMessageSize = 64 << 10
)

// Identity headers set by an authenticating proxy in front of the server.
const (
	UserSubHeader  = "X-User-Sub"
	UserNameHeader = "X-User-Name"
)

var errHungUp = errors.New("bridge connection closed")

// bridgePoses is the pose source of a bridge session. Poses arrive with
// frame messages; the source is available for as long as the connection.
type bridgePoses struct {
	gone atomic.Bool
}

func (p *bridgePoses) Open(context.Context) error {
	if p.gone.Load() {
		return errHungUp
	}
	return nil
}

func (p *bridgePoses) Close() {}

func (p *bridgePoses) hangUp() {
	p.gone.Store(true)
}

func userFromRequest(r *http.Request) core.User {
	q := r.URL.Query()
	user := core.User{
		Sub:  r.Header.Get(UserSubHeader),
		Name: r.Header.Get(UserNameHeader),
	}
	if user.Sub == "" {
		user.Sub = q.Get("sub")
	}
	if user.Name == "" {
		user.Name = q.Get("name")
	}
	return user
}

// handleBridge runs one remote rendering client. Text frames carry JSON
// envelopes; every processed frame is answered with a binary msgpack
// snapshot. Closing the connection exits the session.
func (s *Server) handleBridge(w http.ResponseWriter, r *http.Request) {
	if s.deps.NewSession == nil || s.deps.Worker == nil {
		writeError(w, http.StatusNotImplemented, "Session bridge unavailable")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.deps.LogManager.Logger().Warn("bridge upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.bridges.Add(1)
	defer s.bridges.Add(-1)

	user := userFromRequest(r)
	poses := &bridgePoses{}
	sess := s.deps.NewSession(poses, user)
	if s.deps.Monitor != nil {
		defer s.deps.Monitor.Track(sess)()
	}

	d, err := dispatcher.New(s.deps.DispatcherLogger)
	if err != nil {
		s.deps.LogManager.Logger().Error("bridge dispatcher setup failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	s.deps.Worker.RegisterHandlers(d, worker.Sortie{Ctx: ctx, Session: sess, User: user})

	defer func() {
		poses.hangUp()
		sess.WaitSubmissions(submitWait)
		sess.Exit()
		d.Close()
	}()

	logger := s.deps.LogManager.Logger().With("remote", r.RemoteAddr, "user", user.Sub)
	logger.Info("bridge connected")
	conn.SetReadLimit(maxMessageSize)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("bridge read error", "error", err)
			}
			logger.Info("bridge disconnected")
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var env streaming.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			if err := writeAck(conn, streaming.TypeError, "", err); err != nil {
				return
			}
			continue
		}

		res, err := d.Dispatch(dispatcher.Event{Command: env.Type, Payload: env.Payload})
		if err != nil {
			if err := writeAck(conn, streaming.TypeError, env.Type, err); err != nil {
				return
			}
			continue
		}

		if snap, ok := res.(*core.Snapshot); ok {
			if err := writeSnapshot(conn, snap); err != nil {
				logger.Warn("bridge write error", "error", err)
				return
			}
			continue
		}
		if env.Type == streaming.TypeExit || env.Type == streaming.TypeSubmitResult {
			if err := writeAck(conn, streaming.TypeAck, env.Type, nil); err != nil {
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snap *core.Snapshot) error {
	data, err := streaming.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, data)
}

func writeAck(conn *websocket.Conn, typ, forType string, cause error) error {
	msg := streaming.AckMessage{Type: typ, For: forType}
	if cause != nil {
		msg.Error = cause.Error()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

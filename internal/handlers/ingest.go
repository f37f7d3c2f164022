package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/aircraftstudio/skirmish/pkg/streaming"
	"github.com/gorilla/websocket"
)

// handleIngest accepts leaderboard entries forwarded by another skirmish
// instance running the websocket storage backend. Each entry is acked
// once stored; performance samples are recorded without an ack.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.deps.Worker == nil {
		writeError(w, http.StatusNotImplemented, "Ingest unavailable")
		return
	}
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.deps.LogManager.Logger().Warn("ingest upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.ingests.Add(1)
	defer s.ingests.Add(-1)

	logger := s.deps.LogManager.Logger().With("remote", r.RemoteAddr)
	conn.SetReadLimit(maxSubmitBody)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("ingest read error", "error", err)
			}
			return
		}

		var env streaming.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logger.Debug("ingest: undecodable message", "error", err)
			continue
		}

		switch env.Type {
		case streaming.TypeHello:
			var hello streaming.HelloPayload
			_ = json.Unmarshal(env.Payload, &hello)
			logger.Info("ingest client connected", "client", hello.Client, "version", hello.Version)

		case streaming.TypeEntry:
			err := s.ingestEntry(env.Payload)
			if err != nil {
				logger.Error("ingest: entry rejected", "error", err)
			}
			if err := writeAck(conn, streaming.TypeAck, streaming.TypeEntry, err); err != nil {
				return
			}

		case streaming.TypePerformance:
			if s.deps.Performance == nil {
				continue
			}
			var sample core.PerformanceSample
			if err := json.Unmarshal(env.Payload, &sample); err != nil {
				logger.Debug("ingest: bad performance sample", "error", err)
				continue
			}
			if err := s.deps.Performance.RecordPerformance(&sample); err != nil {
				logger.Warn("ingest: performance not recorded", "error", err)
			}

		default:
			logger.Debug("ingest: unknown message type", "type", env.Type)
		}
	}
}

func (s *Server) ingestEntry(payload json.RawMessage) error {
	var entry core.LeaderboardEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return fmt.Errorf("decode entry: %w", err)
	}
	if entry.ID == "" || entry.User.Sub == "" {
		return fmt.Errorf("entry without id or user")
	}
	return s.deps.Worker.Accept(&entry)
}

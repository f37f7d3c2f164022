package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/aircraftstudio/skirmish/internal/leaderboard"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/aircraftstudio/skirmish/pkg/streaming"
)

const maxSubmitBody = 1 << 20

type submitResponse struct {
	OK       bool   `json:"ok"`
	Inserted bool   `json:"inserted"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, submitResponse{Error: "Authentication required"})
		return
	}

	var body streaming.SubmitResultPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, maxSubmitBody)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, submitResponse{Error: "Invalid body"})
		return
	}

	entry, err := s.deps.Worker.Store(body.User, body.Result)
	switch {
	case errors.Is(err, leaderboard.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, submitResponse{Error: "Authentication required"})
		return
	case err != nil:
		s.deps.LogManager.Logger().Error("leaderboard submit failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	s.deps.LogManager.Logger().Info("leaderboard entry stored", "id", entry.ID, "user", entry.User.Sub, "score", entry.Score)
	writeJSON(w, http.StatusOK, submitResponse{OK: true, Inserted: true})
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, key := leaderboard.ParseTopQuery(q.Get("limit"), q.Get("sort"))

	entries, err := s.deps.Worker.Top(limit, key)
	if err != nil {
		s.deps.LogManager.Logger().Error("leaderboard read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if entries == nil {
		entries = []core.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "entries": entries})
}

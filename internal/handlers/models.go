package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aircraftstudio/skirmish/internal/assets"
	"github.com/aircraftstudio/skirmish/internal/storage"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const maxModelSize = 64 << 20

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalogue == nil {
		writeError(w, http.StatusNotImplemented, "Model catalogue unavailable")
		return
	}
	models, err := s.deps.Catalogue.ListModels()
	if err != nil {
		s.deps.LogManager.Logger().Error("model list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if models == nil {
		models = []core.ModelEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "models": models})
}

func (s *Server) handleUploadModel(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalogue == nil {
		writeError(w, http.StatusNotImplemented, "Model catalogue unavailable")
		return
	}
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxModelSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file")
		return
	}
	defer file.Close()

	blob, err := io.ReadAll(io.LimitReader(file, maxModelSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unreadable file")
		return
	}
	if len(blob) > maxModelSize {
		writeError(w, http.StatusRequestEntityTooLarge, "Model too large")
		return
	}
	if err := assets.Validate(blob); err != nil {
		writeError(w, http.StatusBadRequest, "Not a binary glTF model")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}
	id := uuid.NewString()
	entry := core.ModelEntry{
		ID:        id,
		Name:      name,
		AssetRef:  "/api/models/" + id,
		CreatedAt: s.deps.Now().UTC(),
	}
	if err := s.deps.Catalogue.SaveModel(entry, blob); err != nil {
		s.deps.LogManager.Logger().Error("model save failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	s.deps.LogManager.Logger().Info("model stored", "id", id, "name", name, "bytes", len(blob))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "model": entry})
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalogue == nil {
		writeError(w, http.StatusNotImplemented, "Model catalogue unavailable")
		return
	}
	key := mux.Vars(r)["key"]

	_, blob, err := s.deps.Catalogue.LoadModel(key)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && len(blob) == 0) {
		writeError(w, http.StatusNotFound, "Model not found")
		return
	}
	if err != nil {
		s.deps.LogManager.Logger().Error("model load failed", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	w.Header().Set("Content-Type", "model/gltf-binary")
	w.Header().Set("Content-Length", strconv.Itoa(len(blob)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}

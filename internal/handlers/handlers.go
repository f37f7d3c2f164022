// Package handlers serves the leaderboard, the model catalogue and the
// websocket session bridge over HTTP.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/aircraftstudio/skirmish/internal/api"
	"github.com/aircraftstudio/skirmish/internal/dispatcher"
	"github.com/aircraftstudio/skirmish/internal/logging"
	"github.com/aircraftstudio/skirmish/internal/monitor"
	"github.com/aircraftstudio/skirmish/internal/session"
	"github.com/aircraftstudio/skirmish/internal/storage"
	"github.com/aircraftstudio/skirmish/internal/worker"
	"github.com/aircraftstudio/skirmish/pkg/core"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// SessionFactory builds a session for one bridge connection.
type SessionFactory func(poses session.PoseSource, user core.User) *session.Session

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	LogManager       *logging.SlogManager
	DispatcherLogger dispatcher.Logger
	Worker           *worker.Manager
	// Catalogue and Performance are optional; without a catalogue the
	// model routes answer 501.
	Catalogue   storage.Catalogue
	Performance storage.PerformanceRecorder
	NewSession  SessionFactory
	Monitor     *monitor.Service
	APIKey      string
	StaticDir   string
	AccessLog   io.Writer
	Now         func() time.Time
}

// Server routes HTTP requests to the leaderboard, catalogue and bridge.
type Server struct {
	deps     Dependencies
	router   *mux.Router
	handler  http.Handler
	upgrader websocket.Upgrader

	bridges atomic.Int64
	ingests atomic.Int64
}

// New creates a server and registers its routes.
func New(deps Dependencies) *Server {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.DispatcherLogger == nil {
		deps.DispatcherLogger = deps.LogManager.Logger()
	}
	if deps.AccessLog == nil {
		deps.AccessLog = io.Discard
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &Server{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 16384,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.router = s.routes()
	s.handler = gorillahandlers.CombinedLoggingHandler(deps.AccessLog, s.router)
	return s
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthcheck", s.handleHealthcheck).Methods(http.MethodGet)

	// method checks happen inside so that other verbs get a JSON 405
	router.HandleFunc("/api/leaderboard/submit", s.handleSubmit)
	router.HandleFunc("/api/leaderboard/top", s.handleTop).Methods(http.MethodGet)

	router.HandleFunc("/api/models", s.handleListModels).Methods(http.MethodGet)
	router.HandleFunc("/api/models", s.handleUploadModel).Methods(http.MethodPost)
	router.HandleFunc("/api/models/{key}", s.handleGetModel).Methods(http.MethodGet)

	router.HandleFunc("/api/session", s.handleBridge).Methods(http.MethodGet)
	router.HandleFunc("/api/ingest", s.handleIngest).Methods(http.MethodGet)

	if s.deps.StaticDir != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.deps.StaticDir)))
	}
	return router
}

// ServeHTTP implements http.Handler with combined access logging.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Bridges is the number of open session bridge connections.
func (s *Server) Bridges() int {
	return int(s.bridges.Load())
}

// Ingests is the number of open result forwarding connections.
func (s *Server) Ingests() int {
	return int(s.ingests.Load())
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// authorized checks the API key header or secret query parameter. A server
// without a configured key accepts every request.
func (s *Server) authorized(r *http.Request) bool {
	if s.deps.APIKey == "" {
		return true
	}
	if r.Header.Get(api.APIKeyHeader) == s.deps.APIKey {
		return true
	}
	return r.URL.Query().Get("secret") == s.deps.APIKey
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// Package websocket forwards leaderboard entries and performance samples to
// a remote skirmish server's ingest endpoint.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aircraftstudio/skirmish/internal/storage"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/aircraftstudio/skirmish/pkg/streaming"
)

// ClientName identifies this backend in its hello message.
const ClientName = "skirmish"

type Config struct {
	URL     string
	Secret  string
	Version string
	Logger  *slog.Logger
}

// Backend is write-only: entries are acknowledged one by one, samples are
// sent without waiting.
type Backend struct {
	cfg  Config
	link *link
}

func New(cfg Config) *Backend {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Backend{
		cfg:  cfg,
		link: newLink(cfg.Logger.With("backend", "websocket")),
	}
}

func (b *Backend) Init() error {
	hello, err := envelope(streaming.TypeHello, streaming.HelloPayload{Client: ClientName, Version: b.cfg.Version})
	if err != nil {
		return err
	}
	b.link.hello = hello
	return b.link.open(b.cfg.URL, b.cfg.Secret)
}

func (b *Backend) Close() error {
	return b.link.close()
}

// envelope encodes payload as the body of a typed message.
func envelope(msgType string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msgType, err)
	}
	return json.Marshal(streaming.Envelope{Type: msgType, Payload: body})
}

func (b *Backend) SubmitResult(e *core.LeaderboardEntry) error {
	data, err := envelope(streaming.TypeEntry, e)
	if err != nil {
		return err
	}
	return b.link.request(data, streaming.TypeEntry, ackTimeout)
}

func (b *Backend) TopResults(int, core.SortKey) ([]core.LeaderboardEntry, error) {
	return nil, storage.ErrNotSupported
}

func (b *Backend) RecordPerformance(s *core.PerformanceSample) error {
	data, err := envelope(streaming.TypePerformance, s)
	if err != nil {
		return err
	}
	b.link.post(data)
	return nil
}

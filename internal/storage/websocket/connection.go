package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/aircraftstudio/skirmish/internal/channel"
	"github.com/aircraftstudio/skirmish/pkg/streaming"
	ws "github.com/gorilla/websocket"
)

const (
	outboxSize = 10_000
	ackBuffer  = 16
	writeWait  = 10 * time.Second
	ackTimeout = 10 * time.Second
)

var errLinkClosed = errors.New("websocket link closed")

// retryPolicy spaces redial attempts: initial, then doubling up to max.
type retryPolicy struct {
	initial  time.Duration
	max      time.Duration
	attempts int
}

var defaultRetry = retryPolicy{initial: time.Second, max: 30 * time.Second, attempts: 10}

// delay is the wait before the given 1-based attempt.
func (p retryPolicy) delay(attempt int) time.Duration {
	d := p.initial
	for i := 1; i < attempt && d < p.max; i++ {
		d *= 2
	}
	return min(d, p.max)
}

// link is one logical connection to the leaderboard service. A single
// supervisor goroutine owns the socket: it writes the outbox, and after a
// failure redials and says hello again before writing anything else.
type link struct {
	target string
	hello  []byte
	retry  retryPolicy
	logger *slog.Logger

	outbox *channel.Buffered[[]byte]
	acks   chan streaming.AckMessage

	stop     chan struct{}
	stopOnce sync.Once
	running  sync.WaitGroup
}

func newLink(logger *slog.Logger) *link {
	return &link{
		retry:  defaultRetry,
		logger: logger,
		outbox: channel.NewBuffered[[]byte](outboxSize),
		acks:   make(chan streaming.AckMessage, ackBuffer),
		stop:   make(chan struct{}),
	}
}

// open dials once and hands the socket to the supervisor. A failed first
// dial is returned to the caller rather than retried.
func (l *link) open(rawURL, secret string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", secret)
	u.RawQuery = q.Encode()
	l.target = u.String()

	conn, err := l.connect()
	if err != nil {
		return err
	}
	l.running.Add(1)
	go l.supervise(conn)
	return nil
}

// connect dials the target and writes hello.
func (l *link) connect() (*ws.Conn, error) {
	conn, _, err := ws.DefaultDialer.Dial(l.target, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	if l.hello != nil {
		if err := l.write(conn, l.hello); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("write hello: %w", err)
		}
	}
	return conn, nil
}

func (l *link) write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

func (l *link) supervise(conn *ws.Conn) {
	defer l.running.Done()
	var unsent []byte
	for {
		var err error
		unsent, err = l.pump(conn, unsent)
		if errors.Is(err, errLinkClosed) {
			return
		}
		l.logger.Warn("WebSocket link lost", "error", err)
		if conn = l.redial(); conn == nil {
			return
		}
	}
}

// pump writes queued messages to conn until it fails or the link stops.
// A message whose write failed is returned so it goes out first on the
// next connection.
func (l *link) pump(conn *ws.Conn, unsent []byte) ([]byte, error) {
	readErr := make(chan error, 1)
	go func() { readErr <- l.readAcks(conn) }()

	shut := func(err error) error {
		_ = conn.Close()
		<-readErr
		return err
	}

	if unsent != nil {
		if err := l.write(conn, unsent); err != nil {
			return unsent, shut(err)
		}
	}

	for {
		select {
		case <-l.stop:
			_ = conn.WriteControl(ws.CloseMessage,
				ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return nil, shut(errLinkClosed)
		case err := <-readErr:
			_ = conn.Close()
			return nil, err
		case data := <-l.outbox.Receive():
			if err := l.write(conn, data); err != nil {
				return data, shut(err)
			}
		}
	}
}

// readAcks routes acknowledgements to the acks channel until the socket
// fails. Anything that is not an ack is ignored.
func (l *link) readAcks(conn *ws.Conn) error {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ack streaming.AckMessage
		if json.Unmarshal(msg, &ack) != nil || ack.Type != streaming.TypeAck {
			l.logger.Debug("Ignoring non-ack message", "raw", string(msg))
			continue
		}
		select {
		case l.acks <- ack:
		default:
			l.logger.Debug("Ack buffer full, dropping", "for", ack.For)
		}
	}
}

// redial retries connect per the retry policy. It returns nil when the
// link stops or every attempt failed.
func (l *link) redial() *ws.Conn {
	for attempt := 1; attempt <= l.retry.attempts; attempt++ {
		wait := l.retry.delay(attempt)
		l.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", wait)
		select {
		case <-l.stop:
			return nil
		case <-time.After(wait):
		}
		conn, err := l.connect()
		if err == nil {
			l.logger.Info("WebSocket reconnected", "attempt", attempt)
			return conn
		}
		l.logger.Warn("Reconnect failed", "attempt", attempt, "error", err)
	}
	l.logger.Error("Giving up on WebSocket link", "attempts", l.retry.attempts)
	return nil
}

// post queues data without blocking. A full outbox drops its oldest
// message.
func (l *link) post(data []byte) {
	if l.outbox.Send(data) {
		l.logger.Warn("WebSocket outbox full, dropped oldest message", "dropped", l.outbox.Dropped())
	}
}

// request posts data and waits for the server's ack of msgType.
func (l *link) request(data []byte, msgType string, timeout time.Duration) error {
	l.post(data)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case ack := <-l.acks:
			if ack.For != msgType {
				continue
			}
			if ack.Error != "" {
				return fmt.Errorf("server rejected %q: %s", msgType, ack.Error)
			}
			return nil
		case <-deadline.C:
			return fmt.Errorf("timeout waiting for ack of %q", msgType)
		case <-l.stop:
			return fmt.Errorf("%w while waiting for ack of %q", errLinkClosed, msgType)
		}
	}
}

// close stops the supervisor and waits for it to release the socket.
func (l *link) close() error {
	l.stopOnce.Do(func() { close(l.stop) })
	l.running.Wait()
	return nil
}

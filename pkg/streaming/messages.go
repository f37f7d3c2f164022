package streaming

import (
	"encoding/json"

	"github.com/aircraftstudio/skirmish/pkg/core"
)

// Message type constants for the session bridge and result forwarding.
const (
	TypeStart        = "start"
	TypeFrame        = "frame"
	TypeInput        = "input"
	TypeExit         = "exit"
	TypeSubmitResult = "submit_result"
	TypeSnapshot     = "snapshot"
	TypeError        = "error"
	TypeAck          = "ack"

	// Result forwarding to a remote leaderboard service.
	TypeHello       = "hello"
	TypeEntry       = "leaderboard_entry"
	TypePerformance = "performance"
)

// Envelope wraps all JSON messages sent over a websocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type  string `json:"type"` // always "ack"
	For   string `json:"for"`  // the message type being acknowledged
	Error string `json:"error,omitempty"`
}

// StartPayload asks the bridge to begin a session with the given model.
type StartPayload struct {
	ModelID  string          `json:"modelId"`
	Viewport core.Viewport   `json:"viewport"`
	Anchor   *core.GeoAnchor `json:"anchor,omitempty"`
}

// FramePayload carries the camera pose for one display frame.
// Orientation is (x, y, z, w).
type FramePayload struct {
	Position    [3]float64     `json:"position"`
	Orientation [4]float64     `json:"orientation"`
	DT          float64        `json:"dt"`
	Viewport    *core.Viewport `json:"viewport,omitempty"`
}

// SubmitResultPayload is a session result forwarded with its submitter.
type SubmitResultPayload struct {
	User   core.User          `json:"user"`
	Result core.SessionResult `json:"result"`
}

// HelloPayload identifies a forwarding client. It is sent on every
// (re)connect before any other message.
type HelloPayload struct {
	Client  string `json:"client"`
	Version string `json:"version"`
}

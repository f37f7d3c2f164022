package core

import "time"

// PerformanceSample is a once-per-second snapshot of a running session.
type PerformanceSample struct {
	Time      time.Time `json:"time"`
	SessionID string    `json:"sessionId"`
	State     State     `json:"state"`
	Frames    int       `json:"frames"`
	Alive     int       `json:"alive"`
	Beams     int       `json:"beams"`
	Score     int       `json:"score"`
}

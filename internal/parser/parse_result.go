package parser

import (
	"encoding/json"

	"github.com/aircraftstudio/skirmish/pkg/streaming"
)

// ParseSubmit decodes a result submission. Numeric sanitizing and the
// authentication check are left to leaderboard.Normalize.
func (p *Parser) ParseSubmit(payload json.RawMessage) (streaming.SubmitResultPayload, error) {
	var sub streaming.SubmitResultPayload
	if err := decode(payload, &sub); err != nil {
		return sub, err
	}
	return sub, nil
}

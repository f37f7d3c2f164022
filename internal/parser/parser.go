// Package parser decodes bridge envelope payloads into simulation inputs.
// Numbers from browser clients are always JSON floats, so integer fields
// are read as floats and checked for fractional parts.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// ErrEmptyPayload is returned when a message that needs a payload has none.
var ErrEmptyPayload = errors.New("empty payload")

// Parser decodes bridge payloads.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser that logs suspicious but recoverable input.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 || string(payload) == "null" {
		return ErrEmptyPayload
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// intFromFloat converts a JSON number that should be an integer.
func intFromFloat(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("intFromFloat: %v is not finite", f)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("intFromFloat: %v is not a whole number", f)
	}
	return int(f), nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

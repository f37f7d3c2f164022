package streaming

import (
	"bytes"
	"fmt"

	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/vmihailenco/msgpack/v5"
)

// EncodeSnapshot packs a snapshot for a binary websocket frame. Field
// names follow the JSON tags so both encodings share one schema.
func EncodeSnapshot(snap *core.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot is the inverse of EncodeSnapshot.
func DecodeSnapshot(data []byte) (core.Snapshot, error) {
	var snap core.Snapshot
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&snap); err != nil {
		return snap, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

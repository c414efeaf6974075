package protocol

import (
	"bytes"
	"encoding/json"
)

// DefaultAddr is the arena server's websocket endpoint.
const DefaultAddr = "ws://localhost:48666"

// Command kinds (client -> server). The kind is the single key of the JSON object.
const (
	KindMoveShip  = "MoveShip"
	KindAddBullet = "AddBullet"
)

// isNull reports whether a raw element is the JSON null literal.
func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// firstByte returns the first non-space byte of raw, or 0 when raw is blank.
func firstByte(raw json.RawMessage) byte {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

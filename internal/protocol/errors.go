package protocol

import (
	"errors"
	"fmt"
)

// ErrMalformedSnapshot is returned (wrapped) for any inbound frame that does not
// decode into the five-element snapshot envelope. Callers test with errors.Is.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// ErrMalformedCommand is returned (wrapped) by DecodeCommand.
var ErrMalformedCommand = errors.New("malformed command")

// Snapshot element names, in wire order. Used in error messages.
const (
	PartSelfID   = "self_id"
	PartShips    = "ships"
	PartBullets  = "bullets"
	PartGrid     = "map"
	PartKillFeed = "killfeed"
)

var snapshotParts = [...]string{PartSelfID, PartShips, PartBullets, PartGrid, PartKillFeed}

func malformed(part string, format string, args ...any) error {
	if part == "" {
		return fmt.Errorf("%w: %s", ErrMalformedSnapshot, fmt.Sprintf(format, args...))
	}
	return fmt.Errorf("%w: %s: %s", ErrMalformedSnapshot, part, fmt.Sprintf(format, args...))
}

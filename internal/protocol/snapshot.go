package protocol

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// ShipID is the decimal id the server assigns to a connection's ship.
type ShipID string

// Ship is one entry of the snapshot ship map. Heading is the wire "angle" (radians).
type Ship struct {
	ID      ShipID
	X       float64
	Y       float64
	Heading float64
}

// Bullet is a live projectile. Only its existence matters to the bots.
type Bullet struct {
	ID      string
	X       float64
	Y       float64
	Heading float64
}

// KillEvent is one damage feed entry: [attacker, victim, remaining_hp].
type KillEvent struct {
	Attacker    ShipID
	Victim      ShipID
	RemainingHP float64
}

// Snapshot is one decoded world-state frame (server -> client).
type Snapshot struct {
	Self     ShipID
	Ships    map[ShipID]Ship
	Bullets  []Bullet
	Grid     Grid
	KillFeed []KillEvent
}

// SelfShip returns the controlled ship when it is alive.
func (s Snapshot) SelfShip() (Ship, bool) {
	sh, ok := s.Ships[s.Self]
	return sh, ok
}

// OtherIDs returns every ship id except self, in ascending numeric order.
func (s Snapshot) OtherIDs() []ShipID {
	out := make([]ShipID, 0, len(s.Ships))
	for id := range s.Ships {
		if id == s.Self {
			continue
		}
		out = append(out, id)
	}
	SortIDs(out)
	return out
}

// SortIDs orders decimal ids numerically (shorter first, then lexically).
func SortIDs(ids []ShipID) {
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
}

type wireShip struct {
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
	Angle *float64 `json:"angle"`
}

type wireBullet struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
}

// DecodeSnapshot decodes [self_id, ships, bullets, map, killfeed].
// It is all-or-nothing: on error the returned Snapshot is always the zero value.
func DecodeSnapshot(b []byte) (Snapshot, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return Snapshot{}, malformed("", "envelope: %v", err)
	}
	if len(parts) != len(snapshotParts) {
		return Snapshot{}, malformed("", "envelope has %d elements, want %d", len(parts), len(snapshotParts))
	}
	for i, p := range parts {
		if isNull(p) {
			return Snapshot{}, malformed(snapshotParts[i], "null")
		}
	}

	var snap Snapshot

	var self int64
	if err := json.Unmarshal(parts[0], &self); err != nil {
		return Snapshot{}, malformed(PartSelfID, "%v", err)
	}
	snap.Self = ShipID(strconv.FormatInt(self, 10))

	ships, err := decodeShips(parts[1])
	if err != nil {
		return Snapshot{}, err
	}
	snap.Ships = ships

	bullets, err := decodeBullets(parts[2])
	if err != nil {
		return Snapshot{}, err
	}
	snap.Bullets = bullets

	var cells [][]int32
	if err := json.Unmarshal(parts[3], &cells); err != nil {
		return Snapshot{}, malformed(PartGrid, "%v", err)
	}
	grid, err := NewGrid(cells)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Grid = grid

	var feed []KillEvent
	if err := json.Unmarshal(parts[4], &feed); err != nil {
		return Snapshot{}, malformed(PartKillFeed, "%v", err)
	}
	snap.KillFeed = feed

	return snap, nil
}

func decodeShips(raw json.RawMessage) (map[ShipID]Ship, error) {
	var in map[string]*wireShip
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, malformed(PartShips, "%v", err)
	}
	out := make(map[ShipID]Ship, len(in))
	for k, w := range in {
		if _, err := strconv.ParseInt(k, 10, 64); err != nil {
			return nil, malformed(PartShips, "ship key %q is not an integer", k)
		}
		if w == nil || w.X == nil || w.Y == nil || w.Angle == nil {
			return nil, malformed(PartShips, "ship %s missing x/y/angle", k)
		}
		id := ShipID(k)
		out[id] = Ship{ID: id, X: *w.X, Y: *w.Y, Heading: *w.Angle}
	}
	return out, nil
}

// decodeBullets accepts the id-keyed object the reference server sends as well as a plain array.
func decodeBullets(raw json.RawMessage) ([]Bullet, error) {
	switch firstByte(raw) {
	case '[':
		var in []wireBullet
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, malformed(PartBullets, "%v", err)
		}
		out := make([]Bullet, 0, len(in))
		for i, w := range in {
			out = append(out, Bullet{ID: strconv.Itoa(i), X: w.X, Y: w.Y, Heading: w.Angle})
		}
		return out, nil
	case '{':
		var in map[string]wireBullet
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, malformed(PartBullets, "%v", err)
		}
		keys := make([]ShipID, 0, len(in))
		for k := range in {
			keys = append(keys, ShipID(k))
		}
		SortIDs(keys)
		out := make([]Bullet, 0, len(in))
		for _, k := range keys {
			w := in[string(k)]
			out = append(out, Bullet{ID: string(k), X: w.X, Y: w.Y, Heading: w.Angle})
		}
		return out, nil
	default:
		return nil, malformed(PartBullets, "want array or object")
	}
}

func (k *KillEvent) UnmarshalJSON(b []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	if len(fields) < 2 || len(fields) > 3 {
		return fmt.Errorf("entry has %d fields, want 2 or 3", len(fields))
	}
	var attacker, victim int64
	if err := json.Unmarshal(fields[0], &attacker); err != nil {
		return err
	}
	if err := json.Unmarshal(fields[1], &victim); err != nil {
		return err
	}
	var hp float64
	if len(fields) == 3 {
		if err := json.Unmarshal(fields[2], &hp); err != nil {
			return err
		}
	}
	*k = KillEvent{
		Attacker:    ShipID(strconv.FormatInt(attacker, 10)),
		Victim:      ShipID(strconv.FormatInt(victim, 10)),
		RemainingHP: hp,
	}
	return nil
}

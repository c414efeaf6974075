package protocol

import (
	"encoding/json"
	"fmt"
)

// Command is one outbound ship order (client -> server).
// On the wire it is {"MoveShip":{"angle":a}} or {"AddBullet":{"angle":a}}.
type Command struct {
	Kind  string
	Angle float64
}

type anglePayload struct {
	Angle *float64 `json:"angle"`
}

func MoveShip(angle float64) Command  { return Command{Kind: KindMoveShip, Angle: angle} }
func AddBullet(angle float64) Command { return Command{Kind: KindAddBullet, Angle: angle} }

func (c Command) String() string { return fmt.Sprintf("%s(%.4f)", c.Kind, c.Angle) }

func (c Command) MarshalJSON() ([]byte, error) {
	if c.Kind != KindMoveShip && c.Kind != KindAddBullet {
		return nil, fmt.Errorf("unknown command kind %q", c.Kind)
	}
	a := c.Angle
	return json.Marshal(map[string]anglePayload{c.Kind: {Angle: &a}})
}

func (c *Command) UnmarshalJSON(b []byte) error {
	d, err := DecodeCommand(b)
	if err != nil {
		return err
	}
	*c = d
	return nil
}

// DecodeCommand parses one outbound command frame; used by replay tooling and test servers.
func DecodeCommand(b []byte) (Command, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	if len(m) != 1 {
		return Command{}, fmt.Errorf("%w: %d keys, want 1", ErrMalformedCommand, len(m))
	}
	for kind, raw := range m {
		if kind != KindMoveShip && kind != KindAddBullet {
			return Command{}, fmt.Errorf("%w: unknown kind %q", ErrMalformedCommand, kind)
		}
		var p anglePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return Command{}, fmt.Errorf("%w: %s: %v", ErrMalformedCommand, kind, err)
		}
		if p.Angle == nil {
			return Command{}, fmt.Errorf("%w: %s: missing angle", ErrMalformedCommand, kind)
		}
		return Command{Kind: kind, Angle: *p.Angle}, nil
	}
	return Command{}, ErrMalformedCommand
}

// Package targeting picks which enemy ship an agent hunts and holds that choice
// across ticks together with a small random aim offset.
package targeting

import (
	"fmt"
	"math/rand"

	"arenabot.ai/internal/protocol"
)

type Policy string

const (
	// PolicyRandom picks uniformly among the other ships and draws a random offset.
	PolicyRandom Policy = "random"
	// PolicyFirst always hunts the lowest ship id with a fixed offset.
	PolicyFirst Policy = "first"
)

// FirstOffsetY is the fixed aim offset used by PolicyFirst.
const FirstOffsetY = 2.0

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyRandom, PolicyFirst:
		return Policy(s), nil
	case "":
		return PolicyRandom, nil
	default:
		return "", fmt.Errorf("unknown target policy %q", s)
	}
}

// Offset is added to the target's true position before computing a heading.
type Offset struct {
	X, Y float64
}

// Target is the tracked ship as seen in the current snapshot.
type Target struct {
	Ship   protocol.Ship
	Offset Offset
}

// Selector is a two state machine: NoTarget and Tracking(id, offset).
// It is owned by one agent; rng must not be shared with other goroutines.
type Selector struct {
	rng         *rand.Rand
	policy      Policy
	offsetRange int

	tracking bool
	id       protocol.ShipID
	offset   Offset
}

func New(rng *rand.Rand, policy Policy, offsetRange int) *Selector {
	if policy == "" {
		policy = PolicyRandom
	}
	if offsetRange < 0 {
		offsetRange = 0
	}
	return &Selector{rng: rng, policy: policy, offsetRange: offsetRange}
}

// Reset drops back to NoTarget.
func (s *Selector) Reset() {
	s.tracking = false
	s.id = ""
	s.offset = Offset{}
}

// Current returns the tracked id and offset, if any.
func (s *Selector) Current() (protocol.ShipID, Offset, bool) {
	return s.id, s.offset, s.tracking
}

// Update validates the tracked id against snap and reselects if it is gone.
// The returned Target carries the ship read from snap, never a cached copy.
// changed is true when a new id was chosen this call.
func (s *Selector) Update(snap protocol.Snapshot) (t Target, ok bool, changed bool) {
	if _, alive := snap.SelfShip(); !alive {
		s.Reset()
		return Target{}, false, false
	}
	if s.tracking && s.id != snap.Self {
		if sh, present := snap.Ships[s.id]; present {
			return Target{Ship: sh, Offset: s.offset}, true, false
		}
	}

	others := snap.OtherIDs()
	if len(others) == 0 {
		s.Reset()
		return Target{}, false, false
	}
	switch s.policy {
	case PolicyFirst:
		s.id = others[0]
		s.offset = Offset{Y: FirstOffsetY}
	default:
		s.id = others[s.rng.Intn(len(others))]
		s.offset = Offset{X: s.draw(), Y: s.draw()}
	}
	s.tracking = true
	return Target{Ship: snap.Ships[s.id], Offset: s.offset}, true, true
}

// draw returns an integer in [-offsetRange, offsetRange].
func (s *Selector) draw() float64 {
	if s.offsetRange == 0 {
		return 0
	}
	return float64(s.rng.Intn(2*s.offsetRange+1) - s.offsetRange)
}

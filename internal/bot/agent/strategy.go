package agent

import (
	"fmt"

	"arenabot.ai/internal/bot/clock"
	"arenabot.ai/internal/bot/engage"
	"arenabot.ai/internal/bot/evade"
	"arenabot.ai/internal/bot/targeting"
	"arenabot.ai/internal/protocol"
)

type Kind string

const (
	KindEngage         Kind = "engage"
	KindEvade          Kind = "evade"
	KindEngageAndEvade Kind = "engage+evade"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindEngage, KindEvade, KindEngageAndEvade:
		return Kind(s), nil
	case "":
		return KindEngage, nil
	default:
		return "", fmt.Errorf("unknown strategy %q (want engage, evade or engage+evade)", s)
	}
}

// Outcome is one frame's decision plus the tactical state behind it.
type Outcome struct {
	Commands   []protocol.Command
	Target     protocol.ShipID
	Retargeted bool
	Threat     evade.Threat
}

// Strategy decides what an alive agent does on a frame. Implementations hold
// per-agent state and must not be shared between runners.
type Strategy interface {
	Kind() Kind
	Decide(f *clock.Frame, snap protocol.Snapshot, self protocol.Ship) Outcome
	// Reset is called on every frame the agent's ship is absent.
	Reset()
}

// Parts are the per-agent building blocks a strategy is assembled from.
type Parts struct {
	Selector *targeting.Selector
	Engage   *engage.Controller
	Scanner  *evade.Scanner
}

func NewStrategy(kind Kind, p Parts) (Strategy, error) {
	needEngage := kind == KindEngage || kind == KindEngageAndEvade
	needEvade := kind == KindEvade || kind == KindEngageAndEvade
	if needEngage && (p.Selector == nil || p.Engage == nil) {
		return nil, fmt.Errorf("strategy %s: missing selector or engagement controller", kind)
	}
	if needEvade && p.Scanner == nil {
		return nil, fmt.Errorf("strategy %s: missing threat scanner", kind)
	}
	switch kind {
	case KindEngage:
		return &engageStrategy{sel: p.Selector, ctl: p.Engage}, nil
	case KindEvade:
		return &evadeStrategy{sc: p.Scanner}, nil
	case KindEngageAndEvade:
		return &combinedStrategy{
			engage: engageStrategy{sel: p.Selector, ctl: p.Engage},
			evade:  evadeStrategy{sc: p.Scanner},
		}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", kind)
	}
}

type engageStrategy struct {
	sel *targeting.Selector
	ctl *engage.Controller
}

func (s *engageStrategy) Kind() Kind { return KindEngage }
func (s *engageStrategy) Reset()     { s.sel.Reset() }

func (s *engageStrategy) decide(f *clock.Frame, snap protocol.Snapshot, self protocol.Ship) (Outcome, engage.Decision) {
	t, ok, changed := s.sel.Update(snap)
	if !ok {
		return Outcome{}, engage.Decision{}
	}
	return Outcome{Target: t.Ship.ID, Retargeted: changed}, s.ctl.Decide(f, self, t)
}

func (s *engageStrategy) Decide(f *clock.Frame, snap protocol.Snapshot, self protocol.Ship) Outcome {
	out, d := s.decide(f, snap, self)
	out.Commands = d.Commands()
	return out
}

type evadeStrategy struct {
	sc *evade.Scanner
}

func (s *evadeStrategy) Kind() Kind { return KindEvade }
func (s *evadeStrategy) Reset()     {}

func (s *evadeStrategy) Decide(f *clock.Frame, snap protocol.Snapshot, self protocol.Ship) Outcome {
	th, cmd := s.sc.Decide(f, snap.Grid, self)
	out := Outcome{Threat: th}
	if cmd != nil {
		out.Commands = []protocol.Command{*cmd}
	}
	return out
}

// combinedStrategy lets an evasive heading pre-empt the engagement heading on
// the same frame. Fire decisions are unaffected.
type combinedStrategy struct {
	engage engageStrategy
	evade  evadeStrategy
}

func (s *combinedStrategy) Kind() Kind { return KindEngageAndEvade }
func (s *combinedStrategy) Reset()     { s.engage.Reset() }

func (s *combinedStrategy) Decide(f *clock.Frame, snap protocol.Snapshot, self protocol.Ship) Outcome {
	th, dodge := s.evade.sc.Decide(f, snap.Grid, self)
	out, d := s.engage.decide(f, snap, self)
	out.Threat = th
	if dodge != nil {
		out.Commands = append(out.Commands, *dodge)
	} else if d.Heading != nil {
		out.Commands = append(out.Commands, *d.Heading)
	}
	if d.Fire != nil {
		out.Commands = append(out.Commands, *d.Fire)
	}
	return out
}

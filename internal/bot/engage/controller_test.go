package engage

import (
	"math"
	"testing"

	"arenabot.ai/internal/bot/clock"
	"arenabot.ai/internal/bot/targeting"
	"arenabot.ai/internal/protocol"
)

const eps = 1e-9

func defaultConfig() Config {
	return Config{TurnRate: 60, AttackRate: 10, Range: 7, LeadDistance: 2}
}

func frameAt(n int) *clock.Frame {
	var f clock.Frame
	for i := 0; i < n; i++ {
		f.Tick()
	}
	return &f
}

func TestHeadingToTargetEast(t *testing.T) {
	c := New(defaultConfig())
	self := protocol.Ship{ID: "1"}
	tg := targeting.Target{Ship: protocol.Ship{ID: "2", X: 10}}
	if got := c.HeadingTo(self, tg); got != 0 {
		t.Fatalf("heading=%f want 0", got)
	}
}

func TestHeadingIncludesOffset(t *testing.T) {
	c := New(defaultConfig())
	self := protocol.Ship{ID: "1"}
	tg := targeting.Target{Ship: protocol.Ship{ID: "2", X: 3, Y: 0}, Offset: targeting.Offset{X: -3, Y: 3}}
	if got := c.HeadingTo(self, tg); math.Abs(got-math.Pi/2) > eps {
		t.Fatalf("heading=%f want π/2", got)
	}
}

func TestFireAngleColocatedTarget(t *testing.T) {
	c := New(defaultConfig())
	self := protocol.Ship{ID: "1"}
	angle, ok := c.FireAngle(self, protocol.Ship{ID: "2", Heading: 0})
	if !ok {
		t.Fatalf("distance 0 must be in range")
	}
	if angle != 0 {
		t.Fatalf("angle=%f want 0", angle)
	}
}

func TestFireAngleUsesLeadAndTruePosition(t *testing.T) {
	c := New(defaultConfig())
	self := protocol.Ship{ID: "1"}
	target := protocol.Ship{ID: "2", X: 4, Y: 0, Heading: math.Pi / 2}
	angle, ok := c.FireAngle(self, target)
	if !ok {
		t.Fatalf("expected in range")
	}
	if want := math.Atan2(2, 4); math.Abs(angle-want) > eps {
		t.Fatalf("angle=%f want %f", angle, want)
	}
}

func TestFireRangeIsStrict(t *testing.T) {
	c := New(defaultConfig())
	self := protocol.Ship{ID: "1"}
	if _, ok := c.FireAngle(self, protocol.Ship{X: 7}); ok {
		t.Fatalf("distance == range must not fire")
	}
	if _, ok := c.FireAngle(self, protocol.Ship{X: 6.999}); !ok {
		t.Fatalf("distance < range must fire")
	}
}

func TestDecideGatedByRates(t *testing.T) {
	c := New(defaultConfig())
	self := protocol.Ship{ID: "1"}
	tg := targeting.Target{Ship: protocol.Ship{ID: "2", X: 3}}

	var f clock.Frame
	for i := 1; i <= 180; i++ {
		f.Tick()
		d := c.Decide(&f, self, tg)
		if (d.Heading != nil) != (i%60 == 0) {
			t.Fatalf("frame %d: heading emitted=%v", i, d.Heading != nil)
		}
		if (d.Fire != nil) != (i%10 == 0) {
			t.Fatalf("frame %d: fire emitted=%v", i, d.Fire != nil)
		}
		if d.Heading != nil && d.Heading.Kind != protocol.KindMoveShip {
			t.Fatalf("heading kind=%s", d.Heading.Kind)
		}
	}
}

func TestDecideOutOfRangeSkipsFire(t *testing.T) {
	c := New(defaultConfig())
	d := c.Decide(frameAt(60), protocol.Ship{ID: "1"}, targeting.Target{Ship: protocol.Ship{ID: "2", X: 50}})
	cmds := d.Commands()
	if len(cmds) != 1 || cmds[0].Kind != protocol.KindMoveShip {
		t.Fatalf("commands=%v want a single MoveShip", cmds)
	}
}

// Package engage turns a tracked target into heading and fire commands.
package engage

import (
	"arenabot.ai/internal/bot/clock"
	"arenabot.ai/internal/bot/targeting"
	"arenabot.ai/internal/mathx"
	"arenabot.ai/internal/protocol"
)

// Config holds the engagement tuning; see tuning.Tuning for defaults.
type Config struct {
	TurnRate     int     // frames between heading updates
	AttackRate   int     // frames between fire attempts
	Range        float64 // fire only when strictly closer than this
	LeadDistance float64 // how far ahead of the target along its heading to aim
}

type Controller struct {
	cfg Config
}

func New(cfg Config) *Controller { return &Controller{cfg: cfg} }

// Decision is what the controller wants to send this frame.
type Decision struct {
	Heading *protocol.Command
	Fire    *protocol.Command
}

// Commands flattens d in send order (heading before fire).
func (d Decision) Commands() []protocol.Command {
	var out []protocol.Command
	if d.Heading != nil {
		out = append(out, *d.Heading)
	}
	if d.Fire != nil {
		out = append(out, *d.Fire)
	}
	return out
}

// Decide computes the heading and fire commands due on frame f.
// self and t must both come from the current snapshot.
func (c *Controller) Decide(f *clock.Frame, self protocol.Ship, t targeting.Target) Decision {
	var d Decision
	if f.Due(c.cfg.TurnRate) {
		cmd := protocol.MoveShip(c.HeadingTo(self, t))
		d.Heading = &cmd
	}
	if f.Due(c.cfg.AttackRate) {
		if angle, ok := c.FireAngle(self, t.Ship); ok {
			cmd := protocol.AddBullet(angle)
			d.Fire = &cmd
		}
	}
	return d
}

// HeadingTo aims at the target's position shifted by its aim offset.
func (c *Controller) HeadingTo(self protocol.Ship, t targeting.Target) float64 {
	return mathx.Heading(self.X, self.Y, t.Ship.X+t.Offset.X, t.Ship.Y+t.Offset.Y)
}

// FireAngle returns the angle to the target's lead point when the target's true
// position is in range. ok is false when out of range.
func (c *Controller) FireAngle(self, target protocol.Ship) (angle float64, ok bool) {
	if mathx.Dist(self.X, self.Y, target.X, target.Y) >= c.cfg.Range {
		return 0, false
	}
	lx, ly := mathx.Project(target.X, target.Y, target.Heading, c.cfg.LeadDistance)
	return mathx.Heading(self.X, self.Y, lx, ly), true
}

// Package agent runs one bot's receive-decide-send loop over a single connection.
//
// Every Runner owns its frame counter, strategy state and random generator.
// Runners share nothing mutable, so many of them run side by side without locks;
// anything handed to more than one runner (the schema validator) is read-only.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"arenabot.ai/internal/bot/clock"
	"arenabot.ai/internal/protocol"
)

// ErrDecisionFault wraps a panic recovered from decision code.
var ErrDecisionFault = errors.New("agent: decision fault")

// Conn is the duplex channel to the arena.
// Receive blocks until the next frame arrives and returns io.EOF once the
// channel is closed (by the remote end, by Close, or by ctx). Send is
// fire-and-forget; sends from one Conn are delivered in order.
type Conn interface {
	Receive(ctx context.Context) ([]byte, error)
	Send(cmd protocol.Command) error
	Close() error
}

// TickEntry is the per-frame record handed to a Recorder.
type TickEntry struct {
	Agent    string             `json:"agent"`
	Session  string             `json:"session,omitempty"`
	Frame    int64              `json:"frame"`
	Self     protocol.ShipID    `json:"self"`
	Alive    bool               `json:"alive"`
	Ships    int                `json:"ships"`
	Target   protocol.ShipID    `json:"target,omitempty"`
	Retarget bool               `json:"retarget,omitempty"`
	Threats  int                `json:"threats,omitempty"`
	Commands []protocol.Command `json:"commands"`
}

type Recorder interface {
	WriteTick(TickEntry) error
}

// Recorders that buffer may also implement Flush; the runner then flushes them
// every FlushEvery frames and when it stops.
type flusher interface {
	Flush() error
}

const defaultFlushEvery = 600

type Config struct {
	Name     string
	Session  string
	Strategy Strategy

	// Optional.
	Validator  *protocol.Validator // strict mode: schema-check frames in and commands out
	Recorder   Recorder
	FlushEvery int64 // frames between recorder flushes, default 600
	Logger     *log.Logger
}

// Stats are safe to read from other goroutines while the runner is going.
type Stats struct {
	Frames    int64
	Commands  int64
	Retargets int64
	Dead      int64
}

type Runner struct {
	conn Conn
	cfg  Config
	log  *log.Logger

	frame clock.Frame

	frames    atomic.Int64
	commands  atomic.Int64
	retargets atomic.Int64
	dead      atomic.Int64

	recordFailed bool
}

func New(conn Conn, cfg Config) (*Runner, error) {
	if conn == nil {
		return nil, fmt.Errorf("agent %s: nil conn", cfg.Name)
	}
	if cfg.Strategy == nil {
		return nil, fmt.Errorf("agent %s: nil strategy", cfg.Name)
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = defaultFlushEvery
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		conn: conn,
		cfg:  cfg,
		log:  logger.With("agent", cfg.Name),
	}, nil
}

func (r *Runner) Stats() Stats {
	return Stats{
		Frames:    r.frames.Load(),
		Commands:  r.commands.Load(),
		Retargets: r.retargets.Load(),
		Dead:      r.dead.Load(),
	}
}

// Run drives the loop until the channel closes or ctx is cancelled (nil), or a
// frame fails to decode (error wrapping protocol.ErrMalformedSnapshot).
// The connection is closed on every return path.
func (r *Runner) Run(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrDecisionFault, p)
		}
		_ = r.conn.Close()
		r.flush()
		if err != nil {
			r.log.Error("agent stopped", "frames", r.frames.Load(), "err", err)
			return
		}
		r.log.Info("agent stopped", "frames", r.frames.Load(), "commands", r.commands.Load())
	}()

	r.log.Info("agent started", "strategy", r.cfg.Strategy.Kind(), "session", r.cfg.Session)
	for {
		raw, err := r.conn.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}
		cmds, err := r.Step(raw)
		if err != nil {
			return err
		}
		for _, c := range cmds {
			if err := r.checkCommand(c); err != nil {
				r.log.Error("dropping invalid command", "cmd", c, "err", err)
				continue
			}
			if err := r.conn.Send(c); err != nil {
				// A dead channel surfaces on the next Receive.
				r.log.Debug("send failed", "cmd", c, "err", err)
				break
			}
			r.commands.Add(1)
		}
	}
}

// Step decodes one frame, advances the clock and returns the commands to send.
func (r *Runner) Step(raw []byte) ([]protocol.Command, error) {
	var (
		snap protocol.Snapshot
		err  error
	)
	if r.cfg.Validator != nil {
		snap, err = r.cfg.Validator.DecodeSnapshotStrict(raw)
	} else {
		snap, err = protocol.DecodeSnapshot(raw)
	}
	if err != nil {
		return nil, err
	}
	frame := r.frame.Tick()
	r.frames.Store(frame)

	entry := TickEntry{
		Agent:   r.cfg.Name,
		Session: r.cfg.Session,
		Frame:   frame,
		Self:    snap.Self,
		Ships:   len(snap.Ships),
	}

	self, alive := snap.SelfShip()
	if !alive {
		r.cfg.Strategy.Reset()
		r.dead.Add(1)
		entry.Commands = []protocol.Command{protocol.MoveShip(0)}
		r.record(entry)
		return entry.Commands, nil
	}

	out := r.cfg.Strategy.Decide(&r.frame, snap, self)
	if out.Retargeted {
		r.retargets.Add(1)
		r.log.Debug("target acquired", "frame", frame, "target", out.Target)
	}
	if out.Threat.Evade {
		r.log.Debug("evading", "frame", frame, "threats", out.Threat.Count, "heading", out.Threat.Heading)
	}
	entry.Alive = true
	entry.Target = out.Target
	entry.Retarget = out.Retargeted
	entry.Threats = out.Threat.Count
	entry.Commands = out.Commands
	r.record(entry)
	return out.Commands, nil
}

// checkCommand schema-checks an outbound command in strict mode.
func (r *Runner) checkCommand(c protocol.Command) error {
	if r.cfg.Validator == nil {
		return nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrMalformedCommand, err)
	}
	return r.cfg.Validator.ValidateCommand(b)
}

func (r *Runner) record(e TickEntry) {
	if r.cfg.Recorder == nil {
		return
	}
	if err := r.cfg.Recorder.WriteTick(e); err != nil {
		r.recordError(err)
		return
	}
	if e.Frame%r.cfg.FlushEvery == 0 {
		r.flush()
	}
}

func (r *Runner) flush() {
	f, ok := r.cfg.Recorder.(flusher)
	if !ok {
		return
	}
	if err := f.Flush(); err != nil {
		r.recordError(err)
	}
}

func (r *Runner) recordError(err error) {
	if r.recordFailed {
		return
	}
	r.recordFailed = true
	r.log.Warn("tick recorder failing; further errors suppressed", "err", err)
}

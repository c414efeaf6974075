// Package fleet runs N independent agents against one arena and collects
// their results.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"arenabot.ai/internal/bot/agent"
	"arenabot.ai/internal/bot/engage"
	"arenabot.ai/internal/bot/evade"
	"arenabot.ai/internal/bot/targeting"
	"arenabot.ai/internal/bot/tuning"
	"arenabot.ai/internal/persistence/indexdb"
	ticklog "arenabot.ai/internal/persistence/log"
	"arenabot.ai/internal/protocol"
	"arenabot.ai/internal/transport/ws"
)

// DialFunc opens one agent connection.
type DialFunc func(ctx context.Context, url string) (agent.Conn, error)

type Config struct {
	URL    string
	Count  int
	Seed   int64
	Tuning tuning.Tuning

	// Record writes per-agent tick logs under DataDir.
	Record  bool
	DataDir string
	// Index is optional; nil disables session bookkeeping.
	Index *indexdb.SQLiteIndex

	Strict bool
	Logger *log.Logger
	Dial   DialFunc
}

// Result is one agent's outcome. Err is nil for a clean close or cancellation.
type Result struct {
	Name    string
	Session string
	Stats   agent.Stats
	Reason  string
	Err     error
}

// Name returns the agent name for index i (0-based).
func Name(i int) string { return fmt.Sprintf("bot-%d", i+1) }

// Run starts cfg.Count agents and blocks until all of them have stopped.
// One agent failing never stops the others; cancel ctx to stop the fleet.
func Run(ctx context.Context, cfg Config) ([]Result, error) {
	if cfg.Count <= 0 {
		return nil, fmt.Errorf("fleet: count must be > 0, got %d", cfg.Count)
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("fleet: %w", err)
	}
	if cfg.URL == "" {
		cfg.URL = protocol.DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Dial == nil {
		cfg.Dial = defaultDial(cfg.Logger)
	}
	var validator *protocol.Validator
	if cfg.Strict {
		v, err := protocol.DefaultValidator()
		if err != nil {
			return nil, fmt.Errorf("fleet: schemas: %w", err)
		}
		validator = v
	}

	cfg.Logger.Info("fleet starting", "agents", cfg.Count, "url", cfg.URL, "strategy", cfg.Tuning.Strategy, "seed", cfg.Seed)
	results := make([]Result, cfg.Count)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Count; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = runAgent(ctx, cfg, i, validator)
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	cfg.Logger.Info("fleet stopped", "agents", cfg.Count, "failed", failed)
	return results, nil
}

func defaultDial(logger *log.Logger) DialFunc {
	return func(ctx context.Context, url string) (agent.Conn, error) {
		return ws.Dial(ctx, url, ws.Options{Logger: logger})
	}
}

// NewStrategy assembles an agent's strategy from t. rng is owned by the agent.
func NewStrategy(t tuning.Tuning, rng *rand.Rand) (agent.Strategy, error) {
	return agent.NewStrategy(t.Kind(), agent.Parts{
		Selector: targeting.New(rng, t.Policy(), t.OffsetRange),
		Engage:   engage.New(t.Engage()),
		Scanner:  evade.New(t.Evade()),
	})
}

func runAgent(ctx context.Context, cfg Config, i int, validator *protocol.Validator) Result {
	res := Result{Name: Name(i), Session: uuid.NewString()}
	logger := cfg.Logger.With("agent", res.Name)

	strategy, err := NewStrategy(cfg.Tuning, rand.New(rand.NewSource(cfg.Seed+int64(i))))
	if err != nil {
		res.Err, res.Reason = err, "config"
		return res
	}

	conn, err := cfg.Dial(ctx, cfg.URL)
	if err != nil {
		res.Err, res.Reason = err, "dial"
		if ctx.Err() != nil {
			res.Err, res.Reason = nil, "cancelled"
		}
		logger.Error("dial failed", "url", cfg.URL, "err", err)
		return res
	}

	var recorder *ticklog.TickRecorder
	rcfg := agent.Config{
		Name:      res.Name,
		Session:   res.Session,
		Strategy:  strategy,
		Validator: validator,
		Logger:    cfg.Logger,
	}
	if cfg.Record {
		recorder = ticklog.NewTickRecorder(cfg.DataDir, res.Name)
		rcfg.Recorder = recorder
	}

	runner, err := agent.New(conn, rcfg)
	if err != nil {
		_ = conn.Close()
		res.Err, res.Reason = err, "config"
		return res
	}

	cfg.Index.RecordSessionStart(res.Session, res.Name, cfg.URL, string(strategy.Kind()), time.Now())
	res.Err = runner.Run(ctx)
	res.Stats = runner.Stats()
	res.Reason = reason(ctx, res.Err)
	cfg.Index.RecordSessionEnd(res.Session, res.Stats.Frames, res.Stats.Commands, res.Reason, time.Now())

	if recorder != nil {
		if err := recorder.Close(); err != nil {
			logger.Warn("closing tick log", "err", err)
		}
	}
	return res
}

func reason(ctx context.Context, err error) string {
	switch {
	case err == nil && ctx.Err() != nil:
		return "cancelled"
	case err == nil:
		return "closed"
	case errors.Is(err, protocol.ErrMalformedSnapshot):
		return "malformed"
	case errors.Is(err, agent.ErrDecisionFault):
		return "fault"
	default:
		return "error"
	}
}

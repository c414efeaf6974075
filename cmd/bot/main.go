package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/charmbracelet/log"

	"arenabot.ai/internal/bot/fleet"
	"arenabot.ai/internal/bot/tuning"
	"arenabot.ai/internal/persistence/indexdb"
	"arenabot.ai/internal/protocol"
)

func main() {
	var (
		url        = flag.String("url", protocol.DefaultAddr, "arena ws url")
		configPath = flag.String("config", "", "path to bot tuning yaml (optional)")
		strategy   = flag.String("strategy", "", "engage | evade | engage+evade (overrides config)")
		policy     = flag.String("target_policy", "", "random | first (overrides config)")
		seed       = flag.Int64("seed", 1, "base seed; agent i uses seed+i")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		record     = flag.Bool("record", false, "write per-agent tick logs under <data>/agents")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite session index")
		strict     = flag.Bool("strict", false, "schema-validate every snapshot before decoding")
		logLevel   = flag.String("log_level", "info", "debug | info | warn | error")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [count]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "bot",
	})
	lvl, err := log.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatal("bad -log_level", "value", *logLevel, "err", err)
	}
	logger.SetLevel(lvl)

	count := 1
	if flag.NArg() > 0 {
		n, err := strconv.Atoi(flag.Arg(0))
		if err != nil || n <= 0 {
			logger.Fatal("agent count must be a positive integer", "arg", flag.Arg(0))
		}
		count = n
	}

	tune, err := tuning.Load(*configPath)
	if err != nil {
		logger.Fatal("load tuning", "err", err)
	}
	if *strategy != "" {
		tune.Strategy = *strategy
	}
	if *policy != "" {
		tune.TargetPolicy = *policy
	}
	if err := tune.Validate(); err != nil {
		logger.Fatal("tuning", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, options{
		url:       *url,
		count:     count,
		seed:      *seed,
		tuning:    tune,
		dataDir:   *dataDir,
		record:    *record,
		disableDB: *disableDB,
		strict:    *strict,
	}, logger)
	if err != nil {
		logger.Error("bot", "err", err)
		stop()
		os.Exit(1)
	}
}

type options struct {
	url       string
	count     int
	seed      int64
	tuning    tuning.Tuning
	dataDir   string
	record    bool
	disableDB bool
	strict    bool
}

func indexPath(dataDir string) string {
	return filepath.Join(dataDir, "index", "sessions.sqlite")
}

// run owns the session index: it is closed, and its queue drained, before run returns.
func run(ctx context.Context, o options, logger *log.Logger) error {
	var idx *indexdb.SQLiteIndex
	if !o.disableDB {
		var err error
		idx, err = indexdb.OpenSQLite(indexPath(o.dataDir))
		if err != nil {
			return fmt.Errorf("open session index: %w", err)
		}
		defer func() {
			if st := idx.Stats(); st.DroppedTotal > 0 {
				logger.Warn("session index dropped writes", "dropped", st.DroppedTotal)
			}
			if err := idx.Close(); err != nil {
				logger.Warn("closing session index", "err", err)
			}
		}()
	}

	results, err := fleet.Run(ctx, fleet.Config{
		URL:     o.url,
		Count:   o.count,
		Seed:    o.seed,
		Tuning:  o.tuning,
		Record:  o.record,
		DataDir: o.dataDir,
		Index:   idx,
		Strict:  o.strict,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	for _, r := range results {
		logger.Info("agent result",
			"agent", r.Name,
			"session", r.Session,
			"frames", r.Stats.Frames,
			"commands", r.Stats.Commands,
			"retargets", r.Stats.Retargets,
			"reason", r.Reason,
			"err", r.Err)
	}
	return nil
}

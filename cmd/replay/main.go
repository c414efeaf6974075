package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"arenabot.ai/internal/bot/agent"
	"arenabot.ai/internal/persistence/indexdb"
	ticklog "arenabot.ai/internal/persistence/log"
	"arenabot.ai/internal/protocol"
)

func main() {
	var (
		dataDir   = flag.String("data", "./data", "runtime data directory (reads <data>/agents/*/ticks-*.jsonl.zst)")
		agentName = flag.String("agent", "", "only this agent (optional)")
		verify    = flag.Bool("verify", false, "check recorded commands and fail on the first violation")
		sessions  = flag.Bool("sessions", false, "also list the sqlite session index")
	)
	flag.Parse()

	files, err := ticklog.TickFiles(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list tick logs:", err)
		os.Exit(1)
	}
	names := make([]string, 0, len(files))
	for name := range files {
		if *agentName != "" && name != *agentName {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "no tick logs under", *dataDir)
		os.Exit(2)
	}

	failed := false
	for _, name := range names {
		sum := newSummary()
		for _, p := range files[name] {
			if err := ticklog.ReadTicks(p, func(e agent.TickEntry) error { return sum.add(e, *verify) }); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
				failed = true
				break
			}
		}
		sum.print(os.Stdout, name)
	}

	if *sessions {
		if err := printSessions(os.Stdout, filepath.Join(*dataDir, "index", "sessions.sqlite")); err != nil {
			fmt.Fprintln(os.Stderr, "sessions:", err)
			os.Exit(1)
		}
	}
	if failed {
		os.Exit(1)
	}
	if *verify {
		fmt.Println("verify OK")
	}
}

type summary struct {
	sessions  map[string]int64 // last frame per session
	entries   int
	alive     int
	dead      int
	retargets int
	threats   int
	moves     int
	bullets   int
}

func newSummary() *summary {
	return &summary{sessions: map[string]int64{}}
}

func (s *summary) add(e agent.TickEntry, verify bool) error {
	if verify {
		if err := check(e, s.sessions[e.Session]); err != nil {
			return err
		}
	}
	s.sessions[e.Session] = e.Frame
	s.entries++
	if e.Alive {
		s.alive++
	} else {
		s.dead++
	}
	if e.Retarget {
		s.retargets++
	}
	if e.Threats > 0 {
		s.threats++
	}
	for _, c := range e.Commands {
		switch c.Kind {
		case protocol.KindMoveShip:
			s.moves++
		case protocol.KindAddBullet:
			s.bullets++
		}
	}
	return nil
}

func check(e agent.TickEntry, prevFrame int64) error {
	if e.Frame <= prevFrame {
		return fmt.Errorf("session %s: frame %d after %d", e.Session, e.Frame, prevFrame)
	}
	for _, c := range e.Commands {
		if math.IsNaN(c.Angle) || math.IsInf(c.Angle, 0) {
			return fmt.Errorf("session %s frame %d: %s angle is not finite", e.Session, e.Frame, c.Kind)
		}
	}
	if !e.Alive && (len(e.Commands) != 1 || e.Commands[0] != protocol.MoveShip(0)) {
		return fmt.Errorf("session %s frame %d: dead frame sent %v", e.Session, e.Frame, e.Commands)
	}
	return nil
}

func (s *summary) print(w io.Writer, name string) {
	fmt.Fprintf(w, "%s sessions=%d frames=%d alive=%d dead=%d retargets=%d threat_frames=%d move=%d fire=%d\n",
		name, len(s.sessions), s.entries, s.alive, s.dead, s.retargets, s.threats, s.moves, s.bullets)
}

func printSessions(w io.Writer, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer idx.Close()
	rows, err := idx.Sessions(context.Background())
	if err != nil {
		return err
	}
	for _, r := range rows {
		ended := "-"
		if !r.EndedAt.IsZero() {
			ended = r.EndedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		fmt.Fprintf(w, "session %s agent=%s strategy=%s started=%s ended=%s frames=%d commands=%d reason=%s\n",
			r.ID, r.Agent, r.Strategy, r.StartedAt.Format("2006-01-02T15:04:05Z07:00"), ended, r.Frames, r.Commands, r.Reason)
	}
	return nil
}

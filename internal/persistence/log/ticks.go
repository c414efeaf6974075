package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"arenabot.ai/internal/bot/agent"
)

const tickPrefix = "ticks"

// AgentDir is where an agent's tick logs live under a data directory.
func AgentDir(dataDir, name string) string {
	return filepath.Join(dataDir, "agents", name)
}

// TickRecorder writes one compressed JSONL entry per decided frame.
type TickRecorder struct{ w *JSONLZstdWriter }

func NewTickRecorder(dataDir, name string) *TickRecorder {
	return &TickRecorder{w: NewJSONLZstdWriter(AgentDir(dataDir, name), tickPrefix)}
}

func (r *TickRecorder) WriteTick(e agent.TickEntry) error { return r.w.Write(e) }
func (r *TickRecorder) Flush() error                      { return r.w.Flush() }
func (r *TickRecorder) Close() error                      { return r.w.Close() }

// TickFiles lists every tick log under dataDir grouped by agent name,
// each agent's files in chronological order.
func TickFiles(dataDir string) (map[string][]string, error) {
	matches, err := filepath.Glob(filepath.Join(dataDir, "agents", "*", tickPrefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	out := map[string][]string{}
	for _, m := range matches {
		name := filepath.Base(filepath.Dir(m))
		out[name] = append(out[name], m)
	}
	return out, nil
}

// ReadTicks streams the entries of one tick log to fn, stopping at the first error.
func ReadTicks(path string, fn func(agent.TickEntry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e agent.TickEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

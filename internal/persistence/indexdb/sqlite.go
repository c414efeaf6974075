package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteIndex keeps one row per agent session. It is a secondary index: writes
// are queued to a single writer goroutine and dropped when the queue is full.
// The tick logs remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// sendMu orders sends on ch against close(ch).
	sendMu sync.RWMutex

	closed  atomic.Bool
	dropped atomic.Uint64
}

type reqKind int

const (
	reqStart reqKind = iota + 1
	reqEnd
	reqFlush
)

type req struct {
	kind reqKind

	session Session
	done    chan struct{}
}

// Session is one agent connection from dial to close.
type Session struct {
	ID        string
	Agent     string
	URL       string
	Strategy  string
	StartedAt time.Time
	EndedAt   time.Time // zero while running
	Frames    int64
	Commands  int64
	Reason    string
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int
	DroppedTotal  uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES('schema_version','1');`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			agent TEXT NOT NULL,
			url TEXT NOT NULL,
			strategy TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			frames INTEGER NOT NULL DEFAULT 0,
			commands INTEGER NOT NULL DEFAULT 0,
			reason TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_agent_started ON sessions(agent, started_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the queue, commits and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.sendMu.Lock()
		s.closed.Store(true)
		close(s.ch)
		s.sendMu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DroppedTotal:  s.dropped.Load(),
	}
}

func (s *SQLiteIndex) RecordSessionStart(id, agent, url, strategy string, startedAt time.Time) {
	s.enqueue(req{kind: reqStart, session: Session{
		ID:        id,
		Agent:     agent,
		URL:       url,
		Strategy:  strategy,
		StartedAt: startedAt,
	}})
}

func (s *SQLiteIndex) RecordSessionEnd(id string, frames, commands int64, reason string, endedAt time.Time) {
	s.enqueue(req{kind: reqEnd, session: Session{
		ID:       id,
		Frames:   frames,
		Commands: commands,
		Reason:   reason,
		EndedAt:  endedAt,
	}})
}

func (s *SQLiteIndex) enqueue(r req) {
	if s == nil {
		return
	}
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		s.dropped.Add(1)
	}
}

// Flush blocks until everything queued so far is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := make(chan struct{})
	s.sendMu.RLock()
	if s.closed.Load() {
		s.sendMu.RUnlock()
		return nil
	}
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
		s.sendMu.RUnlock()
	case <-ctx.Done():
		s.sendMu.RUnlock()
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sessions lists every recorded session, oldest first. Queued writes are
// flushed first so the result includes them.
func (s *SQLiteIndex) Sessions(ctx context.Context) ([]Session, error) {
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT session_id,agent,url,strategy,started_at,ended_at,frames,commands,reason
		FROM sessions ORDER BY started_at, session_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			sess              Session
			started           string
			ended, reasonNull sql.NullString
		)
		if err := rows.Scan(&sess.ID, &sess.Agent, &sess.URL, &sess.Strategy, &started, &ended, &sess.Frames, &sess.Commands, &reasonNull); err != nil {
			return nil, err
		}
		if sess.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("session %s: started_at: %w", sess.ID, err)
		}
		if ended.Valid {
			if sess.EndedAt, err = time.Parse(time.RFC3339Nano, ended.String); err != nil {
				return nil, fmt.Errorf("session %s: ended_at: %w", sess.ID, err)
			}
		}
		sess.Reason = reasonNull.String
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()
	insertStart, _ := s.db.Prepare(`INSERT OR REPLACE INTO sessions(session_id,agent,url,strategy,started_at) VALUES(?,?,?,?,?)`)
	updateEnd, _ := s.db.Prepare(`UPDATE sessions SET ended_at=?, frames=?, commands=?, reason=? WHERE session_id=?`)
	defer func() {
		if insertStart != nil {
			_ = insertStart.Close()
		}
		if updateEnd != nil {
			_ = updateEnd.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		commitEvery   = 256
		commitMaxWait = 500 * time.Millisecond
	)
	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
	}

	for {
		select {
		case <-ticker.C:
			commit()
			continue
		case r, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			if r.kind == reqFlush {
				commit()
				close(r.done)
				continue
			}
			begin()
			if tx == nil {
				continue
			}
			switch r.kind {
			case reqStart:
				if insertStart == nil {
					continue
				}
				ss := r.session
				if _, err := tx.Stmt(insertStart).Exec(ss.ID, ss.Agent, ss.URL, ss.Strategy, ss.StartedAt.UTC().Format(time.RFC3339Nano)); err != nil {
					rollback()
					continue
				}
				opCount++
			case reqEnd:
				if updateEnd == nil {
					continue
				}
				ss := r.session
				if _, err := tx.Stmt(updateEnd).Exec(ss.EndedAt.UTC().Format(time.RFC3339Nano), ss.Frames, ss.Commands, ss.Reason, ss.ID); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			if opCount >= commitEvery {
				commit()
			}
		}
	}
}

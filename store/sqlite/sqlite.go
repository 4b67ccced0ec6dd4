// Package sqlite indexes tick traces into a SQLite database so executed
// connections and debug values can be queried after a run.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/nathoo/regioncore/types"
)

// Store is an asynchronous trace index. WriteTick never blocks the tick.
type Store struct {
	db  *sql.DB
	Log *log.Logger

	ch   chan types.TickTrace
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Int64
}

// Open creates or opens the index at path.
func Open(path string) (*Store, error) {
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

	s := &Store{db: db, ch: make(chan types.TickTrace, 4096)}
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
		`CREATE TABLE IF NOT EXISTS ticks (
			region INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			fired INTEGER NOT NULL,
			debug INTEGER NOT NULL,
			PRIMARY KEY (region, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS fired (
			region INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			graph INTEGER NOT NULL,
			from_node INTEGER NOT NULL,
			connector TEXT NOT NULL,
			to_node INTEGER NOT NULL,
			possible INTEGER NOT NULL,
			PRIMARY KEY (region, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_fired_graph ON fired(kind, graph);`,
		`CREATE TABLE IF NOT EXISTS debug (
			region INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			entity INTEGER NOT NULL,
			text TEXT NOT NULL,
			is_error INTEGER NOT NULL,
			PRIMARY KEY (region, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_debug_entity ON debug(entity);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// WriteTick queues a trace for indexing. Traces are dropped when the
// writer falls behind.
func (s *Store) WriteTick(t types.TickTrace) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- t:
	default:
		s.dropped.Add(1)
	}
	return nil
}

// Dropped reports how many traces were discarded.
func (s *Store) Dropped() int64 { return s.dropped.Load() }

// Close flushes queued traces and closes the database.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *Store) loop() {
	for t := range s.ch {
		if err := s.insert(context.Background(), t); err != nil && s.Log != nil {
			s.Log.Printf("sqlite: tick %d: %v", t.Tick, err)
		}
	}
}

func (s *Store) insert(ctx context.Context, t types.TickTrace) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO ticks(region,tick,fired,debug) VALUES(?,?,?,?)`,
		t.Region, t.Tick, len(t.Fired), len(t.Debug)); err != nil {
		return err
	}
	if len(t.Fired) > 0 {
		stmt, err := tx.Prepare(`INSERT OR REPLACE INTO fired(region,tick,seq,kind,graph,from_node,connector,to_node,possible) VALUES(?,?,?,?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, f := range t.Fired {
			if _, err := stmt.Exec(t.Region, t.Tick, i, string(f.Kind), f.Graph, f.From, string(f.Connector), f.To, boolInt(f.Possible)); err != nil {
				return err
			}
		}
	}
	if len(t.Debug) > 0 {
		stmt, err := tx.Prepare(`INSERT OR REPLACE INTO debug(region,tick,seq,entity,text,is_error) VALUES(?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, d := range t.Debug {
			if _, err := stmt.Exec(t.Region, t.Tick, i, d.Entity, d.Text, boolInt(d.Error)); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Package postgres stores tick traces in Postgres.
package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	_ "github.com/lib/pq"

	"github.com/nathoo/regioncore/types"
)

// Client writes one row per tick. Fired connections and debug values are
// kept as JSONB.
type Client struct {
	db     *sql.DB
	region int

	mu          sync.Mutex
	errorLogged bool
}

// ConnString builds a connection string from the PG* environment.
func ConnString() string {
	host := getEnv("PGHOST", "127.0.0.1")
	port := getEnv("PGPORT", "5432")
	user := getEnv("PGUSER", "regioncore")
	dbname := getEnv("PGDATABASE", "regioncore")
	sslmode := getEnv("PGSSLMODE", "disable")
	password := os.Getenv("PGPASSWORD")

	if password != "" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		host, port, user, dbname, sslmode)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// New connects using ConnString and creates the table if needed.
func New(region int) (*Client, error) {
	db, err := sql.Open("postgres", ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	c := &Client{db: db, region: region}
	if err := c.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create ticks table: %w", err)
	}
	return c, nil
}

func (c *Client) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS region_ticks (
			region  INTEGER NOT NULL,
			tick    BIGINT NOT NULL,
			fired   JSONB NOT NULL,
			debug   JSONB,
			PRIMARY KEY (region, tick)
		);
		CREATE INDEX IF NOT EXISTS idx_region_ticks_tick ON region_ticks(tick DESC);
	`
	_, err := c.db.Exec(query)
	return err
}

// Row is the stored shape of a trace.
type Row struct {
	Region int
	Tick   int64
	Fired  []byte
	Debug  []byte // nil when the tick recorded no debug values
}

// NewRow encodes t for insertion.
func NewRow(t types.TickTrace) (Row, error) {
	fired := t.Fired
	if fired == nil {
		fired = []types.Fired{}
	}
	fj, err := json.Marshal(fired)
	if err != nil {
		return Row{}, fmt.Errorf("failed to marshal fired: %w", err)
	}
	r := Row{Region: t.Region, Tick: t.Tick, Fired: fj}
	if len(t.Debug) > 0 {
		r.Debug, err = json.Marshal(t.Debug)
		if err != nil {
			return Row{}, fmt.Errorf("failed to marshal debug: %w", err)
		}
	}
	return r, nil
}

// WriteTick upserts the trace of one tick.
func (c *Client) WriteTick(t types.TickTrace) error {
	r, err := NewRow(t)
	if err != nil {
		return err
	}
	if r.Region == 0 {
		r.Region = c.region
	}
	query := `
		INSERT INTO region_ticks (region, tick, fired, debug)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (region, tick) DO UPDATE SET fired = EXCLUDED.fired, debug = EXCLUDED.debug
	`
	_, err = c.db.Exec(query, r.Region, r.Tick, r.Fired, r.Debug)
	return err
}

// Query returns the last limit traces of the client's region, newest first.
func (c *Client) Query(limit int) ([]types.TickTrace, error) {
	if limit <= 0 {
		limit = 200
	}
	if limit > 10000 {
		limit = 10000
	}
	rows, err := c.db.Query(`
		SELECT region, tick, fired, debug
		FROM region_ticks
		WHERE region = $1
		ORDER BY tick DESC
		LIMIT $2
	`, c.region, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.TickTrace
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Region, &r.Tick, &r.Fired, &r.Debug); err != nil {
			return nil, err
		}
		t, err := r.Trace()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Trace decodes a stored row.
func (r Row) Trace() (types.TickTrace, error) {
	t := types.TickTrace{Region: r.Region, Tick: r.Tick}
	if err := json.Unmarshal(r.Fired, &t.Fired); err != nil {
		return t, fmt.Errorf("failed to unmarshal fired: %w", err)
	}
	if len(r.Debug) > 0 {
		if err := json.Unmarshal(r.Debug, &t.Debug); err != nil {
			return t, fmt.Errorf("failed to unmarshal debug: %w", err)
		}
	}
	return t, nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// MarkErrorLogged records that a write error was reported.
func (c *Client) MarkErrorLogged() {
	c.mu.Lock()
	c.errorLogged = true
	c.mu.Unlock()
}

// HasLoggedError reports whether a write error was already reported.
func (c *Client) HasLoggedError() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorLogged
}

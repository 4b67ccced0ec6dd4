package postgres

import (
	"strings"
	"testing"

	"github.com/nathoo/regioncore/types"
)

func TestConnString_Defaults(t *testing.T) {
	for _, k := range []string{"PGHOST", "PGPORT", "PGUSER", "PGDATABASE", "PGSSLMODE", "PGPASSWORD"} {
		t.Setenv(k, "")
	}
	got := ConnString()
	want := "host=127.0.0.1 port=5432 user=regioncore dbname=regioncore sslmode=disable"
	if got != want {
		t.Errorf("ConnString() = %q, want %q", got, want)
	}
}

func TestConnString_Environment(t *testing.T) {
	t.Setenv("PGHOST", "db.internal")
	t.Setenv("PGPORT", "6543")
	t.Setenv("PGUSER", "sim")
	t.Setenv("PGDATABASE", "regions")
	t.Setenv("PGSSLMODE", "require")
	t.Setenv("PGPASSWORD", "secret")
	got := ConnString()
	for _, part := range []string{"host=db.internal", "port=6543", "user=sim", "password=secret", "dbname=regions", "sslmode=require"} {
		if !strings.Contains(got, part) {
			t.Errorf("ConnString() = %q, missing %q", got, part)
		}
	}
}

func TestRow_RoundTrip(t *testing.T) {
	in := types.TickTrace{
		Region: 3,
		Tick:   12,
		Fired:  []types.Fired{{Kind: types.KindArea, Graph: 4, From: 1, Connector: types.Bottom, To: 2}},
		Debug:  []types.DebugValue{{Entity: 9, Text: "Unknown Item", Error: true}},
	}
	r, err := NewRow(in)
	if err != nil {
		t.Fatalf("NewRow: %v", err)
	}
	out, err := r.Trace()
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if out.Region != 3 || out.Tick != 12 {
		t.Errorf("header = %d/%d, want 3/12", out.Region, out.Tick)
	}
	if len(out.Fired) != 1 || out.Fired[0].Kind != types.KindArea {
		t.Errorf("Fired = %+v", out.Fired)
	}
	if len(out.Debug) != 1 || !out.Debug[0].Error {
		t.Errorf("Debug = %+v", out.Debug)
	}
}

func TestNewRow_EmptyTick(t *testing.T) {
	r, err := NewRow(types.TickTrace{Tick: 1})
	if err != nil {
		t.Fatalf("NewRow: %v", err)
	}
	if string(r.Fired) != "[]" {
		t.Errorf("Fired = %s, want []", r.Fired)
	}
	if r.Debug != nil {
		t.Errorf("Debug = %s, want nil", r.Debug)
	}
}

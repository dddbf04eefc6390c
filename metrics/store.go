// Package metrics persists per-run result numbers in a small SQLite
// database so successive runs on the same design can be compared.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id      TEXT PRIMARY KEY,
	stamp   TEXT NOT NULL,
	command TEXT NOT NULL,
	design  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS measurements (
	run_id TEXT NOT NULL REFERENCES runs(id),
	name   TEXT NOT NULL,
	value  REAL NOT NULL,
	PRIMARY KEY (run_id, name)
);
`

// Record is one stored run.
type Record struct {
	ID      string
	Stamp   time.Time
	Command string
	Design  string
	Values  map[string]float64
}

// Store wraps a single connection, the tool is single process anyway.
type Store struct {
	conn *sqlite.Conn
}

// Open opens or creates the metrics database. The special path ":memory:"
// opens a throwaway in-memory store.
func Open(path string) (*Store, error) {
	var (
		conn *sqlite.Conn
		err  error
	)
	if path == ":memory:" {
		conn, err = sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenMemory)
	} else {
		if mkerr := os.MkdirAll(filepath.Dir(path), 0700); mkerr != nil {
			return nil, mkerr
		}
		conn, err = sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	}
	if err != nil {
		return nil, fmt.Errorf("open metrics store: %w", err)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init metrics store: %w", err)
	}
	return &Store{conn: conn}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// Save stores one run and returns its generated id.
func (s *Store) Save(command, design string, values map[string]float64) (string, error) {
	id := uuid.NewString()
	stamp := time.Now().UTC().Format(time.RFC3339)

	err := sqlitex.Execute(s.conn, `INSERT INTO runs (id, stamp, command, design) VALUES (?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{id, stamp, command, design}})
	if err != nil {
		return "", fmt.Errorf("store run: %w", err)
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		err := sqlitex.Execute(s.conn, `INSERT INTO measurements (run_id, name, value) VALUES (?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{id, name, values[name]}})
		if err != nil {
			return "", fmt.Errorf("store measurement %q: %w", name, err)
		}
	}
	return id, nil
}

// List returns all stored runs, oldest first.
func (s *Store) List() ([]Record, error) {
	var (
		out   []Record
		index = make(map[string]int)
	)
	err := sqlitex.Execute(s.conn, `SELECT id, stamp, command, design FROM runs ORDER BY stamp, id`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			stamp, err := time.Parse(time.RFC3339, stmt.ColumnText(1))
			if err != nil {
				return fmt.Errorf("run %s: %w", stmt.ColumnText(0), err)
			}
			rec := Record{
				ID:      stmt.ColumnText(0),
				Stamp:   stamp,
				Command: stmt.ColumnText(2),
				Design:  stmt.ColumnText(3),
				Values:  make(map[string]float64),
			}
			index[rec.ID] = len(out)
			out = append(out, rec)
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	err = sqlitex.Execute(s.conn, `SELECT run_id, name, value FROM measurements`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			if i, ok := index[stmt.ColumnText(0)]; ok {
				out[i].Values[stmt.ColumnText(1)] = stmt.ColumnFloat(2)
			}
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	return out, nil
}

// Package storagetest creates zsh-histdb databases for tests.
package storagetest

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// schema mirrors the tables zsh-histdb creates.
const schema = `
	CREATE TABLE commands (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		argv TEXT,
		UNIQUE(argv) ON CONFLICT IGNORE
	);
	CREATE TABLE places (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		host TEXT,
		dir TEXT,
		UNIQUE(host, dir) ON CONFLICT IGNORE
	);
	CREATE TABLE history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session INT,
		command_id INT REFERENCES commands (id),
		place_id INT REFERENCES places (id),
		exit_status INT,
		start_time INT,
		duration INT
	);
`

// Entry is a history row to insert.
type Entry struct {
	Command    string
	Start      time.Time
	ExitStatus *int64
	Duration   *int64
	Session    int64
	Host       string
	Dir        string
}

// DB is a writable histdb database living in a test's temp directory.
type DB struct {
	Path string
	conn *sql.DB
	t    testing.TB
}

// New creates an empty histdb database. It is closed when the test ends.
func New(t testing.TB) *DB {
	t.Helper()
	return NewAt(t, filepath.Join(t.TempDir(), "zsh-history.db"))
}

// NewAt creates an empty histdb database at path, creating its directory.
// path may contain characters that are special in SQLite URIs.
func NewAt(t testing.TB, path string) *DB {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	dsn := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=rwc"}).String()

	conn, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Exec(schema)
	require.NoError(t, err)

	return &DB{Path: path, conn: conn, t: t}
}

// Add inserts entries in order.
func (db *DB) Add(entries ...Entry) {
	db.t.Helper()
	ctx := context.Background()

	for _, e := range entries {
		_, err := db.conn.ExecContext(ctx, `INSERT INTO commands (argv) VALUES (?)`, e.Command)
		require.NoError(db.t, err)
		_, err = db.conn.ExecContext(ctx, `INSERT INTO places (host, dir) VALUES (?, ?)`, e.Host, e.Dir)
		require.NoError(db.t, err)

		_, err = db.conn.ExecContext(ctx, `
			INSERT INTO history (session, command_id, place_id, exit_status, start_time, duration)
			VALUES (?,
				(SELECT id FROM commands WHERE argv = ?),
				(SELECT id FROM places WHERE host = ? AND dir = ?),
				?, ?, ?)
		`, e.Session, e.Command, e.Host, e.Dir, e.ExitStatus, e.Start.Unix(), e.Duration)
		require.NoError(db.t, err)
	}
}

// Exec runs a raw statement, for tests that need rows the helpers can't build.
func (db *DB) Exec(query string, args ...any) {
	db.t.Helper()
	_, err := db.conn.Exec(query, args...)
	require.NoError(db.t, err)
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}

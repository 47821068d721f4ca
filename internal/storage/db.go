package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrUnavailable is returned when the history database cannot be opened or read.
var ErrUnavailable = errors.New("history database unavailable")

// HistoryQuery selects every history entry of a zsh-histdb database, newest first.
const HistoryQuery = `
	SELECT history.id AS id, commands.argv AS cmd, start_time AS start,
	       exit_status, duration, 1 AS count,
	       history.session AS session, places.host AS host, places.dir AS dir
	FROM history
	LEFT JOIN commands ON history.command_id = commands.id
	LEFT JOIN places ON history.place_id = places.id
	ORDER BY start DESC
`

// DB wraps a read-only connection to a zsh-histdb SQLite database.
type DB struct {
	conn *sql.DB
}

// OpenReadOnly opens the database at dbPath without write access.
// The file must already exist; it is never created.
func OpenReadOnly(ctx context.Context, dbPath string) (*DB, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	dsn, err := readOnlyURI(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrUnavailable, err)
	}

	// One reader is all the loader needs.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: failed to connect: %w", ErrUnavailable, err)
	}

	return &DB{conn: conn}, nil
}

// readOnlyURI returns a SQLite URI opening dbPath read-only. The path is
// escaped, so '#', '?' and '%' in directory names stay part of the file name
// instead of starting the fragment or query.
func readOnlyURI(dbPath string) (string, error) {
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dbPath, err)
	}
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(abs),
		RawQuery: "mode=ro",
	}
	return u.String(), nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// EachRecord runs HistoryQuery and calls fn for every record in start-time
// descending order. Rows without command text are skipped. Iteration stops at
// the first error returned by fn.
func (db *DB) EachRecord(ctx context.Context, fn func(Record) error) error {
	rows, err := db.conn.QueryContext(ctx, HistoryQuery)
	if err != nil {
		return fmt.Errorf("%w: failed to query history: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, ok, err := scanRecord(rows)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		if !ok {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: error iterating history rows: %w", ErrUnavailable, err)
	}

	return nil
}

// scanRecord scans the current row into a Record. It reports false for rows
// whose command was deleted from the commands table.
func scanRecord(rows *sql.Rows) (Record, bool, error) {
	var (
		rec        Record
		cmd        sql.NullString
		start      sql.NullInt64
		exitStatus sql.NullInt64
		duration   sql.NullInt64
		session    sql.NullInt64
		host       sql.NullString
		dir        sql.NullString
	)

	err := rows.Scan(
		&rec.ID,
		&cmd,
		&start,
		&exitStatus,
		&duration,
		&rec.Count,
		&session,
		&host,
		&dir,
	)
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to scan history row: %w", err)
	}
	if !cmd.Valid {
		return Record{}, false, nil
	}

	rec.Command = cmd.String
	rec.Start = time.Unix(start.Int64, 0)
	rec.Session = session.Int64
	rec.Host = host.String
	rec.Dir = dir.String
	if exitStatus.Valid {
		val := exitStatus.Int64
		rec.ExitStatus = &val
	}
	if duration.Valid {
		val := duration.Int64
		rec.Duration = &val
	}
	rec.Highlight = HighlightFor(rec.Command)

	return rec, true, nil
}

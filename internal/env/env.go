// Package env reads the shell environment zsh-histdb exports: the current
// session, host and directory, and the database location.
package env

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Environment variables set by zsh-histdb.
const (
	SessionVar  = "HISTDB_SESSION"
	HostVar     = "HISTDB_HOST"
	DatabaseVar = "HISTDB_FILE"
)

// Snapshot is the environment as seen at one instant.
type Snapshot struct {
	Session    int64
	HasSession bool
	Dir        string
	Host       string
}

// Provider supplies environment snapshots.
type Provider interface {
	Snapshot() Snapshot
}

// Static is a Provider that always returns the same snapshot.
type Static Snapshot

// Snapshot implements Provider.
func (s Static) Snapshot() Snapshot {
	return Snapshot(s)
}

// OS reads the snapshot from the process environment.
type OS struct {
	Logger *zap.Logger
}

// Snapshot implements Provider. A session id that is not an integer is
// treated as absent.
func (o OS) Snapshot() Snapshot {
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var snap Snapshot
	raw := strings.TrimSpace(os.Getenv(SessionVar))
	if raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			logger.Warn("ignoring malformed session id",
				zap.String("var", SessionVar),
				zap.String("value", raw),
				zap.Error(err))
		} else {
			snap.Session = id
			snap.HasSession = true
		}
	}

	snap.Dir = currentDir()
	snap.Host = currentHost()
	return snap
}

func currentDir() string {
	if dir, err := os.Getwd(); err == nil {
		return dir
	}
	return os.Getenv("PWD")
}

// currentHost prefers HISTDB_HOST, which zsh-histdb stores SQL-quoted
// ('myhost'), and falls back to the system hostname.
func currentHost() string {
	if host := unquote(os.Getenv(HostVar)); host != "" {
		return host
	}
	host, err := os.Hostname()
	if err != nil {
		return ""
	}
	return host
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		s = strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

// DatabasePath returns HISTDB_FILE, or ~/.histdb/zsh-history.db.
func DatabasePath() string {
	if path := os.Getenv(DatabaseVar); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/"
	}
	return filepath.Join(home, ".histdb", "zsh-history.db")
}

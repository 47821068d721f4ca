package filter

import (
	"fmt"
	"strings"
)

// Scope selects which part of the history a filter pass lets through.
type Scope int

const (
	// Session shows commands from the current shell session on this host.
	Session Scope = iota
	// Directory shows commands run in the current directory on this host.
	Directory
	// Machine shows every command run on this host.
	Machine
	// Everywhere shows the whole history.
	Everywhere

	numScopes
)

var scopeLabels = [numScopes]string{
	Session:    "Session",
	Directory:  "Directory",
	Machine:    "Host",
	Everywhere: "Everywhere",
}

// Scopes lists every scope in cycle order.
func Scopes() []Scope {
	return []Scope{Session, Directory, Machine, Everywhere}
}

// Next returns the scope that follows s in the cycle
// Session, Directory, Machine, Everywhere, Session.
func (s Scope) Next() Scope {
	if !s.Valid() {
		return Session
	}
	return (s + 1) % numScopes
}

// Valid reports whether s is one of the four scopes.
func (s Scope) Valid() bool {
	return s >= Session && s < numScopes
}

func (s Scope) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Scope(%d)", int(s))
	}
	return scopeLabels[s]
}

// ParseScope parses a scope name as written in the config file.
func ParseScope(name string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "session":
		return Session, nil
	case "directory", "dir":
		return Directory, nil
	case "machine", "host":
		return Machine, nil
	case "everywhere", "all":
		return Everywhere, nil
	}
	return 0, fmt.Errorf("unknown scope %q", name)
}

package controller

import (
	"context"

	"github.com/entl/histsearch/internal/filter"
	"github.com/entl/histsearch/internal/storage"
)

// Key is the control key that ended a selector session.
type Key int

const (
	// KeyOther is any key without a controller meaning.
	KeyOther Key = iota
	KeyAbort
	KeyConfirm
	KeyScopeSession
	KeyScopeDirectory
	KeyScopeMachine
	KeyScopeEverywhere
	KeyCycleScope
	KeyToggleDedup
)

var keyNames = map[Key]string{
	KeyOther:           "other",
	KeyAbort:           "abort",
	KeyConfirm:         "confirm",
	KeyScopeSession:    "scope-session",
	KeyScopeDirectory:  "scope-directory",
	KeyScopeMachine:    "scope-machine",
	KeyScopeEverywhere: "scope-everywhere",
	KeyCycleScope:      "cycle-scope",
	KeyToggleDedup:     "toggle-dedup",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "unknown"
}

// Request describes one presentation of the selector.
type Request struct {
	Query  string
	Header string
	Scope  filter.Scope
	Dedup  bool
}

// Result is what the user did in the selector.
type Result struct {
	Key      Key
	Selected *storage.Record
	// Query is the text left in the prompt.
	Query string
}

// Session is one open selector. The filter pass feeds it through the
// embedded Sink while the controller blocks in Wait.
type Session interface {
	filter.Sink
	Wait() (Result, error)
}

// Selector opens interactive selector sessions.
type Selector interface {
	Open(ctx context.Context, req Request) (Session, error)
}

package controller

import (
	"errors"
	"fmt"
	"strings"

	"github.com/entl/histsearch/internal/env"
	"github.com/entl/histsearch/internal/filter"
)

// ErrAborted is returned when the user leaves the selector without choosing.
var ErrAborted = errors.New("aborted")

// State is what survives between selector sessions.
type State struct {
	Scope filter.Scope
	Dedup bool
	Query string
}

// InitialState starts in Session scope when the shell reported a session id
// and in Directory scope otherwise, with deduplication on.
func InitialState(query string, snap env.Snapshot) State {
	scope := filter.Directory
	if snap.HasSession {
		scope = filter.Session
	}
	return State{Scope: scope, Dedup: true, Query: query}
}

// Outcome tells the controller whether to present the selector again.
type Outcome struct {
	Done    bool
	Command string
	Err     error
}

// Step applies a selector result to st.
func Step(st State, res Result) (State, Outcome) {
	switch res.Key {
	case KeyAbort:
		return st, Outcome{Done: true, Err: ErrAborted}
	case KeyConfirm:
		if res.Selected != nil {
			return st, Outcome{Done: true, Command: res.Selected.Command}
		}
		return st, Outcome{Done: true, Command: res.Query}
	case KeyScopeSession:
		st.Scope = filter.Session
	case KeyScopeDirectory:
		st.Scope = filter.Directory
	case KeyScopeMachine:
		st.Scope = filter.Machine
	case KeyScopeEverywhere:
		st.Scope = filter.Everywhere
	case KeyCycleScope:
		st.Scope = st.Scope.Next()
	case KeyToggleDedup:
		st.Dedup = !st.Dedup
	}
	st.Query = res.Query
	return st, Outcome{}
}

var scopeKeys = map[filter.Scope]string{
	filter.Session:    "F1",
	filter.Directory:  "F2",
	filter.Machine:    "F3",
	filter.Everywhere: "F4",
}

// Title renders the selector header for st.
func Title(st State) string {
	var b strings.Builder
	for i, scope := range filter.Scopes() {
		if i > 0 {
			b.WriteString("  ")
		}
		label := fmt.Sprintf("%s: %s", scopeKeys[scope], scope)
		if scope == st.Scope {
			label = "[" + label + "]"
		}
		b.WriteString(label)
	}

	group := "off"
	if st.Dedup {
		group = "on"
	}
	fmt.Fprintf(&b, "  |  F5: Group %s  |  C-r: Cycle", group)
	return b.String()
}

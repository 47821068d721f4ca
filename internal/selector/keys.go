package selector

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/entl/histsearch/internal/controller"
)

// keyMap holds the selector bindings. Keys not listed here edit the query.
type keyMap struct {
	Abort           key.Binding
	Confirm         key.Binding
	ScopeSession    key.Binding
	ScopeDirectory  key.Binding
	ScopeMachine    key.Binding
	ScopeEverywhere key.Binding
	CycleScope      key.Binding
	ToggleDedup     key.Binding

	Up           key.Binding
	Down         key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	HalfPageUp   key.Binding
	HalfPageDown key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Abort: key.NewBinding(
			key.WithKeys("esc", "ctrl+c", "ctrl+z"),
			key.WithHelp("esc", "abort"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		ScopeSession:    key.NewBinding(key.WithKeys("f1"), key.WithHelp("F1", "session")),
		ScopeDirectory:  key.NewBinding(key.WithKeys("f2"), key.WithHelp("F2", "directory")),
		ScopeMachine:    key.NewBinding(key.WithKeys("f3"), key.WithHelp("F3", "host")),
		ScopeEverywhere: key.NewBinding(key.WithKeys("f4"), key.WithHelp("F4", "everywhere")),
		ToggleDedup:     key.NewBinding(key.WithKeys("f5"), key.WithHelp("F5", "group")),
		CycleScope:      key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("C-r", "cycle")),

		Up:           key.NewBinding(key.WithKeys("up", "ctrl+p")),
		Down:         key.NewBinding(key.WithKeys("down", "ctrl+n")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
	}
}

// controlKeys maps the bindings that end a session to controller keys.
func (k keyMap) controlKeys() []struct {
	binding key.Binding
	key     controller.Key
} {
	return []struct {
		binding key.Binding
		key     controller.Key
	}{
		{k.Abort, controller.KeyAbort},
		{k.Confirm, controller.KeyConfirm},
		{k.ScopeSession, controller.KeyScopeSession},
		{k.ScopeDirectory, controller.KeyScopeDirectory},
		{k.ScopeMachine, controller.KeyScopeMachine},
		{k.ScopeEverywhere, controller.KeyScopeEverywhere},
		{k.CycleScope, controller.KeyCycleScope},
		{k.ToggleDedup, controller.KeyToggleDedup},
	}
}

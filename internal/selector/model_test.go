package selector

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/entl/histsearch/internal/controller"
	"github.com/entl/histsearch/internal/history"
	"github.com/entl/histsearch/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.March, 2, 12, 0, 0, 0, time.Local)

func record(id int64, cmd string, start time.Time) storage.Record {
	return storage.Record{
		ID:        id,
		Command:   cmd,
		Start:     start,
		Count:     1,
		Session:   7,
		Host:      "box",
		Dir:       "/src",
		Highlight: storage.HighlightFor(cmd),
	}
}

func newTestModel(query string) model {
	return newModel(controller.Request{Query: query, Header: "F1: Session"}, Options{Now: func() time.Time { return testNow }})
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	require.True(t, ok)
	return nm, cmd
}

func typeText(t *testing.T, m model, text string) model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func requireQuit(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestDateFormatter(t *testing.T) {
	f := dateFormatter{layout: "%d/%m/%Y", now: func() time.Time { return testNow }}

	assert.Equal(t, "09:30", f.short(time.Date(2024, time.March, 2, 9, 30, 0, 0, time.Local)))
	assert.Equal(t, "00:00", f.short(time.Date(2024, time.March, 2, 0, 0, 0, 0, time.Local)))
	assert.Equal(t, "01/03/2024", f.short(time.Date(2024, time.March, 1, 23, 59, 0, 0, time.Local)))
	assert.Equal(t, "01/03/2024 23:59", f.full(time.Date(2024, time.March, 1, 23, 59, 0, 0, time.Local)))
}

func TestModel_ConfirmSelectsFirstCandidate(t *testing.T) {
	m := newTestModel("")
	m, _ = update(t, m, candidatesMsg{
		record(3, "git status", testNow.Add(-time.Hour)),
		record(2, "ls", testNow.Add(-2*time.Hour)),
	})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	requireQuit(t, cmd)
	assert.True(t, m.done)
	assert.Equal(t, controller.KeyConfirm, m.result.Key)
	require.NotNil(t, m.result.Selected)
	assert.Equal(t, "git status", m.result.Selected.Command)
}

func TestModel_ConfirmWithoutCandidates(t *testing.T) {
	m := newTestModel("")
	m = typeText(t, m, "make test")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	requireQuit(t, cmd)
	assert.Equal(t, controller.Result{Key: controller.KeyConfirm, Query: "make test"}, m.result)
}

func TestModel_ControlKeys(t *testing.T) {
	tests := []struct {
		msg  tea.KeyMsg
		want controller.Key
	}{
		{tea.KeyMsg{Type: tea.KeyEsc}, controller.KeyAbort},
		{tea.KeyMsg{Type: tea.KeyCtrlC}, controller.KeyAbort},
		{tea.KeyMsg{Type: tea.KeyCtrlZ}, controller.KeyAbort},
		{tea.KeyMsg{Type: tea.KeyF1}, controller.KeyScopeSession},
		{tea.KeyMsg{Type: tea.KeyF2}, controller.KeyScopeDirectory},
		{tea.KeyMsg{Type: tea.KeyF3}, controller.KeyScopeMachine},
		{tea.KeyMsg{Type: tea.KeyF4}, controller.KeyScopeEverywhere},
		{tea.KeyMsg{Type: tea.KeyF5}, controller.KeyToggleDedup},
		{tea.KeyMsg{Type: tea.KeyCtrlR}, controller.KeyCycleScope},
	}

	for _, tt := range tests {
		t.Run(tt.msg.String(), func(t *testing.T) {
			m := newTestModel("git")
			m, _ = update(t, m, candidatesMsg{record(1, "git log", testNow)})

			m, cmd := update(t, m, tt.msg)
			requireQuit(t, cmd)
			assert.Equal(t, tt.want, m.result.Key)
			assert.Equal(t, "git", m.result.Query)
			assert.Nil(t, m.result.Selected)
		})
	}
}

func TestModel_TypingFilters(t *testing.T) {
	m := newTestModel("")
	m, _ = update(t, m, candidatesMsg{
		record(3, "git status", testNow),
		record(2, "ls -la", testNow),
		record(1, "make", testNow),
	})
	require.Len(t, m.matches, 3)

	m = typeText(t, m, "ls")
	require.Len(t, m.matches, 1)
	assert.Equal(t, "ls -la", m.candidates[m.matches[0].index].rec.Command)

	// Later batches are matched against the current query.
	m, _ = update(t, m, candidatesMsg{record(0, "lsblk", testNow), record(-1, "pwd", testNow)})
	assert.Len(t, m.candidates, 5)
	assert.Len(t, m.matches, 2)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Len(t, m.matches, 5)
}

func TestModel_NoSortKeepsArrivalOrder(t *testing.T) {
	m := newModel(controller.Request{Query: "g"}, Options{NoSort: true, Now: func() time.Time { return testNow }})
	m, _ = update(t, m, candidatesMsg{record(3, "ls ~/go", testNow), record(2, "git", testNow)})
	m, _ = update(t, m, candidatesMsg{record(1, "grep g", testNow)})

	var got []string
	for _, mt := range m.matches {
		got = append(got, m.candidates[mt.index].rec.Command)
	}
	assert.Equal(t, []string{"ls ~/go", "git", "grep g"}, got)
}

func TestModel_Movement(t *testing.T) {
	m := newTestModel("")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 5})
	var batch []storage.Record
	for i := 0; i < 10; i++ {
		batch = append(batch, record(int64(10-i), strings.Repeat("x", i+1), testNow))
	}
	m, _ = update(t, m, candidatesMsg(batch))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, m.cursor)
	assert.Equal(t, 1, m.offset, "two visible rows keep the cursor in view")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyPgDown})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyPgDown})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyPgDown})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 9, m.cursor)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	assert.Equal(t, 8, m.cursor)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	requireQuit(t, cmd)
	require.NotNil(t, m.result.Selected)
	assert.Equal(t, int64(2), m.result.Selected.ID)
}

func TestModel_MovementWithoutMatches(t *testing.T) {
	m := newTestModel("")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, m.cursor)
}

func TestModel_View(t *testing.T) {
	m := newTestModel("")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 20})
	rec := record(42, "make build", time.Date(2024, time.February, 1, 8, 15, 0, 0, time.Local))
	rec.Duration = func(v int64) *int64 { return &v }(90)
	m, _ = update(t, m, candidatesMsg{rec})

	view := m.View()
	assert.Contains(t, view, "F1: Session")
	assert.Contains(t, view, "1/1 loading")
	assert.Contains(t, view, "01/02/2024 make build")
	assert.Contains(t, view, "Details for 42")
	assert.Contains(t, view, "1m30s")
	assert.Contains(t, view, "<NONE>", "exit status is unknown")

	m, _ = update(t, m, exhaustedMsg{})
	assert.NotContains(t, m.View(), "loading")
}

func TestModel_ViewNoHistoryAvailable(t *testing.T) {
	m := newTestModel("")
	m, _ = update(t, m, exhaustedMsg{err: errors.New("unable to open database")})

	view := m.View()
	assert.Contains(t, view, "no history available")
	assert.NotContains(t, view, "loading")
}

func TestModel_ViewHistoryIncomplete(t *testing.T) {
	m := newTestModel("")
	m, _ = update(t, m, candidatesMsg{record(1, "ls", testNow)})
	m, _ = update(t, m, exhaustedMsg{err: fmt.Errorf("%w after 1 records: disk I/O error", history.ErrIncomplete)})

	view := m.View()
	assert.Contains(t, view, "1/1 history incomplete")
	assert.NotContains(t, view, "no history available")
}

func TestModel_ViewNarrowHidesPreview(t *testing.T) {
	m := newTestModel("")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 10})
	m, _ = update(t, m, candidatesMsg{record(1, "ls", testNow)})

	assert.NotContains(t, m.View(), "Details for")
}

func TestRenderLine(t *testing.T) {
	assert.Equal(t, "echo a b", renderLine("echo\na\tb", nil, 40, false))
	assert.Equal(t, "echo", renderLine("echo hello", nil, 4, false))
}

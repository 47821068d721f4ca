package selector

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/entl/histsearch/internal/controller"
	"github.com/entl/histsearch/internal/history"
	"github.com/entl/histsearch/internal/storage"
	"github.com/mattn/go-runewidth"
	"github.com/ncruces/go-strftime"
)

const (
	defaultWidth  = 80
	defaultHeight = 24

	// chromeLines are the prompt, status and header rows above the list.
	chromeLines = 3

	// minPreviewWidth is the terminal width below which the preview is hidden.
	minPreviewWidth = 80
)

// candidatesMsg carries a batch from the filter pass.
type candidatesMsg []storage.Record

// exhaustedMsg reports that the filter pass scanned the whole history.
type exhaustedMsg struct {
	err error
}

// dateFormatter renders start times the way the list and preview show them.
type dateFormatter struct {
	layout string
	now    func() time.Time
}

// short returns the time of day for commands run today and the date otherwise.
func (f dateFormatter) short(t time.Time) string {
	now := f.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	t = t.In(now.Location())
	if !t.Before(midnight) {
		return strftime.Format("%H:%M", t)
	}
	return strftime.Format(f.layout, t)
}

func (f dateFormatter) full(t time.Time) string {
	return strftime.Format(f.layout+" %H:%M", t.In(f.now().Location()))
}

// model is the bubbletea model of one selector session.
type model struct {
	header string
	keys   keyMap
	input  textinput.Model
	dates  dateFormatter
	noSort bool

	candidates []candidate
	matches    []match
	query      string // the query matches were computed for
	cursor     int    // index into matches
	offset     int    // first visible match

	width     int
	height    int
	exhausted bool
	loadErr   error

	done   bool
	result controller.Result
}

func newModel(req controller.Request, opts Options) model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.SetValue(req.Query)
	ti.CursorEnd()
	ti.Focus()

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	layout := opts.DateFormat
	if layout == "" {
		layout = "%d/%m/%Y"
	}

	return model{
		header: req.Header,
		keys:   defaultKeyMap(),
		input:  ti,
		dates:  dateFormatter{layout: layout, now: now},
		noSort: opts.NoSort,
		query:  req.Query,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.scrollToCursor()
		return m, nil

	case candidatesMsg:
		m.add(msg)
		return m, nil

	case exhaustedMsg:
		m.exhausted = true
		m.loadErr = msg.err
		return m, nil

	case tea.KeyMsg:
		for _, ck := range m.keys.controlKeys() {
			if key.Matches(msg, ck.binding) {
				return m.finish(ck.key)
			}
		}

		switch {
		case key.Matches(msg, m.keys.Up):
			m.move(-1)
			return m, nil
		case key.Matches(msg, m.keys.Down):
			m.move(1)
			return m, nil
		case key.Matches(msg, m.keys.PageUp):
			m.move(-m.listHeight())
			return m, nil
		case key.Matches(msg, m.keys.PageDown):
			m.move(m.listHeight())
			return m, nil
		case key.Matches(msg, m.keys.HalfPageUp):
			m.move(-max(1, m.listHeight()/2))
			return m, nil
		case key.Matches(msg, m.keys.HalfPageDown):
			m.move(max(1, m.listHeight()/2))
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if q := m.input.Value(); q != m.query {
		m.refilter(q)
	}
	return m, cmd
}

// finish ends the session with k. Only confirm carries a selection.
func (m model) finish(k controller.Key) (tea.Model, tea.Cmd) {
	m.done = true
	m.result = controller.Result{Key: k, Query: m.input.Value()}
	if k == controller.KeyConfirm {
		if c, ok := m.selected(); ok {
			rec := c.rec
			m.result.Selected = &rec
		}
	}
	return m, tea.Quit
}

// add appends a batch and matches only the new candidates against the
// current query.
func (m *model) add(batch []storage.Record) {
	start := len(m.candidates)
	for _, rec := range batch {
		m.candidates = append(m.candidates, candidate{
			rec:  rec,
			line: rec.DisplayLine(m.dates.short(rec.Start)),
		})
	}
	fresh := findMatches(m.query, m.candidates[start:], start, m.noSort)
	m.matches = mergeMatches(m.matches, fresh, m.noSort)
}

func (m *model) refilter(query string) {
	m.query = query
	m.matches = findMatches(query, m.candidates, 0, m.noSort)
	m.cursor = 0
	m.offset = 0
}

func (m model) selected() (candidate, bool) {
	if m.cursor < 0 || m.cursor >= len(m.matches) {
		return candidate{}, false
	}
	return m.candidates[m.matches[m.cursor].index], true
}

func (m *model) move(delta int) {
	if len(m.matches) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.matches)-1)
	m.scrollToCursor()
}

func (m *model) scrollToCursor() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	} else if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
}

func (m model) size() (int, int) {
	w, h := m.width, m.height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

func (m model) listHeight() int {
	_, h := m.size()
	return max(1, h-chromeLines)
}

func (m model) View() string {
	if m.done {
		return ""
	}

	width, _ := m.size()
	height := m.listHeight()

	var b strings.Builder
	b.WriteString(m.input.View())
	b.WriteByte('\n')
	b.WriteString(m.statusLine(width))
	b.WriteByte('\n')
	b.WriteString(headerStyle.Render(runewidth.Truncate(m.header, width, "…")))
	b.WriteByte('\n')

	listWidth := width
	if width >= minPreviewWidth {
		listWidth = width * 3 / 5
	}
	list := m.renderList(listWidth, height)

	if listWidth < width {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, list, m.renderPreview(width-listWidth, height)))
	} else {
		b.WriteString(list)
	}
	return b.String()
}

func (m model) statusLine(width int) string {
	counts := fmt.Sprintf("%s/%s",
		humanize.Comma(int64(len(m.matches))),
		humanize.Comma(int64(len(m.candidates))))

	switch {
	case errors.Is(m.loadErr, history.ErrIncomplete):
		return statusStyle.Render(counts) + " " + unavailableStyle.Render("history incomplete")
	case m.loadErr != nil:
		detail := runewidth.Truncate(" ("+m.loadErr.Error()+")", max(0, width-20), "…")
		return unavailableStyle.Render("no history available") + statusStyle.Render(detail)
	case !m.exhausted:
		return statusStyle.Render(counts + " loading…")
	}
	return statusStyle.Render(counts)
}

func (m model) renderList(width, height int) string {
	lines := make([]string, 0, height)
	for i := m.offset; i < len(m.matches) && len(lines) < height; i++ {
		mt := m.matches[i]
		selected := i == m.cursor

		prefix := "  "
		if selected {
			prefix = indicatorStyle.Render(">") + " "
		}
		lines = append(lines, prefix+renderLine(m.candidates[mt.index].line, mt.positions, width-2, selected))
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

// renderLine cuts line to width cells and styles matched byte positions.
// Line breaks and tabs in multi-line commands show as spaces.
func renderLine(line string, positions []int, width int, selected bool) string {
	hit := make(map[int]struct{}, len(positions))
	for _, p := range positions {
		hit[p] = struct{}{}
	}

	base := lipgloss.NewStyle()
	if selected {
		base = selectedStyle
	}
	highlight := matchStyle.Inherit(base)

	var (
		out, run strings.Builder
		runHit   bool
		used     int
	)
	flush := func() {
		if run.Len() == 0 {
			return
		}
		if runHit {
			out.WriteString(highlight.Render(run.String()))
		} else {
			out.WriteString(base.Render(run.String()))
		}
		run.Reset()
	}

	for i, r := range line {
		switch r {
		case '\n', '\r', '\t':
			r = ' '
		}
		w := runewidth.RuneWidth(r)
		if used+w > width {
			break
		}
		used += w

		_, isHit := hit[i]
		if isHit != runHit {
			flush()
			runHit = isHit
		}
		run.WriteRune(r)
	}
	flush()
	return out.String()
}

package selector

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)

func (m model) renderPreview(width, height int) string {
	// Border takes two cells each way.
	inner := max(1, width-2)
	content := ""
	if c, ok := m.selected(); ok {
		content = m.previewContent(c)
	}
	return previewStyle.
		Width(inner).
		Height(max(1, height-2)).
		MaxHeight(height).
		Render(content)
}

// previewContent describes the candidate's execution.
func (m model) previewContent(c candidate) string {
	r := c.rec

	var b strings.Builder
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	b.WriteString(titleStyle.Render("Details for " + strconv.FormatInt(r.ID, 10)))
	b.WriteString("\n\n")
	row("Runtime", formatDuration(r.Duration))
	row("Host", r.Host)
	row("Executed", humanize.Comma(r.Count))
	row("Directory", r.Dir)
	row("Exit Status", formatOptional(r.ExitStatus))
	row("Session", strconv.FormatInt(r.Session, 10))
	row("Start Time", m.dates.full(r.Start)+" ("+humanize.RelTime(r.Start, m.dates.now(), "ago", "from now")+")")
	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Command"))
	b.WriteString("\n\n")
	b.WriteString(r.Command)
	return b.String()
}

func formatDuration(seconds *int64) string {
	if seconds == nil {
		return noneStyle.Render("<NONE>")
	}
	return (time.Duration(*seconds) * time.Second).String()
}

func formatOptional(v *int64) string {
	if v == nil {
		return noneStyle.Render("<NONE>")
	}
	return strconv.FormatInt(*v, 10)
}

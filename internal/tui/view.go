package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/keyboarding/internal/gate"
	"github.com/verte-zerg/keyboarding/internal/report"
)

const tableWidth = 64

func newCategoryTable() table.Model {
	columns := []table.Column{
		{Title: "Category", Width: 24},
		{Title: "Status", Width: 10},
		{Title: "Speed", Width: 8},
		{Title: "Accuracy", Width: 9},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		PaddingLeft(0)
	styles.Cell = styles.Cell.PaddingLeft(0)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#C89A3A")).
		Bold(true)
	t.SetStyles(styles)
	return t
}

// refreshTable rebuilds the category rows from the merged progress. The
// final assessment is always the last row.
func (m *Model) refreshTable() {
	agg := m.svc.Aggregate()
	cats := m.svc.Categories()
	rows := make([]table.Row, 0, len(cats)+1)
	for _, c := range cats {
		rows = append(rows, table.Row{
			c.Name,
			report.Badge(agg.Status(c.ID)),
			fmt.Sprintf("%d WPM", c.Criteria.MinWPM),
			fmt.Sprintf("%d%%", c.Criteria.MinAccuracy),
		})
	}
	a := m.svc.Assessment()
	rows = append(rows, table.Row{
		"Final assessment",
		m.gate.State().String(),
		fmt.Sprintf("%d WPM", a.Criteria.MinWPM),
		fmt.Sprintf("%d%%", a.Criteria.MinAccuracy),
	})
	m.table.SetRows(rows)
	m.table.SetHeight(len(rows) + 1)
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch m.screen {
	case screenTyping:
		content = m.viewTyping()
	case screenResult:
		content = m.viewResult()
	case screenGate:
		content = m.viewGate()
	default:
		content = m.viewSelect()
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) viewSelect() string {
	agg := m.svc.Aggregate()
	lines := []string{
		titleStyle.Render("Keyboarding practice"),
		footerStyle.Render(fmt.Sprintf("%d of %d categories passed", agg.PassedCount, len(agg.PerCategory))),
		"",
		m.table.View(),
		"",
		footerStyle.Render("↑/↓ choose  enter start  q quit"),
	}
	if m.notice != "" {
		lines = append(lines, noticeStyle.Render(m.notice))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) viewGate() string {
	var body []string
	switch m.gate.State() {
	case gate.Checking:
		body = []string{titleStyle.Render("Checking your practice progress…")}
		if m.loadErr != nil {
			body = append(body, noticeStyle.Render("Progress could not be read. Press enter to retry."))
		}
	case gate.Locked:
		agg := m.svc.Aggregate()
		body = []string{
			titleStyle.Render("The final assessment is locked"),
			fmt.Sprintf("Pass every practice category first (%d of %d passed).", agg.PassedCount, len(agg.PerCategory)),
		}
		for _, cs := range agg.PerCategory {
			if cs.Record.Passed {
				continue
			}
			name := cs.ID
			if c, ok := m.svc.Category(cs.ID); ok {
				name = c.Name
			}
			body = append(body, pendingStyle.Render("  • "+name))
		}
	default:
		body = []string{titleStyle.Render("The final assessment is unlocked"), "Press enter to begin."}
	}
	body = append(body, "", footerStyle.Render("esc back"))
	return boxStyle.Render(strings.Join(body, "\n"))
}

func (m *Model) viewTyping() string {
	if m.session == nil {
		return ""
	}
	v := textView{
		target:   m.session.Runes(),
		cursor:   m.session.Cursor(),
		missed:   m.missed,
		hasError: m.session.HasError,
	}
	styled := buildStyledRunes(v)
	if m.width == 0 {
		return renderStyledRunes(styled)
	}
	contentWidth := max(1, int(float64(m.width)*0.70))
	wrapped := wrapStyledRunes(styled, contentWidth)
	return lipgloss.NewStyle().Width(contentWidth).Render(wrapped)
}

func (m *Model) viewResult() string {
	if m.result == nil {
		return ""
	}
	r := m.result
	verdict := failStyle.Render("Not passed yet")
	if r.Passed {
		verdict = passStyle.Render("Passed")
	}
	criteria := m.svc.Assessment().Criteria
	if m.session != nil {
		criteria = m.session.Criteria()
	}
	lines := []string{
		verdict,
		"",
		fmt.Sprintf("Speed     %3d WPM  (needs %d)", r.WPM, criteria.MinWPM),
		fmt.Sprintf("Accuracy  %3d%%     (needs %d%%)", r.Accuracy, criteria.MinAccuracy),
		fmt.Sprintf("Time      %s", formatElapsed(time.Duration(r.DurationSeconds*float64(time.Second)))),
		fmt.Sprintf("Errors    %d   Best streak %d", r.ErrorCount, r.BestStreak),
	}
	switch {
	case m.saving:
		lines = append(lines, "", footerStyle.Render("Saving…"))
	case m.outcome != nil && m.outcome.Ack != nil:
		lines = append(lines, "", passStyle.Render("All practice categories passed. The final assessment is unlocked."))
	case m.outcome != nil && m.outcome.Reply != nil && m.outcome.Reply.CourseCompleted:
		lines = append(lines, "", passStyle.Render("Course completed."))
	}
	if m.notice != "" {
		lines = append(lines, noticeStyle.Render(m.notice))
	}
	lines = append(lines, "", footerStyle.Render("r try again  n new text  esc back"))
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderFooter() string {
	var segments []string
	if m.screen == screenTyping && m.session != nil {
		total := len(m.session.Runes())
		progress := 0
		if total > 0 {
			progress = m.session.Cursor() * 100 / total
		}
		streak, _ := m.session.Streak()
		segments = append(segments,
			fmt.Sprintf("Progress %d%%", progress),
			fmt.Sprintf("%d WPM · %d%%", m.live.WPM, m.live.Accuracy),
			formatElapsed(m.elapsed),
			fmt.Sprintf("Streak %d", streak),
		)
	}
	if stats := m.svc.Stats(); stats.SessionsCompleted > 0 {
		segments = append(segments, fmt.Sprintf("All-time %.1f WPM · %.1f%%", stats.AvgWPM, stats.AvgAccuracy))
	}
	if len(m.recent) > 0 {
		segments = append(segments, "Unlocked: "+strings.Join(m.recent, ", "))
	}
	if len(segments) == 0 {
		return ""
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}


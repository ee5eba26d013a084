// Package report renders learner progress as plain text.
package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/verte-zerg/keyboarding/internal/achievement"
	"github.com/verte-zerg/keyboarding/internal/gate"
	"github.com/verte-zerg/keyboarding/internal/model"
	"github.com/verte-zerg/keyboarding/internal/progress"
)

// Source is the learner state a report is built from.
type Source interface {
	Categories() []model.Category
	Assessment() model.Assessment
	Aggregate() progress.Aggregate
	Ack() *model.LessonAcknowledgment
	Stats() model.StatsAggregate
	Achievements() []model.AchievementRecord
	RecentAttempts(ctx context.Context, n int) ([]model.SessionResult, error)
}

// CategoryLine is one practice category with its merged progress.
type CategoryLine struct {
	Category model.Category
	Record   model.CategoryProgressRecord
}

// Report contains precomputed data for progress rendering.
type Report struct {
	Categories   []CategoryLine
	Completed    int
	Passed       int
	Assessment   model.Assessment
	Ack          *model.LessonAcknowledgment
	Stats        model.StatsAggregate
	Achievements []model.AchievementRecord
	Recent       []model.SessionResult
	// TrendWidth caps the sparkline width. Zero means defaultTrendWidth.
	TrendWidth int
}

const defaultTrendWidth = 40

// Build loads everything a report shows. recent limits the attempt history.
func Build(ctx context.Context, src Source, recent int) (Report, error) {
	agg := src.Aggregate()
	r := Report{
		Completed:    agg.CompletedCount,
		Passed:       agg.PassedCount,
		Assessment:   src.Assessment(),
		Ack:          src.Ack(),
		Stats:        src.Stats(),
		Achievements: src.Achievements(),
	}
	for _, c := range src.Categories() {
		r.Categories = append(r.Categories, CategoryLine{Category: c, Record: agg.Status(c.ID)})
	}
	if recent > 0 {
		attempts, err := src.RecentAttempts(ctx, recent)
		if err != nil {
			return Report{}, fmt.Errorf("load attempts: %w", err)
		}
		r.Recent = attempts
	}
	return r, nil
}

// Badge is the short status shown next to a category.
func Badge(rec model.CategoryProgressRecord) string {
	switch {
	case rec.Passed:
		return "passed"
	case rec.Completed:
		return "tried"
	default:
		return "new"
	}
}

// Write renders the report.
func Write(w io.Writer, r Report) error {
	var lines []string
	lines = append(lines, fmt.Sprintf("Practice: %d/%d passed, %d/%d completed",
		r.Passed, len(r.Categories), r.Completed, len(r.Categories)))
	rows := make([][]string, 0, len(r.Categories))
	for _, cl := range r.Categories {
		rows = append(rows, []string{
			cl.Category.Name,
			Badge(cl.Record),
			fmt.Sprintf("%d WPM", cl.Category.Criteria.MinWPM),
			fmt.Sprintf("%d%%", cl.Category.Criteria.MinAccuracy),
			formatTime(cl.Record.UpdatedAt),
		})
	}
	lines = append(lines, formatTable([]string{"Category", "Status", "Speed", "Accuracy", "Updated"}, rows, map[int]bool{2: true, 3: true})...)

	lines = append(lines, "", fmt.Sprintf("Final assessment (%s): %s", r.Assessment.ID, gateLabel(r.Ack)))

	lines = append(lines, "", "Statistics")
	s := r.Stats
	lines = append(lines, formatTable(nil, [][]string{
		{"Sessions", strconv.Itoa(s.SessionsCompleted)},
		{"Average speed", fmt.Sprintf("%.1f WPM", s.AvgWPM)},
		{"Average accuracy", fmt.Sprintf("%.1f%%", s.AvgAccuracy)},
		{"Best speed", fmt.Sprintf("%.0f WPM", s.BestWPM)},
		{"Best accuracy", fmt.Sprintf("%.0f%%", s.BestAccuracy)},
		{"Time practiced", fmt.Sprintf("%.1f min", s.TotalTime)},
		{"Words typed", fmt.Sprintf("%.0f", s.TotalWords)},
	}, map[int]bool{1: true})...)

	lines = append(lines, "", fmt.Sprintf("Achievements (%d/%d)", len(r.Achievements), len(achievement.Table)))
	if len(r.Achievements) == 0 {
		lines = append(lines, "none yet")
	} else {
		rows = rows[:0]
		for _, rec := range r.Achievements {
			title := rec.ID
			if def, ok := achievement.Lookup(rec.ID); ok {
				title = def.Title
			}
			rows = append(rows, []string{title, formatTime(rec.UnlockedAt)})
		}
		lines = append(lines, formatTable(nil, rows, nil)...)
	}

	if len(r.Recent) > 0 {
		lines = append(lines, "", "Recent attempts")
		wpm := make([]float64, 0, len(r.Recent))
		acc := make([]float64, 0, len(r.Recent))
		for _, a := range r.Recent {
			wpm = append(wpm, float64(a.WPM))
			acc = append(acc, float64(a.Accuracy))
		}
		width := r.TrendWidth
		if width <= 0 {
			width = defaultTrendWidth
		}
		lines = append(lines, trendLines([]Series{{Name: "WPM", Values: wpm}, {Name: "Accuracy", Values: acc}}, width)...)
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// WriteCategories renders the configured categories and the final assessment.
func WriteCategories(w io.Writer, categories []model.Category, assessment model.Assessment) error {
	rows := make([][]string, 0, len(categories)+1)
	for _, c := range categories {
		rows = append(rows, []string{c.ID, c.Name, strconv.Itoa(c.Criteria.MinWPM), strconv.Itoa(c.Criteria.MinAccuracy), strconv.Itoa(len(c.Texts))})
	}
	rows = append(rows, []string{assessment.ID, "Final assessment", strconv.Itoa(assessment.Criteria.MinWPM), strconv.Itoa(assessment.Criteria.MinAccuracy), strconv.Itoa(len(assessment.Texts))})
	for _, line := range formatTable([]string{"ID", "Name", "Min WPM", "Min Acc", "Texts"}, rows, map[int]bool{2: true, 3: true, 4: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func gateLabel(ack *model.LessonAcknowledgment) string {
	if !gate.IsUnlocked(ack) {
		return "locked"
	}
	return "unlocked " + formatTime(ack.Timestamp)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

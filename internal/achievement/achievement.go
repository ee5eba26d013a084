// Package achievement detects and records learner achievements.
package achievement

import (
	"sort"
	"time"

	"github.com/verte-zerg/keyboarding/internal/model"
)

// Dimension is the signal type an achievement listens to.
type Dimension string

const (
	DimWPM      Dimension = "wpm"
	DimAccuracy Dimension = "accuracy"
	DimStreak   Dimension = "streak"
	DimSessions Dimension = "sessions"
	DimFirstKey Dimension = "first-key"
)

// Definition is one entry of the achievement table.
type Definition struct {
	ID        string
	Dimension Dimension
	Threshold int
	Title     string
}

// Signal is a measurement fed to the detector.
type Signal struct {
	Type  Dimension
	Value int
}

// Table is the fixed achievement table, ordered by dimension then threshold.
var Table = []Definition{
	{ID: "first-keystroke", Dimension: DimFirstKey, Threshold: 1, Title: "First keystroke"},
	{ID: "speed-10", Dimension: DimWPM, Threshold: 10, Title: "10 WPM"},
	{ID: "speed-20", Dimension: DimWPM, Threshold: 20, Title: "20 WPM"},
	{ID: "speed-30", Dimension: DimWPM, Threshold: 30, Title: "30 WPM"},
	{ID: "speed-40", Dimension: DimWPM, Threshold: 40, Title: "40 WPM"},
	{ID: "speed-60", Dimension: DimWPM, Threshold: 60, Title: "60 WPM"},
	{ID: "accuracy-90", Dimension: DimAccuracy, Threshold: 90, Title: "90% accuracy"},
	{ID: "accuracy-95", Dimension: DimAccuracy, Threshold: 95, Title: "95% accuracy"},
	{ID: "accuracy-100", Dimension: DimAccuracy, Threshold: 100, Title: "Flawless"},
	{ID: "streak-25", Dimension: DimStreak, Threshold: 25, Title: "25 in a row"},
	{ID: "streak-50", Dimension: DimStreak, Threshold: 50, Title: "50 in a row"},
	{ID: "streak-100", Dimension: DimStreak, Threshold: 100, Title: "100 in a row"},
	{ID: "sessions-1", Dimension: DimSessions, Threshold: 1, Title: "First session"},
	{ID: "sessions-5", Dimension: DimSessions, Threshold: 5, Title: "5 sessions"},
	{ID: "sessions-10", Dimension: DimSessions, Threshold: 10, Title: "10 sessions"},
	{ID: "sessions-25", Dimension: DimSessions, Threshold: 25, Title: "25 sessions"},
}

// Lookup returns the definition for id.
func Lookup(id string) (Definition, bool) {
	for _, def := range Table {
		if def.ID == id {
			return def, true
		}
	}
	return Definition{}, false
}

// Evaluate returns every table entry that the signal qualifies for and that
// is not yet in unlocked. It does not modify unlocked.
func Evaluate(unlocked map[string]struct{}, sig Signal) []Definition {
	return evaluate(Table, unlocked, sig)
}

func evaluate(table []Definition, unlocked map[string]struct{}, sig Signal) []Definition {
	var out []Definition
	for _, def := range table {
		if def.Dimension != sig.Type || sig.Value < def.Threshold {
			continue
		}
		if _, ok := unlocked[def.ID]; ok {
			continue
		}
		out = append(out, def)
	}
	return out
}

// Book is the append-only set of unlocked achievements for one learner.
type Book struct {
	records map[string]model.AchievementRecord
}

// NewBook builds a book from persisted records.
func NewBook(records []model.AchievementRecord) *Book {
	b := &Book{records: map[string]model.AchievementRecord{}}
	b.Merge(records)
	return b
}

// Observe evaluates the signal and records every newly unlocked achievement.
func (b *Book) Observe(sig Signal, now time.Time) []model.AchievementRecord {
	defs := Evaluate(b.set(), sig)
	unlocked := make([]model.AchievementRecord, 0, len(defs))
	for _, def := range defs {
		rec := model.AchievementRecord{ID: def.ID, UnlockedAt: now}
		b.records[def.ID] = rec
		unlocked = append(unlocked, rec)
	}
	return unlocked
}

// Merge folds records from another source into the book. Known ids keep the
// earliest unlock time.
func (b *Book) Merge(records []model.AchievementRecord) {
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		prev, ok := b.records[rec.ID]
		if ok && !rec.UnlockedAt.Before(prev.UnlockedAt) {
			continue
		}
		b.records[rec.ID] = rec
	}
}

// Has reports whether id is unlocked.
func (b *Book) Has(id string) bool {
	_, ok := b.records[id]
	return ok
}

// Len returns the number of unlocked achievements.
func (b *Book) Len() int {
	return len(b.records)
}

// Records returns the unlocked achievements sorted by unlock time then id.
func (b *Book) Records() []model.AchievementRecord {
	out := make([]model.AchievementRecord, 0, len(b.records))
	for _, rec := range b.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UnlockedAt.Equal(out[j].UnlockedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UnlockedAt.Before(out[j].UnlockedAt)
	})
	return out
}

func (b *Book) set() map[string]struct{} {
	set := make(map[string]struct{}, len(b.records))
	for id := range b.records {
		set[id] = struct{}{}
	}
	return set
}

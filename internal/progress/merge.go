// Package progress tracks per-category practice progress and lesson
// completion.
package progress

import (
	"time"

	"github.com/verte-zerg/keyboarding/internal/model"
)

// Merge combines two records of the same category. Boolean facts are a
// monotonic union; lastScore follows the later record, ties keep the higher
// score. Merge is commutative and idempotent.
func Merge(a, b model.CategoryProgressRecord) model.CategoryProgressRecord {
	out := model.CategoryProgressRecord{
		Completed: a.Completed || b.Completed,
		Passed:    a.Passed || b.Passed,
	}
	switch {
	case a.UpdatedAt.After(b.UpdatedAt):
		out.UpdatedAt = a.UpdatedAt
		out.LastScore = a.LastScore
	case b.UpdatedAt.After(a.UpdatedAt):
		out.UpdatedAt = b.UpdatedAt
		out.LastScore = b.LastScore
	default:
		out.UpdatedAt = a.UpdatedAt
		out.LastScore = max(a.LastScore, b.LastScore)
	}
	if out.Passed {
		out.Completed = true
	}
	return out
}

// FromLegacy converts the legacy boolean shape. A legacy true was only ever
// written for a passed category.
func FromLegacy(passed bool) model.CategoryProgressRecord {
	if !passed {
		return model.CategoryProgressRecord{}
	}
	return model.CategoryProgressRecord{Completed: true, Passed: true, LastScore: 1}
}

// Attempt builds the record for a single attempt. An attempt always counts
// as completed.
func Attempt(wpm, accuracy int, criteria model.Criteria, now time.Time) model.CategoryProgressRecord {
	passed := criteria.Met(wpm, accuracy)
	score := 0
	if passed {
		score = 1
	}
	return model.CategoryProgressRecord{
		Completed: true,
		Passed:    passed,
		LastScore: score,
		UpdatedAt: now,
	}
}

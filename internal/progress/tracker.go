package progress

import (
	"sort"
	"sync"
	"time"

	"github.com/verte-zerg/keyboarding/internal/model"
)

// CategoryStatus is the merged progress of one category.
type CategoryStatus struct {
	ID     string
	Record model.CategoryProgressRecord
}

// Aggregate is the view consumed by category selection.
type Aggregate struct {
	CompletedCount int
	PassedCount    int
	PerCategory    []CategoryStatus
}

// Status returns the merged record of id, or the zero record.
func (a Aggregate) Status(id string) model.CategoryProgressRecord {
	for _, cs := range a.PerCategory {
		if cs.ID == id {
			return cs.Record
		}
	}
	return model.CategoryProgressRecord{}
}

// Tracker merges the legacy and structured progress shapes of one lesson
// and decides when the lesson's acknowledgment must be written.
type Tracker struct {
	mu         sync.Mutex
	required   []string
	legacy     map[string]bool
	structured map[string]model.CategoryProgressRecord
	ack        *model.LessonAcknowledgment
	ackIssued  bool
}

// NewTracker creates a tracker for the given required categories.
func NewTracker(required []string) *Tracker {
	return &Tracker{
		required:   append([]string(nil), required...),
		legacy:     map[string]bool{},
		structured: map[string]model.CategoryProgressRecord{},
	}
}

// Required returns the required category ids.
func (t *Tracker) Required() []string {
	return append([]string(nil), t.required...)
}

// ApplyLegacy folds a legacy boolean into the tracker. False never
// downgrades an earlier true.
func (t *Tracker) ApplyLegacy(categoryID string, passed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.legacy[categoryID] = t.legacy[categoryID] || passed
}

// ApplyStructured folds a structured record into the tracker.
func (t *Tracker) ApplyStructured(categoryID string, rec model.CategoryProgressRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.structured[categoryID] = Merge(t.structured[categoryID], rec)
}

// ApplyAck records an acknowledgment observed in storage.
func (t *Tracker) ApplyAck(ack model.LessonAcknowledgment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ack != nil && t.ack.Acknowledged {
		return
	}
	cp := ack
	t.ack = &cp
}

// Ack returns the known acknowledgment, if any.
func (t *Tracker) Ack() *model.LessonAcknowledgment {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ack == nil {
		return nil
	}
	cp := *t.ack
	return &cp
}

// Record returns the merged view of one category.
func (t *Tracker) Record(categoryID string) model.CategoryProgressRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record(categoryID)
}

func (t *Tracker) record(categoryID string) model.CategoryProgressRecord {
	return Merge(FromLegacy(t.legacy[categoryID]), t.structured[categoryID])
}

// RecordAttempt folds one attempt into the structured record and returns
// the record to persist. A failing attempt never clears an earlier pass.
func (t *Tracker) RecordAttempt(categoryID string, wpm, accuracy int, criteria model.Criteria, now time.Time) model.CategoryProgressRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec := Merge(t.structured[categoryID], Attempt(wpm, accuracy, criteria, now))
	t.structured[categoryID] = rec
	return rec
}

// IsLessonComplete reports whether every id in required is passed.
func (t *Tracker) IsLessonComplete(required []string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.complete(required)
}

func (t *Tracker) complete(required []string) bool {
	for _, id := range required {
		if !t.record(id).Passed {
			return false
		}
	}
	return true
}

// Acknowledge returns the acknowledgment to write the first time the lesson
// becomes complete. Later calls, or calls after an acknowledgment was
// observed in storage, return false. The caller must follow a true result
// with Confirm once the write succeeds or Release if it fails.
func (t *Tracker) Acknowledge(now time.Time) (model.LessonAcknowledgment, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ackIssued || (t.ack != nil && t.ack.Acknowledged) {
		return model.LessonAcknowledgment{}, false
	}
	if len(t.required) == 0 || !t.complete(t.required) {
		return model.LessonAcknowledgment{}, false
	}
	cats := append([]string(nil), t.required...)
	sort.Strings(cats)
	t.ackIssued = true
	return model.LessonAcknowledgment{
		Acknowledged:        true,
		Timestamp:           now,
		CompletedCategories: cats,
	}, true
}

// Confirm records that ack was written.
func (t *Tracker) Confirm(ack model.LessonAcknowledgment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ack != nil && t.ack.Acknowledged {
		return
	}
	cp := ack
	t.ack = &cp
}

// Release gives up an acknowledgment whose write failed so a later
// Acknowledge can retry it.
func (t *Tracker) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ackIssued = false
}

// Aggregate returns counts and per-category records for the required set.
func (t *Tracker) Aggregate() Aggregate {
	t.mu.Lock()
	defer t.mu.Unlock()
	agg := Aggregate{PerCategory: make([]CategoryStatus, 0, len(t.required))}
	for _, id := range t.required {
		rec := t.record(id)
		if rec.Completed {
			agg.CompletedCount++
		}
		if rec.Passed {
			agg.PassedCount++
		}
		agg.PerCategory = append(agg.PerCategory, CategoryStatus{ID: id, Record: rec})
	}
	return agg
}

package tui

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/keyboarding/internal/gate"
	"github.com/verte-zerg/keyboarding/internal/kv"
	"github.com/verte-zerg/keyboarding/internal/lesson"
	"github.com/verte-zerg/keyboarding/internal/model"
	"github.com/verte-zerg/keyboarding/internal/store"
	"github.com/verte-zerg/keyboarding/internal/texts"
	"github.com/verte-zerg/keyboarding/internal/typing"
)

var testCategories = []model.Category{
	{ID: "homeRow", Name: "Home Row", Criteria: model.Criteria{MinWPM: 15, MinAccuracy: 75}, Texts: []string{"asdf"}},
	{ID: "math", Name: "Math", Criteria: model.Criteria{MinWPM: 10, MinAccuracy: 65}, Texts: []string{"1+1"}},
}

var testAssessment = model.Assessment{
	ID:       "final",
	LessonID: "final-lesson",
	Criteria: model.Criteria{MinWPM: 18, MinAccuracy: 80},
	Texts:    []string{"final"},
}

func newTestModel(t *testing.T) (*Model, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	kvs, err := kv.Open(filepath.Join(dir, "progress.db"))
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	t.Cleanup(func() { _ = kvs.Close() })
	st, err := store.Open(filepath.Join(dir, "attempts.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	now := func() time.Time {
		clock = clock.Add(100 * time.Millisecond)
		return clock
	}
	svc, err := lesson.New(lesson.Options{
		LearnerID:  "ada",
		LessonID:   "practice",
		Categories: testCategories,
		Assessment: testAssessment,
		KV:         kvs,
		Attempts:   st,
		Now:        now,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	m := NewModel(Options{
		Service:         svc,
		Texts:           texts.NewStatic(testCategories, testAssessment),
		Picker:          texts.NewSeededPicker(1),
		MetricsInterval: time.Second,
		ClockInterval:   time.Second,
		Now:             now,
	})
	t.Cleanup(m.cancel)
	return m, st
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestEnterStartsSelectedCategory(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.screen != screenTyping {
		t.Fatalf("expected typing screen, got %d", m.screen)
	}
	if m.categoryID != "homeRow" || m.text != "asdf" {
		t.Fatalf("unexpected session %q/%q", m.categoryID, m.text)
	}
}

func TestRenderFooterDuringTyping(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(keys("as"))
	m.live = typing.Metrics{WPM: 42, Accuracy: 97}
	m.elapsed = 65 * time.Second
	out := m.renderFooter()
	for _, want := range []string{"Progress 50%", "42 WPM", "97%", "1:05", "Streak 2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("footer missing %q: %s", want, out)
		}
	}
}

func TestWrongKeyMarksMiss(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(keys("x"))
	if !m.missed {
		t.Fatalf("expected a miss after a wrong key")
	}
	if m.session.Cursor() != 0 {
		t.Fatalf("cursor must not advance on a wrong key, got %d", m.session.Cursor())
	}
	m.Update(keys("a"))
	if m.missed || m.session.Cursor() != 1 {
		t.Fatalf("expected the correct key to clear the miss")
	}
}

func TestCompletionShowsVerdictAndDropsLateTicks(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	tok := m.session.Token()
	m.Update(keys("asdf"))
	if m.screen != screenResult {
		t.Fatalf("expected result screen, got %d", m.screen)
	}
	if m.result == nil || !m.saving {
		t.Fatalf("expected a result being saved")
	}
	frozen := m.live
	_, cmd := m.Update(metricsTickMsg{token: tok})
	if cmd != nil {
		t.Fatalf("expected a late tick to schedule nothing")
	}
	if m.live != frozen {
		t.Fatalf("late tick changed metrics: %+v -> %+v", frozen, m.live)
	}
	if _, cmd := m.Update(clockTickMsg{token: tok}); cmd != nil {
		t.Fatalf("expected a late clock tick to schedule nothing")
	}
}

func TestRecordedOutcomeUpdatesTable(t *testing.T) {
	m, st := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(keys("asdf"))
	out := m.svc.Record(context.Background(), *m.result)
	m.Update(recordedMsg{outcome: out})
	if m.saving {
		t.Fatalf("expected saving to finish")
	}
	rows := m.table.Rows()
	if len(rows) != 3 || rows[0][1] == "new" {
		t.Fatalf("expected the attempted category to be marked, got %v", rows)
	}
	attempts, err := st.ListAttempts(context.Background(), store.AttemptFilter{})
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
}

func TestEscAbandonsSession(t *testing.T) {
	m, st := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	session := m.session
	tok := session.Token()
	m.Update(keys("as"))
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.screen != screenSelect || m.session != nil {
		t.Fatalf("expected to return to selection")
	}
	if !session.Abandoned() {
		t.Fatalf("expected the session to be abandoned")
	}
	if _, cmd := m.Update(metricsTickMsg{token: tok}); cmd != nil {
		t.Fatalf("expected ticks of an abandoned session to be dropped")
	}
	attempts, err := st.ListAttempts(context.Background(), store.AttemptFilter{})
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 0 {
		t.Fatalf("abandoned session must not be recorded, got %d", len(attempts))
	}
}

func TestLockedAssessmentShowsGate(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(loadedMsg{})
	if m.gate.State() != gate.Locked {
		t.Fatalf("expected locked gate, got %s", m.gate.State())
	}
	m.table.SetCursor(len(testCategories))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.screen != screenGate {
		t.Fatalf("expected gate screen, got %d", m.screen)
	}
	view := m.View()
	if !strings.Contains(view, "locked") || !strings.Contains(view, "Home Row") {
		t.Fatalf("expected locked gate listing pending categories:\n%s", view)
	}
}

func TestUnlockedAssessmentStarts(t *testing.T) {
	m, _ := newTestModel(t)
	m.gate.Load(&model.LessonAcknowledgment{Acknowledged: true}, nil)
	cmd := m.openAssessment()
	if cmd != nil {
		t.Fatalf("unexpected command")
	}
	if m.screen != screenTyping || m.kind != model.KindAssessment || m.text != "final" {
		t.Fatalf("expected the assessment to start, got screen %d kind %s", m.screen, m.kind)
	}
}

func TestCheckingGateWaitsForLoad(t *testing.T) {
	m, _ := newTestModel(t)
	if m.gate.State() != gate.Checking {
		t.Fatalf("expected checking before load")
	}
	m.openAssessment()
	if m.screen != screenGate {
		t.Fatalf("expected the gate screen while checking")
	}
	if !strings.Contains(m.View(), "Checking") {
		t.Fatalf("expected checking message")
	}
}

func change(t *testing.T, path string, v any) kv.Change {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	return kv.Change{Path: path, Value: raw}
}

func TestWatchedChangeBeforeLoadKeepsChecking(t *testing.T) {
	m, _ := newTestModel(t)
	paths := m.svc.Paths()
	m.svc.Apply(change(t, paths.Achievements(), []model.AchievementRecord{{ID: "first-key"}}))
	m.Update(changedMsg{})
	if m.gate.State() != gate.Checking {
		t.Fatalf("expected checking until the load finishes, got %s", m.gate.State())
	}

	m.svc.Apply(change(t, paths.Ack(), model.LessonAcknowledgment{Acknowledged: true}))
	m.Update(loadedMsg{})
	if m.gate.State() != gate.Unlocked {
		t.Fatalf("expected unlocked after load, got %s", m.gate.State())
	}
}

func TestWatchedChangeAfterFailedLoadKeepsChecking(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(loadedMsg{err: errors.New("read failed")})
	if m.gate.State() != gate.Checking {
		t.Fatalf("expected checking after a failed load, got %s", m.gate.State())
	}
	m.svc.Apply(change(t, m.svc.Paths().Legacy("math"), true))
	m.Update(changedMsg{})
	if m.gate.State() != gate.Checking {
		t.Fatalf("expected checking after an unrelated change, got %s", m.gate.State())
	}
	m.screen = screenGate
	if !strings.Contains(m.View(), "could not be read") {
		t.Fatalf("expected the retry notice:\n%s", m.View())
	}
}

func TestLoadUnlocksCompletedLegacyProgress(t *testing.T) {
	m, _ := newTestModel(t)
	paths := m.svc.Paths()
	for _, c := range testCategories {
		m.svc.Apply(change(t, paths.Legacy(c.ID), true))
	}
	m.Update(m.loadCmd()())
	if m.gate.State() != gate.Unlocked {
		t.Fatalf("expected stored progress to unlock the assessment, got %s", m.gate.State())
	}
}

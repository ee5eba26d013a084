package typing

import (
	"math/rand"
	"testing"
	"time"

	"github.com/verte-zerg/keyboarding/internal/model"
)

var epoch = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func typeAll(t *testing.T, s *Session, keys string, start time.Time, step time.Duration) time.Time {
	t.Helper()
	now := start
	for i, r := range keys {
		if i > 0 {
			now = now.Add(step)
		}
		s.Type(string(r), now)
	}
	return now
}

func TestWPMFormula(t *testing.T) {
	if got := WPM(50, time.Minute); got != 10 {
		t.Fatalf("expected 10 wpm, got %d", got)
	}
	if got := WPM(50, 0); got != 0 {
		t.Fatalf("expected 0 wpm for zero elapsed, got %d", got)
	}
}

func TestAccuracyFormula(t *testing.T) {
	if got := Accuracy(0, 0); got != 100 {
		t.Fatalf("expected 100 with no keystrokes, got %d", got)
	}
	if got := Accuracy(45, 50); got != 90 {
		t.Fatalf("expected 90, got %d", got)
	}
}

func TestNewRejectsEmptyText(t *testing.T) {
	if _, err := New("", model.Criteria{}); err != ErrEmptyText {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestPassScenario(t *testing.T) {
	s, err := New("asdf jkl;", model.Criteria{MinWPM: 20, MinAccuracy: 75})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	keys := []rune("asdf jkl;")
	for i, r := range keys {
		at := epoch.Add(time.Duration(i) * 375 * time.Millisecond)
		step := s.Type(string(r), at)
		if i == 0 && !step.Started {
			t.Fatalf("expected first keystroke to start the session")
		}
		if step.Outcome != Correct {
			t.Fatalf("expected correct at %d, got %s", i, step.Outcome)
		}
	}
	res, ok := s.Result()
	if !ok {
		t.Fatalf("expected completed session")
	}
	if res.WPM != 36 {
		t.Fatalf("expected 36 wpm, got %d", res.WPM)
	}
	if res.Accuracy != 100 {
		t.Fatalf("expected 100%% accuracy, got %d", res.Accuracy)
	}
	if !res.Passed {
		t.Fatalf("expected passed")
	}
	if res.DurationSeconds != 3 {
		t.Fatalf("expected 3s duration, got %v", res.DurationSeconds)
	}
	if s.Status() != Completed {
		t.Fatalf("expected completed, got %s", s.Status())
	}
}

func TestFailOnAccuracy(t *testing.T) {
	text := "abcdefghijkl"
	s, err := New(text, model.Criteria{MinWPM: 20, MinAccuracy: 75})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	now := epoch
	wrongAt := map[int]int{2: 3, 5: 3, 9: 2}
	for i, r := range text {
		for n := 0; n < wrongAt[i]; n++ {
			if step := s.Type("x", now); step.Outcome != Incorrect {
				t.Fatalf("expected incorrect, got %s", step.Outcome)
			}
		}
		s.Type(string(r), now)
		now = now.Add(100 * time.Millisecond)
	}
	res, ok := s.Result()
	if !ok {
		t.Fatalf("expected completed session")
	}
	if res.TotalKeystrokes != 20 || res.CorrectKeystrokes != 12 {
		t.Fatalf("unexpected counters: %+v", res)
	}
	if res.Accuracy != 60 {
		t.Fatalf("expected 60%% accuracy, got %d", res.Accuracy)
	}
	if res.WPM < 20 {
		t.Fatalf("expected wpm above threshold, got %d", res.WPM)
	}
	if res.Passed {
		t.Fatalf("expected failed verdict")
	}
	if res.ErrorCount != 3 {
		t.Fatalf("expected 3 error positions, got %d", res.ErrorCount)
	}
}

func TestClassifierMonotonicity(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	text := "the quick brown fox"
	alphabet := []rune("thequickbrownfx z")
	for trial := 0; trial < 50; trial++ {
		s, _ := New(text, model.Criteria{})
		now := epoch
		for i := 0; i < 200 && s.Status() != Completed; i++ {
			before := s.Cursor()
			key := string(alphabet[rnd.Intn(len(alphabet))])
			step := s.Type(key, now)
			correct, total := s.Keystrokes()
			if correct > total {
				t.Fatalf("correct %d exceeds total %d", correct, total)
			}
			if step.Outcome != Correct && s.Cursor() != before {
				t.Fatalf("cursor moved on %s outcome", step.Outcome)
			}
			if step.Outcome == Correct && s.Cursor() != before+1 {
				t.Fatalf("cursor did not advance on correct outcome")
			}
			now = now.Add(50 * time.Millisecond)
		}
	}
}

func TestEmptyKeystroke(t *testing.T) {
	s, _ := New("ab", model.Criteria{})
	if step := s.Type("", epoch); step.Outcome != Ignored || s.Status() != Ready {
		t.Fatalf("expected empty key to be ignored before start")
	}
	s.Type("a", epoch)
	step := s.Type("", epoch.Add(time.Second))
	if step.Outcome != Incorrect {
		t.Fatalf("expected incorrect, got %s", step.Outcome)
	}
	correct, total := s.Keystrokes()
	if correct != 1 || total != 2 {
		t.Fatalf("unexpected counters %d/%d", correct, total)
	}
	if len(s.ErrorPositions()) != 0 {
		t.Fatalf("expected no error positions for empty input")
	}
	if s.Cursor() != 1 {
		t.Fatalf("expected cursor to stay at 1, got %d", s.Cursor())
	}
}

func TestRepeatedErrorsCountOnePosition(t *testing.T) {
	s, _ := New("ab", model.Criteria{})
	s.Type("x", epoch)
	s.Type("y", epoch)
	s.Type("z", epoch)
	if got := s.ErrorPositions(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected error at position 0 only, got %v", got)
	}
}

func TestStreakTracking(t *testing.T) {
	s, _ := New("abcd", model.Criteria{})
	s.Type("a", epoch)
	s.Type("b", epoch)
	s.Type("x", epoch)
	s.Type("c", epoch)
	cur, best := s.Streak()
	if cur != 1 || best != 2 {
		t.Fatalf("expected streak 1 best 2, got %d/%d", cur, best)
	}
}

func TestLateTickIsDroppedAfterCompletion(t *testing.T) {
	s, _ := New("ab", model.Criteria{})
	s.Type("a", epoch)
	tok := s.Token()
	if !s.Live(tok) {
		t.Fatalf("expected live token while active")
	}
	end := typeAll(t, s, "b", epoch.Add(time.Second), 0)
	if s.Live(tok) {
		t.Fatalf("expected token to be cancelled on completion")
	}
	frozen := s.Metrics(end)
	if later := s.Metrics(end.Add(time.Hour)); later != frozen {
		t.Fatalf("metrics drifted after completion: %+v vs %+v", later, frozen)
	}
	if step := s.Type("c", end.Add(time.Hour)); step.Outcome != Ignored {
		t.Fatalf("expected keystrokes after completion to be ignored")
	}
}

func TestTokensDifferAcrossSessions(t *testing.T) {
	a, _ := New("ab", model.Criteria{})
	b, _ := New("ab", model.Criteria{})
	a.Type("a", epoch)
	b.Type("a", epoch)
	if a.Token() == b.Token() {
		t.Fatalf("expected distinct tokens")
	}
	if b.Live(a.Token()) {
		t.Fatalf("tick from another session must not be live")
	}
}

func TestAbandonedSessionProducesNoResult(t *testing.T) {
	s, _ := New("abcdefgh", model.Criteria{})
	typeAll(t, s, "abcde", epoch, 100*time.Millisecond)
	if s.Status() != Active {
		t.Fatalf("expected active, got %s", s.Status())
	}
	tok := s.Token()
	s.Abandon()
	if s.Live(tok) {
		t.Fatalf("expected timers to stop on abandon")
	}
	if _, ok := s.Result(); ok {
		t.Fatalf("expected no result for abandoned session")
	}
	if step := s.Type("f", epoch.Add(time.Second)); step.Outcome != Ignored {
		t.Fatalf("expected keystrokes after abandon to be ignored")
	}
}

func TestMetricsBeforeStart(t *testing.T) {
	s, _ := New("ab", model.Criteria{})
	if got := s.Metrics(epoch); got != Idle {
		t.Fatalf("expected idle metrics, got %+v", got)
	}
}

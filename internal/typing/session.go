package typing

import (
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"github.com/verte-zerg/keyboarding/internal/model"
)

// ErrEmptyText is returned when a session is created without source text.
var ErrEmptyText = errors.New("source text is empty")

// Status is the lifecycle state of a session.
type Status int

const (
	Ready Status = iota
	Active
	Completed
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Active:
		return "active"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Token identifies the live timers of one session. Ticks carrying a stale
// token must be dropped.
type Token uint64

var tokenSeq atomic.Uint64

// Result is the frozen outcome of a completed session.
type Result struct {
	Metrics
	DurationSeconds   float64
	TotalKeystrokes   int
	CorrectKeystrokes int
	ErrorCount        int
	BestStreak        int
	Passed            bool
	StartedAt         time.Time
	EndedAt           time.Time
}

// Step reports what a single keystroke did to the session.
type Step struct {
	Outcome   Outcome
	Started   bool
	Completed bool
	Streak    int
}

// Session is one practice or assessment attempt.
type Session struct {
	text     []rune
	criteria model.Criteria

	cursor         int
	errorPositions map[int]struct{}
	total          int
	correct        int
	streak         int
	bestStreak     int

	startedAt time.Time
	status    Status
	abandoned bool

	token      Token
	timersLive bool

	final *Result
}

// New creates a session in the ready state.
func New(text string, criteria model.Criteria) (*Session, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	return &Session{
		text:           []rune(text),
		criteria:       criteria,
		errorPositions: map[int]struct{}{},
		status:         Ready,
	}, nil
}

// Type feeds one keystroke into the session. The first non-empty keystroke
// starts the clock; reaching the end of the text completes the session.
func (s *Session) Type(key string, now time.Time) Step {
	if s.status == Completed || s.abandoned {
		return Step{Outcome: Ignored}
	}
	var step Step
	if s.status == Ready {
		if key == "" {
			return Step{Outcome: Ignored}
		}
		s.status = Active
		s.startedAt = now
		s.token = Token(tokenSeq.Add(1))
		s.timersLive = true
		step.Started = true
	}
	step.Outcome = s.classify(key)
	step.Streak = s.streak
	if s.cursor == len(s.text) {
		s.complete(now)
		step.Completed = true
	}
	return step
}

// complete cancels the timers before freezing the final metrics so that a
// late tick cannot observe or overwrite them.
func (s *Session) complete(now time.Time) {
	s.cancelTimers()
	s.status = Completed
	elapsed := now.Sub(s.startedAt)
	m := Compute(s.correct, s.total, elapsed)
	s.final = &Result{
		Metrics:           m,
		DurationSeconds:   elapsed.Seconds(),
		TotalKeystrokes:   s.total,
		CorrectKeystrokes: s.correct,
		ErrorCount:        len(s.errorPositions),
		BestStreak:        s.bestStreak,
		Passed:            s.criteria.Met(m.WPM, m.Accuracy),
		StartedAt:         s.startedAt,
		EndedAt:           now,
	}
}

// Abandon stops the timers of an unfinished session. No result is produced.
func (s *Session) Abandon() {
	s.cancelTimers()
	if s.status != Completed {
		s.abandoned = true
	}
}

func (s *Session) cancelTimers() {
	s.timersLive = false
}

// Token returns the token for ticks scheduled against this session.
func (s *Session) Token() Token {
	return s.token
}

// Live reports whether a tick carrying tok should still be processed.
func (s *Session) Live(tok Token) bool {
	return s.timersLive && tok == s.token && s.status == Active
}

// Metrics returns live metrics while active, the frozen metrics once
// completed and the idle default before the first keystroke.
func (s *Session) Metrics(now time.Time) Metrics {
	switch {
	case s.final != nil:
		return s.final.Metrics
	case s.status != Active || s.startedAt.IsZero():
		return Idle
	default:
		return Compute(s.correct, s.total, now.Sub(s.startedAt))
	}
}

// Elapsed returns the time spent typing so far.
func (s *Session) Elapsed(now time.Time) time.Duration {
	switch {
	case s.final != nil:
		return s.final.EndedAt.Sub(s.final.StartedAt)
	case s.startedAt.IsZero():
		return 0
	default:
		return now.Sub(s.startedAt)
	}
}

// Result returns the frozen result of a completed session.
func (s *Session) Result() (Result, bool) {
	if s.final == nil {
		return Result{}, false
	}
	return *s.final, true
}

// Status returns the lifecycle state.
func (s *Session) Status() Status { return s.status }

// Abandoned reports whether the session was discarded before completion.
func (s *Session) Abandoned() bool { return s.abandoned }

// Text returns the source text.
func (s *Session) Text() string { return string(s.text) }

// Runes returns the source text as runes. Callers must not modify it.
func (s *Session) Runes() []rune { return s.text }

// Cursor returns the index of the next expected character.
func (s *Session) Cursor() int { return s.cursor }

// Criteria returns the thresholds the session is judged against.
func (s *Session) Criteria() model.Criteria { return s.criteria }

// Keystrokes returns the correct and total keystroke counters.
func (s *Session) Keystrokes() (correct, total int) { return s.correct, s.total }

// Streak returns the current and best streaks.
func (s *Session) Streak() (current, best int) { return s.streak, s.bestStreak }

// StartedAt returns the time of the first keystroke, or zero.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// HasError reports whether a wrong key was ever typed at position i.
func (s *Session) HasError(i int) bool {
	_, ok := s.errorPositions[i]
	return ok
}

// ErrorPositions returns the mistyped positions in ascending order.
func (s *Session) ErrorPositions() []int {
	out := make([]int, 0, len(s.errorPositions))
	for pos := range s.errorPositions {
		out = append(out, pos)
	}
	sort.Ints(out)
	return out
}

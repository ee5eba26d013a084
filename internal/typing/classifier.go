package typing

import "unicode/utf8"

// Outcome is the classification of one keystroke.
type Outcome int

const (
	// Ignored keystrokes do not touch the session (completed session, or
	// empty input before the session started).
	Ignored Outcome = iota
	Correct
	Incorrect
)

func (o Outcome) String() string {
	switch o {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return "ignored"
	}
}

// classify applies one typed key to an active session. The cursor only
// advances on a correct key; a wrong key must be retyped.
func (s *Session) classify(key string) Outcome {
	s.total++
	r, size := utf8.DecodeRuneInString(key)
	if key == "" || size != len(key) || (r == utf8.RuneError && size == 1) {
		s.streak = 0
		return Incorrect
	}
	if r != s.text[s.cursor] {
		s.streak = 0
		s.errorPositions[s.cursor] = struct{}{}
		return Incorrect
	}
	s.correct++
	s.cursor++
	s.streak++
	if s.streak > s.bestStreak {
		s.bestStreak = s.streak
	}
	return Correct
}

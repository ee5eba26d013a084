// Package gate decides whether a lesson behind a prerequisite is unlocked.
package gate

import "github.com/verte-zerg/keyboarding/internal/model"

// State is what the entry point of a gated lesson should show.
type State int

const (
	// Checking means the prerequisite record has not been loaded yet, or the
	// load failed. It is never shown as locked.
	Checking State = iota
	Locked
	Unlocked
)

func (s State) String() string {
	switch s {
	case Locked:
		return "locked"
	case Unlocked:
		return "unlocked"
	default:
		return "checking"
	}
}

// IsUnlocked reports whether the prerequisite acknowledgment unlocks the
// dependent lesson.
func IsUnlocked(ack *model.LessonAcknowledgment) bool {
	return ack != nil && ack.Acknowledged
}

// Gate tracks the load state of one prerequisite record.
type Gate struct {
	loaded bool
	ack    *model.LessonAcknowledgment
}

// Load records the result of reading the prerequisite. A read error keeps
// the gate in Checking.
func (g *Gate) Load(ack *model.LessonAcknowledgment, err error) {
	if err != nil {
		return
	}
	g.loaded = true
	if ack == nil {
		if IsUnlocked(g.ack) {
			return
		}
		g.ack = nil
		return
	}
	if IsUnlocked(g.ack) && !ack.Acknowledged {
		return
	}
	cp := *ack
	g.ack = &cp
}

// Refresh updates the acknowledgment of a loaded gate. Until the first
// successful Load it does nothing, so the gate stays in Checking.
func (g *Gate) Refresh(ack *model.LessonAcknowledgment) {
	if !g.loaded {
		return
	}
	g.Load(ack, nil)
}

// State returns the three-way gate state.
func (g *Gate) State() State {
	switch {
	case !g.loaded:
		return Checking
	case IsUnlocked(g.ack):
		return Unlocked
	default:
		return Locked
	}
}

// Ack returns the loaded acknowledgment.
func (g *Gate) Ack() *model.LessonAcknowledgment {
	return g.ack
}

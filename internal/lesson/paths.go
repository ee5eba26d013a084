package lesson

import (
	"strings"

	"github.com/verte-zerg/keyboarding/internal/kv"
)

const (
	segLearners     = "learners"
	segLessons      = "lessons"
	segProgress     = "progress"
	segLegacy       = "legacy"
	segAck          = "ack"
	segAchievements = "achievements"
	segStats        = "stats"
)

// Paths builds the KV locations of one learner and lesson.
type Paths struct {
	Learner string
	Lesson  string
}

// LearnerRoot is the prefix of everything stored for the learner.
func (p Paths) LearnerRoot() string {
	return kv.Join(segLearners, p.Learner)
}

// LessonRoot is the prefix of everything stored for the lesson.
func (p Paths) LessonRoot() string {
	return kv.Join(segLearners, p.Learner, segLessons, p.Lesson)
}

func (p Paths) Progress(categoryID string) string {
	return kv.Join(p.LessonRoot(), segProgress, categoryID)
}

func (p Paths) Legacy(categoryID string) string {
	return kv.Join(p.LessonRoot(), segLegacy, categoryID)
}

func (p Paths) Ack() string {
	return kv.Join(p.LessonRoot(), segAck)
}

func (p Paths) Achievements() string {
	return kv.Join(p.LearnerRoot(), segAchievements)
}

func (p Paths) Stats() string {
	return kv.Join(p.LearnerRoot(), segStats)
}

type pathKind int

const (
	pathOther pathKind = iota
	pathProgress
	pathLegacy
	pathAck
	pathAchievements
	pathStats
)

// classify maps a stored path back to what it holds. The category id is
// returned for progress and legacy paths.
func (p Paths) classify(path string) (pathKind, string) {
	switch path {
	case p.Ack():
		return pathAck, ""
	case p.Achievements():
		return pathAchievements, ""
	case p.Stats():
		return pathStats, ""
	}
	rest, ok := strings.CutPrefix(path, p.LessonRoot()+"/")
	if !ok {
		return pathOther, ""
	}
	kind, cat, ok := strings.Cut(rest, "/")
	if !ok || cat == "" || strings.Contains(cat, "/") {
		return pathOther, ""
	}
	switch kind {
	case segProgress:
		return pathProgress, cat
	case segLegacy:
		return pathLegacy, cat
	}
	return pathOther, ""
}

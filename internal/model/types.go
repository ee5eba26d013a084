// Package model defines shared data structures.
package model

import "time"

// Kind distinguishes practice attempts from the final assessment.
type Kind string

const (
	KindPractice   Kind = "practice"
	KindAssessment Kind = "assessment"
)

// Criteria is the pair of thresholds a session's final metrics must meet.
type Criteria struct {
	MinWPM      int `json:"minWpm"`
	MinAccuracy int `json:"minAccuracy"`
}

// Met reports whether the given metrics meet or exceed the criteria.
func (c Criteria) Met(wpm, accuracy int) bool {
	return wpm >= c.MinWPM && accuracy >= c.MinAccuracy
}

// AtLeastAsStrict reports whether c is at least as strict as other on both axes.
func (c Criteria) AtLeastAsStrict(other Criteria) bool {
	return c.MinWPM >= other.MinWPM && c.MinAccuracy >= other.MinAccuracy
}

// Category is a practice drill set with its own text pool and thresholds.
type Category struct {
	ID       string
	Name     string
	Criteria Criteria
	Texts    []string
}

// Assessment describes the final assessment gated behind practice.
type Assessment struct {
	ID       string
	LessonID string
	Criteria Criteria
	Texts    []string
}

// SessionResult captures a completed typing session.
type SessionResult struct {
	ID                string    `json:"id"`
	LearnerID         string    `json:"learnerId"`
	LessonID          string    `json:"lessonId"`
	CategoryID        string    `json:"categoryId"`
	Kind              Kind      `json:"kind"`
	WPM               int       `json:"wpm"`
	Accuracy          int       `json:"accuracy"`
	DurationSeconds   float64   `json:"durationSeconds"`
	TotalKeystrokes   int       `json:"totalKeystrokes"`
	CorrectKeystrokes int       `json:"correctKeystrokes"`
	ErrorCount        int       `json:"errorCount"`
	BestStreak        int       `json:"bestStreak"`
	Passed            bool      `json:"passed"`
	StartedAt         time.Time `json:"startedAt"`
	EndedAt           time.Time `json:"endedAt"`
}

// Score returns the binary score reported to the course backend.
func (r SessionResult) Score() int {
	if r.Passed {
		return 1
	}
	return 0
}

// CategoryProgressRecord is the structured per-category progress record.
type CategoryProgressRecord struct {
	Completed bool      `json:"completed"`
	Passed    bool      `json:"passed"`
	LastScore int       `json:"lastScore"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AchievementRecord marks one unlocked achievement.
type AchievementRecord struct {
	ID         string    `json:"id"`
	UnlockedAt time.Time `json:"unlockedAt"`
}

// StatsAggregate summarizes every completed session of a learner.
type StatsAggregate struct {
	SessionsCompleted int     `json:"sessionsCompleted"`
	AvgWPM            float64 `json:"avgWpm"`
	AvgAccuracy       float64 `json:"avgAccuracy"`
	BestWPM           float64 `json:"bestWpm"`
	BestAccuracy      float64 `json:"bestAccuracy"`
	TotalTime         float64 `json:"totalTime"`
	TotalWords        float64 `json:"totalWords"`
}

// Record folds one completed session into the aggregate.
func (a *StatsAggregate) Record(r SessionResult) {
	n := float64(a.SessionsCompleted)
	a.AvgWPM = (a.AvgWPM*n + float64(r.WPM)) / (n + 1)
	a.AvgAccuracy = (a.AvgAccuracy*n + float64(r.Accuracy)) / (n + 1)
	if float64(r.WPM) > a.BestWPM {
		a.BestWPM = float64(r.WPM)
	}
	if float64(r.Accuracy) > a.BestAccuracy {
		a.BestAccuracy = float64(r.Accuracy)
	}
	a.TotalTime += r.DurationSeconds / 60
	a.TotalWords += float64(r.CorrectKeystrokes) / 5
	a.SessionsCompleted++
}

// LessonAcknowledgment is the persisted fact that a lesson's completion
// condition has been met.
type LessonAcknowledgment struct {
	Acknowledged        bool      `json:"acknowledged"`
	Timestamp           time.Time `json:"timestamp"`
	CompletedCategories []string  `json:"completedCategories"`
}

// Submission is sent to the remote score endpoint.
type Submission struct {
	AssessmentID string         `json:"assessmentId"`
	LearnerID    string         `json:"learnerId"`
	Score        int            `json:"score"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// SubmissionReply is the remote endpoint's answer.
type SubmissionReply struct {
	Accepted        bool `json:"accepted"`
	CourseCompleted bool `json:"courseCompleted,omitempty"`
}

// ScoreRecord is a stored submission on the server side.
type ScoreRecord struct {
	AssessmentID string    `json:"assessmentId"`
	LearnerID    string    `json:"learnerId"`
	Score        int       `json:"score"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

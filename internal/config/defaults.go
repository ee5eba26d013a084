package config

import (
	"time"

	"github.com/verte-zerg/keyboarding/internal/model"
)

const (
	DefaultLearnerID        = "local"
	DefaultPracticeLessonID = "keyboarding-practice"
	DefaultAssessmentID     = "keyboarding-final"
	DefaultAssessmentLesson = "keyboarding-final-assessment"
	DefaultMetricsInterval  = 500 * time.Millisecond
	DefaultClockInterval    = time.Second
	DefaultRemoteTimeout    = 5 * time.Second
	DefaultLogLevel         = "info"
	DefaultLogMaxSize       = 10
	DefaultLogMaxBackups    = 3
	DefaultLogMaxAge        = 28
	DefaultServerAddr       = "127.0.0.1:8470"
)

// DefaultCategories returns the built-in practice categories.
func DefaultCategories() []model.Category {
	return []model.Category{
		{
			ID:       "homeRow",
			Name:     "Home Row",
			Criteria: model.Criteria{MinWPM: 15, MinAccuracy: 75},
			Texts: []string{
				"asdf jkl; asdf jkl;",
				"sad lads ask dad",
				"a lass falls; dad asks all",
				"flask glass salad",
			},
		},
		{
			ID:       "beginner",
			Name:     "Beginner Words",
			Criteria: model.Criteria{MinWPM: 18, MinAccuracy: 75},
			Texts: []string{
				"the cat sat on the mat",
				"we can run to the park",
				"she has a red hat and a blue bag",
				"my dog likes to dig in the yard",
			},
		},
		{
			ID:       "numbers",
			Name:     "Numbers",
			Criteria: model.Criteria{MinWPM: 10, MinAccuracy: 65},
			Texts: []string{
				"1 2 3 4 5 6 7 8 9 0",
				"12 34 56 78 90",
				"2024 1999 365 100",
				"call 555 0199 at 10",
			},
		},
		{
			ID:       "math",
			Name:     "Math Symbols",
			Criteria: model.Criteria{MinWPM: 10, MinAccuracy: 65},
			Texts: []string{
				"2 + 2 = 4",
				"10 - 3 = 7",
				"6 * 7 = 42",
				"(8 / 2) + 1 = 5",
			},
		},
		{
			ID:       "sentences",
			Name:     "Sentences",
			Criteria: model.Criteria{MinWPM: 15, MinAccuracy: 70},
			Texts: []string{
				"The quick brown fox jumps over the lazy dog.",
				"Practice makes progress, not perfection.",
				"Typing well takes patience and steady rhythm.",
				"Keep your eyes on the screen and your hands on the keys.",
			},
		},
	}
}

// DefaultAssessment returns the built-in final assessment.
func DefaultAssessment() model.Assessment {
	return model.Assessment{
		ID:       DefaultAssessmentID,
		LessonID: DefaultAssessmentLesson,
		Criteria: model.Criteria{MinWPM: 18, MinAccuracy: 80},
		Texts: []string{
			"Good typists keep a steady pace and fix mistakes as they go.",
			"The final test checks both speed and accuracy, so stay calm and focused.",
			"Learning to type without looking at the keys saves time every day.",
		},
	}
}

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/verte-zerg/keyboarding/internal/model"
	"github.com/verte-zerg/keyboarding/internal/texts"
)

// Settings is the resolved configuration used by the application.
type Settings struct {
	LearnerID        string
	PracticeLessonID string
	MetricsInterval  time.Duration
	ClockInterval    time.Duration
	Categories       []model.Category
	Assessment       model.Assessment
	Remote           Remote
	Log              Log
	Server           Server
}

// Remote holds score submission settings. An empty URL disables submission.
type Remote struct {
	URL     string
	Timeout time.Duration
}

// Log holds log file settings.
type Log struct {
	Level      string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// Server holds score server settings.
type Server struct {
	Addr                string
	RequiredAssessments []string
}

// CategoryIDs returns the ids of all practice categories in order.
func (s Settings) CategoryIDs() []string {
	ids := make([]string, 0, len(s.Categories))
	for _, c := range s.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}

// Category looks up a practice category by id.
func (s Settings) Category(id string) (model.Category, bool) {
	for _, c := range s.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return model.Category{}, false
}

// Resolve applies defaults to a decoded file config. Relative text file
// paths are resolved against baseDir.
func Resolve(fc FileConfig, baseDir string) (Settings, error) {
	s := Settings{
		LearnerID:        stringOr(fc.Learner.ID, DefaultLearnerID),
		PracticeLessonID: stringOr(fc.Practice.LessonID, DefaultPracticeLessonID),
		MetricsInterval:  durationOr(fc.Practice.MetricsInterval, DefaultMetricsInterval),
		ClockInterval:    durationOr(fc.Practice.ClockInterval, DefaultClockInterval),
		Remote: Remote{
			URL:     stringOr(fc.Remote.URL, ""),
			Timeout: durationOr(fc.Remote.Timeout, DefaultRemoteTimeout),
		},
		Log: Log{
			Level:      stringOr(fc.Log.Level, DefaultLogLevel),
			File:       stringOr(fc.Log.File, DefaultLogPath()),
			MaxSize:    intOr(fc.Log.MaxSize, DefaultLogMaxSize),
			MaxBackups: intOr(fc.Log.MaxBackups, DefaultLogMaxBackups),
			MaxAge:     intOr(fc.Log.MaxAge, DefaultLogMaxAge),
			Compress:   boolOr(fc.Log.Compress, false),
		},
		Server: Server{
			Addr:                stringOr(fc.Server.Addr, DefaultServerAddr),
			RequiredAssessments: fc.Server.RequiredAssessments,
		},
	}

	cats, err := resolveCategories(fc.Categories, baseDir)
	if err != nil {
		return Settings{}, err
	}
	s.Categories = cats

	assessment, err := resolveAssessment(fc.Assessment, baseDir)
	if err != nil {
		return Settings{}, err
	}
	s.Assessment = assessment
	if len(s.Server.RequiredAssessments) == 0 {
		s.Server.RequiredAssessments = []string{assessment.ID}
	}

	if err := Validate(s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func resolveCategories(cfgs []CategoryConfig, baseDir string) ([]model.Category, error) {
	defaults := DefaultCategories()
	if len(cfgs) == 0 {
		return defaults, nil
	}
	builtin := make(map[string]model.Category, len(defaults))
	for _, c := range defaults {
		builtin[c.ID] = c
	}
	out := make([]model.Category, 0, len(cfgs))
	for _, cc := range cfgs {
		cat := builtin[cc.ID]
		cat.ID = cc.ID
		if cc.Name != "" {
			cat.Name = cc.Name
		}
		if cat.Name == "" {
			cat.Name = cc.ID
		}
		if cc.MinWPM != nil {
			cat.Criteria.MinWPM = *cc.MinWPM
		}
		if cc.MinAccuracy != nil {
			cat.Criteria.MinAccuracy = *cc.MinAccuracy
		}
		pool, err := resolveTexts(cc.Texts, cc.File, baseDir)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", cc.ID, err)
		}
		if len(pool) > 0 {
			cat.Texts = pool
		}
		out = append(out, cat)
	}
	return out, nil
}

func resolveAssessment(ac AssessmentConfig, baseDir string) (model.Assessment, error) {
	a := DefaultAssessment()
	a.ID = stringOr(ac.ID, a.ID)
	a.LessonID = stringOr(ac.LessonID, a.LessonID)
	a.Criteria.MinWPM = intOr(ac.MinWPM, a.Criteria.MinWPM)
	a.Criteria.MinAccuracy = intOr(ac.MinAccuracy, a.Criteria.MinAccuracy)
	pool, err := resolveTexts(ac.Texts, ac.File, baseDir)
	if err != nil {
		return model.Assessment{}, fmt.Errorf("assessment: %w", err)
	}
	if len(pool) > 0 {
		a.Texts = pool
	}
	return a, nil
}

func resolveTexts(inline []string, file, baseDir string) ([]string, error) {
	pool := append([]string(nil), inline...)
	if file == "" {
		return pool, nil
	}
	if !filepath.IsAbs(file) && baseDir != "" {
		file = filepath.Join(baseDir, file)
	}
	lines, err := texts.LoadFile(file)
	if err != nil {
		return nil, err
	}
	return append(pool, lines...), nil
}

var (
	errNoCategories = errors.New("at least one practice category is required")
	errWeakFinal    = errors.New("final assessment must be at least as strict as every practice category")
)

// Validate checks resolved settings.
func Validate(s Settings) error {
	if s.LearnerID == "" {
		return fmt.Errorf("learner id must not be empty")
	}
	if s.PracticeLessonID == "" {
		return fmt.Errorf("practice lesson id must not be empty")
	}
	if s.MetricsInterval <= 0 || s.ClockInterval <= 0 {
		return fmt.Errorf("metrics and clock intervals must be > 0")
	}
	if len(s.Categories) == 0 {
		return errNoCategories
	}
	seen := map[string]struct{}{}
	for _, c := range s.Categories {
		if c.ID == "" {
			return fmt.Errorf("category id must not be empty")
		}
		if _, ok := seen[c.ID]; ok {
			return fmt.Errorf("duplicate category id %q", c.ID)
		}
		seen[c.ID] = struct{}{}
		if err := validateCriteria(c.ID, c.Criteria); err != nil {
			return err
		}
		if len(c.Texts) == 0 {
			return fmt.Errorf("category %s has no texts", c.ID)
		}
		if err := validateTexts(c.ID, c.Texts); err != nil {
			return err
		}
		if !s.Assessment.Criteria.AtLeastAsStrict(c.Criteria) {
			return fmt.Errorf("%w (category %s requires %d WPM / %d%%)", errWeakFinal, c.ID, c.Criteria.MinWPM, c.Criteria.MinAccuracy)
		}
	}
	if s.Assessment.ID == "" {
		return fmt.Errorf("assessment id must not be empty")
	}
	if _, ok := seen[s.Assessment.ID]; ok {
		return fmt.Errorf("assessment id %q collides with a category id", s.Assessment.ID)
	}
	if err := validateCriteria(s.Assessment.ID, s.Assessment.Criteria); err != nil {
		return err
	}
	if len(s.Assessment.Texts) == 0 {
		return fmt.Errorf("assessment has no texts")
	}
	if err := validateTexts(s.Assessment.ID, s.Assessment.Texts); err != nil {
		return err
	}
	if s.Remote.Timeout <= 0 {
		return fmt.Errorf("remote timeout must be > 0")
	}
	return nil
}

// validateTexts rejects texts with control characters such as tabs or
// newlines, which cannot be typed in a session.
func validateTexts(id string, pool []string) error {
	for i, text := range pool {
		if strings.IndexFunc(text, unicode.IsControl) >= 0 {
			return fmt.Errorf("%s: text %d contains a control character", id, i+1)
		}
	}
	return nil
}

func validateCriteria(id string, c model.Criteria) error {
	if c.MinWPM < 0 {
		return fmt.Errorf("%s: min-wpm must be >= 0", id)
	}
	if c.MinAccuracy < 0 || c.MinAccuracy > 100 {
		return fmt.Errorf("%s: min-accuracy must be between 0 and 100", id)
	}
	return nil
}

func stringOr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func durationOr(v *Duration, def time.Duration) time.Duration {
	if v == nil {
		return def
	}
	return v.Duration
}

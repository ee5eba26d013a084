// Package lesson ties a learner's practice sessions to persisted progress,
// achievements, statistics and the final-assessment submission.
package lesson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/keyboarding/internal/achievement"
	"github.com/verte-zerg/keyboarding/internal/kv"
	"github.com/verte-zerg/keyboarding/internal/model"
	"github.com/verte-zerg/keyboarding/internal/progress"
	"github.com/verte-zerg/keyboarding/internal/store"
)

// KV is the path-keyed store holding progress, achievements and stats.
type KV interface {
	Get(ctx context.Context, path string, v any) error
	List(ctx context.Context, prefix string) ([]kv.Change, error)
	Set(ctx context.Context, path string, v any) error
	Subscribe(prefix string) (<-chan kv.Change, func(), error)
}

// AttemptLog is the append-only log of completed sessions.
type AttemptLog interface {
	AppendAttempt(ctx context.Context, r model.SessionResult) error
	ListAttempts(ctx context.Context, f store.AttemptFilter) ([]model.SessionResult, error)
}

// Submitter sends final-assessment scores to the course backend.
type Submitter interface {
	Submit(ctx context.Context, sub model.Submission) (model.SubmissionReply, error)
}

// Options configures a Service.
type Options struct {
	LearnerID  string
	LessonID   string
	Categories []model.Category
	Assessment model.Assessment
	KV         KV
	Attempts   AttemptLog
	// Submitter may be nil when no remote endpoint is configured.
	Submitter Submitter
	Logger    *zap.Logger
	Now       func() time.Time
}

// Service owns one learner's progress for one practice lesson.
type Service struct {
	paths      Paths
	categories []model.Category
	assessment model.Assessment
	kv         KV
	attempts   AttemptLog
	submitter  Submitter
	logger     *zap.Logger
	now        func() time.Time

	tracker *progress.Tracker
	// loaded is set once Load has applied the stored state. Acknowledgments
	// are only derived from watched changes after that.
	loaded atomic.Bool

	mu    sync.Mutex
	book  *achievement.Book
	stats model.StatsAggregate
}

// New creates a service. Every configured category is required for the
// lesson to be complete.
func New(opts Options) (*Service, error) {
	if opts.KV == nil {
		return nil, errors.New("lesson: kv store is required")
	}
	if opts.Attempts == nil {
		return nil, errors.New("lesson: attempt log is required")
	}
	if opts.LearnerID == "" || opts.LessonID == "" {
		return nil, errors.New("lesson: learner and lesson ids are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	required := make([]string, 0, len(opts.Categories))
	for _, c := range opts.Categories {
		required = append(required, c.ID)
	}
	paths := Paths{Learner: opts.LearnerID, Lesson: opts.LessonID}
	return &Service{
		paths:      paths,
		categories: append([]model.Category(nil), opts.Categories...),
		assessment: opts.Assessment,
		kv:         opts.KV,
		attempts:   opts.Attempts,
		submitter:  opts.Submitter,
		logger:     logger.With(zap.String("learner", paths.Learner), zap.String("lesson", paths.Lesson)),
		now:        now,
		tracker:    progress.NewTracker(required),
		book:       achievement.NewBook(nil),
	}, nil
}

// Paths returns the KV locations used by the service.
func (s *Service) Paths() Paths { return s.paths }

// Categories returns the practice categories in configured order.
func (s *Service) Categories() []model.Category {
	return append([]model.Category(nil), s.categories...)
}

// Category looks up a practice category.
func (s *Service) Category(id string) (model.Category, bool) {
	for _, c := range s.categories {
		if c.ID == id {
			return c, true
		}
	}
	return model.Category{}, false
}

// Assessment returns the final assessment.
func (s *Service) Assessment() model.Assessment { return s.assessment }

// Load reads the persisted lesson state once. It is safe to call before or
// after Watch; values merge either way. If the stored progress already
// completes the lesson without an acknowledgment, Load writes it.
func (s *Service) Load(ctx context.Context) error {
	var (
		lessonState []kv.Change
		records     []model.AchievementRecord
		stats       model.StatsAggregate
		haveStats   bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		changes, err := s.kv.List(gctx, s.paths.LessonRoot())
		if err != nil {
			return fmt.Errorf("load lesson progress: %w", err)
		}
		lessonState = changes
		return nil
	})
	g.Go(func() error {
		err := s.kv.Get(gctx, s.paths.Achievements(), &records)
		if err != nil && !errors.Is(err, kv.ErrNotFound) {
			return fmt.Errorf("load achievements: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := s.kv.Get(gctx, s.paths.Stats(), &stats)
		if errors.Is(err, kv.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load stats: %w", err)
		}
		haveStats = true
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("load lesson state failed", zap.Error(err))
		return err
	}

	for _, c := range lessonState {
		s.Apply(c)
	}
	s.mu.Lock()
	s.book.Merge(records)
	if haveStats {
		s.mergeStats(stats)
	}
	s.mu.Unlock()
	s.loaded.Store(true)

	if _, err := s.acknowledge(ctx, s.now()); err != nil {
		s.logger.Warn("acknowledge stored progress failed", zap.Error(err))
		return err
	}
	return nil
}

// Aggregate returns the merged per-category progress.
func (s *Service) Aggregate() progress.Aggregate {
	return s.tracker.Aggregate()
}

// Ack returns the lesson acknowledgment if one is known.
func (s *Service) Ack() *model.LessonAcknowledgment {
	return s.tracker.Ack()
}

// LessonComplete reports whether every practice category is passed.
func (s *Service) LessonComplete() bool {
	return s.tracker.IsLessonComplete(s.tracker.Required())
}

// Achievements returns the unlocked achievements.
func (s *Service) Achievements() []model.AchievementRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Records()
}

// Stats returns the stats aggregate.
func (s *Service) Stats() model.StatsAggregate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// RecentAttempts returns the last n attempts of the learner across lessons.
func (s *Service) RecentAttempts(ctx context.Context, n int) ([]model.SessionResult, error) {
	return s.attempts.ListAttempts(ctx, store.AttemptFilter{LearnerID: s.paths.Learner, Last: n})
}

// Apply folds one persisted value into the in-memory state. It reports
// whether the path belongs to this learner and lesson.
func (s *Service) Apply(c kv.Change) bool {
	kind, cat := s.paths.classify(c.Path)
	var err error
	switch kind {
	case pathProgress:
		var rec model.CategoryProgressRecord
		if err = c.Decode(&rec); err == nil {
			s.tracker.ApplyStructured(cat, rec)
		}
	case pathLegacy:
		var passed bool
		if err = c.Decode(&passed); err == nil {
			s.tracker.ApplyLegacy(cat, passed)
		}
	case pathAck:
		var ack model.LessonAcknowledgment
		if err = c.Decode(&ack); err == nil {
			s.tracker.ApplyAck(ack)
		}
	case pathAchievements:
		var records []model.AchievementRecord
		if err = c.Decode(&records); err == nil {
			s.mu.Lock()
			s.book.Merge(records)
			s.mu.Unlock()
		}
	case pathStats:
		var stats model.StatsAggregate
		if err = c.Decode(&stats); err == nil {
			s.mu.Lock()
			s.mergeStats(stats)
			s.mu.Unlock()
		}
	default:
		return false
	}
	if err != nil {
		s.logger.Warn("ignoring malformed value", zap.String("path", c.Path), zap.Error(err))
		return false
	}
	return true
}

// mergeStats keeps whichever aggregate has seen more sessions. Caller holds mu.
func (s *Service) mergeStats(other model.StatsAggregate) {
	if other.SessionsCompleted > s.stats.SessionsCompleted {
		s.stats = other
	}
}

func (s *Service) persistAchievements(ctx context.Context) error {
	s.mu.Lock()
	records := s.book.Records()
	s.mu.Unlock()
	if err := s.kv.Set(ctx, s.paths.Achievements(), records); err != nil {
		return fmt.Errorf("save achievements: %w", err)
	}
	return nil
}

// encodeMetadata flattens a result into submission metadata.
func encodeMetadata(r model.SessionResult) map[string]any {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	delete(out, "learnerId")
	delete(out, "passed")
	return out
}

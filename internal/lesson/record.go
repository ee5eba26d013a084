package lesson

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/keyboarding/internal/achievement"
	"github.com/verte-zerg/keyboarding/internal/model"
	"github.com/verte-zerg/keyboarding/internal/submit"
	"github.com/verte-zerg/keyboarding/internal/typing"
)

// PersistTimeout bounds one background persistence run.
const PersistTimeout = 10 * time.Second

// RecordOutcome reports the side effects of one recorded result.
type RecordOutcome struct {
	Result   model.SessionResult
	Unlocked []model.AchievementRecord
	// Ack is set when this result completed the lesson and the
	// acknowledgment was written.
	Ack *model.LessonAcknowledgment
	// Reply is set when the score was accepted by the remote endpoint.
	Reply *model.SubmissionReply
	// SubmitErr is a failed score submission. The verdict stands regardless.
	SubmitErr error
	// Err joins every persistence failure.
	Err error
}

// NewResult converts a finished session into a result ready to record.
func (s *Service) NewResult(categoryID string, kind model.Kind, res typing.Result) model.SessionResult {
	lessonID := s.paths.Lesson
	if kind == model.KindAssessment {
		lessonID = s.assessment.LessonID
		categoryID = s.assessment.ID
	}
	return model.SessionResult{
		ID:                uuid.NewString(),
		LearnerID:         s.paths.Learner,
		LessonID:          lessonID,
		CategoryID:        categoryID,
		Kind:              kind,
		WPM:               res.WPM,
		Accuracy:          res.Accuracy,
		DurationSeconds:   res.DurationSeconds,
		TotalKeystrokes:   res.TotalKeystrokes,
		CorrectKeystrokes: res.CorrectKeystrokes,
		ErrorCount:        res.ErrorCount,
		BestStreak:        res.BestStreak,
		Passed:            res.Passed,
		StartedAt:         res.StartedAt,
		EndedAt:           res.EndedAt,
	}
}

// FirstKey records the first keystroke of a session.
func (s *Service) FirstKey(ctx context.Context) ([]model.AchievementRecord, error) {
	return s.observe(ctx, achievement.Signal{Type: achievement.DimFirstKey, Value: 1})
}

// Speed records a live WPM reading.
func (s *Service) Speed(ctx context.Context, wpm int) ([]model.AchievementRecord, error) {
	return s.observe(ctx, achievement.Signal{Type: achievement.DimWPM, Value: wpm})
}

// Streak records the current run of correct keys.
func (s *Service) Streak(ctx context.Context, streak int) ([]model.AchievementRecord, error) {
	return s.observe(ctx, achievement.Signal{Type: achievement.DimStreak, Value: streak})
}

// Pending reports whether sig would unlock anything. Callers use it to
// avoid scheduling persistence for every keystroke.
func (s *Service) Pending(sig achievement.Signal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, def := range achievement.Table {
		if def.Dimension == sig.Type && sig.Value >= def.Threshold && !s.book.Has(def.ID) {
			return true
		}
	}
	return false
}

func (s *Service) observe(ctx context.Context, sigs ...achievement.Signal) ([]model.AchievementRecord, error) {
	now := s.now()
	var unlocked []model.AchievementRecord
	s.mu.Lock()
	for _, sig := range sigs {
		unlocked = append(unlocked, s.book.Observe(sig, now)...)
	}
	s.mu.Unlock()
	if len(unlocked) == 0 {
		return nil, nil
	}
	for _, rec := range unlocked {
		s.logger.Info("achievement unlocked", zap.String("achievement", rec.ID))
	}
	if err := s.persistAchievements(ctx); err != nil {
		s.logger.Error("persist achievements failed", zap.Error(err))
		return unlocked, err
	}
	return unlocked, nil
}

// Record persists a completed result: the attempt log, the category record
// and legacy flag, achievements and stats, the lesson acknowledgment the
// first time the lesson completes, and the score of a final assessment.
// Failures are collected in the outcome and never change the verdict.
func (s *Service) Record(ctx context.Context, r model.SessionResult) RecordOutcome {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.LearnerID == "" {
		r.LearnerID = s.paths.Learner
	}
	out := RecordOutcome{Result: r}
	log := s.logger.With(zap.String("category", r.CategoryID), zap.String("attempt", r.ID))
	var errs []error

	if err := s.attempts.AppendAttempt(ctx, r); err != nil {
		errs = append(errs, err)
	}

	if r.Kind != model.KindAssessment {
		errs = append(errs, s.recordPractice(ctx, r, &out)...)
	}

	s.mu.Lock()
	s.stats.Record(r)
	stats := s.stats
	s.mu.Unlock()
	unlocked, err := s.observe(ctx,
		achievement.Signal{Type: achievement.DimSessions, Value: stats.SessionsCompleted},
		achievement.Signal{Type: achievement.DimAccuracy, Value: r.Accuracy},
		achievement.Signal{Type: achievement.DimWPM, Value: r.WPM},
		achievement.Signal{Type: achievement.DimStreak, Value: r.BestStreak},
	)
	out.Unlocked = unlocked
	if err != nil {
		errs = append(errs, err)
	}
	if err := s.kv.Set(ctx, s.paths.Stats(), stats); err != nil {
		errs = append(errs, fmt.Errorf("save stats: %w", err))
	}

	if r.Kind == model.KindAssessment {
		s.submitScore(ctx, r, &out)
	}

	out.Err = errors.Join(errs...)
	if out.Err != nil {
		log.Error("persist result failed", zap.Error(out.Err))
	} else {
		log.Info("result recorded",
			zap.Int("wpm", r.WPM),
			zap.Int("accuracy", r.Accuracy),
			zap.Bool("passed", r.Passed))
	}
	return out
}

func (s *Service) recordPractice(ctx context.Context, r model.SessionResult, out *RecordOutcome) []error {
	cat, ok := s.Category(r.CategoryID)
	if !ok {
		return []error{fmt.Errorf("unknown category %q", r.CategoryID)}
	}
	var errs []error
	now := s.now()
	rec := s.tracker.RecordAttempt(cat.ID, r.WPM, r.Accuracy, cat.Criteria, now)
	if err := s.kv.Set(ctx, s.paths.Progress(cat.ID), rec); err != nil {
		errs = append(errs, fmt.Errorf("save progress: %w", err))
	}
	if cat.Criteria.Met(r.WPM, r.Accuracy) {
		if err := s.kv.Set(ctx, s.paths.Legacy(cat.ID), true); err != nil {
			errs = append(errs, fmt.Errorf("save legacy flag: %w", err))
		}
	}
	ack, err := s.acknowledge(ctx, now)
	if err != nil {
		errs = append(errs, err)
	}
	out.Ack = ack
	return errs
}

// acknowledge writes the lesson acknowledgment if the merged progress has
// just become complete. It returns the written acknowledgment, or nil when
// nothing was due. A failed write is released so a later call retries it.
func (s *Service) acknowledge(ctx context.Context, now time.Time) (*model.LessonAcknowledgment, error) {
	ack, ok := s.tracker.Acknowledge(now)
	if !ok {
		return nil, nil
	}
	if err := s.kv.Set(ctx, s.paths.Ack(), ack); err != nil {
		s.tracker.Release()
		return nil, fmt.Errorf("save acknowledgment: %w", err)
	}
	s.tracker.Confirm(ack)
	s.logger.Info("lesson complete", zap.Strings("categories", ack.CompletedCategories))
	return &ack, nil
}

func (s *Service) submitScore(ctx context.Context, r model.SessionResult, out *RecordOutcome) {
	if s.submitter == nil {
		return
	}
	reply, err := s.submitter.Submit(ctx, model.Submission{
		AssessmentID: s.assessment.ID,
		LearnerID:    r.LearnerID,
		Score:        r.Score(),
		Metadata:     encodeMetadata(r),
	})
	if errors.Is(err, submit.ErrDisabled) {
		return
	}
	if err != nil {
		out.SubmitErr = err
		s.logger.Warn("score submission failed", zap.String("assessment", s.assessment.ID), zap.Error(err))
		return
	}
	out.Reply = &reply
	s.logger.Info("score submitted",
		zap.String("assessment", s.assessment.ID),
		zap.Int("score", r.Score()),
		zap.Bool("courseCompleted", reply.CourseCompleted))
}

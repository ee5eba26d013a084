package store

import (
	"context"
	"fmt"
	"time"

	"github.com/verte-zerg/keyboarding/internal/model"
)

// UpsertScore stores a learner's score for an assessment. A passing score
// is never replaced by a failing one.
func (s *Store) UpsertScore(ctx context.Context, rec model.ScoreRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scores (assessment_id, learner_id, score, submitted_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(assessment_id, learner_id) DO UPDATE SET
			score = MAX(scores.score, excluded.score),
			submitted_at = excluded.submitted_at`,
		rec.AssessmentID,
		rec.LearnerID,
		rec.Score,
		rec.SubmittedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

// ListScores returns every stored score of a learner keyed by assessment.
func (s *Store) ListScores(ctx context.Context, learnerID string) ([]model.ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT assessment_id, learner_id, score, submitted_at
		 FROM scores
		 WHERE learner_id = ?
		 ORDER BY assessment_id ASC`, learnerID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []model.ScoreRecord
	for rows.Next() {
		var rec model.ScoreRecord
		var submittedAt string
		if err := rows.Scan(&rec.AssessmentID, &rec.LearnerID, &rec.Score, &submittedAt); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, submittedAt)
		if err != nil {
			return nil, err
		}
		rec.SubmittedAt = parsed
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/keyboarding/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for attempt and score data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			learner_id TEXT NOT NULL,
			lesson_id TEXT NOT NULL,
			category_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			wpm INTEGER NOT NULL,
			accuracy INTEGER NOT NULL,
			duration_seconds REAL NOT NULL,
			total_keystrokes INTEGER NOT NULL,
			correct_keystrokes INTEGER NOT NULL,
			error_count INTEGER NOT NULL,
			best_streak INTEGER NOT NULL,
			passed INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS scores (
			assessment_id TEXT NOT NULL,
			learner_id TEXT NOT NULL,
			score INTEGER NOT NULL,
			submitted_at TEXT NOT NULL,
			PRIMARY KEY (assessment_id, learner_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_learner_lesson ON attempts(learner_id, lesson_id, ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// AppendAttempt appends a completed session to the attempt log. Appending
// the same attempt id twice is a no-op.
func (s *Store) AppendAttempt(ctx context.Context, r model.SessionResult) error {
	passed := 0
	if r.Passed {
		passed = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO attempts (id, learner_id, lesson_id, category_id, kind, wpm, accuracy, duration_seconds,
			total_keystrokes, correct_keystrokes, error_count, best_streak, passed, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.LearnerID,
		r.LessonID,
		r.CategoryID,
		string(r.Kind),
		r.WPM,
		r.Accuracy,
		r.DurationSeconds,
		r.TotalKeystrokes,
		r.CorrectKeystrokes,
		r.ErrorCount,
		r.BestStreak,
		passed,
		r.StartedAt.Format(time.RFC3339Nano),
		r.EndedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append attempt: %w", err)
	}
	return nil
}

// AttemptFilter narrows ListAttempts.
type AttemptFilter struct {
	LearnerID  string
	LessonID   string
	CategoryID string
	Last       int
}

// ListAttempts returns attempts in chronological order.
func (s *Store) ListAttempts(ctx context.Context, f AttemptFilter) ([]model.SessionResult, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if f.LearnerID != "" {
		clauses = append(clauses, "learner_id = ?")
		args = append(args, f.LearnerID)
	}
	if f.LessonID != "" {
		clauses = append(clauses, "lesson_id = ?")
		args = append(args, f.LessonID)
	}
	if f.CategoryID != "" {
		clauses = append(clauses, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	query := fmt.Sprintf(`SELECT id, learner_id, lesson_id, category_id, kind, wpm, accuracy, duration_seconds,
			total_keystrokes, correct_keystrokes, error_count, best_streak, passed, started_at, ended_at
		FROM attempts
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []model.SessionResult
	for rows.Next() {
		var r model.SessionResult
		var kind, startedAt, endedAt string
		var passed int
		if err := rows.Scan(&r.ID, &r.LearnerID, &r.LessonID, &r.CategoryID, &kind, &r.WPM, &r.Accuracy,
			&r.DurationSeconds, &r.TotalKeystrokes, &r.CorrectKeystrokes, &r.ErrorCount, &r.BestStreak,
			&passed, &startedAt, &endedAt); err != nil {
			return nil, err
		}
		r.Kind = model.Kind(kind)
		r.Passed = passed != 0
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if r.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if f.Last > 0 && len(out) > f.Last {
		out = out[len(out)-f.Last:]
	}
	return out, nil
}

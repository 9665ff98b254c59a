package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/conorfennell/dutchdrill/internal/domain"
	"github.com/conorfennell/dutchdrill/internal/queue"
)

type incorrectRow struct {
	ItemID      string    `db:"item_id"`
	Count       int       `db:"count"`
	LastAttempt time.Time `db:"last_attempt"`
}

// LoadIncorrect returns the learner's incorrect items for kind.
func (db *DB) LoadIncorrect(ctx context.Context, learner string, kind domain.Kind) (queue.IncorrectMap, error) {
	var rows []incorrectRow
	err := db.conn.SelectContext(ctx, &rows, db.conn.Rebind(`
		SELECT item_id, count, last_attempt
		FROM incorrect_items
		WHERE learner = ? AND kind = ?
	`), learner, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to load incorrect items for %s/%s: %w", learner, kind, err)
	}

	m := make(queue.IncorrectMap, len(rows))
	for _, r := range rows {
		m[r.ItemID] = queue.IncorrectRecord{Count: r.Count, LastAttempt: r.LastAttempt}
	}
	return m, nil
}

// LoadCompleted returns the ids the learner has answered correctly for kind.
func (db *DB) LoadCompleted(ctx context.Context, learner string, kind domain.Kind) ([]string, error) {
	var ids []string
	err := db.conn.SelectContext(ctx, &ids, db.conn.Rebind(`
		SELECT item_id FROM completed_items
		WHERE learner = ? AND kind = ?
		ORDER BY item_id
	`), learner, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to load completed items for %s/%s: %w", learner, kind, err)
	}
	return ids, nil
}

// SaveProgress replaces the learner's incorrect items for kind with
// incorrect and adds completed to the completed set.
func (db *DB) SaveProgress(ctx context.Context, learner string, kind domain.Kind, incorrect queue.IncorrectMap, completed []string) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin progress save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		DELETE FROM incorrect_items WHERE learner = ? AND kind = ?
	`), learner, string(kind)); err != nil {
		return fmt.Errorf("failed to clear incorrect items: %w", err)
	}

	insertIncorrect := tx.Rebind(`
		INSERT INTO incorrect_items (learner, kind, item_id, count, last_attempt)
		VALUES (?, ?, ?, ?, ?)
	`)
	for _, id := range incorrect.IDs() {
		rec := incorrect[id]
		at := rec.LastAttempt
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := tx.ExecContext(ctx, insertIncorrect, learner, string(kind), id, rec.Count, at.UTC()); err != nil {
			return fmt.Errorf("failed to save incorrect item %s: %w", id, err)
		}
	}

	insertCompleted := tx.Rebind(`
		INSERT INTO completed_items (learner, kind, item_id, completed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (learner, kind, item_id) DO NOTHING
	`)
	now := time.Now().UTC()
	for _, id := range completed {
		if _, err := tx.ExecContext(ctx, insertCompleted, learner, string(kind), id, now); err != nil {
			return fmt.Errorf("failed to save completed item %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit progress for %s/%s: %w", learner, kind, err)
	}
	return nil
}

// KindStats summarizes a learner's stored progress for one kind.
type KindStats struct {
	Kind      string `db:"kind"`
	Completed int    `db:"completed"`
	Incorrect int    `db:"incorrect"`
}

// LearnerStats returns stored progress per kind for learner.
func (db *DB) LearnerStats(ctx context.Context, learner string) ([]KindStats, error) {
	var stats []KindStats
	err := db.conn.SelectContext(ctx, &stats, db.conn.Rebind(`
		SELECT kind, SUM(completed) AS completed, SUM(incorrect) AS incorrect FROM (
			SELECT kind, 1 AS completed, 0 AS incorrect FROM completed_items WHERE learner = ?
			UNION ALL
			SELECT kind, 0 AS completed, 1 AS incorrect FROM incorrect_items WHERE learner = ?
		) AS progress
		GROUP BY kind
		ORDER BY kind
	`), learner, learner)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats for %s: %w", learner, err)
	}
	return stats, nil
}

package storage

import (
	"context"
	"fmt"

	"ceycent/internal/activity"
)

// RecordActivity appends e to the activity log. Redelivered events with an
// already recorded ID are ignored.
func (r *SQLiteRepository) RecordActivity(ctx context.Context, e activity.Event) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO activity_log
		     (id, kind, session_id, username, month, detail, occurred_at, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Kind), e.SessionID, e.Username, e.Month, e.Detail,
		toMillis(e.Timestamp), toMillis(r.now()))
	if err != nil {
		return false, fmt.Errorf("insert activity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// RecentActivity returns up to limit events, newest first.
func (r *SQLiteRepository) RecentActivity(ctx context.Context, limit int) ([]activity.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, session_id, username, month, detail, occurred_at
		   FROM activity_log
		  ORDER BY occurred_at DESC, id
		  LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var events []activity.Event
	for rows.Next() {
		var (
			e        activity.Event
			kind     string
			occurred int64
		)
		if err := rows.Scan(&e.ID, &kind, &e.SessionID, &e.Username, &e.Month, &e.Detail, &occurred); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		e.Kind = activity.Kind(kind)
		e.Timestamp = fromMillis(occurred)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return events, nil
}

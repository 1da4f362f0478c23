package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goodtune/kfocus/internal/storage"
)

type sessionStore struct {
	db *sql.DB
}

const sessionColumns = `id, title, scheduled_duration, actual_duration, started_at, ended_at,
	is_deep_focus, outcome, points_earned, task_id, task_title, preset_id, schedule_id, block_selection`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*storage.SessionRecord, error) {
	var (
		record     storage.SessionRecord
		actual     sql.NullInt64
		startedAt  sql.NullInt64
		endedAt    sql.NullInt64
		deepFocus  int
		outcome    string
		taskID     sql.NullString
		taskTitle  sql.NullString
		presetID   sql.NullString
		scheduleID sql.NullString
	)
	err := row.Scan(
		&record.ID, &record.Title, &record.ScheduledDuration, &actual, &startedAt, &endedAt,
		&deepFocus, &outcome, &record.PointsEarned, &taskID, &taskTitle, &presetID, &scheduleID,
		&record.BlockSelection,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := storage.ParseOutcome(outcome)
	if err != nil {
		return nil, err
	}

	if actual.Valid {
		v := actual.Int64
		record.ActualDuration = &v
	}
	record.StartedAt = fromNanos(startedAt.Int64)
	record.EndedAt = timeFromNull(endedAt)
	record.IsDeepFocus = deepFocus == 1
	record.Outcome = parsed
	record.TaskID = taskID.String
	record.TaskTitle = taskTitle.String
	record.PresetID = presetID.String
	record.ScheduleID = scheduleID.String
	if len(record.BlockSelection) == 0 {
		record.BlockSelection = nil
	}
	return &record, nil
}

func (s *sessionStore) Create(ctx context.Context, record storage.SessionRecord) error {
	outcome := record.Outcome
	if outcome == "" {
		outcome = storage.OutcomePending
	}

	var actual sql.NullInt64
	if record.ActualDuration != nil {
		actual = sql.NullInt64{Int64: *record.ActualDuration, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Title, record.ScheduledDuration, actual, toNanos(record.StartedAt),
		nullNanos(record.EndedAt), boolToInt(record.IsDeepFocus), string(outcome), record.PointsEarned,
		record.TaskID, record.TaskTitle, record.PresetID, record.ScheduleID, record.BlockSelection,
	)
	if err != nil {
		return fmt.Errorf("create session %s: %w", record.ID, err)
	}
	return nil
}

func (s *sessionStore) Get(ctx context.Context, id string) (*storage.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	record, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return record, nil
}

func (s *sessionStore) Finalize(ctx context.Context, record storage.SessionRecord) error {
	if !record.IsTerminal() {
		return fmt.Errorf("finalize session %s: outcome must be completed or canceled", record.ID)
	}

	var actual sql.NullInt64
	if record.ActualDuration != nil {
		actual = sql.NullInt64{Int64: *record.ActualDuration, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `UPDATE sessions
		SET outcome = ?, ended_at = ?, actual_duration = ?, points_earned = ?
		WHERE id = ? AND outcome = 'pending'`,
		string(record.Outcome), nullNanos(record.EndedAt), actual, record.PointsEarned, record.ID,
	)
	if err != nil {
		return fmt.Errorf("finalize session %s: %w", record.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize session %s: %w", record.ID, err)
	}
	if affected == 1 {
		return nil
	}

	// Nothing updated: either missing or already terminal
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, record.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("finalize session %s: %w", record.ID, err)
	}
	return storage.ErrAlreadyTerminal
}

func (s *sessionStore) List(ctx context.Context, filter storage.SessionFilter) ([]storage.SessionRecord, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Since != nil {
		clauses = append(clauses, "started_at >= ?")
		args = append(args, toNanos(*filter.Since))
	}
	if filter.Until != nil {
		clauses = append(clauses, "started_at < ?")
		args = append(args, toNanos(*filter.Until))
	}
	if filter.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY started_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]storage.SessionRecord, 0)
	for rows.Next() {
		record, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func (s *sessionStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE started_at < ? AND outcome != 'pending'`, toNanos(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete sessions before: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

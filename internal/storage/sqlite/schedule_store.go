package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goodtune/kfocus/internal/storage"
)

type scheduleStore struct {
	db *sql.DB
}

const scheduleColumns = `id, title, start_time, is_recurring, start_hour, start_minute, recurring_days,
	end_date, duration, is_deep_focus, is_enabled, preset_id, last_triggered_at, created_at, updated_at`

func scanSchedule(row rowScanner) (*storage.ScheduledSession, error) {
	var (
		schedule      storage.ScheduledSession
		startTime     int64
		recurring     int
		days          string
		endDate       sql.NullInt64
		deepFocus     int
		enabled       int
		presetID      sql.NullString
		lastTriggered sql.NullInt64
		createdAt     int64
		updatedAt     int64
	)
	err := row.Scan(
		&schedule.ID, &schedule.Title, &startTime, &recurring, &schedule.StartHour, &schedule.StartMinute, &days,
		&endDate, &schedule.Duration, &deepFocus, &enabled, &presetID, &lastTriggered, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(days), &schedule.RecurringDays); err != nil {
		return nil, fmt.Errorf("unmarshal recurring_days: %w", err)
	}
	schedule.StartTime = fromNanos(startTime)
	schedule.IsRecurring = recurring == 1
	schedule.EndDate = timeFromNull(endDate)
	schedule.IsDeepFocus = deepFocus == 1
	schedule.IsEnabled = enabled == 1
	schedule.PresetID = presetID.String
	schedule.LastTriggeredAt = timeFromNull(lastTriggered)
	schedule.CreatedAt = fromNanos(createdAt)
	schedule.UpdatedAt = fromNanos(updatedAt)
	return &schedule, nil
}

func (s *scheduleStore) Get(ctx context.Context, id string) (*storage.ScheduledSession, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	schedule, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule %s: %w", id, err)
	}
	return schedule, nil
}

func (s *scheduleStore) List(ctx context.Context) ([]storage.ScheduledSession, error) {
	return s.list(ctx, `SELECT `+scheduleColumns+` FROM schedules ORDER BY created_at`)
}

func (s *scheduleStore) ListEnabled(ctx context.Context) ([]storage.ScheduledSession, error) {
	return s.list(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE is_enabled = 1 ORDER BY created_at`)
}

func (s *scheduleStore) list(ctx context.Context, query string) ([]storage.ScheduledSession, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	schedules := make([]storage.ScheduledSession, 0)
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, *schedule)
	}
	return schedules, rows.Err()
}

func (s *scheduleStore) Upsert(ctx context.Context, schedule storage.ScheduledSession) error {
	days := schedule.RecurringDays
	if days == nil {
		days = []int{}
	}
	encoded, err := json.Marshal(days)
	if err != nil {
		return fmt.Errorf("marshal recurring_days: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO schedules (`+scheduleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			start_time = excluded.start_time,
			is_recurring = excluded.is_recurring,
			start_hour = excluded.start_hour,
			start_minute = excluded.start_minute,
			recurring_days = excluded.recurring_days,
			end_date = excluded.end_date,
			duration = excluded.duration,
			is_deep_focus = excluded.is_deep_focus,
			is_enabled = excluded.is_enabled,
			preset_id = excluded.preset_id,
			last_triggered_at = excluded.last_triggered_at,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		schedule.ID, schedule.Title, toNanos(schedule.StartTime), boolToInt(schedule.IsRecurring),
		schedule.StartHour, schedule.StartMinute, string(encoded), nullNanos(schedule.EndDate),
		schedule.Duration, boolToInt(schedule.IsDeepFocus), boolToInt(schedule.IsEnabled),
		schedule.PresetID, nullNanos(schedule.LastTriggeredAt), toNanos(schedule.CreatedAt),
		toNanos(schedule.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert schedule %s: %w", schedule.ID, err)
	}
	return nil
}

func (s *scheduleStore) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, s.db, "schedules", id)
}

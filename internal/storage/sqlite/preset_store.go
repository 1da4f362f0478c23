package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goodtune/kfocus/internal/storage"
)

type presetStore struct {
	db *sql.DB
}

const presetColumns = `id, name, targets, is_allow_list, usage_count, last_used_at, created_at, updated_at`

func scanPreset(row rowScanner) (*storage.BlockListPreset, error) {
	var (
		preset    storage.BlockListPreset
		targets   string
		allowList int
		lastUsed  sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&preset.ID, &preset.Name, &targets, &allowList, &preset.UsageCount, &lastUsed, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(targets), &preset.Targets); err != nil {
		return nil, fmt.Errorf("unmarshal targets: %w", err)
	}
	preset.IsAllowList = allowList == 1
	preset.LastUsedAt = timeFromNull(lastUsed)
	preset.CreatedAt = fromNanos(createdAt)
	preset.UpdatedAt = fromNanos(updatedAt)
	return &preset, nil
}

func (s *presetStore) Get(ctx context.Context, id string) (*storage.BlockListPreset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+presetColumns+` FROM presets WHERE id = ?`, id)
	preset, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get preset %s: %w", id, err)
	}
	return preset, nil
}

func (s *presetStore) List(ctx context.Context) ([]storage.BlockListPreset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+presetColumns+` FROM presets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	presets := make([]storage.BlockListPreset, 0)
	for rows.Next() {
		preset, err := scanPreset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		presets = append(presets, *preset)
	}
	return presets, rows.Err()
}

func (s *presetStore) Upsert(ctx context.Context, preset storage.BlockListPreset) error {
	targets := preset.Targets
	if targets == nil {
		targets = []string{}
	}
	encoded, err := json.Marshal(targets)
	if err != nil {
		return fmt.Errorf("marshal targets: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO presets (`+presetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			targets = excluded.targets,
			is_allow_list = excluded.is_allow_list,
			usage_count = excluded.usage_count,
			last_used_at = excluded.last_used_at,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		preset.ID, preset.Name, string(encoded), boolToInt(preset.IsAllowList), preset.UsageCount,
		nullNanos(preset.LastUsedAt), toNanos(preset.CreatedAt), toNanos(preset.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert preset %s: %w", preset.ID, err)
	}
	return nil
}

func (s *presetStore) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, s.db, "presets", id)
}

func (s *presetStore) RecordUsage(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE presets SET usage_count = usage_count + 1, last_used_at = ? WHERE id = ?`,
		toNanos(at), id)
	if err != nil {
		return fmt.Errorf("record preset usage %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// deleteByID removes one row by primary key from a trusted table name.
func deleteByID(ctx context.Context, db *sql.DB, table, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

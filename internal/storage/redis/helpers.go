package redis

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/goodtune/kfocus/internal/storage"
)

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func formatOptionalInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseOptionalTime(value, field string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", field, err)
	}
	return &t, nil
}

func parseOptionalInt(value, field string) (*int64, error) {
	if value == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", field, err)
	}
	return &v, nil
}

// sessionArgs flattens a record into the ARGV order of createSessionScript
func sessionArgs(record storage.SessionRecord) []interface{} {
	outcome := record.Outcome
	if outcome == "" {
		outcome = storage.OutcomePending
	}
	return []interface{}{
		record.ID,
		record.Title,
		record.ScheduledDuration,
		formatOptionalInt(record.ActualDuration),
		formatTime(record.StartedAt),
		formatOptionalTime(record.EndedAt),
		formatBool(record.IsDeepFocus),
		string(outcome),
		record.PointsEarned,
		record.TaskID,
		record.TaskTitle,
		record.PresetID,
		record.ScheduleID,
		record.BlockSelection,
		record.StartedAt.UnixMilli(),
	}
}

// parseSessionRecord converts a Redis hash to SessionRecord
func parseSessionRecord(data map[string]string) (*storage.SessionRecord, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	scheduled, err := strconv.ParseInt(data["scheduled_duration"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scheduled_duration: %w", err)
	}

	actual, err := parseOptionalInt(data["actual_duration"], "actual_duration")
	if err != nil {
		return nil, err
	}

	startedAt, err := time.Parse(time.RFC3339Nano, data["started_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at: %w", err)
	}

	endedAt, err := parseOptionalTime(data["ended_at"], "ended_at")
	if err != nil {
		return nil, err
	}

	outcome, err := storage.ParseOutcome(data["outcome"])
	if err != nil {
		return nil, err
	}

	points, err := strconv.Atoi(data["points_earned"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse points_earned: %w", err)
	}

	var selection []byte
	if raw := data["block_selection"]; raw != "" {
		selection = []byte(raw)
	}

	return &storage.SessionRecord{
		ID:                data["id"],
		Title:             data["title"],
		ScheduledDuration: scheduled,
		ActualDuration:    actual,
		StartedAt:         startedAt,
		EndedAt:           endedAt,
		IsDeepFocus:       data["is_deep_focus"] == "1",
		Outcome:           outcome,
		PointsEarned:      points,
		TaskID:            data["task_id"],
		TaskTitle:         data["task_title"],
		PresetID:          data["preset_id"],
		ScheduleID:        data["schedule_id"],
		BlockSelection:    selection,
	}, nil
}

// presetFields flattens a preset into HSET field/value pairs
func presetFields(preset storage.BlockListPreset) ([]interface{}, error) {
	targets, err := json.Marshal(preset.Targets)
	if err != nil {
		return nil, fmt.Errorf("marshal targets: %w", err)
	}
	return []interface{}{
		"id", preset.ID,
		"name", preset.Name,
		"targets", string(targets),
		"is_allow_list", formatBool(preset.IsAllowList),
		"usage_count", preset.UsageCount,
		"last_used_at", formatOptionalTime(preset.LastUsedAt),
		"created_at", formatTime(preset.CreatedAt),
		"updated_at", formatTime(preset.UpdatedAt),
	}, nil
}

// parseBlockListPreset converts a Redis hash to BlockListPreset
func parseBlockListPreset(data map[string]string) (*storage.BlockListPreset, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	var targets []string
	if raw := data["targets"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &targets); err != nil {
			return nil, fmt.Errorf("failed to parse targets: %w", err)
		}
	}

	usageCount, err := strconv.ParseInt(data["usage_count"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse usage_count: %w", err)
	}

	lastUsed, err := parseOptionalTime(data["last_used_at"], "last_used_at")
	if err != nil {
		return nil, err
	}

	createdAt, err := time.Parse(time.RFC3339Nano, data["created_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, data["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &storage.BlockListPreset{
		ID:          data["id"],
		Name:        data["name"],
		Targets:     targets,
		IsAllowList: data["is_allow_list"] == "1",
		UsageCount:  usageCount,
		LastUsedAt:  lastUsed,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

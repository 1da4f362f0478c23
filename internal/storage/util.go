package storage

import (
	"fmt"
	"os"
	"sort"
)

// EnsureDir ensures a directory exists with default permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// SortSessions orders records by StartedAt, newest first, and applies limit when positive.
func SortSessions(records []SessionRecord, limit int) []SessionRecord {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}

// ValidateFinalize checks that a record handed to SessionStore.Finalize is terminal
// and that the currently stored row is still pending.
func ValidateFinalize(stored, incoming SessionRecord) error {
	if !incoming.IsTerminal() {
		return fmt.Errorf("finalize session %s: outcome must be completed or canceled", incoming.ID)
	}
	if stored.IsTerminal() {
		return ErrAlreadyTerminal
	}
	return nil
}

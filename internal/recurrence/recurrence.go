// Package recurrence resolves the next start instant of a schedule definition.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goodtune/kfocus/internal/storage"
)

// scanDays bounds the forward search. A full week plus one day covers the
// case where today's slot has already passed and today is the only weekday.
const scanDays = 8

// NextOccurrence returns the first start instant of def strictly after ref.
// It returns false when the definition has no upcoming occurrence. Enabled
// state is not considered.
func NextOccurrence(def storage.ScheduledSession, ref time.Time) (time.Time, bool) {
	if !def.IsRecurring {
		if def.StartTime.After(ref) {
			return def.StartTime, true
		}
		return time.Time{}, false
	}
	if len(def.RecurringDays) == 0 {
		return time.Time{}, false
	}

	days := make(map[time.Weekday]bool, len(def.RecurringDays))
	for _, d := range def.RecurringDays {
		days[time.Weekday(d)] = true
	}

	loc := ref.Location()
	year, month, day := ref.Date()
	var limit time.Time
	if def.EndDate != nil {
		ey, em, ed := def.EndDate.In(loc).Date()
		limit = time.Date(ey, em, ed+1, 0, 0, 0, 0, loc)
	}

	for i := 0; i < scanDays; i++ {
		candidate := time.Date(year, month, day+i, def.StartHour, def.StartMinute, 0, 0, loc)
		if !limit.IsZero() && !candidate.Before(limit) {
			return time.Time{}, false
		}
		if !days[candidate.Weekday()] || !candidate.After(ref) {
			continue
		}
		return candidate, true
	}
	return time.Time{}, false
}

// Validate reports the first problem with a schedule definition.
func Validate(def storage.ScheduledSession) error {
	if def.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %ds", def.Duration)
	}
	if !def.IsRecurring {
		if def.StartTime.IsZero() {
			return errors.New("single schedule requires a start time")
		}
		return nil
	}
	if def.StartHour < 0 || def.StartHour > 23 {
		return fmt.Errorf("start hour must be 0-23, got %d", def.StartHour)
	}
	if def.StartMinute < 0 || def.StartMinute > 59 {
		return fmt.Errorf("start minute must be 0-59, got %d", def.StartMinute)
	}
	if len(def.RecurringDays) == 0 {
		return errors.New("recurring schedule requires at least one weekday")
	}
	for _, d := range def.RecurringDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("weekday must be 0-6 (0=Sunday), got %d", d)
		}
	}
	return nil
}

// ParseWeekday accepts a weekday name or three-letter abbreviation.
func ParseWeekday(s string) (int, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := d.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return int(d), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

package recurrence

import (
	"testing"
	"time"

	"github.com/goodtune/kfocus/internal/storage"
)

// Monday 10 March 2025, 10:30 UTC.
var monday = time.Date(2025, 3, 10, 10, 30, 0, 0, time.UTC)

func recurring(hour, minute int, days ...int) storage.ScheduledSession {
	return storage.ScheduledSession{
		ID:            "sched-1",
		Title:         "Deep work",
		IsRecurring:   true,
		StartHour:     hour,
		StartMinute:   minute,
		RecurringDays: days,
		Duration:      1500,
		IsEnabled:     true,
	}
}

func TestNextOccurrenceSingle(t *testing.T) {
	future := monday.Add(2 * time.Hour)
	def := storage.ScheduledSession{StartTime: future, Duration: 600}

	got, ok := NextOccurrence(def, monday)
	if !ok || !got.Equal(future) {
		t.Fatalf("expected %v, got %v (%v)", future, got, ok)
	}

	if _, ok := NextOccurrence(def, future); ok {
		t.Fatal("start time equal to ref is not strictly after it")
	}

	def.StartTime = monday.Add(-time.Minute)
	if _, ok := NextOccurrence(def, monday); ok {
		t.Fatal("expected no occurrence for a past single schedule")
	}
}

func TestNextOccurrenceRecurring(t *testing.T) {
	tests := []struct {
		name string
		def  storage.ScheduledSession
		ref  time.Time
		want time.Time
	}{
		{
			name: "later today",
			def:  recurring(14, 0, int(time.Monday)),
			ref:  monday,
			want: time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC),
		},
		{
			name: "today already passed, only weekday is today",
			def:  recurring(9, 0, int(time.Monday)),
			ref:  monday,
			want: time.Date(2025, 3, 17, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at the slot moves to next week",
			def:  recurring(10, 30, int(time.Monday)),
			ref:  monday,
			want: time.Date(2025, 3, 17, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "next matching weekday",
			def:  recurring(8, 15, int(time.Thursday), int(time.Saturday)),
			ref:  monday,
			want: time.Date(2025, 3, 13, 8, 15, 0, 0, time.UTC),
		},
		{
			name: "wraps past the weekend",
			def:  recurring(7, 0, int(time.Sunday)),
			ref:  time.Date(2025, 3, 15, 23, 0, 0, 0, time.UTC),
			want: time.Date(2025, 3, 16, 7, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextOccurrence(tt.def, tt.ref)
			if !ok {
				t.Fatal("expected an occurrence")
			}
			if !got.Equal(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNextOccurrenceEveryDayWithin24h(t *testing.T) {
	def := recurring(6, 45, 0, 1, 2, 3, 4, 5, 6)
	for h := 0; h < 48; h++ {
		ref := monday.Add(time.Duration(h) * time.Hour)
		got, ok := NextOccurrence(def, ref)
		if !ok {
			t.Fatalf("ref %v: expected an occurrence", ref)
		}
		if !got.After(ref) || got.Sub(ref) > 24*time.Hour {
			t.Fatalf("ref %v: occurrence %v not within 24h", ref, got)
		}
	}
}

func TestNextOccurrenceUsesRefLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	ref := time.Date(2025, 3, 10, 20, 0, 0, 0, loc)
	def := recurring(21, 0, int(time.Monday))

	got, ok := NextOccurrence(def, ref)
	if !ok {
		t.Fatal("expected an occurrence")
	}
	if want := time.Date(2025, 3, 10, 21, 0, 0, 0, loc); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNextOccurrenceEmptyDays(t *testing.T) {
	if _, ok := NextOccurrence(recurring(9, 0), monday); ok {
		t.Fatal("expected no occurrence without weekdays")
	}
}

func TestNextOccurrenceEndDate(t *testing.T) {
	def := recurring(9, 0, int(time.Wednesday))

	end := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	def.EndDate = &end
	got, ok := NextOccurrence(def, monday)
	if !ok || !got.Equal(time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("occurrence on the end date should still fire, got %v (%v)", got, ok)
	}

	end = time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	if _, ok := NextOccurrence(def, monday); ok {
		t.Fatal("expected no occurrence after the end date")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*storage.ScheduledSession)
		wantErr bool
	}{
		{"valid", func(*storage.ScheduledSession) {}, false},
		{"zero duration", func(s *storage.ScheduledSession) { s.Duration = 0 }, true},
		{"hour too large", func(s *storage.ScheduledSession) { s.StartHour = 24 }, true},
		{"negative minute", func(s *storage.ScheduledSession) { s.StartMinute = -1 }, true},
		{"minute too large", func(s *storage.ScheduledSession) { s.StartMinute = 60 }, true},
		{"no weekdays", func(s *storage.ScheduledSession) { s.RecurringDays = nil }, true},
		{"weekday out of range", func(s *storage.ScheduledSession) { s.RecurringDays = []int{7} }, true},
		{"single without start", func(s *storage.ScheduledSession) { s.IsRecurring = false }, true},
		{"single with start", func(s *storage.ScheduledSession) {
			s.IsRecurring = false
			s.StartTime = monday
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := recurring(9, 30, 1, 3, 5)
			tt.mutate(&def)
			err := Validate(def)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseWeekday(t *testing.T) {
	for input, want := range map[string]int{"sun": 0, "Monday": 1, "FRI": 5, "saturday": 6} {
		got, err := ParseWeekday(input)
		if err != nil {
			t.Fatalf("ParseWeekday(%q): %v", input, err)
		}
		if got != want {
			t.Errorf("ParseWeekday(%q) = %d, want %d", input, got, want)
		}
	}
	if _, err := ParseWeekday("someday"); err == nil {
		t.Fatal("expected error for unknown weekday")
	}
}

package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Recurrence is how often a recurring task comes back after completion.
type Recurrence string

const (
	RecurrenceWeekly   Recurrence = "weekly"
	RecurrenceBiweekly Recurrence = "biweekly"
)

// Days returns the number of calendar days between two occurrences, or 0 for unknown values.
func (r Recurrence) Days() int {
	switch r {
	case RecurrenceWeekly:
		return 7
	case RecurrenceBiweekly:
		return 14
	default:
		return 0
	}
}

func (r Recurrence) Valid() bool {
	return r.Days() > 0
}

// Task represents a single reminder in the planner.
type Task struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	DueDate            time.Time  `json:"dueDate"`
	Completed          bool       `json:"completed"`
	CreatedAt          int64      `json:"createdAt"`
	IsRecurring        bool       `json:"isRecurring,omitempty"`
	RecurrenceInterval Recurrence `json:"recurrenceInterval,omitempty"`
}

// legacyDueLayout is the minute-precision local form written by datetime inputs.
const legacyDueLayout = "2006-01-02T15:04"

type taskFields Task

// storedTask shadows dueDate so zone-less legacy values can be read in a chosen zone.
type storedTask struct {
	taskFields
	DueDate string `json:"dueDate"`
}

// DecodeTasks reads a persisted task array. RFC 3339 due dates keep their offset;
// zone-less legacy values are read in loc.
func DecodeTasks(data []byte, loc *time.Location) ([]Task, error) {
	if loc == nil {
		loc = time.Local
	}
	var stored []storedTask
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, nil
	}
	tasks := make([]Task, len(stored))
	for i, st := range stored {
		due, err := ParseDueDate(st.DueDate, loc)
		if err != nil {
			return nil, err
		}
		tasks[i] = Task(st.taskFields)
		tasks[i].DueDate = due
	}
	return tasks, nil
}

// ParseDueDate parses a stored due date. Zone-less values are read in loc.
func ParseDueDate(raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if due, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return due, nil
	}
	due, err := time.ParseInLocation(legacyDueLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse due date %q: %w", raw, err)
	}
	return due, nil
}

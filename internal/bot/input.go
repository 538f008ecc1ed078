package bot

import (
	"errors"
	"strings"
	"time"
)

var errUnknownDate = errors.New("unknown date format")

var dueLayouts = []string{
	"2006-01-02 15:04",
	"02.01.2006 15:04",
	"2.1.2006 15:04",
}

var shortDueLayouts = []string{
	"02.01 15:04",
	"2.1 15:04",
}

// parseDueInput reads a due date typed by the user in loc. Relative forms
// ("i dag 18:00", "i morgen 09:00") resolve against now.
func parseDueInput(text string, now time.Time, loc *time.Location) (time.Time, error) {
	value := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	if value == "" {
		return time.Time{}, errUnknownDate
	}
	now = now.In(loc)

	for prefix, offset := range map[string]int{"i dag": 0, "idag": 0, "i morgen": 1, "imorgen": 1} {
		rest, ok := strings.CutPrefix(value, prefix+" ")
		if !ok {
			continue
		}
		clock, err := time.ParseInLocation("15:04", strings.TrimSpace(rest), loc)
		if err != nil {
			return time.Time{}, errUnknownDate
		}
		day := now.AddDate(0, 0, offset)
		return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), nil
	}

	for _, layout := range dueLayouts {
		if due, err := time.ParseInLocation(layout, value, loc); err == nil {
			return due, nil
		}
	}
	for _, layout := range shortDueLayouts {
		if due, err := time.ParseInLocation(layout, value, loc); err == nil {
			return time.Date(now.Year(), due.Month(), due.Day(), due.Hour(), due.Minute(), 0, 0, loc), nil
		}
	}
	return time.Time{}, errUnknownDate
}

package service

import (
	"sort"
	"time"

	"lifestyle-planner/internal/model"
)

// Board is the day-bucketed view of the task list at a given instant.
type Board struct {
	Today    []model.Task
	Tomorrow []model.Task
	// Later also holds everything due before today.
	Later   []model.Task
	Overdue int
	At      time.Time
}

// Total returns the number of tasks across all buckets.
func (b Board) Total() int {
	return len(b.Today) + len(b.Tomorrow) + len(b.Later)
}

// SortByDue orders tasks ascending by due date in place. Ties keep their relative order.
func SortByDue(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].DueDate.Before(tasks[j].DueDate)
	})
}

// Categorize splits tasks into today, tomorrow and later relative to the calendar day of now.
// The input is not modified.
func Categorize(tasks []model.Task, now time.Time) Board {
	sorted := append([]model.Task(nil), tasks...)
	SortByDue(sorted)

	year, month, day := now.Date()
	today := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	tomorrowStart := today.AddDate(0, 0, 1)
	dayAfterStart := today.AddDate(0, 0, 2)

	board := Board{
		Today:    []model.Task{},
		Tomorrow: []model.Task{},
		Later:    []model.Task{},
		Overdue:  OverdueCount(sorted, now),
		At:       now,
	}
	for _, task := range sorted {
		due := task.DueDate
		switch {
		case !due.Before(today) && due.Before(tomorrowStart):
			board.Today = append(board.Today, task)
		case !due.Before(tomorrowStart) && due.Before(dayAfterStart):
			board.Tomorrow = append(board.Tomorrow, task)
		default:
			board.Later = append(board.Later, task)
		}
	}
	return board
}

// OverdueCount counts open tasks whose due instant has passed.
func OverdueCount(tasks []model.Task, now time.Time) int {
	count := 0
	for _, task := range tasks {
		if IsOverdue(task, now) {
			count++
		}
	}
	return count
}

func IsOverdue(task model.Task, now time.Time) bool {
	return !task.Completed && task.DueDate.Before(now)
}

// NextDueDate advances due by the recurrence interval in calendar days, keeping the
// wall-clock time in loc. It reports false for tasks that do not recur.
func NextDueDate(due time.Time, interval model.Recurrence, loc *time.Location) (time.Time, bool) {
	days := interval.Days()
	if days == 0 {
		return time.Time{}, false
	}
	if loc == nil {
		loc = due.Location()
	}
	return due.In(loc).AddDate(0, 0, days), true
}

// hasOpenDuplicate reports whether an uncompleted task with the same title is due exactly at due.
func hasOpenDuplicate(tasks []model.Task, title string, due time.Time) bool {
	for _, task := range tasks {
		if !task.Completed && task.Title == title && task.DueDate.Equal(due) {
			return true
		}
	}
	return false
}

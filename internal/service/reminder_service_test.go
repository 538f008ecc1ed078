package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lifestyle-planner/internal/model"
)

type stubBoard struct {
	tasks []model.Task
	now   time.Time
}

func (s *stubBoard) Board() Board {
	return Categorize(s.tasks, s.now)
}

func TestReminderService_RefreshReportsGrowingOverdue(t *testing.T) {
	loc := oslo(t)
	src := &stubBoard{
		now:   at(loc, 2026, 10, 19, 8, 59),
		tasks: []model.Task{{ID: "a", Title: "Meds", DueDate: at(loc, 2026, 10, 19, 9, 0)}},
	}
	svc := NewReminderService(src, zap.NewNop())

	board, grew := svc.Refresh()
	assert.False(t, grew)
	assert.Zero(t, board.Overdue)

	// No data change, only the clock moves.
	src.now = at(loc, 2026, 10, 19, 9, 1)
	board, grew = svc.Refresh()
	assert.True(t, grew)
	assert.Equal(t, 1, board.Overdue)
	assert.Equal(t, 1, svc.Latest().Overdue)

	_, grew = svc.Refresh()
	assert.False(t, grew)
}

func TestReminderService_BucketsMoveAtMidnight(t *testing.T) {
	loc := oslo(t)
	src := &stubBoard{
		now:   at(loc, 2026, 10, 19, 23, 59),
		tasks: []model.Task{{ID: "a", DueDate: at(loc, 2026, 10, 20, 10, 0)}},
	}
	svc := NewReminderService(src, zap.NewNop())

	board, _ := svc.Refresh()
	assert.Equal(t, []string{"a"}, ids(board.Tomorrow))

	src.now = at(loc, 2026, 10, 20, 0, 0)
	board, _ = svc.Refresh()
	assert.Equal(t, []string{"a"}, ids(board.Today))
}

func TestSummary(t *testing.T) {
	loc := oslo(t)
	now := at(loc, 2026, 10, 19, 12, 0)
	board := Categorize([]model.Task{
		{ID: "old", Title: "Pay <bills>", DueDate: at(loc, 2026, 10, 17, 9, 0)},
		{ID: "today", Title: "Run", DueDate: at(loc, 2026, 10, 19, 18, 0), IsRecurring: true, RecurrenceInterval: model.RecurrenceWeekly},
		{ID: "done", Title: "Read", DueDate: at(loc, 2026, 10, 19, 8, 0), Completed: true},
	}, now)

	text, ordered := Summary(board)

	require.Equal(t, []string{"done", "today", "old"}, ids(ordered))
	assert.Contains(t, text, "Du har 1 oppgave som har forfalt")
	assert.Contains(t, text, "Pay &lt;bills&gt;")
	assert.Contains(t, text, "hver uke")
	assert.Contains(t, text, "<s>Read</s>")
	assert.Contains(t, text, "☁️ Senere")
	assert.Less(t, strings.Index(text, "I dag"), strings.Index(text, "I morgen"))
}

func TestSummary_FoldsCompletedFromPastDays(t *testing.T) {
	loc := oslo(t)
	now := at(loc, 2026, 10, 19, 12, 0)
	var tasks []model.Task
	for i := 0; i < 200; i++ {
		tasks = append(tasks, model.Task{
			ID:        fmt.Sprintf("done-%d", i),
			Title:     "Yoga",
			DueDate:   at(loc, 2026, 10, 18, 18, 0).AddDate(0, 0, -7*i),
			Completed: true,
		})
	}
	tasks = append(tasks,
		model.Task{ID: "open-past", Title: "Skatt", DueDate: at(loc, 2026, 10, 1, 9, 0)},
		model.Task{ID: "done-today", Title: "Les", DueDate: at(loc, 2026, 10, 19, 7, 0), Completed: true},
	)

	board := Categorize(tasks, now)
	require.Equal(t, 202, board.Total())

	text, ordered := Summary(board)

	assert.Equal(t, []string{"done-today", "open-past"}, ids(ordered))
	assert.Contains(t, text, "200 fullførte fra tidligere dager er skjult")
	assert.NotContains(t, text, "Yoga")
	assert.Less(t, len([]rune(text)), 4096)
}

func TestSummary_Empty(t *testing.T) {
	text, ordered := Summary(Categorize(nil, time.Now()))
	assert.Empty(t, ordered)
	assert.Contains(t, text, "Ingen planer")
	assert.NotContains(t, text, "forfalt")
}

func TestOverdueNotice(t *testing.T) {
	assert.Contains(t, OverdueNotice(1), "1 oppgave ")
	assert.Contains(t, OverdueNotice(3), "3 oppgaver")
}

package service

import (
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"lifestyle-planner/internal/model"
)

const (
	iconOpen      = "🟣"
	iconDone      = "✅"
	iconOverdue   = "⚠️"
	iconRecurring = "♻️"
)

// BoardSource provides the current categorized task list.
type BoardSource interface {
	Board() Board
}

// ReminderService keeps the board fresh against the wall clock and renders summaries.
type ReminderService struct {
	tasks BoardSource
	log   *zap.Logger

	mu     sync.Mutex
	latest Board
	primed bool
}

func NewReminderService(tasks BoardSource, log *zap.Logger) *ReminderService {
	return &ReminderService{tasks: tasks, log: log}
}

// Refresh recomputes the board. It reports whether the overdue count went up since
// the previous refresh; the first refresh never does.
func (s *ReminderService) Refresh() (Board, bool) {
	board := s.tasks.Board()

	s.mu.Lock()
	defer s.mu.Unlock()
	grew := s.primed && board.Overdue > s.latest.Overdue
	s.latest = board
	s.primed = true

	s.log.Debug("board refreshed",
		zap.Int("today", len(board.Today)),
		zap.Int("tomorrow", len(board.Tomorrow)),
		zap.Int("later", len(board.Later)),
		zap.Int("overdue", board.Overdue),
	)
	return board, grew
}

// Latest returns the board from the most recent refresh.
func (s *ReminderService) Latest() Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Summary renders the board as Telegram HTML. The returned tasks are in display
// order; task #n in the text is tasks[n-1]. Completed tasks from past days are
// folded into a count.
func Summary(board Board) (string, []model.Task) {
	var builder strings.Builder
	ordered := make([]model.Task, 0, board.Total())

	builder.WriteString("📋 <b>Mine planer ✨</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n", board.At.Format("02.01.2006 15:04")))
	if board.Overdue > 0 {
		builder.WriteString(fmt.Sprintf("\n🔔 %s\n", OverdueNotice(board.Overdue)))
	}

	if board.Total() == 0 {
		builder.WriteString("\nIngen planer akkurat nå... Slapp av og nyt dagen! 🎀")
		return strings.TrimSpace(builder.String()), ordered
	}

	section := func(title string, tasks []model.Task, always bool) {
		if len(tasks) == 0 && !always {
			return
		}
		builder.WriteString(fmt.Sprintf("\n<b>%s</b> (%d)\n", title, len(tasks)))
		if len(tasks) == 0 {
			builder.WriteString("— ingen oppgaver her ✨\n")
			return
		}
		for _, task := range tasks {
			ordered = append(ordered, task)
			builder.WriteString(FormatTask(len(ordered), task, board.At))
		}
	}

	later, archived := foldArchived(board.Later, board.At)

	section("☀️ I dag", board.Today, true)
	section("🌙 I morgen", board.Tomorrow, true)
	section("☁️ Senere", later, false)
	if archived > 0 {
		builder.WriteString(fmt.Sprintf("\n%s %d fullførte fra tidligere dager er skjult\n", iconDone, archived))
	}

	return strings.TrimSpace(builder.String()), ordered
}

// foldArchived drops completed tasks due before the day of now and counts them.
func foldArchived(tasks []model.Task, now time.Time) ([]model.Task, int) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	kept := make([]model.Task, 0, len(tasks))
	archived := 0
	for _, task := range tasks {
		if task.Completed && task.DueDate.Before(today) {
			archived++
			continue
		}
		kept = append(kept, task)
	}
	return kept, archived
}

// OverdueNotice is the badge text for n overdue tasks.
func OverdueNotice(n int) string {
	noun := "oppgaver"
	if n == 1 {
		noun = "oppgave"
	}
	return fmt.Sprintf("Du har %d %s som har forfalt. Ta en titt! ✨", n, noun)
}

// FormatTask renders one task line with its display number.
func FormatTask(n int, task model.Task, now time.Time) string {
	icon := iconOpen
	switch {
	case task.Completed:
		icon = iconDone
	case IsOverdue(task, now):
		icon = iconOverdue
	}

	var b strings.Builder
	title := html.EscapeString(strings.TrimSpace(task.Title))
	if task.Completed {
		title = "<s>" + title + "</s>"
	}
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s\n", icon, n, title))
	b.WriteString(fmt.Sprintf("   ⏰ %s", task.DueDate.In(now.Location()).Format("02.01 15:04")))
	if task.IsRecurring {
		b.WriteString(fmt.Sprintf(" · %s %s", iconRecurring, RecurrenceLabel(task.RecurrenceInterval)))
	}
	if IsOverdue(task, now) {
		b.WriteString(" — <b>forfalt</b>")
	}
	b.WriteByte('\n')
	return b.String()
}

func RecurrenceLabel(r model.Recurrence) string {
	switch r {
	case model.RecurrenceWeekly:
		return "hver uke"
	case model.RecurrenceBiweekly:
		return "hver 2. uke"
	default:
		return "engangs"
	}
}

package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lifestyle-planner/internal/model"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title   string
	DueDate time.Time
	// Recurrence is empty for one-off tasks.
	Recurrence model.Recurrence
}

// TaskPatch holds the fields to merge onto an existing task. Nil fields are left alone.
type TaskPatch struct {
	Title              *string
	DueDate            *time.Time
	IsRecurring        *bool
	RecurrenceInterval *model.Recurrence
}

// ToggleResult describes what a completion toggle changed.
type ToggleResult struct {
	Task model.Task
	// Rollover is the next occurrence created for a recurring task, if any.
	Rollover *model.Task
}

// TaskPersister loads and saves the whole task collection.
type TaskPersister interface {
	Load(ctx context.Context) []model.Task
	Save(ctx context.Context, tasks []model.Task) error
}

// TaskService owns the task collection. The collection is kept sorted by due date
// and written through the persister after every committed mutation.
type TaskService struct {
	mu    sync.RWMutex
	tasks []model.Task

	repo  TaskPersister
	loc   *time.Location
	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

// TaskOption customizes a TaskService.
type TaskOption func(*TaskService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TaskOption {
	return func(s *TaskService) { s.now = now }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(newID func() string) TaskOption {
	return func(s *TaskService) { s.newID = newID }
}

func NewTaskService(repo TaskPersister, loc *time.Location, log *zap.Logger, opts ...TaskOption) *TaskService {
	if loc == nil {
		loc = time.Local
	}
	s := &TaskService{
		tasks: []model.Task{},
		repo:  repo,
		loc:   loc,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory collection with the persisted one.
func (s *TaskService) Load(ctx context.Context) {
	tasks := s.repo.Load(ctx)
	SortByDue(tasks)

	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()

	s.log.Info("tasks loaded", zap.Int("count", len(tasks)))
}

// AddTask validates and inserts a new task.
func (s *TaskService) AddTask(ctx context.Context, input TaskInput) (model.Task, error) {
	if strings.TrimSpace(input.Title) == "" || input.DueDate.IsZero() {
		return model.Task{}, ErrInvalidTask
	}
	if input.Recurrence != "" && !input.Recurrence.Valid() {
		return model.Task{}, ErrInvalidTask
	}

	task := model.Task{
		ID:        s.newID(),
		Title:     input.Title,
		DueDate:   input.DueDate,
		Completed: false,
		CreatedAt: s.now().UnixMilli(),
	}
	if input.Recurrence != "" {
		task.IsRecurring = true
		task.RecurrenceInterval = input.Recurrence
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := append([]model.Task{task}, s.tasks...)
	SortByDue(next)
	if err := s.commit(ctx, next); err != nil {
		return task, err
	}
	s.log.Info("task created", zap.String("id", task.ID), zap.Bool("recurring", task.IsRecurring))
	return task, nil
}

// ToggleCompletion flips the completed flag. Completing a recurring task appends its next
// occurrence unless an open task with the same title is already due at that time.
// Un-completing never removes an occurrence created earlier.
func (s *TaskService) ToggleCompletion(ctx context.Context, id string) (ToggleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return ToggleResult{}, ErrTaskNotFound
	}

	next := append([]model.Task(nil), s.tasks...)
	task := next[idx]
	task.Completed = !task.Completed
	next[idx] = task

	result := ToggleResult{Task: task}
	if task.Completed && task.IsRecurring {
		if due, ok := NextDueDate(task.DueDate, task.RecurrenceInterval, s.loc); ok && !hasOpenDuplicate(next, task.Title, due) {
			rollover := task
			rollover.ID = s.newID()
			rollover.DueDate = due
			rollover.Completed = false
			rollover.CreatedAt = s.now().UnixMilli()
			next = append(next, rollover)
			result.Rollover = &rollover
		}
	}

	SortByDue(next)
	if err := s.commit(ctx, next); err != nil {
		return result, err
	}

	fields := []zap.Field{zap.String("id", id), zap.Bool("completed", task.Completed)}
	if result.Rollover != nil {
		fields = append(fields, zap.String("rollover", result.Rollover.ID), zap.Time("next_due", result.Rollover.DueDate))
	}
	s.log.Info("task toggled", fields...)
	return result, nil
}

// UpdateTask merges the patch onto the task with the given id. Turning recurrence
// off clears the interval; turning it on requires a weekly or biweekly interval.
func (s *TaskService) UpdateTask(ctx context.Context, id string, patch TaskPatch) (model.Task, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return model.Task{}, ErrInvalidTask
	}
	if patch.DueDate != nil && patch.DueDate.IsZero() {
		return model.Task{}, ErrInvalidTask
	}
	if patch.RecurrenceInterval != nil && *patch.RecurrenceInterval != "" && !patch.RecurrenceInterval.Valid() {
		return model.Task{}, ErrInvalidTask
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return model.Task{}, ErrTaskNotFound
	}

	next := append([]model.Task(nil), s.tasks...)
	task := next[idx]
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.DueDate != nil {
		task.DueDate = *patch.DueDate
	}
	if patch.IsRecurring != nil {
		task.IsRecurring = *patch.IsRecurring
	}
	if patch.RecurrenceInterval != nil {
		task.RecurrenceInterval = *patch.RecurrenceInterval
	}
	if !task.IsRecurring {
		task.RecurrenceInterval = ""
	}
	// a recurring task always carries a known interval
	if task.IsRecurring && !task.RecurrenceInterval.Valid() {
		return model.Task{}, ErrInvalidTask
	}
	next[idx] = task

	SortByDue(next)
	if err := s.commit(ctx, next); err != nil {
		return task, err
	}
	s.log.Info("task updated", zap.String("id", id))
	return task, nil
}

// DeleteTask removes the task with the given id.
func (s *TaskService) DeleteTask(ctx context.Context, id string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return model.Task{}, ErrTaskNotFound
	}

	removed := s.tasks[idx]
	next := make([]model.Task, 0, len(s.tasks)-1)
	next = append(next, s.tasks[:idx]...)
	next = append(next, s.tasks[idx+1:]...)
	if err := s.commit(ctx, next); err != nil {
		return removed, err
	}
	s.log.Info("task deleted", zap.String("id", id))
	return removed, nil
}

func (s *TaskService) Get(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return model.Task{}, false
	}
	return s.tasks[idx], true
}

// Snapshot returns a copy of the sorted collection.
func (s *TaskService) Snapshot() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Task(nil), s.tasks...)
}

// Board categorizes the collection against the service clock.
func (s *TaskService) Board() Board {
	return Categorize(s.Snapshot(), s.Now())
}

// Now is the service clock in the service location.
func (s *TaskService) Now() time.Time {
	return s.now().In(s.loc)
}

func (s *TaskService) Location() *time.Location {
	return s.loc
}

// commit swaps in the new collection and persists it. The in-memory state stays
// committed even if the write fails.
func (s *TaskService) commit(ctx context.Context, next []model.Task) error {
	s.tasks = next
	if err := s.repo.Save(ctx, next); err != nil {
		s.log.Error("persist tasks", zap.Error(err))
		return fmt.Errorf("persist tasks: %w", err)
	}
	return nil
}

func (s *TaskService) indexOf(id string) int {
	for i, task := range s.tasks {
		if task.ID == id {
			return i
		}
	}
	return -1
}

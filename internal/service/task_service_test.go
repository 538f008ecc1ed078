package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lifestyle-planner/internal/model"
)

type fakeTaskRepo struct {
	loaded  []model.Task
	saved   [][]model.Task
	saveErr error
}

func (f *fakeTaskRepo) Load(context.Context) []model.Task {
	return append([]model.Task(nil), f.loaded...)
}

func (f *fakeTaskRepo) Save(_ context.Context, tasks []model.Task) error {
	f.saved = append(f.saved, append([]model.Task(nil), tasks...))
	return f.saveErr
}

func (f *fakeTaskRepo) last() []model.Task {
	if len(f.saved) == 0 {
		return nil
	}
	return f.saved[len(f.saved)-1]
}

func newTestTaskService(t *testing.T, repo *fakeTaskRepo, now time.Time) *TaskService {
	t.Helper()
	seq := 0
	svc := NewTaskService(repo, now.Location(), zap.NewNop(),
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	)
	svc.Load(context.Background())
	return svc
}

func TestTaskService_AddTask(t *testing.T) {
	loc := oslo(t)
	now := at(loc, 2026, 10, 19, 8, 0)
	repo := &fakeTaskRepo{}
	svc := newTestTaskService(t, repo, now)
	ctx := context.Background()

	later, err := svc.AddTask(ctx, TaskInput{Title: "Dentist", DueDate: at(loc, 2026, 10, 22, 10, 0)})
	require.NoError(t, err)
	sooner, err := svc.AddTask(ctx, TaskInput{Title: "Laundry", DueDate: at(loc, 2026, 10, 19, 18, 0), Recurrence: model.RecurrenceWeekly})
	require.NoError(t, err)

	assert.Equal(t, "id-1", later.ID)
	assert.False(t, later.Completed)
	assert.False(t, later.IsRecurring)
	assert.Equal(t, now.UnixMilli(), later.CreatedAt)
	assert.True(t, sooner.IsRecurring)
	assert.Equal(t, model.RecurrenceWeekly, sooner.RecurrenceInterval)

	assert.Equal(t, []string{"id-2", "id-1"}, ids(svc.Snapshot()))
	assert.Equal(t, []string{"id-2", "id-1"}, ids(repo.last()))
	assert.Len(t, repo.saved, 2)
}

func TestTaskService_AddTaskValidation(t *testing.T) {
	loc := oslo(t)
	now := at(loc, 2026, 10, 19, 8, 0)
	repo := &fakeTaskRepo{}
	svc := newTestTaskService(t, repo, now)
	ctx := context.Background()

	inputs := map[string]TaskInput{
		"empty title":      {Title: "", DueDate: now},
		"blank title":      {Title: "   \t", DueDate: now},
		"missing date":     {Title: "Something"},
		"unknown interval": {Title: "Something", DueDate: now, Recurrence: "monthly"},
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := svc.AddTask(ctx, input)
			assert.ErrorIs(t, err, ErrInvalidTask)
		})
	}

	assert.Empty(t, svc.Snapshot())
	assert.Empty(t, repo.saved, "rejected submissions must not be persisted")
}

func TestTaskService_ToggleNonRecurring(t *testing.T) {
	loc := oslo(t)
	now := at(loc, 2026, 10, 19, 8, 0)
	repo := &fakeTaskRepo{}
	svc := newTestTaskService(t, repo, now)
	ctx := context.Background()

	task, err := svc.AddTask(ctx, TaskInput{Title: "Call mom", DueDate: at(loc, 2026, 10, 19, 9, 0)})
	require.NoError(t, err)

	res, err := svc.ToggleCompletion(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, res.Task.Completed)
	assert.Nil(t, res.Rollover)
	assert.Len(t, svc.Snapshot(), 1)

	res, err = svc.ToggleCompletion(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, res.Task.Completed)
	assert.Len(t, svc.Snapshot(), 1)
}

func TestTaskService_WeeklyRolloverIsNotRetracted(t *testing.T) {
	loc := oslo(t)
	now := at(loc, 2026, 10, 19, 8, 0)
	repo := &fakeTaskRepo{}
	svc := newTestTaskService(t, repo, now)
	ctx := context.Background()

	taskB, err := svc.AddTask(ctx, TaskInput{Title: "Plants", DueDate: at(loc, 2026, 10, 19, 9, 0), Recurrence: model.RecurrenceWeekly})
	require.NoError(t, err)

	res, err := svc.ToggleCompletion(ctx, taskB.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Rollover)

	taskC := *res.Rollover
	assert.NotEqual(t, taskB.ID, taskC.ID)
	assert.Equal(t, "Plants", taskC.Title)
	assert.False(t, taskC.Completed)
	assert.True(t, taskC.IsRecurring)
	assert.Equal(t, model.RecurrenceWeekly, taskC.RecurrenceInterval)
	assert.True(t, taskC.DueDate.Equal(at(loc, 2026, 10, 26, 9, 0)))
	assert.Len(t, svc.Snapshot(), 2)

	res, err = svc.ToggleCompletion(ctx, taskB.ID)
	require.NoError(t, err)
	assert.False(t, res.Task.Completed)
	assert.Nil(t, res.Rollover)

	_, ok := svc.Get(taskC.ID)
	assert.True(t, ok, "un-completing must not remove the spawned occurrence")
	assert.Len(t, svc.Snapshot(), 2)
}

func TestTaskService_RecompletingDoesNotDuplicateRollover(t *testing.T) {
	loc := oslo(t)
	now := at(loc, 2026, 10, 19, 8, 0)
	svc := newTestTaskService(t, &fakeTaskRepo{}, now)
	ctx := context.Background()

	task, err := svc.AddTask(ctx, TaskInput{Title: "Gym", DueDate: at(loc, 2026, 10, 19, 17, 0), Recurrence: model.RecurrenceBiweekly})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.ToggleCompletion(ctx, task.ID) // complete
		require.NoError(t, err)
		_, err = svc.ToggleCompletion(ctx, task.ID) // un-complete
		require.NoError(t, err)
	}

	tasks := svc.Snapshot()
	require.Len(t, tasks, 2)
	assert.True(t, tasks[1].DueDate.Equal(at(loc, 2026, 11, 2, 17, 0)))
}

func TestTaskService_DuplicateCheckAgainstExistingTask(t *testing.T) {
	loc := oslo(t)
	now := at(loc, 2026, 10, 19, 8, 0)
	due := at(loc, 2026, 10, 19, 9, 0)
	next := at(loc, 2026, 10, 26, 9, 0)
	repo := &fakeTaskRepo{loaded: []model.Task{
		{ID: "open", Title: "Swim", DueDate: due, IsRecurring: true, RecurrenceInterval: model.RecurrenceWeekly},
		{ID: "done", Title: "Swim", DueDate: due, Completed: true, IsRecurring: true, RecurrenceInterval: model.RecurrenceWeekly},
		{ID: "existing-next", Title: "Swim", DueDate: next, IsRecurring: true, RecurrenceInterval: model.RecurrenceWeekly},
	}}
	svc := newTestTaskService(t, repo, now)

	res, err := svc.ToggleCompletion(context.Background(), "open")
	require.NoError(t, err)
	assert.True(t, res.Task.Completed)
	assert.Nil(t, res.Rollover)
	assert.Len(t, svc.Snapshot(), 3)
}

func TestTaskService_CompletedDuplicateDoesNotBlockRollover(t *testing.T) {
	loc := oslo(t)
	now := at(loc, 2026, 10, 19, 8, 0)
	next := at(loc, 2026, 10, 26, 9, 0)
	repo := &fakeTaskRepo{loaded: []model.Task{
		{ID: "open", Title: "Swim", DueDate: at(loc, 2026, 10, 19, 9, 0), IsRecurring: true, RecurrenceInterval: model.RecurrenceWeekly},
		{ID: "closed-next", Title: "Swim", DueDate: next, Completed: true},
		{ID: "other-title", Title: "Run", DueDate: next},
	}}
	svc := newTestTaskService(t, repo, now)

	res, err := svc.ToggleCompletion(context.Background(), "open")
	require.NoError(t, err)
	require.NotNil(t, res.Rollover)
	assert.Len(t, svc.Snapshot(), 4)
}

func TestTaskService_NotFoundIsNoOp(t *testing.T) {
	loc := oslo(t)
	now := at(loc, 2026, 10, 19, 8, 0)
	repo := &fakeTaskRepo{loaded: []model.Task{{ID: "x", Title: "X", DueDate: now}}}
	svc := newTestTaskService(t, repo, now)
	ctx := context.Background()

	_, err := svc.ToggleCompletion(ctx, "nope")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	title := "new"
	_, err = svc.UpdateTask(ctx, "nope", TaskPatch{Title: &title})
	assert.ErrorIs(t, err, ErrTaskNotFound)
	_, err = svc.DeleteTask(ctx, "nope")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	assert.Equal(t, []string{"x"}, ids(svc.Snapshot()))
	assert.Empty(t, repo.saved)
}

func TestTaskService_UpdateTaskResorts(t *testing.T) {
	loc := oslo(t)
	now := at(loc, 2026, 10, 19, 8, 0)
	repo := &fakeTaskRepo{loaded: []model.Task{
		{ID: "a", Title: "A", DueDate: at(loc, 2026, 10, 20, 9, 0)},
		{ID: "b", Title: "B", DueDate: at(loc, 2026, 10, 21, 9, 0)},
	}}
	svc := newTestTaskService(t, repo, now)

	title := "B, earlier"
	due := at(loc, 2026, 10, 19, 12, 0)
	updated, err := svc.UpdateTask(context.Background(), "b", TaskPatch{Title: &title, DueDate: &due})
	require.NoError(t, err)

	assert.Equal(t, "B, earlier", updated.Title)
	assert.Equal(t, []string{"b", "a"}, ids(svc.Snapshot()))
	assert.Equal(t, []string{"b", "a"}, ids(repo.last()))

	blank := " "
	_, err = svc.UpdateTask(context.Background(), "a", TaskPatch{Title: &blank})
	assert.ErrorIs(t, err, ErrInvalidTask)
}

func TestTaskService_UpdateTaskRecurrence(t *testing.T) {
	loc := oslo(t)
	now := at(loc, 2026, 10, 19, 8, 0)
	repo := &fakeTaskRepo{loaded: []model.Task{
		{ID: "a", Title: "Swim", DueDate: at(loc, 2026, 10, 20, 9, 0)},
	}}
	svc := newTestTaskService(t, repo, now)
	ctx := context.Background()

	on := true
	_, err := svc.UpdateTask(ctx, "a", TaskPatch{IsRecurring: &on})
	assert.ErrorIs(t, err, ErrInvalidTask, "recurring without an interval")

	monthly := model.Recurrence("monthly")
	_, err = svc.UpdateTask(ctx, "a", TaskPatch{IsRecurring: &on, RecurrenceInterval: &monthly})
	assert.ErrorIs(t, err, ErrInvalidTask)
	assert.Empty(t, repo.saved)
	unchanged, _ := svc.Get("a")
	assert.False(t, unchanged.IsRecurring)

	biweekly := model.RecurrenceBiweekly
	updated, err := svc.UpdateTask(ctx, "a", TaskPatch{IsRecurring: &on, RecurrenceInterval: &biweekly})
	require.NoError(t, err)
	assert.True(t, updated.IsRecurring)
	assert.Equal(t, model.RecurrenceBiweekly, updated.RecurrenceInterval)

	res, err := svc.ToggleCompletion(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, res.Rollover)
	assert.True(t, res.Rollover.DueDate.Equal(at(loc, 2026, 11, 3, 9, 0)))

	off := false
	updated, err = svc.UpdateTask(ctx, res.Rollover.ID, TaskPatch{IsRecurring: &off})
	require.NoError(t, err)
	assert.False(t, updated.IsRecurring)
	assert.Empty(t, updated.RecurrenceInterval)
}

func TestTaskService_DeleteTask(t *testing.T) {
	loc := oslo(t)
	now := at(loc, 2026, 10, 19, 8, 0)
	repo := &fakeTaskRepo{loaded: []model.Task{
		{ID: "a", DueDate: at(loc, 2026, 10, 20, 9, 0)},
		{ID: "b", DueDate: at(loc, 2026, 10, 21, 9, 0)},
	}}
	svc := newTestTaskService(t, repo, now)

	removed, err := svc.DeleteTask(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "a", removed.ID)
	assert.Equal(t, []string{"b"}, ids(svc.Snapshot()))
	assert.Equal(t, []string{"b"}, ids(repo.last()))
}

func TestTaskService_LoadSortsAndBoardUsesClock(t *testing.T) {
	loc := oslo(t)
	now := at(loc, 2026, 10, 19, 8, 0)
	repo := &fakeTaskRepo{loaded: []model.Task{
		{ID: "tomorrow", DueDate: at(loc, 2026, 10, 20, 9, 0)},
		{ID: "yesterday", DueDate: at(loc, 2026, 10, 18, 9, 0)},
		{ID: "today", DueDate: at(loc, 2026, 10, 19, 9, 0)},
	}}
	svc := newTestTaskService(t, repo, now)

	assert.Equal(t, []string{"yesterday", "today", "tomorrow"}, ids(svc.Snapshot()))

	board := svc.Board()
	assert.Equal(t, []string{"today"}, ids(board.Today))
	assert.Equal(t, []string{"tomorrow"}, ids(board.Tomorrow))
	assert.Equal(t, []string{"yesterday"}, ids(board.Later))
	assert.Equal(t, 1, board.Overdue)
}

func TestTaskService_PersistFailureKeepsMutation(t *testing.T) {
	loc := oslo(t)
	now := at(loc, 2026, 10, 19, 8, 0)
	repo := &fakeTaskRepo{saveErr: errors.New("read-only")}
	svc := newTestTaskService(t, repo, now)

	_, err := svc.AddTask(context.Background(), TaskInput{Title: "Pay rent", DueDate: now})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidTask)
	assert.Len(t, svc.Snapshot(), 1)
}

func TestTaskService_SnapshotIsACopy(t *testing.T) {
	loc := oslo(t)
	now := at(loc, 2026, 10, 19, 8, 0)
	repo := &fakeTaskRepo{loaded: []model.Task{{ID: "a", Title: "A", DueDate: now}}}
	svc := newTestTaskService(t, repo, now)

	snap := svc.Snapshot()
	snap[0].Title = "mutated"

	got, ok := svc.Get("a")
	require.True(t, ok)
	assert.Equal(t, "A", got.Title)
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lifestyle-planner/internal/model"
)

const (
	TasksKey   = "dfs_tasks"
	RecipesKey = "dfs_recipes"
)

// TaskRepository persists the whole task collection as one JSON array.
// Zone-less legacy due dates are read in loc.
type TaskRepository struct {
	store BlobStore
	loc   *time.Location
	log   *zap.Logger
}

func NewTaskRepository(store BlobStore, loc *time.Location, log *zap.Logger) *TaskRepository {
	if loc == nil {
		loc = time.Local
	}
	return &TaskRepository{store: store, loc: loc, log: log}
}

// Load never fails: a missing, unreadable or malformed blob is an empty collection.
func (r *TaskRepository) Load(ctx context.Context) []model.Task {
	data, ok := loadBlob(ctx, r.store, r.log, TasksKey)
	if !ok {
		return []model.Task{}
	}
	tasks, err := model.DecodeTasks(data, r.loc)
	if err != nil {
		r.log.Warn("malformed collection, starting empty", zap.String("key", TasksKey), zap.Error(err))
		return []model.Task{}
	}
	if tasks == nil {
		return []model.Task{}
	}
	return tasks
}

func (r *TaskRepository) Save(ctx context.Context, tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	return saveJSON(ctx, r.store, TasksKey, tasks)
}

// RecipeRepository persists saved recipes as one JSON array.
type RecipeRepository struct {
	store BlobStore
	log   *zap.Logger
}

func NewRecipeRepository(store BlobStore, log *zap.Logger) *RecipeRepository {
	return &RecipeRepository{store: store, log: log}
}

func (r *RecipeRepository) Load(ctx context.Context) []model.Recipe {
	data, ok := loadBlob(ctx, r.store, r.log, RecipesKey)
	if !ok {
		return []model.Recipe{}
	}
	var recipes []model.Recipe
	if err := json.Unmarshal(data, &recipes); err != nil {
		r.log.Warn("malformed collection, starting empty", zap.String("key", RecipesKey), zap.Error(err))
		return []model.Recipe{}
	}
	if recipes == nil {
		return []model.Recipe{}
	}
	return recipes
}

func (r *RecipeRepository) Save(ctx context.Context, recipes []model.Recipe) error {
	if recipes == nil {
		recipes = []model.Recipe{}
	}
	return saveJSON(ctx, r.store, RecipesKey, recipes)
}

func loadBlob(ctx context.Context, store BlobStore, log *zap.Logger, key string) ([]byte, bool) {
	data, ok, err := store.Load(ctx, key)
	if err != nil {
		log.Warn("load collection, starting empty", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok || len(data) == 0 {
		return nil, false
	}
	return data, true
}

func saveJSON(ctx context.Context, store BlobStore, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Save(ctx, key, data)
}

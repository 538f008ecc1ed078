package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lifestyle-planner/internal/model"
)

// RecipeGenerator is the generative-AI collaborator.
type RecipeGenerator interface {
	GenerateRecipeData(ctx context.Context, prompt string) (model.RecipeDraft, error)
	// GenerateRecipeImage returns an image reference, or "" when none could be made.
	GenerateRecipeImage(ctx context.Context, title, description string) string
}

// RecipePersister loads and saves the favorites collection.
type RecipePersister interface {
	Load(ctx context.Context) []model.Recipe
	Save(ctx context.Context, recipes []model.Recipe) error
}

// RecipePatch holds editable recipe fields. Nil fields are left alone.
type RecipePatch struct {
	Title       *string
	Description *string
	Notes       *string
}

// RecipeService runs recipe generation and owns the favorites collection.
type RecipeService struct {
	mu        sync.RWMutex
	favorites []model.Recipe

	repo  RecipePersister
	gen   RecipeGenerator
	log   *zap.Logger
	newID func() string
}

func NewRecipeService(repo RecipePersister, gen RecipeGenerator, log *zap.Logger) *RecipeService {
	return &RecipeService{
		favorites: []model.Recipe{},
		repo:      repo,
		gen:       gen,
		log:       log,
		newID:     uuid.NewString,
	}
}

func (s *RecipeService) Load(ctx context.Context) {
	recipes := s.repo.Load(ctx)
	s.mu.Lock()
	s.favorites = recipes
	s.mu.Unlock()
	s.log.Info("favorites loaded", zap.Int("count", len(recipes)))
}

// Generate asks the collaborator for a recipe and an image. Any data failure is
// reported as ErrGeneration; a missing image is not a failure. Nothing is stored.
func (s *RecipeService) Generate(ctx context.Context, prompt string) (model.Recipe, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return model.Recipe{}, ErrInvalidPrompt
	}

	draft, err := s.gen.GenerateRecipeData(ctx, prompt)
	if err != nil {
		s.log.Warn("recipe generation failed", zap.String("prompt", prompt), zap.Error(err))
		return model.Recipe{}, ErrGeneration
	}

	image := s.gen.GenerateRecipeImage(ctx, draft.Title, draft.Description)

	recipe := model.Recipe{
		ID:           s.newID(),
		Title:        draft.Title,
		Description:  draft.Description,
		Ingredients:  draft.Ingredients,
		Instructions: draft.Instructions,
		PrepTime:     draft.PrepTime,
		ImageURL:     image,
	}
	s.log.Info("recipe generated", zap.String("id", recipe.ID), zap.Bool("image", image != ""))
	return recipe, nil
}

// Save prepends the recipe to favorites. It reports false when a favorite with
// the same title already exists.
func (s *RecipeService) Save(ctx context.Context, recipe model.Recipe) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOfTitle(recipe.Title) >= 0 {
		return false, nil
	}
	next := append([]model.Recipe{recipe}, s.favorites...)
	if err := s.commit(ctx, next); err != nil {
		return true, err
	}
	s.log.Info("recipe saved", zap.String("id", recipe.ID))
	return true, nil
}

func (s *RecipeService) IsSaved(title string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOfTitle(title) >= 0
}

// Update merges the patch onto the saved recipe with the given id. Titles stay
// non-blank and unique among favorites.
func (s *RecipeService) Update(ctx context.Context, id string, patch RecipePatch) (model.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return model.Recipe{}, ErrRecipeNotFound
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return model.Recipe{}, ErrInvalidRecipe
		}
		if other := s.indexOfTitle(title); other >= 0 && other != idx {
			return model.Recipe{}, ErrInvalidRecipe
		}
		patch.Title = &title
	}
	next := append([]model.Recipe(nil), s.favorites...)
	recipe := next[idx]
	if patch.Title != nil {
		recipe.Title = *patch.Title
	}
	if patch.Description != nil {
		recipe.Description = *patch.Description
	}
	if patch.Notes != nil {
		recipe.Notes = *patch.Notes
	}
	next[idx] = recipe
	if err := s.commit(ctx, next); err != nil {
		return recipe, err
	}
	return recipe, nil
}

func (s *RecipeService) Delete(ctx context.Context, id string) (model.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return model.Recipe{}, ErrRecipeNotFound
	}
	removed := s.favorites[idx]
	next := make([]model.Recipe, 0, len(s.favorites)-1)
	next = append(next, s.favorites[:idx]...)
	next = append(next, s.favorites[idx+1:]...)
	if err := s.commit(ctx, next); err != nil {
		return removed, err
	}
	s.log.Info("recipe deleted", zap.String("id", id))
	return removed, nil
}

func (s *RecipeService) Get(id string) (model.Recipe, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return model.Recipe{}, false
	}
	return s.favorites[idx], true
}

// List returns favorites, most recently saved first.
func (s *RecipeService) List() []model.Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Recipe(nil), s.favorites...)
}

func (s *RecipeService) commit(ctx context.Context, next []model.Recipe) error {
	s.favorites = next
	if err := s.repo.Save(ctx, next); err != nil {
		s.log.Error("persist recipes", zap.Error(err))
		return fmt.Errorf("persist recipes: %w", err)
	}
	return nil
}

func (s *RecipeService) indexOf(id string) int {
	for i, recipe := range s.favorites {
		if recipe.ID == id {
			return i
		}
	}
	return -1
}

func (s *RecipeService) indexOfTitle(title string) int {
	for i, recipe := range s.favorites {
		if recipe.Title == title {
			return i
		}
	}
	return -1
}

// ShareText renders a recipe as plain text for sharing.
func ShareText(recipe model.Recipe) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Glow & Flow: %s ✨\n", recipe.Title))
	b.WriteString(fmt.Sprintf("Sjekk ut denne deilige oppskriften: %s.", recipe.Title))
	if recipe.Description != "" {
		b.WriteString(" ")
		b.WriteString(recipe.Description)
	}
	b.WriteString(" - Laget med Glow & Flow!\n\n")
	if recipe.PrepTime != "" {
		b.WriteString(fmt.Sprintf("Tid: %s\n\n", recipe.PrepTime))
	}
	b.WriteString("Ingredienser:\n")
	for _, ing := range recipe.Ingredients {
		b.WriteString(fmt.Sprintf("- %s %s\n", ing.Amount, ing.Item))
	}
	b.WriteString("\nFremgangsmåte:\n")
	for i, step := range recipe.Instructions {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, step))
	}
	if recipe.Notes != "" {
		b.WriteString(fmt.Sprintf("\nNotater: %s\n", recipe.Notes))
	}
	return strings.TrimSpace(b.String())
}

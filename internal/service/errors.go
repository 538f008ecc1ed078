package service

import "errors"

var (
	// ErrInvalidTask reports a rejected submission (blank title, missing due date, unknown interval).
	ErrInvalidTask = errors.New("task needs a title and a due date")
	// ErrTaskNotFound is returned when no task has the given id; nothing was changed.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidPrompt reports an empty recipe prompt.
	ErrInvalidPrompt = errors.New("recipe prompt is empty")
	// ErrGeneration hides every transport or parse failure of the recipe generator.
	ErrGeneration = errors.New("recipe generation failed")
	// ErrInvalidRecipe reports a blank title or a title another favorite already uses.
	ErrInvalidRecipe = errors.New("recipe needs a unique title")
	// ErrRecipeNotFound is returned when no saved recipe has the given id.
	ErrRecipeNotFound = errors.New("recipe not found")
)

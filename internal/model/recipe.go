package model

// Ingredient is one line of a recipe's shopping list.
type Ingredient struct {
	Item   string `json:"item"`
	Amount string `json:"amount"`
}

// RecipeDraft is what the recipe generator returns before an id or image is attached.
type RecipeDraft struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	PrepTime     string       `json:"prepTime"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions []string     `json:"instructions"`
}

// Recipe is a generated or saved recipe.
type Recipe struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions []string     `json:"instructions"`
	PrepTime     string       `json:"prepTime"`
	ImageURL     string       `json:"imageUrl,omitempty"`
	Notes        string       `json:"notes,omitempty"`
}

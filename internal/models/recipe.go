package models

// RecipeSearchRequest describes a complex search against the recipe provider.
// MaxReadyTime of zero leaves the preparation time unbounded.
type RecipeSearchRequest struct {
	SearchQuery   string `json:"searchQuery"`
	Ingredients   string `json:"ingredients"`
	Diet          string `json:"diet"`
	Cuisine       string `json:"cuisine"`
	ResultsAmount int    `json:"resultsAmount"`
	MaxReadyTime  int    `json:"maxReadyTime,omitempty"`
}

type RecipeSummary struct {
	RecipeID       int    `json:"recipeId"`
	Title          string `json:"title,omitempty"`
	Image          string `json:"image,omitempty"`
	ReadyInMinutes int    `json:"readyInMinutes"`
	Servings       int    `json:"servings"`
}

type RecipeDetails struct {
	RecipeSummary
	SourceURL            string                `json:"sourceUrl,omitempty"`
	ExtendedIngredients  []Ingredient          `json:"extendedIngredients"`
	Instructions         string                `json:"instructions,omitempty"`
	AnalyzedInstructions []AnalyzedInstruction `json:"analyzedInstructions"`
}

type Ingredient struct {
	ID       int     `json:"id"`
	Name     string  `json:"name,omitempty"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit,omitempty"`
	Original string  `json:"original,omitempty"`
	Image    string  `json:"image,omitempty"`
}

type AnalyzedInstruction struct {
	Steps []InstructionStep `json:"steps"`
}

type InstructionStep struct {
	Number int    `json:"number"`
	Step   string `json:"step,omitempty"`
}

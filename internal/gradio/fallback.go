package gradio

import (
	"strings"
	"time"

	"github.com/aigoflow/chef-gateway/internal/models"
)

type cannedRecipe struct {
	keywords []string
	text     string
}

// cannedRecipes is checked in order, so compound dishes must come before
// the single ingredients they contain.
var cannedRecipes = []cannedRecipe{
	{
		keywords: []string{"cheeseburger", "burger"},
		text: "Classic Cheeseburger:\n\n" +
			"Step 1: Shape ground beef into patties, season with salt and pepper\n" +
			"Step 2: Heat a pan or grill over high heat (3 mins)\n" +
			"Step 3: Cook patties 3-4 mins per side\n" +
			"Step 4: Add a slice of cheese in the last minute and cover to melt\n" +
			"Step 5: Serve on toasted buns with lettuce, tomato and sauce\n\n" +
			"Tip: Press a dimple into each patty so it stays flat!",
	},
	{
		keywords: []string{"pasta", "spaghetti", "noodle"},
		text: "Quick Pasta Recipe:\n\n" +
			"Step 1: Boil salted water (10 mins)\n" +
			"Step 2: Cook pasta according to package (8-10 mins)\n" +
			"Step 3: Meanwhile, sauté garlic in olive oil (2 mins)\n" +
			"Step 4: Toss pasta with garlic oil, add parmesan\n\n" +
			"Tip: Save pasta water to adjust sauce consistency!",
	},
	{
		keywords: []string{"chicken"},
		text: "Simple Chicken Recipe:\n\n" +
			"Step 1: Season chicken with salt and pepper\n" +
			"Step 2: Heat oil in pan over medium-high (2 mins)\n" +
			"Step 3: Cook chicken 6-7 mins per side\n" +
			"Step 4: Rest for 5 mins before serving\n\n" +
			"Internal temp should reach 165°F!",
	},
	{
		keywords: []string{"egg"},
		text: "Perfect Scrambled Eggs:\n\n" +
			"Step 1: Beat eggs with a splash of milk\n" +
			"Step 2: Heat butter in pan on low heat\n" +
			"Step 3: Pour eggs, stir gently with spatula\n" +
			"Step 4: Remove from heat while slightly wet\n\n" +
			"Secret: Low and slow is key!",
	},
	{
		keywords: []string{"cheese"},
		text: "Grilled Cheese Sandwich:\n\n" +
			"Step 1: Butter one side of two bread slices\n" +
			"Step 2: Place cheese between the unbuttered sides\n" +
			"Step 3: Cook in a pan over medium-low heat (3-4 mins per side)\n" +
			"Step 4: Rest for 1 min, then slice\n\n" +
			"Tip: Mix two cheeses for a better melt!",
	},
}

const genericRecipe = "Quick & Easy Recipe:\n\n" +
	"Ingredients:\n" +
	"- Your choice of protein\n" +
	"- Fresh vegetables\n" +
	"- Olive oil\n" +
	"- Salt & pepper\n\n" +
	"Steps:\n" +
	"1. Season and prep ingredients\n" +
	"2. Heat oil in pan\n" +
	"3. Cook protein until done\n" +
	"4. Add vegetables, cook until tender\n" +
	"5. Season to taste and serve!"

// Fallback builds the locally generated answer used whenever the Space
// cannot produce one.
func Fallback(prompt, model string) models.GenerationResponse {
	return models.GenerationResponse{
		BackendModel: model,
		CreatedAt:    time.Now().UTC(),
		ResultText:   fallbackText(prompt),
		IsFinal:      true,
	}
}

func fallbackText(prompt string) string {
	lower := strings.ToLower(prompt)
	for _, recipe := range cannedRecipes {
		for _, kw := range recipe.keywords {
			if strings.Contains(lower, kw) {
				return recipe.text
			}
		}
	}
	return genericRecipe
}

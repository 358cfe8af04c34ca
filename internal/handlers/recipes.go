package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aigoflow/chef-gateway/internal/models"
	"github.com/aigoflow/chef-gateway/internal/recipes"
)

const (
	defaultSearchResults    = 10
	defaultRandomResults    = 1
	defaultSimilarResults   = 5
	defaultCategoryResults  = 10
	defaultDashboardResults = 6
	defaultQuickMinutes     = 30
)

type RecipeHandler struct {
	provider recipes.Provider
}

func NewRecipeHandler(provider recipes.Provider) *RecipeHandler {
	return &RecipeHandler{provider: provider}
}

func (h *RecipeHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /recipes/search", h.handleSearch)
	mux.HandleFunc("GET /recipes/random", h.handleRandom)
	mux.HandleFunc("GET /recipes/similar", h.handleSimilar)
	mux.HandleFunc("GET /recipes/dashboard", h.handleDashboard)
	mux.HandleFunc("GET /recipes/quick", h.handleQuick)
	mux.HandleFunc("GET /recipes/quick/{minutes}", h.handleQuick)
	mux.HandleFunc("GET /recipes/cuisine/{cuisine}", h.handleCuisine)
	// {resource} instead of a literal "details" keeps this from
	// overlapping the cuisine and quick routes above.
	mux.HandleFunc("GET /recipes/{recipeId}/{resource}", h.handleRecipe)

	for _, category := range []recipes.Category{
		recipes.CategoryVegan, recipes.CategoryVegetarian, recipes.CategoryBeef,
		recipes.CategoryChicken, recipes.CategoryFish, recipes.CategoryDesserts,
		recipes.CategoryHalaal,
	} {
		mux.HandleFunc("GET /recipes/"+string(category), h.categoryHandler(category))
	}
}

func (h *RecipeHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := models.RecipeSearchRequest{
		SearchQuery:   firstOf(q.Get("searchQuery"), q.Get("query")),
		Ingredients:   firstOf(q.Get("ingredients"), q.Get("includeIngredients")),
		Diet:          q.Get("diet"),
		Cuisine:       q.Get("cuisine"),
		ResultsAmount: intParam(firstOf(q.Get("resultsAmount"), q.Get("number")), defaultSearchResults),
		MaxReadyTime:  intParam(q.Get("maxReadyTime"), 0),
	}

	list, err := h.provider.ComplexSearch(r.Context(), req)
	h.respond(w, "search", list, err)
}

func (h *RecipeHandler) handleRecipe(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("resource") != "details" {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.Atoi(r.PathValue("recipeId"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid recipe ID")
		return
	}

	details, err := h.provider.Recipe(r.Context(), id)
	h.respond(w, "details", details, err)
}

func (h *RecipeHandler) handleRandom(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.provider.Random(r.Context(), q.Get("tags"), intParam(q.Get("number"), defaultRandomResults))
	h.respond(w, "random", list, err)
}

func (h *RecipeHandler) handleSimilar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, err := strconv.Atoi(q.Get("recipeId"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid or missing recipe ID")
		return
	}

	list, err := h.provider.Similar(r.Context(), id, intParam(q.Get("number"), defaultSimilarResults))
	h.respond(w, "similar", list, err)
}

func (h *RecipeHandler) categoryHandler(category recipes.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number := intParam(r.URL.Query().Get("number"), defaultCategoryResults)
		list, err := h.provider.Category(r.Context(), category, number)
		h.respond(w, string(category), list, err)
	}
}

func (h *RecipeHandler) handleCuisine(w http.ResponseWriter, r *http.Request) {
	number := intParam(r.URL.Query().Get("number"), defaultCategoryResults)
	list, err := h.provider.Cuisine(r.Context(), r.PathValue("cuisine"), number)
	h.respond(w, "cuisine", list, err)
}

func (h *RecipeHandler) handleQuick(w http.ResponseWriter, r *http.Request) {
	minutes := defaultQuickMinutes
	if raw := r.PathValue("minutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid minutes")
			return
		}
		minutes = n
	}

	number := intParam(r.URL.Query().Get("number"), defaultCategoryResults)
	list, err := h.provider.Quick(r.Context(), minutes, number)
	h.respond(w, "quick", list, err)
}

func (h *RecipeHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	number := intParam(r.URL.Query().Get("number"), defaultDashboardResults)
	board, err := h.provider.Dashboard(r.Context(), number)
	h.respond(w, "dashboard", board, err)
}

func (h *RecipeHandler) respond(w http.ResponseWriter, op string, v any, err error) {
	if err != nil {
		slog.Error("Recipe request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// intParam parses a positive integer query value, or returns def.
func intParam(raw string, def int) int {
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return n
	}
	return def
}

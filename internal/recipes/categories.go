package recipes

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aigoflow/chef-gateway/internal/models"
)

// Category is a dashboard shortcut onto the search or random endpoints.
type Category string

const (
	CategoryVegan      Category = "vegan"
	CategoryVegetarian Category = "vegetarian"
	CategoryBeef       Category = "beef"
	CategoryChicken    Category = "chicken"
	CategoryFish       Category = "fish"
	CategoryDesserts   Category = "desserts"
	CategoryHalaal     Category = "halaal"
	CategoryQuick      Category = "quick"
)

// DashboardCategories are fetched together by Dashboard.
var DashboardCategories = []Category{
	CategoryVegan, CategoryVegetarian, CategoryBeef, CategoryChicken,
	CategoryFish, CategoryDesserts, CategoryHalaal, CategoryQuick,
}

const (
	defaultQuickMinutes = 30
	dashboardParallel   = 4
)

// Category resolves a shortcut to its underlying query.
func (c *Client) Category(ctx context.Context, category Category, number int) ([]models.RecipeSummary, error) {
	if number <= 0 {
		number = 10
	}
	switch category {
	case CategoryVegan, CategoryVegetarian:
		return c.ComplexSearch(ctx, models.RecipeSearchRequest{Diet: string(category), ResultsAmount: number})
	case CategoryBeef, CategoryChicken, CategoryFish, CategoryHalaal:
		return c.ComplexSearch(ctx, models.RecipeSearchRequest{SearchQuery: string(category), ResultsAmount: number})
	case CategoryDesserts:
		return c.Random(ctx, "dessert", number)
	case CategoryQuick:
		return c.Quick(ctx, defaultQuickMinutes, number)
	default:
		return nil, fmt.Errorf("unknown recipe category %q", category)
	}
}

func (c *Client) Cuisine(ctx context.Context, cuisine string, number int) ([]models.RecipeSummary, error) {
	if number <= 0 {
		number = 10
	}
	return c.ComplexSearch(ctx, models.RecipeSearchRequest{Cuisine: cuisine, ResultsAmount: number})
}

// Quick searches for recipes ready within maxMinutes.
func (c *Client) Quick(ctx context.Context, maxMinutes, number int) ([]models.RecipeSummary, error) {
	if maxMinutes <= 0 {
		maxMinutes = defaultQuickMinutes
	}
	if number <= 0 {
		number = 10
	}
	return c.ComplexSearch(ctx, models.RecipeSearchRequest{MaxReadyTime: maxMinutes, ResultsAmount: number})
}

// Dashboard fetches every DashboardCategories entry concurrently. The first
// failure cancels the rest.
func (c *Client) Dashboard(ctx context.Context, number int) (map[Category][]models.RecipeSummary, error) {
	var mu sync.Mutex
	out := make(map[Category][]models.RecipeSummary, len(DashboardCategories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dashboardParallel)
	for _, category := range DashboardCategories {
		g.Go(func() error {
			list, err := c.Category(gctx, category, number)
			if err != nil {
				return fmt.Errorf("%s: %w", category, err)
			}
			mu.Lock()
			out[category] = list
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

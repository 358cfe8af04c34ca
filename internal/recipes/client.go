// Package recipes is a client for the Spoonacular recipe API as published
// on RapidAPI. Responses are cached per operation.
package recipes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aigoflow/chef-gateway/internal/models"
)

const (
	searchTTL  = 30 * time.Minute
	randomTTL  = 10 * time.Minute
	detailsTTL = 6 * time.Hour
	similarTTL = 2 * time.Hour
)

// Cache is the subset of the cache repository the client needs.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Provider is implemented by Client and consumed by the HTTP handlers.
type Provider interface {
	ComplexSearch(ctx context.Context, req models.RecipeSearchRequest) ([]models.RecipeSummary, error)
	Random(ctx context.Context, tags string, number int) ([]models.RecipeSummary, error)
	Recipe(ctx context.Context, recipeID int) (*models.RecipeDetails, error)
	Similar(ctx context.Context, recipeID, number int) ([]models.RecipeSummary, error)
	Category(ctx context.Context, category Category, number int) ([]models.RecipeSummary, error)
	Cuisine(ctx context.Context, cuisine string, number int) ([]models.RecipeSummary, error)
	Quick(ctx context.Context, maxMinutes, number int) ([]models.RecipeSummary, error)
	Dashboard(ctx context.Context, number int) (map[Category][]models.RecipeSummary, error)
}

// UpstreamError reports a non-2xx answer from the provider.
type UpstreamError struct {
	StatusCode int
	Status     string
	Path       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("recipe provider returned %s for %s", e.Status, e.Path)
}

type Config struct {
	BaseURL string
	APIKey  string
	APIHost string
	Timeout time.Duration
}

type Client struct {
	cfg   Config
	http  *http.Client
	cache Cache
}

func NewClient(cfg Config, cache Cache, httpClient *http.Client) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cache == nil {
		cache = noCache{}
	}
	return &Client{cfg: cfg, http: httpClient, cache: cache}
}

// spoonRecipe mirrors the provider's recipe JSON.
type spoonRecipe struct {
	ID                   int                          `json:"id"`
	Title                string                       `json:"title"`
	Image                string                       `json:"image"`
	ReadyInMinutes       int                          `json:"readyInMinutes"`
	Servings             int                          `json:"servings"`
	SourceURL            string                       `json:"sourceUrl"`
	Instructions         string                       `json:"instructions"`
	ExtendedIngredients  []models.Ingredient          `json:"extendedIngredients"`
	AnalyzedInstructions []models.AnalyzedInstruction `json:"analyzedInstructions"`
}

func (r spoonRecipe) summary() models.RecipeSummary {
	return models.RecipeSummary{
		RecipeID:       r.ID,
		Title:          r.Title,
		Image:          r.Image,
		ReadyInMinutes: r.ReadyInMinutes,
		Servings:       r.Servings,
	}
}

func summaries(rs []spoonRecipe) []models.RecipeSummary {
	out := make([]models.RecipeSummary, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.summary())
	}
	return out
}

// ComplexSearch runs /recipes/complexSearch.
func (c *Client) ComplexSearch(ctx context.Context, req models.RecipeSearchRequest) ([]models.RecipeSummary, error) {
	if req.ResultsAmount <= 0 {
		req.ResultsAmount = 10
	}
	key := strings.ToLower(fmt.Sprintf("recipes:complex:%s:%s:%s:%s:%d:%d",
		req.SearchQuery, req.Ingredients, req.Diet, req.Cuisine, req.MaxReadyTime, req.ResultsAmount))

	return cached(ctx, c, key, searchTTL, func(ctx context.Context) ([]models.RecipeSummary, error) {
		q := url.Values{}
		q.Set("query", req.SearchQuery)
		setIf(q, "includeIngredients", req.Ingredients)
		setIf(q, "diet", req.Diet)
		setIf(q, "cuisine", req.Cuisine)
		if req.MaxReadyTime > 0 {
			q.Set("maxReadyTime", strconv.Itoa(req.MaxReadyTime))
		}
		q.Set("number", strconv.Itoa(req.ResultsAmount))
		q.Set("instructionsRequired", "true")

		var resp struct {
			Results []spoonRecipe `json:"results"`
		}
		if err := c.get(ctx, "/recipes/complexSearch", q, &resp); err != nil {
			return nil, err
		}
		return summaries(resp.Results), nil
	})
}

// Random runs /recipes/random, optionally filtered by comma separated tags.
func (c *Client) Random(ctx context.Context, tags string, number int) ([]models.RecipeSummary, error) {
	if number <= 0 {
		number = 1
	}
	key := fmt.Sprintf("recipes:random:%s:%d", strings.ToLower(tags), number)

	return cached(ctx, c, key, randomTTL, func(ctx context.Context) ([]models.RecipeSummary, error) {
		q := url.Values{}
		q.Set("number", strconv.Itoa(number))
		setIf(q, "tags", tags)

		var resp struct {
			Recipes []spoonRecipe `json:"recipes"`
		}
		if err := c.get(ctx, "/recipes/random", q, &resp); err != nil {
			return nil, err
		}
		return summaries(resp.Recipes), nil
	})
}

// Recipe returns full details for one recipe.
func (c *Client) Recipe(ctx context.Context, recipeID int) (*models.RecipeDetails, error) {
	key := fmt.Sprintf("recipes:details:%d", recipeID)

	return cached(ctx, c, key, detailsTTL, func(ctx context.Context) (*models.RecipeDetails, error) {
		var r spoonRecipe
		if err := c.get(ctx, fmt.Sprintf("/recipes/%d/information", recipeID), nil, &r); err != nil {
			return nil, err
		}
		details := &models.RecipeDetails{
			RecipeSummary:        r.summary(),
			SourceURL:            r.SourceURL,
			ExtendedIngredients:  r.ExtendedIngredients,
			Instructions:         r.Instructions,
			AnalyzedInstructions: r.AnalyzedInstructions,
		}
		if details.ExtendedIngredients == nil {
			details.ExtendedIngredients = []models.Ingredient{}
		}
		if details.AnalyzedInstructions == nil {
			details.AnalyzedInstructions = []models.AnalyzedInstruction{}
		}
		return details, nil
	})
}

// Similar returns recipes similar to recipeID.
func (c *Client) Similar(ctx context.Context, recipeID, number int) ([]models.RecipeSummary, error) {
	if number <= 0 {
		number = 5
	}
	key := fmt.Sprintf("recipes:similar:%d:%d", recipeID, number)

	return cached(ctx, c, key, similarTTL, func(ctx context.Context) ([]models.RecipeSummary, error) {
		q := url.Values{}
		q.Set("number", strconv.Itoa(number))

		var rs []spoonRecipe
		if err := c.get(ctx, fmt.Sprintf("/recipes/%d/similar", recipeID), q, &rs); err != nil {
			return nil, err
		}
		return summaries(rs), nil
	})
}

// get issues a GET against the provider and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.cfg.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("x-rapidapi-key", c.cfg.APIKey)
	}
	if c.cfg.APIHost != "" {
		req.Header.Set("x-rapidapi-host", c.cfg.APIHost)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("recipe request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &UpstreamError{StatusCode: resp.StatusCode, Status: resp.Status, Path: path}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// cached serves key from the cache or calls fetch and stores its result.
// Cache failures are logged and never fail the call.
func cached[T any](ctx context.Context, c *Client, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if raw, ok, err := c.cache.Get(ctx, key); err != nil {
		slog.Warn("Cache read failed", "key", key, "error", err)
	} else if ok {
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v, nil
		}
		slog.Warn("Discarding undecodable cache entry", "key", key)
	}

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}

	if b, err := json.Marshal(v); err == nil {
		if err := c.cache.Set(ctx, key, string(b), ttl); err != nil {
			slog.Warn("Cache write failed", "key", key, "error", err)
		}
	}
	return v, nil
}

func setIf(q url.Values, key, value string) {
	if strings.TrimSpace(value) != "" {
		q.Set(key, value)
	}
}

type noCache struct{}

func (noCache) Get(context.Context, string) (string, bool, error)        { return "", false, nil }
func (noCache) Set(context.Context, string, string, time.Duration) error { return nil }

var _ Provider = (*Client)(nil)

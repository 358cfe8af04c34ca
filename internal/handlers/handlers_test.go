package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aigoflow/chef-gateway/internal/models"
	"github.com/aigoflow/chef-gateway/internal/recipes"
	"github.com/aigoflow/chef-gateway/internal/services"
)

type mockChat struct {
	mock.Mock
}

func (m *mockChat) Process(ctx context.Context, req services.ChatRequest, source string) *services.ChatResponse {
	return m.Called(ctx, req, source).Get(0).(*services.ChatResponse)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) list(args mock.Arguments) ([]models.RecipeSummary, error) {
	l, _ := args.Get(0).([]models.RecipeSummary)
	return l, args.Error(1)
}

func (m *mockProvider) ComplexSearch(ctx context.Context, req models.RecipeSearchRequest) ([]models.RecipeSummary, error) {
	return m.list(m.Called(ctx, req))
}

func (m *mockProvider) Random(ctx context.Context, tags string, number int) ([]models.RecipeSummary, error) {
	return m.list(m.Called(ctx, tags, number))
}

func (m *mockProvider) Recipe(ctx context.Context, recipeID int) (*models.RecipeDetails, error) {
	args := m.Called(ctx, recipeID)
	d, _ := args.Get(0).(*models.RecipeDetails)
	return d, args.Error(1)
}

func (m *mockProvider) Similar(ctx context.Context, recipeID, number int) ([]models.RecipeSummary, error) {
	return m.list(m.Called(ctx, recipeID, number))
}

func (m *mockProvider) Category(ctx context.Context, category recipes.Category, number int) ([]models.RecipeSummary, error) {
	return m.list(m.Called(ctx, category, number))
}

func (m *mockProvider) Cuisine(ctx context.Context, cuisine string, number int) ([]models.RecipeSummary, error) {
	return m.list(m.Called(ctx, cuisine, number))
}

func (m *mockProvider) Quick(ctx context.Context, maxMinutes, number int) ([]models.RecipeSummary, error) {
	return m.list(m.Called(ctx, maxMinutes, number))
}

func (m *mockProvider) Dashboard(ctx context.Context, number int) (map[recipes.Category][]models.RecipeSummary, error) {
	args := m.Called(ctx, number)
	b, _ := args.Get(0).(map[recipes.Category][]models.RecipeSummary)
	return b, args.Error(1)
}

type stubHealth struct{}

func (stubHealth) Status() services.HealthStatus {
	return services.HealthStatus{ServiceName: "chef", Status: "online"}
}

type stubLogs struct {
	limit int
	logs  []*models.RequestLog
	err   error
}

func (s *stubLogs) GetRequestLogs(_ context.Context, limit int) ([]*models.RequestLog, error) {
	s.limit = limit
	return s.logs, s.err
}

func serve(t *testing.T, register func(*http.ServeMux), method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	register(mux)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestChatQuery(t *testing.T) {
	chat := &mockChat{}
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	chat.On("Process", mock.Anything, mock.MatchedBy(func(req services.ChatRequest) bool {
		return req.Request.Prompt() == "a quick pasta" && req.TraceID == ""
	}), "http").Return(&services.ChatResponse{
		ReqID:    "01HZX",
		Response: models.GenerationResponse{BackendModel: "m", CreatedAt: created, ResultText: "Boil.", IsFinal: true},
	})

	rec := serve(t, NewChatHandler(chat).RegisterRoutes, http.MethodPost, "/chat/query",
		`{"messages":[{"role":"user","content":"a quick pasta"}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "01HZX", rec.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `{"model":"m","createdAt":"2024-05-01T12:00:00Z","recipe":"Boil.","done":true}`, rec.Body.String())
	chat.AssertExpectations(t)
}

func TestChatQueryRejectsBadBodies(t *testing.T) {
	bodies := map[string]string{
		"empty body":    ``,
		"malformed":     `{"messages":`,
		"no messages":   `{"messages":[]}`,
		"missing field": `{"model":"m"}`,
		"unknown role":  `{"messages":[{"role":"chef","content":"hi"}]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			chat := &mockChat{}
			rec := serve(t, NewChatHandler(chat).RegisterRoutes, http.MethodPost, "/chat/query", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid request body or empty messages", decodeError(t, rec))
			chat.AssertNotCalled(t, "Process", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestChatQueryIsPostOnly(t *testing.T) {
	rec := serve(t, NewChatHandler(&mockChat{}).RegisterRoutes, http.MethodGet, "/chat/query", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecipeSearchAliases(t *testing.T) {
	provider := &mockProvider{}
	provider.On("ComplexSearch", mock.Anything, models.RecipeSearchRequest{
		SearchQuery: "curry", Ingredients: "lentils", Diet: "vegan", Cuisine: "indian", ResultsAmount: 4, MaxReadyTime: 45,
	}).Return([]models.RecipeSummary{{RecipeID: 1, Title: "Dal"}}, nil).Twice()

	register := NewRecipeHandler(provider).RegisterRoutes
	for _, target := range []string{
		"/recipes/search?searchQuery=curry&ingredients=lentils&diet=vegan&cuisine=indian&resultsAmount=4&maxReadyTime=45",
		"/recipes/search?query=curry&includeIngredients=lentils&diet=vegan&cuisine=indian&number=4&maxReadyTime=45",
	} {
		rec := serve(t, register, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code, target)
		assert.JSONEq(t, `[{"recipeId":1,"title":"Dal","readyInMinutes":0,"servings":0}]`, rec.Body.String())
	}
	provider.AssertExpectations(t)
}

func TestRecipeSearchDefaults(t *testing.T) {
	provider := &mockProvider{}
	provider.On("ComplexSearch", mock.Anything, models.RecipeSearchRequest{SearchQuery: "soup", ResultsAmount: 10}).
		Return([]models.RecipeSummary{}, nil)

	rec := serve(t, NewRecipeHandler(provider).RegisterRoutes, http.MethodGet, "/recipes/search?query=soup&number=abc", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRecipeRoutes(t *testing.T) {
	tests := []struct {
		name   string
		target string
		setup  func(p *mockProvider)
	}{
		{"details", "/recipes/42/details", func(p *mockProvider) {
			p.On("Recipe", mock.Anything, 42).Return(&models.RecipeDetails{RecipeSummary: models.RecipeSummary{RecipeID: 42}}, nil)
		}},
		{"random default", "/recipes/random", func(p *mockProvider) {
			p.On("Random", mock.Anything, "", 1).Return([]models.RecipeSummary{}, nil)
		}},
		{"random tags", "/recipes/random?tags=vegan,dessert&number=3", func(p *mockProvider) {
			p.On("Random", mock.Anything, "vegan,dessert", 3).Return([]models.RecipeSummary{}, nil)
		}},
		{"similar", "/recipes/similar?recipeId=42", func(p *mockProvider) {
			p.On("Similar", mock.Anything, 42, 5).Return([]models.RecipeSummary{}, nil)
		}},
		{"vegan", "/recipes/vegan", func(p *mockProvider) {
			p.On("Category", mock.Anything, recipes.CategoryVegan, 10).Return([]models.RecipeSummary{}, nil)
		}},
		{"halaal", "/recipes/halaal?number=2", func(p *mockProvider) {
			p.On("Category", mock.Anything, recipes.CategoryHalaal, 2).Return([]models.RecipeSummary{}, nil)
		}},
		{"desserts", "/recipes/desserts", func(p *mockProvider) {
			p.On("Category", mock.Anything, recipes.CategoryDesserts, 10).Return([]models.RecipeSummary{}, nil)
		}},
		{"cuisine", "/recipes/cuisine/thai", func(p *mockProvider) {
			p.On("Cuisine", mock.Anything, "thai", 10).Return([]models.RecipeSummary{}, nil)
		}},
		{"quick default", "/recipes/quick", func(p *mockProvider) {
			p.On("Quick", mock.Anything, 30, 10).Return([]models.RecipeSummary{}, nil)
		}},
		{"quick minutes", "/recipes/quick/15", func(p *mockProvider) {
			p.On("Quick", mock.Anything, 15, 10).Return([]models.RecipeSummary{}, nil)
		}},
		{"dashboard", "/recipes/dashboard", func(p *mockProvider) {
			p.On("Dashboard", mock.Anything, 6).Return(map[recipes.Category][]models.RecipeSummary{
				recipes.CategoryVegan: {{RecipeID: 3}},
			}, nil)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &mockProvider{}
			tt.setup(provider)

			rec := serve(t, NewRecipeHandler(provider).RegisterRoutes, http.MethodGet, tt.target, "")

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			provider.AssertExpectations(t)
		})
	}
}

func TestRecipeBadParameters(t *testing.T) {
	for _, target := range []string{
		"/recipes/similar",
		"/recipes/similar?recipeId=abc",
		"/recipes/abc/details",
		"/recipes/quick/soon",
	} {
		provider := &mockProvider{}
		rec := serve(t, NewRecipeHandler(provider).RegisterRoutes, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Empty(t, provider.Calls, target)
	}
}

func TestRecipeUnknownResourceIsNotFound(t *testing.T) {
	rec := serve(t, NewRecipeHandler(&mockProvider{}).RegisterRoutes, http.MethodGet, "/recipes/42/nutrition", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecipeProviderErrorIs500(t *testing.T) {
	provider := &mockProvider{}
	provider.On("Recipe", mock.Anything, 7).Return(nil, &recipes.UpstreamError{StatusCode: 402, Status: "402 Payment Required", Path: "/recipes/7/information"})

	rec := serve(t, NewRecipeHandler(provider).RegisterRoutes, http.MethodGet, "/recipes/7/details", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeError(t, rec), "402 Payment Required")
}

func TestHealthz(t *testing.T) {
	rec := serve(t, NewHealthHandler(stubHealth{}, &stubLogs{}).RegisterRoutes, http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var status services.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "online", status.Status)
}

func TestLogs(t *testing.T) {
	logs := &stubLogs{}
	register := NewHealthHandler(stubHealth{}, logs).RegisterRoutes

	rec := serve(t, register, http.MethodGet, "/logs", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, logs.limit)
	assert.JSONEq(t, `[]`, rec.Body.String())

	logs.logs = []*models.RequestLog{{ReqID: "r1", Status: "ok"}}
	rec = serve(t, register, http.MethodGet, "/logs?limit=5", "")
	assert.Equal(t, 5, logs.limit)
	assert.Contains(t, rec.Body.String(), `"req_id":"r1"`)

	logs.err = errors.New("no such table")
	rec = serve(t, register, http.MethodGet, "/logs", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLogsLimitIsCapped(t *testing.T) {
	logs := &stubLogs{}
	register := NewHealthHandler(stubHealth{}, logs).RegisterRoutes

	rec := serve(t, register, http.MethodGet, "/logs?limit=99999999999", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxLogLimit, logs.limit)

	rec = serve(t, register, http.MethodGet, "/logs?limit=-3", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, logs.limit)
}

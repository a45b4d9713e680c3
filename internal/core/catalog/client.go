package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"recipe-planner/internal/core/grocery"
	"recipe-planner/internal/infrastructure/config"
	"recipe-planner/internal/metrics"
	"recipe-planner/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Recipe 目錄服務回傳的食譜
type Recipe struct {
	ID                int64              `json:"id"`
	Title             string             `json:"title"`
	RecipeIngredients []RecipeIngredient `json:"recipe_ingredients"`
}

// RecipeIngredient 目錄服務回傳的食材行
type RecipeIngredient struct {
	ID         int64           `json:"id"`
	Ingredient Ingredient      `json:"ingredient"`
	Quantity   decimal.Decimal `json:"quantity"`
	Unit       string          `json:"unit"`
	Notes      string          `json:"notes"`
}

// Ingredient 食材
type Ingredient struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Lines 轉為彙整用的食材行
func (r *Recipe) Lines() []grocery.IngredientLine {
	lines := make([]grocery.IngredientLine, 0, len(r.RecipeIngredients))
	for _, ri := range r.RecipeIngredients {
		lines = append(lines, grocery.IngredientLine{
			Name:     ri.Ingredient.Name,
			Quantity: ri.Quantity,
			Unit:     ri.Unit,
			Notes:    ri.Notes,
		})
	}
	return lines
}

// Client 遠端食譜目錄 REST 客戶端
type Client struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker[*Recipe]
}

// NewClient 建立目錄客戶端
func NewClient(cfg config.CatalogConfig) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	if cfg.APIKey != "" {
		client.SetHeader("X-API-Key", cfg.APIKey)
	}

	return &Client{client: client, breaker: newBreaker()}
}

// newBreaker 連續失敗 5 次後暫停呼叫 30 秒，找不到食譜不算失敗
func newBreaker() *gobreaker.CircuitBreaker[*Recipe] {
	return gobreaker.NewCircuitBreaker[*Recipe](gobreaker.Settings{
		Name:        "recipe-catalog",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, common.ErrRecipeNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			common.LogWarn("Catalog circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Recipe 取得食譜，斷路器開啟時直接回傳 ErrCatalogUnavailable
func (c *Client) Recipe(ctx context.Context, recipeID int64) (*Recipe, error) {
	recipe, err := c.breaker.Execute(func() (*Recipe, error) {
		return c.fetch(ctx, recipeID)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.CatalogRequests.WithLabelValues("circuit_open").Inc()
		return nil, common.ErrCatalogUnavailable.Wrap(err)
	}
	return recipe, err
}

func (c *Client) fetch(ctx context.Context, recipeID int64) (*Recipe, error) {
	var recipe Recipe
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(recipeID, 10)).
		SetResult(&recipe).
		Get("/api/recipes/{id}/")
	if err != nil {
		metrics.CatalogRequests.WithLabelValues("error").Inc()
		common.LogError("Catalog request failed", zap.Int64("recipe_id", recipeID), zap.Error(err))
		return nil, common.ErrCatalogUnavailable.Wrap(err)
	}

	metrics.CatalogRequests.WithLabelValues(strconv.Itoa(resp.StatusCode())).Inc()
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, common.ErrRecipeNotFound.Wrap(fmt.Errorf("recipe %d", recipeID))
	case resp.StatusCode() != http.StatusOK:
		return nil, common.ErrCatalogUnavailable.Wrap(fmt.Errorf("catalog returned %d: %s", resp.StatusCode(), resp.String()))
	}

	common.LogDebug("Catalog recipe fetched",
		zap.Int64("recipe_id", recipeID),
		zap.Int("ingredients", len(recipe.RecipeIngredients)),
		zap.Duration("latency", resp.Time()),
	)
	return &recipe, nil
}

// IngredientLines 實作 grocery.LineSource
func (c *Client) IngredientLines(ctx context.Context, recipeID int64) ([]grocery.IngredientLine, error) {
	recipe, err := c.Recipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	return recipe.Lines(), nil
}

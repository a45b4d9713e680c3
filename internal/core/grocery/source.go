package grocery

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// LineSource 依食譜 ID 取得食材行
type LineSource interface {
	IngredientLines(ctx context.Context, recipeID int64) ([]IngredientLine, error)
}

// LineSourceFunc 讓一般函式實作 LineSource
type LineSourceFunc func(ctx context.Context, recipeID int64) ([]IngredientLine, error)

// IngredientLines 實作 LineSource
func (f LineSourceFunc) IngredientLines(ctx context.Context, recipeID int64) ([]IngredientLine, error) {
	return f(ctx, recipeID)
}

// StaticSource 記憶體中的食材行，未知食譜視為沒有食材
type StaticSource map[int64][]IngredientLine

// IngredientLines 實作 LineSource
func (s StaticSource) IngredientLines(_ context.Context, recipeID int64) ([]IngredientLine, error) {
	return s[recipeID], nil
}

// Prefetch 併發取得每個不重複食譜的食材行，limit 為同時進行的查詢數
//
// 任一查詢失敗會取消其他查詢並回傳該錯誤。
func Prefetch(ctx context.Context, src LineSource, entries []MealPlanEntry, limit int) (StaticSource, error) {
	ids := make([]int64, 0, len(entries))
	seen := make(map[int64]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.RecipeID]; ok {
			continue
		}
		seen[e.RecipeID] = struct{}{}
		ids = append(ids, e.RecipeID)
	}

	result := make(StaticSource, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, id := range ids {
		id := id // per-iteration copy (go.mod targets go1.21 loop semantics)
		g.Go(func() error {
			lines, err := src.IngredientLines(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			result[id] = lines
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"recipe-planner/internal/core/grocery"
	"recipe-planner/internal/pkg/common"
)

// Fixture 範例資料檔
type Fixture struct {
	Recipes   []Recipe          `json:"recipes"`
	MealPlans []FixtureMealPlan `json:"meal_plans"`
}

// FixtureMealPlan 以食譜標題參照食譜的餐點計畫
type FixtureMealPlan struct {
	UserID   int64  `json:"user_id"`
	Recipe   string `json:"recipe"`
	Date     string `json:"date"`
	MealType string `json:"meal_type"`
	Notes    string `json:"notes"`
}

// FixtureResult 載入結果
type FixtureResult struct {
	Recipes       int
	ReusedRecipes int
	MealPlans     []grocery.MealPlanEntry
	Skipped       int
}

// LoadFixture 在單一交易中寫入食譜與餐點計畫，可重複執行
//
// 標題相同（不分大小寫）的食譜沿用既有資料，已存在的餐點時段會略過；
// 任何錯誤都會回滾整批資料。
func (r *SQLiteRepository) LoadFixture(ctx context.Context, f Fixture) (FixtureResult, error) {
	var result FixtureResult
	for i, recipe := range f.Recipes {
		if err := validateRecipe(recipe); err != nil {
			return result, fmt.Errorf("recipes[%d]: %w", i, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ids := make(map[string]int64, len(f.Recipes))
	for _, recipe := range f.Recipes {
		key := strings.ToLower(strings.TrimSpace(recipe.Title))
		if _, ok := ids[key]; ok {
			continue
		}
		id, err := findRecipeByTitle(ctx, tx, recipe.Title)
		if err != nil {
			return FixtureResult{}, err
		}
		if id != 0 {
			ids[key] = id
			result.ReusedRecipes++
			continue
		}
		if id, err = insertRecipe(ctx, tx, recipe); err != nil {
			return FixtureResult{}, fmt.Errorf("recipe %q: %w", recipe.Title, err)
		}
		ids[key] = id
		result.Recipes++
	}

	for i, mp := range f.MealPlans {
		recipeID, ok := ids[strings.ToLower(strings.TrimSpace(mp.Recipe))]
		if !ok {
			return FixtureResult{}, common.NewFieldError(fmt.Sprintf("meal_plans[%d].recipe", i), fmt.Sprintf("找不到食譜 %q", mp.Recipe))
		}
		date, err := common.ParseDate(fmt.Sprintf("meal_plans[%d].date", i), mp.Date)
		if err != nil {
			return FixtureResult{}, err
		}
		if date == nil {
			return FixtureResult{}, common.NewFieldError(fmt.Sprintf("meal_plans[%d].date", i), "日期不可為空")
		}

		entry := grocery.MealPlanEntry{
			UserID:      mp.UserID,
			RecipeID:    recipeID,
			RecipeTitle: mp.Recipe,
			Date:        *date,
			MealType:    grocery.MealType(mp.MealType),
			Notes:       mp.Notes,
		}
		id, err := insertMealPlan(ctx, tx, entry)
		if errors.Is(err, common.ErrMealPlanConflict) {
			common.LogWarn("Meal plan slot already taken, skipped",
				zap.Int64("user_id", mp.UserID),
				zap.String("date", mp.Date),
				zap.String("meal_type", mp.MealType),
			)
			result.Skipped++
			continue
		}
		if err != nil {
			return FixtureResult{}, fmt.Errorf("meal plan %d: %w", i, err)
		}
		entry.ID = id
		result.MealPlans = append(result.MealPlans, entry)
	}

	if err := tx.Commit(); err != nil {
		return FixtureResult{}, fmt.Errorf("commit fixture: %w", err)
	}
	return result, nil
}

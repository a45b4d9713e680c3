package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"recipe-planner/internal/core/grocery"
	"recipe-planner/internal/pkg/common"
)

func TestLoadFixture(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	f := Fixture{
		Recipes: []Recipe{
			{Title: "Pancakes", Ingredients: []grocery.IngredientLine{{Name: "Milk", Quantity: decimal.NewFromInt(1), Unit: "cup"}}},
			{Title: "Salad", Ingredients: []grocery.IngredientLine{{Name: "Lettuce", Quantity: decimal.NewFromInt(1), Unit: "head"}}},
		},
		MealPlans: []FixtureMealPlan{
			{UserID: 1, Recipe: "pancakes", Date: "2024-03-01", MealType: "breakfast"},
			{UserID: 1, Recipe: "Salad", Date: "2024-03-01", MealType: "lunch"},
			{UserID: 1, Recipe: "Salad", Date: "2024-03-01", MealType: "lunch"},
		},
	}

	result, err := repo.LoadFixture(ctx, f)
	if err != nil {
		t.Fatalf("LoadFixture() error = %v", err)
	}
	if result.Recipes != 2 || len(result.MealPlans) != 2 || result.Skipped != 1 {
		t.Errorf("result = %+v", result)
	}
	if result.MealPlans[0].ID == 0 {
		t.Error("created meal plans should carry their ids")
	}

	plans, err := repo.ListMealPlans(ctx, 1, nil, nil, nil)
	if err != nil || len(plans) != 2 {
		t.Errorf("ListMealPlans() = %d plans, %v", len(plans), err)
	}
}

func TestLoadFixtureUnknownRecipe(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.LoadFixture(context.Background(), Fixture{
		MealPlans: []FixtureMealPlan{{UserID: 1, Recipe: "Ghost", Date: "2024-03-01"}},
	})
	if !common.IsValidationError(err) {
		t.Errorf("LoadFixture() error = %v, want validation error", err)
	}
}

func countRows(t *testing.T, repo *SQLiteRepository, table string) int {
	t.Helper()
	var n int
	if err := repo.db.QueryRow(`SELECT COUNT(1) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestLoadFixtureTwice(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	f := Fixture{
		Recipes: []Recipe{
			{Title: "Tomato Soup", Ingredients: []grocery.IngredientLine{{Name: "Tomato", Quantity: decimal.NewFromInt(4)}}},
		},
		MealPlans: []FixtureMealPlan{{UserID: 1, Recipe: "tomato soup", Date: "2024-03-01", MealType: "dinner"}},
	}

	first, err := repo.LoadFixture(ctx, f)
	if err != nil {
		t.Fatalf("first LoadFixture() error = %v", err)
	}
	if first.Recipes != 1 || first.ReusedRecipes != 0 || len(first.MealPlans) != 1 {
		t.Errorf("first result = %+v", first)
	}

	second, err := repo.LoadFixture(ctx, f)
	if err != nil {
		t.Fatalf("second LoadFixture() error = %v", err)
	}
	if second.Recipes != 0 || second.ReusedRecipes != 1 || len(second.MealPlans) != 0 || second.Skipped != 1 {
		t.Errorf("second result = %+v", second)
	}

	if n := countRows(t, repo, "recipes"); n != 1 {
		t.Errorf("recipes rows = %d, want 1", n)
	}
	if n := countRows(t, repo, "recipe_ingredients"); n != 1 {
		t.Errorf("recipe_ingredients rows = %d, want 1", n)
	}
}

func TestLoadFixtureRollsBackOnError(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.LoadFixture(context.Background(), Fixture{
		Recipes: []Recipe{
			{Title: "Pancakes", Ingredients: []grocery.IngredientLine{{Name: "Milk", Quantity: decimal.NewFromInt(1), Unit: "cup"}}},
		},
		MealPlans: []FixtureMealPlan{
			{UserID: 1, Recipe: "Pancakes", Date: "2024-03-01", MealType: "breakfast"},
			{UserID: 1, Recipe: "Pancakes", Date: "not-a-date"},
		},
	})
	if !common.IsValidationError(err) {
		t.Fatalf("LoadFixture() error = %v, want validation error", err)
	}
	if n := countRows(t, repo, "recipes"); n != 0 {
		t.Errorf("recipes rows = %d, want 0 after rollback", n)
	}
	if n := countRows(t, repo, "meal_plans"); n != 0 {
		t.Errorf("meal_plans rows = %d, want 0 after rollback", n)
	}
}

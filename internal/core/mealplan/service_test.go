package mealplan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"recipe-planner/internal/core/cache"
	"recipe-planner/internal/core/grocery"
	"recipe-planner/internal/infrastructure/config"
	"recipe-planner/internal/pkg/common"
)

type fakeRepo struct {
	mu        sync.Mutex
	entries   []grocery.MealPlanEntry
	lines     map[int64][]grocery.IngredientLine
	listCalls int
	lineCalls int
	lastTypes []grocery.MealType
	err       error
}

func (r *fakeRepo) ListMealPlans(_ context.Context, userID int64, _, _ *time.Time, mealTypes []grocery.MealType) ([]grocery.MealPlanEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	r.lastTypes = mealTypes
	var out []grocery.MealPlanEntry
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeRepo) IngredientLines(_ context.Context, recipeID int64) ([]grocery.IngredientLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lineCalls++
	if r.err != nil {
		return nil, r.err
	}
	return r.lines[recipeID], nil
}

func day(s string) time.Time {
	d, _ := time.Parse(common.DateLayout, s)
	return d
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		entries: []grocery.MealPlanEntry{
			{ID: 1, UserID: 1, RecipeID: 10, RecipeTitle: "Pancakes", Date: day("2024-03-01"), MealType: grocery.MealBreakfast},
			{ID: 2, UserID: 1, RecipeID: 20, RecipeTitle: "Omelette", Date: day("2024-03-02"), MealType: grocery.MealBreakfast},
			{ID: 3, UserID: 1, RecipeID: 10, RecipeTitle: "Pancakes", Date: day("2024-03-03"), MealType: grocery.MealBreakfast},
		},
		lines: map[int64][]grocery.IngredientLine{
			10: {{Name: "Milk", Quantity: decimal.RequireFromString("1.5"), Unit: "cup"}},
			20: {{Name: "milk", Quantity: decimal.RequireFromString("0.5"), Unit: "cups"}, {Name: "Egg", Quantity: decimal.NewFromInt(3)}},
		},
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name      string
		start     string
		end       string
		mealTypes string
		wantTypes int
		wantErr   bool
	}{
		{"empty", "", "", "", 0, false},
		{"range and types", "2024-03-01", "2024-03-07", "Breakfast, dinner,breakfast", 2, false},
		{"bad date", "03/01/2024", "", "", 0, true},
		{"start after end", "2024-03-08", "2024-03-01", "", 0, true},
		{"unknown meal type", "", "", "brunch", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilter(tt.start, tt.end, tt.mealTypes)
			if tt.wantErr {
				if !common.IsValidationError(err) {
					t.Errorf("ParseFilter() error = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFilter() error = %v", err)
			}
			if len(f.MealTypes) != tt.wantTypes {
				t.Errorf("MealTypes = %v, want %d", f.MealTypes, tt.wantTypes)
			}
		})
	}
}

func TestFilterCacheKey(t *testing.T) {
	a, _ := ParseFilter("2024-03-01", "", "dinner,lunch")
	b, _ := ParseFilter("2024-03-01", "", "lunch,dinner")
	if a.CacheKey(7) != b.CacheKey(7) {
		t.Errorf("meal type order changed key: %q vs %q", a.CacheKey(7), b.CacheKey(7))
	}
	if got, want := a.CacheKey(7), "grocery:7:2024-03-01::dinner,lunch"; got != want {
		t.Errorf("CacheKey() = %q, want %q", got, want)
	}
}

func TestGroceryList(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	f, _ := ParseFilter("", "", "breakfast")
	list, source, err := svc.GroceryList(context.Background(), 1, f)
	if err != nil {
		t.Fatalf("GroceryList() error = %v", err)
	}
	if source != SourceStore {
		t.Errorf("source = %q, want %q", source, SourceStore)
	}
	if list.MealPlansCount != 3 || list.TotalItems != 2 {
		t.Errorf("list = %+v", list)
	}
	dairy, ok := list.Category("Dairy")
	if !ok || !dairy.Items[0].Quantity.Equal(decimal.RequireFromString("3.5")) {
		t.Errorf("dairy = %+v", dairy)
	}
	if repo.lineCalls != 2 {
		t.Errorf("ingredient lookups = %d, want one per distinct recipe", repo.lineCalls)
	}
	if len(repo.lastTypes) != 1 || repo.lastTypes[0] != grocery.MealBreakfast {
		t.Errorf("meal types passed to repo = %v", repo.lastTypes)
	}
}

func TestGroceryListCachedAndInvalidated(t *testing.T) {
	repo := newFakeRepo()
	store := cache.NewManager(config.CacheConfig{Enabled: true, MaxSize: 10, TTL: time.Minute})
	defer store.Close()
	svc := NewService(repo, nil, WithCache(store, time.Minute))
	ctx := context.Background()

	first, _, err := svc.GroceryList(ctx, 1, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	second, source, err := svc.GroceryList(ctx, 1, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if source != SourceCache || repo.listCalls != 1 {
		t.Errorf("second call source = %q, list calls = %d", source, repo.listCalls)
	}
	if second.TotalItems != first.TotalItems || !second.Categories[0].Items[0].Quantity.Equal(first.Categories[0].Items[0].Quantity) {
		t.Errorf("cached list differs: %+v vs %+v", second, first)
	}

	if err := svc.Invalidate(ctx, 1); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if _, source, _ = svc.GroceryList(ctx, 1, Filter{}); source != SourceStore || repo.listCalls != 2 {
		t.Errorf("after invalidate source = %q, list calls = %d", source, repo.listCalls)
	}
}

func TestGroceryListLineSourceError(t *testing.T) {
	repo := newFakeRepo()
	repo.err = common.ErrRecipeNotFound
	svc := NewService(repo, nil)

	_, _, err := svc.GroceryList(context.Background(), 1, Filter{})
	if !errors.Is(err, common.ErrRecipeNotFound) {
		t.Errorf("GroceryList() error = %v, want ErrRecipeNotFound", err)
	}
}

func TestGroceryListLineSourceOverride(t *testing.T) {
	repo := newFakeRepo()
	var remote int
	src := grocery.LineSourceFunc(func(_ context.Context, recipeID int64) ([]grocery.IngredientLine, error) {
		remote++
		return []grocery.IngredientLine{{Name: "Salt", Quantity: decimal.NewFromInt(1), Unit: "tsp"}}, nil
	})
	svc := NewService(repo, nil, WithLineSource(src), WithPrefetchWorkers(1))

	list, _, err := svc.GroceryList(context.Background(), 1, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if remote != 2 || repo.lineCalls != 0 {
		t.Errorf("remote calls = %d, repo calls = %d", remote, repo.lineCalls)
	}
	if list.TotalItems != 1 {
		t.Errorf("TotalItems = %d, want 1", list.TotalItems)
	}
}

func TestAssemble(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	entries := []grocery.MealPlanEntry{{RecipeID: 5, RecipeTitle: "Salad", Date: day("2024-05-01")}}
	lines := grocery.StaticSource{5: {{Name: "Lettuce", Quantity: decimal.NewFromInt(1), Unit: "head"}}}

	list, err := svc.Assemble(context.Background(), entries, lines)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if _, ok := list.Category("Produce"); !ok {
		t.Errorf("lettuce should be produce: %+v", list.Categories)
	}
}

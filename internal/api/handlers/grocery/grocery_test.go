package grocery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	groceryCore "recipe-planner/internal/core/grocery"
	"recipe-planner/internal/core/mealplan"
	"recipe-planner/internal/pkg/common"
)

type fakeService struct {
	userID int64
	filter mealplan.Filter
	err    error
}

func (f *fakeService) GroceryList(ctx context.Context, userID int64, filter mealplan.Filter) (*groceryCore.GroceryList, string, error) {
	f.userID, f.filter = userID, filter
	if f.err != nil {
		return nil, "", f.err
	}
	entries := []groceryCore.MealPlanEntry{{RecipeID: 1, RecipeTitle: "Pancakes"}}
	src := groceryCore.StaticSource{1: {{Name: "Milk", Quantity: decimal.RequireFromString("1.5"), Unit: "cup"}}}
	list, err := groceryCore.NewAssembler().Generate(ctx, src, entries)
	return list, mealplan.SourceStore, err
}

func (f *fakeService) Assemble(ctx context.Context, entries []groceryCore.MealPlanEntry, lines groceryCore.StaticSource) (*groceryCore.GroceryList, error) {
	return groceryCore.NewAssembler().Generate(ctx, lines, entries)
}

func newRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc)
	r := gin.New()
	r.GET("/users/:user_id/grocery-list", h.HandleUserGroceryList)
	r.POST("/grocery-list", h.HandleInlineGroceryList)
	return r
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, strings.NewReader(body)))
	return w
}

func TestHandleUserGroceryList(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc)

	w := do(r, http.MethodGet, "/users/7/grocery-list?start_date=2024-03-01&meal_type=breakfast", "")
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d body = %s", w.Code, w.Body.String())
	}
	if svc.userID != 7 || svc.filter.Start == nil || len(svc.filter.MealTypes) != 1 {
		t.Errorf("service called with user %d filter %+v", svc.userID, svc.filter)
	}

	var body struct {
		IngredientsByCategory map[string][]struct {
			Name          string  `json:"name"`
			TotalQuantity float64 `json:"total_quantity"`
		} `json:"ingredients_by_category"`
		TotalItems int `json:"total_items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.TotalItems != 1 || body.IngredientsByCategory["Dairy"][0].TotalQuantity != 1.5 {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestHandleUserGroceryListFormats(t *testing.T) {
	r := newRouter(&fakeService{})

	w := do(r, http.MethodGet, "/users/7/grocery-list?format=text", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Milk") {
		t.Errorf("text code = %d body = %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, "grocery-list.txt") {
		t.Errorf("Content-Disposition = %q", got)
	}

	w = do(r, http.MethodGet, "/users/7/grocery-list?format=pdf", "")
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), "%PDF-") {
		t.Errorf("pdf code = %d", w.Code)
	}
}

func TestHandleUserGroceryListErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{"bad user", "/users/abc/grocery-list", nil, http.StatusBadRequest},
		{"bad format", "/users/1/grocery-list?format=docx", nil, http.StatusBadRequest},
		{"bad date", "/users/1/grocery-list?start_date=yesterday", nil, http.StatusBadRequest},
		{"start after end", "/users/1/grocery-list?start_date=2024-03-05&end_date=2024-03-01", nil, http.StatusBadRequest},
		{"recipe missing", "/users/1/grocery-list", common.ErrRecipeNotFound, http.StatusNotFound},
		{"catalog down", "/users/1/grocery-list", common.ErrCatalogUnavailable, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newRouter(&fakeService{err: tt.err}), http.MethodGet, tt.target, "")
			if w.Code != tt.want {
				t.Errorf("code = %d, want %d, body = %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestHandleInlineGroceryList(t *testing.T) {
	r := newRouter(&fakeService{})
	body := `{"meal_plans":[
		{"recipe_id":1,"recipe_title":"Pancakes","date":"2024-03-01","meal_type":"breakfast",
		 "ingredients":[{"name":"flour","quantity":"2","unit":"cups"},{"name":"Milk","quantity":1,"unit":"cup"}]},
		{"recipe_title":"Bread","date":"2024-03-02",
		 "ingredients":[{"name":"Flour","quantity":"1.25","unit":"cup"}]}
	]}`

	w := do(r, http.MethodPost, "/grocery-list", body)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"total_quantity":3.25`) {
		t.Errorf("flour should aggregate to 3.25: %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"start":"2024-03-01","end":"2024-03-02"`) {
		t.Errorf("date range missing: %s", w.Body.String())
	}
}

func TestHandleInlineGroceryListValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"meal_plans":`},
		{"unknown field", `{"meal_plans":[],"extra":1}`},
		{"missing date", `{"meal_plans":[{"recipe_id":1}]}`},
		{"bad meal type", `{"meal_plans":[{"recipe_id":1,"date":"2024-03-01","meal_type":"brunch"}]}`},
		{"empty name", `{"meal_plans":[{"date":"2024-03-01","ingredients":[{"name":" ","quantity":1}]}]}`},
		{"negative quantity", `{"meal_plans":[{"date":"2024-03-01","ingredients":[{"name":"Salt","quantity":"-1"}]}]}`},
		{"conflicting ingredients", `{"meal_plans":[
			{"recipe_id":3,"date":"2024-03-01","ingredients":[{"name":"Salt","quantity":1,"unit":"tsp"}]},
			{"recipe_id":3,"date":"2024-03-02","ingredients":[{"name":"Salt","quantity":2,"unit":"tsp"}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newRouter(&fakeService{}), http.MethodPost, "/grocery-list", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("code = %d, want 400, body = %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestHandleInlineGroceryListSharedRecipe(t *testing.T) {
	body := `{"meal_plans":[
		{"recipe_id":3,"recipe_title":"Soup","date":"2024-03-01","ingredients":[{"name":"Salt","quantity":"1.5","unit":"tsp"}]},
		{"recipe_id":3,"recipe_title":"Soup","date":"2024-03-02","ingredients":[{"name":"Salt","quantity":1.5,"unit":"tsp"}]},
		{"recipe_id":3,"recipe_title":"Soup","date":"2024-03-03"}
	]}`

	w := do(newRouter(&fakeService{}), http.MethodPost, "/grocery-list", body)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"total_quantity":4.5`) {
		t.Errorf("salt should be counted once per meal plan: %s", w.Body.String())
	}
}

func TestHandleInlineGroceryListEmpty(t *testing.T) {
	w := do(newRouter(&fakeService{}), http.MethodPost, "/grocery-list", `{"meal_plans":[]}`)
	want := `{"ingredients_by_category":{},"total_items":0,"date_range":{"start":null,"end":null},"meal_plans_count":0}`
	if w.Code != http.StatusOK || w.Body.String() != want {
		t.Errorf("code = %d body = %s", w.Code, w.Body.String())
	}
}

package grocery

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-planner/internal/api/handlers"
	"recipe-planner/internal/core/export"
	groceryCore "recipe-planner/internal/core/grocery"
	"recipe-planner/internal/core/mealplan"
	"recipe-planner/internal/metrics"
	"recipe-planner/internal/pkg/common"
)

// Service 購物清單服務
type Service interface {
	GroceryList(ctx context.Context, userID int64, f mealplan.Filter) (*groceryCore.GroceryList, string, error)
	Assemble(ctx context.Context, entries []groceryCore.MealPlanEntry, lines groceryCore.StaticSource) (*groceryCore.GroceryList, error)
}

// InlineRequest 直接附上食材的購物清單請求
type InlineRequest struct {
	MealPlans []InlineMealPlan `json:"meal_plans"`
}

// InlineMealPlan 單一餐點與其食譜食材
//
// recipe_id 為 0 時視為獨立食譜，不與其他餐點共用食材。
// 相同 recipe_id 的餐點共用一份食材；後續餐點可省略 ingredients，
// 若提供則必須與先前的完全相同。
type InlineMealPlan struct {
	RecipeID    int64                        `json:"recipe_id"`
	RecipeTitle string                       `json:"recipe_title"`
	Date        string                       `json:"date"`
	MealType    string                       `json:"meal_type"`
	Ingredients []groceryCore.IngredientLine `json:"ingredients"`
}

// Handler 購物清單處理程序
type Handler struct {
	svc Service
}

// NewHandler 創建購物清單處理程序
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// HandleUserGroceryList 處理 GET /users/:user_id/grocery-list
func (h *Handler) HandleUserGroceryList(c *gin.Context) {
	start := time.Now()

	userID, err := handlers.ParseUserID(c.Param("user_id"))
	if err != nil {
		handlers.AbortWithError(c, err)
		return
	}

	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		handlers.AbortWithError(c, err)
		return
	}

	filter, err := mealplan.ParseFilter(c.Query("start_date"), c.Query("end_date"), c.Query("meal_type"))
	if err != nil {
		handlers.AbortWithError(c, err)
		return
	}

	list, source, err := h.svc.GroceryList(c.Request.Context(), userID, filter)
	if err != nil {
		handlers.AbortWithError(c, err)
		return
	}

	if err := writeList(c, list, format); err != nil {
		handlers.AbortWithError(c, err)
		return
	}

	metrics.ObserveGroceryList(source, format, list.TotalItems, time.Since(start))
	common.LogDebug("Grocery list served",
		zap.Int64("user_id", userID),
		zap.String("format", format),
		zap.String("source", source),
		zap.String("request_id", requestid.Get(c)),
	)
}

// HandleInlineGroceryList 處理 POST /grocery-list
func (h *Handler) HandleInlineGroceryList(c *gin.Context) {
	start := time.Now()

	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		handlers.AbortWithError(c, err)
		return
	}

	var req InlineRequest
	if err := common.DecodeJSONStrict(c.Request.Body, &req); err != nil {
		common.LogWarn("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestid.Get(c)),
		)
		handlers.AbortWithError(c, common.NewValidationError("Invalid request format"))
		return
	}

	entries, lines, err := req.toEntries()
	if err != nil {
		handlers.AbortWithError(c, err)
		return
	}

	list, err := h.svc.Assemble(c.Request.Context(), entries, lines)
	if err != nil {
		handlers.AbortWithError(c, err)
		return
	}

	if err := writeList(c, list, format); err != nil {
		handlers.AbortWithError(c, err)
		return
	}
	metrics.ObserveGroceryList(mealplan.SourceInline, format, list.TotalItems, time.Since(start))
}

// toEntries 驗證請求並轉為餐點計畫與食材來源
func (r InlineRequest) toEntries() ([]groceryCore.MealPlanEntry, groceryCore.StaticSource, error) {
	entries := make([]groceryCore.MealPlanEntry, 0, len(r.MealPlans))
	lines := make(groceryCore.StaticSource)

	for i, mp := range r.MealPlans {
		field := fmt.Sprintf("meal_plans[%d]", i)

		date, err := common.ParseDate(field+".date", mp.Date)
		if err != nil {
			return nil, nil, err
		}
		if date == nil {
			return nil, nil, common.NewFieldError(field+".date", "日期不可為空")
		}

		mealType := groceryCore.MealType(mp.MealType)
		if mealType == "" {
			mealType = groceryCore.MealDinner
		}
		if !mealType.Valid() {
			return nil, nil, common.NewFieldError(field+".meal_type", fmt.Sprintf("未知的餐別 %q", mp.MealType))
		}

		for j, line := range mp.Ingredients {
			if err := line.Validate(); err != nil {
				return nil, nil, fmt.Errorf("%s.ingredients[%d]: %w", field, j, err)
			}
		}

		recipeID := mp.RecipeID
		switch {
		case recipeID < 0:
			return nil, nil, common.NewFieldError(field+".recipe_id", "食譜編號不可為負數")
		case recipeID == 0:
			// 以負數編號區隔未命名的食譜
			recipeID = -int64(i + 1)
		}
		existing, ok := lines[recipeID]
		switch {
		case !ok || len(existing) == 0:
			lines[recipeID] = mp.Ingredients
		case len(mp.Ingredients) > 0 && !sameLines(existing, mp.Ingredients):
			return nil, nil, common.NewFieldError(field+".ingredients",
				fmt.Sprintf("食譜 %d 的食材與先前的餐點不一致", recipeID))
		}

		entries = append(entries, groceryCore.MealPlanEntry{
			RecipeID:    recipeID,
			RecipeTitle: mp.RecipeTitle,
			Date:        *date,
			MealType:    mealType,
		})
	}

	return entries, lines, nil
}

func sameLines(a, b []groceryCore.IngredientLine) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Unit != b[i].Unit || a[i].Notes != b[i].Notes || !a[i].Quantity.Equal(b[i].Quantity) {
			return false
		}
	}
	return true
}

// writeList 依格式輸出清單，非 JSON 格式以附件下載
func writeList(c *gin.Context, list *groceryCore.GroceryList, format string) error {
	if format == export.FormatJSON {
		data, err := list.MarshalJSON()
		if err != nil {
			return err
		}
		c.Data(http.StatusOK, export.ContentType(format), data)
		return nil
	}

	var buf bytes.Buffer
	var err error
	if format == export.FormatPDF {
		err = export.RenderPDF(&buf, list)
	} else {
		err = export.RenderText(&buf, list)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(format)+`"`)
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
	return nil
}

package grocery

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"recipe-planner/internal/pkg/common"
)

// MealType 餐別
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
	MealDessert   MealType = "dessert"
)

// MealTypes 所有餐別，依一天內的先後排列
func MealTypes() []MealType {
	return []MealType{MealBreakfast, MealLunch, MealDinner, MealSnack, MealDessert}
}

// Valid 檢查是否為已知餐別
func (m MealType) Valid() bool {
	switch m {
	case MealBreakfast, MealLunch, MealDinner, MealSnack, MealDessert:
		return true
	}
	return false
}

// MealPlanEntry 排定在某天某餐的食譜
type MealPlanEntry struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	RecipeID    int64     `json:"recipe_id"`
	RecipeTitle string    `json:"recipe_title"`
	Date        time.Time `json:"date"`
	MealType    MealType  `json:"meal_type"`
	Notes       string    `json:"notes,omitempty"`
}

// IngredientLine 食譜中的一行食材
type IngredientLine struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
	Notes    string          `json:"notes"`
}

// Validate 食材名稱不可為空，數量不可為負
func (l IngredientLine) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return common.NewFieldError("name", "食材名稱不可為空")
	}
	if l.Quantity.IsNegative() {
		return common.NewFieldError("quantity", "數量不可為負數")
	}
	return nil
}

// AggregatedIngredient 合併後的食材
type AggregatedIngredient struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
	Recipes  []string        `json:"recipes"`
	Notes    []string        `json:"notes"`
}

// CategoryGroup 一個分類及其食材
type CategoryGroup struct {
	Name  string                 `json:"name"`
	Items []AggregatedIngredient `json:"items"`
}

// DateRange 餐點計畫的日期範圍，無資料時兩端皆為 nil
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// GroceryList 購物清單
type GroceryList struct {
	Categories       []CategoryGroup
	TotalItems       int
	DateRange        DateRange
	MealPlansCount   int
	DisplayPrecision int32
}

// Category 依名稱取得分類
func (l *GroceryList) Category(name string) (CategoryGroup, bool) {
	for _, g := range l.Categories {
		if g.Name == name {
			return g, true
		}
	}
	return CategoryGroup{}, false
}

type dateRangeView struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

type itemView struct {
	Name          string   `json:"name"`
	TotalQuantity float64  `json:"total_quantity"`
	Unit          string   `json:"unit"`
	Recipes       []string `json:"recipes"`
	Notes         []string `json:"notes"`
}

// MarshalJSON 輸出 {start, end}，未知端為 null
func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.view())
}

func (r DateRange) view() dateRangeView {
	var v dateRangeView
	if r.Start != nil {
		s := r.Start.Format(common.DateLayout)
		v.Start = &s
	}
	if r.End != nil {
		e := r.End.Format(common.DateLayout)
		v.End = &e
	}
	return v
}

// UnmarshalJSON 解析 {start, end}
func (r *DateRange) UnmarshalJSON(data []byte) error {
	var v dateRangeView
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = DateRange{}
	if v.Start != nil {
		t, err := time.Parse(common.DateLayout, *v.Start)
		if err != nil {
			return fmt.Errorf("parse start date: %w", err)
		}
		r.Start = &t
	}
	if v.End != nil {
		t, err := time.Parse(common.DateLayout, *v.End)
		if err != nil {
			return fmt.Errorf("parse end date: %w", err)
		}
		r.End = &t
	}
	return nil
}

// DisplayQuantity 將精確數量四捨五入到顯示精度後轉為浮點數
func (l *GroceryList) DisplayQuantity(q decimal.Decimal) float64 {
	return q.Round(l.DisplayPrecision).InexactFloat64()
}

// MarshalJSON 依分類順序輸出 ingredients_by_category
func (l *GroceryList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"ingredients_by_category":{`)
	for i, group := range l.Categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(group.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')

		items := make([]itemView, 0, len(group.Items))
		for _, it := range group.Items {
			items = append(items, itemView{
				Name:          it.Name,
				TotalQuantity: l.DisplayQuantity(it.Quantity),
				Unit:          it.Unit,
				Recipes:       nonNil(it.Recipes),
				Notes:         nonNil(it.Notes),
			})
		}
		data, err := json.Marshal(items)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteString(`},"total_items":`)
	fmt.Fprintf(&buf, "%d", l.TotalItems)

	dr, err := json.Marshal(l.DateRange.view())
	if err != nil {
		return nil, err
	}
	buf.WriteString(`,"date_range":`)
	buf.Write(dr)
	fmt.Fprintf(&buf, `,"meal_plans_count":%d}`, l.MealPlansCount)
	return buf.Bytes(), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// snapshot 快取用的精確表示，數量以十進位字串保存
type snapshot struct {
	Categories       []CategoryGroup `json:"categories"`
	TotalItems       int             `json:"total_items"`
	DateRange        DateRange       `json:"date_range"`
	MealPlansCount   int             `json:"meal_plans_count"`
	DisplayPrecision int32           `json:"display_precision"`
}

// EncodeSnapshot 將清單序列化為不經過浮點數的快取格式
func EncodeSnapshot(l *GroceryList) ([]byte, error) {
	return json.Marshal(snapshot{
		Categories:       l.Categories,
		TotalItems:       l.TotalItems,
		DateRange:        l.DateRange,
		MealPlansCount:   l.MealPlansCount,
		DisplayPrecision: l.DisplayPrecision,
	})
}

// DecodeSnapshot 還原 EncodeSnapshot 的輸出
func DecodeSnapshot(data []byte) (*GroceryList, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode grocery list snapshot: %w", err)
	}
	if s.Categories == nil {
		s.Categories = []CategoryGroup{}
	}
	return &GroceryList{
		Categories:       s.Categories,
		TotalItems:       s.TotalItems,
		DateRange:        s.DateRange,
		MealPlansCount:   s.MealPlansCount,
		DisplayPrecision: s.DisplayPrecision,
	}, nil
}

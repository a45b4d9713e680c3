package grocery

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultDisplayPrecision 輸出數量的預設小數位數
const DefaultDisplayPrecision int32 = 4

// Assembler 將餐點計畫的食材行合併成分類後的購物清單
type Assembler struct {
	normalizer  *UnitNormalizer
	categorizer *Categorizer
	precision   int32
}

// Option 設定 Assembler
type Option func(*Assembler)

// WithNormalizer 使用自訂的單位正規化器
func WithNormalizer(n *UnitNormalizer) Option {
	return func(a *Assembler) { a.normalizer = n }
}

// WithCategorizer 使用自訂的分類器
func WithCategorizer(c *Categorizer) Option {
	return func(a *Assembler) { a.categorizer = c }
}

// WithDisplayPrecision 設定輸出數量的小數位數
func WithDisplayPrecision(p int32) Option {
	return func(a *Assembler) { a.precision = p }
}

// NewAssembler 建立 Assembler，預設使用內建的別名表與分類表
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{
		normalizer:  defaultNormalizer,
		categorizer: defaultCategorizer,
		precision:   DefaultDisplayPrecision,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Generate 產生購物清單
//
// 每個 entry 的食譜食材由 src 取得；src 的錯誤原樣回傳。
// 沒有 entry 時回傳空清單而非錯誤。
func (a *Assembler) Generate(ctx context.Context, src LineSource, entries []MealPlanEntry) (*GroceryList, error) {
	acc := newAccumulator()
	for _, entry := range entries {
		lines, err := src.IngredientLines(ctx, entry.RecipeID)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			acc.add(a.normalizer, entry.RecipeTitle, line)
		}
	}

	list := &GroceryList{
		Categories:       []CategoryGroup{},
		DateRange:        dateRangeOf(entries),
		MealPlansCount:   len(entries),
		DisplayPrecision: a.precision,
	}

	grouped := make(map[string][]AggregatedIngredient)
	for _, key := range acc.order {
		b := acc.buckets[key]
		name, ok := acc.displayNames[key.name]
		if !ok {
			name = cases.Title(language.Und).String(key.name)
		}
		item := AggregatedIngredient{
			Name:     name,
			Quantity: b.quantity,
			Unit:     b.unit,
			Recipes:  sortedSet(b.recipes),
			Notes:    b.notes,
		}
		category := a.categorizer.Categorize(name)
		grouped[category] = append(grouped[category], item)
	}

	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	a.categorizer.SortCategories(names)

	for _, name := range names {
		items := grouped[name]
		sort.SliceStable(items, func(i, j int) bool {
			return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
		})
		list.Categories = append(list.Categories, CategoryGroup{Name: name, Items: items})
		list.TotalItems += len(items)
	}

	return list, nil
}

// bucketKey 合併鍵：小寫名稱 + 正規化單位
type bucketKey struct {
	name string
	unit string
}

type bucket struct {
	quantity decimal.Decimal
	unit     string
	recipes  map[string]struct{}
	notes    []string
	seen     map[string]struct{}
}

type accumulator struct {
	buckets      map[bucketKey]*bucket
	order        []bucketKey
	displayNames map[string]string
}

func newAccumulator() *accumulator {
	return &accumulator{
		buckets:      make(map[bucketKey]*bucket),
		displayNames: make(map[string]string),
	}
}

// getOrInsert 取得合併桶，不存在時建立數量為零的新桶
func (acc *accumulator) getOrInsert(key bucketKey, unitLabel string) *bucket {
	if b, ok := acc.buckets[key]; ok {
		return b
	}
	b := &bucket{
		quantity: decimal.Zero,
		unit:     unitLabel,
		recipes:  make(map[string]struct{}),
		notes:    []string{},
		seen:     make(map[string]struct{}),
	}
	acc.buckets[key] = b
	acc.order = append(acc.order, key)
	return b
}

func (acc *accumulator) add(n *UnitNormalizer, recipeTitle string, line IngredientLine) {
	name := strings.TrimSpace(line.Name)
	lower := strings.ToLower(name)
	unit := n.Normalize(line.Unit)
	if unit == "" {
		unit = strings.TrimSpace(line.Unit)
	}

	if _, ok := acc.displayNames[lower]; !ok {
		acc.displayNames[lower] = name
	}

	b := acc.getOrInsert(bucketKey{name: lower, unit: unit}, unit)
	b.quantity = b.quantity.Add(line.Quantity)
	if recipeTitle != "" {
		b.recipes[recipeTitle] = struct{}{}
	}
	if line.Notes != "" {
		if _, dup := b.seen[line.Notes]; !dup {
			b.seen[line.Notes] = struct{}{}
			b.notes = append(b.notes, line.Notes)
		}
	}
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func dateRangeOf(entries []MealPlanEntry) DateRange {
	if len(entries) == 0 {
		return DateRange{}
	}
	start, end := entries[0].Date, entries[0].Date
	for _, e := range entries[1:] {
		if e.Date.Before(start) {
			start = e.Date
		}
		if e.Date.After(end) {
			end = e.Date
		}
	}
	return DateRange{Start: &start, End: &end}
}

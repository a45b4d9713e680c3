package grocery

import (
	"sort"
	"strings"
)

// CategoryOther 無法分類時的分類
const CategoryOther = "Other"

// Category 分類名稱與比對關鍵字
type Category struct {
	Name     string
	Keywords []string
}

// DefaultCategories 預設分類表，宣告順序即比對優先序
func DefaultCategories() []Category {
	return []Category{
		{Name: "Produce", Keywords: []string{
			"apple", "banana", "orange", "lettuce", "tomato", "onion", "garlic",
			"carrot", "celery", "pepper", "cucumber", "potato", "spinach",
			"broccoli", "cauliflower", "mushroom", "avocado", "lemon", "lime",
			"herb", "basil", "parsley", "cilantro", "mint", "thyme", "rosemary",
			"oregano",
		}},
		{Name: "Dairy", Keywords: []string{
			"milk", "cheese", "butter", "cream", "yogurt", "sour cream",
			"cottage cheese", "mozzarella", "cheddar", "parmesan", "feta",
		}},
		{Name: "Meat & Seafood", Keywords: []string{
			"chicken", "beef", "pork", "turkey", "fish", "salmon", "tuna",
			"shrimp", "bacon", "sausage", "ham", "ground",
		}},
		{Name: "Pantry", Keywords: []string{
			"flour", "sugar", "salt", "pepper", "oil", "vinegar", "soy sauce",
			"rice", "pasta", "noodle", "bread", "cereal", "oat", "quinoa",
			"bean", "lentil", "chickpea",
		}},
		{Name: "Spices & Seasonings", Keywords: []string{
			"cumin", "paprika", "cinnamon", "nutmeg", "ginger", "turmeric",
			"coriander", "cardamom", "clove", "bay leaf", "chili", "cayenne",
			"red pepper",
		}},
		{Name: "Baking", Keywords: []string{
			"baking powder", "baking soda", "yeast", "vanilla", "cocoa",
			"chocolate", "chocolate chip",
		}},
		{Name: "Beverages", Keywords: []string{
			"juice", "coffee", "tea", "soda", "water",
		}},
		{Name: "Frozen", Keywords: []string{
			"frozen", "ice cream",
		}},
		{Name: CategoryOther},
	}
}

// Categorizer 以關鍵字子字串判斷食材分類，第一個符合的分類勝出
type Categorizer struct {
	categories []Category
	rank       map[string]int
}

// NewCategorizer 建立分類器，分類表會被複製
func NewCategorizer(categories []Category) *Categorizer {
	c := &Categorizer{
		categories: make([]Category, 0, len(categories)),
		rank:       make(map[string]int, len(categories)),
	}
	for _, cat := range categories {
		keywords := make([]string, 0, len(cat.Keywords))
		for _, kw := range cat.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		if _, dup := c.rank[cat.Name]; !dup {
			c.rank[cat.Name] = len(c.categories)
		}
		c.categories = append(c.categories, Category{Name: cat.Name, Keywords: keywords})
	}
	return c
}

// Categorize 回傳食材分類，無符合時為 Other
func (c *Categorizer) Categorize(name string) string {
	lower := strings.ToLower(name)
	for _, cat := range c.categories {
		for _, kw := range cat.Keywords {
			if strings.Contains(lower, kw) {
				return cat.Name
			}
		}
	}
	return CategoryOther
}

// Order 宣告順序的分類名稱
func (c *Categorizer) Order() []string {
	names := make([]string, 0, len(c.categories))
	for _, cat := range c.categories {
		names = append(names, cat.Name)
	}
	return names
}

// SortCategories 已知分類依宣告順序，其餘依字母排在後面
func (c *Categorizer) SortCategories(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		ri, iKnown := c.rank[names[i]]
		rj, jKnown := c.rank[names[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		default:
			return names[i] < names[j]
		}
	})
}

var defaultCategorizer = NewCategorizer(DefaultCategories())

// CategorizeIngredient 使用預設分類表分類食材
func CategorizeIngredient(name string) string {
	return defaultCategorizer.Categorize(name)
}

package grocery

import "strings"

// DefaultUnitSynonyms 單位別名對照表，值為標準單位
//
// 每個標準單位也對應到自己，確保正規化結果再正規化時不變。
func DefaultUnitSynonyms() map[string]string {
	return map[string]string{
		"tbsp":        "tablespoon",
		"tbs":         "tablespoon",
		"tbsp.":       "tablespoon",
		"tbs.":        "tablespoon",
		"tablespoon":  "tablespoon",
		"tablespoons": "tablespoon",

		"tsp":       "teaspoon",
		"tsp.":      "teaspoon",
		"teaspoon":  "teaspoon",
		"teaspoons": "teaspoon",

		"cup":  "cup",
		"cups": "cup",
		"c":    "cup",
		"c.":   "cup",

		"lb":     "pound",
		"lbs":    "pound",
		"lb.":    "pound",
		"lbs.":   "pound",
		"pound":  "pound",
		"pounds": "pound",

		"oz":     "ounce",
		"oz.":    "ounce",
		"ounce":  "ounce",
		"ounces": "ounce",

		"g":     "gram",
		"gram":  "gram",
		"grams": "gram",

		"kg":        "kilogram",
		"kilogram":  "kilogram",
		"kilograms": "kilogram",

		"ml":          "milliliter",
		"milliliter":  "milliliter",
		"milliliters": "milliliter",

		"l":      "liter",
		"liter":  "liter",
		"liters": "liter",

		"piece":  "piece",
		"pieces": "piece",
		"pcs":    "piece",
		"pc":     "piece",

		"clove":  "clove",
		"cloves": "clove",

		"head":  "head",
		"heads": "head",
	}
}

// UnitNormalizer 將單位別名轉為標準單位，建立後不可變更
type UnitNormalizer struct {
	synonyms map[string]string
}

// NewUnitNormalizer 以別名表建立正規化器，傳入的 map 會被複製
func NewUnitNormalizer(synonyms map[string]string) *UnitNormalizer {
	table := make(map[string]string, len(synonyms))
	for k, v := range synonyms {
		table[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &UnitNormalizer{synonyms: table}
}

// Normalize 回傳標準單位；空白輸入回傳空字串，未知單位原樣回傳
func (n *UnitNormalizer) Normalize(unit string) string {
	key := strings.ToLower(strings.TrimSpace(unit))
	if key == "" {
		return ""
	}
	if canonical, ok := n.synonyms[key]; ok {
		return canonical
	}
	return unit
}

// CanAggregate 兩個單位正規化後相同才能相加
func (n *UnitNormalizer) CanAggregate(unit1, unit2 string) bool {
	return n.Normalize(unit1) == n.Normalize(unit2)
}

var defaultNormalizer = NewUnitNormalizer(DefaultUnitSynonyms())

// NormalizeUnit 使用預設別名表正規化單位
func NormalizeUnit(unit string) string {
	return defaultNormalizer.Normalize(unit)
}

// CanAggregate 使用預設別名表判斷兩個單位能否相加
func CanAggregate(unit1, unit2 string) bool {
	return defaultNormalizer.CanAggregate(unit1, unit2)
}

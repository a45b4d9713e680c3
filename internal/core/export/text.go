package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"recipe-planner/internal/core/grocery"
	"recipe-planner/internal/pkg/common"
)

// 匯出格式
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatPDF  = "pdf"
)

// ContentType 各格式的 MIME 類型
func ContentType(format string) string {
	switch format {
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json; charset=utf-8"
	}
}

// Filename 下載檔名
func Filename(format string) string {
	switch format {
	case FormatText:
		return "grocery-list.txt"
	case FormatPDF:
		return "grocery-list.pdf"
	default:
		return "grocery-list.json"
	}
}

// ParseFormat 解析匯出格式，空字串為 json
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatText, FormatPDF:
		return f, nil
	case "txt":
		return FormatText, nil
	default:
		return "", common.ErrUnsupportedFormat.Wrap(fmt.Errorf("format %q", s))
	}
}

// Title 清單標題，含日期範圍
func Title(list *grocery.GroceryList) string {
	r := list.DateRange
	if r.Start == nil || r.End == nil {
		return "Grocery List"
	}
	start, end := common.FormatDate(r.Start), common.FormatDate(r.End)
	if start == end {
		return "Grocery List for " + start
	}
	return fmt.Sprintf("Grocery List %s to %s", start, end)
}

// QuantityLabel 數量與單位，例如 "2.5 cup"
func QuantityLabel(list *grocery.GroceryList, item grocery.AggregatedIngredient) string {
	q := item.Quantity.Round(list.DisplayPrecision).String()
	if item.Unit == "" {
		return q
	}
	return q + " " + item.Unit
}

// RenderText 輸出純文字購物清單，依分類分段
func RenderText(w io.Writer, list *grocery.GroceryList) error {
	bw := bufio.NewWriter(w)

	title := Title(list)
	fmt.Fprintln(bw, title)
	fmt.Fprintln(bw, strings.Repeat("=", len(title)))
	fmt.Fprintf(bw, "Meal plans: %d | Items: %d\n", list.MealPlansCount, list.TotalItems)

	if len(list.Categories) == 0 {
		fmt.Fprintln(bw)
		fmt.Fprintln(bw, "No ingredients for the selected meal plans.")
	}

	for _, group := range list.Categories {
		fmt.Fprintln(bw)
		fmt.Fprintln(bw, group.Name)
		fmt.Fprintln(bw, strings.Repeat("-", len(group.Name)))
		for _, item := range group.Items {
			fmt.Fprintf(bw, "[ ] %s - %s", item.Name, QuantityLabel(list, item))
			if len(item.Recipes) > 0 {
				fmt.Fprintf(bw, " (%s)", strings.Join(item.Recipes, ", "))
			}
			fmt.Fprintln(bw)
			if len(item.Notes) > 0 {
				fmt.Fprintf(bw, "    note: %s\n", strings.Join(item.Notes, "; "))
			}
		}
	}

	return bw.Flush()
}

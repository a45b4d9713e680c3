package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"recipe-planner/internal/core/grocery"
)

// 表格欄寬 (mm)
var pdfColumns = []struct {
	header string
	width  float64
}{
	{"Item", 70},
	{"Quantity", 35},
	{"Recipes", 85},
}

// RenderPDF 輸出 A4 表格式購物清單
func RenderPDF(w io.Writer, list *grocery.GroceryList) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	title := Title(list)
	pdf.SetTitle(title, true)
	pdf.SetCreator("recipe-planner", true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Meal plans: %d    Items: %d", list.MealPlansCount, list.TotalItems), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if len(list.Categories) == 0 {
		pdf.CellFormat(0, 8, "No ingredients for the selected meal plans.", "", 1, "L", false, 0, "")
	}

	for _, group := range list.Categories {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, tr(group.Name), "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, 7, col.header, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 10)
		for _, item := range group.Items {
			cells := []string{
				item.Name,
				QuantityLabel(list, item),
				strings.Join(item.Recipes, ", "),
			}
			for i, col := range pdfColumns {
				pdf.CellFormat(col.width, 7, fitCell(pdf, tr(cells[i]), col.width-2), "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(3)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// fitCell 截斷超出欄寬的文字
func fitCell(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	const ellipsis = "..."
	for len(s) > 0 && pdf.GetStringWidth(s+ellipsis) > width {
		s = s[:len(s)-1]
	}
	return s + ellipsis
}

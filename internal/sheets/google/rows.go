package google

import (
	"fmt"
	"strings"
	"time"

	"ceycent/internal/core"
)

// sheetTitle names the tab holding one month, e.g. "Reports 2025-02".
func sheetTitle(base string, m core.Month) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "Reports"
	}
	return fmt.Sprintf("%s %s", base, m.String())
}

// quoteSheet quotes a tab name for A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// buildRows lays the report out as the dashboard shows it: the sales
// table, the expenses table, then the profit line.
func buildRows(r core.MonthReport, loc *time.Location) [][]interface{} {
	label := r.Month.Label()
	rows := [][]interface{}{
		{"CEYCENT monthly report", label},
		{},
		{"Sales Report"},
		{"Date", "Items Sold", "Sales (Rs)"},
	}
	for _, s := range r.Sales {
		rows = append(rows, []interface{}{
			core.FormatDate(s.CreatedAt, loc),
			strings.Join(s.ItemNames, ", "),
			s.TotalAmount.Float(),
		})
	}
	rows = append(rows,
		[]interface{}{"Total", "", r.SalesTotal().Float()},
		[]interface{}{},
		[]interface{}{"Expenses Report"},
		[]interface{}{"Date", "Expense Name", "Expenses (Rs)"},
	)
	for _, e := range r.Expenses {
		rows = append(rows, []interface{}{
			core.FormatDate(e.Date, loc),
			e.Name,
			e.Price.Float(),
		})
	}
	rows = append(rows,
		[]interface{}{"Total", "", r.ExpensesTotal().Float()},
		[]interface{}{},
		[]interface{}{fmt.Sprintf("Total Profit for %s: %s", label, r.Profit.TotalProfit.Rupees())},
	)
	return rows
}

package report

import (
	"fmt"

	"ceycent/internal/core"
)

type SaleRow struct {
	Date  string
	Items []string
	Total string
}

type ExpenseRow struct {
	Date  string
	Name  string
	Price string
}

// View is an immutable copy of the viewer state, ready for templates.
type View struct {
	Month         core.Month
	MonthValue    string
	Label         string
	Loading       bool
	Generation    uint64
	Sales         []SaleRow
	Expenses      []ExpenseRow
	SalesTotal    string
	ExpensesTotal string
	Profit        core.Amount
	ProfitText    string
}

// ProfitLine renders "Total Profit for February 2025: Rs 3800".
func ProfitLine(m core.Month, profit core.Amount) string {
	return fmt.Sprintf("Total Profit for %s: %s", m.Label(), profit.Rupees())
}

func (v *Viewer) Snapshot() View {
	v.mu.Lock()
	defer v.mu.Unlock()

	month := v.query.Month
	view := View{
		Month:         month,
		MonthValue:    month.String(),
		Label:         month.Label(),
		Loading:       v.loading,
		Generation:    v.generation,
		Sales:         make([]SaleRow, 0, len(v.sales)),
		Expenses:      make([]ExpenseRow, 0, len(v.expenses)),
		SalesTotal:    core.SumSales(v.sales).String(),
		ExpensesTotal: core.SumExpenses(v.expenses).String(),
		Profit:        v.profit.TotalProfit,
		ProfitText:    ProfitLine(month, v.profit.TotalProfit),
	}

	for _, s := range v.sales {
		view.Sales = append(view.Sales, SaleRow{
			Date:  core.FormatDate(s.CreatedAt, v.loc),
			Items: append([]string(nil), s.ItemNames...),
			Total: s.TotalAmount.String(),
		})
	}
	for _, e := range v.expenses {
		view.Expenses = append(view.Expenses, ExpenseRow{
			Date:  core.FormatDate(e.Date, v.loc),
			Name:  e.Name,
			Price: e.Price.String(),
		})
	}
	return view
}

package core

// MonthReport bundles the three datasets of one fetch cycle.
type MonthReport struct {
	Month    Month
	Sales    []Sale
	Expenses []Expense
	Profit   Profit
}

// SalesTotal is the sum of the sales dataset.
func (r MonthReport) SalesTotal() Amount {
	return SumSales(r.Sales)
}

// ExpensesTotal is the sum of the expenses dataset.
func (r MonthReport) ExpensesTotal() Amount {
	return SumExpenses(r.Expenses)
}

package core

import (
	"math"
	"testing"
	"time"
)

func TestAmountFromRupees(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{3800, 380000},
		{0.1, 10},
		{0.2, 20},
		{12.346, 1235},
		{12.344, 1234},
		{-200, -20000},
		{math.NaN(), 0},
		{math.Inf(1), 0},
	}
	for _, tc := range cases {
		if got := AmountFromRupees(tc.in).Cents(); got != tc.want {
			t.Errorf("AmountFromRupees(%v) = %d cents, want %d", tc.in, got, tc.want)
		}
	}
}

func TestAmountString(t *testing.T) {
	cases := []struct {
		in   Amount
		want string
	}{
		{AmountFromRupees(3800), "3800"},
		{AmountFromRupees(1200), "1200"},
		{AmountFromRupees(12.5), "12.5"},
		{AmountFromRupees(0.1), "0.1"},
		{AmountFromRupees(0.05), "0.05"},
		{AmountFromRupees(700.25), "700.25"},
		{AmountFromRupees(-200), "-200"},
		{AmountFromRupees(-0.3), "-0.3"},
		{0, "0"},
		{Amount(math.MinInt64), "-92233720368547758.08"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Errorf("Amount(%d).String() = %q, want %q", int64(tc.in), got, tc.want)
		}
	}
	if got := AmountFromRupees(3800).Rupees(); got != "Rs 3800" {
		t.Fatalf("Rupees() = %q", got)
	}
	if got := AmountFromRupees(12.5).Float(); got != 12.5 {
		t.Fatalf("Float() = %v", got)
	}
}

func TestFormatDate(t *testing.T) {
	ts := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)
	if got := FormatDate(ts, nil); got != "2025-01-05" {
		t.Fatalf("FormatDate() = %q", got)
	}
	colombo := time.FixedZone("IST", 5*3600+1800)
	if got := FormatDate(ts, colombo); got != "2025-01-05" {
		t.Fatalf("FormatDate(colombo) = %q", got)
	}
	late := time.Date(2025, 1, 5, 20, 0, 0, 0, time.UTC)
	if got := FormatDate(late, colombo); got != "2025-01-06" {
		t.Fatalf("FormatDate(late, colombo) = %q", got)
	}
	if got := FormatDate(time.Time{}, nil); got != "" {
		t.Fatalf("zero time should render empty, got %q", got)
	}
}

func TestMonthReportTotals(t *testing.T) {
	r := MonthReport{
		Sales:    []Sale{{TotalAmount: AmountFromRupees(3000)}, {TotalAmount: AmountFromRupees(2000)}},
		Expenses: []Expense{{Price: AmountFromRupees(1200)}},
	}
	if got := r.SalesTotal(); got != AmountFromRupees(5000) {
		t.Fatalf("SalesTotal() = %v", got)
	}
	if got := r.ExpensesTotal(); got != AmountFromRupees(1200) {
		t.Fatalf("ExpensesTotal() = %v", got)
	}
}

func TestMonthReportTotals_FractionalAmountsAddUpExactly(t *testing.T) {
	r := MonthReport{
		Sales:    []Sale{{TotalAmount: AmountFromRupees(0.1)}, {TotalAmount: AmountFromRupees(0.2)}},
		Expenses: []Expense{{Price: AmountFromRupees(700.1)}, {Price: AmountFromRupees(0.2)}},
	}
	if got := r.SalesTotal().String(); got != "0.3" {
		t.Errorf("SalesTotal() = %q, want %q", got, "0.3")
	}
	if got := r.ExpensesTotal().String(); got != "700.3" {
		t.Errorf("ExpensesTotal() = %q, want %q", got, "700.3")
	}
}

// Package core provides the report domain shared by the API client, the
// report viewer and the exporters.
//
// This file contains the amount type used for every monetary value the
// remote API returns. The API sends rupees as JSON numbers; they are
// converted to cents once, at decode time, so totals add up exactly.
package core

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the layout of every date cell in the report tables.
const DateLayout = "2006-01-02"

// Amount is a rupee value stored as integer cents.
type Amount int64

// AmountFromRupees converts a rupee value to cents with half-away-from-zero
// rounding on the third decimal place. NaN and infinities become zero.
//
// Examples:
//
//	AmountFromRupees(3800)  -> 380000
//	AmountFromRupees(0.1)   -> 10
//	AmountFromRupees(12.346) -> 1235
func AmountFromRupees(v float64) Amount {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return Amount(math.Round(v * 100))
}

// Cents returns the raw cent value.
func (a Amount) Cents() int64 {
	return int64(a)
}

// Float returns the rupee value for display and spreadsheet cells.
// Use the Amount itself for arithmetic.
func (a Amount) Float() float64 {
	return float64(a) / 100
}

// String renders the amount the way a JavaScript number prints:
// no trailing zeros and no exponent.
//
// Examples:
//
//	AmountFromRupees(3800).String() -> "3800"
//	AmountFromRupees(12.5).String() -> "12.5"
//	AmountFromRupees(-200).String() -> "-200"
func (a Amount) String() string {
	cents := int64(a)
	sign := ""
	if cents < 0 {
		sign = "-"
	}
	u := uint64(cents)
	if cents < 0 {
		u = uint64(-(cents + 1)) + 1
	}
	whole := strconv.FormatUint(u/100, 10)
	frac := u % 100
	if frac == 0 {
		return sign + whole
	}
	digits := strings.TrimRight(strconv.FormatUint(100+frac, 10)[1:], "0")
	return sign + whole + "." + digits
}

// Rupees prefixes the amount with the currency label, e.g. "Rs 3800".
func (a Amount) Rupees() string {
	return "Rs " + a.String()
}

// FormatDate renders t as YYYY-MM-DD in loc. A nil loc means UTC.
func FormatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// SumSales adds up the total amount of every sale.
func SumSales(sales []Sale) Amount {
	var total Amount
	for _, s := range sales {
		total += s.TotalAmount
	}
	return total
}

// SumExpenses adds up the price of every expense.
func SumExpenses(expenses []Expense) Amount {
	var total Amount
	for _, e := range expenses {
		total += e.Price
	}
	return total
}

package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type (
	// Month identifies a calendar month of a given year.
	Month struct {
		Year  int
		Month time.Month
	}

	// Sale is one row of the monthly sales dataset.
	Sale struct {
		CreatedAt   time.Time
		ItemNames   []string
		TotalAmount Amount
	}

	// Expense is one row of the monthly expenses dataset.
	Expense struct {
		Date  time.Time
		Name  string
		Price Amount
	}

	// Profit is the server-computed profit for a month.
	Profit struct {
		TotalProfit Amount
	}
)

var (
	ErrInvalidMonth = errors.New("invalid month")
	ErrInvalidYear  = errors.New("invalid year")
)

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses the value of an HTML month input ("2006-01").
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	year, month, ok := strings.Cut(s, "-")
	if !ok || len(year) != 4 || len(month) != 2 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidYear, s)
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	out := Month{Year: y, Month: time.Month(m)}
	if err := out.Validate(); err != nil {
		return Month{}, err
	}
	return out, nil
}

func (m Month) Validate() error {
	if m.Month < time.January || m.Month > time.December {
		return ErrInvalidMonth
	}
	if m.Year < 1 || m.Year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

// IsZero reports whether the month was never set.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// String returns the month input value, e.g. "2025-03".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// MonthParam is the two-digit month used in report queries.
func (m Month) MonthParam() string {
	return fmt.Sprintf("%02d", int(m.Month))
}

// YearParam is the four-digit year used in report queries.
func (m Month) YearParam() string {
	return fmt.Sprintf("%04d", m.Year)
}

// Label returns the human readable form, e.g. "October 2025".
func (m Month) Label() string {
	return m.Month.String() + " " + strconv.Itoa(m.Year)
}

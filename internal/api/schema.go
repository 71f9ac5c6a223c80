package api

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ceycent/internal/core"

	"github.com/goccy/go-json"
)

// Timestamp accepts the date encodings the API has been seen to emit:
// RFC 3339 (with or without fraction), a bare local date-time, a bare
// date, or epoch milliseconds. Values without an offset are wall-clock
// times and are placed in the report zone by In.
type Timestamp struct {
	time.Time
	floating bool
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
}

var floatingLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	core.DateLayout,
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("timestamp is null")
	}

	if len(data) > 0 && data[0] != '"' {
		ms, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("timestamp %s: %w", data, err)
		}
		t.Time, t.floating = time.UnixMilli(ms).UTC(), false
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	for _, layout := range zonedLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time, t.floating = parsed, false
			return nil
		}
	}
	for _, layout := range floatingLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time, t.floating = parsed, true
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

// In returns the instant in loc. Wall-clock values keep their date and
// time of day in loc; values with an offset are converted.
func (t Timestamp) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if !t.floating {
		return t.Time.In(loc)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the body of POST /user/login. A successful login has
// Status "success" and a non-empty Token; failures usually carry Message.
type LoginResponse struct {
	Status  string `json:"status"`
	Token   string `json:"token"`
	Message string `json:"message"`
}

// Succeeded reports whether the response represents a successful login.
func (r LoginResponse) Succeeded() bool {
	return r.Status == "success" && strings.TrimSpace(r.Token) != ""
}

type saleSchema struct {
	CreatedAt   *Timestamp `json:"createdAt" validate:"required"`
	ItemNames   []string   `json:"itemNames"`
	TotalAmount *float64   `json:"totalAmount" validate:"required"`
}

func (s saleSchema) toCore(loc *time.Location) core.Sale {
	names := s.ItemNames
	if names == nil {
		names = []string{}
	}
	return core.Sale{
		CreatedAt:   s.CreatedAt.In(loc),
		ItemNames:   names,
		TotalAmount: core.AmountFromRupees(*s.TotalAmount),
	}
}

type expenseSchema struct {
	Date  *Timestamp `json:"date" validate:"required"`
	Name  string     `json:"name"`
	Price *float64   `json:"price" validate:"required"`
}

func (e expenseSchema) toCore(loc *time.Location) core.Expense {
	return core.Expense{
		Date:  e.Date.In(loc),
		Name:  e.Name,
		Price: core.AmountFromRupees(*e.Price),
	}
}

type profitSchema struct {
	TotalProfit *float64 `json:"totalProfit" validate:"required"`
}

type errorSchema struct {
	Message string `json:"message"`
}

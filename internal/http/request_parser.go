// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// the login form and the report month selection.

package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"ceycent/internal/core"
)

// maxFormBytes caps login and export request bodies.
const maxFormBytes = 64 << 10

// ErrNoMonth means the request did not name a month.
var ErrNoMonth = errors.New("no month selected")

// ParseMonthSelection reads the month picker value. It accepts the picker's
// own "YYYY-MM" form in month, or the remote API's pair month=MM&year=YYYY.
// ErrNoMonth is returned when month is absent.
func ParseMonthSelection(query url.Values) (core.Month, error) {
	raw := strings.TrimSpace(query.Get("month"))
	if raw == "" {
		return core.Month{}, ErrNoMonth
	}
	if strings.Contains(raw, "-") {
		return core.ParseMonth(raw)
	}

	m, err := strconv.Atoi(raw)
	if err != nil {
		return core.Month{}, fmt.Errorf("%w: %q", core.ErrInvalidMonth, raw)
	}
	yearRaw := strings.TrimSpace(query.Get("year"))
	y, err := strconv.Atoi(yearRaw)
	if err != nil {
		return core.Month{}, fmt.Errorf("%w: %q", core.ErrInvalidYear, yearRaw)
	}
	out := core.Month{Year: y, Month: time.Month(m)}
	if err := out.Validate(); err != nil {
		return core.Month{}, err
	}
	return out, nil
}

// LoginForm is the submitted credential pair. The password is kept exactly
// as typed.
type LoginForm struct {
	Username string
	Password string
}

// ParseLoginForm reads credentials from a form-encoded or JSON body.
func ParseLoginForm(r *http.Request) (LoginForm, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return LoginForm{}, fmt.Errorf("parse login form: %w", err)
	}
	return LoginForm{
		Username: sanitizeInput(p.Get("username")),
		Password: p.Get("password"),
	}, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads the body once, up to maxFormBytes.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxFormBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(body)
	return p.err
}

// Get returns the raw value for key from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if v, ok := p.jsonData[key].(string); ok {
			return v
		}
		return ""
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

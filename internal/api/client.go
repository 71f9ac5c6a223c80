// Package api is the typed client for the remote CEYCENT API. Responses are
// decoded into explicit schemas and validated before they reach callers.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ceycent/internal/core"
	"ceycent/internal/log"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	EndpointLogin    = "/user/login"
	EndpointSales    = "/report/sales"
	EndpointExpenses = "/report/expenses"
	EndpointProfit   = "/report/profit"

	maxBodyBytes = 4 << 20
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	validate   *validator.Validate
	logger     *log.Logger
	// location places offset-less API dates on the calendar.
	location *time.Location
}

type Option func(*Client)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLocation sets the zone for API dates that carry no offset.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.location = loc
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logger.WithComponent(log.ComponentAPI) }
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: NewHTTPClientWithPooling(timeout),
		validate:   validator.New(),
		logger:     log.New(log.DefaultConfig()).WithComponent(log.ComponentAPI),
		location:   time.UTC,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewHTTPClientWithPooling returns a client with a keep-alive connection
// pool and bounded timeouts at every stage.
func NewHTTPClientWithPooling(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// Login posts the credentials once. Any 2xx body that decodes is returned
// as is; deciding success is the caller's job.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	body, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return LoginResponse{}, &Error{Kind: KindBadResponse, Endpoint: EndpointLogin, Err: err}
	}

	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, EndpointLogin, nil, "", body, &resp); err != nil {
		return LoginResponse{}, err
	}
	return resp, nil
}

// Sales fetches the sales records of m.
func (c *Client) Sales(ctx context.Context, token string, m core.Month) ([]core.Sale, error) {
	var rows []saleSchema
	if err := c.do(ctx, http.MethodGet, EndpointSales, monthQuery(m), token, nil, &rows); err != nil {
		return nil, err
	}
	if err := validateRows(ctx, c.validate, EndpointSales, rows); err != nil {
		return nil, err
	}

	sales := make([]core.Sale, 0, len(rows))
	for _, r := range rows {
		sales = append(sales, r.toCore(c.location))
	}
	return sales, nil
}

// Expenses fetches the expense records of m.
func (c *Client) Expenses(ctx context.Context, token string, m core.Month) ([]core.Expense, error) {
	var rows []expenseSchema
	if err := c.do(ctx, http.MethodGet, EndpointExpenses, monthQuery(m), token, nil, &rows); err != nil {
		return nil, err
	}
	if err := validateRows(ctx, c.validate, EndpointExpenses, rows); err != nil {
		return nil, err
	}

	expenses := make([]core.Expense, 0, len(rows))
	for _, r := range rows {
		expenses = append(expenses, r.toCore(c.location))
	}
	return expenses, nil
}

// Profit fetches the total profit of m.
func (c *Client) Profit(ctx context.Context, token string, m core.Month) (core.Profit, error) {
	var p profitSchema
	if err := c.do(ctx, http.MethodGet, EndpointProfit, monthQuery(m), token, nil, &p); err != nil {
		return core.Profit{}, err
	}
	if err := c.validate.StructCtx(ctx, p); err != nil {
		return core.Profit{}, &Error{Kind: KindBadResponse, Endpoint: EndpointProfit, StatusCode: http.StatusOK, Err: err}
	}
	return core.Profit{TotalProfit: core.AmountFromRupees(*p.TotalProfit)}, nil
}

func monthQuery(m core.Month) url.Values {
	q := url.Values{}
	q.Set("month", m.MonthParam())
	q.Set("year", m.YearParam())
	return q
}

func validateRows[T any](ctx context.Context, v *validator.Validate, endpoint string, rows []T) error {
	for i, r := range rows {
		if err := v.StructCtx(ctx, r); err != nil {
			return &Error{Kind: KindBadResponse, Endpoint: endpoint, StatusCode: http.StatusOK, Err: fmt.Errorf("row %d: %w", i, err)}
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, token string, body []byte, out any) error {
	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &Error{Kind: KindNetwork, Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "Remote call failed",
			log.FieldEndpoint, endpoint,
			log.FieldError, err.Error())
		return &Error{Kind: KindNetwork, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Kind: KindNetwork, Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.DebugContext(ctx, "Remote call completed",
		log.FieldEndpoint, endpoint,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Kind: KindStatus, Endpoint: endpoint, StatusCode: resp.StatusCode}
		var e errorSchema
		if json.Unmarshal(raw, &e) == nil {
			apiErr.Message = strings.TrimSpace(e.Message)
		}
		return apiErr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindBadResponse, Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode body: %w", err)}
	}
	return nil
}

// Package report implements the monthly report viewer: the selected month,
// the three-call fetch cycle and the render snapshot.
package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ceycent/internal/activity"
	"ceycent/internal/api"
	"ceycent/internal/core"
	"ceycent/internal/log"
)

// Source is the remote report API.
type Source interface {
	Sales(ctx context.Context, token string, m core.Month) ([]core.Sale, error)
	Expenses(ctx context.Context, token string, m core.Month) ([]core.Expense, error)
	Profit(ctx context.Context, token string, m core.Month) (core.Profit, error)
}

// Query is the report query: the month whose data is shown.
type Query struct {
	Month core.Month
}

type Options struct {
	// Location is used for the default month and for date cells.
	Location *time.Location
	Now      func() time.Time
}

// Viewer holds one session's report state. All methods are safe for
// concurrent use; remote calls run without holding the lock.
type Viewer struct {
	source    Source
	publisher activity.Publisher
	logger    *log.Logger
	loc       *time.Location
	now       func() time.Time
	sessionID string

	mu         sync.Mutex
	token      string
	query      Query
	sales      []core.Sale
	expenses   []core.Expense
	profit     core.Profit
	loading    bool
	generation uint64
	cancel     context.CancelFunc
}

func NewViewer(sessionID string, source Source, publisher activity.Publisher, logger *log.Logger, opts Options) *Viewer {
	if publisher == nil {
		publisher = activity.Noop{}
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Viewer{
		source:    source,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentReport),
		loc:       opts.Location,
		now:       opts.Now,
		sessionID: sessionID,
	}
}

// SetToken updates the credential sent with report requests.
func (v *Viewer) SetToken(token string) {
	v.mu.Lock()
	v.token = token
	v.mu.Unlock()
}

// CurrentMonth is the calendar month of now in the viewer's time zone.
func (v *Viewer) CurrentMonth() core.Month {
	return core.MonthOf(v.now().In(v.loc))
}

// Mount resets the viewer, selects month (the current month when zero)
// and runs a fetch cycle.
func (v *Viewer) Mount(ctx context.Context, month core.Month) {
	if month.IsZero() || month.Validate() != nil {
		month = v.CurrentMonth()
	}

	v.mu.Lock()
	v.sales = nil
	v.expenses = nil
	v.profit = core.Profit{}
	v.query = Query{Month: month}
	cycleCtx, gen, token := v.startCycleLocked(ctx)
	v.mu.Unlock()

	v.fetchData(cycleCtx, gen, token, month)
}

// SelectMonth re-fetches only when month differs from the current query.
// It reports whether a fetch cycle ran.
func (v *Viewer) SelectMonth(ctx context.Context, month core.Month) bool {
	if month.Validate() != nil {
		return false
	}

	v.mu.Lock()
	if v.query.Month == month {
		v.mu.Unlock()
		return false
	}
	v.query = Query{Month: month}
	cycleCtx, gen, token := v.startCycleLocked(ctx)
	v.mu.Unlock()

	v.fetchData(cycleCtx, gen, token, month)
	return true
}

// startCycleLocked supersedes any running cycle. Callers hold v.mu.
func (v *Viewer) startCycleLocked(ctx context.Context) (context.Context, uint64, string) {
	if v.cancel != nil {
		v.cancel()
	}
	cycleCtx, cancel := context.WithCancel(ctx)
	v.generation++
	v.cancel = cancel
	v.loading = true
	return cycleCtx, v.generation, v.token
}

// Close cancels any in-flight cycle.
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.generation++
	v.loading = false
}

// fetchData awaits sales, expenses and profit in order. Each slice is
// replaced as its response arrives; the first failure aborts the rest and
// leaves earlier slices in place.
func (v *Viewer) fetchData(ctx context.Context, gen uint64, token string, month core.Month) {
	sales, err := v.source.Sales(ctx, token, month)
	if err != nil {
		v.fail(ctx, gen, month, api.EndpointSales, err)
		return
	}
	if !v.apply(gen, func() { v.sales = sales }) {
		return
	}

	expenses, err := v.source.Expenses(ctx, token, month)
	if err != nil {
		v.fail(ctx, gen, month, api.EndpointExpenses, err)
		return
	}
	if !v.apply(gen, func() { v.expenses = expenses }) {
		return
	}

	profit, err := v.source.Profit(ctx, token, month)
	if err != nil {
		v.fail(ctx, gen, month, api.EndpointProfit, err)
		return
	}
	if !v.apply(gen, func() {
		v.profit = profit
		v.loading = false
		v.releaseLocked(gen)
	}) {
		return
	}

	log.NewStructuredLogger(v.logger).LogReportCycle(ctx, month.Year, int(month.Month), gen,
		len(sales), len(expenses), profit.TotalProfit.Float())

	e := activity.NewEvent(activity.KindReportViewed)
	e.SessionID = v.sessionID
	e.Month = month.String()
	e.Detail = fmt.Sprintf("sales=%d expenses=%d profit=%s", len(sales), len(expenses), profit.TotalProfit)
	activity.Emit(context.WithoutCancel(ctx), v.publisher, e, v.logger)
}

// apply runs set under the lock only if gen is still current.
func (v *Viewer) apply(gen uint64, set func()) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.generation {
		v.logger.Debug("Discarding superseded report response",
			log.FieldGeneration, gen,
			"current_generation", v.generation)
		return false
	}
	set()
	return true
}

func (v *Viewer) fail(ctx context.Context, gen uint64, month core.Month, endpoint string, err error) {
	current := v.apply(gen, func() {
		v.loading = false
		v.releaseLocked(gen)
	})

	fields := log.NewFields().
		WithSessionID(v.sessionID).
		WithMonth(month.Year, int(month.Month)).
		WithOperation(log.OpFetch).
		WithError(err)
	fields[log.FieldEndpoint] = endpoint
	fields[log.FieldGeneration] = gen
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		fields[log.FieldErrorKind] = apiErr.Kind.String()
	}

	if !current || errors.Is(err, context.Canceled) {
		v.logger.DebugContext(ctx, "Report fetch cycle abandoned", fields.ToSlice()...)
		return
	}
	v.logger.ErrorContext(ctx, "Error fetching report data", fields.ToSlice()...)
}

func (v *Viewer) releaseLocked(gen uint64) {
	if gen == v.generation && v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}

// Report returns the data currently held for the selected month. ok is
// false while a cycle is running or before the first mount.
func (v *Viewer) Report() (core.MonthReport, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.loading || v.query.Month.IsZero() {
		return core.MonthReport{}, false
	}
	return core.MonthReport{
		Month:    v.query.Month,
		Sales:    append([]core.Sale(nil), v.sales...),
		Expenses: append([]core.Expense(nil), v.expenses...),
		Profit:   v.profit,
	}, true
}

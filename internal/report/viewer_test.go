package report

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ceycent/internal/activity"
	"ceycent/internal/api"
	"ceycent/internal/core"
	"ceycent/internal/log"
)

type call struct {
	Endpoint string
	Month    string
	Year     string
	Token    string
}

type monthData struct {
	sales    []core.Sale
	expenses []core.Expense
	profit   core.Profit
}

// fakeSource serves canned data per month and records every call.
type fakeSource struct {
	mu    sync.Mutex
	calls []call
	data  map[core.Month]monthData
	fail  map[string]error
	// gates block the sales call of a month until closed.
	gates map[core.Month]chan struct{}
	// entered is signalled when a gated call starts waiting.
	entered chan core.Month
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		data:    map[core.Month]monthData{},
		fail:    map[string]error{},
		gates:   map[core.Month]chan struct{}{},
		entered: make(chan core.Month, 4),
	}
}

func (f *fakeSource) record(endpoint, token string, m core.Month) (monthData, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{Endpoint: endpoint, Month: m.MonthParam(), Year: m.YearParam(), Token: token})
	d := f.data[m]
	err := f.fail[endpoint]
	f.mu.Unlock()
	return d, err
}

func (f *fakeSource) Sales(_ context.Context, token string, m core.Month) ([]core.Sale, error) {
	f.mu.Lock()
	gate := f.gates[m]
	f.mu.Unlock()
	if gate != nil {
		f.entered <- m
		<-gate
	}
	d, err := f.record(api.EndpointSales, token, m)
	return d.sales, err
}

func (f *fakeSource) Expenses(_ context.Context, token string, m core.Month) ([]core.Expense, error) {
	d, err := f.record(api.EndpointExpenses, token, m)
	return d.expenses, err
}

func (f *fakeSource) Profit(_ context.Context, token string, m core.Month) (core.Profit, error) {
	d, err := f.record(api.EndpointProfit, token, m)
	return d.profit, err
}

func (f *fakeSource) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

var (
	feb2025   = core.Month{Year: 2025, Month: time.February}
	march2025 = core.Month{Year: 2025, Month: time.March}
)

func newTestViewer(src Source) (*Viewer, *activity.Recorder, *bytes.Buffer) {
	var buf bytes.Buffer
	rec := activity.NewRecorder(16)
	logger := log.New(log.Config{Output: &buf, Level: -4})
	now := func() time.Time { return time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC) }
	v := NewViewer("sess-1", src, rec, logger, Options{Location: time.UTC, Now: now})
	return v, rec, &buf
}

func TestMount_ThreeSequentialCallsForMonth(t *testing.T) {
	src := newFakeSource()
	v, _, _ := newTestViewer(src)
	v.SetToken("tok")

	v.Mount(context.Background(), march2025)

	calls := src.Calls()
	want := []string{api.EndpointSales, api.EndpointExpenses, api.EndpointProfit}
	if len(calls) != len(want) {
		t.Fatalf("got %d calls, want 3: %+v", len(calls), calls)
	}
	for i, c := range calls {
		if c.Endpoint != want[i] {
			t.Errorf("call %d endpoint = %s, want %s", i, c.Endpoint, want[i])
		}
		if c.Month != "03" || c.Year != "2025" {
			t.Errorf("call %d params = month=%s year=%s, want month=03 year=2025", i, c.Month, c.Year)
		}
		if c.Token != "tok" {
			t.Errorf("call %d token = %q", i, c.Token)
		}
	}
	if v.Snapshot().Loading {
		t.Error("Loading should be cleared after the cycle")
	}
}

func TestMount_DefaultsToCurrentMonth(t *testing.T) {
	src := newFakeSource()
	v, _, _ := newTestViewer(src)

	v.Mount(context.Background(), core.Month{})

	snap := v.Snapshot()
	if snap.MonthValue != "2025-10" || snap.Label != "October 2025" {
		t.Errorf("snapshot month = %s (%s), want 2025-10", snap.MonthValue, snap.Label)
	}
	if c := src.Calls()[0]; c.Month != "10" || c.Year != "2025" {
		t.Errorf("first call = %+v", c)
	}
}

func TestSelectMonth_SameMonthIsNoop(t *testing.T) {
	src := newFakeSource()
	v, _, _ := newTestViewer(src)

	v.Mount(context.Background(), feb2025)
	if v.SelectMonth(context.Background(), feb2025) {
		t.Error("SelectMonth with identical month reported a fetch")
	}
	if n := len(src.Calls()); n != 3 {
		t.Errorf("got %d calls, want exactly one cycle (3 calls)", n)
	}

	if !v.SelectMonth(context.Background(), march2025) {
		t.Error("SelectMonth with new month should fetch")
	}
	if v.SelectMonth(context.Background(), march2025) {
		t.Error("second identical selection should be a no-op")
	}
	if n := len(src.Calls()); n != 6 {
		t.Errorf("got %d calls, want 6", n)
	}
}

func TestSelectMonth_RejectsInvalidMonth(t *testing.T) {
	src := newFakeSource()
	v, _, _ := newTestViewer(src)

	if v.SelectMonth(context.Background(), core.Month{Year: 2025, Month: 13}) {
		t.Error("invalid month should not fetch")
	}
	if len(src.Calls()) != 0 {
		t.Error("no remote calls expected")
	}
}

func TestFetch_FailureKeepsEarlierSlices(t *testing.T) {
	src := newFakeSource()
	src.data[feb2025] = monthData{
		sales:    []core.Sale{{CreatedAt: time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), ItemNames: []string{"A"}, TotalAmount: core.AmountFromRupees(5000)}},
		expenses: []core.Expense{{Date: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), Name: "Rent", Price: core.AmountFromRupees(1200)}},
		profit:   core.Profit{TotalProfit: core.AmountFromRupees(3800)},
	}
	src.data[march2025] = monthData{
		sales: []core.Sale{{CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), TotalAmount: core.AmountFromRupees(10)}},
	}

	v, rec, logs := newTestViewer(src)
	v.Mount(context.Background(), feb2025)
	rec.Drain()

	src.mu.Lock()
	src.fail[api.EndpointExpenses] = &api.Error{Kind: api.KindNetwork, Endpoint: api.EndpointExpenses, Err: errors.New("timeout")}
	src.mu.Unlock()

	v.SelectMonth(context.Background(), march2025)

	calls := src.Calls()[3:]
	if len(calls) != 2 {
		t.Fatalf("failed cycle made %d calls, want 2 (profit skipped): %+v", len(calls), calls)
	}

	snap := v.Snapshot()
	if snap.Loading {
		t.Error("Loading should be cleared after a failure")
	}
	if len(snap.Sales) != 1 || snap.Sales[0].Date != "2025-03-01" {
		t.Errorf("sales should hold March data: %+v", snap.Sales)
	}
	if len(snap.Expenses) != 1 || snap.Expenses[0].Name != "Rent" {
		t.Errorf("expenses should keep February data: %+v", snap.Expenses)
	}
	if snap.ProfitText != "Total Profit for March 2025: Rs 3800" {
		t.Errorf("ProfitText = %q", snap.ProfitText)
	}
	if !strings.Contains(logs.String(), "Error fetching report data") || !strings.Contains(logs.String(), "error_kind=network") {
		t.Errorf("failure not logged: %s", logs.String())
	}
	if len(rec.Drain()) != 0 {
		t.Error("failed cycle must not publish report_viewed")
	}
}

func TestFetch_StaleCycleIsDiscarded(t *testing.T) {
	src := newFakeSource()
	src.data[feb2025] = monthData{sales: []core.Sale{{TotalAmount: core.AmountFromRupees(111)}}, profit: core.Profit{TotalProfit: core.AmountFromRupees(1)}}
	src.data[march2025] = monthData{sales: []core.Sale{{TotalAmount: core.AmountFromRupees(222)}}, profit: core.Profit{TotalProfit: core.AmountFromRupees(2)}}
	gate := make(chan struct{})
	src.gates[feb2025] = gate

	v, rec, _ := newTestViewer(src)

	done := make(chan struct{})
	go func() {
		defer close(done)
		v.Mount(context.Background(), feb2025)
	}()

	select {
	case <-src.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle never started")
	}

	if !v.SelectMonth(context.Background(), march2025) {
		t.Fatal("SelectMonth should start a new cycle")
	}

	close(gate)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stale cycle did not finish")
	}

	snap := v.Snapshot()
	if snap.MonthValue != "2025-03" || len(snap.Sales) != 1 || snap.Sales[0].Total != "222" {
		t.Errorf("stale data overwrote newer cycle: %+v", snap)
	}
	if snap.Profit != 2 || snap.Loading {
		t.Errorf("snapshot = %+v", snap)
	}

	var febCalls int
	for _, c := range src.Calls() {
		if c.Month == "02" {
			febCalls++
		}
	}
	if febCalls != 1 {
		t.Errorf("stale cycle made %d calls, want 1 (aborted after discard)", febCalls)
	}

	events := rec.Drain()
	if len(events) != 1 || events[0].Month != "2025-03" {
		t.Errorf("events = %+v, want one report_viewed for 2025-03", events)
	}
}

func TestFebruaryScenario(t *testing.T) {
	src := newFakeSource()
	src.data[feb2025] = monthData{
		sales: []core.Sale{
			{CreatedAt: time.Date(2025, 2, 1, 8, 30, 0, 0, time.UTC), ItemNames: []string{"Cinnamon", "Pepper"}, TotalAmount: core.AmountFromRupees(5000)},
		},
		expenses: []core.Expense{
			{Date: time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), Name: "Transport", Price: core.AmountFromRupees(1200)},
		},
		profit: core.Profit{TotalProfit: core.AmountFromRupees(3800)},
	}

	v, rec, _ := newTestViewer(src)
	v.Mount(context.Background(), feb2025)

	snap := v.Snapshot()
	if snap.ProfitText != "Total Profit for February 2025: Rs 3800" {
		t.Errorf("ProfitText = %q", snap.ProfitText)
	}
	if snap.Sales[0].Date != "2025-02-01" || strings.Join(snap.Sales[0].Items, "|") != "Cinnamon|Pepper" || snap.Sales[0].Total != "5000" {
		t.Errorf("sale row = %+v", snap.Sales[0])
	}
	if snap.Expenses[0].Date != "2025-02-14" || snap.Expenses[0].Price != "1200" {
		t.Errorf("expense row = %+v", snap.Expenses[0])
	}
	if snap.SalesTotal != "5000" || snap.ExpensesTotal != "1200" {
		t.Errorf("totals = %s / %s", snap.SalesTotal, snap.ExpensesTotal)
	}

	report, ok := v.Report()
	if !ok || report.Month != feb2025 || report.Profit.TotalProfit != core.AmountFromRupees(3800) {
		t.Errorf("Report() = %+v, %v", report, ok)
	}

	events := rec.Drain()
	if len(events) != 1 || events[0].Kind != activity.KindReportViewed || events[0].SessionID != "sess-1" {
		t.Errorf("events = %+v", events)
	}
}

func TestSnapshot_FractionalTotals(t *testing.T) {
	src := newFakeSource()
	src.data[feb2025] = monthData{
		sales: []core.Sale{
			{CreatedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), TotalAmount: core.AmountFromRupees(0.1)},
			{CreatedAt: time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC), TotalAmount: core.AmountFromRupees(0.2)},
		},
		expenses: []core.Expense{
			{Date: time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), Name: "Tea", Price: core.AmountFromRupees(12.5)},
			{Date: time.Date(2025, 2, 4, 0, 0, 0, 0, time.UTC), Name: "Milk", Price: core.AmountFromRupees(0.75)},
		},
		profit: core.Profit{TotalProfit: core.AmountFromRupees(-12.95)},
	}

	v, _, _ := newTestViewer(src)
	v.Mount(context.Background(), feb2025)

	snap := v.Snapshot()
	if snap.SalesTotal != "0.3" {
		t.Errorf("SalesTotal = %q, want %q", snap.SalesTotal, "0.3")
	}
	if snap.ExpensesTotal != "13.25" {
		t.Errorf("ExpensesTotal = %q, want %q", snap.ExpensesTotal, "13.25")
	}
	if snap.ProfitText != "Total Profit for February 2025: Rs -12.95" {
		t.Errorf("ProfitText = %q", snap.ProfitText)
	}
}

func TestSnapshot_DateUsesLocation(t *testing.T) {
	src := newFakeSource()
	src.data[core.Month{Year: 2025, Month: time.January}] = monthData{
		sales: []core.Sale{{CreatedAt: time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)}},
	}
	colombo := time.FixedZone("IST", 5*3600+1800)
	v := NewViewer("s", src, nil, log.New(log.Config{Output: &bytes.Buffer{}}), Options{Location: colombo})

	v.Mount(context.Background(), core.Month{Year: 2025, Month: time.January})
	if got := v.Snapshot().Sales[0].Date; got != "2025-01-05" {
		t.Errorf("Date = %s, want 2025-01-05", got)
	}
}

func TestMount_ResetsState(t *testing.T) {
	src := newFakeSource()
	src.data[feb2025] = monthData{sales: []core.Sale{{TotalAmount: core.AmountFromRupees(1)}}, expenses: []core.Expense{{Price: core.AmountFromRupees(1)}}}
	v, _, _ := newTestViewer(src)
	v.Mount(context.Background(), feb2025)

	src.mu.Lock()
	src.fail[api.EndpointSales] = errors.New("down")
	src.mu.Unlock()

	v.Mount(context.Background(), feb2025)
	snap := v.Snapshot()
	if len(snap.Sales) != 0 || len(snap.Expenses) != 0 {
		t.Errorf("Mount should reset previous data: %+v", snap)
	}
}

func TestReport_NotReadyBeforeMount(t *testing.T) {
	v, _, _ := newTestViewer(newFakeSource())
	if _, ok := v.Report(); ok {
		t.Error("Report() should not be ready before mount")
	}
}

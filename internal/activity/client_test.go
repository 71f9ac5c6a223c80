package activity

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ceycent/internal/log"
)

type fakeAck struct {
	mu      sync.Mutex
	acked   int
	nacked  int
	requeue []bool
}

func (f *fakeAck) Ack(bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked++
	return nil
}

func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked++
	f.requeue = append(f.requeue, requeue)
	return nil
}

func testLogger() *log.Logger {
	return log.New(log.Config{Output: &bytes.Buffer{}, Component: log.ComponentAMQP})
}

func encoded(t *testing.T, e Event) []byte {
	t.Helper()
	b, err := e.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	return b
}

func TestEventFromJSON(t *testing.T) {
	e := NewEvent(KindReportViewed)
	e.Month = "2025-02"
	e.SessionID = "abc"

	got, err := EventFromJSON(encoded(t, e))
	if err != nil {
		t.Fatalf("EventFromJSON() error = %v", err)
	}
	if got.ID != e.ID || got.Kind != KindReportViewed || got.Month != "2025-02" {
		t.Errorf("EventFromJSON() = %+v", got)
	}

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"unknown kind", `{"id":"1","kind":"party"}`},
		{"missing id", `{"kind":"logout"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EventFromJSON([]byte(tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestProcess_AckNackBehaviour(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	good := NewEvent(KindLogout)
	bad := NewEvent(KindLoginFailed)

	okAck, failAck, junkAck := &fakeAck{}, &fakeAck{}, &fakeAck{}
	deliveries := make(chan delivery, 3)
	deliveries <- delivery{body: encoded(t, good), ack: okAck}
	deliveries <- delivery{body: encoded(t, bad), ack: failAck}
	deliveries <- delivery{body: []byte("garbage"), ack: junkAck}
	close(deliveries)

	var handled []Kind
	handler := func(_ context.Context, e Event) error {
		handled = append(handled, e.Kind)
		if e.ID == bad.ID {
			return errors.New("db locked")
		}
		return nil
	}

	err := process(ctx, deliveries, handler, testLogger())
	if !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("process() error = %v, want ErrChannelClosed", err)
	}

	if okAck.acked != 1 || okAck.nacked != 0 {
		t.Errorf("good delivery ack=%d nack=%d", okAck.acked, okAck.nacked)
	}
	if failAck.nacked != 1 || !failAck.requeue[0] {
		t.Errorf("failed delivery should be requeued: %+v", failAck)
	}
	if junkAck.nacked != 1 || junkAck.requeue[0] {
		t.Errorf("malformed delivery should be dropped: %+v", junkAck)
	}
	if len(handled) != 2 {
		t.Errorf("handled = %v, want 2 events", handled)
	}
}

func TestProcess_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	deliveries := make(chan delivery)

	done := make(chan error, 1)
	go func() {
		done <- process(ctx, deliveries, func(context.Context, Event) error { return nil }, testLogger())
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("process() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("process did not stop after cancel")
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, Event) error { return errors.New("broker down") }

func TestEmit(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf})

	Emit(context.Background(), failingPublisher{}, NewEvent(KindLogout), logger)
	if !strings.Contains(buf.String(), "broker down") {
		t.Errorf("expected failure to be logged, got %q", buf.String())
	}

	rec := NewRecorder(4)
	Emit(context.Background(), rec, NewEvent(KindLogout), logger)
	Emit(context.Background(), nil, NewEvent(KindLogout), logger)
	if got := rec.Drain(); len(got) != 1 || got[0].Kind != KindLogout {
		t.Errorf("Drain() = %+v", got)
	}
}

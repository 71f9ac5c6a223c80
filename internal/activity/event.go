// Package activity publishes dashboard activity events (logins, logouts,
// report views) to AMQP and consumes them in the activity worker.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type Kind string

const (
	KindLoginSucceeded Kind = "login_succeeded"
	KindLoginFailed    Kind = "login_failed"
	KindLogout         Kind = "logout"
	KindReportViewed   Kind = "report_viewed"
	KindReportExported Kind = "report_exported"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindLoginSucceeded, KindLoginFailed, KindLogout, KindReportViewed, KindReportExported:
		return true
	default:
		return false
	}
}

// Event is one activity record. Month is "YYYY-MM" for report events.
type Event struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	SessionID string    `json:"session_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	Month     string    `json:"month,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent stamps an event with a fresh ID and the current time.
func NewEvent(kind Kind) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Timestamp: time.Now().UTC(),
	}
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EventFromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	if !e.Kind.IsValid() {
		return Event{}, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.ID == "" {
		return Event{}, fmt.Errorf("event without id")
	}
	return e, nil
}

// Publisher delivers activity events. Publishing is best effort: callers
// log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Noop discards every event. Used when AMQP is not configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	events chan Event
}

func NewRecorder(capacity int) *Recorder {
	return &Recorder{events: make(chan Event, capacity)}
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	select {
	case r.events <- e:
		return nil
	default:
		return fmt.Errorf("recorder full")
	}
}

// Drain returns the events published so far.
func (r *Recorder) Drain() []Event {
	var out []Event
	for {
		select {
		case e := <-r.events:
			out = append(out, e)
		default:
			return out
		}
	}
}

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"ceycent/internal/session"

	goredis "github.com/redis/go-redis/v9"
)

type fakeClient struct {
	data    map[string]string
	ttls    map[string]time.Duration
	failErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeClient) Get(_ context.Context, key string) *goredis.StringCmd {
	if f.failErr != nil {
		return goredis.NewStringResult("", f.failErr)
	}
	v, ok := f.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeClient) Set(_ context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd {
	if f.failErr != nil {
		return goredis.NewStatusResult("", f.failErr)
	}
	f.data[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeClient) SetXX(_ context.Context, key string, value any, expiration time.Duration) *goredis.BoolCmd {
	if f.failErr != nil {
		return goredis.NewBoolResult(false, f.failErr)
	}
	if _, ok := f.data[key]; !ok {
		return goredis.NewBoolResult(false, nil)
	}
	f.data[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return goredis.NewBoolResult(true, nil)
}

func (f *fakeClient) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

func TestStore_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	store := New(fc)

	sess := session.Session{
		ID:        "3f1c2a4e-0000-4000-8000-000000000001",
		Token:     "tok-123",
		Username:  "admin",
		CreatedAt: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
		LastSeen:  time.Date(2025, 2, 1, 9, 5, 0, 0, time.UTC),
	}

	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if fc.ttls[keyPrefix+sess.ID] != time.Hour {
		t.Errorf("ttl = %v, want 1h", fc.ttls[keyPrefix+sess.ID])
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Token != sess.Token || got.Username != sess.Username || !got.CreatedAt.Equal(sess.CreatedAt) {
		t.Errorf("Get() = %+v, want %+v", got, sess)
	}

	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestStore_RefreshOnlyExistingKeys(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	store := New(fc)

	sess := session.Session{ID: "3f1c2a4e-0000-4000-8000-000000000002", Token: "tok"}
	if err := store.Refresh(ctx, sess, time.Hour); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("Refresh() on missing key error = %v, want ErrNotFound", err)
	}
	if _, ok := fc.data[keyPrefix+sess.ID]; ok {
		t.Fatal("Refresh created a missing session")
	}

	if err := store.Save(ctx, sess, time.Minute); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	sess.LastSeen = time.Date(2025, 2, 14, 9, 0, 0, 0, time.UTC)
	if err := store.Refresh(ctx, sess, time.Hour); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if fc.ttls[keyPrefix+sess.ID] != time.Hour {
		t.Errorf("ttl = %v, want 1h", fc.ttls[keyPrefix+sess.ID])
	}
	got, err := store.Get(ctx, sess.ID)
	if err != nil || !got.LastSeen.Equal(sess.LastSeen) {
		t.Errorf("Get() = %+v, %v", got, err)
	}
}

func TestStore_GetMissing(t *testing.T) {
	store := New(newFakeClient())
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestStore_BackendFailure(t *testing.T) {
	fc := newFakeClient()
	fc.failErr = errors.New("connection refused")
	store := New(fc)

	_, err := store.Get(context.Background(), "id")
	if err == nil || errors.Is(err, session.ErrNotFound) {
		t.Errorf("Get() error = %v, want wrapped backend error", err)
	}
	if err := store.Save(context.Background(), session.Session{ID: "id"}, time.Minute); err == nil {
		t.Error("Save() error = nil, want backend error")
	}
}

func TestStore_CorruptPayload(t *testing.T) {
	fc := newFakeClient()
	fc.data[keyPrefix+"id"] = "{not json"
	store := New(fc)

	if _, err := store.Get(context.Background(), "id"); err == nil {
		t.Error("Get() error = nil, want decode error")
	}
}

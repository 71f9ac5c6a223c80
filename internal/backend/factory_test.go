package backend

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ceycent/internal/config"
	"ceycent/internal/log"
	"ceycent/internal/session"
)

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: &bytes.Buffer{}})
}

func TestBackendType_IsValid(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Errorf("%s should be valid", bt)
		}
	}
	if BackendType("sheets").IsValid() {
		t.Error("sheets is not a session backend")
	}
	if got := strings.Join(GetBackendTypeStrings(), ","); got != "memory,sqlite,redis" {
		t.Errorf("GetBackendTypeStrings() = %s", got)
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}

	cfg, err := FromAppConfig(&config.Config{SessionBackend: "redis", RedisAddr: "r:6379", RedisDB: 2, SessionTTL: time.Hour})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != RedisBackend || cfg.RedisAddr != "r:6379" || cfg.RedisDB != 2 || cfg.SessionTTL != time.Hour {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{SessionBackend: "postgres"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend, SessionTTL: time.Hour}, false},
		{"memory without ttl", Config{Type: MemoryBackend}, true},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"redis without addr", Config{Type: RedisBackend}, true},
		{"unknown", Config{Type: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend_Memory(t *testing.T) {
	f := NewFactory(quietLogger())
	res, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend, SessionTTL: time.Hour})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Close()

	if _, ok := res.Store.(*session.MemoryStore); !ok {
		t.Errorf("Store = %T, want *session.MemoryStore", res.Store)
	}
	if res.Cleaner == nil {
		t.Error("memory backend should expose a cleaner")
	}
}

func TestCreateBackend_SQLite(t *testing.T) {
	f := NewFactory(quietLogger())
	path := filepath.Join(t.TempDir(), "sessions.db")
	res, err := f.CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path, SessionTTL: time.Hour})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Close()

	if err := res.Ready(context.Background()); err != nil {
		t.Errorf("Ready() error = %v", err)
	}

	ctx := context.Background()
	s := session.Session{ID: "id-1", Token: "tok", CreatedAt: time.Now(), LastSeen: time.Now()}
	if err := res.Store.Save(ctx, s, time.Hour); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got, err := res.Store.Get(ctx, "id-1"); err != nil || got.Token != "tok" {
		t.Errorf("Get() = %+v, %v", got, err)
	}
}

func TestBackendResult_CloseNil(t *testing.T) {
	var r *BackendResult
	if err := r.Close(); err != nil {
		t.Errorf("Close() on nil = %v", err)
	}
}

package backend

import (
	"context"
	"path/filepath"
	"testing"

	"fintrack/internal/config"
	"fintrack/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", DataFileDir: "d"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" || cfg.DataDirectory != "d" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory without directory", Config{Type: MemoryBackend}, false},
		{"file without directory", Config{Type: FileBackend}, true},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"redis without url", Config{Type: RedisBackend}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	configs := []Config{
		{Type: MemoryBackend},
		{Type: FileBackend, DataDirectory: dir},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "fintrack.db")},
	}

	f := NewFactory(nil)
	ctx := context.Background()
	for _, cfg := range configs {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := f.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer res.Close()

			if err := res.Backend.Save(ctx, "slot", []byte(`{"a":1}`)); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := res.Backend.Load(ctx, "slot")
			if err != nil || string(got) != `{"a":1}` {
				t.Fatalf("Load = %q, %v", got, err)
			}
			if err := res.Backend.Delete(ctx, "slot"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := res.Backend.Load(ctx, "slot"); err != storage.ErrNotFound {
				t.Fatalf("Load after delete: %v", err)
			}
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if len(got) != 4 || got[0] != "memory" || got[3] != "redis" {
		t.Errorf("unexpected types: %v", got)
	}
}

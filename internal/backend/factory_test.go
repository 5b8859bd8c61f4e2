package backend

import (
	"context"
	"path/filepath"
	"testing"

	"leaderboard/internal/config"
	"leaderboard/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "file", LedgerFile: "x.json"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Type != FileBackend || cfg.LedgerFile != "x.json" {
		t.Fatalf("unexpected backend config: %+v", cfg)
	}
}

func TestCreateBackend(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		check   func(t *testing.T, gw storage.Gateway)
	}{
		{
			name:   "file",
			config: Config{Type: FileBackend, LedgerFile: filepath.Join(dir, "l.json")},
			check: func(t *testing.T, gw storage.Gateway) {
				if _, ok := gw.(*storage.FileStore); !ok {
					t.Fatalf("expected *storage.FileStore, got %T", gw)
				}
			},
		},
		{
			name:   "sqlite",
			config: Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "l.db")},
			check: func(t *testing.T, gw storage.Gateway) {
				if _, ok := gw.(*storage.SQLiteRepository); !ok {
					t.Fatalf("expected *storage.SQLiteRepository, got %T", gw)
				}
			},
		},
		{
			name:   "memory",
			config: Config{Type: MemoryBackend},
			check: func(t *testing.T, gw storage.Gateway) {
				if _, ok := gw.(*storage.MemoryStore); !ok {
					t.Fatalf("expected *storage.MemoryStore, got %T", gw)
				}
			},
		},
		{name: "file without path", config: Config{Type: FileBackend}, wantErr: true},
		{name: "unknown", config: Config{Type: "redis"}, wantErr: true},
	}

	f := NewFactory(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.CreateBackend(context.Background(), tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateBackend() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer res.Close()
			tt.check(t, res.Gateway)
			if err := res.Ready(context.Background()); err != nil {
				t.Fatalf("Ready() = %v", err)
			}
		})
	}
}

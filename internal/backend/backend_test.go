package backend

import (
	"context"
	"path/filepath"
	"testing"

	"finboard/internal/config"
	sheetmem "finboard/internal/sheets/memory"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		wantErr bool
	}{
		{name: "memory", backend: "memory"},
		{name: "sqlite", backend: "sqlite"},
		{name: "postgres", backend: "postgres"},
		{name: "unknown", backend: "sheets", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromAppConfig(&config.Config{DataBackend: tt.backend, SQLiteDBPath: "x.db"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromAppConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && cfg.Type.String() != tt.backend {
				t.Errorf("Type = %s, want %s", cfg.Type, tt.backend)
			}
		})
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Error("nil config should fail")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "memory", cfg: Config{Type: MemoryBackend}},
		{name: "sqlite without path", cfg: Config{Type: SQLiteBackend}, wantErr: true},
		{name: "postgres without url", cfg: Config{Type: PostgresBackend}, wantErr: true},
		{name: "sheet without name", cfg: Config{Type: MemoryBackend, GoogleSpreadsheetID: "abc"}, wantErr: true},
		{name: "invalid type", cfg: Config{Type: "mongo"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFactoryCreatesStores(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	mem, err := f.CreateStore(ctx, Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if err := mem.Store.Ping(ctx); err != nil {
		t.Errorf("memory ping: %v", err)
	}
	if err := mem.Close(); err != nil {
		t.Errorf("memory close: %v", err)
	}

	lite, err := f.CreateStore(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "db", "finboard.db")})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer lite.Close()
	if err := lite.Store.Ping(ctx); err != nil {
		t.Errorf("sqlite ping: %v", err)
	}
}

func TestFactoryExporterFallsBackToMemory(t *testing.T) {
	exp, err := NewFactory(nil).CreateExporter(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := exp.(*sheetmem.Store); !ok {
		t.Errorf("exporter = %T, want in-memory store", exp)
	}
}

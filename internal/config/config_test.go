package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"PerpIndexer/internal/config"
)

func TestDefault_FromEnv(t *testing.T) {
	t.Setenv("PERP_STORE_BACKEND", "sqlite")
	t.Setenv("PERP_DEDUP_LRU_CAPACITY", "42")
	t.Setenv("PERP_PUBLISH_CHANGES", "false")
	t.Setenv("PERP_INGEST_CHAN_SIZE", "not-a-number")

	cfg := config.Default()
	if cfg.StoreBackend != config.BackendSQLite {
		t.Errorf("backend: got %s", cfg.StoreBackend)
	}
	if cfg.DedupLRUCapacity != 42 {
		t.Errorf("lru capacity: got %d", cfg.DedupLRUCapacity)
	}
	if cfg.PublishChanges {
		t.Error("publish changes should be off")
	}
	if cfg.IngestChanSize != 256 {
		t.Errorf("bad int should fall back to default, got %d", cfg.IngestChanSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestLoad_YAMLOverlay(t *testing.T) {
	t.Setenv("PERP_STORE_BACKEND", "kv")
	t.Setenv("TEST_DSN", "postgres://indexer@db:5432/perp")

	path := filepath.Join(t.TempDir(), "perpindexer.yaml")
	content := strings.Join([]string{
		"store_backend: postgres",
		"postgres_dsn: ${TEST_DSN}",
		"http_addr: \":18080\"",
		"dedup_lru_capacity: 10",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PERP_CONFIG_FILE", path)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreBackend != config.BackendPostgres {
		t.Errorf("backend: got %s", cfg.StoreBackend)
	}
	if cfg.PostgresDSN != "postgres://indexer@db:5432/perp" {
		t.Errorf("dsn not expanded: %s", cfg.PostgresDSN)
	}
	if cfg.HTTPAddr != ":18080" || cfg.DedupLRUCapacity != 10 {
		t.Errorf("overlay: http=%s lru=%d", cfg.HTTPAddr, cfg.DedupLRUCapacity)
	}
	// Keys absent from the file keep their env/default values.
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("grpc addr: got %s", cfg.GRPCAddr)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("PERP_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := config.Load(); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown backend", func(c *config.Config) { c.StoreBackend = "mongo" }},
		{"postgres without dsn", func(c *config.Config) { c.StoreBackend = config.BackendPostgres; c.PostgresDSN = "" }},
		{"kv without path", func(c *config.Config) { c.StoreBackend = config.BackendKV; c.KVPath = "" }},
		{"wildcard prefix", func(c *config.Config) { c.EventSubjectPrefix = "perp.>" }},
		{"same streams", func(c *config.Config) { c.ChangeStream = c.EventStream }},
		{"negative channel", func(c *config.Config) { c.ChangeChanSize = -1 }},
		{"no nats", func(c *config.Config) { c.NATSURL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	cfg := config.Default()
	cfg.StoreBackend = config.BackendMemory
	if err := cfg.Validate(); err != nil {
		t.Errorf("memory backend: %v", err)
	}
}

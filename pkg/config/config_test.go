package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Indexer.OutputDir != "." {
		t.Errorf("OutputDir = %q, want .", cfg.Indexer.OutputDir)
	}
	if cfg.Indexer.SegmentMaxSize != 64<<20 {
		t.Errorf("SegmentMaxSize = %d, want %d", cfg.Indexer.SegmentMaxSize, 64<<20)
	}
	if cfg.Indexer.ChannelCapacity != 1024 {
		t.Errorf("ChannelCapacity = %d, want 1024", cfg.Indexer.ChannelCapacity)
	}
	if cfg.Metrics.Enabled {
		t.Error("metrics enabled by default")
	}
	if cfg.Events.Enabled || cfg.Report.Enabled {
		t.Error("external services enabled by default")
	}
}

func TestLoad_File(t *testing.T) {
	raw := `
indexer:
  outputDir: /tmp/out
  segmentMaxSize: 1048576
logging:
  level: debug
  format: json
metrics:
  enabled: true
  port: 9100
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Indexer.OutputDir != "/tmp/out" {
		t.Errorf("OutputDir = %q", cfg.Indexer.OutputDir)
	}
	if cfg.Indexer.SegmentMaxSize != 1<<20 {
		t.Errorf("SegmentMaxSize = %d", cfg.Indexer.SegmentMaxSize)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Port != 9100 {
		t.Errorf("metrics = %+v", cfg.Metrics)
	}
	// Values absent from the file keep their defaults.
	if cfg.Indexer.ChannelCapacity != 1024 {
		t.Errorf("ChannelCapacity = %d, want default 1024", cfg.Indexer.ChannelCapacity)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TI_OUTPUT_DIR", "/data/index")
	t.Setenv("TI_SEGMENT_MAX_SIZE", "2048")
	t.Setenv("TI_LOGGING_LEVEL", "warn")
	t.Setenv("TI_METRICS_ENABLED", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Indexer.OutputDir != "/data/index" {
		t.Errorf("OutputDir = %q", cfg.Indexer.OutputDir)
	}
	if cfg.Indexer.SegmentMaxSize != 2048 {
		t.Errorf("SegmentMaxSize = %d", cfg.Indexer.SegmentMaxSize)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
	if !cfg.Metrics.Enabled {
		t.Error("TI_METRICS_ENABLED not applied")
	}
}

func TestPostgresConfig_DSN(t *testing.T) {
	p := PostgresConfig{
		Host: "db", Port: 5433, Database: "runs", User: "u", Password: "p", SSLMode: "disable",
	}
	want := "host=db port=5433 user=u password=p dbname=runs sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Monitoring.StaleAfter != 2*time.Minute {
		t.Errorf("Monitoring.StaleAfter = %s, want 2m", cfg.Monitoring.StaleAfter)
	}
	if cfg.History.Resolution != time.Minute {
		t.Errorf("History.Resolution = %s, want 1m", cfg.History.Resolution)
	}
	if cfg.Notifications.MinSeverity != "warning" {
		t.Errorf("Notifications.MinSeverity = %q, want warning", cfg.Notifications.MinSeverity)
	}
	if cfg.Database.Enabled || cfg.Redis.Enabled || cfg.NATS.Enabled || cfg.S3.Enabled {
		t.Error("external backends must be disabled by default")
	}
}

func TestLoad_ParsesStructuredValues(t *testing.T) {
	t.Setenv("MONITORING_HTTP_PROBES", "payments=http://payments/health, ledger=http://ledger/status")
	t.Setenv("MONITORING_SOURCE_INTERVALS", "system=5s,payments=30s")
	t.Setenv("CLOUDWATCH_METRICS_DIMENSIONS", "Environment=staging")
	t.Setenv("NOTIFY_CHANNELS", "email, nats")
	t.Setenv("MONITORING_DISK_MOUNTS", "/,/data")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.Monitoring.HTTPProbes["ledger"]; got != "http://ledger/status" {
		t.Errorf("HTTPProbes[ledger] = %q", got)
	}
	if got := cfg.Monitoring.SourceIntervals["payments"]; got != 30*time.Second {
		t.Errorf("SourceIntervals[payments] = %s, want 30s", got)
	}
	if got := cfg.CloudWatch.MetricsDimensions["Environment"]; got != "staging" {
		t.Errorf("MetricsDimensions[Environment] = %q", got)
	}
	if len(cfg.Notifications.Channels) != 2 || cfg.Notifications.Channels[1] != "nats" {
		t.Errorf("Notifications.Channels = %v", cfg.Notifications.Channels)
	}
	if len(cfg.Monitoring.DiskMounts) != 2 {
		t.Errorf("DiskMounts = %v", cfg.Monitoring.DiskMounts)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "malformed duration",
			env:     map[string]string{"MONITORING_EVALUATION_INTERVAL": "soon"},
			wantErr: "MONITORING_EVALUATION_INTERVAL",
		},
		{
			name:    "non positive interval",
			env:     map[string]string{"MONITORING_COLLECTION_INTERVAL": "0s"},
			wantErr: "MONITORING_COLLECTION_INTERVAL",
		},
		{
			name:    "auth without token",
			env:     map[string]string{"AUTH_ENABLED": "true"},
			wantErr: "AUTH_BEARER_TOKEN",
		},
		{
			name:    "bucket not multiple of resolution",
			env:     map[string]string{"HISTORY_RESOLUTION": "1m", "HISTORY_DEFAULT_BUCKET": "90s"},
			wantErr: "HISTORY_DEFAULT_BUCKET",
		},
		{
			name:    "unknown severity",
			env:     map[string]string{"NOTIFY_MIN_SEVERITY": "urgent"},
			wantErr: "NOTIFY_MIN_SEVERITY",
		},
		{
			name:    "probe without url",
			env:     map[string]string{"MONITORING_HTTP_PROBES": "payments"},
			wantErr: "MONITORING_HTTP_PROBES",
		},
		{
			name:    "s3 without bucket",
			env:     map[string]string{"S3_ENABLED": "true"},
			wantErr: "S3_BUCKET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %s", err, tt.wantErr)
			}
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	withURL := DatabaseConfig{URL: "postgres://u:p@db/x", Host: "ignored"}
	if got := withURL.DSN(); got != "postgres://u:p@db/x" {
		t.Errorf("DSN() = %q", got)
	}

	kv := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Database: "x", SSLMode: "disable"}
	if got := kv.DSN(); got != "host=db port=5432 user=u password=p dbname=x sslmode=disable" {
		t.Errorf("DSN() = %q", got)
	}
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := `
thresholds:
  - metric_key: cpu_usage
    warning: 80
    critical: 90
    hysteresis_pct: 5
  - metric_key: "adapter_status:payments"
    warning: 0.5
    critical: 0.5
    comparison: below
reports:
  - name: daily
    cadence: 24h
    recipients: ["ops@example.com", "s3://reports/daily"]
    sections: [metrics, alerts]
    metric_keys: [cpu_usage]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	seed, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("LoadSeed() error = %v", err)
	}
	if len(seed.Thresholds) != 2 || len(seed.Reports) != 1 {
		t.Fatalf("unexpected seed %+v", seed)
	}
	if seed.Thresholds[0].Comparison != "above" {
		t.Errorf("default comparison = %q, want above", seed.Thresholds[0].Comparison)
	}
	if seed.Thresholds[1].Comparison != "below" {
		t.Errorf("comparison = %q, want below", seed.Thresholds[1].Comparison)
	}
	if seed.Reports[0].Enabled != nil {
		t.Error("enabled must stay unset when omitted")
	}
	if seed.Reports[0].Recipients[1] != "s3://reports/daily" {
		t.Errorf("recipients = %v", seed.Reports[0].Recipients)
	}
}

func TestParseSeed_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing key", "thresholds:\n  - warning: 1\n    critical: 2\n"},
		{"duplicate key", "thresholds:\n  - metric_key: a\n  - metric_key: a\n"},
		{"report without cadence", "reports:\n  - name: daily\n"},
		{"not yaml", "thresholds: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSeed([]byte(tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadSeed_EmptyPath(t *testing.T) {
	seed, err := LoadSeed("")
	if err != nil {
		t.Fatalf("LoadSeed() error = %v", err)
	}
	if len(seed.Thresholds) != 0 || len(seed.Reports) != 0 {
		t.Error("expected empty seed")
	}
}

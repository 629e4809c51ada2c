package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-rugsdatad
database:
  host: localhost
  name: test_db
  user: testuser
  password: testpass
upstream:
  url: wss://demo.rugs.fun
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Instance.ID != "test-rugsdatad" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-rugsdatad")
	}
	if cfg.Upstream.URL != "wss://demo.rugs.fun" {
		t.Errorf("Upstream.URL = %q, want %q", cfg.Upstream.URL, "wss://demo.rugs.fun")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
instance:
  id: test-rugsdatad
database:
  host: localhost
  name: test_db
  user: testuser
  password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Password != "secret123" {
		t.Errorf("Database.Password = %q, want %q", cfg.Database.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-rugsdatad
database:
  host: localhost
  name: test_db
  user: testuser
  password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if cfg.Upstream.URL != DefaultUpstreamURL {
		t.Errorf("Upstream.URL = %q, want default %q", cfg.Upstream.URL, DefaultUpstreamURL)
	}
	if cfg.Database.Port != DefaultDBPort {
		t.Errorf("Database.Port = %d, want default %d", cfg.Database.Port, DefaultDBPort)
	}
	if cfg.Retention.Ticks.MaxAge != 0 {
		t.Errorf("Retention.Ticks.MaxAge = %v, want 0 (no sweep by default)", cfg.Retention.Ticks.MaxAge)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing instance id",
			cfg:     Config{},
			wantErr: "instance.id is required",
		},
		{
			name: "missing db host",
			cfg: Config{
				Instance: InstanceConfig{ID: "test"},
			},
			wantErr: "database.host is required",
		},
		{
			name: "min_conns exceeds max_conns",
			cfg: Config{
				Instance: InstanceConfig{ID: "test"},
				Database: DatabaseConfig{
					Host: "localhost", Name: "db", User: "u", Password: "p",
					MaxConns: 5, MinConns: 10,
				},
				Upstream: UpstreamConfig{URL: "wss://x", RawQueueCapacity: 1},
				Broadcaster: BroadcasterConfig{SubscriberBufferSize: 1},
				Writers:     WritersConfig{Workers: 1, QueueCapacity: 1, VerifierWorkers: 1},
			},
			wantErr: "database.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name: "valid config",
			cfg: Config{
				Instance: InstanceConfig{ID: "test"},
				Database: DatabaseConfig{
					Host: "localhost", Name: "db", User: "u", Password: "p",
					MaxConns: 10, MinConns: 2,
				},
				Upstream:    UpstreamConfig{URL: "wss://x", RawQueueCapacity: 4096},
				Broadcaster: BroadcasterConfig{SubscriberBufferSize: 256},
				Writers:     WritersConfig{Workers: 4, QueueCapacity: 2048, VerifierWorkers: 2},
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("RUGS_UPSTREAM_URL", "wss://override.example")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LISTEN_ADDRESS", "127.0.0.1:9000")

	cfg := Config{}
	cfg.ApplyEnvOverrides()

	if cfg.Upstream.URL != "wss://override.example" {
		t.Errorf("Upstream.URL = %q", cfg.Upstream.URL)
	}
	if len(cfg.Listen.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v, want 2 entries", cfg.Listen.CORSOrigins)
	}
	if cfg.Listen.Address != "127.0.0.1:9000" {
		t.Errorf("Listen.Address = %q", cfg.Listen.Address)
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

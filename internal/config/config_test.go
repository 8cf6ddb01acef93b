package config

import "testing"

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("NANOCL_ENV", "")
	t.Setenv("NANOCL_POSTGRES_DSN", "")
	t.Setenv("NANOCL_NODE_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Env != Development {
		t.Errorf("expected default env development, got %s", cfg.Env)
	}
	if cfg.ListenAddr != "unix:///run/nanocl/nanocl.sock" {
		t.Errorf("unexpected default listen addr: %s", cfg.ListenAddr)
	}
	if cfg.DockerSocketPath != "/run/docker.sock" {
		t.Errorf("unexpected default docker socket: %s", cfg.DockerSocketPath)
	}
	if cfg.EventQueueSize != 256 {
		t.Errorf("expected default event queue size 256, got %d", cfg.EventQueueSize)
	}
}

func TestLoadHonorsOverrides(t *testing.T) {
	t.Setenv("NANOCL_ENV", "testing")
	t.Setenv("NANOCL_POSTGRES_DSN", "postgres://u:p@db/test")
	t.Setenv("NANOCL_NODE_NAME", "node-a")
	t.Setenv("NANOCL_EVENT_QUEUE_SIZE", "64")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.IsTesting() {
		t.Errorf("expected testing environment")
	}
	if cfg.PostgresDSN != "postgres://u:p@db/test" {
		t.Errorf("unexpected dsn: %s", cfg.PostgresDSN)
	}
	if cfg.NodeName != "node-a" {
		t.Errorf("unexpected node name: %s", cfg.NodeName)
	}
	if cfg.EventQueueSize != 64 {
		t.Errorf("expected overridden event queue size 64, got %d", cfg.EventQueueSize)
	}
}

func TestValidateRejectsEmptyDSN(t *testing.T) {
	cfg := &Config{Env: Development, EventQueueSize: 10}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty PostgresDSN")
	}
}

func TestValidateRequiresSecretKeyInProduction(t *testing.T) {
	cfg := &Config{Env: Production, PostgresDSN: "postgres://x", EventQueueSize: 10}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing secret key in production")
	}
	cfg.SecretEncryptionKey = "k"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error once secret key is set: %v", err)
	}
}

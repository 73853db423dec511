package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if cfg.Store.RetentionMode != "session" {
		t.Fatalf("expected session retention, got %q", cfg.Store.RetentionMode)
	}
	if cfg.Backend.Enabled {
		t.Fatal("backend must default to disabled")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VASCRIBE_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("VASCRIBE_BUS_USERNAME", "alice")
	t.Setenv("VASCRIBE_BUS_PASSWORD", "secret")
	t.Setenv("VASCRIBE_BUS_CONNECT_TIMEOUT_MS", "5000")
	t.Setenv("VASCRIBE_DICTATION_MACROS_PATH", "./custom/macros.yaml")
	t.Setenv("VASCRIBE_DICTATION_VESSELS", "renal, celiac")
	t.Setenv("VASCRIBE_STORE_PATH", "./tmp.db")
	t.Setenv("VASCRIBE_STORE_RETENTION_MODE", "persistent")
	t.Setenv("VASCRIBE_STORE_RETENTION_DAYS", "7")
	t.Setenv("VASCRIBE_BACKEND_ENABLED", "true")
	t.Setenv("VASCRIBE_BACKEND_URL", "ws://command-center:3000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || cfg.Bus.Password != "secret" {
		t.Fatalf("expected credentials override")
	}
	if cfg.Bus.ConnectTimeout != 5000 {
		t.Fatalf("expected timeout 5000, got %d", cfg.Bus.ConnectTimeout)
	}
	if cfg.Dictation.MacrosPath != "./custom/macros.yaml" {
		t.Fatalf("expected macros path override")
	}
	if len(cfg.Dictation.Vessels) != 2 || cfg.Dictation.Vessels[0] != "renal" {
		t.Fatalf("expected vessel override, got %v", cfg.Dictation.Vessels)
	}
	if cfg.Store.Path != "./tmp.db" {
		t.Fatalf("expected store path override")
	}
	if cfg.Store.RetentionMode != "persistent" {
		t.Fatalf("expected retention mode override")
	}
	if cfg.Store.RetentionDays != 7 {
		t.Fatalf("expected retention days override")
	}
	if !cfg.Backend.Enabled || cfg.Backend.URL != "ws://command-center:3000" {
		t.Fatalf("expected backend override, got %+v", cfg.Backend)
	}
}

func TestValidateRejectsBadRetentionMode(t *testing.T) {
	t.Setenv("VASCRIBE_STORE_RETENTION_MODE", "forever")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for bad retention mode")
	}
}

func TestValidateRequiresExecCommand(t *testing.T) {
	t.Setenv("VASCRIBE_STT_ENABLED", "true")
	t.Setenv("VASCRIBE_STT_MODE", "exec")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for exec mode without command")
	}
}

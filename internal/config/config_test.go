package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[server]
language = "zh-Hant"

[autoban]
ban_at_score = 20
ban_time = "2h"

[network]
ws_bind_address = ":8080"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Server.Language != "zh-Hant" {
		t.Errorf("language = %q", cfg.Server.Language)
	}
	if cfg.Autoban.BanAtScore != 20 {
		t.Errorf("ban_at_score = %d, want 20", cfg.Autoban.BanAtScore)
	}
	if cfg.Autoban.BanTime != 2*time.Hour {
		t.Errorf("ban_time = %v, want 2h", cfg.Autoban.BanTime)
	}
	if cfg.Network.WSBindAddress != ":8080" {
		t.Errorf("ws_bind_address = %q", cfg.Network.WSBindAddress)
	}
	// untouched sections keep their defaults
	if cfg.Autoban.SevereAmount != 10 {
		t.Errorf("severe_amount = %d, want default 10", cfg.Autoban.SevereAmount)
	}
	if cfg.Network.BindAddress != "0.0.0.0:11020" {
		t.Errorf("bind_address = %q", cfg.Network.BindAddress)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse([]byte("[server\nname=")); err == nil {
		t.Fatal("expected error for malformed toml")
	}
}

func TestLoadAndPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.toml")
	if err := os.WriteFile(path, []byte("[server]\nname = \"Test\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvPath, path)
	if got := Path(); got != path {
		t.Fatalf("Path() = %q, want %q", got, path)
	}

	cfg, err := Load(Path())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Name != "Test" {
		t.Errorf("name = %q", cfg.Server.Name)
	}
	if cfg.Server.StartTime == 0 {
		t.Error("StartTime not set")
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

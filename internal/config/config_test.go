package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q, want :8080", cfg.Addr)
	}
	if cfg.DefaultRoom != "general" {
		t.Fatalf("default room = %q, want general", cfg.DefaultRoom)
	}
	if cfg.TypingTimeout != 3*time.Second {
		t.Fatalf("typing timeout = %v, want 3s", cfg.TypingTimeout)
	}
	if cfg.HistoryLimit != 200 {
		t.Fatalf("history limit = %d, want 200", cfg.HistoryLimit)
	}
}

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config was not written: %v", err)
	}
	if cfg.Addr != Default().Addr {
		t.Fatalf("addr = %q, want default", cfg.Addr)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "addr: \":9090\"\ndefault_room: lobby\nhistory_limit: 50\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("addr = %q, want :9090", cfg.Addr)
	}
	if cfg.DefaultRoom != "lobby" {
		t.Fatalf("default room = %q, want lobby", cfg.DefaultRoom)
	}
	if cfg.HistoryLimit != 50 {
		t.Fatalf("history limit = %d, want 50", cfg.HistoryLimit)
	}
	// Untouched keys keep their defaults.
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %q, want info", cfg.LogLevel)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("addr: \":9090\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("ROOMCHAT_ADDR", ":7070")
	t.Setenv("ROOMCHAT_DEFAULT_ROOM", "lounge")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Fatalf("addr = %q, want :7070", cfg.Addr)
	}
	if cfg.DefaultRoom != "lounge" {
		t.Fatalf("default room = %q, want lounge", cfg.DefaultRoom)
	}
}

func TestResolveConfigPathEnvDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(envConfigDefaultPath, dir)

	got := resolveConfigPath("")
	if got != filepath.Join(dir, defaultConfigName) {
		t.Fatalf("resolved = %q, want under %q", got, dir)
	}
}

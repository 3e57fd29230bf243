package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Daemon.Transport != "unix" {
		t.Errorf("transport = %q, want unix", cfg.Daemon.Transport)
	}
	if cfg.Daemon.CacheTTLSeconds != 300 {
		t.Errorf("cache ttl = %d, want 300", cfg.Daemon.CacheTTLSeconds)
	}
	if cfg.LLM.Temperature != 0.9 || cfg.LLM.MaxTokens != 2000 {
		t.Errorf("llm defaults = %v/%v, want 0.9/2000", cfg.LLM.Temperature, cfg.LLM.MaxTokens)
	}
	if cfg.LLM.TimeoutSeconds != 60 || cfg.LLM.RetryAttempts != 3 {
		t.Errorf("llm timeout/retries = %v/%v, want 60/3", cfg.LLM.TimeoutSeconds, cfg.LLM.RetryAttempts)
	}
}

func TestLoadParsesFileAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[daemon]
transport = "TCP"
tcp_addr = "127.0.0.1:7001"

[llm]
model = "  test-model  "

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("exists=%v resolved=%q", exists, resolved)
	}
	if cfg.Daemon.Transport != "tcp" {
		t.Errorf("transport = %q, want tcp", cfg.Daemon.Transport)
	}
	if cfg.Daemon.TCPAddr != "127.0.0.1:7001" {
		t.Errorf("tcp_addr = %q", cfg.Daemon.TCPAddr)
	}
	if cfg.LLM.Model != "test-model" {
		t.Errorf("model = %q, want trimmed", cfg.LLM.Model)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("format = %q, want json", cfg.Logging.Format)
	}
}

func TestLoadRejectsBadTransport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[daemon]\ntransport = \"pigeon\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, _, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "daemon.transport") {
		t.Fatalf("err = %v, want transport validation failure", err)
	}
}

func TestEnvOverridesAPIKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[llm]\napi_key = \"from-file\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvAPIKey, "from-env")

	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "from-env" {
		t.Errorf("api_key = %q, want env value", cfg.LLM.APIKey)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load of sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("sample file not found after CreateSample")
	}
	if cfg.LLM.Model == "" {
		t.Error("sample config produced empty model")
	}
}

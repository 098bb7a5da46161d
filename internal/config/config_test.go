package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"adloom/internal/config"
)

func TestLoadDefaultsExpandPathsAndReadEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-llm-key")
	t.Setenv("FIRECRAWL_API_KEY", "env-fc-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "adloom")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7842" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.LLM.APIKey != "env-llm-key" {
		t.Fatalf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Firecrawl.APIKey != "env-fc-key" {
		t.Fatalf("expected Firecrawl key from env, got %q", cfg.Firecrawl.APIKey)
	}
	if cfg.Embedding.APIKey != "env-llm-key" {
		t.Fatalf("expected embedding key to inherit LLM credential, got %q", cfg.Embedding.APIKey)
	}
	if cfg.LLM.Model != config.Default().LLM.Model {
		t.Fatalf("unexpected llm model: %q", cfg.LLM.Model)
	}
	if cfg.Workflow.MemoryLimit != 5 {
		t.Fatalf("unexpected memory limit: %d", cfg.Workflow.MemoryLimit)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
	if !strings.HasPrefix(cfg.DatabasePath(), cfg.Paths.DataDir) {
		t.Fatalf("database path should live inside data dir: %q", cfg.DatabasePath())
	}
}

func TestLoadParsesFileAndOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"
api_bind = "127.0.0.1:9000"
api_token = "secret"

[llm]
api_key = "file-key"
model = "gpt-4o"

[workflow]
memory_limit = 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q to be used, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Paths.APIBind != "127.0.0.1:9000" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Paths.APIToken != "secret" {
		t.Fatalf("unexpected api token: %q", cfg.Paths.APIToken)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Fatalf("unexpected llm model: %q", cfg.LLM.Model)
	}
	if cfg.Workflow.MemoryLimit != 3 {
		t.Fatalf("unexpected memory limit: %d", cfg.Workflow.MemoryLimit)
	}
	// Defaults survive for sections the file omits.
	if cfg.Firecrawl.BaseURL != config.Default().Firecrawl.BaseURL {
		t.Fatalf("unexpected firecrawl base url: %q", cfg.Firecrawl.BaseURL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "bad bind",
			mutate: func(c *config.Config) { c.Paths.APIBind = "not-a-bind" },
			want:   "api_bind",
		},
		{
			name:   "bad llm url",
			mutate: func(c *config.Config) { c.LLM.BaseURL = "ftp://example.com" },
			want:   "llm.base_url",
		},
		{
			name: "poll exceeds timeout",
			mutate: func(c *config.Config) {
				c.VideoGen.PollIntervalSeconds = 30
				c.VideoGen.TimeoutSeconds = 10
			},
			want: "videogen.timeout_seconds",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.DataDir = t.TempDir()
			cfg.Paths.LogDir = t.TempDir()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestSampleConfigIsNotEmpty(t *testing.T) {
	if !strings.Contains(config.SampleConfig(), "[llm]") {
		t.Fatal("sample config should document the llm section")
	}
}

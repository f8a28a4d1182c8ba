package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:            HTTPConfig{Port: 8080},
		Retrieval:       RetrievalConfig{KnowledgeBaseID: "KB123"},
		Personalization: PersonalizationConfig{GatewayURL: "http://gateway:8080/mcp"},
		Safety:          SafetyConfig{GuardrailID: "gr-1"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_Drivers(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown retrieval driver", func(c *Config) { c.Retrieval.Driver = "solr" }, "retrieval.driver"},
		{"bedrock without kb", func(c *Config) { c.Retrieval.KnowledgeBaseID = "" }, "knowledge_base_id"},
		{"http without endpoint", func(c *Config) { c.Retrieval.Driver = DriverHTTP }, "retrieval.endpoint"},
		{"mcp without gateway", func(c *Config) { c.Personalization.GatewayURL = "" }, "gateway_url"},
		{"unknown selector", func(c *Config) { c.Personalization.Selector = "random" }, "selector"},
		{"unknown safety driver", func(c *Config) { c.Safety.Driver = "none" }, "safety.driver"},
		{"guardrail without id", func(c *Config) { c.Safety.GuardrailID = "" }, "guardrail_id"},
		{"openai safety without key", func(c *Config) { c.Safety.Driver = DriverOpenAI }, "openai.api_key"},
		{"openai selector without key", func(c *Config) { c.Personalization.Selector = SelectorOpenAI }, "openai.api_key"},
		{"cache without addrs", func(c *Config) { c.Cache.Enabled = true }, "cache.addrs"},
		{"negative retries", func(c *Config) { c.Safety.Retries = intPtr(-1) }, "safety.retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_OptionalDrivers(t *testing.T) {
	cfg := validConfig()
	cfg.Personalization.Driver = DriverDisabled
	cfg.Personalization.GatewayURL = ""
	cfg.Retrieval.Driver = DriverHTTP
	cfg.Retrieval.Endpoint = "http://rag:8080"
	cfg.Safety.Driver = DriverOpenAI
	cfg.OpenAI.APIKey = "sk-test"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_LatencyBudget(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.TimeoutMs = 1500
	cfg.Safety.TimeoutMs = 600

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected latency budget violation")
	}
	want := "branch timeout (1500ms) plus safety timeout (600ms) exceeds latency_budget_ms (2000ms)"
	if err.Error() != want {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), want)
	}

	cfg.LatencyBudgetMs = 2100
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error with raised budget: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Retrieval.Driver != DriverBedrock || cfg.Safety.Driver != DriverBedrock {
		t.Errorf("unexpected drivers: %q/%q", cfg.Retrieval.Driver, cfg.Safety.Driver)
	}
	if cfg.Personalization.Driver != DriverMCP || cfg.Personalization.Selector != SelectorKeyword {
		t.Errorf("unexpected personalization: %+v", cfg.Personalization)
	}
	if cfg.RetrievalTimeout().Milliseconds() != 1200 {
		t.Errorf("expected retrieval timeout 1200ms, got %v", cfg.RetrievalTimeout())
	}
	if cfg.PersonalizationTimeout().Milliseconds() != 1200 {
		t.Errorf("expected personalization timeout 1200ms, got %v", cfg.PersonalizationTimeout())
	}
	if cfg.SafetyTimeout().Milliseconds() != 600 {
		t.Errorf("expected safety timeout 600ms, got %v", cfg.SafetyTimeout())
	}
	if *cfg.Retrieval.Retries != 2 || *cfg.Personalization.Retries != 1 || *cfg.Safety.Retries != 2 {
		t.Errorf("unexpected retries: %d/%d/%d",
			*cfg.Retrieval.Retries, *cfg.Personalization.Retries, *cfg.Safety.Retries)
	}
	if cfg.LatencyBudgetMs != 2000 {
		t.Errorf("expected LatencyBudgetMs=2000, got %d", cfg.LatencyBudgetMs)
	}
	if cfg.Safety.GuardrailVersion != "DRAFT" {
		t.Errorf("expected GuardrailVersion=DRAFT, got %q", cfg.Safety.GuardrailVersion)
	}
	if cfg.Cache.TTLSec != 600 {
		t.Errorf("expected TTLSec=600, got %d", cfg.Cache.TTLSec)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Retrieval: RetrievalConfig{Driver: DriverHTTP, TimeoutMs: 800, Retries: intPtr(0)},
		Model:     ModelConfig{ID: "custom-model"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Retrieval.Driver != DriverHTTP {
		t.Errorf("expected driver http, got %q", cfg.Retrieval.Driver)
	}
	if cfg.Retrieval.TimeoutMs != 800 {
		t.Errorf("expected TimeoutMs=800, got %d", cfg.Retrieval.TimeoutMs)
	}
	if *cfg.Retrieval.Retries != 0 {
		t.Errorf("explicit zero retries overridden: %d", *cfg.Retrieval.Retries)
	}
	if cfg.Model.ID != "custom-model" {
		t.Errorf("expected custom model, got %q", cfg.Model.ID)
	}
}

func TestLoadFile_ExpandsEnv(t *testing.T) {
	t.Setenv("SEARCHAGENT_TEST_KB", "KB-FROM-ENV")

	path := filepath.Join(t.TempDir(), "test.yaml")
	data := `
http:
  port: ${SEARCHAGENT_TEST_PORT:-9090}
retrieval:
  knowledge_base_id: ${SEARCHAGENT_TEST_KB}
personalization:
  driver: disabled
safety:
  guardrail_id: gr-1
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Retrieval.KnowledgeBaseID != "KB-FROM-ENV" {
		t.Errorf("expected KB-FROM-ENV, got %q", cfg.Retrieval.KnowledgeBaseID)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("http: {port: 0}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFile(path)
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("expected invalid config error, got %v", err)
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("Load(local): %v", err)
	}
	if cfg.HTTP.Port == 0 {
		t.Error("expected port from local config")
	}
}

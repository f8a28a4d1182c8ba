package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Driver names.
const (
	DriverBedrock  = "bedrock"
	DriverHTTP     = "http"
	DriverMCP      = "mcp"
	DriverDisabled = "disabled"
	DriverOpenAI   = "openai"

	SelectorKeyword = "keyword"
	SelectorOpenAI  = "openai"
)

// Config holds the searchagent configuration.
type Config struct {
	HTTP            HTTPConfig            `yaml:"http"`
	Auth            AuthConfig            `yaml:"auth"`
	Logging         LoggingConfig         `yaml:"logging"`
	Model           ModelConfig           `yaml:"model"`
	AWS             AWSConfig             `yaml:"aws"`
	Retrieval       RetrievalConfig       `yaml:"retrieval"`
	Personalization PersonalizationConfig `yaml:"personalization"`
	Safety          SafetyConfig          `yaml:"safety"`
	OpenAI          OpenAIConfig          `yaml:"openai"`
	Resilience      ResilienceConfig      `yaml:"resilience"`
	Cache           CacheConfig           `yaml:"cache"`
	LatencyBudgetMs int                   `yaml:"latency_budget_ms"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// ModelConfig selects the generation model.
type ModelConfig struct {
	ID string `yaml:"id"`
}

// AWSConfig holds AWS SDK settings.
type AWSConfig struct {
	Region string `yaml:"region"`
}

// RetrievalConfig holds knowledge-base retrieval settings.
type RetrievalConfig struct {
	Driver          string `yaml:"driver"` // bedrock, http
	KnowledgeBaseID string `yaml:"knowledge_base_id"`
	Endpoint        string `yaml:"endpoint"`
	APIKey          string `yaml:"api_key"`
	NumberOfResults int    `yaml:"number_of_results"`
	TimeoutMs       int    `yaml:"timeout_ms"`
	Retries         *int   `yaml:"retries"`
}

// PersonalizationConfig holds tool-directory settings.
type PersonalizationConfig struct {
	Driver     string `yaml:"driver"` // mcp, disabled
	GatewayURL string `yaml:"gateway_url"`
	AuthToken  string `yaml:"auth_token"`
	Selector   string `yaml:"selector"` // keyword, openai
	TimeoutMs  int    `yaml:"timeout_ms"`
	Retries    *int   `yaml:"retries"`
}

// SafetyConfig holds content-safety settings.
type SafetyConfig struct {
	Driver           string `yaml:"driver"` // bedrock, openai
	GuardrailID      string `yaml:"guardrail_id"`
	GuardrailVersion string `yaml:"guardrail_version"`
	TimeoutMs        int    `yaml:"timeout_ms"`
	Retries          *int   `yaml:"retries"`
}

// OpenAIConfig holds OpenAI-compatible provider settings.
type OpenAIConfig struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	ClassifierModel string `yaml:"classifier_model"`
	ModerationModel string `yaml:"moderation_model"`
}

// ResilienceConfig tunes backoff and circuit breaking for every upstream.
type ResilienceConfig struct {
	BackoffBaseMs       int `yaml:"backoff_base_ms"`
	BackoffMaxMs        int `yaml:"backoff_max_ms"`
	JitterMs            int `yaml:"jitter_ms"`
	BreakerErrorPercent int `yaml:"breaker_error_percent"`
	BreakerMinRequests  int `yaml:"breaker_min_requests"`
	BreakerOpenSec      int `yaml:"breaker_open_sec"`
}

// CacheConfig holds answer cache settings.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

func intPtr(v int) *int { return &v }

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Model.ID == "" {
		c.Model.ID = "anthropic.claude-3-7-sonnet-20250219-v1:0"
	}
	if c.AWS.Region == "" {
		c.AWS.Region = "us-east-1"
	}

	if c.Retrieval.Driver == "" {
		c.Retrieval.Driver = DriverBedrock
	}
	if c.Retrieval.NumberOfResults <= 0 {
		c.Retrieval.NumberOfResults = 10
	}
	if c.Retrieval.TimeoutMs <= 0 {
		c.Retrieval.TimeoutMs = 1200
	}
	if c.Retrieval.Retries == nil {
		c.Retrieval.Retries = intPtr(2)
	}

	if c.Personalization.Driver == "" {
		c.Personalization.Driver = DriverMCP
	}
	if c.Personalization.Selector == "" {
		c.Personalization.Selector = SelectorKeyword
	}
	if c.Personalization.TimeoutMs <= 0 {
		c.Personalization.TimeoutMs = 1200
	}
	if c.Personalization.Retries == nil {
		c.Personalization.Retries = intPtr(1)
	}

	if c.Safety.Driver == "" {
		c.Safety.Driver = DriverBedrock
	}
	if c.Safety.GuardrailVersion == "" {
		c.Safety.GuardrailVersion = "DRAFT"
	}
	if c.Safety.TimeoutMs <= 0 {
		c.Safety.TimeoutMs = 600
	}
	if c.Safety.Retries == nil {
		c.Safety.Retries = intPtr(2)
	}

	if c.OpenAI.ModerationModel == "" {
		c.OpenAI.ModerationModel = "text-moderation-latest"
	}
	if c.OpenAI.ClassifierModel == "" {
		c.OpenAI.ClassifierModel = "gpt-4o-mini"
	}

	if c.Resilience.BackoffBaseMs <= 0 {
		c.Resilience.BackoffBaseMs = 50
	}
	if c.Resilience.BackoffMaxMs <= 0 {
		c.Resilience.BackoffMaxMs = 400
	}
	if c.Resilience.JitterMs <= 0 {
		c.Resilience.JitterMs = 20
	}
	if c.Resilience.BreakerErrorPercent <= 0 {
		c.Resilience.BreakerErrorPercent = 50
	}
	if c.Resilience.BreakerMinRequests <= 0 {
		c.Resilience.BreakerMinRequests = 10
	}
	if c.Resilience.BreakerOpenSec <= 0 {
		c.Resilience.BreakerOpenSec = 5
	}

	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 600
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.LatencyBudgetMs <= 0 {
		c.LatencyBudgetMs = 2000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Retrieval.Driver {
	case DriverBedrock:
		if c.Retrieval.KnowledgeBaseID == "" {
			return fmt.Errorf("retrieval.knowledge_base_id is required for driver %q", DriverBedrock)
		}
	case DriverHTTP:
		if c.Retrieval.Endpoint == "" {
			return fmt.Errorf("retrieval.endpoint is required for driver %q", DriverHTTP)
		}
	default:
		return fmt.Errorf("retrieval.driver must be %q or %q, got %q",
			DriverBedrock, DriverHTTP, c.Retrieval.Driver)
	}

	switch c.Personalization.Driver {
	case DriverMCP:
		if c.Personalization.GatewayURL == "" {
			return fmt.Errorf("personalization.gateway_url is required for driver %q", DriverMCP)
		}
	case DriverDisabled:
	default:
		return fmt.Errorf("personalization.driver must be %q or %q, got %q",
			DriverMCP, DriverDisabled, c.Personalization.Driver)
	}
	switch c.Personalization.Selector {
	case SelectorKeyword, SelectorOpenAI:
	default:
		return fmt.Errorf("personalization.selector must be %q or %q, got %q",
			SelectorKeyword, SelectorOpenAI, c.Personalization.Selector)
	}

	switch c.Safety.Driver {
	case DriverBedrock:
		if c.Safety.GuardrailID == "" {
			return fmt.Errorf("safety.guardrail_id is required for driver %q", DriverBedrock)
		}
	case DriverOpenAI:
	default:
		return fmt.Errorf("safety.driver must be %q or %q, got %q",
			DriverBedrock, DriverOpenAI, c.Safety.Driver)
	}

	if c.usesOpenAI() && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required when an openai driver or selector is configured")
	}

	for name, r := range map[string]*int{
		"retrieval":       c.Retrieval.Retries,
		"personalization": c.Personalization.Retries,
		"safety":          c.Safety.Retries,
	} {
		if r != nil && (*r < 0 || *r > 5) {
			return fmt.Errorf("%s.retries must be between 0 and 5, got %d", name, *r)
		}
	}

	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when cache is enabled")
	}

	branches := max(c.Retrieval.TimeoutMs, c.Personalization.TimeoutMs)
	if branches+c.Safety.TimeoutMs > c.LatencyBudgetMs {
		return fmt.Errorf(
			"branch timeout (%dms) plus safety timeout (%dms) exceeds latency_budget_ms (%dms)",
			branches, c.Safety.TimeoutMs, c.LatencyBudgetMs,
		)
	}
	return nil
}

func (c *Config) usesOpenAI() bool {
	return c.Safety.Driver == DriverOpenAI ||
		(c.Personalization.Driver == DriverMCP && c.Personalization.Selector == SelectorOpenAI)
}

// RetrievalTimeout returns the retrieval branch deadline.
func (c *Config) RetrievalTimeout() time.Duration {
	return time.Duration(c.Retrieval.TimeoutMs) * time.Millisecond
}

// PersonalizationTimeout returns the personalization branch deadline.
func (c *Config) PersonalizationTimeout() time.Duration {
	return time.Duration(c.Personalization.TimeoutMs) * time.Millisecond
}

// SafetyTimeout returns the safety validation deadline.
func (c *Config) SafetyTimeout() time.Duration {
	return time.Duration(c.Safety.TimeoutMs) * time.Millisecond
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

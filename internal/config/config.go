package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the campus assistant configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Storage     StorageConfig     `yaml:"storage"`
	TextService TextServiceConfig `yaml:"text_service"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Context     ContextConfig     `yaml:"context"`
	Chat        ChatConfig        `yaml:"chat"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// AuthConfig guards the maintenance routes (/api/refresh-vocab, /api/usage).
type AuthConfig struct {
	AdminKeys string `yaml:"admin_keys"` // comma separated; empty disables the check
}

// AdminKeyList splits AdminKeys, dropping blanks.
func (a AuthConfig) AdminKeyList() []string {
	var keys []string
	for _, k := range strings.Split(a.AdminKeys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	CallTimeoutMs    int      `yaml:"call_timeout_ms"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix      string `yaml:"key_prefix"`
	EmbeddingCache bool   `yaml:"embedding_cache"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// TextServiceConfig holds Text Service provider and credential settings.
type TextServiceConfig struct {
	Provider         string       `yaml:"provider"` // openai, genai (default: genai)
	BaseURL          string       `yaml:"base_url"`
	ChatModel        string       `yaml:"chat_model"`
	EmbedModel       string       `yaml:"embed_model"`
	Dimensions       int          `yaml:"dimensions"`
	Temperature      float32      `yaml:"temperature"`
	MaxOutputTokens  int          `yaml:"max_output_tokens"`
	CallTimeoutSec   int          `yaml:"call_timeout_sec"`
	QueryInstruction string       `yaml:"query_instruction"`
	APIKey           string       `yaml:"api_key"`
	APIKeys          string       `yaml:"api_keys"` // comma separated
	APIKeyEnvPrefix  string       `yaml:"api_key_env_prefix"`
	Budget           BudgetConfig `yaml:"budget"`
}

// RetrievalConfig holds the answer-selection thresholds.
type RetrievalConfig struct {
	SearchThreshold     float64  `yaml:"search_threshold"`
	FastPathThreshold   float64  `yaml:"fast_path_threshold"`
	ConfidenceFloor     float64  `yaml:"confidence_floor"`
	AmbiguityGap        float64  `yaml:"ambiguity_gap"`
	StrongMatch         float64  `yaml:"strong_match"`
	ListCeiling         float64  `yaml:"list_ceiling"`
	ListSize            int      `yaml:"list_size"`
	ShortQueryTokens    int      `yaml:"short_query_tokens"`
	SynthesizeMinTokens int      `yaml:"synthesize_min_tokens"`
	FallbackMode        string   `yaml:"fallback_mode"` // static, general
	InfoURL             string   `yaml:"info_url"`
	LabelStripWords     []string `yaml:"label_strip_words"`
}

// ContextConfig holds conversation carry-over settings.
type ContextConfig struct {
	Anchors         []string `yaml:"anchors"`
	FactKeywords    []string `yaml:"fact_keywords"`
	DefaultDepth    int      `yaml:"default_depth"`
	AnchorDepth     int      `yaml:"anchor_depth"`
	FactDepth       int      `yaml:"fact_depth"`
	AnchorMaxTokens int      `yaml:"anchor_max_tokens"`
	MergeMaxTokens  int      `yaml:"merge_max_tokens"`
}

// ChatConfig holds request-level settings.
type ChatConfig struct {
	MaxQuestionLen int `yaml:"max_question_len"`
}

// DefaultAnchors is the ordered anchor enumeration; first match wins.
var DefaultAnchors = []string{
	"canteen", "hostel", "library", "transport", "admission", "fee",
	"wifi", "sports", "lab", "staff", "timing", "uniform",
}

// DefaultFactKeywords widen the candidate pool for value-shaped questions.
var DefaultFactKeywords = []string{
	"phone", "mobile", "whatsapp", "email", "address", "fee", "timing", "schedule", "location",
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Default returns the base the YAML is decoded onto. Similarity thresholds are
// preset here instead of in ApplyDefaults, so a key absent from the file keeps
// its default while an explicit 0 turns that check off.
func Default() Config {
	return Config{
		Retrieval: RetrievalConfig{
			SearchThreshold:   0.45,
			FastPathThreshold: 0.85,
			ConfidenceFloor:   0.55,
			AmbiguityGap:      0.05,
			StrongMatch:       0.82,
			ListCeiling:       0.65,
		},
	}
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

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.CallTimeoutMs <= 0 {
		c.Database.CallTimeoutMs = 2000
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "campus:"
	}
	c.TextService.applyDefaults()
	c.Retrieval.applyDefaults()
	c.Context.applyDefaults()
	if c.Chat.MaxQuestionLen <= 0 {
		c.Chat.MaxQuestionLen = 300
	}
}

func (t *TextServiceConfig) applyDefaults() {
	if t.Provider == "" {
		t.Provider = "genai"
	}
	if t.ChatModel == "" {
		if t.Provider == "openai" {
			t.ChatModel = "gpt-4o-mini"
		} else {
			t.ChatModel = "gemini-2.0-flash"
		}
	}
	if t.EmbedModel == "" {
		if t.Provider == "openai" {
			t.EmbedModel = "text-embedding-3-small"
		} else {
			t.EmbedModel = "text-embedding-004"
		}
	}
	if t.Dimensions <= 0 {
		t.Dimensions = 768
	}
	if t.Temperature <= 0 {
		t.Temperature = 0.1
	}
	if t.MaxOutputTokens <= 0 {
		t.MaxOutputTokens = 1000
	}
	if t.CallTimeoutSec <= 0 {
		t.CallTimeoutSec = 15
	}
	if t.APIKeyEnvPrefix == "" {
		t.APIKeyEnvPrefix = "GEMINI_API_KEY_"
	}
}

// Thresholds are not touched here; see Default.
func (r *RetrievalConfig) applyDefaults() {
	if r.ListSize <= 0 {
		r.ListSize = 4
	}
	if r.ShortQueryTokens <= 0 {
		r.ShortQueryTokens = 2
	}
	if r.SynthesizeMinTokens <= 0 {
		r.SynthesizeMinTokens = 4
	}
	if r.FallbackMode == "" {
		r.FallbackMode = "static"
	}
}

func (c *ContextConfig) applyDefaults() {
	if len(c.Anchors) == 0 {
		c.Anchors = append([]string(nil), DefaultAnchors...)
	}
	if len(c.FactKeywords) == 0 {
		c.FactKeywords = append([]string(nil), DefaultFactKeywords...)
	}
	if c.DefaultDepth <= 0 {
		c.DefaultDepth = 5
	}
	if c.AnchorDepth <= 0 {
		c.AnchorDepth = 15
	}
	if c.FactDepth <= 0 {
		c.FactDepth = 20
	}
	if c.AnchorMaxTokens <= 0 {
		c.AnchorMaxTokens = 5
	}
	if c.MergeMaxTokens <= 0 {
		c.MergeMaxTokens = 2
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.TextService.Provider {
	case "openai", "genai":
		// ok
	default:
		return fmt.Errorf("text_service.provider must be \"openai\" or \"genai\", got %q", c.TextService.Provider)
	}
	switch c.TextService.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf(
			"text_service.budget.action must be \"warn\" or \"reject\", got %q",
			c.TextService.Budget.Action,
		)
	}
	switch c.Retrieval.FallbackMode {
	case "", "static", "general":
		// ok
	default:
		return fmt.Errorf("retrieval.fallback_mode must be \"static\" or \"general\", got %q", c.Retrieval.FallbackMode)
	}

	thresholds := []struct {
		name string
		v    float64
	}{
		{"search_threshold", c.Retrieval.SearchThreshold},
		{"fast_path_threshold", c.Retrieval.FastPathThreshold},
		{"confidence_floor", c.Retrieval.ConfidenceFloor},
		{"ambiguity_gap", c.Retrieval.AmbiguityGap},
		{"strong_match", c.Retrieval.StrongMatch},
		{"list_ceiling", c.Retrieval.ListCeiling},
	}
	for _, th := range thresholds {
		if th.v < 0 || th.v > 1 {
			return fmt.Errorf("retrieval.%s must be in [0,1], got %v", th.name, th.v)
		}
	}
	return nil
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

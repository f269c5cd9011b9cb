package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
	Zotero  ZoteroConfig  `mapstructure:"zotero"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	MaxUploadMB     int           `mapstructure:"max_upload_mb"`
	MaxFiles        int           `mapstructure:"max_files"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LLMConfig controls the model chain. Models are "provider:model" specs tried in order.
type LLMConfig struct {
	Models        []string      `mapstructure:"models"`
	OpenAIAPIKey  string        `mapstructure:"openai_api_key"`
	OpenAIBaseURL string        `mapstructure:"openai_base_url"`
	GeminiAPIKey  string        `mapstructure:"gemini_api_key"`
	SchemaMode    string        `mapstructure:"schema_mode"`
	InputMode     string        `mapstructure:"input_mode"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxTextChars  int           `mapstructure:"max_text_chars"`
	MaxWorkers    int           `mapstructure:"max_workers"`
}

type StorageConfig struct {
	Backend       string        `mapstructure:"backend"`
	SQLitePath    string        `mapstructure:"sqlite_path"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Output   string `mapstructure:"output"`
	Format   string `mapstructure:"format"`
	FilePath string `mapstructure:"file_path"`
}

type ZoteroConfig struct {
	APIKey    string `mapstructure:"api_key"`
	LibraryID string `mapstructure:"library_id"`
}

// ModelSpec is a parsed "provider:model" entry.
type ModelSpec struct {
	Provider string
	Model    string
}

func (m ModelSpec) String() string {
	return m.Provider + ":" + m.Model
}

const envPrefix = "VETRECORDS"

var defaults = map[string]any{
	"server.addr":             ":8080",
	"server.allowed_origins":  []string{"http://localhost:3000", "http://localhost:5173"},
	"server.max_upload_mb":    20,
	"server.max_files":        10,
	"server.shutdown_timeout": 15 * time.Second,

	"llm.models":          []string{"openai:gpt-5-mini", "openai:gpt-4.1-mini", "gemini:gemini-2.5-flash"},
	"llm.openai_api_key":  "",
	"llm.openai_base_url": "",
	"llm.gemini_api_key":  "",
	"llm.schema_mode":     "strict",
	"llm.input_mode":      "text",
	"llm.timeout":         2 * time.Minute,
	"llm.max_text_chars":  120000,
	"llm.max_workers":     4,

	"storage.backend":        "memory",
	"storage.sqlite_path":    "vetrecords.db",
	"storage.redis_addr":     "localhost:6379",
	"storage.redis_password": "",
	"storage.redis_db":       0,
	"storage.ttl":            time.Duration(0),

	"log.level":     "info",
	"log.output":    "",
	"log.format":    "console",
	"log.file_path": "",

	"zotero.api_key":    "",
	"zotero.library_id": "",
}

// conventional variable names honoured alongside the VETRECORDS_ prefixed ones
var aliases = map[string]string{
	"llm.openai_api_key": "OPENAI_API_KEY",
	"llm.gemini_api_key": "GEMINI_API_KEY",
	"zotero.api_key":     "ZOTERO_API_KEY",
	"zotero.library_id":  "ZOTERO_LIBRARY_ID",
}

// Load reads defaults, an optional config file and the environment, in that order.
// An empty configFile searches ./vetrecords.yaml and ./configs/vetrecords.yaml.
func Load(configFile string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, alias := range aliases {
		envKey := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, alias); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("vetrecords")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.LLM.Models = splitList(cfg.LLM.Models)
	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// splitList flattens comma separated entries, which is how list values arrive from env vars.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// ModelSpecs parses LLM.Models.
func (c *Config) ModelSpecs() ([]ModelSpec, error) {
	specs := make([]ModelSpec, 0, len(c.LLM.Models))
	for _, raw := range c.LLM.Models {
		provider, model, ok := strings.Cut(raw, ":")
		provider = strings.ToLower(strings.TrimSpace(provider))
		model = strings.TrimSpace(model)
		if !ok || model == "" {
			return nil, fmt.Errorf("model spec %q must look like provider:model", raw)
		}
		switch provider {
		case "openai", "gemini":
		default:
			return nil, fmt.Errorf("model spec %q: unknown provider %q", raw, provider)
		}
		specs = append(specs, ModelSpec{Provider: provider, Model: model})
	}
	return specs, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("storage.backend must be memory, sqlite or redis, got %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "sqlite" && c.Storage.SQLitePath == "" {
		return errors.New("storage.sqlite_path is required for the sqlite backend")
	}
	if c.Storage.Backend == "redis" && c.Storage.RedisAddr == "" {
		return errors.New("storage.redis_addr is required for the redis backend")
	}
	switch c.LLM.SchemaMode {
	case "strict", "lenient":
	default:
		return fmt.Errorf("llm.schema_mode must be strict or lenient, got %q", c.LLM.SchemaMode)
	}
	switch c.LLM.InputMode {
	case "text", "file":
	default:
		return fmt.Errorf("llm.input_mode must be text or file, got %q", c.LLM.InputMode)
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	if c.Server.MaxFiles <= 0 {
		return errors.New("server.max_files must be positive")
	}
	specs, err := c.ModelSpecs()
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		return errors.New("llm.models must list at least one provider:model")
	}
	return nil
}

// RequireProviderKeys checks that every provider named in the model chain has an API key.
// It is separate from Validate so that commands which never call a model can still start.
func (c *Config) RequireProviderKeys() error {
	specs, err := c.ModelSpecs()
	if err != nil {
		return err
	}
	for _, s := range specs {
		switch s.Provider {
		case "openai":
			if c.LLM.OpenAIAPIKey == "" {
				return errors.New("OPENAI_API_KEY is required for openai models")
			}
		case "gemini":
			if c.LLM.GeminiAPIKey == "" {
				return errors.New("GEMINI_API_KEY is required for gemini models")
			}
		}
	}
	return nil
}

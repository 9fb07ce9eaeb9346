package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerAddr     string   `yaml:"server_addr"`
	APIJWTSecret   string   `yaml:"api_jwt_secret"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// DataDir is the only local directory the HTTP API may read from or
	// write to. Unset, the API accepts remote locations only.
	DataDir string `yaml:"data_dir"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	// StoreDriver is "sqlite", "postgres" or "memory".
	StoreDriver string `yaml:"store_driver"`
	DatabaseURL string `yaml:"database_url"`

	SearchProvider   string `yaml:"search_provider"`
	SerpAPIKey       string `yaml:"serpapi_key"`
	SerperAPIKey     string `yaml:"serper_api_key"`
	GoogleAPIKey     string `yaml:"google_api_key"`
	GoogleCSEID      string `yaml:"google_cse_id"`
	SearchNumResults int    `yaml:"search_num_results"`

	CompletionProvider string `yaml:"completion_provider"`
	OpenAIAPIKey       string `yaml:"openai_api_key"`
	OpenAIBaseURL      string `yaml:"openai_base_url"`
	OpenAIModel        string `yaml:"openai_model"`
	GeminiAPIKey       string `yaml:"gemini_api_key"`
	GeminiModel        string `yaml:"gemini_model"`
	SystemPrompt       string `yaml:"system_prompt"`

	OCRProvider string `yaml:"ocr_provider"`
	OCRAPIKey   string `yaml:"ocr_api_key"`
	OCRBaseURL  string `yaml:"ocr_base_url"`
	OCRLanguage string `yaml:"ocr_language"`

	GoogleCredentialsFile string `yaml:"google_credentials_file"`
	SheetsRange           string `yaml:"sheets_range"`

	Workers          int           `yaml:"workers"`
	StageTimeout     time.Duration `yaml:"stage_timeout"`
	RetryMaxAttempts int           `yaml:"retry_max_attempts"`
	RetryInitial     time.Duration `yaml:"retry_initial_interval"`
	RetryMax         time.Duration `yaml:"retry_max_interval"`
	CacheSearches    bool          `yaml:"cache_searches"`
}

func defaults() *Config {
	return &Config{
		ServerAddr:         ":5000",
		AllowedOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		LogLevel:           "info",
		LogFile:            "enrich.log",
		StoreDriver:        "sqlite",
		DatabaseURL:        "file:enrich.db?cache=shared",
		SearchProvider:     "serpapi",
		SearchNumResults:   5,
		CompletionProvider: "openai",
		OpenAIModel:        "gpt-3.5-turbo",
		GeminiModel:        "gemini-2.5-flash",
		SystemPrompt:       "You are a helpful assistant that extracts specific information from web search results.",
		OCRProvider:        "ocrspace",
		OCRAPIKey:          "helloworld",
		OCRBaseURL:         "https://api.ocr.space/parse/image",
		OCRLanguage:        "eng",
		SheetsRange:        "A1:ZZ",
		Workers:            1,
		StageTimeout:       60 * time.Second,
		RetryMaxAttempts:   1,
		RetryInitial:       500 * time.Millisecond,
		RetryMax:           10 * time.Second,
	}
}

// Load reads the optional YAML file at path (or $ENRICH_CONFIG) and applies
// environment overrides on top of it.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("ENRICH_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.ServerAddr = getEnv("SERVER_ADDR", cfg.ServerAddr)
	cfg.APIJWTSecret = getEnv("API_JWT_SECRET", cfg.APIJWTSecret)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.StoreDriver = getEnv("STORE_DRIVER", cfg.StoreDriver)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)

	cfg.SearchProvider = getEnv("SEARCH_PROVIDER", cfg.SearchProvider)
	cfg.SerpAPIKey = getEnv("SERPAPI_API_KEY", cfg.SerpAPIKey)
	cfg.SerperAPIKey = getEnv("SERPER_API_KEY", cfg.SerperAPIKey)
	cfg.GoogleAPIKey = getEnv("GOOGLE_API_KEY", cfg.GoogleAPIKey)
	cfg.GoogleCSEID = getEnv("GOOGLE_CSE_ID", cfg.GoogleCSEID)
	cfg.SearchNumResults = getEnvInt("SEARCH_NUM_RESULTS", cfg.SearchNumResults)

	cfg.CompletionProvider = getEnv("COMPLETION_PROVIDER", cfg.CompletionProvider)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.OpenAIModel = getEnv("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiModel = getEnv("GEMINI_MODEL", cfg.GeminiModel)
	cfg.SystemPrompt = getEnv("SYSTEM_PROMPT", cfg.SystemPrompt)

	cfg.OCRProvider = getEnv("OCR_PROVIDER", cfg.OCRProvider)
	cfg.OCRAPIKey = getEnv("OCR_API_KEY", cfg.OCRAPIKey)
	cfg.OCRBaseURL = getEnv("OCR_BASE_URL", cfg.OCRBaseURL)
	cfg.OCRLanguage = getEnv("OCR_LANGUAGE", cfg.OCRLanguage)

	cfg.GoogleCredentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", cfg.GoogleCredentialsFile)
	cfg.SheetsRange = getEnv("SHEETS_RANGE", cfg.SheetsRange)

	cfg.Workers = getEnvInt("WORKERS", cfg.Workers)
	cfg.StageTimeout = getEnvDuration("STAGE_TIMEOUT", cfg.StageTimeout)
	cfg.RetryMaxAttempts = getEnvInt("RETRY_MAX_ATTEMPTS", cfg.RetryMaxAttempts)
	cfg.RetryInitial = getEnvDuration("RETRY_INITIAL_INTERVAL", cfg.RetryInitial)
	cfg.RetryMax = getEnvDuration("RETRY_MAX_INTERVAL", cfg.RetryMax)
	cfg.CacheSearches = getEnvBool("CACHE_SEARCHES", cfg.CacheSearches)

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

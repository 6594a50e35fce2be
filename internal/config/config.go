// Package config provides configuration management functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
// Every recognised option is enumerated here; Default() documents the defaults.
type Config struct {
	DataDir  string `yaml:"data_dir"` // Base directory for the index, database, documents and logs (always absolute)
	LogLevel string `yaml:"log_level"`
	LogFile  bool   `yaml:"log_file"` // Also write JSON logs to <data>/logs/edgardiff.log

	// EDGAR
	SECBaseURL   string        `yaml:"sec_base_url"`
	SECTickerURL string        `yaml:"sec_ticker_url"`
	UserAgent    string        `yaml:"user_agent"` // SEC rejects anonymous clients
	FormType     string        `yaml:"form_type"`
	StartYear    int           `yaml:"start_year"`
	StartQuarter int           `yaml:"start_quarter"`
	EndYear      int           `yaml:"end_year"`
	EndQuarter   int           `yaml:"end_quarter"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`

	// Fetch stage
	Workers            int    `yaml:"workers"`
	TickerOverrideFile string `yaml:"ticker_override_file"`
	StopWordsFile      string `yaml:"stop_words_file"`
	NamespacePrefix    string `yaml:"namespace_prefix"`

	// Price correlation
	EligibleFromHour int           `yaml:"eligible_from_hour"`
	EligibleToHour   int           `yaml:"eligible_to_hour"`
	AlpacaAPIKey     string        `yaml:"alpaca_api_key"`
	AlpacaAPISecret  string        `yaml:"alpaca_api_secret"`
	AlpacaFeed       string        `yaml:"alpaca_feed"`
	PriceCacheTTL    time.Duration `yaml:"price_cache_ttl"`

	// Differences and dataset
	PairMinWeeks   int `yaml:"pair_min_weeks"`
	PairMaxWeeks   int `yaml:"pair_max_weeks"`
	MatchThreshold int `yaml:"match_threshold"`
	DatasetBuckets int `yaml:"dataset_buckets"`

	// Operations
	Schedule          string `yaml:"schedule"` // cron expression; empty runs once
	Port              int    `yaml:"port"`
	R2AccountID       string `yaml:"r2_account_id"`
	R2AccessKeyID     string `yaml:"r2_access_key_id"`
	R2SecretAccessKey string `yaml:"r2_secret_access_key"`
	R2Bucket          string `yaml:"r2_bucket"`
	R2RetentionDays   int    `yaml:"r2_retention_days"` // 0 keeps every backup
}

// HostParallelism returns the number of logical CPUs on this host.
func HostParallelism() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Default returns a configuration populated with every default value.
func Default() *Config {
	return &Config{
		DataDir:            "data",
		LogLevel:           "info",
		SECBaseURL:         "https://www.sec.gov",
		SECTickerURL:       "https://www.sec.gov/include/ticker.txt",
		UserAgent:          "edgardiff research contact@example.com",
		FormType:           "10-Q",
		StartYear:          2019,
		StartQuarter:       1,
		EndYear:            time.Now().Year(),
		EndQuarter:         4,
		HTTPTimeout:        60 * time.Second,
		Workers:            HostParallelism(),
		TickerOverrideFile: filepath.Join("input", "cik_to_ticker.txt"),
		StopWordsFile:      filepath.Join("input", "stopwords.txt"),
		NamespacePrefix:    "xbrli:",
		EligibleFromHour:   16,
		EligibleToHour:     19,
		AlpacaFeed:         "iex",
		PriceCacheTTL:      7 * 24 * time.Hour,
		PairMinWeeks:       9,
		PairMaxWeeks:       17,
		MatchThreshold:     85,
		DatasetBuckets:     3,
		Port:               8002,
		R2RetentionDays:    30,
	}
}

// Load builds the configuration: defaults, then the optional YAML file, then .env and
// environment variables. Flags are applied afterwards by the caller via ApplyFlags.
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("EDGARDIFF_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnv() {
	c.DataDir = getEnv("EDGARDIFF_DATA_DIR", c.DataDir)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnvAsBool("EDGARDIFF_LOG_FILE", c.LogFile)
	c.SECBaseURL = getEnv("EDGARDIFF_SEC_BASE_URL", c.SECBaseURL)
	c.SECTickerURL = getEnv("EDGARDIFF_SEC_TICKER_URL", c.SECTickerURL)
	c.UserAgent = getEnv("EDGARDIFF_USER_AGENT", c.UserAgent)
	c.FormType = getEnv("EDGARDIFF_FORM_TYPE", c.FormType)
	c.StartYear = getEnvAsInt("EDGARDIFF_START_YEAR", c.StartYear)
	c.StartQuarter = getEnvAsInt("EDGARDIFF_START_QUARTER", c.StartQuarter)
	c.EndYear = getEnvAsInt("EDGARDIFF_END_YEAR", c.EndYear)
	c.EndQuarter = getEnvAsInt("EDGARDIFF_END_QUARTER", c.EndQuarter)
	c.HTTPTimeout = getEnvAsDuration("EDGARDIFF_HTTP_TIMEOUT", c.HTTPTimeout)
	c.Workers = getEnvAsInt("EDGARDIFF_WORKERS", c.Workers)
	c.TickerOverrideFile = getEnv("EDGARDIFF_TICKER_OVERRIDE_FILE", c.TickerOverrideFile)
	c.StopWordsFile = getEnv("EDGARDIFF_STOP_WORDS_FILE", c.StopWordsFile)
	c.NamespacePrefix = getEnv("EDGARDIFF_NAMESPACE_PREFIX", c.NamespacePrefix)
	c.EligibleFromHour = getEnvAsInt("EDGARDIFF_ELIGIBLE_FROM_HOUR", c.EligibleFromHour)
	c.EligibleToHour = getEnvAsInt("EDGARDIFF_ELIGIBLE_TO_HOUR", c.EligibleToHour)
	c.AlpacaAPIKey = getEnv("ALPACA_API_KEY", c.AlpacaAPIKey)
	c.AlpacaAPISecret = getEnv("ALPACA_SECRET_KEY", c.AlpacaAPISecret)
	c.AlpacaFeed = getEnv("ALPACA_FEED", c.AlpacaFeed)
	c.PriceCacheTTL = getEnvAsDuration("EDGARDIFF_PRICE_CACHE_TTL", c.PriceCacheTTL)
	c.PairMinWeeks = getEnvAsInt("EDGARDIFF_PAIR_MIN_WEEKS", c.PairMinWeeks)
	c.PairMaxWeeks = getEnvAsInt("EDGARDIFF_PAIR_MAX_WEEKS", c.PairMaxWeeks)
	c.MatchThreshold = getEnvAsInt("EDGARDIFF_MATCH_THRESHOLD", c.MatchThreshold)
	c.DatasetBuckets = getEnvAsInt("EDGARDIFF_DATASET_BUCKETS", c.DatasetBuckets)
	c.Schedule = getEnv("EDGARDIFF_SCHEDULE", c.Schedule)
	c.Port = getEnvAsInt("EDGARDIFF_PORT", c.Port)
	c.R2AccountID = getEnv("R2_ACCOUNT_ID", c.R2AccountID)
	c.R2AccessKeyID = getEnv("R2_ACCESS_KEY_ID", c.R2AccessKeyID)
	c.R2SecretAccessKey = getEnv("R2_SECRET_ACCESS_KEY", c.R2SecretAccessKey)
	c.R2Bucket = getEnv("R2_BUCKET", c.R2Bucket)
	c.R2RetentionDays = getEnvAsInt("R2_RETENTION_DAYS", c.R2RetentionDays)
}

// RegisterFlags declares a command-line flag for every option that is commonly overridden
// per invocation. Defaults shown in --help are the built-in defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("data-dir", d.DataDir, "base directory for index, database, documents and logs")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.Bool("log-file", d.LogFile, "also write JSON logs to <data-dir>/logs/edgardiff.log")
	fs.String("form-type", d.FormType, "target form type")
	fs.Int("start-year", d.StartYear, "first index year")
	fs.Int("start-quarter", d.StartQuarter, "first index quarter (1-4)")
	fs.Int("end-year", d.EndYear, "last index year")
	fs.Int("end-quarter", d.EndQuarter, "last index quarter (1-4)")
	fs.Int("workers", d.Workers, "parallel fetch workers (clamped to host parallelism)")
	fs.Int("match-threshold", d.MatchThreshold, "fuzzy score at or above which a sentence is not new (0-100)")
	fs.Int("buckets", d.DatasetBuckets, "number of quantile label buckets in the dataset")
	fs.String("schedule", d.Schedule, "cron expression for repeated runs (empty runs once)")
	fs.Int("port", d.Port, "HTTP port for the serve command")
}

// ApplyFlags copies every flag the user explicitly set onto the configuration and
// re-validates it.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var errs []error
	str := func(name string, dst *string) {
		if fs.Changed(name) {
			v, err := fs.GetString(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if fs.Changed(name) {
			v, err := fs.GetInt(name)
			errs = append(errs, err)
			*dst = v
		}
	}

	str("data-dir", &c.DataDir)
	str("log-level", &c.LogLevel)
	if fs.Changed("log-file") {
		v, err := fs.GetBool("log-file")
		errs = append(errs, err)
		c.LogFile = v
	}
	str("form-type", &c.FormType)
	num("start-year", &c.StartYear)
	num("start-quarter", &c.StartQuarter)
	num("end-year", &c.EndYear)
	num("end-quarter", &c.EndQuarter)
	num("workers", &c.Workers)
	num("match-threshold", &c.MatchThreshold)
	num("buckets", &c.DatasetBuckets)
	str("schedule", &c.Schedule)
	num("port", &c.Port)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to read flags: %w", err)
	}
	return c.finalize()
}

// finalize resolves paths, clamps the worker count and validates.
func (c *Config) finalize() error {
	absDataDir, err := filepath.Abs(c.DataDir)
	if err != nil {
		return fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	c.DataDir = absDataDir

	host := HostParallelism()
	if c.Workers <= 0 || c.Workers > host {
		c.Workers = host
	}

	return c.Validate()
}

// Validate checks that every option is within its allowed range
func (c *Config) Validate() error {
	if c.FormType == "" {
		return fmt.Errorf("form type must not be empty")
	}
	if c.StartQuarter < 1 || c.StartQuarter > 4 || c.EndQuarter < 1 || c.EndQuarter > 4 {
		return fmt.Errorf("quarters must be between 1 and 4 (got start=%d end=%d)", c.StartQuarter, c.EndQuarter)
	}
	if c.StartYear*4+c.StartQuarter > c.EndYear*4+c.EndQuarter {
		return fmt.Errorf("start period %dQ%d is after end period %dQ%d", c.StartYear, c.StartQuarter, c.EndYear, c.EndQuarter)
	}
	if c.EligibleFromHour < 0 || c.EligibleToHour > 23 || c.EligibleFromHour > c.EligibleToHour {
		return fmt.Errorf("invalid eligible hour window %d-%d", c.EligibleFromHour, c.EligibleToHour)
	}
	if c.PairMinWeeks < 0 || c.PairMinWeeks > c.PairMaxWeeks {
		return fmt.Errorf("invalid pairing window %d-%d weeks", c.PairMinWeeks, c.PairMaxWeeks)
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 100 {
		return fmt.Errorf("match threshold must be between 0 and 100 (got %d)", c.MatchThreshold)
	}
	if c.DatasetBuckets < 1 {
		return fmt.Errorf("dataset buckets must be at least 1 (got %d)", c.DatasetBuckets)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	return nil
}

// Derived locations under DataDir.

func (c *Config) IndexPath() string    { return filepath.Join(c.DataDir, "master.idx") }
func (c *Config) DatabasePath() string { return filepath.Join(c.DataDir, "db", "edgardiff.db") }
func (c *Config) CachePath() string    { return filepath.Join(c.DataDir, "db", "cache.db") }
func (c *Config) CleanedDir() string   { return filepath.Join(c.DataDir, "cleaned_files") }
func (c *Config) LogDir() string       { return filepath.Join(c.DataDir, "logs") }
func (c *Config) DatasetPath() string  { return filepath.Join(c.DataDir, "data", "dataset.csv") }

// EnsureDirs creates every output directory the pipeline writes to.
func (c *Config) EnsureDirs() error {
	dirs := []string{
		c.DataDir,
		filepath.Dir(c.DatabasePath()),
		c.CleanedDir(),
		c.LogDir(),
		filepath.Dir(c.DatasetPath()),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// R2Enabled reports whether cloud backup credentials are configured.
func (c *Config) R2Enabled() bool {
	return c.R2Bucket != "" && c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

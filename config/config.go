package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	LinkedIn  LinkedInConfig  `yaml:"linkedin"`
	Search    SearchConfig    `yaml:"search"`
	Blacklist BlacklistConfig `yaml:"blacklist"`
	Apply     ApplyConfig     `yaml:"apply"`
	Pacing    PacingConfig    `yaml:"pacing"`
	Answers   AnswersConfig   `yaml:"answers"`
	Browser   BrowserConfig   `yaml:"browser"`
	Resume    ResumeConfig    `yaml:"resume"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LinkedInConfig contains platform URLs and login polling behavior
type LinkedInConfig struct {
	LoginURL          string        `yaml:"login_url"`
	JobsSearchURL     string        `yaml:"jobs_search_url"`
	LoginPollInterval time.Duration `yaml:"login_poll_interval"`
	LoginDebounce     time.Duration `yaml:"login_debounce"`
	CheckpointTimeout time.Duration `yaml:"checkpoint_timeout"`
}

// SearchConfig defines what to search for. The keyword and location lists
// are expanded as a Cartesian product, in the order given here.
type SearchConfig struct {
	Keywords  []string      `yaml:"keywords"`
	Locations []string      `yaml:"locations"`
	Filters   FilterFlags   `yaml:"filters"`
	PageCap   int           `yaml:"page_cap"`
	PageDelay time.Duration `yaml:"page_delay"`
}

// FilterFlags are the search-URL filter toggles
type FilterFlags struct {
	EasyApplyOnly bool     `yaml:"easy_apply_only"`
	Remote        bool     `yaml:"remote"`
	DatePosted    string   `yaml:"date_posted"` // "", "day", "week", "month"
	Experience    []string `yaml:"experience"`  // LinkedIn experience level codes, e.g. "2", "3"
}

// BlacklistConfig lists company and title substrings that are never attempted
type BlacklistConfig struct {
	Companies []string `yaml:"companies"`
	Titles    []string `yaml:"titles"`
}

// ApplyConfig bounds the per-posting modal state machine
type ApplyConfig struct {
	MaxSteps   int           `yaml:"max_steps"`
	StepSettle time.Duration `yaml:"step_settle"`
	UploadPath string        `yaml:"upload_path"`
}

// PacingConfig controls the human-like delays between attempts
type PacingConfig struct {
	MinDelay         time.Duration `yaml:"min_delay"`
	MaxDelay         time.Duration `yaml:"max_delay"`
	ThinkProbability float64       `yaml:"think_probability"`
	ThinkDelay       time.Duration `yaml:"think_delay"`
	MaxApplications  int           `yaml:"max_applications"`
}

// AnswersConfig configures the text-generation collaborator
type AnswersConfig struct {
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// BrowserConfig contains browser automation settings
type BrowserConfig struct {
	Headless       bool   `yaml:"headless"`
	UserAgent      string `yaml:"user_agent"`
	ProfileDir     string `yaml:"profile_dir"`
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`
}

// ResumeConfig points at the pre-parsed resume data file
type ResumeConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig contains the attempt-log database settings
type StorageConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	setDefaults()

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("LINKEDIN")

	if err := viper.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := createDefaultConfig(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read created config file: %w", err)
		}
	}

	overrideFromEnv()

	var config Config
	// The structs carry yaml tags for resume/default-file marshalling; point
	// the decoder at the same tags so snake_case keys land in their fields.
	withYAMLTags := func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }
	if err := viper.Unmarshal(&config, withYAMLTags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("linkedin.login_url", "https://www.linkedin.com/login")
	viper.SetDefault("linkedin.jobs_search_url", "https://www.linkedin.com/jobs/search/")
	viper.SetDefault("linkedin.login_poll_interval", "2s")
	viper.SetDefault("linkedin.login_debounce", "1500ms")
	viper.SetDefault("linkedin.checkpoint_timeout", "5m")

	viper.SetDefault("search.keywords", []string{})
	viper.SetDefault("search.locations", []string{})
	viper.SetDefault("search.filters.easy_apply_only", true)
	viper.SetDefault("search.filters.remote", false)
	viper.SetDefault("search.filters.date_posted", "")
	viper.SetDefault("search.page_cap", 10)
	viper.SetDefault("search.page_delay", "3s")

	viper.SetDefault("apply.max_steps", 20)
	viper.SetDefault("apply.step_settle", "1500ms")

	viper.SetDefault("pacing.min_delay", "20s")
	viper.SetDefault("pacing.max_delay", "90s")
	viper.SetDefault("pacing.think_probability", 0.15)
	viper.SetDefault("pacing.think_delay", "3m")
	viper.SetDefault("pacing.max_applications", 50)

	viper.SetDefault("answers.model", "gemini-1.5-flash")
	viper.SetDefault("answers.timeout", "30s")
	viper.SetDefault("answers.max_attempts", 2)

	viper.SetDefault("browser.headless", false)
	viper.SetDefault("browser.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	viper.SetDefault("browser.profile_dir", "./sessions")
	viper.SetDefault("browser.viewport_width", 1920)
	viper.SetDefault("browser.viewport_height", 1080)

	viper.SetDefault("resume.path", "./config/resume.yaml")

	viper.SetDefault("storage.path", "./data/easyapply.db")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// createDefaultConfig creates a default configuration file
func createDefaultConfig(configPath string) error {
	starter := map[string]interface{}{
		"search": map[string]interface{}{
			"keywords":  []string{"software engineer"},
			"locations": []string{"Remote"},
			"page_cap":  10,
			"filters": map[string]interface{}{
				"easy_apply_only": true,
			},
		},
		"apply": map[string]interface{}{
			"max_steps": 20,
		},
	}

	data, err := yaml.Marshal(starter)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// overrideFromEnv overrides configuration with environment variables
func overrideFromEnv() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		viper.Set("answers.api_key", key)
	}
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if len(config.Search.Keywords) == 0 {
		return fmt.Errorf("at least one search keyword is required")
	}
	if len(config.Search.Locations) == 0 {
		return fmt.Errorf("at least one search location is required")
	}
	if config.Search.PageCap <= 0 {
		return fmt.Errorf("search page cap must be positive")
	}
	if config.Apply.MaxSteps <= 0 {
		return fmt.Errorf("apply max steps must be positive")
	}
	if config.Pacing.MinDelay > config.Pacing.MaxDelay {
		return fmt.Errorf("pacing min delay must not exceed max delay")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file next to the binary's working dir.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML with env overrides.
type FileConfig struct {
	APIBaseURL      string `yaml:"apiBaseURL"`
	LogLevel        string `yaml:"logLevel"`
	PageLimit       int    `yaml:"pageLimit"`
	RequestTimeout  string `yaml:"requestTimeout"`
	CredentialsPath string `yaml:"credentialsPath"`
	CredentialsKey  string `yaml:"credentialsKey"`
	RedisAddr       string `yaml:"redisAddr"`
	RedisPassword   string `yaml:"redisPassword"`
}

// Load reads config from path (defaults to config.yaml). A missing default
// file is fine; env vars alone can configure the client.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	defaulted := path == ""
	if defaulted {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && defaulted:
		// env-only configuration
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if v := os.Getenv("BOOKWORM_API_URL"); v != "" {
		cfg.APIBaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("BOOKWORM_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("BOOKWORM_PAGE_LIMIT"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return cfg, fmt.Errorf("invalid BOOKWORM_PAGE_LIMIT: %w", err)
		}
		cfg.PageLimit = n
	}
	if v := os.Getenv("BOOKWORM_REQUEST_TIMEOUT"); v != "" {
		cfg.RequestTimeout = strings.TrimSpace(v)
	}
	if v := os.Getenv("BOOKWORM_CREDENTIALS_PATH"); v != "" {
		cfg.CredentialsPath = strings.TrimSpace(v)
	}
	if v := os.Getenv("BOOKWORM_CREDENTIALS_KEY"); v != "" {
		cfg.CredentialsKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}

	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.PageLimit == 0 {
		cfg.PageLimit = 5
	}
	if cfg.RequestTimeout == "" {
		cfg.RequestTimeout = "10s"
	}
	if cfg.CredentialsPath == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			cfg.CredentialsPath = filepath.Join(dir, "bookworm", "credentials.blob")
		}
	}
}

func validateConfig(cfg FileConfig) error {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return errors.New("config: apiBaseURL is required (set in config.yaml or BOOKWORM_API_URL)")
	}
	if cfg.PageLimit < 1 {
		return errors.New("config: pageLimit must be >= 1")
	}
	if cfg.RedisAddr == "" && strings.TrimSpace(cfg.CredentialsPath) == "" {
		return errors.New("config: credentialsPath is required when redisAddr is unset")
	}
	if _, err := ParseRequestTimeout(cfg.RequestTimeout); err != nil {
		return err
	}
	return nil
}

// ParseRequestTimeout parses the request timeout duration string.
func ParseRequestTimeout(timeoutStr string) (time.Duration, error) {
	if timeoutStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return 0, fmt.Errorf("invalid requestTimeout duration: %w", err)
	}
	return dur, nil
}

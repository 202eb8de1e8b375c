// Package config loads the YAML configuration, a .env file and
// GEOPLANNER_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFile = "config.yaml"
	ExampleFile = "config.yaml.example"
)

// Config structure for YAML configuration
type Config struct {
	API struct {
		BaseURL   string        `yaml:"base_url"`
		Timeout   time.Duration `yaml:"timeout"`
		RateLimit float64       `yaml:"rate_limit"`
		Burst     int           `yaml:"burst"`
		DetailTTL time.Duration `yaml:"detail_ttl"`
	} `yaml:"api"`
	Export struct {
		Dir      string  `yaml:"dir"`
		Width    int     `yaml:"width"`
		FontSize float64 `yaml:"font_size"`
		S3       struct {
			Bucket string `yaml:"bucket"`
			Region string `yaml:"region"`
		} `yaml:"s3"`
	} `yaml:"export"`
	Archive struct {
		Driver  string `yaml:"driver"`
		Path    string `yaml:"path"`
		PostGIS struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			Database string `yaml:"database"`
			SSLMode  string `yaml:"sslmode"`
		} `yaml:"postgis"`
	} `yaml:"archive"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is found
func Default() *Config {
	cfg := &Config{}
	cfg.API.BaseURL = "http://localhost:8000"
	cfg.API.Timeout = 10 * time.Second
	cfg.API.RateLimit = 5
	cfg.API.Burst = 5
	cfg.API.DetailTTL = 10 * time.Minute
	cfg.Export.Dir = "exports"
	cfg.Export.Width = 600
	cfg.Export.FontSize = 18
	cfg.Export.S3.Region = "ap-northeast-2"
	cfg.Archive.Driver = "file"
	cfg.Archive.Path = "planners.gob"
	cfg.Archive.PostGIS.Host = "localhost"
	cfg.Archive.PostGIS.Port = 5432
	cfg.Archive.PostGIS.User = "postgres"
	cfg.Archive.PostGIS.Database = "geodb"
	cfg.Archive.PostGIS.SSLMode = "disable"
	cfg.Log.Level = "info"
	cfg.Log.File = "geoplanner.log"
	return cfg
}

// Load reads path, or config.yaml then config.yaml.example when path is
// empty. Missing default files are not an error; a missing explicit path is.
// Values from .env and the environment are applied last.
func Load(path string) (*Config, string, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	source := ""

	candidates := []string{DefaultFile, ExampleFile}
	if path != "" {
		candidates = []string{path}
	}
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if errors.Is(err, os.ErrNotExist) && path == "" {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, "", fmt.Errorf("failed to parse config %s: %w", candidate, err)
		}
		source = candidate
		break
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, source, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("GEOPLANNER_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("GEOPLANNER_EXPORT_DIR"); v != "" {
		c.Export.Dir = v
	}
	if v := os.Getenv("GEOPLANNER_S3_BUCKET"); v != "" {
		c.Export.S3.Bucket = v
	}
	if v := os.Getenv("GEOPLANNER_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("GEOPLANNER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("GEOPLANNER_ARCHIVE_DRIVER"); v != "" {
		c.Archive.Driver = v
	}
	if v := os.Getenv("GEOPLANNER_POSTGIS_PASSWORD"); v != "" {
		c.Archive.PostGIS.Password = v
	}
	if v := os.Getenv("GEOPLANNER_POSTGIS_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GEOPLANNER_POSTGIS_PORT %q: %w", v, err)
		}
		c.Archive.PostGIS.Port = port
	}
	return nil
}

// Validate checks the values the rest of the program relies on
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.Timeout < 0 || c.API.DetailTTL < 0 {
		return errors.New("api durations must not be negative")
	}
	switch c.Archive.Driver {
	case "", "none", "file", "postgis":
	default:
		return fmt.Errorf("unknown archive driver %q", c.Archive.Driver)
	}
	return nil
}

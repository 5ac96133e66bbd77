// internal/config/config.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FairForge/heritageload/internal/archive"
	"github.com/FairForge/heritageload/internal/logging"
	"github.com/FairForge/heritageload/internal/report"
)

type Config struct {
	Target   TargetConfig         `yaml:"target"`
	Fixtures FixturesConfig       `yaml:"fixtures"`
	Log      logging.LoggerConfig `yaml:"log"`
	Metrics  MetricsConfig        `yaml:"metrics"`
	Results  ResultsConfig        `yaml:"results"`
	Report   ReportConfig         `yaml:"report"`
}

type TargetConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
	MaxRPS  float64       `yaml:"max_rps"` // 0 = uncapped
}

type FixturesConfig struct {
	Contributors string `yaml:"contributors"` // contributor_logins.json
	Dir          string `yaml:"dir"`          // image, video and chunks/
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables /metrics
}

type ResultsConfig struct {
	Path string `yaml:"path"` // .zst suffix compresses
}

type ReportConfig struct {
	OutDir string          `yaml:"out_dir"`
	S3     report.S3Config `yaml:"s3"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Target: TargetConfig{
			BaseURL: archive.DefaultBaseURL,
			Timeout: 60 * time.Second,
		},
		Fixtures: FixturesConfig{
			Contributors: "contributor_logins.json",
			Dir:          ".",
		},
		Log: logging.LoggerConfig{
			Level:  logging.LevelInfo,
			Format: logging.FormatText,
		},
		Report: ReportConfig{OutDir: "."},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values a run depends on.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Target.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: invalid target.base_url %q", c.Target.BaseURL)
	}
	if c.Target.Timeout < 0 {
		return errors.New("config: target.timeout must not be negative")
	}
	if c.Target.MaxRPS < 0 {
		return errors.New("config: target.max_rps must not be negative")
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if c.Report.S3.Enabled() && (c.Report.S3.AccessKey == "") != (c.Report.S3.SecretKey == "") {
		return errors.New("config: report.s3 needs both access_key and secret_key")
	}
	return nil
}

// Client returns the archive client settings.
func (c *Config) Client() archive.Config {
	return archive.Config{
		BaseURL: c.Target.BaseURL,
		APIKey:  c.Target.APIKey,
		Timeout: c.Target.Timeout,
		MaxRPS:  c.Target.MaxRPS,
	}
}

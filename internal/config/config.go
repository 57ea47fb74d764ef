package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"iocwatch/internal/threat"
)

// Config holds pipeline and service configuration.
type Config struct {
	LogPath        string       `yaml:"log_path"`
	OutputFile     string       `yaml:"output_file"`
	TestOutputFile string       `yaml:"test_output_file"`
	PulseCount     int          `yaml:"pulse_count"`
	ExportLimit    int          `yaml:"export_limit"`
	OTX            OTXConfig    `yaml:"otx"`
	Server         ServerConfig `yaml:"server"`
}

// OTXConfig configures the indicator feed.
type OTXConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig configures `iocwatch serve`.
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogPath:        "/var/log/suricata/eve.json",
		OutputFile:     "matched_iocs.json",
		TestOutputFile: "test_output.json",
		PulseCount:     5,
		ExportLimit:    20,
		OTX: OTXConfig{
			BaseURL: threat.DefaultOTXBaseURL,
			Timeout: 15 * time.Second,
		},
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			GRPCAddr:        ":9000",
			MetricsAddr:     ":9090",
			RefreshInterval: 15 * time.Minute,
		},
	}
}

// Load applies an optional YAML file and then environment variables on top
// of the defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.LogPath = getEnv("IOCWATCH_LOG_PATH", c.LogPath)
	c.OutputFile = getEnv("IOCWATCH_OUTPUT_FILE", c.OutputFile)
	c.TestOutputFile = getEnv("IOCWATCH_TEST_OUTPUT_FILE", c.TestOutputFile)
	c.OTX.APIKey = getEnv("OTX_API_KEY", c.OTX.APIKey)
	c.OTX.BaseURL = getEnv("OTX_BASE_URL", c.OTX.BaseURL)
	c.Server.HTTPAddr = getEnv("IOCWATCH_HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("IOCWATCH_GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.MetricsAddr = getEnv("IOCWATCH_METRICS_ADDR", c.Server.MetricsAddr)

	var err error
	if c.PulseCount, err = getEnvInt("IOCWATCH_PULSE_COUNT", c.PulseCount); err != nil {
		return err
	}
	if c.ExportLimit, err = getEnvInt("IOCWATCH_EXPORT_LIMIT", c.ExportLimit); err != nil {
		return err
	}
	if c.OTX.Timeout, err = getEnvDuration("OTX_TIMEOUT", c.OTX.Timeout); err != nil {
		return err
	}
	if c.Server.RefreshInterval, err = getEnvDuration("IOCWATCH_REFRESH_INTERVAL", c.Server.RefreshInterval); err != nil {
		return err
	}
	return nil
}

// Validate rejects settings the pipeline cannot run with. A missing API key
// is not checked here; the feed client reports it when it is needed.
func (c *Config) Validate() error {
	var errs []error
	if c.PulseCount <= 0 {
		errs = append(errs, fmt.Errorf("pulse_count must be positive, got %d", c.PulseCount))
	}
	if c.ExportLimit <= 0 {
		errs = append(errs, fmt.Errorf("export_limit must be positive, got %d", c.ExportLimit))
	}
	if c.OTX.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("otx.timeout must be positive, got %s", c.OTX.Timeout))
	}
	if c.Server.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("server.refresh_interval must be positive, got %s", c.Server.RefreshInterval))
	}
	return errors.Join(errs...)
}

// OTXClient builds a feed client from the configuration.
func (c *Config) OTXClient() *threat.OTXClient {
	return threat.NewOTXClient(c.OTX.APIKey,
		threat.WithBaseURL(c.OTX.BaseURL),
		threat.WithTimeout(c.OTX.Timeout),
	)
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func getEnvDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

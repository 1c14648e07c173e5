// Package config loads fractions.yaml.
//
// Lookup order is first match wins: an explicit path (which must exist),
// ./fractions.yaml, then ~/.fractions/config.yaml. Running without any
// config file is fine; Default values apply.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petal-labs/fractions/history"
	fracotel "github.com/petal-labs/fractions/otel"
)

const (
	projectConfigName = "fractions.yaml"
	homeConfigDir     = ".fractions"
	homeConfigName    = "config.yaml"
)

// Environment variables that override file values.
const (
	EnvHistoryPath  = "FRACTIONS_HISTORY_PATH"
	EnvOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Config is the shape of fractions.yaml.
type Config struct {
	History   HistoryConfig   `yaml:"history"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Console   ConsoleConfig   `yaml:"console"`
}

// HistoryConfig configures the evaluation history store.
type HistoryConfig struct {
	// Path to the SQLite database. Empty means ~/.fractions/history.db.
	Path           string        `yaml:"path"`
	Disabled       bool          `yaml:"disabled"`
	RetentionAge   time.Duration `yaml:"retention_age"`
	RetentionCount int           `yaml:"retention_count"`
	PruneSchedule  string        `yaml:"prune_schedule"`
}

// ServerConfig configures `fractions serve`.
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
	MaxBody    int64  `yaml:"max_body"`
	MaxBatch   int    `yaml:"max_batch"`
}

// TelemetryConfig configures OpenTelemetry.
type TelemetryConfig struct {
	ServiceName  string `yaml:"service_name"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

// ConsoleConfig overrides the interactive console texts.
type ConsoleConfig struct {
	Welcome string `yaml:"welcome"`
	Prompt  string `yaml:"prompt"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		History: HistoryConfig{
			RetentionCount: 10000,
			PruneSchedule:  history.DefaultPruneSchedule,
		},
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       8080,
			CORSOrigin: "*",
			MaxBody:    1 << 20,
			MaxBatch:   1000,
		},
		Telemetry: TelemetryConfig{
			ServiceName: fracotel.DefaultServiceName,
		},
	}
}

// DiscoverPath resolves the config location with first-match semantics.
func DiscoverPath(explicitPath string) (string, bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("resolve working directory: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("resolve user home: %w", err)
	}
	return DiscoverPathFrom(explicitPath, cwd, homeDir)
}

// DiscoverPathFrom is a testable variant of DiscoverPath.
func DiscoverPathFrom(explicitPath, cwd, homeDir string) (string, bool, error) {
	candidates := make([]string, 0, 2)
	if clean := strings.TrimSpace(explicitPath); clean != "" {
		candidates = append(candidates, filepath.Clean(clean))
	} else {
		candidates = append(candidates, filepath.Join(cwd, projectConfigName))
		candidates = append(candidates, filepath.Join(homeDir, homeConfigDir, homeConfigName))
	}

	for i, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			if i == 0 && strings.TrimSpace(explicitPath) != "" {
				return "", false, fmt.Errorf("config file %q not found", candidate)
			}
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("checking config path %q: %w", candidate, err)
		}
	}
	return "", false, nil
}

// Load reads path on top of Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	// #nosec G304 -- path resolved from explicit local config discovery.
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %q: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing config %q: %w", path, err)
	}

	cfg.History.Path = resolveConfigRelative(filepath.Dir(path), expandHome(os.ExpandEnv(cfg.History.Path)))
	return cfg, nil
}

// LoadDiscovered discovers and loads the config file, falling back to
// Default when none exists. The returned path is empty in that case.
func LoadDiscovered(explicitPath string) (Config, string, error) {
	path, found, err := DiscoverPath(explicitPath)
	if err != nil {
		return Default(), "", err
	}
	if !found {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// ApplyEnv overrides file values with environment variables. getenv is
// usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvHistoryPath)); v != "" {
		c.History.Path = expandHome(v)
	}
	if v := strings.TrimSpace(getenv(EnvOTLPEndpoint)); v != "" {
		c.Telemetry.OTLPEndpoint = v
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxBody < 0 {
		return fmt.Errorf("server.max_body must not be negative")
	}
	if c.History.RetentionAge < 0 {
		return fmt.Errorf("history.retention_age must not be negative")
	}
	if c.History.RetentionCount < 0 {
		return fmt.Errorf("history.retention_count must not be negative")
	}
	if strings.TrimSpace(c.History.PruneSchedule) != "" {
		if _, err := history.ParseSchedule(c.History.PruneSchedule); err != nil {
			return fmt.Errorf("history.prune_schedule: %w", err)
		}
	}
	return nil
}

// HistoryPath returns the configured database path or the default one.
func (c Config) HistoryPath() (string, error) {
	if p := strings.TrimSpace(c.History.Path); p != "" {
		return p, nil
	}
	return history.DefaultPath()
}

// Retention converts the history settings to store retention rules.
func (c Config) Retention() history.Retention {
	return history.Retention{
		MaxAge:   c.History.RetentionAge,
		MaxCount: c.History.RetentionCount,
	}
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// OTel converts the telemetry settings for otel.Setup.
func (t TelemetryConfig) OTel() fracotel.TelemetryConfig {
	return fracotel.TelemetryConfig{
		ServiceName:  t.ServiceName,
		OTLPEndpoint: t.OTLPEndpoint,
		Insecure:     t.Insecure,
	}
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func resolveConfigRelative(baseDir, p string) string {
	if p == "" || p == ":memory:" || strings.HasPrefix(strings.ToLower(p), "file:") {
		return p
	}
	clean := filepath.Clean(p)
	if filepath.IsAbs(clean) {
		return clean
	}
	return filepath.Join(baseDir, clean)
}

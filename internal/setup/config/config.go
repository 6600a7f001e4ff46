package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// Current version of the config file.
const (
	CurrentCommonVersion = 1
	CurrentWorkerVersion = 1
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig
	Worker WorkerConfig
}

// CommonConfig contains configuration shared between the CLI and the worker.
type CommonConfig struct {
	// Version of the common config.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	TrustGraph TrustGraph `koanf:"trust_graph"`
	AntiSpam   AntiSpam   `koanf:"anti_spam"`
	Telemetry  Telemetry  `koanf:"telemetry"`
}

// WorkerConfig contains worker specific configuration.
type WorkerConfig struct {
	// Version of the worker config.
	Version int `koanf:"version"`
	// Startup delay in milliseconds.
	StartupDelay int        `koanf:"startup_delay"`
	Heuristics   Heuristics `koanf:"heuristics"`
	Metrics      Metrics    `koanf:"metrics"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log session directories to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file before rotation.
	MaxLogLines int `koanf:"max_log_lines"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"db_name"`
	// Connection pool limits.
	MaxOpenConns int `koanf:"max_open_conns"`
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Lifetimes in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains cache connection configuration.
type Redis struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// TrustGraph configures the external trust-score provider.
type TrustGraph struct {
	// Base URL of the trust-graph service.
	BaseURL string `koanf:"base_url"`
	// Request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout"`
	// Maximum retries for a single request.
	MaxRetries int `koanf:"max_retries"`
	// Minimum seconds between two recomputes of the same scope.
	RecomputeInterval int `koanf:"recompute_interval"`
	// Capacity of the background recompute queue.
	QueueSize int `koanf:"queue_size"`
}

// AntiSpam contains the anti-spam gate's infrastructure settings.
type AntiSpam struct {
	// Seconds a community's settings stay in the cache.
	SettingsCacheTTL int `koanf:"settings_cache_ttl"`
}

// Telemetry configures tracing export.
type Telemetry struct {
	// Uptrace DSN; tracing export is disabled when empty.
	UptraceDSN     string `koanf:"uptrace_dsn"`
	ServiceName    string `koanf:"service_name"`
	ServiceVersion string `koanf:"service_version"`
}

// Heuristics configures the behavioral detectors run by the worker.
type Heuristics struct {
	// Minutes between two scheduled runs.
	Interval int `koanf:"interval"`
	// Burst voting: window in minutes and reaction count threshold.
	BurstVotingWindow    int `koanf:"burst_voting_window"`
	BurstVotingThreshold int `koanf:"burst_voting_threshold"`
	// Content similarity: window in minutes, similarity threshold and limits.
	SimilarityWindow        int     `koanf:"similarity_window"`
	SimilarityThreshold     float64 `koanf:"similarity_threshold"`
	SimilarityMinAuthors    int     `koanf:"similarity_min_authors"`
	SimilarityMaxItems      int     `koanf:"similarity_max_items"`
	SimilarityMinTextLength int     `koanf:"similarity_min_text_length"`
	// Low diversity: window in minutes and interaction bounds.
	LowDiversityWindow          int `koanf:"low_diversity_window"`
	LowDiversityMinInteractions int `koanf:"low_diversity_min_interactions"`
	LowDiversityMaxTargets      int `koanf:"low_diversity_max_targets"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	ListenAddress string `koanf:"listen_address"`
}

// Timeout returns the trust-graph request timeout as a duration.
func (t TrustGraph) Timeout() time.Duration {
	if t.RequestTimeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(t.RequestTimeout) * time.Millisecond
}

// RecomputeThrottle returns the minimum spacing between recomputes.
func (t TrustGraph) RecomputeThrottle() time.Duration {
	if t.RecomputeInterval <= 0 {
		return time.Hour
	}
	return time.Duration(t.RecomputeInterval) * time.Second
}

// CacheTTL returns how long settings stay cached.
func (a AntiSpam) CacheTTL() time.Duration {
	if a.SettingsCacheTTL <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(a.SettingsCacheTTL) * time.Second
}

// LoadConfig loads the configuration from the first search path containing each file.
func LoadConfig() (*Config, string, error) {
	configPaths, err := searchPaths()
	if err != nil {
		return nil, "", err
	}

	var config Config
	var usedConfigPath string

	files := []struct {
		name   string
		target any
	}{
		{"common", &config.Common},
		{"worker", &config.Worker},
	}

	for _, f := range files {
		path, err := loadFile(configPaths, f.name, f.target)
		if err != nil {
			return nil, "", err
		}
		if usedConfigPath == "" {
			usedConfigPath = path
		}
	}

	// Check versions for each config file
	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("worker", config.Worker.Version, CurrentWorkerVersion); err != nil {
		return nil, "", err
	}

	return &config, usedConfigPath, nil
}

// searchPaths lists the directories searched for config files, in order.
func searchPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	return []string{
		".trustgate",
		homeDir + "/.trustgate/config",
		"/etc/trustgate/config",
		"/app/config",
		"config",
		".",
	}, nil
}

// loadFile parses the first <path>/<name>.toml found into target.
func loadFile(configPaths []string, name string, target any) (string, error) {
	for _, path := range configPaths {
		k := koanf.New(".")
		configPath := fmt.Sprintf("%s/%s.toml", path, name)
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			continue
		}

		if err := k.Unmarshal("", target); err != nil {
			return "", fmt.Errorf("error unmarshaling %s: %w", configPath, err)
		}

		return path, nil
	}

	return "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, name)
}

func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf("%w: %s.toml (got: %d, expected: %d)",
			ErrConfigVersionMismatch, name, current, expected)
	}

	return nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"bikedash/internal/rentals"
)

// EnvPrefix namespaces every environment variable, e.g. BIKEDASH_SERVER_PORT.
const EnvPrefix = "BIKEDASH"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Dataset   DatasetConfig   `yaml:"dataset" envconfig:"DATASET"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"60s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/bikedash.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// PathsConfig contains file system paths. Relative paths resolve against BaseDir,
// which defaults to the working directory.
type PathsConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
	ExportsDir string `yaml:"exports_dir" envconfig:"EXPORTS_DIR" default:"exports"`
}

// DatasetConfig selects the rental CSV and how it is read. The path is read
// from BIKEDASH_DATASET_FILE; envconfig falls back to the bare tag name, and
// a bare PATH would always be set.
type DatasetConfig struct {
	Path          string        `yaml:"path" envconfig:"FILE" default:"data/all_data.csv"`
	Profile       string        `yaml:"profile" envconfig:"PROFILE" default:"auto"`
	MaxRowErrors  int           `yaml:"max_row_errors" envconfig:"MAX_ROW_ERRORS" default:"20"`
	Watch         bool          `yaml:"watch" envconfig:"WATCH" default:"true"`
	WatchDebounce time.Duration `yaml:"watch_debounce" envconfig:"WATCH_DEBOUNCE" default:"500ms"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME" default:"bikedash"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1.0"`
}

// Load reads configuration. Precedence is environment (including a .env file),
// then the YAML file, then defaults. configFile may be empty, in which case
// bikedash.yaml and configs/bikedash.yaml are tried.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	explicit := configFile != ""
	if !explicit {
		configFile = findConfigFile()
	}
	if configFile != "" {
		fileConfig, keys, err := loadFromFile(configFile)
		switch {
		case err == nil:
			mergeConfigs(&cfg, fileConfig, keys)
		case explicit || !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("failed to load config from %s: %w", configFile, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// fileKeys holds the dotted YAML paths a config file sets, e.g. "dataset.watch".
type fileKeys map[string]bool

func loadFromFile(filePath string) (*Config, fileKeys, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, nil, err
	}
	var raw map[interface{}]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}
	keys := make(fileKeys)
	collectKeys(keys, "", raw)
	return &cfg, keys, nil
}

func collectKeys(keys fileKeys, prefix string, node map[interface{}]interface{}) {
	for k, v := range node {
		if v == nil {
			continue
		}
		key := fmt.Sprint(k)
		if prefix != "" {
			key = prefix + "." + key
		}
		if child, ok := v.(map[interface{}]interface{}); ok {
			collectKeys(keys, key, child)
			continue
		}
		keys[key] = true
	}
}

// envKeys maps YAML paths whose variable name does not follow the path.
var envKeys = map[string]string{
	"dataset.path": "DATASET_FILE",
}

func envKey(path string) string {
	if k, ok := envKeys[path]; ok {
		return EnvPrefix + "_" + k
	}
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
}

// overlay copies the file value of path unless the file omits it or the
// environment sets it.
func overlay[T any](keys fileKeys, path string, dst *T, fileVal T) {
	if !keys[path] {
		return
	}
	if _, set := os.LookupEnv(envKey(path)); set {
		return
	}
	*dst = fileVal
}

// mergeConfigs applies file values to cfg, leaving explicit environment values in place
func mergeConfigs(cfg, file *Config, keys fileKeys) {
	overlay(keys, "server.port", &cfg.Server.Port, file.Server.Port)
	overlay(keys, "server.read_timeout", &cfg.Server.ReadTimeout, file.Server.ReadTimeout)
	overlay(keys, "server.write_timeout", &cfg.Server.WriteTimeout, file.Server.WriteTimeout)
	overlay(keys, "server.idle_timeout", &cfg.Server.IdleTimeout, file.Server.IdleTimeout)
	overlay(keys, "server.max_header_bytes", &cfg.Server.MaxHeaderBytes, file.Server.MaxHeaderBytes)
	overlay(keys, "server.shutdown_timeout", &cfg.Server.ShutdownTimeout, file.Server.ShutdownTimeout)
	overlay(keys, "server.request_timeout", &cfg.Server.RequestTimeout, file.Server.RequestTimeout)

	overlay(keys, "security.allowed_origins", &cfg.Security.AllowedOrigins, file.Security.AllowedOrigins)
	overlay(keys, "security.enable_cors", &cfg.Security.EnableCORS, file.Security.EnableCORS)
	overlay(keys, "security.rate_limit.enabled", &cfg.Security.RateLimit.Enabled, file.Security.RateLimit.Enabled)
	overlay(keys, "security.rate_limit.rps", &cfg.Security.RateLimit.RPS, file.Security.RateLimit.RPS)
	overlay(keys, "security.rate_limit.burst", &cfg.Security.RateLimit.Burst, file.Security.RateLimit.Burst)

	overlay(keys, "logging.level", &cfg.Logging.Level, file.Logging.Level)
	overlay(keys, "logging.output", &cfg.Logging.Output, file.Logging.Output)
	overlay(keys, "logging.file_path", &cfg.Logging.FilePath, file.Logging.FilePath)
	overlay(keys, "logging.development", &cfg.Logging.Development, file.Logging.Development)

	overlay(keys, "paths.base_dir", &cfg.Paths.BaseDir, file.Paths.BaseDir)
	overlay(keys, "paths.data_dir", &cfg.Paths.DataDir, file.Paths.DataDir)
	overlay(keys, "paths.logs_dir", &cfg.Paths.LogsDir, file.Paths.LogsDir)
	overlay(keys, "paths.exports_dir", &cfg.Paths.ExportsDir, file.Paths.ExportsDir)

	overlay(keys, "dataset.path", &cfg.Dataset.Path, file.Dataset.Path)
	overlay(keys, "dataset.profile", &cfg.Dataset.Profile, file.Dataset.Profile)
	overlay(keys, "dataset.max_row_errors", &cfg.Dataset.MaxRowErrors, file.Dataset.MaxRowErrors)
	overlay(keys, "dataset.watch", &cfg.Dataset.Watch, file.Dataset.Watch)
	overlay(keys, "dataset.watch_debounce", &cfg.Dataset.WatchDebounce, file.Dataset.WatchDebounce)

	overlay(keys, "websocket.read_buffer_size", &cfg.WebSocket.ReadBufferSize, file.WebSocket.ReadBufferSize)
	overlay(keys, "websocket.write_buffer_size", &cfg.WebSocket.WriteBufferSize, file.WebSocket.WriteBufferSize)
	overlay(keys, "websocket.ping_period", &cfg.WebSocket.PingPeriod, file.WebSocket.PingPeriod)
	overlay(keys, "websocket.pong_wait", &cfg.WebSocket.PongWait, file.WebSocket.PongWait)

	overlay(keys, "telemetry.service_name", &cfg.Telemetry.ServiceName, file.Telemetry.ServiceName)
	overlay(keys, "telemetry.environment", &cfg.Telemetry.Environment, file.Telemetry.Environment)
	overlay(keys, "telemetry.trace_exporter", &cfg.Telemetry.TraceExporter, file.Telemetry.TraceExporter)
	overlay(keys, "telemetry.metric_exporter", &cfg.Telemetry.MetricExporter, file.Telemetry.MetricExporter)
	overlay(keys, "telemetry.sample_ratio", &cfg.Telemetry.SampleRatio, file.Telemetry.SampleRatio)
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}
	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		return fmt.Errorf("unknown logging output %q", c.Logging.Output)
	}

	if strings.TrimSpace(c.Dataset.Path) == "" {
		return fmt.Errorf("dataset path must not be empty")
	}
	if !rentals.ValidProfile(c.Dataset.Profile) {
		return fmt.Errorf("unknown dataset profile %q (want auto, x, y or plain)", c.Dataset.Profile)
	}
	if c.Dataset.Watch && c.Dataset.WatchDebounce <= 0 {
		return fmt.Errorf("dataset watch debounce must be positive")
	}

	switch c.Telemetry.TraceExporter {
	case "none", "stdout":
	default:
		return fmt.Errorf("unsupported trace exporter %q", c.Telemetry.TraceExporter)
	}
	switch c.Telemetry.MetricExporter {
	case "none", "prometheus":
	default:
		return fmt.Errorf("unsupported metric exporter %q", c.Telemetry.MetricExporter)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be within [0, 1]")
	}
	return nil
}

// Validate checks a configuration built in code.
func (c *Config) Validate() error {
	return c.validate()
}

// findConfigFile returns the first existing well-known config path
func findConfigFile() string {
	for _, location := range []string{"bikedash.yaml", "configs/bikedash.yaml"} {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns the configuration produced by an empty environment
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/bikedash.log",
		},
		Paths: PathsConfig{
			DataDir:    "data",
			LogsDir:    "logs",
			ExportsDir: "exports",
		},
		Dataset: DatasetConfig{
			Path:          "data/all_data.csv",
			Profile:       rentals.ProfileAuto,
			MaxRowErrors:  rentals.DefaultMaxRowErrors,
			Watch:         true,
			WatchDebounce: 500 * time.Millisecond,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "bikedash",
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}

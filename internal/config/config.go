package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port             int           `yaml:"port" envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout      time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s" validate:"gt=0"`
	WriteTimeout     time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s" validate:"gt=0"`
	IdleTimeout      time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes   int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	OperationTimeout time.Duration `yaml:"operation_timeout" envconfig:"OPERATION_TIMEOUT" default:"1h"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080" validate:"min=1"`
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
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"true"`
}

// PipelineConfig contains cleaning pipeline configuration.
// Values that the cleaners used to treat as process-wide constants
// (CDN templates, the default season) live here so every component
// receives them at construction time.
type PipelineConfig struct {
	DefaultSeason       string `yaml:"default_season" envconfig:"DEFAULT_SEASON" default:"2024-25" validate:"required,season_label"`
	HeadshotCDN         string `yaml:"headshot_cdn" envconfig:"HEADSHOT_CDN" default:"https://cdn.nba.com/headshots/nba/latest/1040x760"`
	HeadshotFallbackURL string `yaml:"headshot_fallback_url" envconfig:"HEADSHOT_FALLBACK_URL" default:"https://cdn.nba.com/headshots/nba/latest/1040x760/fallback.png"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir     string `yaml:"data_dir" envconfig:"DATA_DIR"`
	LogsDir     string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
	CatalogFile string `yaml:"catalog_file" envconfig:"CATALOG_FILE"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Environment variables take precedence over the file overlay
	if err := envconfig.Process("NBA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := getConfigFilePath()
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Server.Port == 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if envConfig.Server.ReadTimeout == 0 {
		envConfig.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if envConfig.Server.WriteTimeout == 0 {
		envConfig.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if envConfig.Pipeline.DefaultSeason == "" {
		envConfig.Pipeline.DefaultSeason = fileConfig.Pipeline.DefaultSeason
	}
	if envConfig.Pipeline.HeadshotCDN == "" {
		envConfig.Pipeline.HeadshotCDN = fileConfig.Pipeline.HeadshotCDN
	}
	if envConfig.Paths.DataDir == "" {
		envConfig.Paths.DataDir = fileConfig.Paths.DataDir
	}
	if envConfig.Paths.LogsDir == "" {
		envConfig.Paths.LogsDir = fileConfig.Paths.LogsDir
	}
	if envConfig.Paths.CatalogFile == "" {
		envConfig.Paths.CatalogFile = fileConfig.Paths.CatalogFile
	}

	return envConfig
}

// ResolvePaths builds the Paths set for this configuration, creating
// the directory tree when missing. Explicit PathsConfig entries
// override the executable-relative defaults.
func (c *Config) ResolvePaths() (*Paths, error) {
	var (
		paths *Paths
		err   error
	)
	if c.Paths.DataDir != "" {
		paths = GetPathsWithBase(c.Paths.DataDir)
	} else {
		paths, err = GetPaths()
		if err != nil {
			return nil, fmt.Errorf("failed to get paths: %w", err)
		}
	}

	if c.Paths.LogsDir != "" {
		paths.LogsDir = c.Paths.LogsDir
	}
	if c.Paths.CatalogFile != "" {
		paths.CatalogFile = c.Paths.CatalogFile
	}

	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	return paths, nil
}

// structValidator checks the validate tags on the config tree.
var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("season_label", func(fl validator.FieldLevel) bool {
		return IsSeasonLabel(fl.Field().String())
	})
	return v
}

// validate checks the tag rules and normalizes the logging settings.
// Only the first violation is reported.
func (c *Config) validate() error {
	if err := structValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return c.describeViolation(fieldErrs[0])
		}
		return err
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	if c.Logging.Output != "both" && c.Logging.Output != "file" {
		c.Logging.Output = "both"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// describeViolation maps a field error to a message naming the setting.
func (c *Config) describeViolation(fe validator.FieldError) error {
	switch fe.StructNamespace() {
	case "Config.Server.Port":
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	case "Config.Server.ReadTimeout":
		return fmt.Errorf("server read timeout must be positive")
	case "Config.Server.WriteTimeout":
		return fmt.Errorf("server write timeout must be positive")
	case "Config.Security.AllowedOrigins":
		return fmt.Errorf("at least one allowed origin must be specified")
	case "Config.Pipeline.DefaultSeason":
		return fmt.Errorf("invalid default season %q: want YYYY-YY", c.Pipeline.DefaultSeason)
	default:
		return fmt.Errorf("invalid config value for %s: failed %s rule", fe.StructNamespace(), fe.Tag())
	}
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             8080,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     15 * time.Second,
			IdleTimeout:      60 * time.Second,
			MaxHeaderBytes:   1 << 20, // 1MB
			ShutdownTimeout:  30 * time.Second,
			OperationTimeout: time.Hour,
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
			Level:       "info",
			Format:      "json",
			Output:      "both",
			FilePath:    "logs/app.log",
			Development: true,
		},
		Pipeline: PipelineConfig{
			DefaultSeason:       DefaultSeason,
			HeadshotCDN:         DefaultHeadshotCDN,
			HeadshotFallbackURL: DefaultHeadshotFallback,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}

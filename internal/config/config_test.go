package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	// Save original environment to restore later
	originalEnv := make(map[string]string)
	envVars := []string{
		"NBA_SERVER_PORT", "NBA_SERVER_READ_TIMEOUT", "NBA_SERVER_WRITE_TIMEOUT",
		"NBA_SECURITY_ALLOWED_ORIGINS", "NBA_SECURITY_ENABLE_CORS",
		"NBA_LOGGING_LEVEL", "NBA_LOGGING_FORMAT", "NBA_LOGGING_OUTPUT",
		"NBA_PIPELINE_DEFAULT_SEASON", "NBA_PIPELINE_HEADSHOT_CDN",
		"NBA_PATHS_DATA_DIR", "NBA_PATHS_LOGS_DIR", "NBA_PATHS_CATALOG_FILE",
	}

	for _, envVar := range envVars {
		originalEnv[envVar] = os.Getenv(envVar)
	}

	defer func() {
		for _, envVar := range envVars {
			if val, exists := originalEnv[envVar]; exists && val != "" {
				os.Setenv(envVar, val)
			} else {
				os.Unsetenv(envVar)
			}
		}
	}()

	tests := []struct {
		name        string
		setupEnv    func()
		setupFile   func() string // returns temp file path
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "default configuration with no env vars",
			setupEnv: func() {
				for _, envVar := range envVars {
					os.Unsetenv(envVar)
				}
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

				assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
				assert.True(t, cfg.Security.EnableCORS)
				assert.True(t, cfg.Security.RateLimit.Enabled)
				assert.Equal(t, 100.0, cfg.Security.RateLimit.RPS)

				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "both", cfg.Logging.Output)

				assert.Equal(t, DefaultSeason, cfg.Pipeline.DefaultSeason)
				assert.Equal(t, DefaultHeadshotCDN, cfg.Pipeline.HeadshotCDN)
				assert.Equal(t, DefaultHeadshotFallback, cfg.Pipeline.HeadshotFallbackURL)

				assert.Equal(t, 1024, cfg.WebSocket.ReadBufferSize)
				assert.Equal(t, 30*time.Second, cfg.WebSocket.PingPeriod)
			},
		},
		{
			name: "custom environment variables",
			setupEnv: func() {
				os.Setenv("NBA_SERVER_PORT", "9090")
				os.Setenv("NBA_SERVER_READ_TIMEOUT", "30s")
				os.Setenv("NBA_SECURITY_ALLOWED_ORIGINS", "http://example.com,https://example.com")
				os.Setenv("NBA_LOGGING_LEVEL", "debug")
				os.Setenv("NBA_LOGGING_FORMAT", "text")
				os.Setenv("NBA_PIPELINE_DEFAULT_SEASON", "2019-20")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, []string{"http://example.com", "https://example.com"}, cfg.Security.AllowedOrigins)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format) // validate() should force this to json
				assert.Equal(t, "2019-20", cfg.Pipeline.DefaultSeason)
			},
		},
		{
			name: "invalid port number",
			setupEnv: func() {
				os.Setenv("NBA_SERVER_PORT", "99999")
			},
			wantErr: true,
		},
		{
			name: "negative timeout",
			setupEnv: func() {
				os.Setenv("NBA_SERVER_READ_TIMEOUT", "-5s")
			},
			wantErr: true,
		},
		{
			name: "empty allowed origins",
			setupEnv: func() {
				os.Setenv("NBA_SECURITY_ALLOWED_ORIGINS", "")
			},
			wantErr: true,
		},
		{
			name: "malformed default season",
			setupEnv: func() {
				os.Setenv("NBA_PIPELINE_DEFAULT_SEASON", "2024/25")
			},
			wantErr: true,
		},
		{
			name: "config file with environment override",
			setupEnv: func() {
				os.Setenv("NBA_SERVER_PORT", "7070")
				os.Setenv("NBA_LOGGING_LEVEL", "warn")
			},
			setupFile: func() string {
				tempDir := t.TempDir()
				configFile := filepath.Join(tempDir, "config.yaml")
				configContent := `
server:
  port: 6060
  read_timeout: 20s
logging:
  level: error
paths:
  data_dir: /file/data
security:
  allowed_origins: ["http://file.example.com"]
`
				require.NoError(t, os.WriteFile(configFile, []byte(configContent), 0644))
				originalDir, _ := os.Getwd()
				os.Chdir(tempDir)
				t.Cleanup(func() { os.Chdir(originalDir) })
				return configFile
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)     // from env
				assert.Equal(t, "warn", cfg.Logging.Level) // from env
				// Fields without an envconfig default fall through to the file
				assert.Equal(t, "/file/data", cfg.Paths.DataDir)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, envVar := range envVars {
				os.Unsetenv(envVar)
			}

			if tt.setupEnv != nil {
				tt.setupEnv()
			}

			if tt.setupFile != nil {
				_ = tt.setupFile()
			}

			cfg, err := Load()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

// TestLoadFromFile tests the loadFromFile function
func TestLoadFromFile(t *testing.T) {
	tests := []struct {
		name        string
		fileContent string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "valid YAML config",
			fileContent: `
server:
  port: 9000
  read_timeout: 25s
security:
  allowed_origins: ["http://test.com"]
pipeline:
  default_season: 2020-21
  headshot_cdn: https://cdn.example.com/headshots
paths:
  data_dir: /srv/nba/data
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, 25*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, []string{"http://test.com"}, cfg.Security.AllowedOrigins)
				assert.Equal(t, "2020-21", cfg.Pipeline.DefaultSeason)
				assert.Equal(t, "https://cdn.example.com/headshots", cfg.Pipeline.HeadshotCDN)
				assert.Equal(t, "/srv/nba/data", cfg.Paths.DataDir)
			},
		},
		{
			name:        "invalid YAML syntax",
			fileContent: "invalid: yaml: content: [unclosed",
			wantErr:     true,
		},
		{
			name: "partial config",
			fileContent: `
server:
  port: 8888
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8888, cfg.Server.Port)
				assert.Equal(t, time.Duration(0), cfg.Server.ReadTimeout)
				assert.Empty(t, cfg.Pipeline.DefaultSeason)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			configFile := filepath.Join(tempDir, "config.yaml")
			require.NoError(t, os.WriteFile(configFile, []byte(tt.fileContent), 0644))

			cfg, err := loadFromFile(configFile)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}

	t.Run("non-existent file", func(t *testing.T) {
		_, err := loadFromFile("/non/existent/file.yaml")
		assert.Error(t, err)
	})
}

// TestMergeConfigs tests the mergeConfigs function
func TestMergeConfigs(t *testing.T) {
	fileConfig := Config{
		Server: ServerConfig{
			Port:         6060,
			ReadTimeout:  20 * time.Second,
			WriteTimeout: 20 * time.Second,
		},
		Pipeline: PipelineConfig{
			DefaultSeason: "2017-18",
			HeadshotCDN:   "https://file.example.com/cdn",
		},
		Paths: PathsConfig{
			DataDir: "/file/data",
		},
	}

	envConfig := Config{
		Server: ServerConfig{
			Port:        7070, // Should override file config
			ReadTimeout: 0,    // Should use file config
		},
		Pipeline: PipelineConfig{
			DefaultSeason: "", // Should use file config
		},
	}

	merged := mergeConfigs(fileConfig, envConfig)

	assert.Equal(t, 7070, merged.Server.Port)
	assert.Equal(t, 20*time.Second, merged.Server.ReadTimeout)
	assert.Equal(t, "2017-18", merged.Pipeline.DefaultSeason)
	assert.Equal(t, "https://file.example.com/cdn", merged.Pipeline.HeadshotCDN)
	assert.Equal(t, "/file/data", merged.Paths.DataDir)
}

// TestValidate tests the validate function
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid configuration",
			config: *Default(),
		},
		{
			name: "invalid port - zero",
			config: Config{
				Server: ServerConfig{Port: 0},
			},
			wantErr: true,
			errMsg:  "invalid server port: 0",
		},
		{
			name: "invalid port - too high",
			config: Config{
				Server: ServerConfig{Port: 99999},
			},
			wantErr: true,
			errMsg:  "invalid server port: 99999",
		},
		{
			name: "invalid read timeout",
			config: Config{
				Server: ServerConfig{
					Port:        8080,
					ReadTimeout: -1 * time.Second,
				},
			},
			wantErr: true,
			errMsg:  "server read timeout must be positive",
		},
		{
			name: "empty allowed origins",
			config: Config{
				Server: ServerConfig{
					Port:         8080,
					ReadTimeout:  10 * time.Second,
					WriteTimeout: 10 * time.Second,
				},
				Security: SecurityConfig{
					AllowedOrigins: []string{},
				},
			},
			wantErr: true,
			errMsg:  "at least one allowed origin must be specified",
		},
		{
			name: "malformed season label",
			config: Config{
				Server: ServerConfig{
					Port:         8080,
					ReadTimeout:  10 * time.Second,
					WriteTimeout: 10 * time.Second,
				},
				Security: SecurityConfig{
					AllowedOrigins: []string{"http://localhost:8080"},
				},
				Pipeline: PipelineConfig{
					DefaultSeason: "season-25",
				},
			},
			wantErr: true,
			errMsg:  "invalid default season",
		},
		{
			name: "logging format auto-correction",
			config: Config{
				Server: ServerConfig{
					Port:         8080,
					ReadTimeout:  10 * time.Second,
					WriteTimeout: 10 * time.Second,
				},
				Security: SecurityConfig{
					AllowedOrigins: []string{"http://localhost:8080"},
				},
				Pipeline: PipelineConfig{
					DefaultSeason: "2024-25",
				},
				Logging: LoggingConfig{
					Format: "text",    // Should be corrected to "json"
					Output: "console", // Should be corrected to "both"
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.validate()

			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
				return
			}

			assert.NoError(t, err)
		})
	}
}

// TestDefault tests the Default function
func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, time.Hour, cfg.Server.OperationTimeout)

	assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
	assert.True(t, cfg.Security.RateLimit.Enabled)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.Equal(t, "2024-25", cfg.Pipeline.DefaultSeason)
	assert.Contains(t, cfg.Pipeline.HeadshotCDN, "cdn.nba.com")
	assert.Contains(t, cfg.Pipeline.HeadshotFallbackURL, "fallback.png")

	assert.NoError(t, cfg.validate())
}

// TestResolvePaths tests path resolution with an explicit data dir
func TestResolvePaths(t *testing.T) {
	tempDir := t.TempDir()

	cfg := Default()
	cfg.Paths.DataDir = filepath.Join(tempDir, "data")
	cfg.Paths.LogsDir = filepath.Join(tempDir, "logs")
	cfg.Paths.CatalogFile = filepath.Join(tempDir, "runs.db")

	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)

	assert.Equal(t, cfg.Paths.DataDir, paths.DataDir)
	assert.Equal(t, cfg.Paths.LogsDir, paths.LogsDir)
	assert.Equal(t, cfg.Paths.CatalogFile, paths.CatalogFile)

	// EnsureDirectories must have created the tree
	assert.DirExists(t, paths.RawDir)
	assert.DirExists(t, paths.ProcessedDir)
	assert.DirExists(t, paths.ExternalDir)
}

// TestGetConfigFilePath tests the getConfigFilePath function
func TestGetConfigFilePath(t *testing.T) {
	t.Run("no config file exists", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(tempDir)

		path := getConfigFilePath()
		assert.Empty(t, path)
	})

	t.Run("config file in current directory", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(tempDir)

		configFile := filepath.Join(tempDir, "config.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("test"), 0644))

		path := getConfigFilePath()
		assert.Equal(t, "config.yaml", path)
	})

	t.Run("config file in configs directory", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(tempDir)

		configsDir := filepath.Join(tempDir, "configs")
		require.NoError(t, os.MkdirAll(configsDir, 0755))
		configFile := filepath.Join(configsDir, "config.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("test"), 0644))

		path := getConfigFilePath()
		assert.Equal(t, "configs/config.yaml", path)
	})
}

// TestEnvironmentVariableParsing tests environment variable parsing edge cases
func TestEnvironmentVariableParsing(t *testing.T) {
	originalEnv := map[string]string{
		"NBA_SECURITY_ALLOWED_ORIGINS": os.Getenv("NBA_SECURITY_ALLOWED_ORIGINS"),
		"NBA_SECURITY_RATE_LIMIT_RPS":  os.Getenv("NBA_SECURITY_RATE_LIMIT_RPS"),
		"NBA_WEBSOCKET_PING_PERIOD":    os.Getenv("NBA_WEBSOCKET_PING_PERIOD"),
		"NBA_LOGGING_DEVELOPMENT":      os.Getenv("NBA_LOGGING_DEVELOPMENT"),
	}

	defer func() {
		for key, val := range originalEnv {
			if val == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, val)
			}
		}
	}()

	tests := []struct {
		name     string
		setupEnv func()
		validate func(*testing.T, *Config)
	}{
		{
			name: "comma-separated origins",
			setupEnv: func() {
				os.Setenv("NBA_SECURITY_ALLOWED_ORIGINS", "http://localhost:3000,https://app.example.com")
			},
			validate: func(t *testing.T, cfg *Config) {
				expected := []string{"http://localhost:3000", "https://app.example.com"}
				assert.Equal(t, expected, cfg.Security.AllowedOrigins)
			},
		},
		{
			name: "float rate limit",
			setupEnv: func() {
				os.Setenv("NBA_SECURITY_RATE_LIMIT_RPS", "150.75")
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 150.75, cfg.Security.RateLimit.RPS)
			},
		},
		{
			name: "duration parsing",
			setupEnv: func() {
				os.Setenv("NBA_WEBSOCKET_PING_PERIOD", "2m30s")
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2*time.Minute+30*time.Second, cfg.WebSocket.PingPeriod)
			},
		},
		{
			name: "boolean parsing",
			setupEnv: func() {
				os.Setenv("NBA_LOGGING_DEVELOPMENT", "false")
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Logging.Development)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key := range originalEnv {
				os.Unsetenv(key)
			}

			if tt.setupEnv != nil {
				tt.setupEnv()
			}

			cfg, err := Load()
			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

package config

import (
	"regexp"
	"time"
)

// Application constants - all hardcoded values for the NBA Pulse system
const (
	// Application Info
	AppName    = "NBA Pulse"
	AppVersion = "1.0.0"

	// Season labels ("2024-25"). The default applies when no season
	// selection flag is given.
	DefaultSeason     = "2024-25"
	SeasonLabelFormat = "2006-07" // documentation only; see SeasonLabelPattern

	// Team code sentinels used when no real franchise applies
	TeamFreeAgent = "FA"
	TeamRetired   = "RET"

	// Draft status sentinel for players who never entered the draft
	DraftStatusUndrafted = "UDF"

	// Headshot CDN defaults (overridable via PipelineConfig)
	DefaultHeadshotCDN      = "https://cdn.nba.com/headshots/nba/latest/1040x760"
	DefaultHeadshotFallback = "https://cdn.nba.com/headshots/nba/latest/1040x760/fallback.png"

	// Rate Limiting
	DefaultRateLimit = 100 // requests per minute
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// Operation Timeouts
	DefaultOperationTimeout = time.Hour
	CleanerTimeout          = 30 * time.Minute
	ImporterTimeout         = 15 * time.Minute

	// WebSocket Buffer Sizes
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	MaxLogFileSize   = 100 * 1024 * 1024 // 100MB

	// Patterns for raw artifacts
	SeasonLabelPattern     = `^\d{4}-\d{2}$`
	ExternalWorkbookSuffix = ".xlsx"

	// API Endpoints (internal)
	APIBasePath        = "/api"
	OperationsEndpoint = "/api/operations"
	DataEndpoint       = "/api/data"
	RunsEndpoint       = "/api/runs"
	HealthEndpoint     = "/api/health"
	MetricsEndpoint    = "/metrics"

	// WebSocket Endpoints
	WebSocketEndpoint = "/ws"
)

// SubModes are the per-domain measurement variants mirrored between
// the raw and processed trees.
const (
	SubModeTotals  = "totals"
	SubModePerGame = "per_game"
	SubModePer48   = "per48"
)

var seasonLabelRe = regexp.MustCompile(SeasonLabelPattern)

// IsSeasonLabel reports whether s looks like a season directory name ("2024-25")
func IsSeasonLabel(s string) bool {
	return seasonLabelRe.MatchString(s)
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	ExecutableDir string
	DataDir       string
	RawDir        string
	ProcessedDir  string
	ExternalDir   string
	LogsDir       string
	CatalogFile   string

	// Well-known entity files (season-independent tables)
	RawPlayersCSV string
	RawTeamsCSV   string
	AwardsDir     string
	MVPDir        string
}

// GetPaths returns the application paths relative to the executable location
// All paths are ALWAYS relative to the executable directory, never the current working directory
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	exeDir := filepath.Dir(exe)

	paths := GetPathsWithBase(filepath.Join(exeDir, "data"))
	paths.ExecutableDir = exeDir
	paths.LogsDir = filepath.Join(exeDir, "logs")
	return paths, nil
}

// GetPathsWithBase returns the path set anchored at an explicit data
// directory. Used when NBA_PATHS_DATA_DIR overrides the executable-relative
// default, and by tests.
//
// Directory structure:
//
//	data/
//	  ├── raw/          (scraper output, one subtree per domain)
//	  │   └── {domain}/{season}/[{sub_mode}/]*.csv
//	  ├── processed/    (cleaned mirror of raw, plus partitions)
//	  ├── external/     (manually curated workbooks awaiting import)
//	  └── catalog.db    (run ledger)
func GetPathsWithBase(dataDir string) *Paths {
	rawDir := filepath.Join(dataDir, "raw")

	return &Paths{
		DataDir:      dataDir,
		RawDir:       rawDir,
		ProcessedDir: filepath.Join(dataDir, "processed"),
		ExternalDir:  filepath.Join(dataDir, "external"),
		LogsDir:      filepath.Join(dataDir, "..", "logs"),
		CatalogFile:  filepath.Join(dataDir, "catalog.db"),

		RawPlayersCSV: filepath.Join(rawDir, "players", "all_players.csv"),
		RawTeamsCSV:   filepath.Join(rawDir, "teams", "teams.csv"),
		AwardsDir:     filepath.Join(rawDir, "awards"),
		MVPDir:        filepath.Join(rawDir, "mvp"),
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	// Domain subtrees are created lazily by the drivers that own them;
	// this covers only the base directories every process needs.
	directories := []string{
		p.DataDir,
		p.RawDir,
		p.ProcessedDir,
		p.ExternalDir,
		p.LogsDir,
	}

	logger := slog.Default()

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}

		if logger != nil {
			logger.Debug("Ensured directory exists",
				slog.String("directory", dir))
		}
	}

	return nil
}

// RawDomainDir returns the raw-data root for one domain
func (p *Paths) RawDomainDir(domain string) string {
	return filepath.Join(p.RawDir, domain)
}

// ProcessedDomainDir returns the cleaned-data root for one domain
func (p *Paths) ProcessedDomainDir(domain string) string {
	return filepath.Join(p.ProcessedDir, domain)
}

// RawSeasonDir returns the raw directory for one domain season,
// optionally under a sub-mode such as "totals" or "per_game"
func (p *Paths) RawSeasonDir(domain, season, subMode string) string {
	if subMode == "" {
		return filepath.Join(p.RawDir, domain, season)
	}
	return filepath.Join(p.RawDir, domain, season, subMode)
}

// ProcessedSeasonDir returns the cleaned mirror of RawSeasonDir
func (p *Paths) ProcessedSeasonDir(domain, season, subMode string) string {
	if subMode == "" {
		return filepath.Join(p.ProcessedDir, domain, season)
	}
	return filepath.Join(p.ProcessedDir, domain, season, subMode)
}

// ProcessedTeamDir returns the per-team mirror directory inside one
// season's cleaned tree
func (p *Paths) ProcessedTeamDir(domain, season, subMode, team string) string {
	return filepath.Join(p.ProcessedSeasonDir(domain, season, subMode), "teams", team)
}

// ProcessedMonthDir returns the per-month mirror directory inside one
// season's cleaned tree
func (p *Paths) ProcessedMonthDir(domain, season, month string) string {
	return filepath.Join(p.ProcessedSeasonDir(domain, season, ""), month)
}

// ExternalWorkbookPath returns the path for an external workbook file
func (p *Paths) ExternalWorkbookPath(filename string) string {
	return filepath.Join(p.ExternalDir, filename)
}

// RelPath renders a path relative to the data root with forward slashes,
// falling back to the input when it lies outside the root. Run catalogs
// and log lines use this form so they survive a data-root move.
func (p *Paths) RelPath(path string) string {
	rel, err := filepath.Rel(p.DataDir, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetTeamConference determines the conference for a given team code.
// Sentinel codes (FA, RET) and unknown codes map to "other".
func GetTeamConference(code string) string {
	east := []string{"ATL", "BOS", "BKN", "CHA", "CHI", "CLE", "DET", "IND",
		"MIA", "MIL", "NYK", "ORL", "PHI", "TOR", "WAS"}

	west := []string{"DAL", "DEN", "GSW", "HOU", "LAC", "LAL", "MEM", "MIN",
		"NOP", "OKC", "PHX", "POR", "SAC", "SAS", "UTA"}

	codeUpper := strings.ToUpper(code)

	for _, team := range east {
		if codeUpper == team {
			return "eastern"
		}
	}

	for _, team := range west {
		if codeUpper == team {
			return "western"
		}
	}

	return "other"
}

// LogPathResolution logs detailed path resolution information for debugging
func (p *Paths) LogPathResolution() {
	logger := slog.Default()
	if logger == nil {
		return
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("data", p.DataDir),
			slog.String("raw", p.RawDir),
			slog.String("processed", p.ProcessedDir),
			slog.String("external", p.ExternalDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("files",
			slog.String("catalog", p.CatalogFile),
			slog.String("raw_players", p.RawPlayersCSV),
			slog.String("raw_teams", p.RawTeamsCSV),
		))
}

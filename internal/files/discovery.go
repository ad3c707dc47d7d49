package files

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"nbacli/internal/config"
	apperrors "nbacli/internal/errors"
)

// FileInfo describes one discovered file or directory.
type FileInfo struct {
	Path    string
	Name    string
	Rel     string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Discovery walks the data tree: raw seasons and files for the cleaners,
// processed artifacts for the API, workbooks for the importer.
type Discovery struct {
	paths *config.Paths
}

// NewDiscovery creates a discovery instance over the configured data tree.
func NewDiscovery(paths *config.Paths) *Discovery {
	return &Discovery{paths: paths}
}

// Seasons lists the season-named subdirectories under one domain's raw
// root, ascending. An unreadable raw root is the one error that aborts a
// domain's run, so it is returned rather than degraded.
func (d *Discovery) Seasons(domain string) ([]string, error) {
	dir := d.paths.RawDomainDir(domain)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read raw root %s: %w", dir, err)
	}
	var seasons []string
	for _, entry := range entries {
		if entry.IsDir() && config.IsSeasonLabel(entry.Name()) {
			seasons = append(seasons, entry.Name())
		}
	}
	sort.Strings(seasons)
	return seasons, nil
}

// SeasonFiles lists the raw CSV files for one domain season, sorted by
// name so every run processes files in the same order. A missing season
// directory reports ErrSourceMissing; the caller downgrades it to a
// skip-with-warning.
func (d *Discovery) SeasonFiles(domain, season, subMode string) ([]FileInfo, error) {
	dir := d.paths.RawSeasonDir(domain, season, subMode)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrSourceMissing, dir)
		}
		return nil, fmt.Errorf("read season dir %s: %w", dir, err)
	}
	var out []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, FileInfo{
			Path:    filepath.Join(dir, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ProcessedSeasons lists the seasons with cleaned output for one domain.
// A domain with no output yet yields an empty list, not an error.
func (d *Discovery) ProcessedSeasons(domain string) ([]string, error) {
	dir := d.paths.ProcessedDomainDir(domain)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read processed root %s: %w", dir, err)
	}
	var seasons []string
	for _, entry := range entries {
		if entry.IsDir() && config.IsSeasonLabel(entry.Name()) {
			seasons = append(seasons, entry.Name())
		}
	}
	sort.Strings(seasons)
	return seasons, nil
}

// ProcessedArtifacts walks one domain's cleaned tree and returns every
// CSV, including team and month mirrors. Rel is the path relative to the
// domain's processed root, the form the download endpoint accepts. An
// empty season walks the whole domain.
func (d *Discovery) ProcessedArtifacts(domain, season string) ([]FileInfo, error) {
	root := d.paths.ProcessedDomainDir(domain)
	start := root
	if season != "" {
		start = d.paths.ProcessedSeasonDir(domain, season, "")
	}
	var out []FileInfo
	err := filepath.WalkDir(start, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		out = append(out, FileInfo{
			Path:    path,
			Name:    entry.Name(),
			Rel:     filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk processed tree %s: %w", start, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rel < out[j].Rel })
	return out, nil
}

// FindWorkbooks lists the spreadsheet exports waiting under the external
// data root, oldest first so imports replay in arrival order.
func (d *Discovery) FindWorkbooks() ([]FileInfo, error) {
	dir := d.paths.ExternalDir
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read external root %s: %w", dir, err)
	}
	var out []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if !strings.HasSuffix(name, ".xlsx") && !strings.HasSuffix(name, ".xls") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, FileInfo{
			Path:    filepath.Join(dir, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModTime.Before(out[j].ModTime) })
	return out, nil
}

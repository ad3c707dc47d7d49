package awards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"nbacli/internal/config"
	"nbacli/internal/dataprocessing"
	apperrors "nbacli/internal/errors"
	"nbacli/internal/exporter"
	"nbacli/internal/infrastructure"
	"nbacli/pkg/contracts/domain"
)

const (
	// AwardsDomain and MVPDomain name the processed subtrees the cleaned
	// voting tables land in.
	AwardsDomain = "awards"
	MVPDomain    = "mvp"

	mvpRawFile    = "mvp_raw.csv"
	mvpOutFile    = "mvp_cleaned.csv"
	cleanedSuffix = "_cleaned.csv"
)

// ballotTextColumns are never coerced to numbers in ballot files; the
// vote tallies and shares around them are.
var ballotTextColumns = []string{"season", "lg", "player", "team", "player_id", "award"}

// mvpTextColumns are never coerced to numbers in the MVP table.
var mvpTextColumns = []string{"season", "lg", "player", "team", "player_id"}

// teamTextColumns are stripped and lower-cased in the all-league team
// selections, the rendering the dashboards key on.
var teamTextColumns = []string{"lg", "team_rank", "player", "player_name", "position", "award"}

// Result summarizes one cleaned award file.
type Result struct {
	Award      string
	Source     string
	RowsIn     int
	RowsOut    int
	Duplicates int
	Report     exporter.WriteReport
}

// Cleaner cleans the award ballots, the all-league team selections and
// the MVP table into the processed tree.
type Cleaner struct {
	paths      *config.Paths
	normalizer *dataprocessing.Normalizer
	coercer    *dataprocessing.Coercer
	reducer    *dataprocessing.Reducer
	writer     *exporter.PartitionWriter
	logger     *slog.Logger
	metrics    *infrastructure.BusinessMetrics
}

// NewCleaner creates an awards cleaner over the given data root.
func NewCleaner(paths *config.Paths, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		paths:      paths,
		normalizer: dataprocessing.NewNormalizer(logger),
		coercer:    dataprocessing.NewCoercer(logger),
		reducer:    dataprocessing.NewReducer(logger),
		writer:     exporter.NewPartitionWriter(logger),
		logger:     logger,
	}
}

// WithMetrics attaches business metrics recording.
func (c *Cleaner) WithMetrics(m *infrastructure.BusinessMetrics) *Cleaner {
	c.metrics = m
	return c
}

// Clean cleans every award CSV in the raw awards directory and then the
// MVP table. File stems route the variant: "all_*_teams" files are team
// selections, everything else is a ballot. Missing or empty sources are
// skipped with a warning; other failures are collected and returned
// together.
func (c *Cleaner) Clean(ctx context.Context, force bool) ([]*Result, error) {
	var results []*Result
	var errs []error

	entries, err := os.ReadDir(c.paths.AwardsDir)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		c.logger.Warn("awards directory missing, ballots skipped", "dir", c.paths.AwardsDir)
	default:
		errs = append(errs, fmt.Errorf("read awards directory: %w", err))
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		path := filepath.Join(c.paths.AwardsDir, entry.Name())

		var result *Result
		if teamSelectionFile(fileStem(path)) {
			result, err = c.CleanTeamAward(ctx, path, force)
		} else {
			result, err = c.CleanBallot(ctx, path, force)
		}
		switch {
		case err == nil:
			results = append(results, result)
		case errors.Is(err, apperrors.ErrEmptySource):
			c.logger.Warn("award file skipped", "error", err)
		default:
			errs = append(errs, err)
		}
	}

	result, err := c.CleanMVP(ctx, force)
	switch {
	case err == nil:
		results = append(results, result)
	case errors.Is(err, apperrors.ErrSourceMissing) || errors.Is(err, apperrors.ErrEmptySource):
		c.logger.Warn("mvp table skipped", "error", err)
	default:
		errs = append(errs, err)
	}

	return results, errors.Join(errs...)
}

// CleanBallot cleans one per-award ballot file: canonical headers, the
// team rename, player-slot melting when the export is wide, the award
// column from the file stem, numeric coercion, season bounds, the FA
// team sentinel and deduplication.
func (c *Cleaner) CleanBallot(ctx context.Context, path string, force bool) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	award := fileStem(path)
	logger := c.logger.With("award", award, "source", path)

	t, err := dataprocessing.ReadTable(path)
	if err != nil {
		return nil, err
	}
	if t.NumRows() == 0 {
		return nil, fmt.Errorf("%w: %s has no data rows", apperrors.ErrEmptySource, path)
	}
	rowsIn := t.NumRows()

	c.normalizer.NormalizeHeader(t)
	t.RenameColumn("tm", "team")
	t.RenameColumn("9999", "player_id")
	t.DropColumns("voting")

	if slots := playerSlots(t); len(slots) > 0 {
		t = meltPlayers(t, slots)
		logger.Info("player slots melted", "slots", len(slots), "rows", t.NumRows())
	}

	c.setAward(t, award)
	stats := c.coercer.CoerceNumeric(t, ballotTextColumns)
	infrastructure.RecordCleanCoercions(ctx, c.metrics, AwardsDomain, "", int64(stats.ToMissing))
	addSeasonBounds(t)
	c.tidyBallotText(t)
	duplicates := c.reducer.DropExactDuplicates(t)

	out := filepath.Join(c.paths.ProcessedDomainDir(AwardsDomain), award+cleanedSuffix)
	report := c.writer.Write(t, out, nil, force)
	c.record(ctx, logger, AwardsDomain, "award ballots cleaned", rowsIn, t.NumRows(), report)

	return &Result{
		Award:      award,
		Source:     path,
		RowsIn:     rowsIn,
		RowsOut:    t.NumRows(),
		Duplicates: duplicates,
		Report:     report,
	}, nil
}

// CleanTeamAward cleans one all-league team selection file. The tm
// column here carries the selection tier, not a franchise, so it becomes
// team_rank; the melted player cells split into player_name plus the
// trailing position token.
func (c *Cleaner) CleanTeamAward(ctx context.Context, path string, force bool) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	award := fileStem(path)
	logger := c.logger.With("award", award, "source", path)

	t, err := dataprocessing.ReadTable(path)
	if err != nil {
		return nil, err
	}
	if t.NumRows() == 0 {
		return nil, fmt.Errorf("%w: %s has no data rows", apperrors.ErrEmptySource, path)
	}
	rowsIn := t.NumRows()

	c.normalizer.NormalizeHeader(t)
	t.RenameColumn("tm", "team_rank")
	t.DropColumns("voting")

	slots := playerSlots(t)
	if len(slots) == 0 {
		return nil, fmt.Errorf("%w: player slots in %s", apperrors.ErrMissingColumn, filepath.Base(path))
	}
	t = meltPlayers(t, slots)
	logger.Info("player slots melted", "slots", len(slots), "rows", t.NumRows())

	t.AddColumnFunc("player_name", func(row int) dataprocessing.Value {
		name, _ := splitNamePosition(t.At(row, "player").String())
		return dataprocessing.Text(name)
	})
	t.AddColumnFunc("position", func(row int) dataprocessing.Value {
		_, pos := splitNamePosition(t.At(row, "player").String())
		if pos == "" {
			return dataprocessing.Missing()
		}
		return dataprocessing.Text(pos)
	})

	c.setAward(t, award)
	addSeasonBounds(t)

	for _, col := range teamTextColumns {
		if !t.HasColumn(col) {
			continue
		}
		for i := 0; i < t.NumRows(); i++ {
			if v := t.At(i, col); !v.IsMissing() {
				t.Set(i, col, dataprocessing.Text(strings.ToLower(strings.TrimSpace(v.String()))))
			}
		}
	}
	duplicates := c.reducer.DropExactDuplicates(t)

	out := filepath.Join(c.paths.ProcessedDomainDir(AwardsDomain), award+cleanedSuffix)
	report := c.writer.Write(t, out, nil, force)
	c.record(ctx, logger, AwardsDomain, "award team selections cleaned", rowsIn, t.NumRows(), report)

	return &Result{
		Award:      award,
		Source:     path,
		RowsIn:     rowsIn,
		RowsOut:    t.NumRows(),
		Duplicates: duplicates,
		Report:     report,
	}, nil
}

// CleanMVP cleans the MVP table. The export carries the player id in
// its trailing column whatever that column is called, so the last
// column is renamed before anything else reads it.
func (c *Cleaner) CleanMVP(ctx context.Context, force bool) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	source := filepath.Join(c.paths.MVPDir, mvpRawFile)
	logger := c.logger.With("award", MVPDomain, "source", source)

	t, err := dataprocessing.ReadTable(source)
	if err != nil {
		return nil, err
	}
	if t.NumRows() == 0 {
		return nil, fmt.Errorf("%w: %s has no data rows", apperrors.ErrEmptySource, source)
	}
	rowsIn := t.NumRows()

	c.normalizer.NormalizeHeader(t)
	cols := t.Columns()
	if last := cols[len(cols)-1]; last != "player_id" {
		t.RenameColumn(last, "player_id")
	}
	t.RenameColumn("tm", "team")

	stats := c.coercer.CoerceNumeric(t, mvpTextColumns)
	infrastructure.RecordCleanCoercions(ctx, c.metrics, MVPDomain, "", int64(stats.ToMissing))
	addSeasonBounds(t)
	c.tidyBallotText(t)
	duplicates := c.reducer.DropExactDuplicates(t)

	out := filepath.Join(c.paths.ProcessedDomainDir(MVPDomain), mvpOutFile)
	report := c.writer.Write(t, out, nil, force)
	c.record(ctx, logger, MVPDomain, "mvp table cleaned", rowsIn, t.NumRows(), report)

	return &Result{
		Award:      MVPDomain,
		Source:     source,
		RowsIn:     rowsIn,
		RowsOut:    t.NumRows(),
		Duplicates: duplicates,
		Report:     report,
	}, nil
}

// setAward stamps the award column from the file stem, replacing any
// award column the scrape already carried.
func (c *Cleaner) setAward(t *dataprocessing.Table, award string) {
	t.DropColumns("award")
	t.AddColumnFunc("award", func(int) dataprocessing.Value {
		return dataprocessing.Text(award)
	})
}

// tidyBallotText trims the player names and applies the FA sentinel to
// blank team cells.
func (c *Cleaner) tidyBallotText(t *dataprocessing.Table) {
	for i := 0; i < t.NumRows(); i++ {
		if t.HasColumn("team") {
			team := strings.TrimSpace(t.At(i, "team").String())
			if team == "" {
				team = domain.TeamFreeAgent
			}
			t.Set(i, "team", dataprocessing.Text(team))
		}
		if t.HasColumn("player") {
			if v := t.At(i, "player"); !v.IsMissing() {
				t.Set(i, "player", dataprocessing.Text(strings.TrimSpace(v.String())))
			}
		}
	}
}

func (c *Cleaner) record(ctx context.Context, logger *slog.Logger, domainName, msg string, rowsIn, rowsOut int, report exporter.WriteReport) {
	infrastructure.RecordCleanFileMetrics(ctx, c.metrics, domainName, "", int64(rowsIn), int64(rowsOut))
	infrastructure.RecordCleanWriteOutcomes(ctx, c.metrics, domainName, "",
		int64(report.Written()), int64(report.Skipped()), int64(report.Failed()))
	logger.Info(msg,
		"rows_in", rowsIn,
		"rows_out", rowsOut,
		"written", report.Written(),
		"skipped", report.Skipped())
}

// fileStem returns the lower-cased file name without its extension.
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// teamSelectionFile reports whether a stem names an all-league team
// selection export rather than a ballot.
func teamSelectionFile(stem string) bool {
	return strings.HasPrefix(stem, "all_") && strings.HasSuffix(stem, "_teams")
}

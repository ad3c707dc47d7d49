package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// BuildCSV joins a header and rows into CSV content with a trailing newline.
// Cells are written verbatim, so callers must not include commas in values.
func BuildCSV(header []string, rows ...[]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}
	return b.String()
}

// WriteFile writes content to path, creating parent directories as needed.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteRawSeasonFile writes a raw CSV into {root}/{domain}/{season}/{name}
// and returns the full path. Pass subMode "" for domains without sub-modes.
func WriteRawSeasonFile(t *testing.T, root, domain, season, subMode, name, content string) string {
	t.Helper()
	parts := []string{root, domain, season}
	if subMode != "" {
		parts = append(parts, subMode)
	}
	parts = append(parts, name)
	path := filepath.Join(parts...)
	WriteFile(t, path, content)
	return path
}

// BoxscoreHeader mirrors the raw column names scraped for player boxscores.
var BoxscoreHeader = []string{"PLAYER", "TEAM", "MATCH UP", "GAME DATE", "W/L", "MIN", "PTS", "FG%", "3P%", "+/-"}

// BoxscoreRows returns a small set of raw boxscore rows shaped like the
// scraped exports, including values that exercise percentage columns.
func BoxscoreRows() [][]string {
	return [][]string{
		{"Jayson Tatum", "BOS", "BOS vs. ATL", "2024-11-04", "W", "36", "28", "48.5", "37.2", "12"},
		{"Trae Young", "ATL", "ATL @ BOS", "2024-11-04", "L", "38", "24", "41.1", "33.3", "-12"},
		{"Derrick White", "BOS", "BOS vs. ATL", "2024-11-04", "W", "31", "18", "50.0", "44.4", "7"},
	}
}

// SampleBoxscoreCSV returns a complete raw boxscore file.
func SampleBoxscoreCSV() string {
	return BuildCSV(BoxscoreHeader, BoxscoreRows()...)
}

// RosterHeader mirrors the raw column names of the scraped player index.
var RosterHeader = []string{"PLAYER", "TEAM", "NUMBER", "POSITION", "HEIGHT", "WEIGHT", "BIRTHDATE", "AGE", "EXP", "SCHOOL", "COUNTRY", "DRAFT", "PROFILE"}

// RosterRows returns raw roster rows covering active, retired and
// undrafted players.
func RosterRows() [][]string {
	return [][]string{
		{"Jayson Tatum", "BOS", "0", "F-G", "6-8", "210 lbs", "1998-03-03", "26", "7", "Duke", "USA", "2017 Round 1 Pick 3", "https://www.nba.com/player/1628369/jayson-tatum"},
		{"Dirk Nowitzki", "", "41", "F", "7-0", "245 lbs", "1978-06-19", "46", "21", "DJK Wurzburg", "Germany", "1998 Round 1 Pick 9", "https://www.nba.com/player/1717/dirk-nowitzki"},
		{"Udonis Haslem", "MIA", "40", "C/F", "6-8", "235 lbs", "1980-06-09", "44", "20", "Florida", "USA", "Undrafted", "https://www.nba.com/player/2617/udonis-haslem"},
	}
}

// SampleRosterCSV returns a complete raw roster file.
func SampleRosterCSV() string {
	return BuildCSV(RosterHeader, RosterRows()...)
}

// AwardBallotHeader mirrors the wide ballot layout exported for MVP voting.
var AwardBallotHeader = []string{"Rank", "Player", "Tm", "First", "Pts Won", "Pts Max", "Share"}

// AwardBallotRows returns wide ballot rows including a free agent entry.
func AwardBallotRows() [][]string {
	return [][]string{
		{"1", "Nikola Jokic", "DEN", "79", "926", "990", "0.935"},
		{"2", "Shai Gilgeous-Alexander", "OKC", "15", "640", "990", "0.646"},
		{"3T", "Luka Doncic", "", "4", "566", "990", "0.572"},
	}
}

// SampleAwardBallotCSV returns a complete raw award ballot file.
func SampleAwardBallotCSV() string {
	return BuildCSV(AwardBallotHeader, AwardBallotRows()...)
}

package roster

import (
	"regexp"
	"strconv"
	"strings"

	"nbacli/internal/dataprocessing"
)

var (
	playerIDPath  = regexp.MustCompile(`/player/(\d+)/`)
	playerIDQuery = regexp.MustCompile(`(?i)PlayerID=(\d+)`)
	firstNumber   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	positionSep   = regexp.MustCompile(`[-/,]`)
)

// extractPlayerID pulls the numeric stats-site player ID out of a profile
// URL, matching either the path form "/player/1629029/" or the query form
// "PlayerID=1629029". Returns "" when neither matches.
func extractPlayerID(url string) string {
	if m := playerIDPath.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	if m := playerIDQuery.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}

// splitPosition separates a raw position string into the primary position
// and the pipe-joined alternates: "F-C" yields ("F", "C"). The input is
// upper-cased and split on hyphen, slash or comma.
func splitPosition(raw string) (primary, alt string) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", ""
	}
	parts := positionSep.Split(s, -1)
	cleaned := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return "", ""
	}
	return cleaned[0], strings.Join(cleaned[1:], "|")
}

// parseHeightInches converts the "6-10" feet-inches form to total inches.
func parseHeightInches(v dataprocessing.Value) dataprocessing.Value {
	if v.IsMissing() {
		return dataprocessing.Missing()
	}
	parts := strings.Split(strings.TrimSpace(v.String()), "-")
	if len(parts) != 2 {
		return dataprocessing.Missing()
	}
	feet, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return dataprocessing.Missing()
	}
	inches, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return dataprocessing.Missing()
	}
	return dataprocessing.Number(float64(feet*12 + inches))
}

// parseWeight takes the first number out of a weight string ("245 lbs").
func parseWeight(v dataprocessing.Value) dataprocessing.Value {
	if v.IsMissing() {
		return dataprocessing.Missing()
	}
	m := firstNumber.FindString(v.String())
	if m == "" {
		return dataprocessing.Missing()
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return dataprocessing.Missing()
	}
	return dataprocessing.Number(f)
}

// parseExperience reads the first token of an experience string as a year
// count. Rookies are exported as "R" or "Rookie" and count as zero.
func parseExperience(v dataprocessing.Value) dataprocessing.Value {
	if v.IsMissing() {
		return dataprocessing.Missing()
	}
	fields := strings.Fields(v.String())
	if len(fields) == 0 {
		return dataprocessing.Missing()
	}
	if strings.EqualFold(fields[0], "R") || strings.EqualFold(fields[0], "Rookie") {
		return dataprocessing.Number(0)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return dataprocessing.Missing()
	}
	return dataprocessing.Number(float64(n))
}

package dataprocessing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// SeasonSpan is the (start year, end year) pair for one NBA season.
type SeasonSpan struct {
	Start int
	End   int
}

// Label renders the span in the feed's "2024-25" form.
func (s SeasonSpan) Label() string {
	return fmt.Sprintf("%d-%02d", s.Start, s.End%100)
}

var seasonStartPattern = regexp.MustCompile(`\d{4}`)

// ParseSeasonSpan derives a SeasonSpan from a season label such as
// "2024-25". The first four digits are the start year; the last two digits
// are the end-year suffix, carried into the next century when the suffix
// rolls past 99 ("1999-00" yields 1999 to 2000).
func ParseSeasonSpan(label string) (SeasonSpan, error) {
	m := seasonStartPattern.FindString(label)
	if m == "" {
		return SeasonSpan{}, fmt.Errorf("season label %q has no 4-digit year", label)
	}
	start, err := strconv.Atoi(m)
	if err != nil {
		return SeasonSpan{}, fmt.Errorf("season label %q: %w", label, err)
	}
	digits := make([]byte, 0, len(label))
	for i := 0; i < len(label); i++ {
		if label[i] >= '0' && label[i] <= '9' {
			digits = append(digits, label[i])
		}
	}
	suffix, err := strconv.Atoi(string(digits[len(digits)-2:]))
	if err != nil {
		return SeasonSpan{}, fmt.Errorf("season label %q: %w", label, err)
	}
	if suffix < start%100 {
		suffix += 100
	}
	return SeasonSpan{Start: start, End: start - start%100 + suffix}, nil
}

// TeamCodePriority is the default column scan order for DeriveTeamCode.
var TeamCodePriority = []string{"team", "team_abbreviation", "team_name", "team_id"}

// DeriveTeamCode scans the candidate columns of a row in priority order and
// returns the first non-missing value as an uppercase token with whitespace
// runs replaced by underscores. Numeric team ids stringify. The empty
// string means no candidate column held a value; the caller decides whether
// that row still joins a per-team partition.
func DeriveTeamCode(t *Table, row int, priority ...string) string {
	if len(priority) == 0 {
		priority = TeamCodePriority
	}
	for _, col := range priority {
		if !t.HasColumn(col) {
			continue
		}
		v := t.At(row, col)
		if v.IsMissing() {
			continue
		}
		return teamToken(v.String())
	}
	return ""
}

func teamToken(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), "_")
}

// DraftInfo is the parsed form of a free-text draft description. Year,
// Round, and Pick are numeric cells, each missing when the text does not
// state it.
type DraftInfo struct {
	Undrafted bool
	Year      Value
	Round     Value
	Pick      Value
}

var (
	draftYearPattern  = regexp.MustCompile(`\d{4}`)
	draftRoundPattern = regexp.MustCompile(`(?i)(?:round|rnd)\s*(\d+)`)
	draftRoundShort   = regexp.MustCompile(`(?i)\bR(\d+)\b`)
	draftPickPattern  = regexp.MustCompile(`(?i)(?:pick|#)\s*(\d+)`)
)

// ParseDraftInfo parses draft descriptions such as "2017 Rnd 1 Pick 3".
// Empty text yields all-missing fields; text containing "undrafted" yields
// all-missing fields with Undrafted set. When the year or pick parses but
// no round is stated, the round defaults to 1.
func ParseDraftInfo(text string) DraftInfo {
	s := strings.TrimSpace(text)
	if s == "" {
		return DraftInfo{Year: Missing(), Round: Missing(), Pick: Missing()}
	}
	if strings.Contains(strings.ToLower(s), "undrafted") {
		return DraftInfo{Undrafted: true, Year: Missing(), Round: Missing(), Pick: Missing()}
	}
	info := DraftInfo{Year: Missing(), Round: Missing(), Pick: Missing()}
	if m := draftYearPattern.FindString(s); m != "" {
		if y, err := strconv.Atoi(m); err == nil {
			info.Year = Number(float64(y))
		}
	}
	round := draftRoundPattern.FindStringSubmatch(s)
	if round == nil {
		round = draftRoundShort.FindStringSubmatch(s)
	}
	if round != nil {
		if r, err := strconv.Atoi(round[1]); err == nil {
			info.Round = Number(float64(r))
		}
	}
	if m := draftPickPattern.FindStringSubmatch(s); m != nil {
		if p, err := strconv.Atoi(m[1]); err == nil {
			info.Pick = Number(float64(p))
		}
	}
	if info.Round.IsMissing() && (!info.Year.IsMissing() || !info.Pick.IsMissing()) {
		info.Round = Number(1)
	}
	return info
}

// PlayerKeyBuilder derives fixed-width player keys and tracks the
// disambiguation rank of prefix collisions within one cleaning run. Keys
// are only stable across runs when the input ordering is stable.
type PlayerKeyBuilder struct {
	seen map[string]int
}

// NewPlayerKeyBuilder creates a builder with an empty collision counter.
func NewPlayerKeyBuilder() *PlayerKeyBuilder {
	return &PlayerKeyBuilder{seen: make(map[string]int)}
}

// Key derives a 9-character key from a display name: the last name token's
// first five letters, the first token's first two letters, and a two-digit
// rank among names sharing that prefix, right-padded with "0". Names with
// no alphabetic tokens yield the empty string.
func (b *PlayerKeyBuilder) Key(name string) string {
	tokens := nameTokens(name)
	if len(tokens) == 0 {
		return ""
	}
	first := tokens[0]
	last := tokens[len(tokens)-1]
	prefix := clip(last, 5) + clip(first, 2)
	rank := b.seen[prefix]
	b.seen[prefix]++
	key := fmt.Sprintf("%s%02d", prefix, rank)
	for len(key) < 9 {
		key += "0"
	}
	return key
}

// BuildPlayerKeys derives one key per name using a fresh builder.
func BuildPlayerKeys(names []string) []string {
	b := NewPlayerKeyBuilder()
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = b.Key(name)
	}
	return out
}

func nameTokens(name string) []string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// gameDateLayouts are the date shapes the feeds actually emit, tried in
// order.
var gameDateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"Jan 2, 2006",
}

// ParseGameDate parses a raw date cell, accepting the feed's uppercase
// month abbreviations ("NOV 04, 2024") as well as ISO and US forms.
func ParseGameDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range gameDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	if fixed := fixMonthCase(s); fixed != s {
		if d, err := time.Parse("Jan 2, 2006", fixed); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// fixMonthCase rewrites a leading month token to Go's "Jan" casing.
func fixMonthCase(s string) string {
	if len(s) < 3 {
		return s
	}
	head := s[:3]
	for i := 0; i < 3; i++ {
		if !unicode.IsLetter(rune(head[i])) {
			return s
		}
	}
	return strings.ToUpper(head[:1]) + strings.ToLower(head[1:]) + s[3:]
}

// MonthAbbrev renders a date's lowercase 3-letter month abbreviation.
func MonthAbbrev(d time.Time) string {
	return strings.ToLower(d.Format("Jan"))
}

// DeriveMonthAbbrev maps a raw date cell to its month abbreviation,
// missing when the date does not parse.
func DeriveMonthAbbrev(v Value) Value {
	if v.IsMissing() {
		return Missing()
	}
	d, err := ParseGameDate(v.String())
	if err != nil {
		return Missing()
	}
	return Text(MonthAbbrev(d))
}

// NormalizeGameDate re-renders a raw date cell in ISO "2006-01-02" form,
// missing when the date does not parse.
func NormalizeGameDate(v Value) Value {
	if v.IsMissing() {
		return Missing()
	}
	d, err := ParseGameDate(v.String())
	if err != nil {
		return Missing()
	}
	return Text(d.Format("2006-01-02"))
}

package operations

import (
	"fmt"
	"sort"
	"sync"

	"nbacli/internal/config"
	apperrors "nbacli/internal/errors"
)

// DomainSpec declares how one stats domain is cleaned. The pipeline driver
// is generic; everything domain-specific lives here.
type DomainSpec struct {
	// Name is the directory name under the raw and processed roots
	Name string

	// Title is the human-readable domain name
	Title string

	// SubModes lists nested per-mode directories (totals, per_game, per48).
	// Empty means files sit directly under the season directory.
	SubModes []string

	// PreRenames are raw-header renames applied before normalization,
	// for headers the normalizer would otherwise erase ("+/-")
	PreRenames map[string]string

	// Renames are canonical-header synonyms applied after normalization
	Renames map[string]string

	// Exclude lists columns never coerced to numeric
	Exclude []string

	// SortKeys is the final sort order; absent columns are skipped
	SortKeys []string

	// TeamSplit fans the cleaned table out per team code
	TeamSplit bool

	// MonthSplit consolidates the season's rows into per-month files
	// keyed by the game date
	MonthSplit bool

	// MatchupSplit derives home, away, and is_home from the matchup text
	MatchupSplit bool
}

// Modes returns the sub-modes to iterate, or the single flat mode ""
func (s DomainSpec) Modes() []string {
	if len(s.SubModes) == 0 {
		return []string{""}
	}
	return s.SubModes
}

// ExcludeSet returns the exclusion columns as a set
func (s DomainSpec) ExcludeSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.Exclude))
	for _, c := range s.Exclude {
		set[c] = struct{}{}
	}
	return set
}

// DomainRegistry holds the registered domain specs
type DomainRegistry struct {
	mu    sync.RWMutex
	specs map[string]DomainSpec
	order []string
}

// NewDomainRegistry creates an empty domain registry
func NewDomainRegistry() *DomainRegistry {
	return &DomainRegistry{
		specs: make(map[string]DomainSpec),
	}
}

// Register adds a domain spec to the registry
func (r *DomainRegistry) Register(spec DomainSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("domain name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[spec.Name]; exists {
		return fmt.Errorf("domain %s already registered", spec.Name)
	}
	r.specs[spec.Name] = spec
	r.order = append(r.order, spec.Name)
	return nil
}

// Get retrieves a domain spec by name
func (r *DomainRegistry) Get(name string) (DomainSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.specs[name]
	if !ok {
		return DomainSpec{}, fmt.Errorf("%w: %s", apperrors.ErrUnknownDomain, name)
	}
	return spec, nil
}

// Has checks whether a domain is registered
func (r *DomainRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.specs[name]
	return ok
}

// Names returns the registered domain names in registration order
func (r *DomainRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// SortedNames returns the registered domain names alphabetically
func (r *DomainRegistry) SortedNames() []string {
	names := r.Names()
	sort.Strings(names)
	return names
}

// List returns the registered specs in registration order
func (r *DomainRegistry) List() []DomainSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]DomainSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.specs[name])
	}
	return specs
}

// baseExclude lists the columns that stay textual in every domain:
// identifiers, names, free text, and dates.
var baseExclude = []string{
	"player",
	"player_name",
	"player_id",
	"player_display_first_last",
	"team",
	"team_abbreviation",
	"team_name",
	"team_city",
	"team_id",
	"season",
	"season_type",
	"per_mode",
	"matchup",
	"game_id",
	"game_date",
	"w_l",
	"wl",
	"measure_type",
	"pos",
	"position",
}

func withBaseExclude(extra ...string) []string {
	out := make([]string, 0, len(baseExclude)+len(extra))
	out = append(out, baseExclude...)
	out = append(out, extra...)
	return out
}

// plusMinusRename preserves the plus-minus header, which normalization
// would otherwise reduce to an empty name.
var plusMinusRename = map[string]string{"+/-": "plus_minus"}

// canonicalSynonyms unifies normalized header spellings that vary between
// export vintages. Applied in every domain, before its own renames.
var canonicalSynonyms = map[string]string{
	"match_up": "matchup",
}

// DefaultDomains returns the registry of every known stats domain
func DefaultDomains() *DomainRegistry {
	r := NewDomainRegistry()

	specs := []DomainSpec{
		{
			Name:       "player_boxscores",
			Title:      "Player Box Scores",
			PreRenames: plusMinusRename,
			Exclude:    withBaseExclude(),
			SortKeys:   []string{"game_date", "player"},
			TeamSplit:  true,
		},
		{
			Name:         "adv_boxscores",
			Title:        "Team Advanced Box Scores",
			PreRenames:   plusMinusRename,
			Exclude:      withBaseExclude("home", "away"),
			SortKeys:     []string{"game_date", "team"},
			TeamSplit:    true,
			MonthSplit:   true,
			MatchupSplit: true,
		},
		{
			Name:     "player_stats",
			Title:    "Player Season Stats",
			SubModes: []string{config.SubModeTotals, config.SubModePerGame},
			Renames: map[string]string{
				"season_year": "season",
				"tm":          "team",
			},
			Exclude:   withBaseExclude(),
			SortKeys:  []string{"team", "player"},
			TeamSplit: true,
		},
		{
			Name:     "team_general",
			Title:    "Team General Stats",
			SubModes: []string{config.SubModeTotals, config.SubModePerGame},
			Exclude:  withBaseExclude(),
			SortKeys: []string{"team"},
		},
		{
			Name:     "team_shooting",
			Title:    "Team Shooting Stats",
			SubModes: []string{config.SubModeTotals, config.SubModePerGame},
			Exclude:  withBaseExclude(),
			SortKeys: []string{"team"},
		},
		{
			Name:     "defense_dashboard",
			Title:    "Defense Dashboard",
			SubModes: []string{config.SubModeTotals, config.SubModePerGame},
			Exclude:  withBaseExclude("defense_category"),
			SortKeys: []string{"team", "player"},
		},
		{
			Name:      "player_clutch",
			Title:     "Player Clutch Stats",
			SubModes:  []string{config.SubModeTotals, config.SubModePerGame},
			Exclude:   withBaseExclude(),
			SortKeys:  []string{"team", "player", "season_start"},
			TeamSplit: true,
		},
		{
			Name:     "player_playtype",
			Title:    "Player Play Types",
			SubModes: []string{config.SubModeTotals, config.SubModePerGame, config.SubModePer48},
			Renames: map[string]string{
				"player_name":                   "player",
				"player_last_team_id":           "team_id",
				"player_last_team_abbreviation": "team",
			},
			Exclude:   withBaseExclude("play_type", "type_grouping"),
			SortKeys:  []string{"team", "player"},
			TeamSplit: true,
		},
		{
			Name:      "player_shooting",
			Title:     "Player Shooting Stats",
			SubModes:  []string{config.SubModeTotals, config.SubModePerGame},
			Exclude:   withBaseExclude(),
			SortKeys:  []string{"team", "player", "season_start"},
			TeamSplit: true,
		},
	}

	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			panic(fmt.Sprintf("register domain %s: %v", spec.Name, err))
		}
	}
	return r
}

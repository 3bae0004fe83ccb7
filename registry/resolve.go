package registry

import (
	"regexp"
	"strings"

	"github.com/padraicbc/chartapi/models"
)

// MatchMethod says which step of the resolution chain produced a match.
type MatchMethod string

const (
	MatchExact      MatchMethod = "exact"
	MatchStripped   MatchMethod = "stripped"
	MatchNormalized MatchMethod = "normalized"
	MatchAlias      MatchMethod = "alias"
	MatchSimilar    MatchMethod = "similar"
	MatchNone       MatchMethod = "none"
)

// Confidence thresholds for similarity-ranked matches on noisy
// chart-derived names.
const (
	AutoAcceptScore = 0.9
	ReviewScore     = 0.6
)

// Match is the outcome of resolving one observed spelling.
type Match struct {
	Horse      *models.Horse `json:"horse,omitempty"`
	Confidence float64       `json:"confidence"`
	Method     MatchMethod   `json:"method"`
	// Preselected tells the review surface whether to pre-select the
	// matched horse; below ReviewScore the operator picks from scratch.
	Preselected bool `json:"preselected"`
}

// Resolver resolves name spellings against a read-only registry
// snapshot. Build one per batch; it never mutates the registry.
type Resolver struct {
	horses      []models.Horse
	byExact     map[string]int
	byStripped  map[string]int
	byNorm      map[string]int
	autoAccept  float64
	reviewScore float64
}

// NewResolver indexes a registry snapshot for resolution.
func NewResolver(horses []models.Horse) *Resolver {
	r := &Resolver{
		horses:      horses,
		byExact:     map[string]int{},
		byStripped:  map[string]int{},
		byNorm:      map[string]int{},
		autoAccept:  AutoAcceptScore,
		reviewScore: ReviewScore,
	}

	// Canonical names are indexed first so an alias can never shadow one.
	for i, h := range horses {
		r.index(h.Name, i)
	}
	for i, h := range horses {
		for _, a := range h.Aliases {
			r.index(a, i)
		}
	}
	return r
}

// SetThresholds overrides the default similarity thresholds.
func (r *Resolver) SetThresholds(autoAccept, review float64) {
	r.autoAccept = autoAccept
	r.reviewScore = review
}

func (r *Resolver) index(name string, i int) {
	if k := exactKey(name); k != "" {
		if _, ok := r.byExact[k]; !ok {
			r.byExact[k] = i
		}
	}
	if k := strippedKey(name); k != "" {
		if _, ok := r.byStripped[k]; !ok {
			r.byStripped[k] = i
		}
	}
	if k := normalizedKey(name); k != "" {
		if _, ok := r.byNorm[k]; !ok {
			r.byNorm[k] = i
		}
	}
}

// Resolve runs the deterministic chain: exact case-insensitive, stripped,
// normalized key — against canonical names first, then aliases (both are
// in the same indexes, canonical entries indexed first).
func (r *Resolver) Resolve(name string) (Match, bool) {
	if i, ok := r.byExact[exactKey(name)]; ok {
		return Match{Horse: &r.horses[i], Confidence: 1, Method: MatchExact, Preselected: true}, true
	}
	if i, ok := r.byStripped[strippedKey(name)]; ok {
		return Match{Horse: &r.horses[i], Confidence: 1, Method: MatchStripped, Preselected: true}, true
	}
	if i, ok := r.byNorm[normalizedKey(name)]; ok {
		return Match{Horse: &r.horses[i], Confidence: 1, Method: MatchNormalized, Preselected: true}, true
	}
	return Match{Method: MatchNone}, false
}

// ResolveNoisy resolves a chart-derived name. The deterministic chain
// wins outright; otherwise every registry entry (and alias) is ranked by
// string similarity and the best score decides: >= autoAccept is taken
// as-is, [review, autoAccept) is surfaced pre-selected for confirmation,
// below review the operator gets no pre-selection.
func (r *Resolver) ResolveNoisy(name string) Match {
	if m, ok := r.Resolve(name); ok {
		return m
	}

	key := strippedKey(name)
	best, bestScore := -1, 0.0
	for i, h := range r.horses {
		score := Similarity(key, strippedKey(h.Name))
		for _, a := range h.Aliases {
			if s := Similarity(key, strippedKey(a)); s > score {
				score = s
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 {
		return Match{Method: MatchNone}
	}
	m := Match{
		Horse:      &r.horses[best],
		Confidence: bestScore,
		Method:     MatchSimilar,
	}
	m.Preselected = bestScore >= r.reviewScore
	return m
}

// AutoAccepted reports whether the match needs no operator confirmation.
func (r *Resolver) AutoAccepted(m Match) bool {
	return m.Horse != nil && (m.Method != MatchSimilar || m.Confidence >= r.autoAccept)
}

func exactKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

func strippedKey(name string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(name), "")
}

var (
	leadingYear4Re = regexp.MustCompile(`^\s*((?:19|20)\d{2})\b`)
	leadingYear2Re = regexp.MustCompile(`^\s*(\d{2})\b`)
	trailingYearRe = regexp.MustCompile(`\b((?:19|20)?\d{2})\s*$`)
	letterRe       = regexp.MustCompile(`[a-z]+`)
)

// normalizedKey reduces a name to letters plus a 2-digit foaling year, so
// "2022 Ginger Punch", "GINGER PUNCH 22" and "Ginger Punch 2022" all
// collapse to "gingerpunch|22". Names without a year token keep an empty
// year part.
func normalizedKey(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	year := ""

	if m := leadingYear4Re.FindStringSubmatch(lower); m != nil {
		year = m[1][2:]
		lower = lower[len(m[0]):]
	} else if m := leadingYear2Re.FindStringSubmatch(lower); m != nil {
		year = m[1]
		lower = lower[len(m[0]):]
	} else if m := trailingYearRe.FindStringSubmatch(lower); m != nil {
		year = m[1]
		if len(year) == 4 {
			year = year[2:]
		}
		lower = lower[:len(lower)-len(m[0])]
	}

	letters := strings.Join(letterRe.FindAllString(lower, -1), "")
	if letters == "" {
		return ""
	}
	return letters + "|" + year
}

// DisplayName formats a canonical name for display with its year token as
// a 2-digit suffix ("2022 Ginger Punch" -> "Ginger Punch 22"). The result
// re-resolves to the same identity through the normalized key.
func DisplayName(name string) string {
	m := leadingYear4Re.FindStringSubmatch(name)
	if m == nil {
		return name
	}
	rest := strings.TrimSpace(name[len(m[0]):])
	if rest == "" {
		return name
	}
	return rest + " " + m[1][2:]
}

// Similarity is a normalized Levenshtein similarity in [0,1] over
// pre-stripped keys.
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	dist := levenshtein(a, b)
	max := len(a)
	if len(b) > max {
		max = len(b)
	}
	return 1 - float64(dist)/float64(max)
}

// Two-row Levenshtein distance.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

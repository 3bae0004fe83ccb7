// Package chart parses free text extracted from race-result chart
// documents. Everything here is a pure function of the input text; output
// is best effort, with sentinel values standing in for anything the text
// did not yield. Downstream code must treat sentinels as "needs
// verification", never as valid data.
package chart

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
)

// Sentinel values for unresolved metadata fields.
const (
	UnknownDate    = "Unknown Date"
	UnknownTrack   = "UNK"
	UnknownClass   = "UNK"
	DefaultSurface = "D"
	SurfaceTurf    = "T"
)

// RaceMetadata is derived once per document, not per horse.
type RaceMetadata struct {
	Date     string  `json:"date"`
	Track    string  `json:"track"`
	Surface  string  `json:"surface"`
	Furlongs float64 `json:"furlongs"`
	Class    string  `json:"class"`
	RaceName string  `json:"raceName,omitempty"`
}

// Incomplete reports whether any field still carries a sentinel and the
// record therefore needs operator verification.
func (m RaceMetadata) Incomplete() bool {
	return m.Date == UnknownDate || m.Track == UnknownTrack ||
		m.Class == UnknownClass || m.Furlongs <= 0
}

// ExtractMetadata derives best-effort race metadata from chart text.
func ExtractMetadata(text string) RaceMetadata {
	track, trackLine := extractTrack(text)
	return RaceMetadata{
		Date:     extractDate(text, trackLine),
		Track:    track,
		Surface:  extractSurface(text),
		Furlongs: extractFurlongs(text),
		Class:    extractClass(text),
		RaceName: extractRaceName(text),
	}
}

// knownTracks maps full track names (lowercase) to their codes. Matched
// before the abbreviation fallback.
var knownTracks = []struct{ name, code string }{
	{"churchill downs", "CD"},
	{"saratoga", "SAR"},
	{"belmont park", "BEL"},
	{"keeneland", "KEE"},
	{"gulfstream park", "GP"},
	{"santa anita", "SA"},
	{"del mar", "DMR"},
	{"oaklawn park", "OP"},
	{"fair grounds", "FG"},
	{"aqueduct", "AQU"},
	{"tampa bay downs", "TAM"},
	{"monmouth park", "MTH"},
	{"laurel park", "LRL"},
	{"pimlico", "PIM"},
	{"woodbine", "WO"},
	{"turfway park", "TP"},
}

var trackHeaderRe = regexp.MustCompile(`^([A-Za-z][A-Za-z .']+?)\s*[-–]`)

// extractTrack returns the track code and the index of the line the track
// name was found on (-1 when unresolved).
func extractTrack(text string) (string, int) {
	lines := strings.Split(text, "\n")
	lower := strings.ToLower(text)

	for _, kt := range knownTracks {
		if !strings.Contains(lower, kt.name) {
			continue
		}
		for i, ln := range lines {
			if strings.Contains(strings.ToLower(ln), kt.name) {
				return kt.code, i
			}
		}
		return kt.code, 0
	}

	// Fallback: abbreviate an unrecognised track name from the first
	// letters of its words, e.g. "Thistledown Park - ..." -> "TP".
	for i, ln := range lines {
		m := trackHeaderRe.FindStringSubmatch(ln)
		if m == nil {
			continue
		}
		words := strings.Fields(m[1])
		if len(words) == 0 {
			continue
		}
		var b strings.Builder
		for _, w := range words {
			b.WriteByte(w[0] &^ 0x20) // uppercase first letter
		}
		return b.String(), i
	}

	return UnknownTrack, -1
}

var headerDateRe = regexp.MustCompile(`(?i)(?:(?:sun|mon|tues?|wednes|thurs?|fri|satur)day,?\s+)?` +
	`(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2}),?\s+(\d{4})`)

var looseDateRe = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b|\b\d{4}-\d{2}-\d{2}\b`)

// extractDate looks for a weekday/month/day/year pattern adjacent to the
// track name, falling back to the last date-like token in the document.
func extractDate(text string, trackLine int) string {
	lines := strings.Split(text, "\n")

	if trackLine >= 0 {
		// The header date sits on the track line or the one after it.
		for _, i := range []int{trackLine, trackLine + 1} {
			if i >= len(lines) {
				continue
			}
			if m := headerDateRe.FindStringSubmatch(lines[i]); m != nil {
				if d := normalizeDate(m[1] + " " + m[2] + ", " + m[3]); d != "" {
					return d
				}
			}
		}
	}

	if m := headerDateRe.FindStringSubmatch(text); m != nil {
		if d := normalizeDate(m[1] + " " + m[2] + ", " + m[3]); d != "" {
			return d
		}
	}

	// Last date-like token anywhere wins over nothing at all.
	all := looseDateRe.FindAllString(text, -1)
	for i := len(all) - 1; i >= 0; i-- {
		if d := normalizeDate(all[i]); d != "" {
			return d
		}
	}

	return UnknownDate
}

func normalizeDate(raw string) string {
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// Turf variants are checked before defaulting to dirt. Word boundaries
// keep track names like "Turfway" from flipping the surface.
var turfRe = regexp.MustCompile(`\b(?:inner turf|outer turf|turf|grass|lawn)\b`)

func extractSurface(text string) string {
	if turfRe.MatchString(strings.ToLower(text)) {
		return SurfaceTurf
	}
	return DefaultSurface
}

var (
	mixedDistRe   = regexp.MustCompile(`(?i)\b(\d+)(?:\s+(\d+)/(\d+))?\s*(miles?|furlongs?)\b`)
	decimalDistRe = regexp.MustCompile(`(?i)\b(\d+\.\d+)\s*(miles?|furlongs?)\b`)
	spelledDistRe = regexp.MustCompile(`(?i)\b(one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)` +
		`(?:\s+and\s+(one|three)\s+(half|quarter|eighth|sixteenth)s?)?\s*(miles?|furlongs?)\b`)
)

var spelledNumbers = map[string]float64{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

var spelledFractions = map[string]float64{
	"half": 2, "quarter": 4, "eighth": 8, "sixteenth": 16,
}

// extractFurlongs normalises any supported distance form to a furlong
// float. Returns 0 when no distance is found.
func extractFurlongs(text string) float64 {
	if m := decimalDistRe.FindStringSubmatch(text); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return toFurlongs(v, m[2])
	}

	if m := mixedDistRe.FindStringSubmatch(text); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		if m[2] != "" && m[3] != "" {
			num, _ := strconv.ParseFloat(m[2], 64)
			den, _ := strconv.ParseFloat(m[3], 64)
			if den > 0 {
				v += num / den
			}
		}
		return toFurlongs(v, m[4])
	}

	if m := spelledDistRe.FindStringSubmatch(text); m != nil {
		v := spelledNumbers[strings.ToLower(m[1])]
		if m[2] != "" && m[3] != "" {
			v += spelledNumbers[strings.ToLower(m[2])] / spelledFractions[strings.ToLower(m[3])]
		}
		return toFurlongs(v, m[4])
	}

	return 0
}

func toFurlongs(v float64, unit string) float64 {
	if strings.HasPrefix(strings.ToLower(unit), "mile") {
		return v * 8
	}
	return v
}

// classRule pairs a predicate with its resulting class code. Rules are
// evaluated strictly top to bottom: the patterns overlap ("claiming"
// appears inside "maiden claiming"), so the order is a correctness
// contract, not a style choice.
type classRule struct {
	name  string
	match func(lower string) (string, bool)
}

func literalRule(name, code string, pats ...string) classRule {
	return classRule{name: name, match: func(lower string) (string, bool) {
		for _, p := range pats {
			if strings.Contains(lower, p) {
				return code, true
			}
		}
		return "", false
	}}
}

var (
	gradedRe        = regexp.MustCompile(`grade\s+(iii|ii|i|[123])\b`)
	claimingPriceRe = regexp.MustCompile(`claiming.*\$[\d,]+|\$[\d,]+\s+claiming`)
)

var classRules = []classRule{
	literalRule("allowance optional claiming", "AOC", "allowance optional claiming", "optional claiming"),
	literalRule("maiden special weight", "MSW", "maiden special weight"),
	{name: "graded stakes", match: func(lower string) (string, bool) {
		m := gradedRe.FindStringSubmatch(lower)
		if m == nil {
			return "", false
		}
		switch m[1] {
		case "i", "1":
			return "G1", true
		case "ii", "2":
			return "G2", true
		default:
			return "G3", true
		}
	}},
	literalRule("named stakes", "STK", "stakes"),
	literalRule("maiden claiming", "MCL", "maiden claiming"),
	literalRule("starter allowance", "STA", "starter allowance", "starter alw"),
	literalRule("allowance", "ALW", "allowance"),
	{name: "claiming with price", match: func(lower string) (string, bool) {
		if claimingPriceRe.MatchString(lower) {
			return "CLM", true
		}
		return "", false
	}},
	literalRule("handicap", "HCP", "handicap"),
	// Bare "maiden" or "claiming" with no qualifier still beats UNK.
	literalRule("maiden", "MDN", "maiden"),
	literalRule("claiming", "CLM", "claiming"),
}

func extractClass(text string) string {
	lower := strings.ToLower(text)
	for _, r := range classRules {
		if code, ok := r.match(lower); ok {
			return code
		}
	}
	return UnknownClass
}

var raceNameRe = regexp.MustCompile(`(?m)^\s*(?:The\s+)?([A-Z][A-Za-z .']+ (?:Stakes|Handicap|Cup|Derby|Oaks))\b`)

func extractRaceName(text string) string {
	if m := raceNameRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

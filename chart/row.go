package chart

import (
	"regexp"
	"strings"
)

// resultsAnchor marks the header of the tabular results area. Everything
// a row parse needs sits below this token; layouts that lack it are
// treated as unrecognised.
const resultsAnchor = "Pgm Horse Name"

// Row is one horse's extracted result substring with its tokenized
// fields. PositionDigits and PositionTokens are mutually exclusive
// capture forms for the finishing calls; see Disambiguate and
// PositionsFromTokens.
type Row struct {
	Text           string     `json:"text"`
	Odds           string     `json:"odds"`
	Comment        string     `json:"comment"`
	Times          SplitTimes `json:"times"`
	PositionDigits string     `json:"positionDigits,omitempty"`
	PositionTokens []string   `json:"positionTokens,omitempty"`
}

var (
	oddsRe  = regexp.MustCompile(`\b\d+\.\d{2}\b`)
	finalRe = regexp.MustCompile(`\b\d:\d{2}\.\d{2}\b`)
	fracRe  = regexp.MustCompile(`\b\d{2}\.\d{2}\b`)

	// Program number, horse name, decimal odds: the start of a result row.
	rowStartRe = regexp.MustCompile(`^\s*(?:\d+[A-Za-z]?\s+)?([A-Za-z][A-Za-z .'&-]*?)\s+(\d+\.\d{2})\b`)

	// Digit run carrying the finishing calls, directly after the final time.
	digitRunRe = regexp.MustCompile(`\b\d+\b`)

	// Margin-annotated call token ("1hd", "21/2", "3nk", "11").
	marginTokRe = regexp.MustCompile(`^\d{1,2}(?:hd|nk|no|ns|\d*/\d+)?$`)

	// A later three-quarter/six-furlong time can sit on its own
	// weight/post/letter/time/state line several lines below the row.
	sixFurlongRe = regexp.MustCompile(`^\s*\d{3}\s+\d{1,2}\s+[A-Za-z]\s+(\d:\d{2}\.\d{2})\s+[A-Z]{2}\b`)

	commentStripRe = regexp.MustCompile(`[^A-Za-z ,]+`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

// resultsSection returns the text below the results header anchor.
func resultsSection(text string) (string, bool) {
	i := strings.Index(text, resultsAnchor)
	if i < 0 {
		return "", false
	}
	rest := text[i+len(resultsAnchor):]
	if j := strings.IndexByte(rest, '\n'); j >= 0 {
		rest = rest[j+1:]
	}
	return rest, true
}

// EnumerateCandidates lists every horse name that starts a result row, in
// document order. All of them get parsed so a reviewer can switch the
// selected horse without a re-parse.
func EnumerateCandidates(text string) []string {
	section, ok := resultsSection(text)
	if !ok {
		return nil
	}

	var names []string
	seen := map[string]bool{}
	for _, ln := range strings.Split(section, "\n") {
		m := rowStartRe.FindStringSubmatch(ln)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	return names
}

// maxJoinLines bounds how many continuation lines are rejoined when text
// extraction split a row.
const maxJoinLines = 5

// LocateRow finds the named horse's result substring in the document and
// tokenizes it. The second return is false when the horse does not appear
// in the results area.
func LocateRow(text, horse string) (Row, bool) {
	section, ok := resultsSection(text)
	if !ok {
		return Row{}, false
	}

	lines := strings.Split(section, "\n")
	nameRe, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(strings.TrimSpace(horse)) + `\b`)
	if err != nil {
		return Row{}, false
	}

	start := -1
	var rowText string
	for i, ln := range lines {
		loc := nameRe.FindStringIndex(ln)
		if loc == nil {
			continue
		}
		start = i
		rowText = ln[loc[0]:]
		break
	}
	if start < 0 {
		return Row{}, false
	}

	// Rejoin continuation lines until the odds token shows up, stopping at
	// a margin-notation line or the start of the next horse's row.
	joined := 0
	for i := start + 1; i < len(lines) && joined < maxJoinLines; i++ {
		if oddsAfterName(rowText, horse) {
			break
		}
		if isMarginLine(lines[i]) || isRowStart(lines[i]) {
			break
		}
		rowText += " " + strings.TrimSpace(lines[i])
		joined++
	}

	row := tokenizeRow(rowText)
	row.Text = strings.TrimSpace(rowText)

	// The three-quarter time, when present, lives further down on its own
	// line and is searched for independently of row boundaries.
	if row.Times.ThreeQuarter.IsZero() {
		for i := start + 1; i < len(lines); i++ {
			if m := sixFurlongRe.FindStringSubmatch(lines[i]); m != nil {
				row.Times.ThreeQuarter = FracTime{Display: m[1]}
				break
			}
		}
	}

	return row, true
}

func oddsAfterName(rowText, horse string) bool {
	rest := rowText
	if len(rest) > len(horse) {
		rest = rest[len(horse):]
	}
	return oddsRe.MatchString(rest)
}

func isRowStart(ln string) bool {
	return rowStartRe.MatchString(ln)
}

// isMarginLine reports whether a line consists of margin-notation tokens
// (optionally introduced by a "Margins:" label).
func isMarginLine(ln string) bool {
	fields := strings.Fields(ln)
	if len(fields) == 0 {
		return false
	}
	if strings.EqualFold(strings.TrimSuffix(fields[0], ":"), "margins") {
		return true
	}
	if len(fields) < 3 {
		return false
	}
	for _, f := range fields {
		if !marginTokRe.MatchString(strings.ToLower(f)) {
			return false
		}
	}
	return true
}

// tokenizeRow extracts odds, comment, times and the finishing-call run
// from one rejoined row substring.
func tokenizeRow(rowText string) Row {
	var row Row

	oddsLoc := oddsRe.FindStringIndex(rowText)
	if oddsLoc == nil {
		return row
	}
	row.Odds = rowText[oddsLoc[0]:oddsLoc[1]]
	afterOdds := rowText[oddsLoc[1]:]

	// Imperfect row-boundary detection can append the next horse's final
	// time to this row, so the FIRST minute:second time wins, never the
	// last.
	finalLoc := finalRe.FindStringIndex(afterOdds)
	if finalLoc != nil {
		row.Times.Final = FracTime{Display: afterOdds[finalLoc[0]:finalLoc[1]]}
	}

	// Quarter and half: first two second-range fractional times before the
	// final time.
	fracEnd := len(afterOdds)
	if finalLoc != nil {
		fracEnd = finalLoc[0]
	}
	var fracs []string
	var firstFracStart = fracEnd
	for _, loc := range fracRe.FindAllStringIndex(afterOdds[:fracEnd], -1) {
		v := ParseSeconds(afterOdds[loc[0]:loc[1]])
		if v < 20 || v > 95 {
			continue
		}
		if loc[0] < firstFracStart {
			firstFracStart = loc[0]
		}
		fracs = append(fracs, afterOdds[loc[0]:loc[1]])
		if len(fracs) == 2 {
			break
		}
	}
	if len(fracs) > 0 {
		row.Times.Quarter = FracTime{Display: fracs[0]}
	}
	if len(fracs) > 1 {
		row.Times.Half = FracTime{Display: fracs[1]}
	}

	// Running comment: the alphabetic text between the odds token and the
	// first fractional time.
	commentEnd := firstFracStart
	if commentEnd > fracEnd {
		commentEnd = fracEnd
	}
	row.Comment = cleanComment(afterOdds[:commentEnd])

	if finalLoc == nil {
		return row
	}
	afterFinal := afterOdds[finalLoc[1]:]

	// Finishing calls: either a bare digit run or space-delimited
	// margin-annotated tokens.
	if loc := digitRunRe.FindStringIndex(afterFinal); loc != nil {
		tok := afterFinal[loc[0]:loc[1]]
		rest := strings.Fields(afterFinal[loc[0]:])
		if len(rest) > 1 && allMarginTokens(rest) {
			row.PositionTokens = rest
		} else {
			row.PositionDigits = tok
		}
	}

	return row
}

func allMarginTokens(fields []string) bool {
	for _, f := range fields {
		if !marginTokRe.MatchString(strings.ToLower(f)) {
			return false
		}
	}
	return true
}

func cleanComment(s string) string {
	s = commentStripRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.Trim(strings.TrimSpace(s), ",")
}

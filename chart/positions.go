package chart

import "strings"

// routeFurlongs is the distance at which charts switch from four calls to
// five.
const routeFurlongs = 8.0

// ExpectedCalls returns the number of finishing calls a chart records for
// the given distance: 4 for sprints, 5 for routes. An unknown distance is
// treated as a sprint.
func ExpectedCalls(furlongs float64) int {
	if furlongs >= routeFurlongs {
		return 5
	}
	return 4
}

// Disambiguate decodes a concatenated finishing-call digit string into
// discrete positions. The digits carry no delimiter: "10" is always one
// position (no position or margin is ever 0), but "11" and "12" could be
// one double-digit position or two single-digit ones.
//
// Resolution order:
//  1. A run exactly as long as the expected call count reads every digit
//     singly ("1111" is four 1st-place calls, not two 11ths).
//  2. Otherwise scan left to right: "1" then "0" always consumes as 10;
//     "1" then "1" or "2" consumes as a double-digit position only when
//     the run is longer than the expected count; everything else reads a
//     single digit.
//
// Under-resolved output (fewer positions than expected) is the caller's
// signal to mark the record needs-verification; there is no failure path.
func Disambiguate(run string, expected int) []int {
	run = digitsOnly(run)
	if run == "" {
		return nil
	}

	positions := make([]int, 0, expected)

	if len(run) == expected {
		for i := 0; i < len(run); i++ {
			positions = append(positions, int(run[i]-'0'))
		}
		return positions
	}

	long := len(run) > expected
	for i := 0; i < len(run); {
		if run[i] == '1' && i+1 < len(run) {
			next := run[i+1]
			if next == '0' {
				positions = append(positions, 10)
				i += 2
				continue
			}
			if (next == '1' || next == '2') && long {
				positions = append(positions, 10+int(next-'0'))
				i += 2
				continue
			}
		}
		positions = append(positions, int(run[i]-'0'))
		i++
	}

	return positions
}

// PositionsFromTokens decodes the space-delimited margin-annotated layout
// ("1hd", "21/2", ...), taking each token's leading number as the
// position. When six or more tokens are present the first two are the
// post position and the start call and are skipped.
func PositionsFromTokens(tokens []string) []int {
	if len(tokens) >= 6 {
		tokens = tokens[2:]
	}

	var positions []int
	for _, tok := range tokens {
		if p, ok := leadingPosition(tok); ok {
			positions = append(positions, p)
		}
	}
	return positions
}

// leadingPosition reads the position off the front of a margin token:
// the leading digit, except that "10" consumes both digits since neither
// a position nor a margin is ever 0.
func leadingPosition(tok string) (int, bool) {
	tok = strings.TrimSpace(tok)
	if tok == "" || tok[0] < '1' || tok[0] > '9' {
		return 0, false
	}
	if tok[0] == '1' && len(tok) >= 2 && tok[1] == '0' {
		return 10, true
	}
	return int(tok[0] - '0'), true
}

func digitsOnly(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

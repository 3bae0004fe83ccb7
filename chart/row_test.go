package chart

import (
	"reflect"
	"strings"
	"testing"
)

func TestEnumerateCandidates(t *testing.T) {
	t.Parallel()

	got := EnumerateCandidates(sprintChart)
	want := []string{"Ginger Punch", "Rapid Transit"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("candidates = %v, want %v", got, want)
	}

	if got := EnumerateCandidates("no anchor in sight"); got != nil {
		t.Fatalf("expected nil candidates without the results anchor, got %v", got)
	}
}

func TestLocateRowTokenizes(t *testing.T) {
	t.Parallel()

	row, ok := LocateRow(sprintChart, "Ginger Punch")
	if !ok {
		t.Fatal("row not found")
	}
	if row.Odds != "2.50" {
		t.Fatalf("odds = %q, want 2.50", row.Odds)
	}
	if row.Times.Final.Display != "1:10.45" {
		t.Fatalf("final = %q, want 1:10.45", row.Times.Final.Display)
	}
	if row.Times.Quarter.Display != "24.10" || row.Times.Half.Display != "48.22" {
		t.Fatalf("splits = %q/%q, want 24.10/48.22", row.Times.Quarter.Display, row.Times.Half.Display)
	}
	if row.Comment != "bid three wide, drew clear" {
		t.Fatalf("comment = %q", row.Comment)
	}
	if row.PositionDigits != "3211" {
		t.Fatalf("position digits = %q, want 3211", row.PositionDigits)
	}
}

func TestLocateRowNotFound(t *testing.T) {
	t.Parallel()

	if _, ok := LocateRow(sprintChart, "Absent Friend"); ok {
		t.Fatal("expected not found for a horse outside the results section")
	}
}

// Imperfect row-boundary detection can append the next horse's final time
// to a row; the first minute:second time must win.
func TestFirstFinalTimeWinsOnBoundaryBleed(t *testing.T) {
	t.Parallel()

	text := "Pgm Horse Name Odds\n" +
		"3 Ginger Punch 2.50 drew clear 24.10 48.22 1:10.45 3211 1:11.02\n"
	row, ok := LocateRow(text, "Ginger Punch")
	if !ok {
		t.Fatal("row not found")
	}
	if row.Times.Final.Display != "1:10.45" {
		t.Fatalf("final = %q, want the first time 1:10.45", row.Times.Final.Display)
	}
}

func TestLocateRowRejoinsSplitLines(t *testing.T) {
	t.Parallel()

	text := "Pgm Horse Name Odds\n" +
		"3 Ginger\n" +
		"Punch\n" +
		"2.50 drew clear 24.10 48.22 1:10.45 3211\n" +
		"5 Rapid Transit 5.80 weakened 24.30 48.90 1:11.02 1234\n"

	row, ok := LocateRow(text, "Ginger")
	if !ok {
		t.Fatal("split row not found")
	}
	if row.Times.Final.Display != "1:10.45" {
		t.Fatalf("final = %q, want 1:10.45 from the rejoined row", row.Times.Final.Display)
	}
	// The rejoin must stop before the next horse's row.
	if strings.Contains(row.Text, "Rapid Transit") {
		t.Fatalf("rejoined past the next horse's row: %q", row.Text)
	}
}

func TestLocateRowStopsAtMarginLine(t *testing.T) {
	t.Parallel()

	text := "Pgm Horse Name Odds\n" +
		"3 Ginger Punch\n" +
		"1hd 21/2 3nk 45\n" +
		"2.50 drew clear 24.10 48.22 1:10.45 3211\n"

	row, ok := LocateRow(text, "Ginger Punch")
	if !ok {
		t.Fatal("row not found")
	}
	// The margin line blocks the rejoin, so the odds are never reached.
	if row.Odds != "" {
		t.Fatalf("odds = %q, want none past a margin line", row.Odds)
	}
}

func TestThreeQuarterTimeSearchedIndependently(t *testing.T) {
	t.Parallel()

	text := "Pgm Horse Name Odds\n" +
		"6 Sea Cadence 3.40 rallied 24.80 49.60 1:42.33 54321\n" +
		"some unrelated line\n" +
		"118 6 L 1:36.80 NY\n"

	row, ok := LocateRow(text, "Sea Cadence")
	if !ok {
		t.Fatal("row not found")
	}
	if row.Times.ThreeQuarter.Display != "1:36.80" {
		t.Fatalf("three-quarter = %q, want 1:36.80", row.Times.ThreeQuarter.Display)
	}
	if row.Times.Final.Display != "1:42.33" {
		t.Fatalf("final = %q, want 1:42.33", row.Times.Final.Display)
	}
}

func TestMarginTokenLayout(t *testing.T) {
	t.Parallel()

	text := "Pgm Horse Name Odds\n" +
		"4 Slow Lane 12.30 trailed 25.00 50.10 1:12.88 31 21/2 1hd 11\n"

	row, ok := LocateRow(text, "Slow Lane")
	if !ok {
		t.Fatal("row not found")
	}
	if len(row.PositionTokens) != 4 {
		t.Fatalf("position tokens = %v, want 4 margin tokens", row.PositionTokens)
	}
	got := PositionsFromTokens(row.PositionTokens)
	if !reflect.DeepEqual(got, []int{3, 2, 1, 1}) {
		t.Fatalf("positions = %v, want [3 2 1 1]", got)
	}
}

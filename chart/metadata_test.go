package chart

import "testing"

const sprintChart = `Churchill Downs - Saturday, May 6, 2023 - Race 7
Six Furlongs. Dirt. Allowance. Purse $120,000
Pgm Horse Name Odds Comment
3 Ginger Punch 2.50 bid three wide, drew clear 24.10 48.22 1:10.45 3211
5 Rapid Transit 5.80 chased inside, weakened 24.30 48.90 1:11.02 1234
`

func TestExtractMetadataHeader(t *testing.T) {
	t.Parallel()

	m := ExtractMetadata(sprintChart)
	if m.Track != "CD" {
		t.Fatalf("track = %q, want CD", m.Track)
	}
	if m.Date != "2023-05-06" {
		t.Fatalf("date = %q, want 2023-05-06", m.Date)
	}
	if m.Surface != DefaultSurface {
		t.Fatalf("surface = %q, want %q", m.Surface, DefaultSurface)
	}
	if m.Furlongs != 6 {
		t.Fatalf("furlongs = %v, want 6", m.Furlongs)
	}
	if m.Class != "ALW" {
		t.Fatalf("class = %q, want ALW", m.Class)
	}
	if m.Incomplete() {
		t.Fatal("fully resolved metadata reported incomplete")
	}
}

func TestExtractMetadataSentinels(t *testing.T) {
	t.Parallel()

	m := ExtractMetadata("nothing recognisable here")
	if m.Date != UnknownDate || m.Track != UnknownTrack || m.Class != UnknownClass {
		t.Fatalf("expected sentinels, got %+v", m)
	}
	if m.Surface != DefaultSurface {
		t.Fatalf("surface = %q, want default dirt", m.Surface)
	}
	if !m.Incomplete() {
		t.Fatal("sentinel metadata must report incomplete")
	}
}

func TestExtractTrackAbbreviationFallback(t *testing.T) {
	t.Parallel()

	m := ExtractMetadata("Thistledown Park - Friday, July 4, 2025 - Race 2\nSix Furlongs. Dirt. Claiming $10,000.")
	if m.Track != "TP" {
		t.Fatalf("track = %q, want first-letters fallback TP", m.Track)
	}
}

func TestExtractDateFallbackLastToken(t *testing.T) {
	t.Parallel()

	m := ExtractMetadata("scratch sheet 01/02/2024 updated 03/15/2024 final")
	if m.Date != "2024-03-15" {
		t.Fatalf("date = %q, want last date-like token 2024-03-15", m.Date)
	}
}

func TestExtractSurfaceTurfVariantsFirst(t *testing.T) {
	t.Parallel()

	if got := ExtractMetadata("One Mile. Inner Turf. Allowance.").Surface; got != SurfaceTurf {
		t.Fatalf("surface = %q, want turf", got)
	}
	// A track name containing "turf" must not flip the surface.
	if got := ExtractMetadata("Turfway Park - Race 1\nSix Furlongs. Dirt.").Surface; got != DefaultSurface {
		t.Fatalf("surface = %q, want dirt for Turfway dirt race", got)
	}
}

func TestExtractFurlongs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want float64
	}{
		{"Six Furlongs. Dirt.", 6},
		{"5 1/2 Furlongs. Dirt.", 5.5},
		{"1 1/16 Miles. Turf.", 8.5},
		{"6.5 furlongs about", 6.5},
		{"One Mile. Dirt.", 8},
		{"One and One Sixteenth Miles. Turf.", 8.5},
		{"no distance here", 0},
	}
	for _, tc := range cases {
		if got := extractFurlongs(tc.text); got != tc.want {
			t.Errorf("extractFurlongs(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

// The class patterns overlap, so the priority order is load-bearing.
func TestExtractClassPriority(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want string
	}{
		{"Allowance Optional Claiming $62,500", "AOC"},
		{"Maiden Special Weight. Purse $80,000", "MSW"},
		{"The Haskell Stakes. Grade I. One Mile.", "G1"},
		{"Grade 2 Stakes", "G2"},
		{"The Remsen Stakes", "STK"},
		// Maiden claiming must not collapse to generic claiming, with or
		// without a price pattern.
		{"Maiden Claiming. Purse $20,000", "MCL"},
		{"Maiden Claiming $16,000", "MCL"},
		{"Starter Allowance $25,000", "STA"},
		{"Allowance. Purse $90,000", "ALW"},
		{"Claiming $10,000. Purse $18,000", "CLM"},
		{"The Suburban Handicap ran today", "HCP"},
	}
	for _, tc := range cases {
		if got := extractClass(tc.text); got != tc.want {
			t.Errorf("extractClass(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

package chart

import (
	"reflect"
	"testing"
)

func TestDisambiguate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		run      string
		expected int
		want     []int
	}{
		// Run length equals the call count: every digit reads singly.
		{"1111", 4, []int{1, 1, 1, 1}},
		{"12865", 5, []int{1, 2, 8, 6, 5}},
		// "1" then "0" always consumes as 10.
		{"109765", 5, []int{10, 9, 7, 6, 5}},
		// "1" then "1"/"2" consumes double only when the run is longer
		// than expected.
		{"119765", 5, []int{11, 9, 7, 6, 5}},
		{"129765", 5, []int{12, 9, 7, 6, 5}},
		{"3211", 4, []int{3, 2, 1, 1}},
		{"54321", 5, []int{5, 4, 3, 2, 1}},
		// Short runs still resolve; the caller flags them.
		{"321", 4, []int{3, 2, 1}},
		{"", 4, nil},
	}

	for _, tc := range cases {
		got := Disambiguate(tc.run, tc.expected)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Disambiguate(%q, %d) = %v, want %v", tc.run, tc.expected, got, tc.want)
		}
	}
}

func TestDisambiguateIgnoresNonDigits(t *testing.T) {
	t.Parallel()

	got := Disambiguate(" 32-11 ", 4)
	if !reflect.DeepEqual(got, []int{3, 2, 1, 1}) {
		t.Fatalf("unexpected positions: %v", got)
	}
}

func TestPositionsFromTokens(t *testing.T) {
	t.Parallel()

	// Fewer than six tokens: all are calls.
	got := PositionsFromTokens([]string{"31", "21/2", "1hd", "11"})
	if !reflect.DeepEqual(got, []int{3, 2, 1, 1}) {
		t.Fatalf("unexpected positions: %v", got)
	}

	// Six or more tokens: the first two are post position and start.
	got = PositionsFromTokens([]string{"7", "5", "41", "31/2", "2hd", "1nk"})
	if !reflect.DeepEqual(got, []int{4, 3, 2, 1}) {
		t.Fatalf("unexpected positions with post/start skip: %v", got)
	}

	// "10" consumes both digits since no position or margin is 0.
	got = PositionsFromTokens([]string{"101/2", "9hd", "8nk"})
	if !reflect.DeepEqual(got, []int{10, 9, 8}) {
		t.Fatalf("unexpected positions for 10: %v", got)
	}
}

func TestExpectedCalls(t *testing.T) {
	t.Parallel()

	if got := ExpectedCalls(6); got != 4 {
		t.Fatalf("sprint calls = %d, want 4", got)
	}
	if got := ExpectedCalls(8.5); got != 5 {
		t.Fatalf("route calls = %d, want 5", got)
	}
	if got := ExpectedCalls(0); got != 4 {
		t.Fatalf("unknown distance calls = %d, want 4", got)
	}
}

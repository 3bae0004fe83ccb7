package chart

import (
	"strconv"
	"strings"
)

// FracTime holds one timing value exactly as it appeared in the chart.
// The display string is the source of truth; seconds are always derived
// from it and never stored independently.
type FracTime struct {
	Display string `json:"display"`
}

// Seconds converts the display string to seconds. Supports "m:ss.xx" and
// plain "ss.xx". Returns 0 for an empty or unparseable display.
func (t FracTime) Seconds() float64 {
	return ParseSeconds(t.Display)
}

// IsZero reports whether no time was captured.
func (t FracTime) IsZero() bool { return t.Display == "" }

// ParseSeconds converts a chart time string to seconds.
func ParseSeconds(display string) float64 {
	display = strings.TrimSpace(display)
	if display == "" {
		return 0
	}

	if i := strings.IndexByte(display, ':'); i >= 0 {
		mins, err := strconv.Atoi(display[:i])
		if err != nil {
			return 0
		}
		secs, err := strconv.ParseFloat(display[i+1:], 64)
		if err != nil {
			return 0
		}
		return float64(mins)*60 + secs
	}

	secs, err := strconv.ParseFloat(display, 64)
	if err != nil {
		return 0
	}
	return secs
}

// SplitTimes carries the captured call times for one performance.
type SplitTimes struct {
	Quarter      FracTime `json:"quarter"`
	Half         FracTime `json:"half"`
	ThreeQuarter FracTime `json:"threeQuarter"`
	Final        FracTime `json:"final"`
}

// AvgSpeedMPH returns average speed in miles per hour over the race.
// A furlong is 1/8 mile.
func AvgSpeedMPH(furlongs, finalSeconds float64) float64 {
	if furlongs <= 0 || finalSeconds <= 0 {
		return 0
	}
	return (furlongs / 8) / (finalSeconds / 3600)
}

// FiveFurlongPace scales the final time linearly to a five-furlong
// equivalent, so performances at different distances compare directly.
func FiveFurlongPace(furlongs, finalSeconds float64) float64 {
	if furlongs <= 0 || finalSeconds <= 0 {
		return 0
	}
	return finalSeconds / furlongs * 5
}

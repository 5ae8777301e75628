// Package engine holds the pure productivity arithmetic: how focused
// milliseconds convert into bank minutes and how earning ratios are
// labelled.
package engine

import (
	"math"
	"strconv"
)

// CalculateEarnings converts worked milliseconds into bank minutes at the
// given ratio (minutes of work per minute earned), rounded to 2 decimals.
func CalculateEarnings(msWorked int64, ratio int) float64 {
	if msWorked <= 0 || ratio <= 0 {
		return 0
	}
	minutes := float64(msWorked) / 60000
	return RoundMinutes(minutes / float64(ratio))
}

// RoundMinutes rounds to 2 decimal places.
func RoundMinutes(x float64) float64 {
	return math.Round(x*100) / 100
}

// FormatBank renders a bank balance with exactly 2 decimals.
func FormatBank(minutes float64) string {
	return strconv.FormatFloat(RoundMinutes(minutes), 'f', 2, 64)
}

// TierInfo describes the difficulty label of an earning ratio.
type TierInfo struct {
	Label string
	Rank  int
}

var tiers = []struct {
	max   int
	label string
}{
	{1, "Casual"},
	{5, "Balanced"},
	{10, "Grind"},
	{25, "Elite"},
	{50, "Hardcore"},
}

// Tier maps an earning ratio to its label. Ratios at or below 1 are Casual
// and anything above 50 is God Mode.
func Tier(ratio int) TierInfo {
	for i, t := range tiers {
		if ratio <= t.max {
			return TierInfo{Label: t.label, Rank: i}
		}
	}
	return TierInfo{Label: "God Mode", Rank: len(tiers)}
}
